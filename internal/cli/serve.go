package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/nhle/teamtrack/internal/api"
	"github.com/nhle/teamtrack/internal/ratelimit"
)

const shutdownTimeout = 10 * time.Second

func serveCmd(a *app) *cobra.Command {
	var (
		addr  string
		debug bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API backed by the local database.

Auth endpoints are rate limited per client when server.redis_url is
configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !debug {
				gin.SetMode(gin.ReleaseMode)
			}

			e, err := a.open()
			if err != nil {
				return err
			}
			defer e.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			deps := api.Deps{
				Auth:          e.auth,
				Tokens:        e.tokens,
				Projects:      e.projects,
				Tasks:         e.tasks,
				Activities:    e.activities,
				Files:         e.files,
				Push:          e.dispatcher,
				AuthRateLimit: e.cfg.Server.AuthRateLimit,
			}
			if e.cfg.Server.RedisURL != "" {
				rl, err := ratelimit.NewRateLimiter(ctx, e.cfg.Server.RedisURL)
				if err != nil {
					return err
				}
				defer rl.Close()
				deps.Limiter = rl
				log.Printf("rate limiting auth endpoints to %d requests per minute", deps.AuthRateLimit)
			}

			if addr == "" {
				addr = e.cfg.Server.Addr
			}
			server := &http.Server{
				Addr:              addr,
				Handler:           api.NewRouter(deps),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Printf("teamtrack API listening on %s", addr)
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			log.Println("shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr)")
	cmd.Flags().BoolVar(&debug, "debug", os.Getenv(gin.EnvGinMode) == gin.DebugMode, "run gin in debug mode")

	return cmd
}
