// Package cli implements the teamtrack command line.
package cli

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nhle/teamtrack/internal/apperr"
	"github.com/nhle/teamtrack/internal/credential"
	"github.com/nhle/teamtrack/internal/model"
	"github.com/nhle/teamtrack/internal/theme"
)

// app carries the settings shared by every command.
type app struct {
	configPath string

	// vault is opened from the OS keyring on first use unless preset.
	vault *credential.Vault
}

// Execute runs the root command.
func Execute(version string) error {
	root := newRootCmd(&app{}, version)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, theme.ErrorStyle.Render("Error:"), err)
		return err
	}
	return nil
}

func newRootCmd(a *app, version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "teamtrack",
		Short: "teamtrack - shared projects, tasks and activity",
		Long: `teamtrack keeps projects shared by email, their tasks and subtasks,
and a project activity feed.

Run 'teamtrack serve' for the HTTP API or use the subcommands directly
against the local database.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", model.DefaultConfigPath(), "config file")

	root.AddCommand(serveCmd(a))
	root.AddCommand(signupCmd(a))
	root.AddCommand(loginCmd(a))
	root.AddCommand(logoutCmd(a))
	root.AddCommand(whoamiCmd(a))
	root.AddCommand(projectCmd(a))
	root.AddCommand(taskCmd(a))
	root.AddCommand(activityCmd(a))
	root.AddCommand(fileCmd(a))
	root.AddCommand(pushCmd(a))
	root.AddCommand(boardCmd(a))

	return root
}

// printf writes to the command's output stream.
func printf(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}

// usageError reports bad command line input.
func usageError(format string, args ...any) error {
	return apperr.E(apperr.InvalidInput, "parsing arguments", format, args...)
}

// contentType guesses a MIME type from a file name.
func contentType(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
