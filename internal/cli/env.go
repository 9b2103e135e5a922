package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/nhle/teamtrack/internal/activity"
	"github.com/nhle/teamtrack/internal/apperr"
	"github.com/nhle/teamtrack/internal/credential"
	"github.com/nhle/teamtrack/internal/files"
	"github.com/nhle/teamtrack/internal/identity"
	"github.com/nhle/teamtrack/internal/model"
	"github.com/nhle/teamtrack/internal/notify"
	"github.com/nhle/teamtrack/internal/project"
	"github.com/nhle/teamtrack/internal/store"
	"github.com/nhle/teamtrack/internal/task"
)

// env is the wired application: store, repositories and the notification
// worker. Close stops the worker after delivering queued notifications.
type env struct {
	cfg        *model.AppConfig
	store      *store.SQLiteStore
	auth       *identity.Authenticator
	tokens     *identity.TokenIssuer
	projects   *project.Repository
	tasks      *task.Repository
	activities *activity.Repository
	files      *files.Service
	dispatcher *notify.Dispatcher
}

// open loads the configuration and wires the application.
func (a *app) open() (*env, error) {
	cfg, err := model.LoadConfig(a.configPath)
	if err != nil {
		return nil, err
	}
	if err := ensureSecret(a.configPath, cfg); err != nil {
		return nil, err
	}

	if cfg.Store.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}
	s, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	tokens, err := identity.NewTokenIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	if err != nil {
		s.Close()
		return nil, err
	}

	opts := notify.Options{
		MaxAttempts:  cfg.Push.MaxAttempts,
		RetryBackoff: cfg.Push.RetryBackoff,
		QueueSize:    cfg.Push.QueueSize,
		Logger:       log.New(os.Stderr, "", log.LstdFlags),
	}
	if inviter := notify.NewMailInviter(cfg.Mail); inviter != nil {
		opts.Inviter = inviter
	}
	dispatcher := notify.NewDispatcher(s, notify.NewExpoGateway(cfg.Push.Endpoint, cfg.Push.AccessToken), opts)
	dispatcher.Start()

	return &env{
		cfg:        cfg,
		store:      s,
		auth:       identity.NewAuthenticator(s),
		tokens:     tokens,
		projects:   project.NewRepository(s, dispatcher),
		tasks:      task.NewRepository(s),
		activities: activity.NewRepository(s),
		files:      files.NewService(s, cfg.Files.Dir, cfg.Files.BaseURL, cfg.Files.MaxSize),
		dispatcher: dispatcher,
	}, nil
}

// Close drains pending notifications and closes the store.
func (e *env) Close() error {
	e.dispatcher.Stop()
	return e.store.Close()
}

// ensureSecret generates and saves a token signing secret on first run.
func ensureSecret(path string, cfg *model.AppConfig) error {
	if cfg.Auth.Secret != "" {
		return nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("generating token secret: %w", err)
	}
	cfg.Auth.Secret = hex.EncodeToString(buf)

	if err := model.SaveConfig(path, cfg); err != nil {
		return fmt.Errorf("saving generated token secret: %w", err)
	}
	return nil
}

// openVault returns the session vault, opening the OS keyring on first use.
// The file backend keeps its data next to the config file.
func (a *app) openVault() (*credential.Vault, error) {
	if a.vault != nil {
		return a.vault, nil
	}
	v, err := credential.Open(filepath.Join(filepath.Dir(a.configPath), "credentials"))
	if err != nil {
		return nil, err
	}
	a.vault = v
	return v, nil
}

// session returns the logged-in user's session.
func (a *app) session(e *env) (identity.Session, error) {
	const op = "loading session"

	v, err := a.openVault()
	if err != nil {
		return identity.Session{}, err
	}
	token, err := v.Load()
	if errors.Is(err, credential.ErrNoSession) {
		return identity.Session{}, apperr.Wrap(apperr.AuthRequired, op, err)
	}
	if err != nil {
		return identity.Session{}, err
	}
	return e.tokens.Parse(token)
}

// saveSession issues a token for sess and stores it in the vault.
func (a *app) saveSession(e *env, sess identity.Session) error {
	token, err := e.tokens.Issue(sess)
	if err != nil {
		return err
	}
	v, err := a.openVault()
	if err != nil {
		return err
	}
	return v.Save(token)
}

// withSession opens the application, resolves the session and runs fn.
func (a *app) withSession(fn func(ctx context.Context, e *env, sess identity.Session) error) error {
	e, err := a.open()
	if err != nil {
		return err
	}
	defer e.Close()

	sess, err := a.session(e)
	if err != nil {
		return err
	}
	return fn(context.Background(), e, sess)
}

// memberProject loads a project the session's user may read.
func (e *env) memberProject(ctx context.Context, sess identity.Session, id string) (*model.Project, error) {
	p, err := e.projects.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsMember(sess.Member()) {
		return nil, apperr.E(apperr.Forbidden, "reading project", "not a member of project %s", id)
	}
	return p, nil
}

// memberTask loads a task owned by the session's user or belonging to one
// of their projects.
func (e *env) memberTask(ctx context.Context, sess identity.Session, id string) (*model.Task, error) {
	t, err := e.tasks.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Owner == sess.UserID {
		return t, nil
	}
	if _, err := e.memberProject(ctx, sess, t.ProjectID); err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, apperr.E(apperr.Forbidden, "reading task", "not a member of task %s", id)
		}
		return nil, err
	}
	return t, nil
}
