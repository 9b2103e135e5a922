// Package notify fans out share notifications to invitees' devices.
//
// NotifyShare only enqueues; a background worker resolves push tokens,
// delivers through a Gateway with bounded retries and records jobs that
// never got through as dead letters.
package notify

import (
	"context"
	"io"
	"log"
	"strings"
	"time"

	"github.com/nhle/teamtrack/internal/apperr"
	"github.com/nhle/teamtrack/internal/model"
)

// Store is the persistence the dispatcher needs.
type Store interface {
	GetUsersByEmails(ctx context.Context, emails []model.Email) ([]model.User, error)
	SetPushToken(ctx context.Context, id model.UserID, token string) error
	CreateDeadLetter(ctx context.Context, d model.DeadLetter) error
	GetDeadLetters(ctx context.Context) ([]model.DeadLetter, error)
}

// Gateway delivers one notification to a set of device tokens.
type Gateway interface {
	Send(ctx context.Context, n model.ShareNotification) error
}

// Inviter reaches invitees who have no account yet.
type Inviter interface {
	Invite(ctx context.Context, to model.Email, projectName string) error
}

// Options tune the delivery worker.
type Options struct {
	MaxAttempts  int
	RetryBackoff time.Duration
	QueueSize    int
	// Inviter is optional.
	Inviter Inviter
	// Logger defaults to a discarding logger.
	Logger *log.Logger
}

// Dispatcher registers device tokens and delivers share notifications.
type Dispatcher struct {
	store   Store
	gateway Gateway
	inviter Inviter
	logger  *log.Logger

	*worker
}

// NewDispatcher creates a dispatcher. Call Start before NotifyShare jobs
// can be delivered and Stop to drain them.
func NewDispatcher(s Store, gw Gateway, opts Options) *Dispatcher {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = time.Second
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 64
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}

	d := &Dispatcher{
		store:   s,
		gateway: gw,
		inviter: opts.Inviter,
		logger:  opts.Logger,
	}
	d.worker = newWorker(opts.QueueSize, opts.MaxAttempts, opts.RetryBackoff, d.deliver)
	return d
}

// RegisterToken stores the user's current device token, replacing any
// previous one.
func (d *Dispatcher) RegisterToken(ctx context.Context, userID model.UserID, token string) error {
	const op = "registering push token"
	token = strings.TrimSpace(token)
	if userID == "" {
		return apperr.E(apperr.InvalidInput, op, "user id must not be empty")
	}
	if token == "" {
		return apperr.E(apperr.InvalidInput, op, "push token must not be empty")
	}
	return d.store.SetPushToken(ctx, userID, token)
}

// NotifyShare queues a notification for the given invitees. It never
// fails: a full or stopped queue is logged and the notification dropped.
func (d *Dispatcher) NotifyShare(_ context.Context, emails []model.Email, projectName string) {
	if len(emails) == 0 {
		return
	}
	j := job{emails: append([]model.Email(nil), emails...), projectName: projectName}
	if !d.enqueue(j) {
		d.logger.Printf("notify: dropped share notification for %q (%d invitees): queue unavailable",
			projectName, len(emails))
	}
}

// DeadLetters lists notifications that exhausted their attempts.
func (d *Dispatcher) DeadLetters(ctx context.Context) ([]model.DeadLetter, error) {
	return d.store.GetDeadLetters(ctx)
}

// deliver handles one job on the worker goroutine.
func (d *Dispatcher) deliver(ctx context.Context, j job) {
	users, err := d.store.GetUsersByEmails(ctx, j.emails)
	if err != nil {
		d.logger.Printf("notify: resolving tokens for %q: %v", j.projectName, err)
		return
	}

	registered := make(map[model.Email]bool, len(users))
	var tokens []string
	for _, u := range users {
		registered[u.Email] = true
		if u.PushToken != nil && *u.PushToken != "" {
			tokens = append(tokens, *u.PushToken)
		}
	}

	if d.inviter != nil {
		for _, e := range j.emails {
			if registered[e] {
				continue
			}
			if err := d.inviter.Invite(ctx, e, j.projectName); err != nil {
				d.logger.Printf("notify: inviting %s to %q: %v", e, j.projectName, err)
			}
		}
	}

	if len(tokens) == 0 {
		return
	}

	n := model.ShareNotification{Tokens: tokens, ProjectName: j.projectName}
	attempts, err := d.retry(ctx, func() error { return d.gateway.Send(ctx, n) })
	if err == nil {
		return
	}

	d.logger.Printf("notify: giving up on %q after %d attempts: %v", j.projectName, attempts, err)
	dl := model.DeadLetter{
		ProjectName: j.projectName,
		Tokens:      tokens,
		Attempts:    attempts,
		LastError:   err.Error(),
	}
	if err := d.store.CreateDeadLetter(ctx, dl); err != nil {
		d.logger.Printf("notify: recording dead letter for %q: %v", j.projectName, err)
	}
}
