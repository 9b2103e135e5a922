package notify_test

import (
	"bytes"
	"context"
	"errors"
	"log"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nhle/teamtrack/internal/apperr"
	"github.com/nhle/teamtrack/internal/model"
	"github.com/nhle/teamtrack/internal/notify"
	"github.com/nhle/teamtrack/tests/testutil"
)

// fakeGateway records deliveries and fails the first failN calls.
type fakeGateway struct {
	mu    sync.Mutex
	failN int
	calls int
	sent  []model.ShareNotification
}

func (g *fakeGateway) Send(_ context.Context, n model.ShareNotification) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.calls <= g.failN {
		return errors.New("gateway unavailable")
	}
	g.sent = append(g.sent, n)
	return nil
}

type fakeInviter struct {
	mu      sync.Mutex
	invited []model.Email
}

func (f *fakeInviter) Invite(_ context.Context, to model.Email, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invited = append(f.invited, to)
	return nil
}

func TestNotifyShareDeliversToRegisteredTokens(t *testing.T) {
	s := testutil.NewTestStore(t)
	testutil.MustCreateUser(t, s, "u1", "alice@x.com", "Alice")
	testutil.MustCreateUser(t, s, "u2", "bob@x.com", "Bob")
	testutil.MustCreateUser(t, s, "u3", "carol@x.com", "Carol")
	testutil.MustSetPushToken(t, s, "u2", "ExponentPushToken[bob]")
	testutil.MustSetPushToken(t, s, "u3", "ExponentPushToken[carol]")

	gw := &fakeGateway{}
	inviter := &fakeInviter{}
	d := notify.NewDispatcher(s, gw, notify.Options{MaxAttempts: 3, RetryBackoff: time.Millisecond, Inviter: inviter})
	d.Start()

	// alice has no token, dave has no account.
	d.NotifyShare(context.Background(), []model.Email{"alice@x.com", "bob@x.com", "carol@x.com", "dave@x.com"}, "Launch")
	d.Stop()

	if len(gw.sent) != 1 {
		t.Fatalf("gateway received %d notifications, want 1", len(gw.sent))
	}
	n := gw.sent[0]
	tokens := append([]string(nil), n.Tokens...)
	sort.Strings(tokens)
	if n.ProjectName != "Launch" || len(tokens) != 2 ||
		tokens[0] != "ExponentPushToken[bob]" || tokens[1] != "ExponentPushToken[carol]" {
		t.Errorf("notification = %+v", n)
	}

	if len(inviter.invited) != 1 || inviter.invited[0] != "dave@x.com" {
		t.Errorf("invited = %v, want [dave@x.com]", inviter.invited)
	}
}

func TestNotifyShareWithoutTokensSendsNothing(t *testing.T) {
	s := testutil.NewTestStore(t)
	testutil.MustCreateUser(t, s, "u1", "alice@x.com", "Alice")

	gw := &fakeGateway{}
	d := notify.NewDispatcher(s, gw, notify.Options{})
	d.Start()
	d.NotifyShare(context.Background(), []model.Email{"alice@x.com", "nobody@x.com"}, "Launch")
	d.NotifyShare(context.Background(), nil, "Empty")
	d.Stop()

	if gw.calls != 0 {
		t.Fatalf("gateway called %d times, want 0", gw.calls)
	}
}

func TestNotifyShareRetriesThenSucceeds(t *testing.T) {
	s := testutil.NewTestStore(t)
	testutil.MustCreateUser(t, s, "u2", "bob@x.com", "Bob")
	testutil.MustSetPushToken(t, s, "u2", "tok-bob")

	gw := &fakeGateway{failN: 2}
	d := notify.NewDispatcher(s, gw, notify.Options{MaxAttempts: 3, RetryBackoff: time.Millisecond})
	d.Start()
	d.NotifyShare(context.Background(), []model.Email{"bob@x.com"}, "Launch")
	d.Stop()

	if gw.calls != 3 || len(gw.sent) != 1 {
		t.Fatalf("calls = %d, sent = %d; want 3 and 1", gw.calls, len(gw.sent))
	}
	letters, err := d.DeadLetters(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(letters) != 0 {
		t.Errorf("unexpected dead letters: %+v", letters)
	}
}

func TestNotifyShareDeadLettersAfterMaxAttempts(t *testing.T) {
	s := testutil.NewTestStore(t)
	testutil.MustCreateUser(t, s, "u2", "bob@x.com", "Bob")
	testutil.MustSetPushToken(t, s, "u2", "tok-bob")

	var logs bytes.Buffer
	gw := &fakeGateway{failN: 100}
	d := notify.NewDispatcher(s, gw, notify.Options{
		MaxAttempts:  2,
		RetryBackoff: time.Millisecond,
		Logger:       log.New(&logs, "", 0),
	})
	d.Start()
	d.NotifyShare(context.Background(), []model.Email{"bob@x.com"}, "Launch")
	d.Stop()

	if gw.calls != 2 {
		t.Errorf("gateway called %d times, want 2", gw.calls)
	}
	letters, err := d.DeadLetters(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(letters) != 1 {
		t.Fatalf("dead letters = %+v, want 1", letters)
	}
	dl := letters[0]
	if dl.ProjectName != "Launch" || dl.Attempts != 2 || dl.LastError != "gateway unavailable" ||
		len(dl.Tokens) != 1 || dl.Tokens[0] != "tok-bob" {
		t.Errorf("dead letter = %+v", dl)
	}
	if !strings.Contains(logs.String(), "giving up") {
		t.Errorf("expected a give-up log line, got %q", logs.String())
	}
}

func TestNotifyShareAfterStopIsDropped(t *testing.T) {
	s := testutil.NewTestStore(t)
	testutil.MustCreateUser(t, s, "u2", "bob@x.com", "Bob")
	testutil.MustSetPushToken(t, s, "u2", "tok-bob")

	var logs bytes.Buffer
	gw := &fakeGateway{}
	d := notify.NewDispatcher(s, gw, notify.Options{Logger: log.New(&logs, "", 0)})
	d.Start()
	d.Stop()
	d.Stop()

	d.NotifyShare(context.Background(), []model.Email{"bob@x.com"}, "Launch")
	if gw.calls != 0 {
		t.Errorf("gateway called after Stop")
	}
	if !strings.Contains(logs.String(), "dropped") {
		t.Errorf("expected a drop log line, got %q", logs.String())
	}
}

func TestRegisterToken(t *testing.T) {
	s := testutil.NewTestStore(t)
	testutil.MustCreateUser(t, s, "u1", "alice@x.com", "Alice")
	d := notify.NewDispatcher(s, &fakeGateway{}, notify.Options{})
	ctx := context.Background()

	if err := d.RegisterToken(ctx, "u1", "tok-1"); err != nil {
		t.Fatal(err)
	}
	if err := d.RegisterToken(ctx, "u1", "tok-2"); err != nil {
		t.Fatal(err)
	}
	u, err := s.GetUserByID(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if u.PushToken == nil || *u.PushToken != "tok-2" {
		t.Errorf("PushToken = %v, want tok-2", u.PushToken)
	}

	if err := d.RegisterToken(ctx, "u1", "  "); !apperr.Is(err, apperr.InvalidInput) {
		t.Errorf("blank token: expected InvalidInput, got %v", err)
	}
	if err := d.RegisterToken(ctx, "ghost", "tok"); !apperr.Is(err, apperr.NotFound) {
		t.Errorf("unknown user: expected NotFound, got %v", err)
	}
}
