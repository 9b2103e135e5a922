package project_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nhle/teamtrack/internal/apperr"
	"github.com/nhle/teamtrack/internal/identity"
	"github.com/nhle/teamtrack/internal/model"
	"github.com/nhle/teamtrack/internal/project"
	"github.com/nhle/teamtrack/tests/testutil"
)

type shareCall struct {
	emails      []model.Email
	projectName string
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []shareCall
}

func (n *recordingNotifier) NotifyShare(_ context.Context, emails []model.Email, projectName string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, shareCall{emails: emails, projectName: projectName})
}

var (
	alice = identity.Session{UserID: "u1", Email: "alice@x.com", DisplayName: "Alice"}
	bob   = identity.Session{UserID: "u2", Email: "bob@x.com", DisplayName: "Bob"}
	carol = identity.Session{UserID: "u3", Email: "carol@x.com", DisplayName: "Carol"}
)

func TestSharedProjectVisibility(t *testing.T) {
	s := testutil.NewTestStore(t)
	notifier := &recordingNotifier{}
	repo := project.NewRepository(s, notifier)
	ctx := context.Background()

	before := time.Now().Add(-time.Second)
	id, err := repo.CreateProject(ctx, alice, project.CreateInput{
		Name:       "Launch",
		SharedWith: []string{"bob@x.com"},
		CreatedBy:  "u1",
	})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	got, err := repo.FetchProjectsForUser(ctx, "u2", "bob@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "Launch" || got[0].ID != id {
		t.Fatalf("bob sees %+v, want the Launch project", got)
	}
	if got[0].CreatedAt.Before(before) {
		t.Errorf("CreatedAt %v is before the call", got[0].CreatedAt)
	}

	got, err = repo.FetchProjectsForUser(ctx, "u1", "alice@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != id {
		t.Fatalf("alice sees %+v, want the Launch project", got)
	}

	got, err = repo.FetchProjectsForUser(ctx, "u3", "carol@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("carol sees %+v, want an empty slice", got)
	}

	if len(notifier.calls) != 1 {
		t.Fatalf("notifier called %d times, want 1", len(notifier.calls))
	}
	call := notifier.calls[0]
	if call.projectName != "Launch" || len(call.emails) != 1 || call.emails[0] != "bob@x.com" {
		t.Errorf("notification = %+v", call)
	}
}

func TestCreateProjectNormalisesShares(t *testing.T) {
	s := testutil.NewTestStore(t)
	notifier := &recordingNotifier{}
	repo := project.NewRepository(s, notifier)
	ctx := context.Background()

	id, err := repo.CreateProject(ctx, alice, project.CreateInput{
		Name:       "  Launch  ",
		SharedWith: []string{"Bob@X.com, alice@x.com", "bob@x.com carol@x.com"},
		DueDate:    "2024-03-01",
	})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	p, err := repo.GetProject(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Launch" {
		t.Errorf("Name = %q", p.Name)
	}
	want := []model.Email{"bob@x.com", "carol@x.com"}
	if len(p.SharedWith) != len(want) || p.SharedWith[0] != want[0] || p.SharedWith[1] != want[1] {
		t.Errorf("SharedWith = %v, want %v", p.SharedWith, want)
	}
	if !p.DueDate.Equal(model.Date(2024, time.March, 1)) {
		t.Errorf("DueDate = %v", p.DueDate)
	}
	if p.CreatedBy != "u1" {
		t.Errorf("CreatedBy = %q", p.CreatedBy)
	}
}

func TestCreateProjectDefaultsDueDateToNow(t *testing.T) {
	s := testutil.NewTestStore(t)
	repo := project.NewRepository(s, nil)
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	repo.SetClock(testutil.FixedClock(now))

	id, err := repo.CreateProject(context.Background(), alice, project.CreateInput{Name: "Launch"})
	if err != nil {
		t.Fatal(err)
	}
	p, err := repo.GetProject(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if !p.DueDate.Equal(now) {
		t.Errorf("DueDate = %v, want %v", p.DueDate, now)
	}
}

func TestCreateProjectValidation(t *testing.T) {
	s := testutil.NewTestStore(t)
	notifier := &recordingNotifier{}
	repo := project.NewRepository(s, notifier)
	ctx := context.Background()

	tests := []struct {
		name string
		sess identity.Session
		in   project.CreateInput
		kind apperr.Kind
	}{
		{"anonymous", identity.Session{}, project.CreateInput{Name: "Launch"}, apperr.AuthRequired},
		{"blank name", alice, project.CreateInput{Name: "   "}, apperr.InvalidInput},
		{"bad date", alice, project.CreateInput{Name: "Launch", DueDate: "2024-13-45"}, apperr.InvalidInput},
		{"bad email", alice, project.CreateInput{Name: "Launch", SharedWith: []string{"not-an-email"}}, apperr.InvalidInput},
		{"other creator", alice, project.CreateInput{Name: "Launch", CreatedBy: "u2"}, apperr.Forbidden},
		{"attachment without url", alice, project.CreateInput{
			Name: "Launch", Attachments: []model.Attachment{{Name: "brief.pdf"}},
		}, apperr.InvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.CreateProject(ctx, tt.sess, tt.in)
			if !apperr.Is(err, tt.kind) {
				t.Fatalf("expected %s, got %v", tt.kind, err)
			}
		})
	}

	projects, err := repo.FetchProjectsForUser(ctx, "u1", "alice@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 0 {
		t.Errorf("rejected input persisted %d projects", len(projects))
	}
	if len(notifier.calls) != 0 {
		t.Errorf("rejected input sent %d notifications", len(notifier.calls))
	}
}

func TestFetchProjectsMembershipUnion(t *testing.T) {
	s := testutil.NewTestStore(t)
	repo := project.NewRepository(s, nil)
	ctx := context.Background()

	own, err := repo.CreateProject(ctx, alice, project.CreateInput{Name: "Own"})
	if err != nil {
		t.Fatal(err)
	}
	shared, err := repo.CreateProject(ctx, bob, project.CreateInput{Name: "Shared", SharedWith: []string{"alice@x.com"}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.CreateProject(ctx, carol, project.CreateInput{Name: "Private"}); err != nil {
		t.Fatal(err)
	}

	got, err := repo.FetchProjectsForSession(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}
	ids := map[string]int{}
	for _, p := range got {
		ids[p.ID]++
	}
	if len(got) != 2 || ids[own] != 1 || ids[shared] != 1 {
		t.Fatalf("alice sees %+v, want exactly Own and Shared", got)
	}

	got, err = repo.FetchProjectsForUser(ctx, "", "  Alice@X.com ")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != shared {
		t.Errorf("mixed-case email sees %+v, want only Shared", got)
	}

	// A user id that never created anything and an email nobody shared.
	got, err = repo.FetchProjectsForUser(ctx, "ghost", "ghost@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("ghost sees %d projects", len(got))
	}

	// Sharing is matched by email only; a raw user id never matches.
	got, err = repo.FetchProjectsForUser(ctx, "", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("user id used as email matched %d projects", len(got))
	}

	if _, err := repo.FetchProjectsForSession(ctx, identity.Session{}); !apperr.Is(err, apperr.AuthRequired) {
		t.Errorf("anonymous fetch: expected AuthRequired, got %v", err)
	}
}

func TestFetchProjectUserIDsAndMembers(t *testing.T) {
	s := testutil.NewTestStore(t)
	testutil.MustCreateUser(t, s, "u1", "alice@x.com", "Alice")
	testutil.MustCreateUser(t, s, "u2", "bob@x.com", "Bob")
	testutil.MustCreateUser(t, s, "u3", "carol@x.com", "Carol")
	repo := project.NewRepository(s, nil)
	ctx := context.Background()

	id, err := repo.CreateProject(ctx, alice, project.CreateInput{
		Name:       "Launch",
		SharedWith: []string{"carol@x.com", "pending@x.com", "bob@x.com"},
	})
	if err != nil {
		t.Fatal(err)
	}

	ids, err := repo.FetchProjectUserIDs(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	want := []model.UserID{"u1", "u3", "u2"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], want[i])
		}
	}

	members, err := repo.FetchProjectMembers(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 3 || members[0].DisplayName != "Alice" || members[1].DisplayName != "Carol" {
		t.Errorf("members = %+v", members)
	}

	if _, err := repo.FetchProjectUserIDs(ctx, "missing"); !apperr.Is(err, apperr.NotFound) {
		t.Errorf("missing project: expected NotFound, got %v", err)
	}
}

func TestShareAndUnshareProject(t *testing.T) {
	s := testutil.NewTestStore(t)
	testutil.MustCreateUser(t, s, "u1", "alice@x.com", "Alice")
	notifier := &recordingNotifier{}
	repo := project.NewRepository(s, notifier)
	ctx := context.Background()

	id, err := repo.CreateProject(ctx, alice, project.CreateInput{Name: "Launch", SharedWith: []string{"bob@x.com"}})
	if err != nil {
		t.Fatal(err)
	}

	// Bob is a member and may invite; alice (the creator) and bob are
	// filtered or already present.
	added, err := repo.ShareProject(ctx, bob, id, "carol@x.com, bob@x.com", "alice@x.com")
	if err != nil {
		t.Fatalf("ShareProject: %v", err)
	}
	if len(added) != 1 || added[0] != "carol@x.com" {
		t.Fatalf("added = %v, want [carol@x.com]", added)
	}
	last := notifier.calls[len(notifier.calls)-1]
	if len(last.emails) != 1 || last.emails[0] != "carol@x.com" {
		t.Errorf("notified %v, want only carol", last.emails)
	}

	outsider := identity.Session{UserID: "u9", Email: "mallory@x.com"}
	if _, err := repo.ShareProject(ctx, outsider, id, "eve@x.com"); !apperr.Is(err, apperr.Forbidden) {
		t.Errorf("outsider share: expected Forbidden, got %v", err)
	}

	if err := repo.UnshareProject(ctx, bob, id, "carol@x.com"); !apperr.Is(err, apperr.Forbidden) {
		t.Errorf("non-creator unshare: expected Forbidden, got %v", err)
	}
	if err := repo.UnshareProject(ctx, alice, id, "Carol@x.com"); err != nil {
		t.Fatalf("UnshareProject: %v", err)
	}
	if err := repo.UnshareProject(ctx, alice, id, "carol@x.com"); !apperr.Is(err, apperr.NotFound) {
		t.Errorf("repeat unshare: expected NotFound, got %v", err)
	}

	got, err := repo.FetchProjectsForSession(ctx, carol)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("carol still sees %d projects after unshare", len(got))
	}
}
