package activity_test

import (
	"context"
	"testing"
	"time"

	"github.com/nhle/teamtrack/internal/activity"
	"github.com/nhle/teamtrack/internal/apperr"
	"github.com/nhle/teamtrack/internal/model"
	"github.com/nhle/teamtrack/internal/store"
	"github.com/nhle/teamtrack/tests/testutil"
)

func TestAddAndFetchActivity(t *testing.T) {
	s := testutil.NewTestStore(t)
	repo := activity.NewRepository(s)
	ctx := context.Background()

	ts := time.Date(2024, 4, 2, 15, 30, 0, 0, time.UTC)
	id, err := repo.AddActivity(ctx, "p1", "", activity.Input{
		Type:      model.ActivityMessage,
		Content:   "hi",
		UserID:    "u1",
		Timestamp: ts,
	})
	if err != nil {
		t.Fatalf("AddActivity: %v", err)
	}

	got, err := repo.FetchRecentActivities(ctx, activity.ProjectScope("p1"), 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d activities, want 1", len(got))
	}
	a := got[0]
	if a.ID != id || a.Content != "hi" || a.UserID != "u1" || a.TaskID != nil {
		t.Errorf("activity = %+v", a)
	}
	if !a.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", a.Timestamp, ts)
	}
	if a.Seq == 0 || a.RecordedAt.IsZero() {
		t.Errorf("server fields not assigned: seq=%d recorded_at=%v", a.Seq, a.RecordedAt)
	}
}

func TestFetchRecentActivitiesScopesAndOrder(t *testing.T) {
	s := testutil.NewTestStore(t)
	repo := activity.NewRepository(s)
	ctx := context.Background()

	mustCreateTask(t, s, "t1", "p1")

	base := time.Date(2024, 4, 2, 9, 0, 0, 0, time.UTC)
	add := func(projectID, taskID string, in activity.Input) {
		t.Helper()
		if _, err := repo.AddActivity(ctx, projectID, taskID, in); err != nil {
			t.Fatalf("AddActivity: %v", err)
		}
	}

	add("p1", "", activity.Input{Type: model.ActivityMessage, Content: "first", UserID: "u1", Timestamp: base})
	// Arrives later but carries an earlier client timestamp.
	add("p1", "", activity.Input{Type: model.ActivityMessage, Content: "late", UserID: "u2", Timestamp: base.Add(-time.Hour)})
	add("p1", "t1", activity.Input{
		Type: model.ActivityImage, Content: "screenshot", FileURL: "https://f/s.png", FileName: "s.png",
		UserID: "u1", Timestamp: base.Add(time.Hour),
	})
	add("p1", "t1", activity.Input{Type: model.ActivityMessage, Content: "tie", UserID: "u2", Timestamp: base.Add(time.Hour)})
	add("p2", "", activity.Input{Type: model.ActivityMessage, Content: "other", UserID: "u1", Timestamp: base})

	got, err := repo.FetchRecentActivities(ctx, activity.ProjectScope("p1"), 0)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"tie", "screenshot", "first"}
	if len(got) != len(want) {
		t.Fatalf("got %d activities, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Content != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i].Content, want[i])
		}
	}
	if got[1].FileName == nil || *got[1].FileName != "s.png" {
		t.Errorf("FileName = %v", got[1].FileName)
	}

	got, err = repo.FetchRecentActivities(ctx, activity.TaskScope("t1"), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("task t1 has %d activities, want 2", len(got))
	}

	got, err = repo.FetchRecentActivities(ctx, activity.UserScope("u2"), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Content != "tie" || got[1].Content != "late" {
		t.Errorf("user u2 feed = %+v", got)
	}

	got, err = repo.FetchRecentActivities(ctx, activity.ProjectScope("empty"), 3)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("empty project feed = %v, want an empty slice", got)
	}
}

func mustCreateTask(t *testing.T, s *store.SQLiteStore, id, projectID string) {
	t.Helper()
	if _, err := s.CreateTask(context.Background(), model.Task{
		ID: id, ProjectID: projectID, Name: "Design", Owner: "u1",
	}); err != nil {
		t.Fatalf("creating task %s: %v", id, err)
	}
}

func TestAddActivityTaskMustBelongToProject(t *testing.T) {
	s := testutil.NewTestStore(t)
	repo := activity.NewRepository(s)
	ctx := context.Background()
	mustCreateTask(t, s, "t1", "p1")

	in := activity.Input{Type: model.ActivityMessage, Content: "injected", UserID: "u2"}
	if _, err := repo.AddActivity(ctx, "p2", "t1", in); !apperr.Is(err, apperr.InvalidInput) {
		t.Fatalf("task from another project: expected InvalidInput, got %v", err)
	}
	if _, err := repo.AddActivity(ctx, "p1", "missing", in); !apperr.Is(err, apperr.NotFound) {
		t.Fatalf("missing task: expected NotFound, got %v", err)
	}

	got, err := repo.FetchRecentActivities(ctx, activity.TaskScope("t1"), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("task t1 feed = %+v, want empty", got)
	}
}

func TestAddActivityValidation(t *testing.T) {
	s := testutil.NewTestStore(t)
	repo := activity.NewRepository(s)

	tests := []struct {
		name      string
		projectID string
		in        activity.Input
	}{
		{"no project", "", activity.Input{Type: model.ActivityMessage, Content: "hi", UserID: "u1"}},
		{"no user", "p1", activity.Input{Type: model.ActivityMessage, Content: "hi"}},
		{"unknown type", "p1", activity.Input{Type: "video", Content: "hi", UserID: "u1"}},
		{"empty message", "p1", activity.Input{Type: model.ActivityMessage, UserID: "u1"}},
		{"file without url", "p1", activity.Input{Type: model.ActivityDocument, FileName: "a.pdf", UserID: "u1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.AddActivity(context.Background(), tt.projectID, "", tt.in)
			if !apperr.Is(err, apperr.InvalidInput) {
				t.Fatalf("expected InvalidInput, got %v", err)
			}
		})
	}

	if _, err := repo.FetchRecentActivities(context.Background(), activity.Scope{}, 3); !apperr.Is(err, apperr.InvalidInput) {
		t.Errorf("zero scope: expected InvalidInput, got %v", err)
	}
}

func TestAddActivityDefaultsTimestamp(t *testing.T) {
	s := testutil.NewTestStore(t)
	repo := activity.NewRepository(s)
	now := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	repo.SetClock(testutil.FixedClock(now))

	if _, err := repo.AddActivity(context.Background(), "p1", "", activity.Input{
		Type: model.ActivityMessage, Content: "hi", UserID: "u1",
	}); err != nil {
		t.Fatal(err)
	}
	got, err := repo.FetchRecentActivities(context.Background(), activity.ProjectScope("p1"), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || !got[0].Timestamp.Equal(now) {
		t.Fatalf("got %+v, want timestamp %v", got, now)
	}
}
