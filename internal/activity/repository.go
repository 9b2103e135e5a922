// Package activity appends to and reads the project activity feed.
package activity

import (
	"context"
	"strings"
	"time"

	"github.com/nhle/teamtrack/internal/apperr"
	"github.com/nhle/teamtrack/internal/model"
	"github.com/nhle/teamtrack/internal/store"
)

// DefaultMax is the number of entries returned when no limit is given.
const DefaultMax = 3

// Store is the persistence the repository needs.
type Store interface {
	CreateActivity(ctx context.Context, a model.Activity) (model.Activity, error)
	GetActivities(ctx context.Context, filter store.ActivityFilter) ([]model.Activity, error)
	GetTaskByID(ctx context.Context, id string) (*model.Task, error)
}

// Repository implements the activity operations.
type Repository struct {
	store Store
	now   func() time.Time
}

// NewRepository creates a repository backed by s.
func NewRepository(s Store) *Repository {
	return &Repository{store: s, now: time.Now}
}

// SetClock overrides the clock used for entries without a timestamp.
func (r *Repository) SetClock(now func() time.Time) {
	r.now = now
}

// Input is the caller-supplied part of an activity entry.
type Input struct {
	Type     model.ActivityType
	Content  string
	FileURL  string
	FileName string
	// Timestamp is the client's clock. Zero means now.
	Timestamp time.Time
	UserID    model.UserID
}

// AddActivity appends an entry to the project's feed, optionally scoped to
// one task (empty taskID for none), and returns its id. The task must
// belong to the project.
func (r *Repository) AddActivity(ctx context.Context, projectID, taskID string, in Input) (string, error) {
	const op = "adding activity"

	if strings.TrimSpace(projectID) == "" {
		return "", apperr.E(apperr.InvalidInput, op, "project id must not be empty")
	}
	if in.UserID == "" {
		return "", apperr.E(apperr.InvalidInput, op, "user id must not be empty")
	}
	if !in.Type.Valid() {
		return "", apperr.E(apperr.InvalidInput, op, "unknown activity type %q", in.Type)
	}
	if in.Type == model.ActivityMessage && strings.TrimSpace(in.Content) == "" {
		return "", apperr.E(apperr.InvalidInput, op, "message content must not be empty")
	}
	if in.Type != model.ActivityMessage && strings.TrimSpace(in.FileURL) == "" {
		return "", apperr.E(apperr.InvalidInput, op, "%s activity needs a file url", in.Type)
	}

	taskID = strings.TrimSpace(taskID)
	if taskID != "" {
		t, err := r.store.GetTaskByID(ctx, taskID)
		if err != nil {
			return "", err
		}
		if t.ProjectID != projectID {
			return "", apperr.E(apperr.InvalidInput, op, "task %s is not in project %s", taskID, projectID)
		}
	}

	ts := in.Timestamp
	if ts.IsZero() {
		ts = r.now()
	}

	a := model.Activity{
		ProjectID: projectID,
		TaskID:    optional(taskID),
		Type:      in.Type,
		Content:   in.Content,
		FileURL:   optional(in.FileURL),
		FileName:  optional(in.FileName),
		Timestamp: ts.UTC(),
		UserID:    in.UserID,
	}

	created, err := r.store.CreateActivity(ctx, a)
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

// FetchRecentActivities returns at most max entries in scope, newest
// first by client timestamp. Entries with equal timestamps are ordered by
// the order they were recorded, newest first. max <= 0 means DefaultMax.
func (r *Repository) FetchRecentActivities(ctx context.Context, scope Scope, max int) ([]model.Activity, error) {
	const op = "fetching activities"
	if scope.id == "" {
		return nil, apperr.E(apperr.InvalidInput, op, "activity scope needs an id")
	}
	if max <= 0 {
		max = DefaultMax
	}

	filter := store.ActivityFilter{Limit: max}
	switch scope.kind {
	case scopeUser:
		id := model.UserID(scope.id)
		filter.UserID = &id
	case scopeProject:
		filter.ProjectID = &scope.id
	case scopeTask:
		filter.TaskID = &scope.id
	default:
		return nil, apperr.E(apperr.InvalidInput, op, "unknown activity scope")
	}

	activities, err := r.store.GetActivities(ctx, filter)
	if err != nil {
		return nil, err
	}
	if activities == nil {
		activities = []model.Activity{}
	}
	return activities, nil
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
