package store

import (
	"context"
	"time"

	"github.com/nhle/teamtrack/internal/model"
)

// ActivityFilter selects activity entries. Exactly one of UserID,
// ProjectID or TaskID is expected to be set; Limit <= 0 means no limit.
type ActivityFilter struct {
	UserID    *model.UserID
	ProjectID *string
	TaskID    *string
	Limit     int
}

// Store defines the persistence boundary for users, projects, tasks,
// activities, uploaded files and undeliverable notifications.
type Store interface {
	// === Users ===

	CreateUser(ctx context.Context, user model.User) (model.User, error)
	GetUserByID(ctx context.Context, id model.UserID) (*model.User, error)
	GetUserByEmail(ctx context.Context, email model.Email) (*model.User, error)
	GetUsersByEmails(ctx context.Context, emails []model.Email) ([]model.User, error)
	SetPushToken(ctx context.Context, id model.UserID, token string) error

	// === Projects ===

	CreateProject(ctx context.Context, project model.Project) (model.Project, error)
	GetProjectByID(ctx context.Context, id string) (*model.Project, error)
	GetProjectsCreatedBy(ctx context.Context, userID model.UserID) ([]model.Project, error)
	GetProjectsSharedWith(ctx context.Context, email model.Email) ([]model.Project, error)
	AddProjectShares(ctx context.Context, projectID string, emails []model.Email) ([]model.Email, error)
	RemoveProjectShare(ctx context.Context, projectID string, email model.Email) error

	// === Tasks ===

	CreateTask(ctx context.Context, task model.Task) (model.Task, error)
	GetTaskByID(ctx context.Context, id string) (*model.Task, error)
	GetTasksByProject(ctx context.Context, projectID string) ([]model.Task, error)
	GetTasksByOwner(ctx context.Context, owner model.UserID) ([]model.Task, error)
	CompleteSubtask(ctx context.Context, taskID, subtaskID string, at time.Time) error
	AddTaskAttachment(ctx context.Context, taskID, subtaskID string, a model.Attachment) error
	AddTaskMessage(ctx context.Context, taskID, subtaskID string, m model.Message) error

	// === Activities ===

	CreateActivity(ctx context.Context, a model.Activity) (model.Activity, error)
	GetActivities(ctx context.Context, filter ActivityFilter) ([]model.Activity, error)

	// === Files ===

	CreateFile(ctx context.Context, f model.File) (model.File, error)
	GetFileByID(ctx context.Context, id string) (*model.File, error)
	GetFilesByProject(ctx context.Context, projectID string) ([]model.File, error)
	DeleteFile(ctx context.Context, id string) error

	// === Dead letters ===

	CreateDeadLetter(ctx context.Context, d model.DeadLetter) error
	GetDeadLetters(ctx context.Context) ([]model.DeadLetter, error)
}

var _ Store = (*SQLiteStore)(nil)
