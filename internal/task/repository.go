// Package task creates tasks with their subtasks and applies the per-row
// mutations on them: completion, attachments and messages.
package task

import (
	"context"
	"strings"
	"time"

	"github.com/nhle/teamtrack/internal/apperr"
	"github.com/nhle/teamtrack/internal/model"
)

// Store is the persistence the repository needs.
type Store interface {
	CreateTask(ctx context.Context, task model.Task) (model.Task, error)
	GetTaskByID(ctx context.Context, id string) (*model.Task, error)
	GetTasksByProject(ctx context.Context, projectID string) ([]model.Task, error)
	GetTasksByOwner(ctx context.Context, owner model.UserID) ([]model.Task, error)
	CompleteSubtask(ctx context.Context, taskID, subtaskID string, at time.Time) error
	AddTaskAttachment(ctx context.Context, taskID, subtaskID string, a model.Attachment) error
	AddTaskMessage(ctx context.Context, taskID, subtaskID string, m model.Message) error
}

// Repository implements the task operations.
type Repository struct {
	store Store
	now   func() time.Time
}

// NewRepository creates a repository backed by s.
func NewRepository(s Store) *Repository {
	return &Repository{store: s, now: time.Now}
}

// SetClock overrides the clock used for completion dates and message
// timestamps.
func (r *Repository) SetClock(now func() time.Time) {
	r.now = now
}

// SubtaskInput describes a subtask created together with its task. Zero
// fields take the task's values; Priority defaults to Medium.
type SubtaskInput struct {
	Name     string
	Owner    model.UserID
	Priority model.Priority
	DueDate  string
}

// CreateInput describes a new task.
type CreateInput struct {
	ProjectID string
	Name      string
	// DueDate is a calendar date or RFC 3339 timestamp; empty means none.
	DueDate     string
	OwnerID     model.UserID
	Subtasks    []SubtaskInput
	Attachments []model.Attachment
	Messages    []model.Message
}

// Target addresses the task itself (empty SubtaskID) or exactly one of
// its subtasks.
type Target struct {
	TaskID    string
	SubtaskID string
}

func (t Target) String() string {
	if t.SubtaskID == "" {
		return t.TaskID
	}
	return t.TaskID + "/" + t.SubtaskID
}

// CreateTaskWithSubtasks persists a task and its subtasks and returns the
// task id. Subtasks are numbered subtask1, subtask2, ... in input order.
//
// The owner is not checked against the project's members.
func (r *Repository) CreateTaskWithSubtasks(ctx context.Context, in CreateInput) (string, error) {
	const op = "creating task"

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return "", apperr.E(apperr.InvalidInput, op, "task name must not be empty")
	}
	if strings.TrimSpace(in.ProjectID) == "" {
		return "", apperr.E(apperr.InvalidInput, op, "project id must not be empty")
	}
	if in.OwnerID == "" {
		return "", apperr.E(apperr.InvalidInput, op, "task owner must not be empty")
	}

	due, err := parseOptionalDate(op, in.DueDate)
	if err != nil {
		return "", err
	}

	task := model.Task{
		ProjectID: in.ProjectID,
		Name:      name,
		Owner:     in.OwnerID,
		DueDate:   due,
	}

	for i, st := range in.Subtasks {
		sub, err := r.buildSubtask(op, i+1, st, task)
		if err != nil {
			return "", err
		}
		task.Subtasks = append(task.Subtasks, sub)
	}

	for _, a := range in.Attachments {
		if err := validateAttachment(op, a); err != nil {
			return "", err
		}
		task.Attachments = append(task.Attachments, a)
	}
	for _, m := range in.Messages {
		m, err := r.prepareMessage(op, m)
		if err != nil {
			return "", err
		}
		task.Messages = append(task.Messages, m)
	}

	created, err := r.store.CreateTask(ctx, task)
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

func (r *Repository) buildSubtask(op string, n int, in SubtaskInput, parent model.Task) (model.Subtask, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Subtask{}, apperr.E(apperr.InvalidInput, op, "subtask %d has no name", n)
	}

	sub := model.Subtask{
		ID:       model.SubtaskID(n),
		Name:     name,
		Owner:    in.Owner,
		Priority: in.Priority,
		DueDate:  parent.DueDate,
	}
	if sub.Owner == "" {
		sub.Owner = parent.Owner
	}
	if sub.Priority == "" {
		sub.Priority = model.PriorityMedium
	}
	if !sub.Priority.Valid() {
		return model.Subtask{}, apperr.E(apperr.InvalidInput, op, "subtask %d has unknown priority %q", n, sub.Priority)
	}

	due, err := parseOptionalDate(op, in.DueDate)
	if err != nil {
		return model.Subtask{}, err
	}
	if due != nil {
		sub.DueDate = due
	}
	return sub, nil
}

// GetTask returns a single task with its subtasks.
func (r *Repository) GetTask(ctx context.Context, id string) (*model.Task, error) {
	return r.store.GetTaskByID(ctx, id)
}

// FetchTasksByProject returns the project's tasks. Unknown projects yield
// an empty list.
func (r *Repository) FetchTasksByProject(ctx context.Context, projectID string) ([]model.Task, error) {
	return r.store.GetTasksByProject(ctx, projectID)
}

// FetchTasksByOwner returns the tasks owned by ownerID.
func (r *Repository) FetchTasksByOwner(ctx context.Context, ownerID model.UserID) ([]model.Task, error) {
	return r.store.GetTasksByOwner(ctx, ownerID)
}

// MarkSubtaskComplete marks a subtask done. Repeated calls keep the first
// completion date and do not fail.
func (r *Repository) MarkSubtaskComplete(ctx context.Context, taskID, subtaskID string) error {
	const op = "completing subtask"
	if taskID == "" || subtaskID == "" {
		return apperr.E(apperr.InvalidInput, op, "task id and subtask id are required")
	}
	return r.store.CompleteSubtask(ctx, taskID, subtaskID, r.now().UTC())
}

// AddAttachment appends an attachment to the target.
func (r *Repository) AddAttachment(ctx context.Context, target Target, a model.Attachment) error {
	const op = "adding attachment"
	if target.TaskID == "" {
		return apperr.E(apperr.InvalidInput, op, "task id is required")
	}
	if err := validateAttachment(op, a); err != nil {
		return err
	}
	return r.store.AddTaskAttachment(ctx, target.TaskID, target.SubtaskID, a)
}

// AddMessage appends a message to the target. A zero timestamp is set to
// now.
func (r *Repository) AddMessage(ctx context.Context, target Target, m model.Message) error {
	const op = "adding message"
	if target.TaskID == "" {
		return apperr.E(apperr.InvalidInput, op, "task id is required")
	}
	m, err := r.prepareMessage(op, m)
	if err != nil {
		return err
	}
	return r.store.AddTaskMessage(ctx, target.TaskID, target.SubtaskID, m)
}

func (r *Repository) prepareMessage(op string, m model.Message) (model.Message, error) {
	m.Text = strings.TrimSpace(m.Text)
	if m.Text == "" {
		return m, apperr.E(apperr.InvalidInput, op, "message text must not be empty")
	}
	if m.UserID == "" {
		return m, apperr.E(apperr.InvalidInput, op, "message author must not be empty")
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = r.now()
	}
	m.Timestamp = m.Timestamp.UTC()
	return m, nil
}

func validateAttachment(op string, a model.Attachment) error {
	if strings.TrimSpace(a.Name) == "" || strings.TrimSpace(a.URL) == "" {
		return apperr.E(apperr.InvalidInput, op, "attachment needs a name and a url")
	}
	return nil
}

func parseOptionalDate(op, raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidInput, op, err)
	}
	return &d, nil
}
