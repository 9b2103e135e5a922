package model

import (
	"fmt"
	"time"
)

// Priority is the coarse importance of a subtask.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Attachment references an uploaded file. It belongs to a project, a task
// or exactly one subtask.
type Attachment struct {
	Name string `json:"name" db:"name"`
	URL  string `json:"url" db:"url"`
	Type string `json:"type" db:"type"`
}

// Message is a timestamped text entry on a task or one subtask.
type Message struct {
	Text      string    `json:"text" db:"text"`
	UserID    UserID    `json:"user_id" db:"user_id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}

// Task is a unit of work inside a project, owned by one user.
type Task struct {
	ID          string       `json:"id"`
	ProjectID   string       `json:"project_id"`
	Name        string       `json:"name"`
	Owner       UserID       `json:"owner"`
	DueDate     *time.Time   `json:"due_date"`
	CreatedAt   *time.Time   `json:"created_at"`
	Subtasks    []Subtask    `json:"subtasks"`
	Attachments []Attachment `json:"attachments"`
	Messages    []Message    `json:"messages"`
}

// Subtask is embedded in a task; its ID is only unique within that task.
// CompletionDate is non-nil exactly when Completed is true.
type Subtask struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Owner          UserID       `json:"owner"`
	Priority       Priority     `json:"priority"`
	DueDate        *time.Time   `json:"due_date"`
	Completed      bool         `json:"completed"`
	CompletionDate *time.Time   `json:"completion_date"`
	Attachments    []Attachment `json:"attachments"`
	Messages       []Message    `json:"messages"`
}

// SubtaskID returns the task-local id of the n-th subtask (1-based).
func SubtaskID(n int) string {
	return fmt.Sprintf("subtask%d", n)
}

// Subtask returns the subtask with the given id, if present.
func (t Task) Subtask(id string) (Subtask, bool) {
	for _, s := range t.Subtasks {
		if s.ID == id {
			return s, true
		}
	}
	return Subtask{}, false
}
