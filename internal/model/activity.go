package model

import "time"

// ActivityType is the kind of event recorded in the activity feed.
type ActivityType string

const (
	ActivityMessage  ActivityType = "message"
	ActivityImage    ActivityType = "image"
	ActivityDocument ActivityType = "document"
	ActivityFile     ActivityType = "file"
)

// Valid reports whether t is a known activity type.
func (t ActivityType) Valid() bool {
	switch t {
	case ActivityMessage, ActivityImage, ActivityDocument, ActivityFile:
		return true
	}
	return false
}

// Activity is an append-only feed entry about a project and optionally one
// of its tasks. Timestamp is supplied by the client; Seq and RecordedAt are
// assigned by the store.
type Activity struct {
	ID         string       `json:"id" db:"id"`
	Seq        int64        `json:"seq" db:"seq"`
	ProjectID  string       `json:"project_id" db:"project_id"`
	TaskID     *string      `json:"task_id,omitempty" db:"task_id"`
	Type       ActivityType `json:"type" db:"type"`
	Content    string       `json:"content" db:"content"`
	FileURL    *string      `json:"file_url,omitempty" db:"file_url"`
	FileName   *string      `json:"file_name,omitempty" db:"file_name"`
	Timestamp  time.Time    `json:"timestamp" db:"timestamp"`
	UserID     UserID       `json:"user_id" db:"user_id"`
	RecordedAt time.Time    `json:"recorded_at" db:"recorded_at"`
}
