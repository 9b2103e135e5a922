package model

import "time"

// ShareNotification is the payload fanned out to invitees' devices when a
// project is shared with them.
type ShareNotification struct {
	Tokens      []string `json:"tokens"`
	ProjectName string   `json:"project_name"`
}

// DeadLetter records a share notification that exhausted its delivery
// attempts.
type DeadLetter struct {
	ID          string    `json:"id" db:"id"`
	ProjectName string    `json:"project_name" db:"project_name"`
	Tokens      []string  `json:"tokens" db:"-"`
	Attempts    int       `json:"attempts" db:"attempts"`
	LastError   string    `json:"last_error" db:"last_error"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
