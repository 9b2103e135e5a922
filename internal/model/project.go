package model

import "time"

// Project is a shared container for tasks, created by exactly one user and
// visible to every email in SharedWith.
type Project struct {
	ID          string       `json:"id" db:"id"`
	Name        string       `json:"name" db:"name"`
	Description string       `json:"description" db:"description"`
	CreatedBy   UserID       `json:"created_by" db:"created_by"`
	SharedWith  []Email      `json:"shared_with" db:"-"`
	DueDate     time.Time    `json:"due_date" db:"due_date"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	Attachments []Attachment `json:"attachments" db:"-"`
}

// IsMember reports whether m may see the project: either m created it or
// m's email has been shared.
func (p Project) IsMember(m Member) bool {
	if m.UserID != "" && p.CreatedBy == m.UserID {
		return true
	}
	return p.IsSharedWith(m.Email)
}

// IsSharedWith reports whether email appears in SharedWith.
func (p Project) IsSharedWith(email Email) bool {
	if email == "" {
		return false
	}
	for _, e := range p.SharedWith {
		if e == email {
			return true
		}
	}
	return false
}
