package model

import "time"

// User is a registered account. Email is unique and never changes once
// set; PushToken is overwritten whenever the client registers for push.
type User struct {
	ID           UserID    `json:"id" db:"id"`
	Email        Email     `json:"email" db:"email"`
	DisplayName  string    `json:"display_name" db:"display_name"`
	PushToken    *string   `json:"push_token,omitempty" db:"push_token"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Member returns the identity pair used for membership checks.
func (u User) Member() Member {
	return Member{UserID: u.ID, Email: u.Email}
}
