// Package identity holds the authenticated-user session and the local
// email+password auth provider that issues it.
package identity

import (
	"github.com/nhle/teamtrack/internal/apperr"
	"github.com/nhle/teamtrack/internal/model"
)

// Session identifies the user on whose behalf a repository call runs. It
// is created at login, passed explicitly to every call that needs it, and
// discarded at logout.
type Session struct {
	UserID      model.UserID `json:"uid"`
	Email       model.Email  `json:"email"`
	DisplayName string       `json:"display_name"`
}

// FromUser builds a session for a stored user.
func FromUser(u model.User) Session {
	return Session{UserID: u.ID, Email: u.Email, DisplayName: u.DisplayName}
}

// Authenticated reports whether the session belongs to a user.
func (s Session) Authenticated() bool {
	return s.UserID != ""
}

// Require returns AuthRequired for an anonymous session.
func (s Session) Require(op string) error {
	if !s.Authenticated() {
		return apperr.E(apperr.AuthRequired, op, "user not authenticated")
	}
	return nil
}

// Member returns the identity pair used for project membership checks.
func (s Session) Member() model.Member {
	return model.Member{UserID: s.UserID, Email: s.Email}
}
