package model

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

// UserID is the opaque identifier issued by the auth provider.
// Ownership (Project.CreatedBy, Task.Owner) is keyed by it.
type UserID string

// Email is a normalised (trimmed, lower-cased) address. Sharing is keyed
// by it because invitees may not have signed up yet.
type Email string

func (id UserID) String() string { return string(id) }
func (e Email) String() string   { return string(e) }

// Normalize trims and lower-cases e without validating it.
func (e Email) Normalize() Email {
	return Email(strings.ToLower(strings.TrimSpace(string(e))))
}

// emailListSeparator splits the free-form invitee lists typed into the
// share field ("a@x.com, b@x.com; c@x.com").
var emailListSeparator = regexp.MustCompile(`[,;\s]+`)

// ParseEmail validates and normalises a single address.
func ParseEmail(raw string) (Email, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("email must not be empty")
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return "", fmt.Errorf("invalid email %q", raw)
	}
	return Email(s).Normalize(), nil
}

// ParseEmailList accepts any mix of single addresses and separated lists,
// and returns the normalised addresses deduplicated in order of first
// occurrence. Blank entries are ignored.
func ParseEmailList(raw ...string) ([]Email, error) {
	seen := make(map[Email]bool)
	var result []Email
	for _, r := range raw {
		for _, part := range emailListSeparator.Split(r, -1) {
			if part == "" {
				continue
			}
			e, err := ParseEmail(part)
			if err != nil {
				return nil, err
			}
			if seen[e] {
				continue
			}
			seen[e] = true
			result = append(result, e)
		}
	}
	return result, nil
}

// Member is a resolved identity as seen by membership checks: the user id
// matches ownership, the email matches sharing.
type Member struct {
	UserID UserID
	Email  Email
}
