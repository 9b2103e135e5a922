package identity

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/nhle/teamtrack/internal/apperr"
	"github.com/nhle/teamtrack/internal/model"
)

// minPasswordLen matches the auth provider's minimum password length.
const minPasswordLen = 6

// UserStore is the subset of the store the authenticator needs.
type UserStore interface {
	CreateUser(ctx context.Context, user model.User) (model.User, error)
	GetUserByEmail(ctx context.Context, email model.Email) (*model.User, error)
}

// Authenticator is the email+password auth provider.
type Authenticator struct {
	users UserStore
	cost  int
}

// NewAuthenticator creates an authenticator using bcrypt's default cost.
func NewAuthenticator(users UserStore) *Authenticator {
	return &Authenticator{users: users, cost: bcrypt.DefaultCost}
}

// WithCost overrides the bcrypt cost; tests use bcrypt.MinCost.
func (a *Authenticator) WithCost(cost int) *Authenticator {
	a.cost = cost
	return a
}

// SignUp registers a new account. The display name is "First Last".
func (a *Authenticator) SignUp(
	ctx context.Context,
	email, password, firstName, lastName string,
) (Session, error) {
	const op = "signing up"

	addr, err := model.ParseEmail(email)
	if err != nil {
		return Session{}, apperr.Wrap(apperr.InvalidInput, op, err)
	}
	if len(password) < minPasswordLen {
		return Session{}, apperr.E(apperr.InvalidInput, op,
			"password must be at least %d characters", minPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return Session{}, fmt.Errorf("hashing password: %w", err)
	}

	user, err := a.users.CreateUser(ctx, model.User{
		Email:        addr,
		DisplayName:  strings.TrimSpace(strings.TrimSpace(firstName) + " " + strings.TrimSpace(lastName)),
		PasswordHash: string(hash),
	})
	if err != nil {
		return Session{}, err
	}
	return FromUser(user), nil
}

// SignIn checks credentials and returns the user's session. Unknown
// emails and wrong passwords are indistinguishable to the caller.
func (a *Authenticator) SignIn(ctx context.Context, email, password string) (Session, error) {
	const op = "signing in"

	addr, err := model.ParseEmail(email)
	if err != nil {
		return Session{}, apperr.Wrap(apperr.InvalidInput, op, err)
	}

	user, err := a.users.GetUserByEmail(ctx, addr)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return Session{}, apperr.E(apperr.AuthRequired, op, "invalid email or password")
		}
		return Session{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Session{}, apperr.E(apperr.AuthRequired, op, "invalid email or password")
	}
	return FromUser(*user), nil
}
