package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/teamtrack/internal/apperr"
	"github.com/nhle/teamtrack/internal/model"
)

const userColumns = "id, email, display_name, push_token, password_hash, created_at"

// CreateUser inserts a new user. Generates a UUID if ID is empty.
// A second account for the same email is rejected as invalid input.
func (s *SQLiteStore) CreateUser(ctx context.Context, user model.User) (model.User, error) {
	const op = "creating user"
	if user.Email == "" {
		return model.User{}, apperr.E(apperr.InvalidInput, op, "email must not be empty")
	}
	if user.ID == "" {
		user.ID = model.UserID(uuid.New().String())
	}
	user.CreatedAt = s.now()

	err := s.inTx(ctx, op, func(tx *sqlx.Tx) error {
		var exists bool
		if err := tx.GetContext(ctx, &exists,
			"SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)", user.Email); err != nil {
			return storeErr(op, err)
		}
		if exists {
			return apperr.E(apperr.InvalidInput, op, "email %s already registered", user.Email)
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, email, display_name, push_token, password_hash, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			user.ID, user.Email, user.DisplayName, user.PushToken,
			user.PasswordHash, user.CreatedAt,
		)
		return storeErr(op, err)
	})
	if err != nil {
		return model.User{}, err
	}
	return user, nil
}

// GetUserByID retrieves a single user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id model.UserID) (*model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u,
		"SELECT "+userColumns+" FROM users WHERE id = ?", id)
	if err != nil {
		return nil, storeErr(fmt.Sprintf("getting user %s", id), err)
	}
	return &u, nil
}

// GetUserByEmail retrieves a single user by normalised email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email model.Email) (*model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u,
		"SELECT "+userColumns+" FROM users WHERE email = ?", email)
	if err != nil {
		return nil, storeErr(fmt.Sprintf("getting user %s", email), err)
	}
	return &u, nil
}

// GetUsersByEmails returns the registered users among emails. Unknown
// emails are skipped.
func (s *SQLiteStore) GetUsersByEmails(ctx context.Context, emails []model.Email) ([]model.User, error) {
	if len(emails) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(
		"SELECT "+userColumns+" FROM users WHERE email IN (?) ORDER BY email", emails)
	if err != nil {
		return nil, storeErr("building user lookup", err)
	}

	var users []model.User
	if err := s.db.SelectContext(ctx, &users, s.db.Rebind(query), args...); err != nil {
		return nil, storeErr("querying users by email", err)
	}
	return users, nil
}

// SetPushToken overwrites the user's push token.
func (s *SQLiteStore) SetPushToken(ctx context.Context, id model.UserID, token string) error {
	op := fmt.Sprintf("setting push token for %s", id)
	result, err := s.db.ExecContext(ctx,
		"UPDATE users SET push_token = ? WHERE id = ?", token, id)
	if err != nil {
		return storeErr(op, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return notFound(op, "user", string(id))
	}
	return nil
}
