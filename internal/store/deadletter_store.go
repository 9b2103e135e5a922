package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/nhle/teamtrack/internal/model"
)

// deadLetterRow is one dead_letters row; tokens are stored as JSON.
type deadLetterRow struct {
	model.DeadLetter
	TokensJSON string `db:"tokens"`
}

// CreateDeadLetter records a notification that could not be delivered.
func (s *SQLiteStore) CreateDeadLetter(ctx context.Context, d model.DeadLetter) error {
	const op = "creating dead letter"
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.now()
	}

	tokens, err := json.Marshal(d.Tokens)
	if err != nil {
		return storeErr(op, fmt.Errorf("marshaling tokens: %w", err))
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO dead_letters (id, project_name, tokens, attempts, last_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.ProjectName, string(tokens), d.Attempts, d.LastError, d.CreatedAt.UTC(),
	)
	return storeErr(op, err)
}

// GetDeadLetters retrieves all dead letters, newest first.
func (s *SQLiteStore) GetDeadLetters(ctx context.Context) ([]model.DeadLetter, error) {
	const op = "querying dead letters"

	var rows []deadLetterRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, project_name, tokens, attempts, last_error, created_at
		FROM dead_letters ORDER BY created_at DESC`)
	if err != nil {
		return nil, storeErr(op, err)
	}

	letters := make([]model.DeadLetter, 0, len(rows))
	for _, r := range rows {
		d := r.DeadLetter
		if err := json.Unmarshal([]byte(r.TokensJSON), &d.Tokens); err != nil {
			return nil, storeErr(op, fmt.Errorf("unmarshaling tokens for %s: %w", d.ID, err))
		}
		letters = append(letters, d)
	}
	return letters, nil
}
