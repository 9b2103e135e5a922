package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nhle/teamtrack/internal/model"
)

const activityColumns = `seq, id, project_id, task_id, type, content,
	file_url, file_name, timestamp, user_id, recorded_at`

// CreateActivity appends an activity. The ID, sequence number and
// RecordedAt are assigned here; Timestamp is stored as given.
func (s *SQLiteStore) CreateActivity(ctx context.Context, a model.Activity) (model.Activity, error) {
	const op = "creating activity"
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.RecordedAt = s.now()

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO activities (
			id, project_id, task_id, type, content,
			file_url, file_name, timestamp, user_id, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ProjectID, a.TaskID, a.Type, a.Content,
		a.FileURL, a.FileName, a.Timestamp.UTC(), a.UserID, a.RecordedAt,
	)
	if err != nil {
		return model.Activity{}, storeErr(op, err)
	}
	if a.Seq, err = result.LastInsertId(); err != nil {
		return model.Activity{}, storeErr(op, err)
	}
	return a, nil
}

// GetActivities retrieves activities matching the filter, newest first by
// client timestamp with the server sequence breaking ties.
func (s *SQLiteStore) GetActivities(ctx context.Context, filter ActivityFilter) ([]model.Activity, error) {
	var conditions []string
	var args []interface{}

	if filter.UserID != nil {
		conditions = append(conditions, "user_id = ?")
		args = append(args, *filter.UserID)
	}
	if filter.ProjectID != nil {
		conditions = append(conditions, "project_id = ?")
		args = append(args, *filter.ProjectID)
	}
	if filter.TaskID != nil {
		conditions = append(conditions, "task_id = ?")
		args = append(args, *filter.TaskID)
	}

	query := "SELECT " + activityColumns + " FROM activities"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY timestamp DESC, seq DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	activities := []model.Activity{}
	if err := s.db.SelectContext(ctx, &activities, query, args...); err != nil {
		return nil, storeErr("querying activities", err)
	}
	return activities, nil
}
