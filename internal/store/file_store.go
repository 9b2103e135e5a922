package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nhle/teamtrack/internal/model"
)

const fileColumns = "id, project_id, name, storage_key, content_type, size, uploaded_by, created_at"

// CreateFile records an uploaded file. Generates a UUID if ID is empty.
func (s *SQLiteStore) CreateFile(ctx context.Context, f model.File) (model.File, error) {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	f.CreatedAt = s.now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO files (id, project_id, name, storage_key, content_type, size, uploaded_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.ProjectID, f.Name, f.Key, f.ContentType, f.Size, f.UploadedBy, f.CreatedAt,
	)
	if err != nil {
		return model.File{}, storeErr("creating file", err)
	}
	return f, nil
}

// GetFileByID retrieves a single file record by ID.
func (s *SQLiteStore) GetFileByID(ctx context.Context, id string) (*model.File, error) {
	var f model.File
	err := s.db.GetContext(ctx, &f, "SELECT "+fileColumns+" FROM files WHERE id = ?", id)
	if err != nil {
		return nil, storeErr(fmt.Sprintf("getting file %s", id), err)
	}
	return &f, nil
}

// GetFilesByProject returns a project's files, oldest first.
func (s *SQLiteStore) GetFilesByProject(ctx context.Context, projectID string) ([]model.File, error) {
	files := []model.File{}
	err := s.db.SelectContext(ctx, &files,
		"SELECT "+fileColumns+" FROM files WHERE project_id = ? ORDER BY created_at, name", projectID)
	if err != nil {
		return nil, storeErr("querying files by project", err)
	}
	return files, nil
}

// DeleteFile removes a file record.
func (s *SQLiteStore) DeleteFile(ctx context.Context, id string) error {
	op := fmt.Sprintf("deleting file %s", id)
	result, err := s.db.ExecContext(ctx, "DELETE FROM files WHERE id = ?", id)
	if err != nil {
		return storeErr(op, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return notFound(op, "file", id)
	}
	return nil
}
