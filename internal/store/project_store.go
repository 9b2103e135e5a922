package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/teamtrack/internal/model"
)

const projectColumns = "p.id, p.name, p.description, p.created_by, p.due_date, p.created_at"

// CreateProject inserts a project together with its shares and attachments.
// Generates a UUID if ID is empty and stamps CreatedAt.
func (s *SQLiteStore) CreateProject(ctx context.Context, project model.Project) (model.Project, error) {
	const op = "creating project"
	if project.ID == "" {
		project.ID = uuid.New().String()
	}
	project.CreatedAt = s.now()

	err := s.inTx(ctx, op, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO projects (id, name, description, created_by, due_date, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			project.ID, project.Name, project.Description, project.CreatedBy,
			project.DueDate.UTC(), project.CreatedAt,
		)
		if err != nil {
			return storeErr(op, err)
		}

		if _, err := insertShares(ctx, tx, project.ID, project.SharedWith); err != nil {
			return storeErr(op, err)
		}

		for _, a := range project.Attachments {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO project_attachments (project_id, name, url, type)
				VALUES (?, ?, ?, ?)`,
				project.ID, a.Name, a.URL, a.Type,
			)
			if err != nil {
				return storeErr(op, fmt.Errorf("inserting attachment %q: %w", a.Name, err))
			}
		}
		return nil
	})
	if err != nil {
		return model.Project{}, err
	}
	return project, nil
}

// GetProjectByID retrieves a single project by ID, including its shares
// and attachments.
func (s *SQLiteStore) GetProjectByID(ctx context.Context, id string) (*model.Project, error) {
	op := fmt.Sprintf("getting project %s", id)

	var project model.Project
	err := s.db.GetContext(ctx, &project,
		"SELECT "+projectColumns+" FROM projects p WHERE p.id = ?", id)
	if err != nil {
		return nil, storeErr(op, err)
	}

	projects := []model.Project{project}
	if err := s.loadProjectChildren(ctx, projects); err != nil {
		return nil, storeErr(op, err)
	}
	return &projects[0], nil
}

// GetProjectsCreatedBy returns every project whose creator is userID.
func (s *SQLiteStore) GetProjectsCreatedBy(ctx context.Context, userID model.UserID) ([]model.Project, error) {
	var projects []model.Project
	err := s.db.SelectContext(ctx, &projects,
		"SELECT "+projectColumns+" FROM projects p WHERE p.created_by = ? ORDER BY p.created_at",
		userID)
	if err != nil {
		return nil, storeErr("querying projects by creator", err)
	}
	if err := s.loadProjectChildren(ctx, projects); err != nil {
		return nil, storeErr("querying projects by creator", err)
	}
	return projects, nil
}

// GetProjectsSharedWith returns every project whose shares contain email.
func (s *SQLiteStore) GetProjectsSharedWith(ctx context.Context, email model.Email) ([]model.Project, error) {
	var projects []model.Project
	err := s.db.SelectContext(ctx, &projects, `
		SELECT `+projectColumns+`
		FROM projects p
		JOIN project_shares ps ON ps.project_id = p.id
		WHERE ps.email = ?
		ORDER BY p.created_at`,
		email)
	if err != nil {
		return nil, storeErr("querying projects by share", err)
	}
	if err := s.loadProjectChildren(ctx, projects); err != nil {
		return nil, storeErr("querying projects by share", err)
	}
	return projects, nil
}

// AddProjectShares appends emails to the project's shares and returns the
// ones that were not already present.
func (s *SQLiteStore) AddProjectShares(
	ctx context.Context,
	projectID string,
	emails []model.Email,
) ([]model.Email, error) {
	op := fmt.Sprintf("sharing project %s", projectID)

	var added []model.Email
	err := s.inTx(ctx, op, func(tx *sqlx.Tx) error {
		var exists bool
		if err := tx.GetContext(ctx, &exists,
			"SELECT EXISTS(SELECT 1 FROM projects WHERE id = ?)", projectID); err != nil {
			return storeErr(op, err)
		}
		if !exists {
			return notFound(op, "project", projectID)
		}

		var err error
		added, err = insertShares(ctx, tx, projectID, emails)
		return storeErr(op, err)
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// RemoveProjectShare deletes a single share.
func (s *SQLiteStore) RemoveProjectShare(ctx context.Context, projectID string, email model.Email) error {
	op := fmt.Sprintf("unsharing project %s", projectID)
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM project_shares WHERE project_id = ? AND email = ?", projectID, email)
	if err != nil {
		return storeErr(op, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return notFound(op, "share", string(email))
	}
	return nil
}

// insertShares appends emails after the current last position, ignoring
// ones already shared, and returns the emails actually inserted.
func insertShares(
	ctx context.Context,
	tx *sqlx.Tx,
	projectID string,
	emails []model.Email,
) ([]model.Email, error) {
	if len(emails) == 0 {
		return nil, nil
	}

	var maxPos int
	if err := tx.GetContext(ctx, &maxPos,
		"SELECT COALESCE(MAX(position), 0) FROM project_shares WHERE project_id = ?",
		projectID); err != nil {
		return nil, fmt.Errorf("getting max share position: %w", err)
	}

	var added []model.Email
	for _, e := range emails {
		result, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO project_shares (project_id, email, position)
			VALUES (?, ?, ?)`,
			projectID, e, maxPos+1,
		)
		if err != nil {
			return nil, fmt.Errorf("inserting share %s: %w", e, err)
		}
		if rows, _ := result.RowsAffected(); rows > 0 {
			maxPos++
			added = append(added, e)
		}
	}
	return added, nil
}

// shareRow is one project_shares row.
type shareRow struct {
	ProjectID string      `db:"project_id"`
	Email     model.Email `db:"email"`
}

// projectAttachmentRow is one project_attachments row.
type projectAttachmentRow struct {
	ProjectID string `db:"project_id"`
	model.Attachment
}

// loadProjectChildren fills SharedWith and Attachments for all projects
// with one query per child table.
func (s *SQLiteStore) loadProjectChildren(ctx context.Context, projects []model.Project) error {
	if len(projects) == 0 {
		return nil
	}

	ids := make([]string, len(projects))
	index := make(map[string]int, len(projects))
	for i := range projects {
		ids[i] = projects[i].ID
		index[projects[i].ID] = i
		projects[i].SharedWith = []model.Email{}
		projects[i].Attachments = []model.Attachment{}
	}

	query, args, err := sqlx.In(`
		SELECT project_id, email FROM project_shares
		WHERE project_id IN (?)
		ORDER BY project_id, position`, ids)
	if err != nil {
		return fmt.Errorf("building share query: %w", err)
	}
	var shares []shareRow
	if err := s.db.SelectContext(ctx, &shares, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("loading shares: %w", err)
	}
	for _, sh := range shares {
		p := &projects[index[sh.ProjectID]]
		p.SharedWith = append(p.SharedWith, sh.Email)
	}

	query, args, err = sqlx.In(`
		SELECT project_id, name, url, type FROM project_attachments
		WHERE project_id IN (?)
		ORDER BY seq`, ids)
	if err != nil {
		return fmt.Errorf("building attachment query: %w", err)
	}
	var attachments []projectAttachmentRow
	if err := s.db.SelectContext(ctx, &attachments, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("loading attachments: %w", err)
	}
	for _, a := range attachments {
		p := &projects[index[a.ProjectID]]
		p.Attachments = append(p.Attachments, a.Attachment)
	}

	return nil
}
