package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/teamtrack/internal/model"
)

// Subtasks, attachments and messages live in their own rows so that every
// mutation touches exactly one row. Two writers updating different subtasks
// of the same task therefore never overwrite each other.

// taskRow is one tasks row.
type taskRow struct {
	ID        string       `db:"id"`
	ProjectID string       `db:"project_id"`
	Name      string       `db:"name"`
	Owner     model.UserID `db:"owner"`
	DueDate   *time.Time   `db:"due_date"`
	CreatedAt *time.Time   `db:"created_at"`
}

// subtaskRow is one subtasks row.
type subtaskRow struct {
	TaskID         string         `db:"task_id"`
	ID             string         `db:"id"`
	Position       int            `db:"position"`
	Name           string         `db:"name"`
	Owner          model.UserID   `db:"owner"`
	Priority       model.Priority `db:"priority"`
	DueDate        *time.Time     `db:"due_date"`
	Completed      int            `db:"completed"`
	CompletionDate *time.Time     `db:"completion_date"`
}

// taskAttachmentRow is one task_attachments row.
type taskAttachmentRow struct {
	TaskID    string `db:"task_id"`
	SubtaskID string `db:"subtask_id"`
	model.Attachment
}

// taskMessageRow is one task_messages row.
type taskMessageRow struct {
	TaskID    string `db:"task_id"`
	SubtaskID string `db:"subtask_id"`
	model.Message
}

const taskColumns = "id, project_id, name, owner, due_date, created_at"

// CreateTask inserts a task with its subtasks, attachments and messages in
// one transaction. Generates a UUID if ID is empty and stamps CreatedAt.
func (s *SQLiteStore) CreateTask(ctx context.Context, task model.Task) (model.Task, error) {
	const op = "creating task"
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	now := s.now()
	task.CreatedAt = &now

	err := s.inTx(ctx, op, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (id, project_id, name, owner, due_date, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			task.ID, task.ProjectID, task.Name, task.Owner,
			utcPtr(task.DueDate), task.CreatedAt,
		)
		if err != nil {
			return storeErr(op, err)
		}

		for i, st := range task.Subtasks {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO subtasks (
					task_id, id, position, name, owner, priority,
					due_date, completed, completion_date
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				task.ID, st.ID, i+1, st.Name, st.Owner, st.Priority,
				utcPtr(st.DueDate), boolToInt(st.Completed), utcPtr(st.CompletionDate),
			)
			if err != nil {
				return storeErr(op, fmt.Errorf("inserting subtask %s: %w", st.ID, err))
			}
			for _, a := range st.Attachments {
				if err := insertTaskAttachment(ctx, tx, task.ID, st.ID, a); err != nil {
					return storeErr(op, err)
				}
			}
			for _, m := range st.Messages {
				if err := insertTaskMessage(ctx, tx, task.ID, st.ID, m); err != nil {
					return storeErr(op, err)
				}
			}
		}

		for _, a := range task.Attachments {
			if err := insertTaskAttachment(ctx, tx, task.ID, "", a); err != nil {
				return storeErr(op, err)
			}
		}
		for _, m := range task.Messages {
			if err := insertTaskMessage(ctx, tx, task.ID, "", m); err != nil {
				return storeErr(op, err)
			}
		}
		return nil
	})
	if err != nil {
		return model.Task{}, err
	}
	return task, nil
}

// GetTaskByID retrieves a single task by ID with all embedded entries.
func (s *SQLiteStore) GetTaskByID(ctx context.Context, id string) (*model.Task, error) {
	op := fmt.Sprintf("getting task %s", id)

	var row taskRow
	err := s.db.GetContext(ctx, &row, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	if err != nil {
		return nil, storeErr(op, err)
	}

	tasks, err := s.assembleTasks(ctx, []taskRow{row})
	if err != nil {
		return nil, storeErr(op, err)
	}
	return &tasks[0], nil
}

// GetTasksByProject retrieves all tasks belonging to a project.
func (s *SQLiteStore) GetTasksByProject(ctx context.Context, projectID string) ([]model.Task, error) {
	return s.queryTasks(ctx, "querying tasks by project",
		"SELECT "+taskColumns+" FROM tasks WHERE project_id = ? ORDER BY created_at, id", projectID)
}

// GetTasksByOwner retrieves all tasks owned by a user.
func (s *SQLiteStore) GetTasksByOwner(ctx context.Context, owner model.UserID) ([]model.Task, error) {
	return s.queryTasks(ctx, "querying tasks by owner",
		"SELECT "+taskColumns+" FROM tasks WHERE owner = ? ORDER BY created_at, id", owner)
}

// CompleteSubtask marks a subtask completed. The completion date is only
// written the first time, so repeated calls are no-ops.
func (s *SQLiteStore) CompleteSubtask(ctx context.Context, taskID, subtaskID string, at time.Time) error {
	op := fmt.Sprintf("completing subtask %s of task %s", subtaskID, taskID)

	result, err := s.db.ExecContext(ctx, `
		UPDATE subtasks SET
			completed = 1,
			completion_date = COALESCE(completion_date, ?)
		WHERE task_id = ? AND id = ?`,
		at.UTC(), taskID, subtaskID,
	)
	if err != nil {
		return storeErr(op, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return s.missingTarget(ctx, op, taskID, subtaskID)
	}
	return nil
}

// AddTaskAttachment appends an attachment to the task, or to one subtask
// when subtaskID is non-empty.
func (s *SQLiteStore) AddTaskAttachment(
	ctx context.Context,
	taskID, subtaskID string,
	a model.Attachment,
) error {
	op := fmt.Sprintf("adding attachment to task %s", taskID)
	return s.inTx(ctx, op, func(tx *sqlx.Tx) error {
		if err := checkTarget(ctx, tx, op, taskID, subtaskID); err != nil {
			return err
		}
		return storeErr(op, insertTaskAttachment(ctx, tx, taskID, subtaskID, a))
	})
}

// AddTaskMessage appends a message to the task, or to one subtask when
// subtaskID is non-empty.
func (s *SQLiteStore) AddTaskMessage(
	ctx context.Context,
	taskID, subtaskID string,
	m model.Message,
) error {
	op := fmt.Sprintf("adding message to task %s", taskID)
	return s.inTx(ctx, op, func(tx *sqlx.Tx) error {
		if err := checkTarget(ctx, tx, op, taskID, subtaskID); err != nil {
			return err
		}
		return storeErr(op, insertTaskMessage(ctx, tx, taskID, subtaskID, m))
	})
}

// checkTarget verifies that the task (and subtask, if given) exist.
func checkTarget(ctx context.Context, tx *sqlx.Tx, op, taskID, subtaskID string) error {
	var exists bool
	if err := tx.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM tasks WHERE id = ?)", taskID); err != nil {
		return storeErr(op, err)
	}
	if !exists {
		return notFound(op, "task", taskID)
	}
	if subtaskID == "" {
		return nil
	}
	if err := tx.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM subtasks WHERE task_id = ? AND id = ?)",
		taskID, subtaskID); err != nil {
		return storeErr(op, err)
	}
	if !exists {
		return notFound(op, "subtask", subtaskID)
	}
	return nil
}

// missingTarget reports which part of a (task, subtask) address is absent.
func (s *SQLiteStore) missingTarget(ctx context.Context, op, taskID, subtaskID string) error {
	var exists bool
	if err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM tasks WHERE id = ?)", taskID); err != nil {
		return storeErr(op, err)
	}
	if !exists {
		return notFound(op, "task", taskID)
	}
	return notFound(op, "subtask", subtaskID)
}

func insertTaskAttachment(ctx context.Context, tx *sqlx.Tx, taskID, subtaskID string, a model.Attachment) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO task_attachments (task_id, subtask_id, name, url, type)
		VALUES (?, ?, ?, ?, ?)`,
		taskID, subtaskID, a.Name, a.URL, a.Type,
	)
	if err != nil {
		return fmt.Errorf("inserting attachment %q: %w", a.Name, err)
	}
	return nil
}

func insertTaskMessage(ctx context.Context, tx *sqlx.Tx, taskID, subtaskID string, m model.Message) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO task_messages (task_id, subtask_id, text, user_id, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		taskID, subtaskID, m.Text, m.UserID, m.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

// queryTasks runs a task query and assembles the embedded entries.
func (s *SQLiteStore) queryTasks(ctx context.Context, op, query string, args ...interface{}) ([]model.Task, error) {
	var rows []taskRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, storeErr(op, err)
	}
	tasks, err := s.assembleTasks(ctx, rows)
	if err != nil {
		return nil, storeErr(op, err)
	}
	return tasks, nil
}

// assembleTasks loads subtasks, attachments and messages for rows with one
// query per child table and nests them in order.
func (s *SQLiteStore) assembleTasks(ctx context.Context, rows []taskRow) ([]model.Task, error) {
	tasks := make([]model.Task, len(rows))
	if len(rows) == 0 {
		return tasks, nil
	}

	ids := make([]string, len(rows))
	index := make(map[string]int, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
		index[r.ID] = i
		tasks[i] = model.Task{
			ID:          r.ID,
			ProjectID:   r.ProjectID,
			Name:        r.Name,
			Owner:       r.Owner,
			DueDate:     r.DueDate,
			CreatedAt:   r.CreatedAt,
			Subtasks:    []model.Subtask{},
			Attachments: []model.Attachment{},
			Messages:    []model.Message{},
		}
	}

	var subtasks []subtaskRow
	if err := s.selectIn(ctx, &subtasks, `
		SELECT task_id, id, position, name, owner, priority,
			due_date, completed, completion_date
		FROM subtasks WHERE task_id IN (?)
		ORDER BY task_id, position`, ids); err != nil {
		return nil, fmt.Errorf("loading subtasks: %w", err)
	}
	// subtaskIndex maps task id + subtask id to its slot in Subtasks.
	subtaskIndex := make(map[[2]string]int, len(subtasks))
	for _, r := range subtasks {
		t := &tasks[index[r.TaskID]]
		subtaskIndex[[2]string{r.TaskID, r.ID}] = len(t.Subtasks)
		t.Subtasks = append(t.Subtasks, model.Subtask{
			ID:             r.ID,
			Name:           r.Name,
			Owner:          r.Owner,
			Priority:       r.Priority,
			DueDate:        r.DueDate,
			Completed:      r.Completed != 0,
			CompletionDate: r.CompletionDate,
			Attachments:    []model.Attachment{},
			Messages:       []model.Message{},
		})
	}

	var attachments []taskAttachmentRow
	if err := s.selectIn(ctx, &attachments, `
		SELECT task_id, subtask_id, name, url, type
		FROM task_attachments WHERE task_id IN (?)
		ORDER BY seq`, ids); err != nil {
		return nil, fmt.Errorf("loading attachments: %w", err)
	}
	for _, r := range attachments {
		t := &tasks[index[r.TaskID]]
		if r.SubtaskID == "" {
			t.Attachments = append(t.Attachments, r.Attachment)
			continue
		}
		if i, ok := subtaskIndex[[2]string{r.TaskID, r.SubtaskID}]; ok {
			t.Subtasks[i].Attachments = append(t.Subtasks[i].Attachments, r.Attachment)
		}
	}

	var messages []taskMessageRow
	if err := s.selectIn(ctx, &messages, `
		SELECT task_id, subtask_id, text, user_id, timestamp
		FROM task_messages WHERE task_id IN (?)
		ORDER BY seq`, ids); err != nil {
		return nil, fmt.Errorf("loading messages: %w", err)
	}
	for _, r := range messages {
		t := &tasks[index[r.TaskID]]
		if r.SubtaskID == "" {
			t.Messages = append(t.Messages, r.Message)
			continue
		}
		if i, ok := subtaskIndex[[2]string{r.TaskID, r.SubtaskID}]; ok {
			t.Subtasks[i].Messages = append(t.Subtasks[i].Messages, r.Message)
		}
	}

	return tasks, nil
}

// selectIn expands the IN (?) placeholder in query with ids.
func (s *SQLiteStore) selectIn(ctx context.Context, dest interface{}, query string, ids []string) error {
	q, args, err := sqlx.In(query, ids)
	if err != nil {
		return err
	}
	return s.db.SelectContext(ctx, dest, s.db.Rebind(q), args...)
}

// utcPtr normalises an optional timestamp to UTC.
func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
