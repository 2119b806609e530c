package store

import (
	"context"
	"time"

	"familybank/internal/models"
)

type TaskStore struct {
	db DB
}

type TaskInput struct {
	ParentID     int64
	ChildID      int64
	Name         string
	Description  *string
	Picture      *string
	RewardAmount int64
}

func NewTaskStore(db DB) *TaskStore {
	return &TaskStore{db: db}
}

const taskColumns = `id, parent_id, child_id, name, description, picture, reward_amount, status, date_created, date_completed`

func (s *TaskStore) Create(ctx context.Context, tx Getter, input TaskInput) (models.Task, error) {
	var row models.Task
	err := tx.GetContext(ctx, &row, `
		INSERT INTO tasks (parent_id, child_id, name, description, picture, reward_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+taskColumns,
		input.ParentID, input.ChildID, input.Name, input.Description, input.Picture, input.RewardAmount, models.TaskOngoing,
	)
	return row, err
}

func (s *TaskStore) GetForUpdate(ctx context.Context, tx Getter, taskID int64) (models.Task, error) {
	var row models.Task
	err := tx.GetContext(ctx, &row, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = $1
		FOR UPDATE
	`, taskID)
	return row, err
}

func (s *TaskStore) UpdateStatus(ctx context.Context, tx Execer, taskID int64, status models.TaskStatus, completedAt *time.Time) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE tasks
		SET status = $1, date_completed = $2
		WHERE id = $3
	`, status, completedAt, taskID)
	return expectOneRow(res, err)
}

// ListByParent returns the parent's tasks, optionally narrowed to one child.
func (s *TaskStore) ListByParent(ctx context.Context, parentID int64, childID *int64) ([]models.Task, error) {
	var rows []models.Task
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE parent_id = $1
	`
	args := []any{parentID}
	if childID != nil {
		query += " AND child_id = $2"
		args = append(args, *childID)
	}
	query += " ORDER BY date_created DESC, id DESC"
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *TaskStore) ListByChild(ctx context.Context, childID int64) ([]models.Task, error) {
	var rows []models.Task
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE child_id = $1
		ORDER BY date_created DESC, id DESC
	`, childID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
