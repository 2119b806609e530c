package store

import (
	"context"
	"time"

	"familybank/internal/models"
)

type GoalStore struct {
	db DB
}

type GoalInput struct {
	ChildID      int64
	Name         string
	TargetAmount int64
	Picture      *string
}

func NewGoalStore(db DB) *GoalStore {
	return &GoalStore{db: db}
}

const goalColumns = `id, child_id, name, target_amount, status, account_id, picture, date_created, date_completed`

func (s *GoalStore) Create(ctx context.Context, tx Getter, input GoalInput) (models.SavingsGoal, error) {
	var row models.SavingsGoal
	err := tx.GetContext(ctx, &row, `
		INSERT INTO savings_goals (child_id, name, target_amount, status, picture)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+goalColumns,
		input.ChildID, input.Name, input.TargetAmount, models.GoalInProgress, input.Picture,
	)
	return row, err
}

// LinkAccount sets the goal's account only if it has none yet.
func (s *GoalStore) LinkAccount(ctx context.Context, tx Execer, goalID, accountID int64) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE savings_goals
		SET account_id = $1
		WHERE id = $2 AND account_id IS NULL
	`, accountID, goalID)
	return expectOneRow(res, err)
}

func (s *GoalStore) GetForUpdate(ctx context.Context, tx Getter, goalID int64) (models.SavingsGoal, error) {
	var row models.SavingsGoal
	err := tx.GetContext(ctx, &row, `
		SELECT `+goalColumns+`
		FROM savings_goals
		WHERE id = $1
		FOR UPDATE
	`, goalID)
	return row, err
}

func (s *GoalStore) UpdateStatus(ctx context.Context, tx Execer, goalID int64, status models.GoalStatus, completedAt *time.Time) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE savings_goals
		SET status = $1, date_completed = $2
		WHERE id = $3
	`, status, completedAt, goalID)
	return expectOneRow(res, err)
}

func (s *GoalStore) ListByChild(ctx context.Context, childID int64) ([]models.GoalWithBalance, error) {
	var rows []models.GoalWithBalance
	err := s.db.SelectContext(ctx, &rows, `
		SELECT g.id, g.child_id, g.name, g.target_amount, g.status, g.account_id, g.picture,
		       g.date_created, g.date_completed,
		       COALESCE(a.balance, 0) AS balance
		FROM savings_goals g
		LEFT JOIN accounts a ON a.id = g.account_id
		WHERE g.child_id = $1
		ORDER BY g.date_created DESC, g.id DESC
	`, childID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
