package store

import (
	"context"

	"familybank/internal/models"
)

type LoyaltyStore struct {
	db DB
}

type LoyaltyInput struct {
	ChildID     int64
	Amount      int
	Type        models.LoyaltyType
	Description string
}

func NewLoyaltyStore(db DB) *LoyaltyStore {
	return &LoyaltyStore{db: db}
}

func (s *LoyaltyStore) Create(ctx context.Context, tx Execer, input LoyaltyInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO loyalty_transactions (child_id, amount, type, description)
		VALUES ($1, $2, $3, $4)
	`, input.ChildID, input.Amount, input.Type, input.Description)
	return err
}

func (s *LoyaltyStore) ListByChild(ctx context.Context, childID int64) ([]models.LoyaltyTransaction, error) {
	var rows []models.LoyaltyTransaction
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, child_id, amount, type, description, created_at
		FROM loyalty_transactions
		WHERE child_id = $1
		ORDER BY created_at DESC, id DESC
	`, childID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
