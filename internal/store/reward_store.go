package store

import (
	"context"

	"familybank/internal/models"
)

type RewardStore struct {
	db DB
}

type RewardInput struct {
	Name        string
	Description *string
	Price       int
	Picture     *string
}

func NewRewardStore(db DB) *RewardStore {
	return &RewardStore{db: db}
}

const rewardColumns = `id, name, description, price, picture`

func (s *RewardStore) Create(ctx context.Context, tx Getter, input RewardInput) (models.Reward, error) {
	var row models.Reward
	err := tx.GetContext(ctx, &row, `
		INSERT INTO rewards (name, description, price, picture)
		VALUES ($1, $2, $3, $4)
		RETURNING `+rewardColumns,
		input.Name, input.Description, input.Price, input.Picture,
	)
	return row, err
}

func (s *RewardStore) List(ctx context.Context) ([]models.Reward, error) {
	var rows []models.Reward
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+rewardColumns+` FROM rewards ORDER BY price, id`); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *RewardStore) GetByID(ctx context.Context, rewardID int64) (models.Reward, error) {
	var row models.Reward
	err := s.db.GetContext(ctx, &row, `SELECT `+rewardColumns+` FROM rewards WHERE id = $1`, rewardID)
	return row, err
}
