package store

import (
	"context"

	"familybank/internal/models"
)

type TransactionStore struct {
	db DB
}

type TransactionInput struct {
	Amount            int64
	SenderAccountID   int64
	SenderKind        models.OwnerKind
	ReceiverAccountID int64
	ReceiverKind      models.OwnerKind
	Description       string
}

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

const transactionColumns = `id, amount, sender_account_id, sender_kind, receiver_account_id, receiver_kind, description, created_at`

func (s *TransactionStore) Create(ctx context.Context, tx Getter, input TransactionInput) (models.Transaction, error) {
	var row models.Transaction
	err := tx.GetContext(ctx, &row, `
		INSERT INTO transactions (amount, sender_account_id, sender_kind, receiver_account_id, receiver_kind, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+transactionColumns,
		input.Amount, input.SenderAccountID, input.SenderKind, input.ReceiverAccountID, input.ReceiverKind, input.Description,
	)
	return row, err
}

// ListByAccount returns transactions the account sent or received, newest first.
func (s *TransactionStore) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE sender_account_id = $1 OR receiver_account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
