package store

import (
	"context"

	"familybank/internal/models"
)

type AccountStore struct {
	db DB
}

// AccountBalanceSummary compares an account's stored balance with the sum of
// its ledger entries.
type AccountBalanceSummary struct {
	ID                int64            `db:"id"`
	OwnerKind         models.OwnerKind `db:"owner_kind"`
	OwnerID           int64            `db:"owner_id"`
	StoredBalance     int64            `db:"stored_balance"`
	CalculatedBalance int64            `db:"calculated_balance"`
	Difference        int64            `db:"difference"`
}

func NewAccountStore(db DB) *AccountStore {
	return &AccountStore{db: db}
}

const accountColumns = `id, owner_kind, owner_id, balance, created_at`

func (s *AccountStore) Create(ctx context.Context, tx Getter, kind models.OwnerKind, ownerID int64, balance int64) (models.Account, error) {
	var row models.Account
	err := tx.GetContext(ctx, &row, `
		INSERT INTO accounts (owner_kind, owner_id, balance)
		VALUES ($1, $2, $3)
		RETURNING `+accountColumns, kind, ownerID, balance)
	return row, err
}

func (s *AccountStore) GetByOwner(ctx context.Context, kind models.OwnerKind, ownerID int64) (models.Account, error) {
	return s.GetByOwnerTx(ctx, s.db, kind, ownerID)
}

// GetByOwnerTx reads through q so callers inside a transaction see their own writes.
func (s *AccountStore) GetByOwnerTx(ctx context.Context, q Getter, kind models.OwnerKind, ownerID int64) (models.Account, error) {
	var row models.Account
	err := q.GetContext(ctx, &row, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE owner_kind = $1 AND owner_id = $2
	`, kind, ownerID)
	return row, err
}

func (s *AccountStore) GetForUpdate(ctx context.Context, tx Getter, accountID int64) (models.Account, error) {
	var row models.Account
	err := tx.GetContext(ctx, &row, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`, accountID)
	return row, err
}

func (s *AccountStore) UpdateBalance(ctx context.Context, tx Execer, accountID int64, balance int64) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET balance = $1, updated_at = NOW()
		WHERE id = $2
	`, balance, accountID)
	return expectOneRow(res, err)
}

// ListSummaries returns the owner's account and, for a child, the accounts of
// their savings goals.
func (s *AccountStore) ListSummaries(ctx context.Context, kind models.OwnerKind, ownerID int64) ([]AccountBalanceSummary, error) {
	var rows []AccountBalanceSummary
	err := s.db.SelectContext(ctx, &rows, `
		SELECT a.id,
		       a.owner_kind,
		       a.owner_id,
		       a.balance AS stored_balance,
		       COALESCE(SUM(l.amount), 0) AS calculated_balance,
		       (a.balance - COALESCE(SUM(l.amount), 0)) AS difference
		FROM accounts a
		LEFT JOIN ledger_entries l ON l.account_id = a.id
		WHERE (a.owner_kind = $1 AND a.owner_id = $2)
		   OR ($1 = 'Child' AND a.owner_kind = 'SavingsGoal'
		       AND a.owner_id IN (SELECT id FROM savings_goals WHERE child_id = $2))
		GROUP BY a.id, a.owner_kind, a.owner_id, a.balance
		ORDER BY a.id
	`, kind, ownerID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *AccountStore) Summary(ctx context.Context, kind models.OwnerKind, ownerID int64) (AccountBalanceSummary, error) {
	var row AccountBalanceSummary
	err := s.db.GetContext(ctx, &row, `
		SELECT a.id,
		       a.owner_kind,
		       a.owner_id,
		       a.balance AS stored_balance,
		       COALESCE(SUM(l.amount), 0) AS calculated_balance,
		       (a.balance - COALESCE(SUM(l.amount), 0)) AS difference
		FROM accounts a
		LEFT JOIN ledger_entries l ON l.account_id = a.id
		WHERE a.owner_kind = $1 AND a.owner_id = $2
		GROUP BY a.id, a.owner_kind, a.owner_id, a.balance
	`, kind, ownerID)
	return row, err
}
