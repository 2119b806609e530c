package store

import "context"

type LedgerStore struct {
	db DB
}

// LedgerEntryInput is one signed movement on an account. TransactionID is nil
// for opening and funding entries that have no counterparty account.
type LedgerEntryInput struct {
	TransactionID *int64
	AccountID     int64
	Amount        int64
	Description   string
}

func NewLedgerStore(db DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func (s *LedgerStore) InsertEntries(ctx context.Context, tx Execer, entries []LedgerEntryInput) error {
	query := `
		INSERT INTO ledger_entries (transaction_id, account_id, amount, description)
		VALUES ($1, $2, $3, $4)
	`
	for _, entry := range entries {
		if _, err := tx.ExecContext(ctx, query, entry.TransactionID, entry.AccountID, entry.Amount, entry.Description); err != nil {
			return err
		}
	}
	return nil
}
