package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"familybank/internal/metrics"
	"familybank/internal/models"
	"familybank/internal/money"
	"familybank/internal/store"
	"familybank/internal/websocket"
)

// Ledger is the only code path that changes an account balance. Every
// method that writes takes the caller's transaction so several movements
// commit or roll back together.
type Ledger struct {
	accounts     AccountStore
	transactions TransactionStore
	entries      LedgerStore
}

func NewLedger(accounts AccountStore, transactions TransactionStore, entries LedgerStore) *Ledger {
	return &Ledger{
		accounts:     accounts,
		transactions: transactions,
		entries:      entries,
	}
}

type TransferInput struct {
	From        models.OwnerKey
	To          models.OwnerKey
	Amount      int64
	Description string
}

// Posting is a committed-to-be movement with both accounts as they stand after it.
type Posting struct {
	Transaction models.Transaction
	Sender      models.Account
	Receiver    models.Account
}

// Locked holds accounts locked FOR UPDATE in the current transaction.
type Locked map[models.OwnerKey]models.Account

func (l *Ledger) Transfer(ctx context.Context, tx store.Tx, in TransferInput) (Posting, error) {
	if in.Amount <= 0 {
		metrics.LedgerRejections.WithLabelValues("invalid_amount").Inc()
		return Posting{}, ErrInvalidAmount
	}
	if in.From == in.To {
		metrics.LedgerRejections.WithLabelValues("same_account").Inc()
		return Posting{}, ErrSameAccountTransfer
	}
	locked, err := l.Lock(ctx, tx, in.From, in.To)
	if err != nil {
		return Posting{}, err
	}
	sender, receiver := locked[in.From], locked[in.To]
	if sender.ID == receiver.ID {
		metrics.LedgerRejections.WithLabelValues("same_account").Inc()
		return Posting{}, ErrSameAccountTransfer
	}
	if sender.Key() != in.From || receiver.Key() != in.To {
		metrics.LedgerRejections.WithLabelValues("owner_mismatch").Inc()
		return Posting{}, ErrOwnerMismatch
	}
	if sender.Balance < in.Amount {
		metrics.LedgerRejections.WithLabelValues("insufficient_funds").Inc()
		return Posting{}, ErrInsufficientFunds
	}
	sender.Balance -= in.Amount
	receiver.Balance += in.Amount
	if err := l.accounts.UpdateBalance(ctx, tx, sender.ID, sender.Balance); err != nil {
		return Posting{}, fmt.Errorf("debit account %d: %w", sender.ID, err)
	}
	if err := l.accounts.UpdateBalance(ctx, tx, receiver.ID, receiver.Balance); err != nil {
		return Posting{}, fmt.Errorf("credit account %d: %w", receiver.ID, err)
	}

	record, err := l.transactions.Create(ctx, tx, store.TransactionInput{
		Amount:            in.Amount,
		SenderAccountID:   sender.ID,
		SenderKind:        sender.OwnerKind,
		ReceiverAccountID: receiver.ID,
		ReceiverKind:      receiver.OwnerKind,
		Description:       in.Description,
	})
	if err != nil {
		return Posting{}, fmt.Errorf("record transaction: %w", err)
	}
	entries := []store.LedgerEntryInput{
		{TransactionID: &record.ID, AccountID: sender.ID, Amount: -in.Amount, Description: in.Description},
		{TransactionID: &record.ID, AccountID: receiver.ID, Amount: in.Amount, Description: in.Description},
	}
	if err := ensureBalanced(entries); err != nil {
		return Posting{}, err
	}
	if err := l.entries.InsertEntries(ctx, tx, entries); err != nil {
		return Posting{}, fmt.Errorf("write ledger entries: %w", err)
	}

	metrics.LedgerTransfers.WithLabelValues(string(sender.OwnerKind), string(receiver.OwnerKind)).Inc()
	metrics.LedgerTransferredMinor.WithLabelValues(string(sender.OwnerKind)).Add(float64(in.Amount))
	return Posting{Transaction: record, Sender: sender, Receiver: receiver}, nil
}

// Lock resolves each owner to its account and locks the rows in ascending
// account id order, whatever order the keys were given in.
func (l *Ledger) Lock(ctx context.Context, tx store.Tx, keys ...models.OwnerKey) (Locked, error) {
	byID := make(map[int64][]models.OwnerKey, len(keys))
	ids := make([]int64, 0, len(keys))
	for _, key := range keys {
		account, err := l.accounts.GetByOwnerTx(ctx, tx, key.Kind, key.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%s %d: %w", key.Kind, key.ID, ErrAccountNotProvisioned)
			}
			return nil, fmt.Errorf("resolve %s account: %w", key.Kind, err)
		}
		if _, seen := byID[account.ID]; !seen {
			ids = append(ids, account.ID)
		}
		byID[account.ID] = append(byID[account.ID], key)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	locked := make(Locked, len(ids))
	for _, id := range ids {
		account, err := l.accounts.GetForUpdate(ctx, tx, id)
		if err != nil {
			return nil, fmt.Errorf("lock account %d: %w", id, err)
		}
		for _, key := range byID[id] {
			locked[key] = account
		}
	}
	return locked, nil
}

func (l *Ledger) Lookup(ctx context.Context, key models.OwnerKey) (models.Account, error) {
	account, err := l.accounts.GetByOwner(ctx, key.Kind, key.ID)
	if err != nil {
		return models.Account{}, lookupErr(err, string(key.Kind)+" account")
	}
	return account, nil
}

// Provision creates the owner's account. A positive opening balance is
// recorded as a ledger entry without a counterparty.
func (l *Ledger) Provision(ctx context.Context, tx store.Tx, key models.OwnerKey, opening int64, description string) (models.Account, error) {
	if !key.Kind.Valid() {
		return models.Account{}, invalid("owner_kind", "unknown owner kind")
	}
	if opening < 0 {
		return models.Account{}, ErrInvalidAmount
	}
	account, err := l.accounts.Create(ctx, tx, key.Kind, key.ID, opening)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return models.Account{}, ErrAccountExists
		}
		return models.Account{}, fmt.Errorf("create %s account: %w", key.Kind, err)
	}
	if opening > 0 {
		if err := l.entries.InsertEntries(ctx, tx, []store.LedgerEntryInput{{
			AccountID:   account.ID,
			Amount:      opening,
			Description: description,
		}}); err != nil {
			return models.Account{}, fmt.Errorf("write opening entry: %w", err)
		}
	}
	return account, nil
}

// Fund adds money from outside the system, e.g. topping up the reward account.
func (l *Ledger) Fund(ctx context.Context, tx store.Tx, key models.OwnerKey, amount int64, description string) (models.Account, error) {
	if amount <= 0 {
		return models.Account{}, ErrInvalidAmount
	}
	locked, err := l.Lock(ctx, tx, key)
	if err != nil {
		return models.Account{}, err
	}
	account := locked[key]
	account.Balance += amount
	if err := l.accounts.UpdateBalance(ctx, tx, account.ID, account.Balance); err != nil {
		return models.Account{}, fmt.Errorf("fund account %d: %w", account.ID, err)
	}
	if err := l.entries.InsertEntries(ctx, tx, []store.LedgerEntryInput{{
		AccountID:   account.ID,
		Amount:      amount,
		Description: description,
	}}); err != nil {
		return models.Account{}, fmt.Errorf("write funding entry: %w", err)
	}
	return account, nil
}

func (l *Ledger) Reconcile(ctx context.Context, key models.OwnerKey) (store.AccountBalanceSummary, error) {
	summary, err := l.accounts.Summary(ctx, key.Kind, key.ID)
	if err != nil {
		return store.AccountBalanceSummary{}, lookupErr(err, string(key.Kind)+" account")
	}
	return summary, nil
}

// SelfCheck reconciles every account a user can see: their own and, for a
// child, their goals'.
func (l *Ledger) SelfCheck(ctx context.Context, key models.OwnerKey) ([]store.AccountBalanceSummary, error) {
	rows, err := l.accounts.ListSummaries(ctx, key.Kind, key.ID)
	if err != nil {
		return nil, fmt.Errorf("reconcile accounts: %w", err)
	}
	return rows, nil
}

// History returns the transaction log of the owner's account.
func (l *Ledger) History(ctx context.Context, key models.OwnerKey, limit, offset int) ([]models.Transaction, error) {
	account, err := l.Lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	rows, err := l.transactions.ListByAccount(ctx, account.ID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return rows, nil
}

func ensureBalanced(entries []store.LedgerEntryInput) error {
	var sum int64
	for _, entry := range entries {
		sum += entry.Amount
	}
	if sum != 0 {
		return errors.New("ledger entries are not balanced")
	}
	return nil
}

// publish pushes post-commit balances to the user who sees the account.
func publish(hub BalanceHub, userID int64, accounts ...models.Account) {
	if hub == nil || userID == 0 {
		return
	}
	for _, account := range accounts {
		hub.BroadcastBalance(userID, websocket.BalanceUpdate{
			AccountID: account.ID,
			OwnerKind: string(account.OwnerKind),
			OwnerID:   account.OwnerID,
			Balance:   money.FormatMinor(account.Balance),
			Currency:  money.Currency,
		})
	}
}
