package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"familybank/internal/models"
	"familybank/internal/store"
	"familybank/internal/websocket"
)

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

// bankState is everything memBank stores; it is copied before each
// transaction so a failed one can be undone.
type bankState struct {
	nextID       int64
	accounts     map[int64]models.Account
	users        map[int64]models.User
	goals        map[int64]models.SavingsGoal
	tasks        map[int64]models.Task
	rewards      map[int64]models.Reward
	loyalty      []models.LoyaltyTransaction
	transactions []models.Transaction
	entries      []store.LedgerEntryInput
}

func (s bankState) clone() bankState {
	out := s
	out.accounts = make(map[int64]models.Account, len(s.accounts))
	for k, v := range s.accounts {
		out.accounts[k] = v
	}
	out.users = make(map[int64]models.User, len(s.users))
	for k, v := range s.users {
		out.users[k] = v
	}
	out.goals = make(map[int64]models.SavingsGoal, len(s.goals))
	for k, v := range s.goals {
		out.goals[k] = v
	}
	out.tasks = make(map[int64]models.Task, len(s.tasks))
	for k, v := range s.tasks {
		out.tasks[k] = v
	}
	out.rewards = make(map[int64]models.Reward, len(s.rewards))
	for k, v := range s.rewards {
		out.rewards[k] = v
	}
	out.loyalty = append([]models.LoyaltyTransaction(nil), s.loyalty...)
	out.transactions = append([]models.Transaction(nil), s.transactions...)
	out.entries = append([]store.LedgerEntryInput(nil), s.entries...)
	return out
}

// memBank is an in-memory stand-in for Postgres. Its runner serializes
// transactions, which is what row locks give the real thing.
type memBank struct {
	mu      sync.Mutex
	state   bankState
	lockLog []int64
}

func newMemBank() *memBank {
	return &memBank{state: bankState{
		accounts: map[int64]models.Account{},
		users:    map[int64]models.User{},
		goals:    map[int64]models.SavingsGoal{},
		tasks:    map[int64]models.Task{},
		rewards:  map[int64]models.Reward{},
	}}
}

func (b *memBank) id() int64 {
	b.state.nextID++
	return b.state.nextID
}

func (b *memBank) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := b.state.clone()
	if err := fn(nil); err != nil {
		b.state = snapshot
		return err
	}
	return nil
}

func (b *memBank) addUser(role models.Role, parentID *int64, email string, points int) models.User {
	user := models.User{
		ID:            b.id(),
		Email:         email,
		FirstName:     "Test",
		LastName:      string(role),
		Role:          role,
		ParentID:      parentID,
		LoyaltyPoints: points,
		CreatedAt:     time.Now(),
	}
	b.state.users[user.ID] = user
	return user
}

// addAccount seeds an account whose opening balance is backed by an entry.
func (b *memBank) addAccount(key models.OwnerKey, balance int64) models.Account {
	account := models.Account{ID: b.id(), OwnerKind: key.Kind, OwnerID: key.ID, Balance: balance}
	b.state.accounts[account.ID] = account
	if balance > 0 {
		b.state.entries = append(b.state.entries, store.LedgerEntryInput{AccountID: account.ID, Amount: balance})
	}
	return account
}

func (b *memBank) balanceOf(key models.OwnerKey) int64 {
	for _, account := range b.state.accounts {
		if account.Key() == key {
			return account.Balance
		}
	}
	return -1
}

func (b *memBank) totalBalance() int64 {
	var total int64
	for _, account := range b.state.accounts {
		total += account.Balance
	}
	return total
}

func (b *memBank) entrySum(accountID int64) int64 {
	var sum int64
	for _, entry := range b.state.entries {
		if entry.AccountID == accountID {
			sum += entry.Amount
		}
	}
	return sum
}

func uniqueViolation() error {
	return &pq.Error{Code: "23505"}
}

type memAccounts struct{ *memBank }

func (m memAccounts) Create(_ context.Context, _ store.Getter, kind models.OwnerKind, ownerID int64, balance int64) (models.Account, error) {
	for _, account := range m.state.accounts {
		if account.OwnerKind == kind && account.OwnerID == ownerID {
			return models.Account{}, uniqueViolation()
		}
	}
	account := models.Account{ID: m.id(), OwnerKind: kind, OwnerID: ownerID, Balance: balance, CreatedAt: time.Now()}
	m.state.accounts[account.ID] = account
	return account, nil
}

func (m memAccounts) GetByOwner(ctx context.Context, kind models.OwnerKind, ownerID int64) (models.Account, error) {
	return m.GetByOwnerTx(ctx, nil, kind, ownerID)
}

func (m memAccounts) GetByOwnerTx(_ context.Context, _ store.Getter, kind models.OwnerKind, ownerID int64) (models.Account, error) {
	for _, account := range m.state.accounts {
		if account.OwnerKind == kind && account.OwnerID == ownerID {
			return account, nil
		}
	}
	return models.Account{}, sql.ErrNoRows
}

func (m memAccounts) GetForUpdate(_ context.Context, _ store.Getter, accountID int64) (models.Account, error) {
	account, ok := m.state.accounts[accountID]
	if !ok {
		return models.Account{}, sql.ErrNoRows
	}
	m.lockLog = append(m.lockLog, accountID)
	return account, nil
}

func (m memAccounts) UpdateBalance(_ context.Context, _ store.Execer, accountID int64, balance int64) error {
	account, ok := m.state.accounts[accountID]
	if !ok {
		return sql.ErrNoRows
	}
	if balance < 0 {
		return errors.New("balance check constraint")
	}
	account.Balance = balance
	m.state.accounts[accountID] = account
	return nil
}

func (m memAccounts) summary(account models.Account) store.AccountBalanceSummary {
	calculated := m.entrySum(account.ID)
	return store.AccountBalanceSummary{
		ID:                account.ID,
		OwnerKind:         account.OwnerKind,
		OwnerID:           account.OwnerID,
		StoredBalance:     account.Balance,
		CalculatedBalance: calculated,
		Difference:        account.Balance - calculated,
	}
}

func (m memAccounts) Summary(ctx context.Context, kind models.OwnerKind, ownerID int64) (store.AccountBalanceSummary, error) {
	account, err := m.GetByOwner(ctx, kind, ownerID)
	if err != nil {
		return store.AccountBalanceSummary{}, err
	}
	return m.summary(account), nil
}

func (m memAccounts) ListSummaries(_ context.Context, kind models.OwnerKind, ownerID int64) ([]store.AccountBalanceSummary, error) {
	var rows []store.AccountBalanceSummary
	for _, account := range m.state.accounts {
		own := account.OwnerKind == kind && account.OwnerID == ownerID
		goal := kind == models.OwnerChild && account.OwnerKind == models.OwnerSavingsGoal &&
			m.state.goals[account.OwnerID].ChildID == ownerID
		if own || goal {
			rows = append(rows, m.summary(account))
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}

type memTransactions struct{ *memBank }

func (m memTransactions) Create(_ context.Context, _ store.Getter, input store.TransactionInput) (models.Transaction, error) {
	record := models.Transaction{
		ID:                m.id(),
		Amount:            input.Amount,
		SenderAccountID:   input.SenderAccountID,
		SenderKind:        input.SenderKind,
		ReceiverAccountID: input.ReceiverAccountID,
		ReceiverKind:      input.ReceiverKind,
		Description:       input.Description,
		CreatedAt:         time.Now(),
	}
	m.state.transactions = append(m.state.transactions, record)
	return record, nil
}

func (m memTransactions) ListByAccount(_ context.Context, accountID int64, limit, offset int) ([]models.Transaction, error) {
	var rows []models.Transaction
	for i := len(m.state.transactions) - 1; i >= 0; i-- {
		record := m.state.transactions[i]
		if record.SenderAccountID == accountID || record.ReceiverAccountID == accountID {
			rows = append(rows, record)
		}
	}
	if offset >= len(rows) {
		return nil, nil
	}
	rows = rows[offset:]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

type memEntries struct{ *memBank }

func (m memEntries) InsertEntries(_ context.Context, _ store.Execer, entries []store.LedgerEntryInput) error {
	m.state.entries = append(m.state.entries, entries...)
	return nil
}

type memUsers struct{ *memBank }

func (m memUsers) Create(_ context.Context, _ store.Getter, input store.UserInput) (int64, error) {
	for _, user := range m.state.users {
		if strings.EqualFold(user.Email, input.Email) {
			return 0, uniqueViolation()
		}
	}
	user := models.User{
		ID:           m.id(),
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Picture:      input.Picture,
		Role:         input.Role,
		ParentID:     input.ParentID,
		CreatedAt:    time.Now(),
	}
	m.state.users[user.ID] = user
	return user.ID, nil
}

func (m memUsers) GetByEmail(_ context.Context, email string) (models.User, error) {
	for _, user := range m.state.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return models.User{}, sql.ErrNoRows
}

func (m memUsers) GetByID(_ context.Context, userID int64) (models.User, error) {
	user, ok := m.state.users[userID]
	if !ok {
		return models.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (m memUsers) GetForUpdate(ctx context.Context, _ store.Getter, userID int64) (models.User, error) {
	return m.GetByID(ctx, userID)
}

func (m memUsers) ListChildren(_ context.Context, parentID int64) ([]store.ChildWithBalance, error) {
	var rows []store.ChildWithBalance
	for _, user := range m.state.users {
		if user.ParentID != nil && *user.ParentID == parentID {
			rows = append(rows, store.ChildWithBalance{User: user, Balance: m.balanceOf(models.ChildKey(user.ID))})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}

func (m memUsers) AdjustLoyaltyPoints(_ context.Context, _ store.Execer, childID int64, delta int) error {
	user, ok := m.state.users[childID]
	if !ok || user.Role != models.RoleChild {
		return sql.ErrNoRows
	}
	if user.LoyaltyPoints+delta < 0 {
		return errors.New("loyalty points check constraint")
	}
	user.LoyaltyPoints += delta
	m.state.users[childID] = user
	return nil
}

type memGoals struct{ *memBank }

func (m memGoals) Create(_ context.Context, _ store.Getter, input store.GoalInput) (models.SavingsGoal, error) {
	goal := models.SavingsGoal{
		ID:           m.id(),
		ChildID:      input.ChildID,
		Name:         input.Name,
		TargetAmount: input.TargetAmount,
		Status:       models.GoalInProgress,
		Picture:      input.Picture,
		DateCreated:  time.Now(),
	}
	m.state.goals[goal.ID] = goal
	return goal, nil
}

func (m memGoals) LinkAccount(_ context.Context, _ store.Execer, goalID, accountID int64) error {
	goal, ok := m.state.goals[goalID]
	if !ok || goal.AccountID != nil {
		return sql.ErrNoRows
	}
	goal.AccountID = &accountID
	m.state.goals[goalID] = goal
	return nil
}

func (m memGoals) GetForUpdate(_ context.Context, _ store.Getter, goalID int64) (models.SavingsGoal, error) {
	goal, ok := m.state.goals[goalID]
	if !ok {
		return models.SavingsGoal{}, sql.ErrNoRows
	}
	return goal, nil
}

func (m memGoals) UpdateStatus(_ context.Context, _ store.Execer, goalID int64, status models.GoalStatus, completedAt *time.Time) error {
	goal, ok := m.state.goals[goalID]
	if !ok {
		return sql.ErrNoRows
	}
	goal.Status = status
	goal.DateCompleted = completedAt
	m.state.goals[goalID] = goal
	return nil
}

func (m memGoals) ListByChild(_ context.Context, childID int64) ([]models.GoalWithBalance, error) {
	var rows []models.GoalWithBalance
	for _, goal := range m.state.goals {
		if goal.ChildID != childID {
			continue
		}
		row := models.GoalWithBalance{SavingsGoal: goal}
		if goal.AccountID != nil {
			row.Balance = m.state.accounts[*goal.AccountID].Balance
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}

type memTasks struct{ *memBank }

func (m memTasks) Create(_ context.Context, _ store.Getter, input store.TaskInput) (models.Task, error) {
	task := models.Task{
		ID:           m.id(),
		ParentID:     input.ParentID,
		ChildID:      input.ChildID,
		Name:         input.Name,
		Description:  input.Description,
		Picture:      input.Picture,
		RewardAmount: input.RewardAmount,
		Status:       models.TaskOngoing,
		DateCreated:  time.Now(),
	}
	m.state.tasks[task.ID] = task
	return task, nil
}

func (m memTasks) GetForUpdate(_ context.Context, _ store.Getter, taskID int64) (models.Task, error) {
	task, ok := m.state.tasks[taskID]
	if !ok {
		return models.Task{}, sql.ErrNoRows
	}
	return task, nil
}

func (m memTasks) UpdateStatus(_ context.Context, _ store.Execer, taskID int64, status models.TaskStatus, completedAt *time.Time) error {
	task, ok := m.state.tasks[taskID]
	if !ok {
		return sql.ErrNoRows
	}
	task.Status = status
	task.DateCompleted = completedAt
	m.state.tasks[taskID] = task
	return nil
}

func (m memTasks) ListByParent(_ context.Context, parentID int64, childID *int64) ([]models.Task, error) {
	var rows []models.Task
	for _, task := range m.state.tasks {
		if task.ParentID == parentID && (childID == nil || task.ChildID == *childID) {
			rows = append(rows, task)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}

func (m memTasks) ListByChild(_ context.Context, childID int64) ([]models.Task, error) {
	var rows []models.Task
	for _, task := range m.state.tasks {
		if task.ChildID == childID {
			rows = append(rows, task)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}

type memLoyalty struct{ *memBank }

func (m memLoyalty) Create(_ context.Context, _ store.Execer, input store.LoyaltyInput) error {
	m.state.loyalty = append(m.state.loyalty, models.LoyaltyTransaction{
		ID:          m.id(),
		ChildID:     input.ChildID,
		Amount:      input.Amount,
		Type:        input.Type,
		Description: input.Description,
		CreatedAt:   time.Now(),
	})
	return nil
}

func (m memLoyalty) ListByChild(_ context.Context, childID int64) ([]models.LoyaltyTransaction, error) {
	var rows []models.LoyaltyTransaction
	for i := len(m.state.loyalty) - 1; i >= 0; i-- {
		if m.state.loyalty[i].ChildID == childID {
			rows = append(rows, m.state.loyalty[i])
		}
	}
	return rows, nil
}

type memRewards struct{ *memBank }

func (m memRewards) List(_ context.Context) ([]models.Reward, error) {
	var rows []models.Reward
	for _, reward := range m.state.rewards {
		rows = append(rows, reward)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}

func (m memRewards) GetByID(_ context.Context, rewardID int64) (models.Reward, error) {
	reward, ok := m.state.rewards[rewardID]
	if !ok {
		return models.Reward{}, sql.ErrNoRows
	}
	return reward, nil
}

type stubHub struct {
	mu    sync.Mutex
	calls map[int64][]websocket.BalanceUpdate
}

func (s *stubHub) BroadcastBalance(userID int64, update websocket.BalanceUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = map[int64][]websocket.BalanceUpdate{}
	}
	s.calls[userID] = append(s.calls[userID], update)
}

func (s *stubHub) count(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls[userID])
}

// family wires every service onto one memBank with a parent, their child and
// a funded reward account.
type family struct {
	bank    *memBank
	hub     *stubHub
	ledger  *Ledger
	goals   *GoalService
	tasks   *TaskService
	loyalty *LoyaltyService
	members *FamilyService
	parent  models.User
	child   models.User
}

func newFamily(parentBalance, childBalance int64, childPoints int) *family {
	bank := newMemBank()
	hub := &stubHub{}
	ledger := NewLedger(memAccounts{bank}, memTransactions{bank}, memEntries{bank})
	f := &family{
		bank:    bank,
		hub:     hub,
		ledger:  ledger,
		goals:   NewGoalService(bank, ledger, memGoals{bank}, memUsers{bank}, memLoyalty{bank}, hub),
		tasks:   NewTaskService(bank, ledger, memTasks{bank}, memUsers{bank}, hub),
		loyalty: NewLoyaltyService(bank, ledger, memUsers{bank}, memLoyalty{bank}, memRewards{bank}, hub),
		members: NewFamilyService(bank, ledger, memUsers{bank}, hub, 1000000),
	}
	f.parent = bank.addUser(models.RoleParent, nil, "parent@example.com", 0)
	f.child = bank.addUser(models.RoleChild, &f.parent.ID, "child@example.com", childPoints)
	bank.addAccount(models.ParentKey(f.parent.ID), parentBalance)
	bank.addAccount(models.ChildKey(f.child.ID), childBalance)
	bank.addAccount(models.RewardSystemKey(), 100000)
	return f
}

func (f *family) childBalance() int64 {
	return f.bank.balanceOf(models.ChildKey(f.child.ID))
}

func (f *family) parentBalance() int64 {
	return f.bank.balanceOf(models.ParentKey(f.parent.ID))
}

func (f *family) points() int {
	return f.bank.state.users[f.child.ID].LoyaltyPoints
}

// reconciled reports whether every stored balance equals the sum of its entries.
func (f *family) reconciled() bool {
	for _, account := range f.bank.state.accounts {
		if account.Balance != f.bank.entrySum(account.ID) {
			return false
		}
	}
	return true
}
