package services

import (
	"context"
	"time"

	"familybank/internal/models"
	"familybank/internal/store"
	"familybank/internal/websocket"
)

type AccountStore interface {
	Create(ctx context.Context, tx store.Getter, kind models.OwnerKind, ownerID int64, balance int64) (models.Account, error)
	GetByOwner(ctx context.Context, kind models.OwnerKind, ownerID int64) (models.Account, error)
	GetByOwnerTx(ctx context.Context, q store.Getter, kind models.OwnerKind, ownerID int64) (models.Account, error)
	GetForUpdate(ctx context.Context, tx store.Getter, accountID int64) (models.Account, error)
	UpdateBalance(ctx context.Context, tx store.Execer, accountID int64, balance int64) error
	Summary(ctx context.Context, kind models.OwnerKind, ownerID int64) (store.AccountBalanceSummary, error)
	ListSummaries(ctx context.Context, kind models.OwnerKind, ownerID int64) ([]store.AccountBalanceSummary, error)
}

type TransactionStore interface {
	Create(ctx context.Context, tx store.Getter, input store.TransactionInput) (models.Transaction, error)
	ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]models.Transaction, error)
}

type LedgerStore interface {
	InsertEntries(ctx context.Context, tx store.Execer, entries []store.LedgerEntryInput) error
}

type UserStore interface {
	Create(ctx context.Context, tx store.Getter, input store.UserInput) (int64, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, userID int64) (models.User, error)
	GetForUpdate(ctx context.Context, tx store.Getter, userID int64) (models.User, error)
	ListChildren(ctx context.Context, parentID int64) ([]store.ChildWithBalance, error)
	AdjustLoyaltyPoints(ctx context.Context, tx store.Execer, childID int64, delta int) error
}

type GoalStore interface {
	Create(ctx context.Context, tx store.Getter, input store.GoalInput) (models.SavingsGoal, error)
	LinkAccount(ctx context.Context, tx store.Execer, goalID, accountID int64) error
	GetForUpdate(ctx context.Context, tx store.Getter, goalID int64) (models.SavingsGoal, error)
	UpdateStatus(ctx context.Context, tx store.Execer, goalID int64, status models.GoalStatus, completedAt *time.Time) error
	ListByChild(ctx context.Context, childID int64) ([]models.GoalWithBalance, error)
}

type TaskStore interface {
	Create(ctx context.Context, tx store.Getter, input store.TaskInput) (models.Task, error)
	GetForUpdate(ctx context.Context, tx store.Getter, taskID int64) (models.Task, error)
	UpdateStatus(ctx context.Context, tx store.Execer, taskID int64, status models.TaskStatus, completedAt *time.Time) error
	ListByParent(ctx context.Context, parentID int64, childID *int64) ([]models.Task, error)
	ListByChild(ctx context.Context, childID int64) ([]models.Task, error)
}

type LoyaltyStore interface {
	Create(ctx context.Context, tx store.Execer, input store.LoyaltyInput) error
	ListByChild(ctx context.Context, childID int64) ([]models.LoyaltyTransaction, error)
}

type RewardStore interface {
	List(ctx context.Context) ([]models.Reward, error)
	GetByID(ctx context.Context, rewardID int64) (models.Reward, error)
}

type BalanceHub interface {
	BroadcastBalance(userID int64, update websocket.BalanceUpdate)
}
