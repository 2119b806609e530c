package handlers

import (
	"context"

	"familybank/internal/models"
	"familybank/internal/services"
	"familybank/internal/store"
)

type FamilyService interface {
	RegisterParent(ctx context.Context, req services.RegisterRequest) (models.Parent, error)
	Authenticate(ctx context.Context, email, password string) (models.User, error)
	CreateChild(ctx context.Context, parentID int64, req services.RegisterRequest) (models.Child, error)
	DepositToChild(ctx context.Context, parentID, childID, amount int64) (services.ChildDepositResult, error)
	Profile(ctx context.Context, userID int64) (services.ProfileView, error)
	Balance(ctx context.Context, role models.Role, userID int64) (models.Account, error)
	Children(ctx context.Context, parentID int64) ([]store.ChildWithBalance, error)
	Transactions(ctx context.Context, role models.Role, userID int64, limit, offset int) ([]models.Transaction, error)
	SelfCheck(ctx context.Context, role models.Role, userID int64) ([]store.AccountBalanceSummary, error)
}

type GoalService interface {
	CreateGoal(ctx context.Context, req services.CreateGoalRequest) (models.GoalWithBalance, error)
	Deposit(ctx context.Context, goalID, childID, amount int64) (services.DepositResult, error)
	BreakGoal(ctx context.Context, goalID, childID int64) (services.BreakResult, error)
	ListGoals(ctx context.Context, childID int64) ([]models.GoalWithBalance, error)
}

type TaskService interface {
	CreateTask(ctx context.Context, req services.CreateTaskRequest) (models.Task, error)
	Complete(ctx context.Context, taskID, childID int64) (models.Task, error)
	Verify(ctx context.Context, taskID, parentID int64, accept bool) (models.Task, error)
	ListForParent(ctx context.Context, parentID int64, childID *int64) ([]models.Task, error)
	ListForChild(ctx context.Context, childID int64) ([]models.Task, error)
}

type LoyaltyService interface {
	Convert(ctx context.Context, childID int64, points int) (services.ConvertResult, error)
	Redeem(ctx context.Context, childID, rewardID int64) (services.RedeemResult, error)
	History(ctx context.Context, childID int64) ([]models.LoyaltyTransaction, error)
	Rewards(ctx context.Context) ([]models.Reward, error)
}
