package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"familybank/internal/db"
	"familybank/internal/metrics"
	"familybank/internal/models"
	"familybank/internal/money"
	"familybank/internal/store"
)

const (
	MinGoalTarget int64 = 2000
	MaxGoalTarget int64 = 50000
)

type GoalService struct {
	txRunner db.TxRunner
	ledger   *Ledger
	goals    GoalStore
	users    UserStore
	loyalty  LoyaltyStore
	hub      BalanceHub
	now      func() time.Time
}

func NewGoalService(txRunner db.TxRunner, ledger *Ledger, goals GoalStore, users UserStore, loyalty LoyaltyStore, hub BalanceHub) *GoalService {
	return &GoalService{
		txRunner: txRunner,
		ledger:   ledger,
		goals:    goals,
		users:    users,
		loyalty:  loyalty,
		hub:      hub,
		now:      time.Now,
	}
}

type CreateGoalRequest struct {
	ChildID      int64
	Name         string
	TargetAmount int64
	Picture      *string
}

// CreateGoal inserts the goal, provisions its empty account and links the
// two in one transaction.
func (s *GoalService) CreateGoal(ctx context.Context, req CreateGoalRequest) (models.GoalWithBalance, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return models.GoalWithBalance{}, invalid("name", "is required")
	}
	if req.TargetAmount < MinGoalTarget || req.TargetAmount > MaxGoalTarget {
		return models.GoalWithBalance{}, invalid("target_amount",
			fmt.Sprintf("must be between %s and %s", money.FormatMinor(MinGoalTarget), money.FormatMinor(MaxGoalTarget)))
	}
	var goal models.SavingsGoal
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := loadChild(ctx, s.users, tx, req.ChildID); err != nil {
			return err
		}
		created, err := s.goals.Create(ctx, tx, store.GoalInput{
			ChildID:      req.ChildID,
			Name:         name,
			TargetAmount: req.TargetAmount,
			Picture:      req.Picture,
		})
		if err != nil {
			return fmt.Errorf("insert goal: %w", err)
		}
		account, err := s.ledger.Provision(ctx, tx, models.GoalKey(created.ID), 0, "")
		if err != nil {
			return err
		}
		if err := s.goals.LinkAccount(ctx, tx, created.ID, account.ID); err != nil {
			return fmt.Errorf("link goal account: %w", err)
		}
		created.AccountID = &account.ID
		goal = created
		return nil
	})
	if err != nil {
		return models.GoalWithBalance{}, err
	}
	slog.Info("savings goal created", "goal_id", goal.ID, "child_id", goal.ChildID, "target", money.FormatMinor(goal.TargetAmount))
	return models.GoalWithBalance{SavingsGoal: goal}, nil
}

type DepositResult struct {
	Goal          models.SavingsGoal
	Balance       int64
	Requested     int64
	Deposited     int64
	Capped        bool
	Completed     bool
	PointsAwarded int
	ChildBalance  int64
}

// Message is the user-facing note for a capped deposit, empty otherwise.
func (r DepositResult) Message() string {
	if !r.Capped {
		return ""
	}
	return fmt.Sprintf("Deposit capped at %s to meet target", money.Display(r.Deposited))
}

// Deposit moves money from the child into the goal, capped at what the goal
// still needs. Reaching the target completes the goal, returns its whole
// balance to the child and awards floor(target/2) points.
func (s *GoalService) Deposit(ctx context.Context, goalID, childID, amount int64) (DepositResult, error) {
	if amount <= 0 {
		return DepositResult{}, ErrInvalidAmount
	}
	var result DepositResult
	var touched []models.Account
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		result = DepositResult{Requested: amount}
		touched = nil
		goal, err := s.lockOwnedGoal(ctx, tx, goalID, childID)
		if err != nil {
			return err
		}
		child, err := loadChild(ctx, s.users, tx, childID)
		if err != nil {
			return err
		}
		childKey, goalKey := models.ChildKey(childID), models.GoalKey(goal.ID)
		locked, err := s.ledger.Lock(ctx, tx, childKey, goalKey)
		if err != nil {
			return err
		}
		if err := checkGoalLink(goal, locked[goalKey]); err != nil {
			return err
		}
		remaining := goal.TargetAmount - locked[goalKey].Balance
		if remaining <= 0 {
			return fmt.Errorf("goal already at or above target: %w", ErrInvalidState)
		}
		deposit := amount
		if deposit > remaining {
			deposit = remaining
			result.Capped = true
		}
		if locked[childKey].Balance < deposit {
			return ErrInsufficientFunds
		}
		posting, err := s.ledger.Transfer(ctx, tx, TransferInput{
			From:        childKey,
			To:          goalKey,
			Amount:      deposit,
			Description: fmt.Sprintf("Deposit to savings goal '%s'", goal.Name),
		})
		if err != nil {
			return err
		}
		result.Deposited = deposit
		result.Balance = posting.Receiver.Balance
		result.ChildBalance = posting.Sender.Balance
		touched = []models.Account{posting.Sender, posting.Receiver}

		if posting.Receiver.Balance >= goal.TargetAmount {
			completedAt := s.now().UTC()
			if err := s.goals.UpdateStatus(ctx, tx, goal.ID, models.GoalCompleted, &completedAt); err != nil {
				return fmt.Errorf("complete goal: %w", err)
			}
			goal.Status = models.GoalCompleted
			goal.DateCompleted = &completedAt

			back, err := s.ledger.Transfer(ctx, tx, TransferInput{
				From:        goalKey,
				To:          childKey,
				Amount:      posting.Receiver.Balance,
				Description: fmt.Sprintf("Savings goal '%s' completed", goal.Name),
			})
			if err != nil {
				return err
			}
			points := money.HalfUnitsFloor(goal.TargetAmount)
			if points > 0 {
				if err := s.users.AdjustLoyaltyPoints(ctx, tx, child.ID, points); err != nil {
					return fmt.Errorf("award points: %w", err)
				}
				if err := s.loyalty.Create(ctx, tx, store.LoyaltyInput{
					ChildID: child.ID,
					Amount:  points,
					Type:    models.LoyaltyEarned,
					Description: fmt.Sprintf("Earned %d points for completing savings goal '%s' on %s",
						points, goal.Name, completedAt.Format("2006-01-02")),
				}); err != nil {
					return fmt.Errorf("record earned points: %w", err)
				}
			}
			result.Completed = true
			result.PointsAwarded = points
			result.Balance = back.Sender.Balance
			result.ChildBalance = back.Receiver.Balance
			touched = []models.Account{back.Sender, back.Receiver}
		}
		result.Goal = goal
		return nil
	})
	if err != nil {
		return DepositResult{}, err
	}
	publish(s.hub, childID, touched...)
	if result.Completed {
		metrics.GoalTransitions.WithLabelValues(string(models.GoalCompleted)).Inc()
		metrics.LoyaltyPoints.WithLabelValues(string(models.LoyaltyEarned)).Add(float64(result.PointsAwarded))
		slog.Info("savings goal completed", "goal_id", goalID, "child_id", childID, "points", result.PointsAwarded)
	}
	return result, nil
}

type BreakResult struct {
	Goal         models.SavingsGoal
	Returned     int64
	ChildBalance int64
}

func (r BreakResult) Message() string {
	if r.Returned == 0 {
		return "Savings goal broken with no funds to transfer"
	}
	return fmt.Sprintf("Transferred %s back to child account", money.Display(r.Returned))
}

// BreakGoal abandons an in-progress goal and returns whatever it holds.
func (s *GoalService) BreakGoal(ctx context.Context, goalID, childID int64) (BreakResult, error) {
	var result BreakResult
	var touched []models.Account
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		result = BreakResult{}
		touched = nil
		goal, err := s.lockOwnedGoal(ctx, tx, goalID, childID)
		if err != nil {
			return err
		}
		childKey, goalKey := models.ChildKey(childID), models.GoalKey(goal.ID)
		locked, err := s.ledger.Lock(ctx, tx, childKey, goalKey)
		if err != nil {
			return err
		}
		if err := checkGoalLink(goal, locked[goalKey]); err != nil {
			return err
		}
		result.ChildBalance = locked[childKey].Balance
		if balance := locked[goalKey].Balance; balance > 0 {
			posting, err := s.ledger.Transfer(ctx, tx, TransferInput{
				From:        goalKey,
				To:          childKey,
				Amount:      balance,
				Description: fmt.Sprintf("Savings goal '%s' broken", goal.Name),
			})
			if err != nil {
				return err
			}
			result.Returned = balance
			result.ChildBalance = posting.Receiver.Balance
			touched = []models.Account{posting.Sender, posting.Receiver}
		}
		brokenAt := s.now().UTC()
		if err := s.goals.UpdateStatus(ctx, tx, goal.ID, models.GoalBroken, &brokenAt); err != nil {
			return fmt.Errorf("break goal: %w", err)
		}
		goal.Status = models.GoalBroken
		goal.DateCompleted = &brokenAt
		result.Goal = goal
		return nil
	})
	if err != nil {
		return BreakResult{}, err
	}
	publish(s.hub, childID, touched...)
	metrics.GoalTransitions.WithLabelValues(string(models.GoalBroken)).Inc()
	slog.Info("savings goal broken", "goal_id", goalID, "child_id", childID, "returned", money.FormatMinor(result.Returned))
	return result, nil
}

func (s *GoalService) ListGoals(ctx context.Context, childID int64) ([]models.GoalWithBalance, error) {
	goals, err := s.goals.ListByChild(ctx, childID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return goals, nil
}

// lockOwnedGoal locks the goal row and checks it belongs to the child and is
// still open.
func (s *GoalService) lockOwnedGoal(ctx context.Context, tx store.Tx, goalID, childID int64) (models.SavingsGoal, error) {
	goal, err := s.goals.GetForUpdate(ctx, tx, goalID)
	if err != nil {
		return models.SavingsGoal{}, lookupErr(err, "savings goal")
	}
	if goal.ChildID != childID {
		return models.SavingsGoal{}, fmt.Errorf("savings goal %w", ErrNotFound)
	}
	if goal.Status.Terminal() {
		return models.SavingsGoal{}, fmt.Errorf("savings goal is %s: %w", goal.Status, ErrInvalidState)
	}
	if goal.AccountID == nil {
		return models.SavingsGoal{}, fmt.Errorf("savings goal %d: %w", goal.ID, ErrAccountNotProvisioned)
	}
	return goal, nil
}

func checkGoalLink(goal models.SavingsGoal, account models.Account) error {
	if goal.AccountID == nil || *goal.AccountID != account.ID {
		return fmt.Errorf("savings goal %d account link: %w", goal.ID, ErrAccountNotProvisioned)
	}
	return nil
}

// loadChild reads the user row and checks it is a child.
func loadChild(ctx context.Context, users UserStore, tx store.Tx, childID int64) (models.Child, error) {
	user, err := users.GetForUpdate(ctx, tx, childID)
	if err != nil {
		return models.Child{}, lookupErr(err, "child")
	}
	child, ok := user.Member().(models.Child)
	if !ok {
		return models.Child{}, fmt.Errorf("child %w", ErrNotFound)
	}
	return child, nil
}
