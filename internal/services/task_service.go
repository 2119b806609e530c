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
	"familybank/internal/store"
)

type TaskService struct {
	txRunner db.TxRunner
	ledger   *Ledger
	tasks    TaskStore
	users    UserStore
	hub      BalanceHub
	now      func() time.Time
}

func NewTaskService(txRunner db.TxRunner, ledger *Ledger, tasks TaskStore, users UserStore, hub BalanceHub) *TaskService {
	return &TaskService{
		txRunner: txRunner,
		ledger:   ledger,
		tasks:    tasks,
		users:    users,
		hub:      hub,
		now:      time.Now,
	}
}

type CreateTaskRequest struct {
	ParentID     int64
	ChildID      int64
	Name         string
	Description  *string
	RewardAmount int64
	Picture      *string
}

func (s *TaskService) CreateTask(ctx context.Context, req CreateTaskRequest) (models.Task, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return models.Task{}, invalid("name", "is required")
	}
	if req.RewardAmount < 0 {
		return models.Task{}, invalid("reward_amount", "must not be negative")
	}
	var task models.Task
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := ownedChild(ctx, s.users, tx, req.ParentID, req.ChildID); err != nil {
			return err
		}
		created, err := s.tasks.Create(ctx, tx, store.TaskInput{
			ParentID:     req.ParentID,
			ChildID:      req.ChildID,
			Name:         name,
			Description:  req.Description,
			Picture:      req.Picture,
			RewardAmount: req.RewardAmount,
		})
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		task = created
		return nil
	})
	if err != nil {
		return models.Task{}, err
	}
	metrics.TaskTransitions.WithLabelValues(string(models.TaskOngoing)).Inc()
	slog.Info("task created", "task_id", task.ID, "parent_id", task.ParentID, "child_id", task.ChildID)
	return task, nil
}

// Complete is the child's claim that the task is done; it waits for the
// parent in Verify.
func (s *TaskService) Complete(ctx context.Context, taskID, childID int64) (models.Task, error) {
	var task models.Task
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		locked, err := s.tasks.GetForUpdate(ctx, tx, taskID)
		if err != nil {
			return lookupErr(err, "task")
		}
		if locked.ChildID != childID {
			return fmt.Errorf("task %w", ErrNotFound)
		}
		if locked.Status != models.TaskOngoing {
			return fmt.Errorf("task is %s: %w", locked.Status, ErrInvalidState)
		}
		completedAt := s.now().UTC()
		if err := s.tasks.UpdateStatus(ctx, tx, locked.ID, models.TaskVerify, &completedAt); err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		locked.Status = models.TaskVerify
		locked.DateCompleted = &completedAt
		task = locked
		return nil
	})
	if err != nil {
		return models.Task{}, err
	}
	metrics.TaskTransitions.WithLabelValues(string(models.TaskVerify)).Inc()
	slog.Info("task awaiting verification", "task_id", task.ID, "child_id", childID)
	return task, nil
}

// Verify settles a task in Verify. Accepting pays the reward from the parent
// to the child; if the parent cannot cover it nothing changes.
func (s *TaskService) Verify(ctx context.Context, taskID, parentID int64, accept bool) (models.Task, error) {
	var task models.Task
	var touched []models.Account
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		touched = nil
		locked, err := s.tasks.GetForUpdate(ctx, tx, taskID)
		if err != nil {
			return lookupErr(err, "task")
		}
		if locked.ParentID != parentID {
			return fmt.Errorf("task %w", ErrNotFound)
		}
		if locked.Status != models.TaskVerify {
			return fmt.Errorf("task is %s: %w", locked.Status, ErrInvalidState)
		}
		if !accept {
			if err := s.tasks.UpdateStatus(ctx, tx, locked.ID, models.TaskRejected, locked.DateCompleted); err != nil {
				return fmt.Errorf("reject task: %w", err)
			}
			locked.Status = models.TaskRejected
			task = locked
			return nil
		}
		if _, err := loadChild(ctx, s.users, tx, locked.ChildID); err != nil {
			return err
		}
		if locked.RewardAmount > 0 {
			posting, err := s.ledger.Transfer(ctx, tx, TransferInput{
				From:        models.ParentKey(parentID),
				To:          models.ChildKey(locked.ChildID),
				Amount:      locked.RewardAmount,
				Description: fmt.Sprintf("Reward for task '%s'", locked.Name),
			})
			if err != nil {
				return err
			}
			touched = []models.Account{posting.Sender, posting.Receiver}
		}
		completedAt := s.now().UTC()
		if err := s.tasks.UpdateStatus(ctx, tx, locked.ID, models.TaskCompleted, &completedAt); err != nil {
			return fmt.Errorf("complete task: %w", err)
		}
		locked.Status = models.TaskCompleted
		locked.DateCompleted = &completedAt
		task = locked
		return nil
	})
	if err != nil {
		return models.Task{}, err
	}
	for _, account := range touched {
		owner := parentID
		if account.OwnerKind == models.OwnerChild {
			owner = account.OwnerID
		}
		publish(s.hub, owner, account)
	}
	metrics.TaskTransitions.WithLabelValues(string(task.Status)).Inc()
	slog.Info("task verified", "task_id", task.ID, "parent_id", parentID, "status", task.Status)
	return task, nil
}

func (s *TaskService) ListForParent(ctx context.Context, parentID int64, childID *int64) ([]models.Task, error) {
	tasks, err := s.tasks.ListByParent(ctx, parentID, childID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) ListForChild(ctx context.Context, childID int64) ([]models.Task, error) {
	tasks, err := s.tasks.ListByChild(ctx, childID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// ownedChild loads a child and checks it belongs to the parent. A child of
// another parent is reported as missing.
func ownedChild(ctx context.Context, users UserStore, tx store.Tx, parentID, childID int64) (models.Child, error) {
	child, err := loadChild(ctx, users, tx, childID)
	if err != nil {
		return models.Child{}, err
	}
	if child.ParentID != parentID {
		return models.Child{}, fmt.Errorf("child %w", ErrNotFound)
	}
	return child, nil
}
