package handlers

import (
	"context"
	"net/http"
	"testing"

	"familybank/internal/models"
	"familybank/internal/services"
)

func TestChildRoutesRejectParent(t *testing.T) {
	h := newTestHandler(testDeps{})
	rr := do(t, h, http.MethodGet, "/children/savings-goals", nil, 1, models.RoleParent)
	expectStatus(t, rr, http.StatusForbidden)
}

func TestCreateGoalTargetOutOfRange(t *testing.T) {
	h := newTestHandler(testDeps{goals: stubGoals{
		createFn: func(_ context.Context, req services.CreateGoalRequest) (models.GoalWithBalance, error) {
			if req.TargetAmount != 1000 {
				t.Fatalf("expected 1000 minor units, got %d", req.TargetAmount)
			}
			return models.GoalWithBalance{}, &services.ValidationError{Field: "target_amount", Message: "must be between 20.00 and 500.00"}
		},
	}})
	rr := do(t, h, http.MethodPost, "/children/savings-goals", map[string]any{"name": "Bike", "target_amount": "10"}, 2, models.RoleChild)
	expectStatus(t, rr, http.StatusBadRequest)
	fields := decodeBody(t, rr)["fields"].(map[string]any)
	if fields["target_amount"] != "must be between 20.00 and 500.00" {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestDepositToGoalCapped(t *testing.T) {
	h := newTestHandler(testDeps{goals: stubGoals{
		depositFn: func(_ context.Context, goalID, childID, amount int64) (services.DepositResult, error) {
			if goalID != 7 || childID != 2 || amount != 5000 {
				t.Fatalf("unexpected args %d %d %d", goalID, childID, amount)
			}
			return services.DepositResult{
				Goal:          models.SavingsGoal{ID: 7, Status: models.GoalCompleted, TargetAmount: 10000},
				Requested:     5000,
				Deposited:     2000,
				Capped:        true,
				Completed:     true,
				PointsAwarded: 50,
				ChildBalance:  20000,
			}, nil
		},
	}})
	rr := do(t, h, http.MethodPost, "/children/savings-goals/7/deposit", map[string]any{"amount": "50"}, 2, models.RoleChild)
	expectStatus(t, rr, http.StatusOK)
	payload := decodeBody(t, rr)
	if payload["message"] != "Deposit capped at 20.00 KWD to meet target" || payload["points_awarded"] != float64(50) {
		t.Fatalf("unexpected payload %v", payload)
	}
}

func TestDepositToGoalBadID(t *testing.T) {
	h := newTestHandler(testDeps{})
	rr := do(t, h, http.MethodPost, "/children/savings-goals/abc/deposit", map[string]any{"amount": "5"}, 2, models.RoleChild)
	expectStatus(t, rr, http.StatusBadRequest)
}

func TestBreakCompletedGoal(t *testing.T) {
	h := newTestHandler(testDeps{goals: stubGoals{
		breakFn: func(context.Context, int64, int64) (services.BreakResult, error) {
			return services.BreakResult{}, services.ErrInvalidState
		},
	}})
	rr := do(t, h, http.MethodPost, "/children/savings-goals/7/break", nil, 2, models.RoleChild)
	expectStatus(t, rr, http.StatusConflict)
}

func TestCompleteTask(t *testing.T) {
	h := newTestHandler(testDeps{tasks: stubTasks{
		completeFn: func(_ context.Context, taskID, childID int64) (models.Task, error) {
			return models.Task{ID: taskID, ChildID: childID, Status: models.TaskVerify}, nil
		},
	}})
	rr := do(t, h, http.MethodPut, "/children/tasks/4/complete", nil, 2, models.RoleChild)
	expectStatus(t, rr, http.StatusOK)
	if status := decodeBody(t, rr)["status"]; status != "Verify" {
		t.Fatalf("expected Verify, got %v", status)
	}
}
