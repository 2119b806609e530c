package handlers

import (
	"time"

	"familybank/internal/models"
	"familybank/internal/money"
	"familybank/internal/store"
)

func profileView(p models.Profile) map[string]any {
	return map[string]any{
		"id":         p.ID,
		"email":      p.Email,
		"first_name": p.FirstName,
		"last_name":  p.LastName,
		"picture":    p.Picture,
		"role":       p.Role,
		"created_at": p.CreatedAt,
	}
}

func memberView(member models.Member) map[string]any {
	view := profileView(member.Base())
	if child, ok := member.(models.Child); ok {
		view["parent_id"] = child.ParentID
		view["loyalty_points"] = child.LoyaltyPoints
	}
	return view
}

func childView(row store.ChildWithBalance) map[string]any {
	view := memberView(row.User.Member())
	view["balance"] = money.FormatMinor(row.Balance)
	return view
}

func goalView(goal models.SavingsGoal, balance int64) map[string]any {
	return map[string]any{
		"id":             goal.ID,
		"child_id":       goal.ChildID,
		"name":           goal.Name,
		"target_amount":  money.FormatMinor(goal.TargetAmount),
		"balance":        money.FormatMinor(balance),
		"status":         goal.Status,
		"picture":        goal.Picture,
		"date_created":   goal.DateCreated,
		"date_completed": dateOrNil(goal.DateCompleted),
	}
}

func taskView(task models.Task) map[string]any {
	return map[string]any{
		"id":             task.ID,
		"parent_id":      task.ParentID,
		"child_id":       task.ChildID,
		"name":           task.Name,
		"description":    task.Description,
		"picture":        task.Picture,
		"reward_amount":  money.FormatMinor(task.RewardAmount),
		"status":         task.Status,
		"date_created":   task.DateCreated,
		"date_completed": dateOrNil(task.DateCompleted),
	}
}

func transactionView(tx models.Transaction) map[string]any {
	return map[string]any{
		"id":                  tx.ID,
		"amount":              money.FormatMinor(tx.Amount),
		"currency":            money.Currency,
		"sender_account_id":   tx.SenderAccountID,
		"sender_kind":         tx.SenderKind,
		"receiver_account_id": tx.ReceiverAccountID,
		"receiver_kind":       tx.ReceiverKind,
		"description":         tx.Description,
		"created_at":          tx.CreatedAt,
	}
}

func rewardView(reward models.Reward) map[string]any {
	return map[string]any{
		"id":          reward.ID,
		"name":        reward.Name,
		"description": reward.Description,
		"price":       reward.Price,
		"picture":     reward.Picture,
	}
}

func dateOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func mapSlice[T any](items []T, fn func(T) map[string]any) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, fn(item))
	}
	return out
}
