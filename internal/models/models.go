package models

import "time"

type OwnerKind string

const (
	OwnerParent       OwnerKind = "Parent"
	OwnerChild        OwnerKind = "Child"
	OwnerSavingsGoal  OwnerKind = "SavingsGoal"
	OwnerRewardSystem OwnerKind = "RewardSystem"
)

// RewardSystemOwnerID is the fixed owner id of the process-wide reward account.
const RewardSystemOwnerID int64 = 0

func (k OwnerKind) Valid() bool {
	switch k {
	case OwnerParent, OwnerChild, OwnerSavingsGoal, OwnerRewardSystem:
		return true
	}
	return false
}

// OwnerKey identifies the single account an owner may hold.
type OwnerKey struct {
	Kind OwnerKind
	ID   int64
}

func ParentKey(parentID int64) OwnerKey { return OwnerKey{Kind: OwnerParent, ID: parentID} }
func ChildKey(childID int64) OwnerKey   { return OwnerKey{Kind: OwnerChild, ID: childID} }
func GoalKey(goalID int64) OwnerKey     { return OwnerKey{Kind: OwnerSavingsGoal, ID: goalID} }
func RewardSystemKey() OwnerKey {
	return OwnerKey{Kind: OwnerRewardSystem, ID: RewardSystemOwnerID}
}

type Account struct {
	ID        int64     `db:"id" json:"id"`
	OwnerKind OwnerKind `db:"owner_kind" json:"owner_kind"`
	OwnerID   int64     `db:"owner_id" json:"owner_id"`
	Balance   int64     `db:"balance" json:"balance"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func (a Account) Key() OwnerKey {
	return OwnerKey{Kind: a.OwnerKind, ID: a.OwnerID}
}

type Transaction struct {
	ID                int64     `db:"id" json:"id"`
	Amount            int64     `db:"amount" json:"amount"`
	SenderAccountID   int64     `db:"sender_account_id" json:"sender_account_id"`
	SenderKind        OwnerKind `db:"sender_kind" json:"sender_kind"`
	ReceiverAccountID int64     `db:"receiver_account_id" json:"receiver_account_id"`
	ReceiverKind      OwnerKind `db:"receiver_kind" json:"receiver_kind"`
	Description       string    `db:"description" json:"description"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

type LedgerEntry struct {
	ID            int64     `db:"id" json:"id"`
	TransactionID *int64    `db:"transaction_id" json:"transaction_id,omitempty"`
	AccountID     int64     `db:"account_id" json:"account_id"`
	Amount        int64     `db:"amount" json:"amount"`
	Description   string    `db:"description" json:"description"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

type Role string

const (
	RoleParent Role = "Parent"
	RoleChild  Role = "Child"
)

func (r Role) Valid() bool {
	return r == RoleParent || r == RoleChild
}

// User is the stored row shared by both roles. Callers that care about the
// role-specific fields go through Member.
type User struct {
	ID            int64     `db:"id"`
	Email         string    `db:"email"`
	PasswordHash  string    `db:"password_hash"`
	FirstName     string    `db:"first_name"`
	LastName      string    `db:"last_name"`
	Picture       *string   `db:"picture"`
	Role          Role      `db:"role"`
	ParentID      *int64    `db:"parent_id"`
	LoyaltyPoints int       `db:"loyalty_points"`
	CreatedAt     time.Time `db:"created_at"`
}

type Profile struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Picture   *string   `json:"picture,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Member is either a Parent or a Child.
type Member interface {
	Base() Profile
}

type Parent struct {
	Profile
}

type Child struct {
	Profile
	ParentID      int64 `json:"parent_id"`
	LoyaltyPoints int   `json:"loyalty_points"`
}

func (p Parent) Base() Profile { return p.Profile }
func (c Child) Base() Profile  { return c.Profile }

// Member returns the role-specific view of the row, or nil for an unknown role.
func (u User) Member() Member {
	profile := Profile{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Picture:   u.Picture,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
	switch u.Role {
	case RoleParent:
		return Parent{Profile: profile}
	case RoleChild:
		child := Child{Profile: profile, LoyaltyPoints: u.LoyaltyPoints}
		if u.ParentID != nil {
			child.ParentID = *u.ParentID
		}
		return child
	}
	return nil
}

type GoalStatus string

const (
	GoalInProgress GoalStatus = "InProgress"
	GoalCompleted  GoalStatus = "Completed"
	GoalBroken     GoalStatus = "Broken"
)

func (s GoalStatus) Terminal() bool {
	return s == GoalCompleted || s == GoalBroken
}

type SavingsGoal struct {
	ID            int64      `db:"id" json:"id"`
	ChildID       int64      `db:"child_id" json:"child_id"`
	Name          string     `db:"name" json:"name"`
	TargetAmount  int64      `db:"target_amount" json:"target_amount"`
	Status        GoalStatus `db:"status" json:"status"`
	AccountID     *int64     `db:"account_id" json:"account_id,omitempty"`
	Picture       *string    `db:"picture" json:"picture,omitempty"`
	DateCreated   time.Time  `db:"date_created" json:"date_created"`
	DateCompleted *time.Time `db:"date_completed" json:"date_completed,omitempty"`
}

// GoalWithBalance is a goal joined to its account; Balance is zero when the
// account is not provisioned yet.
type GoalWithBalance struct {
	SavingsGoal
	Balance int64 `db:"balance" json:"balance"`
}

type TaskStatus string

const (
	TaskOngoing   TaskStatus = "Ongoing"
	TaskVerify    TaskStatus = "Verify"
	TaskCompleted TaskStatus = "Completed"
	TaskRejected  TaskStatus = "Rejected"
)

type Task struct {
	ID            int64      `db:"id" json:"id"`
	ParentID      int64      `db:"parent_id" json:"parent_id"`
	ChildID       int64      `db:"child_id" json:"child_id"`
	Name          string     `db:"name" json:"name"`
	Description   *string    `db:"description" json:"description,omitempty"`
	Picture       *string    `db:"picture" json:"picture,omitempty"`
	RewardAmount  int64      `db:"reward_amount" json:"reward_amount"`
	Status        TaskStatus `db:"status" json:"status"`
	DateCreated   time.Time  `db:"date_created" json:"date_created"`
	DateCompleted *time.Time `db:"date_completed" json:"date_completed,omitempty"`
}

type LoyaltyType string

const (
	LoyaltyEarned LoyaltyType = "Earned"
	LoyaltySpent  LoyaltyType = "Spent"
)

type LoyaltyTransaction struct {
	ID          int64       `db:"id" json:"id"`
	ChildID     int64       `db:"child_id" json:"child_id"`
	Amount      int         `db:"amount" json:"amount"`
	Type        LoyaltyType `db:"type" json:"type"`
	Description string      `db:"description" json:"description"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

type Reward struct {
	ID          int64   `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	Description *string `db:"description" json:"description,omitempty"`
	Price       int     `db:"price" json:"price"`
	Picture     *string `db:"picture" json:"picture,omitempty"`
}
