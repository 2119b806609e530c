package store

import (
	"context"

	"familybank/internal/models"
)

type UserStore struct {
	db DB
}

type UserInput struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Picture      *string
	Role         models.Role
	ParentID     *int64
}

// ChildWithBalance is a child row joined to its account balance.
type ChildWithBalance struct {
	models.User
	Balance int64 `db:"balance"`
}

func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, email, password_hash, first_name, last_name, picture, role, parent_id, loyalty_points, created_at`

func (s *UserStore) Create(ctx context.Context, tx Getter, input UserInput) (int64, error) {
	var id int64
	err := tx.GetContext(ctx, &id, `
		INSERT INTO users (email, password_hash, first_name, last_name, picture, role, parent_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, input.Email, input.PasswordHash, input.FirstName, input.LastName, input.Picture, input.Role, input.ParentID)
	return id, err
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var row models.User
	err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return row, err
}

func (s *UserStore) GetByID(ctx context.Context, userID int64) (models.User, error) {
	var row models.User
	err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return row, err
}

func (s *UserStore) GetForUpdate(ctx context.Context, tx Getter, userID int64) (models.User, error) {
	var row models.User
	err := tx.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, userID)
	return row, err
}

func (s *UserStore) ListChildren(ctx context.Context, parentID int64) ([]ChildWithBalance, error) {
	var rows []ChildWithBalance
	err := s.db.SelectContext(ctx, &rows, `
		SELECT u.id, u.email, u.password_hash, u.first_name, u.last_name, u.picture, u.role,
		       u.parent_id, u.loyalty_points, u.created_at,
		       COALESCE(a.balance, 0) AS balance
		FROM users u
		LEFT JOIN accounts a ON a.owner_kind = 'Child' AND a.owner_id = u.id
		WHERE u.role = 'Child' AND u.parent_id = $1
		ORDER BY u.id
	`, parentID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// AdjustLoyaltyPoints applies delta to a child's points; the CHECK on the
// column rejects a negative result.
func (s *UserStore) AdjustLoyaltyPoints(ctx context.Context, tx Execer, childID int64, delta int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE users
		SET loyalty_points = loyalty_points + $1
		WHERE id = $2 AND role = 'Child'
	`, delta, childID)
	return expectOneRow(res, err)
}
