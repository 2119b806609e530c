package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"

	"familybank/internal/auth"
	"familybank/internal/db"
	"familybank/internal/models"
	"familybank/internal/money"
	"familybank/internal/store"
)

// MinChildDeposit is the smallest parent to child deposit, 0.01.
const MinChildDeposit int64 = 1

type FamilyService struct {
	txRunner       db.TxRunner
	ledger         *Ledger
	users          UserStore
	hub            BalanceHub
	openingBalance int64
}

func NewFamilyService(txRunner db.TxRunner, ledger *Ledger, users UserStore, hub BalanceHub, openingBalance int64) *FamilyService {
	return &FamilyService{
		txRunner:       txRunner,
		ledger:         ledger,
		users:          users,
		hub:            hub,
		openingBalance: openingBalance,
	}
}

type RegisterRequest struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Picture   *string
}

func (r RegisterRequest) normalize() (RegisterRequest, error) {
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	switch {
	case r.Email == "":
		return r, invalid("email", "is required")
	case r.Password == "":
		return r, invalid("password", "is required")
	case r.FirstName == "":
		return r, invalid("first_name", "is required")
	case r.LastName == "":
		return r, invalid("last_name", "is required")
	}
	return r, nil
}

// RegisterParent creates the parent and their account funded with the
// configured opening balance.
func (s *FamilyService) RegisterParent(ctx context.Context, req RegisterRequest) (models.Parent, error) {
	req, err := req.normalize()
	if err != nil {
		return models.Parent{}, err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return models.Parent{}, err
	}
	var parentID int64
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		id, err := s.users.Create(ctx, tx, store.UserInput{
			Email:        req.Email,
			PasswordHash: hash,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Picture:      req.Picture,
			Role:         models.RoleParent,
		})
		if err != nil {
			return userCreateErr(err)
		}
		if _, err := s.ledger.Provision(ctx, tx, models.ParentKey(id), s.openingBalance, "Opening balance"); err != nil {
			return err
		}
		parentID = id
		return nil
	})
	if err != nil {
		return models.Parent{}, err
	}
	user, err := s.users.GetByID(ctx, parentID)
	if err != nil {
		return models.Parent{}, lookupErr(err, "parent")
	}
	slog.Info("parent registered", "user_id", parentID, "opening_balance", money.FormatMinor(s.openingBalance))
	return models.Parent{Profile: user.Member().Base()}, nil
}

// Authenticate checks the credentials and returns the stored user.
func (s *FamilyService) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, fmt.Errorf("load user: %w", err)
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// CreateChild adds a child under the parent with an empty account.
func (s *FamilyService) CreateChild(ctx context.Context, parentID int64, req RegisterRequest) (models.Child, error) {
	req, err := req.normalize()
	if err != nil {
		return models.Child{}, err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return models.Child{}, err
	}
	var childID int64
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		parent, err := s.users.GetForUpdate(ctx, tx, parentID)
		if err != nil {
			return lookupErr(err, "parent")
		}
		if parent.Role != models.RoleParent {
			return fmt.Errorf("only parents add children: %w", ErrUnauthorized)
		}
		id, err := s.users.Create(ctx, tx, store.UserInput{
			Email:        req.Email,
			PasswordHash: hash,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Picture:      req.Picture,
			Role:         models.RoleChild,
			ParentID:     &parentID,
		})
		if err != nil {
			return userCreateErr(err)
		}
		if _, err := s.ledger.Provision(ctx, tx, models.ChildKey(id), 0, ""); err != nil {
			return err
		}
		childID = id
		return nil
	})
	if err != nil {
		return models.Child{}, err
	}
	user, err := s.users.GetByID(ctx, childID)
	if err != nil {
		return models.Child{}, lookupErr(err, "child")
	}
	child, ok := user.Member().(models.Child)
	if !ok {
		return models.Child{}, fmt.Errorf("child %w", ErrNotFound)
	}
	slog.Info("child created", "user_id", childID, "parent_id", parentID)
	return child, nil
}

type ChildDepositResult struct {
	Amount        int64
	ParentBalance int64
	ChildBalance  int64
}

// DepositToChild moves pocket money from the parent to one of their children.
func (s *FamilyService) DepositToChild(ctx context.Context, parentID, childID, amount int64) (ChildDepositResult, error) {
	if amount < MinChildDeposit {
		return ChildDepositResult{}, ErrInvalidAmount
	}
	var posting Posting
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		child, err := ownedChild(ctx, s.users, tx, parentID, childID)
		if err != nil {
			return err
		}
		posting, err = s.ledger.Transfer(ctx, tx, TransferInput{
			From:        models.ParentKey(parentID),
			To:          models.ChildKey(childID),
			Amount:      amount,
			Description: fmt.Sprintf("Deposit to %s", child.FirstName),
		})
		return err
	})
	if err != nil {
		return ChildDepositResult{}, err
	}
	publish(s.hub, parentID, posting.Sender)
	publish(s.hub, childID, posting.Receiver)
	slog.Info("parent deposit", "parent_id", parentID, "child_id", childID, "amount", money.FormatMinor(amount))
	return ChildDepositResult{
		Amount:        amount,
		ParentBalance: posting.Sender.Balance,
		ChildBalance:  posting.Receiver.Balance,
	}, nil
}

// ProfileView is a member with their own account balance.
type ProfileView struct {
	Member  models.Member
	Balance int64
}

func (s *FamilyService) Profile(ctx context.Context, userID int64) (ProfileView, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return ProfileView{}, lookupErr(err, "user")
	}
	member := user.Member()
	if member == nil {
		return ProfileView{}, fmt.Errorf("user %d has role %q: %w", userID, user.Role, ErrInvalidState)
	}
	account, err := s.ledger.Lookup(ctx, OwnerKeyFor(user.Role, user.ID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ProfileView{}, fmt.Errorf("user %d: %w", userID, ErrAccountNotProvisioned)
		}
		return ProfileView{}, err
	}
	return ProfileView{Member: member, Balance: account.Balance}, nil
}

func (s *FamilyService) Balance(ctx context.Context, role models.Role, userID int64) (models.Account, error) {
	account, err := s.ledger.Lookup(ctx, OwnerKeyFor(role, userID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.Account{}, fmt.Errorf("user %d: %w", userID, ErrAccountNotProvisioned)
		}
		return models.Account{}, err
	}
	return account, nil
}

func (s *FamilyService) Children(ctx context.Context, parentID int64) ([]store.ChildWithBalance, error) {
	children, err := s.users.ListChildren(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	return children, nil
}

func (s *FamilyService) Transactions(ctx context.Context, role models.Role, userID int64, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.ledger.History(ctx, OwnerKeyFor(role, userID), limit, offset)
}

func (s *FamilyService) SelfCheck(ctx context.Context, role models.Role, userID int64) ([]store.AccountBalanceSummary, error) {
	return s.ledger.SelfCheck(ctx, OwnerKeyFor(role, userID))
}

// OwnerKeyFor maps a signed-in user to the account they own.
func OwnerKeyFor(role models.Role, userID int64) models.OwnerKey {
	if role == models.RoleChild {
		return models.ChildKey(userID)
	}
	return models.ParentKey(userID)
}

func userCreateErr(err error) error {
	if store.IsUniqueViolation(err) {
		return fmt.Errorf("email %w", ErrDuplicate)
	}
	return fmt.Errorf("insert user: %w", err)
}
