package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"familybank/internal/db"
	"familybank/internal/metrics"
	"familybank/internal/models"
	"familybank/internal/money"
	"familybank/internal/store"
)

type LoyaltyService struct {
	txRunner db.TxRunner
	ledger   *Ledger
	users    UserStore
	loyalty  LoyaltyStore
	rewards  RewardStore
	hub      BalanceHub
}

func NewLoyaltyService(txRunner db.TxRunner, ledger *Ledger, users UserStore, loyalty LoyaltyStore, rewards RewardStore, hub BalanceHub) *LoyaltyService {
	return &LoyaltyService{
		txRunner: txRunner,
		ledger:   ledger,
		users:    users,
		loyalty:  loyalty,
		rewards:  rewards,
		hub:      hub,
	}
}

type ConvertResult struct {
	PointsConverted int
	MoneyReceived   int64
	RemainingPoints int
	NewBalance      int64
}

// Convert exchanges points for money paid out of the reward account.
func (s *LoyaltyService) Convert(ctx context.Context, childID int64, points int) (ConvertResult, error) {
	if points <= 0 {
		return ConvertResult{}, invalid("points", "must be positive")
	}
	if points%money.PointsPerUnit != 0 {
		return ConvertResult{}, invalid("points", fmt.Sprintf("must be a multiple of %d", money.PointsPerUnit))
	}
	amount := money.PointsToMinor(points)
	var result ConvertResult
	var received models.Account
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		child, err := loadChild(ctx, s.users, tx, childID)
		if err != nil {
			return err
		}
		if child.LoyaltyPoints < points {
			return fmt.Errorf("child has %d points: %w", child.LoyaltyPoints, ErrInsufficientFunds)
		}
		if err := s.users.AdjustLoyaltyPoints(ctx, tx, childID, -points); err != nil {
			return fmt.Errorf("spend points: %w", err)
		}
		if err := s.loyalty.Create(ctx, tx, store.LoyaltyInput{
			ChildID:     childID,
			Amount:      points,
			Type:        models.LoyaltySpent,
			Description: fmt.Sprintf("Converted %d points to %s", points, money.Display(amount)),
		}); err != nil {
			return fmt.Errorf("record spent points: %w", err)
		}
		posting, err := s.ledger.Transfer(ctx, tx, TransferInput{
			From:        models.RewardSystemKey(),
			To:          models.ChildKey(childID),
			Amount:      amount,
			Description: fmt.Sprintf("Converted %d loyalty points", points),
		})
		if err != nil {
			return err
		}
		received = posting.Receiver
		result = ConvertResult{
			PointsConverted: points,
			MoneyReceived:   amount,
			RemainingPoints: child.LoyaltyPoints - points,
			NewBalance:      posting.Receiver.Balance,
		}
		return nil
	})
	if err != nil {
		return ConvertResult{}, err
	}
	publish(s.hub, childID, received)
	metrics.LoyaltyPoints.WithLabelValues(string(models.LoyaltySpent)).Add(float64(points))
	slog.Info("loyalty points converted", "child_id", childID, "points", points, "amount", money.FormatMinor(amount))
	return result, nil
}

type RedeemResult struct {
	Reward          models.Reward
	PointsSpent     int
	RemainingPoints int
}

// Redeem spends points on a catalogue reward. No money moves.
func (s *LoyaltyService) Redeem(ctx context.Context, childID, rewardID int64) (RedeemResult, error) {
	reward, err := s.rewards.GetByID(ctx, rewardID)
	if err != nil {
		return RedeemResult{}, lookupErr(err, "reward")
	}
	var result RedeemResult
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		child, err := loadChild(ctx, s.users, tx, childID)
		if err != nil {
			return err
		}
		if child.LoyaltyPoints < reward.Price {
			return fmt.Errorf("reward costs %d points: %w", reward.Price, ErrInsufficientFunds)
		}
		if err := s.users.AdjustLoyaltyPoints(ctx, tx, childID, -reward.Price); err != nil {
			return fmt.Errorf("spend points: %w", err)
		}
		if err := s.loyalty.Create(ctx, tx, store.LoyaltyInput{
			ChildID:     childID,
			Amount:      reward.Price,
			Type:        models.LoyaltySpent,
			Description: fmt.Sprintf("Redeemed %d points for reward '%s'", reward.Price, reward.Name),
		}); err != nil {
			return fmt.Errorf("record spent points: %w", err)
		}
		result = RedeemResult{
			Reward:          reward,
			PointsSpent:     reward.Price,
			RemainingPoints: child.LoyaltyPoints - reward.Price,
		}
		return nil
	})
	if err != nil {
		return RedeemResult{}, err
	}
	metrics.LoyaltyPoints.WithLabelValues(string(models.LoyaltySpent)).Add(float64(reward.Price))
	slog.Info("reward redeemed", "child_id", childID, "reward_id", rewardID, "points", reward.Price)
	return result, nil
}

func (s *LoyaltyService) History(ctx context.Context, childID int64) ([]models.LoyaltyTransaction, error) {
	rows, err := s.loyalty.ListByChild(ctx, childID)
	if err != nil {
		return nil, fmt.Errorf("list loyalty transactions: %w", err)
	}
	return rows, nil
}

func (s *LoyaltyService) Rewards(ctx context.Context) ([]models.Reward, error) {
	rewards, err := s.rewards.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	return rewards, nil
}
