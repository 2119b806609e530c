package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"familybank/internal/db"
	"familybank/internal/models"
	"familybank/internal/money"
	"familybank/internal/services"
	"familybank/internal/store"
)

func init() {
	rootCmd.AddCommand(seedCmd, fundRewardsCmd, addRewardCmd)

	fundRewardsCmd.Flags().String("amount", "", "Amount in "+money.Currency+" to add to the reward system account")
	_ = fundRewardsCmd.MarkFlagRequired("amount")

	addRewardCmd.Flags().String("name", "", "Reward name")
	addRewardCmd.Flags().String("description", "", "Reward description")
	addRewardCmd.Flags().Int("price", 0, "Price in loyalty points")
	addRewardCmd.Flags().String("picture", "", "Picture URL")
	_ = addRewardCmd.MarkFlagRequired("name")
	_ = addRewardCmd.MarkFlagRequired("price")
}

func newLedger() *services.Ledger {
	return services.NewLedger(
		store.NewAccountStore(env.db),
		store.NewTransactionStore(env.db),
		store.NewLedgerStore(env.db),
	)
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the reward system account if it does not exist",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ledger := newLedger()
		var account models.Account
		err := db.NewTxRunner(env.db).WithTx(cmd.Context(), func(tx *sqlx.Tx) error {
			var err error
			account, err = ledger.Provision(cmd.Context(), tx, models.RewardSystemKey(), 0, "")
			return err
		})
		if errors.Is(err, services.ErrAccountExists) {
			slog.Info("reward system account already exists")
			return nil
		}
		if err != nil {
			return err
		}
		slog.Info("reward system account created", "account_id", account.ID)
		return nil
	},
}

var fundRewardsCmd = &cobra.Command{
	Use:   "fund-rewards",
	Short: "Top up the reward system account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetString("amount")
		amount, err := money.ParseMinor(raw)
		if err != nil || amount <= 0 {
			return fmt.Errorf("invalid amount %q", raw)
		}
		ledger := newLedger()
		var account models.Account
		err = db.NewTxRunner(env.db).WithTx(cmd.Context(), func(tx *sqlx.Tx) error {
			var err error
			account, err = ledger.Fund(cmd.Context(), tx, models.RewardSystemKey(), amount, "Reward system funding")
			return err
		})
		if errors.Is(err, services.ErrAccountNotProvisioned) {
			return fmt.Errorf("reward system account missing, run seed first: %w", err)
		}
		if err != nil {
			return err
		}
		slog.Info("reward system funded", "added", money.Display(amount), "balance", money.Display(account.Balance))
		summary, err := ledger.Reconcile(cmd.Context(), models.RewardSystemKey())
		if err != nil {
			return err
		}
		if summary.Difference != 0 {
			slog.Warn("reward system account does not match its ledger", "stored", summary.StoredBalance, "calculated", summary.CalculatedBalance)
		}
		return nil
	},
}

var addRewardCmd = &cobra.Command{
	Use:   "add-reward",
	Short: "Add an item to the reward catalogue",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		description, _ := cmd.Flags().GetString("description")
		picture, _ := cmd.Flags().GetString("picture")
		price, _ := cmd.Flags().GetInt("price")
		if name == "" || price <= 0 {
			return errors.New("reward needs a name and a positive price")
		}
		reward, err := store.NewRewardStore(env.db).Create(cmd.Context(), env.db, store.RewardInput{
			Name:        name,
			Description: optional(description),
			Price:       price,
			Picture:     optional(picture),
		})
		if err != nil {
			return err
		}
		slog.Info("reward added", "id", reward.ID, "name", reward.Name, "price", reward.Price)
		return nil
	},
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
