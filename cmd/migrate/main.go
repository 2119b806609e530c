package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"familybank/internal/config"
	"familybank/internal/db"
	"familybank/internal/logging"
)

// env is filled in by the root command before any subcommand runs.
var env struct {
	cfg config.Config
	db  *sqlx.DB
}

var rootCmd = &cobra.Command{
	Use:           "migrate",
	Short:         "Manage the family bank database",
	Long:          "Apply schema migrations and seed the reward system account and catalogue.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logging.Setup(cfg.LogLevel)
		database, err := db.Connect(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		env.cfg = cfg
		env.db = database
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if env.db == nil {
			return nil
		}
		return env.db.Close()
	},
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
