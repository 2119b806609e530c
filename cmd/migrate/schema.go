package main

import (
	"log/slog"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"familybank/migrations"
)

func init() {
	rootCmd.AddCommand(upCmd, downCmd, statusCmd)
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := prepareGoose(); err != nil {
			return err
		}
		if err := goose.UpContext(cmd.Context(), env.db.DB, "."); err != nil {
			return err
		}
		slog.Info("migrations applied")
		return nil
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := prepareGoose(); err != nil {
			return err
		}
		return goose.DownContext(cmd.Context(), env.db.DB, ".")
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the state of every migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := prepareGoose(); err != nil {
			return err
		}
		return goose.StatusContext(cmd.Context(), env.db.DB, ".")
	},
}

func prepareGoose() error {
	goose.SetBaseFS(migrations.FS)
	return goose.SetDialect("postgres")
}
