package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"familybank/internal/config"
	"familybank/internal/db"
	"familybank/internal/filestore"
	"familybank/internal/handlers"
	"familybank/internal/logging"
	"familybank/internal/models"
	"familybank/internal/services"
	"familybank/internal/store"
	"familybank/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel)

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	users := store.NewUserStore(database)
	accounts := store.NewAccountStore(database)
	entries := store.NewLedgerStore(database)
	transactions := store.NewTransactionStore(database)
	goals := store.NewGoalStore(database)
	tasks := store.NewTaskStore(database)
	loyalty := store.NewLoyaltyStore(database)
	rewards := store.NewRewardStore(database)
	txRunner := db.NewTxRunner(database)
	hub := websocket.NewHub()

	ledger := services.NewLedger(accounts, transactions, entries)
	family := services.NewFamilyService(txRunner, ledger, users, hub, cfg.ParentOpeningBalance)
	goalService := services.NewGoalService(txRunner, ledger, goals, users, loyalty, hub)
	taskService := services.NewTaskService(txRunner, ledger, tasks, users, hub)
	loyaltyService := services.NewLoyaltyService(txRunner, ledger, users, loyalty, rewards, hub)

	if _, err := ledger.Lookup(context.Background(), models.RewardSystemKey()); err != nil {
		logger.Warn("reward system account unavailable; point conversion will fail until it is seeded", "error", err)
	}

	handler := handlers.New(cfg, family, goalService, taskService, loyaltyService, filestore.New(cfg), hub)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("family bank API listening", "addr", server.Addr, "env", cfg.AppEnv)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
