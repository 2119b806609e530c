package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"familybank/internal/config"
	"familybank/internal/filestore"
	"familybank/internal/middleware"
	"familybank/internal/models"
	"familybank/internal/websocket"
)

type Handler struct {
	cfg     config.Config
	family  FamilyService
	goals   GoalService
	tasks   TaskService
	loyalty LoyaltyService
	files   filestore.Store
	hub     *websocket.Hub
}

func New(cfg config.Config, family FamilyService, goals GoalService, tasks TaskService, loyalty LoyaltyService, files filestore.Store, hub *websocket.Hub) *Handler {
	return &Handler{
		cfg:     cfg,
		family:  family,
		goals:   goals,
		tasks:   tasks,
		loyalty: loyalty,
		files:   files,
		hub:     hub,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Metrics)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(h.cfg.AllowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	authn := middleware.Auth(h.cfg.JWTSecret)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
	})
	router.Group(func(r chi.Router) {
		r.Use(authn)
		r.Get("/users/profile", h.Profile)
		r.Get("/users/balance", h.Balance)
		r.Get("/transactions", h.ListTransactions)
		r.Get("/accounts/self-check", h.SelfCheck)
		r.Get("/rewards", h.ListRewards)
	})
	router.Route("/parents", func(r chi.Router) {
		r.Use(authn, middleware.RequireRole(models.RoleParent))
		r.Post("/children", h.CreateChild)
		r.Get("/children", h.ListChildren)
		r.Post("/deposit", h.DepositToChild)
		r.Post("/tasks", h.CreateTask)
		r.Get("/tasks", h.ListParentTasks)
		r.Post("/tasks/{taskID}/verify", h.VerifyTask)
	})
	router.Route("/children", func(r chi.Router) {
		r.Use(authn, middleware.RequireRole(models.RoleChild))
		r.Get("/tasks", h.ListChildTasks)
		r.Put("/tasks/{taskID}/complete", h.CompleteTask)
		r.Get("/savings-goals", h.ListGoals)
		r.Post("/savings-goals", h.CreateGoal)
		r.Post("/savings-goals/{goalID}/deposit", h.DepositToGoal)
		r.Post("/savings-goals/{goalID}/break", h.BreakGoal)
		r.Get("/loyalty-transactions", h.LoyaltyHistory)
		r.Post("/loyalty/convert", h.ConvertPoints)
		r.Post("/rewards/{rewardID}/redeem", h.RedeemReward)
	})
	router.Get("/ws/balances", h.WSBalances)
	router.Handle("/metrics", promhttp.Handler())
	if local, ok := h.files.(*filestore.LocalStore); ok {
		router.Handle(filestore.PublicPrefix+"*", http.StripPrefix(filestore.PublicPrefix, http.FileServer(http.Dir(local.Root()))))
	}

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}
