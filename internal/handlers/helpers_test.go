package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"familybank/internal/auth"
	"familybank/internal/config"
	"familybank/internal/models"
	"familybank/internal/services"
	"familybank/internal/store"
	"familybank/internal/websocket"
)

type stubFamily struct {
	registerFn     func(ctx context.Context, req services.RegisterRequest) (models.Parent, error)
	authenticateFn func(ctx context.Context, email, password string) (models.User, error)
	createChildFn  func(ctx context.Context, parentID int64, req services.RegisterRequest) (models.Child, error)
	depositFn      func(ctx context.Context, parentID, childID, amount int64) (services.ChildDepositResult, error)
	profileFn      func(ctx context.Context, userID int64) (services.ProfileView, error)
	balanceFn      func(ctx context.Context, role models.Role, userID int64) (models.Account, error)
	childrenFn     func(ctx context.Context, parentID int64) ([]store.ChildWithBalance, error)
	transactionsFn func(ctx context.Context, role models.Role, userID int64, limit, offset int) ([]models.Transaction, error)
	selfCheckFn    func(ctx context.Context, role models.Role, userID int64) ([]store.AccountBalanceSummary, error)
}

func (s stubFamily) RegisterParent(ctx context.Context, req services.RegisterRequest) (models.Parent, error) {
	if s.registerFn == nil {
		return models.Parent{}, nil
	}
	return s.registerFn(ctx, req)
}

func (s stubFamily) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	if s.authenticateFn == nil {
		return models.User{}, nil
	}
	return s.authenticateFn(ctx, email, password)
}

func (s stubFamily) CreateChild(ctx context.Context, parentID int64, req services.RegisterRequest) (models.Child, error) {
	if s.createChildFn == nil {
		return models.Child{}, nil
	}
	return s.createChildFn(ctx, parentID, req)
}

func (s stubFamily) DepositToChild(ctx context.Context, parentID, childID, amount int64) (services.ChildDepositResult, error) {
	if s.depositFn == nil {
		return services.ChildDepositResult{}, nil
	}
	return s.depositFn(ctx, parentID, childID, amount)
}

func (s stubFamily) Profile(ctx context.Context, userID int64) (services.ProfileView, error) {
	if s.profileFn == nil {
		return services.ProfileView{}, nil
	}
	return s.profileFn(ctx, userID)
}

func (s stubFamily) Balance(ctx context.Context, role models.Role, userID int64) (models.Account, error) {
	if s.balanceFn == nil {
		return models.Account{}, nil
	}
	return s.balanceFn(ctx, role, userID)
}

func (s stubFamily) Children(ctx context.Context, parentID int64) ([]store.ChildWithBalance, error) {
	if s.childrenFn == nil {
		return nil, nil
	}
	return s.childrenFn(ctx, parentID)
}

func (s stubFamily) Transactions(ctx context.Context, role models.Role, userID int64, limit, offset int) ([]models.Transaction, error) {
	if s.transactionsFn == nil {
		return nil, nil
	}
	return s.transactionsFn(ctx, role, userID, limit, offset)
}

func (s stubFamily) SelfCheck(ctx context.Context, role models.Role, userID int64) ([]store.AccountBalanceSummary, error) {
	if s.selfCheckFn == nil {
		return nil, nil
	}
	return s.selfCheckFn(ctx, role, userID)
}

type stubGoals struct {
	createFn  func(ctx context.Context, req services.CreateGoalRequest) (models.GoalWithBalance, error)
	depositFn func(ctx context.Context, goalID, childID, amount int64) (services.DepositResult, error)
	breakFn   func(ctx context.Context, goalID, childID int64) (services.BreakResult, error)
	listFn    func(ctx context.Context, childID int64) ([]models.GoalWithBalance, error)
}

func (s stubGoals) CreateGoal(ctx context.Context, req services.CreateGoalRequest) (models.GoalWithBalance, error) {
	if s.createFn == nil {
		return models.GoalWithBalance{}, nil
	}
	return s.createFn(ctx, req)
}

func (s stubGoals) Deposit(ctx context.Context, goalID, childID, amount int64) (services.DepositResult, error) {
	if s.depositFn == nil {
		return services.DepositResult{}, nil
	}
	return s.depositFn(ctx, goalID, childID, amount)
}

func (s stubGoals) BreakGoal(ctx context.Context, goalID, childID int64) (services.BreakResult, error) {
	if s.breakFn == nil {
		return services.BreakResult{}, nil
	}
	return s.breakFn(ctx, goalID, childID)
}

func (s stubGoals) ListGoals(ctx context.Context, childID int64) ([]models.GoalWithBalance, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, childID)
}

type stubTasks struct {
	createFn     func(ctx context.Context, req services.CreateTaskRequest) (models.Task, error)
	completeFn   func(ctx context.Context, taskID, childID int64) (models.Task, error)
	verifyFn     func(ctx context.Context, taskID, parentID int64, accept bool) (models.Task, error)
	listParentFn func(ctx context.Context, parentID int64, childID *int64) ([]models.Task, error)
	listChildFn  func(ctx context.Context, childID int64) ([]models.Task, error)
}

func (s stubTasks) CreateTask(ctx context.Context, req services.CreateTaskRequest) (models.Task, error) {
	if s.createFn == nil {
		return models.Task{}, nil
	}
	return s.createFn(ctx, req)
}

func (s stubTasks) Complete(ctx context.Context, taskID, childID int64) (models.Task, error) {
	if s.completeFn == nil {
		return models.Task{}, nil
	}
	return s.completeFn(ctx, taskID, childID)
}

func (s stubTasks) Verify(ctx context.Context, taskID, parentID int64, accept bool) (models.Task, error) {
	if s.verifyFn == nil {
		return models.Task{}, nil
	}
	return s.verifyFn(ctx, taskID, parentID, accept)
}

func (s stubTasks) ListForParent(ctx context.Context, parentID int64, childID *int64) ([]models.Task, error) {
	if s.listParentFn == nil {
		return nil, nil
	}
	return s.listParentFn(ctx, parentID, childID)
}

func (s stubTasks) ListForChild(ctx context.Context, childID int64) ([]models.Task, error) {
	if s.listChildFn == nil {
		return nil, nil
	}
	return s.listChildFn(ctx, childID)
}

type stubLoyalty struct {
	convertFn func(ctx context.Context, childID int64, points int) (services.ConvertResult, error)
	redeemFn  func(ctx context.Context, childID, rewardID int64) (services.RedeemResult, error)
	historyFn func(ctx context.Context, childID int64) ([]models.LoyaltyTransaction, error)
	rewardsFn func(ctx context.Context) ([]models.Reward, error)
}

func (s stubLoyalty) Convert(ctx context.Context, childID int64, points int) (services.ConvertResult, error) {
	if s.convertFn == nil {
		return services.ConvertResult{}, nil
	}
	return s.convertFn(ctx, childID, points)
}

func (s stubLoyalty) Redeem(ctx context.Context, childID, rewardID int64) (services.RedeemResult, error) {
	if s.redeemFn == nil {
		return services.RedeemResult{}, nil
	}
	return s.redeemFn(ctx, childID, rewardID)
}

func (s stubLoyalty) History(ctx context.Context, childID int64) ([]models.LoyaltyTransaction, error) {
	if s.historyFn == nil {
		return nil, nil
	}
	return s.historyFn(ctx, childID)
}

func (s stubLoyalty) Rewards(ctx context.Context) ([]models.Reward, error) {
	if s.rewardsFn == nil {
		return nil, nil
	}
	return s.rewardsFn(ctx)
}

type stubFiles struct {
	saved []string
}

func (s *stubFiles) Save(_ context.Context, folder, filename string, r io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	path := "/uploads/" + folder + "/" + filename
	s.saved = append(s.saved, path)
	return path, nil
}

type testDeps struct {
	family  stubFamily
	goals   stubGoals
	tasks   stubTasks
	loyalty stubLoyalty
	files   *stubFiles
}

func newTestHandler(deps testDeps) *Handler {
	cfg := config.Config{
		AppEnv:         "test",
		Port:           "0",
		JWTSecret:      "secret",
		TokenTTL:       time.Minute,
		AllowedOrigins: "*",
	}
	if deps.files == nil {
		deps.files = &stubFiles{}
	}
	return New(cfg, deps.family, deps.goals, deps.tasks, deps.loyalty, deps.files, websocket.NewHub())
}

// do sends a request through the full router as the given user; a zero
// userID sends no token.
func do(t *testing.T, h *Handler, method, path string, body any, userID int64, role models.Role) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		token, err := auth.GenerateToken("secret", userID, role, time.Minute)
		if err != nil {
			t.Fatalf("failed to generate token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return payload
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, rr.Code, rr.Body.String())
	}
}
