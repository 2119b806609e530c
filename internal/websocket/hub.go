package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// BalanceUpdate is pushed to every connection of the user who owns, or
// whose savings goal owns, the account.
type BalanceUpdate struct {
	AccountID int64  `json:"account_id"`
	OwnerKind string `json:"owner_kind"`
	OwnerID   int64  `json:"owner_id"`
	Balance   string `json:"balance"`
	Currency  string `json:"currency"`
}

type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[int64]map[*Client]struct{}),
	}
}

func (h *Hub) Register(userID int64, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*Client]struct{})
	}
	h.clients[userID][client] = struct{}{}
}

func (h *Hub) Unregister(userID int64, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		return
	}
	delete(h.clients[userID], client)
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
}

func (h *Hub) Connections(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// BroadcastBalance never blocks; a client with a full buffer misses the update.
func (h *Hub) BroadcastBalance(userID int64, update BalanceUpdate) {
	payload, err := json.Marshal(update)
	if err != nil {
		slog.Error("encode balance update", "error", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		select {
		case client.send <- payload:
		default:
			slog.Debug("dropping balance update for slow client", "user_id", userID)
		}
	}
}
