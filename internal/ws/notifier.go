// internal/ws/notifier.go
package ws

import (
	"encoding/json"
	"sync"
	"time"

	"wallet-service/internal/domain"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	MessageInitialData   = "initial_data"
	MessageBalanceUpdate = "balance_update"

	ActionGetBalance = "get_balance"

	writeWait = 10 * time.Second
)

type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type BalancePayload struct {
	UserID  string `json:"user_id"`
	Balance string `json:"balance"`
	// Reference is set when the update came from a settled deposit.
	Reference string `json:"reference,omitempty"`
}

// Notifier fans balance updates out to every open connection of a user.
// Writes happen under mu, so each connection has at most one writer.
type Notifier struct {
	clients map[string]map[*websocket.Conn]bool
	mu      sync.Mutex
	logger  *zap.Logger
}

func NewNotifier(logger *zap.Logger) *Notifier {
	return &Notifier{
		clients: make(map[string]map[*websocket.Conn]bool),
		logger:  logger,
	}
}

func (n *Notifier) RegisterConnection(userID string, conn *websocket.Conn) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.clients[userID] == nil {
		n.clients[userID] = make(map[*websocket.Conn]bool)
	}
	n.clients[userID][conn] = true
}

func (n *Notifier) UnregisterConnection(userID string, conn *websocket.Conn) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dropLocked(userID, conn)
}

// Connections reports how many sockets userID has open.
func (n *Notifier) Connections(userID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.clients[userID])
}

func (n *Notifier) NotifyBalance(userID string, wallet *domain.Wallet, reference string) {
	n.send(userID, Message{
		Type: MessageBalanceUpdate,
		Data: BalancePayload{
			UserID:    userID,
			Balance:   wallet.Balance.String(),
			Reference: reference,
		},
	})
}

func (n *Notifier) NotifyInitial(userID string, wallet *domain.Wallet) {
	n.send(userID, Message{
		Type: MessageInitialData,
		Data: BalancePayload{
			UserID:  userID,
			Balance: wallet.Balance.String(),
		},
	})
}

func (n *Notifier) send(userID string, msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		n.logger.Error("failed to encode ws message", zap.String("type", msg.Type), zap.Error(err))
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	for conn := range n.clients[userID] {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			n.logger.Warn("dropping ws connection",
				zap.String("user_id", userID),
				zap.String("type", msg.Type),
				zap.Error(err))
			n.dropLocked(userID, conn)
		}
	}
}

func (n *Notifier) dropLocked(userID string, conn *websocket.Conn) {
	conns, ok := n.clients[userID]
	if !ok {
		return
	}
	if _, ok := conns[conn]; ok {
		delete(conns, conn)
		_ = conn.Close()
	}
	if len(conns) == 0 {
		delete(n.clients, userID)
	}
}
