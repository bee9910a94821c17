// internal/handler/ws_handler.go
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"wallet-service/internal/auth"
	"wallet-service/internal/usecase"
	"wallet-service/internal/ws"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type WSHandler struct {
	walletUC *usecase.WalletUsecase
	notifier *ws.Notifier
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWSHandler accepts upgrades from allowedOrigins; "*" allows any origin.
func NewWSHandler(walletUC *usecase.WalletUsecase, notifier *ws.Notifier, allowedOrigins []string, logger *zap.Logger) *WSHandler {
	h := &WSHandler{
		walletUC: walletUC,
		notifier: notifier,
		logger:   logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

// Serve handles GET /wallet/ws
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		h.logger.Warn("websocket upgrade failed", zap.String("user_id", userID), zap.Error(err))
		return
	}

	h.notifier.RegisterConnection(userID, conn)
	defer h.notifier.UnregisterConnection(userID, conn)

	ctx := r.Context()
	h.sendBalance(ctx, userID)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go h.ping(conn, done)

	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			h.logger.Debug("websocket client disconnected", zap.String("user_id", userID), zap.Error(err))
			return
		}
		if mt != websocket.TextMessage {
			continue
		}

		var req struct {
			Action string `json:"action"`
		}
		if err := json.Unmarshal(msg, &req); err == nil && req.Action == ws.ActionGetBalance {
			h.sendBalance(ctx, userID)
		}
	}
}

func (h *WSHandler) sendBalance(ctx context.Context, userID string) {
	wallet, err := h.walletUC.Wallet(ctx, userID)
	if err != nil {
		h.logger.Warn("failed to load wallet for websocket", zap.String("user_id", userID), zap.Error(err))
		return
	}
	h.notifier.NotifyInitial(userID, wallet)
}

func (h *WSHandler) ping(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		}
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}
