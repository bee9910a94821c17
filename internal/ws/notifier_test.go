package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"wallet-service/internal/domain"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNotifier(t *testing.T) {
	n := NewNotifier(zaptest.NewLogger(t))
	registered := make(chan struct{})

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		n.RegisterConnection("usr_1", conn)
		close(registered)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				n.UnregisterConnection("usr_1", conn)
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	select {
	case <-registered:
	case <-time.After(5 * time.Second):
		t.Fatal("connection was not registered")
	}
	require.Equal(t, 1, n.Connections("usr_1"))

	wallet := &domain.Wallet{UserID: "usr_1", Balance: decimal.NewFromInt(2500)}
	n.NotifyBalance("usr_1", wallet, "TXN_1")
	n.NotifyBalance("usr_other", wallet, "TXN_2")

	var msg struct {
		Type string         `json:"type"`
		Data BalancePayload `json:"data"`
	}
	require.NoError(t, client.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, client.ReadJSON(&msg))
	require.Equal(t, MessageBalanceUpdate, msg.Type)
	require.Equal(t, "2500", msg.Data.Balance)
	require.Equal(t, "TXN_1", msg.Data.Reference)

	require.NoError(t, client.Close())
	require.Eventually(t, func() bool { return n.Connections("usr_1") == 0 }, 5*time.Second, 10*time.Millisecond)
}
