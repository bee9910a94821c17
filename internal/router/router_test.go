package router_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha512"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"wallet-service/config"
	"wallet-service/internal/auth"
	"wallet-service/internal/domain"
	"wallet-service/internal/handler"
	"wallet-service/internal/provider/lazerpay"
	"wallet-service/internal/provider/paystack"
	"wallet-service/internal/repository/memstore"
	"wallet-service/internal/router"
	"wallet-service/internal/usecase"
	"wallet-service/internal/ws"
	"wallet-service/pkg/security"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func setup(t *testing.T) (http.Handler, *rsa.PrivateKey) {
	t.Helper()
	logger := zaptest.NewLogger(t)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	store := memstore.New()
	require.NoError(t, store.CreateUser(t.Context(), &domain.User{ID: "usr_1", Email: "a@example.com", IsActive: true}))

	deps := usecase.Deps{Ledger: store, Wallets: store, Cards: store, Logger: logger}
	fiat := usecase.NewFiatWalletPayment(paystack.NewPaystackProvider(config.PaystackConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second}, logger), deps)
	crypto := usecase.NewCryptoWalletPayment(lazerpay.NewLazerpayProvider(config.LazerpayConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second}, logger), deps)
	walletUC := usecase.NewWalletUsecase(deps)
	webhookUC := usecase.NewWebhookUsecase(fiat, crypto, store, usecase.WebhookConfig{
		PaystackSecret: "sk_test",
		PaystackIPs:    []string{"52.31.139.75"},
		LazerpaySecret: "lz_test",
	}, logger)

	h := router.SetupRoutes(router.Handlers{
		Wallet:  handler.NewWalletHandler(walletUC, logger),
		Payment: handler.NewPaymentHandler(usecase.NewPayments(store, fiat, crypto), fiat, logger),
		Webhook: handler.NewWebhookHandler(webhookUC, logger),
		WS:      handler.NewWSHandler(walletUC, ws.NewNotifier(logger), nil, logger),
	}, auth.NewMiddleware(auth.NewVerifier(&key.PublicKey, "auth-service", "wallet-service"), store.Users(), logger), router.Options{}, logger)
	return h, key
}

func token(t *testing.T, key *rsa.PrivateKey, uid string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodRS256, auth.Claims{
		UserID: uid,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "auth-service",
			Audience:  jwt.ClaimStrings{"wallet-service"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(key)
	require.NoError(t, err)
	return tok
}

func TestSetupRoutes(t *testing.T) {
	h, key := setup(t)

	t.Run("health", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "OK", rec.Body.String())
	})

	t.Run("metrics", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "wallet_http_request_duration_seconds")
	})

	t.Run("ok, balance with token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/wallet/balance", nil)
		req.Header.Set("Authorization", "Bearer "+token(t, key, "usr_1"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{"balance":0}`, rec.Body.String())
		require.NotEmpty(t, rec.Header().Get("Content-Type"))
	})

	t.Run("fail, no token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wallet/balance", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("fail, unknown user", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/wallet/balance", nil)
		req.Header.Set("Authorization", "Bearer "+token(t, key, "usr_ghost"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("fail, webhook without signature", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/wallet/payment/crypto/webhook", strings.NewReader(`{"webhookType":"DEPOSIT_TRANSACTION"}`))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("fail, fiat webhook from unknown ip", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/wallet/payment/fiat/webhook", strings.NewReader(`{"event":"charge.success"}`))
		req.Header.Set("X-Real-IP", "203.0.113.9")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	fiatWebhook := func(t *testing.T, headers map[string]string) int {
		t.Helper()
		body := `{"event":"charge.success","data":{"reference":"TXN_unknown","status":"success","amount":100000}}`
		req := httptest.NewRequest(http.MethodPost, "/wallet/payment/fiat/webhook", strings.NewReader(body))
		req.RemoteAddr = "203.0.113.50:43120"
		req.Header.Set(paystack.SignatureHeader, security.Sign(sha512.New, []byte("sk_test"), []byte(body)))
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	t.Run("fail, fiat webhook ignores X-Real-IP", func(t *testing.T) {
		require.Equal(t, http.StatusForbidden, fiatWebhook(t, map[string]string{"X-Real-IP": "52.31.139.75"}))
	})

	t.Run("fail, fiat webhook ignores True-Client-IP", func(t *testing.T) {
		require.Equal(t, http.StatusForbidden, fiatWebhook(t, map[string]string{"True-Client-IP": "52.31.139.75"}))
	})

	t.Run("ok, fiat webhook from listed forwarded address", func(t *testing.T) {
		require.Equal(t, http.StatusOK, fiatWebhook(t, map[string]string{"X-Forwarded-For": "52.31.139.75"}))
	})

	t.Run("fail, unknown rail", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/wallet/payment/mpesa/initialize", strings.NewReader(`{"amount":100}`))
		req.Header.Set("Authorization", "Bearer "+token(t, key, "usr_1"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}
