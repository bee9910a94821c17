package handler

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"wallet-service/internal/auth"
	"wallet-service/internal/domain"
	"wallet-service/internal/provider"
	"wallet-service/internal/repository/memstore"
	"wallet-service/internal/usecase"
	"wallet-service/pkg/security"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	testPaystackSecret = "sk_test_paystack"
	testLazerpaySecret = "sk_test_lazerpay"
	testPaystackIP     = "52.31.139.75"
)

type stubProvider struct {
	initErr  error
	paid     bool
	withdraw bool
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Initialize(_ context.Context, req provider.InitRequest) (*provider.InitResult, error) {
	if s.initErr != nil {
		return nil, s.initErr
	}
	payload, _ := json.Marshal(map[string]string{"reference": req.Reference, "authorization_url": "https://checkout.example/x"})
	return &provider.InitResult{Reference: req.Reference, Payload: payload}, nil
}

func (s *stubProvider) Verify(_ context.Context, ref string) (*provider.Result, error) {
	return &provider.Result{Paid: s.paid, Reference: ref}, nil
}

func (s *stubProvider) Charge(_ context.Context, req provider.ChargeRequest) (*provider.Result, error) {
	return &provider.Result{Paid: s.paid, Reference: req.Reference}, nil
}

func (s *stubProvider) Withdraw(context.Context, provider.WithdrawRequest) (bool, error) {
	return s.withdraw, nil
}

type harness struct {
	store  *memstore.Store
	user   *domain.User
	fiat   *stubProvider
	crypto *stubProvider
	router http.Handler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)
	store := memstore.New()
	user := &domain.User{ID: "usr_1", Email: "ada@example.com", IsActive: true}
	require.NoError(t, store.CreateUser(t.Context(), user))

	fiatP, cryptoP := &stubProvider{}, &stubProvider{}
	deps := usecase.Deps{Ledger: store, Wallets: store, Cards: store, Logger: logger}
	fiat := usecase.NewFiatWalletPayment(fiatP, deps)
	crypto := usecase.NewCryptoWalletPayment(cryptoP, deps)

	payments := NewPaymentHandler(usecase.NewPayments(store, fiat, crypto), fiat, logger)
	wallet := NewWalletHandler(usecase.NewWalletUsecase(deps), logger)
	webhooks := NewWebhookHandler(usecase.NewWebhookUsecase(fiat, crypto, store, usecase.WebhookConfig{
		PaystackSecret: testPaystackSecret,
		PaystackIPs:    []string{testPaystackIP},
		LazerpaySecret: testLazerpaySecret,
	}, logger), logger)

	r := chi.NewRouter()
	r.Post("/wallet/payment/fiat/webhook", webhooks.Fiat)
	r.Post("/wallet/payment/crypto/webhook", webhooks.Crypto)
	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
			})
		})
		r.Get("/wallet/balance", wallet.Balance)
		r.Get("/wallet/transactions", wallet.Transactions)
		r.Get("/wallet/transactions/{reference}", wallet.Transaction)
		r.Get("/wallet/cards", wallet.Cards)
		r.Patch("/wallet/cards/{id}", wallet.UpdateCard)
		r.Delete("/wallet/cards/{id}", wallet.DeleteCard)
		r.Post("/wallet/payment/fiat/charge", payments.Charge)
		r.Post("/wallet/payment/{rail}/initialize", payments.Initialize)
		r.Get("/wallet/payment/{rail}/verify/{reference}", payments.Verify)
		r.Post("/wallet/payment/{rail}/withdraw", payments.Withdraw)
	})

	return &harness{store: store, user: user, fiat: fiatP, crypto: cryptoP, router: r}
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (h *harness) do(t *testing.T, method, path, body string, headers map[string]string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec.Code, env
}

func (h *harness) pending(t *testing.T, ref string, amount int64, rail domain.Rail) {
	t.Helper()
	require.NoError(t, h.store.CreateTransaction(t.Context(), domain.NewDepositTransaction(ref, h.user.ID, amount, rail)))
}

func (h *harness) status(t *testing.T, ref string) domain.TransactionStatus {
	t.Helper()
	txn, err := h.store.GetTransaction(t.Context(), ref)
	require.NoError(t, err)
	return txn.Status
}

func (h *harness) balance(t *testing.T) decimal.Decimal {
	t.Helper()
	w, err := h.store.GetByUserID(t.Context(), h.user.ID)
	require.NoError(t, err)
	return w.Balance
}

func TestInitialize(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		h := newHarness(t)
		code, env := h.do(t, http.MethodPost, "/wallet/payment/fiat/initialize", `{"amount": 5000}`, nil)
		require.Equal(t, http.StatusOK, code)

		var payload struct {
			Reference string `json:"reference"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &payload))
		require.Equal(t, domain.TransactionStatusPending, h.status(t, payload.Reference))
	})

	for name, body := range map[string]string{
		"string amount":  `{"amount": "1000"}`,
		"fraction":       `{"amount": 1000.5}`,
		"exponent":       `{"amount": 1e3}`,
		"negative":       `{"amount": -1}`,
		"missing amount": `{}`,
		"malformed body": `{"amount":`,
	} {
		t.Run("fail, "+name, func(t *testing.T) {
			h := newHarness(t)
			code, env := h.do(t, http.MethodPost, "/wallet/payment/crypto/initialize", body, nil)
			require.Equal(t, http.StatusBadRequest, code)
			require.Equal(t, "error", env.Status)
		})
	}

	t.Run("fail, unknown rail", func(t *testing.T) {
		h := newHarness(t)
		code, _ := h.do(t, http.MethodPost, "/wallet/payment/ach/initialize", `{"amount": 5}`, nil)
		require.Equal(t, http.StatusNotFound, code)
	})

	t.Run("fail, gateway error", func(t *testing.T) {
		h := newHarness(t)
		h.fiat.initErr = &provider.Error{Provider: "stub", Op: "initialize", StatusCode: 503, Temporary: true}
		code, env := h.do(t, http.MethodPost, "/wallet/payment/fiat/initialize", `{"amount": 5}`, nil)
		require.Equal(t, http.StatusBadGateway, code)
		require.Contains(t, env.Message, "gateway")
	})
}

func TestVerify(t *testing.T) {
	t.Run("fail, transaction not found", func(t *testing.T) {
		h := newHarness(t)
		code, env := h.do(t, http.MethodGet, "/wallet/payment/fiat/verify/nope", "", nil)
		require.Equal(t, http.StatusBadRequest, code)
		require.Equal(t, "Transaction not found", env.Message)
	})

	t.Run("ok, unpaid then paid then completed", func(t *testing.T) {
		h := newHarness(t)
		h.pending(t, "ref_1", 900, domain.RailFiat)

		code, env := h.do(t, http.MethodGet, "/wallet/payment/fiat/verify/ref_1", "", nil)
		require.Equal(t, http.StatusOK, code)
		require.JSONEq(t, `{"status":false,"message":"We have not received your payment"}`, string(env.Data))
		require.Equal(t, domain.TransactionStatusFailed, h.status(t, "ref_1"))

		h.fiat.paid = true
		code, env = h.do(t, http.MethodGet, "/wallet/payment/fiat/verify/ref_1", "", nil)
		require.Equal(t, http.StatusOK, code)
		require.JSONEq(t, `{"status":true,"message":"Payment successful"}`, string(env.Data))
		require.True(t, h.balance(t).Equal(decimal.NewFromInt(900)))

		code, env = h.do(t, http.MethodGet, "/wallet/payment/fiat/verify/ref_1", "", nil)
		require.Equal(t, http.StatusBadRequest, code)
		require.Equal(t, "Transaction already completed", env.Message)
	})

	t.Run("ok, crypto unpaid stays pending", func(t *testing.T) {
		h := newHarness(t)
		h.pending(t, "ref_c", 40, domain.RailCrypto)
		code, _ := h.do(t, http.MethodGet, "/wallet/payment/crypto/verify/ref_c", "", nil)
		require.Equal(t, http.StatusOK, code)
		require.Equal(t, domain.TransactionStatusPending, h.status(t, "ref_c"))
	})
}

func TestCharge(t *testing.T) {
	t.Run("fail, card not found", func(t *testing.T) {
		h := newHarness(t)
		code, env := h.do(t, http.MethodPost, "/wallet/payment/fiat/charge", `{"amount": 100, "signature": "SIG_X"}`, nil)
		require.Equal(t, http.StatusBadRequest, code)
		require.Equal(t, "Card not found", env.Message)
	})

	t.Run("fail, missing signature", func(t *testing.T) {
		h := newHarness(t)
		code, _ := h.do(t, http.MethodPost, "/wallet/payment/fiat/charge", `{"amount": 100}`, nil)
		require.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("fail, string amount", func(t *testing.T) {
		h := newHarness(t)
		code, _ := h.do(t, http.MethodPost, "/wallet/payment/fiat/charge", `{"amount": "100", "signature": "SIG_X"}`, nil)
		require.Equal(t, http.StatusBadRequest, code)
	})
}

func TestWithdraw(t *testing.T) {
	t.Run("fail, insufficient funds", func(t *testing.T) {
		h := newHarness(t)
		code, env := h.do(t, http.MethodPost, "/wallet/payment/fiat/withdraw", `{"amount": 100}`, nil)
		require.Equal(t, http.StatusBadRequest, code)
		require.Contains(t, env.Message, "insufficient")
	})

	t.Run("ok, fiat declines", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.store.Fund(t.Context(), h.user.ID, 500)
		require.NoError(t, err)

		code, env := h.do(t, http.MethodPost, "/wallet/payment/fiat/withdraw", `{"amount": 100}`, nil)
		require.Equal(t, http.StatusOK, code)
		require.JSONEq(t, `{"status":false}`, string(env.Data))
		require.True(t, h.balance(t).Equal(decimal.NewFromInt(500)))
	})
}

func TestWalletRoutes(t *testing.T) {
	h := newHarness(t)
	h.pending(t, "ref_w", 300, domain.RailFiat)

	code, env := h.do(t, http.MethodGet, "/wallet/balance", "", nil)
	require.Equal(t, http.StatusOK, code)
	require.JSONEq(t, `{"balance":0}`, string(env.Data))

	code, env = h.do(t, http.MethodGet, "/wallet/transactions?limit=5", "", nil)
	require.Equal(t, http.StatusOK, code)
	var txns []domain.Transaction
	require.NoError(t, json.Unmarshal(env.Data, &txns))
	require.Len(t, txns, 1)

	code, _ = h.do(t, http.MethodGet, "/wallet/transactions/ref_w", "", nil)
	require.Equal(t, http.StatusOK, code)

	code, env = h.do(t, http.MethodGet, "/wallet/transactions/ref_missing", "", nil)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "Transaction not found", env.Message)

	code, _ = h.do(t, http.MethodPatch, "/wallet/cards/abc", `{}`, nil)
	require.Equal(t, http.StatusBadRequest, code)

	code, env = h.do(t, http.MethodPatch, "/wallet/cards/abc", `{"keep": true}`, nil)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "Card not found", env.Message)

	code, _ = h.do(t, http.MethodDelete, "/wallet/cards/abc", "", nil)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestFiatWebhook(t *testing.T) {
	body := func(ref string) string {
		return fmt.Sprintf(`{"event":"charge.success","data":{"reference":%q,"status":"success","channel":"bank"}}`, ref)
	}
	sign := func(b string) string {
		return security.Sign(sha512.New, []byte(testPaystackSecret), []byte(b))
	}

	t.Run("ok", func(t *testing.T) {
		h := newHarness(t)
		h.pending(t, "wh_1", 700, domain.RailFiat)
		b := body("wh_1")

		code, env := h.do(t, http.MethodPost, "/wallet/payment/fiat/webhook", b, map[string]string{
			"X-Paystack-Signature": sign(b),
			"X-Forwarded-For":      testPaystackIP + ", 10.0.0.1",
		})
		require.Equal(t, http.StatusOK, code)
		require.Equal(t, "success", env.Status)
		require.Equal(t, domain.TransactionStatusSuccess, h.status(t, "wh_1"))
		require.True(t, h.balance(t).Equal(decimal.NewFromInt(700)))
	})

	t.Run("fail, forbidden ip", func(t *testing.T) {
		h := newHarness(t)
		h.pending(t, "wh_2", 700, domain.RailFiat)
		b := body("wh_2")

		code, _ := h.do(t, http.MethodPost, "/wallet/payment/fiat/webhook", b, map[string]string{
			"X-Paystack-Signature": sign(b),
			"X-Forwarded-For":      "203.0.113.9",
		})
		require.Equal(t, http.StatusForbidden, code)
		require.Equal(t, domain.TransactionStatusPending, h.status(t, "wh_2"))
	})

	t.Run("fail, bad signature", func(t *testing.T) {
		h := newHarness(t)
		h.pending(t, "wh_3", 700, domain.RailFiat)
		b := body("wh_3")

		code, _ := h.do(t, http.MethodPost, "/wallet/payment/fiat/webhook", b, map[string]string{
			"X-Paystack-Signature": sign(b + " "),
			"X-Forwarded-For":      testPaystackIP,
		})
		require.Equal(t, http.StatusForbidden, code)
		require.True(t, h.balance(t).IsZero())
	})

	t.Run("ok, unknown reference", func(t *testing.T) {
		h := newHarness(t)
		b := body("wh_missing")
		code, _ := h.do(t, http.MethodPost, "/wallet/payment/fiat/webhook", b, map[string]string{
			"X-Paystack-Signature": sign(b),
			"X-Forwarded-For":      testPaystackIP,
		})
		require.Equal(t, http.StatusOK, code)
	})

	t.Run("fail, body too large", func(t *testing.T) {
		h := newHarness(t)
		req := httptest.NewRequest(http.MethodPost, "/wallet/payment/fiat/webhook", bytes.NewReader(make([]byte, maxWebhookBody+1)))
		req.Header.Set("X-Forwarded-For", testPaystackIP)
		rec := httptest.NewRecorder()
		h.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestCryptoWebhook(t *testing.T) {
	sign := func(b string) string {
		return security.Sign(sha256.New, []byte(testLazerpaySecret), []byte(b))
	}

	t.Run("ok", func(t *testing.T) {
		h := newHarness(t)
		h.pending(t, "cw_1", 40, domain.RailCrypto)
		b := `{"webhookType":"DEPOSIT_TRANSACTION","reference":"cw_1","status":"confirmed"}`

		code, _ := h.do(t, http.MethodPost, "/wallet/payment/crypto/webhook", b, map[string]string{"X-Lazerpay-Signature": sign(b)})
		require.Equal(t, http.StatusOK, code)
		require.True(t, h.balance(t).Equal(decimal.NewFromInt(40)))
	})

	t.Run("fail, bad signature", func(t *testing.T) {
		h := newHarness(t)
		h.pending(t, "cw_2", 40, domain.RailCrypto)
		b := `{"webhookType":"DEPOSIT_TRANSACTION","reference":"cw_2"}`

		code, _ := h.do(t, http.MethodPost, "/wallet/payment/crypto/webhook", b, map[string]string{"X-Lazerpay-Signature": "00"})
		require.Equal(t, http.StatusForbidden, code)
		require.Equal(t, domain.TransactionStatusPending, h.status(t, "cw_2"))
	})
}
