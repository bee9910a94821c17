// internal/handler/payment_handler.go
package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"wallet-service/internal/auth"
	"wallet-service/internal/domain"
	"wallet-service/internal/usecase"
	"wallet-service/pkg/response"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxJSONBody = 64 << 10

type PaymentHandler struct {
	payments *usecase.Payments
	fiat     *usecase.FiatWalletPayment
	logger   *zap.Logger
}

func NewPaymentHandler(payments *usecase.Payments, fiat *usecase.FiatWalletPayment, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		fiat:     fiat,
		logger:   logger,
	}
}

type amountRequest struct {
	Amount json.RawMessage `json:"amount"`
}

type chargeRequest struct {
	Amount    json.RawMessage `json:"amount"`
	Signature string          `json:"signature"`
}

// Initialize handles POST /wallet/payment/{rail}/initialize
func (h *PaymentHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	user, rail, ok := h.userAndRail(w, r)
	if !ok {
		return
	}

	var req amountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		writeUsecaseError(w, h.logger, err)
		return
	}

	res, err := h.payments.Initialize(r.Context(), user, rail, amount)
	if err != nil {
		writeUsecaseError(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, res.Payload)
}

// Verify handles GET /wallet/payment/{rail}/verify/{reference}
func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	user, rail, ok := h.userAndRail(w, r)
	if !ok {
		return
	}

	reference := chi.URLParam(r, "reference")
	res, err := h.payments.VerifyReference(r.Context(), user, rail, reference)
	if err != nil {
		writeUsecaseError(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, res)
}

// Charge handles POST /wallet/payment/fiat/charge
func (h *PaymentHandler) Charge(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.GetUser(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req chargeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		writeUsecaseError(w, h.logger, err)
		return
	}
	signature := strings.TrimSpace(req.Signature)
	if signature == "" {
		response.Error(w, http.StatusBadRequest, "signature is required")
		return
	}

	res, err := h.fiat.ChargeSignature(r.Context(), user, signature, amount)
	if err != nil {
		writeUsecaseError(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, res)
}

// Withdraw handles POST /wallet/payment/{rail}/withdraw
func (h *PaymentHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	user, rail, ok := h.userAndRail(w, r)
	if !ok {
		return
	}

	var req amountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		writeUsecaseError(w, h.logger, err)
		return
	}

	res, err := h.payments.Withdraw(r.Context(), user, rail, amount)
	if err != nil {
		writeUsecaseError(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, res)
}

func (h *PaymentHandler) userAndRail(w http.ResponseWriter, r *http.Request) (*domain.User, domain.Rail, bool) {
	user, ok := auth.GetUser(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "unauthorized")
		return nil, "", false
	}
	rail, err := domain.ParseRail(chi.URLParam(r, "rail"))
	if err != nil {
		response.Error(w, http.StatusNotFound, err.Error())
		return nil, "", false
	}
	return user, rail, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
