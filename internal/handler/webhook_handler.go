// internal/handler/webhook_handler.go
package handler

import (
	"errors"
	"io"
	"net/http"

	"wallet-service/internal/metrics"
	"wallet-service/internal/provider/lazerpay"
	"wallet-service/internal/provider/paystack"
	"wallet-service/internal/usecase"
	"wallet-service/pkg/response"
	"wallet-service/pkg/security"

	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	webhookUC *usecase.WebhookUsecase
	logger    *zap.Logger
}

func NewWebhookHandler(webhookUC *usecase.WebhookUsecase, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		webhookUC: webhookUC,
		logger:    logger,
	}
}

// Fiat handles POST /wallet/payment/fiat/webhook
func (h *WebhookHandler) Fiat(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	ip := security.ClientIP(r)
	err := h.webhookUC.HandleFiat(r.Context(), ip, body, r.Header.Get(paystack.SignatureHeader))
	h.respond(w, "fiat", err)
}

// Crypto handles POST /wallet/payment/crypto/webhook
func (h *WebhookHandler) Crypto(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	err := h.webhookUC.HandleCrypto(r.Context(), body, r.Header.Get(lazerpay.SignatureHeader))
	h.respond(w, "crypto", err)
}

// readBody keeps the exact bytes the signature was computed over.
func (h *WebhookHandler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		h.logger.Error("failed to read webhook body", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "failed to read request body")
		return nil, false
	}
	return body, true
}

func (h *WebhookHandler) respond(w http.ResponseWriter, rail string, err error) {
	if err == nil {
		metrics.Webhooks.WithLabelValues(rail, metrics.WebhookAccepted).Inc()
		response.JSON(w, http.StatusOK, struct{}{})
		return
	}
	if errors.Is(err, security.ErrForbiddenOrigin) || errors.Is(err, security.ErrInvalidSignature) {
		metrics.Webhooks.WithLabelValues(rail, metrics.WebhookForbidden).Inc()
		writeUsecaseError(w, h.logger, err)
		return
	}

	// internal failure: let the gateway redeliver
	metrics.Webhooks.WithLabelValues(rail, metrics.WebhookError).Inc()
	h.logger.Error("webhook processing failed", zap.String("rail", rail), zap.Error(err))
	response.Error(w, http.StatusInternalServerError, "webhook processing failed")
}
