// internal/handler/errors.go
package handler

import (
	"errors"
	"net/http"

	"wallet-service/internal/domain"
	"wallet-service/internal/provider"
	"wallet-service/pkg/response"
	"wallet-service/pkg/security"

	"go.uber.org/zap"
)

// writeUsecaseError maps usecase errors to HTTP responses.
func writeUsecaseError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var pe *provider.Error

	switch {
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrInvalidAddress),
		errors.Is(err, domain.ErrUnsupportedRail):
		response.Error(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, domain.ErrTransactionNotFound):
		response.Error(w, http.StatusBadRequest, domain.ErrTransactionNotFound.Error())
	case errors.Is(err, domain.ErrTransactionCompleted):
		response.Error(w, http.StatusBadRequest, domain.ErrTransactionCompleted.Error())
	case errors.Is(err, domain.ErrCardNotFound):
		response.Error(w, http.StatusBadRequest, domain.ErrCardNotFound.Error())

	case errors.Is(err, domain.ErrWalletNotFound), errors.Is(err, domain.ErrUserNotFound):
		response.Error(w, http.StatusNotFound, err.Error())

	case errors.Is(err, security.ErrForbiddenOrigin), errors.Is(err, security.ErrInvalidSignature):
		response.Error(w, http.StatusForbidden, "You do not have permission to perform this action.")

	case errors.As(err, &pe):
		logger.Warn("payment gateway error",
			zap.String("provider", pe.Provider),
			zap.String("op", pe.Op),
			zap.Int("status_code", pe.StatusCode),
			zap.Bool("temporary", pe.Temporary),
			zap.Error(err))
		response.Error(w, http.StatusBadGateway, "payment gateway error: "+gatewayMessage(pe))

	default:
		logger.Error("request failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "internal server error")
	}
}

func gatewayMessage(pe *provider.Error) string {
	if pe.Message != "" {
		return pe.Message
	}
	if pe.Temporary {
		return "gateway unavailable, try again later"
	}
	return "request rejected"
}
