// internal/handler/wallet_handler.go
package handler

import (
	"net/http"
	"strconv"

	"wallet-service/internal/auth"
	"wallet-service/internal/usecase"
	"wallet-service/pkg/response"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type WalletHandler struct {
	walletUC *usecase.WalletUsecase
	logger   *zap.Logger
}

func NewWalletHandler(walletUC *usecase.WalletUsecase, logger *zap.Logger) *WalletHandler {
	return &WalletHandler{
		walletUC: walletUC,
		logger:   logger,
	}
}

func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserID(r.Context())
	view, err := h.walletUC.Balance(r.Context(), userID)
	if err != nil {
		writeUsecaseError(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, view)
}

func (h *WalletHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserID(r.Context())
	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)

	txns, err := h.walletUC.Transactions(r.Context(), userID, limit, offset)
	if err != nil {
		writeUsecaseError(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, txns)
}

func (h *WalletHandler) Transaction(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserID(r.Context())
	txn, err := h.walletUC.Transaction(r.Context(), userID, chi.URLParam(r, "reference"))
	if err != nil {
		writeUsecaseError(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, txn)
}

func (h *WalletHandler) Cards(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserID(r.Context())
	cards, err := h.walletUC.Cards(r.Context(), userID)
	if err != nil {
		writeUsecaseError(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, cards)
}

func (h *WalletHandler) Card(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserID(r.Context())
	card, err := h.walletUC.Card(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeUsecaseError(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, card)
}

// UpdateCard accepts {"keep": bool}; keep is the only writable field.
func (h *WalletHandler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserID(r.Context())

	var req struct {
		Keep *bool `json:"keep"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Keep == nil {
		response.Error(w, http.StatusBadRequest, "keep is required")
		return
	}

	card, err := h.walletUC.SetCardKeep(r.Context(), userID, chi.URLParam(r, "id"), *req.Keep)
	if err != nil {
		writeUsecaseError(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, card)
}

func (h *WalletHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserID(r.Context())
	if err := h.walletUC.DeleteCard(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeUsecaseError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
