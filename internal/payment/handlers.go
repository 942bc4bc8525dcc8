package payment

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront-api/internal/common"
	"github.com/noah-isme/storefront-api/internal/obs"
)

// Handler lets the client reopen a wallet payment session for an order whose
// first session failed or expired. The order itself already exists server-side.
type Handler struct {
	Provider Provider
	Logger   zerolog.Logger
}

// CreateSession opens a fresh payment session and returns the redirect URL.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if h.Provider == nil {
		common.JSONError(w, http.StatusServiceUnavailable, "PAYMENT_NOT_CONFIGURED", "wallet payments unavailable", nil)
		return
	}
	sessionID, ok := common.SessionID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "SESSION_REQUIRED", "missing "+common.SessionHeader+" header", nil)
		return
	}
	var payload struct {
		OrderID   string `json:"orderId"`
		OrderCode string `json:"orderCode"`
		Amount    int64  `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if strings.TrimSpace(payload.OrderID) == "" || payload.Amount <= 0 {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "orderId and a positive amount are required", nil)
		return
	}
	session, err := h.Provider.CreateSession(r.Context(), SessionRequest{
		OrderID:   payload.OrderID,
		OrderCode: payload.OrderCode,
		Amount:    payload.Amount,
		OrderInfo: "Order " + payload.OrderCode,
		ExtraData: EncodeExtraData(sessionID),
	})
	if err != nil {
		if obs.PaymentSessionTotal != nil {
			obs.PaymentSessionTotal.WithLabelValues("momo", "error").Inc()
		}
		h.Logger.Error().Err(err).Str("order_id", payload.OrderID).Msg("reopen payment session")
		common.JSONError(w, http.StatusBadGateway, "UPSTREAM_FAILED", "unable to create payment session", nil)
		return
	}
	if obs.PaymentSessionTotal != nil {
		obs.PaymentSessionTotal.WithLabelValues(session.Provider, "created").Inc()
	}
	common.JSONData(w, http.StatusCreated, map[string]any{
		"provider":    session.Provider,
		"requestId":   session.RequestID,
		"redirectUrl": session.PayURL,
	})
}
