package checkout

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront-api/internal/common"
	"github.com/noah-isme/storefront-api/internal/obs"
	"github.com/noah-isme/storefront-api/internal/order"
)

// Handler exposes order submission over HTTP.
type Handler struct {
	Svc    *Service
	Logger zerolog.Logger
}

// Submit places an order for the session cart.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := common.SessionID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "SESSION_REQUIRED", "missing "+common.SessionHeader+" header", nil)
		return
	}
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}

	out, err := h.Svc.Submit(r.Context(), sessionID, in)
	if err != nil {
		h.writeError(w, r, in.PaymentMethod, err)
		return
	}
	h.countPlaced(in.PaymentMethod, "success")
	common.JSONData(w, http.StatusCreated, out)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, method string, err error) {
	var verrs validator.ValidationErrors
	var sessionErr *SessionError
	switch {
	case errors.As(err, &verrs):
		common.WriteError(w, common.NewValidationError("address is incomplete", validationDetails(verrs)))
	case errors.Is(err, ErrEmptyCart):
		common.WriteError(w, common.NewAppError("EMPTY_CART", "cart is empty", http.StatusUnprocessableEntity, err))
	case errors.Is(err, ErrUnknownMethod):
		common.WriteError(w, common.NewAppError("UNKNOWN_PAYMENT_METHOD", err.Error(), http.StatusUnprocessableEntity, err))
	case errors.Is(err, ErrWalletUnavailable):
		common.WriteError(w, common.NewAppError("WALLET_UNAVAILABLE", "wallet payments are not configured", http.StatusServiceUnavailable, err))
	case errors.As(err, &sessionErr):
		// The order was created; surface its identity so the shopper can
		// retry payment instead of submitting a duplicate order.
		h.countPlaced(method, "session_failed")
		h.Logger.Error().Err(sessionErr.Err).
			Str("order_code", sessionErr.Order.Code).
			Msg("payment session creation failed after order placement")
		appErr := common.NewAppError("PAYMENT_SESSION_FAILED",
			"order was placed but the payment session could not be opened", http.StatusBadGateway, err)
		appErr.Details = map[string]any{
			"orderId":   sessionErr.Order.ID,
			"orderCode": sessionErr.Order.Code,
		}
		common.WriteError(w, appErr)
	case errors.Is(err, order.ErrRejected):
		h.countPlaced(method, "rejected")
		common.WriteError(w, common.NewAppError("ORDER_REJECTED", err.Error(), http.StatusBadGateway, err))
	default:
		h.countPlaced(method, "error")
		h.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("checkout failed")
		common.WriteError(w, common.NewUpstreamError("order could not be placed", err))
	}
}

func (h *Handler) countPlaced(method, result string) {
	if obs.OrdersPlacedTotal == nil {
		return
	}
	method = strings.ToLower(strings.TrimSpace(method))
	if method == "" {
		method = "unknown"
	}
	obs.OrdersPlacedTotal.WithLabelValues(method, result).Inc()
}

func validationDetails(verrs validator.ValidationErrors) map[string]any {
	fields := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return map[string]any{"fields": fields}
}
