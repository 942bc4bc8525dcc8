package payment

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront-api/internal/common"
	"github.com/noah-isme/storefront-api/internal/events"
	"github.com/noah-isme/storefront-api/internal/obs"
)

// CartClearer empties the session cart once payment is confirmed.
type CartClearer interface {
	Clear(ctx context.Context, sessionID string) error
}

// Callback handles payment provider confirmation callbacks. A wallet order's
// cart is only cleared here, never at submission time: until the provider
// confirms, the shopper may still come back to an intact cart.
type Callback struct {
	Providers map[string]Provider
	Carts     CartClearer
	Replay    *redis.Client
	ReplayTTL time.Duration
	Events    *events.Bus
	Logger    zerolog.Logger
}

// Handle processes the confirmation callback for one provider.
func (h Callback) Handle(w http.ResponseWriter, r *http.Request) {
	if h.Providers == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "callback unavailable", nil)
		return
	}
	providerKey := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "provider")))
	provider, ok := h.Providers[providerKey]
	if !ok {
		common.JSONError(w, http.StatusNotFound, "PROVIDER_NOT_SUPPORTED", "unknown provider", nil)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "unable to read payload", nil)
		return
	}
	result, err := provider.VerifyCallback(r, body)
	if err != nil {
		h.count(providerKey, "error")
		common.JSONError(w, http.StatusBadRequest, "CALLBACK_INVALID", err.Error(), nil)
		return
	}
	if !result.Valid {
		h.count(providerKey, "invalid_signature")
		common.JSONError(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "signature verification failed", nil)
		return
	}
	var replayKey string
	if h.Replay != nil && h.ReplayTTL > 0 {
		replayKey = fmt.Sprintf("paycb:%s:%s", providerKey, common.Sha256Hex(string(body)))
		ok, err := h.Replay.SetNX(r.Context(), replayKey, "1", h.ReplayTTL).Result()
		if err != nil {
			common.JSONError(w, http.StatusInternalServerError, "REPLAY_STORE_ERROR", err.Error(), nil)
			return
		}
		if !ok {
			h.count(providerKey, "replay")
			common.JSONError(w, http.StatusConflict, "REPLAY", "duplicate callback", nil)
			return
		}
	}

	if result.Status != StatusPaid {
		h.count(providerKey, "failed")
		h.emit(r.Context(), events.TopicPaymentFailed, providerKey, result)
		common.JSON(w, http.StatusOK, map[string]any{"status": "acknowledged"})
		return
	}

	if h.Carts != nil {
		sessionID, err := DecodeExtraData(result.ExtraData)
		if err != nil {
			h.Logger.Warn().Err(err).Str("order_id", result.OrderID).Msg("callback extra data unusable, cart left intact")
		} else if err := h.Carts.Clear(r.Context(), sessionID); err != nil {
			// release the marker so the gateway's redelivery can retry the clear
			h.Logger.Error().Err(err).Str("session_id", sessionID).Msg("clear cart after payment")
			h.releaseReplay(r.Context(), replayKey)
			common.JSONError(w, http.StatusInternalServerError, "CART_CLEAR_FAILED", "payment recorded, cart not cleared", nil)
			return
		}
	}
	h.count(providerKey, "paid")
	h.emit(r.Context(), events.TopicPaymentConfirmed, providerKey, result)
	common.JSON(w, http.StatusOK, map[string]any{"status": "confirmed"})
}

func (h Callback) releaseReplay(ctx context.Context, key string) {
	if h.Replay == nil || key == "" {
		return
	}
	if err := h.Replay.Del(ctx, key).Err(); err != nil {
		h.Logger.Warn().Err(err).Str("key", key).Msg("release replay marker")
	}
}

func (h Callback) count(provider, result string) {
	if obs.PaymentCallbackTotal != nil {
		obs.PaymentCallbackTotal.WithLabelValues(provider, result).Inc()
	}
}

func (h Callback) emit(ctx context.Context, topic, provider string, result CallbackResult) {
	if h.Events == nil {
		return
	}
	_, err := h.Events.Emit(ctx, topic, map[string]any{
		"provider": provider,
		"orderId":  result.OrderID,
		"amount":   result.Amount,
	})
	if err != nil {
		h.Logger.Warn().Err(err).Str("topic", topic).Msg("emit payment event")
	}
}
