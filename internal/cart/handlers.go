package cart

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/storefront-api/internal/common"
	"github.com/noah-isme/storefront-api/internal/obs"
	"github.com/noah-isme/storefront-api/internal/pricing"
	"github.com/noah-isme/storefront-api/internal/voucher"
)

// Handler wires the session cart to HTTP.
type Handler struct {
	Svc                   *Service
	TaxBps                int
	FreeShippingThreshold int64
	ShippingFlatFee       int64
	Currency              string
}

// Get returns cart contents and a pricing preview.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}
	c, err := h.Svc.Get(r.Context(), sessionID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, h.view(r, c))
}

// AddItem appends a line item or increments a matching one.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}
	var payload struct {
		ProductID string `json:"productId"`
		VariantID string `json:"variantId"`
		Title     string `json:"title"`
		Qty       int    `json:"qty"`
		UnitPrice int64  `json:"unitPrice"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	c, err := h.Svc.AddItem(r.Context(), sessionID, payload.ProductID, payload.VariantID, payload.Title, payload.Qty, payload.UnitPrice)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, h.view(r, c))
}

// UpdateItem changes a line item quantity.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}
	var payload struct {
		Qty int `json:"qty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	c, err := h.Svc.UpdateQty(r.Context(), sessionID, chi.URLParam(r, "itemID"), payload.Qty)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, h.view(r, c))
}

// RemoveItem deletes a line item.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}
	c, err := h.Svc.RemoveItem(r.Context(), sessionID, chi.URLParam(r, "itemID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, h.view(r, c))
}

// Clear drops the whole cart.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Clear(r.Context(), sessionID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApplyVoucher selects a voucher for the cart, replacing any prior selection.
func (h *Handler) ApplyVoucher(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}
	var payload struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	c, err := h.Svc.ApplyVoucher(r.Context(), sessionID, payload.Code)
	if err != nil {
		if obs.VoucherAppliedTotal != nil {
			obs.VoucherAppliedTotal.WithLabelValues("rejected").Inc()
		}
		h.writeError(w, err)
		return
	}
	if obs.VoucherAppliedTotal != nil {
		obs.VoucherAppliedTotal.WithLabelValues("applied").Inc()
	}
	common.JSONData(w, http.StatusOK, h.view(r, c))
}

// RemoveVoucher clears the voucher selection.
func (h *Handler) RemoveVoucher(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}
	c, err := h.Svc.RemoveVoucher(r.Context(), sessionID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, h.view(r, c))
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (string, bool) {
	sessionID, ok := common.SessionID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "SESSION_REQUIRED", "missing "+common.SessionHeader+" header", nil)
		return "", false
	}
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return "", false
	}
	return sessionID, true
}

func (h *Handler) view(r *http.Request, c Cart) map[string]any {
	items := make([]map[string]any, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, map[string]any{
			"id":        it.ID,
			"productId": it.ProductID,
			"variantId": it.VariantID,
			"title":     it.Title,
			"qty":       it.Qty,
			"unitPrice": it.UnitPrice,
			"subtotal":  it.Subtotal,
		})
	}
	pricingItems := PricingItems(c.Items)
	subtotal := pricing.SumAmount(pricingItems)
	discount := h.Svc.Discount(r.Context(), c, subtotal)
	shipping := pricing.ShippingFee(subtotal, h.FreeShippingThreshold, h.ShippingFlatFee)
	summary := pricing.Compute(pricingItems, discount, h.TaxBps, shipping)
	return map[string]any{
		"sessionId": c.SessionID,
		"voucher":   c.VoucherCode,
		"items":     items,
		"totalQty":  pricing.SumQuantity(pricingItems),
		"pricing": map[string]any{
			"subtotal": summary.Subtotal,
			"discount": summary.Discount,
			"shipping": summary.Shipping,
			"tax":      summary.Tax,
			"total":    summary.Total,
		},
		"currency": h.Currency,
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart item not found", nil)
	case errors.Is(err, voucher.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "VOUCHER_NOT_FOUND", "voucher code not available", nil)
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to process cart", nil)
	}
}
