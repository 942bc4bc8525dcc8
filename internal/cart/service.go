package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront-api/internal/events"
	"github.com/noah-isme/storefront-api/internal/pricing"
	"github.com/noah-isme/storefront-api/internal/voucher"
)

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// Service encapsulates session cart operations.
type Service struct {
	Store    Store
	Vouchers voucher.Source
	Events   *events.Bus
	Logger   zerolog.Logger
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Get returns the session cart, or an empty cart when none exists yet.
func (s *Service) Get(ctx context.Context, sessionID string) (Cart, error) {
	if s == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	c, err := s.Store.Get(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return Cart{SessionID: sessionID}, nil
	}
	return c, err
}

// AddItem inserts a line or increments an existing one matching the same
// product and variant. The unit price sticks from the first add.
func (s *Service) AddItem(ctx context.Context, sessionID, productID, variantID, title string, qty int, unitPrice int64) (Cart, error) {
	if s == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	if qty <= 0 {
		return Cart{}, fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	if unitPrice < 0 {
		return Cart{}, fmt.Errorf("unit price must not be negative: %w", ErrInvalidInput)
	}
	if strings.TrimSpace(productID) == "" {
		return Cart{}, fmt.Errorf("productId is required: %w", ErrInvalidInput)
	}

	c, err := s.Get(ctx, sessionID)
	if err != nil {
		return Cart{}, err
	}
	merged := false
	for i := range c.Items {
		if c.Items[i].ProductID == productID && c.Items[i].VariantID == variantID {
			c.Items[i].Qty += qty
			c.Items[i].Subtotal = int64(c.Items[i].Qty) * c.Items[i].UnitPrice
			merged = true
			break
		}
	}
	if !merged {
		c.Items = append(c.Items, Item{
			ID:        uuid.NewString(),
			ProductID: productID,
			VariantID: variantID,
			Title:     strings.TrimSpace(title),
			Qty:       qty,
			UnitPrice: unitPrice,
			Subtotal:  int64(qty) * unitPrice,
		})
	}
	return s.persist(ctx, c)
}

// UpdateQty changes the quantity of one line item.
func (s *Service) UpdateQty(ctx context.Context, sessionID, itemID string, qty int) (Cart, error) {
	if s == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	if qty <= 0 {
		return Cart{}, fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	c, err := s.Store.Get(ctx, sessionID)
	if err != nil {
		return Cart{}, err
	}
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items[i].Qty = qty
			c.Items[i].Subtotal = int64(qty) * c.Items[i].UnitPrice
			return s.persist(ctx, c)
		}
	}
	return Cart{}, ErrNotFound
}

// RemoveItem deletes one line item from the cart.
func (s *Service) RemoveItem(ctx context.Context, sessionID, itemID string) (Cart, error) {
	if s == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	c, err := s.Store.Get(ctx, sessionID)
	if err != nil {
		return Cart{}, err
	}
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return s.persist(ctx, c)
		}
	}
	return Cart{}, ErrNotFound
}

// Clear removes the whole session cart.
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	if s == nil {
		return errors.New("cart service not configured")
	}
	if err := s.Store.Delete(ctx, sessionID); err != nil {
		return err
	}
	s.emit(ctx, sessionID, 0)
	return nil
}

// ApplyVoucher binds a voucher code to the cart, replacing any prior
// selection. The code must exist in the pool available to the session; its
// discount contribution is recomputed on every read and may be zero when the
// cart does not meet the voucher terms.
func (s *Service) ApplyVoucher(ctx context.Context, sessionID, code string) (Cart, error) {
	if s == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	pool := s.availableVouchers(ctx, sessionID)
	found, err := voucher.Find(pool, code)
	if err != nil {
		return Cart{}, err
	}
	c, err := s.Get(ctx, sessionID)
	if err != nil {
		return Cart{}, err
	}
	c.VoucherCode = found.Code
	return s.persist(ctx, c)
}

// RemoveVoucher clears the voucher selection.
func (s *Service) RemoveVoucher(ctx context.Context, sessionID string) (Cart, error) {
	if s == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	c, err := s.Get(ctx, sessionID)
	if err != nil {
		return Cart{}, err
	}
	c.VoucherCode = ""
	return s.persist(ctx, c)
}

// Discount resolves the discount the selected voucher contributes for the
// given subtotal. Voucher pool lookups are best-effort: when the source is
// unavailable the selection stays but contributes nothing.
func (s *Service) Discount(ctx context.Context, c Cart, subtotal int64) int64 {
	if s == nil || c.VoucherCode == "" {
		return 0
	}
	pool := s.availableVouchers(ctx, c.SessionID)
	found, err := voucher.Find(pool, c.VoucherCode)
	if err != nil {
		return 0
	}
	return voucher.Discount(&found, subtotal, s.now())
}

// PricingItems converts cart lines for the pricing engine.
func PricingItems(items []Item) []pricing.Item {
	out := make([]pricing.Item, 0, len(items))
	for _, it := range items {
		out = append(out, pricing.Item{Qty: it.Qty, UnitPrice: it.UnitPrice})
	}
	return out
}

func (s *Service) availableVouchers(ctx context.Context, sessionID string) []voucher.Voucher {
	if s.Vouchers == nil {
		return nil
	}
	pool, err := s.Vouchers.Available(ctx, sessionID)
	if err != nil {
		s.Logger.Warn().Err(err).Str("session_id", sessionID).Msg("voucher source unavailable")
		return nil
	}
	return pool
}

func (s *Service) persist(ctx context.Context, c Cart) (Cart, error) {
	if err := s.Store.Save(ctx, c); err != nil {
		return Cart{}, err
	}
	s.emit(ctx, c.SessionID, pricing.SumQuantity(PricingItems(c.Items)))
	return c, nil
}

func (s *Service) emit(ctx context.Context, sessionID string, totalQty int) {
	if s.Events == nil {
		return
	}
	_, err := s.Events.Emit(ctx, events.TopicCartUpdated, map[string]any{
		"sessionId": sessionID,
		"totalQty":  totalQty,
	})
	if err != nil {
		s.Logger.Warn().Err(err).Msg("emit cart.updated")
	}
}
