// Package checkout assembles the session cart, the shipping address and the
// derived totals into an order request and places it with the order-creation
// service.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront-api/internal/address"
	"github.com/noah-isme/storefront-api/internal/cart"
	"github.com/noah-isme/storefront-api/internal/events"
	"github.com/noah-isme/storefront-api/internal/obs"
	"github.com/noah-isme/storefront-api/internal/order"
	"github.com/noah-isme/storefront-api/internal/payment"
	"github.com/noah-isme/storefront-api/internal/pricing"
)

// Payment methods accepted at submission.
const (
	MethodCOD          = "cod"
	MethodBankTransfer = "bank_transfer"
	MethodWallet       = "wallet"
)

var (
	// ErrEmptyCart is returned when the session has nothing to order.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrUnknownMethod is returned for a payment method outside the accepted set.
	ErrUnknownMethod = errors.New("unknown payment method")
	// ErrWalletUnavailable is returned for wallet checkouts when no provider
	// is configured.
	ErrWalletUnavailable = errors.New("wallet payments are not configured")
)

// SessionError reports that the order was created but opening the wallet
// payment session failed. The order code travels with the error so the UI can
// tell the shopper which order to retry payment for.
type SessionError struct {
	Order order.Placed
	Err   error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("payment session for order %s: %v", e.Order.Code, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// Input is the submission payload.
type Input struct {
	Address       order.Address `json:"address" validate:"required"`
	PaymentMethod string        `json:"paymentMethod" validate:"required"`
	Note          string        `json:"note,omitempty" validate:"max=500"`
	SaveAddress   bool          `json:"saveAddress,omitempty"`
}

// Output reports the placed order. RedirectURL is set only for wallet
// checkouts; the shopper must be sent there to complete payment.
type Output struct {
	OrderID     string       `json:"orderId"`
	OrderCode   string       `json:"orderCode"`
	Totals      order.Totals `json:"totals"`
	RedirectURL string       `json:"redirectUrl,omitempty"`
}

// Service wires the collaborators of the submission sequence.
type Service struct {
	Carts     *cart.Service
	Orders    order.Creator
	Addresses address.Saver
	Wallet    payment.Provider
	Validate  *validator.Validate
	Events    *events.Bus
	Logger    zerolog.Logger

	TaxBps                int
	FreeShippingThreshold int64
	ShippingFlatFee       int64
	Currency              string
}

// Submit validates the input, snapshots the session cart, computes the final
// totals and places the order. There is no rollback across the collaborator
// calls: an order-service failure aborts before anything else runs, the
// address save is best effort, and for wallet checkouts the cart survives
// until the provider confirms payment through the callback.
func (s *Service) Submit(ctx context.Context, sessionID string, in Input) (Output, error) {
	if s == nil || s.Carts == nil || s.Orders == nil {
		return Output{}, errors.New("checkout service not configured")
	}
	method := strings.ToLower(strings.TrimSpace(in.PaymentMethod))
	switch method {
	case MethodCOD, MethodBankTransfer:
	case MethodWallet:
		if s.Wallet == nil {
			return Output{}, ErrWalletUnavailable
		}
	default:
		return Output{}, fmt.Errorf("%q: %w", in.PaymentMethod, ErrUnknownMethod)
	}
	in.Address = address.Normalize(in.Address)
	if s.Validate != nil {
		if err := s.Validate.StructCtx(ctx, in); err != nil {
			return Output{}, err
		}
	}

	c, err := s.Carts.Get(ctx, sessionID)
	if err != nil {
		return Output{}, err
	}
	if len(c.Items) == 0 {
		return Output{}, ErrEmptyCart
	}

	items := cart.PricingItems(c.Items)
	subtotal := pricing.SumAmount(items)
	discount := s.Carts.Discount(ctx, c, subtotal)
	shipping := pricing.ShippingFee(subtotal, s.FreeShippingThreshold, s.ShippingFlatFee)
	summary := pricing.Compute(items, discount, s.TaxBps, shipping)

	req := order.Request{
		SessionID:     sessionID,
		Address:       in.Address,
		PaymentMethod: method,
		Note:          strings.TrimSpace(in.Note),
		VoucherCode:   c.VoucherCode,
		Currency:      s.Currency,
		Items:         lineItems(c.Items),
		Totals: order.Totals{
			Subtotal: summary.Subtotal,
			Discount: summary.Discount,
			Shipping: summary.Shipping,
			Tax:      summary.Tax,
			Total:    summary.Total,
		},
	}

	placed, err := s.Orders.Create(ctx, req)
	if err != nil {
		return Output{}, err
	}

	if in.SaveAddress {
		s.saveAddress(ctx, sessionID, in.Address)
	}

	out := Output{OrderID: placed.ID, OrderCode: placed.Code, Totals: req.Totals}

	if method == MethodWallet {
		session, err := s.Wallet.CreateSession(ctx, payment.SessionRequest{
			OrderID:   placed.ID,
			OrderCode: placed.Code,
			Amount:    summary.Total,
			OrderInfo: "Order " + placed.Code,
			ExtraData: payment.EncodeExtraData(sessionID),
		})
		if err != nil {
			// The order exists upstream; the cart stays so the shopper can
			// retry the payment session without rebuilding it.
			return Output{}, &SessionError{Order: placed, Err: err}
		}
		out.RedirectURL = session.PayURL
		s.emitPlaced(ctx, sessionID, placed, method, summary.Total)
		return out, nil
	}

	if err := s.Carts.Clear(ctx, sessionID); err != nil {
		s.Logger.Warn().Err(err).Str("session_id", sessionID).Msg("clear cart after order placement")
	}
	s.emitPlaced(ctx, sessionID, placed, method, summary.Total)
	return out, nil
}

func (s *Service) saveAddress(ctx context.Context, sessionID string, addr order.Address) {
	if s.Addresses == nil {
		return
	}
	if err := s.Addresses.SaveDefault(ctx, sessionID, addr); err != nil {
		s.Logger.Warn().Err(err).Str("session_id", sessionID).Msg("save default address")
		if obs.AddressSaveFailures != nil {
			obs.AddressSaveFailures.Inc()
		}
	}
}

func (s *Service) emitPlaced(ctx context.Context, sessionID string, placed order.Placed, method string, total int64) {
	if s.Events == nil {
		return
	}
	_, err := s.Events.Emit(ctx, events.TopicOrderPlaced, map[string]any{
		"sessionId":     sessionID,
		"orderId":       placed.ID,
		"orderCode":     placed.Code,
		"paymentMethod": method,
		"total":         total,
	})
	if err != nil {
		s.Logger.Warn().Err(err).Msg("emit order.placed")
	}
}

func lineItems(items []cart.Item) []order.LineItem {
	out := make([]order.LineItem, 0, len(items))
	for _, it := range items {
		out = append(out, order.LineItem{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Title:     it.Title,
			Qty:       it.Qty,
			UnitPrice: it.UnitPrice,
			Subtotal:  it.Subtotal,
		})
	}
	return out
}
