package payment

import (
	"context"
	"net/http"
)

// SessionRequest captures the information required to open a wallet payment
// session with a provider.
type SessionRequest struct {
	OrderID   string
	OrderCode string
	Amount    int64
	OrderInfo string
	// ExtraData is echoed back on the confirmation callback; the storefront
	// uses it to carry the session identifier whose cart must be cleared.
	ExtraData string
}

// Session represents the minimal information returned by a provider when a
// payment session is created. The caller redirects the shopper to PayURL; the
// order is not complete until the provider confirms out-of-band.
type Session struct {
	Provider  string
	RequestID string
	PayURL    string
}

// CallbackResult contains the normalised data extracted from a confirmation
// callback after signature verification.
type CallbackResult struct {
	Valid     bool
	OrderID   string
	Amount    int64
	Status    string
	ExtraData string
	Payload   []byte
	Err       error
}

// Normalised callback statuses.
const (
	StatusPaid   = "PAID"
	StatusFailed = "FAILED"
)

// Provider abstracts the operations required from an upstream wallet payment
// provider.
type Provider interface {
	CreateSession(ctx context.Context, req SessionRequest) (Session, error)
	VerifyCallback(r *http.Request, body []byte) (CallbackResult, error)
}
