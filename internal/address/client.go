// Package address talks to the address-book service. Saving the shipping
// address as the shopper's default is best effort: checkout must not fail
// because the address book is down.
package address

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/noah-isme/storefront-api/internal/order"
	"github.com/noah-isme/storefront-api/internal/resilience"
)

// Saver persists a shipping address as the session's default.
type Saver interface {
	SaveDefault(ctx context.Context, sessionID string, addr order.Address) error
}

// Client is the HTTP address-book client.
type Client struct {
	BaseURL string
	HTTP    resilience.HTTPClient
}

type saveRequest struct {
	SessionID string        `json:"sessionId"`
	Address   order.Address `json:"address"`
	IsDefault bool          `json:"isDefault"`
}

func (c Client) SaveDefault(ctx context.Context, sessionID string, addr order.Address) error {
	endpoint, err := url.JoinPath(c.BaseURL, "addresses")
	if err != nil {
		return fmt.Errorf("address endpoint: %w", err)
	}
	raw, err := json.Marshal(saveRequest{SessionID: sessionID, Address: addr, IsDefault: true})
	if err != nil {
		return fmt.Errorf("encode address: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("address request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("address call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("address status %d", resp.StatusCode)
	}
	return nil
}

// Noop is used when no address service is configured.
type Noop struct{}

func (Noop) SaveDefault(context.Context, string, order.Address) error { return nil }

var _ Saver = Client{}
var _ Saver = Noop{}

// Normalize trims surrounding whitespace so equality checks and upstream
// validation see the same value the shopper typed.
func Normalize(a order.Address) order.Address {
	a.ReceiverName = strings.TrimSpace(a.ReceiverName)
	a.Phone = strings.TrimSpace(a.Phone)
	a.AddressLine1 = strings.TrimSpace(a.AddressLine1)
	a.AddressLine2 = strings.TrimSpace(a.AddressLine2)
	a.City = strings.TrimSpace(a.City)
	a.Province = strings.TrimSpace(a.Province)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.Country = strings.TrimSpace(a.Country)
	return a
}
