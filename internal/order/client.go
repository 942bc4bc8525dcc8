package order

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/noah-isme/storefront-api/internal/resilience"
)

// ErrRejected is returned when the order service answered but refused the order.
var ErrRejected = errors.New("order rejected by order service")

// Creator places assembled orders with the order-creation service.
type Creator interface {
	Create(ctx context.Context, req Request) (Placed, error)
}

// Client talks to the order-creation service over HTTP. Order creation is not
// idempotent upstream, so the wrapped client must keep MaxAttempts at one.
type Client struct {
	BaseURL string
	HTTP    resilience.HTTPClient
}

type createResponse struct {
	Success bool `json:"success"`
	Order   struct {
		ID   string `json:"id"`
		Code string `json:"code"`
	} `json:"order"`
	Message string `json:"message"`
}

// Create submits the order request. Any transport error, non-2xx status or
// success=false answer aborts the checkout flow; the caller surfaces it.
func (c Client) Create(ctx context.Context, reqBody Request) (Placed, error) {
	endpoint, err := url.JoinPath(c.BaseURL, "orders")
	if err != nil {
		return Placed{}, fmt.Errorf("order service url: %w", err)
	}
	raw, err := json.Marshal(reqBody)
	if err != nil {
		return Placed{}, fmt.Errorf("encode order request: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return Placed{}, fmt.Errorf("order service request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return Placed{}, fmt.Errorf("order service call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Placed{}, fmt.Errorf("order service status %d: %w", resp.StatusCode, ErrRejected)
	}
	var payload createResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Placed{}, fmt.Errorf("decode order response: %w", err)
	}
	if !payload.Success {
		msg := strings.TrimSpace(payload.Message)
		if msg == "" {
			msg = "order service reported failure"
		}
		return Placed{}, fmt.Errorf("%s: %w", msg, ErrRejected)
	}
	if payload.Order.ID == "" {
		return Placed{}, fmt.Errorf("order service returned no order id: %w", ErrRejected)
	}
	return Placed{ID: payload.Order.ID, Code: payload.Order.Code}, nil
}
