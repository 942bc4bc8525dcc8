package voucher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/noah-isme/storefront-api/internal/resilience"
)

// Source lists the vouchers available to a session. Implementations are
// read-only; selecting a voucher is a local cart concern.
type Source interface {
	Available(ctx context.Context, sessionID string) ([]Voucher, error)
}

// StaticSource serves a fixed pool. Used in tests and local development.
type StaticSource []Voucher

// Available returns the fixed pool regardless of session.
func (s StaticSource) Available(_ context.Context, _ string) ([]Voucher, error) {
	return s, nil
}

// HTTPSource fetches the session's voucher pool from the voucher service.
// Responses are decoded into explicit shapes and coerced at this boundary;
// entries the service returns malformed are dropped rather than trusted.
type HTTPSource struct {
	BaseURL string
	Client  resilience.HTTPClient
}

// Available lists vouchers assigned to the session or globally active.
func (s HTTPSource) Available(ctx context.Context, sessionID string) ([]Voucher, error) {
	endpoint, err := url.JoinPath(s.BaseURL, "vouchers")
	if err != nil {
		return nil, fmt.Errorf("voucher source url: %w", err)
	}
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("voucher source request: %w", err)
	}
	q := req.URL.Query()
	q.Set("session", sessionID)
	req.URL.RawQuery = q.Encode()

	resp, err := s.Client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("voucher source call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("voucher source status %d", resp.StatusCode)
	}

	var payload struct {
		Data []Voucher `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("voucher source decode: %w", err)
	}
	return sanitize(payload.Data), nil
}

func sanitize(in []Voucher) []Voucher {
	out := make([]Voucher, 0, len(in))
	for _, v := range in {
		v.Code = strings.TrimSpace(v.Code)
		if v.Code == "" || v.DiscountValue < 0 {
			continue
		}
		kind := strings.ToLower(strings.TrimSpace(v.DiscountType))
		if kind != TypePercentage && kind != TypeFixed {
			continue
		}
		v.DiscountType = kind
		if v.MinOrderAmount < 0 {
			v.MinOrderAmount = 0
		}
		if v.MaxDiscount < 0 {
			v.MaxDiscount = 0
		}
		out = append(out, v)
	}
	return out
}
