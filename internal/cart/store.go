package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// ErrNotFound indicates the requested cart could not be located.
var ErrNotFound = errors.New("cart not found")

// Item is one product variant and quantity within the session cart. UnitPrice
// is captured at add-to-cart time and is never re-fetched; order snapshots
// carry this price regardless of later catalog changes.
type Item struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
	Title     string `json:"title"`
	Qty       int    `json:"qty"`
	UnitPrice int64  `json:"unitPrice"`
	Subtotal  int64  `json:"subtotal"`
}

// Cart is the session cart held in Redis. VoucherCode is the 0-or-1 selected
// voucher binding; the discount it contributes is recomputed on every read.
type Cart struct {
	SessionID   string    `json:"sessionId"`
	Items       []Item    `json:"items"`
	VoucherCode string    `json:"voucherCode,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Store persists session carts in Redis under a TTL refreshed on every write.
type Store struct {
	R      *redis.Client
	TTL    time.Duration
	Prefix string
}

func (s Store) key(sessionID string) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = "cart:"
	}
	return prefix + sessionID
}

func (s Store) ttl() time.Duration {
	if s.TTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return s.TTL
}

// Get loads the cart for a session. A missing key yields ErrNotFound.
func (s Store) Get(ctx context.Context, sessionID string) (Cart, error) {
	if s.R == nil {
		return Cart{}, errors.New("cart store not configured")
	}
	raw, err := s.R.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Cart{}, ErrNotFound
		}
		return Cart{}, fmt.Errorf("load cart: %w", err)
	}
	var c Cart
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cart{}, fmt.Errorf("decode cart: %w", err)
	}
	c.SessionID = sessionID
	return c, nil
}

// Save writes the cart back and refreshes its TTL.
func (s Store) Save(ctx context.Context, c Cart) error {
	if s.R == nil {
		return errors.New("cart store not configured")
	}
	c.UpdatedAt = time.Now()
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.R.Set(ctx, s.key(c.SessionID), raw, s.ttl()).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// Delete removes the session cart entirely.
func (s Store) Delete(ctx context.Context, sessionID string) error {
	if s.R == nil {
		return errors.New("cart store not configured")
	}
	if err := s.R.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}
