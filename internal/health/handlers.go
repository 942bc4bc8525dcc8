package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	redis "github.com/redis/go-redis/v9"
)

var ready atomic.Bool

func init() { ready.Store(true) }

// SetReady flips the readiness gate. The server flips it off at the start of
// graceful shutdown so load balancers stop routing new traffic.
func SetReady(v bool) { ready.Store(v) }

// Checker represents dependencies that can be probed for readiness.
type Checker interface {
	PingRedis(ctx context.Context, timeout time.Duration) error
	PingOrders(ctx context.Context, timeout time.Duration) error
}

// Probes is the production Checker backed by the session store and the
// order-creation service.
type Probes struct {
	Redis     *redis.Client
	OrdersURL string
	HTTP      *http.Client
}

func (p Probes) PingRedis(ctx context.Context, timeout time.Duration) error {
	if p.Redis == nil {
		return fmt.Errorf("redis client not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Redis.Ping(ctx).Err()
}

func (p Probes) PingOrders(ctx context.Context, timeout time.Duration) error {
	if p.OrdersURL == "" {
		return fmt.Errorf("order service not configured")
	}
	endpoint, err := url.JoinPath(p.OrdersURL, "health")
	if err != nil {
		return fmt.Errorf("order health endpoint: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	client := p.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("order service status %d", resp.StatusCode)
	}
	return nil
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checker       Checker
	RedisTimeout  time.Duration
	OrdersTimeout time.Duration
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on dependency probes.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !ready.Load() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	if h.Checker == nil {
		http.Error(w, "dependencies unavailable", http.StatusServiceUnavailable)
		return
	}
	ctx := r.Context()
	redisStatus := "ok"
	if err := h.Checker.PingRedis(ctx, h.redisTimeout()); err != nil {
		redisStatus = err.Error()
	}
	ordersStatus := "ok"
	if err := h.Checker.PingOrders(ctx, h.ordersTimeout()); err != nil {
		ordersStatus = err.Error()
	}
	status := map[string]string{
		"redis":  redisStatus,
		"orders": ordersStatus,
	}
	w.Header().Set("Content-Type", "application/json")
	if redisStatus != "ok" || ordersStatus != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(status)
}

func (h Handler) redisTimeout() time.Duration {
	if h.RedisTimeout <= 0 {
		return 300 * time.Millisecond
	}
	return h.RedisTimeout
}

func (h Handler) ordersTimeout() time.Duration {
	if h.OrdersTimeout <= 0 {
		return 500 * time.Millisecond
	}
	return h.OrdersTimeout
}
