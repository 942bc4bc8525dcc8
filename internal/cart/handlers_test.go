package cart

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront-api/internal/common"
	"github.com/noah-isme/storefront-api/internal/voucher"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc := &Service{
		Store: Store{R: client, TTL: time.Hour},
		Vouchers: voucher.StaticSource{
			{Code: "SAVE10", DiscountType: voucher.TypePercentage, DiscountValue: 10},
		},
		Logger: zerolog.Nop(),
	}
	h := &Handler{
		Svc:                   svc,
		TaxBps:                1000,
		FreeShippingThreshold: 500_000,
		ShippingFlatFee:       30_000,
		Currency:              "VND",
	}

	r := chi.NewRouter()
	r.Use(common.SessionMiddleware)
	r.Route("/cart", func(c chi.Router) {
		c.Get("/", h.Get)
		c.Delete("/", h.Clear)
		c.Post("/items", h.AddItem)
		c.Patch("/items/{itemID}", h.UpdateItem)
		c.Delete("/items/{itemID}", h.RemoveItem)
		c.Post("/voucher", h.ApplyVoucher)
		c.Delete("/voucher", h.RemoveVoucher)
	})
	return r
}

func do(t *testing.T, router http.Handler, method, path, session string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if session != "" {
		req.Header.Set(common.SessionHeader, session)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestCartEndpointsRequireSession(t *testing.T) {
	router := newRouter(t)
	rec := do(t, router, http.MethodGet, "/cart", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartGetIncludesPricingPreview(t *testing.T) {
	router := newRouter(t)

	rec := do(t, router, http.MethodPost, "/cart/items", "sess-1", map[string]any{
		"productId": "prod-1",
		"title":     "Keyboard",
		"qty":       2,
		"unitPrice": 100_000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodGet, "/cart", "sess-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)

	require.Equal(t, "VND", data["currency"])
	require.EqualValues(t, 2, data["totalQty"])
	pricingView, ok := data["pricing"].(map[string]any)
	require.True(t, ok)
	require.EqualValues(t, 200_000, pricingView["subtotal"])
	require.EqualValues(t, 30_000, pricingView["shipping"])
	require.EqualValues(t, 20_000, pricingView["tax"])
	require.EqualValues(t, 250_000, pricingView["total"])
}

func TestCartVoucherFlowOverHTTP(t *testing.T) {
	router := newRouter(t)

	rec := do(t, router, http.MethodPost, "/cart/items", "sess-1", map[string]any{
		"productId": "prod-1",
		"title":     "Monitor",
		"qty":       1,
		"unitPrice": 1_000_000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodPost, "/cart/voucher", "sess-1", map[string]any{"code": "save10"})
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	require.Equal(t, "SAVE10", data["voucher"])
	pricingView := data["pricing"].(map[string]any)
	require.EqualValues(t, 100_000, pricingView["discount"])

	rec = do(t, router, http.MethodPost, "/cart/voucher", "sess-1", map[string]any{"code": "NOPE"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodDelete, "/cart/voucher", "sess-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data = decodeData(t, rec)
	require.Equal(t, "", data["voucher"])
}

func TestCartItemNotFound(t *testing.T) {
	router := newRouter(t)

	rec := do(t, router, http.MethodPost, "/cart/items", "sess-1", map[string]any{
		"productId": "prod-1",
		"title":     "Keyboard",
		"qty":       1,
		"unitPrice": 1000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodPatch, "/cart/items/missing", "sess-1", map[string]any{"qty": 2})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCartClear(t *testing.T) {
	router := newRouter(t)

	rec := do(t, router, http.MethodPost, "/cart/items", "sess-1", map[string]any{
		"productId": "prod-1",
		"title":     "Keyboard",
		"qty":       1,
		"unitPrice": 1000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodDelete, "/cart", "sess-1", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodGet, "/cart", "sess-1", nil)
	data := decodeData(t, rec)
	items := data["items"].([]any)
	require.Empty(t, items)
}
