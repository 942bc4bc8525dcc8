package voucher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront-api/internal/resilience"
)

func TestHTTPSourceDropsMalformedEntries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "sess-1", r.URL.Query().Get("session"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"code":"SAVE10","discountType":"PERCENTAGE","discountValue":10},
			{"code":"  ","discountType":"fixed","discountValue":5000},
			{"code":"NEG","discountType":"fixed","discountValue":-1},
			{"code":"WEIRD","discountType":"points","discountValue":10},
			{"code":"FLAT","discountType":"fixed","discountValue":20000,"minOrderAmount":-5}
		]}`))
	}))
	defer server.Close()

	src := HTTPSource{BaseURL: server.URL, Client: resilience.HTTPClient{Client: server.Client(), MaxAttempts: 1}}
	pool, err := src.Available(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, pool, 2)

	require.Equal(t, "SAVE10", pool[0].Code)
	require.Equal(t, TypePercentage, pool[0].DiscountType)
	require.Equal(t, "FLAT", pool[1].Code)
	require.Zero(t, pool[1].MinOrderAmount)
}

func TestHTTPSourceUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	src := HTTPSource{BaseURL: server.URL, Client: resilience.HTTPClient{Client: server.Client(), MaxAttempts: 1}}
	_, err := src.Available(context.Background(), "sess-1")
	require.Error(t, err)
}
