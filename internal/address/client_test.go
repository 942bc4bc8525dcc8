package address

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront-api/internal/order"
	"github.com/noah-isme/storefront-api/internal/resilience"
)

func TestClientSaveDefault(t *testing.T) {
	var received saveRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/addresses", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := Client{BaseURL: server.URL, HTTP: resilience.HTTPClient{Client: server.Client(), MaxAttempts: 1}}
	addr := order.Address{ReceiverName: "Tran Binh", Phone: "0900000001", AddressLine1: "12 Ly Thuong Kiet", City: "Hanoi", Province: "Hanoi"}
	require.NoError(t, client.SaveDefault(context.Background(), "sess-1", addr))
	require.Equal(t, "sess-1", received.SessionID)
	require.True(t, received.IsDefault)
	require.Equal(t, "Tran Binh", received.Address.ReceiverName)
}

func TestClientSaveDefaultUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := Client{BaseURL: server.URL, HTTP: resilience.HTTPClient{Client: server.Client(), MaxAttempts: 1}}
	require.Error(t, client.SaveDefault(context.Background(), "sess-1", order.Address{}))
}

func TestNormalizeTrimsFields(t *testing.T) {
	addr := Normalize(order.Address{ReceiverName: "  Tran Binh ", City: " Hanoi", Country: "VN "})
	require.Equal(t, "Tran Binh", addr.ReceiverName)
	require.Equal(t, "Hanoi", addr.City)
	require.Equal(t, "VN", addr.Country)
}
