package resilience_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront-api/internal/resilience"
)

func TestHTTPClientBodyReadableAfterDoReturns(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "hello ")
		w.(http.Flusher).Flush()
		time.Sleep(150 * time.Millisecond)
		_, _ = io.WriteString(w, "world")
	}))
	defer server.Close()

	client := resilience.HTTPClient{
		Client:      server.Client(),
		MaxAttempts: 1,
		Timeout:     2 * time.Second,
	}
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(context.Background(), req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "body must stay readable until the caller closes it")
	require.Equal(t, "hello world", string(data))
}

func TestHTTPClientTimeoutStillCancelsSlowCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "partial")
		w.(http.Flusher).Flush()
		time.Sleep(500 * time.Millisecond)
		_, _ = io.WriteString(w, " never delivered")
	}))
	defer server.Close()

	client := resilience.HTTPClient{
		Client:      server.Client(),
		MaxAttempts: 1,
		Timeout:     50 * time.Millisecond,
	}
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(context.Background(), req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	_, err = io.ReadAll(resp.Body)
	require.Error(t, err, "attempt deadline still bounds slow bodies")
}
