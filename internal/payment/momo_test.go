package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront-api/internal/resilience"
)

func TestCreateSessionSignsAndParsesResponse(t *testing.T) {
	var received momoCreateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_ = json.NewEncoder(w).Encode(momoCreateResponse{PayURL: "https://pay.example/abc", ResultCode: 0})
	}))
	defer server.Close()

	m := MoMo{
		PartnerCode: "PARTNER",
		AccessKey:   "access",
		SecretKey:   "secret",
		Endpoint:    server.URL,
		ReturnURL:   "https://shop.example/return",
		NotifyURL:   "https://shop.example/ipn",
		HTTP:        resilience.HTTPClient{Client: server.Client(), MaxAttempts: 1},
	}
	session, err := m.CreateSession(context.Background(), SessionRequest{
		OrderID:   "ord-1",
		OrderCode: "SO-1",
		Amount:    150_000,
		OrderInfo: "Order SO-1",
		ExtraData: EncodeExtraData("sess-1"),
	})
	require.NoError(t, err)
	require.Equal(t, "momo", session.Provider)
	require.Equal(t, "https://pay.example/abc", session.PayURL)
	require.NotEmpty(t, session.RequestID)

	require.Equal(t, "PARTNER", received.PartnerCode)
	require.Equal(t, momoRequestType, received.RequestType)
	require.Equal(t, m.signCreate(received), received.Signature)
}

func TestCreateSessionRejectedResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(momoCreateResponse{ResultCode: 41, Message: "order exists"})
	}))
	defer server.Close()

	m := MoMo{
		PartnerCode: "PARTNER",
		AccessKey:   "access",
		SecretKey:   "secret",
		Endpoint:    server.URL,
		HTTP:        resilience.HTTPClient{Client: server.Client(), MaxAttempts: 1},
	}
	_, err := m.CreateSession(context.Background(), SessionRequest{OrderID: "ord-1", Amount: 1000})
	require.Error(t, err)
	require.Contains(t, err.Error(), "order exists")
}

func signTestCallback(secret string, fields map[string]string) string {
	raw := fmt.Sprintf(
		"accessKey=%s&amount=%s&extraData=%s&message=%s&orderId=%s&orderInfo=%s&orderType=%s&partnerCode=%s&payType=%s&requestId=%s&responseTime=%s&resultCode=%s&transId=%s",
		fields["accessKey"], fields["amount"], fields["extraData"], fields["message"],
		fields["orderId"], fields["orderInfo"], fields["orderType"], fields["partnerCode"],
		fields["payType"], fields["requestId"], fields["responseTime"], fields["resultCode"], fields["transId"],
	)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

func callbackBody(t *testing.T, secret string, resultCode string, extra string) []byte {
	t.Helper()
	fields := map[string]string{
		"accessKey":    "access",
		"amount":       "150000",
		"extraData":    extra,
		"message":      "Successful.",
		"orderId":      "ord-1",
		"orderInfo":    "Order SO-1",
		"orderType":    "momo_wallet",
		"partnerCode":  "PARTNER",
		"payType":      "qr",
		"requestId":    "req-1",
		"responseTime": "1700000000000",
		"resultCode":   resultCode,
		"transId":      "99001122",
	}
	body := map[string]any{
		"partnerCode":  fields["partnerCode"],
		"orderId":      fields["orderId"],
		"requestId":    fields["requestId"],
		"amount":       json.Number(fields["amount"]),
		"orderInfo":    fields["orderInfo"],
		"orderType":    fields["orderType"],
		"transId":      json.Number(fields["transId"]),
		"resultCode":   json.Number(fields["resultCode"]),
		"message":      fields["message"],
		"payType":      fields["payType"],
		"responseTime": json.Number(fields["responseTime"]),
		"extraData":    fields["extraData"],
		"signature":    signTestCallback(secret, fields),
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return raw
}

func TestVerifyCallbackValidSignature(t *testing.T) {
	m := MoMo{PartnerCode: "PARTNER", AccessKey: "access", SecretKey: "secret"}
	extra := EncodeExtraData("sess-1")

	result, err := m.VerifyCallback(nil, callbackBody(t, "secret", "0", extra))
	require.NoError(t, err)
	require.True(t, result.Valid)
	require.Equal(t, StatusPaid, result.Status)
	require.Equal(t, "ord-1", result.OrderID)
	require.Equal(t, int64(150_000), result.Amount)

	sessionID, err := DecodeExtraData(result.ExtraData)
	require.NoError(t, err)
	require.Equal(t, "sess-1", sessionID)
}

func TestVerifyCallbackWrongSecret(t *testing.T) {
	m := MoMo{PartnerCode: "PARTNER", AccessKey: "access", SecretKey: "secret"}
	result, err := m.VerifyCallback(nil, callbackBody(t, "other-secret", "0", ""))
	require.NoError(t, err)
	require.False(t, result.Valid)
}

func TestVerifyCallbackFailedPayment(t *testing.T) {
	m := MoMo{PartnerCode: "PARTNER", AccessKey: "access", SecretKey: "secret"}
	result, err := m.VerifyCallback(nil, callbackBody(t, "secret", "1006", ""))
	require.NoError(t, err)
	require.True(t, result.Valid)
	require.Equal(t, StatusFailed, result.Status)
}
