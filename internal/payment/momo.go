package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/storefront-api/internal/resilience"
)

// MoMo implements the Provider interface for the MoMo wallet gateway. Session
// creation performs a real call to the gateway; session creation is not
// idempotent upstream so the wrapped client keeps MaxAttempts at one.
type MoMo struct {
	PartnerCode string
	AccessKey   string
	SecretKey   string
	Endpoint    string
	ReturnURL   string
	NotifyURL   string
	HTTP        resilience.HTTPClient
}

type momoCreateRequest struct {
	PartnerCode string `json:"partnerCode"`
	AccessKey   string `json:"accessKey"`
	RequestID   string `json:"requestId"`
	Amount      int64  `json:"amount"`
	OrderID     string `json:"orderId"`
	OrderInfo   string `json:"orderInfo"`
	RedirectURL string `json:"redirectUrl"`
	IpnURL      string `json:"ipnUrl"`
	ExtraData   string `json:"extraData"`
	RequestType string `json:"requestType"`
	Signature   string `json:"signature"`
}

type momoCreateResponse struct {
	PayURL     string `json:"payUrl"`
	ResultCode int    `json:"resultCode"`
	Message    string `json:"message"`
}

const momoRequestType = "captureWallet"

// CreateSession opens a wallet payment session and returns the redirect URL.
func (m MoMo) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	if strings.TrimSpace(req.OrderID) == "" {
		return Session{}, errors.New("order id is required")
	}
	if req.Amount <= 0 {
		return Session{}, errors.New("amount must be positive")
	}
	requestID := uuid.NewString()
	payload := momoCreateRequest{
		PartnerCode: m.PartnerCode,
		AccessKey:   m.AccessKey,
		RequestID:   requestID,
		Amount:      req.Amount,
		OrderID:     req.OrderID,
		OrderInfo:   req.OrderInfo,
		RedirectURL: m.ReturnURL,
		IpnURL:      m.NotifyURL,
		ExtraData:   req.ExtraData,
		RequestType: momoRequestType,
	}
	payload.Signature = m.signCreate(payload)

	endpoint, err := url.JoinPath(m.Endpoint, "v2/gateway/api/create")
	if err != nil {
		return Session{}, fmt.Errorf("momo endpoint: %w", err)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Session{}, fmt.Errorf("encode momo request: %w", err)
	}
	httpReq, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return Session{}, fmt.Errorf("momo request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.HTTP.Do(ctx, httpReq)
	if err != nil {
		return Session{}, fmt.Errorf("momo call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return Session{}, fmt.Errorf("momo status %d", resp.StatusCode)
	}
	var out momoCreateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Session{}, fmt.Errorf("decode momo response: %w", err)
	}
	if out.ResultCode != 0 {
		msg := strings.TrimSpace(out.Message)
		if msg == "" {
			msg = "momo rejected the session"
		}
		return Session{}, fmt.Errorf("momo result %d: %s", out.ResultCode, msg)
	}
	if strings.TrimSpace(out.PayURL) == "" {
		return Session{}, errors.New("momo returned no pay url")
	}
	return Session{Provider: "momo", RequestID: requestID, PayURL: out.PayURL}, nil
}

// momoCallback is the IPN payload MoMo posts back after the shopper finishes
// (or abandons) the wallet flow.
type momoCallback struct {
	PartnerCode  string      `json:"partnerCode"`
	OrderID      string      `json:"orderId"`
	RequestID    string      `json:"requestId"`
	Amount       json.Number `json:"amount"`
	OrderInfo    string      `json:"orderInfo"`
	OrderType    string      `json:"orderType"`
	TransID      json.Number `json:"transId"`
	ResultCode   json.Number `json:"resultCode"`
	Message      string      `json:"message"`
	PayType      string      `json:"payType"`
	ResponseTime json.Number `json:"responseTime"`
	ExtraData    string      `json:"extraData"`
	Signature    string      `json:"signature"`
}

// VerifyCallback validates the IPN signature and normalises the payload.
func (m MoMo) VerifyCallback(_ *http.Request, body []byte) (CallbackResult, error) {
	var payload momoCallback
	if err := json.Unmarshal(body, &payload); err != nil {
		return CallbackResult{Valid: false, Err: err}, nil
	}
	if payload.OrderID == "" {
		return CallbackResult{Valid: false, Err: errors.New("missing order id")}, nil
	}

	expected := m.signCallback(payload)
	provided := strings.TrimSpace(payload.Signature)
	if expected == "" || provided == "" || !hmac.Equal([]byte(expected), []byte(provided)) {
		return CallbackResult{Valid: false, Err: errors.New("invalid signature")}, nil
	}

	amount, _ := payload.Amount.Int64()
	status := StatusFailed
	if code, err := payload.ResultCode.Int64(); err == nil && code == 0 {
		status = StatusPaid
	}
	return CallbackResult{
		Valid:     true,
		OrderID:   payload.OrderID,
		Amount:    amount,
		Status:    status,
		ExtraData: payload.ExtraData,
		Payload:   body,
	}, nil
}

func (m MoMo) signCreate(req momoCreateRequest) string {
	raw := fmt.Sprintf(
		"accessKey=%s&amount=%d&extraData=%s&ipnUrl=%s&orderId=%s&orderInfo=%s&partnerCode=%s&redirectUrl=%s&requestId=%s&requestType=%s",
		req.AccessKey, req.Amount, req.ExtraData, req.IpnURL, req.OrderID,
		req.OrderInfo, req.PartnerCode, req.RedirectURL, req.RequestID, req.RequestType,
	)
	return m.hmacHex(raw)
}

func (m MoMo) signCallback(p momoCallback) string {
	raw := fmt.Sprintf(
		"accessKey=%s&amount=%s&extraData=%s&message=%s&orderId=%s&orderInfo=%s&orderType=%s&partnerCode=%s&payType=%s&requestId=%s&responseTime=%s&resultCode=%s&transId=%s",
		m.AccessKey, numberString(p.Amount), p.ExtraData, p.Message, p.OrderID,
		p.OrderInfo, p.OrderType, p.PartnerCode, p.PayType, p.RequestID,
		numberString(p.ResponseTime), numberString(p.ResultCode), numberString(p.TransID),
	)
	return m.hmacHex(raw)
}

func (m MoMo) hmacHex(raw string) string {
	key := strings.TrimSpace(m.SecretKey)
	if key == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

func numberString(n json.Number) string {
	s := n.String()
	// json.Number keeps the wire representation; an absent field is "".
	if s == "" {
		return "0"
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return "0"
	}
	return s
}
