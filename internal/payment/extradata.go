package payment

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

type extraData struct {
	SessionID string `json:"sessionId"`
}

// EncodeExtraData packs the storefront session identifier into the opaque
// extra-data field providers echo back on callbacks.
func EncodeExtraData(sessionID string) string {
	raw, _ := json.Marshal(extraData{SessionID: sessionID})
	return base64.StdEncoding.EncodeToString(raw)
}

// DecodeExtraData recovers the session identifier from callback extra data.
func DecodeExtraData(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("extra data is empty")
	}
	raw, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		return "", fmt.Errorf("decode extra data: %w", err)
	}
	var data extraData
	if err := json.Unmarshal(raw, &data); err != nil {
		return "", fmt.Errorf("parse extra data: %w", err)
	}
	if data.SessionID == "" {
		return "", fmt.Errorf("extra data has no session id")
	}
	return data.SessionID, nil
}
