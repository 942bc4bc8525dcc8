package voucher

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront-api/internal/common"
)

// Handler exposes the voucher pool to the storefront client.
type Handler struct {
	Source Source
	Logger zerolog.Logger
}

// List returns the vouchers available to the session. Loading the pool is
// best-effort: on upstream failure the client sees an empty list and the
// primary flow is never blocked.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	sessionID, _ := common.SessionID(r.Context())
	pool := []Voucher{}
	if h.Source != nil {
		loaded, err := h.Source.Available(r.Context(), sessionID)
		if err != nil {
			h.Logger.Warn().Err(err).Str("session_id", sessionID).Msg("list vouchers")
		} else {
			pool = loaded
		}
	}
	common.JSONData(w, http.StatusOK, map[string]any{"vouchers": pool})
}
