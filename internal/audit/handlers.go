package audit

import (
	"net/http"
	"strconv"

	"github.com/noah-isme/backend-pos/internal/common"
)

// Handler exposes the audit trail over HTTP.
type Handler struct {
	Trail *Trail
}

// List returns a paginated list of audit entries, newest first.
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Trail == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "audit trail not configured", nil)
		return
	}
	limit := atoiDefault(r.URL.Query().Get("limit"), 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := atoiDefault(r.URL.Query().Get("offset"), 0)
	if offset < 0 {
		offset = 0
	}
	entries, err := h.Trail.List(r.Context(), limit, offset)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "PERSISTENCE", "unable to fetch audit entries", nil)
		return
	}
	common.JSONData(w, http.StatusOK, entries)
}

func atoiDefault(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
