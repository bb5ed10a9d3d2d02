package dashboard

import (
	"net/http"

	"github.com/noah-isme/backend-invoice/internal/common"
	"github.com/noah-isme/backend-invoice/internal/invoice"
)

// Handler exposes the dashboard endpoint.
type Handler struct {
	Svc *Service
}

// Overview handles GET /api/v1/dashboard.
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "DASHBOARD_NOT_CONFIGURED", "dashboard service not configured", nil)
		return
	}
	status, ok := invoice.ParseStatusFilter(r.URL.Query().Get("status"))
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "status must be one of all, paid, unpaid, partial", nil)
		return
	}
	out, err := h.Svc.Overview(r.Context(), status)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "DASHBOARD_ERROR", err.Error(), nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}
