package company

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/noah-isme/backend-invoice/internal/common"
)

// Handler exposes the company settings endpoints.
type Handler struct {
	Service *Service
}

type settingsRequest struct {
	Name            string `json:"name" validate:"required,max=200"`
	Address         string `json:"address" validate:"max=500"`
	Phone           string `json:"phone" validate:"max=50"`
	Email           string `json:"email" validate:"omitempty,email,max=254"`
	Logo            string `json:"logo"`
	BankAccountInfo string `json:"bankAccountInfo" validate:"max=1000"`
}

// Get handles GET /api/v1/settings/company.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "company service not configured", nil)
		return
	}
	s, err := h.Service.Get(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": s})
}

// Save handles PUT /api/v1/settings/company.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "company service not configured", nil)
		return
	}
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	if err := common.Validate(req); err != nil {
		h.writeError(w, err)
		return
	}
	s, err := h.Service.Save(r.Context(), Settings{
		Name:            req.Name,
		Address:         req.Address,
		Phone:           req.Phone,
		Email:           req.Email,
		Logo:            req.Logo,
		BankAccountInfo: req.BankAccountInfo,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": s})
}

// Reset handles DELETE /api/v1/settings/company.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "company service not configured", nil)
		return
	}
	if err := h.Service.Reset(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if common.WriteAppError(w, err) {
		return
	}
	switch {
	case errors.Is(err, ErrInvalidLogo):
		common.JSONError(w, http.StatusBadRequest, "INVALID_LOGO", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
