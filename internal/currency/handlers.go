package currency

import (
	"net/http"

	"github.com/noah-isme/backend-invoice/internal/common"
)

// Handler serves the currency catalogue.
type Handler struct {
	Default Code
}

// List handles GET /api/v1/currencies.
func (h Handler) List(w http.ResponseWriter, _ *http.Request) {
	def := h.Default
	if !def.Valid() {
		def = USD
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": All(),
		"meta": map[string]any{"default": def},
	})
}
