package currency_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-invoice/internal/currency"
)

func TestListCurrencies(t *testing.T) {
	rr := httptest.NewRecorder()
	currency.Handler{Default: currency.PKR}.List(rr, httptest.NewRequest(http.MethodGet, "/api/v1/currencies", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Data []currency.Info `json:"data"`
		Meta struct {
			Default string `json:"default"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 4)
	require.Equal(t, currency.PKR, resp.Data[0].Code)
	require.Equal(t, "USD ($)", resp.Data[1].Label)
	require.Equal(t, "PKR", resp.Meta.Default)
}
