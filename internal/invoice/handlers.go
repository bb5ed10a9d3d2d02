package invoice

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-invoice/internal/common"
	"github.com/noah-isme/backend-invoice/internal/currency"
	"github.com/noah-isme/backend-invoice/internal/pricing"
)

// Handler exposes the invoice endpoints.
type Handler struct {
	Service      *Service
	DefaultLimit int
	MaxLimit     int
}

type draftItemRequest struct {
	UnitPrice     decimal.Decimal `json:"unitPrice" validate:"gte=0"`
	Quantity      int             `json:"quantity" validate:"gte=1"`
	DiscountType  string          `json:"discountType" validate:"omitempty,oneof=none fixed percentage"`
	DiscountValue decimal.Decimal `json:"discountValue" validate:"gte=0"`
}

type previewRequest struct {
	Items             []draftItemRequest `json:"items" validate:"dive"`
	TaxRate           decimal.Decimal    `json:"taxRate" validate:"gte=0,lte=100"`
	DepositPercentage decimal.Decimal    `json:"depositPercentage" validate:"gte=0,lte=100"`
	Currency          string             `json:"currency" validate:"omitempty,oneof=PKR USD EURO GBP"`
}

type itemRequest struct {
	Title         string          `json:"title" validate:"required,max=200"`
	Description   string          `json:"description" validate:"max=2000"`
	UnitPrice     decimal.Decimal `json:"unitPrice" validate:"gte=0"`
	Quantity      int             `json:"quantity" validate:"gte=1"`
	DiscountType  string          `json:"discountType" validate:"omitempty,oneof=none fixed percentage"`
	DiscountValue decimal.Decimal `json:"discountValue" validate:"gte=0"`
}

type invoiceRequest struct {
	InvoiceNumber     string          `json:"invoiceNumber" validate:"max=50"`
	ClientID          string          `json:"clientId" validate:"max=64"`
	ClientName        string          `json:"clientName" validate:"required_without=ClientID,max=200"`
	IssueDate         string          `json:"issueDate" validate:"omitempty,datetime=2006-01-02"`
	DueDate           string          `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
	Currency          string          `json:"currency" validate:"omitempty,oneof=PKR USD EURO GBP"`
	TaxRate           decimal.Decimal `json:"taxRate" validate:"gte=0,lte=100"`
	DepositPercentage decimal.Decimal `json:"depositPercentage" validate:"gte=0,lte=100"`
	Notes             string          `json:"notes" validate:"max=2000"`
	Items             []itemRequest   `json:"items" validate:"required,min=1,dive"`
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
}

func init() {
	v := common.Validator()
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		it := sl.Current().Interface().(draftItemRequest)
		checkPercentage(sl, it.DiscountType, it.DiscountValue)
	}, draftItemRequest{})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		it := sl.Current().Interface().(itemRequest)
		checkPercentage(sl, it.DiscountType, it.DiscountValue)
	}, itemRequest{})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		req := sl.Current().Interface().(invoiceRequest)
		// ISO dates compare lexically; malformed dates are reported by the datetime rule.
		if req.IssueDate != "" && req.DueDate != "" && req.DueDate < req.IssueDate {
			sl.ReportError(req.DueDate, "dueDate", "DueDate", "gtefield", "issueDate")
		}
	}, invoiceRequest{})
}

func checkPercentage(sl validator.StructLevel, kind string, value decimal.Decimal) {
	if pricing.ParseDiscountKind(kind) == pricing.DiscountPercentage && value.GreaterThan(decimal.NewFromInt(100)) {
		sl.ReportError(value, "discountValue", "DiscountValue", "lte", "100")
	}
}

type formattedAmounts struct {
	Subtotal         string `json:"subtotal"`
	TaxAmount        string `json:"taxAmount"`
	GrandTotal       string `json:"grandTotal"`
	DepositAmount    string `json:"depositAmount"`
	RemainingBalance string `json:"remainingBalance"`
	PaidAmount       string `json:"paidAmount,omitempty"`
	BalanceDue       string `json:"balanceDue,omitempty"`
}

type invoiceView struct {
	Invoice
	BalanceDue pricing.Money    `json:"balanceDue"`
	Formatted  formattedAmounts `json:"formatted"`
}

type previewView struct {
	pricing.Quote
	Currency  currency.Code    `json:"currency"`
	Formatted formattedAmounts `json:"formatted"`
}

func toView(inv Invoice) invoiceView {
	f := func(m pricing.Money) string { return currency.Format(m, inv.Currency) }
	return invoiceView{
		Invoice:    inv,
		BalanceDue: inv.BalanceDue(),
		Formatted: formattedAmounts{
			Subtotal:         f(inv.Subtotal),
			TaxAmount:        f(inv.TaxAmount),
			GrandTotal:       f(inv.GrandTotal),
			DepositAmount:    f(inv.DepositAmount),
			RemainingBalance: f(inv.RemainingBalance),
			PaidAmount:       f(inv.PaidAmount),
			BalanceDue:       f(inv.BalanceDue()),
		},
	}
}

// Preview handles POST /api/v1/invoices/preview.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "invoice service not configured", nil)
		return
	}
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	if err := common.Validate(req); err != nil {
		h.writeError(w, err)
		return
	}
	rows := make([]ItemInput, len(req.Items))
	for i, it := range req.Items {
		rows[i] = ItemInput{
			UnitPrice:     it.UnitPrice,
			Quantity:      it.Quantity,
			DiscountKind:  pricing.ParseDiscountKind(it.DiscountType),
			DiscountValue: it.DiscountValue,
		}
	}
	quote := h.Service.Preview(Draft{Items: rows, TaxRate: req.TaxRate, DepositPercentage: req.DepositPercentage})
	code := currency.Code(req.Currency)
	if code == "" {
		code = h.Service.DefaultCurrency
	}
	if code == "" {
		code = currency.USD
	}
	f := func(m pricing.Money) string { return currency.Format(m, code) }
	common.JSON(w, http.StatusOK, map[string]any{"data": previewView{
		Quote:    quote,
		Currency: code,
		Formatted: formattedAmounts{
			Subtotal:         f(quote.Subtotal),
			TaxAmount:        f(quote.TaxAmount),
			GrandTotal:       f(quote.GrandTotal),
			DepositAmount:    f(quote.DepositAmount),
			RemainingBalance: f(quote.RemainingBalance),
		},
	}})
}

// List handles GET /api/v1/invoices.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "invoice service not configured", nil)
		return
	}
	status, ok := ParseStatusFilter(r.URL.Query().Get("status"))
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "status must be one of all, paid, unpaid, partial", nil)
		return
	}
	page, limit := common.ParsePagination(r, h.defaultLimit(), h.MaxLimit)
	filter := Filter{
		Query:    strings.TrimSpace(r.URL.Query().Get("q")),
		Status:   status,
		ClientID: strings.TrimSpace(r.URL.Query().Get("clientId")),
	}
	result, err := h.Service.List(r.Context(), filter, page, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	views := make([]invoiceView, len(result.Items))
	for i, inv := range result.Items {
		views[i] = toView(inv)
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       views,
		"pagination": common.Pagination{Page: page, PerPage: limit, TotalItems: result.Total},
		"meta":       result.Totals,
	})
}

// Create handles POST /api/v1/invoices.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "invoice service not configured", nil)
		return
	}
	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}
	inv, err := h.Service.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": toView(inv)})
}

// Get handles GET /api/v1/invoices/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "invoice service not configured", nil)
		return
	}
	id, ok := invoiceID(w, r)
	if !ok {
		return
	}
	inv, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toView(inv)})
}

// Update handles PUT /api/v1/invoices/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "invoice service not configured", nil)
		return
	}
	id, ok := invoiceID(w, r)
	if !ok {
		return
	}
	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}
	inv, err := h.Service.Update(r.Context(), id, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toView(inv)})
}

// Delete handles DELETE /api/v1/invoices/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "invoice service not configured", nil)
		return
	}
	id, ok := invoiceID(w, r)
	if !ok {
		return
	}
	if err := h.Service.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecordPayment handles POST /api/v1/invoices/{id}/payments.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "invoice service not configured", nil)
		return
	}
	id, ok := invoiceID(w, r)
	if !ok {
		return
	}
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	if err := common.Validate(req); err != nil {
		h.writeError(w, err)
		return
	}
	inv, err := h.Service.RecordPayment(r.Context(), id, req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toView(inv)})
}

func (h *Handler) decodeInput(w http.ResponseWriter, r *http.Request) (Input, bool) {
	var req invoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return Input{}, false
	}
	if err := common.Validate(req); err != nil {
		h.writeError(w, err)
		return Input{}, false
	}
	items := make([]ItemInput, len(req.Items))
	for i, it := range req.Items {
		items[i] = ItemInput{
			Title:         it.Title,
			Description:   it.Description,
			UnitPrice:     it.UnitPrice,
			Quantity:      it.Quantity,
			DiscountKind:  pricing.ParseDiscountKind(it.DiscountType),
			DiscountValue: it.DiscountValue,
		}
	}
	code, _ := currency.Parse(req.Currency)
	return Input{
		Draft:      Draft{Items: items, TaxRate: req.TaxRate, DepositPercentage: req.DepositPercentage},
		Number:     req.InvoiceNumber,
		ClientID:   req.ClientID,
		ClientName: req.ClientName,
		IssueDate:  req.IssueDate,
		DueDate:    req.DueDate,
		Currency:   code,
		Notes:      req.Notes,
	}, true
}

func invoiceID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invoice id is required", nil)
		return "", false
	}
	return id, true
}

func (h *Handler) defaultLimit() int {
	if h.DefaultLimit <= 0 {
		return 20
	}
	return h.DefaultLimit
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if common.WriteAppError(w, err) {
		return
	}
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "invoice not found", nil)
	case errors.Is(err, ErrConflict):
		common.JSONError(w, http.StatusConflict, "CONFLICT", "invoice number already exists", nil)
	case errors.Is(err, ErrClientNotFound):
		common.JSONError(w, http.StatusUnprocessableEntity, "CLIENT_NOT_FOUND", "client not found", nil)
	case errors.Is(err, ErrOverpayment):
		common.JSONError(w, http.StatusUnprocessableEntity, "OVERPAYMENT", err.Error(), nil)
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
