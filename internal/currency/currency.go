package currency

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Code identifies an invoice currency.
type Code string

// Supported currencies.
const (
	PKR  Code = "PKR"
	USD  Code = "USD"
	EURO Code = "EURO"
	GBP  Code = "GBP"
)

// Info describes a currency for selection lists.
type Info struct {
	Code   Code   `json:"code"`
	Symbol string `json:"symbol"`
	Label  string `json:"label"`
}

var symbols = map[Code]string{
	PKR:  "Rs",
	USD:  "$",
	EURO: "€",
	GBP:  "£",
}

var labelSymbols = map[Code]string{
	PKR:  "₨",
	USD:  "$",
	EURO: "€",
	GBP:  "£",
}

var printer = message.NewPrinter(language.English)

// All returns the supported currencies in display order.
func All() []Info {
	codes := []Code{PKR, USD, EURO, GBP}
	out := make([]Info, 0, len(codes))
	for _, c := range codes {
		out = append(out, Info{Code: c, Symbol: symbols[c], Label: Label(c)})
	}
	return out
}

// Parse normalises a currency string and reports whether it is supported.
func Parse(value string) (Code, bool) {
	c := Code(strings.ToUpper(strings.TrimSpace(value)))
	_, ok := symbols[c]
	return c, ok
}

// Valid reports whether the code is supported.
func (c Code) Valid() bool {
	_, ok := symbols[c]
	return ok
}

// Symbol returns the display symbol, or an empty string for unknown codes.
func Symbol(c Code) string {
	return symbols[c]
}

// Label returns the selector label, e.g. "USD ($)".
func Label(c Code) string {
	sym, ok := labelSymbols[c]
	if !ok {
		return string(c)
	}
	return string(c) + " (" + sym + ")"
}

// Format renders the amount with thousands grouping and up to two fraction digits.
func Format(amount decimal.Decimal, c Code) string {
	rounded := amount.Round(2)
	f, _ := rounded.Float64()
	var body string
	if rounded.Equal(rounded.Truncate(0)) {
		body = printer.Sprintf("%d", rounded.IntPart())
	} else {
		body = printer.Sprintf("%.2f", f)
	}
	return Symbol(c) + body
}
