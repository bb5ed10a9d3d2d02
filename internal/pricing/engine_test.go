package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(v string) Money {
	return decimal.RequireFromString(v)
}

func assertMoney(t *testing.T, name string, got Money, want string) {
	t.Helper()
	if !got.Equal(d(want)) {
		t.Fatalf("%s: expected %s, got %s", name, want, got.String())
	}
}

func TestLineTotalWithoutDiscount(t *testing.T) {
	assertMoney(t, "50x3", LineTotal(d("50"), 3, DiscountNone, decimal.Zero), "150")
	for _, tc := range []struct {
		price string
		qty   int
	}{{"0", 0}, {"0", 5}, {"19.99", 1}, {"12.5", 4}, {"1000", 0}} {
		want := d(tc.price).Mul(decimal.NewFromInt(int64(tc.qty)))
		got := LineTotal(d(tc.price), tc.qty, DiscountNone, decimal.Zero)
		if !got.Equal(want) {
			t.Fatalf("price %s qty %d: expected %s, got %s", tc.price, tc.qty, want, got)
		}
	}
}

func TestLineTotalIgnoresValueForNone(t *testing.T) {
	assertMoney(t, "none with value", LineTotal(d("10"), 2, DiscountNone, d("5")), "20")
}

func TestLineTotalFixedDiscountFloorsAtZero(t *testing.T) {
	assertMoney(t, "fixed over base", LineTotal(d("100"), 2, DiscountFixed, d("250")), "0")
	assertMoney(t, "fixed", LineTotal(d("50"), 1, DiscountFixed, d("10")), "40")
}

func TestLineTotalPercentage(t *testing.T) {
	assertMoney(t, "50 percent", LineTotal(d("100"), 2, DiscountPercentage, d("50")), "100")
	assertMoney(t, "over 100 percent", LineTotal(d("100"), 2, DiscountPercentage, d("150")), "0")
	assertMoney(t, "12.5 percent", LineTotal(d("80"), 1, DiscountPercentage, d("12.5")), "70")
}

func TestLineTotalNeverNegative(t *testing.T) {
	cases := []LineItem{
		{UnitPrice: d("-10"), Quantity: 3, DiscountKind: DiscountNone},
		{UnitPrice: d("10"), Quantity: -3, DiscountKind: DiscountFixed, DiscountValue: d("1")},
		{UnitPrice: d("5"), Quantity: 1, DiscountKind: DiscountFixed, DiscountValue: d("99999")},
		{UnitPrice: d("5"), Quantity: 2, DiscountKind: DiscountPercentage, DiscountValue: d("101")},
	}
	for i, it := range cases {
		if it.LineTotal().IsNegative() {
			t.Fatalf("case %d: negative line total %s", i, it.LineTotal())
		}
	}
}

func TestLineTotalMonotonicInQuantity(t *testing.T) {
	kinds := []struct {
		kind  DiscountKind
		value string
	}{{DiscountNone, "0"}, {DiscountFixed, "75"}, {DiscountPercentage, "30"}}
	for _, k := range kinds {
		prev := decimal.Zero
		for qty := 0; qty <= 20; qty++ {
			got := LineTotal(d("12.34"), qty, k.kind, d(k.value))
			if got.LessThan(prev) {
				t.Fatalf("%s: total decreased at qty %d (%s < %s)", k.kind, qty, got, prev)
			}
			prev = got
		}
	}
}

func TestNewLineItemDefaults(t *testing.T) {
	it := NewLineItem()
	if it.Quantity != 1 || it.DiscountKind != DiscountNone {
		t.Fatalf("unexpected defaults: %+v", it)
	}
	assertMoney(t, "default total", it.LineTotal(), "0")
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, d("10"), d("20"))
	for name, v := range map[string]Money{
		"subtotal":  s.Subtotal,
		"tax":       s.TaxAmount,
		"grand":     s.GrandTotal,
		"deposit":   s.DepositAmount,
		"remaining": s.RemainingBalance,
	} {
		assertMoney(t, name, v, "0")
	}
}

func TestComputeEndToEnd(t *testing.T) {
	items := []LineItem{
		{UnitPrice: d("100"), Quantity: 2, DiscountKind: DiscountNone},
		{UnitPrice: d("50"), Quantity: 1, DiscountKind: DiscountFixed, DiscountValue: d("10")},
	}
	q := Compute(items, d("10"), d("20"))
	if len(q.LineTotals) != 2 {
		t.Fatalf("expected 2 line totals, got %d", len(q.LineTotals))
	}
	assertMoney(t, "line 0", q.LineTotals[0], "200")
	assertMoney(t, "line 1", q.LineTotals[1], "40")
	assertMoney(t, "subtotal", q.Subtotal, "240")
	assertMoney(t, "tax", q.TaxAmount, "24")
	assertMoney(t, "grand", q.GrandTotal, "264")
	assertMoney(t, "deposit", q.DepositAmount, "52.8")
	assertMoney(t, "remaining", q.RemainingBalance, "211.2")
}

func TestSummarizeIdempotentAndPure(t *testing.T) {
	totals := []Money{d("200"), d("40"), d("0.35")}
	first := Summarize(totals, d("7.5"), d("33"))
	second := Summarize(totals, d("7.5"), d("33"))
	if !first.GrandTotal.Equal(second.GrandTotal) || !first.RemainingBalance.Equal(second.RemainingBalance) ||
		!first.DepositAmount.Equal(second.DepositAmount) || !first.TaxAmount.Equal(second.TaxAmount) {
		t.Fatalf("summaries differ: %+v vs %+v", first, second)
	}
	assertMoney(t, "input untouched", totals[2], "0.35")
}

func TestParseDiscountKind(t *testing.T) {
	cases := map[string]DiscountKind{
		"fixed":       DiscountFixed,
		" Percentage": DiscountPercentage,
		"none":        DiscountNone,
		"":            DiscountNone,
		"bogus":       DiscountNone,
	}
	for in, want := range cases {
		if got := ParseDiscountKind(in); got != want {
			t.Fatalf("ParseDiscountKind(%q) = %q, want %q", in, got, want)
		}
	}
}
