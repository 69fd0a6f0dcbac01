package receipt

import (
	"fmt"
	"log/slog"
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/receipt-digitizer/constants"
	"github.com/joseph-ayodele/receipt-digitizer/internal/analysis"
	"github.com/joseph-ayodele/receipt-digitizer/internal/normalize"
)

var (
	zeroRatedMarker = regexp.MustCompile(`(?i)\bzero|(?:^|[^\d.])0%`)
	exemptMarker    = regexp.MustCompile(`(?i)\bexempt`)
	youSaved        = regexp.MustCompile(`(?i)YOU SAVED \$?([\d.]+)`)
)

// BuildItems converts the Items array into line items. Entries without a
// description are dropped.
func BuildItems(items *analysis.Field, tax TaxReconciliation) []Item {
	return buildItems(items, tax, slog.Default())
}

func buildItems(items *analysis.Field, tax TaxReconciliation, logger *slog.Logger) []Item {
	elems := items.Array()
	out := make([]Item, 0, len(elems))
	for i, e := range elems {
		obj := e.Object()
		if obj == nil {
			continue
		}
		var (
			it   Item
			keep bool
		)
		guard(logger, fmt.Sprintf("Items[%d]", i), func() { it, keep = buildItem(obj, tax) })
		if keep {
			out = append(out, it)
		}
	}
	return out
}

func buildItem(obj analysis.Fields, tax TaxReconciliation) (Item, bool) {
	desc := normalize.Text(obj.Get("Description").Value())
	if desc == "" {
		return Item{}, false
	}
	it := Item{
		Description: desc,
		Quantity:    normalize.Quantity(obj.Get("Quantity").Value()),
		UnitPrice:   normalize.Currency(obj.Get("Price").Value()),
		LineTotal:   normalize.Currency(obj.Get("TotalPrice").Value()),
		Discount:    normalize.Currency(obj.Get("Discount").Value()),
	}
	inferPrices(&it)

	it.TaxStatus = taxStatus(desc, tax.HasRegionalTax)
	it.FinalPrice = it.LineTotal
	if it.TaxStatus == constants.TaxStatusTaxable && tax.HasRegionalTax && it.LineTotal.Valid {
		amount := normalize.Round2(it.LineTotal.Decimal.Mul(tax.PrimaryRate()))
		it.TaxAmount = decimal.NewNullDecimal(amount)
		it.FinalPrice = decimal.NewNullDecimal(it.LineTotal.Decimal.Add(amount))
	}

	if m := youSaved.FindStringSubmatch(desc); m != nil {
		it.Savings = normalize.Currency(m[1])
	}
	return it, true
}

// inferPrices fills whichever of unit price and line total is missing.
// Nothing is inferred unless the quantity is positive.
func inferPrices(it *Item) {
	q, err := decimal.NewFromString(it.Quantity)
	if err != nil || !q.IsPositive() {
		return
	}
	switch {
	case it.UnitPrice.Valid && !it.LineTotal.Valid:
		it.LineTotal = decimal.NewNullDecimal(normalize.Round2(it.UnitPrice.Decimal.Mul(q)))
	case it.LineTotal.Valid && !it.UnitPrice.Valid:
		it.UnitPrice = decimal.NewNullDecimal(normalize.Round2(it.LineTotal.Decimal.Div(q)))
	}
}

func taxStatus(description string, hasRegionalTax bool) constants.TaxStatus {
	switch {
	case zeroRatedMarker.MatchString(description):
		return constants.TaxStatusZeroRated
	case exemptMarker.MatchString(description):
		return constants.TaxStatusExempt
	case hasRegionalTax:
		return constants.TaxStatusTaxable
	default:
		return constants.TaxStatusUnknown
	}
}
