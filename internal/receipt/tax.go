package receipt

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/receipt-digitizer/internal/analysis"
	"github.com/joseph-ayodele/receipt-digitizer/internal/normalize"
)

var regionalTaxNumber = regexp.MustCompile(`(?i)(?:HST|GST)\s*#?\s*(\d{9})\s*(?:RT\d{4})?`)

// regionalLabels are matched case-insensitively against breakdown types.
var regionalLabels = []string{"HST", "GST", "PST"}

// RegionalLabel types the single entry synthesized from a total when a
// regional tax number is present.
const RegionalLabel = "HST/GST"

// FallbackRate applies to taxable items when no rate was reconciled.
// It is the Ontario HST rate and does not generalize to other regions.
var FallbackRate = decimal.RequireFromString("0.13")

type TaxDetail struct {
	Type   string
	Rate   decimal.NullDecimal
	Amount decimal.Decimal
}

// TaxReconciliation is the document-level tax picture used by the item
// builder and copied onto the receipt.
type TaxReconciliation struct {
	TaxID             string
	RegionalTaxNumber string
	HasRegionalTax    bool
	TotalTax          decimal.NullDecimal
	Entries           []TaxDetail

	breakdown bool
}

// ReconcileTax derives total tax, breakdown and the regional flag from the
// MerchantTaxId, TotalTax and TaxDetails fields. A non-empty TaxDetails
// array always wins over TotalTax.
func ReconcileTax(fields analysis.Fields) TaxReconciliation {
	return reconcileTax(fields, slog.Default())
}

func reconcileTax(fields analysis.Fields, logger *slog.Logger) TaxReconciliation {
	var t TaxReconciliation
	// Fixed order so the result does not depend on field arrival order.
	guard(logger, "MerchantTaxId", func() { t.applyTaxID(fields.Get("MerchantTaxId")) })
	guard(logger, "TotalTax", func() { t.applyTotalTax(fields.Get("TotalTax")) })
	guard(logger, "TaxDetails", func() { t.applyBreakdown(fields.Get("TaxDetails")) })
	return t
}

func (t *TaxReconciliation) applyTaxID(f *analysis.Field) {
	id := normalize.Text(f.Value())
	if id == "" {
		return
	}
	if m := regionalTaxNumber.FindString(id); m != "" {
		t.RegionalTaxNumber = strings.TrimSpace(m)
		t.HasRegionalTax = true
		return
	}
	t.TaxID = id
}

func (t *TaxReconciliation) applyTotalTax(f *analysis.Field) {
	if f == nil {
		return
	}
	total := normalize.Currency(f.Value())
	t.TotalTax = total
	if t.RegionalTaxNumber != "" && !t.breakdown && len(t.Entries) == 0 && total.Valid {
		t.Entries = []TaxDetail{{Type: RegionalLabel, Amount: total.Decimal}}
	}
}

func (t *TaxReconciliation) applyBreakdown(f *analysis.Field) {
	elems := f.Array()
	if len(elems) == 0 {
		return
	}
	var (
		entries  []TaxDetail
		sum      = decimal.Zero
		regional = t.HasRegionalTax
	)
	for _, e := range elems {
		obj := e.Object()
		if obj == nil {
			continue
		}
		amount := normalize.Currency(obj.Get("Amount").Value())
		if !amount.Valid {
			continue
		}
		typ := normalize.Text(obj.Get("Description").Value())
		entries = append(entries, TaxDetail{
			Type:   typ,
			Rate:   normalize.Rate(obj.Get("Rate").Value()),
			Amount: amount.Decimal,
		})
		sum = sum.Add(amount.Decimal)
		if isRegionalLabel(typ) {
			regional = true
		}
	}
	t.Entries = entries
	t.TotalTax = decimal.NullDecimal{Decimal: sum, Valid: true}
	t.HasRegionalTax = regional
	t.breakdown = true
}

func isRegionalLabel(typ string) bool {
	upper := strings.ToUpper(typ)
	for _, l := range regionalLabels {
		if strings.Contains(upper, l) {
			return true
		}
	}
	return false
}

// Details flattens the reconciliation into the receipt's tax_details.
func (t TaxReconciliation) Details() TaxDetails {
	d := TaxDetails{
		TotalTax:       t.TotalTax,
		Rates:          []decimal.Decimal{},
		Amounts:        []decimal.Decimal{},
		Types:          []string{},
		HasRegionalTax: t.HasRegionalTax,
	}
	for _, e := range t.Entries {
		if e.Rate.Valid {
			d.Rates = append(d.Rates, e.Rate.Decimal)
		}
		d.Amounts = append(d.Amounts, e.Amount)
		if e.Type != "" {
			d.Types = append(d.Types, e.Type)
		}
	}
	return d
}

// PrimaryRate is the first reconciled rate, or FallbackRate. It is applied
// to every taxable item on the receipt.
func (t TaxReconciliation) PrimaryRate() decimal.Decimal {
	for _, e := range t.Entries {
		if e.Rate.Valid {
			return e.Rate.Decimal
		}
	}
	return FallbackRate
}
