package receipt

import (
	"strings"
	"unicode"

	"github.com/joseph-ayodele/receipt-digitizer/internal/analysis"
	"github.com/joseph-ayodele/receipt-digitizer/internal/normalize"
)

// applyPaymentDetails walks the PaymentDetails entries in order. Each
// payment field is taken from the first entry that supplies it.
func (p *Payment) applyPaymentDetails(f *analysis.Field) {
	for _, e := range f.Array() {
		obj := e.Object()
		if obj == nil {
			continue
		}
		if p.Type == "" {
			p.Type = normalize.Text(obj.Get("PaymentType").Value())
		}
		if !p.Amount.Valid {
			p.Amount = normalize.Currency(obj.Get("Amount").Value())
		}
		if p.CardLast4 == "" {
			p.CardLast4 = last4(normalize.Text(obj.Get("CreditCardLast4Digits").Value()))
		}
	}
}

// applyFallbacks fills type and amount from top-level fields when the
// details did not supply them. ChangeDue is always taken as-is.
func (p *Payment) applyFallbacks(fields analysis.Fields) {
	if !p.Amount.Valid {
		p.Amount = normalize.Currency(fields.Get("AmountTendered").Value())
	}
	if p.Type == "" {
		p.Type = normalize.Text(fields.Get("PaymentType").Value())
	}
}

func last4(s string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
	if len(digits) > 4 {
		digits = digits[len(digits)-4:]
	}
	return digits
}
