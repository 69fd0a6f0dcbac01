package receipt

import (
	"log/slog"

	"github.com/joseph-ayodele/receipt-digitizer/internal/analysis"
	"github.com/joseph-ayodele/receipt-digitizer/internal/normalize"
)

// Assembler turns one analyze result into a Receipt. It never fails: a
// result without documents or fields yields the empty receipt, a fault in
// one field skips that field, and any other fault yields the empty receipt.
type Assembler struct {
	logger *slog.Logger
}

func NewAssembler(logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{logger: logger}
}

// Assemble builds the receipt for id from the first detected document.
func (a *Assembler) Assemble(id string, result *analysis.Result) (rec Receipt) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("receipt.assemble.failed", "image_id", id, "panic", r)
			rec = Empty(id)
		}
	}()

	doc := result.FirstDocument()
	if doc == nil {
		a.logger.Warn("no documents found in analysis result", "image_id", id)
		return Empty(id)
	}
	if len(doc.Fields) == 0 {
		a.logger.Warn("document has no fields", "image_id", id, "doc_type", doc.DocType)
		return Empty(id)
	}
	if n := len(result.Documents); n > 1 {
		a.logger.Debug("receipt.assemble.extra_documents", "image_id", id, "documents", n)
	}

	rec = Empty(id)
	rec.ExtractedText = result.Content
	rec.ReceiptType = doc.DocType
	fields := doc.Fields

	text := func(name string, dst *string) {
		guard(a.logger, name, func() { *dst = normalize.Text(fields.Get(name).Value()) })
	}
	text("MerchantName", &rec.Merchant.Name)
	text("MerchantAddress", &rec.Merchant.Address)
	text("MerchantPhoneNumber", &rec.Merchant.Phone)
	text("TransactionDate", &rec.Transaction.Date)
	text("TransactionTime", &rec.Transaction.Time)

	guard(a.logger, "Total", func() { rec.Transaction.Total = normalize.Currency(fields.Get("Total").Value()) })
	guard(a.logger, "Subtotal", func() { rec.Transaction.Subtotal = normalize.Currency(fields.Get("Subtotal").Value()) })

	tax := reconcileTax(fields, a.logger)
	rec.Merchant.TaxID = tax.TaxID
	rec.Merchant.RegionalTaxNumber = tax.RegionalTaxNumber
	rec.Transaction.Tax = tax.TotalTax
	rec.Transaction.TaxDetails = tax.Details()

	guard(a.logger, "Items", func() { rec.Items = buildItems(fields.Get("Items"), tax, a.logger) })

	guard(a.logger, "PaymentDetails", func() { rec.Payment.applyPaymentDetails(fields.Get("PaymentDetails")) })
	guard(a.logger, "AmountTendered/PaymentType", func() { rec.Payment.applyFallbacks(fields) })
	guard(a.logger, "ChangeDue", func() { rec.Payment.ChangeDue = normalize.Currency(fields.Get("ChangeDue").Value()) })

	a.logger.Debug("receipt.assemble.ok",
		"image_id", id,
		"merchant", rec.Merchant.Name,
		"items", len(rec.Items),
		"has_regional_tax", tax.HasRegionalTax,
	)
	return rec
}
