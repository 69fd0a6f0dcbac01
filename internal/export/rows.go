package export

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/receipt-digitizer/constants"
	"github.com/joseph-ayodele/receipt-digitizer/internal/category"
	"github.com/joseph-ayodele/receipt-digitizer/internal/receipt"
)

// ItemHeaders is the column order of the item sheet.
var ItemHeaders = []string{
	"Receipt ID", "Date", "Merchant", "Description", "Quantity", "Unit Price", "Total",
	"Tax Status", "Tax Amount", "Final Price", "Category", "Savings", "Notes",
}

// ReceiptHeaders is the column order of the receipt summary sheet.
var ReceiptHeaders = []string{
	"Receipt ID", "Date", "Time", "Merchant", "Merchant Address", "Subtotal", "Total Tax",
	"Total Amount", "Payment Amount", "Change Due", "Notes",
}

// ItemRow is one receipt × item pair. Numeric cells hold float64 or nil
// so spreadsheet consumers can sum them.
type ItemRow struct {
	ReceiptID   string
	Date        string
	Merchant    string
	Description string
	Quantity    any
	UnitPrice   any
	Total       any
	TaxStatus   string
	TaxAmount   any
	FinalPrice  any
	Category    string
	Savings     any
	Notes       string
}

// Values returns the cells in ItemHeaders order.
func (r ItemRow) Values() []any {
	return []any{
		r.ReceiptID, r.Date, r.Merchant, r.Description, r.Quantity, r.UnitPrice, r.Total,
		r.TaxStatus, r.TaxAmount, r.FinalPrice, r.Category, r.Savings, r.Notes,
	}
}

type ReceiptRow struct {
	ReceiptID       string
	Date            string
	Time            string
	Merchant        string
	MerchantAddress string
	Subtotal        any
	TotalTax        any
	TotalAmount     any
	PaymentAmount   any
	ChangeDue       any
	Notes           string
}

// Values returns the cells in ReceiptHeaders order.
func (r ReceiptRow) Values() []any {
	return []any{
		r.ReceiptID, r.Date, r.Time, r.Merchant, r.MerchantAddress, r.Subtotal, r.TotalTax,
		r.TotalAmount, r.PaymentAmount, r.ChangeDue, r.Notes,
	}
}

// ItemRows flattens receipts into one row per item. Duplicate receipt ids
// are emitted as-is.
func ItemRows(receipts []receipt.Receipt) []ItemRow {
	var rows []ItemRow
	for _, r := range receipts {
		for _, it := range r.Items {
			rows = append(rows, ItemRow{
				ReceiptID:   r.ImageID,
				Date:        r.Transaction.Date,
				Merchant:    r.Merchant.Name,
				Description: it.Description,
				Quantity:    quantityCell(it.Quantity),
				UnitPrice:   amountCell(it.UnitPrice),
				Total:       amountCell(it.LineTotal),
				TaxStatus:   string(it.TaxStatus),
				TaxAmount:   amountCell(it.TaxAmount),
				FinalPrice:  amountCell(it.FinalPrice),
				Category:    categoryLabel(category.Categorize(it.Description)),
				Savings:     amountCell(it.Savings),
			})
		}
	}
	return rows
}

// ReceiptRows flattens receipts into one row each.
func ReceiptRows(receipts []receipt.Receipt) []ReceiptRow {
	rows := make([]ReceiptRow, 0, len(receipts))
	for _, r := range receipts {
		rows = append(rows, ReceiptRow{
			ReceiptID:       r.ImageID,
			Date:            r.Transaction.Date,
			Time:            r.Transaction.Time,
			Merchant:        r.Merchant.Name,
			MerchantAddress: r.Merchant.Address,
			Subtotal:        amountCell(r.Transaction.Subtotal),
			TotalTax:        amountCell(r.Transaction.TaxDetails.TotalTax),
			TotalAmount:     amountCell(r.Transaction.Total),
			PaymentAmount:   amountCell(r.Payment.Amount),
			ChangeDue:       amountCell(r.Payment.ChangeDue),
		})
	}
	return rows
}

func categoryLabel(c constants.Category) string {
	if c == constants.Other {
		return constants.Uncategorized
	}
	return string(c)
}

func amountCell(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	f, _ := d.Decimal.Float64()
	return f
}

func quantityCell(q string) any {
	f, err := strconv.ParseFloat(q, 64)
	if err != nil {
		return q
	}
	return f
}
