// Package receipt builds canonical receipt records from Document
// Intelligence analyze results.
package receipt

import (
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/receipt-digitizer/constants"
)

// UnknownID is used when a receipt is assembled without an identifier.
const UnknownID = "unknown"

type Merchant struct {
	Name              string `json:"name"`
	Address           string `json:"address"`
	Phone             string `json:"phone"`
	TaxID             string `json:"tax_id"`
	RegionalTaxNumber string `json:"regional_tax_number"`
}

type TaxDetails struct {
	TotalTax       decimal.NullDecimal `json:"total_tax"`
	Rates          []decimal.Decimal   `json:"rates"`
	Amounts        []decimal.Decimal   `json:"amounts"`
	Types          []string            `json:"types"`
	HasRegionalTax bool                `json:"has_regional_tax"`
}

type Transaction struct {
	// Date is kept verbatim as printed on the receipt.
	Date       string              `json:"date"`
	Time       string              `json:"time"`
	Total      decimal.NullDecimal `json:"total"`
	Subtotal   decimal.NullDecimal `json:"subtotal"`
	Tax        decimal.NullDecimal `json:"tax"`
	TaxDetails TaxDetails          `json:"tax_details"`
}

type Item struct {
	Description string              `json:"description"`
	Quantity    string              `json:"quantity"`
	UnitPrice   decimal.NullDecimal `json:"unit_price"`
	LineTotal   decimal.NullDecimal `json:"line_total"`
	TaxStatus   constants.TaxStatus `json:"tax_status"`
	TaxAmount   decimal.NullDecimal `json:"tax_amount"`
	FinalPrice  decimal.NullDecimal `json:"final_price"`
	Discount    decimal.NullDecimal `json:"discount"`
	Savings     decimal.NullDecimal `json:"savings"`
}

type Payment struct {
	Type   string              `json:"type"`
	Amount decimal.NullDecimal `json:"amount"`
	// CardLast4 holds digits only; use MaskedCard for display.
	CardLast4 string              `json:"card_last4"`
	ChangeDue decimal.NullDecimal `json:"change_due"`
}

// MaskedCard renders the card suffix as "****1234".
func (p Payment) MaskedCard() string {
	if p.CardLast4 == "" {
		return ""
	}
	return "****" + p.CardLast4
}

// Receipt is the canonical record for one analyzed image. Image ids are
// not unique; callers must not treat them as keys.
type Receipt struct {
	ImageID       string      `json:"image_id"`
	ExtractedText string      `json:"extracted_text"`
	ReceiptType   string      `json:"receipt_type,omitempty"`
	Merchant      Merchant    `json:"merchant"`
	Transaction   Transaction `json:"transaction"`
	Items         []Item      `json:"items"`
	Payment       Payment     `json:"payment"`
}

// Empty returns the all-default receipt for id.
func Empty(id string) Receipt {
	if id == "" {
		id = UnknownID
	}
	return Receipt{
		ImageID: id,
		Transaction: Transaction{
			TaxDetails: TaxDetails{
				Rates:   []decimal.Decimal{},
				Amounts: []decimal.Decimal{},
				Types:   []string{},
			},
		},
		Items: []Item{},
	}
}

// IsEmpty reports whether nothing useful was extracted.
func (r Receipt) IsEmpty() bool {
	return r.Merchant.Name == "" && !r.Transaction.Total.Valid && len(r.Items) == 0
}

// Successful reports whether the receipt carries a merchant or a total,
// the criterion used for batch success counts.
func (r Receipt) Successful() bool {
	return r.Merchant.Name != "" || r.Transaction.Total.Valid
}
