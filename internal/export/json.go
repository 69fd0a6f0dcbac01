package export

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/receipt-digitizer/constants"
	"github.com/joseph-ayodele/receipt-digitizer/internal/common"
	"github.com/joseph-ayodele/receipt-digitizer/internal/receipt"
)

// ReceiptsJSON renders receipts as an indented JSON array and checks the
// result against the receipts schema. A nil slice is written as [].
func ReceiptsJSON(receipts []receipt.Receipt) ([]byte, error) {
	if receipts == nil {
		receipts = []receipt.Receipt{}
	}
	b, err := json.MarshalIndent(receipts, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode receipts: %w", err)
	}
	if err := ValidateReceiptsJSON(b); err != nil {
		return nil, common.NewAppError("INVALID_RECEIPTS", "receipts do not match the schema", fmt.Errorf("%w: %v", common.ErrValidation, err))
	}
	return b, nil
}

// DecodeReceiptsJSON validates data against the receipts schema and decodes
// it.
func DecodeReceiptsJSON(data []byte) ([]receipt.Receipt, error) {
	if err := ValidateReceiptsJSON(data); err != nil {
		return nil, common.NewAppError("INVALID_RECEIPTS", "receipts payload rejected", fmt.Errorf("%w: %v", common.ErrValidation, err))
	}
	var out []receipt.Receipt
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, common.NewAppError("INVALID_RECEIPTS", "receipts payload rejected", fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
	}
	for i := range out {
		if out[i].Items == nil {
			out[i].Items = []receipt.Item{}
		}
		td := &out[i].Transaction.TaxDetails
		if td.Rates == nil {
			td.Rates = []decimal.Decimal{}
		}
		if td.Amounts == nil {
			td.Amounts = []decimal.Decimal{}
		}
		if td.Types == nil {
			td.Types = []string{}
		}
		for j := range out[i].Items {
			it := &out[i].Items[j]
			if it.Quantity == "" {
				it.Quantity = "1"
			}
			if it.TaxStatus == "" {
				it.TaxStatus = constants.TaxStatusUnknown
			}
		}
	}
	return out, nil
}
