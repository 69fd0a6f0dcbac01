package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/receipt-digitizer/constants"
	"github.com/joseph-ayodele/receipt-digitizer/internal/common"
	"github.com/joseph-ayodele/receipt-digitizer/internal/receipt"
)

func amount(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func fixture() []receipt.Receipt {
	a := receipt.Empty("img-1.jpg")
	a.Merchant.Name = "Corner Store"
	a.Merchant.Address = "12 King St"
	a.Transaction.Date = "2024-03-01"
	a.Transaction.Time = "10:15"
	a.Transaction.Total = amount("15.00")
	a.Transaction.Subtotal = amount("13.27")
	a.Transaction.TaxDetails.TotalTax = amount("1.73")
	a.Payment.Amount = amount("20.00")
	a.Payment.ChangeDue = amount("5.00")
	a.Items = []receipt.Item{
		{Description: "Bread", Quantity: "2", UnitPrice: amount("1.50"), LineTotal: amount("3.00"),
			TaxStatus: constants.TaxStatusUnknown, FinalPrice: amount("3.00")},
		{Description: "Paper Towels YOU SAVED $1.00", Quantity: "1.5", LineTotal: amount("10.27"),
			TaxStatus: constants.TaxStatusTaxable, TaxAmount: amount("1.34"), FinalPrice: amount("11.61"), Savings: amount("1.00")},
	}
	// Same id again: duplicates are exported as-is.
	b := receipt.Empty("img-1.jpg")
	b.Items = []receipt.Item{{Description: "Mystery", Quantity: "1", TaxStatus: constants.TaxStatusUnknown}}
	return []receipt.Receipt{a, b}
}

func TestItemRows(t *testing.T) {
	rows := ItemRows(fixture())
	require.Len(t, rows, 3)

	assert.Equal(t, []any{
		"img-1.jpg", "2024-03-01", "Corner Store", "Bread", 2.0, 1.5, 3.0,
		"UNKNOWN", nil, 3.0, "Groceries", nil, "",
	}, rows[0].Values())

	assert.Equal(t, 1.5, rows[1].Quantity)
	assert.Equal(t, "Household", rows[1].Category)
	assert.Equal(t, 1.0, rows[1].Savings)

	assert.Equal(t, "img-1.jpg", rows[2].ReceiptID)
	assert.Nil(t, rows[2].Total)
	assert.Len(t, rows[2].Values(), len(ItemHeaders))
}

func TestItemRows_OtherBecomesUncategorized(t *testing.T) {
	assert.Equal(t, "Uncategorized", categoryLabel(constants.Other))
	assert.Equal(t, "Dining", categoryLabel(constants.Dining))
}

func TestReceiptRows(t *testing.T) {
	rows := ReceiptRows(fixture())
	require.Len(t, rows, 2)
	assert.Equal(t, []any{
		"img-1.jpg", "2024-03-01", "10:15", "Corner Store", "12 King St", 13.27, 1.73, 15.0, 20.0, 5.0, "",
	}, rows[0].Values())
	assert.Len(t, rows[1].Values(), len(ReceiptHeaders))
	assert.Nil(t, rows[1].TotalAmount)
}

func TestReceiptsXLSX(t *testing.T) {
	svc := NewService(nil)
	b, err := svc.ReceiptsXLSX(fixture())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{ItemsSheet, SummarySheet}, f.GetSheetList())

	header, err := f.GetCellValue(ItemsSheet, "K1")
	require.NoError(t, err)
	assert.Equal(t, "Category", header)

	desc, err := f.GetCellValue(ItemsSheet, "D3")
	require.NoError(t, err)
	assert.Equal(t, "Paper Towels YOU SAVED $1.00", desc)

	// Absent amounts stay blank rather than 0.
	blank, err := f.GetCellValue(ItemsSheet, "I2")
	require.NoError(t, err)
	assert.Empty(t, blank)

	total, err := f.GetCellValue(SummarySheet, "H2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "15", total)

	dvs, err := f.GetDataValidations(ItemsSheet)
	require.NoError(t, err)
	require.Len(t, dvs, 1)
	assert.Equal(t, "K2:K4", dvs[0].Sqref)
}

func TestReceiptsXLSX_Empty(t *testing.T) {
	b, err := NewService(nil).ReceiptsXLSX(nil)
	require.NoError(t, err)
	assert.NotEmpty(t, b)
}

func TestWriteItemsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewService(nil).WriteItemsCSV(&buf, fixture()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, ItemHeaders, records[0])
	assert.Equal(t, []string{"img-1.jpg", "2024-03-01", "Corner Store", "Bread", "2", "1.5", "3", "UNKNOWN", "", "3", "Groceries", "", ""}, records[1])
}

func TestReceiptsJSON_RoundTrip(t *testing.T) {
	in := fixture()
	b, err := ReceiptsJSON(in)
	require.NoError(t, err)
	require.NoError(t, ValidateReceiptsJSON(b))

	out, err := DecodeReceiptsJSON(b)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Corner Store", out[0].Merchant.Name)
	assert.True(t, in[0].Items[1].FinalPrice.Decimal.Equal(out[0].Items[1].FinalPrice.Decimal))
	assert.False(t, out[1].Transaction.Total.Valid)

	empty, err := ReceiptsJSON(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))
}

func TestDecodeReceiptsJSON_Rejects(t *testing.T) {
	cases := map[string]string{
		"not an array":   `{"image_id": "a"}`,
		"missing id":     `[{"merchant": {"name": "x"}}]`,
		"bad amount":     `[{"image_id": "a", "transaction": {"total": "twelve"}}]`,
		"bad tax status": `[{"image_id": "a", "items": [{"description": "x", "tax_status": "MAYBE"}]}]`,
		"malformed json": `[{`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeReceiptsJSON([]byte(payload))
			require.Error(t, err)
			var appErr *common.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, "INVALID_RECEIPTS", appErr.Code)
			assert.True(t, errors.Is(err, common.ErrValidation))
		})
	}
}

func TestDecodeReceiptsJSON_AcceptsNumbers(t *testing.T) {
	out, err := DecodeReceiptsJSON([]byte(`[{"image_id": "a", "transaction": {"total": 12.5}, "items": [{"description": "Tea", "line_total": "2.00"}]}]`))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "12.5", out[0].Transaction.Total.Decimal.String())
	assert.Equal(t, constants.TaxStatusUnknown, out[0].Items[0].TaxStatus)

	again, err := ReceiptsJSON(out)
	require.NoError(t, err)
	assert.Contains(t, string(again), `"tax_status": "UNKNOWN"`)
}

func TestReceiptsJSON_RejectsInvalidReceipts(t *testing.T) {
	in := fixture()
	in[0].Items[0].TaxStatus = ""

	_, err := ReceiptsJSON(in)
	require.Error(t, err)
	assert.Equal(t, "INVALID_RECEIPTS", common.CodeOf(err))
	assert.True(t, errors.Is(err, common.ErrValidation))
}
