package summary

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/receipt-digitizer/constants"
	"github.com/joseph-ayodele/receipt-digitizer/internal/receipt"
)

func amount(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func newReceipt(id, merchant, date, total string, items ...receipt.Item) receipt.Receipt {
	r := receipt.Empty(id)
	r.Merchant.Name = merchant
	r.Transaction.Date = date
	if total != "" {
		r.Transaction.Total = amount(total)
	}
	r.Items = append(r.Items, items...)
	return r
}

func lineItem(desc, total string) receipt.Item {
	it := receipt.Item{Description: desc, Quantity: "1"}
	if total != "" {
		it.LineTotal = amount(total)
	}
	return it
}

func TestSummarize_Empty(t *testing.T) {
	rep := Summarize(nil)
	assert.True(t, rep.TotalSpending.IsZero())
	assert.Zero(t, rep.ReceiptCount)
	assert.Empty(t, rep.Merchants)

	raw, err := json.Marshal(rep)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"total_spending": "0",
		"receipt_count": 0,
		"merchant_count": 0,
		"item_count": 0,
		"merchants": [],
		"categories": {},
		"date_range": {"start": null, "end": null}
	}`, string(raw))
}

func TestSummarize_SkipsAbsentTotals(t *testing.T) {
	rep := Summarize([]receipt.Receipt{
		newReceipt("a", "Corner Store", "", "10.00"),
		newReceipt("b", "", "", ""),
	})
	assert.True(t, decimal.RequireFromString("10.00").Equal(rep.TotalSpending))
	assert.Equal(t, 2, rep.ReceiptCount)
	assert.Equal(t, 1, rep.MerchantCount)
}

func TestSummarize_CategoriesAndMerchants(t *testing.T) {
	rep := Summarize([]receipt.Receipt{
		newReceipt("a", "Zed Mart", "2024-03-05", "20.333",
			lineItem("Milk 2L", "4.00"),
			lineItem("Paper Towels", "9.00"),
			lineItem("Mystery", ""),
		),
		newReceipt("a", "Alpha Foods", "03/01/2024", "5.00",
			lineItem("Bread", "3.00"),
			lineItem("Pizza", "9.00"),
		),
		newReceipt("c", "Zed Mart", "not a date", ""),
	})

	assert.Equal(t, []string{"Alpha Foods", "Zed Mart"}, rep.Merchants)
	assert.Equal(t, 2, rep.MerchantCount)
	assert.Equal(t, 3, rep.ReceiptCount)
	assert.Equal(t, 5, rep.ItemCount)
	assert.Equal(t, "25.33", rep.TotalSpending.StringFixed(2))

	require.Len(t, rep.Categories, 3)
	// Household and Dining tie at 9.00; Household was seen first.
	assert.Equal(t, constants.Household, rep.Categories[0].Category)
	assert.Equal(t, constants.Dining, rep.Categories[1].Category)
	assert.Equal(t, constants.Groceries, rep.Categories[2].Category)
	groceries, ok := rep.Categories.Get(constants.Groceries)
	require.True(t, ok)
	assert.Equal(t, "7.00", groceries.StringFixed(2))

	require.NotNil(t, rep.DateRange.Start)
	assert.Equal(t, "2024-03-01", rep.DateRange.Start.Format("2006-01-02"))
	assert.Equal(t, "2024-03-05", rep.DateRange.End.Format("2006-01-02"))

	raw, err := json.Marshal(rep.Categories)
	require.NoError(t, err)
	assert.Equal(t, `{"Household":9.00,"Dining":9.00,"Groceries":7.00}`, string(raw))
}

func TestAccumulator_MergeMatchesSequentialFold(t *testing.T) {
	receipts := []receipt.Receipt{
		newReceipt("1", "A", "2024-01-10", "1.10", lineItem("Coffee", "1.10")),
		newReceipt("2", "B", "2024-02-11", "2.20", lineItem("Shampoo", "2.20")),
		newReceipt("3", "A", "2023-12-31", "3.30", lineItem("Bus fare", "3.30")),
		newReceipt("4", "C", "", "4.40", lineItem("Movie", "4.40")),
	}
	want := Summarize(receipts)

	left, right := NewAccumulator(), NewAccumulator()
	for i, r := range receipts {
		if i%2 == 0 {
			left.Add(r)
		} else {
			right.Add(r)
		}
	}
	left.Merge(right)
	left.Merge(nil)
	got := left.Report()

	wantJSON, err := json.Marshal(want)
	require.NoError(t, err)
	gotJSON, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, string(wantJSON), string(gotJSON))
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2024-03-01", "03/01/2024", "3/1/24", "Mar 1, 2024", "MAR 01, 2024", "1 Mar 2024", "2024-03-01T10:00:00Z"} {
		d, ok := ParseDate(s)
		require.True(t, ok, s)
		assert.Equal(t, "2024-03-01", d.Format("2006-01-02"), s)
	}
	for _, s := range []string{"", "yesterday", "13/45/2024", "12:30"} {
		_, ok := ParseDate(s)
		assert.False(t, ok, s)
	}
}

func TestReport_String(t *testing.T) {
	rep := Summarize([]receipt.Receipt{newReceipt("a", "A", "2024-01-02", "3.5")})
	assert.Equal(t, "1 receipts, 1 merchants, 0 items, total spending 3.50 (2024-01-02 to 2024-01-02)", rep.String())
}
