// Package summary folds receipts into portfolio statistics.
package summary

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/receipt-digitizer/constants"
	"github.com/joseph-ayodele/receipt-digitizer/internal/category"
	"github.com/joseph-ayodele/receipt-digitizer/internal/receipt"
)

const dateLayout = "2006-01-02"

type CategoryTotal struct {
	Category constants.Category
	Total    decimal.Decimal
}

// CategoryTotals is ordered by descending total and marshals as a JSON
// object whose keys keep that order.
type CategoryTotals []CategoryTotal

func (c CategoryTotals) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, ct := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(string(ct.Category))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(ct.Total.StringFixed(2))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Get returns the total for a category.
func (c CategoryTotals) Get(cat constants.Category) (decimal.Decimal, bool) {
	for _, ct := range c {
		if ct.Category == cat {
			return ct.Total, true
		}
	}
	return decimal.Zero, false
}

type DateRange struct {
	Start *time.Time
	End   *time.Time
}

func (d DateRange) MarshalJSON() ([]byte, error) {
	format := func(t *time.Time) any {
		if t == nil {
			return nil
		}
		return t.Format(dateLayout)
	}
	return json.Marshal(map[string]any{"start": format(d.Start), "end": format(d.End)})
}

type Report struct {
	TotalSpending decimal.Decimal `json:"total_spending"`
	ReceiptCount  int             `json:"receipt_count"`
	MerchantCount int             `json:"merchant_count"`
	ItemCount     int             `json:"item_count"`
	Merchants     []string        `json:"merchants"`
	Categories    CategoryTotals  `json:"categories"`
	DateRange     DateRange       `json:"date_range"`
}

// Summarize is a sequential fold over receipts.
func Summarize(receipts []receipt.Receipt) Report {
	acc := NewAccumulator()
	for _, r := range receipts {
		acc.Add(r)
	}
	return acc.Report()
}

// Accumulator is not safe for concurrent use. Parallel hosts keep one per
// worker and Merge them.
type Accumulator struct {
	total     decimal.Decimal
	receipts  int
	items     int
	merchants map[string]struct{}
	order     []constants.Category
	byCat     map[constants.Category]decimal.Decimal
	start     *time.Time
	end       *time.Time
}

func NewAccumulator() *Accumulator {
	return &Accumulator{
		merchants: map[string]struct{}{},
		byCat:     map[constants.Category]decimal.Decimal{},
	}
}

func (a *Accumulator) Add(r receipt.Receipt) {
	a.receipts++
	if r.Transaction.Total.Valid {
		a.total = a.total.Add(r.Transaction.Total.Decimal)
	}
	if r.Merchant.Name != "" {
		a.merchants[r.Merchant.Name] = struct{}{}
	}
	if d, ok := ParseDate(r.Transaction.Date); ok {
		a.observeDate(d)
	}
	for _, it := range r.Items {
		a.items++
		if !it.LineTotal.Valid {
			continue
		}
		a.addCategory(category.Categorize(it.Description), it.LineTotal.Decimal)
	}
}

// Merge folds other into a. Categories first seen in other keep their
// relative order after a's.
func (a *Accumulator) Merge(other *Accumulator) {
	if other == nil {
		return
	}
	a.total = a.total.Add(other.total)
	a.receipts += other.receipts
	a.items += other.items
	for m := range other.merchants {
		a.merchants[m] = struct{}{}
	}
	for _, c := range other.order {
		a.addCategory(c, other.byCat[c])
	}
	if other.start != nil {
		a.observeDate(*other.start)
	}
	if other.end != nil {
		a.observeDate(*other.end)
	}
}

func (a *Accumulator) addCategory(c constants.Category, amount decimal.Decimal) {
	cur, seen := a.byCat[c]
	if !seen {
		a.order = append(a.order, c)
	}
	a.byCat[c] = cur.Add(amount)
}

func (a *Accumulator) observeDate(d time.Time) {
	if a.start == nil || d.Before(*a.start) {
		s := d
		a.start = &s
	}
	if a.end == nil || d.After(*a.end) {
		e := d
		a.end = &e
	}
}

// Report snapshots the accumulated totals, rounded to cents.
func (a *Accumulator) Report() Report {
	merchants := make([]string, 0, len(a.merchants))
	for m := range a.merchants {
		merchants = append(merchants, m)
	}
	sort.Strings(merchants)

	cats := make(CategoryTotals, 0, len(a.order))
	for _, c := range a.order {
		cats = append(cats, CategoryTotal{Category: c, Total: a.byCat[c].Round(2)})
	}
	sort.SliceStable(cats, func(i, j int) bool { return cats[i].Total.GreaterThan(cats[j].Total) })

	return Report{
		TotalSpending: a.total.Round(2),
		ReceiptCount:  a.receipts,
		MerchantCount: len(merchants),
		ItemCount:     a.items,
		Merchants:     merchants,
		Categories:    cats,
		DateRange:     DateRange{Start: a.start, End: a.end},
	}
}

// String renders a short human summary for CLI output.
func (r Report) String() string {
	s := fmt.Sprintf("%d receipts, %d merchants, %d items, total spending %s",
		r.ReceiptCount, r.MerchantCount, r.ItemCount, r.TotalSpending.StringFixed(2))
	if r.DateRange.Start != nil {
		s += fmt.Sprintf(" (%s to %s)", r.DateRange.Start.Format(dateLayout), r.DateRange.End.Format(dateLayout))
	}
	return s
}
