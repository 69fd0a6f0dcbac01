package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/joseph-ayodele/receipt-digitizer/internal/receipt"
)

// WriteItemsCSV writes the item rows as CSV. It is the fallback when the
// workbook cannot be produced.
func (s *Service) WriteItemsCSV(w io.Writer, receipts []receipt.Receipt) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ItemHeaders); err != nil {
		return fmt.Errorf("csv header: %w", err)
	}
	rows := ItemRows(receipts)
	for _, r := range rows {
		if err := cw.Write(csvRecord(r.Values())); err != nil {
			return fmt.Errorf("csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("csv flush: %w", err)
	}
	s.logger.Info("export.csv.ok", "rows", len(rows))
	return nil
}

func csvRecord(values []any) []string {
	out := make([]string, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case nil:
			out[i] = ""
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		case string:
			out[i] = x
		default:
			out[i] = fmt.Sprint(x)
		}
	}
	return out
}
