package export

import (
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/receipt-digitizer/constants"
	"github.com/joseph-ayodele/receipt-digitizer/internal/receipt"
)

const (
	ItemsSheet   = "Receipt Items"
	SummarySheet = "Receipt Summary"

	currencyFormat = "$#,##0.00"
	quantityFormat = "#,##0.00"
	maxColumnWidth = 50
	columnPadding  = 4
)

// Service writes receipt workbooks and delimited files.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ReceiptsXLSX returns a workbook with an item sheet and a receipt summary
// sheet.
func (s *Service) ReceiptsXLSX(receipts []receipt.Receipt) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("export.xlsx.close_error", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", ItemsSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return nil, fmt.Errorf("add sheet: %w", err)
	}

	styles, err := newStyles(f)
	if err != nil {
		return nil, err
	}

	items := ItemRows(receipts)
	itemValues := make([][]any, len(items))
	for i, r := range items {
		itemValues[i] = r.Values()
	}
	if err := writeSheet(f, ItemsSheet, ItemHeaders, itemValues, styles, map[int]int{
		5: styles.quantity, 6: styles.currency, 7: styles.currency, 9: styles.currency, 10: styles.currency, 12: styles.currency,
	}); err != nil {
		return nil, err
	}
	if err := addCategoryDropdown(f, len(items)); err != nil {
		return nil, err
	}

	recs := ReceiptRows(receipts)
	recValues := make([][]any, len(recs))
	for i, r := range recs {
		recValues[i] = r.Values()
	}
	if err := writeSheet(f, SummarySheet, ReceiptHeaders, recValues, styles, map[int]int{
		6: styles.currency, 7: styles.currency, 8: styles.currency, 9: styles.currency, 10: styles.currency,
	}); err != nil {
		return nil, err
	}

	if idx, err := f.GetSheetIndex(ItemsSheet); err == nil {
		f.SetActiveSheet(idx)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"receipts", len(receipts),
		"item_rows", len(items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

type sheetStyles struct {
	header   int
	currency int
	quantity int
}

func newStyles(f *excelize.File) (sheetStyles, error) {
	var st sheetStyles
	var err error
	if st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9E1F2"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err != nil {
		return st, fmt.Errorf("header style: %w", err)
	}
	cf := currencyFormat
	if st.currency, err = f.NewStyle(&excelize.Style{CustomNumFmt: &cf}); err != nil {
		return st, fmt.Errorf("currency style: %w", err)
	}
	qf := quantityFormat
	if st.quantity, err = f.NewStyle(&excelize.Style{CustomNumFmt: &qf}); err != nil {
		return st, fmt.Errorf("quantity style: %w", err)
	}
	return st, nil
}

// writeSheet writes headers and rows, applies per-column number formats
// (1-based column -> style) and sizes columns to their content.
func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]any, styles sheetStyles, numFmt map[int]int) error {
	widths := make([]int, len(headers))
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("write header %s: %w", cell, err)
		}
		widths[i] = utf8.RuneCountInString(h)
	}
	first, _ := excelize.CoordinatesToCellName(1, 1)
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheet, first, last, styles.header); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for r, values := range rows {
		row := r + 2
		for c, v := range values {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, row)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("write %s: %w", cell, err)
			}
			if n := utf8.RuneCountInString(fmt.Sprint(v)); n > widths[c] {
				widths[c] = min(n, maxColumnWidth)
			}
		}
	}

	if len(rows) > 0 {
		for col, style := range numFmt {
			top, _ := excelize.CoordinatesToCellName(col, 2)
			bottom, _ := excelize.CoordinatesToCellName(col, len(rows)+1)
			if err := f.SetCellStyle(sheet, top, bottom, style); err != nil {
				return fmt.Errorf("style column %d: %w", col, err)
			}
		}
	}

	for i, w := range widths {
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, name, name, float64(w+columnPadding)); err != nil {
			return fmt.Errorf("column width %s: %w", name, err)
		}
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// addCategoryDropdown restricts the Category column to known labels.
func addCategoryDropdown(f *excelize.File, rows int) error {
	if rows == 0 {
		return nil
	}
	labels := append(constants.AsStringSlice(), constants.Uncategorized)
	col, _ := excelize.ColumnNumberToName(11)
	dv := excelize.NewDataValidation(true)
	dv.Sqref = fmt.Sprintf("%s2:%s%d", col, col, rows+1)
	if err := dv.SetDropList(labels); err != nil {
		return fmt.Errorf("category list: %w", err)
	}
	if err := f.AddDataValidation(ItemsSheet, dv); err != nil {
		return fmt.Errorf("category validation: %w", err)
	}
	return nil
}
