package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/receipt-digitizer/internal/export"
	"github.com/joseph-ayodele/receipt-digitizer/internal/receipt"
)

// Outputs lists the files written for a batch. Exactly one of XLSXPath and
// CSVPath is set.
type Outputs struct {
	JSONPath string `json:"json_path"`
	XLSXPath string `json:"xlsx_path,omitempty"`
	CSVPath  string `json:"csv_path,omitempty"`
}

const outputTimeLayout = "20060102_150405"

// WriteOutputs writes receipt_analysis_<timestamp>.json and .xlsx into dir.
// When the workbook cannot be produced a .csv of the item rows is written
// instead.
func (p *Processor) WriteOutputs(receipts []receipt.Receipt, dir string) (Outputs, error) {
	var out Outputs
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return out, fmt.Errorf("create output dir: %w", err)
	}
	base := filepath.Join(dir, "receipt_analysis_"+p.now().Format(outputTimeLayout))

	js, err := export.ReceiptsJSON(receipts)
	if err != nil {
		return out, err
	}
	if err := os.WriteFile(base+".json", js, 0o644); err != nil {
		p.metrics.Export("json", err)
		return out, fmt.Errorf("write json: %w", err)
	}
	p.metrics.Export("json", nil)
	out.JSONPath = base + ".json"
	p.logger.Info("saved JSON", "path", out.JSONPath)

	xl, xerr := p.exporter.ReceiptsXLSX(receipts)
	if xerr == nil {
		xerr = os.WriteFile(base+".xlsx", xl, 0o644)
	}
	p.metrics.Export("xlsx", xerr)
	if xerr == nil {
		out.XLSXPath = base + ".xlsx"
		p.logger.Info("saved Excel", "path", out.XLSXPath)
		return out, nil
	}

	p.logger.Warn("excel export failed, falling back to csv", "error", xerr)
	var buf bytes.Buffer
	if err := p.exporter.WriteItemsCSV(&buf, receipts); err != nil {
		p.metrics.Export("csv", err)
		return out, fmt.Errorf("write csv: %w", err)
	}
	if err := os.WriteFile(base+".csv", buf.Bytes(), 0o644); err != nil {
		p.metrics.Export("csv", err)
		return out, fmt.Errorf("write csv: %w", err)
	}
	p.metrics.Export("csv", nil)
	out.CSVPath = base + ".csv"
	p.logger.Info("saved CSV", "path", out.CSVPath)
	return out, nil
}
