package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/receipt-digitizer/internal/common"
	"github.com/joseph-ayodele/receipt-digitizer/internal/export"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export <receipts.json>",
		Short: "Convert a receipts JSON file to xlsx, csv or normalized json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			receipts, err := readReceiptsFile(args[0])
			if err != nil {
				return err
			}
			format = strings.ToLower(format)
			svc := export.NewService(a.logger)

			var data []byte
			switch format {
			case "xlsx":
				data, err = svc.ReceiptsXLSX(receipts)
			case "csv":
				var buf bytes.Buffer
				err = svc.WriteItemsCSV(&buf, receipts)
				data = buf.Bytes()
			case "json":
				data, err = export.ReceiptsJSON(receipts)
			default:
				return common.NewAppError("INVALID_FORMAT", "format must be xlsx, csv or json", common.ErrInvalidInput)
			}
			a.metrics.Export(format, err)
			if err != nil {
				return err
			}

			if out == "" {
				out = filepath.Join(a.cfg.Output.Dir, "receipt_analysis_"+time.Now().Format("20060102_150405")+"."+format)
			}
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintln(a.out, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "xlsx", "output format: xlsx, csv or json")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (defaults to a timestamped file in OUTPUT_DIR)")
	return cmd
}
