package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/receipt-digitizer/internal/export"
	"github.com/joseph-ayodele/receipt-digitizer/internal/receipt"
	"github.com/joseph-ayodele/receipt-digitizer/internal/summary"
)

func readReceiptsFile(path string) ([]receipt.Receipt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return export.DecodeReceiptsJSON(data)
}

func newSummaryCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "summary <receipts.json>",
		Short: "Summarize spending from a receipts JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			receipts, err := readReceiptsFile(args[0])
			if err != nil {
				return err
			}
			report := summary.Summarize(receipts)
			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			fmt.Fprintln(a.out, report.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}
