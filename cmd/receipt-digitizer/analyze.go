package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/receipt-digitizer/internal/common"
	"github.com/joseph-ayodele/receipt-digitizer/internal/ingest"
	"github.com/joseph-ayodele/receipt-digitizer/internal/pipeline"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		max        int
		outDir     string
		noSave     bool
		skipHidden bool
		exts       []string
	)
	cmd := &cobra.Command{
		Use:   "analyze [files|dirs|globs...]",
		Short: "Analyze receipt files and write JSON and Excel results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, stats, err := ingest.Discover(args, ingest.DiscoverOptions{
				Exts:       ingest.ExtSet(exts),
				SkipHidden: skipHidden,
				Logger:     a.logger,
			})
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return common.NewAppError("NO_FILES", "no receipt files found", common.ErrInvalidInput)
			}
			a.logger.Info("discovered receipt files", "matched", len(paths), "scanned", stats.Scanned, "skipped", stats.Skipped)

			if !cmd.Flags().Changed("max") {
				max = a.cfg.Processing.MaxFiles
			}
			if outDir == "" {
				outDir = a.cfg.Output.Dir
			}

			proc, cleanup, err := a.processor(cmd.Context(), !noSave)
			if err != nil {
				return err
			}
			defer cleanup()

			batch, err := proc.ProcessFiles(cmd.Context(), paths, max)
			if err != nil {
				a.logger.Error("failed to save batch", "batch_id", batch.ID, "error", err)
			}
			outputs, werr := proc.WriteOutputs(batch.Receipts, outDir)
			if werr != nil {
				return werr
			}
			printBatch(a, batch, outputs)
			return err
		},
	}
	cmd.Flags().IntVar(&max, "max", 10, "maximum number of receipts to process (0 for no limit)")
	cmd.Flags().StringVar(&outDir, "out", "", "output directory (defaults to OUTPUT_DIR)")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not store receipts in the database")
	cmd.Flags().BoolVar(&skipHidden, "skip-hidden", true, "skip hidden files and directories")
	cmd.Flags().StringSliceVar(&exts, "ext", nil, "restrict to these extensions (default: all supported)")
	return cmd
}

func printBatch(a *app, batch pipeline.Batch, outputs pipeline.Outputs) {
	fmt.Fprintf(a.out, "Processed %d receipts (%d successful)\n", batch.Processed, batch.Successful)
	fmt.Fprintln(a.out, batch.Summary.String())
	fmt.Fprintf(a.out, "JSON:  %s\n", outputs.JSONPath)
	if outputs.XLSXPath != "" {
		fmt.Fprintf(a.out, "Excel: %s\n", outputs.XLSXPath)
	}
	if outputs.CSVPath != "" {
		fmt.Fprintf(a.out, "CSV:   %s\n", outputs.CSVPath)
	}
}
