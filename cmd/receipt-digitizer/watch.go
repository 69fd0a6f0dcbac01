package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/receipt-digitizer/internal/ingest"
	"github.com/joseph-ayodele/receipt-digitizer/internal/summary"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		debounce    time.Duration
		initialScan bool
		noSave      bool
	)
	cmd := &cobra.Command{
		Use:   "watch <dirs...>",
		Short: "Watch directories and analyze receipts as they arrive",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			proc, cleanup, err := a.processor(ctx, !noSave)
			if err != nil {
				return err
			}
			defer cleanup()

			events, errs, err := ingest.Watch(ctx, ingest.WatchConfig{
				Roots:       args,
				InitialScan: initialScan,
				SkipHidden:  true,
				Debounce:    debounce,
			}, a.logger)
			if err != nil {
				return err
			}

			running := summary.NewAccumulator()
			for {
				select {
				case <-ctx.Done():
					a.logger.Info("watch stopped", "summary", running.Report().String())
					return nil
				case err, ok := <-errs:
					if !ok {
						errs = nil
						continue
					}
					a.logger.Warn("watcher reported an error", "error", err)
				case path, ok := <-events:
					if !ok {
						return nil
					}
					batch, err := proc.ProcessFiles(ctx, []string{path}, 0)
					if err != nil {
						a.logger.Error("failed to save batch", "batch_id", batch.ID, "error", err)
					}
					if _, err := proc.WriteOutputs(batch.Receipts, a.cfg.Output.Dir); err != nil {
						a.logger.Error("failed to write outputs", "error", err)
					}
					acc := summary.NewAccumulator()
					for _, r := range batch.Receipts {
						acc.Add(r)
					}
					running.Merge(acc)
					report := running.Report()
					a.logger.Info("watch.receipt.ok",
						"path", path,
						"receipts", report.ReceiptCount,
						"total_spending", report.TotalSpending.StringFixed(2),
					)
				}
			}
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 2*time.Second, "wait for writes to settle before analyzing")
	cmd.Flags().BoolVar(&initialScan, "initial-scan", false, "analyze files already present at startup")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not store receipts in the database")
	return cmd
}
