package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRetryCmd(a *app) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "retry",
		Short: "Re-run receipts whose analysis failed",
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				for _, e := range a.retryQueue().List() {
					fmt.Fprintf(a.out, "%s\t%s\t%s\n", e.Timestamp.Format("2006-01-02T15:04:05"), e.ImageID, e.ImageURL)
				}
				return nil
			}

			proc, cleanup, err := a.processor(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer cleanup()

			batch, err := proc.RetryPending(cmd.Context())
			if err != nil && batch.ID == "" {
				return err
			}
			if batch.Processed == 0 {
				fmt.Fprintln(a.out, "Nothing to retry")
				return err
			}
			outputs, werr := proc.WriteOutputs(batch.Receipts, a.cfg.Output.Dir)
			if werr != nil {
				return werr
			}
			printBatch(a, batch, outputs)
			return err
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "list queued entries without retrying")
	return cmd
}
