package main

import (
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/receipt-digitizer/internal/pipeline"
	"github.com/joseph-ayodele/receipt-digitizer/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		rps   float64
		burst int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and gRPC health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			deps := server.Dependencies{
				Gatherer:       a.registry,
				Logger:         a.logger,
				MaxUploadBytes: a.cfg.Server.MaxUploadBytes,
				ReadTimeout:    a.cfg.Server.ReadTimeout,
				WriteTimeout:   a.cfg.Server.WriteTimeout,
				AnalyzeRPS:     rps,
				AnalyzeBurst:   burst,
			}

			db, repo, err := a.openRepository(ctx)
			if err != nil {
				return err
			}
			if db != nil {
				defer db.Close()
				deps.DB = db
				deps.Repo = repo
			}

			var proc *pipeline.Processor
			if verr := a.cfg.ValidateVision(); verr != nil {
				a.logger.Warn("document analysis disabled", "error", verr)
			} else {
				var cleanup func()
				// the server persists uploads itself
				proc, cleanup, err = a.processor(ctx, false)
				if err != nil {
					return err
				}
				defer cleanup()
			}
			deps.Processor = proc

			srv := server.New(deps)
			return srv.Run(ctx, a.cfg.Server.HTTPAddr, a.cfg.Server.GRPCAddr, a.cfg.Server.ShutdownTimeout)
		},
	}
	cmd.Flags().Float64Var(&rps, "analyze-rps", 1, "per-client analyze requests per second (0 disables)")
	cmd.Flags().IntVar(&burst, "analyze-burst", 5, "per-client analyze burst size")
	return cmd
}
