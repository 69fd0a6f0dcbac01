package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/receipt-digitizer/internal/common"
	"github.com/joseph-ayodele/receipt-digitizer/internal/docintel"
	"github.com/joseph-ayodele/receipt-digitizer/internal/ingest"
	"github.com/joseph-ayodele/receipt-digitizer/internal/metrics"
	"github.com/joseph-ayodele/receipt-digitizer/internal/pipeline"
	"github.com/joseph-ayodele/receipt-digitizer/internal/repository"
)

// app holds state shared by subcommands, filled in PersistentPreRunE.
type app struct {
	cfgFile   string
	logLevel  string
	logFormat string

	out      io.Writer
	cfg      *common.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}
	root := &cobra.Command{
		Use:           "receipt-digitizer",
		Short:         "Turn receipt images into structured records, summaries and spreadsheets",
		Long:          "receipt-digitizer sends receipt images and PDFs to Azure AI Document Intelligence and normalizes the results into receipts, spending summaries and Excel/CSV exports.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (YAML)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format override (text, json)")

	root.AddCommand(
		newAnalyzeCmd(a),
		newSummaryCmd(a),
		newExportCmd(a),
		newServeCmd(a),
		newWatchCmd(a),
		newRetryCmd(a),
		newVersionCmd(a),
	)
	return root
}

func (a *app) load() error {
	cfg, err := common.LoadConfig(a.cfgFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = common.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(a.logger)
	a.registry = prometheus.NewRegistry()
	a.metrics = metrics.New(a.registry)
	return nil
}

func (a *app) retryQueue() *ingest.RetryQueue {
	return ingest.NewRetryQueue(a.cfg.Output.RetryQueuePath(), a.logger)
}

// openRepository returns nil, nil when no DSN is configured.
func (a *app) openRepository(ctx context.Context) (*repository.DB, repository.ReceiptRepository, error) {
	if a.cfg.Database.DSN == "" {
		return nil, nil, nil
	}
	db, err := repository.Open(ctx, repository.ConfigFrom(a.cfg.Database), a.logger)
	if err != nil {
		return nil, nil, err
	}
	return db, repository.NewReceiptRepository(db, a.logger), nil
}

// processor builds the analysis pipeline. The returned cleanup closes the
// database, if one was opened.
func (a *app) processor(ctx context.Context, persist bool) (*pipeline.Processor, func(), error) {
	if err := a.cfg.ValidateVision(); err != nil {
		return nil, nil, err
	}
	client, err := docintel.New(docintel.ConfigFrom(a.cfg.Vision),
		docintel.WithLogger(a.logger),
		docintel.WithMetrics(a.metrics),
	)
	if err != nil {
		return nil, nil, err
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(a.logger),
		pipeline.WithMetrics(a.metrics),
		pipeline.WithRetryQueue(a.retryQueue()),
		pipeline.WithConcurrency(a.cfg.Processing.MaxThreads),
		pipeline.WithFileTimeout(a.cfg.Processing.ProcessTimeout),
	}
	cleanup := func() {}
	if persist {
		db, repo, err := a.openRepository(ctx)
		if err != nil {
			return nil, nil, err
		}
		if repo != nil {
			opts = append(opts, pipeline.WithRepository(repo))
			cleanup = db.Close
		}
	}
	return pipeline.NewProcessor(client, opts...), cleanup, nil
}
