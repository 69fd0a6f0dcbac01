// Package pipeline runs receipt files through remote analysis and the
// receipt assembler on a bounded worker pool, then persists and exports
// the batch.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipt-digitizer/internal/analysis"
	"github.com/joseph-ayodele/receipt-digitizer/internal/common"
	"github.com/joseph-ayodele/receipt-digitizer/internal/docintel"
	"github.com/joseph-ayodele/receipt-digitizer/internal/export"
	"github.com/joseph-ayodele/receipt-digitizer/internal/ingest"
	"github.com/joseph-ayodele/receipt-digitizer/internal/metrics"
	"github.com/joseph-ayodele/receipt-digitizer/internal/receipt"
	"github.com/joseph-ayodele/receipt-digitizer/internal/repository"
	"github.com/joseph-ayodele/receipt-digitizer/internal/summary"
)

// Analyzer is the remote document analysis boundary.
type Analyzer interface {
	AnalyzeFileBytes(ctx context.Context, id string, body []byte, ext string) (*analysis.Result, error)
	AnalyzeURL(ctx context.Context, id, documentURL string) (*analysis.Result, error)
}

// Batch is the outcome of one processing run.
type Batch struct {
	ID         string            `json:"batch_id"`
	Receipts   []receipt.Receipt `json:"receipts"`
	Summary    summary.Report    `json:"summary"`
	Processed  int               `json:"processed"`
	Successful int               `json:"successful"`
	StoredIDs  []string          `json:"stored_ids,omitempty"`
}

type Processor struct {
	analyzer  Analyzer
	assembler *receipt.Assembler
	exporter  *export.Service
	repo      repository.ReceiptRepository
	retry     *ingest.RetryQueue
	metrics   *metrics.Metrics
	logger    *slog.Logger
	workers   int
	timeout   time.Duration
	now       func() time.Time
}

type Option func(*Processor)

func WithRepository(r repository.ReceiptRepository) Option {
	return func(p *Processor) { p.repo = r }
}

func WithRetryQueue(q *ingest.RetryQueue) Option {
	return func(p *Processor) { p.retry = q }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithConcurrency sets the worker count (MAX_THREADS).
func WithConcurrency(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithFileTimeout bounds the processing time of a single file.
func WithFileTimeout(d time.Duration) Option {
	return func(p *Processor) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func NewProcessor(analyzer Analyzer, opts ...Option) *Processor {
	p := &Processor{
		analyzer: analyzer,
		logger:   slog.Default(),
		workers:  3,
		timeout:  5 * time.Minute,
		now:      time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	p.assembler = receipt.NewAssembler(p.logger)
	p.exporter = export.NewService(p.logger)
	return p
}

// AnalyzeFile never fails: any error yields the empty receipt for the file's
// base name. Remote failures add the file to the retry queue.
func (p *Processor) AnalyzeFile(ctx context.Context, filePath string) receipt.Receipt {
	id := filepath.Base(filePath)
	start := time.Now()
	f, err := ingest.Load(filePath)
	if err != nil {
		return p.fail(ctx, filePath, id, start, err)
	}
	return p.analyzeBytes(ctx, f.Path, id, f.Data, f.Ext, start)
}

// AnalyzeBytes analyzes an in-memory upload. ext selects the content type.
func (p *Processor) AnalyzeBytes(ctx context.Context, id string, data []byte, ext string) receipt.Receipt {
	start := time.Now()
	if _, err := ingest.CheckFile(id, int64(len(data))); err != nil {
		return p.fail(ctx, "", id, start, err)
	}
	return p.analyzeBytes(ctx, "", id, data, ext, start)
}

// AnalyzeURL has the service fetch the document from documentURL.
func (p *Processor) AnalyzeURL(ctx context.Context, id, documentURL string) receipt.Receipt {
	if id == "" {
		id = path.Base(documentURL)
	}
	start := time.Now()
	res, err := p.analyzer.AnalyzeURL(ctx, id, documentURL)
	if err != nil {
		return p.fail(ctx, documentURL, id, start, err)
	}
	return p.finish(ctx, id, res, start)
}

func (p *Processor) analyzeBytes(ctx context.Context, source, id string, data []byte, ext string, start time.Time) receipt.Receipt {
	res, err := p.analyzer.AnalyzeFileBytes(ctx, id, data, ext)
	if err != nil {
		return p.fail(ctx, source, id, start, err)
	}
	return p.finish(ctx, id, res, start)
}

func (p *Processor) finish(ctx context.Context, id string, res *analysis.Result, start time.Time) receipt.Receipt {
	rec := p.assembler.Assemble(id, res)
	outcome := "success"
	if !rec.Successful() {
		outcome = "empty"
	}
	p.metrics.ReceiptProcessed(outcome, time.Since(start))
	common.LoggerFrom(ctx, p.logger).Info("processed receipt",
		"image_id", id,
		"merchant", rec.Merchant.Name,
		"items", len(rec.Items),
		"outcome", outcome,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rec
}

func (p *Processor) fail(ctx context.Context, source, id string, start time.Time, err error) receipt.Receipt {
	common.LoggerFrom(ctx, p.logger).Error("processor.analyze.failed", "image_id", id, "source", source, "error", err)
	p.metrics.ReceiptProcessed("failed", time.Since(start))
	if p.retry != nil && source != "" && retryable(err) {
		if qerr := p.retry.Add(source, id); qerr == nil {
			p.metrics.RetryQueued()
		}
	}
	return receipt.Empty(id)
}

// retryable reports whether err came from the remote service or a timeout.
// Local file errors fail the same way on every attempt.
func retryable(err error) bool {
	switch {
	case errors.Is(err, common.ErrUnsupportedFile),
		errors.Is(err, common.ErrFileTooLarge),
		errors.Is(err, common.ErrNotFound),
		errors.Is(err, common.ErrInvalidInput):
		return false
	}
	return errors.Is(err, common.ErrRemote) ||
		errors.Is(err, docintel.ErrPollTimeout) ||
		errors.Is(err, docintel.ErrAnalyzeFailed) ||
		errors.Is(err, context.DeadlineExceeded)
}

// ProcessFiles analyzes up to max paths (no limit when max <= 0) on the
// worker pool and returns receipts in input order.
func (p *Processor) ProcessFiles(ctx context.Context, paths []string, max int) (Batch, error) {
	if max > 0 && len(paths) > max {
		p.logger.Info("limiting batch", "requested", len(paths), "max", max)
		paths = paths[:max]
	}
	jobs := make([]Job, len(paths))
	for i, fp := range paths {
		jobs[i] = Job{Index: i, Path: fp, ImageID: filepath.Base(fp)}
	}
	return p.run(ctx, jobs)
}

// RetryPending re-runs the retry queue. Entries without a source cannot be
// re-run and are dropped; entries that fail again are re-added.
func (p *Processor) RetryPending(ctx context.Context) (Batch, error) {
	if p.retry == nil {
		return Batch{}, common.NewAppError("RETRY_QUEUE", "no retry queue configured", common.ErrNotConfigured)
	}
	entries, err := p.retry.Drain()
	if err != nil {
		return Batch{}, err
	}
	var jobs []Job
	dropped := 0
	for _, e := range entries {
		if e.ImageURL == "" {
			p.logger.Warn("dropping retry entry without a source", "image_id", e.ImageID)
			dropped++
			continue
		}
		job := Job{Index: len(jobs), ImageID: e.ImageID}
		if isRemote(e.ImageURL) {
			job.URL = e.ImageURL
		} else {
			job.Path = e.ImageURL
		}
		jobs = append(jobs, job)
	}
	p.logger.Info("retrying queued receipts", "runnable", len(jobs), "dropped", dropped)
	return p.run(ctx, jobs)
}

func (p *Processor) run(ctx context.Context, jobs []Job) (Batch, error) {
	batch := Batch{ID: uuid.New().String(), Receipts: make([]receipt.Receipt, len(jobs))}
	ctx = common.WithBatchID(ctx, batch.ID)
	logger := common.LoggerFrom(ctx, p.logger)

	for i, j := range jobs {
		batch.Receipts[i] = receipt.Empty(j.ImageID)
	}
	logger.Info("processing batch", "files", len(jobs), "workers", p.workers)

	q := NewQueue(ctx, func(ctx context.Context, workerID int, job Job) {
		p.metrics.QueueDepth(-1)
		if job.URL != "" {
			batch.Receipts[job.Index] = p.AnalyzeURL(ctx, job.ImageID, job.URL)
			return
		}
		batch.Receipts[job.Index] = p.AnalyzeFile(ctx, job.Path)
	}, logger, WithWorkers(p.workers), WithQueueSize(len(jobs)), WithProcessTimeout(p.timeout))

	for _, j := range jobs {
		p.metrics.QueueDepth(1)
		if err := q.Enqueue(ctx, j); err != nil {
			p.metrics.QueueDepth(-1)
			logger.Warn("stopped enqueueing", "error", err)
			break
		}
	}
	q.Shutdown(context.Background())

	batch.Processed = len(jobs)
	for _, r := range batch.Receipts {
		if r.Successful() {
			batch.Successful++
		}
	}
	batch.Summary = summary.Summarize(batch.Receipts)
	logger.Info("processor.batch.ok", "processed", batch.Processed, "successful", batch.Successful)

	if p.repo != nil && len(batch.Receipts) > 0 {
		ids, err := p.repo.SaveBatch(ctx, batch.ID, batch.Receipts)
		if err != nil {
			return batch, err
		}
		batch.StoredIDs = ids
	}
	return batch, nil
}

func isRemote(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
