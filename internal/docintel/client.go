// Package docintel is a small REST client for the Azure AI Document
// Intelligence prebuilt receipt model. It submits a document, polls the
// returned operation until a terminal status, and decodes the analyze result.
package docintel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/receipt-digitizer/constants"
	"github.com/joseph-ayodele/receipt-digitizer/internal/analysis"
	"github.com/joseph-ayodele/receipt-digitizer/internal/common"
	"github.com/joseph-ayodele/receipt-digitizer/internal/metrics"
)

const (
	DefaultModel      = "prebuilt-receipt"
	DefaultAPIVersion = "2024-11-30"
)

var (
	ErrPollTimeout    = errors.New("analysis did not finish before the poll timeout")
	ErrAnalyzeFailed  = errors.New("analysis operation failed")
	ErrNoOperationURL = errors.New("response has no Operation-Location header")
)

// StatusError is a non-2xx response from the service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("document intelligence returned status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error { return common.ErrRemote }

func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type Config struct {
	Endpoint   string
	APIKey     string
	Model      string
	APIVersion string
	// MinInterval is the minimum gap between submissions; zero disables it.
	MinInterval    time.Duration
	PollInterval   time.Duration
	PollTimeout    time.Duration
	MaxRetries     int
	MinBackoff     time.Duration
	MaxBackoff     time.Duration
	RequestTimeout time.Duration
}

// ConfigFrom maps the application vision settings.
func ConfigFrom(v common.VisionConfig) Config {
	return Config{
		Endpoint:       v.Endpoint,
		APIKey:         v.APIKey,
		Model:          v.Model,
		APIVersion:     v.APIVersion,
		MinInterval:    v.MinInterval,
		PollInterval:   v.PollInterval,
		PollTimeout:    v.PollTimeout,
		MaxRetries:     v.MaxRetries,
		MinBackoff:     v.MinBackoff,
		MaxBackoff:     v.MaxBackoff,
		RequestTimeout: v.RequestTimeout,
	}
}

type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New validates cfg, fills unset tuning values and builds the client.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.Endpoint = strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if cfg.Endpoint == "" || cfg.APIKey == "" {
		return nil, common.NewAppError("DOCINTEL_CONFIG", "endpoint and api key are required", common.ErrNotConfigured)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 60 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = 4 * time.Second
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = cfg.MinBackoff
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}

	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}
	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		limiter: rate.NewLimiter(limit, 1),
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Analyze submits raw document bytes. id is used for logging only.
func (c *Client) Analyze(ctx context.Context, id string, body []byte, contentType string) (*analysis.Result, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return c.analyze(ctx, id, body, contentType)
}

// AnalyzeFileBytes picks the content type from the file extension.
func (c *Client) AnalyzeFileBytes(ctx context.Context, id string, body []byte, ext string) (*analysis.Result, error) {
	return c.Analyze(ctx, id, body, constants.ContentTypeFor(ext))
}

// AnalyzeURL asks the service to fetch the document itself.
func (c *Client) AnalyzeURL(ctx context.Context, id, documentURL string) (*analysis.Result, error) {
	bs, err := json.Marshal(map[string]string{"urlSource": documentURL})
	if err != nil {
		return nil, fmt.Errorf("encode url source: %w", err)
	}
	return c.analyze(ctx, id, bs, "application/json")
}

func (c *Client) analyze(ctx context.Context, id string, body []byte, contentType string) (*analysis.Result, error) {
	clientReqID := uuid.New().String()
	logger := common.LoggerFrom(ctx, c.logger).With("image_id", id, "client_request_id", clientReqID)
	start := time.Now()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	opURL, err := c.submit(ctx, logger, clientReqID, body, contentType)
	if err != nil {
		c.metrics.RemoteRequest("submit", "failed")
		return nil, err
	}
	c.metrics.RemoteRequest("submit", "accepted")
	logger.Info("docintel.poll.start", "operation", opURL)

	result, err := c.poll(ctx, logger, clientReqID, opURL)
	c.metrics.RemoteDuration(time.Since(start))
	if err != nil {
		c.metrics.RemoteRequest("analyze", "failed")
		return nil, err
	}
	c.metrics.RemoteRequest("analyze", "succeeded")
	logger.Info("docintel.analyze.ok", "documents", len(result.Documents), "elapsed_ms", time.Since(start).Milliseconds())
	return result, nil
}

func (c *Client) analyzeURL() string {
	return fmt.Sprintf("%s/documentintelligence/documentModels/%s:analyze?api-version=%s",
		c.cfg.Endpoint, url.PathEscape(c.cfg.Model), url.QueryEscape(c.cfg.APIVersion))
}

func (c *Client) submit(ctx context.Context, logger *slog.Logger, clientReqID string, body []byte, contentType string) (string, error) {
	_, header, err := c.do(ctx, logger, "submit", func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.analyzeURL(), bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		c.setHeaders(req, clientReqID)
		return req, nil
	})
	if err != nil {
		return "", err
	}
	loc := strings.TrimSpace(header.Get("Operation-Location"))
	if loc == "" {
		return "", ErrNoOperationURL
	}
	if strings.HasPrefix(loc, "/") {
		loc = c.cfg.Endpoint + loc
	}
	return loc, nil
}

type operation struct {
	Status        constants.OperationStatus `json:"status"`
	AnalyzeResult *analysis.Result          `json:"analyzeResult"`
	Error         *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) poll(ctx context.Context, logger *slog.Logger, clientReqID, opURL string) (*analysis.Result, error) {
	pollCtx, cancel := context.WithTimeout(ctx, c.cfg.PollTimeout)
	defer cancel()

	timedOut := func(err error) error {
		if ctx.Err() == nil && errors.Is(pollCtx.Err(), context.DeadlineExceeded) {
			logger.Error("docintel.poll.timeout", "timeout", c.cfg.PollTimeout)
			return fmt.Errorf("%w after %s", ErrPollTimeout, c.cfg.PollTimeout)
		}
		return err
	}

	for {
		raw, _, err := c.do(pollCtx, logger, "poll", func(ctx context.Context) (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, opURL, nil)
			if err != nil {
				return nil, err
			}
			c.setHeaders(req, clientReqID)
			return req, nil
		})
		if err != nil {
			return nil, timedOut(err)
		}

		var op operation
		if err := json.Unmarshal(raw, &op); err != nil {
			return nil, fmt.Errorf("decode operation: %w", err)
		}
		logger.Debug("docintel.poll.status", "status", op.Status)

		switch op.Status {
		case constants.OperationSucceeded:
			if op.AnalyzeResult == nil {
				return &analysis.Result{}, nil
			}
			return op.AnalyzeResult, nil
		case constants.OperationFailed, constants.OperationCanceled:
			detail := "no error details"
			if op.Error != nil {
				detail = op.Error.Code + ": " + op.Error.Message
			}
			logger.Error("docintel.poll.failed", "status", op.Status, "detail", detail)
			return nil, fmt.Errorf("%w: %s (%s)", ErrAnalyzeFailed, op.Status, detail)
		}

		if err := sleep(pollCtx, c.cfg.PollInterval); err != nil {
			return nil, timedOut(err)
		}
	}
}

func (c *Client) setHeaders(req *http.Request, clientReqID string) {
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.APIKey)
	req.Header.Set("x-ms-client-request-id", clientReqID)
}

// do sends the request built by build, retrying transport errors, 429 and
// 5xx up to MaxRetries attempts.
func (c *Client) do(ctx context.Context, logger *slog.Logger, op string, build func(context.Context) (*http.Request, error)) ([]byte, http.Header, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		req, err := build(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("build request: %w", err)
		}

		start := time.Now()
		logger.Debug("docintel.http.request", "op", op, "method", req.Method, "attempt", attempt)
		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			logger.Warn("docintel.http.send_error", "op", op, "attempt", attempt, "error", err,
				"elapsed_ms", time.Since(start).Milliseconds())
			lastErr = fmt.Errorf("%s: %w: %v", op, common.ErrRemote, err)
			if werr := c.backoff(ctx, op, attempt, 0, "transport"); werr != nil {
				return nil, nil, werr
			}
			continue
		}

		raw, readErr := io.ReadAll(resp.Body)
		if cerr := resp.Body.Close(); cerr != nil {
			logger.Warn("docintel.http.response_body_close_error", "op", op, "error", cerr)
		}
		logger.Debug("docintel.http.response", "op", op, "status", resp.StatusCode, "bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds())
		if readErr != nil {
			lastErr = fmt.Errorf("%s: read body: %w: %v", op, common.ErrRemote, readErr)
			if werr := c.backoff(ctx, op, attempt, 0, "transport"); werr != nil {
				return nil, nil, werr
			}
			continue
		}

		if resp.StatusCode/100 == 2 {
			return raw, resp.Header, nil
		}
		serr := &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(raw), 512)}
		if !serr.retryable() {
			logger.Error("docintel.http.rejected", "op", op, "status", resp.StatusCode)
			return nil, nil, serr
		}
		lastErr = serr
		reason := "status_" + strconv.Itoa(resp.StatusCode)
		if werr := c.backoff(ctx, op, attempt, retryAfter(resp.Header), reason); werr != nil {
			return nil, nil, werr
		}
	}
	logger.Error("docintel.http.retries_exhausted", "op", op, "attempts", c.cfg.MaxRetries, "error", lastErr)
	return nil, nil, lastErr
}

// backoff waits before the next attempt; after the last attempt it returns
// immediately.
func (c *Client) backoff(ctx context.Context, op string, attempt int, after time.Duration, reason string) error {
	if attempt >= c.cfg.MaxRetries {
		return nil
	}
	c.metrics.RemoteRetry(reason)
	wait := backoffFor(attempt, c.cfg.MinBackoff, c.cfg.MaxBackoff)
	if after > wait {
		wait = after
	}
	c.logger.Info("docintel.retry", "op", op, "attempt", attempt, "reason", reason, "wait", wait)
	return sleep(ctx, wait)
}

// backoffFor doubles from lo per attempt and clamps to [lo, hi].
func backoffFor(attempt int, lo, hi time.Duration) time.Duration {
	d := lo
	for i := 1; i < attempt && d < hi; i++ {
		d *= 2
	}
	if d > hi {
		d = hi
	}
	return d
}

func retryAfter(h http.Header) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
