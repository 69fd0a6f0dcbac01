package server

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/joseph-ayodele/receipt-digitizer/constants"
	"github.com/joseph-ayodele/receipt-digitizer/internal/common"
	"github.com/joseph-ayodele/receipt-digitizer/internal/export"
	"github.com/joseph-ayodele/receipt-digitizer/internal/ingest"
	"github.com/joseph-ayodele/receipt-digitizer/internal/receipt"
	"github.com/joseph-ayodele/receipt-digitizer/internal/repository"
	"github.com/joseph-ayodele/receipt-digitizer/internal/summary"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type SkippedFile struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type AnalyzeResponse struct {
	BatchID   string            `json:"batch_id"`
	Receipts  []receipt.Receipt `json:"receipts"`
	Summary   summary.Report    `json:"summary"`
	Skipped   []SkippedFile     `json:"skipped"`
	StoredIDs []string          `json:"stored_ids,omitempty"`
}

func (s *Server) healthz(c echo.Context) error {
	if s.deps.DB != nil {
		if err := s.deps.DB.HealthCheck(c.Request().Context(), 2*time.Second); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   s.now().UTC().Format(time.RFC3339),
	})
}

// analyze accepts multipart "files" parts. Files failing the extension or
// size checks are reported as skipped; analysis failures yield empty
// receipts like the batch pipeline.
func (s *Server) analyze(c echo.Context) error {
	if s.deps.Processor == nil {
		return common.NewAppError("ANALYZER_UNAVAILABLE", "document analysis is not configured", common.ErrNotConfigured)
	}
	form, err := c.MultipartForm()
	if err != nil {
		return fmt.Errorf("%w: multipart form: %w", common.ErrInvalidInput, err)
	}
	files := form.File["files"]
	if len(files) == 0 {
		return common.NewAppError("NO_FILES", "no files uploaded", common.ErrInvalidInput)
	}

	ctx := c.Request().Context()
	resp := AnalyzeResponse{
		BatchID:  uuid.New().String(),
		Receipts: []receipt.Receipt{},
		Skipped:  []SkippedFile{},
	}
	ctx = common.WithBatchID(ctx, resp.BatchID)

	for _, fh := range files {
		ext, err := ingest.CheckFile(fh.Filename, fh.Size)
		if err != nil {
			resp.Skipped = append(resp.Skipped, SkippedFile{Name: fh.Filename, Reason: err.Error()})
			continue
		}
		f, err := fh.Open()
		if err != nil {
			resp.Skipped = append(resp.Skipped, SkippedFile{Name: fh.Filename, Reason: err.Error()})
			continue
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			resp.Skipped = append(resp.Skipped, SkippedFile{Name: fh.Filename, Reason: err.Error()})
			continue
		}
		resp.Receipts = append(resp.Receipts, s.deps.Processor.AnalyzeBytes(ctx, fh.Filename, data, ext))
	}
	resp.Summary = summary.Summarize(resp.Receipts)

	if s.deps.Repo != nil && len(resp.Receipts) > 0 {
		ids, err := s.deps.Repo.SaveBatch(ctx, resp.BatchID, resp.Receipts)
		if err != nil {
			return err
		}
		resp.StoredIDs = ids
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) decodeReceipts(c echo.Context) ([]receipt.Receipt, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", common.ErrInvalidInput, err)
	}
	return export.DecodeReceiptsJSON(body)
}

func (s *Server) summary(c echo.Context) error {
	receipts, err := s.decodeReceipts(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary.Summarize(receipts))
}

func (s *Server) exportXLSX(c echo.Context) error {
	receipts, err := s.decodeReceipts(c)
	if err != nil {
		return err
	}
	bs, err := s.exporter.ReceiptsXLSX(receipts)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, attachment(s.exportName("xlsx")))
	return c.Blob(http.StatusOK, xlsxContentType, bs)
}

func (s *Server) exportCSV(c echo.Context) error {
	receipts, err := s.decodeReceipts(c)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := s.exporter.WriteItemsCSV(&buf, receipts); err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, attachment(s.exportName("csv")))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (s *Server) listReceipts(c echo.Context) error {
	if s.deps.Repo == nil {
		return common.NewAppError("STORAGE_UNAVAILABLE", "no database configured", common.ErrNotConfigured)
	}
	f := repository.Filter{BatchID: c.QueryParam("batch_id")}
	if raw := c.QueryParam("category"); raw != "" {
		cat, ok := constants.Canonicalize(raw)
		if !ok {
			return common.NewAppError("INVALID_CATEGORY", "unknown category "+strconv.Quote(raw), common.ErrInvalidInput)
		}
		f.Category = cat
	}
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return common.NewAppError("INVALID_LIMIT", "limit must be a non-negative integer", common.ErrInvalidInput)
		}
		f.Limit = n
	}
	stored, err := s.deps.Repo.List(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"receipts": stored})
}

func (s *Server) exportName(ext string) string {
	return "receipt_analysis_" + s.now().Format("20060102_150405") + "." + ext
}

func attachment(name string) string {
	return fmt.Sprintf("attachment; filename=%q", name)
}
