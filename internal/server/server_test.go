package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/xuri/excelize/v2"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/receipt-digitizer/constants"
	"github.com/joseph-ayodele/receipt-digitizer/internal/analysis"
	"github.com/joseph-ayodele/receipt-digitizer/internal/export"
	"github.com/joseph-ayodele/receipt-digitizer/internal/metrics"
	"github.com/joseph-ayodele/receipt-digitizer/internal/pipeline"
	"github.com/joseph-ayodele/receipt-digitizer/internal/receipt"
	"github.com/joseph-ayodele/receipt-digitizer/internal/repository"
)

type stubAnalyzer struct{}

func (stubAnalyzer) AnalyzeFileBytes(ctx context.Context, id string, body []byte, ext string) (*analysis.Result, error) {
	return &analysis.Result{Documents: []analysis.Document{{Fields: analysis.Fields{
		"MerchantName": analysis.String("Corner Store"),
		"Total":        analysis.Currency(7.25, "$"),
		"Items": analysis.Array(analysis.Object(analysis.Fields{
			"Description": analysis.String("Bread"),
			"TotalPrice":  analysis.Currency(7.25, "$"),
		})),
	}}}}, nil
}

func (stubAnalyzer) AnalyzeURL(ctx context.Context, id, documentURL string) (*analysis.Result, error) {
	return nil, nil
}

type ServerTestSuite struct {
	suite.Suite
	db      *repository.DB
	repo    repository.ReceiptRepository
	server  *Server
	handler http.Handler
	faker   *gofakeit.Faker
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func (s *ServerTestSuite) SetupTest() {
	db, err := repository.Open(context.Background(), repository.Config{DSN: ":memory:"}, nil)
	s.Require().NoError(err)
	s.db = db
	s.repo = repository.NewReceiptRepository(db, nil)

	reg := prometheus.NewRegistry()
	proc := pipeline.NewProcessor(stubAnalyzer{}, pipeline.WithMetrics(metrics.New(reg)))
	s.server = New(Dependencies{
		Processor:      proc,
		Repo:           s.repo,
		DB:             db,
		Gatherer:       reg,
		MaxUploadBytes: 1 << 20,
	})
	s.server.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	s.handler = s.server.Handler()
	s.faker = gofakeit.New(7)
}

func (s *ServerTestSuite) TearDownTest() {
	s.db.Close()
}

func (s *ServerTestSuite) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *ServerTestSuite) receiptsBody(n int) []byte {
	var receipts []receipt.Receipt
	for i := 0; i < n; i++ {
		r := receipt.Empty(s.faker.UUID() + ".jpg")
		r.Merchant.Name = s.faker.Company()
		amount := decimal.NewFromFloat(s.faker.Float64Range(1, 500)).Round(2)
		r.Transaction.Total = decimal.NewNullDecimal(amount)
		r.Items = []receipt.Item{{
			Description: "Coffee",
			Quantity:    "1",
			LineTotal:   decimal.NewNullDecimal(amount),
			TaxStatus:   constants.TaxStatusUnknown,
		}}
		receipts = append(receipts, r)
	}
	bs, err := export.ReceiptsJSON(receipts)
	s.Require().NoError(err)
	return bs
}

func (s *ServerTestSuite) TestHealthz() {
	rec := s.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"healthy"`)
	s.NotEmpty(rec.Header().Get(headerRequestID))
}

func (s *ServerTestSuite) TestRequestIDIsPropagated() {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(headerRequestID, "abc-123")
	rec := s.do(req)
	s.Equal("abc-123", rec.Header().Get(headerRequestID))
}

func (s *ServerTestSuite) TestAnalyzeUpload() {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("files", "r1.jpg")
	s.Require().NoError(err)
	_, _ = part.Write([]byte("jpeg"))
	part, err = mw.CreateFormFile("files", "notes.txt")
	s.Require().NoError(err)
	_, _ = part.Write([]byte("text"))
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/receipts/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := s.do(req)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		BatchID  string            `json:"batch_id"`
		Receipts []receipt.Receipt `json:"receipts"`
		Summary  struct {
			ReceiptCount int `json:"receipt_count"`
		} `json:"summary"`
		Skipped   []SkippedFile `json:"skipped"`
		StoredIDs []string      `json:"stored_ids"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Require().Len(resp.Receipts, 1)
	s.Equal("r1.jpg", resp.Receipts[0].ImageID)
	s.Equal("Corner Store", resp.Receipts[0].Merchant.Name)
	s.Equal(1, resp.Summary.ReceiptCount)
	s.Require().Len(resp.Skipped, 1)
	s.Equal("notes.txt", resp.Skipped[0].Name)
	s.Len(resp.StoredIDs, 1)

	list := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/receipts?batch_id="+resp.BatchID, nil))
	s.Equal(http.StatusOK, list.Code)
	s.Contains(list.Body.String(), "Corner Store")
}

func (s *ServerTestSuite) TestAnalyzeWithoutFiles() {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	s.Require().NoError(mw.WriteField("note", "empty"))
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/receipts/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := s.do(req)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), "NO_FILES")
}

func (s *ServerTestSuite) TestSummary() {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/summary", bytes.NewReader(s.receiptsBody(3)))
	req.Header.Set("Content-Type", "application/json")
	rec := s.do(req)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var report map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &report))
	s.EqualValues(3, report["receipt_count"])
	s.EqualValues(3, report["item_count"])
}

func (s *ServerTestSuite) TestSummaryRejectsInvalidPayload() {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/summary", bytes.NewReader([]byte(`[{"image_id": 5}]`)))
	rec := s.do(req)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *ServerTestSuite) TestExportXLSX() {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/export/xlsx", bytes.NewReader(s.receiptsBody(2)))
	rec := s.do(req)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Equal(xlsxContentType, rec.Header().Get("Content-Type"))
	s.Contains(rec.Header().Get("Content-Disposition"), "receipt_analysis_20240301_120000.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	s.Require().NoError(err)
	defer f.Close()
	rows, err := f.GetRows("Receipt Items")
	s.Require().NoError(err)
	s.Len(rows, 3)
}

func (s *ServerTestSuite) TestExportCSV() {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/export/csv", bytes.NewReader(s.receiptsBody(2)))
	rec := s.do(req)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Header().Get("Content-Type"), "text/csv")
	s.Contains(rec.Body.String(), "Coffee")
}

func (s *ServerTestSuite) TestListWithoutRepository() {
	srv := New(Dependencies{Gatherer: prometheus.NewRegistry()})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/receipts", nil))
	s.Equal(http.StatusServiceUnavailable, rec.Code)
}

func (s *ServerTestSuite) TestListFiltersByCategory() {
	pizza := receipt.Empty("pizza.jpg")
	pizza.Items = []receipt.Item{{Description: "Pepperoni Pizza", Quantity: "1", TaxStatus: constants.TaxStatusTaxable}}
	bread := receipt.Empty("bread.jpg")
	bread.Items = []receipt.Item{{Description: "Bread", Quantity: "1", TaxStatus: constants.TaxStatusZeroRated}}
	_, err := s.repo.SaveBatch(context.Background(), "batch-1", []receipt.Receipt{pizza, bread})
	s.Require().NoError(err)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/receipts?category=restaurant", nil))
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Receipts []repository.StoredReceipt `json:"receipts"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Require().Len(resp.Receipts, 1)
	s.Equal("pizza.jpg", resp.Receipts[0].Receipt.ImageID)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/receipts?category=furniture", nil))
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), "INVALID_CATEGORY")
}

func (s *ServerTestSuite) TestListRejectsBadLimit() {
	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/receipts?limit=-1", nil))
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *ServerTestSuite) TestMetricsEndpoint() {
	rec := s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "receipt_queue_depth")
}

func (s *ServerTestSuite) TestRateLimiter() {
	srv := New(Dependencies{
		Processor:    pipeline.NewProcessor(stubAnalyzer{}),
		Gatherer:     prometheus.NewRegistry(),
		AnalyzeRPS:   0.001,
		AnalyzeBurst: 1,
	})
	send := func() int {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/receipts/analyze", nil))
		return rec.Code
	}
	s.Equal(http.StatusBadRequest, send())
	s.Equal(http.StatusTooManyRequests, send())
}

func (s *ServerTestSuite) TestGRPCHealthServing() {
	resp, err := s.server.Health().Check(context.Background(), &healthpb.HealthCheckRequest{})
	s.Require().NoError(err)
	s.Equal(healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
