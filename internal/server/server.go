// Package server exposes receipt analysis, summaries and exports over HTTP
// (echo) with a gRPC health endpoint alongside.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/receipt-digitizer/internal/export"
	"github.com/joseph-ayodele/receipt-digitizer/internal/metrics"
	"github.com/joseph-ayodele/receipt-digitizer/internal/pipeline"
	"github.com/joseph-ayodele/receipt-digitizer/internal/repository"
)

// Dependencies wires the server. Processor is required only for the
// analyze endpoint; Repo and DB are optional.
type Dependencies struct {
	Processor      *pipeline.Processor
	Repo           repository.ReceiptRepository
	DB             *repository.DB
	Gatherer       prometheus.Gatherer
	Logger         *slog.Logger
	MaxUploadBytes int64
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	// AnalyzeRPS limits analyze requests per client; zero disables it.
	AnalyzeRPS   float64
	AnalyzeBurst int
}

type Server struct {
	echo     *echo.Echo
	grpc     *grpc.Server
	health   *health.Server
	deps     Dependencies
	exporter *export.Service
	logger   *slog.Logger
	now      func() time.Time
}

func New(deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = 450 << 20
	}

	s := &Server{
		deps:     deps,
		exporter: export.NewService(logger),
		logger:   logger,
		now:      time.Now,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = deps.ReadTimeout
	e.Server.WriteTimeout = deps.WriteTimeout
	e.HTTPErrorHandler = s.errorHandler
	e.Use(middleware.Recover())
	e.Use(RequestID())
	e.Use(RequestLogger(logger))
	e.Use(BodyLimit(deps.MaxUploadBytes))

	e.GET("/healthz", s.healthz)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler(deps.Gatherer)))

	api := e.Group("/api/v1")
	analyze := []echo.MiddlewareFunc{}
	if deps.AnalyzeRPS > 0 {
		analyze = append(analyze, RateLimiter(deps.AnalyzeRPS, deps.AnalyzeBurst))
	}
	api.POST("/receipts/analyze", s.analyze, analyze...)
	api.GET("/receipts", s.listReceipts)
	api.POST("/summary", s.summary)
	api.POST("/export/xlsx", s.exportXLSX)
	api.POST("/export/csv", s.exportCSV)
	s.echo = e

	s.grpc = grpc.NewServer()
	s.health = health.NewServer()
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	reflection.Register(s.grpc)

	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Health returns the gRPC health service.
func (s *Server) Health() *health.Server { return s.health }

// Run serves HTTP on httpAddr and gRPC health on grpcAddr (skipped when
// empty) until ctx is done or a listener fails.
func (s *Server) Run(ctx context.Context, httpAddr, grpcAddr string, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 2)

	go func() {
		s.logger.Info("http serving", "addr", httpAddr)
		if err := s.echo.Start(httpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if grpcAddr != "" {
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			_ = s.echo.Close()
			return err
		}
		go func() {
			s.logger.Info("grpc health serving", "addr", grpcAddr)
			if err := s.grpc.Serve(lis); err != nil {
				errCh <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		s.logger.Error("server failed", "error", runErr)
	}

	s.logger.Info("shutting down...")
	s.health.Shutdown()
	if shutdownTimeout <= 0 {
		shutdownTimeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("http shutdown failed", "error", err)
	}
	s.grpc.GracefulStop()
	s.logger.Info("stopped")
	return runErr
}
