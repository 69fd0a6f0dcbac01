package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/receipt-digitizer/internal/common"
)

const headerRequestID = "X-Request-ID"

// RequestID propagates or assigns a request id and stores it on the request
// context for logging.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(headerRequestID)
			if id == "" {
				id = uuid.New().String()
			}
			c.Response().Header().Set(headerRequestID, id)
			req := c.Request()
			c.SetRequest(req.WithContext(common.WithRequestID(req.Context(), id)))
			return next(c)
		}
	}
}

func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			common.LoggerFrom(c.Request().Context(), logger).Info("http.request",
				"method", c.Request().Method,
				"path", c.Path(),
				"status", c.Response().Status,
				"bytes", c.Response().Size,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return nil
		}
	}
}

// BodyLimit caps request bodies at n bytes.
func BodyLimit(n int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			req.Body = http.MaxBytesReader(c.Response(), req.Body, n)
			return next(c)
		}
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits requests per client IP.
func RateLimiter(rps float64, burst int) echo.MiddlewareFunc {
	if burst <= 0 {
		burst = 1
	}
	var mu sync.Mutex
	visitors := map[string]*visitor{}

	get := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		now := time.Now()
		for k, v := range visitors {
			if now.Sub(v.lastSeen) > 10*time.Minute {
				delete(visitors, k)
			}
		}
		v, ok := visitors[ip]
		if !ok {
			v = &visitor{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
			visitors[ip] = v
		}
		v.lastSeen = now
		return v.limiter
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !get(c.RealIP()).Allow() {
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
