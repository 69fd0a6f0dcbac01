package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/joseph-ayodele/receipt-digitizer/internal/common"
)

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// statusFor maps sentinel errors to HTTP status codes.
func statusFor(err error) (int, string) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes), errors.Is(err, common.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"
	case errors.Is(err, common.ErrUnsupportedFile):
		return http.StatusUnsupportedMediaType, "UNSUPPORTED_FILE"
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, common.ErrNotConfigured):
		return http.StatusServiceUnavailable, "NOT_CONFIGURED"
	case errors.Is(err, common.ErrRemote):
		return http.StatusBadGateway, "REMOTE_ERROR"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, code := statusFor(err)
	message := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		code = http.StatusText(he.Code)
		message = fmt.Sprintf("%v", he.Message)
	}
	if appCode := common.CodeOf(err); appCode != "" {
		code = appCode
	}

	level := slog.LevelWarn
	if status >= 500 {
		level = slog.LevelError
	}
	reqID := common.RequestIDFromContext(c.Request().Context())
	s.logger.Log(c.Request().Context(), level, "HTTP error occurred",
		"request_id", reqID,
		"status", status,
		"code", code,
		"path", c.Request().URL.Path,
		"error", err.Error(),
	)

	if status >= 500 && code == "INTERNAL" {
		message = "internal error"
	}
	if err := c.JSON(status, errorResponse{Error: errorBody{Code: code, Message: message, RequestID: reqID}}); err != nil {
		s.logger.Error("failed to write error response", "error", err)
	}
}
