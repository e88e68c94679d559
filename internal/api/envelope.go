// ABOUTME: Uniform JSON response envelope and error rendering for the HTTP API
// ABOUTME: Maps apperr kinds to status codes and renders errors recorded on the gin context

package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/2389/trellis/internal/apperr"
)

// Default envelope messages.
const (
	MsgOK      = "Operation successful"
	MsgCreated = "Resource created successfully"
	MsgUpdated = "Resource updated successfully"
	MsgDeleted = "Resource deleted successfully"
	MsgFailed  = "Operation failed"
)

// Envelope wraps every API response.
type Envelope struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
	StatusCode int    `json:"statusCode"`
	Timestamp  string `json:"timestamp"`
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) write(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Envelope{
		Success:    status < http.StatusBadRequest,
		Message:    message,
		Data:       data,
		StatusCode: status,
		Timestamp:  h.now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) ok(c *gin.Context, data any) {
	h.write(c, http.StatusOK, MsgOK, data)
}

func (h *Handler) created(c *gin.Context, data any) {
	h.write(c, http.StatusCreated, MsgCreated, data)
}

func (h *Handler) updated(c *gin.Context, data any) {
	h.write(c, http.StatusOK, MsgUpdated, data)
}

func (h *Handler) deleted(c *gin.Context) {
	h.write(c, http.StatusOK, MsgDeleted, nil)
}

// fail records err for the error renderer and stops the handler chain.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// renderErrors writes the last error recorded on the context as an envelope.
// Handlers and middleware report failures with fail; nothing else writes
// error responses.
func (h *Handler) renderErrors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}
		h.renderError(c, last.Err)
	}
}

func (h *Handler) renderError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		h.logger.Error("unhandled error", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		h.write(c, http.StatusInternalServerError, MsgFailed, nil)
		return
	}

	status := statusFor(appErr.Kind)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	} else {
		h.logger.Debug("request rejected", "method", c.Request.Method, "path", c.FullPath(), "status", status, "error", appErr.Message)
	}

	var data any
	if len(appErr.Fields) > 0 {
		data = gin.H{"errors": appErr.Fields}
	}
	message := appErr.Message
	if message == "" {
		message = MsgFailed
	}
	h.write(c, status, message, data)
}

// recovery turns a panic into a 500 envelope.
func (h *Handler) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		h.logger.Error("panic in handler", "method", c.Request.Method, "path", c.Request.URL.Path, "panic", recovered)
		h.write(c, http.StatusInternalServerError, MsgFailed, nil)
		c.Abort()
	})
}

// requestLogger logs each request once it completes.
func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := h.now()
		c.Next()
		h.logger.Info("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", h.now().Sub(start)),
		)
	}
}
