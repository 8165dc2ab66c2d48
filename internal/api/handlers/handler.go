package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/cawebapp/ca-backend/internal/gemini"
	"github.com/cawebapp/ca-backend/internal/logger"
	"github.com/cawebapp/ca-backend/internal/models"
	"github.com/cawebapp/ca-backend/internal/normalize"
	"github.com/cawebapp/ca-backend/internal/pdftext"
	"github.com/cawebapp/ca-backend/internal/store"
	"github.com/cawebapp/ca-backend/internal/summary"

	"github.com/gin-gonic/gin"
)

// RootMessage is returned by GET / as a liveness signal.
const RootMessage = "CA Web Backend is running"

// Pipeline is the model-backed work the handlers delegate to.
type Pipeline interface {
	Process(ctx context.Context, up summary.Upload) (*summary.Outcome, error)
	Chat(ctx context.Context, message string) (string, error)
}

// Handler contains the API handlers dependencies
type Handler struct {
	Pipeline       Pipeline
	Store          store.Store
	Log            *logger.Logger
	MaxUploadBytes int64
}

// NewHandler creates a new Handler
func NewHandler(pipeline Pipeline, st store.Store, log *logger.Logger, maxUploadBytes int64) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		Pipeline:       pipeline,
		Store:          st,
		Log:            log,
		MaxUploadBytes: maxUploadBytes,
	}
}

// HandleRoot reports that the service is up.
func (h *Handler) HandleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": RootMessage})
}

// statusFor maps pipeline and store errors onto HTTP status codes.
func statusFor(err error) int {
	var parseErr *pdftext.DocumentParseError
	switch {
	case errors.As(err, &parseErr),
		errors.Is(err, store.ErrInvalidID),
		errors.Is(err, summary.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// rawOutputFor picks the model text to return alongside a failed upload.
// Parse failures report the cleaned text; later failures the raw reply.
func rawOutputFor(outcome *summary.Outcome, err error) *string {
	var outErr *normalize.OutputParseError
	if errors.As(err, &outErr) {
		cleaned := outErr.Cleaned
		return &cleaned
	}
	if outcome != nil && outcome.RawOutput != "" {
		raw := outcome.RawOutput
		return &raw
	}
	return nil
}

// handleError logs err and aborts the request with a JSON error body.
func (h *Handler) handleError(c *gin.Context, errorContext string, err error, rawOutput *string) {
	status := statusFor(err)
	msg := fmt.Sprintf("%s: %v", errorContext, err)
	if status == http.StatusNotFound {
		msg = "Not found"
	}

	var modelErr *gemini.ModelUnavailableError
	fields := []interface{}{"path", c.Request.URL.Path, "status", status, "error", err}
	if errors.As(err, &modelErr) {
		fields = append(fields, "cause", "model")
	}
	if status >= http.StatusInternalServerError {
		h.Log.Error(errorContext, fields...)
	} else {
		h.Log.Warn(errorContext, fields...)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, models.ErrorResponse{Error: msg, RawOutput: rawOutput})
}

// badRequest aborts with 400 and a fixed message.
func (h *Handler) badRequest(c *gin.Context, msg string) {
	h.Log.Warn("bad request", "path", c.Request.URL.Path, "error", msg)
	c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Error: msg})
}
