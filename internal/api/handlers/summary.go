package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/cawebapp/ca-backend/internal/models"
	"github.com/cawebapp/ca-backend/internal/store"
	"github.com/cawebapp/ca-backend/internal/summary"

	"github.com/gin-gonic/gin"
)

// HandleProcessPDF accepts a multipart upload ("file" and "user_id"),
// runs the summarize pipeline and returns the new summary id.
func (h *Handler) HandleProcessPDF(c *gin.Context) {
	if h.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			h.badRequest(c, fmt.Sprintf("File too large (limit %d bytes)", tooLarge.Limit))
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			h.badRequest(c, "No file uploaded")
		default:
			h.badRequest(c, fmt.Sprintf("Failed to parse multipart form: %v", err))
		}
		return
	}

	userID := c.PostForm("user_id")
	if userID == "" {
		h.badRequest(c, "user_id is required")
		return
	}
	if err := store.ValidateID(userID); err != nil {
		h.handleError(c, "Invalid user_id", err, nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.handleError(c, fmt.Sprintf("Failed to open uploaded file %s", fileHeader.Filename), err, nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.handleError(c, fmt.Sprintf("Failed to read uploaded file %s", fileHeader.Filename), err, nil)
		return
	}
	h.Log.Info("processing upload", "user_id", userID, "filename", fileHeader.Filename, "size", len(data))

	outcome, err := h.Pipeline.Process(c.Request.Context(), summary.Upload{
		UserID:   userID,
		Filename: fileHeader.Filename,
		Data:     data,
	})
	if err != nil {
		h.handleError(c, "Failed to process PDF", err, rawOutputFor(outcome, err))
		return
	}

	c.JSON(http.StatusOK, models.ProcessResponse{Status: "success", DocID: outcome.DocID})
}

// HandleListSummaries returns every summary stored for a user.
func (h *Handler) HandleListSummaries(c *gin.Context) {
	userID := c.Param("user_id")
	records, err := h.Store.ListSummaries(c.Request.Context(), userID)
	if err != nil {
		h.handleError(c, "Failed to list summaries", err, nil)
		return
	}
	c.JSON(http.StatusOK, records)
}

// HandleGetSummary returns one summary or 404.
func (h *Handler) HandleGetSummary(c *gin.Context) {
	rec, err := h.Store.GetSummary(c.Request.Context(), c.Param("user_id"), c.Param("doc_id"))
	if err != nil {
		h.handleError(c, "Failed to get summary", err, nil)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// HandleDeleteSummary removes a summary. Deleting a missing id succeeds.
func (h *Handler) HandleDeleteSummary(c *gin.Context) {
	if err := h.Store.DeleteSummary(c.Request.Context(), c.Param("user_id"), c.Param("doc_id")); err != nil {
		h.handleError(c, "Failed to delete summary", err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
