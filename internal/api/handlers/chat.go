package handlers

import (
	"fmt"
	"net/http"

	"github.com/cawebapp/ca-backend/internal/models"

	"github.com/gin-gonic/gin"
)

// HandleChat answers a free-form current-affairs question.
func (h *Handler) HandleChat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, fmt.Sprintf("Invalid chat body: %v", err))
		return
	}

	reply, err := h.Pipeline.Chat(c.Request.Context(), req.Message)
	if err != nil {
		h.handleError(c, "Failed to get reply", err, nil)
		return
	}
	c.JSON(http.StatusOK, models.ChatResponse{Reply: reply})
}
