package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/cawebapp/ca-backend/internal/models"
	"github.com/cawebapp/ca-backend/internal/store"

	"github.com/gin-gonic/gin"
)

// HandleSaveQuiz stores a completed quiz attempt. Missing fields default to
// no questions and a score of zero.
func (h *Handler) HandleSaveQuiz(c *gin.Context) {
	userID := c.Param("user_id")
	if err := store.ValidateID(userID); err != nil {
		h.handleError(c, "Invalid user_id", err, nil)
		return
	}

	var req models.SaveQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.badRequest(c, fmt.Sprintf("Invalid quiz body: %v", err))
		return
	}
	if req.Score < 0 {
		h.badRequest(c, "score must not be negative")
		return
	}

	quizID, err := h.Store.CreateQuiz(c.Request.Context(), userID, models.QuizAttempt{
		Questions: req.Questions,
		Score:     req.Score,
	})
	if err != nil {
		h.handleError(c, "Failed to save quiz", err, nil)
		return
	}
	h.Log.Info("quiz saved", "user_id", userID, "quiz_id", quizID, "score", req.Score)

	c.JSON(http.StatusOK, models.SaveQuizResponse{Status: "saved", QuizID: quizID})
}

// HandleListQuizzes returns every quiz attempt stored for a user.
func (h *Handler) HandleListQuizzes(c *gin.Context) {
	quizzes, err := h.Store.ListQuizzes(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		h.handleError(c, "Failed to list quizzes", err, nil)
		return
	}
	c.JSON(http.StatusOK, quizzes)
}

// HandleGetQuiz returns one quiz attempt or 404.
func (h *Handler) HandleGetQuiz(c *gin.Context) {
	quiz, err := h.Store.GetQuiz(c.Request.Context(), c.Param("user_id"), c.Param("quiz_id"))
	if err != nil {
		h.handleError(c, "Failed to get quiz", err, nil)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

// HandleDeleteQuiz removes a quiz attempt. Deleting a missing id succeeds.
func (h *Handler) HandleDeleteQuiz(c *gin.Context) {
	if err := h.Store.DeleteQuiz(c.Request.Context(), c.Param("user_id"), c.Param("quiz_id")); err != nil {
		h.handleError(c, "Failed to delete quiz", err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
