package api

import (
	"github.com/cawebapp/ca-backend/internal/api/handlers"
	"github.com/cawebapp/ca-backend/internal/logger"

	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up the API routes
func SetupRoutes(router *gin.Engine, handler *handlers.Handler, log *logger.Logger, origins []string) {
	router.Use(RequestLogger(log))
	router.Use(CORSMiddleware(origins))

	router.GET("/", handler.HandleRoot)

	// --- Summaries ---
	router.POST("/process-pdf", handler.HandleProcessPDF)
	router.GET("/summaries/:user_id", handler.HandleListSummaries)
	router.GET("/summary/:user_id/:doc_id", handler.HandleGetSummary)
	router.DELETE("/summary/:user_id/:doc_id", handler.HandleDeleteSummary)

	// --- Quiz attempts ---
	router.POST("/quiz/:user_id", handler.HandleSaveQuiz)
	router.GET("/quizzes/:user_id", handler.HandleListQuizzes)
	router.GET("/quiz/:user_id/:quiz_id", handler.HandleGetQuiz)
	router.DELETE("/quiz/:user_id/:quiz_id", handler.HandleDeleteQuiz)

	// --- Tutor chat ---
	router.POST("/chat", handler.HandleChat)
}
