package models

import (
	"time"
)

// MCQ is a multiple-choice question produced by the model
type MCQ struct {
	Question      string   `json:"question" firestore:"question"`
	Options       []string `json:"options" firestore:"options"`
	CorrectAnswer string   `json:"correct_answer" firestore:"correct_answer"`
}

// SummaryContent is the normalized payload extracted from a Gemini reply.
// All three slices are non-nil after normalization.
type SummaryContent struct {
	MCQs     []MCQ    `json:"mcqs"`
	Summary  []string `json:"summary"`
	GKPoints []string `json:"gk_points"`
}

// SummaryRecord represents one summarized upload stored under
// users/{user_id}/summaries/{id}
type SummaryRecord struct {
	ID           string    `json:"id" firestore:"-"`
	OriginalText string    `json:"original_text" firestore:"original_text"`
	MCQs         []MCQ     `json:"mcqs" firestore:"mcqs"`
	Summary      []string  `json:"summary" firestore:"summary"`
	GKPoints     []string  `json:"gk_points" firestore:"gk_points"`
	CreatedAt    time.Time `json:"created_at" firestore:"created_at"`
}

// QuizAttempt represents a submitted quiz stored under
// users/{user_id}/quizzes/{id}. Questions are kept exactly as the client sent them.
type QuizAttempt struct {
	ID        string                   `json:"id" firestore:"-"`
	Questions []map[string]interface{} `json:"questions" firestore:"questions"`
	Score     int                      `json:"score" firestore:"score"`
	TakenOn   time.Time                `json:"taken_on" firestore:"taken_on"`
}

// ProcessResponse is returned by POST /process-pdf on success
type ProcessResponse struct {
	Status string `json:"status"`
	DocID  string `json:"doc_id"`
}

// SaveQuizRequest is the body accepted by POST /quiz/:user_id
type SaveQuizRequest struct {
	Questions []map[string]interface{} `json:"questions"`
	Score     int                      `json:"score"`
}

// SaveQuizResponse is returned by POST /quiz/:user_id on success
type SaveQuizResponse struct {
	Status string `json:"status"`
	QuizID string `json:"quiz_id"`
}

// ChatRequest is the body accepted by POST /chat
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is returned by POST /chat
type ChatResponse struct {
	Reply string `json:"reply"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string  `json:"error"`
	RawOutput *string `json:"raw_output,omitempty"`
}
