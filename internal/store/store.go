// Package store persists summaries and quiz attempts under per-user
// collection paths: users/{user_id}/summaries/{id} and users/{user_id}/quizzes/{id}.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cawebapp/ca-backend/internal/models"

	"github.com/google/uuid"
)

const (
	usersCollection     = "users"
	summariesCollection = "summaries"
	quizzesCollection   = "quizzes"

	maxIDBytes = 1500
)

var (
	// ErrNotFound is returned by Get when no record has the requested id.
	ErrNotFound = errors.New("not found")
	// ErrInvalidID is returned for ids that cannot be used as a path segment.
	ErrInvalidID = errors.New("invalid id")
)

// UnavailableError wraps a failure of the underlying database.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Store is the persistence contract shared by every backend.
// Create assigns the id and timestamp; Delete succeeds for absent ids.
type Store interface {
	CreateSummary(ctx context.Context, userID string, rec models.SummaryRecord) (string, error)
	ListSummaries(ctx context.Context, userID string) ([]models.SummaryRecord, error)
	GetSummary(ctx context.Context, userID, docID string) (*models.SummaryRecord, error)
	DeleteSummary(ctx context.Context, userID, docID string) error

	CreateQuiz(ctx context.Context, userID string, quiz models.QuizAttempt) (string, error)
	ListQuizzes(ctx context.Context, userID string) ([]models.QuizAttempt, error)
	GetQuiz(ctx context.Context, userID, quizID string) (*models.QuizAttempt, error)
	DeleteQuiz(ctx context.Context, userID, quizID string) error

	Close() error
}

// ValidateID checks that id is usable as a single path segment.
func ValidateID(id string) error {
	switch {
	case id == "", id == ".", id == "..":
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	case len(id) > maxIDBytes:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidID, maxIDBytes)
	case strings.ContainsRune(id, '/'):
		return fmt.Errorf("%w: %q contains '/'", ErrInvalidID, id)
	case strings.HasPrefix(id, "__") && strings.HasSuffix(id, "__"):
		return fmt.Errorf("%w: %q is reserved", ErrInvalidID, id)
	}
	return nil
}

func validateIDs(ids ...string) error {
	for _, id := range ids {
		if err := ValidateID(id); err != nil {
			return err
		}
	}
	return nil
}

// SummariesPath returns the collection path holding a user's summaries.
func SummariesPath(userID string) string {
	return usersCollection + "/" + userID + "/" + summariesCollection
}

// QuizzesPath returns the collection path holding a user's quiz attempts.
func QuizzesPath(userID string) string {
	return usersCollection + "/" + userID + "/" + quizzesCollection
}

func newID() string {
	return uuid.New().String()
}

func now() time.Time {
	return time.Now().UTC()
}

// withTimeout bounds ctx by d when d is positive.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// normalizeSummary makes sure list fields serialize as arrays, never null.
func normalizeSummary(rec *models.SummaryRecord) {
	if rec.MCQs == nil {
		rec.MCQs = []models.MCQ{}
	}
	for i := range rec.MCQs {
		if rec.MCQs[i].Options == nil {
			rec.MCQs[i].Options = []string{}
		}
	}
	if rec.Summary == nil {
		rec.Summary = []string{}
	}
	if rec.GKPoints == nil {
		rec.GKPoints = []string{}
	}
}

func normalizeQuiz(q *models.QuizAttempt) {
	if q.Questions == nil {
		q.Questions = []map[string]interface{}{}
	}
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*FirestoreStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
