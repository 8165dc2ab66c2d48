package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cawebapp/ca-backend/internal/models"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore keeps records in Cloud Firestore using the collection layout
// users/{user_id}/summaries and users/{user_id}/quizzes.
type FirestoreStore struct {
	client  *firestore.Client
	timeout time.Duration
}

// NewFirestoreStore opens a Firestore client from a service-account key file.
// An empty projectID lets the client read it from the credentials.
func NewFirestoreStore(ctx context.Context, credentialsFile, projectID string, timeout time.Duration) (*FirestoreStore, error) {
	if credentialsFile == "" {
		return nil, errors.New("firestore credentials file required")
	}
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}

	client, err := firestore.NewClient(ctx, projectID, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("unable to connect to firestore: %w", err)
	}
	return &FirestoreStore{client: client, timeout: timeout}, nil
}

func (s *FirestoreStore) summaries(userID string) *firestore.CollectionRef {
	return s.client.Collection(usersCollection).Doc(userID).Collection(summariesCollection)
}

func (s *FirestoreStore) quizzes(userID string) *firestore.CollectionRef {
	return s.client.Collection(usersCollection).Doc(userID).Collection(quizzesCollection)
}

func (s *FirestoreStore) CreateSummary(ctx context.Context, userID string, rec models.SummaryRecord) (string, error) {
	if err := validateIDs(userID); err != nil {
		return "", err
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	rec.ID = newID()
	rec.CreatedAt = now()
	normalizeSummary(&rec)
	if _, err := s.summaries(userID).Doc(rec.ID).Set(ctx, rec); err != nil {
		return "", &UnavailableError{Op: "create summary", Err: err}
	}
	return rec.ID, nil
}

func (s *FirestoreStore) ListSummaries(ctx context.Context, userID string) ([]models.SummaryRecord, error) {
	if err := validateIDs(userID); err != nil {
		return nil, err
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	snaps, err := s.summaries(userID).OrderBy("created_at", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, &UnavailableError{Op: "list summaries", Err: err}
	}
	out := make([]models.SummaryRecord, 0, len(snaps))
	for _, snap := range snaps {
		var rec models.SummaryRecord
		if err := snap.DataTo(&rec); err != nil {
			return nil, &UnavailableError{Op: "decode summary", Err: err}
		}
		rec.ID = snap.Ref.ID
		normalizeSummary(&rec)
		out = append(out, rec)
	}
	return out, nil
}

func (s *FirestoreStore) GetSummary(ctx context.Context, userID, docID string) (*models.SummaryRecord, error) {
	if err := validateIDs(userID, docID); err != nil {
		return nil, err
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	snap, err := s.summaries(userID).Doc(docID).Get(ctx)
	if err != nil {
		return nil, mapFirestoreError("get summary", err)
	}
	var rec models.SummaryRecord
	if err := snap.DataTo(&rec); err != nil {
		return nil, &UnavailableError{Op: "decode summary", Err: err}
	}
	rec.ID = snap.Ref.ID
	normalizeSummary(&rec)
	return &rec, nil
}

func (s *FirestoreStore) DeleteSummary(ctx context.Context, userID, docID string) error {
	if err := validateIDs(userID, docID); err != nil {
		return err
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.summaries(userID).Doc(docID).Delete(ctx); err != nil {
		return mapFirestoreError("delete summary", err)
	}
	return nil
}

func (s *FirestoreStore) CreateQuiz(ctx context.Context, userID string, quiz models.QuizAttempt) (string, error) {
	if err := validateIDs(userID); err != nil {
		return "", err
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	quiz.ID = newID()
	quiz.TakenOn = now()
	normalizeQuiz(&quiz)
	if _, err := s.quizzes(userID).Doc(quiz.ID).Set(ctx, quiz); err != nil {
		return "", &UnavailableError{Op: "create quiz", Err: err}
	}
	return quiz.ID, nil
}

func (s *FirestoreStore) ListQuizzes(ctx context.Context, userID string) ([]models.QuizAttempt, error) {
	if err := validateIDs(userID); err != nil {
		return nil, err
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	snaps, err := s.quizzes(userID).OrderBy("taken_on", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, &UnavailableError{Op: "list quizzes", Err: err}
	}
	out := make([]models.QuizAttempt, 0, len(snaps))
	for _, snap := range snaps {
		var q models.QuizAttempt
		if err := snap.DataTo(&q); err != nil {
			return nil, &UnavailableError{Op: "decode quiz", Err: err}
		}
		q.ID = snap.Ref.ID
		normalizeQuiz(&q)
		out = append(out, q)
	}
	return out, nil
}

func (s *FirestoreStore) GetQuiz(ctx context.Context, userID, quizID string) (*models.QuizAttempt, error) {
	if err := validateIDs(userID, quizID); err != nil {
		return nil, err
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	snap, err := s.quizzes(userID).Doc(quizID).Get(ctx)
	if err != nil {
		return nil, mapFirestoreError("get quiz", err)
	}
	var q models.QuizAttempt
	if err := snap.DataTo(&q); err != nil {
		return nil, &UnavailableError{Op: "decode quiz", Err: err}
	}
	q.ID = snap.Ref.ID
	normalizeQuiz(&q)
	return &q, nil
}

func (s *FirestoreStore) DeleteQuiz(ctx context.Context, userID, quizID string) error {
	if err := validateIDs(userID, quizID); err != nil {
		return err
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.quizzes(userID).Doc(quizID).Delete(ctx); err != nil {
		return mapFirestoreError("delete quiz", err)
	}
	return nil
}

// Close closes the Firestore client
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

// mapFirestoreError turns a NotFound status into ErrNotFound; anything else
// is reported as the store being unavailable.
func mapFirestoreError(op string, err error) error {
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return &UnavailableError{Op: op, Err: err}
}
