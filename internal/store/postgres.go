package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cawebapp/ca-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Documents are kept as JSONB rows keyed by their collection path so the
// layout matches the Firestore backend one-to-one.
const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection_path TEXT        NOT NULL,
	doc_id          TEXT        NOT NULL,
	data            JSONB       NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (collection_path, doc_id)
)`

const (
	insertDocument = `INSERT INTO documents (collection_path, doc_id, data, created_at) VALUES ($1, $2, $3, $4)`
	selectDocument = `SELECT data FROM documents WHERE collection_path = $1 AND doc_id = $2`
	listDocuments  = `SELECT doc_id, data FROM documents WHERE collection_path = $1 ORDER BY created_at, doc_id`
	deleteDocument = `DELETE FROM documents WHERE collection_path = $1 AND doc_id = $2`
)

// PostgresStore holds the database connection pool
type PostgresStore struct {
	Pool    *pgxpool.Pool
	timeout time.Duration
}

// NewPostgresStore connects to databaseURL and creates the documents table if needed.
func NewPostgresStore(ctx context.Context, databaseURL string, timeout time.Duration) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	s := &PostgresStore{Pool: pool, timeout: timeout}
	initCtx, cancel := withTimeout(ctx, timeout)
	defer cancel()
	if _, err := pool.Exec(initCtx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to create schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) insert(ctx context.Context, path, id string, createdAt time.Time, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return &UnavailableError{Op: "encode", Err: err}
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.Pool.Exec(ctx, insertDocument, path, id, data, createdAt); err != nil {
		return &UnavailableError{Op: "insert", Err: err}
	}
	return nil
}

func (s *PostgresStore) selectOne(ctx context.Context, path, id string, out interface{}) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	var data []byte
	err := s.Pool.QueryRow(ctx, selectDocument, path, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return &UnavailableError{Op: "select", Err: err}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &UnavailableError{Op: "decode", Err: err}
	}
	return nil
}

// selectAll calls decode for every row of path in creation order.
func (s *PostgresStore) selectAll(ctx context.Context, path string, decode func(id string, data []byte) error) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	rows, err := s.Pool.Query(ctx, listDocuments, path)
	if err != nil {
		return &UnavailableError{Op: "list", Err: err}
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id   string
			data []byte
		)
		if err := rows.Scan(&id, &data); err != nil {
			return &UnavailableError{Op: "scan", Err: err}
		}
		if err := decode(id, data); err != nil {
			return &UnavailableError{Op: "decode", Err: err}
		}
	}
	if err := rows.Err(); err != nil {
		return &UnavailableError{Op: "list", Err: err}
	}
	return nil
}

func (s *PostgresStore) remove(ctx context.Context, path, id string) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.Pool.Exec(ctx, deleteDocument, path, id); err != nil {
		return &UnavailableError{Op: "delete", Err: err}
	}
	return nil
}

func (s *PostgresStore) CreateSummary(ctx context.Context, userID string, rec models.SummaryRecord) (string, error) {
	if err := validateIDs(userID); err != nil {
		return "", err
	}
	rec.ID = newID()
	rec.CreatedAt = now()
	normalizeSummary(&rec)
	if err := s.insert(ctx, SummariesPath(userID), rec.ID, rec.CreatedAt, rec); err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (s *PostgresStore) ListSummaries(ctx context.Context, userID string) ([]models.SummaryRecord, error) {
	if err := validateIDs(userID); err != nil {
		return nil, err
	}
	out := []models.SummaryRecord{}
	err := s.selectAll(ctx, SummariesPath(userID), func(id string, data []byte) error {
		var rec models.SummaryRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		rec.ID = id
		normalizeSummary(&rec)
		out = append(out, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) GetSummary(ctx context.Context, userID, docID string) (*models.SummaryRecord, error) {
	if err := validateIDs(userID, docID); err != nil {
		return nil, err
	}
	var rec models.SummaryRecord
	if err := s.selectOne(ctx, SummariesPath(userID), docID, &rec); err != nil {
		return nil, err
	}
	rec.ID = docID
	normalizeSummary(&rec)
	return &rec, nil
}

func (s *PostgresStore) DeleteSummary(ctx context.Context, userID, docID string) error {
	if err := validateIDs(userID, docID); err != nil {
		return err
	}
	return s.remove(ctx, SummariesPath(userID), docID)
}

func (s *PostgresStore) CreateQuiz(ctx context.Context, userID string, quiz models.QuizAttempt) (string, error) {
	if err := validateIDs(userID); err != nil {
		return "", err
	}
	quiz.ID = newID()
	quiz.TakenOn = now()
	normalizeQuiz(&quiz)
	if err := s.insert(ctx, QuizzesPath(userID), quiz.ID, quiz.TakenOn, quiz); err != nil {
		return "", err
	}
	return quiz.ID, nil
}

func (s *PostgresStore) ListQuizzes(ctx context.Context, userID string) ([]models.QuizAttempt, error) {
	if err := validateIDs(userID); err != nil {
		return nil, err
	}
	out := []models.QuizAttempt{}
	err := s.selectAll(ctx, QuizzesPath(userID), func(id string, data []byte) error {
		var q models.QuizAttempt
		if err := json.Unmarshal(data, &q); err != nil {
			return err
		}
		q.ID = id
		normalizeQuiz(&q)
		out = append(out, q)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) GetQuiz(ctx context.Context, userID, quizID string) (*models.QuizAttempt, error) {
	if err := validateIDs(userID, quizID); err != nil {
		return nil, err
	}
	var q models.QuizAttempt
	if err := s.selectOne(ctx, QuizzesPath(userID), quizID, &q); err != nil {
		return nil, err
	}
	q.ID = quizID
	normalizeQuiz(&q)
	return &q, nil
}

func (s *PostgresStore) DeleteQuiz(ctx context.Context, userID, quizID string) error {
	if err := validateIDs(userID, quizID); err != nil {
		return err
	}
	return s.remove(ctx, QuizzesPath(userID), quizID)
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	s.Pool.Close()
	return nil
}
