package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cawebapp/ca-backend/internal/models"
)

// MemoryStore keeps documents in-process. Used for local runs and tests;
// contents are lost on restart.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

type memCollection struct {
	docs  map[string][]byte
	order []string
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memCollection)}
}

// Documents are stored JSON-encoded so callers never share slices with the store.
func (m *MemoryStore) put(path, id string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return &UnavailableError{Op: "encode", Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	col, ok := m.collections[path]
	if !ok {
		col = &memCollection{docs: make(map[string][]byte)}
		m.collections[path] = col
	}
	if _, exists := col.docs[id]; !exists {
		col.order = append(col.order, id)
	}
	col.docs[id] = data
	return nil
}

func (m *MemoryStore) get(path, id string, out interface{}) error {
	m.mu.RLock()
	col, ok := m.collections[path]
	var data []byte
	if ok {
		data, ok = col.docs[id]
	}
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &UnavailableError{Op: "decode", Err: err}
	}
	return nil
}

// list returns the raw documents of a collection in insertion order.
func (m *MemoryStore) list(path string) ([]string, [][]byte) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	col, ok := m.collections[path]
	if !ok {
		return nil, nil
	}
	ids := make([]string, 0, len(col.order))
	docs := make([][]byte, 0, len(col.order))
	for _, id := range col.order {
		if d, ok := col.docs[id]; ok {
			ids = append(ids, id)
			docs = append(docs, d)
		}
	}
	return ids, docs
}

func (m *MemoryStore) remove(path, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	col, ok := m.collections[path]
	if !ok {
		return
	}
	if _, exists := col.docs[id]; !exists {
		return
	}
	delete(col.docs, id)
	for i, v := range col.order {
		if v == id {
			col.order = append(col.order[:i], col.order[i+1:]...)
			break
		}
	}
}

func (m *MemoryStore) CreateSummary(ctx context.Context, userID string, rec models.SummaryRecord) (string, error) {
	if err := validateIDs(userID); err != nil {
		return "", err
	}
	rec.ID = newID()
	rec.CreatedAt = now()
	normalizeSummary(&rec)
	if err := m.put(SummariesPath(userID), rec.ID, rec); err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (m *MemoryStore) ListSummaries(ctx context.Context, userID string) ([]models.SummaryRecord, error) {
	if err := validateIDs(userID); err != nil {
		return nil, err
	}
	ids, docs := m.list(SummariesPath(userID))
	out := make([]models.SummaryRecord, 0, len(docs))
	for i, d := range docs {
		var rec models.SummaryRecord
		if err := json.Unmarshal(d, &rec); err != nil {
			return nil, &UnavailableError{Op: "decode", Err: err}
		}
		rec.ID = ids[i]
		out = append(out, rec)
	}
	return out, nil
}

func (m *MemoryStore) GetSummary(ctx context.Context, userID, docID string) (*models.SummaryRecord, error) {
	if err := validateIDs(userID, docID); err != nil {
		return nil, err
	}
	var rec models.SummaryRecord
	if err := m.get(SummariesPath(userID), docID, &rec); err != nil {
		return nil, err
	}
	rec.ID = docID
	return &rec, nil
}

func (m *MemoryStore) DeleteSummary(ctx context.Context, userID, docID string) error {
	if err := validateIDs(userID, docID); err != nil {
		return err
	}
	m.remove(SummariesPath(userID), docID)
	return nil
}

func (m *MemoryStore) CreateQuiz(ctx context.Context, userID string, quiz models.QuizAttempt) (string, error) {
	if err := validateIDs(userID); err != nil {
		return "", err
	}
	quiz.ID = newID()
	quiz.TakenOn = now()
	normalizeQuiz(&quiz)
	if err := m.put(QuizzesPath(userID), quiz.ID, quiz); err != nil {
		return "", err
	}
	return quiz.ID, nil
}

func (m *MemoryStore) ListQuizzes(ctx context.Context, userID string) ([]models.QuizAttempt, error) {
	if err := validateIDs(userID); err != nil {
		return nil, err
	}
	ids, docs := m.list(QuizzesPath(userID))
	out := make([]models.QuizAttempt, 0, len(docs))
	for i, d := range docs {
		var q models.QuizAttempt
		if err := json.Unmarshal(d, &q); err != nil {
			return nil, &UnavailableError{Op: "decode", Err: err}
		}
		q.ID = ids[i]
		out = append(out, q)
	}
	return out, nil
}

func (m *MemoryStore) GetQuiz(ctx context.Context, userID, quizID string) (*models.QuizAttempt, error) {
	if err := validateIDs(userID, quizID); err != nil {
		return nil, err
	}
	var q models.QuizAttempt
	if err := m.get(QuizzesPath(userID), quizID, &q); err != nil {
		return nil, err
	}
	q.ID = quizID
	return &q, nil
}

func (m *MemoryStore) DeleteQuiz(ctx context.Context, userID, quizID string) error {
	if err := validateIDs(userID, quizID); err != nil {
		return err
	}
	m.remove(QuizzesPath(userID), quizID)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
