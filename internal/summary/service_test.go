package summary

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/cawebapp/ca-backend/internal/gemini"
	"github.com/cawebapp/ca-backend/internal/models"
	"github.com/cawebapp/ca-backend/internal/normalize"
	"github.com/cawebapp/ca-backend/internal/pdftext"
	"github.com/cawebapp/ca-backend/internal/store"
)

type fakeExtractor struct {
	text string
	err  error
}

func (f fakeExtractor) Extract([]byte) (string, error) { return f.text, f.err }

type fakeModel struct {
	mu      sync.Mutex
	reply   string
	err     error
	calls   int
	kinds   []gemini.TaskKind
	prompts []string
}

func (f *fakeModel) Generate(_ context.Context, kind gemini.TaskKind, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.kinds = append(f.kinds, kind)
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

type failingWriter struct{ err error }

func (w failingWriter) CreateSummary(context.Context, string, models.SummaryRecord) (string, error) {
	return "", w.err
}

type fakeArchiver struct {
	mu   sync.Mutex
	keys []string
	body string
	err  error
}

func (a *fakeArchiver) Archive(_ context.Context, userID, docID, filename string, content io.Reader) (string, error) {
	data, _ := io.ReadAll(content)
	a.mu.Lock()
	defer a.mu.Unlock()
	a.body = string(data)
	if a.err != nil {
		return "", a.err
	}
	key := userID + "/" + docID + "/" + filename
	a.keys = append(a.keys, key)
	return key, nil
}

const goodReply = "```json\n{\"mcqs\":[{\"question\":\"Capital of France?\",\"options\":[\"A) Paris\",\"B) Rome\"],\"correct_answer\":\"A\"}],\"summary\":[\"a\"],\"gk_points\":[\"g\"]}\n```"

func TestProcessStoresNormalizedSummary(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	model := &fakeModel{reply: goodReply}
	svc := NewService(fakeExtractor{text: "Budget 2025 announced."}, model, st, nil, nil)

	out, err := svc.Process(ctx, Upload{UserID: "u1", Filename: "ca.pdf", Data: []byte("%PDF")})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.DocID == "" || out.RawOutput != goodReply {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if model.calls != 1 || model.kinds[0] != gemini.TaskSummarize {
		t.Fatalf("expected one summarize call, got %d %v", model.calls, model.kinds)
	}
	if !strings.Contains(model.prompts[0], "Budget 2025 announced.") {
		t.Fatalf("prompt missing document text")
	}

	rec, err := st.GetSummary(ctx, "u1", out.DocID)
	if err != nil {
		t.Fatalf("GetSummary: %v", err)
	}
	if rec.OriginalText != "Budget 2025 announced." {
		t.Fatalf("original_text = %q", rec.OriginalText)
	}
	if len(rec.MCQs) != 1 || rec.MCQs[0].CorrectAnswer != "A) Paris" {
		t.Fatalf("mcqs = %+v", rec.MCQs)
	}
	if len(rec.Summary) != 1 || len(rec.GKPoints) != 1 {
		t.Fatalf("lists = %v %v", rec.Summary, rec.GKPoints)
	}
}

func TestProcessRejectsNonPDFWithoutModelCall(t *testing.T) {
	st := store.NewMemoryStore()
	model := &fakeModel{reply: goodReply}
	svc := NewService(pdftext.Extractor{}, model, st, nil, nil)

	_, err := svc.Process(context.Background(), Upload{UserID: "u1", Filename: "notes.txt", Data: []byte("just some text")})
	var parseErr *pdftext.DocumentParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected DocumentParseError, got %v", err)
	}
	if model.calls != 0 {
		t.Fatalf("model should not be called, got %d calls", model.calls)
	}
	if list, _ := st.ListSummaries(context.Background(), "u1"); len(list) != 0 {
		t.Fatalf("nothing should be stored")
	}
}

func TestProcessModelFailure(t *testing.T) {
	st := store.NewMemoryStore()
	model := &fakeModel{err: &gemini.ModelUnavailableError{Err: errors.New("quota")}}
	svc := NewService(fakeExtractor{text: "t"}, model, st, nil, nil)

	out, err := svc.Process(context.Background(), Upload{UserID: "u1"})
	var modelErr *gemini.ModelUnavailableError
	if !errors.As(err, &modelErr) {
		t.Fatalf("expected ModelUnavailableError, got %v", err)
	}
	if out.RawOutput != "" {
		t.Fatalf("no raw output expected, got %q", out.RawOutput)
	}
}

func TestProcessOutputParseFailureKeepsRawOutput(t *testing.T) {
	st := store.NewMemoryStore()
	model := &fakeModel{reply: "not json at all"}
	svc := NewService(fakeExtractor{text: "t"}, model, st, nil, nil)

	out, err := svc.Process(context.Background(), Upload{UserID: "u1"})
	var parseErr *normalize.OutputParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected OutputParseError, got %v", err)
	}
	if parseErr.Cleaned != "not json at all" || out.RawOutput != "not json at all" {
		t.Fatalf("cleaned=%q raw=%q", parseErr.Cleaned, out.RawOutput)
	}
	if list, _ := st.ListSummaries(context.Background(), "u1"); len(list) != 0 {
		t.Fatalf("nothing should be stored on parse failure")
	}
}

func TestProcessStoreFailureKeepsRawOutput(t *testing.T) {
	storeErr := &store.UnavailableError{Op: "insert", Err: errors.New("connection refused")}
	svc := NewService(fakeExtractor{text: "t"}, &fakeModel{reply: goodReply}, failingWriter{err: storeErr}, nil, nil)

	out, err := svc.Process(context.Background(), Upload{UserID: "u1"})
	var unavailable *store.UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected UnavailableError, got %v", err)
	}
	if out.RawOutput != goodReply || out.DocID != "" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestProcessReportsDroppedItems(t *testing.T) {
	reply := `{"mcqs":[{"question":"","options":["a","b"],"correct_answer":"a"}],"summary":["ok", {"x":1}]}`
	svc := NewService(fakeExtractor{text: "t"}, &fakeModel{reply: reply}, store.NewMemoryStore(), nil, nil)

	out, err := svc.Process(context.Background(), Upload{UserID: "u1"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.Stats.DroppedMCQs != 1 || out.Stats.DroppedSummary != 1 {
		t.Fatalf("stats = %+v", out.Stats)
	}
}

func TestProcessTruncatesExcerpt(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	text := strings.Repeat("é", ExcerptChars+50)
	svc := NewService(fakeExtractor{text: text}, &fakeModel{reply: goodReply}, st, nil, nil)

	out, err := svc.Process(ctx, Upload{UserID: "u1"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	rec, _ := st.GetSummary(ctx, "u1", out.DocID)
	if n := len([]rune(rec.OriginalText)); n != ExcerptChars {
		t.Fatalf("excerpt has %d chars, want %d", n, ExcerptChars)
	}
}

func TestProcessArchivesUpload(t *testing.T) {
	arch := &fakeArchiver{}
	svc := NewService(fakeExtractor{text: "t"}, &fakeModel{reply: goodReply}, store.NewMemoryStore(), arch, nil)

	out, err := svc.Process(context.Background(), Upload{UserID: "u1", Filename: "ca.pdf", Data: []byte("%PDF-1.4")})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(arch.keys) != 1 || arch.keys[0] != "u1/"+out.DocID+"/ca.pdf" || arch.body != "%PDF-1.4" {
		t.Fatalf("archive not called as expected: %v %q", arch.keys, arch.body)
	}
}

func TestProcessArchiveFailureIsNotFatal(t *testing.T) {
	arch := &fakeArchiver{err: errors.New("bucket missing")}
	svc := NewService(fakeExtractor{text: "t"}, &fakeModel{reply: goodReply}, store.NewMemoryStore(), arch, nil)

	out, err := svc.Process(context.Background(), Upload{UserID: "u1", Filename: "ca.pdf"})
	if err != nil || out.DocID == "" {
		t.Fatalf("archive failure should not fail the upload: %v %+v", err, out)
	}
}

func TestProcessConcurrentUploadsGetDistinctIDs(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	svc := NewService(fakeExtractor{text: "t"}, &fakeModel{reply: goodReply}, st, nil, nil)

	var wg sync.WaitGroup
	ids := make([]string, 2)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := svc.Process(ctx, Upload{UserID: "u1"})
			if err != nil {
				t.Errorf("Process: %v", err)
				return
			}
			ids[i] = out.DocID
		}(i)
	}
	wg.Wait()

	if ids[0] == "" || ids[0] == ids[1] {
		t.Fatalf("expected distinct ids, got %v", ids)
	}
	list, _ := st.ListSummaries(ctx, "u1")
	if len(list) != 2 {
		t.Fatalf("expected 2 records, got %d", len(list))
	}
}

func TestChat(t *testing.T) {
	model := &fakeModel{reply: "  Paris.\n"}
	svc := NewService(fakeExtractor{}, model, store.NewMemoryStore(), nil, nil)

	reply, err := svc.Chat(context.Background(), " Capital of France? ")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply != "Paris." {
		t.Fatalf("reply = %q", reply)
	}
	if model.kinds[0] != gemini.TaskChat || !strings.Contains(model.prompts[0], "Q: Capital of France?") {
		t.Fatalf("unexpected call: %v %q", model.kinds, model.prompts[0])
	}
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	model := &fakeModel{}
	svc := NewService(fakeExtractor{}, model, store.NewMemoryStore(), nil, nil)

	if _, err := svc.Chat(context.Background(), "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if model.calls != 0 {
		t.Fatalf("model should not be called")
	}
}

func TestChatModelFailure(t *testing.T) {
	model := &fakeModel{err: &gemini.ModelUnavailableError{Err: errors.New("down")}}
	svc := NewService(fakeExtractor{}, model, store.NewMemoryStore(), nil, nil)

	_, err := svc.Chat(context.Background(), "hi")
	var modelErr *gemini.ModelUnavailableError
	if !errors.As(err, &modelErr) {
		t.Fatalf("expected ModelUnavailableError, got %v", err)
	}
}

func TestExcerpt(t *testing.T) {
	if got := Excerpt("abc", 5); got != "abc" {
		t.Fatalf("got %q", got)
	}
	if got := Excerpt("héllo", 2); got != "hé" {
		t.Fatalf("got %q", got)
	}
}
