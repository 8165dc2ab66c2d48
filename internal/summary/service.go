// Package summary runs the upload pipeline: extract text, prompt the model,
// normalize its reply and persist the result under the caller's namespace.
package summary

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cawebapp/ca-backend/internal/archive"
	"github.com/cawebapp/ca-backend/internal/gemini"
	"github.com/cawebapp/ca-backend/internal/logger"
	"github.com/cawebapp/ca-backend/internal/models"
	"github.com/cawebapp/ca-backend/internal/normalize"
)

// ExcerptChars is how much of the extracted text is kept on a summary record.
const ExcerptChars = 1000

// ErrEmptyMessage is returned by Chat for a blank message.
var ErrEmptyMessage = errors.New("message is required")

// TextExtractor turns PDF bytes into plain text.
type TextExtractor interface {
	Extract(data []byte) (string, error)
}

// SummaryWriter is the part of the store the pipeline writes to.
type SummaryWriter interface {
	CreateSummary(ctx context.Context, userID string, rec models.SummaryRecord) (string, error)
}

// Upload is one PDF submitted for summarization.
type Upload struct {
	UserID   string
	Filename string
	Data     []byte
}

// Outcome describes a pipeline run. RawOutput is set as soon as the model
// has replied, so callers can surface it even when a later step fails.
type Outcome struct {
	DocID     string
	RawOutput string
	Stats     normalize.Stats
}

// Service composes the pipeline steps. Archiver is optional.
type Service struct {
	extractor TextExtractor
	model     gemini.Generator
	store     SummaryWriter
	archiver  archive.Archiver
	log       *logger.Logger
}

// NewService wires a pipeline. A nil archiver disables archival; a nil log
// discards log output.
func NewService(extractor TextExtractor, model gemini.Generator, store SummaryWriter, archiver archive.Archiver, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		extractor: extractor,
		model:     model,
		store:     store,
		archiver:  archiver,
		log:       log,
	}
}

// Process summarizes one upload. Errors keep their typed identity:
// *pdftext.DocumentParseError, *gemini.ModelUnavailableError,
// *normalize.OutputParseError and the store errors pass through unchanged.
func (s *Service) Process(ctx context.Context, up Upload) (*Outcome, error) {
	log := s.log.With("user_id", up.UserID, "filename", up.Filename)
	out := &Outcome{}

	text, err := s.extractor.Extract(up.Data)
	if err != nil {
		log.Warn("pdf extraction failed", "error", err)
		return out, err
	}
	log.Debug("extracted text", "chars", len([]rune(text)))

	raw, err := s.model.Generate(ctx, gemini.TaskSummarize, gemini.Build(gemini.TaskSummarize, text))
	if err != nil {
		log.Error("model call failed", "error", err)
		return out, err
	}
	out.RawOutput = raw

	content, stats, err := normalize.SummaryWithStats(raw)
	out.Stats = stats
	if err != nil {
		log.Error("model output could not be parsed", "error", err)
		return out, err
	}
	if stats.Dropped() > 0 {
		log.Warn("dropped malformed items from model output",
			"mcqs", stats.DroppedMCQs, "summary", stats.DroppedSummary, "gk_points", stats.DroppedGKPoints)
	}

	docID, err := s.store.CreateSummary(ctx, up.UserID, models.SummaryRecord{
		OriginalText: Excerpt(text, ExcerptChars),
		MCQs:         content.MCQs,
		Summary:      content.Summary,
		GKPoints:     content.GKPoints,
	})
	if err != nil {
		log.Error("failed to save summary", "error", err)
		return out, err
	}
	out.DocID = docID
	log.Info("summary saved", "doc_id", docID, "mcqs", len(content.MCQs))

	s.archive(ctx, log, up, docID)
	return out, nil
}

// archive is best-effort: a failure is logged and the upload still succeeds.
func (s *Service) archive(ctx context.Context, log *logger.Logger, up Upload, docID string) {
	if s.archiver == nil {
		return
	}
	key, err := s.archiver.Archive(ctx, up.UserID, docID, up.Filename, bytes.NewReader(up.Data))
	if err != nil {
		log.Warn("failed to archive upload", "doc_id", docID, "error", err)
		return
	}
	log.Debug("archived upload", "doc_id", docID, "key", key)
}

// Chat forwards a question to the model and returns its free-text reply.
func (s *Service) Chat(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}
	reply, err := s.model.Generate(ctx, gemini.TaskChat, gemini.Build(gemini.TaskChat, message))
	if err != nil {
		s.log.Error("chat model call failed", "error", err)
		return "", fmt.Errorf("chat: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

// Excerpt returns at most max runes of s.
func Excerpt(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
