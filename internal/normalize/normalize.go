// Package normalize turns a raw Gemini reply for the summarize task into a
// validated models.SummaryContent.
package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cawebapp/ca-backend/internal/models"
)

const (
	fenceOpen  = "```json"
	fenceClose = "```"
)

// Keys the summarize prompt asks for.
const (
	KeyMCQs     = "mcqs"
	KeySummary  = "summary"
	KeyGKPoints = "gk_points"
)

// OutputParseError means the model reply could not be turned into the
// expected structure. Cleaned holds the text after fence stripping so the
// caller can surface it for diagnosis.
type OutputParseError struct {
	Cleaned string
	Err     error
}

func (e *OutputParseError) Error() string {
	return fmt.Sprintf("failed to parse model output: %v", e.Err)
}

func (e *OutputParseError) Unwrap() error { return e.Err }

// Stats counts entries discarded by validation.
type Stats struct {
	DroppedMCQs     int
	DroppedSummary  int
	DroppedGKPoints int
}

// Dropped is the total number of discarded entries.
func (s Stats) Dropped() int {
	return s.DroppedMCQs + s.DroppedSummary + s.DroppedGKPoints
}

// Clean strips surrounding whitespace, then removes a leading ```json marker
// and a trailing ``` marker if present. Nothing else is touched, so whitespace
// left between a marker and the payload stays in the result.
func Clean(raw string) string {
	out := strings.TrimSpace(raw)
	if strings.HasPrefix(out, fenceOpen) {
		out = out[len(fenceOpen):]
	}
	if strings.HasSuffix(out, fenceClose) {
		out = out[:len(out)-len(fenceClose)]
	}
	return out
}

// Summary cleans, parses and validates a summarize reply.
func Summary(raw string) (*models.SummaryContent, error) {
	content, _, err := SummaryWithStats(raw)
	return content, err
}

// SummaryWithStats is Summary plus a count of entries dropped by validation.
func SummaryWithStats(raw string) (*models.SummaryContent, Stats, error) {
	var stats Stats
	cleaned := Clean(raw)

	var obj map[string]json.RawMessage
	if err := decodeObject(cleaned, &obj); err != nil {
		return nil, stats, &OutputParseError{Cleaned: cleaned, Err: err}
	}

	mcqs, dropped, err := parseMCQs(obj[KeyMCQs])
	if err != nil {
		return nil, stats, &OutputParseError{Cleaned: cleaned, Err: fmt.Errorf("%s: %w", KeyMCQs, err)}
	}
	stats.DroppedMCQs = dropped

	summary, dropped, err := parseStrings(obj[KeySummary])
	if err != nil {
		return nil, stats, &OutputParseError{Cleaned: cleaned, Err: fmt.Errorf("%s: %w", KeySummary, err)}
	}
	stats.DroppedSummary = dropped

	gk, dropped, err := parseStrings(obj[KeyGKPoints])
	if err != nil {
		return nil, stats, &OutputParseError{Cleaned: cleaned, Err: fmt.Errorf("%s: %w", KeyGKPoints, err)}
	}
	stats.DroppedGKPoints = dropped

	return &models.SummaryContent{
		MCQs:     mcqs,
		Summary:  summary,
		GKPoints: gk,
	}, stats, nil
}

// decodeObject requires exactly one JSON object in s.
func decodeObject(s string, out *map[string]json.RawMessage) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("empty output")
	}
	dec := json.NewDecoder(strings.NewReader(s))
	var v json.RawMessage
	if err := dec.Decode(&v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON value")
	}
	trimmed := bytes.TrimSpace(v)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return errors.New("top-level JSON value is not an object")
	}
	return json.Unmarshal(trimmed, out)
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// rawMCQ accepts whatever the model sends; validation happens in toMCQ.
type rawMCQ struct {
	Question      string          `json:"question"`
	Options       json.RawMessage `json:"options"`
	CorrectAnswer json.RawMessage `json:"correct_answer"`
}

func parseMCQs(raw json.RawMessage) ([]models.MCQ, int, error) {
	out := []models.MCQ{}
	if isNull(raw) {
		return out, 0, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, 0, errors.New("expected an array")
	}
	dropped := 0
	for _, item := range items {
		var r rawMCQ
		if err := json.Unmarshal(item, &r); err != nil {
			dropped++
			continue
		}
		mcq, ok := toMCQ(r)
		if !ok {
			dropped++
			continue
		}
		out = append(out, mcq)
	}
	return out, dropped, nil
}

func toMCQ(r rawMCQ) (models.MCQ, bool) {
	question := strings.TrimSpace(r.Question)
	if question == "" {
		return models.MCQ{}, false
	}

	var rawOptions []json.RawMessage
	if err := json.Unmarshal(r.Options, &rawOptions); err != nil {
		return models.MCQ{}, false
	}
	options := make([]string, 0, len(rawOptions))
	for _, o := range rawOptions {
		var s string
		if err := json.Unmarshal(o, &s); err != nil {
			return models.MCQ{}, false
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return models.MCQ{}, false
		}
		options = append(options, s)
	}
	if len(options) < 2 {
		return models.MCQ{}, false
	}

	var answer string
	if err := json.Unmarshal(r.CorrectAnswer, &answer); err != nil {
		return models.MCQ{}, false
	}
	resolved, ok := resolveAnswer(strings.TrimSpace(answer), options)
	if !ok {
		return models.MCQ{}, false
	}

	return models.MCQ{Question: question, Options: options, CorrectAnswer: resolved}, true
}

// resolveAnswer maps the model's answer onto one of options. It accepts the
// option text itself, a bare letter ("B"), a lettered option ("B) Paris",
// "b. Paris"), or the plain text of a lettered option ("Paris" for
// "B) Paris"). Trailing periods are ignored when comparing text.
func resolveAnswer(answer string, options []string) (string, bool) {
	if answer == "" {
		return "", false
	}
	for _, o := range options {
		if o == answer {
			return o, true
		}
	}
	bare := trimAnswer(answer)
	if bare == "" {
		return "", false
	}
	for _, o := range options {
		if strings.EqualFold(trimAnswer(o), bare) {
			return o, true
		}
	}
	if idx, rest, ok := splitLetter(answer); ok && idx < len(options) {
		rest = trimAnswer(rest)
		if rest == "" || strings.EqualFold(rest, trimAnswer(options[idx])) {
			return options[idx], true
		}
		// Options may carry the same letter prefix themselves.
		if _, optRest, ok := splitLetter(options[idx]); ok && strings.EqualFold(rest, trimAnswer(optRest)) {
			return options[idx], true
		}
	}
	for _, o := range options {
		if _, optRest, ok := splitLetter(o); ok && optRest != "" && strings.EqualFold(trimAnswer(optRest), bare) {
			return o, true
		}
	}
	return "", false
}

func trimAnswer(s string) string {
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), "."))
}

// splitLetter parses "C", "C)", "C.", "(C)", "C: text" and friends into a
// zero-based option index and the remaining text.
func splitLetter(s string) (int, string, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "(")
	if s == "" {
		return 0, "", false
	}
	c := s[0]
	var idx int
	switch {
	case c >= 'A' && c <= 'Z':
		idx = int(c - 'A')
	case c >= 'a' && c <= 'z':
		idx = int(c - 'a')
	default:
		return 0, "", false
	}
	rest := s[1:]
	if rest == "" {
		return idx, "", true
	}
	switch rest[0] {
	case ')', '.', ':', '-':
		return idx, strings.TrimSpace(rest[1:]), true
	}
	return 0, "", false
}

func parseStrings(raw json.RawMessage) ([]string, int, error) {
	out := []string{}
	if isNull(raw) {
		return out, 0, nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if s := strings.TrimSpace(single); s != "" {
			out = append(out, s)
		}
		return out, 0, nil
	}

	var items []interface{}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, 0, errors.New("expected an array")
	}
	dropped := 0
	for _, item := range items {
		var s string
		switch v := item.(type) {
		case string:
			s = strings.TrimSpace(v)
		case float64:
			s = strconv.FormatFloat(v, 'f', -1, 64)
		}
		if s == "" {
			dropped++
			continue
		}
		out = append(out, s)
	}
	return out, dropped, nil
}
