package gemini

import (
	"fmt"
	"strings"
)

// TaskKind selects the prompt template and the model handle used for a request.
type TaskKind int

const (
	// TaskSummarize asks for the structured mcqs/summary/gk_points JSON object.
	TaskSummarize TaskKind = iota
	// TaskChat asks for a short free-form answer.
	TaskChat
)

func (k TaskKind) String() string {
	switch k {
	case TaskSummarize:
		return "summarize"
	case TaskChat:
		return "chat"
	default:
		return fmt.Sprintf("task(%d)", int(k))
	}
}

// MaxPromptChars bounds how much document or message text is embedded in a prompt.
const MaxPromptChars = 15000

// SummaryPrompt is the template for TaskSummarize; %s receives the document text.
const SummaryPrompt = `
You're an AI that helps students learn current affairs.

Given this text, return ONLY a raw JSON object with these keys:
- mcqs: list of multiple choice questions, each an object {"question": string, "options": [string, ...], "correct_answer": string} where correct_answer is copied exactly from options
- summary: bullet point summary of events, as a list of strings
- gk_points: related general knowledge points, as a list of strings

Return pure JSON without any explanation, comments, or markdown formatting.
Do not include triple backticks or labels.

TEXT:
%s
`

// ChatPrompt is the template for TaskChat; %s receives the user's message.
const ChatPrompt = `You're an AI current affairs tutor.
Answer the following in a concise, simple manner.

Q: %s
A:`

// Build renders the prompt for kind with payload embedded. Payload is
// truncated to MaxPromptChars first.
func Build(kind TaskKind, payload string) string {
	switch kind {
	case TaskChat:
		return fmt.Sprintf(ChatPrompt, Truncate(strings.TrimSpace(payload), MaxPromptChars))
	default:
		return fmt.Sprintf(SummaryPrompt, Truncate(payload, MaxPromptChars))
	}
}

// Truncate limits s to max characters. When a paragraph break falls within
// the last fifth of the budget the cut is moved back to it so the prompt does
// not end mid-sentence.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	cut := string(runes[:max])
	floor := len(string(runes[:max-max/5]))
	if i := strings.LastIndex(cut, "\n\n"); i >= floor {
		return strings.TrimRight(cut[:i], " \t\r\n")
	}
	return cut
}
