package gemini

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cawebapp/ca-backend/internal/config"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// DefaultModelName is the Gemini model to use when none is configured
	DefaultModelName = "gemini-2.0-flash"
	defaultBackoff   = 500 * time.Millisecond
)

// ModelUnavailableError wraps any failure to obtain a reply from the model.
type ModelUnavailableError struct {
	Err error
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("model unavailable: %v", e.Err)
}

func (e *ModelUnavailableError) Unwrap() error { return e.Err }

var errEmptyResponse = errors.New("no content generated")

// Generator sends a built prompt to a language model and returns its raw text.
type Generator interface {
	Generate(ctx context.Context, kind TaskKind, prompt string) (string, error)
}

// Client wraps the Gemini client
type Client struct {
	client      *genai.Client
	jsonModel   *genai.GenerativeModel
	textModel   *genai.GenerativeModel
	timeout     time.Duration
	maxAttempts int
	backoff     time.Duration
}

// NewClient creates a new Gemini client. It is safe for concurrent use.
func NewClient(ctx context.Context, cfg config.ModelConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key required")
	}
	name := cfg.Name
	if name == "" {
		name = DefaultModelName
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	// Summaries are requested as JSON; chat stays free text.
	jsonModel := client.GenerativeModel(name)
	jsonModel.ResponseMIMEType = "application/json"
	jsonModel.SetTemperature(0.2)
	jsonModel.SetMaxOutputTokens(8192)

	textModel := client.GenerativeModel(name)
	textModel.SetTemperature(0.7)

	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	return &Client{
		client:      client,
		jsonModel:   jsonModel,
		textModel:   textModel,
		timeout:     cfg.Timeout,
		maxAttempts: attempts,
		backoff:     defaultBackoff,
	}, nil
}

// Close closes the Gemini client
func (c *Client) Close() {
	c.client.Close()
}

// Generate sends prompt to the model selected by kind. Transient failures are
// retried; every failure is returned as a *ModelUnavailableError.
func (c *Client) Generate(ctx context.Context, kind TaskKind, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	model := c.jsonModel
	if kind == TaskChat {
		model = c.textModel
	}

	var text string
	err := retry(ctx, c.maxAttempts, c.backoff, func(ctx context.Context) error {
		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return err
		}
		text, err = responseText(resp)
		return err
	})
	if err != nil {
		return "", &ModelUnavailableError{Err: err}
	}
	return text, nil
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errEmptyResponse
	}
	cand := resp.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		if cand.FinishReason != genai.FinishReasonUnspecified && cand.FinishReason != genai.FinishReasonStop {
			return "", fmt.Errorf("%w (finish reason %s)", errEmptyResponse, cand.FinishReason)
		}
		return "", errEmptyResponse
	}
	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if b.Len() == 0 {
		return "", errEmptyResponse
	}
	return b.String(), nil
}

// retry runs fn up to attempts times, sleeping base, 2*base, ... between
// transient failures. It stops early on a permanent error or when ctx ends.
func retry(ctx context.Context, attempts int, base time.Duration, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = fmt.Errorf("attempt %d: %w", attempt, err)
		if attempt == attempts || !isTransient(err) {
			break
		}

		timer := time.NewTimer(base << (attempt - 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w (stopped retrying: %v)", lastErr, ctx.Err())
		case <-timer.C:
		}
	}
	return lastErr
}

// isTransient reports whether err is worth retrying.
func isTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		switch gErr.Code {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded, codes.Aborted:
			return true
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
