package optimizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/daryls-hrplus/intellihrm-scheduler/pkg/models"
)

// Inference delegates optimization to an OpenAI-compatible chat-completions
// endpoint: a system message carrying the fixed policy preamble, a user
// message carrying the JSON-encoded context, low temperature, bounded output.
type Inference struct {
	cfg    Config
	client *http.Client
}

// NewInference builds the inference-backed optimizer.
func NewInference(cfg Config) (*Inference, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("inference optimizer requires OPTIMIZER_BASE_URL")
	}
	if cfg.Model == "" {
		return nil, errors.New("inference optimizer requires OPTIMIZER_MODEL")
	}
	return &Inference{
		cfg: cfg,
		// No client-level timeout: the per-call context carries the
		// deadline so callers control it.
		client: &http.Client{},
	}, nil
}

// Name identifies the configured model.
func (o *Inference) Name() string {
	return o.cfg.Model
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Optimize runs one chat completion and parses the first choice.
func (o *Inference) Optimize(ctx context.Context, sc *models.SchedulingContext) (*models.OptimizerResult, error) {
	userPrompt, err := BuildUserPrompt(sc)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(chatRequest{
		Model: o.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: policyPreamble},
			{Role: "user", Content: userPrompt},
		},
		Temperature: o.cfg.Temperature,
		MaxTokens:   o.cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode optimizer request: %w", err)
	}

	url := strings.TrimSuffix(o.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if o.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, o.cfg.Timeout)
		}
		return nil, fmt.Errorf("optimizer request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read optimizer response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %s", ErrCapacityExhausted, strings.TrimSpace(string(raw)))
	case http.StatusPaymentRequired:
		return nil, fmt.Errorf("%w: %s", ErrQuotaExceeded, strings.TrimSpace(string(raw)))
	default:
		return nil, fmt.Errorf("optimizer returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &MalformedOutputError{Reason: "response is not a chat completion: " + err.Error(), Raw: string(raw)}
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("optimizer error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, &MalformedOutputError{Reason: "no choices in response", Raw: string(raw)}
	}

	return ParseResult(parsed.Choices[0].Message.Content)
}
