package optimizer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/daryls-hrplus/intellihrm-scheduler/pkg/models"
)

// Gemini is the Google Gemini-backed optimizer.
type Gemini struct {
	client *genai.Client
	cfg    Config
}

// NewGemini builds a Gemini optimizer from cfg.
func NewGemini(ctx context.Context, cfg Config) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini optimizer requires OPTIMIZER_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Gemini{client: client, cfg: cfg}, nil
}

// Name identifies the configured model.
func (o *Gemini) Name() string {
	return o.cfg.Model
}

// Optimize runs one generation and parses the text of the first candidate.
func (o *Gemini) Optimize(ctx context.Context, sc *models.SchedulingContext) (*models.OptimizerResult, error) {
	userPrompt, err := BuildUserPrompt(sc)
	if err != nil {
		return nil, err
	}

	model := o.client.GenerativeModel(o.cfg.Model)
	model.SetTemperature(o.cfg.Temperature)
	model.SetMaxOutputTokens(int32(o.cfg.MaxTokens))
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(policyPreamble+"\n\n"+userPrompt))
	if err != nil {
		return nil, classifyGeminiError(err)
	}

	text, err := geminiText(resp)
	if err != nil {
		return nil, err
	}
	return ParseResult(text)
}

// Close releases the underlying client.
func (o *Gemini) Close() error {
	if o.client != nil {
		return o.client.Close()
	}
	return nil
}

// classifyGeminiError maps provider error codes onto the shared taxonomy.
func classifyGeminiError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", ErrCapacityExhausted, gerr.Message)
		case http.StatusPaymentRequired:
			return fmt.Errorf("%w: %s", ErrQuotaExceeded, gerr.Message)
		}
	}
	return fmt.Errorf("failed to generate content: %w", err)
}

// geminiText flattens the text parts of the first candidate.
func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", &MalformedOutputError{Reason: "no candidates in response"}
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", &MalformedOutputError{Reason: "no content in response"}
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", &MalformedOutputError{Reason: "no text parts in response"}
	}
	return strings.Join(parts, ""), nil
}
