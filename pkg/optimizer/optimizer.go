// Package optimizer defines the pluggable capability that turns a scheduling
// context into candidate shift assignments, and its implementations: an
// OpenAI-compatible inference gateway, a Gemini-backed gateway, and a
// deterministic greedy solver that needs no network at all.
package optimizer

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/daryls-hrplus/intellihrm-scheduler/pkg/models"
)

// Optimizer produces candidate assignments for one scheduling context.
type Optimizer interface {
	// Name identifies the implementation (recorded on the run as
	// ai_model_used).
	Name() string
	// Optimize returns candidate assignments with confidence and rationale.
	// The context bounds the call; a deadline hit surfaces as ErrTimeout.
	Optimize(ctx context.Context, sc *models.SchedulingContext) (*models.OptimizerResult, error)
}

// Provider selects an Optimizer implementation.
type Provider string

const (
	ProviderInference Provider = "inference" // OpenAI-compatible chat completions
	ProviderGemini    Provider = "gemini"
	ProviderGreedy    Provider = "greedy"
)

// Config holds optimizer settings, normally read from the environment.
type Config struct {
	Provider    Provider
	BaseURL     string // inference provider endpoint, e.g. https://api.example.com/v1
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// ConfigFromEnv builds a Config from OPTIMIZER_* environment variables,
// falling back to the greedy solver when no provider is configured.
func ConfigFromEnv() Config {
	cfg := Config{
		Provider:    Provider(os.Getenv("OPTIMIZER_PROVIDER")),
		BaseURL:     os.Getenv("OPTIMIZER_BASE_URL"),
		APIKey:      os.Getenv("OPTIMIZER_API_KEY"),
		Model:       os.Getenv("OPTIMIZER_MODEL"),
		Temperature: 0.1,
		MaxTokens:   8192,
		Timeout:     2 * time.Minute,
	}
	if cfg.Provider == "" {
		cfg.Provider = ProviderGreedy
	}
	if secs, err := strconv.Atoi(os.Getenv("OPTIMIZER_TIMEOUT_SECONDS")); err == nil && secs > 0 {
		cfg.Timeout = time.Duration(secs) * time.Second
	}
	return cfg
}

// New creates the Optimizer selected by cfg.Provider.
func New(ctx context.Context, cfg Config) (Optimizer, error) {
	switch cfg.Provider {
	case ProviderInference:
		return NewInference(cfg)
	case ProviderGemini:
		return NewGemini(ctx, cfg)
	case ProviderGreedy:
		return NewGreedy(), nil
	default:
		return nil, fmt.Errorf("unknown optimizer provider %q", cfg.Provider)
	}
}
