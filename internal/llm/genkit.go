package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"
)

// defaultHardTimeout caps a single generation when the caller's context has
// no deadline of its own.
const defaultHardTimeout = 60 * time.Second

// GenkitConfig configures a Genkit-backed provider.
type GenkitConfig struct {
	Genkit      *genkit.Genkit
	Name        string // registry name, e.g. "googleai"
	ModelName   string // provider-qualified, e.g. "googleai/gemini-2.5-flash"
	Temperature float32
	Logger      *slog.Logger

	// HardTimeout bounds one Complete call end to end (zero = default).
	HardTimeout time.Duration

	// Resilience; zero values use defaults.
	Retry          RetryConfig
	CircuitBreaker CircuitBreakerConfig

	// RateLimiter throttles calls proactively (nil = 10 rps, burst 30).
	RateLimiter *rate.Limiter

	// AvailableFn reports backend readiness. nil = always available.
	// Providers with API keys pass a credential check here.
	AvailableFn func() bool
}

// GenkitProvider adapts a Genkit model to the Provider interface.
// All vendor-specific request and response shapes stay behind this type.
type GenkitProvider struct {
	g           *genkit.Genkit
	name        string
	modelName   string
	temperature float32
	hardTimeout time.Duration

	retry   RetryConfig
	breaker *CircuitBreaker
	limiter *rate.Limiter

	availableFn func() bool
	logger      *slog.Logger
}

// NewGenkitProvider creates a provider, applying defaults for zero values.
func NewGenkitProvider(cfg GenkitConfig) (*GenkitProvider, error) {
	if cfg.Genkit == nil {
		return nil, errors.New("genkit instance is required")
	}
	if cfg.Name == "" {
		return nil, errors.New("provider name is required")
	}
	if cfg.ModelName == "" {
		return nil, errors.New("model name is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	retry := cfg.Retry
	if retry.MaxRetries == 0 && retry.InitialInterval == 0 {
		retry = DefaultRetryConfig()
	}

	limiter := cfg.RateLimiter
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}

	hardTimeout := cfg.HardTimeout
	if hardTimeout <= 0 {
		hardTimeout = defaultHardTimeout
	}

	availableFn := cfg.AvailableFn
	if availableFn == nil {
		availableFn = func() bool { return true }
	}

	return &GenkitProvider{
		g:           cfg.Genkit,
		name:        cfg.Name,
		modelName:   cfg.ModelName,
		temperature: cfg.Temperature,
		hardTimeout: hardTimeout,
		retry:       retry,
		breaker:     NewCircuitBreaker(cfg.CircuitBreaker),
		limiter:     limiter,
		availableFn: availableFn,
		logger:      logger.With("provider", cfg.Name),
	}, nil
}

// Name implements Provider.
func (p *GenkitProvider) Name() string { return p.name }

// Available implements Provider.
func (p *GenkitProvider) Available() bool { return p.availableFn() }

// Complete implements Completer. Failures are wrapped in
// ErrGenerationFailed after the bounded retry budget is exhausted; an
// unconfigured backend fails with ErrProviderUnavailable before any call.
func (p *GenkitProvider) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if !p.Available() {
		return "", fmt.Errorf("%w: %q has no valid configuration", ErrProviderUnavailable, p.name)
	}
	if err := p.breaker.Allow(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.hardTimeout)
	defer cancel()

	text, err := withRetry(callCtx, p.retry, p.limiter, p.logger, func(ctx context.Context) (string, error) {
		resp, err := genkit.Generate(ctx, p.g,
			ai.WithModelName(p.modelName),
			ai.WithPrompt(prompt),
			ai.WithConfig(&ai.GenerationCommonConfig{
				MaxOutputTokens: maxTokens,
				Temperature:     float64(p.temperature),
			}),
		)
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	})
	if err != nil {
		p.breaker.Failure()
		// Cancellation is the caller's choice, not a backend fault.
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", fmt.Errorf("%w: %s: %w", ErrGenerationFailed, p.modelName, err)
	}

	p.breaker.Success()

	if strings.TrimSpace(text) == "" {
		p.breaker.Failure()
		return "", fmt.Errorf("%w: model returned empty response", ErrGenerationFailed)
	}
	return text, nil
}

var _ Provider = (*GenkitProvider)(nil)

// placeholderPrefixes mark keys that were copied from a template rather
// than configured.
var placeholderPrefixes = []string{"your_", "sk-placeholder", "change-", "xxx", "todo"}

// RealKey reports whether key looks like an actual API key rather than a
// placeholder left in a .env template.
func RealKey(key string) bool {
	if key == "" {
		return false
	}
	lower := strings.ToLower(key)
	for _, prefix := range placeholderPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return false
		}
	}
	switch lower {
	case "none", "null", "undefined":
		return false
	}
	// Real keys are typically 20+ characters.
	return len(key) >= 20
}

// GoogleAIAvailable checks for a usable Gemini API key in the environment.
func GoogleAIAvailable() bool {
	return RealKey(os.Getenv("GEMINI_API_KEY")) || RealKey(os.Getenv("GOOGLE_API_KEY"))
}
