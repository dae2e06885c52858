// Package coach runs the coaching workflow: classify the message, gather
// evidence, compose a bounded prompt, generate a reply, and commit the
// exchange to the conversation log.
//
// The engine is deliberately thin. Resilience lives in the collaborators
// (the model adapters retry, the assembler degrades); the engine only
// decides which failures abort the invocation and which degrade it.
// Classification and retrieval failures degrade; input, provider,
// generation, and store failures abort.
package coach

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mlbb-ai/coach/internal/conversation"
	"github.com/mlbb-ai/coach/internal/intent"
	"github.com/mlbb-ai/coach/internal/knowledge"
	"github.com/mlbb-ai/coach/internal/llm"
)

// ErrInvalidInput indicates the request failed validation before any I/O.
var ErrInvalidInput = errors.New("invalid input")

// Request is one user message addressed to the coach.
type Request struct {
	// SessionID keys the conversation. Empty means start a new session.
	SessionID string

	// Message is the user's message. Must be non-blank.
	Message string

	// Provider optionally names the backend to use for this invocation.
	// Empty uses the configured default. An unavailable hint fails the
	// invocation rather than silently substituting another backend.
	Provider string
}

// Result is the structured outcome of one invocation.
type Result struct {
	Answer       string        // assistant reply text
	SessionID    string        // session the exchange was committed to
	Intent       intent.Intent // resolved classification
	Suggestions  []string      // 0-4 follow-up prompts
	PassagesUsed []string      // ids of passages included in the prompt
	Grounded     bool          // false when the evidence block was empty
}

// stage names the engine's position in the workflow, for logs and errors.
type stage string

const (
	stageClassifying stage = "classifying"
	stageRetrieving  stage = "retrieving"
	stageComposing   stage = "composing"
	stageGenerating  stage = "generating"
	stageCommitting  stage = "committing"
)

// Classifier resolves a message to an intent. Never errors.
type Classifier interface {
	Classify(ctx context.Context, message string, recent []conversation.Turn) intent.Intent
}

// Gatherer collects evidence passages for a classified message.
type Gatherer interface {
	Gather(ctx context.Context, i intent.Intent, message string) []knowledge.Passage
}

// Resolver maps a provider hint to a usable backend.
type Resolver interface {
	Resolve(hint string) (llm.Provider, error)
}

// Config bounds the engine's prompt and generation budgets.
// Zero values use defaults.
type Config struct {
	HistoryTurns       int           // turns of history in the prompt (default 6)
	HistoryTokenBudget int           // token budget for that history (default 2000)
	MaxTokens          int           // generation output budget (default 2048)
	GenerationTimeout  time.Duration // hard cap on one generation (default 60s)
	Language           string        // reply language, "" = follow the user
}

func (c Config) withDefaults() Config {
	if c.HistoryTurns <= 0 {
		c.HistoryTurns = 6
	}
	if c.HistoryTokenBudget <= 0 {
		c.HistoryTokenBudget = 2000
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 2048
	}
	if c.GenerationTimeout <= 0 {
		c.GenerationTimeout = 60 * time.Second
	}
	return c
}

// Engine orchestrates one invocation per message.
type Engine struct {
	classifier Classifier
	gatherer   Gatherer
	resolver   Resolver
	store      conversation.Store
	cfg        Config
	logger     *slog.Logger
}

// NewEngine wires the workflow. logger may be nil.
func NewEngine(
	classifier Classifier,
	gatherer Gatherer,
	resolver Resolver,
	store conversation.Store,
	cfg Config,
	logger *slog.Logger,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		classifier: classifier,
		gatherer:   gatherer,
		resolver:   resolver,
		store:      store,
		cfg:        cfg.withDefaults(),
		logger:     logger,
	}
}

// Invoke runs the workflow for one message.
//
// The turn pair is committed only after generation succeeds, so a failed
// invocation leaves the conversation log untouched. Errors wrap the
// sentinels in the package error taxonomy; check with errors.Is.
func (e *Engine) Invoke(ctx context.Context, req Request) (*Result, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is empty", ErrInvalidInput)
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	logger := e.logger.With("session", sessionID)

	ctx, span := otel.Tracer("coach").Start(ctx, "coach.invoke")
	defer span.End()

	// History load failure degrades to an empty history: the reply is still
	// useful without context, and a broken store will surface at commit.
	history, err := e.store.LoadTurns(ctx, sessionID)
	if err != nil {
		logger.Warn("loading history failed, continuing without context", "error", err)
		history = nil
	}

	logger.Debug("stage", "stage", stageClassifying)
	resolved := e.classifier.Classify(ctx, message, history)

	logger.Debug("stage", "stage", stageRetrieving, "intent", resolved)
	passages := e.gatherer.Gather(ctx, resolved, message)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Debug("stage", "stage", stageComposing, "passages", len(passages))
	prompt := composePrompt(resolved, e.cfg.Language, passages,
		clipHistory(history, e.cfg.HistoryTurns, e.cfg.HistoryTokenBudget), message)

	provider, err := e.resolver.Resolve(req.Provider)
	if err != nil {
		return nil, fmt.Errorf("resolving provider: %w", err)
	}

	logger.Debug("stage", "stage", stageGenerating, "provider", provider.Name())
	genCtx, cancel := context.WithTimeout(ctx, e.cfg.GenerationTimeout)
	defer cancel()

	answer, err := provider.Complete(genCtx, prompt, e.cfg.MaxTokens)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("generating reply: %w", err)
	}

	citations := passageIDs(passages)
	userTurn := conversation.NewUserTurn(message)
	assistantTurn := conversation.NewAssistantTurn(answer, citations)
	assistantTurn.Metadata = map[string]string{
		"intent":   string(resolved),
		"provider": provider.Name(),
	}

	logger.Debug("stage", "stage", stageCommitting)
	if err := e.store.AppendPair(ctx, sessionID, userTurn, assistantTurn); err != nil {
		return nil, fmt.Errorf("committing turns: %w", err)
	}

	span.SetAttributes(
		attribute.String("coach.intent", string(resolved)),
		attribute.Bool("coach.grounded", len(passages) > 0),
		attribute.Int("coach.passages", len(passages)),
	)
	logger.Info("invocation complete",
		"intent", resolved, "grounded", len(passages) > 0, "passages", len(passages))

	return &Result{
		Answer:       answer,
		SessionID:    sessionID,
		Intent:       resolved,
		Suggestions:  SuggestionsFor(resolved),
		PassagesUsed: citations,
		Grounded:     len(passages) > 0,
	}, nil
}

func passageIDs(passages []knowledge.Passage) []string {
	if len(passages) == 0 {
		return nil
	}
	ids := make([]string, len(passages))
	for i, p := range passages {
		ids[i] = p.ID
	}
	return ids
}
