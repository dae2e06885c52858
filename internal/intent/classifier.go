package intent

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/mlbb-ai/coach/internal/conversation"
)

// classifyTimeout bounds the LLM classification call. The heuristic takes
// over when the model is slower than this.
const classifyTimeout = 3 * time.Second

// classifyMaxTokens is generous for a single-token reply; some backends
// reject very small output budgets.
const classifyMaxTokens = 16

// classificationPrompt is a pure function of the taxonomy: it demands a
// single token from the closed set so the output can be validated strictly.
const classificationPrompt = `You are an intent classifier for an MLBB coaching system.
Classify the user's message into EXACTLY ONE of these categories:

subject_info - questions about specific heroes, their abilities, roles, or general info
loadout_recommendation - questions about items, builds, emblems, or equipment
matchup_analysis - questions about counters, how to play against specific heroes
general_strategy - questions about gameplay, positioning, team fights, meta, tactics
general_chat - greetings, thanks, or non-MLBB related messages

Respond with ONLY the category name, nothing else.

Message: `

// Generator is the slice of the language-model port the classifier needs.
// Interfaces are defined by the consumer; the llm package satisfies this.
type Generator interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Classifier maps a message to an Intent.
//
// When a Generator is configured the classifier asks the model first and
// validates the reply against the closed set; the keyword heuristic is both
// the fallback and the zero-dependency default.
type Classifier struct {
	generator Generator // nil = heuristic only
	logger    *slog.Logger
}

// NewClassifier creates a Classifier.
// generator may be nil to disable LLM-backed classification; logger may be
// nil, in which case slog.Default is used.
func NewClassifier(generator Generator, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{generator: generator, logger: logger}
}

// Classify returns exactly one Intent for the message. It never returns an
// error: a failed or unparseable model reply falls back to the heuristic,
// and an ambiguous message resolves to GeneralChat.
func (c *Classifier) Classify(ctx context.Context, message string, recent []conversation.Turn) Intent {
	if c.generator != nil {
		if i, ok := c.classifyWithModel(ctx, message); ok {
			return i
		}
	}
	return Heuristic(message, recent)
}

// classifyWithModel asks the model for a single category token.
// The second return is false whenever the heuristic should take over.
func (c *Classifier) classifyWithModel(ctx context.Context, message string) (Intent, bool) {
	callCtx, cancel := context.WithTimeout(ctx, classifyTimeout)
	defer cancel()

	reply, err := c.generator.Complete(callCtx, classificationPrompt+message, classifyMaxTokens)
	if err != nil {
		c.logger.Debug("model classification failed, using heuristic", "error", err)
		return GeneralChat, false
	}

	token := strings.ToLower(strings.TrimSpace(reply))
	// Strip trailing punctuation some models append despite instructions.
	token = strings.TrimRight(token, ".!:")

	i, ok := Parse(token)
	if !ok {
		c.logger.Debug("model returned out-of-set intent, using heuristic", "reply", reply)
		return GeneralChat, false
	}
	return i, true
}

// Keyword groups for the heuristic, checked in priority order. Matchup
// phrasing often also mentions items, so matchup outranks loadout.
var (
	matchupKeywords = []string{
		"counter", " vs ", " vs.", "versus", "against", "matchup", "match up", "beat",
	}
	loadoutKeywords = []string{
		"build", "item", "emblem", "equipment", "battle spell", "spell", "gear", "loadout",
	}
	strategyKeywords = []string{
		"strategy", "team fight", "teamfight", "rotation", "rotate", "farm",
		"position", "objective", "meta", "macro", "gank", "push", "lane",
		"jungle", "map", "late game", "early game", "carry",
	}
	subjectKeywords = []string{
		"hero", "abilit", "skill", "passive", "ultimate", "who is",
		"tell me about", "role", "playstyle", "play style",
	}
)

// knownHeroes is a keyword net, not a roster: a bare hero name with no other
// signal is a profile question.
var knownHeroes = []string{
	"layla", "miya", "moskov", "granger", "bruno", "claude", "karrie",
	"hanabi", "beatrix", "wanwan", "melissa", "brody", "clint", "lesley",
	"franco", "tigreal", "gusion", "fanny", "lancelot", "alucard", "zilong",
}

// Heuristic classifies by keyword groups alone. Exported so callers can
// bypass the model deliberately (for example in latency-sensitive paths).
func Heuristic(message string, recent []conversation.Turn) Intent {
	m := strings.ToLower(message)

	if containsAny(m, matchupKeywords) {
		return MatchupAnalysis
	}
	if containsAny(m, loadoutKeywords) {
		return LoadoutRecommendation
	}
	if containsAny(m, subjectKeywords) || containsAny(m, knownHeroes) {
		return SubjectInfo
	}
	if containsAny(m, strategyKeywords) {
		return GeneralStrategy
	}

	// A short follow-up like "and against tanks?" inherits nothing by
	// keyword; look one user turn back before giving up.
	if len(recent) > 0 {
		last := recent[len(recent)-1]
		if last.Role == conversation.RoleUser && last.Content != message {
			prev := strings.ToLower(last.Content)
			if containsAny(prev, matchupKeywords) {
				return MatchupAnalysis
			}
			if containsAny(prev, loadoutKeywords) {
				return LoadoutRecommendation
			}
		}
	}

	return GeneralChat
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
