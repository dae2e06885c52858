package coach

import (
	"fmt"
	"strings"

	"github.com/mlbb-ai/coach/internal/conversation"
	"github.com/mlbb-ai/coach/internal/intent"
	"github.com/mlbb-ai/coach/internal/knowledge"
)

// preambles are the per-intent system instructions. The coach persona stays
// constant; the focus paragraph changes with the classified intent.
var preambles = map[intent.Intent]string{
	intent.SubjectInfo: `You are an expert Mobile Legends: Bang Bang coach.
The user is asking about a specific hero. Explain the hero's abilities, role,
strengths, and weaknesses using the reference material below. Be concrete and
practical; if the material does not cover the hero, say so rather than guess.`,

	intent.LoadoutRecommendation: `You are an expert Mobile Legends: Bang Bang coach.
The user wants item, emblem, or battle spell advice. Recommend a build from
the reference material below, explain the purpose of each core item, and note
when to adapt it. If the material lacks a build for this case, say so.`,

	intent.MatchupAnalysis: `You are an expert Mobile Legends: Bang Bang coach.
The user is asking how to play against specific heroes. Use the reference
material below to explain the matchup: what to punish, what to avoid, and
which picks or items swing it. Be honest about unfavorable matchups.`,

	intent.GeneralStrategy: `You are an expert Mobile Legends: Bang Bang coach.
The user is asking about gameplay strategy. Ground your advice in the
reference material below: rotations, objectives, positioning, and decision
making appropriate to the user's question.`,

	intent.GeneralChat: `You are a friendly Mobile Legends: Bang Bang coach.
The user is making small talk. Reply briefly and warmly, and steer the
conversation toward how you can help with heroes, builds, or strategy.`,
}

// composePrompt renders the final prompt in a fixed order: preamble,
// evidence, recent history, current message. Keeping the order stable makes
// prompt changes diffable and cache-friendly.
func composePrompt(
	i intent.Intent,
	language string,
	passages []knowledge.Passage,
	history []conversation.Turn,
	message string,
) string {
	var b strings.Builder

	b.WriteString(preambles[i])
	b.WriteString("\n")
	if language != "" {
		fmt.Fprintf(&b, "Always respond in %s.\n", language)
	} else {
		b.WriteString("Respond in the same language the user writes in.\n")
	}

	if len(passages) > 0 {
		b.WriteString("\nReference material:\n")
		for n, p := range passages {
			fmt.Fprintf(&b, "\n--- Document %d (%s) ---\n", n+1, attribution(p))
			b.WriteString(strings.TrimSpace(p.Content))
			b.WriteString("\n")
		}
	} else {
		b.WriteString("\nNo reference material was found for this question. " +
			"Answer from general MLBB knowledge and say when you are unsure.\n")
	}

	if len(history) > 0 {
		b.WriteString("\nConversation so far:\n")
		for _, t := range history {
			fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Content)
		}
	}

	b.WriteString("\nuser: ")
	b.WriteString(message)
	b.WriteString("\nassistant:")
	return b.String()
}

// attribution renders a passage's provenance for the evidence block.
func attribution(p knowledge.Passage) string {
	if s := p.Subject(); s != "" {
		return fmt.Sprintf("%s: %s", p.Partition, s)
	}
	return string(p.Partition)
}

// estimateTokens approximates the token count of s. Roughly two characters
// per token holds well enough across English and CJK text for budgeting.
func estimateTokens(s string) int {
	n := len([]rune(s)) / 2
	if n == 0 && s != "" {
		return 1
	}
	return n
}

// clipHistory returns the most recent turns that fit both the turn window
// and the token budget, dropping oldest first. Order is preserved.
func clipHistory(history []conversation.Turn, maxTurns, tokenBudget int) []conversation.Turn {
	if len(history) > maxTurns {
		history = history[len(history)-maxTurns:]
	}

	// Walk backwards so the newest turns win the budget.
	total := 0
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		cost := estimateTokens(history[i].Content)
		if total+cost > tokenBudget {
			break
		}
		total += cost
		start = i
	}
	return history[start:]
}
