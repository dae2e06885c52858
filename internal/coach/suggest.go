package coach

import "github.com/mlbb-ai/coach/internal/intent"

// maxSuggestions caps the follow-up prompts attached to a Result.
const maxSuggestions = 4

// suggestionsFor maps each intent to canned follow-up prompts. Static by
// design: suggestions are cheap conversation starters, not model output.
var suggestionsFor = map[intent.Intent][]string{
	intent.SubjectInfo: {
		"What's the best build for this hero?",
		"Which heroes counter this hero?",
		"What role does this hero play best?",
		"How do I combo this hero's skills?",
	},
	intent.LoadoutRecommendation: {
		"When should I swap out defensive items?",
		"Which emblem page fits this build?",
		"What battle spell works best here?",
		"How does this build change against heavy crowd control?",
	},
	intent.MatchupAnalysis: {
		"What items help in this matchup?",
		"Who else counters this hero?",
		"How should I play the early game here?",
		"When should I look for the all-in?",
	},
	intent.GeneralStrategy: {
		"When should my team take the Lord?",
		"How do I improve my rotations?",
		"What should I do when we're behind?",
		"How do I position in team fights?",
	},
	intent.GeneralChat: {
		"Tell me about a hero",
		"Recommend a build",
		"Help me with a matchup",
		"Give me a strategy tip",
	},
}

// SuggestionsFor returns up to four follow-up prompts for the intent.
// The slice is a copy; callers may keep it.
func SuggestionsFor(i intent.Intent) []string {
	s := suggestionsFor[i]
	if len(s) > maxSuggestions {
		s = s[:maxSuggestions]
	}
	return append([]string(nil), s...)
}
