// Package intent classifies what kind of coaching help a message asks for.
//
// Classification is fail-open: for any non-empty message Classify returns
// exactly one value from the closed Intent set and never an error. A wrong
// but useful answer beats blocking the conversation, so the LLM-backed path
// falls back to the keyword heuristic on any failure.
package intent

// Intent is the closed classification of a user message.
type Intent string

const (
	// SubjectInfo asks about a specific hero: abilities, role, playstyle.
	SubjectInfo Intent = "subject_info"

	// LoadoutRecommendation asks about items, builds, emblems, or spells.
	LoadoutRecommendation Intent = "loadout_recommendation"

	// MatchupAnalysis asks how to play against specific heroes.
	MatchupAnalysis Intent = "matchup_analysis"

	// GeneralStrategy asks about gameplay, positioning, objectives, meta.
	GeneralStrategy Intent = "general_strategy"

	// GeneralChat covers greetings, thanks, and off-topic messages.
	GeneralChat Intent = "general_chat"
)

// All lists every intent in a stable order.
func All() []Intent {
	return []Intent{
		SubjectInfo,
		LoadoutRecommendation,
		MatchupAnalysis,
		GeneralStrategy,
		GeneralChat,
	}
}

// Valid reports whether i is one of the defined intents.
func (i Intent) Valid() bool {
	switch i {
	case SubjectInfo, LoadoutRecommendation, MatchupAnalysis, GeneralStrategy, GeneralChat:
		return true
	}
	return false
}

// Parse maps a string to an Intent, reporting whether it matched.
// Used to validate model output against the closed set.
func Parse(s string) (Intent, bool) {
	i := Intent(s)
	if i.Valid() {
		return i, true
	}
	return GeneralChat, false
}
