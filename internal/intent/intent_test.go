package intent

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlbb-ai/coach/internal/conversation"
)

func TestParse(t *testing.T) {
	for _, i := range All() {
		got, ok := Parse(string(i))
		assert.True(t, ok)
		assert.Equal(t, i, got)
	}

	got, ok := Parse("hero_info")
	assert.False(t, ok)
	assert.Equal(t, GeneralChat, got, "out-of-set strings resolve to the safe default")
}

func TestIntentValid(t *testing.T) {
	assert.True(t, SubjectInfo.Valid())
	assert.False(t, Intent("").Valid())
	assert.False(t, Intent("SUBJECT_INFO").Valid(), "intent values are case-sensitive")
}

func TestHeuristic(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    Intent
	}{
		{"hero profile", "Tell me about Layla's abilities", SubjectInfo},
		{"bare hero name", "granger?", SubjectInfo},
		{"build question", "What's the best build for a marksman?", LoadoutRecommendation},
		{"emblem question", "which emblem should I use", LoadoutRecommendation},
		{"counter question", "How do I counter Fanny?", MatchupAnalysis},
		{"versus phrasing", "miya vs karrie who wins", MatchupAnalysis},
		{"macro question", "when should we rotate for the turtle objective", GeneralStrategy},
		{"teamfight question", "how to position in a team fight", GeneralStrategy},
		{"greeting", "hello there!", GeneralChat},
		{"thanks", "ok thanks", GeneralChat},
		{"off topic", "what's the weather today", GeneralChat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Heuristic(tt.message, nil))
		})
	}
}

func TestHeuristicPriority(t *testing.T) {
	// Matchup phrasing that also mentions items stays a matchup question.
	got := Heuristic("what items counter Alucard's lifesteal", nil)
	assert.Equal(t, MatchupAnalysis, got)
}

func TestHeuristicFollowUpInheritsContext(t *testing.T) {
	recent := []conversation.Turn{
		conversation.NewUserTurn("what's a good build for Layla?"),
	}

	got := Heuristic("and for the late game?", recent)
	assert.Equal(t, GeneralStrategy, got, "own keywords outrank history")

	got = Heuristic("and what about boots?", []conversation.Turn{
		conversation.NewUserTurn("how do I counter Franco's hook?"),
	})
	assert.Equal(t, MatchupAnalysis, got)
}

func TestHeuristicTotality(t *testing.T) {
	// Every message, however odd, must land in the closed set.
	for _, m := range []string{"", "   ", "??", "asdfghjkl", "好的", "🎮🎮🎮"} {
		assert.True(t, Heuristic(m, nil).Valid(), "message %q", m)
	}
}

// fakeGenerator returns a canned reply or error for classifier tests.
type fakeGenerator struct {
	reply string
	err   error
	calls int
}

func (f *fakeGenerator) Complete(_ context.Context, _ string, _ int) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestClassifierUsesModelReply(t *testing.T) {
	gen := &fakeGenerator{reply: "matchup_analysis"}
	c := NewClassifier(gen, testLogger())

	got := c.Classify(context.Background(), "hello", nil)
	assert.Equal(t, MatchupAnalysis, got)
	assert.Equal(t, 1, gen.calls)
}

func TestClassifierTrimsModelNoise(t *testing.T) {
	gen := &fakeGenerator{reply: "  Loadout_Recommendation.\n"}
	c := NewClassifier(gen, testLogger())

	got := c.Classify(context.Background(), "build?", nil)
	assert.Equal(t, LoadoutRecommendation, got)
}

func TestClassifierFallsBackOnError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("backend down")}
	c := NewClassifier(gen, testLogger())

	got := c.Classify(context.Background(), "how do I counter Fanny?", nil)
	assert.Equal(t, MatchupAnalysis, got, "heuristic takes over when the model fails")
}

func TestClassifierFallsBackOnGarbageReply(t *testing.T) {
	gen := &fakeGenerator{reply: "I think this is about heroes, probably."}
	c := NewClassifier(gen, testLogger())

	got := c.Classify(context.Background(), "best build for Layla", nil)
	assert.Equal(t, LoadoutRecommendation, got)
}

func TestClassifierWithoutGenerator(t *testing.T) {
	c := NewClassifier(nil, nil)

	got := c.Classify(context.Background(), "tell me about Miya", nil)
	require.Equal(t, SubjectInfo, got)
}
