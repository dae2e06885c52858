package evidence

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlbb-ai/coach/internal/intent"
	"github.com/mlbb-ai/coach/internal/knowledge"
)

// fakeRetriever serves canned passages per partition and records calls.
type fakeRetriever struct {
	mu       sync.Mutex
	passages map[knowledge.Partition][]knowledge.Passage
	errs     map[knowledge.Partition]error
	delay    time.Duration
	queried  []knowledge.Partition
}

func (f *fakeRetriever) Search(ctx context.Context, p knowledge.Partition, _ string, k int) ([]knowledge.Passage, error) {
	f.mu.Lock()
	f.queried = append(f.queried, p)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.errs[p]; err != nil {
		return nil, err
	}
	got := f.passages[p]
	if len(got) > k {
		got = got[:k]
	}
	return got, nil
}

func (f *fakeRetriever) queriedPartitions() []knowledge.Partition {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]knowledge.Partition(nil), f.queried...)
}

func passage(id string, p knowledge.Partition, score float32) knowledge.Passage {
	return knowledge.Passage{
		ID:        id,
		Partition: p,
		Content:   "content for " + id,
		Score:     score,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestPartitionsForCoversEveryIntent(t *testing.T) {
	for _, i := range intent.All() {
		parts := PartitionsFor(i)
		require.NotEmpty(t, parts, "intent %s must query at least one partition", i)
		for _, p := range parts {
			assert.True(t, p.Valid(), "intent %s routes to invalid partition %q", i, p)
		}
	}
}

func TestPartitionsForUnknownIntent(t *testing.T) {
	assert.Equal(t, PartitionsFor(intent.GeneralChat), PartitionsFor(intent.Intent("bogus")))
}

func TestGatherQueriesMappedPartitions(t *testing.T) {
	fr := &fakeRetriever{
		passages: map[knowledge.Partition][]knowledge.Passage{
			knowledge.PartitionHeroes:  {passage("h1", knowledge.PartitionHeroes, 0.9)},
			knowledge.PartitionTactics: {passage("t1", knowledge.PartitionTactics, 0.8)},
		},
	}
	a := NewAssembler(fr, Config{}, testLogger())

	got := a.Gather(context.Background(), intent.MatchupAnalysis, "how to counter Fanny")

	require.Len(t, got, 2)
	assert.Equal(t, "h1", got[0].ID, "higher score first")
	assert.ElementsMatch(t,
		[]knowledge.Partition{knowledge.PartitionHeroes, knowledge.PartitionTactics},
		fr.queriedPartitions())
}

func TestGatherDedupesKeepingHigherScore(t *testing.T) {
	fr := &fakeRetriever{
		passages: map[knowledge.Partition][]knowledge.Passage{
			knowledge.PartitionEquipment: {passage("dup", knowledge.PartitionEquipment, 0.5)},
			knowledge.PartitionHeroes:    {passage("dup", knowledge.PartitionHeroes, 0.9)},
		},
	}
	a := NewAssembler(fr, Config{}, testLogger())

	got := a.Gather(context.Background(), intent.LoadoutRecommendation, "best build for Layla")

	require.Len(t, got, 1)
	assert.InDelta(t, 0.9, got[0].Score, 1e-6)
}

func TestGatherDeterministicTiebreak(t *testing.T) {
	fr := &fakeRetriever{
		passages: map[knowledge.Partition][]knowledge.Passage{
			knowledge.PartitionHeroes: {
				passage("b", knowledge.PartitionHeroes, 0.7),
				passage("a", knowledge.PartitionHeroes, 0.7),
			},
		},
	}
	a := NewAssembler(fr, Config{}, testLogger())

	got := a.Gather(context.Background(), intent.SubjectInfo, "Layla")

	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

func TestGatherMergeIdempotent(t *testing.T) {
	fr := &fakeRetriever{
		passages: map[knowledge.Partition][]knowledge.Passage{
			knowledge.PartitionHeroes: {
				passage("h1", knowledge.PartitionHeroes, 0.9),
				passage("h2", knowledge.PartitionHeroes, 0.4),
			},
		},
	}
	a := NewAssembler(fr, Config{}, testLogger())

	first := a.Gather(context.Background(), intent.SubjectInfo, "Miya")
	second := a.Gather(context.Background(), intent.SubjectInfo, "Miya")
	assert.Equal(t, first, second)
}

func TestGatherPassageCap(t *testing.T) {
	var many []knowledge.Passage
	for _, id := range []string{"p1", "p2", "p3", "p4", "p5", "p6", "p7"} {
		many = append(many, passage(id, knowledge.PartitionTactics, float32(len(many))))
	}
	fr := &fakeRetriever{
		passages: map[knowledge.Partition][]knowledge.Passage{knowledge.PartitionTactics: many},
	}
	a := NewAssembler(fr, Config{TopK: 10, MaxPassages: 3}, testLogger())

	got := a.Gather(context.Background(), intent.GeneralStrategy, "rotations")
	assert.Len(t, got, 3)
	assert.Equal(t, "p7", got[0].ID, "highest score survives the cap")
}

func TestGatherCharBudget(t *testing.T) {
	big := knowledge.Passage{ID: "big", Partition: knowledge.PartitionTactics,
		Content: strings.Repeat("x", 300), Score: 0.9}
	small := knowledge.Passage{ID: "small", Partition: knowledge.PartitionTactics,
		Content: strings.Repeat("y", 300), Score: 0.5}
	fr := &fakeRetriever{
		passages: map[knowledge.Partition][]knowledge.Passage{
			knowledge.PartitionTactics: {big, small},
		},
	}
	a := NewAssembler(fr, Config{CharBudget: 400}, testLogger())

	got := a.Gather(context.Background(), intent.GeneralStrategy, "macro")
	require.Len(t, got, 1)
	assert.Equal(t, "big", got[0].ID)
}

func TestGatherOversizedPassageKeptAlone(t *testing.T) {
	huge := knowledge.Passage{ID: "huge", Partition: knowledge.PartitionTactics,
		Content: strings.Repeat("x", 5000), Score: 0.9}
	fr := &fakeRetriever{
		passages: map[knowledge.Partition][]knowledge.Passage{
			knowledge.PartitionTactics: {huge},
		},
	}
	a := NewAssembler(fr, Config{CharBudget: 1000}, testLogger())

	got := a.Gather(context.Background(), intent.GeneralStrategy, "macro")
	require.Len(t, got, 1, "a strong match larger than the budget still grounds the reply")
}

func TestGatherPartialFailure(t *testing.T) {
	fr := &fakeRetriever{
		passages: map[knowledge.Partition][]knowledge.Passage{
			knowledge.PartitionTactics: {passage("t1", knowledge.PartitionTactics, 0.6)},
		},
		errs: map[knowledge.Partition]error{
			knowledge.PartitionHeroes: errors.New("index offline"),
		},
	}
	a := NewAssembler(fr, Config{}, testLogger())

	got := a.Gather(context.Background(), intent.MatchupAnalysis, "counter Fanny")
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].ID)
}

func TestGatherAllPartitionsFail(t *testing.T) {
	fr := &fakeRetriever{
		errs: map[knowledge.Partition]error{
			knowledge.PartitionHeroes:  errors.New("down"),
			knowledge.PartitionTactics: errors.New("down"),
		},
	}
	a := NewAssembler(fr, Config{}, testLogger())

	got := a.Gather(context.Background(), intent.MatchupAnalysis, "counter Fanny")
	assert.Empty(t, got, "total retrieval failure degrades to no evidence, not an error")
}

func TestGatherPerPartitionTimeout(t *testing.T) {
	fr := &fakeRetriever{
		delay: 200 * time.Millisecond,
		passages: map[knowledge.Partition][]knowledge.Passage{
			knowledge.PartitionHeroes: {passage("h1", knowledge.PartitionHeroes, 0.9)},
		},
	}
	a := NewAssembler(fr, Config{PerPartitionTimeout: 20 * time.Millisecond}, testLogger())

	start := time.Now()
	got := a.Gather(context.Background(), intent.SubjectInfo, "Layla")
	assert.Empty(t, got)
	assert.Less(t, time.Since(start), 150*time.Millisecond, "slow partition is cut off, not awaited")
}

func TestGatherRespectsCancellation(t *testing.T) {
	fr := &fakeRetriever{delay: time.Second}
	a := NewAssembler(fr, Config{PerPartitionTimeout: 5 * time.Second}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := a.Gather(ctx, intent.GeneralStrategy, "macro")
	assert.Empty(t, got)
}
