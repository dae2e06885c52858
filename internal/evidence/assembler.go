// Package evidence gathers knowledge passages to ground a coaching reply.
//
// The assembler fans out one retrieval call per partition for the classified
// intent, merges the results, and trims them to a bounded selection. Gather
// never fails: a partition that errors or times out contributes nothing, and
// when every partition fails the caller receives an empty slice and renders
// an ungrounded reply.
package evidence

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/mlbb-ai/coach/internal/intent"
	"github.com/mlbb-ai/coach/internal/knowledge"
)

// partitionsFor is the static intent routing table. Every intent maps to at
// least one partition so the engine can treat retrieval uniformly.
var partitionsFor = map[intent.Intent][]knowledge.Partition{
	intent.SubjectInfo:           {knowledge.PartitionHeroes},
	intent.LoadoutRecommendation: {knowledge.PartitionEquipment, knowledge.PartitionHeroes},
	intent.MatchupAnalysis:       {knowledge.PartitionHeroes, knowledge.PartitionTactics},
	intent.GeneralStrategy:       {knowledge.PartitionTactics},
	intent.GeneralChat:           {knowledge.PartitionTactics},
}

// PartitionsFor returns the partitions queried for i. Unknown intents fall
// back to the general_chat routing.
func PartitionsFor(i intent.Intent) []knowledge.Partition {
	if parts, ok := partitionsFor[i]; ok {
		return parts
	}
	return partitionsFor[intent.GeneralChat]
}

// Config bounds the assembler's work. Zero values use defaults.
type Config struct {
	TopK                int           // passages requested per partition (default 5)
	MaxPassages         int           // cap after merging (default 5)
	CharBudget          int           // combined content budget (default 4000)
	PerPartitionTimeout time.Duration // budget per retrieval call (default 2s)
}

func (c Config) withDefaults() Config {
	if c.TopK <= 0 {
		c.TopK = 5
	}
	if c.MaxPassages <= 0 {
		c.MaxPassages = 5
	}
	if c.CharBudget <= 0 {
		c.CharBudget = 4000
	}
	if c.PerPartitionTimeout <= 0 {
		c.PerPartitionTimeout = 2 * time.Second
	}
	return c
}

// Assembler gathers evidence for one message.
type Assembler struct {
	retriever knowledge.Retriever
	cfg       Config
	logger    *slog.Logger
}

// NewAssembler creates an Assembler. logger may be nil.
func NewAssembler(retriever knowledge.Retriever, cfg Config, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		retriever: retriever,
		cfg:       cfg.withDefaults(),
		logger:    logger,
	}
}

// partitionResult carries one partition's outcome across the join channel.
type partitionResult struct {
	partition knowledge.Partition
	passages  []knowledge.Passage
	err       error
}

// Gather retrieves, merges, and trims evidence for the message. It returns
// an empty slice when nothing useful was retrieved; it never returns an
// error, because missing evidence degrades the reply rather than failing it.
func (a *Assembler) Gather(ctx context.Context, i intent.Intent, message string) []knowledge.Passage {
	parts := PartitionsFor(i)

	results := make(chan partitionResult, len(parts))
	for _, p := range parts {
		go func(p knowledge.Partition) {
			callCtx, cancel := context.WithTimeout(ctx, a.cfg.PerPartitionTimeout)
			defer cancel()

			passages, err := a.retriever.Search(callCtx, p, message, a.cfg.TopK)
			results <- partitionResult{partition: p, passages: passages, err: err}
		}(p)
	}

	var gathered []knowledge.Passage
	for range parts {
		r := <-results
		if r.err != nil {
			a.logger.Warn("partition retrieval failed",
				"partition", r.partition, "error", r.err)
			continue
		}
		gathered = append(gathered, r.passages...)
	}

	merged := merge(gathered)
	return a.trim(merged)
}

// merge deduplicates by passage ID, keeping the higher score, and sorts by
// descending score with ID as the deterministic tiebreak.
func merge(passages []knowledge.Passage) []knowledge.Passage {
	if len(passages) == 0 {
		return nil
	}

	best := make(map[string]knowledge.Passage, len(passages))
	for _, p := range passages {
		if seen, ok := best[p.ID]; !ok || p.Score > seen.Score {
			best[p.ID] = p
		}
	}

	out := make([]knowledge.Passage, 0, len(best))
	for _, p := range best {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// trim enforces the passage cap and the combined character budget, keeping
// the highest-scored passages. A single passage larger than the whole budget
// is kept alone rather than dropped, so a strong match always survives.
func (a *Assembler) trim(passages []knowledge.Passage) []knowledge.Passage {
	if len(passages) > a.cfg.MaxPassages {
		passages = passages[:a.cfg.MaxPassages]
	}

	var out []knowledge.Passage
	used := 0
	for _, p := range passages {
		cost := len(p.Content)
		if used+cost > a.cfg.CharBudget {
			if len(out) == 0 {
				out = append(out, p)
			}
			break
		}
		out = append(out, p)
		used += cost
	}
	return out
}
