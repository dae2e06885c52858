package knowledge_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlbb-ai/coach/internal/knowledge"
	"github.com/mlbb-ai/coach/internal/log"
	"github.com/mlbb-ai/coach/internal/testutil"
)

func setupStore(t *testing.T) *knowledge.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	tdb := testutil.SetupTestDB(t)
	return knowledge.NewStore(tdb.Pool, testutil.FakeEmbedder{}, log.NewNop())
}

func seedDocs(t *testing.T, store *knowledge.Store, docs ...knowledge.Document) {
	t.Helper()
	ctx := context.Background()
	for _, doc := range docs {
		require.NoError(t, store.Add(ctx, doc))
	}
}

func TestStore_SearchRanksByQuerySimilarity(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	seedDocs(t, store,
		knowledge.Document{
			ID:        "heroes/layla/overview",
			Partition: knowledge.PartitionHeroes,
			Content:   "Layla is a marksman with the longest basic attack range.",
			Metadata:  map[string]string{"subject": "Layla"},
		},
		knowledge.Document{
			ID:        "heroes/tigreal/overview",
			Partition: knowledge.PartitionHeroes,
			Content:   "Tigreal is a tank who initiates fights with crowd control.",
			Metadata:  map[string]string{"subject": "Tigreal"},
		},
	)

	// The fake embedder hashes text, so the exact stored string is the
	// nearest neighbor of itself.
	hits, err := store.Search(ctx, knowledge.PartitionHeroes,
		"Layla is a marksman with the longest basic attack range.", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "heroes/layla/overview", hits[0].ID)
	assert.Equal(t, knowledge.PartitionHeroes, hits[0].Partition)
	assert.Equal(t, "Layla", hits[0].Metadata["subject"])
	assert.Greater(t, hits[0].Score, hits[1].Score)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-4, "self match should score ~1")
}

func TestStore_SearchScopedToPartition(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	seedDocs(t, store,
		knowledge.Document{
			ID:        "equipment/windtalker",
			Partition: knowledge.PartitionEquipment,
			Content:   "Windtalker grants attack speed and movement speed.",
		},
		knowledge.Document{
			ID:        "tactics/rotations",
			Partition: knowledge.PartitionTactics,
			Content:   "Rotate mid after clearing the first wave.",
		},
	)

	hits, err := store.Search(ctx, knowledge.PartitionEquipment, "attack speed item", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "equipment/windtalker", hits[0].ID)

	hits, err = store.Search(ctx, knowledge.PartitionHeroes, "attack speed item", 5)
	require.NoError(t, err)
	assert.Empty(t, hits, "other partitions must not leak into hero searches")
}

func TestStore_AddReplacesExistingDocument(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	doc := knowledge.Document{
		ID:        "tactics/laning",
		Partition: knowledge.PartitionTactics,
		Content:   "Freeze the lane near your tower.",
	}
	seedDocs(t, store, doc)

	doc.Content = "Freeze the lane near your tower when behind."
	doc.Metadata = map[string]string{"section": "Laning"}
	seedDocs(t, store, doc)

	n, err := store.Count(ctx, knowledge.PartitionTactics)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "re-ingesting the same id must not duplicate")

	hits, err := store.Search(ctx, knowledge.PartitionTactics, "lane freezing", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Freeze the lane near your tower when behind.", hits[0].Content)
	assert.Equal(t, "Laning", hits[0].Metadata["section"])
}

func TestStore_CountPerPartition(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	seedDocs(t, store,
		knowledge.Document{ID: "heroes/a", Partition: knowledge.PartitionHeroes, Content: "a"},
		knowledge.Document{ID: "heroes/b", Partition: knowledge.PartitionHeroes, Content: "b"},
		knowledge.Document{ID: "tactics/c", Partition: knowledge.PartitionTactics, Content: "c"},
	)

	heroes, err := store.Count(ctx, knowledge.PartitionHeroes)
	require.NoError(t, err)
	assert.EqualValues(t, 2, heroes)

	equipment, err := store.Count(ctx, knowledge.PartitionEquipment)
	require.NoError(t, err)
	assert.EqualValues(t, 0, equipment)
}
