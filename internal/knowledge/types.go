// Package knowledge provides retrieval over the coaching knowledge base.
//
// The knowledge base is split into named partitions that are queried
// independently: hero profiles, equipment and builds, and tactical guidance.
// The Retriever interface is the seam the rest of the application depends
// on; Store is the PostgreSQL + pgvector implementation behind it.
package knowledge

import "time"

// Partition identifies a named subset of the knowledge base.
type Partition string

// The three knowledge partitions. Values double as the metadata tag stored
// with each passage, so they must stay stable across re-ingestion.
const (
	// PartitionHeroes holds hero profiles: abilities, roles, playstyles.
	PartitionHeroes Partition = "heroes"

	// PartitionEquipment holds item builds, emblems, and battle spells.
	PartitionEquipment Partition = "equipment"

	// PartitionTactics holds gameplay strategy and matchup guidance.
	PartitionTactics Partition = "tactics"
)

// Valid reports whether p is one of the defined partitions.
func (p Partition) Valid() bool {
	switch p {
	case PartitionHeroes, PartitionEquipment, PartitionTactics:
		return true
	}
	return false
}

// Passage is a scored retrieval result. Passages are immutable snapshots:
// consumers select and truncate but never modify them.
type Passage struct {
	ID        string            // stable identifier
	Partition Partition         // source partition
	Content   string            // text body
	Score     float32           // relevance, higher is more relevant
	Metadata  map[string]string // source attribution (subject, source, category)
}

// Subject returns the subject metadata (hero or item name), if present.
func (p Passage) Subject() string {
	return p.Metadata["subject"]
}

// Document is a knowledge base entry prior to scoring, used by ingestion.
type Document struct {
	ID        string
	Partition Partition
	Content   string
	Metadata  map[string]string
	CreatedAt time.Time
}
