package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartition_Valid(t *testing.T) {
	t.Parallel()

	assert.True(t, PartitionHeroes.Valid())
	assert.True(t, PartitionEquipment.Valid())
	assert.True(t, PartitionTactics.Valid())
	assert.False(t, Partition("").Valid())
	assert.False(t, Partition("builds").Valid())
}

func TestPassage_Subject(t *testing.T) {
	t.Parallel()

	p := Passage{Metadata: map[string]string{"subject": "Layla"}}
	assert.Equal(t, "Layla", p.Subject())

	assert.Empty(t, Passage{}.Subject())
}
