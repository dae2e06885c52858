package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
)

// embeddingDim matches the passages table's vector column.
const embeddingDim = 768

// FakeEmbedder produces deterministic unit vectors from a content hash, so
// identical text always embeds identically and similarity is stable across
// runs. It implements ai.Embedder without any network access.
type FakeEmbedder struct{}

// Name implements ai.Embedder.
func (FakeEmbedder) Name() string { return "testutil/fake-embedder" }

// Register implements ai.Embedder; the fake needs no registry entry.
func (FakeEmbedder) Register(api.Registry) {}

// Embed implements ai.Embedder.
func (FakeEmbedder) Embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	resp := &ai.EmbedResponse{}
	for _, doc := range req.Input {
		var text string
		for _, part := range doc.Content {
			text += part.Text
		}
		resp.Embeddings = append(resp.Embeddings, &ai.Embedding{
			Embedding: hashVector(text),
		})
	}
	return resp, nil
}

// hashVector expands a sha256 digest into a normalized embedding.
func hashVector(text string) []float32 {
	digest := sha256.Sum256([]byte(text))

	vec := make([]float32, embeddingDim)
	var norm float64
	for i := range vec {
		// Cycle the digest, reseeding with the index to avoid repetition.
		word := binary.BigEndian.Uint32(digest[(i*4)%28:]) ^ uint32(i*2654435761)
		v := float32(word%2000)/1000 - 1 // [-1, 1)
		vec[i] = v
		norm += float64(v) * float64(v)
	}

	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}
