// Package hashing is an offline embedder: lowercase word tokens and bigrams
// are hashed into signed buckets. Deterministic, dependency free, and good
// enough for lexical similarity in tests and air-gapped runs.
package hashing

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/kailas-cloud/vexplain/internal/domain"
)

// DefaultDimensions matches the default sentence-transformer width.
const DefaultDimensions = 384

// Embedder hashes tokens into a fixed-width vector.
type Embedder struct {
	dims int
}

// NewEmbedder creates a hashing embedder. dims <= 0 uses DefaultDimensions.
func NewEmbedder(dims int) *Embedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &Embedder{dims: dims}
}

// ModelID identifies the hashing scheme and width.
func (e *Embedder) ModelID() string { return fmt.Sprintf("hashing:v1@%d", e.dims) }

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.EmbeddingResult{}, err
	}
	tokens := tokenize(text)
	vec := make([]float32, e.dims)
	for i, tok := range tokens {
		e.add(vec, tok, 1)
		if i > 0 {
			e.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}
	return domain.EmbeddingResult{Embedding: vec, PromptTokens: len(tokens), TotalTokens: len(tokens)}, nil
}

func (e *Embedder) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()
	slot := int(sum % uint64(e.dims))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[slot] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
