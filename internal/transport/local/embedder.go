// Package local is a deterministic, offline embedding provider based on feature hashing.
// It needs no network and gives stable vectors for tests and air-gapped deployments.
package local

import (
	"context"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/kailas-cloud/quizdex/internal/domain"
	"github.com/kailas-cloud/quizdex/internal/domain/vector"
)

const bigramWeight = 0.5

// Embedder hashes unigrams and bigrams into signed buckets and L2-normalizes the result.
type Embedder struct {
	dim int
}

// NewEmbedder creates a hashing embedder of the given dimension.
func NewEmbedder(dim int) *Embedder {
	if dim <= 0 {
		panic("local: dimension must be positive")
	}
	return &Embedder{dim: dim}
}

// Embed implements domain.Embedder. Text without tokens yields the zero vector.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.EmbeddingResult{}, domain.NewProviderError("local embed", err)
	}

	acc := make([]float32, e.dim)
	tokens := tokenize(text)
	for i, tok := range tokens {
		e.add(acc, tok, 1)
		if i > 0 {
			e.add(acc, tokens[i-1]+" "+tok, bigramWeight)
		}
	}

	return domain.EmbeddingResult{
		Embedding:    vector.Normalize(acc),
		PromptTokens: len(tokens),
		TotalTokens:  len(tokens),
	}, nil
}

// HealthCheck always succeeds.
func (e *Embedder) HealthCheck(context.Context) error { return nil }

func (e *Embedder) add(acc []float32, feature string, weight float32) {
	h := xxhash.Sum64String(feature)
	bucket := h % uint64(e.dim)
	if h>>63 == 1 {
		weight = -weight
	}
	acc[bucket] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
