package retrieval

import (
	"context"

	domtopic "github.com/kailas-cloud/quizdex/internal/domain/topic"
	"github.com/kailas-cloud/quizdex/internal/vecindex"
)

// TopicResolver turns topic ids into contexts, preserving order.
type TopicResolver interface {
	ResolveAll(ctx context.Context, ids []string) ([]domtopic.Context, error)
}

// Index is the vector index contract used by retrieval and indexing.
type Index interface {
	Add(e vecindex.Entry)
	Search(query []float32, topK int, minSimilarity float64, pred vecindex.Predicate) ([]vecindex.Hit, error)
	CheckDimension(vec []float32) error
	Size() int
}
