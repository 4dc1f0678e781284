package fallback

import (
	"context"

	"github.com/kailas-cloud/quizdex/internal/domain/question"
	domtopic "github.com/kailas-cloud/quizdex/internal/domain/topic"
	"github.com/kailas-cloud/quizdex/internal/vecindex"
)

// TopicResolver resolves a single topic id.
type TopicResolver interface {
	Resolve(ctx context.Context, id string) (domtopic.Context, error)
}

// Generator proposes unvalidated question candidates for a topic.
// existing lists questions the candidates should not duplicate.
type Generator interface {
	Generate(
		ctx context.Context, tc domtopic.Context, count int, existing []question.Question,
	) ([]question.Params, error)
}

// Scorer rates how well a question aligns with a topic, in [0,1].
type Scorer interface {
	Score(ctx context.Context, q question.Question, tc domtopic.Context) (float64, error)
}

// Catalog persists accepted questions.
type Catalog interface {
	InsertQuestion(ctx context.Context, q question.Question) error
}

// Indexer embeds questions and adds them to the vector index.
type Indexer interface {
	EmbedQuestion(ctx context.Context, q question.Question) (vecindex.Entry, error)
	AddEntry(e vecindex.Entry)
}
