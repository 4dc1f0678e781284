package selection

import (
	"context"

	"github.com/kailas-cloud/quizdex/internal/domain/question"
)

// Retriever ranks indexed questions for a topic set.
type Retriever interface {
	Retrieve(ctx context.Context, topicIDs []string, count int, exclude map[string]struct{}) ([]question.Question, error)
}

// ExposureRetriever ranks questions preferring ones the user has not seen.
type ExposureRetriever interface {
	UnseenFirst(
		ctx context.Context, userID string, topicIDs []string, count int, exclude map[string]struct{},
	) ([]question.Question, error)
}

// ShortfallFiller generates validated questions to cover a shortfall.
type ShortfallFiller interface {
	FillShortfall(
		ctx context.Context, topicIDs []string, shortfall int, existing []question.Question,
	) ([]question.Question, error)
}
