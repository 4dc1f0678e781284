package exposure

import (
	"context"
	"time"

	"github.com/kailas-cloud/quizdex/internal/domain/question"
)

// Retriever is the ranked retrieval the tracker composes over.
type Retriever interface {
	Retrieve(ctx context.Context, topicIDs []string, count int, exclude map[string]struct{}) ([]question.Question, error)
}

// Store persists (user, question) -> lastSeenAt records.
type Store interface {
	Seen(ctx context.Context, userID string) (map[string]time.Time, error)
	Record(ctx context.Context, userID string, questionIDs []string, at time.Time) error
}
