package topic

import (
	"context"

	domtopic "github.com/kailas-cloud/quizdex/internal/domain/topic"
)

// Catalog looks up topic records. A missing topic yields domain.ErrTopicNotFound.
type Catalog interface {
	FindTopic(ctx context.Context, id string) (domtopic.Record, error)
}
