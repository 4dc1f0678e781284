package budget

import (
	"context"

	"github.com/kailas-cloud/quizdex/internal/domain/usage"
)

// Store persists period counters. IncrBy may be called repeatedly for the same key.
type Store interface {
	IncrBy(ctx context.Context, key string, val int64, period usage.Period) error
	Get(ctx context.Context, key string) (int64, error)
}
