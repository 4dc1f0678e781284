package health

import "context"

// Component names as they appear in Report.Checks.
const (
	ComponentCatalog   = "catalog"
	ComponentRedis     = "redis"
	ComponentEmbedding = "embedding"
)

// Pinger checks store availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
