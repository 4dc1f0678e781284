package quizdex

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/quizdex/internal/db/sqldb"
	openaiTransport "github.com/kailas-cloud/quizdex/internal/transport/openai"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	catalogDriver string // "sqlite" or "postgres"
	catalogDSN    string

	redisAddrs    []string
	redisPassword string
	keyPrefix     string

	embedder         Embedder
	openaiEmbedding  *openaiTransport.Config
	dimensions       int
	docInstruction   string
	queryInstruction string
	cacheEmbeddings  bool

	generator     Generator
	scorer        Scorer
	openaiChat    *openaiTransport.ChatConfig
	budgetDaily   int64
	budgetMonthly int64
	minScore      float64
	overFetch     int
	retentionDays int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithSQLite stores the catalog in a SQLite database.
func WithSQLite(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.catalogDriver = sqldb.DriverSQLite
		c.catalogDSN = dsn
	})
}

// WithPostgres stores the catalog in PostgreSQL.
func WithPostgres(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.catalogDriver = sqldb.DriverPostgres
		c.catalogDSN = dsn
	})
}

// WithRedis keeps exposure records and cached embeddings in Redis or Valkey.
// Without it both live in process memory.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.redisAddrs = []string{addr}
		c.redisPassword = password
	})
}

// WithKeyPrefix namespaces Redis keys. Default: "quizdex:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithEmbedder sets a custom embedding provider producing vectors of dim.
func WithEmbedder(e Embedder, dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
		c.openaiEmbedding = nil
		c.dimensions = dim
	})
}

// WithLocalEmbedder uses the offline feature-hashing embedder. This is the default.
func WithLocalEmbedder(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = nil
		c.openaiEmbedding = nil
		c.dimensions = dim
	})
}

// WithOpenAIEmbedder uses an OpenAI-compatible embeddings API.
// An empty baseURL selects api.openai.com.
func WithOpenAIEmbedder(apiKey, baseURL, model string, dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = nil
		c.openaiEmbedding = &openaiTransport.Config{
			APIKey:     apiKey,
			BaseURL:    baseURL,
			Model:      model,
			Dimensions: dim,
			Provider:   "openai",
		}
		c.dimensions = dim
	})
}

// WithInstructions sets the prefixes prepended to question and topic texts
// before embedding, for asymmetric embedding models.
func WithInstructions(document, query string) Option {
	return optionFunc(func(c *clientConfig) {
		c.docInstruction = document
		c.queryInstruction = query
	})
}

// WithEmbeddingCache caches embeddings in the exposure store, keyed by content.
func WithEmbeddingCache() Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheEmbeddings = true
	})
}

// WithGenerator enables the generative fallback with custom collaborators.
func WithGenerator(g Generator, s Scorer) Option {
	return optionFunc(func(c *clientConfig) {
		c.generator = g
		c.scorer = s
		c.openaiChat = nil
	})
}

// WithOpenAIGeneration enables the generative fallback backed by an
// OpenAI-compatible chat model, used both to generate and to score.
// requestsPerSecond of zero disables rate limiting.
func WithOpenAIGeneration(apiKey, baseURL, model string, requestsPerSecond float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.generator = nil
		c.scorer = nil
		c.openaiChat = &openaiTransport.ChatConfig{
			APIKey:            apiKey,
			BaseURL:           baseURL,
			Model:             model,
			Temperature:       0.7,
			RequestsPerSecond: requestsPerSecond,
			Burst:             1,
		}
	})
}

// WithGenerationBudget caps chat tokens spent through WithOpenAIGeneration per
// UTC day and month. Zero leaves a period unlimited. Once spent, selections that
// need generation fail with ErrGenerationQuotaExceeded. Counters persist in Redis
// when WithRedis is set.
func WithGenerationBudget(dailyTokens, monthlyTokens int64) Option {
	return optionFunc(func(c *clientConfig) {
		c.budgetDaily = dailyTokens
		c.budgetMonthly = monthlyTokens
	})
}

// WithMinScore sets the alignment threshold for generated questions.
// Default: 0.7.
func WithMinScore(score float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.minScore = score
	})
}

// WithOverFetch sets how many candidates retrieval scores per requested question.
// Default: 3.
func WithOverFetch(factor int) Option {
	return optionFunc(func(c *clientConfig) {
		c.overFetch = factor
	})
}

// WithExposureRetention expires a user's exposure record after days without
// new exposures. Default: keep forever.
func WithExposureRetention(days int) Option {
	return optionFunc(func(c *clientConfig) {
		c.retentionDays = days
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
