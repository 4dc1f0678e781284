package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/quizdex/internal/config"
	"github.com/kailas-cloud/quizdex/internal/db"
	"github.com/kailas-cloud/quizdex/internal/db/memory"
	dbRedis "github.com/kailas-cloud/quizdex/internal/db/redis"
	"github.com/kailas-cloud/quizdex/internal/db/sqldb"
	"github.com/kailas-cloud/quizdex/internal/domain"
	logpkg "github.com/kailas-cloud/quizdex/internal/logger"
	"github.com/kailas-cloud/quizdex/internal/metrics"
	budgetrepo "github.com/kailas-cloud/quizdex/internal/repository/budget"
	catalogrepo "github.com/kailas-cloud/quizdex/internal/repository/catalog"
	"github.com/kailas-cloud/quizdex/internal/repository/embcache"
	exposurerepo "github.com/kailas-cloud/quizdex/internal/repository/exposure"
	localEmb "github.com/kailas-cloud/quizdex/internal/transport/local"
	openaiTransport "github.com/kailas-cloud/quizdex/internal/transport/openai"
	budgetuc "github.com/kailas-cloud/quizdex/internal/usecase/budget"
	embeddinguc "github.com/kailas-cloud/quizdex/internal/usecase/embedding"
	exposureuc "github.com/kailas-cloud/quizdex/internal/usecase/exposure"
	fallbackuc "github.com/kailas-cloud/quizdex/internal/usecase/fallback"
	healthuc "github.com/kailas-cloud/quizdex/internal/usecase/health"
	indexinguc "github.com/kailas-cloud/quizdex/internal/usecase/indexing"
	retrievaluc "github.com/kailas-cloud/quizdex/internal/usecase/retrieval"
	selectionuc "github.com/kailas-cloud/quizdex/internal/usecase/selection"
	topicuc "github.com/kailas-cloud/quizdex/internal/usecase/topic"
	usageuc "github.com/kailas-cloud/quizdex/internal/usecase/usage"
	"github.com/kailas-cloud/quizdex/internal/vecindex"
	"github.com/kailas-cloud/quizdex/internal/version"
)

// app is the composition root shared by every command.
type app struct {
	env    string
	cfg    config.Config
	logger *zap.Logger

	catalog   *catalogrepo.Repo
	index     *vecindex.Index
	retrieval *retrievaluc.Service
	exposure  *exposureuc.Service
	selection *selectionuc.Service
	indexing  *indexinguc.Service
	health    *healthuc.Service
	usage     *usageuc.Service

	closers []func()
}

func newApp(ctx context.Context, env string) (*app, error) {
	cfg, err := config.Load(env)
	if err != nil {
		return nil, &configError{fmt.Errorf("load config: %w", err)}
	}

	logger, err := logpkg.NewLogger(env, logpkg.Options{Level: cfg.Logging.Level, Version: version.String()})
	if err != nil {
		return nil, &configError{fmt.Errorf("create logger: %w", err)}
	}

	a := &app{env: env, cfg: cfg, logger: logger}
	a.closers = append(a.closers, func() { _ = logger.Sync() })

	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	sqlDB, err := sqldb.Open(ctx, sqldb.Config{Driver: cfg.Catalog.Driver, DSN: cfg.Catalog.DSN})
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	a.closers = append(a.closers, func() { _ = sqlDB.Close() })

	a.catalog = catalogrepo.New(sqlDB)
	if err := a.catalog.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("catalog schema: %w", err)
	}
	logger.Info("Connected to catalog", zap.String("driver", cfg.Catalog.Driver))

	// Pass nil interface (not typed nil pointer) when redis is not configured.
	var (
		kv    db.Store
		cache healthuc.Pinger
	)
	if len(cfg.Redis.Addrs) > 0 {
		rs, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Redis.Addrs,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return fmt.Errorf("create redis store: %w", err)
		}
		a.closers = append(a.closers, rs.Close)

		timeout := time.Duration(cfg.Redis.ReadinessTimeout) * time.Second
		if err := rs.WaitForReady(ctx, timeout); err != nil {
			return fmt.Errorf("redis not ready: %w", err)
		}
		logger.Info("Connected to redis", zap.Strings("addrs", cfg.Redis.Addrs))
		kv, cache = rs, rs
	} else {
		logger.Warn("No redis addrs configured, exposures and embedding cache are in-process")
		kv = memory.NewStore()
	}

	metrics.Register()

	docEmbedder, queryEmbedder := buildEmbedders(cfg, kv, logger)
	logger.Info("Embedders created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", embeddingModel(cfg.Embedding)),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	a.index = vecindex.New(cfg.Embedding.Dimensions)

	topics := topicuc.New(a.catalog, logger)
	a.retrieval = retrievaluc.New(topics, queryEmbedder, docEmbedder, a.index,
		retrievaluc.Options{OverFetchFactor: cfg.Retrieval.OverFetchFactor}, logger)

	retention := time.Duration(cfg.Exposure.RetentionDays) * 24 * time.Hour
	a.exposure = exposureuc.New(a.retrieval, exposurerepo.New(kv, cfg.Redis.KeyPrefix, retention), logger)

	// Pass nil interfaces (not typed nil pointers) when generation is disabled.
	var (
		filler  selectionuc.ShortfallFiller
		budgets usageuc.BudgetReader
	)
	if cfg.Generation.Enabled {
		tracker, err := buildBudget(ctx, cfg, kv, logger)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, tracker.Close)
		filler = buildFallback(cfg, topics, a.catalog, a.retrieval, tracker, logger)
		budgets = tracker
		logger.Info("Generative fallback enabled",
			zap.String("model", cfg.Generation.Model),
			zap.Int64("daily_tokens", cfg.Generation.Budget.DailyTokens),
			zap.Int64("monthly_tokens", cfg.Generation.Budget.MonthlyTokens),
		)
	}
	a.selection = selectionuc.New(a.retrieval, a.exposure, filler, logger)
	a.usage = usageuc.New(budgets)
	a.indexing = indexinguc.New(a.catalog, a.retrieval, logger)
	a.health = healthuc.New(a.catalog, cache, newEmbeddingHealthChecker(docEmbedder)).
		WithTimeout(time.Duration(cfg.HTTP.HealthTimeoutSec) * time.Second)
	return nil
}

// Close releases resources in reverse acquisition order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// buildEmbedders assembles the decorator chain:
// provider -> cached -> instrumented -> instruction (document and query).
func buildEmbedders(cfg config.Config, kv db.Store, logger *zap.Logger) (doc, query domain.Embedder) {
	ec := cfg.Embedding
	model := embeddingModel(ec)

	var base domain.Embedder
	switch ec.Provider {
	case config.ProviderOpenAI:
		base = openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     ec.APIKey,
			BaseURL:    ec.BaseURL,
			Model:      ec.Model,
			Dimensions: ec.Dimensions,
			Provider:   ec.Provider,
			Logger:     logger,
		})
	default:
		base = localEmb.NewEmbedder(ec.Dimensions)
	}

	if ec.Cache {
		base = embcache.New(base, kv, embcache.Options{
			KeyPrefix:  cfg.Redis.KeyPrefix,
			Model:      fmt.Sprintf("%s:%d", model, ec.Dimensions),
			Dimensions: ec.Dimensions,
			TTL:        time.Duration(ec.CacheTTLSec) * time.Second,
		}, metrics.EmbeddingCacheTotal, logger)
	}

	instrumented := embeddinguc.NewInstrumentedEmbedder(base, ec.Provider, model, ec.Dimensions, logger)

	doc = domain.NewInstructionEmbedder(instrumented, ec.DocumentInstruction)
	query = domain.NewInstructionEmbedder(instrumented, ec.QueryInstruction)
	return doc, query
}

// buildBudget creates the shared chat token budget, persisted in kv.
func buildBudget(ctx context.Context, cfg config.Config, kv db.Store, logger *zap.Logger) (*budgetuc.Tracker, error) {
	bc := cfg.Generation.Budget
	action, err := budgetuc.ParseAction(bc.Action)
	if err != nil {
		return nil, fmt.Errorf("generation budget: %w", err)
	}
	tracker := budgetuc.NewTracker(budgetuc.Options{
		Scope:        "generation",
		KeyPrefix:    cfg.Redis.KeyPrefix,
		DailyLimit:   bc.DailyTokens,
		MonthlyLimit: bc.MonthlyTokens,
		Action:       action,
	}, logger)
	return tracker.WithStore(ctx, budgetrepo.New(kv, 0, 0)), nil
}

func buildFallback(
	cfg config.Config, topics *topicuc.Service, catalog *catalogrepo.Repo,
	retrieval *retrievaluc.Service, budget openaiTransport.TokenBudget, logger *zap.Logger,
) *fallbackuc.Service {
	gc, vc := cfg.Generation, cfg.Validation

	generator := openaiTransport.NewGenerator(openaiTransport.ChatConfig{
		APIKey:            gc.APIKey,
		BaseURL:           gc.BaseURL,
		Model:             gc.Model,
		Temperature:       gc.Temperature,
		RequestsPerSecond: gc.RequestsPerSecond,
		Burst:             gc.Burst,
		Budget:            budget,
	})
	validator := openaiTransport.NewValidator(openaiTransport.ChatConfig{
		APIKey:            vc.APIKey,
		BaseURL:           vc.BaseURL,
		Model:             vc.Model,
		RequestsPerSecond: gc.RequestsPerSecond,
		Burst:             gc.Burst,
		Budget:            budget,
	})

	return fallbackuc.New(topics, generator, validator, catalog, retrieval,
		fallbackuc.Options{MinScore: vc.MinScore}, logger)
}

func embeddingModel(ec config.EmbeddingConfig) string {
	if ec.Provider == config.ProviderLocal {
		return "local-hash"
	}
	return ec.Model
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}
