package quizdex

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/quizdex/internal/db"
	"github.com/kailas-cloud/quizdex/internal/db/memory"
	dbRedis "github.com/kailas-cloud/quizdex/internal/db/redis"
	"github.com/kailas-cloud/quizdex/internal/db/sqldb"
	"github.com/kailas-cloud/quizdex/internal/domain"
	"github.com/kailas-cloud/quizdex/internal/domain/question"
	"github.com/kailas-cloud/quizdex/internal/domain/topic"
	"github.com/kailas-cloud/quizdex/internal/metrics"
	budgetrepo "github.com/kailas-cloud/quizdex/internal/repository/budget"
	catalogrepo "github.com/kailas-cloud/quizdex/internal/repository/catalog"
	"github.com/kailas-cloud/quizdex/internal/repository/embcache"
	exposurerepo "github.com/kailas-cloud/quizdex/internal/repository/exposure"
	localEmb "github.com/kailas-cloud/quizdex/internal/transport/local"
	openaiTransport "github.com/kailas-cloud/quizdex/internal/transport/openai"
	budgetuc "github.com/kailas-cloud/quizdex/internal/usecase/budget"
	exposureuc "github.com/kailas-cloud/quizdex/internal/usecase/exposure"
	fallbackuc "github.com/kailas-cloud/quizdex/internal/usecase/fallback"
	healthuc "github.com/kailas-cloud/quizdex/internal/usecase/health"
	indexinguc "github.com/kailas-cloud/quizdex/internal/usecase/indexing"
	retrievaluc "github.com/kailas-cloud/quizdex/internal/usecase/retrieval"
	selectionuc "github.com/kailas-cloud/quizdex/internal/usecase/selection"
	topicuc "github.com/kailas-cloud/quizdex/internal/usecase/topic"
	usageuc "github.com/kailas-cloud/quizdex/internal/usecase/usage"
	"github.com/kailas-cloud/quizdex/internal/vecindex"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultDimensions       = 256
	defaultKeyPrefix        = "quizdex:"
)

// Internal interfaces for substitution in tests.
type selectionUseCase interface {
	Select(ctx context.Context, req selectionuc.Request) (selectionuc.Result, error)
}

type exposureUseCase interface {
	Record(ctx context.Context, userID string, questionIDs []string, at time.Time) error
}

type indexingUseCase interface {
	Rebuild(ctx context.Context) (int, error)
}

type questionIndexer interface {
	EmbedQuestion(ctx context.Context, q question.Question) (vecindex.Entry, error)
	AddEntry(e vecindex.Entry)
}

type catalogWriter interface {
	UpsertTopic(ctx context.Context, rec topic.Record) error
	InsertQuestion(ctx context.Context, q question.Question) error
}

// Client is the embedded quizdex engine.
type Client struct {
	selectionSvc selectionUseCase
	exposureSvc  exposureUseCase
	indexingSvc  indexingUseCase
	indexer      questionIndexer
	catalog      catalogWriter
	healthSvc    healthUseCase
	usageSvc     usageUseCase
	index        *vecindex.Index
	obs          *observer
	newID        func() string
	closers      []func()
}

// New creates a Client, opens the catalog and builds the index from every
// stored question. The provided context bounds the startup work.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		dimensions: defaultDimensions,
		keyPrefix:  defaultKeyPrefix,
	}
	for _, o := range opts {
		o.apply(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	c := &Client{obs: obs, newID: uuid.NewString}
	if err := c.wire(ctx, cfg); err != nil {
		c.Close()
		return nil, err
	}

	start := time.Now()
	_, err = c.indexingSvc.Rebuild(ctx)
	c.obs.observe("rebuild", start, err)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("quizdex: build index: %w", err)
	}
	return c, nil
}

func (cfg *clientConfig) validate() error {
	if cfg.catalogDSN == "" {
		return errors.New("quizdex: catalog required (use WithSQLite or WithPostgres)")
	}
	if cfg.dimensions <= 0 {
		return fmt.Errorf("quizdex: dimensions must be positive, got %d", cfg.dimensions)
	}
	if (cfg.generator == nil) != (cfg.scorer == nil) {
		return errors.New("quizdex: WithGenerator needs both a generator and a scorer")
	}
	if cfg.minScore < 0 || cfg.minScore > 1 {
		return fmt.Errorf("quizdex: min score must be within [0, 1], got %v", cfg.minScore)
	}
	return nil
}

func (c *Client) wire(ctx context.Context, cfg *clientConfig) error {
	logger := zap.NewNop()

	sqlDB, err := sqldb.Open(ctx, sqldb.Config{Driver: cfg.catalogDriver, DSN: cfg.catalogDSN})
	if err != nil {
		return fmt.Errorf("quizdex: open catalog: %w", err)
	}
	c.closers = append(c.closers, func() { _ = sqlDB.Close() })

	catalog := catalogrepo.New(sqlDB)
	if err := catalog.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("quizdex: %w", err)
	}

	// Pass nil interface (not typed nil pointer) when redis is not configured.
	var (
		store db.Store
		cache healthuc.Pinger
	)
	if len(cfg.redisAddrs) > 0 {
		rs, err := dbRedis.NewStore(dbRedis.Config{Addrs: cfg.redisAddrs, Password: cfg.redisPassword})
		if err != nil {
			return fmt.Errorf("quizdex: create redis store: %w", err)
		}
		c.closers = append(c.closers, rs.Close)
		if err := rs.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			return fmt.Errorf("quizdex: redis not ready: %w", err)
		}
		store, cache = rs, rs
	} else {
		store = memory.NewStore()
	}

	base, model := cfg.baseEmbedder()
	if cfg.cacheEmbeddings {
		base = embcache.New(base, store, embcache.Options{
			KeyPrefix:  cfg.keyPrefix,
			Model:      fmt.Sprintf("%s:%d", model, cfg.dimensions),
			Dimensions: cfg.dimensions,
		}, metrics.EmbeddingCacheTotal, logger)
	}
	docEmb := domain.NewInstructionEmbedder(base, cfg.docInstruction)
	queryEmb := domain.NewInstructionEmbedder(base, cfg.queryInstruction)

	c.index = vecindex.New(cfg.dimensions)
	topics := topicuc.New(catalog, logger)
	retrieval := retrievaluc.New(topics, queryEmb, docEmb, c.index,
		retrievaluc.Options{OverFetchFactor: cfg.overFetch}, logger)

	retention := time.Duration(cfg.retentionDays) * 24 * time.Hour
	exposure := exposureuc.New(retrieval, exposurerepo.New(store, cfg.keyPrefix, retention), logger)

	// Nil interface, not a typed nil pointer, when there is nothing to meter.
	var budgets usageuc.BudgetReader
	if cfg.openaiChat != nil && (cfg.budgetDaily > 0 || cfg.budgetMonthly > 0) {
		tracker := budgetuc.NewTracker(budgetuc.Options{
			Scope:        "generation",
			KeyPrefix:    cfg.keyPrefix,
			DailyLimit:   cfg.budgetDaily,
			MonthlyLimit: cfg.budgetMonthly,
			Action:       budgetuc.ActionReject,
		}, logger).WithStore(ctx, budgetrepo.New(store, 0, 0))
		c.closers = append(c.closers, tracker.Close)
		cfg.openaiChat.Budget = tracker
		budgets = tracker
	}
	c.usageSvc = usageuc.New(budgets)

	var filler selectionuc.ShortfallFiller
	if gen, scorer := cfg.fallbackCollaborators(); gen != nil {
		filler = fallbackuc.New(topics, gen, scorer, catalog, retrieval,
			fallbackuc.Options{MinScore: cfg.minScore}, logger)
	}

	c.selectionSvc = selectionuc.New(retrieval, exposure, filler, logger)
	c.exposureSvc = exposure
	c.indexingSvc = indexinguc.New(catalog, retrieval, logger)
	c.indexer = retrieval
	c.catalog = catalog
	c.healthSvc = healthuc.New(catalog, cache, docEmb)
	return nil
}

func (cfg *clientConfig) baseEmbedder() (domain.Embedder, string) {
	switch {
	case cfg.embedder != nil:
		return adaptEmbedder(cfg.embedder), "custom"
	case cfg.openaiEmbedding != nil:
		return openaiTransport.NewEmbedder(cfg.openaiEmbedding), cfg.openaiEmbedding.Model
	default:
		return localEmb.NewEmbedder(cfg.dimensions), "local-hash"
	}
}

func (cfg *clientConfig) fallbackCollaborators() (fallbackuc.Generator, fallbackuc.Scorer) {
	switch {
	case cfg.generator != nil:
		return &generatorAdapter{inner: cfg.generator}, &scorerAdapter{inner: cfg.scorer}
	case cfg.openaiChat != nil:
		scoring := *cfg.openaiChat
		scoring.Temperature = 0
		return openaiTransport.NewGenerator(*cfg.openaiChat), openaiTransport.NewValidator(scoring)
	default:
		return nil, nil
	}
}

// Close releases all resources.
func (c *Client) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Select returns req.Count questions, generating only what retrieval cannot supply.
func (c *Client) Select(ctx context.Context, req SelectRequest) (sel Selection, err error) {
	start := time.Now()
	defer func() { c.obs.observe("select", start, err) }()

	res, err := c.selectionSvc.Select(ctx, selectionuc.Request{
		Topics:  req.Topics,
		Count:   req.Count,
		Exclude: req.Exclude,
		UserID:  req.UserID,
	})
	if err != nil {
		return Selection{}, fmt.Errorf("select: %w", err)
	}
	return Selection{
		Questions: fromInternalQuestions(res.Questions),
		Retrieved: res.Retrieved,
		Generated: res.Generated,
	}, nil
}

// RecordExposure notes that userID has been shown questionIDs.
// A zero at means now.
func (c *Client) RecordExposure(ctx context.Context, userID string, questionIDs []string, at time.Time) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("exposure.record", start, err) }()

	if err = c.exposureSvc.Record(ctx, userID, questionIDs, at); err != nil {
		return fmt.Errorf("record exposure: %w", err)
	}
	return nil
}

// UpsertTopic creates or replaces a catalog topic.
func (c *Client) UpsertTopic(ctx context.Context, t Topic) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("topic.upsert", start, err) }()

	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("upsert topic: %w: id is required", ErrInvalidRequest)
	}
	if err = c.catalog.UpsertTopic(ctx, toRecord(t)); err != nil {
		return fmt.Errorf("upsert topic: %w", err)
	}
	return nil
}

// AddQuestion validates, stores and indexes a question. An empty ID is
// replaced by a generated one. Returns the stored question.
func (c *Client) AddQuestion(ctx context.Context, q Question) (out Question, err error) {
	start := time.Now()
	defer func() { c.obs.observe("question.add", start, err) }()

	p := toParams(q)
	if strings.TrimSpace(p.ID) == "" {
		p.ID = c.newID()
	}
	stored, err := question.New(p)
	if err != nil {
		return Question{}, fmt.Errorf("add question: %w: %w", ErrInvalidRequest, err)
	}

	// Embed first: a provider failure must leave nothing persisted.
	entry, err := c.indexer.EmbedQuestion(ctx, stored)
	if err != nil {
		return Question{}, fmt.Errorf("add question: %w", err)
	}
	if err = c.catalog.InsertQuestion(ctx, stored); err != nil {
		return Question{}, fmt.Errorf("add question: %w", err)
	}
	c.indexer.AddEntry(entry)
	return fromInternalQuestion(&stored), nil
}

// Rebuild re-embeds every catalog question. Returns the number indexed.
func (c *Client) Rebuild(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("rebuild", start, err) }()

	n, err = c.indexingSvc.Rebuild(ctx)
	if err != nil {
		return 0, fmt.Errorf("rebuild: %w", err)
	}
	return n, nil
}

// IndexSize returns the number of indexed questions.
func (c *Client) IndexSize() int {
	if c.index == nil {
		return 0
	}
	return c.index.Size()
}
