package retrieval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/quizdex/internal/domain"
	"github.com/kailas-cloud/quizdex/internal/domain/question"
	domtopic "github.com/kailas-cloud/quizdex/internal/domain/topic"
	"github.com/kailas-cloud/quizdex/internal/domain/vector"
	"github.com/kailas-cloud/quizdex/internal/metrics"
	"github.com/kailas-cloud/quizdex/internal/vecindex"
)

// DefaultOverFetchFactor is how many index hits are requested per wanted question.
const DefaultOverFetchFactor = 3

// minSimilarity admits every entry: cosine is clamped to [-1, 1].
const minSimilarity = -1

// Options tunes retrieval.
type Options struct {
	OverFetchFactor int
}

// Service ranks indexed questions against a blended topic query.
type Service struct {
	topics    TopicResolver
	queryEmb  domain.Embedder
	docEmb    domain.Embedder
	index     Index
	overFetch int
	logger    *zap.Logger
}

// New creates a retrieval service. queryEmb vectorizes topic contexts,
// docEmb vectorizes questions being indexed.
func New(
	topics TopicResolver, queryEmb, docEmb domain.Embedder, index Index, opts Options, logger *zap.Logger,
) *Service {
	overFetch := opts.OverFetchFactor
	if overFetch < 1 {
		overFetch = DefaultOverFetchFactor
	}
	return &Service{
		topics:    topics,
		queryEmb:  queryEmb,
		docEmb:    docEmb,
		index:     index,
		overFetch: overFetch,
		logger:    logger,
	}
}

// Retrieve returns exactly count questions from topicIDs, best match first,
// none of them in exclude. Fewer matches yield *domain.InsufficientMatchesError
// carrying what was found.
func (s *Service) Retrieve(
	ctx context.Context, topicIDs []string, count int, exclude map[string]struct{},
) ([]question.Question, error) {
	start := time.Now()
	out, err := s.retrieve(ctx, topicIDs, count, exclude)
	metrics.RetrievalDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.RetrievalRequestsTotal.WithLabelValues("ok").Inc()
	case errors.Is(err, domain.ErrInsufficientMatches):
		metrics.RetrievalRequestsTotal.WithLabelValues("insufficient").Inc()
	default:
		metrics.RetrievalRequestsTotal.WithLabelValues("error").Inc()
	}
	return out, err
}

func (s *Service) retrieve(
	ctx context.Context, topicIDs []string, count int, exclude map[string]struct{},
) ([]question.Question, error) {
	if count <= 0 {
		return []question.Question{}, nil
	}

	ids := domtopic.UniqueIDs(topicIDs)
	if len(ids) == 0 {
		return nil, domain.NewInsufficientMatches(nil, count)
	}

	query, err := s.topicQuery(ctx, ids)
	if err != nil {
		return nil, err
	}

	allowed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		allowed[id] = struct{}{}
	}
	pred := func(e vecindex.Entry) bool {
		if _, ok := allowed[e.Metadata.TopicID]; !ok {
			return false
		}
		_, excluded := exclude[questionID(e)]
		return !excluded
	}

	// Topic membership filters relevance; similarity only orders.
	hits, err := s.index.Search(query, count*s.overFetch, minSimilarity, pred)
	if err != nil {
		return nil, domain.NewProviderError("search index", err)
	}

	out := make([]question.Question, 0, count)
	seen := make(map[string]struct{}, count)
	for _, h := range hits {
		p := h.Entry.Metadata.Payload
		if p == nil {
			continue
		}
		if _, dup := seen[p.ID()]; dup {
			continue
		}
		seen[p.ID()] = struct{}{}
		out = append(out, *p)
		if len(out) == count {
			break
		}
	}

	if len(out) < count {
		s.logger.Debug("Retrieval short of requested count",
			zap.Strings("topics", ids),
			zap.Int("found", len(out)),
			zap.Int("requested", count),
		)
		return nil, domain.NewInsufficientMatches(out, count)
	}
	return out, nil
}

// topicQuery embeds every topic context and blends them into one unit vector.
func (s *Service) topicQuery(ctx context.Context, ids []string) ([]float32, error) {
	contexts, err := s.topics.ResolveAll(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve topics: %w", err)
	}

	texts := make([]string, len(contexts))
	for i := range contexts {
		texts[i] = contexts[i].EmbeddingText()
	}

	res, err := domain.BatchEmbed(ctx, s.queryEmb, texts)
	if err != nil {
		return nil, providerError("embed topics", err)
	}
	domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)
	if len(res.Embeddings) != len(texts) {
		return nil, domain.NewProviderError(
			fmt.Sprintf("embed topics: got %d vectors for %d topics", len(res.Embeddings), len(texts)), nil)
	}

	mean, ok := vector.Mean(res.Embeddings)
	if !ok {
		return nil, domain.NewProviderError("embed topics: inconsistent vector lengths", domain.ErrDimensionMismatch)
	}
	query := vector.Normalize(mean)
	if err := s.index.CheckDimension(query); err != nil {
		return nil, domain.NewProviderError("embed topics", err)
	}
	return query, nil
}

// Index embeds q and adds it to the index. The index lock is not held while embedding.
func (s *Service) Index(ctx context.Context, q question.Question) error {
	e, err := s.EmbedQuestion(ctx, q)
	if err != nil {
		return err
	}
	s.AddEntry(e)
	return nil
}

// EmbedQuestion builds the index entry for q without adding it.
func (s *Service) EmbedQuestion(ctx context.Context, q question.Question) (vecindex.Entry, error) {
	res, err := s.docEmb.Embed(ctx, q.EmbeddingText())
	if err != nil {
		return vecindex.Entry{}, providerError("embed question "+q.ID(), err)
	}
	domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)
	if err := s.index.CheckDimension(res.Embedding); err != nil {
		return vecindex.Entry{}, domain.NewProviderError("embed question "+q.ID(), err)
	}
	return entryFor(q, res.Embedding), nil
}

// AddEntry adds a prepared entry, e.g. from EmbedQuestion.
func (s *Service) AddEntry(e vecindex.Entry) {
	s.index.Add(e)
	metrics.IndexSize.Set(float64(s.index.Size()))
}

// IndexAll embeds questions in one batch and adds them. Nothing is added on failure.
func (s *Service) IndexAll(ctx context.Context, qs []question.Question) (int, error) {
	if len(qs) == 0 {
		return 0, nil
	}

	texts := make([]string, len(qs))
	for i := range qs {
		texts[i] = qs[i].EmbeddingText()
	}

	res, err := domain.BatchEmbed(ctx, s.docEmb, texts)
	if err != nil {
		return 0, providerError("embed questions", err)
	}
	if len(res.Embeddings) != len(qs) {
		return 0, domain.NewProviderError(
			fmt.Sprintf("embed questions: got %d vectors for %d questions", len(res.Embeddings), len(qs)), nil)
	}
	for i, emb := range res.Embeddings {
		if err := s.index.CheckDimension(emb); err != nil {
			return 0, domain.NewProviderError("embed question "+qs[i].ID(), err)
		}
	}

	for i := range qs {
		s.index.Add(entryFor(qs[i], res.Embeddings[i]))
	}
	metrics.IndexSize.Set(float64(s.index.Size()))
	return len(qs), nil
}

func entryFor(q question.Question, emb []float32) vecindex.Entry {
	return vecindex.Entry{
		ID:        q.ID(),
		Embedding: emb,
		Metadata: vecindex.Metadata{
			TopicID:    q.TopicID(),
			QuestionID: q.ID(),
			Payload:    &q,
		},
	}
}

func questionID(e vecindex.Entry) string {
	if e.Metadata.QuestionID != "" {
		return e.Metadata.QuestionID
	}
	return e.ID
}

func providerError(msg string, err error) error {
	if errors.Is(err, domain.ErrProviderError) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return domain.NewProviderError(msg, err)
}
