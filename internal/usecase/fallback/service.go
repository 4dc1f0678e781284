package fallback

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/quizdex/internal/domain"
	"github.com/kailas-cloud/quizdex/internal/domain/question"
	domtopic "github.com/kailas-cloud/quizdex/internal/domain/topic"
	"github.com/kailas-cloud/quizdex/internal/metrics"
)

// DefaultMinScore is the inclusive alignment threshold for accepting a candidate.
const DefaultMinScore = 0.7

// maxPasses caps the rounds over all topics in one FillShortfall call.
const maxPasses = 3

// Options tunes the orchestrator.
type Options struct {
	MinScore float64
}

// Service fills retrieval shortfalls with generated, validated questions.
type Service struct {
	topics   TopicResolver
	gen      Generator
	scorer   Scorer
	catalog  Catalog
	indexer  Indexer
	minScore float64
	logger   *zap.Logger

	now   func() time.Time
	newID func() string
}

// New creates a fallback orchestrator. A zero MinScore uses DefaultMinScore.
func New(
	topics TopicResolver, gen Generator, scorer Scorer, catalog Catalog, indexer Indexer,
	opts Options, logger *zap.Logger,
) *Service {
	minScore := opts.MinScore
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	return &Service{
		topics:   topics,
		gen:      gen,
		scorer:   scorer,
		catalog:  catalog,
		indexer:  indexer,
		minScore: minScore,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// FillShortfall returns exactly shortfall accepted questions or an error.
// Questions accepted before a failure stay persisted and indexed.
func (s *Service) FillShortfall(
	ctx context.Context, topicIDs []string, shortfall int, existing []question.Question,
) ([]question.Question, error) {
	return s.FillShortfallStream(ctx, topicIDs, shortfall, existing, nil)
}

// FillShortfallStream is FillShortfall with onAccepted called for every question
// as soon as it is persisted and indexed, so callers can track partial progress.
func (s *Service) FillShortfallStream(
	ctx context.Context, topicIDs []string, shortfall int, existing []question.Question,
	onAccepted func(question.Question),
) ([]question.Question, error) {
	if shortfall <= 0 {
		return []question.Question{}, nil
	}
	ids := domtopic.UniqueIDs(topicIDs)
	if len(ids) == 0 {
		return nil, domain.NewGenerationFailed("no topics to generate for", nil)
	}

	contexts := s.resolveTopics(ctx, ids)
	if len(contexts) == 0 {
		return nil, domain.NewGenerationFailed("no topic could be resolved", nil)
	}

	known := newKnownSet(existing)
	accepted := make([]question.Question, 0, shortfall)

	// Later passes ask every topic again while the previous pass made progress.
	for pass := 0; pass < maxPasses && len(accepted) < shortfall; pass++ {
		before := len(accepted)
		for i, tc := range contexts {
			remaining := shortfall - len(accepted)
			if remaining <= 0 {
				break
			}
			want := ceilDiv(remaining, len(contexts)-i)

			avoid := make([]question.Question, 0, len(existing)+len(accepted))
			avoid = append(avoid, existing...)
			avoid = append(avoid, accepted...)

			candidates, err := s.gen.Generate(ctx, tc, want, avoid)
			if err != nil {
				return nil, domain.NewGenerationFailed("generate for topic "+tc.TopicID(), err)
			}

			for _, c := range candidates {
				if len(accepted) == shortfall {
					break
				}
				q, ok, err := s.consider(ctx, tc, c, known)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
				known.add(q)
				accepted = append(accepted, q)
				if onAccepted != nil {
					onAccepted(q)
				}
			}
		}
		if len(accepted) == before {
			break
		}
	}

	if len(accepted) < shortfall {
		return nil, domain.NewGenerationFailed(
			fmt.Sprintf("accepted %d of %d required questions", len(accepted), shortfall), nil)
	}

	s.logger.Info("Filled shortfall with generated questions",
		zap.Strings("topics", ids), zap.Int("accepted", len(accepted)))
	return accepted, nil
}

// resolveTopics resolves ids in order. Unresolvable topics are logged and skipped.
func (s *Service) resolveTopics(ctx context.Context, ids []string) []domtopic.Context {
	out := make([]domtopic.Context, 0, len(ids))
	for _, id := range ids {
		tc, err := s.topics.Resolve(ctx, id)
		if err != nil {
			s.logger.Warn("Skipping topic for generation",
				zap.String("topic_id", id), zap.Error(err))
			continue
		}
		out = append(out, tc)
	}
	return out
}

// consider validates, scores and persists one candidate. ok is false for a
// candidate that was rejected without error.
func (s *Service) consider(
	ctx context.Context, tc domtopic.Context, c question.Params, known *knownSet,
) (question.Question, bool, error) {
	c.TopicID = tc.TopicID()
	if c.ID == "" {
		c.ID = s.newID()
	}
	c.CreatedAt = s.now()

	q, err := question.New(c)
	if err != nil {
		metrics.GeneratedCandidatesTotal.WithLabelValues("malformed").Inc()
		s.logger.Debug("Malformed candidate", zap.String("topic_id", tc.TopicID()), zap.Error(err))
		return question.Question{}, false, nil
	}
	if known.contains(q) {
		metrics.GeneratedCandidatesTotal.WithLabelValues("duplicate").Inc()
		s.logger.Debug("Duplicate candidate", zap.String("question_id", q.ID()))
		return question.Question{}, false, nil
	}

	score, err := s.scorer.Score(ctx, q, tc)
	if err != nil {
		return question.Question{}, false, domain.NewValidationUnavailable("score candidate "+q.ID(), err)
	}
	if math.IsNaN(score) || score < 0 || score > 1 {
		return question.Question{}, false, domain.NewValidationUnavailable(
			fmt.Sprintf("score candidate %s: score %v outside [0, 1]", q.ID(), score), nil)
	}
	if score < s.minScore {
		metrics.GeneratedCandidatesTotal.WithLabelValues("rejected").Inc()
		s.logger.Debug("Rejected candidate",
			zap.String("question_id", q.ID()), zap.Float64("score", score))
		return question.Question{}, false, nil
	}

	// Embed first: a provider failure must leave nothing persisted.
	entry, err := s.indexer.EmbedQuestion(ctx, q)
	if err != nil {
		return question.Question{}, false, domain.NewGenerationFailed("embed accepted question "+q.ID(), err)
	}
	if err := s.catalog.InsertQuestion(ctx, q); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			metrics.GeneratedCandidatesTotal.WithLabelValues("duplicate").Inc()
			return question.Question{}, false, nil
		}
		return question.Question{}, false, domain.NewGenerationFailed("persist question "+q.ID(), err)
	}
	s.indexer.AddEntry(entry)

	metrics.GeneratedCandidatesTotal.WithLabelValues("accepted").Inc()
	return q, true, nil
}

type knownSet struct {
	ids   map[string]struct{}
	texts map[string]struct{}
}

func newKnownSet(qs []question.Question) *knownSet {
	k := &knownSet{ids: make(map[string]struct{}, len(qs)), texts: make(map[string]struct{}, len(qs))}
	for _, q := range qs {
		k.add(q)
	}
	return k
}

func (k *knownSet) add(q question.Question) {
	k.ids[q.ID()] = struct{}{}
	k.texts[q.NormalizedText()] = struct{}{}
}

func (k *knownSet) contains(q question.Question) bool {
	if _, ok := k.ids[q.ID()]; ok {
		return true
	}
	_, ok := k.texts[q.NormalizedText()]
	return ok
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
