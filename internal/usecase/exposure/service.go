package exposure

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/quizdex/internal/domain"
	"github.com/kailas-cloud/quizdex/internal/domain/question"
)

// Service re-ranks retrieval so a learner sees unseen questions before repeats.
type Service struct {
	retriever Retriever
	store     Store
	logger    *zap.Logger
	now       func() time.Time
}

// New creates an exposure tracker.
func New(retriever Retriever, store Store, logger *zap.Logger) *Service {
	return &Service{
		retriever: retriever,
		store:     store,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// UnseenFirst returns count questions preferring ones userID has not seen.
// Seen questions fill in only when unseen supply runs out. exclude is always honoured.
// InsufficientMatches is returned only when the topics hold fewer than count questions overall.
func (s *Service) UnseenFirst(
	ctx context.Context, userID string, topicIDs []string, count int, exclude map[string]struct{},
) ([]question.Question, error) {
	seen, err := s.store.Seen(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load exposure for %s: %w", userID, err)
	}
	if len(seen) == 0 {
		return s.retriever.Retrieve(ctx, topicIDs, count, exclude) //nolint:wrapcheck // pure composition
	}

	withSeen := make(map[string]struct{}, len(exclude)+len(seen))
	maps.Copy(withSeen, exclude)
	for id := range seen {
		withSeen[id] = struct{}{}
	}

	unseen, err := s.retriever.Retrieve(ctx, topicIDs, count, withSeen)
	if err == nil {
		return unseen, nil
	}
	unseen, err = partial(err)
	if err != nil {
		return nil, err
	}

	all, err := s.retriever.Retrieve(ctx, topicIDs, count, exclude)
	if err != nil {
		if all, err = partial(err); err != nil {
			return nil, err
		}
	}

	out := make([]question.Question, 0, count)
	ids := make(map[string]struct{}, count)
	for _, batch := range [][]question.Question{unseen, all} {
		for _, q := range batch {
			if len(out) == count {
				break
			}
			if _, dup := ids[q.ID()]; dup {
				continue
			}
			ids[q.ID()] = struct{}{}
			out = append(out, q)
		}
	}

	s.logger.Debug("Filled selection with seen questions",
		zap.String("user_id", userID),
		zap.Int("unseen", len(unseen)),
		zap.Int("returned", len(out)),
	)

	if len(out) < count {
		return nil, domain.NewInsufficientMatches(out, count)
	}
	return out, nil
}

// Record marks questionIDs as seen by userID at the given time (now when zero).
func (s *Service) Record(ctx context.Context, userID string, questionIDs []string, at time.Time) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidRequest)
	}
	ids := make([]string, 0, len(questionIDs))
	for _, id := range questionIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	if at.IsZero() {
		at = s.now()
	}
	if err := s.store.Record(ctx, userID, ids, at); err != nil {
		return fmt.Errorf("record exposure: %w", err)
	}
	return nil
}

// partial extracts the found subset from an insufficiency error; other errors pass through.
func partial(err error) ([]question.Question, error) {
	var ime *domain.InsufficientMatchesError
	if errors.As(err, &ime) {
		return ime.Partial, nil
	}
	return nil, err
}
