package topic

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/quizdex/internal/domain"
	domtopic "github.com/kailas-cloud/quizdex/internal/domain/topic"
)

// Service resolves topic ids to contexts. Structured synthetic ids are decoded
// without a catalog lookup; everything else must exist in the catalog.
type Service struct {
	catalog Catalog
	logger  *zap.Logger
}

// New creates a topic resolver.
func New(catalog Catalog, logger *zap.Logger) *Service {
	return &Service{catalog: catalog, logger: logger}
}

// Resolve returns the context for a single topic id.
func (s *Service) Resolve(ctx context.Context, id string) (domtopic.Context, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domtopic.Context{}, fmt.Errorf("resolve topic: %w: empty id", domain.ErrTopicNotFound)
	}

	if sid, ok := domtopic.ParseSyntheticID(id); ok {
		s.logger.Debug("Synthesized topic context", zap.String("topic_id", id))
		return domtopic.Synthesize(id, sid), nil
	}

	rec, err := s.catalog.FindTopic(ctx, id)
	if err != nil {
		return domtopic.Context{}, fmt.Errorf("resolve topic %s: %w", id, err)
	}
	if rec.ID == "" {
		rec.ID = id
	}
	return domtopic.FromRecord(rec), nil
}

// ResolveAll resolves ids concurrently. The result keeps input order.
// The first failure (by input position) is returned.
func (s *Service) ResolveAll(ctx context.Context, ids []string) ([]domtopic.Context, error) {
	out := make([]domtopic.Context, len(ids))
	errs := make([]error, len(ids))

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out[i], errs[i] = s.Resolve(ctx, id)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
