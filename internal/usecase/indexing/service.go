package indexing

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Service rebuilds the in-memory index from the catalog.
type Service struct {
	catalog Catalog
	indexer Indexer
	logger  *zap.Logger
}

// New creates an indexing service.
func New(catalog Catalog, indexer Indexer, logger *zap.Logger) *Service {
	return &Service{catalog: catalog, indexer: indexer, logger: logger}
}

// Rebuild re-embeds every catalog question and adds it to the index.
// Safe to repeat: entries are overwritten by id.
func (s *Service) Rebuild(ctx context.Context) (int, error) {
	start := time.Now()

	qs, err := s.catalog.LoadAllQuestions(ctx)
	if err != nil {
		return 0, fmt.Errorf("load questions: %w", err)
	}

	n, err := s.indexer.IndexAll(ctx, qs)
	if err != nil {
		return 0, fmt.Errorf("index questions: %w", err)
	}

	s.logger.Info("Index rebuilt",
		zap.Int("questions", n),
		zap.Duration("duration", time.Since(start)),
	)
	return n, nil
}
