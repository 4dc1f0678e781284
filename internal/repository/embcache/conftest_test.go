package embcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/quizdex/internal/db/memory"
	"github.com/kailas-cloud/quizdex/internal/domain"
)

// fakeEmbedder maps each text to a vector derived from its length and
// records what reached the provider.
type fakeEmbedder struct {
	tokensPerText int
	err           error
	embedded      []string
	batches       [][]string
}

func (f *fakeEmbedder) vec(text string) []float32 {
	return []float32{float32(len(text)), 1}
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	if f.err != nil {
		return domain.EmbeddingResult{}, f.err
	}
	f.embedded = append(f.embedded, text)
	return domain.EmbeddingResult{Embedding: f.vec(text), PromptTokens: f.tokensPerText, TotalTokens: f.tokensPerText}, nil
}

func (f *fakeEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if f.err != nil {
		return domain.BatchEmbeddingResult{}, f.err
	}
	f.batches = append(f.batches, texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vec(t)
	}
	n := f.tokensPerText * len(texts)
	return domain.BatchEmbeddingResult{Embeddings: out, PromptTokens: n, TotalTokens: n}, nil
}

// flakyStore wraps memory.Store and fails selected operations.
type flakyStore struct {
	*memory.Store
	getErr error
	setErr error
	ttls   []time.Duration
}

func (s *flakyStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.Store.Get(ctx, key) //nolint:wrapcheck // test double
}

func (s *flakyStore) Set(ctx context.Context, key string, value []byte) error {
	if s.setErr != nil {
		return s.setErr
	}
	return s.Store.Set(ctx, key, value) //nolint:wrapcheck // test double
}

func (s *flakyStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.ttls = append(s.ttls, ttl)
	return s.Store.SetWithTTL(ctx, key, value, ttl) //nolint:wrapcheck // test double
}

var errStoreDown = errors.New("store down")

func newTestCache(t *testing.T, opts Options) (*CachedEmbedder, *fakeEmbedder, *flakyStore) {
	t.Helper()
	inner := &fakeEmbedder{tokensPerText: 3}
	st := &flakyStore{Store: memory.NewStore()}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "quizdex:"
	}
	if opts.Model == "" {
		opts.Model = "test-model:2"
	}
	return New(inner, st, opts, nil, zap.NewNop()), inner, st
}
