package embcache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/quizdex/internal/db/memory"
)

func TestEmbed_MissThenHit(t *testing.T) {
	ce, inner, _ := newTestCache(t, Options{})
	ctx := context.Background()

	first, err := ce.Embed(ctx, "fractions")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.TotalTokens != 3 {
		t.Errorf("miss should report provider tokens, got %d", first.TotalTokens)
	}

	second, err := ce.Embed(ctx, "fractions")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.embedded) != 1 {
		t.Errorf("expected 1 provider call, got %d", len(inner.embedded))
	}
	if second.TotalTokens != 0 || second.PromptTokens != 0 {
		t.Errorf("hit must report zero tokens, got %+v", second)
	}
	if fmt.Sprint(second.Embedding) != fmt.Sprint(first.Embedding) {
		t.Errorf("cached vector %v differs from %v", second.Embedding, first.Embedding)
	}
}

func TestEmbed_InnerError(t *testing.T) {
	ce, inner, _ := newTestCache(t, Options{})
	inner.err = errors.New("provider down")

	if _, err := ce.Embed(context.Background(), "x"); !errors.Is(err, inner.err) {
		t.Errorf("expected wrapped provider error, got %v", err)
	}
}

func TestEmbed_StoreErrorsDegradeToMiss(t *testing.T) {
	ce, inner, st := newTestCache(t, Options{})
	st.getErr = errStoreDown
	st.setErr = errStoreDown

	for range 2 {
		if _, err := ce.Embed(context.Background(), "x"); err != nil {
			t.Fatalf("store failure must not fail embedding: %v", err)
		}
	}
	if len(inner.embedded) != 2 {
		t.Errorf("expected every call to reach the provider, got %d", len(inner.embedded))
	}
}

func TestEmbed_TTL(t *testing.T) {
	ce, _, st := newTestCache(t, Options{TTL: time.Hour})

	if _, err := ce.Embed(context.Background(), "x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(st.ttls) != 1 || st.ttls[0] != time.Hour {
		t.Errorf("expected SetWithTTL with 1h, got %v", st.ttls)
	}
}

func TestEmbed_WrongDimensionEntryIsMiss(t *testing.T) {
	ce, inner, st := newTestCache(t, Options{Dimensions: 2})
	ctx := context.Background()

	_ = st.Set(ctx, ce.cacheKey("x"), encodeVector([]float32{1, 2, 3}))

	res, err := ce.Embed(ctx, "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.embedded) != 1 || len(res.Embedding) != 2 {
		t.Errorf("expected provider call with 2-dim result, got calls=%d vec=%v", len(inner.embedded), res.Embedding)
	}
}

func TestEmbed_CorruptEntryIsMiss(t *testing.T) {
	ce, inner, st := newTestCache(t, Options{})
	ctx := context.Background()
	_ = st.Set(ctx, ce.cacheKey("x"), []byte{1, 2, 3})

	if _, err := ce.Embed(ctx, "x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.embedded) != 1 {
		t.Error("corrupt entry must fall through to the provider")
	}
}

func TestBatchEmbed_MixedHitsAndMisses(t *testing.T) {
	ce, inner, _ := newTestCache(t, Options{})
	ctx := context.Background()
	if _, err := ce.Embed(ctx, "bb"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	res, err := ce.BatchEmbed(ctx, []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.batches) != 1 || fmt.Sprint(inner.batches[0]) != "[a ccc]" {
		t.Errorf("expected only misses sent, got %v", inner.batches)
	}
	for i, want := range []float32{1, 2, 3} {
		if res.Embeddings[i][0] != want {
			t.Errorf("embedding %d = %v, want first component %v", i, res.Embeddings[i], want)
		}
	}
	if res.TotalTokens != 6 {
		t.Errorf("expected tokens for 2 misses, got %d", res.TotalTokens)
	}
}

func TestBatchEmbed_DeduplicatesMisses(t *testing.T) {
	ce, inner, _ := newTestCache(t, Options{})

	res, err := ce.BatchEmbed(context.Background(), []string{"q", "same", "q", "same", "q"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.batches) != 1 || fmt.Sprint(inner.batches[0]) != "[q same]" {
		t.Errorf("expected distinct misses once, got %v", inner.batches)
	}
	if len(res.Embeddings) != 5 || res.Embeddings[2][0] != 1 || res.Embeddings[3][0] != 4 {
		t.Errorf("duplicated positions not filled: %v", res.Embeddings)
	}
}

func TestBatchEmbed_AllHits(t *testing.T) {
	ce, inner, _ := newTestCache(t, Options{})
	ctx := context.Background()
	if _, err := ce.BatchEmbed(ctx, []string{"a", "b"}); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	res, err := ce.BatchEmbed(ctx, []string{"b", "a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.batches) != 1 {
		t.Errorf("expected no provider call on all hits, got %d batches", len(inner.batches))
	}
	if res.TotalTokens != 0 || len(res.Embeddings) != 2 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestBatchEmbed_InnerError(t *testing.T) {
	ce, inner, _ := newTestCache(t, Options{})
	inner.err = errors.New("batch down")

	if _, err := ce.BatchEmbed(context.Background(), []string{"a"}); !errors.Is(err, inner.err) {
		t.Errorf("expected wrapped error, got %v", err)
	}
}

func TestBatchEmbed_Empty(t *testing.T) {
	ce, inner, _ := newTestCache(t, Options{})
	res, err := ce.BatchEmbed(context.Background(), nil)
	if err != nil || res.Embeddings != nil || len(inner.batches) != 0 {
		t.Errorf("expected empty no-op, got %+v, %v", res, err)
	}
}

func TestCacheKey_NamespacedByModel(t *testing.T) {
	st := memory.NewStore()
	a := New(&fakeEmbedder{}, st, Options{KeyPrefix: "quizdex:", Model: "m1"}, nil, nil)
	b := New(&fakeEmbedder{}, st, Options{KeyPrefix: "quizdex:", Model: "m2"}, nil, nil)

	ka, kb := a.cacheKey("same text"), b.cacheKey("same text")
	if ka == kb {
		t.Error("keys must differ across models")
	}
	if !strings.HasPrefix(ka, "quizdex:emb_cache:m1:") {
		t.Errorf("unexpected key layout %q", ka)
	}
}

func TestCacheCounter(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "cache_test_total"}, []string{"result"})
	ce := New(&fakeEmbedder{}, memory.NewStore(), Options{Model: "m"}, counter, zap.NewNop())
	ctx := context.Background()

	_, _ = ce.Embed(ctx, "x")
	_, _ = ce.Embed(ctx, "x")
	_, _ = ce.BatchEmbed(ctx, []string{"x", "y"})

	if got := testutil.ToFloat64(counter.WithLabelValues("hit")); got != 2 {
		t.Errorf("expected 2 hits, got %f", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("miss")); got != 2 {
		t.Errorf("expected 2 misses, got %f", got)
	}
}

func TestVectorEncoding(t *testing.T) {
	vec := []float32{0.25, -1.5, 3}
	got, err := decodeVector(encodeVector(vec))
	if err != nil || fmt.Sprint(got) != fmt.Sprint(vec) {
		t.Errorf("expected %v, got %v (%v)", vec, got, err)
	}
	for _, bad := range [][]byte{nil, {1, 2, 3}} {
		if _, err := decodeVector(bad); err == nil {
			t.Errorf("expected error for %v", bad)
		}
	}
}
