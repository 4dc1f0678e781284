package exposure

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/quizdex/internal/domain"
	"github.com/kailas-cloud/quizdex/internal/domain/question"
)

// --- Mocks ---

// rankedRetriever returns questions in fixed rank order, honouring exclude.
type rankedRetriever struct {
	ranked []question.Question
	err    error
	calls  []map[string]struct{}
}

func (m *rankedRetriever) Retrieve(
	_ context.Context, _ []string, count int, exclude map[string]struct{},
) ([]question.Question, error) {
	m.calls = append(m.calls, exclude)
	if m.err != nil {
		return nil, m.err
	}
	out := make([]question.Question, 0, count)
	for _, q := range m.ranked {
		if _, ok := exclude[q.ID()]; ok {
			continue
		}
		out = append(out, q)
		if len(out) == count {
			return out, nil
		}
	}
	return nil, domain.NewInsufficientMatches(out, count)
}

type mockStore struct {
	seen     map[string]time.Time
	seenErr  error
	recorded []string
	at       time.Time
}

func (m *mockStore) Seen(_ context.Context, _ string) (map[string]time.Time, error) {
	return m.seen, m.seenErr
}

func (m *mockStore) Record(_ context.Context, _ string, ids []string, at time.Time) error {
	m.recorded = append(m.recorded, ids...)
	m.at = at
	return nil
}

// --- Helpers ---

func ranked(ids ...string) []question.Question {
	out := make([]question.Question, len(ids))
	for i, id := range ids {
		out[i] = question.Reconstruct(question.Params{ID: id, TopicID: "t1", Text: id})
	}
	return out
}

func seenSet(ids ...string) map[string]time.Time {
	out := make(map[string]time.Time, len(ids))
	for _, id := range ids {
		out[id] = time.Unix(1, 0)
	}
	return out
}

func questionIDs(qs []question.Question) string {
	ids := make([]string, len(qs))
	for i := range qs {
		ids[i] = qs[i].ID()
	}
	return fmt.Sprint(ids)
}

// --- Tests ---

func TestUnseenFirst_PrefersUnseen(t *testing.T) {
	// 3 seen questions rank highest; 5 unseen follow.
	r := &rankedRetriever{ranked: ranked("s1", "s2", "s3", "u1", "u2", "u3", "u4", "u5")}
	svc := New(r, &mockStore{seen: seenSet("s1", "s2", "s3")}, zap.NewNop())

	got, err := svc.UnseenFirst(context.Background(), "user", []string{"t1"}, 4, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ids := questionIDs(got); ids != "[u1 u2 u3 u4]" {
		t.Errorf("expected 4 unseen, got %s", ids)
	}
	if len(r.calls) != 1 {
		t.Errorf("seen set must not be touched, got %d retrieval calls", len(r.calls))
	}
}

func TestUnseenFirst_FallsBackToSeen(t *testing.T) {
	r := &rankedRetriever{ranked: ranked("s1", "u1", "s2", "u2", "s3")}
	svc := New(r, &mockStore{seen: seenSet("s1", "s2", "s3")}, zap.NewNop())

	got, err := svc.UnseenFirst(context.Background(), "user", []string{"t1"}, 4, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ids := questionIDs(got); ids != "[u1 u2 s1 s2]" {
		t.Errorf("expected unseen then seen by rank, got %s", ids)
	}
	if len(r.calls) != 2 {
		t.Errorf("expected 2 retrieval calls, got %d", len(r.calls))
	}
}

func TestUnseenFirst_CorpusTooSmall(t *testing.T) {
	r := &rankedRetriever{ranked: ranked("s1", "u1")}
	svc := New(r, &mockStore{seen: seenSet("s1")}, zap.NewNop())

	_, err := svc.UnseenFirst(context.Background(), "user", []string{"t1"}, 3, nil)
	var ime *domain.InsufficientMatchesError
	if !errors.As(err, &ime) {
		t.Fatalf("expected InsufficientMatchesError, got %v", err)
	}
	if ime.Found != 2 || ime.Requested != 3 || questionIDs(ime.Partial) != "[u1 s1]" {
		t.Errorf("unexpected insufficiency %+v", ime)
	}
}

func TestUnseenFirst_HonoursExclude(t *testing.T) {
	r := &rankedRetriever{ranked: ranked("s1", "x", "u1", "s2")}
	svc := New(r, &mockStore{seen: seenSet("s1", "s2")}, zap.NewNop())

	got, err := svc.UnseenFirst(context.Background(), "user", []string{"t1"}, 3, map[string]struct{}{"x": {}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ids := questionIDs(got); ids != "[u1 s1 s2]" {
		t.Errorf("expected [u1 s1 s2], got %s", ids)
	}
}

func TestUnseenFirst_NoHistory(t *testing.T) {
	r := &rankedRetriever{ranked: ranked("a", "b")}
	svc := New(r, &mockStore{}, zap.NewNop())

	got, err := svc.UnseenFirst(context.Background(), "new-user", []string{"t1"}, 2, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || len(r.calls) != 1 {
		t.Errorf("expected plain retrieval, got %d questions, %d calls", len(got), len(r.calls))
	}
}

func TestUnseenFirst_Errors(t *testing.T) {
	t.Run("store", func(t *testing.T) {
		cause := errors.New("redis down")
		svc := New(&rankedRetriever{}, &mockStore{seenErr: cause}, zap.NewNop())
		if _, err := svc.UnseenFirst(context.Background(), "u", []string{"t1"}, 1, nil); !errors.Is(err, cause) {
			t.Errorf("expected store error, got %v", err)
		}
	})

	t.Run("retriever", func(t *testing.T) {
		r := &rankedRetriever{err: domain.NewProviderError("embed", nil)}
		svc := New(r, &mockStore{seen: seenSet("a")}, zap.NewNop())
		_, err := svc.UnseenFirst(context.Background(), "u", []string{"t1"}, 1, nil)
		if !errors.Is(err, domain.ErrProviderError) {
			t.Errorf("expected provider error, got %v", err)
		}
		if len(r.calls) != 1 {
			t.Errorf("provider failure must not trigger second pass, got %d calls", len(r.calls))
		}
	})
}

func TestRecord(t *testing.T) {
	store := &mockStore{}
	svc := New(&rankedRetriever{}, store, zap.NewNop())
	fixed := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	if err := svc.Record(context.Background(), "u", []string{"a", " ", "b"}, time.Time{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fmt.Sprint(store.recorded) != "[a b]" {
		t.Errorf("expected [a b], got %v", store.recorded)
	}
	if !store.at.Equal(fixed) {
		t.Errorf("expected default timestamp, got %v", store.at)
	}
}

func TestRecord_Validation(t *testing.T) {
	store := &mockStore{}
	svc := New(&rankedRetriever{}, store, zap.NewNop())

	if err := svc.Record(context.Background(), "", []string{"a"}, time.Time{}); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
	if err := svc.Record(context.Background(), "u", nil, time.Time{}); err != nil {
		t.Errorf("empty ids should be a no-op, got %v", err)
	}
	if len(store.recorded) != 0 {
		t.Error("nothing should be recorded")
	}
}
