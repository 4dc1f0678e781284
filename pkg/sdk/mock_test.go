package quizdex

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/quizdex/internal/domain/question"
	"github.com/kailas-cloud/quizdex/internal/domain/topic"
	healthuc "github.com/kailas-cloud/quizdex/internal/usecase/health"
	selectionuc "github.com/kailas-cloud/quizdex/internal/usecase/selection"
	"github.com/kailas-cloud/quizdex/internal/vecindex"
)

// --- selectionUseCase mock ---

type mockSelectionUC struct {
	selectFn func(ctx context.Context, req selectionuc.Request) (selectionuc.Result, error)
}

func (m *mockSelectionUC) Select(ctx context.Context, req selectionuc.Request) (selectionuc.Result, error) {
	return m.selectFn(ctx, req)
}

// --- exposureUseCase mock ---

type mockExposureUC struct {
	recordFn func(ctx context.Context, userID string, ids []string, at time.Time) error
}

func (m *mockExposureUC) Record(ctx context.Context, userID string, ids []string, at time.Time) error {
	return m.recordFn(ctx, userID, ids, at)
}

// --- questionIndexer mock ---

type mockIndexer struct {
	embedErr error
	added    []vecindex.Entry
}

func (m *mockIndexer) EmbedQuestion(_ context.Context, q question.Question) (vecindex.Entry, error) {
	if m.embedErr != nil {
		return vecindex.Entry{}, m.embedErr
	}
	return vecindex.Entry{ID: q.ID(), Embedding: []float32{1}}, nil
}

func (m *mockIndexer) AddEntry(e vecindex.Entry) { m.added = append(m.added, e) }

// --- catalogWriter mock ---

type mockCatalog struct {
	upsertErr error
	insertErr error
	topics    []topic.Record
	inserted  []question.Question
}

func (m *mockCatalog) UpsertTopic(_ context.Context, rec topic.Record) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.topics = append(m.topics, rec)
	return nil
}

func (m *mockCatalog) InsertQuestion(_ context.Context, q question.Question) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserted = append(m.inserted, q)
	return nil
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }

// --- public collaborator fakes ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

type mockBatchEmbedder struct {
	mockEmbedder
	batchFn func(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

func (m *mockBatchEmbedder) BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	return m.batchFn(ctx, texts)
}

// fakeGenerator returns count short-answer questions with unique texts.
type fakeGenerator struct {
	calls    int
	existing []Question
	gotTopic TopicContext
}

func (g *fakeGenerator) Generate(_ context.Context, tc TopicContext, count int, existing []Question) ([]Question, error) {
	g.calls++
	g.gotTopic = tc
	g.existing = existing
	out := make([]Question, count)
	for i := range out {
		out[i] = Question{
			Text:           fmt.Sprintf("Generated question %d.%d about %s", g.calls, i, tc.ID),
			Type:           ShortAnswer,
			CorrectAnswers: []string{"answer"},
		}
	}
	return out, nil
}

type fixedScorer struct {
	score float64
	err   error
}

func (s *fixedScorer) Score(context.Context, Question, TopicContext) (float64, error) {
	return s.score, s.err
}

// --- helpers ---

func testClient() (*Client, *mockIndexer, *mockCatalog) {
	idx := &mockIndexer{}
	cat := &mockCatalog{}
	return &Client{
		indexer: idx,
		catalog: cat,
		newID:   func() string { return "generated-id" },
	}, idx, cat
}
