package quizdex

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/quizdex/internal/domain"
	"github.com/kailas-cloud/quizdex/internal/domain/question"
	"github.com/kailas-cloud/quizdex/internal/domain/topic"
)

func TestQuestionConversion(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	in := Question{
		ID: "q1", TopicID: "t1", Text: "Pick one", Type: MultipleChoice,
		Options: []string{"a", "b"}, CorrectAnswers: []string{"a"},
		SyllabusReference: "MA5.1", DifficultyTier: 2, CreatedAt: at,
	}
	q, err := question.New(toParams(in))
	if err != nil {
		t.Fatalf("question.New: %v", err)
	}
	out := fromInternalQuestion(&q)
	if out.ID != in.ID || out.Type != MultipleChoice || out.SyllabusReference != "MA5.1" ||
		out.DifficultyTier != 2 || !out.CreatedAt.Equal(at) || len(out.Options) != 2 {
		t.Errorf("conversion lost fields: %+v", out)
	}
}

func TestTopicConversion(t *testing.T) {
	rec := toRecord(Topic{ID: "t1", Name: "Fractions", Concepts: []string{"x"}, Grade: 4, Subject: "maths"})
	if rec.ID != "t1" || rec.Grade != 4 || rec.Subject != "maths" || len(rec.Concepts) != 1 {
		t.Errorf("unexpected record %+v", rec)
	}

	tc := topic.Reconstruct("t1", "Fractions", []string{"halves"}, true)
	got := fromInternalContext(&tc)
	if got.ID != "t1" || got.Text != "Fractions" || got.Concepts[0] != "halves" || !got.Synthetic {
		t.Errorf("unexpected context %+v", got)
	}
}

func TestEmbedderAdapter(t *testing.T) {
	emb := adaptEmbedder(&mockEmbedder{fn: func(context.Context, string) (EmbeddingResult, error) {
		return EmbeddingResult{Embedding: []float32{1, 2, 3}, PromptTokens: 5, TotalTokens: 10}, nil
	}})
	if _, ok := emb.(domain.BatchEmbedder); ok {
		t.Error("plain embedder must not advertise batching")
	}

	res, err := emb.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embedding) != 3 || res.TotalTokens != 10 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestEmbedderAdapter_Error(t *testing.T) {
	inner := errors.New("provider down")
	emb := adaptEmbedder(&mockEmbedder{fn: func(context.Context, string) (EmbeddingResult, error) {
		return EmbeddingResult{}, inner
	}})
	if _, err := emb.Embed(context.Background(), "hello"); !errors.Is(err, inner) {
		t.Errorf("expected wrapped error, got %v", err)
	}
}

func TestBatchEmbedderAdapter(t *testing.T) {
	var got []string
	emb := adaptEmbedder(&mockBatchEmbedder{batchFn: func(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
		got = texts
		return BatchEmbeddingResult{Embeddings: [][]float32{{1}, {2}}, TotalTokens: 4}, nil
	}})

	res, err := domain.BatchEmbed(context.Background(), emb, []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || len(res.Embeddings) != 2 || res.TotalTokens != 4 {
		t.Errorf("native batch not used: %v %+v", got, res)
	}
}

func TestGeneratorAndScorerAdapters(t *testing.T) {
	gen := &fakeGenerator{}
	tc := topic.Reconstruct("t1", "Fractions", nil, false)
	existing := []question.Question{question.Reconstruct(question.Params{ID: "q0", Text: "old"})}

	params, err := (&generatorAdapter{inner: gen}).Generate(context.Background(), tc, 2, existing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(params) != 2 || params[0].Type != question.ShortAnswer {
		t.Errorf("unexpected params %+v", params)
	}
	if len(gen.existing) != 1 || gen.existing[0].ID != "q0" || gen.gotTopic.ID != "t1" {
		t.Errorf("inputs not converted: %+v %+v", gen.existing, gen.gotTopic)
	}

	cause := errors.New("timeout")
	_, err = (&scorerAdapter{inner: &fixedScorer{err: cause}}).Score(context.Background(), existing[0], tc)
	if !errors.Is(err, cause) {
		t.Errorf("expected scorer error, got %v", err)
	}
	score, _ := (&scorerAdapter{inner: &fixedScorer{score: 0.75}}).Score(context.Background(), existing[0], tc)
	if score != 0.75 {
		t.Errorf("expected 0.75, got %v", score)
	}
}
