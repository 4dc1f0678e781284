package quizdex

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/quizdex/internal/domain"
	"github.com/kailas-cloud/quizdex/internal/domain/question"
	"github.com/kailas-cloud/quizdex/internal/domain/topic"
)

func toParams(q Question) question.Params {
	return question.Params{
		ID:                q.ID,
		TopicID:           q.TopicID,
		Text:              q.Text,
		Type:              question.Type(q.Type),
		Options:           q.Options,
		CorrectAnswers:    q.CorrectAnswers,
		SyllabusReference: q.SyllabusReference,
		DifficultyTier:    q.DifficultyTier,
		CreatedAt:         q.CreatedAt,
	}
}

func fromInternalQuestion(q *question.Question) Question {
	return Question{
		ID:                q.ID(),
		TopicID:           q.TopicID(),
		Text:              q.Text(),
		Type:              QuestionType(q.Type()),
		Options:           q.Options(),
		CorrectAnswers:    q.CorrectAnswers(),
		SyllabusReference: q.SyllabusReference(),
		DifficultyTier:    q.DifficultyTier(),
		CreatedAt:         q.CreatedAt(),
	}
}

func fromInternalQuestions(qs []question.Question) []Question {
	out := make([]Question, len(qs))
	for i := range qs {
		out[i] = fromInternalQuestion(&qs[i])
	}
	return out
}

func toRecord(t Topic) topic.Record {
	return topic.Record{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Concepts:    t.Concepts,
		Curriculum:  t.Curriculum,
		Grade:       t.Grade,
		Subject:     t.Subject,
	}
}

func fromInternalContext(tc *topic.Context) TopicContext {
	return TopicContext{
		ID:        tc.TopicID(),
		Text:      tc.DescriptiveText(),
		Concepts:  tc.RelatedConcepts(),
		Synthetic: tc.Synthetic(),
	}
}

// embedderAdapter wraps a public Embedder to satisfy domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// batchEmbedderAdapter also forwards native batching.
type batchEmbedderAdapter struct {
	embedderAdapter
	batch BatchEmbedder
}

func (a *batchEmbedderAdapter) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	r, err := a.batch.BatchEmbed(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   r.Embeddings,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

func adaptEmbedder(e Embedder) domain.Embedder {
	if be, ok := e.(BatchEmbedder); ok {
		return &batchEmbedderAdapter{embedderAdapter: embedderAdapter{inner: e}, batch: be}
	}
	return &embedderAdapter{inner: e}
}

// generatorAdapter wraps a public Generator for the fallback orchestrator.
type generatorAdapter struct {
	inner Generator
}

func (a *generatorAdapter) Generate(
	ctx context.Context, tc topic.Context, count int, existing []question.Question,
) ([]question.Params, error) {
	out, err := a.inner.Generate(ctx, fromInternalContext(&tc), count, fromInternalQuestions(existing))
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	params := make([]question.Params, len(out))
	for i, q := range out {
		params[i] = toParams(q)
	}
	return params, nil
}

// scorerAdapter wraps a public Scorer for the fallback orchestrator.
type scorerAdapter struct {
	inner Scorer
}

func (a *scorerAdapter) Score(ctx context.Context, q question.Question, tc topic.Context) (float64, error) {
	score, err := a.inner.Score(ctx, fromInternalQuestion(&q), fromInternalContext(&tc))
	if err != nil {
		return 0, fmt.Errorf("score: %w", err)
	}
	return score, nil
}
