package indexing

import (
	"context"

	"github.com/kailas-cloud/quizdex/internal/domain/question"
)

// Catalog loads every stored question.
type Catalog interface {
	LoadAllQuestions(ctx context.Context) ([]question.Question, error)
}

// Indexer embeds and indexes questions.
type Indexer interface {
	IndexAll(ctx context.Context, qs []question.Question) (int, error)
}
