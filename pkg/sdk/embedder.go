package quizdex

import "context"

// Embedder converts text to vector embeddings.
// The same text must yield the same vector for the lifetime of the client.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder vectorizes multiple texts in a single call.
// Optional: if the provided Embedder also implements BatchEmbedder,
// index rebuilds use it.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult carries multiple embedding vectors and aggregate token usage.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}

// Generator proposes candidate questions for a topic. Candidates are
// validated, scored and deduplicated by the client; ids and topic ids may
// be left empty.
type Generator interface {
	Generate(ctx context.Context, tc TopicContext, count int, existing []Question) ([]Question, error)
}

// Scorer rates how well a question aligns with a topic, in [0, 1].
type Scorer interface {
	Score(ctx context.Context, q Question, tc TopicContext) (float64, error)
}
