// Package quizdex embeds the question selection engine in a Go program.
//
// The client owns an in-process vector index built from a SQL catalog
// (SQLite or PostgreSQL). Exposure records and the embedding cache use
// Redis when configured and process memory otherwise.
//
//	client, _ := quizdex.New(ctx,
//	    quizdex.WithSQLite("file:questions.db"),
//	    quizdex.WithLocalEmbedder(256),
//	)
//	defer client.Close()
//
//	_ = client.UpsertTopic(ctx, quizdex.Topic{ID: "fractions", Description: "Adding fractions"})
//	_ = client.AddQuestion(ctx, quizdex.Question{...})
//	sel, _ := client.Select(ctx, quizdex.SelectRequest{Topics: []string{"fractions"}, Count: 5})
//
// Without a generator, requests the catalog cannot satisfy fail with
// ErrInsufficientMatches. WithOpenAIGeneration or WithGenerator enables the
// generative fallback: only the shortfall is generated, and generated
// questions are persisted and indexed for later requests.
package quizdex
