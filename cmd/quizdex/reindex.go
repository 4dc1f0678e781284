package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Re-embed every catalog question and report the count",
	Long: `Re-embed every catalog question.

The serving index lives in process memory, so this is mostly useful to
verify the catalog and the embedding provider, and to warm the
embedding cache before a deploy.`,
	Args: cobra.NoArgs,
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

// ReindexResult is the JSON output of reindex.
type ReindexResult struct {
	Indexed int `json:"indexed"`
}

func runReindex(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), envName)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.indexing.Rebuild(cmd.Context())
	if err != nil {
		return fmt.Errorf("reindex: %w", err)
	}
	return outputJSON(cmd.OutOrStdout(), ReindexResult{Indexed: n})
}
