package main

import (
	"fmt"

	"github.com/spf13/cobra"

	chiTransport "github.com/kailas-cloud/quizdex/internal/transport/chi"
	selectionuc "github.com/kailas-cloud/quizdex/internal/usecase/selection"
)

var (
	selectTopics  []string
	selectCount   int
	selectExclude []string
	selectUser    string
)

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Select questions for topics and print them as JSON",
	Long: `Select questions for one or more topics.

Runs the same pipeline as POST /api/v1/selections against a freshly built
index. Generated questions are persisted, so later runs retrieve them.`,
	Args: cobra.NoArgs,
	RunE: runSelect,
}

func init() {
	selectCmd.Flags().StringSliceVar(&selectTopics, "topics", nil, "Topic ids (comma separated or repeated)")
	selectCmd.Flags().IntVar(&selectCount, "count", 10, "Number of questions")
	selectCmd.Flags().StringSliceVar(&selectExclude, "exclude", nil, "Question ids to leave out")
	selectCmd.Flags().StringVar(&selectUser, "user", "", "Prefer questions this user has not seen")
	_ = selectCmd.MarkFlagRequired("topics")
	rootCmd.AddCommand(selectCmd)
}

func runSelect(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, envName)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.indexing.Rebuild(ctx); err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	res, err := a.selection.Select(ctx, selectionuc.Request{
		Topics:  selectTopics,
		Count:   selectCount,
		Exclude: selectExclude,
		UserID:  selectUser,
	})
	if err != nil {
		return fmt.Errorf("select: %w", err)
	}
	return outputJSON(cmd.OutOrStdout(), chiTransport.SelectionToResponse(res))
}
