package main

import (
	"fmt"

	"github.com/spf13/cobra"

	chiTransport "github.com/kailas-cloud/quizdex/internal/transport/chi"
)

var usagePeriod string

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show chat tokens spent by the generative fallback",
	Long: `Show chat tokens spent by question generation and validation in the
current UTC day or month, against the configured budget.

Counters are shared through Redis; without Redis only this process is counted.`,
	Args: cobra.NoArgs,
	RunE: runUsage,
}

func init() {
	usageCmd.Flags().StringVar(&usagePeriod, "period", "day", "day or month")
	rootCmd.AddCommand(usageCmd)
}

func runUsage(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), envName)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.usage.GetReport(cmd.Context(), usagePeriod)
	if err != nil {
		return fmt.Errorf("usage: %w", err)
	}
	return outputJSON(cmd.OutOrStdout(), chiTransport.UsageToResponse(report))
}
