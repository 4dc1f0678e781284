// Package main provides the quizdex server and admin CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/quizdex/internal/config"
	"github.com/kailas-cloud/quizdex/internal/version"
)

// envName selects config/<env>.yaml; defaults to $ENV.
var envName string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		stop()
		os.Exit(exitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "quizdex",
	Short: "Semantic question retrieval with generative fallback",
	Long: `quizdex serves exam questions for a set of topics.

Questions are ranked by embedding similarity to the blended topic context.
When the catalog cannot satisfy a request, the shortfall is generated,
scored for topic alignment, persisted and indexed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		// .env is optional; real environment variables take precedence.
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		if envName == "" {
			envName = config.GetEnv()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envName, "env", "", "Config environment (local, dev, prod); defaults to $ENV")
	rootCmd.Version = version.String()
}
