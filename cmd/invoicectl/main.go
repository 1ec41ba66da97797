package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/invoicedex/internal/config"
	logpkg "github.com/kailas-cloud/invoicedex/internal/logger"
	"github.com/kailas-cloud/invoicedex/internal/version"
	invoicedex "github.com/kailas-cloud/invoicedex/pkg/sdk"
)

var (
	envName string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "invoicectl",
		Short:         "invoicectl - operate an invoicedex deployment directly against its stores",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&envName, "env", "e", config.GetEnv(), "config environment (config/<env>.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log client operations to stderr")

	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(queryCmd())
	rootCmd.AddCommand(reindexCmd())
	rootCmd.AddCommand(deadLettersCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openClient builds an embedded client from the same config file the server reads.
func openClient(ctx context.Context) (*invoicedex.Client, error) {
	cfg, err := config.Load(envName)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	opts := []invoicedex.Option{
		invoicedex.WithRedisCluster(cfg.Database.Addrs, cfg.Database.Password),
		invoicedex.WithKeyPrefix(cfg.Index.KeyPrefix),
		invoicedex.WithDefaultSearchSize(cfg.Index.DefaultSize),
		invoicedex.WithDeadLetterTTL(time.Duration(cfg.Index.DeadLetterTTLHr) * time.Hour),
		invoicedex.WithIndexer(cfg.Indexer.Workers, cfg.Indexer.QueueSize, cfg.Indexer.MaxAttempts),
		invoicedex.WithReadinessTimeout(time.Duration(cfg.Database.ReadinessTimeout) * time.Second),
	}
	if cfg.Database.Store == config.StorePostgres {
		opts = append(opts, invoicedex.WithPostgres(cfg.Database.PostgresDSN))
	}
	if verbose {
		logger, err := logpkg.NewLogger(envName, "invoicectl", "debug")
		if err != nil {
			return nil, fmt.Errorf("create logger: %w", err)
		}
		opts = append(opts, invoicedex.WithLogger(logger.WithOptions(zap.AddCallerSkip(1))))
	}

	return invoicedex.New(ctx, opts...)
}

// closeClient waits for queued index writes before exiting.
func closeClient(c *invoicedex.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.Close(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
