package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantrail/merchantiq/internal/api"
	"github.com/quantrail/merchantiq/internal/config"
	"github.com/quantrail/merchantiq/internal/report"
	"github.com/quantrail/merchantiq/internal/store"
)

// newAnalyzeCommand evaluates a single ASIN on one marketplace.
func newAnalyzeCommand(opts *rootOptions) *cobra.Command {
	var marketplace, category string

	cmd := &cobra.Command{
		Use:   "analyze <asin>",
		Short: "Evaluate resale economics for an ASIN on one marketplace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				rep, err := a.engine().Evaluator.EvaluateMarket(ctx, args[0], marketplace, category)
				if err != nil {
					return err
				}
				if opts.jsonOut {
					return report.WriteJSON(cmd.OutOrStdout(), rep)
				}
				report.WriteMarketReport(cmd.OutOrStdout(), rep)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&marketplace, "marketplace", "m", "us", "marketplace to evaluate")
	cmd.Flags().StringVarP(&category, "category", "c", config.GenericCategory, "fee category")
	return cmd
}

// newArbitrageCommand ranks buy/sell marketplace pairs for an ASIN.
func newArbitrageCommand(opts *rootOptions) *cobra.Command {
	var marketplaces []string
	var category string

	cmd := &cobra.Command{
		Use:   "arbitrage <asin>",
		Short: "Rank cross-marketplace opportunities for an ASIN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				targets := marketplaces
				if len(targets) == 0 {
					targets = a.cfgStore.Snapshot().Marketplaces.Enabled
				}
				run, err := a.engine().Matcher.FindOpportunities(ctx, args[0], targets, category)
				if err != nil {
					return err
				}
				if opts.jsonOut {
					return report.WriteJSON(cmd.OutOrStdout(), run)
				}
				report.WriteArbitrageRun(cmd.OutOrStdout(), run)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&marketplaces, "marketplaces", "m", nil, "marketplaces to consider (default: all enabled)")
	cmd.Flags().StringVarP(&category, "category", "c", config.GenericCategory, "fee category")
	return cmd
}

// newBatchCommand evaluates many ASINs on one marketplace, skipping the
// ones that cannot be evaluated instead of aborting the run.
func newBatchCommand(opts *rootOptions) *cobra.Command {
	var marketplace, category, file string

	cmd := &cobra.Command{
		Use:   "batch [asin...]",
		Short: "Evaluate a list of ASINs on one marketplace",
		RunE: func(cmd *cobra.Command, args []string) error {
			asins := args
			if file != "" {
				fromFile, err := readASINFile(file)
				if err != nil {
					return err
				}
				asins = append(asins, fromFile...)
			}
			if len(asins) == 0 {
				return fmt.Errorf("no ASINs given: pass them as arguments or via --file")
			}

			return opts.withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				result, err := a.engine().Evaluator.EvaluateBatch(ctx, asins, marketplace, category)
				if err != nil {
					return err
				}
				if opts.jsonOut {
					return report.WriteJSON(cmd.OutOrStdout(), result)
				}
				report.WriteBatchResult(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&marketplace, "marketplace", "m", "us", "marketplace to evaluate")
	cmd.Flags().StringVarP(&category, "category", "c", config.GenericCategory, "fee category")
	cmd.Flags().StringVarP(&file, "file", "f", "", "file with one ASIN per line")
	return cmd
}

// newServeCommand runs the HTTP API until interrupted. The configuration
// file is watched so threshold changes apply without a restart.
func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				cfg := a.cfgStore.Snapshot()
				if opts.configFile != "" {
					a.cfgStore.Watch(opts.configFile, a.logger)
				}

				handler := api.NewHandler(a.cfgStore, a.repo, a.logger)
				server := api.NewServer(cfg.Server, handler, a.logger)

				errCh := make(chan error, 1)
				go func() { errCh <- server.Start() }()

				quit := make(chan os.Signal, 1)
				signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

				select {
				case err := <-errCh:
					return err
				case sig := <-quit:
					a.logger.WithField("signal", sig.String()).Info("Shutting down")
				case <-ctx.Done():
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			})
		},
	}
}

// newMigrateCommand creates the snapshot tables.
func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				if err := store.NewRepository(a.db.Pool).Migrate(ctx); err != nil {
					return err
				}
				a.logger.Info("Schema is up to date")
				return nil
			})
		},
	}
}

func readASINFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ASIN file: %w", err)
	}
	var asins []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		asins = append(asins, line)
	}
	return asins, nil
}
