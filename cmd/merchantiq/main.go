package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/quantrail/merchantiq/internal/config"
)

// rootOptions carries the persistent flags and the shared wiring helper.
type rootOptions struct {
	configFile string
	jsonOut    bool
}

// withApp loads configuration, wires the application and runs fn, making
// sure connections are released afterwards.
func (o *rootOptions) withApp(ctx context.Context, fn func(context.Context, *app) error) error {
	cfg, err := loadConfig(o.configFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger := newLogger(cfg)
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	return fn(ctx, a)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "merchantiq",
		Short:         "Merchant intelligence engine for cross-marketplace resale",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "path to config file (default: search standard locations)")
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "emit JSON instead of tables")

	root.AddCommand(
		newAnalyzeCommand(opts),
		newArbitrageCommand(opts),
		newBatchCommand(opts),
		newServeCommand(opts),
		newMigrateCommand(opts),
	)
	return root
}

func main() {
	// A missing .env is fine; environment variables still apply.
	_ = godotenv.Load()

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
