// Package cmd implements the stockcast CLI command tree.
// This file defines the root command and registers all global persistent flags.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/stockcast/internal/app"
	"github.com/derickschaefer/stockcast/internal/config"
	"github.com/derickschaefer/stockcast/internal/render"
)

// globalFlags holds the parsed values of all persistent (global) flags.
// Commands read from this struct via the deps they receive.
var globalFlags struct {
	Format    string
	Out       string
	DB        string
	LogLevel  string
	LogFormat string
	Quiet     bool
	Verbose   bool
	Seed      uint64
	FillGaps  bool
}

// rootCmd is the base command. Running `stockcast` with no subcommand
// prints help.
var rootCmd = &cobra.Command{
	Use:   "stockcast",
	Short: "stockcast — demand forecasting and reorder planning",
	Long: `stockcast forecasts product demand from daily sales history and turns the
forecast into lead-time demand, a reorder point and stock recommendations.

Sales history is read as JSONL ({"product_id","date","quantity"}) from stdin,
or from the local store once imported.

Quick start:
  stockcast config init                          # create a config.json
  stockcast product set sku-1 --stock 40 --lead 7
  stockcast sales import < sales.jsonl           # load history into the store
  stockcast plan --all                           # reorder plan for every product
  cat sales.jsonl | stockcast forecast --horizon 14`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main. SIGINT and SIGTERM cancel the
// command context, which stops batch planning and shuts down `serve`.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// buildDeps resolves config and constructs the dependency container.
// Called at the start of each command's RunE.
func buildDeps() (*app.Deps, error) {
	cfg, err := config.Load(config.Overrides{
		DBPath:    globalFlags.DB,
		LogLevel:  globalFlags.LogLevel,
		LogFormat: globalFlags.LogFormat,
	})
	if err != nil {
		return nil, err
	}

	// Apply CLI flag overrides
	cfg.Quiet = globalFlags.Quiet
	cfg.Verbose = globalFlags.Verbose
	if rootCmd.PersistentFlags().Changed("seed") {
		cfg.Seed = globalFlags.Seed
		cfg.Seeded = true
	}
	if globalFlags.FillGaps {
		cfg.FillGaps = true
	}
	if globalFlags.Format != "" {
		cfg.Format = globalFlags.Format
	}
	if !render.ValidFormat(cfg.Format) {
		return nil, fmt.Errorf("unknown format %q (use one of %v)", cfg.Format, render.Formats)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return app.New(cfg), nil
}

func init() {
	pf := rootCmd.PersistentFlags()

	pf.StringVar(&globalFlags.Format, "format", "",
		"output format: table|json|jsonl|csv|tsv|md (default: table)")
	pf.StringVar(&globalFlags.Out, "out", "",
		"write output to file instead of stdout")
	pf.StringVar(&globalFlags.DB, "db", "",
		"path to the local database (overrides env STOCKCAST_DB_PATH and config.json)")
	pf.StringVar(&globalFlags.LogLevel, "log-level", "",
		"log level: debug|info|warn|error (default: warn)")
	pf.StringVar(&globalFlags.LogFormat, "log-format", "",
		"log format: text|json (default: text)")
	pf.BoolVar(&globalFlags.Quiet, "quiet", false,
		"suppress all non-error output")
	pf.BoolVar(&globalFlags.Verbose, "verbose", false,
		"debug logging and timing stats after output")
	pf.Uint64Var(&globalFlags.Seed, "seed", 0,
		"seed for fallback noise, making synthetic forecasts reproducible")
	pf.BoolVar(&globalFlags.FillGaps, "fill-gaps", false,
		"treat missing calendar days in history as zero sales")
}
