package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/stockcast/internal/model"
	"github.com/derickschaefer/stockcast/internal/util"
)

// ─── plan ─────────────────────────────────────────────────────────────────────

var planAll bool

var planCmd = &cobra.Command{
	Use:   "plan [ids...]",
	Short: "Compute and store reorder plans for products",
	Long: `Plan computes lead-time demand, the reorder point, stock recommendations and
anomalies for each product from its stored stock, lead time and sales
history. Every run is stored and can be listed with 'stockcast plan history'.

Products are planned concurrently (config key concurrency). A failure for one
product is reported as a warning and does not stop the rest.`,
	Example: `  stockcast plan sku-1 sku-2
  stockcast plan --all --format csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := normaliseIDs(args)
		if len(ids) == 0 && !planAll {
			return fmt.Errorf("specify product IDs or --all")
		}
		if len(ids) > 0 && planAll {
			return fmt.Errorf("--all cannot be combined with product IDs")
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		start := time.Now()
		runs, err := deps.Planner.PlanAll(cmd.Context(), ids)
		var warnings []string
		if err != nil {
			var merr *util.MultiError
			if !errors.As(err, &merr) {
				return err
			}
			for _, e := range merr.Errors {
				warnings = append(warnings, e.Error())
			}
		}
		if len(runs) == 0 && len(warnings) > 0 {
			return fmt.Errorf("no plans computed: %w", err)
		}

		result := newResult(model.KindPlan, "plan", runs, len(runs), start)
		result.Warnings = warnings
		return emit(cmd, deps, result)
	},
}

// ─── plan history ─────────────────────────────────────────────────────────────

var planHistoryLimit int

var planHistoryCmd = &cobra.Command{
	Use:     "history <id>",
	Short:   "List stored plan runs for a product, newest first",
	Example: `  stockcast plan history sku-1 --limit 5`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if planHistoryLimit < 0 {
			return fmt.Errorf("--limit must be >= 0")
		}
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		start := time.Now()
		runs, err := deps.Planner.History(args[0], planHistoryLimit)
		if err != nil {
			return err
		}
		if runs == nil {
			runs = []model.PlanRun{}
		}
		return emit(cmd, deps, newResult(model.KindPlan, "plan history", runs, len(runs), start))
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.AddCommand(planHistoryCmd)

	planCmd.Flags().BoolVar(&planAll, "all", false, "plan every stored product")
	planHistoryCmd.Flags().IntVar(&planHistoryLimit, "limit", 10, "max runs to list (0: all)")
}
