package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/stockcast/internal/analyze"
	"github.com/derickschaefer/stockcast/internal/app"
	"github.com/derickschaefer/stockcast/internal/model"
	"github.com/derickschaefer/stockcast/internal/pipeline"
	"github.com/derickschaefer/stockcast/internal/store"
	"github.com/derickschaefer/stockcast/internal/transform"
	"github.com/derickschaefer/stockcast/internal/util"
)

var salesCmd = &cobra.Command{
	Use:   "sales",
	Short: "Import, export and summarise sales history",
	Long: `Sales history is stored per product as daily unit sales.

JSONL rows look like:
  {"product_id":"sku-1","date":"2025-03-01","quantity":12}

"sales" is accepted in place of "quantity", and "date" may be omitted for
undated history, which is positioned by input order.`,
}

// ─── sales import ─────────────────────────────────────────────────────────────

var (
	salesImportProduct string
	salesImportReplace bool
)

var salesImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import JSONL sales from stdin into the store",
	Long: `Import JSONL sales rows from stdin. Rows may span several products.

By default rows are merged into stored history: a dated row replaces the
stored row for the same day and undated rows are appended. --replace
overwrites each product's history instead.

Products that do not exist yet are created with zero stock.`,
	Example: `  stockcast sales import < sales.jsonl
  cat history.jsonl | stockcast sales import --product sku-1 --replace`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		start := time.Now()
		groups, err := pipeline.ReadSales(cmd.InOrStdin())
		if err != nil {
			return err
		}
		groups, err = assignProduct(groups, salesImportProduct)
		if err != nil {
			return err
		}

		table := model.Table{Columns: []string{"product_id", "imported", "stored"}}
		var warnings []string
		for _, g := range groups {
			if _, err := deps.Store.GetProduct(g.ProductID); errors.Is(err, store.ErrNotFound) {
				if err := deps.Store.PutProduct(model.Product{ID: g.ProductID}); err != nil {
					return err
				}
				warnings = append(warnings, fmt.Sprintf("%s: created product with zero stock", g.ProductID))
			} else if err != nil {
				return err
			}

			stored := len(g.Obs)
			if salesImportReplace {
				err = deps.Store.PutSales(g.ProductID, g.Obs)
			} else {
				stored, err = deps.Store.AppendSales(g.ProductID, g.Obs)
			}
			if err != nil {
				return err
			}
			deps.Logger.WithField("product_id", g.ProductID).WithField("rows", len(g.Obs)).Debug("sales imported")
			table.Rows = append(table.Rows, []string{g.ProductID, strconv.Itoa(len(g.Obs)), strconv.Itoa(stored)})
		}

		result := newResult(model.KindTable, "sales import", table, len(table.Rows), start)
		result.Warnings = warnings
		return emit(cmd, deps, result)
	},
}

// assignProduct gives rows without a product_id to productID. Rows that name
// another product are rejected when productID is set.
func assignProduct(groups []model.SalesData, productID string) ([]model.SalesData, error) {
	if productID == "" {
		for _, g := range groups {
			if g.ProductID == "" {
				return nil, errors.New("rows without product_id: pass --product to assign them")
			}
		}
		return groups, nil
	}
	var obs []model.SalesObservation
	for _, g := range groups {
		if g.ProductID != "" && g.ProductID != productID {
			return nil, fmt.Errorf("input holds rows for %s but --product is %s", g.ProductID, productID)
		}
		obs = append(obs, g.Obs...)
	}
	return []model.SalesData{{ProductID: productID, Obs: obs}}, nil
}

// ─── sales get ────────────────────────────────────────────────────────────────

var salesGetAfter, salesGetBefore string

var salesGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print a product's stored sales history",
	Long: `Print stored sales history. Output is JSONL when piped, so it feeds
straight into forecast, transform and chart.`,
	Example: `  stockcast sales get sku-1
  stockcast sales get sku-1 --after 2025-01-01 | stockcast forecast`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := parseWindow(salesGetAfter, salesGetBefore)
		if err != nil {
			return err
		}
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		id, obs, err := readHistory(cmd, deps, args[0])
		if err != nil {
			return err
		}

		if !opts.After.IsZero() || !opts.Before.IsZero() {
			obs = transform.Filter(obs, opts)
		}
		return writeSalesOutput(cmd, "sales get", id, obs)
	},
}

// parseWindow parses optional --after/--before dates.
func parseWindow(after, before string) (transform.FilterOptions, error) {
	var opts transform.FilterOptions
	var err error
	if after != "" {
		if opts.After, err = util.ParseDate(after); err != nil {
			return opts, fmt.Errorf("--after: %w", err)
		}
	}
	if before != "" {
		if opts.Before, err = util.ParseDate(before); err != nil {
			return opts, fmt.Errorf("--before: %w", err)
		}
	}
	return opts, nil
}

// ─── sales summary ────────────────────────────────────────────────────────────

var salesSummaryAll bool

var salesSummaryCmd = &cobra.Command{
	Use:   "summary [ids...]",
	Short: "Descriptive statistics of sales history",
	Long: `Count, zero-sales days, mean, spread, quartiles, total units and the
dated span of each product's history.

With IDs (or --all) the stored history is summarised; otherwise JSONL is read
from stdin and every product in it is summarised.`,
	Example: `  stockcast sales summary sku-1 sku-2
  stockcast sales summary --all --format csv
  cat sales.jsonl | stockcast sales summary`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		start := time.Now()
		groups, err := salesGroups(cmd, deps, args, salesSummaryAll)
		if err != nil {
			return err
		}
		out := make([]analyze.Summary, len(groups))
		for i, g := range groups {
			out[i] = analyze.Summarize(g.ProductID, g.Obs)
		}
		return emit(cmd, deps, newResult(model.KindSummary, "sales summary", out, len(out), start))
	},
}

// salesGroups loads the histories a batch command works on: stored history
// for ids (every stored product with all), otherwise stdin.
func salesGroups(cmd *cobra.Command, deps *app.Deps, ids []string, all bool) ([]model.SalesData, error) {
	ids = normaliseIDs(ids)
	if len(ids) == 0 && !all {
		return pipeline.ReadSales(cmd.InOrStdin())
	}
	if err := deps.RequireStore(); err != nil {
		return nil, err
	}

	if all {
		prods, err := deps.Store.ListProducts()
		if err != nil {
			return nil, err
		}
		ids = ids[:0]
		for _, p := range prods {
			ids = append(ids, p.ID)
		}
	}
	out := make([]model.SalesData, 0, len(ids))
	for _, id := range ids {
		if _, err := deps.Store.GetProduct(id); err != nil {
			return nil, err
		}
		obs, err := deps.Store.GetSales(id)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		out = append(out, model.SalesData{ProductID: id, Obs: obs})
	}
	return out, nil
}

// ─── sales velocity ───────────────────────────────────────────────────────────

var (
	salesVelocityProduct string
	salesVelocityMethod  string
)

var salesVelocityCmd = &cobra.Command{
	Use:   "velocity",
	Short: "Sales velocity: fitted slope in units per day",
	Long: `Fit a line to sales history and report the slope per day and per week,
R² and a direction. Direction is increasing or decreasing when the weekly
slope moves more than 5% of mean daily sales.

Methods:
  linear      ordinary least squares (default)
  theil-sen   median of pairwise slopes, robust to promotion spikes`,
	Example: `  cat sales.jsonl | stockcast sales velocity
  stockcast sales velocity --product sku-1 --method theil-sen`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		method, err := analyze.ParseVelocityMethod(salesVelocityMethod)
		if err != nil {
			return err
		}
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		start := time.Now()
		id, obs, err := readHistory(cmd, deps, salesVelocityProduct)
		if err != nil {
			return err
		}
		v, err := analyze.Velocity(id, obs, method)
		if err != nil {
			return err
		}
		return emit(cmd, deps, newResult(model.KindVelocity, "sales velocity", v, 1, start))
	},
}

func init() {
	rootCmd.AddCommand(salesCmd)
	salesCmd.AddCommand(salesImportCmd, salesGetCmd, salesSummaryCmd, salesVelocityCmd)

	salesImportCmd.Flags().StringVar(&salesImportProduct, "product", "", "assign rows to this product")
	salesImportCmd.Flags().BoolVar(&salesImportReplace, "replace", false, "replace stored history instead of merging")

	salesGetCmd.Flags().StringVar(&salesGetAfter, "after", "", "only rows dated after YYYY-MM-DD")
	salesGetCmd.Flags().StringVar(&salesGetBefore, "before", "", "only rows dated before YYYY-MM-DD")

	salesSummaryCmd.Flags().BoolVar(&salesSummaryAll, "all", false, "summarise every stored product")

	salesVelocityCmd.Flags().StringVar(&salesVelocityProduct, "product", "", "use a stored product instead of stdin")
	salesVelocityCmd.Flags().StringVar(&salesVelocityMethod, "method", "linear", "linear|theil-sen")
}
