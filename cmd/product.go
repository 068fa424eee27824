package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/stockcast/internal/model"
	"github.com/derickschaefer/stockcast/internal/store"
)

var productCmd = &cobra.Command{
	Use:   "product",
	Short: "Manage products in the local store",
	Long: `A product carries the stock context a plan is computed against: units on
hand and supplier lead time. Sales history is stored separately with
'stockcast sales import'.`,
}

// ─── product set ──────────────────────────────────────────────────────────────

var (
	productTitle string
	productStock int
	productLead  int
)

var productSetCmd = &cobra.Command{
	Use:   "set <id>",
	Short: "Create or update a product",
	Long: `Create a product, or update the fields given as flags on an existing one.
Fields not passed keep their stored values.`,
	Example: `  stockcast product set sku-1 --title "Blue mug" --stock 40 --lead 7
  stockcast product set sku-1 --stock 12`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := normaliseIDs(args)
		if len(id) == 0 {
			return fmt.Errorf("product ID must not be blank")
		}
		if productStock < 0 {
			return fmt.Errorf("--stock must be >= 0")
		}
		if productLead < 0 {
			return fmt.Errorf("--lead must be >= 0")
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
		p, err := deps.Store.GetProduct(id[0])
		switch {
		case errors.Is(err, store.ErrNotFound):
			p = model.Product{ID: id[0]}
		case err != nil:
			return err
		}

		f := cmd.Flags()
		if f.Changed("title") {
			p.Title = productTitle
		}
		if f.Changed("stock") {
			p.CurrentStock = productStock
		}
		if f.Changed("lead") {
			p.LeadTimeDays = productLead
		}
		if err := deps.Store.PutProduct(p); err != nil {
			return err
		}
		if p, err = deps.Store.GetProduct(p.ID); err != nil {
			return err
		}
		return emit(cmd, deps, newResult(model.KindProduct, "product set", p, 1, start))
	},
}

// ─── product get ──────────────────────────────────────────────────────────────

var productGetCmd = &cobra.Command{
	Use:     "get <id>",
	Short:   "Show a stored product",
	Example: `  stockcast product get sku-1`,
	Args:    cobra.ExactArgs(1),
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
		p, err := deps.Store.GetProduct(args[0])
		if err != nil {
			return err
		}
		return emit(cmd, deps, newResult(model.KindProduct, "product get", p, 1, start))
	},
}

// ─── product list ─────────────────────────────────────────────────────────────

var productListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List stored products",
	Example: `  stockcast product list --format csv`,
	Args:    cobra.NoArgs,
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
		ps, err := deps.Store.ListProducts()
		if err != nil {
			return err
		}
		return emit(cmd, deps, newResult(model.KindProduct, "product list", ps, len(ps), start))
	},
}

// ─── product delete ───────────────────────────────────────────────────────────

var productDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a product and its sales history",
	Long: `Delete a product and its stored sales history. Stored plan runs are kept
so past reorder decisions stay auditable.`,
	Example: `  stockcast product delete sku-1`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		if err := deps.Store.DeleteProduct(args[0]); err != nil {
			return err
		}
		if !deps.Config.Quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted product %q\n", args[0])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(productCmd)
	productCmd.AddCommand(productSetCmd, productGetCmd, productListCmd, productDeleteCmd)

	productSetCmd.Flags().StringVar(&productTitle, "title", "", "display title")
	productSetCmd.Flags().IntVar(&productStock, "stock", 0, "units currently on hand")
	productSetCmd.Flags().IntVar(&productLead, "lead", 0, "supplier lead time in days (0: use lead_time_days)")
}
