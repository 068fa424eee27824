package cmd

import (
	"github.com/spf13/cobra"

	"github.com/derickschaefer/stockcast/internal/model"
	"github.com/derickschaefer/stockcast/internal/transform"
)

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Transform sales history (reads JSONL from stdin)",
	Long: `Transform operators read one product's JSONL sales from stdin and write
JSONL to stdout, so they chain with each other and with forecast.

Pipeline example:
  stockcast sales get sku-1 | stockcast transform fill-gaps | stockcast forecast
  stockcast sales get sku-1 | stockcast transform resample --freq weekly | stockcast chart`,
}

// ─── fill-gaps ────────────────────────────────────────────────────────────────

var transformFillGapsCmd = &cobra.Command{
	Use:     "fill-gaps",
	Short:   "Insert zero-sales rows for missing calendar days",
	Example: `  stockcast sales get sku-1 | stockcast transform fill-gaps`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		productID, obs, err := readStdinHistory(cmd)
		if err != nil {
			return err
		}
		out, err := transform.FillGaps(obs)
		if err != nil {
			return err
		}
		return writeSalesOutput(cmd, "transform fill-gaps", productID, out)
	},
}

// ─── resample ─────────────────────────────────────────────────────────────────

var (
	transformResampleFreq   string
	transformResampleMethod string
)

var transformResampleCmd = &cobra.Command{
	Use:   "resample",
	Short: "Aggregate daily sales into weekly or monthly buckets",
	Long: `Aggregate sales into weekly (ISO weeks, starting Monday) or monthly
buckets. Each output row is dated at its bucket start.`,
	Example: `  stockcast sales get sku-1 | stockcast transform resample --freq weekly
  stockcast sales get sku-1 | stockcast transform resample --freq monthly --method mean`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		productID, obs, err := readStdinHistory(cmd)
		if err != nil {
			return err
		}
		out, err := transform.Resample(obs,
			transform.ResampleFreq(transformResampleFreq),
			transform.ResampleMethod(transformResampleMethod))
		if err != nil {
			return err
		}
		return writeSalesOutput(cmd, "transform resample", productID, out)
	},
}

// ─── roll ─────────────────────────────────────────────────────────────────────

var (
	transformRollWindow int
	transformRollStat   string
)

var transformRollCmd = &cobra.Command{
	Use:   "roll",
	Short: "Trailing rolling-window statistic",
	Example: `  stockcast sales get sku-1 | stockcast transform roll --window 7
  stockcast sales get sku-1 | stockcast transform roll --window 28 --stat sum`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		productID, obs, err := readStdinHistory(cmd)
		if err != nil {
			return err
		}
		out, err := transform.Roll(obs, transformRollWindow, transform.RollStat(transformRollStat))
		if err != nil {
			return err
		}
		return writeSalesOutput(cmd, "transform roll", productID, out)
	},
}

// ─── filter ───────────────────────────────────────────────────────────────────

var transformFilterAfter, transformFilterBefore string

var transformFilterCmd = &cobra.Command{
	Use:     "filter",
	Short:   "Keep rows inside a date window",
	Example: `  stockcast sales get sku-1 | stockcast transform filter --after 2025-01-01 --before 2025-04-01`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := parseWindow(transformFilterAfter, transformFilterBefore)
		if err != nil {
			return err
		}
		productID, obs, err := readStdinHistory(cmd)
		if err != nil {
			return err
		}
		return writeSalesOutput(cmd, "transform filter", productID, transform.Filter(obs, opts))
	},
}

// readStdinHistory reads one product's JSONL history from stdin.
func readStdinHistory(cmd *cobra.Command) (string, []model.SalesObservation, error) {
	return readHistory(cmd, nil, "")
}

func init() {
	rootCmd.AddCommand(transformCmd)
	transformCmd.AddCommand(transformFillGapsCmd, transformResampleCmd, transformRollCmd, transformFilterCmd)

	transformResampleCmd.Flags().StringVar(&transformResampleFreq, "freq", "weekly", "weekly|monthly")
	transformResampleCmd.Flags().StringVar(&transformResampleMethod, "method", "sum", "sum|mean")

	transformRollCmd.Flags().IntVar(&transformRollWindow, "window", 7, "window length in rows")
	transformRollCmd.Flags().StringVar(&transformRollStat, "stat", "mean", "mean|sum|max")

	transformFilterCmd.Flags().StringVar(&transformFilterAfter, "after", "", "keep rows dated after YYYY-MM-DD")
	transformFilterCmd.Flags().StringVar(&transformFilterBefore, "before", "", "keep rows dated before YYYY-MM-DD")
}
