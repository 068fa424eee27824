package cmd

import (
	"github.com/spf13/cobra"

	"github.com/derickschaefer/stockcast/internal/app"
	"github.com/derickschaefer/stockcast/internal/chart"
	"github.com/derickschaefer/stockcast/internal/model"
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Chart sales history and its forecast in the terminal",
	Long: `Chart commands draw a product's recent sales followed by its forecast.
History comes from stdin (JSONL) or from the store with --product.

Pipeline examples:
  stockcast sales get sku-1 | stockcast chart bar --horizon 7
  stockcast chart plot --product sku-1 --horizon 30
  stockcast sales get sku-1 | stockcast transform resample --freq weekly | stockcast chart bar --horizon 0`,
}

// chartData is the history and forecast a chart draws.
type chartData struct {
	productID string
	history   []model.SalesObservation
	forecast  []float64
}

// loadChartData reads history and forecasts it over the resolved horizon.
// A zero horizon charts history alone.
func loadChartData(cmd *cobra.Command, deps *app.Deps, productID string, horizonFlag int) (chartData, error) {
	horizon, err := resolveHorizon(cmd, deps, horizonFlag)
	if err != nil {
		return chartData{}, err
	}
	id, obs, err := readHistory(cmd, deps, productID)
	if err != nil {
		return chartData{}, err
	}
	if id == "" {
		id = "sales"
	}
	d := chartData{productID: id, history: obs}
	if horizon > 0 {
		d.forecast = deps.Engine.ForecastHistory(obs, horizon).Forecast
	}
	return d, nil
}

// ─── chart bar ───────────────────────────────────────────────────────────────

var (
	chartBarProduct string
	chartBarHorizon int
	chartBarWidth   int
	chartBarHistory int
)

var chartBarCmd = &cobra.Command{
	Use:   "bar",
	Short: "Horizontal bar chart, one bar per day",
	Long: `Renders one bar per day: the most recent history in a solid glyph (█)
followed by the forecast in a light glyph (░). Zero-sales days draw no bar.`,
	Example: `  stockcast sales get sku-1 | stockcast chart bar
  stockcast chart bar --product sku-1 --horizon 14 --history 60`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		d, err := loadChartData(cmd, deps, chartBarProduct, chartBarHorizon)
		if err != nil {
			return err
		}
		return chart.Bar(cmd.OutOrStdout(), d.productID, d.history, d.forecast, chart.BarOptions{
			Width:       chartBarWidth,
			HistoryBars: chartBarHistory,
		})
	},
}

// ─── chart plot ──────────────────────────────────────────────────────────────

var (
	chartPlotProduct string
	chartPlotHorizon int
	chartPlotWidth   int
	chartPlotHeight  int
	chartPlotTitle   string
)

var chartPlotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Multi-line ASCII chart with labeled axes",
	Long: `Renders a line chart with Y-axis tick labels and X-axis date labels.
The forecast part of the line is dashed.`,
	Example: `  stockcast sales get sku-1 | stockcast chart plot
  stockcast chart plot --product sku-1 --horizon 60 --height 16 --title "Blue mug"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		d, err := loadChartData(cmd, deps, chartPlotProduct, chartPlotHorizon)
		if err != nil {
			return err
		}
		return chart.Plot(cmd.OutOrStdout(), d.productID, d.history, d.forecast, chart.PlotOptions{
			Width:  chartPlotWidth,
			Height: chartPlotHeight,
			Title:  chartPlotTitle,
		})
	},
}

func init() {
	rootCmd.AddCommand(chartCmd)
	chartCmd.AddCommand(chartBarCmd, chartPlotCmd)

	chartBarCmd.Flags().StringVar(&chartBarProduct, "product", "", "chart a stored product instead of stdin")
	chartBarCmd.Flags().IntVar(&chartBarHorizon, "horizon", 0, "forecast days to draw (default: horizon_days)")
	chartBarCmd.Flags().IntVar(&chartBarWidth, "width", 0, "chart width in characters (default: terminal width)")
	chartBarCmd.Flags().IntVar(&chartBarHistory, "history", chart.DefaultHistoryBars, "trailing history days to draw (-1: all)")

	chartPlotCmd.Flags().StringVar(&chartPlotProduct, "product", "", "chart a stored product instead of stdin")
	chartPlotCmd.Flags().IntVar(&chartPlotHorizon, "horizon", 0, "forecast days to draw (default: horizon_days)")
	chartPlotCmd.Flags().IntVar(&chartPlotWidth, "width", 0, "chart width in characters (default: terminal width)")
	chartPlotCmd.Flags().IntVar(&chartPlotHeight, "height", 12, "chart height in rows")
	chartPlotCmd.Flags().StringVar(&chartPlotTitle, "title", "", "chart title (default: product ID and date range)")
}
