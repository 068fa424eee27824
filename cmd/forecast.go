package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/stockcast/internal/app"
	"github.com/derickschaefer/stockcast/internal/forecast"
	"github.com/derickschaefer/stockcast/internal/model"
)

// ─── forecast ─────────────────────────────────────────────────────────────────

var (
	forecastProduct string
	forecastHorizon int
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Forecast daily demand for one product",
	Long: `Fit an order-5 autoregressive model to a product's daily sales and project
it forward. History comes from stdin (JSONL) or from the store with --product.

Histories shorter than min_history are replaced by a synthetic weekly pattern
and flagged synthetic. When the model cannot be fitted a mock forecast is
returned with method "mock".`,
	Example: `  cat sales.jsonl | stockcast forecast --horizon 14
  stockcast forecast --product sku-1 --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		horizon, err := resolveHorizon(cmd, deps, forecastHorizon)
		if err != nil {
			return err
		}

		start := time.Now()
		var res model.ForecastResult
		if forecastProduct != "" {
			if err := deps.RequireStore(); err != nil {
				return err
			}
			res, err = deps.Planner.Forecast(cmd.Context(), forecastProduct, horizon)
			if err != nil {
				return fmt.Errorf("forecast %s: %w", forecastProduct, err)
			}
		} else {
			_, obs, err := readHistory(cmd, deps, "")
			if err != nil {
				return err
			}
			res = deps.Engine.ForecastHistory(obs, horizon)
		}

		result := newResult(model.KindForecast, "forecast", res, len(res.Forecast), start)
		if res.Synthetic {
			result.Warnings = append(result.Warnings, "history too short: forecast is based on a synthetic series")
		}
		if res.Method == model.MethodMock {
			result.Warnings = append(result.Warnings, "model could not be fitted: mock forecast returned")
		}
		return emit(cmd, deps, result)
	},
}

// resolveHorizon applies the configured default when the flag is unset and
// bounds the result.
func resolveHorizon(cmd *cobra.Command, deps *app.Deps, flag int) (int, error) {
	h := deps.Config.HorizonDays
	if cmd.Flags().Changed("horizon") {
		h = flag
	}
	if h < 0 || h > forecast.MaxHorizonDays {
		return 0, fmt.Errorf("--horizon must be between 0 and %d days", forecast.MaxHorizonDays)
	}
	return h, nil
}

// ─── demand ───────────────────────────────────────────────────────────────────

var (
	demandProduct string
	demandLead    int
)

var demandCmd = &cobra.Command{
	Use:   "demand",
	Short: "Total lead-time demand and reorder point",
	Long: `Forecast demand over the lead time and derive the reorder point
(average daily demand × lead time × safety stock multiplier).

With --product the product's stored lead time applies unless --lead is set.`,
	Example: `  cat sales.jsonl | stockcast demand --lead 10
  stockcast demand --product sku-1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		start := time.Now()
		d, err := demandFor(cmd, deps, demandProduct, demandLead)
		if err != nil {
			return err
		}
		return emit(cmd, deps, newResult(model.KindDemand, "demand", d, 1, start))
	},
}

// leadTimeFor picks the lead time: an explicit --lead, then the product's
// own, then the configured default.
func leadTimeFor(cmd *cobra.Command, deps *app.Deps, productID string, flag int) (int, error) {
	if cmd.Flags().Changed("lead") {
		if flag < 1 {
			return 0, fmt.Errorf("--lead must be >= 1")
		}
		return flag, nil
	}
	if productID != "" {
		p, err := deps.Store.GetProduct(productID)
		if err != nil {
			return 0, err
		}
		if p.LeadTimeDays > 0 {
			return p.LeadTimeDays, nil
		}
	}
	return deps.Config.LeadTimeDays, nil
}

func demandFor(cmd *cobra.Command, deps *app.Deps, productID string, lead int) (model.DemandForecast, error) {
	_, obs, err := readHistory(cmd, deps, productID)
	if err != nil {
		return model.DemandForecast{}, err
	}
	lt, err := leadTimeFor(cmd, deps, productID, lead)
	if err != nil {
		return model.DemandForecast{}, err
	}
	return deps.Engine.CalculateDemandForecast(obs, lt), nil
}

// ─── recommend ────────────────────────────────────────────────────────────────

var (
	recommendProduct string
	recommendLead    int
	recommendStock   int
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Stock recommendations from current stock and lead-time demand",
	Long: `Compare current stock against the reorder point and recent trend.

Rules:
  stock below reorder point   reorder (high)
  trend increasing            stock_up (medium)
  trend decreasing            reduce_stock (low)

Stdin input requires --stock. With --product the stored stock applies unless
--stock is set.`,
	Example: `  cat sales.jsonl | stockcast recommend --stock 25
  stockcast recommend --product sku-1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if recommendProduct == "" && !cmd.Flags().Changed("stock") {
			return fmt.Errorf("--stock is required when reading history from stdin")
		}
		if recommendStock < 0 {
			return fmt.Errorf("--stock must be >= 0")
		}
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		start := time.Now()
		d, err := demandFor(cmd, deps, recommendProduct, recommendLead)
		if err != nil {
			return err
		}
		stock := recommendStock
		if recommendProduct != "" && !cmd.Flags().Changed("stock") {
			p, err := deps.Store.GetProduct(recommendProduct)
			if err != nil {
				return err
			}
			stock = p.CurrentStock
		}
		recs := forecast.GenerateStockRecommendations(stock, d)
		return emit(cmd, deps, newResult(model.KindRecommendations, "recommend", recs, len(recs), start))
	},
}

// ─── anomalies ────────────────────────────────────────────────────────────────

var (
	anomaliesProduct   string
	anomaliesThreshold float64
)

var anomaliesCmd = &cobra.Command{
	Use:   "anomalies",
	Short: "Flag sales days whose z-score exceeds a threshold",
	Example: `  cat sales.jsonl | stockcast anomalies
  stockcast anomalies --product sku-1 --threshold 3`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		start := time.Now()
		_, obs, err := readHistory(cmd, deps, anomaliesProduct)
		if err != nil {
			return err
		}

		found := []model.Anomaly{}
		ts := deps.Engine.Preparer().Prepare(obs)
		var warnings []string
		if ts.Synthetic {
			warnings = append(warnings, "history too short: no anomalies computed")
		} else {
			found = forecast.DetectAnomalies(ts, anomaliesThreshold)
		}
		result := newResult(model.KindAnomalies, "anomalies", found, len(found), start)
		result.Warnings = warnings
		return emit(cmd, deps, result)
	},
}

func init() {
	rootCmd.AddCommand(forecastCmd, demandCmd, recommendCmd, anomaliesCmd)

	forecastCmd.Flags().StringVar(&forecastProduct, "product", "", "forecast a stored product instead of stdin")
	forecastCmd.Flags().IntVar(&forecastHorizon, "horizon", 0, "days to forecast (default: horizon_days)")

	demandCmd.Flags().StringVar(&demandProduct, "product", "", "use a stored product instead of stdin")
	demandCmd.Flags().IntVar(&demandLead, "lead", 0, "lead time in days (default: product or lead_time_days)")

	recommendCmd.Flags().StringVar(&recommendProduct, "product", "", "use a stored product instead of stdin")
	recommendCmd.Flags().IntVar(&recommendLead, "lead", 0, "lead time in days (default: product or lead_time_days)")
	recommendCmd.Flags().IntVar(&recommendStock, "stock", 0, "units currently on hand")

	anomaliesCmd.Flags().StringVar(&anomaliesProduct, "product", "", "use a stored product instead of stdin")
	anomaliesCmd.Flags().Float64Var(&anomaliesThreshold, "threshold", forecast.DefaultAnomalyZ, "z-score threshold")
}
