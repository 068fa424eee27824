package cmd

import (
	"github.com/spf13/cobra"

	"github.com/derickschaefer/stockcast/internal/server"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the forecasting API over HTTP",
	Long: `Serve the forecast, demand, recommendation and planning operations over
HTTP for the merchant dashboard.

Routes:
  GET  /healthz
  GET  /metrics                        Prometheus metrics
  POST /v1/forecast                    {history, horizonDays}
  POST /v1/demand                      {history, leadTimeDays}
  POST /v1/recommendations             {currentStock, demand}
  GET  /v1/products/:id/forecast       ?horizon=N
  POST /v1/products/:id/plan
  GET  /v1/products/:id/plans          ?limit=N

/v1 routes share a token-bucket rate limit (config keys rate_limit and
rate_burst). The server shuts down gracefully on SIGINT or SIGTERM.`,
	Example: `  stockcast serve
  stockcast serve --listen 127.0.0.1:9090 --log-format json`,
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

		addr := deps.Config.ListenAddr
		if serveListen != "" {
			addr = serveListen
		}
		srv, err := server.New(server.Options{
			Planner:     deps.Planner,
			Logger:      deps.Logger,
			HorizonDays: deps.Config.HorizonDays,
			RateLimit:   deps.Config.RateLimit,
			RateBurst:   deps.Config.RateBurst,
		})
		if err != nil {
			return err
		}
		return srv.Listen(cmd.Context(), addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (default: listen_addr, env STOCKCAST_LISTEN_ADDR)")
}
