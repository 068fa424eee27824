// Package server exposes the planner over HTTP for the merchant dashboard.
package server

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/derickschaefer/stockcast/internal/forecast"
	"github.com/derickschaefer/stockcast/internal/logging"
	"github.com/derickschaefer/stockcast/internal/metrics"
	"github.com/derickschaefer/stockcast/internal/model"
	"github.com/derickschaefer/stockcast/internal/pipeline"
	"github.com/derickschaefer/stockcast/internal/planner"
	"github.com/derickschaefer/stockcast/internal/store"
)

const (
	defaultHorizonDays = 30
	defaultBodyLimit   = 4 << 20
	defaultSweepEvery  = time.Minute
	shutdownTimeout    = 10 * time.Second
)

// Options configures a Server. Planner is required.
type Options struct {
	Planner *planner.Planner
	Logger  *logrus.Logger

	// HorizonDays applies when a request omits its horizon.
	HorizonDays int
	// RateLimit is requests per second across /v1; 0 disables limiting.
	RateLimit float64
	RateBurst int
	BodyLimit int
	// SweepInterval is how often Listen drops expired cached forecasts
	// (default one minute).
	SweepInterval time.Duration
}

// Server is the fiber application plus the collaborators its handlers use.
type Server struct {
	app     *fiber.App
	planner *planner.Planner
	metrics *metrics.Metrics
	log     *logrus.Logger
	limiter *rate.Limiter
	horizon int
	sweep   time.Duration
}

// New builds the application and registers every route.
func New(opts Options) (*Server, error) {
	if opts.Planner == nil {
		return nil, errors.New("server: planner is required")
	}
	s := &Server{
		planner: opts.Planner,
		metrics: opts.Planner.Metrics(),
		log:     opts.Logger,
		horizon: opts.HorizonDays,
		sweep:   opts.SweepInterval,
	}
	if s.sweep <= 0 {
		s.sweep = defaultSweepEvery
	}
	if s.log == nil {
		s.log = logging.Discard()
	}
	if s.horizon <= 0 {
		s.horizon = defaultHorizonDays
	}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	bodyLimit := opts.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = defaultBodyLimit
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "stockcast",
		DisableStartupMessage: true,
		BodyLimit:             bodyLimit,
		ErrorHandler:          s.errorHandler,
	})
	s.routes()
	return s, nil
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) routes() {
	s.app.Use(s.requestLogger)

	s.app.Get("/healthz", s.handleHealthz)
	s.app.Get("/metrics", adaptor.HTTPHandler(s.metrics.Handler()))

	v1 := s.app.Group("/v1", s.rateLimit)
	v1.Post("/forecast", s.handleForecast)
	v1.Post("/demand", s.handleDemand)
	v1.Post("/recommendations", s.handleRecommendations)
	v1.Get("/products/:id/forecast", s.handleProductForecast)
	v1.Post("/products/:id/plan", s.handleProductPlan)
	v1.Get("/products/:id/plans", s.handleProductPlans)
}

// Listen serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Listen(ctx context.Context, addr string) error {
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go s.sweepCache(sweepCtx)

	errc := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("http: listening")
		errc <- s.app.Listen(addr)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("http: listen %s: %w", addr, err)
	case <-ctx.Done():
	}

	s.log.Info("http: shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.app.ShutdownWithContext(sctx); err != nil {
		return fmt.Errorf("http: shutdown: %w", err)
	}
	return <-errc
}

// sweepCache drops expired cached forecasts every s.sweep until ctx ends.
func (s *Server) sweepCache(ctx context.Context) {
	t := time.NewTicker(s.sweep)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.planner.SweepCache()
		}
	}
}

// ─── Middleware ───────────────────────────────────────────────────────────────

// requestLogger resolves handler errors into responses so the final status
// is known, then logs and counts the request.
func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	if err := c.Next(); err != nil {
		if herr := s.errorHandler(c, err); herr != nil {
			return herr
		}
	}

	status := c.Response().StatusCode()
	method := utils.CopyString(c.Method())
	route := c.Route().Path
	s.metrics.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()

	s.log.WithFields(logrus.Fields{
		"method":   method,
		"path":     utils.CopyString(c.Path()),
		"status":   status,
		"duration": time.Since(start).String(),
		"ip":       c.IP(),
	}).Info("http: request")
	return nil
}

func (s *Server) rateLimit(c *fiber.Ctx) error {
	if s.limiter == nil || s.limiter.Allow() {
		return c.Next()
	}
	s.metrics.HTTPRateLimited.Inc()
	c.Set(fiber.HeaderRetryAfter, "1")
	return fiber.NewError(fiber.StatusTooManyRequests, "rate limit exceeded")
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, store.ErrNotFound):
		code = fiber.StatusNotFound
	}
	if code >= fiber.StatusInternalServerError {
		s.log.WithError(err).WithField("path", utils.CopyString(c.Path())).Error("http: request failed")
	}
	return c.Status(code).JSON(fiber.Map{"message": err.Error()})
}

func badRequest(format string, args ...interface{}) error {
	return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf(format, args...))
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

func (s *Server) handleHealthz(c *fiber.Ctx) error {
	body := fiber.Map{"status": "ok"}
	if st, ok := s.planner.CacheStats(); ok {
		body["cache"] = st
	}
	return c.JSON(body)
}

type forecastRequest struct {
	History     []pipeline.Row `json:"history"`
	HorizonDays *int           `json:"horizonDays"`
}

type demandRequest struct {
	History      []pipeline.Row `json:"history"`
	LeadTimeDays int            `json:"leadTimeDays"`
}

type recommendationsRequest struct {
	CurrentStock int                  `json:"currentStock"`
	Demand       model.DemandForecast `json:"demand"`
}

func (s *Server) handleForecast(c *fiber.Ctx) error {
	var req forecastRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid request body: %v", err)
	}
	horizon := s.horizon
	if req.HorizonDays != nil {
		horizon = *req.HorizonDays
	}
	if err := checkHorizon(horizon); err != nil {
		return err
	}
	history, err := pipeline.Observations(req.History)
	if err != nil {
		return badRequest("%v", err)
	}
	res, err := s.planner.ForecastHistory(c.UserContext(), history, horizon)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (s *Server) handleDemand(c *fiber.Ctx) error {
	var req demandRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid request body: %v", err)
	}
	history, err := pipeline.Observations(req.History)
	if err != nil {
		return badRequest("%v", err)
	}
	d, err := s.planner.Demand(c.UserContext(), history, req.LeadTimeDays)
	if err != nil {
		return err
	}
	return c.JSON(d)
}

func (s *Server) handleRecommendations(c *fiber.Ctx) error {
	var req recommendationsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid request body: %v", err)
	}
	if req.CurrentStock < 0 {
		return badRequest("currentStock must be >= 0")
	}
	return c.JSON(forecast.GenerateStockRecommendations(req.CurrentStock, req.Demand))
}

func (s *Server) handleProductForecast(c *fiber.Ctx) error {
	horizon := c.QueryInt("horizon", s.horizon)
	if err := checkHorizon(horizon); err != nil {
		return err
	}
	res, err := s.planner.Forecast(c.UserContext(), utils.CopyString(c.Params("id")), horizon)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (s *Server) handleProductPlan(c *fiber.Ctx) error {
	run, err := s.planner.Plan(c.UserContext(), utils.CopyString(c.Params("id")))
	if err != nil {
		return err
	}
	return c.JSON(run)
}

func (s *Server) handleProductPlans(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 10)
	if limit < 0 {
		return badRequest("limit must be >= 0")
	}
	runs, err := s.planner.History(c.Params("id"), limit)
	if err != nil {
		return err
	}
	return c.JSON(runs)
}

func checkHorizon(h int) error {
	if h < 0 || h > forecast.MaxHorizonDays {
		return badRequest("horizon must be between 0 and %d days", forecast.MaxHorizonDays)
	}
	return nil
}
