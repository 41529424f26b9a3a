package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dennisdiepolder/monti/outreach/internal/aggregator"
	"github.com/dennisdiepolder/monti/outreach/internal/api"
	"github.com/dennisdiepolder/monti/outreach/internal/auth"
	"github.com/dennisdiepolder/monti/outreach/internal/cache"
	"github.com/dennisdiepolder/monti/outreach/internal/config"
	"github.com/dennisdiepolder/monti/outreach/internal/enrichment"
	"github.com/dennisdiepolder/monti/outreach/internal/event"
	"github.com/dennisdiepolder/monti/outreach/internal/ingestion"
	"github.com/dennisdiepolder/monti/outreach/internal/insight"
	"github.com/dennisdiepolder/monti/outreach/internal/metrics"
	"github.com/dennisdiepolder/monti/outreach/internal/ticker"
	"github.com/dennisdiepolder/monti/outreach/internal/types"
	"github.com/dennisdiepolder/monti/outreach/internal/upstream"
	"github.com/dennisdiepolder/monti/outreach/internal/websocket"
	"github.com/dennisdiepolder/monti/outreach/pkg/middleware"
)

func main() {
	// Configure logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("log_level", cfg.LogLevel).
		Str("upstream", cfg.UpstreamBaseURL).
		Str("timezone", cfg.Timezone.String()).
		Msg("starting outreach dashboard server")

	// Create context for services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Create WebSocket hub
	hub := websocket.NewHub(m, log.Logger)
	go hub.Run()

	// Upstream API client
	mapper := ingestion.NewMapper(cfg.Timezone)
	client, err := upstream.New(upstream.Config{
		BaseURL: cfg.UpstreamBaseURL,
		Token:   cfg.UpstreamToken,
		Timeout: cfg.UpstreamTimeout,
		RPS:     cfg.UpstreamRPS,
		Burst:   cfg.UpstreamBurst,
	}, mapper, m, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create upstream client")
	}

	// Enrichment: detail cache, coalescing trigger, throttled queues
	trigger := enrichment.NewTrigger(cfg.RefreshDebounce)
	enrichOpts := []enrichment.Option{
		enrichment.WithNotifier(trigger),
		enrichment.WithMetrics(m),
	}
	if cfg.RedisURL != "" {
		mirror, err := enrichment.NewRedisMirror(ctx, cfg.RedisURL, cfg.RedisTTL)
		if err != nil {
			log.Warn().Err(err).Msg("redis mirror unavailable, continuing without it")
		} else {
			defer mirror.Close()
			enrichOpts = append(enrichOpts, enrichment.WithMirror(mirror))
			log.Info().Msg("enrichment cache mirrored to redis")
		}
	}
	enrich := enrichment.NewService(client, cfg.DetailFetchTimeout, log.Logger, enrichOpts...)
	queues := enrichment.NewQueues(enrich, enrichment.BatchSizes{
		MissingInfo:      cfg.BatchMissingInfo,
		ContactTime:      cfg.BatchContactTime,
		ValidApplication: cfg.BatchValidApplication,
		Attendance:       cfg.BatchAttendance,
	}, cfg.EnrichDelay, m, log.Logger)
	go queues.Run(ctx)

	// Queue backlog sampler
	tickerService := ticker.NewTicker(queues, m, 5*time.Second, log.Logger)
	go tickerService.Start(ctx)

	// Create aggregator
	rateMode, _ := types.ParseRateMode(cfg.RateMode)
	aggregatorService := aggregator.New(
		cache.NewStore(),
		client,
		ingestion.NewProcessor(mapper, log.Logger),
		enrich,
		queues,
		trigger,
		hub,
		m,
		aggregator.Config{
			PollInterval: cfg.PollInterval,
			LogRangeDays: cfg.LogRangeDays,
			Region:       cfg.PhoneRegion,
			RateMode:     rateMode,
			Thresholds:   insight.DefaultThresholds(),
		},
		log.Logger,
	)
	go aggregatorService.Start(ctx)

	// Authentication
	authenticator, err := auth.New(auth.Mode(cfg.AuthMode), cfg.JWTSecret, cfg.OIDCIssuer, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure authentication")
	}
	if authenticator.Mode() == auth.ModeNone {
		log.Warn().Msg("authentication disabled (AUTH_MODE=none)")
	}

	// Create handlers
	dashboardHandler := api.NewDashboardHandler(aggregatorService, rateMode, log.Logger)
	h := routeHandlers{
		ws: websocket.NewHandler(hub, websocket.Timeouts{
			PongWait:       cfg.PongWait,
			PingPeriod:     cfg.PingPeriod,
			WriteWait:      cfg.WriteWait,
			MaxMessageSize: cfg.MaxMessageSize,
		}, cfg.AllowedOrigins, snapshot(aggregatorService), log.Logger),
		dashboard:  dashboardHandler,
		employees:  api.NewEmployeeHandler(dashboardHandler, aggregatorService, log.Logger),
		candidates: api.NewCandidateHandler(enrich, aggregatorService, log.Logger),
		enrichment: api.NewEnrichmentHandler(queues, log.Logger),
		admin:      api.NewAdminHandler(aggregatorService, log.Logger),
		logs:       event.NewReceiver(aggregatorService, log.Logger),
	}

	r := newRouter(authenticator, m, cfg.AllowedOrigins, h)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Msgf("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Stop aggregator, queues and ticker
	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// routeHandlers groups the HTTP handlers mounted by newRouter
type routeHandlers struct {
	ws         http.Handler
	dashboard  *api.DashboardHandler
	employees  *api.EmployeeHandler
	candidates *api.CandidateHandler
	enrichment *api.EnrichmentHandler
	admin      *api.AdminHandler
	logs       *event.Receiver
}

// newRouter mounts the public routes and the authenticated /ws and /api tree
func newRouter(authenticator *auth.Authenticator, m *metrics.Metrics, allowedOrigins []string, h routeHandlers) *chi.Mux {
	r := chi.NewRouter()

	// Add middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log.Logger))
	r.Use(middleware.Metrics(m))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(allowedOrigins))

	// Register public routes (no auth required)
	r.Get("/health", healthHandler)
	r.Handle("/metrics", m.Handler())

	// Add auth middleware for protected routes
	r.Group(func(r chi.Router) {
		r.Use(authenticator.Middleware)
		r.Get("/ws", h.ws.ServeHTTP)

		r.Route("/api", func(r chi.Router) {
			r.Get("/dashboard", h.dashboard.GetDashboard)
			r.Get("/logs", h.dashboard.GetLogs)
			r.Post("/logs", h.logs.HandleLog)
			r.Get("/logs/stats", h.logs.GetStats)
			r.Get("/employees", h.employees.ListEmployees)
			r.Get("/employees/{name}", h.employees.GetEmployee)
			r.Get("/candidates/missing-info", h.candidates.GetMissingInfo)
			r.Get("/candidates/{id}/detail", h.candidates.GetDetail)
			r.Get("/candidates/{id}/calls", h.candidates.GetCalls)
			r.Get("/enrichment", h.enrichment.GetStatus)
			r.Post("/enrichment/{kind}", h.enrichment.Enqueue)

			r.Group(func(r chi.Router) {
				r.Use(api.RequireManagerOrAdmin)
				r.Post("/reload", h.admin.Reload)
				r.Get("/status", h.admin.GetStatus)
			})
		})
	})

	return r
}

// snapshot encodes the last broadcast dashboard for newly connected viewers
func snapshot(agg *aggregator.Aggregator) websocket.SnapshotFunc {
	return func() []byte {
		dash, ok := agg.Current()
		if !ok {
			return nil
		}
		data, err := json.Marshal(types.Message{
			Type:      types.MessageTypeDashboard,
			Timestamp: dash.GeneratedAt,
			Data:      dash,
		})
		if err != nil {
			log.Error().Err(err).Msg("failed to marshal dashboard snapshot")
			return nil
		}
		return data
	}
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","service":"outreach-dashboard"}`)
}
