package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/multierr"

	"github.com/2beens/fitcrm/internal/clients"
	"github.com/2beens/fitcrm/internal/config"
	"github.com/2beens/fitcrm/internal/exercises"
	"github.com/2beens/fitcrm/internal/middleware"
	"github.com/2beens/fitcrm/internal/telemetry/metrics"
	"github.com/2beens/fitcrm/internal/telemetry/tracing"
	"github.com/2beens/fitcrm/internal/views"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server

	config   *config.Config
	backend  *Backend
	repo     *clients.Repo
	provider *exercises.Provider

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	RedisPassword           string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "fitcrm-service")
	if err != nil {
		return nil, err
	}

	backend, err := OpenBackend(ctx, OpenBackendParams{
		Config:         params.Config,
		RedisPassword:  params.RedisPassword,
		TracingEnabled: params.HoneycombTracingEnabled,
	})
	if err != nil {
		otelShutdown()
		return nil, fmt.Errorf("open backend: %w", err)
	}

	promRegistry := metrics.SetupPrometheus(backend.Collectors(params.Config.PostgresDBName)...)
	metricsManager := metrics.NewManager("fitcrm", "service", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	s := newServer(params.Config, backend, metricsManager)
	s.promRegistry = promRegistry
	s.otelShutdown = otelShutdown

	if params.Config.SeedOnStart {
		seeded, err := s.repo.SeedIfEmpty(ctx)
		if err != nil {
			log.Errorf("seed roster: %s", err)
		} else if seeded > 0 {
			log.Infof("roster seeded with %d sample clients", seeded)
		}
	}
	metricsManager.GaugeClients.Set(float64(s.repo.Count(ctx)))

	return s, nil
}

func newServer(cfg *config.Config, backend *Backend, metricsManager *metrics.Manager) *Server {
	tracedHttpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   cfg.CatalogTimeout,
	}

	repo := clients.NewRepo(
		clients.NewRecordStore(backend.Slot, metricsManager),
		metricsManager,
		clients.WithIDGenerator(clients.IDGeneratorForScheme(cfg.IDScheme)),
	)
	provider := exercises.NewProvider(
		cfg.CatalogURL,
		tracedHttpClient,
		metricsManager,
		exercises.WithCacheTTL(cfg.CatalogCacheTTL),
	)

	return &Server{
		config:         cfg,
		backend:        backend,
		repo:           repo,
		provider:       provider,
		metricsManager: metricsManager,
		otelShutdown:   func() {},
	}
}

func (s *Server) routerSetup() (*mux.Router, error) {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("fitcrm-router"))

	clientsHandler := clients.NewHandler(s.repo, s.metricsManager)
	r.HandleFunc("/clients", clientsHandler.HandleList).Methods("GET", "OPTIONS").Name("list-clients")
	r.HandleFunc("/clients", clientsHandler.HandleCreate).Methods("POST", "OPTIONS").Name("new-client")
	r.HandleFunc("/clients/find", clientsHandler.HandleFind).Methods("GET", "OPTIONS").Name("find-client")
	r.HandleFunc("/clients/{id}", clientsHandler.HandleGet).Methods("GET", "OPTIONS").Name("get-client")
	r.HandleFunc("/clients/{id}", clientsHandler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-client")
	r.HandleFunc("/clients/{id}", clientsHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("remove-client")
	r.HandleFunc("/clients/{id}/history", clientsHandler.HandleAddHistory).Methods("POST", "OPTIONS").Name("add-history")

	exercisesHandler := exercises.NewHandler(s.provider, s.config.SuggestionsCount)
	exercisesRouter := r.PathPrefix("/exercises").Subrouter()
	exercisesRouter.HandleFunc("/suggestions", exercisesHandler.HandleSuggestions).Methods("GET", "OPTIONS").Name("suggest-exercises")
	if s.backend.RedisClient != nil {
		reqRateLimiter := redis_rate.NewLimiter(s.backend.RedisClient)
		exercisesRouter.Use(middleware.RateLimit(
			reqRateLimiter,
			"suggestions",
			s.config.SuggestionsRateLimitPerMin,
			s.metricsManager,
		))
	} else {
		log.Debugln("redis not configured, suggestions are not rate limited")
	}

	uiHandler, err := views.NewHandler(s.repo, s.provider, s.config.SuggestionsCount, s.metricsManager)
	if err != nil {
		return nil, fmt.Errorf("new ui handler: %w", err)
	}
	r.HandleFunc("/", uiHandler.HandleForm).Methods("GET").Name("ui-form")
	r.HandleFunc("/ui/clients", uiHandler.HandleList).Methods("GET").Name("ui-list")
	r.HandleFunc("/ui/clients", uiHandler.HandleSubmit).Methods("POST").Name("ui-submit")
	r.HandleFunc("/ui/clients/search", uiHandler.HandleSearch).Methods("GET").Name("ui-search")
	r.HandleFunc("/ui/clients/{id}", uiHandler.HandleDetail).Methods("GET").Name("ui-detail")
	r.HandleFunc("/ui/clients/{id}/edit", uiHandler.HandleEdit).Methods("GET").Name("ui-edit")
	r.HandleFunc("/ui/clients/{id}/delete", uiHandler.HandleDelete).Methods("POST").Name("ui-delete")
	r.HandleFunc("/ui/clients/{id}/history", uiHandler.HandleAddHistory).Methods("POST").Name("ui-add-history")

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.config.AllowedOrigins))
	r.Use(middleware.DrainAndCloseRequest())

	return r, nil
}

func (s *Server) Serve(host string, port int) {
	router, err := s.routerSetup()
	if err != nil {
		log.Fatalf("failed to setup router: %s", err)
	}

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.InstrumentMetricHandler(
		s.promRegistry,
		promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}),
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	var err error
	if s.httpServer != nil {
		if shutdownErr := s.httpServer.Shutdown(ctx); shutdownErr != nil {
			err = multierr.Append(err, fmt.Errorf("shutdown http server: %w", shutdownErr))
		}
		log.Warnln("server shut down")
	}
	if s.metricsHttpServer != nil {
		if shutdownErr := s.metricsHttpServer.Shutdown(ctx); shutdownErr != nil {
			err = multierr.Append(err, fmt.Errorf("shutdown metrics http server: %w", shutdownErr))
		}
		log.Warnln("metrics server shut down")
	}

	err = multierr.Append(err, s.backend.Close())

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	for _, e := range multierr.Errors(err) {
		log.Errorf(" >>> graceful shutdown: %s", e)
	}
}
