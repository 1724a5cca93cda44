package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/2beens/ironlog/internal/gymlog/bodyweight"
	"github.com/2beens/ironlog/internal/gymlog/exercises"
	"github.com/2beens/ironlog/internal/gymlog/repo"
	"github.com/2beens/ironlog/internal/gymlog/stats"
	"github.com/2beens/ironlog/internal/gymlog/workouts"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/2beens/ironlog/internal/auth"
	"github.com/2beens/ironlog/internal/backup"
	"github.com/2beens/ironlog/internal/config"
	"github.com/2beens/ironlog/internal/db"
	"github.com/2beens/ironlog/internal/middleware"
	"github.com/2beens/ironlog/internal/misc"
	"github.com/2beens/ironlog/internal/notify"
	"github.com/2beens/ironlog/internal/prefs"
	"github.com/2beens/ironlog/internal/telemetry/metrics"
	metricsmiddleware "github.com/2beens/ironlog/internal/telemetry/metrics/middleware"
	"github.com/2beens/ironlog/internal/telemetry/tracing"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	appRequestsSecret string // used by the ironlog phone app when logging workouts
	versionInfo       string

	config     *config.Config
	dbPool     *pgxpool.Pool
	prefsStore *prefs.Store
	ntfy       *notify.Ntfy

	redisClient  *redis.Client
	loginChecker *auth.LoginChecker
	authService  *auth.Service

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	AppRequestsSecret       string
	NtfyTopic               string
	VersionInfo             string
	AdminUsername           string
	AdminPasswordHash       string
	RedisPassword           string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         params.Config.PostgresHost,
		DBPort:         params.Config.PostgresPort,
		DBName:         params.Config.PostgresDBName,
		TracingEnabled: params.HoneycombTracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": "ironlog_db"},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("backend", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0) // will be set to 1 when all is set and ran (I think this is probably not needed)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(params.Config.RedisHost, params.Config.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	authService := auth.NewAuthService(&auth.Admin{
		Username:     params.AdminUsername,
		PasswordHash: params.AdminPasswordHash,
	}, auth.DefaultTTL, rdb)
	go func() {
		for range time.Tick(time.Hour * 8) {
			authService.ScanAndClean(ctx)
		}
	}()

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "main-backend", rdb)
	if err != nil {
		return nil, err
	}

	tracedHttpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	prefsStore, err := prefs.NewStore(params.Config.PrefsFilePath)
	if err != nil {
		return nil, fmt.Errorf("new prefs store: %w", err)
	}

	return &Server{
		config:            params.Config,
		dbPool:            dbPool,
		appRequestsSecret: params.AppRequestsSecret,
		versionInfo:       params.VersionInfo,
		prefsStore:        prefsStore,
		ntfy: notify.NewNtfy(
			notify.DefaultNtfyEndpoint,
			params.NtfyTopic,
			tracedHttpClient,
		),

		redisClient:  rdb,
		authService:  authService,
		loginChecker: auth.NewLoginChecker(auth.DefaultTTL, rdb),

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func (s *Server) routerSetup() (*mux.Router, error) {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))

	reqRateLimiter := redis_rate.NewLimiter(s.redisClient)
	miscHandler := misc.NewHandler(s.versionInfo, s.authService)
	miscHandler.SetupRoutes(r, reqRateLimiter, s.metricsManager, s.config.LoginRateLimitAllowedPerMin)

	workoutsRepo := repo.NewWorkoutsRepo(s.dbPool)
	exercisesRepo := repo.NewExercisesRepo(s.dbPool)
	aliasesRepo := repo.NewAliasesRepo(s.dbPool)
	bodyweightsRepo := repo.NewBodyweightsRepo(s.dbPool)
	resolver := repo.NewResolver(exercisesRepo, aliasesRepo)

	// the alias routes go first, so that /gymlog/exercises/alias is not
	// swallowed by the /{id} route of the exercises handler
	exercisesRouter := r.PathPrefix("/gymlog/exercises").Subrouter()
	exercises.NewAliasesHandler(aliasesRepo, resolver).SetupRoutes(exercisesRouter)
	exercises.NewHandler(exercisesRepo, resolver).SetupRoutes(exercisesRouter)

	bodyweightHandler := bodyweight.NewHandler(bodyweightsRepo, s.prefsStore, s.metricsManager)
	bodyweightHandler.SetupRoutes(r.PathPrefix("/gymlog/bodyweight").Subrouter())

	statsHandler := stats.NewHandler(
		stats.NewAnalyzer(workoutsRepo, bodyweightsRepo),
		resolver,
		s.prefsStore,
	)
	statsHandler.SetupRoutes(r.PathPrefix("/gymlog/stats").Subrouter())

	prefsHandler := prefs.NewHandler(s.prefsStore)
	prefsHandler.SetupRoutes(r.PathPrefix("/gymlog/prefs").Subrouter())

	workoutsService := workouts.NewService(
		workoutsRepo,
		exercisesRepo,
		resolver,
		bodyweightsRepo,
		s.metricsManager,
	)
	workoutsHandler := workouts.NewHandler(workoutsService, resolver, s.prefsStore, s.ntfy)
	workoutsHandler.SetupRoutes(r.PathPrefix("/gymlog").Subrouter())

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "OPTIONS").Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(
		s.appRequestsSecret,
		s.loginChecker,
	)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors())
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	return r, nil
}

func (s *Server) Serve(ctx context.Context, host string, port int) {
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
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", metricsmiddleware.
		New(s.promRegistry, nil).
		WrapHandler("/metrics", promhttp.HandlerFor(
			s.promRegistry,
			promhttp.HandlerOpts{}),
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

	// gym log backup unix socket
	s.setBackupUnixSocket(ctx)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	log.Debugln("removing gym log backup unix socket ...")
	if err := os.RemoveAll(s.config.BackupUnixSocketAddrDir); err != nil {
		log.Errorf("failed to cleanup gym log backup unix socket dir: %s", err)
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown http server")
	}
	log.Warnln("server shut down")

	if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown metrics http server")
	}
	log.Warnln("metrics server shut down")
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}

func (s *Server) setBackupUnixSocket(ctx context.Context) {
	if err := os.MkdirAll(s.config.BackupUnixSocketAddrDir, os.ModePerm); err != nil {
		log.Errorf("failed to create gym log backup unix socket dir: %s", err)
		return
	}

	if addr, err := backup.UnixSocketListenerSetup(
		ctx,
		s.config.BackupUnixSocketAddrDir,
		s.config.BackupUnixSocketFileName,
		s.metricsManager,
	); err != nil {
		log.Errorf("failed to create gym log backup unix socket: %s", err)
	} else {
		log.Debugf("gym log backup unix socket: %s", addr)
	}
}
