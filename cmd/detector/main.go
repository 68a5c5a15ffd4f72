package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/richxcame/cdr-radar/internal/calls"
	"github.com/richxcame/cdr-radar/pkg/common"
	"github.com/richxcame/cdr-radar/pkg/config"
	"github.com/richxcame/cdr-radar/pkg/database"
	"github.com/richxcame/cdr-radar/pkg/health"
	"github.com/richxcame/cdr-radar/pkg/logger"
	"github.com/richxcame/cdr-radar/pkg/middleware"
	"github.com/richxcame/cdr-radar/pkg/redis"
	"github.com/richxcame/cdr-radar/pkg/resilience"
	"github.com/richxcame/cdr-radar/pkg/storage"
	"github.com/richxcame/cdr-radar/pkg/tracing"
	"go.uber.org/zap"
)

const serviceName = "cdr-detector"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, serviceName, cfg.Observability.ServiceVer, cfg.Observability.OTLPEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	sentryEnabled := cfg.Observability.SentryDSN != ""
	if sentryEnabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Observability.SentryDSN,
			Environment: cfg.Server.Environment,
			Release:     cfg.Observability.ServiceVer,
		}); err != nil {
			logger.Fatal("Failed to initialize Sentry", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	checks := make(map[string]func() error)

	source, cleanup, err := buildSource(ctx, cfg, checks)
	if err != nil {
		logger.Fatal("Failed to set up call record source", zap.String("source", cfg.Source.Kind), zap.Error(err))
	}
	defer cleanup()

	detector, err := calls.NewDetector(calls.Policy{
		SuspicionThreshold: cfg.Detection.SuspicionThreshold,
		HighAbove:          cfg.Detection.HighAbove,
		CriticalAbove:      cfg.Detection.CriticalAbove,
		Selection:          calls.SelectionStrategy(cfg.Detection.SelectionStrategy),
	})
	if err != nil {
		logger.Fatal("Invalid detection policy", zap.Error(err))
	}

	opts := []calls.Option{
		calls.WithLoadTimeout(time.Duration(cfg.Source.LoadTimeout) * time.Second),
	}

	if cfg.Redis.Enabled {
		redisClient, err := redis.NewRedisClient(&cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()

		ttl := time.Duration(cfg.Redis.TTLSeconds) * time.Second
		opts = append(opts, calls.WithCache(calls.NewRedisReportCache(redisClient, cfg.Redis.KeyPrefix, ttl)))
		checks["redis"] = health.RedisChecker(redisClient.Client)
		logger.Info("Report cache enabled", zap.String("addr", cfg.Redis.RedisAddr()), zap.Duration("ttl", ttl))
	}

	if cfg.NATS.Enabled {
		nc, err := nats.Connect(cfg.NATS.URL,
			nats.Name(serviceName),
			nats.MaxReconnects(-1),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				logger.Warn("NATS disconnected", zap.Error(err))
			}),
			nats.ReconnectHandler(func(c *nats.Conn) {
				logger.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
			}),
		)
		if err != nil {
			logger.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer nc.Drain()

		opts = append(opts, calls.WithPublisher(calls.NewNATSAlertPublisher(nc, cfg.NATS.Subject)))
		checks["nats"] = health.NATSChecker(nc)
		logger.Info("Critical alert publishing enabled", zap.String("subject", cfg.NATS.Subject))
	}

	service := calls.NewService(source, detector, opts...)
	handler := calls.NewHandler(service, cfg.Detection.H3Resolution)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Recovery())
	if sentryEnabled {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(middleware.Metrics(serviceName))
	router.Use(middleware.SecurityHeaders(cfg.Server.Environment == "production"))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.Server.CORSOrigins, ",")
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", middleware.CorrelationIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.CorrelationIDHeader}
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", common.HealthCheckWithDeps(serviceName, cfg.Observability.ServiceVer, checks))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler.RegisterRoutes(router, time.Duration(cfg.Server.RequestTimeout)*time.Second)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout+cfg.Server.RequestTimeout) * time.Second,
	}

	go func() {
		logger.Info("CDR detector starting",
			zap.String("port", cfg.Server.Port),
			zap.String("source", source.Name()),
			zap.Int("threshold", cfg.Detection.SuspicionThreshold),
			zap.String("selection", cfg.Detection.SelectionStrategy),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down CDR detector")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("Failed to flush traces", zap.Error(err))
	}
}

// buildSource creates the configured call record source and registers its health
// check. Remote sources sit behind a circuit breaker.
func buildSource(ctx context.Context, cfg *config.Config, checks map[string]func() error) (calls.Source, func(), error) {
	noop := func() {}

	switch cfg.Source.Kind {
	case config.SourceFile:
		checks["cdr_file"] = health.FileChecker(cfg.Source.FilePath)
		return calls.NewFileSource(cfg.Source.FilePath), noop, nil

	case config.SourceS3:
		store, err := storage.NewS3Storage(ctx, storage.S3Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		})
		if err != nil {
			return nil, nil, err
		}

		var source *calls.ObjectSource
		if cfg.S3.Prefix != "" {
			source = calls.NewDailyObjectSource(store, cfg.S3.Prefix)
		} else {
			source = calls.NewObjectSource(store, cfg.S3.Key)
		}
		checks["cdr_object"] = func() error {
			checkCtx, cancel := context.WithTimeout(context.Background(), health.DefaultCheckerConfig().Timeout)
			defer cancel()
			ok, err := store.Exists(checkCtx, source.Key())
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("object %s not found", source.Key())
			}
			return nil
		}
		return withBreaker(cfg, source), noop, nil

	case config.SourcePostgres:
		pool, err := database.NewPostgresPool(ctx, &cfg.Database)
		if err != nil {
			return nil, nil, err
		}

		source, err := calls.NewPostgresSource(pool, cfg.Database.Table)
		if err != nil {
			database.Close(pool)
			return nil, nil, err
		}
		checks["database"] = health.DatabaseChecker(pool)
		return withBreaker(cfg, source), func() { database.Close(pool) }, nil
	}

	return nil, nil, fmt.Errorf("unknown source %q", cfg.Source.Kind)
}

func withBreaker(cfg *config.Config, source calls.Source) calls.Source {
	if !cfg.Breaker.Enabled {
		return source
	}
	settings := resilience.BuildSettings(
		"cdr-source-"+source.Name(),
		cfg.Breaker.IntervalSeconds,
		cfg.Breaker.TimeoutSeconds,
		cfg.Breaker.FailureThreshold,
		cfg.Breaker.SuccessThreshold,
	)
	return calls.NewBreakerSource(source, settings)
}
