package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/politicianfinder/edge-gate/internal/config"
	"github.com/politicianfinder/edge-gate/internal/database"
	"github.com/politicianfinder/edge-gate/internal/handlers"
	"github.com/politicianfinder/edge-gate/internal/logger"
	"github.com/politicianfinder/edge-gate/internal/middleware"
	"github.com/politicianfinder/edge-gate/internal/queue"
	"github.com/politicianfinder/edge-gate/internal/ratelimit"
	"github.com/politicianfinder/edge-gate/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync(zapLogger)

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.Strings("path_prefixes", cfg.PathPrefixes),
		zap.String("rate_limit_store", cfg.RateLimitStore),
		zap.String("rate_policy", cfg.RatePolicy().String()),
		zap.String("auth_verifier", cfg.AuthVerifier),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	tracing := false
	if cfg.OTELEnabled {
		tp, err := telemetry.InitTracer(rootCtx, telemetry.ServiceName, handlers.Version, cfg.OTELEndpoint)
		if err != nil {
			zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		} else {
			tracing = true
			zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
					zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
				}
			}()
		}
	}

	health := handlers.NewHealthChecker()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = ratelimit.NewRedisClient(cfg.RedisURL)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
			}
		}()
		health.AddCheck("redis", func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
		zapLogger.Info("connected_to_redis")
	}

	store, memStore, err := newRecordStore(cfg, redisClient)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limit_store", zap.Error(err))
	}
	verifier, err := newVerifier(cfg, &http.Client{Timeout: cfg.AuthTimeout})
	if err != nil {
		zapLogger.Fatal("failed_to_create_token_verifier", zap.Error(err))
	}

	sinks := middleware.MultiSink{middleware.NewLogSink(zapLogger)}
	var asyncSink *queue.AsyncSink
	if cfg.RabbitMQURL != "" {
		publisher, err := connectPublisher(cfg.RabbitMQURL, zapLogger)
		if err != nil {
			zapLogger.Warn("gate_event_publisher_disabled", zap.Error(err))
		} else {
			defer func() {
				if err := publisher.Close(); err != nil {
					zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
				}
			}()
			asyncSink = queue.NewAsyncSink(publisher, 0, zapLogger)
			go asyncSink.Run(rootCtx)
			sinks = append(sinks, asyncSink)
			health.AddCheck("rabbitmq", publisher.HealthCheck)
		}
	}

	eg := newEdgeGate(cfg, store, verifier, sinks, zapLogger, nil)
	if memStore != nil {
		// The sweep age follows the live policy so a reloaded longer window keeps its records.
		go memStore.StartJanitor(rootCtx, cfg.RatePolicy().Window, eg.rateLimit.Limiter().RecordTTL)
	}

	if cfg.DatabaseURL != "" {
		db, err := database.New(cfg.DatabaseURL)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
		}
		defer func() {
			if err := db.Close(); err != nil {
				zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
			}
		}()
		if err := db.EnsureSchema(rootCtx); err != nil {
			zapLogger.Fatal("failed_to_ensure_schema", zap.Error(err))
		}
		health.AddCheck("database", db.PingContext)
		zapLogger.Info("connected_to_database")

		rateReloader := middleware.NewRateLimitReloader(eg.rateLimit, database.NewRatelimitConfigRepository(db), cfg.RatePolicy(), zapLogger, cfg.ReloadInterval)
		corsReloader := middleware.NewCORSReloader(eg.cors, database.NewCorsConfigRepository(db), cfg.CORSAllowedOrigins, cfg.CORSMaxAgeSeconds, zapLogger, cfg.ReloadInterval)
		go rateReloader.Start(rootCtx)
		go corsReloader.Start(rootCtx)
	}

	var forward http.Handler = handlers.NewWhoAmIHandler(eg.clientKey)
	if cfg.UpstreamURL != "" {
		proxy, err := handlers.NewUpstreamProxy(cfg.UpstreamURL, 30*time.Second, zapLogger)
		if err != nil {
			zapLogger.Fatal("failed_to_create_upstream_proxy", zap.Error(err))
		}
		forward = proxy
		zapLogger.Info("forwarding_to_upstream", zap.String("upstream_url", cfg.UpstreamURL))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           newRouter(cfg, zapLogger, eg, health, forward, tracing),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}
	// Stops the reloaders and janitor, and lets the event sink drain.
	rootCancel()
	if asyncSink != nil {
		select {
		case <-asyncSink.Done():
		case <-time.After(10 * time.Second):
			zapLogger.Warn("gate_event_drain_timed_out")
		}
	}

	zapLogger.Info("server_exited")
}

// connectPublisher retries with exponential backoff to ride out broker startup.
func connectPublisher(url string, zapLogger *zap.Logger) (*queue.RabbitMQPublisher, error) {
	const maxRetries = 5
	const initialDelay = time.Second

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		publisher, err := queue.NewRabbitMQPublisher(url)
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			return publisher, nil
		}
		lastErr = err

		delay := initialDelay * time.Duration(1<<uint(attempt))
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}
	return nil, lastErr
}
