package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := initLogger(cfg)

	if cfg.OTelEnabled {
		tp, err := initTracer(cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize tracer")
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Error().Err(err).Msg("Error shutting down tracer")
			}
		}()

		mp, err := initMetrics(cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize metrics")
		}
		defer func() {
			if err := mp.Shutdown(context.Background()); err != nil {
				logger.Error().Err(err).Msg("Error shutting down meter")
			}
		}()
	}

	tracer := otel.Tracer(cfg.ServiceName)

	locker, closeLocker := initLocker(cfg, logger)
	defer closeLocker()

	// Initialize dependencies
	client := NewGraphQLClient(cfg.HTTPTimeout, tracer)
	repository := NewShopifyRepository(client, StorefrontEndpoint(cfg), AdminEndpoint(cfg))
	useCase := NewStockUseCase(repository, locker, cfg.InventorySourceHandle, tracer)
	handler := NewStockHandler(useCase, tracer, cfg.ServiceName)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(RequestLogger(logger))
	handler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * cfg.HTTPTimeout,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("store", cfg.StoreDomain).
			Str("api_version", cfg.APIVersion).
			Msg("🚀 Variant Stock Service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Error shutting down http server")
	}
}

func initLogger(cfg *Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	zlog.Logger = zlog.With().Str("service", cfg.ServiceName).Logger()
	zerolog.DefaultContextLogger = &zlog.Logger
	return zlog.Logger
}

// initLocker usa Redis quando REDIS_ADDR está definido, senão lock em memória
func initLocker(cfg *Config, logger zerolog.Logger) (VariantLocker, func()) {
	if cfg.RedisAddr == "" {
		logger.Info().Msg("🔒 Using in-process variant locks")
		return NewMemoryLocker(), func() {}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("Failed to connect to Redis")
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("🔒 Using Redis variant locks")
	return NewRedisLocker(rdb, cfg.LockTTL), func() {
		if err := rdb.Close(); err != nil {
			logger.Error().Err(err).Msg("Error closing Redis client")
		}
	}
}

func initTracer(cfg *Config) (*sdktrace.TracerProvider, error) {
	ctx := context.Background()

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	otel.SetTracerProvider(tp)

	return tp, nil
}

func initMetrics(cfg *Config) (*sdkmetric.MeterProvider, error) {
	ctx := context.Background()

	exporter, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpoint(cfg.OTLPEndpoint),
		otlpmetrichttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	return mp, nil
}

func newResource(ctx context.Context, cfg *Config) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion("1.0.0"),
		),
	)
}
