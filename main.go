package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jeadland/liam-loot-storefront/app"
	"github.com/jeadland/liam-loot-storefront/catalog"
	"github.com/jeadland/liam-loot-storefront/handlers"
	"github.com/jeadland/liam-loot-storefront/kafka"
	"github.com/jeadland/liam-loot-storefront/middleware"
	"github.com/jeadland/liam-loot-storefront/store"

	"github.com/IBM/sarama"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const eventsTopic = "storefront_events"

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Load the catalog once. A fetch failure here is fatal; there is no
	// retry path.
	catalogPath := getEnv("CATALOG_PATH", "data/products.json")
	cat, err := catalog.Load(catalogPath, logger)
	if err != nil {
		logger.Fatal("Failed to load catalog", zap.Error(err))
	}

	// Initialize Redis-backed persistence
	redisClient, err := store.InitRedis(logger)
	if err != nil {
		logger.Fatal("Failed to initialize Redis", zap.Error(err))
	}

	// Initialize OpenTelemetry
	shutdownTracing, err := middleware.InitTracing("storefront")
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	st := store.New(store.NewRedisKV(redisClient), logger)

	bootCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	machine := app.New(bootCtx, cat, st, logger)
	cancel()

	// Kafka is best effort: the storefront keeps working without the
	// event stream.
	producer, err := kafka.InitProducer(logger)
	if err != nil {
		logger.Warn("Kafka unavailable, storefront events disabled", zap.Error(err))
		producer = nil
	}
	if producer != nil {
		machine.Subscribe(func(ev app.Event) {
			if err := kafka.PublishStorefrontEvent(context.Background(), producer, eventsTopic, ev, logger); err != nil {
				logger.Error("Failed to publish storefront event", zap.Error(err))
			}
		})
	}

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	// OpenTelemetry middleware must be first to extract trace context
	router.Use(otelgin.Middleware("storefront"))
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(middleware.MetricsMiddleware())

	// Health check endpoint
	router.GET("/health", handlers.HealthCheck)

	// Metrics endpoint
	router.GET("/metrics", middleware.PrometheusHandler())

	// Storefront views and intents
	sf := handlers.NewStorefrontHandler(machine, logger)
	router.GET("/view", sf.GetView)
	router.POST("/cart/lines", sf.AddCartLine)
	router.DELETE("/cart/lines/:index", sf.RemoveCartLine)
	router.POST("/cart/clear", sf.ClearCart)
	router.POST("/filters", sf.SetFilter)
	router.POST("/detail/select", sf.SelectOption)
	router.POST("/detail/qty", sf.AdjustQty)
	router.POST("/checkout/field", sf.UpdateCheckoutField)
	router.POST("/checkout/submit", sf.SubmitOrder)
	router.POST("/craft", sf.SubmitCraft)

	// Start server
	srv := &http.Server{
		Addr:    ":" + getEnv("PORT", "8080"),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Storefront started", zap.String("addr", srv.Addr))

	gracefulShutdown(srv, redisClient, producer, shutdownTracing, logger)
}

// gracefulShutdown handles SIGINT/SIGTERM and shuts down all services gracefully
func gracefulShutdown(
	srv *http.Server,
	redisClient *redis.Client,
	producer sarama.SyncProducer,
	shutdownTracing func(),
	logger *zap.Logger,
) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown signal received. Exiting...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP server forced to shutdown", zap.Error(err))
	} else {
		logger.Info("HTTP server stopped gracefully")
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("Failed to close Kafka producer", zap.Error(err))
		} else {
			logger.Info("Kafka producer closed gracefully")
		}
	}

	if err := redisClient.Close(); err != nil {
		logger.Error("Failed to close Redis", zap.Error(err))
	} else {
		logger.Info("Redis connection closed gracefully")
	}

	shutdownTracing()
	logger.Info("Storefront exited gracefully")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
