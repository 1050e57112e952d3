package main

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"checkout-service/config"
	"checkout-service/handlers"
	"checkout-service/logging"
	"checkout-service/monitoring"
	"checkout-service/ratelimit"
	"checkout-service/region"
	"checkout-service/service"
)

func main() {
	// Initialize structured logging
	if err := logging.InitLogger("checkout-service"); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logging.Sync()
	defer func() {
		if err := logging.Shutdown(context.Background()); err != nil {
			logging.Error("Error shutting down logger provider", zap.Error(err))
		}
	}()

	// Load configuration
	cfg := config.Load()

	// Initialize OpenTelemetry
	tp, tracer, err := monitoring.InitTracer(cfg.ServiceName, cfg.OTELEndpoint)
	if err != nil {
		logging.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logging.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	mp, _, err := monitoring.InitMeter(cfg.ServiceName)
	if err != nil {
		logging.Fatal("Failed to initialize meter", zap.Error(err))
	}
	defer func() {
		if err := mp.Shutdown(context.Background()); err != nil {
			logging.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	// Initialize service layer
	detector := region.NewDetector(cfg.GeoProviderURL, cfg.DefaultCountry, cfg.GeoTimeout)
	checkoutService := service.NewCheckoutService(tracer, cfg, detector)

	// Rate limiter for checkout attempts, pruned in the background
	limiter := ratelimit.New()
	go func() {
		for range time.Tick(cfg.CheckoutRateWindow) {
			limiter.Prune(cfg.CheckoutRateWindow)
		}
	}()

	// Initialize handlers
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService, limiter, cfg.CheckoutRateLimit, cfg.CheckoutRateWindow)

	// Setup Gin router
	r := gin.Default()

	// OpenTelemetry middleware
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(httpMetricsMiddleware())

	// Routes
	r.GET("/health", checkoutHandler.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/api/v1/region", checkoutHandler.Region)
	r.POST("/api/v1/checkout", checkoutHandler.Checkout)

	// Start server
	logging.Info("Checkout service starting",
		zap.String("port", cfg.Port),
		zap.String("amount", cfg.Amount.String()),
		zap.String("currency", cfg.TargetCurrency),
	)
	if err := r.Run(":" + cfg.Port); err != nil {
		logging.Fatal("Failed to start server", zap.Error(err))
	}
}

// httpMetricsMiddleware records HTTP request metrics
func httpMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// Process request
		c.Next()

		// Record duration
		duration := float64(time.Since(start).Milliseconds())

		monitoring.HTTPServerDuration.Record(c.Request.Context(), duration,
			metric.WithAttributes(
				attribute.String("http_method", c.Request.Method),
				attribute.String("http_route", c.FullPath()),
				attribute.String("http_status_code", strconv.Itoa(c.Writer.Status())),
			),
		)
	}
}
