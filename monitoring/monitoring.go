package monitoring

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"checkout-service/logging"
)

var (
	// OpenTelemetry metrics
	CheckoutCounter      metric.Int64Counter
	DetectionCounter     metric.Int64Counter
	ExchangeCallDuration metric.Float64Histogram
	HTTPServerDuration   metric.Float64Histogram
)

func init() {
	// Instruments start on the global (no-op) meter so packages may record
	// before InitMeter runs, e.g. under test.
	_ = newInstruments(otel.Meter("checkout-service"))
}

// InitTracer initializes OpenTelemetry tracing
func InitTracer(serviceName, endpoint string) (*sdktrace.TracerProvider, trace.Tracer, error) {
	ctx := context.Background()

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	tracer := tp.Tracer(serviceName)

	logging.Info("Tracing initialized", zap.String("service_name", serviceName))

	return tp, tracer, nil
}

// InitMeter initializes OpenTelemetry metrics with a Prometheus exporter.
// The exporter registers on the default Prometheus registry, so the scrape
// endpoint is served by promhttp.
func InitMeter(serviceName string) (*sdkmetric.MeterProvider, metric.Meter, error) {
	ctx := context.Background()

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	exporter, err := otelprom.New()
	if err != nil {
		return nil, nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)
	meter := mp.Meter(serviceName)

	if err := newInstruments(meter); err != nil {
		return nil, nil, err
	}

	logging.Info("Metrics initialized with Prometheus exporter")

	return mp, meter, nil
}

func newInstruments(meter metric.Meter) error {
	var err error

	CheckoutCounter, err = meter.Int64Counter(
		"checkouts_total",
		metric.WithDescription("Total number of checkout attempts"),
	)
	if err != nil {
		return err
	}

	DetectionCounter, err = meter.Int64Counter(
		"region_detections_total",
		metric.WithDescription("Region detections by method"),
	)
	if err != nil {
		return err
	}

	ExchangeCallDuration, err = meter.Float64Histogram(
		"exchange_create_duration_seconds",
		metric.WithDescription("Duration of third-party create-exchange calls"),
	)
	if err != nil {
		return err
	}

	HTTPServerDuration, err = meter.Float64Histogram(
		"http_server_duration_milliseconds",
		metric.WithDescription("HTTP server request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	return nil
}
