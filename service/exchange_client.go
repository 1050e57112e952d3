package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"checkout-service/config"
	"checkout-service/models"
	"checkout-service/monitoring"
)

// ExchangeClient talks to the third-party create-exchange endpoint. The
// endpoint is externally owned; responses are picked apart loosely rather
// than bound to a schema we don't control.
type ExchangeClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
	retries int
	backoff time.Duration
}

// NewExchangeClient creates a client from the service configuration.
func NewExchangeClient(cfg *config.Config) *ExchangeClient {
	return &ExchangeClient{
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   cfg.ExchangeTimeout,
		},
		baseURL: strings.TrimRight(cfg.ExchangeAPIBase, "/"),
		apiKey:  cfg.ExchangeAPIKey,
		retries: cfg.ExchangeRetries,
		backoff: cfg.RetryBackoff,
	}
}

// CreateExchange issues a single POST to the create-exchange endpoint.
// Any non-2xx response or transport error is a failure.
func (c *ExchangeClient) CreateExchange(ctx context.Context, req *models.PurchaseRequest) (*models.ExchangeHandle, error) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("external.service", "exchange-api"),
		attribute.String("exchange.currency_to", req.TargetCurrency),
	)

	refund := req.RefundAddress
	if refund == "" {
		refund = req.Address
	}
	body := &models.ExchangeCreateRequest{
		Fixed:             true,
		CurrencyFrom:      strings.ToLower(req.SourceCurrency),
		CurrencyTo:        strings.ToLower(req.TargetCurrency),
		Amount:            req.Amount.String(),
		AddressTo:         req.Address,
		UserRefundAddress: refund,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/create_exchange?api_key=%s", c.baseURL, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	duration := time.Since(start).Seconds()

	if err != nil {
		c.recordCall(ctx, duration, "error")
		span.SetAttributes(attribute.String("external.status", "error"))
		return nil, fmt.Errorf("failed to call exchange API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		c.recordCall(ctx, duration, "error")
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.recordCall(ctx, duration, "failed")
		span.SetAttributes(
			attribute.Int("external.status_code", resp.StatusCode),
			attribute.String("external.status", "failed"),
		)
		return nil, fmt.Errorf("exchange API returned status %d", resp.StatusCode)
	}

	id := gjson.GetBytes(respBody, "id").String()
	if id == "" {
		c.recordCall(ctx, duration, "failed")
		return nil, fmt.Errorf("exchange API response missing id")
	}

	c.recordCall(ctx, duration, "success")
	span.SetAttributes(
		attribute.String("exchange.id", id),
		attribute.String("external.status", "success"),
	)

	return &models.ExchangeHandle{ID: id}, nil
}

// CreateExchangeWithRetry wraps CreateExchange in a fixed-count attempt
// loop with linear backoff. Context cancellation stops the loop early.
func (c *ExchangeClient) CreateExchangeWithRetry(ctx context.Context, req *models.PurchaseRequest) (*models.ExchangeHandle, error) {
	attempts := c.retries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		handle, err := c.CreateExchange(ctx, req)
		if err == nil {
			return handle, nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * c.backoff):
		}
	}
	return nil, fmt.Errorf("exchange creation failed after %d attempts: %w", attempts, lastErr)
}

func (c *ExchangeClient) recordCall(ctx context.Context, duration float64, status string) {
	monitoring.ExchangeCallDuration.Record(ctx, duration,
		metric.WithAttributes(
			attribute.String("status", status),
		),
	)
}
