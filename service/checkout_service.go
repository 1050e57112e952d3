package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"checkout-service/address"
	"checkout-service/config"
	"checkout-service/logging"
	"checkout-service/models"
	"checkout-service/monitoring"
	"checkout-service/region"
)

// ErrRegionDenied indicates the visitor's region failed the allow-list
// check. The wrapped message names the restriction and is safe to show.
var ErrRegionDenied = errors.New("region not supported")

// CheckoutService runs the checkout pipeline: address format check, region
// gate, then purchase-URL resolution with widget fallback.
type CheckoutService struct {
	tracer   trace.Tracer
	cfg      *config.Config
	detector *region.Detector
	exchange *ExchangeClient
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(tracer trace.Tracer, cfg *config.Config, detector *region.Detector) *CheckoutService {
	return &CheckoutService{
		tracer:   tracer,
		cfg:      cfg,
		detector: detector,
		exchange: NewExchangeClient(cfg),
	}
}

// DetectRegion resolves the visitor's region and checks availability.
func (s *CheckoutService) DetectRegion(ctx context.Context, hints region.Hints) (models.RegionInfo, region.Decision) {
	ctx, span := s.tracer.Start(ctx, "detect_region")
	defer span.End()

	info := s.detector.Detect(ctx, hints)
	span.SetAttributes(
		attribute.String("region.country", info.CountryCode),
		attribute.String("region.method", info.Method),
	)
	return info, region.IsAllowed(info)
}

// ProcessCheckout validates the request, gates on region, and resolves the
// purchase URL. The region gate runs before any URL is built; a denied
// region never reaches the exchange API.
func (s *CheckoutService) ProcessCheckout(ctx context.Context, req *models.CheckoutRequest, hints region.Hints) (*models.CheckoutResponse, error) {
	ctx, span := s.tracer.Start(ctx, "process_checkout")
	defer span.End()

	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = s.cfg.TargetCurrency
	}
	addr := strings.TrimSpace(req.Address)
	if addr == "" {
		addr = s.cfg.WalletAddress
	}

	span.SetAttributes(
		attribute.String("checkout.currency", currency),
		attribute.String("checkout.amount", s.cfg.Amount.String()),
	)
	logger := logging.WithTraceContext(span)

	if err := address.Validate(currency, addr); err != nil {
		s.countCheckout(ctx, "", currency, "invalid_address")
		span.SetAttributes(attribute.String("checkout.status", "invalid_address"))
		return nil, err
	}

	info := s.detector.Detect(ctx, hints)
	span.SetAttributes(
		attribute.String("region.country", info.CountryCode),
		attribute.String("region.method", info.Method),
	)

	if decision := region.IsAllowed(info); !decision.Allowed {
		logger.Info("Checkout blocked by region gate",
			zap.String("country", info.CountryCode),
			zap.String("region", info.RegionCode),
			zap.String("reason", decision.Reason),
		)
		s.countCheckout(ctx, info.CountryCode, currency, "region_denied")
		span.SetAttributes(attribute.String("checkout.status", "region_denied"))
		return nil, fmt.Errorf("%w: %s", ErrRegionDenied, decision.Reason)
	}

	purchase := &models.PurchaseRequest{
		Amount:          s.cfg.Amount,
		SourceCurrency:  s.cfg.SourceCurrency,
		TargetCurrency:  currency,
		Address:         addr,
		RefundAddress:   strings.TrimSpace(req.RefundAddress),
		PaymentProvider: s.cfg.PaymentProvider,
	}

	resolved := s.ResolvePurchaseURL(ctx, purchase)

	s.countCheckout(ctx, info.CountryCode, currency, "success")
	span.SetAttributes(attribute.String("checkout.status", "success"))

	response := &models.CheckoutResponse{
		CheckoutID:  uuid.NewString(),
		URL:         resolved,
		FallbackURL: s.BuildWidgetRedirectURL(purchase),
		Amount:      purchase.Amount.String(),
		Currency:    currency,
		Address:     addr,
		Provider:    purchase.PaymentProvider,
		Region:      info,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}

	logger.Info("Checkout resolved",
		zap.String("checkout_id", response.CheckoutID),
		zap.String("country", info.CountryCode),
		zap.String("currency", currency),
	)

	return response, nil
}

// ResolvePurchaseURL prefers a server-created exchange session and falls
// back to the deterministic widget URL on any failure. The widget
// re-validates everything, so the fallback path never surfaces an error.
func (s *CheckoutService) ResolvePurchaseURL(ctx context.Context, req *models.PurchaseRequest) string {
	handle, err := s.exchange.CreateExchangeWithRetry(ctx, req)
	if err != nil {
		logging.Warn("Exchange creation failed, falling back to widget URL",
			zap.String("currency", req.TargetCurrency),
			zap.Error(err),
		)
		return s.BuildWidgetRedirectURL(req)
	}
	return fmt.Sprintf("%s/exchange/%s", strings.TrimRight(s.cfg.WidgetBaseURL, "/"), handle.ID)
}

// BuildWidgetRedirectURL serializes the request into the hosted widget's
// query string. Pure: identical requests yield byte-identical URLs
// (url.Values encodes keys in sorted order), and the forced provider
// parameter is always present.
func (s *CheckoutService) BuildWidgetRedirectURL(req *models.PurchaseRequest) string {
	q := url.Values{}
	q.Set("from", strings.ToLower(req.SourceCurrency))
	q.Set("to", strings.ToLower(req.TargetCurrency))
	q.Set("amount", req.Amount.String())
	q.Set("address", req.Address)
	q.Set("provider", req.PaymentProvider)
	return fmt.Sprintf("%s/?%s", strings.TrimRight(s.cfg.WidgetBaseURL, "/"), q.Encode())
}

func (s *CheckoutService) countCheckout(ctx context.Context, country, currency, outcome string) {
	monitoring.CheckoutCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("country", country),
			attribute.String("currency", currency),
			attribute.String("outcome", outcome),
		),
	)
}
