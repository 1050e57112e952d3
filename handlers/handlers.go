package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"checkout-service/address"
	"checkout-service/logging"
	"checkout-service/models"
	"checkout-service/ratelimit"
	"checkout-service/region"
	"checkout-service/service"
)

// CheckoutHandler handles HTTP requests for the checkout flow.
type CheckoutHandler struct {
	checkoutService *service.CheckoutService
	limiter         *ratelimit.Limiter
	rateLimit       int
	rateWindow      time.Duration
}

// NewCheckoutHandler creates a new checkout handler. limit and window
// bound checkout attempts per client IP.
func NewCheckoutHandler(checkoutService *service.CheckoutService, limiter *ratelimit.Limiter, limit int, window time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		limiter:         limiter,
		rateLimit:       limit,
		rateWindow:      window,
	}
}

// Checkout handles POST /api/v1/checkout.
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	ctx := c.Request.Context()
	span := trace.SpanFromContext(ctx)

	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.limiter != nil && !h.limiter.Allow("checkout:"+c.ClientIP(), h.rateLimit, h.rateWindow) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many checkout attempts, please wait"})
		return
	}

	hints := hintsFromRequest(c, &req)
	response, err := h.checkoutService.ProcessCheckout(ctx, &req, hints)
	if err != nil {
		logger := logging.WithTraceContext(span)
		switch {
		case errors.Is(err, address.ErrInvalidFormat):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrRegionDenied):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		default:
			logger.Error("Checkout failed",
				zap.Error(err),
				zap.String("currency", req.Currency),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "checkout failed"})
		}
		return
	}

	span.AddEvent("checkout_resolved")
	c.JSON(http.StatusOK, response)
}

// Region handles GET /api/v1/region. Detection hints come from query
// parameters so the page can probe availability before rendering the
// buy button.
func (h *CheckoutHandler) Region(c *gin.Context) {
	ctx := c.Request.Context()

	hints := region.Hints{
		IP:       c.ClientIP(),
		Timezone: c.Query("tz"),
		Locale:   localeHint(c),
	}
	if lat, err := strconv.ParseFloat(c.Query("lat"), 64); err == nil {
		if lon, err := strconv.ParseFloat(c.Query("lon"), 64); err == nil {
			hints.Lat, hints.Lon = &lat, &lon
		}
	}

	info, decision := h.checkoutService.DetectRegion(ctx, hints)
	c.JSON(http.StatusOK, models.RegionResponse{
		Region:  info,
		Allowed: decision.Allowed,
		Reason:  decision.Reason,
	})
}

// HealthCheck handles health check requests
func (h *CheckoutHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func hintsFromRequest(c *gin.Context, req *models.CheckoutRequest) region.Hints {
	locale := req.Locale
	if locale == "" {
		locale = localeHint(c)
	}
	return region.Hints{
		IP:       c.ClientIP(),
		Lat:      req.Lat,
		Lon:      req.Lon,
		Timezone: req.Timezone,
		Locale:   locale,
	}
}

// localeHint takes the first tag of the Accept-Language header.
func localeHint(c *gin.Context) string {
	header := c.GetHeader("Accept-Language")
	if header == "" {
		return ""
	}
	for i := 0; i < len(header); i++ {
		if header[i] == ',' || header[i] == ';' {
			return header[:i]
		}
	}
	return header
}
