package region

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"checkout-service/logging"
	"checkout-service/models"
	"checkout-service/monitoring"
)

// Hints are the client-supplied inputs available to the detection chain.
// Everything except IP is optional; the page forwards what the browser
// exposes (geolocation coordinates, Intl timezone, navigator language).
type Hints struct {
	IP       string
	Lat      *float64
	Lon      *float64
	Timezone string
	Locale   string
}

// Detector resolves a visitor's region through an ordered chain of
// best-effort lookups. Every step swallows its own failure; Detect never
// returns an error, only a result with an honest confidence level.
type Detector struct {
	client         *http.Client
	baseURL        string
	defaultCountry string
}

// NewDetector creates a detector against the given IP-geolocation provider.
func NewDetector(geoBaseURL, defaultCountry string, timeout time.Duration) *Detector {
	return &Detector{
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
		baseURL:        strings.TrimRight(geoBaseURL, "/"),
		defaultCountry: defaultCountry,
	}
}

// Detect runs the fallback chain: IP lookup, coordinates, timezone,
// language, hardcoded default. The first step that yields a country wins.
func (d *Detector) Detect(ctx context.Context, hints Hints) models.RegionInfo {
	info, err := d.lookupIP(ctx, hints.IP)
	if err == nil {
		return d.record(ctx, info)
	}
	logging.Warn("IP geolocation failed, falling back",
		zap.String("ip", hints.IP),
		zap.Error(err),
	)

	if hints.Lat != nil && hints.Lon != nil {
		if info, ok := lookupCoordinates(*hints.Lat, *hints.Lon); ok {
			return d.record(ctx, info)
		}
	}

	if hints.Timezone != "" {
		if info, ok := lookupTimezone(hints.Timezone); ok {
			return d.record(ctx, info)
		}
	}

	if hints.Locale != "" {
		if info, ok := lookupLocale(hints.Locale); ok {
			return d.record(ctx, info)
		}
	}

	return d.record(ctx, models.RegionInfo{
		CountryCode: d.defaultCountry,
		Method:      models.MethodFallback,
		Confidence:  models.ConfidenceLow,
	})
}

func (d *Detector) record(ctx context.Context, info models.RegionInfo) models.RegionInfo {
	monitoring.DetectionCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("method", info.Method),
			attribute.String("country", info.CountryCode),
		),
	)
	return info
}

// lookupIP queries the geolocation provider. The response schema is owned
// by the provider, so only the fields we need are picked out.
func (d *Detector) lookupIP(ctx context.Context, ip string) (models.RegionInfo, error) {
	if !isPublicIP(ip) {
		return models.RegionInfo{}, fmt.Errorf("no public client IP")
	}

	url := fmt.Sprintf("%s/%s/json/", d.baseURL, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.RegionInfo{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return models.RegionInfo{}, fmt.Errorf("geolocation request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return models.RegionInfo{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return models.RegionInfo{}, fmt.Errorf("geolocation provider returned status %d", resp.StatusCode)
	}

	country := strings.ToUpper(gjson.GetBytes(body, "country_code").String())
	if len(country) != 2 {
		return models.RegionInfo{}, fmt.Errorf("geolocation response missing country_code")
	}

	return models.RegionInfo{
		CountryCode: country,
		RegionCode:  strings.ToUpper(gjson.GetBytes(body, "region_code").String()),
		RegionName:  gjson.GetBytes(body, "region").String(),
		City:        gjson.GetBytes(body, "city").String(),
		Method:      models.MethodIP,
		Confidence:  models.ConfidenceHigh,
	}, nil
}

func lookupCoordinates(lat, lon float64) (models.RegionInfo, bool) {
	for _, b := range countryBounds {
		if lat >= b.minLat && lat <= b.maxLat && lon >= b.minLon && lon <= b.maxLon {
			return models.RegionInfo{
				CountryCode: b.country,
				RegionCode:  b.region,
				Method:      models.MethodCoordinates,
				Confidence:  models.ConfidenceMedium,
			}, true
		}
	}
	return models.RegionInfo{}, false
}

func lookupTimezone(tz string) (models.RegionInfo, bool) {
	entry, ok := timezoneTable[tz]
	if !ok {
		return models.RegionInfo{}, false
	}
	return models.RegionInfo{
		CountryCode: entry.country,
		RegionCode:  entry.region,
		Method:      models.MethodTimezone,
		Confidence:  models.ConfidenceMedium,
	}, true
}

// lookupLocale extracts the region subtag from a BCP-47 tag ("en-US",
// "fr_CA"). Language-only tags carry no region and fail the step.
func lookupLocale(locale string) (models.RegionInfo, bool) {
	tag := strings.ReplaceAll(locale, "_", "-")
	for _, part := range strings.Split(tag, "-") {
		if len(part) == 2 && isAlpha(part) && part == strings.ToUpper(part) {
			return models.RegionInfo{
				CountryCode: part,
				Method:      models.MethodLanguage,
				Confidence:  models.ConfidenceLow,
			}, true
		}
	}
	// Tolerate lowercased region subtags ("en-us") in the second position.
	parts := strings.Split(tag, "-")
	if len(parts) >= 2 && len(parts[1]) == 2 && isAlpha(parts[1]) {
		return models.RegionInfo{
			CountryCode: strings.ToUpper(parts[1]),
			Method:      models.MethodLanguage,
			Confidence:  models.ConfidenceLow,
		}, true
	}
	return models.RegionInfo{}, false
}

func isAlpha(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

func isPublicIP(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	return !parsed.IsLoopback() && !parsed.IsPrivate() && !parsed.IsUnspecified() && !parsed.IsLinkLocalUnicast()
}
