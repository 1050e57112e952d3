package service_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"checkout-service/address"
	"checkout-service/config"
	"checkout-service/models"
	"checkout-service/region"
	"checkout-service/service"
)

const btcAddress = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"

func testConfig(exchangeURL, widgetURL string) *config.Config {
	return &config.Config{
		ServiceName:     "checkout-service-test",
		Amount:          decimal.RequireFromString("19.50"),
		SourceCurrency:  "eur",
		TargetCurrency:  "btc",
		PaymentProvider: "mercuryo",
		WalletAddress:   btcAddress,
		DefaultCountry:  "US",
		GeoTimeout:      time.Second,
		GeoProviderURL:  "http://127.0.0.1:0",
		ExchangeAPIBase: exchangeURL,
		ExchangeAPIKey:  "test-key",
		WidgetBaseURL:   widgetURL,
		ExchangeTimeout: time.Second,
		ExchangeRetries: 3,
		RetryBackoff:    time.Millisecond,
	}
}

func newService(cfg *config.Config) *service.CheckoutService {
	detector := region.NewDetector(cfg.GeoProviderURL, cfg.DefaultCountry, cfg.GeoTimeout)
	return service.NewCheckoutService(otel.Tracer("test"), cfg, detector)
}

func geoServer(t *testing.T, countryCode, regionCode, regionName string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"country_code":%q,"region_code":%q,"region":%q,"city":"Test City"}`,
			countryCode, regionCode, regionName)
	}))
}

func purchaseRequest() *models.PurchaseRequest {
	return &models.PurchaseRequest{
		Amount:          decimal.RequireFromString("19.50"),
		SourceCurrency:  "eur",
		TargetCurrency:  "btc",
		Address:         btcAddress,
		PaymentProvider: "mercuryo",
	}
}

func TestBuildWidgetRedirectURL_PureAndStable(t *testing.T) {
	svc := newService(testConfig("http://127.0.0.1:0", "https://widget.example.com"))

	first := svc.BuildWidgetRedirectURL(purchaseRequest())
	second := svc.BuildWidgetRedirectURL(purchaseRequest())

	require.Equal(t, first, second, "identical requests must yield byte-identical URLs")
}

func TestBuildWidgetRedirectURL_QueryParameters(t *testing.T) {
	svc := newService(testConfig("http://127.0.0.1:0", "https://widget.example.com"))

	raw := svc.BuildWidgetRedirectURL(purchaseRequest())
	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "widget.example.com", parsed.Host)

	q := parsed.Query()
	require.Equal(t, "eur", q.Get("from"))
	require.Equal(t, "btc", q.Get("to"))
	require.Equal(t, "19.5", q.Get("amount"))
	require.Equal(t, btcAddress, q.Get("address"))
	require.Equal(t, "mercuryo", q.Get("provider"), "forced provider parameter must always be present")
}

func TestCreateExchange_WireFormat(t *testing.T) {
	var got models.ExchangeCreateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/create_exchange", r.URL.Path)
		require.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"id":"ex-42","status":"waiting"}`)
	}))
	defer srv.Close()

	client := service.NewExchangeClient(testConfig(srv.URL, "https://widget.example.com"))
	handle, err := client.CreateExchange(context.Background(), purchaseRequest())
	require.NoError(t, err)
	require.Equal(t, "ex-42", handle.ID)

	require.True(t, got.Fixed)
	require.Equal(t, "eur", got.CurrencyFrom)
	require.Equal(t, "btc", got.CurrencyTo)
	require.Equal(t, "19.5", got.Amount)
	require.Equal(t, btcAddress, got.AddressTo)
	require.Equal(t, btcAddress, got.UserRefundAddress, "refund address defaults to the destination")
}

func TestCreateExchangeWithRetry_GivesUpAfterRetries(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := service.NewExchangeClient(testConfig(srv.URL, "https://widget.example.com"))
	_, err := client.CreateExchangeWithRetry(context.Background(), purchaseRequest())

	require.Error(t, err)
	require.EqualValues(t, 3, atomic.LoadInt64(&calls))
}

func TestResolvePurchaseURL_UsesExchangeSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"ex-abc123"}`)
	}))
	defer srv.Close()

	svc := newService(testConfig(srv.URL, "https://widget.example.com"))
	resolved := svc.ResolvePurchaseURL(context.Background(), purchaseRequest())

	require.Equal(t, "https://widget.example.com/exchange/ex-abc123", resolved)
}

func TestResolvePurchaseURL_FallsBackOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := newService(testConfig(srv.URL, "https://widget.example.com"))
	resolved := svc.ResolvePurchaseURL(context.Background(), purchaseRequest())

	require.Equal(t, svc.BuildWidgetRedirectURL(purchaseRequest()), resolved,
		"fallback must match the pure widget URL for the same request")
}

func TestProcessCheckout_BlockedInNewYork(t *testing.T) {
	geo := geoServer(t, "US", "NY", "New York")
	defer geo.Close()

	var exchangeCalls int64
	exchange := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&exchangeCalls, 1)
		fmt.Fprint(w, `{"id":"ex-1"}`)
	}))
	defer exchange.Close()

	cfg := testConfig(exchange.URL, "https://widget.example.com")
	cfg.GeoProviderURL = geo.URL
	svc := newService(cfg)

	_, err := svc.ProcessCheckout(context.Background(),
		&models.CheckoutRequest{Currency: "btc", Address: btcAddress},
		region.Hints{IP: "93.184.216.34"},
	)

	require.ErrorIs(t, err, service.ErrRegionDenied)
	require.Contains(t, err.Error(), "New York")
	require.Zero(t, atomic.LoadInt64(&exchangeCalls), "no URL may be built for a denied region")
}

func TestProcessCheckout_CanadaFallsBackToWidget(t *testing.T) {
	geo := geoServer(t, "CA", "ON", "Ontario")
	defer geo.Close()

	exchange := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unreachable", http.StatusBadGateway)
	}))
	defer exchange.Close()

	cfg := testConfig(exchange.URL, "https://widget.example.com")
	cfg.GeoProviderURL = geo.URL
	svc := newService(cfg)

	resp, err := svc.ProcessCheckout(context.Background(),
		&models.CheckoutRequest{Currency: "btc", Address: btcAddress},
		region.Hints{IP: "93.184.216.34"},
	)
	require.NoError(t, err)
	require.Equal(t, "CA", resp.Region.CountryCode)
	require.NotEmpty(t, resp.CheckoutID)

	parsed, err := url.Parse(resp.URL)
	require.NoError(t, err)
	require.Equal(t, url.Values{
		"from":     {"eur"},
		"to":       {"btc"},
		"amount":   {"19.5"},
		"address":  {btcAddress},
		"provider": {"mercuryo"},
	}, parsed.Query())
	require.Equal(t, resp.URL, resp.FallbackURL)
}

func TestProcessCheckout_InvalidAddress(t *testing.T) {
	var exchangeCalls int64
	exchange := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&exchangeCalls, 1)
	}))
	defer exchange.Close()

	svc := newService(testConfig(exchange.URL, "https://widget.example.com"))

	_, err := svc.ProcessCheckout(context.Background(),
		&models.CheckoutRequest{Currency: "btc", Address: "<script>alert(1)</script>"},
		region.Hints{},
	)

	require.ErrorIs(t, err, address.ErrInvalidFormat)
	require.Zero(t, atomic.LoadInt64(&exchangeCalls))
}

func TestProcessCheckout_DefaultsFromConfig(t *testing.T) {
	geo := geoServer(t, "AU", "", "")
	defer geo.Close()

	exchange := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"ex-7"}`)
	}))
	defer exchange.Close()

	cfg := testConfig(exchange.URL, "https://widget.example.com")
	cfg.GeoProviderURL = geo.URL
	svc := newService(cfg)

	// Empty currency and address fall back to the configured constants.
	resp, err := svc.ProcessCheckout(context.Background(),
		&models.CheckoutRequest{},
		region.Hints{IP: "93.184.216.34"},
	)
	require.NoError(t, err)
	require.Equal(t, "btc", resp.Currency)
	require.Equal(t, btcAddress, resp.Address)
	require.Equal(t, "19.5", resp.Amount)
	require.Equal(t, "mercuryo", resp.Provider)
}
