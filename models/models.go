package models

import "github.com/shopspring/decimal"

// Detection methods, ordered from most to least reliable.
const (
	MethodIP          = "ip"
	MethodCoordinates = "coordinates"
	MethodTimezone    = "timezone"
	MethodLanguage    = "language"
	MethodFallback    = "fallback"
)

// Confidence levels for a detected region.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// RegionInfo describes where a visitor appears to be. Produced fresh for
// every request and never persisted.
type RegionInfo struct {
	CountryCode string `json:"country_code"`
	RegionCode  string `json:"region_code,omitempty"`
	RegionName  string `json:"region_name,omitempty"`
	City        string `json:"city,omitempty"`
	Method      string `json:"method"`
	Confidence  string `json:"confidence"`
}

// CheckoutRequest represents a checkout attempt from the landing page.
// An empty Address falls back to the deployment's configured wallet.
// Lat/Lon, Timezone and Locale are optional hints the page forwards from
// the browser so region detection can fall back past the IP lookup.
type CheckoutRequest struct {
	Currency      string   `json:"currency"`
	Address       string   `json:"address,omitempty"`
	RefundAddress string   `json:"refund_address,omitempty"`
	Lat           *float64 `json:"lat,omitempty"`
	Lon           *float64 `json:"lon,omitempty"`
	Timezone      string   `json:"timezone,omitempty"`
	Locale        string   `json:"locale,omitempty"`
}

// CheckoutResponse carries the resolved purchase URL back to the page.
// FallbackURL is always the deterministic widget URL so the page can render
// a manual link if the browser blocks the redirect.
type CheckoutResponse struct {
	CheckoutID  string     `json:"checkout_id"`
	URL         string     `json:"url"`
	FallbackURL string     `json:"fallback_url"`
	Amount      string     `json:"amount"`
	Currency    string     `json:"currency"`
	Address     string     `json:"address"`
	Provider    string     `json:"provider"`
	Region      RegionInfo `json:"region"`
	CreatedAt   string     `json:"created_at"`
}

// RegionResponse is the /api/v1/region payload.
type RegionResponse struct {
	Region  RegionInfo `json:"region"`
	Allowed bool       `json:"allowed"`
	Reason  string     `json:"reason,omitempty"`
}

// PurchaseRequest is the internal, validated request consumed by URL
// construction. Amount is echoed, never computed.
type PurchaseRequest struct {
	Amount          decimal.Decimal
	SourceCurrency  string
	TargetCurrency  string
	Address         string
	RefundAddress   string
	PaymentProvider string
}

// ExchangeCreateRequest is the wire body for the third-party
// create-exchange endpoint.
type ExchangeCreateRequest struct {
	Fixed             bool   `json:"fixed"`
	CurrencyFrom      string `json:"currency_from"`
	CurrencyTo        string `json:"currency_to"`
	Amount            string `json:"amount"`
	AddressTo         string `json:"address_to"`
	UserRefundAddress string `json:"user_refund_address"`
}

// ExchangeHandle identifies a server-side exchange session created by the
// third party.
type ExchangeHandle struct {
	ID string `json:"id"`
}
