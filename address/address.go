// Package address provides format checks for destination wallet addresses.
// These are syntactic checks only; no checksum or on-chain validation is
// attempted.
package address

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidFormat indicates the address does not match the expected
// format for its currency.
var ErrInvalidFormat = errors.New("invalid address format")

var patterns = map[string]*regexp.Regexp{
	// Legacy (1...), script-hash (3...) and bech32 (bc1...) forms.
	"btc":  regexp.MustCompile(`^(?:[13][a-km-zA-HJ-NP-Z1-9]{25,34}|bc1[02-9ac-hj-np-z]{11,87})$`),
	"eth":  regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`),
	"usdt": regexp.MustCompile(`^(?:0x[0-9a-fA-F]{40}|T[1-9A-HJ-NP-Za-km-z]{33})$`),
	"usdc": regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`),
	"ltc":  regexp.MustCompile(`^(?:[LM][a-km-zA-HJ-NP-Z1-9]{26,33}|ltc1[02-9ac-hj-np-z]{11,87})$`),
	"doge": regexp.MustCompile(`^D[5-9A-HJ-NP-U][1-9A-HJ-NP-Za-km-z]{32}$`),
	"sol":  regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`),
	"xrp":  regexp.MustCompile(`^r[1-9A-HJ-NP-Za-km-z]{24,34}$`),
	"trx":  regexp.MustCompile(`^T[1-9A-HJ-NP-Za-km-z]{33}$`),
}

// genericPattern is the fallback for tickers without a dedicated pattern.
// It rejects whitespace, markup and anything outside the usual address
// alphabets.
var genericPattern = regexp.MustCompile(`^[0-9A-Za-z]{20,100}$`)

// Validate checks that addr is plausibly a valid address for the given
// currency ticker. Returns ErrInvalidFormat (wrapped) on failure.
func Validate(currency, addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return fmt.Errorf("%w: empty address", ErrInvalidFormat)
	}

	pattern, ok := patterns[strings.ToLower(currency)]
	if !ok {
		pattern = genericPattern
	}
	if !pattern.MatchString(addr) {
		return fmt.Errorf("%w: not a valid %s address", ErrInvalidFormat, strings.ToUpper(currency))
	}
	return nil
}

// IsValid reports whether addr passes Validate.
func IsValid(currency, addr string) bool {
	return Validate(currency, addr) == nil
}
