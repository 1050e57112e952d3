package region

import (
	"fmt"
	"strings"

	"checkout-service/models"
)

// Decision is the outcome of the commercial-availability check.
type Decision struct {
	Allowed bool
	Reason  string
}

// allowedCountries are the markets checkout is offered in.
var allowedCountries = map[string]string{
	"AU": "Australia",
	"CA": "Canada",
	"US": "United States",
}

// restrictedUSRegions are US states where the payment provider cannot
// operate. Matched by region code and by substring on the free-text region
// name, since geolocation providers return either form.
var restrictedUSRegions = map[string]string{
	"HI": "Hawaii",
	"LA": "Louisiana",
	"NY": "New York",
}

// IsAllowed checks a detected region against the allow-list and, for the
// US, the per-state deny-list.
func IsAllowed(info models.RegionInfo) Decision {
	country := strings.ToUpper(info.CountryCode)

	if _, ok := allowedCountries[country]; !ok {
		return Decision{
			Allowed: false,
			Reason:  fmt.Sprintf("checkout is not available in your country (%s)", country),
		}
	}

	if country == "US" {
		code := strings.ToUpper(info.RegionCode)
		if full, restricted := restrictedUSRegions[code]; restricted {
			return denyState(full)
		}
		regionName := strings.ToLower(info.RegionName)
		for _, full := range restrictedUSRegions {
			if regionName != "" && strings.Contains(regionName, strings.ToLower(full)) {
				return denyState(full)
			}
		}
	}

	return Decision{Allowed: true}
}

func denyState(state string) Decision {
	return Decision{
		Allowed: false,
		Reason:  fmt.Sprintf("checkout is not available in %s", state),
	}
}
