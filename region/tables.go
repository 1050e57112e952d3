package region

// Static lookup tables for the non-IP detection fallbacks. Coverage is
// deliberately partial: the allowed markets plus the countries we most
// often see traffic from. Anything unmatched falls through to the next
// detection method.

type boundingBox struct {
	country string
	region  string
	minLat  float64
	maxLat  float64
	minLon  float64
	maxLon  float64
}

// countryBounds is checked in order; sub-region boxes come before the
// country boxes that contain them.
var countryBounds = []boundingBox{
	{country: "US", region: "HI", minLat: 18.5, maxLat: 22.5, minLon: -160.5, maxLon: -154.5},
	{country: "US", region: "AK", minLat: 51.0, maxLat: 71.5, minLon: -170.0, maxLon: -129.0},
	{country: "US", minLat: 24.5, maxLat: 49.5, minLon: -125.0, maxLon: -66.9},
	{country: "CA", minLat: 41.7, maxLat: 83.2, minLon: -141.0, maxLon: -52.6},
	{country: "AU", minLat: -43.7, maxLat: -10.0, minLon: 112.9, maxLon: 153.7},
	{country: "GB", minLat: 49.9, maxLat: 58.7, minLon: -8.2, maxLon: 1.8},
	{country: "DE", minLat: 47.3, maxLat: 55.1, minLon: 5.9, maxLon: 15.1},
	{country: "FR", minLat: 41.3, maxLat: 51.1, minLon: -5.2, maxLon: 9.6},
	{country: "JP", minLat: 24.0, maxLat: 45.6, minLon: 122.9, maxLon: 153.9},
}

type tzEntry struct {
	country string
	region  string
}

var timezoneTable = map[string]tzEntry{
	"America/New_York":    {country: "US"},
	"America/Chicago":     {country: "US"},
	"America/Denver":      {country: "US"},
	"America/Phoenix":     {country: "US"},
	"America/Los_Angeles": {country: "US"},
	"America/Anchorage":   {country: "US", region: "AK"},
	"Pacific/Honolulu":    {country: "US", region: "HI"},

	"America/Toronto":   {country: "CA"},
	"America/Vancouver": {country: "CA"},
	"America/Edmonton":  {country: "CA"},
	"America/Winnipeg":  {country: "CA"},
	"America/Halifax":   {country: "CA"},
	"America/St_Johns":  {country: "CA"},

	"Australia/Sydney":    {country: "AU"},
	"Australia/Melbourne": {country: "AU"},
	"Australia/Brisbane":  {country: "AU"},
	"Australia/Perth":     {country: "AU"},
	"Australia/Adelaide":  {country: "AU"},
	"Australia/Hobart":    {country: "AU"},
	"Australia/Darwin":    {country: "AU"},

	"Europe/London": {country: "GB"},
	"Europe/Berlin": {country: "DE"},
	"Europe/Paris":  {country: "FR"},
	"Asia/Tokyo":    {country: "JP"},
}
