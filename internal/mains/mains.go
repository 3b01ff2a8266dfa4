// Package mains resolves the local mains frequency used for hum rejection.
package mains

import (
	"errors"
	"fmt"
	"strings"

	tz "github.com/medama-io/go-timezone-country"
	"github.com/thlib/go-timezone-local/tzlocal"
)

// Fallback is used when the timezone says nothing about the grid.
const Fallback = 50.0

// ErrNoCountry is returned for timezones without a country, such as UTC.
var ErrNoCountry = errors.New("timezone has no country")

// Resolve returns configured when it is positive, otherwise the frequency
// derived from the system timezone. source describes where the value came
// from for logging.
func Resolve(configured float64) (hz float64, source string) {
	if configured > 0 {
		return configured, "configured"
	}
	zone, err := tzlocal.RuntimeTZ()
	if err != nil {
		return Fallback, "fallback: " + err.Error()
	}
	hz, err = ForTimezone(zone)
	if err != nil {
		return Fallback, "fallback: " + err.Error()
	}
	return hz, "timezone " + zone
}

// ForTimezone maps an IANA timezone to 50 or 60 Hz.
func ForTimezone(zone string) (float64, error) {
	if zone == "UTC" || zone == "GMT" || strings.HasPrefix(zone, "Etc/") {
		return 0, fmt.Errorf("%s: %w", zone, ErrNoCountry)
	}
	m, err := tz.NewTimezoneCountryMap()
	if err != nil {
		return 0, err
	}
	country, err := m.GetCountry(zone)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", zone, err)
	}
	return ForCountry(country), nil
}

// ForCountry returns 60 for countries whose grid runs at 60 Hz and 50 for
// everything else. Split grids report their majority frequency.
func ForCountry(country string) float64 {
	if grid60[country] {
		return 60
	}
	return 50
}

var grid60 = map[string]bool{
	"United States": true, "Canada": true, "Mexico": true,
	"Belize": true, "Costa Rica": true, "El Salvador": true, "Guatemala": true,
	"Honduras": true, "Nicaragua": true, "Panama": true,
	"Bahamas": true, "Barbados": true, "Cayman Islands": true, "Cuba": true,
	"Dominican Republic": true, "Haiti": true, "Jamaica": true,
	"Puerto Rico": true, "Trinidad and Tobago": true, "U.S. Virgin Islands": true,
	"Brazil": true, "Colombia": true, "Ecuador": true, "Guyana": true,
	"Peru": true, "Suriname": true, "Venezuela": true,
	"South Korea": true, "Taiwan": true, "Philippines": true, "Saudi Arabia": true,
	"Guam": true, "American Samoa": true, "Marshall Islands": true,
	"Micronesia": true, "Palau": true,
}
