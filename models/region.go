package models

import "regexp"

// SupportedRegions lists the Amazon marketplaces the system can monitor,
// keyed by the top-level domain suffix.
var SupportedRegions = []string{"eg", "sa", "ae", "com", "de"}

// RegionCurrency maps a region code to the ISO currency code its
// marketplace prices in.
var RegionCurrency = map[string]string{
	"eg":  "EGP",
	"sa":  "SAR",
	"ae":  "AED",
	"com": "USD",
	"de":  "EUR",
}

var asinPattern = regexp.MustCompile(`^[A-Z0-9]{10}$`)

// ValidASIN reports whether s is a well-formed Amazon product identifier.
func ValidASIN(s string) bool {
	return asinPattern.MatchString(s)
}

// ValidRegion reports whether region is one of the supported marketplaces.
func ValidRegion(region string) bool {
	for _, r := range SupportedRegions {
		if r == region {
			return true
		}
	}
	return false
}

// CurrencyFor returns the currency code for a region, defaulting to USD
// for anything unknown.
func CurrencyFor(region string) string {
	if c, ok := RegionCurrency[region]; ok {
		return c
	}
	return "USD"
}
