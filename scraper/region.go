package scraper

import (
	"fmt"

	"boxtrack/models"
)

// ProductURL builds the product page URL for a region. The Egyptian
// marketplace needs the /en/ path prefix to force English content; every
// other marketplace takes language=en_AE as a query parameter.
func ProductURL(asin, region string) (string, error) {
	if !models.ValidASIN(asin) {
		return "", &ValidationError{Field: "asin", Reason: fmt.Sprintf("%q is not a valid ASIN", asin)}
	}
	if !models.ValidRegion(region) {
		return "", &ValidationError{Field: "region", Reason: fmt.Sprintf("%q is not a supported region", region)}
	}
	if region == "eg" {
		return fmt.Sprintf("https://www.amazon.eg/en/dp/%s?language=en_AE", asin), nil
	}
	return fmt.Sprintf("https://www.amazon.%s/dp/%s?language=en_AE", region, asin), nil
}
