package scraper

import (
	"strings"

	"boxtrack/models"
)

// Extractor parses a rendered product page into a snapshot of its fields.
type Extractor interface {
	Extract(html, asin, region string) (*models.PageSnapshot, error)
}

var unavailablePhrases = []string{
	"currently unavailable",
	"temporarily out of stock",
	"out of stock",
	"we don't know when",
}

var shippingRestrictedPhrases = []string{
	"cannot be shipped to your selected delivery location",
	"cannot be shipped to",
	"cannot be dispatched",
	"does not ship to",
	"item does not ship to",
	"choose a different delivery location",
}

var robotCheckPhrases = []string{
	"type the characters you see in this image",
	"enter the characters you see below",
}

// ClassifyPage decides what kind of page the fetch landed on, from the
// rendered body text. Shipping restriction is checked before general
// unavailability so pages carrying both phrases classify as restricted.
func ClassifyPage(html string) models.FetchStatus {
	body := strings.ToLower(html)

	for _, phrase := range robotCheckPhrases {
		if strings.Contains(body, phrase) {
			return models.FetchFailed
		}
	}
	for _, phrase := range shippingRestrictedPhrases {
		if strings.Contains(body, phrase) {
			return models.FetchShippingRestricted
		}
	}
	for _, phrase := range unavailablePhrases {
		if strings.Contains(body, phrase) {
			return models.FetchUnavailable
		}
	}
	return models.FetchSuccess
}
