package models

import "time"

// FetchStatus classifies the outcome of one page fetch.
type FetchStatus string

const (
	// FetchSuccess means the product page rendered and was parsed.
	FetchSuccess FetchStatus = "success"
	// FetchUnavailable means the page loaded but the product cannot be
	// bought in that marketplace.
	FetchUnavailable FetchStatus = "unavailable"
	// FetchShippingRestricted means the product exists but does not ship
	// to the marketplace's locale.
	FetchShippingRestricted FetchStatus = "shipping_restricted"
	// FetchFailed means the fetch did not produce a usable page after
	// all retries.
	FetchFailed FetchStatus = "failed"
)

// Terminal reports whether the status represents a definitive observation
// (as opposed to a transient failure).
func (s FetchStatus) Terminal() bool {
	return s == FetchSuccess || s == FetchUnavailable || s == FetchShippingRestricted
}

// PageSnapshot holds the raw fields extracted from one product page.
type PageSnapshot struct {
	Title        string
	Price        *float64
	PriceDisplay string
	SellerName   string
	HasBuyBox    bool
	TotalOffers  int
	ImageURL     string
}

// RegionResult is the outcome of fetching one ASIN in one region.
type RegionResult struct {
	ASIN         string      `json:"asin"`
	Region       string      `json:"region"`
	Status       FetchStatus `json:"status"`
	Title        string      `json:"title,omitempty"`
	Price        *float64    `json:"price"`
	PriceDisplay string      `json:"price_display,omitempty"`
	Currency     string      `json:"currency"`
	SellerName   string      `json:"seller_name,omitempty"`
	HasBuyBox    bool        `json:"has_buybox"`
	TotalOffers  int         `json:"total_offers"`
	ImageURL     string      `json:"image_url,omitempty"`
	ErrorMessage string      `json:"error,omitempty"`
	Attempts     int         `json:"attempts"`
	ScrapedAt    time.Time   `json:"scraped_at"`
}

// HasSeller reports whether a seller was observed on the page.
func (r *RegionResult) HasSeller() bool {
	return r.SellerName != ""
}

// MultiRegionResult aggregates one ASIN's results across regions.
type MultiRegionResult struct {
	ASIN      string                  `json:"asin"`
	Results   map[string]RegionResult `json:"results"`
	StartedAt time.Time               `json:"started_at"`
	Duration  time.Duration           `json:"duration_ns"`
}

// AlertType identifies the kind of state change an alert reports.
type AlertType string

const (
	AlertPriceChange AlertType = "price_change"
	AlertBuyBoxLost  AlertType = "buybox_lost"
	AlertBuyBoxWon   AlertType = "buybox_won"
)

// AlertEvent is a fully resolved alert ready for delivery.
type AlertEvent struct {
	Type          AlertType
	ProductID     int
	ASIN          string
	Region        string
	Title         string
	Currency      string
	OldPrice      float64
	NewPrice      float64
	ChangePercent float64
	OldSeller     string
	NewSeller     string
	OccurredAt    time.Time
}
