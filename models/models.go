package models

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// MonitoredProduct represents one (ASIN, region) pair being tracked for
// price and Buy Box changes.
type MonitoredProduct struct {
	ID                    int             `json:"id" db:"id"`
	ASIN                  string          `json:"asin" db:"asin"`
	Region                string          `json:"region" db:"region"`
	Title                 sql.NullString  `json:"-" db:"title"`
	ImageURL              sql.NullString  `json:"-" db:"image_url"`
	CurrentPrice          sql.NullFloat64 `json:"-" db:"current_price"`
	PreviousPrice         sql.NullFloat64 `json:"-" db:"previous_price"`
	PriceChange           sql.NullFloat64 `json:"-" db:"price_change"`
	PriceChangePercent    sql.NullFloat64 `json:"-" db:"price_change_percent"`
	PriceDisplay          sql.NullString  `json:"-" db:"price_display"`
	Currency              string          `json:"currency" db:"currency"`
	SellerName            sql.NullString  `json:"-" db:"seller_name"`
	HasBuyBox             bool            `json:"has_buybox" db:"has_buybox"`
	TotalOffers           int             `json:"total_offers" db:"total_offers"`
	LastScrapedAt         *time.Time      `json:"last_scraped_at" db:"last_scraped_at"`
	NextScrapeAt          time.Time       `json:"next_scrape_at" db:"next_scrape_at"`
	ScrapeIntervalMinutes int             `json:"scrape_interval_minutes" db:"scrape_interval_minutes"`
	AlertThresholdPercent float64         `json:"alert_threshold_percent" db:"alert_threshold_percent"`
	IsActive              bool            `json:"is_active" db:"is_active"`
	CreatedAt             time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at" db:"updated_at"`
}

// HasPrice returns true if the product has a known current price.
func (p *MonitoredProduct) HasPrice() bool {
	return p.CurrentPrice.Valid
}

// GetCurrentPrice returns the current price as float64, or 0 if NULL.
func (p *MonitoredProduct) GetCurrentPrice() float64 {
	if p.CurrentPrice.Valid {
		return p.CurrentPrice.Float64
	}
	return 0.0
}

// HasSeller returns true if a seller has been observed for the product.
func (p *MonitoredProduct) HasSeller() bool {
	return p.SellerName.Valid && p.SellerName.String != ""
}

// DueAt returns true if the product is due for a refresh at the given time.
func (p *MonitoredProduct) DueAt(now time.Time) bool {
	return p.IsActive && !p.NextScrapeAt.After(now)
}

// Key identifies the product's (asin, region) pair for single-flight guards.
func (p *MonitoredProduct) Key() string {
	return p.ASIN + "|" + p.Region
}

// Interval returns the scrape interval as a duration.
func (p *MonitoredProduct) Interval() time.Duration {
	return time.Duration(p.ScrapeIntervalMinutes) * time.Minute
}

// MarshalJSON flattens the nullable columns into plain JSON values.
func (p *MonitoredProduct) MarshalJSON() ([]byte, error) {
	type Alias MonitoredProduct
	return json.Marshal(&struct {
		*Alias
		Title              *string  `json:"title"`
		ImageURL           *string  `json:"image_url"`
		CurrentPrice       *float64 `json:"current_price"`
		PreviousPrice      *float64 `json:"previous_price"`
		PriceChange        *float64 `json:"price_change"`
		PriceChangePercent *float64 `json:"price_change_percent"`
		PriceDisplay       *string  `json:"price_display"`
		SellerName         *string  `json:"seller_name"`
	}{
		Alias:              (*Alias)(p),
		Title:              nullStringPtr(p.Title),
		ImageURL:           nullStringPtr(p.ImageURL),
		CurrentPrice:       nullFloatPtr(p.CurrentPrice),
		PreviousPrice:      nullFloatPtr(p.PreviousPrice),
		PriceChange:        nullFloatPtr(p.PriceChange),
		PriceChangePercent: nullFloatPtr(p.PriceChangePercent),
		PriceDisplay:       nullStringPtr(p.PriceDisplay),
		SellerName:         nullStringPtr(p.SellerName),
	})
}

func nullFloatPtr(v sql.NullFloat64) *float64 {
	if v.Valid {
		f := v.Float64
		return &f
	}
	return nil
}

func nullStringPtr(v sql.NullString) *string {
	if v.Valid {
		s := v.String
		return &s
	}
	return nil
}

// PriceHistoryEntry is one append-only price observation.
type PriceHistoryEntry struct {
	ID           int             `json:"id" db:"id"`
	ProductID    int             `json:"product_id" db:"product_id"`
	ASIN         string          `json:"asin" db:"asin"`
	Region       string          `json:"region" db:"region"`
	Price        sql.NullFloat64 `json:"-" db:"price"`
	PriceDisplay sql.NullString  `json:"-" db:"price_display"`
	ScrapedAt    time.Time       `json:"scraped_at" db:"scraped_at"`
}

// MarshalJSON flattens the nullable price columns.
func (e *PriceHistoryEntry) MarshalJSON() ([]byte, error) {
	type Alias PriceHistoryEntry
	return json.Marshal(&struct {
		*Alias
		Price        *float64 `json:"price"`
		PriceDisplay *string  `json:"price_display"`
	}{
		Alias:        (*Alias)(e),
		Price:        nullFloatPtr(e.Price),
		PriceDisplay: nullStringPtr(e.PriceDisplay),
	})
}

// SellerHistoryEntry is one append-only seller/Buy-Box observation. The most
// recent entry for an (asin, region) pair is the current seller snapshot.
type SellerHistoryEntry struct {
	ID          int       `json:"id" db:"id"`
	ProductID   int       `json:"product_id" db:"product_id"`
	ASIN        string    `json:"asin" db:"asin"`
	Region      string    `json:"region" db:"region"`
	SellerName  string    `json:"seller_name" db:"seller_name"`
	HasBuyBox   bool      `json:"has_buybox" db:"has_buybox"`
	TotalOffers int       `json:"total_offers" db:"total_offers"`
	ScrapedAt   time.Time `json:"scraped_at" db:"scraped_at"`
}

// AlertLogEntry records one fired alert for auditability and dedup checks.
type AlertLogEntry struct {
	ID        int       `json:"id" db:"id"`
	ProductID int       `json:"product_id" db:"product_id"`
	ASIN      string    `json:"asin" db:"asin"`
	Region    string    `json:"region" db:"region"`
	AlertType AlertType `json:"alert_type" db:"alert_type"`
	OldValue  string    `json:"old_value" db:"old_value"`
	NewValue  string    `json:"new_value" db:"new_value"`
	SentAt    time.Time `json:"sent_at" db:"sent_at"`
	Delivered bool      `json:"delivered" db:"delivered"`
}

// AddProductRequest is the payload for registering a product for monitoring.
// The threshold is a pointer so an explicit 0 (alert on any price move) is
// distinguishable from an absent field, which takes the configured default.
type AddProductRequest struct {
	ASIN                  string   `json:"asin"`
	Region                string   `json:"region"`
	ScrapeIntervalMinutes int      `json:"scrape_interval_minutes"`
	AlertThresholdPercent *float64 `json:"alert_threshold_percent"`
}

// Validate checks the request against the catalog invariants.
func (r *AddProductRequest) Validate() error {
	if !ValidASIN(r.ASIN) {
		return fmt.Errorf("invalid ASIN %q: must be 10 alphanumeric characters", r.ASIN)
	}
	if !ValidRegion(r.Region) {
		return fmt.Errorf("unsupported region %q: supported regions are %v", r.Region, SupportedRegions)
	}
	if r.ScrapeIntervalMinutes <= 0 {
		return fmt.Errorf("scrape interval must be positive, got %d", r.ScrapeIntervalMinutes)
	}
	if r.AlertThresholdPercent != nil && *r.AlertThresholdPercent < 0 {
		return fmt.Errorf("alert threshold must not be negative, got %.2f", *r.AlertThresholdPercent)
	}
	return nil
}
