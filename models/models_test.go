package models

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"
)

func TestValidASIN(t *testing.T) {
	cases := []struct {
		asin string
		want bool
	}{
		{"B0CHX1W1XY", true},
		{"0123456789", true},
		{"b0chx1w1xy", false},
		{"B0CHX1W1X", false},
		{"B0CHX1W1XYZ", false},
		{"B0CHX1W1X!", false},
		{"", false},
	}

	for _, tc := range cases {
		if got := ValidASIN(tc.asin); got != tc.want {
			t.Errorf("ValidASIN(%q) = %v, want %v", tc.asin, got, tc.want)
		}
	}
}

func TestValidRegion(t *testing.T) {
	for _, region := range SupportedRegions {
		if !ValidRegion(region) {
			t.Errorf("ValidRegion(%q) = false, want true", region)
		}
	}
	for _, region := range []string{"co.uk", "fr", "", "EG"} {
		if ValidRegion(region) {
			t.Errorf("ValidRegion(%q) = true, want false", region)
		}
	}
}

func TestCurrencyFor(t *testing.T) {
	cases := map[string]string{
		"eg":      "EGP",
		"sa":      "SAR",
		"ae":      "AED",
		"com":     "USD",
		"de":      "EUR",
		"unknown": "USD",
	}
	for region, want := range cases {
		if got := CurrencyFor(region); got != want {
			t.Errorf("CurrencyFor(%q) = %q, want %q", region, got, want)
		}
	}
}

func TestAddProductRequestValidate(t *testing.T) {
	threshold := 5.0
	valid := AddProductRequest{
		ASIN:                  "B0CHX1W1XY",
		Region:                "ae",
		ScrapeIntervalMinutes: 5,
		AlertThresholdPercent: &threshold,
	}

	t.Run("valid request", func(t *testing.T) {
		if err := valid.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})

	t.Run("bad asin", func(t *testing.T) {
		req := valid
		req.ASIN = "nope"
		if err := req.Validate(); err == nil {
			t.Error("Validate() = nil, want error")
		}
	})

	t.Run("bad region", func(t *testing.T) {
		req := valid
		req.Region = "fr"
		if err := req.Validate(); err == nil {
			t.Error("Validate() = nil, want error")
		}
	})

	t.Run("non-positive interval", func(t *testing.T) {
		req := valid
		req.ScrapeIntervalMinutes = 0
		if err := req.Validate(); err == nil {
			t.Error("Validate() = nil, want error")
		}
	})

	t.Run("negative threshold", func(t *testing.T) {
		req := valid
		negative := -1.0
		req.AlertThresholdPercent = &negative
		if err := req.Validate(); err == nil {
			t.Error("Validate() = nil, want error")
		}
	})

	t.Run("zero threshold is valid", func(t *testing.T) {
		req := valid
		zero := 0.0
		req.AlertThresholdPercent = &zero
		if err := req.Validate(); err != nil {
			t.Errorf("Validate() error = %v, want nil for explicit zero", err)
		}
	})

	t.Run("absent threshold is valid", func(t *testing.T) {
		req := valid
		req.AlertThresholdPercent = nil
		if err := req.Validate(); err != nil {
			t.Errorf("Validate() error = %v, want nil for absent threshold", err)
		}
	})
}

func TestMonitoredProductMarshalJSON(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	p := &MonitoredProduct{
		ID:           1,
		ASIN:         "B0CHX1W1XY",
		Region:       "ae",
		Currency:     "AED",
		Title:        sql.NullString{String: "Headphones", Valid: true},
		CurrentPrice: sql.NullFloat64{Float64: 319, Valid: true},
		NextScrapeAt: now,
		IsActive:     true,
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if decoded["title"] != "Headphones" {
		t.Errorf("title = %v, want Headphones", decoded["title"])
	}
	if decoded["current_price"] != 319.0 {
		t.Errorf("current_price = %v, want 319", decoded["current_price"])
	}
	// NULL columns flatten to JSON null, never to wrapper objects.
	if v, ok := decoded["seller_name"]; !ok || v != nil {
		t.Errorf("seller_name = %v, want null", v)
	}
	if v, ok := decoded["previous_price"]; !ok || v != nil {
		t.Errorf("previous_price = %v, want null", v)
	}
}

func TestDueAt(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	p := &MonitoredProduct{IsActive: true, NextScrapeAt: now}

	if !p.DueAt(now) {
		t.Error("DueAt(now) = false for product due exactly now")
	}
	if !p.DueAt(now.Add(time.Minute)) {
		t.Error("DueAt(later) = false for overdue product")
	}
	if p.DueAt(now.Add(-time.Minute)) {
		t.Error("DueAt(earlier) = true for not-yet-due product")
	}

	p.IsActive = false
	if p.DueAt(now) {
		t.Error("DueAt() = true for inactive product")
	}
}
