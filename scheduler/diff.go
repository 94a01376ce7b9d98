package scheduler

import (
	"math"

	"boxtrack/models"
)

// StateDelta describes what changed between a product's stored state and a
// fresh observation.
type StateDelta struct {
	// HadPrice / HasPrice report whether each side of the comparison
	// carries a price. Deltas are only meaningful when both are true.
	HadPrice bool
	HasPrice bool

	PriceDelta         float64
	PriceChangePercent float64

	// FirstObservation is true when the product has never been
	// successfully refreshed before.
	FirstObservation bool

	SellerChanged bool
	LostBuyBox    bool
	WonBuyBox     bool
}

// PriceMoved reports whether a comparable price change occurred at all.
func (d StateDelta) PriceMoved() bool {
	return d.HadPrice && d.HasPrice && d.PriceDelta != 0
}

// ExceedsThreshold reports whether the price move crosses the alert
// threshold, in either direction.
func (d StateDelta) ExceedsThreshold(thresholdPercent float64) bool {
	return d.PriceMoved() && math.Abs(d.PriceChangePercent) >= thresholdPercent
}

// Diff compares stored product state with a fresh successful observation.
// Ownership transitions are only reported when both sides have actually
// been observed, so a first refresh never registers as a change.
func Diff(prev *models.MonitoredProduct, fresh *models.RegionResult) StateDelta {
	delta := StateDelta{
		FirstObservation: prev.LastScrapedAt == nil,
		HadPrice:         prev.HasPrice(),
		HasPrice:         fresh.Price != nil,
	}

	if delta.HadPrice && delta.HasPrice {
		oldPrice := prev.GetCurrentPrice()
		newPrice := *fresh.Price
		delta.PriceDelta = newPrice - oldPrice
		if oldPrice != 0 {
			delta.PriceChangePercent = (delta.PriceDelta / oldPrice) * 100
		}
	}

	// A seller-selector miss yields a success result with no seller; that
	// is an extraction gap, not an ownership change, so transitions need a
	// seller on both sides.
	if !delta.FirstObservation && prev.HasSeller() && fresh.HasSeller() {
		delta.SellerChanged = prev.SellerName.String != fresh.SellerName
		delta.LostBuyBox = prev.HasBuyBox && !fresh.HasBuyBox
		delta.WonBuyBox = !prev.HasBuyBox && fresh.HasBuyBox
	}

	return delta
}
