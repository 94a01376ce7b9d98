package scheduler

import (
	"boxtrack/models"
)

// DecideAlerts turns a state delta into zero or more alert events. Buy Box
// loss and gain are mutually exclusive for a single refresh; a price alert
// can accompany either.
func DecideAlerts(prev *models.MonitoredProduct, fresh *models.RegionResult, delta StateDelta, thresholdPercent float64) []models.AlertEvent {
	if delta.FirstObservation {
		return nil
	}

	var events []models.AlertEvent
	base := models.AlertEvent{
		ProductID:  prev.ID,
		ASIN:       prev.ASIN,
		Region:     prev.Region,
		Title:      fresh.Title,
		Currency:   prev.Currency,
		OccurredAt: fresh.ScrapedAt,
	}
	if base.Title == "" && prev.Title.Valid {
		base.Title = prev.Title.String
	}

	if delta.ExceedsThreshold(thresholdPercent) {
		event := base
		event.Type = models.AlertPriceChange
		event.OldPrice = prev.GetCurrentPrice()
		event.NewPrice = *fresh.Price
		event.ChangePercent = delta.PriceChangePercent
		events = append(events, event)
	}

	switch {
	case delta.LostBuyBox:
		event := base
		event.Type = models.AlertBuyBoxLost
		event.OldSeller = prev.SellerName.String
		event.NewSeller = fresh.SellerName
		events = append(events, event)
	case delta.WonBuyBox:
		event := base
		event.Type = models.AlertBuyBoxWon
		event.OldSeller = prev.SellerName.String
		event.NewSeller = fresh.SellerName
		events = append(events, event)
	}

	return events
}
