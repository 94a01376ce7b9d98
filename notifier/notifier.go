package notifier

import (
	"fmt"
	"log"

	"boxtrack/models"
)

// Notifier delivers alert events to a destination channel.
type Notifier interface {
	Notify(event models.AlertEvent) error
}

// LogNotifier writes alerts to the process log. It is the fallback when no
// external channel is configured.
type LogNotifier struct{}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// Notify logs the alert.
func (n *LogNotifier) Notify(event models.AlertEvent) error {
	log.Printf("🚨 ALERT %s", FormatEvent(event))
	return nil
}

// FormatEvent renders an alert as a one-line human-readable message.
func FormatEvent(event models.AlertEvent) string {
	label := event.Title
	if label == "" {
		label = event.ASIN
	}

	switch event.Type {
	case models.AlertPriceChange:
		direction := "increased"
		if event.NewPrice < event.OldPrice {
			direction = "dropped"
		}
		return fmt.Sprintf("[%s/%s] Price %s: %s %.2f -> %.2f (%+.1f%%) - %s",
			event.ASIN, event.Region, direction, event.Currency,
			event.OldPrice, event.NewPrice, event.ChangePercent, label)
	case models.AlertBuyBoxLost:
		newSeller := event.NewSeller
		if newSeller == "" {
			newSeller = "unknown"
		}
		return fmt.Sprintf("[%s/%s] Buy Box lost: %s -> %s - %s",
			event.ASIN, event.Region, event.OldSeller, newSeller, label)
	case models.AlertBuyBoxWon:
		return fmt.Sprintf("[%s/%s] Buy Box won by %s - %s",
			event.ASIN, event.Region, event.NewSeller, label)
	default:
		return fmt.Sprintf("[%s/%s] %s - %s", event.ASIN, event.Region, event.Type, label)
	}
}
