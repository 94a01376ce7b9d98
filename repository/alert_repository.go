package repository

import (
	"database/sql"
	"fmt"

	"boxtrack/models"
)

// AlertLogRepository records fired alerts and their delivery state.
type AlertLogRepository struct {
	db *sql.DB
}

// NewAlertLogRepository creates a new alert log repository.
func NewAlertLogRepository(db *sql.DB) *AlertLogRepository {
	return &AlertLogRepository{db: db}
}

// Record inserts an alert row in undelivered state and returns its id.
func (r *AlertLogRepository) Record(e *models.AlertLogEntry) (int, error) {
	query := `
		INSERT INTO alert_log (product_id, asin, region, alert_type, old_value, new_value, sent_at, delivered)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE)
		RETURNING id`

	var id int
	err := r.db.QueryRow(query, e.ProductID, e.ASIN, e.Region, e.AlertType,
		e.OldValue, e.NewValue, e.SentAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to record alert for product %d: %w", e.ProductID, err)
	}
	return id, nil
}

// MarkDelivered flags an alert as successfully handed to the notifier.
func (r *AlertLogRepository) MarkDelivered(id int) error {
	if _, err := r.db.Exec(`UPDATE alert_log SET delivered = TRUE WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to mark alert %d delivered: %w", id, err)
	}
	return nil
}

// Recent returns the latest alerts across all products, newest first.
func (r *AlertLogRepository) Recent(limit int) ([]*models.AlertLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, product_id, asin, region, alert_type, old_value, new_value, sent_at, delivered
		FROM alert_log
		ORDER BY sent_at DESC
		LIMIT $1`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	return collectAlerts(rows)
}

// ForProduct returns a product's alerts, newest first.
func (r *AlertLogRepository) ForProduct(productID, limit int) ([]*models.AlertLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, product_id, asin, region, alert_type, old_value, new_value, sent_at, delivered
		FROM alert_log
		WHERE product_id = $1
		ORDER BY sent_at DESC
		LIMIT $2`

	rows, err := r.db.Query(query, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts for product %d: %w", productID, err)
	}
	defer rows.Close()

	return collectAlerts(rows)
}

func collectAlerts(rows *sql.Rows) ([]*models.AlertLogEntry, error) {
	var entries []*models.AlertLogEntry
	for rows.Next() {
		var e models.AlertLogEntry
		if err := rows.Scan(&e.ID, &e.ProductID, &e.ASIN, &e.Region, &e.AlertType,
			&e.OldValue, &e.NewValue, &e.SentAt, &e.Delivered); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
