package repository

import (
	"database/sql"
	"fmt"
	"log"

	"boxtrack/models"
)

// HistoryRepository handles the append-only price and seller history tables
// plus the seller_snapshots current-state table.
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository creates a new history repository.
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// AddPriceEntry appends one price observation. A NULL price records an
// observation where the product had no buyable offer.
func (r *HistoryRepository) AddPriceEntry(e *models.PriceHistoryEntry) error {
	query := `
		INSERT INTO price_history (product_id, asin, region, price, price_display, scraped_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(query, e.ProductID, e.ASIN, e.Region, e.Price, e.PriceDisplay, e.ScrapedAt)
	if err != nil {
		return fmt.Errorf("failed to add price history for product %d: %w", e.ProductID, err)
	}
	return nil
}

// AddSellerEntry appends one seller observation.
func (r *HistoryRepository) AddSellerEntry(e *models.SellerHistoryEntry) error {
	query := `
		INSERT INTO seller_history (product_id, asin, region, seller_name, has_buybox, total_offers, scraped_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(query, e.ProductID, e.ASIN, e.Region, e.SellerName,
		e.HasBuyBox, e.TotalOffers, e.ScrapedAt)
	if err != nil {
		return fmt.Errorf("failed to add seller history for product %d: %w", e.ProductID, err)
	}
	return nil
}

// SaveSellerSnapshot upserts the current seller for an (asin, region) pair.
// If the upsert fails (e.g. the unique constraint is missing on an older
// schema), it falls back to delete-then-insert.
func (r *HistoryRepository) SaveSellerSnapshot(e *models.SellerHistoryEntry) error {
	upsert := `
		INSERT INTO seller_snapshots (product_id, asin, region, seller_name, has_buybox, total_offers, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (asin, region) DO UPDATE SET
			seller_name = EXCLUDED.seller_name,
			has_buybox = EXCLUDED.has_buybox,
			total_offers = EXCLUDED.total_offers,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.Exec(upsert, e.ProductID, e.ASIN, e.Region, e.SellerName,
		e.HasBuyBox, e.TotalOffers, e.ScrapedAt)
	if err == nil {
		return nil
	}
	log.Printf("Seller snapshot upsert failed for %s/%s, falling back to replace: %v",
		e.ASIN, e.Region, err)

	if _, derr := r.db.Exec(`DELETE FROM seller_snapshots WHERE asin = $1 AND region = $2`,
		e.ASIN, e.Region); derr != nil {
		return fmt.Errorf("failed to replace seller snapshot for %s/%s: %w", e.ASIN, e.Region, derr)
	}
	insert := `
		INSERT INTO seller_snapshots (product_id, asin, region, seller_name, has_buybox, total_offers, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, ierr := r.db.Exec(insert, e.ProductID, e.ASIN, e.Region, e.SellerName,
		e.HasBuyBox, e.TotalOffers, e.ScrapedAt); ierr != nil {
		return fmt.Errorf("failed to insert seller snapshot for %s/%s: %w", e.ASIN, e.Region, ierr)
	}
	return nil
}

// PriceHistory returns a product's price observations, newest first.
func (r *HistoryRepository) PriceHistory(productID, limit int) ([]*models.PriceHistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, product_id, asin, region, price, price_display, scraped_at
		FROM price_history
		WHERE product_id = $1
		ORDER BY scraped_at DESC
		LIMIT $2`

	rows, err := r.db.Query(query, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get price history for product %d: %w", productID, err)
	}
	defer rows.Close()

	var entries []*models.PriceHistoryEntry
	for rows.Next() {
		var e models.PriceHistoryEntry
		if err := rows.Scan(&e.ID, &e.ProductID, &e.ASIN, &e.Region,
			&e.Price, &e.PriceDisplay, &e.ScrapedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price history: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// SellerHistory returns a product's seller observations, newest first.
func (r *HistoryRepository) SellerHistory(productID, limit int) ([]*models.SellerHistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, product_id, asin, region, seller_name, has_buybox, total_offers, scraped_at
		FROM seller_history
		WHERE product_id = $1
		ORDER BY scraped_at DESC
		LIMIT $2`

	rows, err := r.db.Query(query, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get seller history for product %d: %w", productID, err)
	}
	defer rows.Close()

	var entries []*models.SellerHistoryEntry
	for rows.Next() {
		var e models.SellerHistoryEntry
		if err := rows.Scan(&e.ID, &e.ProductID, &e.ASIN, &e.Region,
			&e.SellerName, &e.HasBuyBox, &e.TotalOffers, &e.ScrapedAt); err != nil {
			return nil, fmt.Errorf("failed to scan seller history: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// LatestSeller returns the current seller snapshot for an (asin, region)
// pair, or nil if none has been recorded.
func (r *HistoryRepository) LatestSeller(asin, region string) (*models.SellerHistoryEntry, error) {
	query := `
		SELECT id, product_id, asin, region, seller_name, has_buybox, total_offers, updated_at
		FROM seller_snapshots
		WHERE asin = $1 AND region = $2`

	var e models.SellerHistoryEntry
	err := r.db.QueryRow(query, asin, region).Scan(&e.ID, &e.ProductID, &e.ASIN,
		&e.Region, &e.SellerName, &e.HasBuyBox, &e.TotalOffers, &e.ScrapedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get seller snapshot for %s/%s: %w", asin, region, err)
	}
	return &e, nil
}
