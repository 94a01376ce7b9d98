package repository

import (
	"database/sql"
	"fmt"
	"time"

	"boxtrack/models"
)

// ProductRepository handles all monitored_products operations.
type ProductRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new product repository.
func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id, asin, region, title, image_url, current_price,
	previous_price, price_change, price_change_percent, price_display,
	currency, seller_name, has_buybox, total_offers, last_scraped_at,
	next_scrape_at, scrape_interval_minutes, alert_threshold_percent,
	is_active, created_at, updated_at`

func scanProduct(row interface{ Scan(...interface{}) error }) (*models.MonitoredProduct, error) {
	var p models.MonitoredProduct
	err := row.Scan(
		&p.ID, &p.ASIN, &p.Region, &p.Title, &p.ImageURL, &p.CurrentPrice,
		&p.PreviousPrice, &p.PriceChange, &p.PriceChangePercent, &p.PriceDisplay,
		&p.Currency, &p.SellerName, &p.HasBuyBox, &p.TotalOffers, &p.LastScrapedAt,
		&p.NextScrapeAt, &p.ScrapeIntervalMinutes, &p.AlertThresholdPercent,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create registers a new product. It fails on a duplicate (asin, region)
// pair via the table's unique constraint.
func (r *ProductRepository) Create(req *models.AddProductRequest, currency string, now time.Time) (*models.MonitoredProduct, error) {
	query := `
		INSERT INTO monitored_products
			(asin, region, currency, next_scrape_at, scrape_interval_minutes,
			alert_threshold_percent, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $7)
		RETURNING ` + productColumns

	threshold := 0.0
	if req.AlertThresholdPercent != nil {
		threshold = *req.AlertThresholdPercent
	}
	row := r.db.QueryRow(query, req.ASIN, req.Region, currency, now,
		req.ScrapeIntervalMinutes, threshold, now)
	p, err := scanProduct(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create product %s/%s: %w", req.ASIN, req.Region, err)
	}
	return p, nil
}

// GetByID fetches one product, or nil if it does not exist.
func (r *ProductRepository) GetByID(id int) (*models.MonitoredProduct, error) {
	query := `SELECT ` + productColumns + ` FROM monitored_products WHERE id = $1`
	p, err := scanProduct(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	return p, nil
}

// GetByASINRegion fetches one product by its natural key, or nil.
func (r *ProductRepository) GetByASINRegion(asin, region string) (*models.MonitoredProduct, error) {
	query := `SELECT ` + productColumns + ` FROM monitored_products WHERE asin = $1 AND region = $2`
	p, err := scanProduct(r.db.QueryRow(query, asin, region))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product %s/%s: %w", asin, region, err)
	}
	return p, nil
}

// GetAll returns all products, active first, newest first within each group.
func (r *ProductRepository) GetAll() ([]*models.MonitoredProduct, error) {
	query := `SELECT ` + productColumns + `
		FROM monitored_products
		ORDER BY is_active DESC, created_at DESC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// GetDue returns active products whose next_scrape_at has passed, most
// overdue first.
func (r *ProductRepository) GetDue(now time.Time) ([]*models.MonitoredProduct, error) {
	query := `SELECT ` + productColumns + `
		FROM monitored_products
		WHERE is_active = TRUE AND next_scrape_at <= $1
		ORDER BY next_scrape_at ASC`

	rows, err := r.db.Query(query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list due products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

func collectProducts(rows *sql.Rows) ([]*models.MonitoredProduct, error) {
	var products []*models.MonitoredProduct
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Save writes back a product's mutable state after a refresh.
func (r *ProductRepository) Save(p *models.MonitoredProduct) error {
	query := `
		UPDATE monitored_products SET
			title = $1, image_url = $2, current_price = $3, previous_price = $4,
			price_change = $5, price_change_percent = $6, price_display = $7,
			seller_name = $8, has_buybox = $9, total_offers = $10,
			last_scraped_at = $11, next_scrape_at = $12, updated_at = NOW()
		WHERE id = $13`

	_, err := r.db.Exec(query, p.Title, p.ImageURL, p.CurrentPrice, p.PreviousPrice,
		p.PriceChange, p.PriceChangePercent, p.PriceDisplay, p.SellerName,
		p.HasBuyBox, p.TotalOffers, p.LastScrapedAt, p.NextScrapeAt, p.ID)
	if err != nil {
		return fmt.Errorf("failed to save product %d: %w", p.ID, err)
	}
	return nil
}

// AdvanceNextScrape pushes a product's next refresh time without touching
// its observed state. Used when a refresh fails.
func (r *ProductRepository) AdvanceNextScrape(id int, next time.Time) error {
	query := `UPDATE monitored_products SET next_scrape_at = $1, updated_at = NOW() WHERE id = $2`
	if _, err := r.db.Exec(query, next, id); err != nil {
		return fmt.Errorf("failed to advance next scrape for product %d: %w", id, err)
	}
	return nil
}

// Deactivate stops monitoring a product while keeping its history.
func (r *ProductRepository) Deactivate(id int) error {
	query := `UPDATE monitored_products SET is_active = FALSE, updated_at = NOW() WHERE id = $1`
	result, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate product %d: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("product %d not found", id)
	}
	return nil
}

// Purge deletes a product and, via cascade, all its history rows.
func (r *ProductRepository) Purge(id int) error {
	result, err := r.db.Exec(`DELETE FROM monitored_products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to purge product %d: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("product %d not found", id)
	}
	return nil
}

// CountActive returns the number of products currently being monitored.
func (r *ProductRepository) CountActive() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM monitored_products WHERE is_active = TRUE`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active products: %w", err)
	}
	return count, nil
}

// CountDue returns the number of active products past their next_scrape_at.
func (r *ProductRepository) CountDue(now time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM monitored_products WHERE is_active = TRUE AND next_scrape_at <= $1`,
		now).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count due products: %w", err)
	}
	return count, nil
}
