package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
)

var DB *sql.DB

// InitDatabase connects to Postgres using DATABASE_URL and verifies the
// connection.
func InitDatabase() error {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	var err error
	DB, err = sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = DB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(5)

	log.Println("Database connection established")
	return nil
}

// CreateTables creates the schema if it does not exist.
func CreateTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS monitored_products (
			id SERIAL PRIMARY KEY,
			asin VARCHAR(10) NOT NULL,
			region VARCHAR(10) NOT NULL,
			title TEXT,
			image_url TEXT,
			current_price DECIMAL(12, 2),
			previous_price DECIMAL(12, 2),
			price_change DECIMAL(12, 2),
			price_change_percent DECIMAL(8, 2),
			price_display VARCHAR(64),
			currency VARCHAR(8) NOT NULL DEFAULT 'USD',
			seller_name TEXT,
			has_buybox BOOLEAN NOT NULL DEFAULT FALSE,
			total_offers INTEGER NOT NULL DEFAULT 0,
			last_scraped_at TIMESTAMP,
			next_scrape_at TIMESTAMP NOT NULL DEFAULT NOW(),
			scrape_interval_minutes INTEGER NOT NULL DEFAULT 5,
			alert_threshold_percent DECIMAL(6, 2) NOT NULL DEFAULT 5,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
			UNIQUE(asin, region)
		)`,
		`CREATE TABLE IF NOT EXISTS price_history (
			id SERIAL PRIMARY KEY,
			product_id INTEGER NOT NULL REFERENCES monitored_products(id) ON DELETE CASCADE,
			asin VARCHAR(10) NOT NULL,
			region VARCHAR(10) NOT NULL,
			price DECIMAL(12, 2),
			price_display VARCHAR(64),
			scraped_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS seller_history (
			id SERIAL PRIMARY KEY,
			product_id INTEGER NOT NULL REFERENCES monitored_products(id) ON DELETE CASCADE,
			asin VARCHAR(10) NOT NULL,
			region VARCHAR(10) NOT NULL,
			seller_name TEXT NOT NULL,
			has_buybox BOOLEAN NOT NULL DEFAULT FALSE,
			total_offers INTEGER NOT NULL DEFAULT 0,
			scraped_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS seller_snapshots (
			id SERIAL PRIMARY KEY,
			product_id INTEGER NOT NULL REFERENCES monitored_products(id) ON DELETE CASCADE,
			asin VARCHAR(10) NOT NULL,
			region VARCHAR(10) NOT NULL,
			seller_name TEXT NOT NULL,
			has_buybox BOOLEAN NOT NULL DEFAULT FALSE,
			total_offers INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
			UNIQUE(asin, region)
		)`,
		`CREATE TABLE IF NOT EXISTS alert_log (
			id SERIAL PRIMARY KEY,
			product_id INTEGER NOT NULL REFERENCES monitored_products(id) ON DELETE CASCADE,
			asin VARCHAR(10) NOT NULL,
			region VARCHAR(10) NOT NULL,
			alert_type VARCHAR(32) NOT NULL,
			old_value TEXT NOT NULL DEFAULT '',
			new_value TEXT NOT NULL DEFAULT '',
			sent_at TIMESTAMP NOT NULL DEFAULT NOW(),
			delivered BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_products_due
			ON monitored_products(next_scrape_at) WHERE is_active = TRUE`,
		`CREATE INDEX IF NOT EXISTS idx_price_history_product
			ON price_history(product_id, scraped_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_seller_history_product
			ON seller_history(product_id, scraped_at DESC)`,
	}

	for _, query := range queries {
		if _, err := DB.Exec(query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	log.Println("Database tables verified")
	return nil
}

// CloseDatabase closes the connection pool.
func CloseDatabase() {
	if DB != nil {
		if err := DB.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}
}
