// Command regionscrape fetches one product page in one region and prints
// the result as a single JSON line on stdout. Diagnostics go to stderr, so
// the output can be piped straight into other tools.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"boxtrack/config"
	"boxtrack/models"
	"boxtrack/scraper"
)

func main() {
	log.SetOutput(os.Stderr)

	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "usage: %s ASIN REGION\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "regions: %v\n", models.SupportedRegions)
		os.Exit(2)
	}
	asin, region := os.Args[1], os.Args[2]

	if !models.ValidASIN(asin) {
		fmt.Fprintf(os.Stderr, "invalid ASIN %q: must be 10 alphanumeric characters\n", asin)
		os.Exit(2)
	}
	if !models.ValidRegion(region) {
		fmt.Fprintf(os.Stderr, "unsupported region %q: supported regions are %v\n", region, models.SupportedRegions)
		os.Exit(2)
	}

	if err := godotenv.Load(); err == nil {
		log.Println("Loaded .env")
	}
	cfg := config.Load()

	session := scraper.NewSessionManager(cfg.BrowserBin, cfg.Headless)
	defer session.Teardown()

	// Standalone runs get a longer navigation budget than the service's
	// recurring cycle.
	navigationTimeout := cfg.NavigationTimeout
	if navigationTimeout < 60*time.Second {
		navigationTimeout = 60 * time.Second
	}

	retry := scraper.NewRetryOrchestrator(cfg.MaxRetries, cfg.RetryDelay, session)
	fetcher := scraper.NewRegionFetcher(session, scraper.NewAmazonExtractor(), retry, scraper.FetcherOptions{
		NavigationTimeout:  navigationTimeout,
		SelectorTimeout:    cfg.SelectorTimeout,
		InterstitialBudget: cfg.InterstitialBudget,
		PostalCodes:        cfg.PostalCodes,
	})

	log.Printf("Fetching %s from amazon.%s", asin, region)
	result := fetcher.Fetch(asin, region)

	encoder := json.NewEncoder(os.Stdout)
	if err := encoder.Encode(result); err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}

	if result.Status == models.FetchFailed {
		os.Exit(1)
	}
}
