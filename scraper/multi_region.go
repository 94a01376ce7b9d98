package scraper

import (
	"log"
	"sync"
	"time"

	"boxtrack/models"
)

// FetcherFactory builds an isolated fetcher plus a cleanup func. Each
// region of a multi-region scrape gets its own fetcher so one region's
// session state never leaks into another's.
type FetcherFactory func() (Fetcher, func(), error)

// MultiRegionCoordinator fans one ASIN out across regions with bounded
// concurrency.
type MultiRegionCoordinator struct {
	newFetcher    FetcherFactory
	maxConcurrent int
}

// NewMultiRegionCoordinator creates a coordinator. maxConcurrent bounds the
// number of simultaneous browser sessions.
func NewMultiRegionCoordinator(newFetcher FetcherFactory, maxConcurrent int) *MultiRegionCoordinator {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &MultiRegionCoordinator{newFetcher: newFetcher, maxConcurrent: maxConcurrent}
}

// FetchAll fetches the ASIN in every given region and aggregates the
// results. A region whose fetcher cannot be built reports as failed; the
// other regions proceed.
func (c *MultiRegionCoordinator) FetchAll(asin string, regions []string) *models.MultiRegionResult {
	started := time.Now()
	out := &models.MultiRegionResult{
		ASIN:      asin,
		Results:   make(map[string]models.RegionResult, len(regions)),
		StartedAt: started.UTC(),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, c.maxConcurrent)

	for _, region := range regions {
		wg.Add(1)
		go func(region string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			result := c.fetchRegion(asin, region)

			mu.Lock()
			out.Results[region] = result
			mu.Unlock()
		}(region)
	}
	wg.Wait()

	out.Duration = time.Since(started)
	return out
}

func (c *MultiRegionCoordinator) fetchRegion(asin, region string) models.RegionResult {
	fetcher, cleanup, err := c.newFetcher()
	if err != nil {
		log.Printf("Failed to build fetcher for %s/%s: %v", asin, region, err)
		return models.RegionResult{
			ASIN:         asin,
			Region:       region,
			Status:       models.FetchFailed,
			Currency:     models.CurrencyFor(region),
			ErrorMessage: "failed to start browser session: " + err.Error(),
			ScrapedAt:    time.Now().UTC(),
		}
	}
	defer cleanup()

	return fetcher.Fetch(asin, region)
}
