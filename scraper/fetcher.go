package scraper

import (
	"log"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"boxtrack/models"
)

// Fetcher produces one region observation for an ASIN.
type Fetcher interface {
	Fetch(asin, region string) models.RegionResult
}

// FetcherOptions tunes navigation and interstitial handling.
type FetcherOptions struct {
	NavigationTimeout  time.Duration
	SelectorTimeout    time.Duration
	InterstitialBudget time.Duration
	// PostalCodes maps region to the delivery postal code set before
	// reading the page, for marketplaces that hide local offers behind
	// a delivery location.
	PostalCodes map[string]string
}

// RegionFetcher fetches product pages through a shared browser session,
// retrying transient failures.
type RegionFetcher struct {
	session   *SessionManager
	extractor Extractor
	retry     *RetryOrchestrator
	opts      FetcherOptions
}

// NewRegionFetcher wires a fetcher to a session and an extractor.
func NewRegionFetcher(session *SessionManager, extractor Extractor, retry *RetryOrchestrator, opts FetcherOptions) *RegionFetcher {
	return &RegionFetcher{session: session, extractor: extractor, retry: retry, opts: opts}
}

// Fetch resolves the product URL and runs the retry chain. Invalid inputs
// fail immediately without spending attempts.
func (f *RegionFetcher) Fetch(asin, region string) models.RegionResult {
	url, err := ProductURL(asin, region)
	if err != nil {
		return models.RegionResult{
			ASIN:         asin,
			Region:       region,
			Status:       models.FetchFailed,
			Currency:     models.CurrencyFor(region),
			ErrorMessage: err.Error(),
			ScrapedAt:    time.Now().UTC(),
		}
	}

	return f.retry.Run(asin, region, func(attempt int) (models.RegionResult, error) {
		return f.fetchOnce(url, asin, region)
	})
}

func (f *RegionFetcher) fetchOnce(url, asin, region string) (models.RegionResult, error) {
	page, err := f.session.Page(url, f.opts.NavigationTimeout)
	if err != nil {
		return models.RegionResult{}, err
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			log.Printf("Error closing page for %s/%s: %v", asin, region, cerr)
		}
	}()

	f.dismissInterstitials(page, region)

	// Wait for the title to render; pages classified as unavailable or
	// restricted may never show it, so a timeout here is not fatal.
	if _, werr := page.Timeout(f.opts.SelectorTimeout).Element("#productTitle"); werr != nil {
		log.Printf("Title did not render for %s/%s, classifying page as-is", asin, region)
	}

	html, err := page.HTML()
	if err != nil {
		return models.RegionResult{}, &ResourceError{Op: "read page", Err: err}
	}

	now := time.Now().UTC()
	result := models.RegionResult{
		ASIN:      asin,
		Region:    region,
		Currency:  models.CurrencyFor(region),
		ScrapedAt: now,
	}

	switch status := ClassifyPage(html); status {
	case models.FetchUnavailable, models.FetchShippingRestricted:
		result.Status = status
		snapshot, serr := f.extractor.Extract(html, asin, region)
		if serr == nil {
			result.Title = snapshot.Title
			result.ImageURL = snapshot.ImageURL
		}
		return result, nil
	case models.FetchFailed:
		return models.RegionResult{}, &NavigationError{URL: url, Err: errRobotCheck}
	}

	snapshot, err := f.extractor.Extract(html, asin, region)
	if err != nil {
		return models.RegionResult{}, err
	}

	result.Status = models.FetchSuccess
	result.Title = snapshot.Title
	result.Price = snapshot.Price
	result.PriceDisplay = snapshot.PriceDisplay
	result.SellerName = snapshot.SellerName
	result.HasBuyBox = snapshot.HasBuyBox
	result.TotalOffers = snapshot.TotalOffers
	result.ImageURL = snapshot.ImageURL
	return result, nil
}

// dismissInterstitials clears cookie banners, continue prompts, and the
// delivery location dialog. All steps are best-effort within a short
// budget; the page is usable either way.
func (f *RegionFetcher) dismissInterstitials(page *rod.Page, region string) {
	budget := f.opts.InterstitialBudget
	if budget <= 0 {
		budget = 3 * time.Second
	}
	probe := page.Timeout(budget)

	if el, err := probe.Element("#sp-cc-accept"); err == nil {
		_ = el.Click(proto.InputMouseButtonLeft, 1)
	}
	if el, err := probe.Element(`button[alt="Continue shopping"]`); err == nil {
		_ = el.Click(proto.InputMouseButtonLeft, 1)
		_ = page.Timeout(budget).WaitLoad()
	}

	postal, ok := f.opts.PostalCodes[region]
	if !ok || postal == "" {
		return
	}
	if el, err := probe.Element("#nav-global-location-popover-link"); err == nil {
		_ = el.Click(proto.InputMouseButtonLeft, 1)
		if input, ierr := probe.Element("#GLUXZipUpdateInput"); ierr == nil {
			_ = input.Input(postal)
			if apply, aerr := probe.Element("#GLUXZipUpdate"); aerr == nil {
				_ = apply.Click(proto.InputMouseButtonLeft, 1)
				_ = page.Timeout(budget).WaitLoad()
			}
		}
	}
}
