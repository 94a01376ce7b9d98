package scraper

import (
	"errors"
	"log"
	"time"

	"boxtrack/models"
)

// SessionController is the slice of the browser session the retry chain
// needs: a liveness probe and a rebuild.
type SessionController interface {
	IsLive() bool
	Rebuild() error
}

// AttemptFunc performs one fetch attempt. It returns a terminal result, or
// an error when the attempt should be retried.
type AttemptFunc func(attempt int) (models.RegionResult, error)

// RetryOrchestrator runs fetch attempts with a fixed delay between them.
// When an attempt fails because the browser session died, it rebuilds the
// session at most once per chain before retrying. It never returns an
// error: an exhausted chain becomes a terminal failed result.
type RetryOrchestrator struct {
	MaxRetries int
	Delay      time.Duration

	session SessionController
	sleep   func(time.Duration)
}

// NewRetryOrchestrator creates an orchestrator bound to a session.
func NewRetryOrchestrator(maxRetries int, delay time.Duration, session SessionController) *RetryOrchestrator {
	return &RetryOrchestrator{
		MaxRetries: maxRetries,
		Delay:      delay,
		session:    session,
		sleep:      time.Sleep,
	}
}

// Run executes the attempt chain for one (asin, region) fetch.
func (o *RetryOrchestrator) Run(asin, region string, attempt AttemptFunc) models.RegionResult {
	maxAttempts := o.MaxRetries
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	rebuilt := false
	var lastErr error

	for i := 1; i <= maxAttempts; i++ {
		result, err := attempt(i)
		if err == nil {
			result.Attempts = i
			return result
		}
		lastErr = err
		log.Printf("Attempt %d/%d failed for %s/%s: %v", i, maxAttempts, asin, region, err)

		if i == maxAttempts {
			break
		}

		var resErr *ResourceError
		if !rebuilt && (errors.As(err, &resErr) || !o.session.IsLive()) {
			log.Printf("Rebuilding browser session for %s/%s", asin, region)
			if rerr := o.session.Rebuild(); rerr != nil {
				log.Printf("Session rebuild failed: %v", rerr)
			}
			rebuilt = true
		}

		o.sleep(o.Delay)
	}

	return models.RegionResult{
		ASIN:         asin,
		Region:       region,
		Status:       models.FetchFailed,
		Currency:     models.CurrencyFor(region),
		ErrorMessage: lastErr.Error(),
		Attempts:     maxAttempts,
		ScrapedAt:    time.Now().UTC(),
	}
}
