package scraper

import (
	"errors"
	"fmt"
)

// errRobotCheck marks a bot interstitial, retried like any navigation
// failure since a fresh session usually clears it.
var errRobotCheck = errors.New("robot check page served")

// NavigationError means the browser could not load or settle the page.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation failed for %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// ExtractionError means the page rendered but no usable product fields
// could be parsed out of it.
type ExtractionError struct {
	ASIN   string
	Region string
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s/%s: %s", e.ASIN, e.Region, e.Reason)
}

// ResourceError means the browser session itself is unhealthy and needs
// to be rebuilt before retrying.
type ResourceError struct {
	Op  string
	Err error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("browser resource error during %s: %v", e.Op, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// ValidationError means inputs were rejected before any fetch happened.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
