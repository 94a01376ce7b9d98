package scraper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Raw price text on product pages mixes currency symbols, Arabic-script
// currency names, thousands separators, and both decimal conventions.
var (
	usGroupedPattern       = regexp.MustCompile(`(\d{1,3}(?:,\d{3})+\.\d{1,2})`)
	europeanGroupedPattern = regexp.MustCompile(`(\d{1,3}(?:\.\d{3})+,\d{1,2})`)
	simpleDecimalPattern   = regexp.MustCompile(`(\d+[.,]\d{1,2})`)
	bareNumberPattern      = regexp.MustCompile(`(\d+)`)
)

// ParseDisplayPrice extracts a numeric price from raw page text. It returns
// the parsed value and a cleaned single-line form of the original display
// text.
func ParseDisplayPrice(text string) (float64, string, error) {
	display := strings.Join(strings.Fields(text), " ")
	if display == "" {
		return 0, "", fmt.Errorf("empty price text")
	}

	if m := usGroupedPattern.FindString(display); m != "" {
		value, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
		if err == nil {
			return value, display, nil
		}
	}

	if m := europeanGroupedPattern.FindString(display); m != "" {
		normalized := strings.ReplaceAll(m, ".", "")
		normalized = strings.ReplaceAll(normalized, ",", ".")
		value, err := strconv.ParseFloat(normalized, 64)
		if err == nil {
			return value, display, nil
		}
	}

	if m := simpleDecimalPattern.FindString(display); m != "" {
		value, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", "."), 64)
		if err == nil {
			return value, display, nil
		}
	}

	if m := bareNumberPattern.FindString(display); m != "" {
		value, err := strconv.ParseFloat(m, 64)
		if err == nil {
			return value, display, nil
		}
	}

	return 0, display, fmt.Errorf("no numeric price in %q", display)
}
