// internal/page/heuristics.go
package page

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	priceRe      = regexp.MustCompile(`[$€£¥]\s?\d[\d,]*(?:\.\d{1,2})?`)
	ratingFracRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*/\s*(10|5)\b`)
	ratingBareRe = regexp.MustCompile(`\b([0-5](?:\.\d+)?)\b`)
)

// extractPrice returns the first currency-prefixed number in the text.
func extractPrice(text string) string {
	return priceRe.FindString(text)
}

// extractRating finds an "x/10", "x/5", or bare decimal rating in the text
// and normalizes it to a 0-5 scale. Price fragments are removed first so a
// "$4" does not read as four stars. Returns 0 when nothing plausible matches.
func extractRating(text string) float64 {
	text = priceRe.ReplaceAllString(text, "")

	if m := ratingFracRe.FindStringSubmatch(text); m != nil {
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0
		}
		if m[2] == "10" {
			value /= 2
		}
		return clampRating(value)
	}

	if m := ratingBareRe.FindStringSubmatch(text); m != nil {
		// Bare integers are too ambiguous; require a decimal point.
		if !strings.Contains(m[1], ".") {
			return 0
		}
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0
		}
		return clampRating(value)
	}
	return 0
}

func clampRating(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 5 {
		return 5
	}
	return v
}
