// internal/page/name.go
package page

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// maxNameLength keeps derived names bounded on pathological markup.
const maxNameLength = 200

// AccessibleName derives a human-readable name for an element, preferring
// aria-labelledby target text, then aria-label, then rendered text, then alt.
// An empty return means the element has no derivable name and is dropped
// from scan results.
func AccessibleName(doc *goquery.Document, sel *goquery.Selection) string {
	if labelledBy, ok := sel.Attr("aria-labelledby"); ok {
		var parts []string
		for _, id := range strings.Fields(labelledBy) {
			if text := collapse(doc.Find("#" + id).Text()); text != "" {
				parts = append(parts, text)
			}
		}
		if len(parts) > 0 {
			return clip(strings.Join(parts, " "))
		}
	}

	if label, ok := sel.Attr("aria-label"); ok {
		if label = collapse(label); label != "" {
			return clip(label)
		}
	}

	if text := collapse(sel.Text()); text != "" {
		return clip(text)
	}

	if alt, ok := sel.Attr("alt"); ok {
		if alt = collapse(alt); alt != "" {
			return clip(alt)
		}
	}
	// Image children may carry the only alt text (icon links).
	if alt := collapse(sel.Find("img[alt]").First().AttrOr("alt", "")); alt != "" {
		return clip(alt)
	}

	return ""
}

// collapse trims and folds internal whitespace runs to single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func clip(s string) string {
	if len(s) > maxNameLength {
		return s[:maxNameLength]
	}
	return s
}
