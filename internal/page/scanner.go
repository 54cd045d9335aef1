// internal/page/scanner.go
package page

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/hexblade/pagepilot/api/schemas"
)

// Per-category extraction caps bound the cost of scanning large pages.
const (
	maxLinks     = 200
	maxButtons   = 200
	maxInputs    = 100
	maxSelects   = 50
	maxTextareas = 50
	maxCards     = 100

	maxHeadings       = 10
	maxTopText        = 5
	minParagraphChars = 40
)

// cardSelector is the fixed set of class/role patterns treated as card-like
// containers (search results, product tiles, listings).
const cardSelector = `[class*="card"], [class*="Card"], [class*="result"], [class*="listing"], [class*="tile"], article, [role="article"], [role="listitem"]`

// Scanner produces PageInsights snapshots from parsed documents. Scanning is
// read-only and never fails: elements that yield no usable name are simply
// not included.
type Scanner struct {
	logger *zap.Logger
}

// NewScanner creates a Scanner.
func NewScanner(logger *zap.Logger) *Scanner {
	return &Scanner{logger: logger.Named("scanner")}
}

// Scan inspects the document and returns a fresh snapshot of its interactive
// surface. The same document always yields the same snapshot.
func (s *Scanner) Scan(doc *goquery.Document, pageURL string) schemas.PageInsights {
	insights := schemas.PageInsights{
		URL:      pageURL,
		Title:    collapse(doc.Find("title").First().Text()),
		Headings: s.headings(doc),
		TopText:  s.topText(doc),
		Elements: []schemas.ElementDescriptor{},
	}

	dedupe := make(map[string]struct{})
	add := func(d schemas.ElementDescriptor) {
		key := string(d.Role) + "|" + d.Title + "|" + firstNonEmpty(d.Href, d.Selector)
		if _, seen := dedupe[key]; seen {
			return
		}
		dedupe[key] = struct{}{}
		insights.Elements = append(insights.Elements, d)
	}

	s.collectLinks(doc, add)
	s.collectButtons(doc, add)
	s.collectControls(doc, add)
	s.collectCards(doc, add)

	insights.Controls = s.detectDateControls(doc)
	return insights
}

func (s *Scanner) headings(doc *goquery.Document) []string {
	out := []string{}
	doc.Find("h1, h2, h3").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if text := collapse(sel.Text()); text != "" {
			out = append(out, text)
		}
		return len(out) < maxHeadings
	})
	return out
}

func (s *Scanner) topText(doc *goquery.Document) []string {
	out := []string{}
	doc.Find("p").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if text := collapse(sel.Text()); len(text) > minParagraphChars {
			out = append(out, text)
		}
		return len(out) < maxTopText
	})
	return out
}

func (s *Scanner) collectLinks(doc *goquery.Document, add func(schemas.ElementDescriptor)) {
	count := 0
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		title := AccessibleName(doc, sel)
		if title == "" {
			return true
		}
		add(schemas.ElementDescriptor{
			Role:     schemas.RoleLink,
			Title:    title,
			Href:     sel.AttrOr("href", ""),
			Selector: SelectorFor(sel),
		})
		count++
		return count < maxLinks
	})
}

func (s *Scanner) collectButtons(doc *goquery.Document, add func(schemas.ElementDescriptor)) {
	count := 0
	doc.Find(`button, input[type="button"], input[type="submit"], [role="button"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		title := AccessibleName(doc, sel)
		if title == "" {
			// Submit inputs render their value attribute as the label.
			title = collapse(sel.AttrOr("value", ""))
		}
		if title == "" {
			return true
		}
		add(schemas.ElementDescriptor{
			Role:     schemas.RoleButton,
			Title:    title,
			Selector: SelectorFor(sel),
		})
		count++
		return count < maxButtons
	})
}

// collectControls extracts text inputs, selects and textareas under their
// own caps.
func (s *Scanner) collectControls(doc *goquery.Document, add func(schemas.ElementDescriptor)) {
	inputs := 0
	doc.Find(`input:not([type="hidden"]):not([type="button"]):not([type="submit"])`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		title := AccessibleName(doc, sel)
		if title == "" {
			return true
		}
		add(schemas.ElementDescriptor{
			Role:     schemas.RoleInput,
			Title:    title,
			Selector: SelectorFor(sel),
		})
		inputs++
		return inputs < maxInputs
	})

	selects := 0
	doc.Find("select").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		title := AccessibleName(doc, sel)
		if title == "" {
			return true
		}
		add(schemas.ElementDescriptor{
			Role:     schemas.RoleSelect,
			Title:    title,
			Selector: SelectorFor(sel),
		})
		selects++
		return selects < maxSelects
	})

	textareas := 0
	doc.Find("textarea").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		title := AccessibleName(doc, sel)
		if title == "" {
			return true
		}
		add(schemas.ElementDescriptor{
			Role:     schemas.RoleTextarea,
			Title:    title,
			Selector: SelectorFor(sel),
		})
		textareas++
		return textareas < maxTextareas
	})
}

func (s *Scanner) collectCards(doc *goquery.Document, add func(schemas.ElementDescriptor)) {
	count := 0
	doc.Find(cardSelector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		title := collapse(sel.Find("h1, h2, h3, h4, h5").First().Text())
		if title == "" {
			title = AccessibleName(doc, sel)
		}
		if title == "" {
			return true
		}

		descriptor := schemas.ElementDescriptor{
			Role:     schemas.RoleCard,
			Title:    title,
			Subtitle: clip(collapse(sel.Find("p, small, .subtitle").First().Text())),
			Selector: SelectorFor(sel),
		}

		// Enrich card-like entries with price/rating when derivable.
		body := sel.Text()
		if descriptor.Price == "" {
			descriptor.Price = extractPrice(body)
		}
		if descriptor.Rating == 0 {
			descriptor.Rating = extractRating(body)
		}

		if href, ok := sel.Find("a[href]").First().Attr("href"); ok {
			descriptor.Href = href
		}

		add(descriptor)
		count++
		return count < maxCards
	})
}

// detectDateControls locates check-in/check-out date inputs by a naming
// heuristic on type=date inputs.
func (s *Scanner) detectDateControls(doc *goquery.Document) schemas.PageControls {
	controls := schemas.PageControls{}
	doc.Find(`input[type="date"]`).Each(func(_ int, sel *goquery.Selection) {
		hint := strings.ToLower(sel.AttrOr("name", "") + " " + sel.AttrOr("aria-label", "") + " " + sel.AttrOr("id", ""))
		switch {
		case controls.CheckOutSelector == "" && (strings.Contains(hint, "checkout") || strings.Contains(hint, "check-out") || strings.Contains(hint, "out")):
			controls.CheckOutSelector = SelectorFor(sel)
			controls.HasDateInputs = true
		case controls.CheckInSelector == "" && (strings.Contains(hint, "checkin") || strings.Contains(hint, "check-in") || strings.Contains(hint, "in")):
			controls.CheckInSelector = SelectorFor(sel)
			controls.HasDateInputs = true
		}
	})
	return controls
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
