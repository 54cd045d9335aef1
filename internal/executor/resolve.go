// internal/executor/resolve.go
package executor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hexblade/pagepilot/internal/page"
)

// clickableSelector lists the candidates considered for text-based click
// resolution.
const clickableSelector = `a, button, [role="button"], input[type="submit"], input[type="button"]`

// fieldSelector lists the candidates for label-based fill resolution.
const fieldSelector = `input:not([type="hidden"]), textarea, select`

var tagRe = regexp.MustCompile(`(?is)<[^>]*>`)

// sanitizeValue strips executable markup from text before it is written into
// the page.
func sanitizeValue(value string) string {
	value = tagRe.ReplaceAllString(value, "")
	lowered := strings.ToLower(strings.TrimSpace(value))
	if strings.HasPrefix(lowered, "javascript:") {
		return strings.TrimSpace(value)[len("javascript:"):]
	}
	return value
}

// resolveClickable finds a click target by case-insensitive substring match
// of its accessible name or title attributes. Returns a selector usable for
// dispatch, or "" when nothing matches.
func resolveClickable(doc *goquery.Document, text string) string {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return ""
	}

	var found string
	doc.Find(clickableSelector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		candidates := []string{
			page.AccessibleName(doc, sel),
			sel.AttrOr("title", ""),
			sel.AttrOr("value", ""),
		}
		for _, candidate := range candidates {
			if candidate != "" && strings.Contains(strings.ToLower(candidate), needle) {
				found = page.SelectorFor(sel)
				return false
			}
		}
		return true
	})
	return found
}

// resolveField finds an input or textarea by case-insensitive substring match
// against its accessible name, name, placeholder, id, or an associated
// label's text.
func resolveField(doc *goquery.Document, label string) string {
	needle := strings.ToLower(strings.TrimSpace(label))
	if needle == "" {
		return ""
	}

	var found string
	doc.Find(fieldSelector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		candidates := []string{
			page.AccessibleName(doc, sel),
			sel.AttrOr("name", ""),
			sel.AttrOr("placeholder", ""),
			sel.AttrOr("id", ""),
			labelTextFor(doc, sel),
		}
		for _, candidate := range candidates {
			if candidate != "" && strings.Contains(strings.ToLower(candidate), needle) {
				found = page.SelectorFor(sel)
				return false
			}
		}
		return true
	})
	return found
}

// labelTextFor returns the text of a <label for=...> pointing at the element.
func labelTextFor(doc *goquery.Document, sel *goquery.Selection) string {
	id, ok := sel.Attr("id")
	if !ok || id == "" {
		return ""
	}
	var text string
	doc.Find("label").EachWithBreak(func(_ int, label *goquery.Selection) bool {
		if label.AttrOr("for", "") == id {
			text = strings.TrimSpace(label.Text())
			return false
		}
		return true
	})
	return text
}

// selectHasOption reports whether the select element under selector contains
// an option whose text equals optionText, ignoring case.
func selectHasOption(doc *goquery.Document, selector, optionText string) bool {
	want := strings.TrimSpace(optionText)
	has := false
	doc.Find(selector).First().Find("option").EachWithBreak(func(_ int, opt *goquery.Selection) bool {
		if strings.EqualFold(strings.TrimSpace(opt.Text()), want) {
			has = true
			return false
		}
		return true
	})
	return has
}
