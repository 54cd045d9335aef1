// internal/intent/parser.go

// Package intent turns short literal commands into structured intents.
// Parsing is a pure function over the input string with a fixed rule order;
// anything it cannot read is handed back to conversational handling.
package intent

import (
	"regexp"
	"strings"

	"github.com/hexblade/pagepilot/api/schemas"
)

// DefaultScrollAmount is the fraction of viewport height one scroll command
// moves.
const DefaultScrollAmount = 0.8

var (
	scrollRe = regexp.MustCompile(`(?i)^scroll (down|up)\b`)
	fillRe   = regexp.MustCompile(`(?i)^fill (.+)=(.+)$`)
	clickRe  = regexp.MustCompile(`(?i)^click (.+)$`)
	urlRe    = regexp.MustCompile(`(?i)^[a-z][a-z0-9+.-]*://\S+$`)
)

// Parse reads one trimmed command. Rules apply in priority order and are
// case-insensitive. The second return is false when no rule matched.
func Parse(text string) (schemas.Intent, bool) {
	trimmed := strings.TrimSpace(text)
	lowered := strings.ToLower(trimmed)

	if m := scrollRe.FindStringSubmatch(trimmed); m != nil {
		return schemas.Intent{
			Kind:      schemas.IntentScroll,
			Direction: strings.ToLower(m[1]),
			Amount:    DefaultScrollAmount,
		}, true
	}

	if strings.HasPrefix(lowered, "open ") {
		remainder := strings.TrimSpace(trimmed[len("open "):])
		if urlRe.MatchString(remainder) {
			return schemas.Intent{Kind: schemas.IntentOpenURL, URL: remainder}, true
		}
		return schemas.Intent{Kind: schemas.IntentSearchWeb, Query: remainder}, true
	}

	if strings.HasPrefix(lowered, "search ") {
		return schemas.Intent{
			Kind:  schemas.IntentSearchWeb,
			Query: strings.TrimSpace(trimmed[len("search "):]),
		}, true
	}

	if strings.Contains(lowered, "summary") || strings.Contains(lowered, "summarize") || strings.Contains(lowered, "tl;dr") {
		return schemas.Intent{Kind: schemas.IntentSummary}, true
	}

	if m := fillRe.FindStringSubmatch(trimmed); m != nil {
		return schemas.Intent{
			Kind:  schemas.IntentFillField,
			Label: strings.TrimSpace(m[1]),
			Value: strings.TrimSpace(m[2]),
		}, true
	}

	if m := clickRe.FindStringSubmatch(trimmed); m != nil {
		return schemas.Intent{
			Kind:  schemas.IntentClickLabel,
			Label: strings.TrimSpace(m[1]),
		}, true
	}

	return schemas.Intent{}, false
}
