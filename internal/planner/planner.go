// internal/planner/planner.go
package planner

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/hexblade/pagepilot/api/schemas"
	"github.com/hexblade/pagepilot/internal/llmclient"
	"github.com/hexblade/pagepilot/internal/llmutil"
)

// systemInstruction pins the completion service to the closed action
// vocabulary and strict JSON-array output.
const systemInstruction = `You translate a user's browsing goal into an ordered JSON array of actions.
Allowed actions:
  {"action":"NAVIGATE","url":"https://..."}
  {"action":"SEARCH","query":"..."}
  {"action":"CLICK","selector":"css"} or {"action":"CLICK","text":"visible label"}
  {"action":"TYPE","selector":"css","value":"..."} or {"action":"TYPE","label":"field label","value":"..."}
  {"action":"SELECT_OPTION","selector":"css","optionText":"..."}
  {"action":"SET_DATE","selector":"css","value":"YYYY-MM-DD"}
  {"action":"SUBMIT","selector":"css"}
  {"action":"SCROLL","amount":0.8} or {"action":"SCROLL","to":"top"|"bottom"}
  {"action":"SUMMARY"}
Respond with ONLY the JSON array. No prose, no markdown.`

// planStep is the loose wire shape accepted from the completion service
// before normalization into schemas.Action.
type planStep struct {
	Action     string  `json:"action"`
	Selector   string  `json:"selector,omitempty"`
	Text       string  `json:"text,omitempty"`
	Label      string  `json:"label,omitempty"`
	Value      string  `json:"value,omitempty"`
	OptionText string  `json:"optionText,omitempty"`
	URL        string  `json:"url,omitempty"`
	Query      string  `json:"query,omitempty"`
	Amount     float64 `json:"amount,omitempty"`
	To         string  `json:"to,omitempty"`
}

var (
	schemeURLRe  = regexp.MustCompile(`(?i)[a-z][a-z0-9+.-]*://\S+`)
	bareDomainRe = regexp.MustCompile(`(?i)^(?:[a-z0-9-]+\.)+[a-z]{2,}(?:/\S*)?$`)
	searchGoalRe = regexp.MustCompile(`(?i)(?:^|\s)search (?:for )?(.+)$`)
	findGoalRe   = regexp.MustCompile(`(?i)(?:^|\s)find (.+)$`)
	scrollDownRe = regexp.MustCompile(`(?i)scroll down`)
	scrollUpRe   = regexp.MustCompile(`(?i)scroll up`)
)

// Planner turns a free-text goal into an ordered action sequence. The
// completion service is preferred; every failure on that path degrades to
// rule-based planning, so Plan always returns a non-empty plan and never
// fails.
type Planner struct {
	completer llmclient.Completer // nil when no service is configured
	searchURL string
	logger    *zap.Logger
}

// New creates a Planner. completer may be nil.
func New(searchURL string, completer llmclient.Completer, logger *zap.Logger) *Planner {
	return &Planner{
		completer: completer,
		searchURL: searchURL,
		logger:    logger.Named("planner"),
	}
}

// Plan produces the action sequence for a goal.
func (p *Planner) Plan(ctx context.Context, goal string) []schemas.Action {
	if p.completer != nil {
		if actions, err := p.planWithCompleter(ctx, goal); err != nil {
			p.logger.Warn("Completion-based planning failed; using rule-based fallback.", zap.Error(err))
		} else {
			return actions
		}
	}
	return p.planWithRules(goal)
}

// planWithCompleter asks the completion service for a plan and normalizes it.
// Any malformed output is an error, never a partial plan.
func (p *Planner) planWithCompleter(ctx context.Context, goal string) ([]schemas.Action, error) {
	raw, err := llmclient.CompleteAny(ctx, p.completer, systemInstruction, goal)
	if err != nil {
		return nil, err
	}
	steps, err := llmutil.ParseJSONArray[planStep](raw)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("completion service returned an empty plan")
	}

	actions := make([]schemas.Action, 0, len(steps))
	for _, step := range steps {
		action, err := p.normalize(step)
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}
	return actions, nil
}

// normalize maps one loose step onto the closed Action vocabulary. The SEARCH
// pseudo-action becomes a NAVIGATE to the web-search URL.
func (p *Planner) normalize(step planStep) (schemas.Action, error) {
	kind := schemas.ActionKind(strings.ToUpper(strings.TrimSpace(step.Action)))
	switch kind {
	case schemas.ActionNavigate:
		return schemas.Action{Kind: kind, URL: step.URL}, nil
	case "SEARCH":
		query := step.Query
		if query == "" {
			query = step.Value
		}
		return schemas.Action{Kind: schemas.ActionNavigate, URL: p.SearchURL(query)}, nil
	case schemas.ActionClick:
		return schemas.Action{Kind: kind, Selector: step.Selector, Text: step.Text}, nil
	case schemas.ActionTypeText:
		return schemas.Action{Kind: kind, Selector: step.Selector, Label: step.Label, Value: step.Value}, nil
	case schemas.ActionSelectOption:
		return schemas.Action{Kind: kind, Selector: step.Selector, Label: step.Label, OptionText: step.OptionText}, nil
	case schemas.ActionSetDate:
		return schemas.Action{Kind: kind, Selector: step.Selector, Value: step.Value}, nil
	case schemas.ActionSubmit:
		return schemas.Action{Kind: kind, Selector: step.Selector}, nil
	case schemas.ActionScroll:
		return schemas.Action{Kind: kind, Amount: step.Amount, To: step.To}, nil
	case schemas.ActionSummary:
		return schemas.Action{Kind: kind}, nil
	default:
		return schemas.Action{}, fmt.Errorf("unknown action kind %q in completion output", step.Action)
	}
}

// planWithRules is the deterministic fallback. Rules match case-insensitively
// against the trimmed goal; captured queries and URLs keep the user's casing,
// so the search query survives percent-decoding verbatim and URL paths are
// never mangled. The default rule guarantees a non-empty plan.
func (p *Planner) planWithRules(goal string) []schemas.Action {
	trimmed := strings.TrimSpace(goal)

	if target, ok := findURLToken(trimmed); ok {
		return []schemas.Action{{Kind: schemas.ActionNavigate, URL: target}}
	}

	if m := searchGoalRe.FindStringSubmatch(trimmed); m != nil {
		return []schemas.Action{{Kind: schemas.ActionNavigate, URL: p.SearchURL(strings.TrimSpace(m[1]))}}
	}
	if m := findGoalRe.FindStringSubmatch(trimmed); m != nil {
		return []schemas.Action{{Kind: schemas.ActionNavigate, URL: p.SearchURL(strings.TrimSpace(m[1]))}}
	}

	lower := strings.ToLower(trimmed)
	if strings.Contains(lower, "summarize") || strings.Contains(lower, "summary") {
		return []schemas.Action{{Kind: schemas.ActionSummary}}
	}

	if scrollDownRe.MatchString(trimmed) {
		return []schemas.Action{{Kind: schemas.ActionScroll, Amount: 0.8}}
	}
	if scrollUpRe.MatchString(trimmed) {
		return []schemas.Action{{Kind: schemas.ActionScroll, Amount: -0.8}}
	}

	return []schemas.Action{{Kind: schemas.ActionNavigate, URL: p.SearchURL(trimmed)}}
}

// SearchURL builds a web-search URL with the query percent-encoded.
func (p *Planner) SearchURL(query string) string {
	// QueryEscape uses '+' for spaces; normalize to %20 so the query
	// round-trips through url.PathUnescape verbatim.
	escaped := strings.ReplaceAll(url.QueryEscape(query), "+", "%20")
	return p.searchURL + escaped
}

// findURLToken scans the goal for a scheme-prefixed URL or a bare domain
// token. Bare domains get https:// prepended. Tokens are returned as typed:
// URL paths are case-sensitive on most servers.
func findURLToken(goal string) (string, bool) {
	if m := schemeURLRe.FindString(goal); m != "" {
		return strings.TrimRight(m, ".,;!?"), true
	}
	for _, token := range strings.Fields(goal) {
		token = strings.TrimRight(token, ".,;!?")
		if bareDomainRe.MatchString(token) {
			return "https://" + token, true
		}
	}
	return "", false
}
