// internal/executor/executor.go
package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/hexblade/pagepilot/api/schemas"
	"github.com/hexblade/pagepilot/internal/page"
)

// DefaultRetries is the per-action attempt budget. Retries are immediate:
// failures here are DOM-timing races, not resource exhaustion.
const DefaultRetries = 3

// DefaultScrollAmount mirrors the planner's default viewport fraction.
const DefaultScrollAmount = 0.8

// Executor performs one Action at a time against a DOM. Every resolution is
// computed freshly per action on a new markup snapshot; nothing is cached
// between calls.
type Executor struct {
	dom     DOM
	scanner *page.Scanner
	logger  *zap.Logger
	retries int
}

// New creates an Executor. retries <= 0 selects DefaultRetries.
func New(dom DOM, scanner *page.Scanner, logger *zap.Logger, retries int) *Executor {
	if retries <= 0 {
		retries = DefaultRetries
	}
	return &Executor{
		dom:     dom,
		scanner: scanner,
		logger:  logger.Named("executor"),
		retries: retries,
	}
}

// Execute performs one action. Failures are encoded in the result, never
// returned as errors: resolution failures report immediately, thrown DOM
// failures are retried up to the attempt budget first.
func (e *Executor) Execute(ctx context.Context, action schemas.Action) schemas.ExecResult {
	var lastErr error
	for attempt := 1; attempt <= e.retries; attempt++ {
		result, err := e.perform(ctx, action)
		if err == nil {
			return result
		}
		lastErr = err
		e.logger.Debug("Action attempt failed",
			zap.String("action", string(action.Kind)),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if ctx.Err() != nil {
			break
		}
	}
	return schemas.Failure(fmt.Sprintf("%s failed after %d attempts: %v", action.Kind, e.retries, lastErr))
}

// ExecuteAll runs actions in order, stopping at the first failure. A
// NAVIGATE ends the batch: the pending reload invalidates this execution
// context. On full non-navigating success a fresh page snapshot is returned.
func (e *Executor) ExecuteAll(ctx context.Context, actions []schemas.Action) (schemas.ExecResult, *schemas.PageInsights) {
	for _, action := range actions {
		result := e.Execute(ctx, action)
		if !result.OK {
			return result, nil
		}
		if action.Kind == schemas.ActionNavigate {
			return schemas.Success(), nil
		}
	}
	insights, err := e.Scan(ctx)
	if err != nil {
		return schemas.Success(), nil
	}
	return schemas.Success(), insights
}

// Scan snapshots the current document.
func (e *Executor) Scan(ctx context.Context) (*schemas.PageInsights, error) {
	doc, pageURL, err := e.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	insights := e.scanner.Scan(doc, pageURL)
	return &insights, nil
}

// Summarize produces the text reply for a SUMMARY request from a fresh scan.
func (e *Executor) Summarize(ctx context.Context) (string, error) {
	insights, err := e.Scan(ctx)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if insights.Title != "" {
		sb.WriteString(insights.Title)
	}
	if len(insights.Headings) > 0 {
		sb.WriteString(" - ")
		sb.WriteString(strings.Join(insights.Headings, "; "))
	}
	for _, paragraph := range insights.TopText {
		sb.WriteString("\n")
		sb.WriteString(paragraph)
	}
	if sb.Len() == 0 {
		return "Nothing readable on this page.", nil
	}
	return sb.String(), nil
}

// perform runs one attempt. A returned error marks a transient failure
// eligible for retry; a non-OK result is final for this action.
func (e *Executor) perform(ctx context.Context, action schemas.Action) (schemas.ExecResult, error) {
	switch action.Kind {
	case schemas.ActionNavigate:
		if err := e.dom.Navigate(ctx, action.URL); err != nil {
			return schemas.ExecResult{}, err
		}
		return schemas.Success(), nil

	case schemas.ActionScroll:
		return e.performScroll(ctx, action)

	case schemas.ActionClick:
		return e.performClick(ctx, action)

	case schemas.ActionTypeText:
		return e.performType(ctx, action)

	case schemas.ActionSetDate:
		return e.performSetDate(ctx, action)

	case schemas.ActionSelectOption:
		return e.performSelectOption(ctx, action)

	case schemas.ActionSubmit:
		return e.performSubmit(ctx, action)

	case schemas.ActionSummary:
		text, err := e.Summarize(ctx)
		if err != nil {
			return schemas.ExecResult{}, err
		}
		return schemas.ExecResult{OK: true, Result: text}, nil

	default:
		return schemas.Failure(fmt.Sprintf("unsupported action kind %q", action.Kind)), nil
	}
}

func (e *Executor) performScroll(ctx context.Context, action schemas.Action) (schemas.ExecResult, error) {
	switch action.To {
	case schemas.ScrollTop, schemas.ScrollBottom:
		if err := e.dom.ScrollTo(ctx, action.To); err != nil {
			return schemas.ExecResult{}, err
		}
	default:
		amount := action.Amount
		if amount == 0 {
			amount = DefaultScrollAmount
		}
		if err := e.dom.ScrollBy(ctx, amount); err != nil {
			return schemas.ExecResult{}, err
		}
	}
	return schemas.Success(), nil
}

func (e *Executor) performClick(ctx context.Context, action schemas.Action) (schemas.ExecResult, error) {
	doc, _, err := e.snapshot(ctx)
	if err != nil {
		return schemas.ExecResult{}, err
	}

	selector := action.Selector
	if selector != "" && doc.Find(selector).Length() == 0 {
		selector = ""
	}
	if selector == "" && action.Text != "" {
		selector = resolveClickable(doc, action.Text)
	}
	if selector == "" {
		return schemas.Failure(fmt.Sprintf("click target not found (selector=%q text=%q)", action.Selector, action.Text)), nil
	}

	if err := e.dom.Click(ctx, selector); err != nil {
		return schemas.ExecResult{}, err
	}
	e.dom.Notify(ctx, "Clicked "+firstNonEmpty(action.Text, selector))
	return schemas.Success(), nil
}

func (e *Executor) performType(ctx context.Context, action schemas.Action) (schemas.ExecResult, error) {
	doc, _, err := e.snapshot(ctx)
	if err != nil {
		return schemas.ExecResult{}, err
	}

	selector := action.Selector
	if selector != "" && doc.Find(selector).Length() == 0 {
		selector = ""
	}
	if selector == "" && action.Label != "" {
		selector = resolveField(doc, action.Label)
	}
	if selector == "" {
		return schemas.Failure(fmt.Sprintf("input not found (selector=%q label=%q)", action.Selector, action.Label)), nil
	}

	if err := e.dom.SetValue(ctx, selector, sanitizeValue(action.Value)); err != nil {
		return schemas.ExecResult{}, err
	}
	e.dom.Notify(ctx, "Filled "+firstNonEmpty(action.Label, selector))
	return schemas.Success(), nil
}

func (e *Executor) performSetDate(ctx context.Context, action schemas.Action) (schemas.ExecResult, error) {
	doc, _, err := e.snapshot(ctx)
	if err != nil {
		return schemas.ExecResult{}, err
	}
	// SET_DATE resolves by selector only.
	if action.Selector == "" || doc.Find(action.Selector).Length() == 0 {
		return schemas.Failure(fmt.Sprintf("date input not found (selector=%q)", action.Selector)), nil
	}
	if err := e.dom.SetValue(ctx, action.Selector, sanitizeValue(action.Value)); err != nil {
		return schemas.ExecResult{}, err
	}
	return schemas.Success(), nil
}

func (e *Executor) performSelectOption(ctx context.Context, action schemas.Action) (schemas.ExecResult, error) {
	doc, _, err := e.snapshot(ctx)
	if err != nil {
		return schemas.ExecResult{}, err
	}

	selector := action.Selector
	if selector != "" && doc.Find(selector).Length() == 0 {
		selector = ""
	}
	if selector == "" && action.Label != "" {
		selector = resolveField(doc, action.Label)
	}
	if selector == "" || !doc.Find(selector).First().Is("select") {
		return schemas.Failure(fmt.Sprintf("select not found (selector=%q label=%q)", action.Selector, action.Label)), nil
	}
	if !selectHasOption(doc, selector, action.OptionText) {
		return schemas.Failure(fmt.Sprintf("option %q not found in %q", action.OptionText, selector)), nil
	}

	if err := e.dom.SelectOption(ctx, selector, action.OptionText); err != nil {
		return schemas.ExecResult{}, err
	}
	return schemas.Success(), nil
}

func (e *Executor) performSubmit(ctx context.Context, action schemas.Action) (schemas.ExecResult, error) {
	doc, _, err := e.snapshot(ctx)
	if err != nil {
		return schemas.ExecResult{}, err
	}

	selector := action.Selector
	if selector == "" {
		// Default to the first form on the page.
		first := doc.Find("form").First()
		if first.Length() == 0 {
			return schemas.Failure("no form on page"), nil
		}
		selector = page.SelectorFor(first)
	} else if doc.Find(selector).Length() == 0 {
		return schemas.Failure(fmt.Sprintf("form not found (selector=%q)", action.Selector)), nil
	}

	if err := e.dom.Submit(ctx, selector); err != nil {
		return schemas.ExecResult{}, err
	}
	return schemas.Success(), nil
}

// snapshot fetches and parses the current document.
func (e *Executor) snapshot(ctx context.Context) (*goquery.Document, string, error) {
	markup, err := e.dom.HTML(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch document markup: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse document: %w", err)
	}
	pageURL, err := e.dom.URL(ctx)
	if err != nil {
		pageURL = ""
	}
	return doc, pageURL, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
