// internal/browser/tab.go
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/hexblade/pagepilot/api/schemas"
	"github.com/hexblade/pagepilot/internal/executor"
)

// Tab is one page-bound execution context. It addresses everything by
// selector on the live document and holds no element references between
// calls, so it stays valid across DOM churn until the tab itself closes.
type Tab struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	loadLimit time.Duration
	loadPoll  time.Duration

	onClose   func()
	closeOnce sync.Once
}

var _ executor.DOM = (*Tab)(nil)

// ID returns the tab identifier.
func (t *Tab) ID() string { return t.id }

// Close tears the tab down. Safe to call more than once.
func (t *Tab) Close() {
	t.closeOnce.Do(func() {
		t.cancel()
		if t.onClose != nil {
			t.onClose()
		}
		t.logger.Debug("Tab closed.")
	})
}

// HTML returns the current document markup.
func (t *Tab) HTML(ctx context.Context) (string, error) {
	var markup string
	if err := t.run(ctx, chromedp.OuterHTML("html", &markup, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to capture document markup: %w", err)
	}
	return markup, nil
}

// URL returns the current document location.
func (t *Tab) URL(ctx context.Context) (string, error) {
	var loc string
	if err := t.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return loc, nil
}

// Navigate sets the document location and waits for the new document to
// finish loading, bounded by the configured load timeout.
func (t *Tab) Navigate(ctx context.Context, url string) error {
	t.logger.Debug("Navigating.", zap.String("url", url))
	if err := t.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return t.WaitLoaded(ctx)
}

// WaitLoaded polls document.readyState until the page reports complete or
// the load timeout elapses. A timeout is an error; callers decide whether a
// partially loaded page is usable.
func (t *Tab) WaitLoaded(ctx context.Context) error {
	deadline := time.Now().Add(t.loadLimit)
	poll := t.loadPoll
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}

	for {
		var state string
		if err := t.run(ctx, chromedp.Evaluate(`document.readyState`, &state)); err != nil {
			return fmt.Errorf("failed to poll document readiness: %w", err)
		}
		if state == "complete" {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("page did not finish loading within %s", t.loadLimit)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(poll):
		}
	}
}

// Click dispatches a click on the first element matching the selector.
func (t *Tab) Click(ctx context.Context, selector string) error {
	if err := t.run(ctx, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to click %q: %w", selector, err)
	}
	return nil
}

// SetValue assigns the value and dispatches input and change events so
// framework listeners observe the write.
func (t *Tab) SetValue(ctx context.Context, selector, value string) error {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return false;
		el.focus();
		el.value = %s;
		el.dispatchEvent(new Event('input', {bubbles: true}));
		el.dispatchEvent(new Event('change', {bubbles: true}));
		return true;
	})()`, jsString(selector), jsString(value))

	var ok bool
	if err := t.run(ctx, chromedp.Evaluate(script, &ok)); err != nil {
		return fmt.Errorf("failed to set value on %q: %w", selector, err)
	}
	if !ok {
		return fmt.Errorf("no element matches %q", selector)
	}
	return nil
}

// SelectOption selects the option whose text equals optionText, ignoring
// case, within the select element.
func (t *Tab) SelectOption(ctx context.Context, selector, optionText string) error {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el || el.tagName !== 'SELECT') return false;
		const want = %s.trim().toLowerCase();
		for (const opt of el.options) {
			if (opt.text.trim().toLowerCase() === want) {
				el.value = opt.value;
				el.dispatchEvent(new Event('input', {bubbles: true}));
				el.dispatchEvent(new Event('change', {bubbles: true}));
				return true;
			}
		}
		return false;
	})()`, jsString(selector), jsString(optionText))

	var ok bool
	if err := t.run(ctx, chromedp.Evaluate(script, &ok)); err != nil {
		return fmt.Errorf("failed to select option on %q: %w", selector, err)
	}
	if !ok {
		return fmt.Errorf("no option %q in %q", optionText, selector)
	}
	return nil
}

// Submit requests submission of the form matching the selector. requestSubmit
// honors submit handlers and validation the way a real click would.
func (t *Tab) Submit(ctx context.Context, selector string) error {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return false;
		const form = el.tagName === 'FORM' ? el : el.form;
		if (!form) return false;
		if (form.requestSubmit) { form.requestSubmit(); } else { form.submit(); }
		return true;
	})()`, jsString(selector))

	var ok bool
	if err := t.run(ctx, chromedp.Evaluate(script, &ok)); err != nil {
		return fmt.Errorf("failed to submit %q: %w", selector, err)
	}
	if !ok {
		return fmt.Errorf("no form matches %q", selector)
	}
	return nil
}

// ScrollBy scrolls by the signed fraction of the viewport height.
func (t *Tab) ScrollBy(ctx context.Context, amount float64) error {
	script := fmt.Sprintf(`window.scrollBy({top: window.innerHeight * %g, behavior: 'smooth'})`, amount)
	if err := t.run(ctx, chromedp.Evaluate(script, nil)); err != nil {
		return fmt.Errorf("failed to scroll: %w", err)
	}
	return nil
}

// ScrollTo scrolls to an absolute position.
func (t *Tab) ScrollTo(ctx context.Context, position string) error {
	var script string
	switch position {
	case schemas.ScrollTop:
		script = `window.scrollTo({top: 0, behavior: 'smooth'})`
	case schemas.ScrollBottom:
		script = `window.scrollTo({top: document.body.scrollHeight, behavior: 'smooth'})`
	default:
		return fmt.Errorf("unknown scroll position %q", position)
	}
	if err := t.run(ctx, chromedp.Evaluate(script, nil)); err != nil {
		return fmt.Errorf("failed to scroll to %s: %w", position, err)
	}
	return nil
}

// toastScript shows a transient overlay in the page corner. Injected per
// call; failures are swallowed because feedback must never affect outcomes.
const toastScript = `((message) => {
	const id = '__pp_toast';
	let el = document.getElementById(id);
	if (!el) {
		el = document.createElement('div');
		el.id = id;
		el.style.cssText = 'position:fixed;bottom:16px;right:16px;z-index:2147483647;' +
			'background:rgba(20,20,30,.92);color:#fff;padding:10px 14px;border-radius:8px;' +
			'font:13px system-ui,sans-serif;box-shadow:0 4px 16px rgba(0,0,0,.35);' +
			'transition:opacity .3s;pointer-events:none';
		document.body.appendChild(el);
	}
	el.textContent = message;
	el.style.opacity = '1';
	clearTimeout(el.__ppTimer);
	el.__ppTimer = setTimeout(() => { el.style.opacity = '0'; }, 2200);
})`

// Notify shows best-effort visual feedback in the page.
func (t *Tab) Notify(ctx context.Context, message string) {
	script := fmt.Sprintf("(%s)(%s)", toastScript, jsString(message))
	if err := t.run(ctx, chromedp.Evaluate(script, nil)); err != nil {
		t.logger.Debug("Toast injection failed.", zap.Error(err))
	}
}

// run executes chromedp actions on the tab's context while honoring the
// caller's cancellation.
func (t *Tab) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(t.ctx, actions...)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// jsString renders a Go string as a JavaScript string literal.
func jsString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}
