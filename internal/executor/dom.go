// internal/executor/dom.go
package executor

import "context"

// DOM is the low-level surface a page-bound execution context must expose.
// The live document stays behind this boundary: the executor resolves targets
// on a fresh markup snapshot per action and addresses mutations by selector,
// never holding element references across calls.
type DOM interface {
	// HTML returns the current document markup.
	HTML(ctx context.Context) (string, error)
	// URL returns the current document location.
	URL(ctx context.Context) (string, error)
	// Navigate sets the document location. The execution context is invalid
	// afterwards.
	Navigate(ctx context.Context, url string) error
	// Click dispatches a click on the first element matching the selector.
	Click(ctx context.Context, selector string) error
	// SetValue focuses the element, assigns the value and dispatches input
	// and change events so page listeners observe it.
	SetValue(ctx context.Context, selector, value string) error
	// SelectOption selects the option with the given text (case-insensitive
	// exact match) within the select element.
	SelectOption(ctx context.Context, selector, optionText string) error
	// Submit requests submission of the form matching the selector.
	Submit(ctx context.Context, selector string) error
	// ScrollBy scrolls by the signed fraction of the viewport height.
	ScrollBy(ctx context.Context, amount float64) error
	// ScrollTo scrolls to an absolute position: schemas.ScrollTop or
	// schemas.ScrollBottom.
	ScrollTo(ctx context.Context, position string) error
	// Notify shows best-effort visual feedback. It has no return value and
	// must never influence an action's outcome.
	Notify(ctx context.Context, message string)
}
