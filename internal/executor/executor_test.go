// internal/executor/executor_test.go
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hexblade/pagepilot/api/schemas"
	"github.com/hexblade/pagepilot/internal/page"
)

const testPage = `<!DOCTYPE html>
<html><head><title>Hotel Finder</title></head>
<body>
  <h1>Find your stay</h1>
  <p>Compare thousands of hotels across the city and book the one that fits your budget best.</p>
  <a href="/deals" id="deals-link">Hot deals</a>
  <form id="search-form">
    <label for="dest">Destination</label>
    <input type="text" id="dest" name="destination">
    <input type="date" name="checkin_date" aria-label="Check in">
    <select aria-label="Guests"><option>1 guest</option><option>2 guests</option></select>
    <button type="submit">Search hotels</button>
  </form>
</body></html>`

// domCall records one mutation issued against the fake.
type domCall struct {
	op       string
	selector string
	value    string
}

// fakeDOM is an in-memory DOM backed by static markup. htmlErrs queues
// transient HTML fetch failures; opErr fails every mutation.
type fakeDOM struct {
	markup   string
	url      string
	htmlErrs []error
	opErr    error
	calls    []domCall
	notices  []string
}

func newFakeDOM() *fakeDOM {
	return &fakeDOM{markup: testPage, url: "https://hotels.example/search"}
}

func (f *fakeDOM) HTML(context.Context) (string, error) {
	if len(f.htmlErrs) > 0 {
		err := f.htmlErrs[0]
		f.htmlErrs = f.htmlErrs[1:]
		return "", err
	}
	return f.markup, nil
}

func (f *fakeDOM) URL(context.Context) (string, error) { return f.url, nil }

func (f *fakeDOM) Navigate(_ context.Context, url string) error {
	f.calls = append(f.calls, domCall{op: "navigate", value: url})
	return f.opErr
}

func (f *fakeDOM) Click(_ context.Context, selector string) error {
	f.calls = append(f.calls, domCall{op: "click", selector: selector})
	return f.opErr
}

func (f *fakeDOM) SetValue(_ context.Context, selector, value string) error {
	f.calls = append(f.calls, domCall{op: "setvalue", selector: selector, value: value})
	return f.opErr
}

func (f *fakeDOM) SelectOption(_ context.Context, selector, optionText string) error {
	f.calls = append(f.calls, domCall{op: "select", selector: selector, value: optionText})
	return f.opErr
}

func (f *fakeDOM) Submit(_ context.Context, selector string) error {
	f.calls = append(f.calls, domCall{op: "submit", selector: selector})
	return f.opErr
}

func (f *fakeDOM) ScrollBy(_ context.Context, amount float64) error {
	f.calls = append(f.calls, domCall{op: "scrollby", value: fmt.Sprintf("%g", amount)})
	return f.opErr
}

func (f *fakeDOM) ScrollTo(_ context.Context, position string) error {
	f.calls = append(f.calls, domCall{op: "scrollto", value: position})
	return f.opErr
}

func (f *fakeDOM) Notify(_ context.Context, message string) {
	f.notices = append(f.notices, message)
}

func newTestExecutor(dom DOM) *Executor {
	return New(dom, page.NewScanner(zap.NewNop()), zap.NewNop(), 0)
}

func lastCall(t *testing.T, dom *fakeDOM) domCall {
	t.Helper()
	require.NotEmpty(t, dom.calls)
	return dom.calls[len(dom.calls)-1]
}

func TestExecute_ClickBySelector(t *testing.T) {
	t.Parallel()
	dom := newFakeDOM()
	result := newTestExecutor(dom).Execute(context.Background(), schemas.Action{
		Kind:     schemas.ActionClick,
		Selector: "#deals-link",
	})

	assert.True(t, result.OK)
	call := lastCall(t, dom)
	assert.Equal(t, "click", call.op)
	assert.Equal(t, "#deals-link", call.selector)
}

func TestExecute_ClickByTextFallback(t *testing.T) {
	t.Parallel()
	dom := newFakeDOM()
	result := newTestExecutor(dom).Execute(context.Background(), schemas.Action{
		Kind:     schemas.ActionClick,
		Selector: "#stale-selector", // not on the page; text fallback kicks in
		Text:     "hot deals",
	})

	assert.True(t, result.OK)
	call := lastCall(t, dom)
	assert.Equal(t, "click", call.op)
	assert.Equal(t, "#deals-link", call.selector)
}

func TestExecute_ClickNotFound(t *testing.T) {
	t.Parallel()
	dom := newFakeDOM()
	result := newTestExecutor(dom).Execute(context.Background(), schemas.Action{
		Kind: schemas.ActionClick,
		Text: "does not exist anywhere",
	})

	assert.False(t, result.OK)
	assert.Contains(t, result.Result, "not found")
	assert.Empty(t, dom.calls, "no mutation should reach the page")
}

func TestExecute_TypeByLabel(t *testing.T) {
	t.Parallel()
	dom := newFakeDOM()
	result := newTestExecutor(dom).Execute(context.Background(), schemas.Action{
		Kind:  schemas.ActionTypeText,
		Label: "destination",
		Value: "Lisbon",
	})

	assert.True(t, result.OK)
	call := lastCall(t, dom)
	assert.Equal(t, "setvalue", call.op)
	assert.Equal(t, "#dest", call.selector)
	assert.Equal(t, "Lisbon", call.value)
}

func TestExecute_TypeSanitizesValue(t *testing.T) {
	t.Parallel()
	dom := newFakeDOM()
	result := newTestExecutor(dom).Execute(context.Background(), schemas.Action{
		Kind:  schemas.ActionTypeText,
		Label: "destination",
		Value: `<script>alert(1)</script>Lisbon`,
	})

	assert.True(t, result.OK)
	call := lastCall(t, dom)
	assert.NotContains(t, call.value, "<script>")
	assert.Contains(t, call.value, "Lisbon")
}

func TestExecute_TypeNotFound(t *testing.T) {
	t.Parallel()
	dom := newFakeDOM()
	result := newTestExecutor(dom).Execute(context.Background(), schemas.Action{
		Kind:  schemas.ActionTypeText,
		Label: "passport number",
		Value: "x",
	})

	assert.False(t, result.OK)
	assert.Contains(t, result.Result, "not found")
	assert.Empty(t, dom.calls)
}

func TestExecute_SetDate(t *testing.T) {
	t.Parallel()
	dom := newFakeDOM()
	exec := newTestExecutor(dom)

	result := exec.Execute(context.Background(), schemas.Action{
		Kind:     schemas.ActionSetDate,
		Selector: `input[name="checkin_date"]`,
		Value:    "2026-09-12",
	})
	assert.True(t, result.OK)
	call := lastCall(t, dom)
	assert.Equal(t, "setvalue", call.op)
	assert.Equal(t, "2026-09-12", call.value)

	// SET_DATE never falls back to label resolution.
	missing := exec.Execute(context.Background(), schemas.Action{
		Kind:  schemas.ActionSetDate,
		Value: "2026-09-12",
	})
	assert.False(t, missing.OK)
	assert.Contains(t, missing.Result, "not found")
}

func TestExecute_SelectOption(t *testing.T) {
	t.Parallel()
	dom := newFakeDOM()
	result := newTestExecutor(dom).Execute(context.Background(), schemas.Action{
		Kind:       schemas.ActionSelectOption,
		Label:      "guests",
		OptionText: "2 guests",
	})

	assert.True(t, result.OK)
	call := lastCall(t, dom)
	assert.Equal(t, "select", call.op)
	assert.Equal(t, "2 guests", call.value)
}

func TestExecute_SelectOptionMissingOption(t *testing.T) {
	t.Parallel()
	dom := newFakeDOM()
	result := newTestExecutor(dom).Execute(context.Background(), schemas.Action{
		Kind:       schemas.ActionSelectOption,
		Label:      "guests",
		OptionText: "7 guests",
	})

	assert.False(t, result.OK)
	assert.Contains(t, result.Result, "not found")
	assert.Empty(t, dom.calls)
}

func TestExecute_SubmitDefaultsToFirstForm(t *testing.T) {
	t.Parallel()
	dom := newFakeDOM()
	result := newTestExecutor(dom).Execute(context.Background(), schemas.Action{
		Kind: schemas.ActionSubmit,
	})

	assert.True(t, result.OK)
	call := lastCall(t, dom)
	assert.Equal(t, "submit", call.op)
	assert.Equal(t, "#search-form", call.selector)
}

func TestExecute_SubmitNoForm(t *testing.T) {
	t.Parallel()
	dom := newFakeDOM()
	dom.markup = "<html><body><p>no forms here</p></body></html>"
	result := newTestExecutor(dom).Execute(context.Background(), schemas.Action{
		Kind: schemas.ActionSubmit,
	})

	assert.False(t, result.OK)
	assert.Contains(t, result.Result, "no form")
}

func TestExecute_ScrollDefaultsAndTargets(t *testing.T) {
	t.Parallel()
	dom := newFakeDOM()
	exec := newTestExecutor(dom)

	assert.True(t, exec.Execute(context.Background(), schemas.Action{Kind: schemas.ActionScroll}).OK)
	assert.Equal(t, domCall{op: "scrollby", value: "0.8"}, lastCall(t, dom))

	assert.True(t, exec.Execute(context.Background(), schemas.Action{Kind: schemas.ActionScroll, Amount: -0.5}).OK)
	assert.Equal(t, domCall{op: "scrollby", value: "-0.5"}, lastCall(t, dom))

	assert.True(t, exec.Execute(context.Background(), schemas.Action{Kind: schemas.ActionScroll, To: schemas.ScrollBottom}).OK)
	assert.Equal(t, domCall{op: "scrollto", value: "bottom"}, lastCall(t, dom))
}

func TestExecute_Navigate(t *testing.T) {
	t.Parallel()
	dom := newFakeDOM()
	result := newTestExecutor(dom).Execute(context.Background(), schemas.Action{
		Kind: schemas.ActionNavigate,
		URL:  "https://example.com",
	})

	assert.True(t, result.OK)
	assert.Equal(t, domCall{op: "navigate", value: "https://example.com"}, lastCall(t, dom))
}

func TestExecute_Summary(t *testing.T) {
	t.Parallel()
	dom := newFakeDOM()
	result := newTestExecutor(dom).Execute(context.Background(), schemas.Action{
		Kind: schemas.ActionSummary,
	})

	assert.True(t, result.OK)
	assert.Contains(t, result.Result, "Hotel Finder")
	assert.Contains(t, result.Result, "Find your stay")
	assert.Contains(t, result.Result, "Compare thousands")
}

func TestExecute_RetriesTransientSnapshotFailures(t *testing.T) {
	t.Parallel()
	dom := newFakeDOM()
	dom.htmlErrs = []error{errors.New("context destroyed"), errors.New("context destroyed")}

	result := newTestExecutor(dom).Execute(context.Background(), schemas.Action{
		Kind:     schemas.ActionClick,
		Selector: "#deals-link",
	})

	assert.True(t, result.OK, "third attempt should succeed")
}

func TestExecute_FailsAfterAttemptBudget(t *testing.T) {
	t.Parallel()
	dom := newFakeDOM()
	dom.opErr = errors.New("node detached")

	result := newTestExecutor(dom).Execute(context.Background(), schemas.Action{
		Kind:     schemas.ActionClick,
		Selector: "#deals-link",
	})

	assert.False(t, result.OK)
	assert.Contains(t, result.Result, "after 3 attempts")
	assert.Len(t, dom.calls, 3)
}

func TestExecuteAll_StopsAtFirstFailure(t *testing.T) {
	t.Parallel()
	dom := newFakeDOM()
	result, insights := newTestExecutor(dom).ExecuteAll(context.Background(), []schemas.Action{
		{Kind: schemas.ActionClick, Selector: "#deals-link"},
		{Kind: schemas.ActionClick, Text: "nothing matches this"},
		{Kind: schemas.ActionSubmit},
	})

	assert.False(t, result.OK)
	assert.Nil(t, insights)
	for _, call := range dom.calls {
		assert.NotEqual(t, "submit", call.op, "batch must stop before the submit")
	}
}

func TestExecuteAll_NavigateEndsBatch(t *testing.T) {
	t.Parallel()
	dom := newFakeDOM()
	result, insights := newTestExecutor(dom).ExecuteAll(context.Background(), []schemas.Action{
		{Kind: schemas.ActionNavigate, URL: "https://example.com"},
		{Kind: schemas.ActionClick, Selector: "#deals-link"},
	})

	assert.True(t, result.OK)
	assert.Nil(t, insights)
	require.Len(t, dom.calls, 1)
	assert.Equal(t, "navigate", dom.calls[0].op)
}

func TestExecuteAll_SuccessReturnsFreshScan(t *testing.T) {
	t.Parallel()
	dom := newFakeDOM()
	result, insights := newTestExecutor(dom).ExecuteAll(context.Background(), []schemas.Action{
		{Kind: schemas.ActionTypeText, Label: "destination", Value: "Lisbon"},
		{Kind: schemas.ActionScroll, To: schemas.ScrollTop},
	})

	assert.True(t, result.OK)
	require.NotNil(t, insights)
	assert.Equal(t, "Hotel Finder", insights.Title)
	assert.Equal(t, "https://hotels.example/search", insights.URL)
}

func TestResolveField_UsesLabelForText(t *testing.T) {
	t.Parallel()
	dom := newFakeDOM()
	result := newTestExecutor(dom).Execute(context.Background(), schemas.Action{
		Kind:  schemas.ActionTypeText,
		Label: "Destination",
		Value: "Porto",
	})

	assert.True(t, result.OK)
	assert.Equal(t, "#dest", lastCall(t, dom).selector)
}

func TestSanitizeValue(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"<b>bold</b> move", "bold move"},
		{"javascript:alert(1)", "alert(1)"},
		{"<script>x</script>", "x"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, sanitizeValue(tc.in), "input %q", tc.in)
	}
}

func TestSelectHasOption_CaseInsensitive(t *testing.T) {
	t.Parallel()
	dom := newFakeDOM()
	result := newTestExecutor(dom).Execute(context.Background(), schemas.Action{
		Kind:       schemas.ActionSelectOption,
		Label:      "Guests",
		OptionText: "2 GUESTS",
	})
	assert.True(t, result.OK)
}

func TestExecute_UnknownKind(t *testing.T) {
	t.Parallel()
	result := newTestExecutor(newFakeDOM()).Execute(context.Background(), schemas.Action{
		Kind: schemas.ActionKind("TELEPORT"),
	})
	assert.False(t, result.OK)
	assert.Contains(t, strings.ToLower(result.Result), "unsupported")
}
