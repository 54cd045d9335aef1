// api/schemas/actions.go
package schemas

// IntentKind enumerates the single-command interpretations the intent parser
// can produce from short free text.
type IntentKind string

const (
	IntentScroll     IntentKind = "SCROLL"
	IntentOpenURL    IntentKind = "OPEN_URL"
	IntentSearchWeb  IntentKind = "SEARCH_WEB"
	IntentSummary    IntentKind = "SUMMARY"
	IntentClickLabel IntentKind = "CLICK_LABEL"
	IntentFillField  IntentKind = "FILL_FIELD"
)

// Intent is a structured reading of one literal user command. It is a pure
// value: produced fresh per input string and never mutated.
type Intent struct {
	Kind      IntentKind `json:"kind"`
	Direction string     `json:"direction,omitempty"` // "up" or "down" for SCROLL
	Amount    float64    `json:"amount,omitempty"`    // fraction of viewport height
	URL       string     `json:"url,omitempty"`
	Query     string     `json:"query,omitempty"`
	Label     string     `json:"label,omitempty"`
	Value     string     `json:"value,omitempty"`
}

// ActionKind enumerates the atomic page operations a plan may contain.
// The planner's LLM prompt enumerates exactly this vocabulary.
type ActionKind string

const (
	ActionClick        ActionKind = "CLICK"
	ActionTypeText     ActionKind = "TYPE"
	ActionSelectOption ActionKind = "SELECT_OPTION"
	ActionSetDate      ActionKind = "SET_DATE"
	ActionSubmit       ActionKind = "SUBMIT"
	ActionScroll       ActionKind = "SCROLL"
	ActionNavigate     ActionKind = "NAVIGATE"
	ActionSummary      ActionKind = "SUMMARY"
)

// ScrollTop and ScrollBottom are the absolute targets a SCROLL action may
// carry instead of a relative amount.
const (
	ScrollTop    = "top"
	ScrollBottom = "bottom"
)

// Action is one addressable step of a plan. Which fields are meaningful
// depends on Kind; unused fields stay zero and are omitted on the wire.
type Action struct {
	Kind       ActionKind `json:"action"`
	Selector   string     `json:"selector,omitempty"`
	Text       string     `json:"text,omitempty"`  // CLICK fallback: accessible-name substring
	Label      string     `json:"label,omitempty"` // TYPE/SELECT_OPTION fallback: label substring
	Value      string     `json:"value,omitempty"` // TYPE text or SET_DATE ISO date
	OptionText string     `json:"optionText,omitempty"`
	URL        string     `json:"url,omitempty"`
	Amount     float64    `json:"amount,omitempty"` // signed fraction of viewport height
	To         string     `json:"to,omitempty"`     // ScrollTop or ScrollBottom
}

// ExecResult is the uniform outcome of executing one action or one batch.
// Failures are encoded here, never thrown across the transport boundary.
type ExecResult struct {
	OK     bool   `json:"ok"`
	Result string `json:"result,omitempty"` // failure reason or SUMMARY text
}

// Failure builds a failed result with a human-readable reason.
func Failure(reason string) ExecResult {
	return ExecResult{OK: false, Result: reason}
}

// Success is the zero-reason success result.
func Success() ExecResult {
	return ExecResult{OK: true}
}
