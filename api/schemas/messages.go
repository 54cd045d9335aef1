// api/schemas/messages.go
package schemas

// MessageKind is the closed set of request kinds understood by a page-bound
// execution context. Producers construct requests through typed helpers, so an
// unknown kind is not representable; the decoder still rejects stray values
// arriving off the wire.
type MessageKind string

const (
	MsgPing          MessageKind = "PING"
	MsgScroll        MessageKind = "SCROLL"
	MsgOpenURL       MessageKind = "OPEN_URL"
	MsgSearchWeb     MessageKind = "SEARCH_WEB"
	MsgSummary       MessageKind = "SUMMARY"
	MsgClickLabel    MessageKind = "CLICK_LABEL"
	MsgClickSelector MessageKind = "CLICK_SELECTOR"
	MsgFillField     MessageKind = "FILL_FIELD"
	MsgSetDate       MessageKind = "SET_DATE"
	MsgSelectOption  MessageKind = "SELECT_OPTION"
	MsgSubmit        MessageKind = "SUBMIT"
	MsgAgentScan     MessageKind = "AGENT_SCAN"
	MsgAgentExecute  MessageKind = "AGENT_EXECUTE"
)

// KnownMessageKinds lists every kind the dispatcher accepts, in declaration
// order. Used by the decoder to reject unknown kinds.
var KnownMessageKinds = []MessageKind{
	MsgPing, MsgScroll, MsgOpenURL, MsgSearchWeb, MsgSummary,
	MsgClickLabel, MsgClickSelector, MsgFillField, MsgSetDate,
	MsgSelectOption, MsgSubmit, MsgAgentScan, MsgAgentExecute,
}

// Request is the envelope for one executor-facing message. Field relevance
// follows Kind, mirroring Action.
type Request struct {
	ID         string      `json:"id,omitempty"`
	Kind       MessageKind `json:"kind"`
	Direction  string      `json:"direction,omitempty"`
	Amount     float64     `json:"amount,omitempty"`
	URL        string      `json:"url,omitempty"`
	Query      string      `json:"query,omitempty"`
	Label      string      `json:"label,omitempty"`
	Selector   string      `json:"selector,omitempty"`
	Value      string      `json:"value,omitempty"`
	OptionText string      `json:"optionText,omitempty"`
	Actions    []Action    `json:"actions,omitempty"`
}

// Response carries the outcome of a Request back across the boundary.
// OPEN_URL and SEARCH_WEB produce no response: navigation tears down the
// execution context before one could be sent.
type Response struct {
	ID       string        `json:"id,omitempty"`
	OK       bool          `json:"ok"`
	Error    string        `json:"error,omitempty"`
	Text     string        `json:"text,omitempty"`
	Insights *PageInsights `json:"insights,omitempty"`
}

// CreateAgentRequest is the coordinator-facing goal submission.
type CreateAgentRequest struct {
	Goal         string `json:"goal"`
	PreferNewTab bool   `json:"preferNewTab,omitempty"`
	URLHint      string `json:"urlHint,omitempty"`
}

// AgentUpdate is the one-way broadcast emitted after every agent state change.
type AgentUpdate struct {
	Agent AgentSnapshot `json:"agent"`
}
