// api/schemas/page.go
package schemas

// ElementRole classifies an extracted page element.
type ElementRole string

const (
	RoleLink     ElementRole = "link"
	RoleButton   ElementRole = "button"
	RoleInput    ElementRole = "input"
	RoleSelect   ElementRole = "select"
	RoleTextarea ElementRole = "textarea"
	RoleImage    ElementRole = "img"
	RoleCard     ElementRole = "card"
	RoleUnknown  ElementRole = "unknown"
)

// ElementDescriptor is one interactive element surfaced by a page scan.
// Selector, when present, resolved to exactly this element at scan time; the
// page may mutate afterwards and invalidate it, which is accepted.
type ElementDescriptor struct {
	Role     ElementRole `json:"role"`
	Title    string      `json:"title"`
	Subtitle string      `json:"subtitle,omitempty"`
	Href     string      `json:"href,omitempty"`
	Selector string      `json:"selector,omitempty"`
	Price    string      `json:"price,omitempty"`  // currency-prefixed, e.g. "$129"
	Rating   float64     `json:"rating,omitempty"` // normalized to a 0-5 scale
}

// PageControls reports date-input detection for check-in/check-out style forms.
type PageControls struct {
	HasDateInputs    bool   `json:"hasDateInputs"`
	CheckInSelector  string `json:"checkInSelector,omitempty"`
	CheckOutSelector string `json:"checkOutSelector,omitempty"`
}

// PageInsights is a point-in-time snapshot of a page's interactive surface.
// It is created fresh on every scan, never persisted, and immutable once
// returned.
type PageInsights struct {
	URL      string              `json:"url"`
	Title    string              `json:"title"`
	Headings []string            `json:"headings"` // at most 10
	TopText  []string            `json:"topText"`  // at most 5 paragraphs
	Elements []ElementDescriptor `json:"elements"`
	Controls PageControls        `json:"controls"`
}
