// api/schemas/agents.go
package schemas

import "time"

// AgentStatus is the lifecycle vocabulary of a coordinated agent.
// Transitions: idle -> running -> {done | error | canceled}, with paused
// reachable from running.
type AgentStatus string

const (
	AgentIdle     AgentStatus = "idle"
	AgentRunning  AgentStatus = "running"
	AgentPaused   AgentStatus = "paused"
	AgentDone     AgentStatus = "done"
	AgentError    AgentStatus = "error"
	AgentCanceled AgentStatus = "canceled"
)

// Terminal reports whether no further transitions are possible.
func (s AgentStatus) Terminal() bool {
	return s == AgentDone || s == AgentError || s == AgentCanceled
}

// AgentSnapshot is a point-in-time copy of one agent's state as broadcast to
// observers. Observers never receive a live reference to coordinator state.
type AgentSnapshot struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Goal         string      `json:"goal"`
	Status       AgentStatus `json:"status"`
	CreatedAt    time.Time   `json:"createdAt"`
	Progress     int         `json:"progress"` // 0-100
	TabID        string      `json:"tabId"`
	Actions      []Action    `json:"actions"`
	CurrentIndex int         `json:"currentIndex"`
	Logs         []string    `json:"logs"`
	Error        string      `json:"error,omitempty"`
	Canceled     bool        `json:"canceled"`
}
