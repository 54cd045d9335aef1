// internal/coordinator/coordinator.go

// Package coordinator owns agent lifecycles. Each agent steps through a
// planned action sequence against its own tab; state mutations are broadcast
// as point-in-time snapshots after every change.
package coordinator

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/hexblade/pagepilot/api/schemas"
	"github.com/hexblade/pagepilot/internal/executor"
	"github.com/hexblade/pagepilot/internal/page"
)

const maxAgentNameLength = 48

// Tab is a page-bound execution context owned by exactly one agent.
type Tab interface {
	executor.DOM
	ID() string
	Close()
}

// TabFactory opens fresh tabs for new agents.
type TabFactory interface {
	NewTab(ctx context.Context) (Tab, error)
}

// TabFactoryFunc adapts a function to the TabFactory interface.
type TabFactoryFunc func(ctx context.Context) (Tab, error)

func (f TabFactoryFunc) NewTab(ctx context.Context) (Tab, error) { return f(ctx) }

// Planner produces the action sequence for a goal. Plans are never empty.
type Planner interface {
	Plan(ctx context.Context, goal string) []schemas.Action
}

// agentRecord is the coordinator-private state of one agent. The snapshot is
// the single source of truth; everything observers see is a copy of it.
type agentRecord struct {
	mu       sync.Mutex
	snapshot schemas.AgentSnapshot

	tab  Tab
	exec *executor.Executor

	canceled atomic.Bool
	// waitCancel unblocks an agent still queued on the concurrency limit.
	// Execution itself is never interrupted mid-action.
	waitCtx    context.Context
	waitCancel context.CancelFunc
}

// Options bundle the coordinator's collaborators and bounds.
type Options struct {
	Tabs          TabFactory
	Planner       Planner
	Scanner       *page.Scanner
	Logger        *zap.Logger
	MaxConcurrent int
	ActionRetries int
	// BroadcastBuffer sizes each observer's channel on the bus.
	BroadcastBuffer int
}

// Coordinator registers agents, runs their plans and broadcasts every state
// change. Agent records are owned exclusively by the coordinator; external
// access goes through snapshots.
type Coordinator struct {
	tabs    TabFactory
	planner Planner
	scanner *page.Scanner
	logger  *zap.Logger
	bus     *Bus
	sem     *semaphore.Weighted
	retries int

	mu     sync.RWMutex
	agents map[string]*agentRecord

	rootCtx    context.Context
	rootCancel context.CancelFunc
	wg         sync.WaitGroup
}

// New creates a Coordinator.
func New(opts Options) *Coordinator {
	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	rootCtx, rootCancel := context.WithCancel(context.Background())
	return &Coordinator{
		tabs:       opts.Tabs,
		planner:    opts.Planner,
		scanner:    opts.Scanner,
		logger:     opts.Logger.Named("coordinator"),
		bus:        NewBus(opts.Logger, opts.BroadcastBuffer),
		sem:        semaphore.NewWeighted(int64(maxConcurrent)),
		retries:    opts.ActionRetries,
		agents:     make(map[string]*agentRecord),
		rootCtx:    rootCtx,
		rootCancel: rootCancel,
	}
}

// Subscribe registers an observer for agent updates.
func (c *Coordinator) Subscribe() (<-chan schemas.AgentUpdate, func()) {
	return c.bus.Subscribe()
}

// Create plans the goal, opens a tab, registers the agent in idle state and
// starts its run loop.
func (c *Coordinator) Create(ctx context.Context, req schemas.CreateAgentRequest) (schemas.AgentSnapshot, error) {
	goal := strings.TrimSpace(req.Goal)
	if goal == "" {
		return schemas.AgentSnapshot{}, fmt.Errorf("agent goal must not be empty")
	}

	tab, err := c.tabs.NewTab(ctx)
	if err != nil {
		return schemas.AgentSnapshot{}, fmt.Errorf("failed to open tab for agent: %w", err)
	}

	actions := c.planner.Plan(ctx, goal)
	if req.URLHint != "" {
		actions = append([]schemas.Action{{Kind: schemas.ActionNavigate, URL: req.URLHint}}, actions...)
	}

	waitCtx, waitCancel := context.WithCancel(c.rootCtx)
	rec := &agentRecord{
		snapshot: schemas.AgentSnapshot{
			ID:        uuid.New().String(),
			Name:      agentName(goal),
			Goal:      goal,
			Status:    schemas.AgentIdle,
			CreatedAt: time.Now().UTC(),
			TabID:     tab.ID(),
			Actions:   actions,
			Logs:      []string{fmt.Sprintf("Planned %d step(s).", len(actions))},
		},
		tab:        tab,
		exec:       executor.New(tab, c.scanner, c.logger, c.retries),
		waitCtx:    waitCtx,
		waitCancel: waitCancel,
	}

	c.mu.Lock()
	c.agents[rec.snapshot.ID] = rec
	c.mu.Unlock()

	c.logger.Info("Agent registered.",
		zap.String("agent_id", rec.snapshot.ID),
		zap.String("goal", goal),
		zap.Int("steps", len(actions)),
	)
	snapshot := c.broadcast(rec, func(s *schemas.AgentSnapshot) {})

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(rec)
	}()

	return snapshot, nil
}

// List returns snapshots of every registered agent, oldest first.
func (c *Coordinator) List() []schemas.AgentSnapshot {
	c.mu.RLock()
	out := make([]schemas.AgentSnapshot, 0, len(c.agents))
	for _, rec := range c.agents {
		rec.mu.Lock()
		out = append(out, copySnapshot(rec.snapshot))
		rec.mu.Unlock()
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Get returns a snapshot of one agent.
func (c *Coordinator) Get(id string) (schemas.AgentSnapshot, bool) {
	c.mu.RLock()
	rec, ok := c.agents[id]
	c.mu.RUnlock()
	if !ok {
		return schemas.AgentSnapshot{}, false
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return copySnapshot(rec.snapshot), true
}

// Cancel requests cooperative cancellation. The in-flight action finishes;
// the plan stops at the next step boundary. Canceling a terminal agent is a
// no-op.
func (c *Coordinator) Cancel(id string) error {
	c.mu.RLock()
	rec, ok := c.agents[id]
	c.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown agent %q", id)
	}

	rec.canceled.Store(true)
	rec.waitCancel()
	c.broadcast(rec, func(s *schemas.AgentSnapshot) {
		s.Canceled = true
		if !s.Status.Terminal() {
			s.Logs = append(s.Logs, "Cancellation requested.")
		}
	})
	c.logger.Info("Agent cancellation requested.", zap.String("agent_id", id))
	return nil
}

// Shutdown cancels all agents and waits for their run loops to stop.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.logger.Info("Shutting down coordinator.")

	c.mu.RLock()
	for _, rec := range c.agents {
		rec.canceled.Store(true)
		rec.waitCancel()
	}
	c.mu.RUnlock()
	c.rootCancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for agent run loops: %w", ctx.Err())
	}

	c.bus.Shutdown()
	return nil
}

// run steps one agent through its plan. Only this goroutine moves the agent
// out of idle, so the state machine is single-writer.
func (c *Coordinator) run(rec *agentRecord) {
	logger := c.logger.With(zap.String("agent_id", rec.snapshot.ID))
	defer rec.waitCancel()

	if err := c.sem.Acquire(rec.waitCtx, 1); err != nil {
		c.broadcast(rec, func(s *schemas.AgentSnapshot) {
			s.Status = schemas.AgentCanceled
			s.Logs = append(s.Logs, "Canceled before starting.")
		})
		return
	}
	defer c.sem.Release(1)

	c.broadcast(rec, func(s *schemas.AgentSnapshot) {
		s.Status = schemas.AgentRunning
	})

	total := len(rec.snapshot.Actions)
	for i := rec.snapshot.CurrentIndex; i < total; i++ {
		if rec.canceled.Load() {
			c.broadcast(rec, func(s *schemas.AgentSnapshot) {
				s.Status = schemas.AgentCanceled
				s.Logs = append(s.Logs, fmt.Sprintf("Canceled at step %d/%d.", i+1, total))
			})
			logger.Info("Agent canceled.", zap.Int("step", i+1))
			return
		}

		action := rec.snapshot.Actions[i]
		c.broadcast(rec, func(s *schemas.AgentSnapshot) {
			s.Logs = append(s.Logs, fmt.Sprintf("Step %d/%d: %s", i+1, total, describeAction(action)))
		})
		logger.Debug("Executing step.", zap.Int("step", i+1), zap.String("action", string(action.Kind)))

		// Execution runs on the coordinator's root context, not the agent's
		// wait context: cancellation never interrupts an action mid-flight.
		result := rec.exec.Execute(c.rootCtx, action)
		if !result.OK {
			c.broadcast(rec, func(s *schemas.AgentSnapshot) {
				s.Status = schemas.AgentError
				s.Error = result.Result
				s.Logs = append(s.Logs, fmt.Sprintf("Step %d failed: %s", i+1, result.Result))
			})
			logger.Warn("Agent step failed.", zap.Int("step", i+1), zap.String("reason", result.Result))
			return
		}

		index := i + 1
		c.broadcast(rec, func(s *schemas.AgentSnapshot) {
			s.CurrentIndex = index
			s.Progress = int(math.Round(float64(index) / float64(total) * 100))
			s.Logs = append(s.Logs, fmt.Sprintf("Step %d/%d done.", index, total))
		})
	}

	c.broadcast(rec, func(s *schemas.AgentSnapshot) {
		s.Status = schemas.AgentDone
		s.Progress = 100
		s.Logs = append(s.Logs, "Goal complete.")
	})
	logger.Info("Agent finished.", zap.Int("steps", total))
}

// broadcast applies a mutation under the record lock and publishes the
// resulting snapshot copy.
func (c *Coordinator) broadcast(rec *agentRecord, mutate func(*schemas.AgentSnapshot)) schemas.AgentSnapshot {
	rec.mu.Lock()
	mutate(&rec.snapshot)
	snapshot := copySnapshot(rec.snapshot)
	rec.mu.Unlock()

	c.bus.Publish(schemas.AgentUpdate{Agent: snapshot})
	return snapshot
}

// copySnapshot deep-copies the slices so observers never share backing
// arrays with coordinator state.
func copySnapshot(s schemas.AgentSnapshot) schemas.AgentSnapshot {
	out := s
	out.Actions = append([]schemas.Action(nil), s.Actions...)
	out.Logs = append([]string(nil), s.Logs...)
	return out
}

func agentName(goal string) string {
	if len(goal) <= maxAgentNameLength {
		return goal
	}
	return strings.TrimSpace(goal[:maxAgentNameLength]) + "..."
}

func describeAction(a schemas.Action) string {
	switch a.Kind {
	case schemas.ActionNavigate:
		return fmt.Sprintf("navigate to %s", a.URL)
	case schemas.ActionClick:
		return "click " + firstNonEmpty(a.Text, a.Selector)
	case schemas.ActionTypeText:
		return "fill " + firstNonEmpty(a.Label, a.Selector)
	case schemas.ActionSelectOption:
		return fmt.Sprintf("select %q in %s", a.OptionText, firstNonEmpty(a.Label, a.Selector))
	case schemas.ActionSetDate:
		return fmt.Sprintf("set date %s on %s", a.Value, a.Selector)
	case schemas.ActionSubmit:
		return "submit form"
	case schemas.ActionScroll:
		if a.To != "" {
			return "scroll to " + a.To
		}
		return "scroll"
	case schemas.ActionSummary:
		return "summarize page"
	default:
		return string(a.Kind)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
