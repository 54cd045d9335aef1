// internal/coordinator/coordinator_test.go
package coordinator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/hexblade/pagepilot/api/schemas"
	"github.com/hexblade/pagepilot/internal/page"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const tabMarkup = `<html><head><title>Landing</title></head><body>
<h1>Welcome</h1>
<a href="/next" id="next">Next page</a>
</body></html>`

// fakeTab is an in-memory Tab. gate, when set, blocks Navigate until
// released so tests can observe in-flight steps.
type fakeTab struct {
	id   string
	mu   sync.Mutex
	urls []string
	gate chan struct{}
}

func newFakeTab(id string) *fakeTab { return &fakeTab{id: id} }

func (f *fakeTab) ID() string { return f.id }
func (f *fakeTab) Close()     {}

func (f *fakeTab) HTML(context.Context) (string, error) { return tabMarkup, nil }
func (f *fakeTab) URL(context.Context) (string, error)  { return "https://start.example", nil }

func (f *fakeTab) Navigate(_ context.Context, url string) error {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	f.urls = append(f.urls, url)
	f.mu.Unlock()
	return nil
}

func (f *fakeTab) navigated() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.urls...)
}

func (f *fakeTab) Click(context.Context, string) error                { return nil }
func (f *fakeTab) SetValue(context.Context, string, string) error     { return nil }
func (f *fakeTab) SelectOption(context.Context, string, string) error { return nil }
func (f *fakeTab) Submit(context.Context, string) error               { return nil }
func (f *fakeTab) ScrollBy(context.Context, float64) error            { return nil }
func (f *fakeTab) ScrollTo(context.Context, string) error             { return nil }
func (f *fakeTab) Notify(context.Context, string)                     {}

type fakePlanner struct {
	actions []schemas.Action
}

func (p *fakePlanner) Plan(context.Context, string) []schemas.Action {
	return append([]schemas.Action(nil), p.actions...)
}

func newTestCoordinator(t *testing.T, tab Tab, plan []schemas.Action) *Coordinator {
	t.Helper()
	c := New(Options{
		Tabs:          TabFactoryFunc(func(context.Context) (Tab, error) { return tab, nil }),
		Planner:       &fakePlanner{actions: plan},
		Scanner:       page.NewScanner(zap.NewNop()),
		Logger:        zap.NewNop(),
		MaxConcurrent: 2,
		ActionRetries: 1,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, c.Shutdown(ctx))
	})
	return c
}

// waitForStatus drains updates for one agent until the wanted status appears.
func waitForStatus(t *testing.T, ch <-chan schemas.AgentUpdate, id string, want schemas.AgentStatus) []schemas.AgentSnapshot {
	t.Helper()
	deadline := time.After(5 * time.Second)
	var seen []schemas.AgentSnapshot
	for {
		select {
		case update := <-ch:
			if update.Agent.ID != id {
				continue
			}
			seen = append(seen, update.Agent)
			if update.Agent.Status == want {
				return seen
			}
		case <-deadline:
			t.Fatalf("timed out waiting for status %q; saw %d updates", want, len(seen))
		}
	}
}

func TestCreate_RunsPlanToDone(t *testing.T) {
	tab := newFakeTab("tab-1")
	c := newTestCoordinator(t, tab, []schemas.Action{
		{Kind: schemas.ActionNavigate, URL: "https://nvidia.com"},
		{Kind: schemas.ActionScroll, Amount: 0.8},
	})

	updates, unsubscribe := c.Subscribe()
	defer unsubscribe()

	agent, err := c.Create(context.Background(), schemas.CreateAgentRequest{Goal: "open nvidia.com"})
	require.NoError(t, err)
	assert.Equal(t, schemas.AgentIdle, agent.Status)
	assert.Equal(t, "tab-1", agent.TabID)

	seen := waitForStatus(t, updates, agent.ID, schemas.AgentDone)
	final := seen[len(seen)-1]
	assert.Equal(t, 100, final.Progress)
	assert.Equal(t, 2, final.CurrentIndex)
	assert.Empty(t, final.Error)
	assert.Equal(t, []string{"https://nvidia.com"}, tab.navigated())
}

func TestBroadcast_ProgressMonotonic(t *testing.T) {
	tab := newFakeTab("tab-1")
	c := newTestCoordinator(t, tab, []schemas.Action{
		{Kind: schemas.ActionScroll},
		{Kind: schemas.ActionScroll},
		{Kind: schemas.ActionScroll},
		{Kind: schemas.ActionSummary},
	})

	updates, unsubscribe := c.Subscribe()
	defer unsubscribe()

	agent, err := c.Create(context.Background(), schemas.CreateAgentRequest{Goal: "scroll a lot"})
	require.NoError(t, err)

	seen := waitForStatus(t, updates, agent.ID, schemas.AgentDone)
	last := 0
	for _, snap := range seen {
		assert.GreaterOrEqual(t, snap.Progress, last, "progress must never decrease")
		last = snap.Progress
	}
	assert.Equal(t, 100, last)
}

func TestStepFailure_TransitionsToError(t *testing.T) {
	tab := newFakeTab("tab-1")
	c := newTestCoordinator(t, tab, []schemas.Action{
		{Kind: schemas.ActionClick, Text: "button that does not exist"},
		{Kind: schemas.ActionSubmit},
	})

	updates, unsubscribe := c.Subscribe()
	defer unsubscribe()

	agent, err := c.Create(context.Background(), schemas.CreateAgentRequest{Goal: "click the missing thing"})
	require.NoError(t, err)

	seen := waitForStatus(t, updates, agent.ID, schemas.AgentError)
	final := seen[len(seen)-1]
	assert.Contains(t, final.Error, "not found")
	assert.Equal(t, 0, final.CurrentIndex, "failed step must not advance the index")
}

func TestCancel_WhileRunning(t *testing.T) {
	tab := newFakeTab("tab-1")
	tab.gate = make(chan struct{})
	c := newTestCoordinator(t, tab, []schemas.Action{
		{Kind: schemas.ActionNavigate, URL: "https://slow.example"},
		{Kind: schemas.ActionScroll},
		{Kind: schemas.ActionScroll},
	})

	updates, unsubscribe := c.Subscribe()
	defer unsubscribe()

	agent, err := c.Create(context.Background(), schemas.CreateAgentRequest{Goal: "long plan"})
	require.NoError(t, err)
	waitForStatus(t, updates, agent.ID, schemas.AgentRunning)

	// Cancel while the first navigation is still in flight, then let it
	// finish. The plan must stop at the next step boundary.
	require.NoError(t, c.Cancel(agent.ID))
	close(tab.gate)

	seen := waitForStatus(t, updates, agent.ID, schemas.AgentCanceled)
	final := seen[len(seen)-1]
	assert.True(t, final.Canceled)
	assert.NotEqual(t, schemas.AgentDone, final.Status)
	assert.Less(t, final.CurrentIndex, 3, "remaining steps must not run")
}

func TestCancel_UnknownAgent(t *testing.T) {
	c := newTestCoordinator(t, newFakeTab("tab-1"), nil)
	assert.Error(t, c.Cancel("no-such-agent"))
}

func TestCreate_RejectsEmptyGoal(t *testing.T) {
	c := newTestCoordinator(t, newFakeTab("tab-1"), nil)
	_, err := c.Create(context.Background(), schemas.CreateAgentRequest{Goal: "   "})
	assert.Error(t, err)
}

func TestListAndGet(t *testing.T) {
	tab := newFakeTab("tab-1")
	c := newTestCoordinator(t, tab, []schemas.Action{{Kind: schemas.ActionScroll}})

	updates, unsubscribe := c.Subscribe()
	defer unsubscribe()

	first, err := c.Create(context.Background(), schemas.CreateAgentRequest{Goal: "goal one"})
	require.NoError(t, err)
	second, err := c.Create(context.Background(), schemas.CreateAgentRequest{Goal: "goal two"})
	require.NoError(t, err)

	waitForStatus(t, updates, first.ID, schemas.AgentDone)
	waitForStatus(t, updates, second.ID, schemas.AgentDone)

	listed := c.List()
	require.Len(t, listed, 2)
	assert.Equal(t, "goal one", listed[0].Goal)
	assert.Equal(t, "goal two", listed[1].Goal)

	got, ok := c.Get(first.ID)
	require.True(t, ok)
	assert.Equal(t, first.ID, got.ID)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestURLHint_PrependsNavigate(t *testing.T) {
	tab := newFakeTab("tab-1")
	c := newTestCoordinator(t, tab, []schemas.Action{{Kind: schemas.ActionSummary}})

	updates, unsubscribe := c.Subscribe()
	defer unsubscribe()

	agent, err := c.Create(context.Background(), schemas.CreateAgentRequest{
		Goal:    "summarize the docs",
		URLHint: "https://docs.example",
	})
	require.NoError(t, err)
	require.Len(t, agent.Actions, 2)
	assert.Equal(t, schemas.ActionNavigate, agent.Actions[0].Kind)
	assert.Equal(t, "https://docs.example", agent.Actions[0].URL)

	waitForStatus(t, updates, agent.ID, schemas.AgentDone)
	assert.Equal(t, []string{"https://docs.example"}, tab.navigated())
}

func TestSnapshot_IsACopy(t *testing.T) {
	tab := newFakeTab("tab-1")
	c := newTestCoordinator(t, tab, []schemas.Action{{Kind: schemas.ActionScroll}})

	updates, unsubscribe := c.Subscribe()
	defer unsubscribe()

	agent, err := c.Create(context.Background(), schemas.CreateAgentRequest{Goal: "scroll"})
	require.NoError(t, err)

	// Mutating a received snapshot must not affect coordinator state.
	agent.Logs[0] = "tampered"
	agent.Actions[0].Kind = schemas.ActionSubmit

	waitForStatus(t, updates, agent.ID, schemas.AgentDone)
	stored, ok := c.Get(agent.ID)
	require.True(t, ok)
	assert.NotEqual(t, "tampered", stored.Logs[0])
	assert.Equal(t, schemas.ActionScroll, stored.Actions[0].Kind)
}
