// internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hexblade/pagepilot/internal/config"
)

const shutdownGracePeriod = 15 * time.Second

// Manager owns the browser process lifecycle and tab creation. The browser
// launch is deferred until the first tab is requested.
type Manager struct {
	logger *zap.Logger
	cfg    *config.Config

	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	tabs map[string]*Tab
	mu   sync.RWMutex
	wg   sync.WaitGroup

	initOnce sync.Once
	initErr  error
}

// NewManager creates a browser manager. No browser process is started yet.
func NewManager(cfg *config.Config, logger *zap.Logger) *Manager {
	m := &Manager{
		logger: logger.Named("browser_manager"),
		cfg:    cfg,
		tabs:   make(map[string]*Tab),
	}
	m.logger.Info("Browser manager created (launch deferred).")
	return m
}

// initialize launches the browser process once.
func (m *Manager) initialize(ctx context.Context) error {
	m.initOnce.Do(func() {
		m.logger.Info("Launching browser...",
			zap.Bool("headless", m.cfg.Browser.Headless),
		)

		opts := m.prepareAllocatorOptions()
		m.allocCtx, m.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
		m.browserCtx, m.browserCancel = chromedp.NewContext(m.allocCtx)

		// Force the browser process to start now so a broken installation
		// surfaces here instead of on the first agent step.
		launchCtx, cancel := context.WithTimeout(m.browserCtx, time.Minute)
		defer cancel()
		if err := chromedp.Run(launchCtx); err != nil {
			m.initErr = fmt.Errorf("failed to launch browser: %w", err)
			m.allocCancel()
			return
		}
		m.logger.Info("Browser launched.")
	})
	return m.initErr
}

func (m *Manager) prepareAllocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if !m.cfg.Browser.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if m.cfg.Browser.IgnoreTLSErrors {
		opts = append(opts, chromedp.Flag("ignore-certificate-errors", true))
	}
	// Stability flags for containerized environments.
	opts = append(opts,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	for _, arg := range m.cfg.Browser.Args {
		opts = append(opts, chromedp.Flag(arg, true))
	}
	return opts
}

// NewTab opens a fresh tab and returns its page-bound handle.
func (m *Manager) NewTab(ctx context.Context) (*Tab, error) {
	if err := m.initialize(ctx); err != nil {
		return nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(m.browserCtx)

	// Auto-dismiss alert/confirm/prompt dialogs so an agent stepping through
	// a plan never blocks on one.
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if _, ok := ev.(*cdppage.EventJavascriptDialogOpening); ok {
			go func() {
				if err := chromedp.Run(tabCtx, cdppage.HandleJavaScriptDialog(true)); err != nil {
					m.logger.Debug("Failed to dismiss page dialog.", zap.Error(err))
				}
			}()
		}
	})

	width := m.cfg.Browser.Viewport["width"]
	height := m.cfg.Browser.Viewport["height"]
	if width > 0 && height > 0 {
		if err := chromedp.Run(tabCtx, chromedp.EmulateViewport(int64(width), int64(height))); err != nil {
			tabCancel()
			return nil, fmt.Errorf("failed to prepare tab viewport: %w", err)
		}
	}

	tab := &Tab{
		id:        uuid.New().String(),
		ctx:       tabCtx,
		cancel:    tabCancel,
		logger:    m.logger.Named("tab"),
		loadLimit: m.cfg.Browser.LoadTimeout,
		loadPoll:  m.cfg.Browser.LoadPollEvery,
	}
	tab.logger = tab.logger.With(zap.String("tab_id", tab.id))

	m.wg.Add(1)
	tab.onClose = func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.tabs, tab.id)
		m.wg.Done()
		m.logger.Debug("Tab removed from manager.", zap.String("tab_id", tab.id))
	}

	m.mu.Lock()
	m.tabs[tab.id] = tab
	m.mu.Unlock()

	m.logger.Info("New tab created.", zap.String("tab_id", tab.id))
	return tab, nil
}

// Tab returns a registered tab by id.
func (m *Manager) Tab(id string) (*Tab, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tab, ok := m.tabs[id]
	return tab, ok
}

// Shutdown closes all tabs and the browser process.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Shutting down browser manager.")
	if m.browserCtx == nil {
		m.logger.Info("Manager never launched a browser, nothing to shut down.")
		return nil
	}

	m.mu.RLock()
	tabsToClose := make([]*Tab, 0, len(m.tabs))
	for _, t := range m.tabs {
		tabsToClose = append(tabsToClose, t)
	}
	m.mu.RUnlock()

	for _, t := range tabsToClose {
		t.Close()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("All tabs closed.")
	case <-ctx.Done():
		m.logger.Warn("Timeout waiting for tabs to close, proceeding.", zap.Error(ctx.Err()))
	case <-time.After(shutdownGracePeriod):
		m.logger.Warn("Grace period elapsed waiting for tabs to close, proceeding.")
	}

	m.browserCancel()
	m.allocCancel()
	m.logger.Info("Browser manager shutdown complete.")
	return nil
}
