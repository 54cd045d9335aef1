// cmd/app.go
package cmd

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hexblade/pagepilot/internal/browser"
	"github.com/hexblade/pagepilot/internal/config"
	"github.com/hexblade/pagepilot/internal/coordinator"
	"github.com/hexblade/pagepilot/internal/llmclient"
	"github.com/hexblade/pagepilot/internal/page"
	"github.com/hexblade/pagepilot/internal/planner"
)

// app bundles the wired collaborators shared by the subcommands.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	browser *browser.Manager
	scanner *page.Scanner
	planner *planner.Planner
	coord   *coordinator.Coordinator
}

// newApp wires the full stack from configuration. The browser process is not
// launched until the first tab is needed.
func newApp(cfg *config.Config, logger *zap.Logger) *app {
	manager := browser.NewManager(cfg, logger)
	scanner := page.NewScanner(logger)
	completer := llmclient.NewFromConfig(cfg.Planner.LLM, logger)
	plan := planner.New(cfg.Planner.SearchURL, completer, logger)

	coord := coordinator.New(coordinator.Options{
		Tabs: coordinator.TabFactoryFunc(func(ctx context.Context) (coordinator.Tab, error) {
			return manager.NewTab(ctx)
		}),
		Planner:         plan,
		Scanner:         scanner,
		Logger:          logger,
		MaxConcurrent:   cfg.Agent.MaxConcurrent,
		ActionRetries:   cfg.Agent.ActionRetries,
		BroadcastBuffer: cfg.Agent.BroadcastBuffer,
	})

	return &app{
		cfg:     cfg,
		logger:  logger,
		browser: manager,
		scanner: scanner,
		planner: plan,
		coord:   coord,
	}
}

// shutdown tears the stack down, coordinator first so no agent touches a
// closing tab.
func (a *app) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.coord.Shutdown(ctx); err != nil {
		a.logger.Warn("Coordinator shutdown incomplete.", zap.Error(err))
	}
	if err := a.browser.Shutdown(ctx); err != nil {
		a.logger.Warn("Browser shutdown incomplete.", zap.Error(err))
	}
}
