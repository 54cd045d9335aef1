// cmd/assist.go
package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hexblade/pagepilot/api/schemas"
	"github.com/hexblade/pagepilot/internal/executor"
	"github.com/hexblade/pagepilot/internal/intent"
	"github.com/hexblade/pagepilot/internal/observability"
)

var assistTimeout time.Duration

// assistCmd runs a single command or goal against a fresh tab and waits for
// the outcome.
var assistCmd = &cobra.Command{
	Use:   "assist [text]",
	Short: "Run one command or goal against a fresh browser tab.",
	Long: `Runs the given text as a browsing instruction. Short literal commands
("scroll down", "open https://...", "click submit", "fill city=Lisbon") are
executed directly; anything else is planned as a multi-step goal and run by
an agent until it finishes.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := observability.GetLogger()
		application := newApp(appCfg, logger)
		defer application.shutdown()

		ctx, cancel := context.WithTimeout(cmd.Context(), assistTimeout)
		defer cancel()

		text := strings.Join(args, " ")
		if parsed, ok := intent.Parse(text); ok {
			return runIntent(ctx, application, parsed)
		}
		return runGoal(ctx, application, text)
	},
}

func init() {
	assistCmd.Flags().DurationVar(&assistTimeout, "timeout", 5*time.Minute, "overall time budget for the instruction")
	rootCmd.AddCommand(assistCmd)
}

// runIntent executes one parsed command directly, without an agent.
func runIntent(ctx context.Context, a *app, parsed schemas.Intent) error {
	tab, err := a.browser.NewTab(ctx)
	if err != nil {
		return err
	}
	defer tab.Close()
	exec := executor.New(tab, a.scanner, a.logger, a.cfg.Agent.ActionRetries)

	action, err := actionForIntent(a, parsed)
	if err != nil {
		return err
	}
	result := exec.Execute(ctx, action)
	if !result.OK {
		return fmt.Errorf("command failed: %s", result.Result)
	}
	if result.Result != "" {
		fmt.Println(result.Result)
	}
	a.logger.Info("Command complete.", zap.String("kind", string(parsed.Kind)))
	return nil
}

// actionForIntent maps a parsed intent onto a single executable action.
func actionForIntent(a *app, parsed schemas.Intent) (schemas.Action, error) {
	switch parsed.Kind {
	case schemas.IntentScroll:
		amount := parsed.Amount
		if parsed.Direction == "up" {
			amount = -amount
		}
		return schemas.Action{Kind: schemas.ActionScroll, Amount: amount}, nil
	case schemas.IntentOpenURL:
		return schemas.Action{Kind: schemas.ActionNavigate, URL: parsed.URL}, nil
	case schemas.IntentSearchWeb:
		return schemas.Action{Kind: schemas.ActionNavigate, URL: a.planner.SearchURL(parsed.Query)}, nil
	case schemas.IntentSummary:
		return schemas.Action{Kind: schemas.ActionSummary}, nil
	case schemas.IntentClickLabel:
		return schemas.Action{Kind: schemas.ActionClick, Text: parsed.Label}, nil
	case schemas.IntentFillField:
		return schemas.Action{Kind: schemas.ActionTypeText, Label: parsed.Label, Value: parsed.Value}, nil
	default:
		return schemas.Action{}, fmt.Errorf("unsupported intent kind %q", parsed.Kind)
	}
}

// runGoal submits the goal as an agent and waits for a terminal state.
func runGoal(ctx context.Context, a *app, goal string) error {
	updates, unsubscribe := a.coord.Subscribe()
	defer unsubscribe()

	agent, err := a.coord.Create(ctx, schemas.CreateAgentRequest{Goal: goal})
	if err != nil {
		return err
	}
	fmt.Printf("Agent %s: %d step(s) planned\n", agent.ID, len(agent.Actions))

	return watchAgent(ctx, a, updates, agent.ID)
}

// watchAgent prints progress updates for one agent until it terminates.
func watchAgent(ctx context.Context, a *app, updates <-chan schemas.AgentUpdate, id string) error {
	lastLog := 0
	for {
		select {
		case <-ctx.Done():
			if err := a.coord.Cancel(id); err != nil {
				a.logger.Warn("Failed to cancel agent on timeout.", zap.Error(err))
			}
			return fmt.Errorf("timed out waiting for agent: %w", ctx.Err())
		case update, ok := <-updates:
			if !ok {
				return fmt.Errorf("update stream closed before the agent finished")
			}
			if update.Agent.ID != id {
				continue
			}
			for ; lastLog < len(update.Agent.Logs); lastLog++ {
				fmt.Println(update.Agent.Logs[lastLog])
			}
			if update.Agent.Status.Terminal() {
				if update.Agent.Status != schemas.AgentDone {
					return fmt.Errorf("agent finished with status %s: %s", update.Agent.Status, update.Agent.Error)
				}
				fmt.Println("Done.")
				return nil
			}
		}
	}
}
