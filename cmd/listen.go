// cmd/listen.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hexblade/pagepilot/api/schemas"
	"github.com/hexblade/pagepilot/internal/executor"
	"github.com/hexblade/pagepilot/internal/intent"
	"github.com/hexblade/pagepilot/internal/observability"
	"github.com/hexblade/pagepilot/internal/voice"
)

const audioChunkSize = 4096

// listenCmd streams audio from stdin to the transcription service and runs
// each finalized transcript as a spoken command.
var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Drive the browser by voice; raw audio is read from stdin.",
	Long: `Reads raw audio (linear16 PCM at the configured sample rate) from stdin,
streams it to the speech-to-text service and executes each finalized
transcript the same way "assist" executes its argument. Pipe a microphone
capture in, for example:
  arecord -f S16_LE -r 16000 -c 1 -t raw | pagepilot listen`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !appCfg.Voice.Enabled && appCfg.Voice.APIKey == "" {
			return fmt.Errorf("voice is not configured; set voice.enabled and DEEPGRAM_API_KEY")
		}

		logger := observability.GetLogger()
		application := newApp(appCfg, logger)
		defer application.shutdown()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		transcriber, err := voice.NewDeepgram(appCfg.Voice, logger)
		if err != nil {
			return err
		}

		// A single long-lived tab serves every spoken command: voice control
		// steers one page the way the user's own hands would.
		tab, err := application.browser.NewTab(ctx)
		if err != nil {
			return err
		}
		defer tab.Close()
		exec := executor.New(tab, application.scanner, logger, appCfg.Agent.ActionRetries)

		dispatcher := voice.NewDispatcher(transcriber, func(ctx context.Context, text string) {
			handleSpokenCommand(ctx, application, exec, text)
		}, logger)

		go pumpAudio(ctx, os.Stdin, transcriber, logger)

		logger.Info("Listening for spoken commands.")
		if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listenCmd)
}

// pumpAudio copies stdin into the transcriber until EOF or cancellation.
func pumpAudio(ctx context.Context, r io.Reader, transcriber voice.Transcriber, logger *zap.Logger) {
	buf := make([]byte, audioChunkSize)
	for {
		if ctx.Err() != nil {
			return
		}
		n, err := r.Read(buf)
		if n > 0 {
			if sendErr := transcriber.Send(buf[:n]); sendErr != nil {
				logger.Warn("Failed to stream audio chunk.", zap.Error(sendErr))
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Warn("Audio input ended with error.", zap.Error(err))
			}
			return
		}
	}
}

// handleSpokenCommand runs one finalized transcript: literal commands execute
// directly on the shared tab, anything else becomes an agent goal.
func handleSpokenCommand(ctx context.Context, a *app, exec *executor.Executor, text string) {
	if parsed, ok := intent.Parse(text); ok {
		action, err := actionForIntent(a, parsed)
		if err != nil {
			a.logger.Warn("Unsupported spoken command.", zap.String("text", text), zap.Error(err))
			return
		}
		result := exec.Execute(ctx, action)
		if !result.OK {
			a.logger.Warn("Spoken command failed.", zap.String("text", text), zap.String("reason", result.Result))
			return
		}
		if result.Result != "" {
			fmt.Println(result.Result)
		}
		return
	}

	agent, err := a.coord.Create(ctx, schemas.CreateAgentRequest{Goal: text})
	if err != nil {
		a.logger.Warn("Failed to start agent for spoken goal.", zap.String("text", text), zap.Error(err))
		return
	}
	a.logger.Info("Spoken goal submitted.", zap.String("agent_id", agent.ID), zap.String("goal", text))
}
