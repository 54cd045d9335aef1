// internal/voice/dispatcher.go
package voice

import (
	"context"

	"go.uber.org/zap"
)

// CommandFunc handles one finalized spoken command.
type CommandFunc func(ctx context.Context, text string)

// Dispatcher pumps a transcriber's event stream and hands finalized
// transcripts to the command handler. Interim results are ignored: acting on
// speech that may still be revised would fire commands the user never said.
type Dispatcher struct {
	transcriber Transcriber
	handle      CommandFunc
	logger      *zap.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(transcriber Transcriber, handle CommandFunc, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		transcriber: transcriber,
		handle:      handle,
		logger:      logger.Named("voice_dispatcher"),
	}
}

// Run starts the transcriber and dispatches until the stream closes or ctx
// is canceled. The transcriber is stopped before returning.
func (d *Dispatcher) Run(ctx context.Context) error {
	events, err := d.transcriber.Start(ctx)
	if err != nil {
		return err
	}
	defer d.transcriber.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !ev.Final {
				continue
			}
			d.logger.Info("Spoken command.", zap.String("text", ev.Text))
			d.handle(ctx, ev.Text)
		}
	}
}
