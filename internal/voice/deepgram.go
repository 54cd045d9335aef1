// internal/voice/deepgram.go
package voice

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces"
	"github.com/deepgram/deepgram-go-sdk/pkg/client/listen"
	"go.uber.org/zap"

	"github.com/hexblade/pagepilot/internal/config"
)

const eventBuffer = 32

// DeepgramTranscriber streams audio to Deepgram's live transcription
// WebSocket and republishes results as TranscriptEvents.
type DeepgramTranscriber struct {
	cfg    config.VoiceConfig
	logger *zap.Logger

	client   *listen.WSCallback
	callback *deepgramCallback
	stopOnce sync.Once
}

var _ Transcriber = (*DeepgramTranscriber)(nil)

// NewDeepgram creates a transcriber. The API key is required.
func NewDeepgram(cfg config.VoiceConfig, logger *zap.Logger) (*DeepgramTranscriber, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("voice transcription requires an API key")
	}
	named := logger.Named("voice")
	return &DeepgramTranscriber{
		cfg:    cfg,
		logger: named,
		callback: &deepgramCallback{
			events: make(chan TranscriptEvent, eventBuffer),
			logger: named,
		},
	}, nil
}

// Start connects the live transcription session.
func (d *DeepgramTranscriber) Start(ctx context.Context) (<-chan TranscriptEvent, error) {
	transcriptOptions := &interfaces.LiveTranscriptionOptions{
		Language:       d.cfg.Language,
		Encoding:       "linear16",
		SampleRate:     d.cfg.SampleRate,
		Channels:       1,
		InterimResults: true,
		Model:          d.cfg.Model,
	}
	clientOptions := &interfaces.ClientOptions{
		EnableKeepAlive: true,
	}

	client, err := listen.NewWebSocketUsingCallback(ctx, d.cfg.APIKey, clientOptions, transcriptOptions, d.callback)
	if err != nil {
		return nil, fmt.Errorf("failed to create live transcription connection: %w", err)
	}
	if !client.Connect() {
		return nil, fmt.Errorf("failed to connect to transcription service")
	}
	d.client = client

	d.logger.Info("Live transcription started.",
		zap.String("model", d.cfg.Model),
		zap.String("language", d.cfg.Language),
	)
	return d.callback.events, nil
}

// Send streams one chunk of raw audio.
func (d *DeepgramTranscriber) Send(data []byte) error {
	if d.client == nil {
		return fmt.Errorf("transcriber not started")
	}
	reader := bufio.NewReader(bytes.NewReader(data))
	if err := d.client.Stream(reader); err != nil && err != io.EOF {
		return fmt.Errorf("failed to stream audio: %w", err)
	}
	return nil
}

// Stop ends the session and closes the event stream.
func (d *DeepgramTranscriber) Stop() {
	d.stopOnce.Do(func() {
		if d.client != nil {
			d.client.Stop()
		}
		d.callback.shutdown()
		d.logger.Info("Live transcription stopped.")
	})
}

// deepgramCallback adapts the SDK's callback interface onto the event
// channel. Events are delivered best-effort: a stalled consumer loses
// interim results, never the session. The callback owns the channel close;
// the mutex keeps a late in-flight SDK callback from sending after it.
type deepgramCallback struct {
	events chan TranscriptEvent
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

func (c *deepgramCallback) emit(ev TranscriptEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		c.logger.Debug("Dropping transcript event after stop.", zap.Bool("final", ev.Final))
		return
	}
	select {
	case c.events <- ev:
	default:
		c.logger.Debug("Dropping transcript event for slow consumer.", zap.Bool("final", ev.Final))
	}
}

func (c *deepgramCallback) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.events)
}

func (c *deepgramCallback) Open(*msginterfaces.OpenResponse) error {
	c.logger.Debug("Transcription socket opened.")
	return nil
}

func (c *deepgramCallback) Message(mr *msginterfaces.MessageResponse) error {
	if len(mr.Channel.Alternatives) == 0 {
		return nil
	}
	transcript := strings.TrimSpace(mr.Channel.Alternatives[0].Transcript)
	if transcript == "" {
		return nil
	}
	c.emit(TranscriptEvent{Text: transcript, Final: mr.IsFinal})
	return nil
}

func (c *deepgramCallback) Metadata(*msginterfaces.MetadataResponse) error { return nil }

func (c *deepgramCallback) SpeechStarted(*msginterfaces.SpeechStartedResponse) error { return nil }

func (c *deepgramCallback) UtteranceEnd(*msginterfaces.UtteranceEndResponse) error {
	c.logger.Debug("Utterance ended.")
	return nil
}

func (c *deepgramCallback) Close(*msginterfaces.CloseResponse) error {
	c.logger.Debug("Transcription socket closed.")
	return nil
}

func (c *deepgramCallback) Error(er *msginterfaces.ErrorResponse) error {
	c.logger.Warn("Transcription socket error.", zap.String("description", er.Description))
	return nil
}

func (c *deepgramCallback) UnhandledEvent(data []byte) error {
	c.logger.Debug("Unhandled transcription event.", zap.ByteString("payload", data))
	return nil
}
