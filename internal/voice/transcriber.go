// internal/voice/transcriber.go

// Package voice streams microphone audio to a speech-to-text service and
// feeds finalized transcripts into command handling.
package voice

import (
	"context"
	"io"
)

// TranscriptEvent is one recognition result. Interim events carry the
// best-so-far reading of in-progress speech and are superseded by the final
// event for the same utterance.
type TranscriptEvent struct {
	Text  string
	Final bool
}

// Transcriber is a live speech-to-text session.
type Transcriber interface {
	// Start connects the session and returns the event stream. The stream is
	// closed when the session ends.
	Start(ctx context.Context) (<-chan TranscriptEvent, error)
	// Send streams raw audio into the session.
	Send(data []byte) error
	// Stop closes the session and the event stream.
	Stop()
}

// AudioSource yields raw audio chunks, typically a microphone capture pipe.
type AudioSource interface {
	io.Reader
}
