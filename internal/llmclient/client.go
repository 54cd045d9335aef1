// internal/llmclient/client.go
package llmclient

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/hexblade/pagepilot/internal/config"
)

// Completer is the opaque text-completion collaborator. Implementations
// return the full completed text for a system/user prompt pair.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Fragment is one piece of an incrementally delivered completion. Final marks
// the terminal fragment; its Text may be empty.
type Fragment struct {
	Text  string
	Final bool
}

// ChunkedCompleter is implemented by services that deliver completions as a
// fragment stream instead of a single string. Callers must drain the channel;
// it is closed after the final fragment.
type ChunkedCompleter interface {
	CompleteChunks(ctx context.Context, system, user string) (<-chan Fragment, error)
}

// Collect drains a fragment stream into the assembled completion. It returns
// early on context cancellation.
func Collect(ctx context.Context, fragments <-chan Fragment) (string, error) {
	var sb strings.Builder
	for {
		select {
		case frag, ok := <-fragments:
			if !ok {
				return sb.String(), nil
			}
			sb.WriteString(frag.Text)
			if frag.Final {
				return sb.String(), nil
			}
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// CompleteAny runs a completer in whichever delivery mode it supports,
// preferring the chunked mode when available.
func CompleteAny(ctx context.Context, c Completer, system, user string) (string, error) {
	if chunked, ok := c.(ChunkedCompleter); ok {
		fragments, err := chunked.CompleteChunks(ctx, system, user)
		if err != nil {
			return "", err
		}
		return Collect(ctx, fragments)
	}
	return c.Complete(ctx, system, user)
}

// NewFromConfig builds the configured completion client. A missing API key is
// not an error: it returns nil, and callers plan without the service.
func NewFromConfig(cfg config.LLMConfig, logger *zap.Logger) Completer {
	if cfg.APIKey == "" {
		logger.Info("No completion API key configured; rule-based planning only.")
		return nil
	}
	return NewGeminiClient(cfg, logger)
}
