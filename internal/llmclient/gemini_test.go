// internal/llmclient/gemini_test.go
package llmclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hexblade/pagepilot/internal/config"
)

func testLLMConfig(endpoint string) config.LLMConfig {
	return config.LLMConfig{
		Model:             "test-model",
		APIKey:            "test-key",
		Endpoint:          endpoint,
		APITimeout:        5 * time.Second,
		Temperature:       0.2,
		MaxTokens:         256,
		RequestsPerMinute: 6000, // effectively unthrottled in tests
	}
}

func geminiReply(text string) string {
	payload := map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
		},
	}
	b, _ := json.Marshal(payload)
	return string(b)
}

func TestGeminiClient_Complete(t *testing.T) {
	t.Parallel()

	var gotSystem, gotUser string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		var payload geminiRequestPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		gotSystem = payload.SystemInstruction.Parts[0].Text
		gotUser = payload.Contents[0].Parts[0].Text
		w.Write([]byte(geminiReply(`[{"action":"SUMMARY"}]`)))
	}))
	defer srv.Close()

	client := NewGeminiClient(testLLMConfig(srv.URL), zap.NewNop())
	out, err := client.Complete(context.Background(), "system prompt", "user prompt")
	require.NoError(t, err)
	assert.Equal(t, `[{"action":"SUMMARY"}]`, out)
	assert.Equal(t, "system prompt", gotSystem)
	assert.Equal(t, "user prompt", gotUser)
}

func TestGeminiClient_RetriesTransientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(geminiReply("ok")))
	}))
	defer srv.Close()

	client := NewGeminiClient(testLLMConfig(srv.URL), zap.NewNop())
	out, err := client.Complete(context.Background(), "s", "u")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestGeminiClient_PermanentErrorDoesNotRetry(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewGeminiClient(testLLMConfig(srv.URL), zap.NewNop())
	_, err := client.Complete(context.Background(), "s", "u")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNewFromConfig_NoKeyMeansNilCompleter(t *testing.T) {
	t.Parallel()

	assert.Nil(t, NewFromConfig(config.LLMConfig{}, zap.NewNop()))
	assert.NotNil(t, NewFromConfig(config.LLMConfig{APIKey: "k", Model: "m"}, zap.NewNop()))
}

// chunkedFake delivers a canned completion as fragments.
type chunkedFake struct {
	fragments []Fragment
}

func (c *chunkedFake) Complete(ctx context.Context, system, user string) (string, error) {
	fragments, err := c.CompleteChunks(ctx, system, user)
	if err != nil {
		return "", err
	}
	return Collect(ctx, fragments)
}

func (c *chunkedFake) CompleteChunks(ctx context.Context, system, user string) (<-chan Fragment, error) {
	ch := make(chan Fragment, len(c.fragments))
	for _, f := range c.fragments {
		ch <- f
	}
	close(ch)
	return ch, nil
}

func TestCompleteAny_PrefersChunkedDelivery(t *testing.T) {
	t.Parallel()

	fake := &chunkedFake{fragments: []Fragment{
		{Text: "[{\"action\":"},
		{Text: "\"SUMMARY\"}]"},
		{Final: true},
	}}
	out, err := CompleteAny(context.Background(), fake, "s", "u")
	require.NoError(t, err)
	assert.Equal(t, `[{"action":"SUMMARY"}]`, out)
}

func TestCollect_ContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ch := make(chan Fragment) // never delivers
	_, err := Collect(ctx, ch)
	assert.ErrorIs(t, err, context.Canceled)
}
