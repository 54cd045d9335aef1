// internal/llmclient/gemini.go
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hexblade/pagepilot/internal/config"
)

// GeminiClient implements Completer against the Gemini generateContent API.
type GeminiClient struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
	cfg        config.LLMConfig
}

// -- Gemini wire structures (internal to this file) --

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiSystemInstruction struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequestPayload struct {
	Contents          []geminiContent          `json:"contents"`
	SystemInstruction *geminiSystemInstruction `json:"system_instruction,omitempty"`
	GenerationConfig  geminiGenerationConfig   `json:"generationConfig,omitempty"`
}

type geminiResponsePayload struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// NewGeminiClient initializes the client from config.
func NewGeminiClient(cfg config.LLMConfig, logger *zap.Logger) *GeminiClient {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent", cfg.Model)
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 30
	}
	return &GeminiClient{
		apiKey:   cfg.APIKey,
		endpoint: endpoint,
		cfg:      cfg,
		httpClient: &http.Client{
			Timeout: cfg.APITimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
		logger:  logger.Named("llm_client.gemini"),
	}
}

// Complete sends the prompts and returns the generated text, retrying
// transient HTTP failures with exponential backoff.
func (c *GeminiClient) Complete(ctx context.Context, system, user string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	payload := geminiRequestPayload{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: user}}},
		},
		SystemInstruction: &geminiSystemInstruction{Parts: []geminiPart{{Text: system}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     c.cfg.Temperature,
			MaxOutputTokens: c.cfg.MaxTokens,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 90 * time.Second
	b.MaxInterval = 15 * time.Second

	var responseContent string
	operation := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create HTTP request: %w", err))
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-goog-api-key", c.apiKey)

		start := time.Now()
		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			c.logger.Warn("Network error during completion request, retrying...", zap.Error(err))
			return fmt.Errorf("failed to execute HTTP request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return c.handleAPIError(resp.StatusCode, respBody)
		}

		var parsed geminiResponsePayload
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response payload: %w", err))
		}
		if len(parsed.Candidates) == 0 {
			return backoff.Permanent(fmt.Errorf("completion API returned no candidates"))
		}
		candidate := parsed.Candidates[0]
		if len(candidate.Content.Parts) == 0 {
			return backoff.Permanent(fmt.Errorf("completion API returned empty content (reason: %s)", candidate.FinishReason))
		}

		c.logger.Debug("Completion finished",
			zap.Duration("duration", time.Since(start)),
			zap.Int("total_tokens", parsed.UsageMetadata.TotalTokenCount),
		)
		responseContent = candidate.Content.Parts[0].Text
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return "", err
	}
	return responseContent, nil
}

func (c *GeminiClient) handleAPIError(statusCode int, body []byte) error {
	err := fmt.Errorf("completion API error: status %d, body: %s", statusCode, string(body))
	switch statusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusInternalServerError:
		return err // Transient, retry.
	default:
		return backoff.Permanent(err)
	}
}
