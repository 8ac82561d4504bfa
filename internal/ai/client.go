package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type OpenAICompatibleClient struct {
	httpClient *http.Client
	maxRetries int
	retryBase  time.Duration
}

func NewOpenAICompatibleClient(maxRetries int) *OpenAICompatibleClient {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &OpenAICompatibleClient{
		httpClient: &http.Client{},
		maxRetries: maxRetries,
		retryBase:  200 * time.Millisecond,
	}
}

// Complete performs a non-streaming chat completion. Transient provider
// failures are retried; exhaustion surfaces ErrGenerationFailed.
func (c *OpenAICompatibleClient) Complete(ctx context.Context, cfg ChatConfig, messages []ChatMessage) (string, error) {
	reqBody := map[string]interface{}{
		"model":    cfg.Model,
		"messages": messages,
		"stream":   false,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal llm request failed: %w", err)
	}

	url := strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions"
	raw, err := c.doWithRetry(ctx, url, cfg.APIKey, bodyBytes, cfg.Timeout)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%w: parse llm json failed: %w", ErrGenerationFailed, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: empty llm choices", ErrGenerationFailed)
	}
	return parsed.Choices[0].Message.Content, nil
}

// doWithRetry posts the payload and retries transient failures with
// exponential backoff, honoring a Retry-After hint on rate limits. The
// returned error wraps ErrProviderUnavailable or ErrProviderRateLimited for
// the transient classes; non-transient provider responses come back as-is.
func (c *OpenAICompatibleClient) doWithRetry(ctx context.Context, url, apiKey string, body []byte, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, c.delayFor(lastErr, attempt-1)); err != nil {
				return nil, err
			}
		}

		raw, err := c.doOnce(ctx, url, apiKey, body, timeout)
		if err == nil {
			return raw, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !isTransient(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *OpenAICompatibleClient) doOnce(ctx context.Context, url, apiKey string, body []byte, timeout time.Duration) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build provider request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read provider response failed: %w", ErrProviderUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &rateLimitError{retryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	case resp.StatusCode >= 500,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: provider status %d", ErrProviderUnavailable, resp.StatusCode)
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("provider status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}

func (c *OpenAICompatibleClient) delayFor(lastErr error, attempt int) time.Duration {
	var rl *rateLimitError
	if asRateLimit(lastErr, &rl) && rl.retryAfter > 0 {
		return rl.retryAfter
	}
	return retryDelay(c.retryBase, attempt)
}
