package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// EmbeddingConfig holds API settings for text-embedding (OpenAI-compatible).
type EmbeddingConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Embed returns the embedding vector for a single text.
func (c *OpenAICompatibleClient) Embed(ctx context.Context, cfg EmbeddingConfig, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, cfg, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch returns embeddings for multiple texts, in input order. Transient
// provider failures are retried; exhaustion surfaces ErrEmbeddingFailed and
// no vectors are returned.
func (c *OpenAICompatibleClient) EmbedBatch(ctx context.Context, cfg EmbeddingConfig, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("%w: embedding input is empty", ErrEmbeddingFailed)
		}
	}

	reqBody := map[string]interface{}{
		"model": cfg.Model,
		"input": texts,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request failed: %w", err)
	}

	url := strings.TrimRight(cfg.BaseURL, "/") + "/embeddings"
	raw, err := c.doWithRetry(ctx, url, cfg.APIKey, bodyBytes, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}

	var parsed struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: parse embedding json failed: %w", ErrEmbeddingFailed, err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", ErrEmbeddingFailed, len(parsed.Data), len(texts))
	}

	result := make([][]float32, len(parsed.Data))
	for i := range parsed.Data {
		if len(parsed.Data[i].Embedding) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at index %d", ErrEmbeddingFailed, i)
		}
		result[i] = parsed.Data[i].Embedding
	}
	return result, nil
}
