package ai

import (
	"context"
	"fmt"
)

// Gateway batches embedding requests so a single call never exceeds the
// provider's payload limits.
type Gateway struct {
	client    *OpenAICompatibleClient
	cfg       EmbeddingConfig
	batchSize int
}

func NewGateway(client *OpenAICompatibleClient, cfg EmbeddingConfig, batchSize int) *Gateway {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Gateway{client: client, cfg: cfg, batchSize: batchSize}
}

// EmbedTexts embeds all texts, preserving input order. Aborts on the first
// failed batch so callers never persist a partial result.
func (g *Gateway) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += g.batchSize {
		end := i + g.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := g.client.EmbedBatch(ctx, g.cfg, texts[i:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: embedding count mismatch", ErrEmbeddingFailed)
	}
	return vectors, nil
}

// EmbedQuery embeds a single query string.
func (g *Gateway) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return g.client.Embed(ctx, g.cfg, text)
}
