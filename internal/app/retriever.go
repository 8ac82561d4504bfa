package app

import (
	"context"

	"pdfchat/internal/vectorindex"
)

// QueryEmbedder is the slice of the embedding gateway the retriever needs.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Retriever embeds a question and pulls the k most similar chunks from the
// vector index.
type Retriever struct {
	embedder    QueryEmbedder
	index       vectorindex.Index
	defaultTopK int
}

func NewRetriever(embedder QueryEmbedder, index vectorindex.Index, defaultTopK int) *Retriever {
	if defaultTopK <= 0 {
		defaultTopK = 4
	}
	return &Retriever{embedder: embedder, index: index, defaultTopK: defaultTopK}
}

// Retrieve returns the topK best matches; topK <= 0 selects the configured
// default. An empty result is not an error.
func (r *Retriever) Retrieve(ctx context.Context, question string, topK int) ([]vectorindex.Match, error) {
	if topK <= 0 {
		topK = r.defaultTopK
	}
	vector, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, err
	}
	return r.index.Query(ctx, vector, topK, nil)
}
