package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"

	"pdfchat/internal/model"
)

// DocumentRef identifies a document version being written to the index.
type DocumentRef struct {
	Source      string
	ContentHash string
	PageCount   int
}

// Entry is one chunk with its embedding, ready to be indexed.
type Entry struct {
	Ordinal   int
	Content   string
	PageStart int
	PageEnd   int
	Vector    []float32
}

// Match is one retrieval hit, ordered by descending similarity.
type Match struct {
	Source    string  `json:"source"`
	Ordinal   int     `json:"ordinal"`
	Content   string  `json:"content"`
	PageStart int     `json:"page_start"`
	PageEnd   int     `json:"page_end"`
	Score     float32 `json:"score"`
}

// Filter restricts a query to a subset of documents. Nil means no filter.
type Filter struct {
	Sources []string
}

// Index is the nearest-neighbor store. Upsert replaces all entries for a
// document atomically; concurrent upserts of the same document are
// serialized so the stored state always matches exactly one attempt.
type Index interface {
	Upsert(ctx context.Context, ref DocumentRef, entries []Entry) error
	Query(ctx context.Context, vector []float32, k int, filter *Filter) ([]Match, error)
	// ContentHash returns the stored version marker for the source, or ""
	// when the document has never been indexed.
	ContentHash(ctx context.Context, source string) (string, error)
	DeleteDocument(ctx context.Context, source string) error
	ListDocuments(ctx context.Context) ([]model.Document, error)
}

type scoredEntry struct {
	match Match
	order int
}

// rank scores candidates against the query vector and returns the k best,
// descending by similarity with ties broken by insertion order.
func rank(candidates []scoredEntry, k int) []Match {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].match.Score != candidates[j].match.Score {
			return candidates[i].match.Score > candidates[j].match.Score
		}
		return candidates[i].order < candidates[j].order
	})
	if k > len(candidates) {
		k = len(candidates)
	}
	matches := make([]Match, k)
	for i := 0; i < k; i++ {
		matches[i] = candidates[i].match
	}
	return matches
}

func validateK(k int) error {
	if k < 1 {
		return fmt.Errorf("top_k must be >= 1, got %d", k)
	}
	return nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA <= 0 || normB <= 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
