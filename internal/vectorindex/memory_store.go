package vectorindex

import (
	"context"
	"sort"
	"sync"
	"time"

	"pdfchat/internal/model"
)

type memDocument struct {
	id          uint
	contentHash string
	pageCount   int
	createdAt   time.Time
	entries     []Entry
}

// MemoryStore is an in-process Index with the same observable semantics as
// the SQL store. It backs tests and single-process setups; it does not
// survive restarts.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID uint
	docs   map[string]*memDocument
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]*memDocument)}
}

func (s *MemoryStore) Upsert(ctx context.Context, ref DocumentRef, entries []Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[ref.Source]
	if !ok {
		s.nextID++
		doc = &memDocument{id: s.nextID, createdAt: time.Now()}
		s.docs[ref.Source] = doc
	}
	doc.contentHash = ref.ContentHash
	doc.pageCount = ref.PageCount
	doc.entries = append([]Entry(nil), entries...)
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, vector []float32, k int, filter *Filter) ([]Match, error) {
	if err := validateK(k); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var allowed map[string]bool
	if filter != nil && len(filter.Sources) > 0 {
		allowed = make(map[string]bool, len(filter.Sources))
		for _, src := range filter.Sources {
			allowed[src] = true
		}
	}

	var candidates []scoredEntry
	for _, source := range s.sortedSources() {
		if allowed != nil && !allowed[source] {
			continue
		}
		doc := s.docs[source]
		for _, e := range doc.entries {
			candidates = append(candidates, scoredEntry{
				order: len(candidates),
				match: Match{
					Source:    source,
					Ordinal:   e.Ordinal,
					Content:   e.Content,
					PageStart: e.PageStart,
					PageEnd:   e.PageEnd,
					Score:     cosineSimilarity(vector, e.Vector),
				},
			})
		}
	}
	return rank(candidates, k), nil
}

func (s *MemoryStore) ContentHash(ctx context.Context, source string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[source]
	if !ok {
		return "", nil
	}
	return doc.contentHash, nil
}

func (s *MemoryStore) DeleteDocument(ctx context.Context, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, source)
	return nil
}

func (s *MemoryStore) ListDocuments(ctx context.Context) ([]model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]model.Document, 0, len(s.docs))
	for _, source := range s.sortedSources() {
		doc := s.docs[source]
		docs = append(docs, model.Document{
			ID:          doc.id,
			Source:      source,
			ContentHash: doc.contentHash,
			PageCount:   doc.pageCount,
			ChunkCount:  len(doc.entries),
			CreatedAt:   doc.createdAt,
		})
	}
	return docs, nil
}

// sortedSources keeps iteration order deterministic; callers hold the lock.
func (s *MemoryStore) sortedSources() []string {
	sources := make([]string, 0, len(s.docs))
	for source := range s.docs {
		sources = append(sources, source)
	}
	sort.Slice(sources, func(i, j int) bool {
		return s.docs[sources[i]].id < s.docs[sources[j]].id
	})
	return sources
}
