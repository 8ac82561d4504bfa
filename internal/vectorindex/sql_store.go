package vectorindex

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pdfchat/internal/model"
)

// SQLStore keeps documents and chunks in MySQL through GORM. Similarity is
// computed in-process over the candidate chunks; the per-document row lock
// inside Upsert serializes concurrent re-ingestions of the same source.
type SQLStore struct {
	db *gorm.DB
}

func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Upsert(ctx context.Context, ref DocumentRef, entries []Entry) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var doc model.Document
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("source = ?", ref.Source).
			First(&doc).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			doc = model.Document{Source: ref.Source}
			if err := tx.Create(&doc).Error; err != nil {
				return fmt.Errorf("create document failed: %w", err)
			}
		case err != nil:
			return fmt.Errorf("lock document failed: %w", err)
		}

		if err := tx.Where("document_id = ?", doc.ID).Delete(&model.Chunk{}).Error; err != nil {
			return fmt.Errorf("delete stale chunks failed: %w", err)
		}

		if len(entries) > 0 {
			chunks := make([]model.Chunk, len(entries))
			for i, e := range entries {
				chunks[i] = model.Chunk{
					DocumentID: doc.ID,
					Ordinal:    e.Ordinal,
					Content:    e.Content,
					PageStart:  e.PageStart,
					PageEnd:    e.PageEnd,
				}
				chunks[i].SetEmbedding(e.Vector)
			}
			if err := tx.Create(&chunks).Error; err != nil {
				return fmt.Errorf("insert chunks failed: %w", err)
			}
		}

		doc.ContentHash = ref.ContentHash
		doc.PageCount = ref.PageCount
		doc.ChunkCount = len(entries)
		if err := tx.Save(&doc).Error; err != nil {
			return fmt.Errorf("update document marker failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert %s: %w", ref.Source, err)
	}
	return nil
}

func (s *SQLStore) Query(ctx context.Context, vector []float32, k int, filter *Filter) ([]Match, error) {
	if err := validateK(k); err != nil {
		return nil, err
	}

	type row struct {
		model.Chunk
		Source string
	}
	q := s.db.WithContext(ctx).
		Table("chunks").
		Select("chunks.*, documents.source AS source").
		Joins("JOIN documents ON documents.id = chunks.document_id").
		Order("chunks.document_id ASC, chunks.ordinal ASC")
	if filter != nil && len(filter.Sources) > 0 {
		q = q.Where("documents.source IN ?", filter.Sources)
	}

	var rows []row
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load chunks failed: %w", err)
	}

	candidates := make([]scoredEntry, len(rows))
	for i := range rows {
		candidates[i] = scoredEntry{
			order: i,
			match: Match{
				Source:    rows[i].Source,
				Ordinal:   rows[i].Ordinal,
				Content:   rows[i].Content,
				PageStart: rows[i].PageStart,
				PageEnd:   rows[i].PageEnd,
				Score:     cosineSimilarity(vector, rows[i].EmbeddingVector()),
			},
		}
	}
	return rank(candidates, k), nil
}

func (s *SQLStore) ContentHash(ctx context.Context, source string) (string, error) {
	var doc model.Document
	err := s.db.WithContext(ctx).Where("source = ?", source).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load document failed: %w", err)
	}
	return doc.ContentHash, nil
}

func (s *SQLStore) DeleteDocument(ctx context.Context, source string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var doc model.Document
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("source = ?", source).
			First(&doc).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("lock document failed: %w", err)
		}
		if err := tx.Where("document_id = ?", doc.ID).Delete(&model.Chunk{}).Error; err != nil {
			return fmt.Errorf("delete chunks failed: %w", err)
		}
		if err := tx.Delete(&doc).Error; err != nil {
			return fmt.Errorf("delete document failed: %w", err)
		}
		return nil
	})
}

func (s *SQLStore) ListDocuments(ctx context.Context) ([]model.Document, error) {
	var docs []model.Document
	if err := s.db.WithContext(ctx).Order("source ASC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return docs, nil
}
