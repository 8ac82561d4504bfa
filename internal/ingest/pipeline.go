package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pdfchat/internal/chunker"
	"pdfchat/internal/pkg/pdfextract"
	"pdfchat/internal/vectorindex"
)

// Embedder is the slice of the embedding gateway the pipeline needs.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Failure records one document that could not be ingested. Its previous
// index entries, if any, are left intact.
type Failure struct {
	Source string `json:"source"`
	Reason string `json:"reason"`
}

type Report struct {
	DocumentsProcessed int       `json:"documents_processed"`
	ChunksWritten      int       `json:"chunks_written"`
	DocumentsSkipped   int       `json:"documents_skipped"`
	Failures           []Failure `json:"failures,omitempty"`
}

// Pipeline runs chunk -> embed -> upsert per document. Ingestion is
// idempotent: a document whose content hash matches the stored marker is
// skipped without touching the index.
type Pipeline struct {
	chunker  *chunker.Chunker
	embedder Embedder
	index    vectorindex.Index
	extract  func(io.Reader) ([]pdfextract.Page, error)
}

func NewPipeline(ch *chunker.Chunker, embedder Embedder, index vectorindex.Index) *Pipeline {
	return &Pipeline{chunker: ch, embedder: embedder, index: index, extract: pdfextract.ExtractPages}
}

// Run ingests every PDF under dir. A failing document is recorded in the
// report and does not stop the rest of the batch.
func (p *Pipeline) Run(ctx context.Context, dir string) (*Report, error) {
	sources, err := collectPDFs(dir)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		f, err := os.Open(filepath.Join(dir, source))
		if err != nil {
			report.Failures = append(report.Failures, Failure{Source: source, Reason: err.Error()})
			continue
		}
		written, skipped, err := p.IngestFile(ctx, source, f)
		_ = f.Close()
		if err != nil {
			log.Printf("ingest %s failed: %v", source, err)
			report.Failures = append(report.Failures, Failure{Source: source, Reason: err.Error()})
			continue
		}
		if skipped {
			report.DocumentsSkipped++
			continue
		}
		report.DocumentsProcessed++
		report.ChunksWritten += written
	}
	return report, nil
}

// IngestFile ingests a single PDF. It returns the number of chunks written
// and whether the document was skipped as unchanged.
func (p *Pipeline) IngestFile(ctx context.Context, source string, r io.Reader) (written int, skipped bool, err error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return 0, false, fmt.Errorf("read %s failed: %w", source, err)
	}

	hash := contentHash(raw)
	stored, err := p.index.ContentHash(ctx, source)
	if err != nil {
		return 0, false, err
	}
	if stored == hash {
		return 0, true, nil
	}

	pages, err := p.extract(bytes.NewReader(raw))
	if err != nil {
		return 0, false, fmt.Errorf("extract %s failed: %w", source, err)
	}
	spans := make([]chunker.PageSpan, len(pages))
	for i, page := range pages {
		spans[i] = chunker.PageSpan{Page: page.Number, Text: page.Text}
	}

	pieces := p.chunker.Split(spans)
	if len(pieces) == 0 {
		return 0, false, fmt.Errorf("%s contains no extractable text", source)
	}

	texts := make([]string, len(pieces))
	for i, piece := range pieces {
		texts[i] = piece.Content
	}
	vectors, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return 0, false, err
	}

	entries := make([]vectorindex.Entry, len(pieces))
	for i, piece := range pieces {
		entries[i] = vectorindex.Entry{
			Ordinal:   piece.Ordinal,
			Content:   piece.Content,
			PageStart: piece.PageStart,
			PageEnd:   piece.PageEnd,
			Vector:    vectors[i],
		}
	}

	ref := vectorindex.DocumentRef{Source: source, ContentHash: hash, PageCount: len(pages)}
	if err := p.index.Upsert(ctx, ref, entries); err != nil {
		return 0, false, err
	}
	return len(entries), false, nil
}

func collectPDFs(dir string) ([]string, error) {
	var sources []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".pdf") {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		sources = append(sources, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s failed: %w", dir, err)
	}
	sort.Strings(sources)
	return sources, nil
}

func contentHash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
