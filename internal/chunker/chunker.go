package chunker

import "strings"

// PageSpan is the extracted text of one document page. Page is 1-based.
type PageSpan struct {
	Page int
	Text string
}

// Piece is one unsaved chunk: a bounded run of tokens with the page range it
// spans, kept for later citation.
type Piece struct {
	Ordinal   int
	Content   string
	PageStart int
	PageEnd   int
}

// Chunker splits page text into overlapping token-bounded pieces. Splitting
// is a pure function of the input and configuration, which re-ingestion
// relies on when comparing against previously indexed content.
type Chunker struct {
	size    int
	overlap int
}

func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split tokenizes the pages on whitespace and emits pieces of at most size
// tokens, consecutive pieces sharing overlap tokens. A piece crossing a page
// cut records both pages in its range.
func (c *Chunker) Split(pages []PageSpan) []Piece {
	tokens, tokenPages := flatten(pages)
	if len(tokens) == 0 {
		return nil
	}

	var pieces []Piece
	step := c.size - c.overlap
	for i, ordinal := 0, 0; i < len(tokens); ordinal++ {
		end := i + c.size
		if end > len(tokens) {
			end = len(tokens)
		}
		pieces = append(pieces, Piece{
			Ordinal:   ordinal,
			Content:   strings.Join(tokens[i:end], " "),
			PageStart: tokenPages[i],
			PageEnd:   tokenPages[end-1],
		})
		if end == len(tokens) {
			break
		}
		i += step
	}
	return pieces
}

func flatten(pages []PageSpan) ([]string, []int) {
	var tokens []string
	var tokenPages []int
	for _, p := range pages {
		for _, tok := range strings.Fields(p.Text) {
			tokens = append(tokens, tok)
			tokenPages = append(tokenPages, p.Page)
		}
	}
	return tokens, tokenPages
}
