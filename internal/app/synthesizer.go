package app

import (
	"context"
	"strings"

	"pdfchat/internal/ai"
	"pdfchat/internal/model"
	"pdfchat/internal/vectorindex"
)

const groundingPrompt = "You are a helpful assistant. Answer the user's question based only on the following context. If the context does not contain enough information, say so. Do not make up facts."

// Generator is the slice of the chat client the synthesizer needs.
type Generator interface {
	Complete(ctx context.Context, messages []ai.ChatMessage) (string, error)
}

// Answer is a synthesized reply plus the sources it is grounded on.
type Answer struct {
	Text    string
	Sources []model.SourceRef
}

// Synthesizer builds the generation request from the retrieved chunks, the
// prior conversation, and the question. Sources are the full retrieved set
// deduplicated by document and page, in retrieval order; a source outside
// the retrieved set can never appear.
type Synthesizer struct {
	generator       Generator
	maxContextTurns int
}

func NewSynthesizer(generator Generator, maxContextTurns int) *Synthesizer {
	if maxContextTurns <= 0 {
		maxContextTurns = 20
	}
	return &Synthesizer{generator: generator, maxContextTurns: maxContextTurns}
}

func (s *Synthesizer) Synthesize(ctx context.Context, question string, matches []vectorindex.Match, history []model.ConversationTurn) (*Answer, error) {
	messages := make([]ai.ChatMessage, 0, len(history)+2)
	messages = append(messages, ai.ChatMessage{Role: "system", Content: groundingPrompt})

	if len(history) > s.maxContextTurns {
		history = history[len(history)-s.maxContextTurns:]
	}
	for _, turn := range history {
		messages = append(messages, ai.ChatMessage{Role: turn.Role, Content: turn.Content})
	}

	messages = append(messages, ai.ChatMessage{
		Role:    "user",
		Content: "Context:" + contextBlock(matches) + "\n\nQuestion: " + question + "\n\nAnswer:",
	})

	text, err := s.generator.Complete(ctx, messages)
	if err != nil {
		return nil, err
	}

	return &Answer{
		Text:    strings.TrimSpace(text),
		Sources: dedupeSources(matches),
	}, nil
}

func contextBlock(matches []vectorindex.Match) string {
	if len(matches) == 0 {
		return " (no relevant documents found)"
	}
	var sb strings.Builder
	for _, m := range matches {
		sb.WriteString("\n---\n")
		sb.WriteString(m.Content)
	}
	sb.WriteString("\n---")
	return sb.String()
}

func dedupeSources(matches []vectorindex.Match) []model.SourceRef {
	var refs []model.SourceRef
	seen := make(map[model.SourceRef]bool)
	for _, m := range matches {
		for page := m.PageStart; page <= m.PageEnd; page++ {
			ref := model.SourceRef{Source: m.Source, Page: page}
			if seen[ref] {
				continue
			}
			seen[ref] = true
			refs = append(refs, ref)
		}
	}
	return refs
}
