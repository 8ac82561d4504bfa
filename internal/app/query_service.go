package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"pdfchat/internal/metrics"
	"pdfchat/internal/model"
	"pdfchat/internal/store"
)

const queryEndpoint = "/api/v1/query"

// HistoryTurn is one caller-supplied conversation turn.
type HistoryTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AskInput carries one question. TopK nil means the configured default; zero
// or negative values are rejected. History, when non-nil, replaces the
// stored conversation for this single request (it does not merge); stored
// history is the default when absent.
type AskInput struct {
	UserID   string
	Question string
	TopK     *int
	History  []HistoryTurn
}

type AskResult struct {
	Answer         string            `json:"answer"`
	Sources        []model.SourceRef `json:"sources"`
	ConversationID string            `json:"conversation_id"`
}

// QueryService runs a question through retrieve -> synthesize -> persist
// turns -> record metrics. Every terminal outcome, success or failure,
// produces exactly one query event; latency covers receipt to terminal
// state.
type QueryService struct {
	retriever     *Retriever
	synthesizer   *Synthesizer
	conversations store.ConversationStore
	recorder      metrics.Recorder
}

func NewQueryService(
	retriever *Retriever,
	synthesizer *Synthesizer,
	conversations store.ConversationStore,
	recorder metrics.Recorder,
) *QueryService {
	return &QueryService{
		retriever:     retriever,
		synthesizer:   synthesizer,
		conversations: conversations,
		recorder:      recorder,
	}
}

func (s *QueryService) Ask(ctx context.Context, input AskInput) (*AskResult, error) {
	start := time.Now()
	event := model.QueryEvent{
		EventID:  uuid.NewString(),
		UserID:   input.UserID,
		Question: input.Question,
		Endpoint: queryEndpoint,
	}
	if input.TopK != nil {
		event.TopK = *input.TopK
	}

	fail := func(err error) (*AskResult, error) {
		event.Success = false
		event.ErrorKind = FailureKind(err)
		event.SetSources(nil)
		event.LatencyMS = latencyMS(start)
		// Recording must survive caller cancellation.
		s.recorder.Record(context.WithoutCancel(ctx), event)
		return nil, err
	}

	question := strings.TrimSpace(input.Question)
	switch {
	case input.UserID == "":
		return fail(fmt.Errorf("%w: user id is required", ErrInvalidRequest))
	case question == "":
		return fail(fmt.Errorf("%w: question is empty", ErrInvalidRequest))
	case input.TopK != nil && *input.TopK <= 0:
		return fail(fmt.Errorf("%w: top_k must be positive", ErrInvalidRequest))
	}

	topK := 0
	if input.TopK != nil {
		topK = *input.TopK
	}
	matches, err := s.retriever.Retrieve(ctx, question, topK)
	if err != nil {
		return fail(err)
	}

	history, err := s.resolveHistory(ctx, input)
	if err != nil {
		return fail(err)
	}

	answer, err := s.synthesizer.Synthesize(ctx, question, matches, history)
	if err != nil {
		return fail(err)
	}

	err = s.conversations.Append(ctx, input.UserID,
		model.ConversationTurn{Role: model.RoleUser, Content: question},
		model.ConversationTurn{Role: model.RoleAssistant, Content: answer.Text},
	)
	if err != nil {
		return fail(fmt.Errorf("%w: %w", ErrStorageFailure, err))
	}

	event.Success = true
	event.SetSources(answer.Sources)
	event.LatencyMS = latencyMS(start)
	s.recorder.Record(context.WithoutCancel(ctx), event)

	return &AskResult{
		Answer:         answer.Text,
		Sources:        answer.Sources,
		ConversationID: event.EventID,
	}, nil
}

// resolveHistory applies the documented precedence: caller-supplied history,
// when present, replaces stored history for this request only.
func (s *QueryService) resolveHistory(ctx context.Context, input AskInput) ([]model.ConversationTurn, error) {
	if input.History != nil {
		turns := make([]model.ConversationTurn, len(input.History))
		for i, h := range input.History {
			turns[i] = model.ConversationTurn{Role: h.Role, Content: h.Content}
		}
		return turns, nil
	}

	turns, err := s.conversations.Fetch(ctx, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	return turns, nil
}

// History returns the user's stored turns, oldest first.
func (s *QueryService) History(ctx context.Context, userID string) ([]model.ConversationTurn, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidRequest)
	}
	turns, err := s.conversations.Fetch(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	return turns, nil
}

// ClearHistory deletes the user's whole history and reports how many turns
// were removed.
func (s *QueryService) ClearHistory(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, fmt.Errorf("%w: user id is required", ErrInvalidRequest)
	}
	deleted, err := s.conversations.Clear(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	return deleted, nil
}

func latencyMS(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
