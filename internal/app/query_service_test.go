package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfchat/internal/ai"
	"pdfchat/internal/model"
	"pdfchat/internal/vectorindex"
)

type fakeQueryEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeQueryEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.vector, nil
}

type fakeGenerator struct {
	reply    string
	err      error
	messages []ai.ChatMessage
}

func (f *fakeGenerator) Complete(ctx context.Context, messages []ai.ChatMessage) (string, error) {
	f.messages = messages
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeConversations struct {
	mu        sync.Mutex
	turns     map[string][]model.ConversationTurn
	appendErr error
	fetchErr  error
	fetches   int
}

func newFakeConversations() *fakeConversations {
	return &fakeConversations{turns: make(map[string][]model.ConversationTurn)}
}

func (f *fakeConversations) Append(ctx context.Context, userID string, turns ...model.ConversationTurn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.turns[userID] = append(f.turns[userID], turns...)
	return nil
}

func (f *fakeConversations) Fetch(ctx context.Context, userID string) ([]model.ConversationTurn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.turns[userID], nil
}

func (f *fakeConversations) Clear(ctx context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := int64(len(f.turns[userID]))
	delete(f.turns, userID)
	return n, nil
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []model.QueryEvent
}

func (f *fakeRecorder) Record(ctx context.Context, event model.QueryEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeRecorder) last(t *testing.T) model.QueryEvent {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.events)
	return f.events[len(f.events)-1]
}

type queryFixture struct {
	svc           *QueryService
	embedder      *fakeQueryEmbedder
	generator     *fakeGenerator
	conversations *fakeConversations
	recorder      *fakeRecorder
}

func newQueryFixture(t *testing.T) *queryFixture {
	t.Helper()
	index := vectorindex.NewMemoryStore()
	err := index.Upsert(context.Background(), vectorindex.DocumentRef{Source: "guide.pdf", ContentHash: "h", PageCount: 3}, []vectorindex.Entry{
		{Ordinal: 0, Content: "chapter one", PageStart: 1, PageEnd: 2, Vector: []float32{1, 0}},
		{Ordinal: 1, Content: "chapter two", PageStart: 3, PageEnd: 3, Vector: []float32{0, 1}},
	})
	require.NoError(t, err)

	f := &queryFixture{
		embedder:      &fakeQueryEmbedder{vector: []float32{1, 0}},
		generator:     &fakeGenerator{reply: "grounded answer"},
		conversations: newFakeConversations(),
		recorder:      &fakeRecorder{},
	}
	f.svc = NewQueryService(
		NewRetriever(f.embedder, index, 4),
		NewSynthesizer(f.generator, 20),
		f.conversations,
		f.recorder,
	)
	return f
}

func intPtr(v int) *int { return &v }

func TestAskSuccess(t *testing.T) {
	f := newQueryFixture(t)

	result, err := f.svc.Ask(context.Background(), AskInput{UserID: "u1", Question: "what is chapter one about?"})
	require.NoError(t, err)

	assert.Equal(t, "grounded answer", result.Answer)
	assert.NotEmpty(t, result.ConversationID)
	require.Len(t, result.Sources, 3)
	assert.Equal(t, model.SourceRef{Source: "guide.pdf", Page: 1}, result.Sources[0])
	assert.Equal(t, model.SourceRef{Source: "guide.pdf", Page: 2}, result.Sources[1])
	assert.Equal(t, model.SourceRef{Source: "guide.pdf", Page: 3}, result.Sources[2])

	turns := f.conversations.turns["u1"]
	require.Len(t, turns, 2)
	assert.Equal(t, model.RoleUser, turns[0].Role)
	assert.Equal(t, "what is chapter one about?", turns[0].Content)
	assert.Equal(t, model.RoleAssistant, turns[1].Role)
	assert.Equal(t, "grounded answer", turns[1].Content)

	require.Len(t, f.recorder.events, 1)
	event := f.recorder.last(t)
	assert.True(t, event.Success)
	assert.Empty(t, event.ErrorKind)
	assert.Equal(t, "u1", event.UserID)
	assert.Equal(t, result.ConversationID, event.EventID)
	assert.GreaterOrEqual(t, event.LatencyMS, 0.0)

	assert.Equal(t, result.Sources, event.SourceRefs())
}

func TestAskRejectsMissingUser(t *testing.T) {
	f := newQueryFixture(t)

	_, err := f.svc.Ask(context.Background(), AskInput{Question: "hello"})
	require.ErrorIs(t, err, ErrInvalidRequest)

	event := f.recorder.last(t)
	assert.False(t, event.Success)
	assert.Equal(t, KindInvalidRequest, event.ErrorKind)
}

func TestAskRejectsBlankQuestion(t *testing.T) {
	f := newQueryFixture(t)

	_, err := f.svc.Ask(context.Background(), AskInput{UserID: "u1", Question: "   "})
	require.ErrorIs(t, err, ErrInvalidRequest)
	assert.Zero(t, f.embedder.calls)
	assert.Empty(t, f.conversations.turns["u1"])
}

func TestAskRejectsZeroTopK(t *testing.T) {
	f := newQueryFixture(t)

	_, err := f.svc.Ask(context.Background(), AskInput{UserID: "u1", Question: "q", TopK: intPtr(0)})
	require.ErrorIs(t, err, ErrInvalidRequest)

	// A rejected request still produces exactly one recorded event.
	require.Len(t, f.recorder.events, 1)
	event := f.recorder.last(t)
	assert.False(t, event.Success)
	assert.Equal(t, KindInvalidRequest, event.ErrorKind)
	assert.Empty(t, f.conversations.turns["u1"])
}

func TestAskGenerationFailure(t *testing.T) {
	f := newQueryFixture(t)
	f.generator.err = fmt.Errorf("%w: provider exploded", ai.ErrGenerationFailed)

	_, err := f.svc.Ask(context.Background(), AskInput{UserID: "u1", Question: "q"})
	require.ErrorIs(t, err, ai.ErrGenerationFailed)

	require.Len(t, f.recorder.events, 1)
	event := f.recorder.last(t)
	assert.False(t, event.Success)
	assert.Equal(t, KindGenerationFailed, event.ErrorKind)

	// No answer means no turns persisted.
	assert.Empty(t, f.conversations.turns["u1"])
}

func TestAskEmbeddingFailure(t *testing.T) {
	f := newQueryFixture(t)
	f.embedder.err = fmt.Errorf("%w: boom", ai.ErrEmbeddingFailed)

	_, err := f.svc.Ask(context.Background(), AskInput{UserID: "u1", Question: "q"})
	require.ErrorIs(t, err, ai.ErrEmbeddingFailed)
	assert.Equal(t, KindEmbeddingFailed, f.recorder.last(t).ErrorKind)
}

func TestAskAppendFailure(t *testing.T) {
	f := newQueryFixture(t)
	f.conversations.appendErr = errors.New("mysql gone")

	_, err := f.svc.Ask(context.Background(), AskInput{UserID: "u1", Question: "q"})
	require.ErrorIs(t, err, ErrStorageFailure)
	assert.Equal(t, KindStorageFailure, f.recorder.last(t).ErrorKind)
}

func TestAskCallerHistoryReplacesStored(t *testing.T) {
	f := newQueryFixture(t)
	require.NoError(t, f.conversations.Append(context.Background(), "u1",
		model.ConversationTurn{Role: model.RoleUser, Content: "stored question"},
	))
	f.conversations.fetches = 0

	_, err := f.svc.Ask(context.Background(), AskInput{
		UserID:   "u1",
		Question: "q",
		History: []HistoryTurn{
			{Role: model.RoleUser, Content: "caller question"},
			{Role: model.RoleAssistant, Content: "caller answer"},
		},
	})
	require.NoError(t, err)

	assert.Zero(t, f.conversations.fetches)
	contents := make([]string, 0, len(f.generator.messages))
	for _, m := range f.generator.messages {
		contents = append(contents, m.Content)
	}
	assert.Contains(t, contents, "caller question")
	assert.Contains(t, contents, "caller answer")
	assert.NotContains(t, contents, "stored question")
}

func TestAskUsesStoredHistoryByDefault(t *testing.T) {
	f := newQueryFixture(t)
	require.NoError(t, f.conversations.Append(context.Background(), "u1",
		model.ConversationTurn{Role: model.RoleUser, Content: "earlier question"},
		model.ConversationTurn{Role: model.RoleAssistant, Content: "earlier answer"},
	))

	_, err := f.svc.Ask(context.Background(), AskInput{UserID: "u1", Question: "follow-up"})
	require.NoError(t, err)

	contents := make([]string, 0, len(f.generator.messages))
	for _, m := range f.generator.messages {
		contents = append(contents, m.Content)
	}
	assert.Contains(t, contents, "earlier question")
	assert.Contains(t, contents, "earlier answer")
}

func TestAskStoredHistoryFetchFailure(t *testing.T) {
	f := newQueryFixture(t)
	f.conversations.fetchErr = errors.New("redis and mysql both down")

	_, err := f.svc.Ask(context.Background(), AskInput{UserID: "u1", Question: "q"})
	require.ErrorIs(t, err, ErrStorageFailure)
	assert.Equal(t, KindStorageFailure, f.recorder.last(t).ErrorKind)
}

func TestAskCancelledContext(t *testing.T) {
	f := newQueryFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Ask(ctx, AskInput{UserID: "u1", Question: "q"})
	require.Error(t, err)

	// The event is still recorded even though the caller's context is gone.
	event := f.recorder.last(t)
	assert.False(t, event.Success)
	assert.Equal(t, KindCancelled, event.ErrorKind)
}

func TestHistoryRequiresUserID(t *testing.T) {
	f := newQueryFixture(t)

	_, err := f.svc.History(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.svc.ClearHistory(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestClearHistoryReportsCount(t *testing.T) {
	f := newQueryFixture(t)

	_, err := f.svc.Ask(context.Background(), AskInput{UserID: "u1", Question: "q"})
	require.NoError(t, err)

	deleted, err := f.svc.ClearHistory(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	turns, err := f.svc.History(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestFailureKindMapping(t *testing.T) {
	cases := []struct {
		err  error
		kind string
	}{
		{nil, ""},
		{fmt.Errorf("%w: bad", ErrInvalidRequest), KindInvalidRequest},
		{fmt.Errorf("%w: x", ai.ErrEmbeddingFailed), KindEmbeddingFailed},
		{fmt.Errorf("%w: x", ai.ErrGenerationFailed), KindGenerationFailed},
		{fmt.Errorf("%w: x", ai.ErrProviderRateLimited), KindProviderRateLimited},
		{fmt.Errorf("%w: x", ai.ErrProviderUnavailable), KindProviderUnavailable},
		{fmt.Errorf("%w: x", ErrStorageFailure), KindStorageFailure},
		{context.Canceled, KindCancelled},
		{context.DeadlineExceeded, KindCancelled},
		{errors.New("surprise"), KindInternal},
		// A cancelled provider call is cancellation, not a provider fault.
		{fmt.Errorf("%w: %w", ai.ErrGenerationFailed, context.Canceled), KindCancelled},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.kind, FailureKind(tc.err))
	}
}
