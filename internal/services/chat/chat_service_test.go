package chat

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/liber/internal/common"
	"github.com/ternarybob/liber/internal/interfaces"
	"github.com/ternarybob/liber/internal/models"
)

// recordingRetriever records which entry point was used.
type recordingRetriever struct {
	fullBookCalls  int
	selectionCalls int
	candidates     []models.RetrievedCandidate
}

func (r *recordingRetriever) Retrieve(_ context.Context, _, _ string, _ int) ([]models.RetrievedCandidate, error) {
	r.fullBookCalls++
	return r.candidates, nil
}

func (r *recordingRetriever) RetrieveWithSelection(_ context.Context, _, _, selectedText string, _ int) ([]models.RetrievedCandidate, error) {
	r.selectionCalls++
	return append([]models.RetrievedCandidate{models.NewSelectionCandidate(selectedText)}, r.candidates...), nil
}

// echoEnforcer returns a fixed grounded answer.
type echoEnforcer struct {
	lastCandidates []models.RetrievedCandidate
	lastMode       models.ChatMode
}

func (e *echoEnforcer) Answer(_ context.Context, _ string, candidates []models.RetrievedCandidate, mode models.ChatMode) (*models.Answer, error) {
	e.lastCandidates = candidates
	e.lastMode = mode
	return &models.Answer{
		Text:            "Grounded answer [1].",
		Mode:            mode,
		ChunksRetrieved: len(candidates),
		ModelUsed:       "test-model",
	}, nil
}

func newTestService(retriever interfaces.Retriever, enforcer interfaces.GroundingEnforcer) *Service {
	return NewService(retriever, enforcer, common.GetLogger())
}

func TestChatRoutesToFullBookByDefault(t *testing.T) {
	retriever := &recordingRetriever{candidates: []models.RetrievedCandidate{{ChunkID: "c1", Text: "t", Score: 0.9}}}
	enforcer := &echoEnforcer{}
	svc := newTestService(retriever, enforcer)

	answer, err := svc.Chat(context.Background(), &interfaces.ChatRequest{
		Query:  "what happens in chapter one?",
		BookID: "book-a",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, retriever.fullBookCalls)
	assert.Equal(t, 0, retriever.selectionCalls)
	assert.Equal(t, models.ModeFullBook, enforcer.lastMode)
	assert.Equal(t, models.ModeFullBook, answer.Mode)
	assert.Greater(t, answer.LatencyMS, 0.0)
}

func TestChatRoutesToSelectionWhenTextPresent(t *testing.T) {
	retriever := &recordingRetriever{}
	enforcer := &echoEnforcer{}
	svc := newTestService(retriever, enforcer)

	_, err := svc.Chat(context.Background(), &interfaces.ChatRequest{
		Query:        "what does this passage mean?",
		SelectedText: "Call me Ishmael.",
		BookID:       "book-a",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, retriever.selectionCalls)
	assert.Equal(t, models.ModeSelectedText, enforcer.lastMode)
	require.NotEmpty(t, enforcer.lastCandidates)
	assert.True(t, enforcer.lastCandidates[0].IsSelection())
}

func TestChatAcceptsOverlongSelections(t *testing.T) {
	retriever := &recordingRetriever{}
	enforcer := &echoEnforcer{}
	svc := newTestService(retriever, enforcer)

	// Over-long selections reach the retriever, which truncates; they are
	// never rejected up front.
	_, err := svc.Chat(context.Background(), &interfaces.ChatRequest{
		Query:        "q",
		SelectedText: strings.Repeat("a", models.MaxSelectionLength+100),
		BookID:       "book-a",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, retriever.selectionCalls)
}

func TestChatExplicitModeWins(t *testing.T) {
	retriever := &recordingRetriever{}
	enforcer := &echoEnforcer{}
	svc := newTestService(retriever, enforcer)

	// Selected text present but the caller forces full-book mode.
	_, err := svc.Chat(context.Background(), &interfaces.ChatRequest{
		Query:        "q",
		SelectedText: "some passage",
		Mode:         string(models.ModeFullBook),
		BookID:       "book-a",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, retriever.fullBookCalls)
	assert.Equal(t, 0, retriever.selectionCalls)
}

func TestChatRejectsInvalidRequests(t *testing.T) {
	svc := newTestService(&recordingRetriever{}, &echoEnforcer{})

	cases := []struct {
		name string
		req  *interfaces.ChatRequest
	}{
		{"empty query", &interfaces.ChatRequest{Query: "", BookID: "b"}},
		{"bad mode", &interfaces.ChatRequest{Query: "q", Mode: "telepathy"}},
		{"max_chunks too high", &interfaces.ChatRequest{Query: "q", MaxChunks: 50}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Chat(context.Background(), tc.req)
			require.Error(t, err)
			assert.True(t, models.IsKind(err, models.ErrValidation))
		})
	}
}
