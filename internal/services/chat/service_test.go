package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
	"github.com/ternarybob/respondeo/internal/services/index"
)

var refundChunk = models.TextChunk{
	Content:     "Customers may request a refund within 30 days of purchase.",
	SourceID:    "/data/docs/policy.pdf",
	PageNumbers: []int{2},
}

var wikiChunk = models.TextChunk{
	Content:  "A refund is a return of money, commonly within 14 days under consumer law.",
	SourceID: "Refund",
	URL:      "https://en.wikipedia.org/wiki/Refund",
}

type harness struct {
	llm       *fakeLLM
	index     *fakeIndex
	retriever *fakeRetriever
	memory    *fakeMemory
	service   *Service
}

func newHarness(options Options) *harness {
	h := &harness{
		llm:       &fakeLLM{},
		index:     &fakeIndex{},
		retriever: &fakeRetriever{chunks: []models.TextChunk{wikiChunk}},
		memory:    newFakeMemory(),
	}
	h.service = NewService(h.index, h.memory, h.llm, h.retriever, options, arbor.NewLogger())
	return h
}

func defaultOptions() Options {
	return Options{TopK: 3, SecondaryMaxResults: 2, SecondaryEnabled: true, Policy: ConfidencePolicy{}}
}

func TestAsk_AcceptsPrimary(t *testing.T) {
	h := newHarness(defaultOptions())
	h.index.chunks = []models.TextChunk{refundChunk}
	h.llm.answerFn = evidenceReader("30 days", "Refunds are accepted within 30 days <source='policy.pdf', page=2>")

	result, err := h.service.Ask(context.Background(), "s1", "What is the refund window?")

	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.Equal(t, models.OriginPrimary, result.Origin)
	assert.Contains(t, result.Answer, "30 days")
	assert.Equal(t, []models.Stage{
		models.StageCondense, models.StageRetrievePrimary, models.StageGeneratePrimary, models.StageAccept,
	}, result.Stages)
	assert.Equal(t, 0, h.llm.chatCount(), "first question must not be condensed")
	assert.Equal(t, 1, h.llm.answerCount())
	assert.Equal(t, 0, h.retriever.searchCount())

	history, _ := h.memory.GetHistory(context.Background(), "s1")
	assert.Equal(t, []models.ConversationTurn{
		{Role: models.RoleUser, Text: "What is the refund window?"},
		{Role: models.RoleAssistant, Text: result.Answer},
	}, history)
}

func TestAsk_PrimaryPromptCarriesEvidenceAndHistory(t *testing.T) {
	h := newHarness(defaultOptions())
	h.index.chunks = []models.TextChunk{refundChunk}
	h.llm.chatFn = func([]interfaces.Message) (string, error) { return "Does the refund window apply to gifts?", nil }
	h.llm.answerFn = evidenceReader("30 days", "Yes, 30 days.")
	require.NoError(t, h.memory.Append(context.Background(), "s1",
		models.ConversationTurn{Role: models.RoleUser, Text: "What is the refund window?"},
		models.ConversationTurn{Role: models.RoleAssistant, Text: "30 days."},
	))

	result, err := h.service.Ask(context.Background(), "s1", "Does it apply to gifts?")
	require.NoError(t, err)

	assert.Equal(t, "Does the refund window apply to gifts?", result.StandaloneQuestion)
	assert.Equal(t, []string{"Does the refund window apply to gifts?"}, h.index.queries)

	messages := h.llm.answerCalls[0]
	require.Len(t, messages, 4)
	assert.Equal(t, "system", messages[0].Role)
	assert.Contains(t, messages[0].Content, "--- Snippet 1 ---")
	assert.Contains(t, messages[0].Content, "<source='policy.pdf', page=2>")
	assert.Contains(t, messages[0].Content, "Does the refund window apply to gifts?")
	assert.Equal(t, interfaces.Message{Role: "user", Content: "What is the refund window?"}, messages[1])
	assert.Equal(t, interfaces.Message{Role: "assistant", Content: "30 days."}, messages[2])
	assert.Equal(t, interfaces.Message{Role: "user", Content: "Does it apply to gifts?"}, messages[3])
}

func TestAsk_EscalatesWhenNotFound(t *testing.T) {
	h := newHarness(defaultOptions())
	h.index.chunks = []models.TextChunk{{Content: "Shipping takes 5 days.", SourceID: "shipping.pdf", PageNumbers: []int{1}}}
	h.llm.answerFn = evidenceReader("14 days", "Typically 14 days.")

	result, err := h.service.Ask(context.Background(), "s1", "What is the refund window?")

	require.NoError(t, err)
	assert.Equal(t, models.OriginSecondary, result.Origin)
	assert.True(t, result.Found)
	assert.Equal(t, "Typically 14 days.", result.Answer)
	assert.Equal(t, []string{"What is the refund window?"}, h.retriever.queries)
	assert.Equal(t, 2, h.llm.answerCount())
	assert.Contains(t, h.llm.answerCalls[1][0].Content, "<reference='Refund', url='https://en.wikipedia.org/wiki/Refund'>")
	assert.Equal(t, []models.Stage{
		models.StageCondense, models.StageRetrievePrimary, models.StageGeneratePrimary,
		models.StageRetrieveSecondary, models.StageGenerateSecondary, models.StageAccept,
	}, result.Stages)
}

func TestAsk_SecondaryAnswerReturnedEvenWhenNotFound(t *testing.T) {
	h := newHarness(defaultOptions())
	h.llm.answerFn = evidenceReader("never present", "")

	result, err := h.service.Ask(context.Background(), "s1", "Who won the 1904 chess olympiad?")

	require.NoError(t, err)
	assert.False(t, result.Found)
	assert.Equal(t, models.OriginSecondary, result.Origin)
	assert.Equal(t, models.NotFoundAnswer, result.Answer)
	assert.Equal(t, 2, h.llm.answerCount(), "at most two answer generations per question")
}

func TestAsk_EscalationIsDeterministic(t *testing.T) {
	run := func() *models.AskResult {
		h := newHarness(defaultOptions())
		h.index.chunks = []models.TextChunk{refundChunk}
		h.llm.answerFn = func(call int, _ []interfaces.Message) (*models.StructuredAnswer, error) {
			return &models.StructuredAnswer{Answer: fmt.Sprintf("answer %d", call), Found: call == 2}, nil
		}
		result, err := h.service.Ask(context.Background(), "s1", "What is the refund window?")
		require.NoError(t, err)
		return result
	}

	first, second := run(), run()
	assert.Equal(t, first, second)
	assert.Equal(t, "answer 2", first.Answer)
}

func TestAsk_LengthPolicyEscalatesOnThinEvidence(t *testing.T) {
	options := defaultOptions()
	options.Policy = LengthPolicy{MinContextChars: 300}
	h := newHarness(options)
	h.index.chunks = []models.TextChunk{refundChunk}
	h.llm.answerFn = func(call int, _ []interfaces.Message) (*models.StructuredAnswer, error) {
		return &models.StructuredAnswer{Answer: fmt.Sprintf("answer %d", call), Found: true}, nil
	}

	result, err := h.service.Ask(context.Background(), "s1", "What is the refund window?")

	require.NoError(t, err)
	assert.Equal(t, models.OriginSecondary, result.Origin)
	assert.Equal(t, 2, h.llm.answerCount())
}

func TestAsk_SecondaryDisabledReturnsPrimary(t *testing.T) {
	options := defaultOptions()
	options.SecondaryEnabled = false
	h := newHarness(options)
	h.llm.answerFn = evidenceReader("never present", "")

	result, err := h.service.Ask(context.Background(), "s1", "What is the refund window?")

	require.NoError(t, err)
	assert.Equal(t, models.OriginPrimary, result.Origin)
	assert.False(t, result.Found)
	assert.Equal(t, 0, h.retriever.searchCount())
	assert.Equal(t, 1, h.llm.answerCount())
}

func TestAsk_Failures(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(h *harness)
		expected    error
		answerCalls int
	}{
		{
			name: "secondary retrieval failure",
			setup: func(h *harness) {
				h.retriever.err = errors.New("connection reset")
				h.llm.answerFn = evidenceReader("never present", "")
			},
			expected:    interfaces.ErrRetrieval,
			answerCalls: 1,
		},
		{
			name: "primary generation failure is not retried",
			setup: func(h *harness) {
				h.llm.answerFn = func(int, []interfaces.Message) (*models.StructuredAnswer, error) {
					return nil, errors.New("503 from upstream")
				}
			},
			expected:    interfaces.ErrGeneration,
			answerCalls: 1,
		},
		{
			name: "secondary generation failure",
			setup: func(h *harness) {
				h.llm.answerFn = func(call int, _ []interfaces.Message) (*models.StructuredAnswer, error) {
					if call == 2 {
						return nil, fmt.Errorf("%w: malformed json", interfaces.ErrGeneration)
					}
					return &models.StructuredAnswer{Answer: models.NotFoundAnswer}, nil
				}
			},
			expected:    interfaces.ErrGeneration,
			answerCalls: 2,
		},
		{
			name: "index load failure propagates",
			setup: func(h *harness) {
				h.index.err = fmt.Errorf("%w: corrupt snapshot", interfaces.ErrIndexLoad)
			},
			expected:    interfaces.ErrIndexLoad,
			answerCalls: 0,
		},
		{
			name: "query embedding failure propagates",
			setup: func(h *harness) {
				h.index.err = fmt.Errorf("%w: timeout", interfaces.ErrEmbedding)
			},
			expected:    interfaces.ErrEmbedding,
			answerCalls: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(defaultOptions())
			tt.setup(h)

			result, err := h.service.Ask(context.Background(), "s1", "What is the refund window?")

			require.Error(t, err)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.expected)
			assert.Equal(t, tt.answerCalls, h.llm.answerCount())

			history, _ := h.memory.GetHistory(context.Background(), "s1")
			assert.Empty(t, history, "failed questions must not be recorded")
		})
	}
}

func TestAsk_InvalidInput(t *testing.T) {
	h := newHarness(defaultOptions())

	_, err := h.service.Ask(context.Background(), "", "question")
	assert.ErrorIs(t, err, interfaces.ErrInvalidInput)

	_, err = h.service.Ask(context.Background(), "s1", "   ")
	assert.ErrorIs(t, err, interfaces.ErrInvalidInput)

	assert.Equal(t, 0, h.llm.answerCount())
}

func TestAsk_SessionsAreIsolated(t *testing.T) {
	h := newHarness(defaultOptions())
	h.index.chunks = []models.TextChunk{refundChunk}
	h.llm.answerFn = evidenceReader("30 days", "30 days.")

	_, err := h.service.Ask(context.Background(), "A", "What is the refund window?")
	require.NoError(t, err)
	_, err = h.service.Ask(context.Background(), "B", "What is the refund window?")
	require.NoError(t, err)

	assert.Equal(t, 0, h.llm.chatCount(), "session B must not see session A's history")

	history, err := h.service.History(context.Background(), "A")
	require.NoError(t, err)
	assert.Len(t, history, 2)

	require.NoError(t, h.service.ClearHistory(context.Background(), "A"))
	history, err = h.service.History(context.Background(), "A")
	require.NoError(t, err)
	assert.Empty(t, history)
}

// The refund-window scenarios run against the real similarity index
func TestAsk_RefundWindowScenarios(t *testing.T) {
	tests := []struct {
		name     string
		corpus   []models.TextChunk
		origin   models.EvidenceOrigin
		answer   string
		searches int
	}{
		{
			name:     "answered from the corpus",
			corpus:   []models.TextChunk{refundChunk},
			origin:   models.OriginPrimary,
			answer:   "Refunds are accepted within 30 days <source='policy.pdf', page=2>",
			searches: 0,
		},
		{
			name:     "empty corpus escalates",
			corpus:   nil,
			origin:   models.OriginSecondary,
			answer:   "Typically 14 days <reference='Refund'>",
			searches: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := arbor.NewLogger()
			idx := index.NewService(wordEmbedder{dim: 64}, &blobStorage{}, "default", 0.5, logger)
			require.NoError(t, idx.Insert(context.Background(), tt.corpus))

			llm := &fakeLLM{answerFn: func(_ int, messages []interfaces.Message) (*models.StructuredAnswer, error) {
				switch system := messages[0].Content; {
				case containsAll(system, "30 days", "policy.pdf"):
					return &models.StructuredAnswer{Answer: "Refunds are accepted within 30 days <source='policy.pdf', page=2>", Found: true}, nil
				case containsAll(system, "14 days", "External Reference 1"):
					return &models.StructuredAnswer{Answer: "Typically 14 days <reference='Refund'>", Found: true}, nil
				}
				return &models.StructuredAnswer{Answer: models.NotFoundAnswer}, nil
			}}
			retriever := &fakeRetriever{chunks: []models.TextChunk{wikiChunk}}
			memory := newFakeMemory()
			service := NewService(idx, memory, llm, retriever, defaultOptions(), logger)

			result, err := service.Ask(context.Background(), "refunds", "What is the refund window?")

			require.NoError(t, err)
			assert.Equal(t, tt.origin, result.Origin)
			assert.Equal(t, tt.answer, result.Answer)
			assert.True(t, result.Found)
			assert.Equal(t, tt.searches, retriever.searchCount())
		})
	}
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
