package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// Options tunes retrieval and escalation for the answering engine
type Options struct {
	TopK                int // Chunks retrieved from the primary index
	DiversityPool       int // MMR candidate pool, 0 selects the index default
	SecondaryMaxResults int // Pages requested from the secondary source
	SecondaryEnabled    bool
	Policy              SufficiencyPolicy
}

// Service answers questions against the primary index and escalates to the
// secondary retriever when the primary answer is judged insufficient.
type Service struct {
	index     interfaces.SimilarityIndex
	memory    interfaces.ConversationMemory
	llm       interfaces.LLMService
	secondary interfaces.Retriever
	condenser *Condenser
	options   Options
	logger    arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.ChatService = (*Service)(nil)

// NewService creates the answering engine. secondary may be nil, in which
// case a rejected primary answer is returned as is.
func NewService(
	index interfaces.SimilarityIndex,
	memory interfaces.ConversationMemory,
	llm interfaces.LLMService,
	secondary interfaces.Retriever,
	options Options,
	logger arbor.ILogger,
) *Service {
	if options.TopK <= 0 {
		options.TopK = 3
	}
	if options.SecondaryMaxResults <= 0 {
		options.SecondaryMaxResults = 2
	}
	if options.Policy == nil {
		options.Policy = ConfidencePolicy{}
	}
	if secondary == nil {
		options.SecondaryEnabled = false
	}

	return &Service{
		index:     index,
		memory:    memory,
		llm:       llm,
		secondary: secondary,
		condenser: NewCondenser(llm, logger),
		options:   options,
		logger:    logger,
	}
}

// askState carries one question through the state machine
type askState struct {
	sessionID  string
	question   string
	history    []models.ConversationTurn
	standalone string

	primaryEvidence []models.TextChunk
	primaryAnswer   *models.StructuredAnswer

	evidence []models.TextChunk
	answer   *models.StructuredAnswer
	origin   models.EvidenceOrigin
	stages   []models.Stage
}

func (st *askState) enter(stage models.Stage) {
	st.stages = append(st.stages, stage)
}

// Ask runs CONDENSE, RETRIEVE_PRIMARY and GENERATE_PRIMARY, then either
// accepts the primary answer or runs RETRIEVE_SECONDARY and
// GENERATE_SECONDARY. The exchange is recorded only once an answer is accepted.
func (s *Service) Ask(ctx context.Context, sessionID string, question string) (*models.AskResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", interfaces.ErrInvalidInput)
	}
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is required", interfaces.ErrInvalidInput)
	}

	start := time.Now()
	st := &askState{sessionID: sessionID, question: question}

	if err := s.condense(ctx, st); err != nil {
		return nil, err
	}
	if err := s.retrievePrimary(ctx, st); err != nil {
		return nil, err
	}
	if err := s.generatePrimary(ctx, st); err != nil {
		return nil, err
	}

	if s.options.Policy.Accept(st.primaryAnswer, st.primaryEvidence) || !s.options.SecondaryEnabled {
		st.answer = st.primaryAnswer
		st.evidence = st.primaryEvidence
		st.origin = models.OriginPrimary
	} else {
		s.logger.Info().
			Str("session_id", sessionID).
			Str("policy", s.options.Policy.Name()).
			Bool("found", st.primaryAnswer.Found).
			Int("primary_chars", models.ContentLength(st.primaryEvidence)).
			Msg("Primary answer insufficient, escalating to secondary source")

		if err := s.retrieveSecondary(ctx, st); err != nil {
			return nil, err
		}
		if err := s.generateSecondary(ctx, st); err != nil {
			return nil, err
		}
	}

	if err := s.accept(ctx, st); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("session_id", sessionID).
		Str("origin", string(st.origin)).
		Bool("found", st.answer.Found).
		Int("evidence", len(st.evidence)).
		Dur("duration", time.Since(start)).
		Msg("Question answered")

	return &models.AskResult{
		SessionID:          sessionID,
		Question:           question,
		StandaloneQuestion: st.standalone,
		Answer:             st.answer.Answer,
		Found:              st.answer.Found,
		Origin:             st.origin,
		Evidence:           st.evidence,
		Stages:             st.stages,
	}, nil
}

func (s *Service) condense(ctx context.Context, st *askState) error {
	st.enter(models.StageCondense)

	history, err := s.memory.GetHistory(ctx, st.sessionID)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	st.history = history

	standalone, err := s.condenser.Condense(ctx, st.question, history)
	if err != nil {
		return err
	}
	st.standalone = standalone
	return nil
}

func (s *Service) retrievePrimary(ctx context.Context, st *askState) error {
	st.enter(models.StageRetrievePrimary)

	chunks, err := s.index.Query(ctx, st.standalone, s.options.TopK, s.options.DiversityPool)
	if err != nil {
		return err
	}
	st.primaryEvidence = chunks

	s.logger.Debug().
		Str("session_id", st.sessionID).
		Int("chunks", len(chunks)).
		Msg("Primary evidence retrieved")
	return nil
}

func (s *Service) generatePrimary(ctx context.Context, st *askState) error {
	st.enter(models.StageGeneratePrimary)

	answer, err := s.generate(ctx, st, FormatEvidence(st.primaryEvidence, models.OriginPrimary))
	if err != nil {
		return err
	}
	st.primaryAnswer = answer
	return nil
}

func (s *Service) retrieveSecondary(ctx context.Context, st *askState) error {
	st.enter(models.StageRetrieveSecondary)

	chunks, err := s.secondary.Search(ctx, st.standalone, s.options.SecondaryMaxResults)
	if err != nil {
		if errors.Is(err, interfaces.ErrRetrieval) {
			return err
		}
		return fmt.Errorf("%w: %s: %w", interfaces.ErrRetrieval, s.secondary.Name(), err)
	}
	st.evidence = chunks

	s.logger.Debug().
		Str("session_id", st.sessionID).
		Str("source", s.secondary.Name()).
		Int("chunks", len(chunks)).
		Msg("Secondary evidence retrieved")
	return nil
}

func (s *Service) generateSecondary(ctx context.Context, st *askState) error {
	st.enter(models.StageGenerateSecondary)

	answer, err := s.generate(ctx, st, FormatEvidence(st.evidence, models.OriginSecondary))
	if err != nil {
		return err
	}
	st.answer = answer
	st.origin = models.OriginSecondary
	return nil
}

func (s *Service) accept(ctx context.Context, st *askState) error {
	st.enter(models.StageAccept)

	err := s.memory.Append(ctx, st.sessionID,
		models.ConversationTurn{Role: models.RoleUser, Text: st.question},
		models.ConversationTurn{Role: models.RoleAssistant, Text: st.answer.Answer},
	)
	if err != nil {
		return fmt.Errorf("failed to record exchange: %w", err)
	}
	return nil
}

// generate makes one structured answer call over the given evidence
func (s *Service) generate(ctx context.Context, st *askState, evidence string) (*models.StructuredAnswer, error) {
	messages := buildAnswerMessages(evidence, st.standalone, st.question, st.history)

	answer, err := s.llm.GenerateAnswer(ctx, messages)
	if err != nil {
		if errors.Is(err, interfaces.ErrGeneration) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", interfaces.ErrGeneration, err)
	}
	if answer == nil {
		return nil, fmt.Errorf("%w: empty structured answer", interfaces.ErrGeneration)
	}
	return answer, nil
}

// buildAnswerMessages orders the system prompt, the prior dialogue and the
// original question as the final user turn.
func buildAnswerMessages(evidence, standalone, question string, history []models.ConversationTurn) []interfaces.Message {
	messages := make([]interfaces.Message, 0, len(history)+2)
	messages = append(messages, interfaces.Message{
		Role:    "system",
		Content: buildAnswerSystemPrompt(evidence, standalone),
	})
	for _, turn := range history {
		messages = append(messages, interfaces.Message{Role: string(turn.Role), Content: turn.Text})
	}
	messages = append(messages, interfaces.Message{Role: "user", Content: question})
	return messages
}

// History returns the recorded turns of a session
func (s *Service) History(ctx context.Context, sessionID string) ([]models.ConversationTurn, error) {
	return s.memory.GetHistory(ctx, sessionID)
}

// ClearHistory forgets a session
func (s *Service) ClearHistory(ctx context.Context, sessionID string) error {
	return s.memory.Clear(ctx, sessionID)
}
