package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// GeminiService implements the LLMService and EmbeddingService interfaces
// using the Google Gemini API.
type GeminiService struct {
	config  *common.GeminiConfig
	logger  arbor.ILogger
	client  *genai.Client
	timeout time.Duration
}

var (
	_ interfaces.LLMService       = (*GeminiService)(nil)
	_ interfaces.EmbeddingService = (*GeminiService)(nil)
)

// convertMessagesToGemini converts []interfaces.Message to Gemini Content format.
// System messages are returned separately for use as SystemInstruction; when
// there are several they are joined in order.
func convertMessagesToGemini(messages []interfaces.Message) ([]*genai.Content, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("messages cannot be empty")
	}

	hasUserMessage := false
	for _, msg := range messages {
		if msg.Role == "user" {
			hasUserMessage = true
			break
		}
	}
	if !hasUserMessage {
		return nil, "", fmt.Errorf("at least one message must have role 'user'")
	}

	contents := make([]*genai.Content, 0, len(messages))
	var systemParts []string
	for _, msg := range messages {
		if msg.Role == "system" {
			systemParts = append(systemParts, msg.Content)
			continue
		}

		role := genai.RoleUser
		if msg.Role == "assistant" {
			role = genai.RoleModel
		}

		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
		})
	}

	return contents, strings.Join(systemParts, "\n\n"), nil
}

// answerSchema constrains Gemini output to the structured answer shape
func answerSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"answer": {
				Type:        genai.TypeString,
				Description: "The answer with citations, or the not-found sentence",
			},
			"is_answer_found": {
				Type:        genai.TypeBoolean,
				Description: "True only when the provided context supports the answer",
			},
		},
		Required: []string{"answer", "is_answer_found"},
	}
}

// NewGeminiService creates a new Gemini service instance.
//
// The API key is resolved from the environment, then the KV store, then
// config. kv may be nil.
func NewGeminiService(config *common.GeminiConfig, kv interfaces.KeyValueStorage, logger arbor.ILogger) (*GeminiService, error) {
	ctx := context.Background()
	apiKey, err := common.ResolveAPIKey(ctx, kv, "gemini_api_key", config.APIKey)
	if err != nil {
		return nil, fmt.Errorf("Google API key is required for Gemini service (set via GOOGLE_API_KEY, RESPONDEO_GEMINI_API_KEY, or gemini.api_key in config): %w", err)
	}

	if config.Model == "" {
		config.Model = "gemini-2.5-flash"
	}
	if config.EmbedModel == "" {
		config.EmbedModel = "gemini-embedding-001"
	}

	timeout := common.ParseDurationOr(config.Timeout, 2*time.Minute)

	clientConfig := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	logger.Info().
		Str("model", config.Model).
		Str("embed_model", config.EmbedModel).
		Int("embed_dimension", config.EmbedDimension).
		Dur("timeout", timeout).
		Msg("Gemini service initialized")

	return &GeminiService{
		config:  config,
		logger:  logger,
		client:  client,
		timeout: timeout,
	}, nil
}

// Embed generates an embedding vector for the given text using the configured
// embedding model and output dimensionality.
func (s *GeminiService) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty for embedding generation")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()
	embedding, err := s.generateEmbedding(timeoutCtx, text)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int("text_length", len(text)).
			Msg("Embedding generation failed")
		return nil, err
	}

	s.logger.Debug().
		Int("text_length", len(text)).
		Int("embedding_dim", len(embedding)).
		Dur("duration", time.Since(startTime)).
		Msg("Embedding generated")

	return embedding, nil
}

// Dimension returns the configured embedding dimensionality
func (s *GeminiService) Dimension() int {
	return s.config.EmbedDimension
}

// Chat generates a free-text completion for the conversation
func (s *GeminiService) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("messages cannot be empty for chat completion")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()
	response, err := s.generateCompletion(timeoutCtx, messages, nil)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int("message_count", len(messages)).
			Msg("Chat completion failed")
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	s.logger.Debug().
		Int("message_count", len(messages)).
		Int("response_length", len(response)).
		Dur("duration", time.Since(startTime)).
		Msg("Chat completion finished")

	return response, nil
}

// GenerateAnswer requests JSON output constrained by the answer schema and
// validates it. Any reply that does not decode into both fields is an
// ErrGeneration.
func (s *GeminiService) GenerateAnswer(ctx context.Context, messages []interfaces.Message) (*models.StructuredAnswer, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("%w: messages cannot be empty", interfaces.ErrGeneration)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()
	response, err := s.generateCompletion(timeoutCtx, messages, answerSchema())
	if err != nil {
		s.logger.Error().
			Err(err).
			Int("message_count", len(messages)).
			Msg("Structured answer generation failed")
		return nil, fmt.Errorf("%w: gemini: %w", interfaces.ErrGeneration, err)
	}

	answer, err := ParseStructuredAnswer(response)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Gemini returned an unparseable structured answer")
		return nil, err
	}

	s.logger.Debug().
		Bool("found", answer.Found).
		Int("answer_length", len(answer.Answer)).
		Dur("duration", time.Since(startTime)).
		Msg("Structured answer generated")

	return answer, nil
}

// HealthCheck exercises the generation and embedding models with short requests
func (s *GeminiService) HealthCheck(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("genai client is not initialized")
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := s.generateEmbedding(checkCtx, "health check"); err != nil {
		return fmt.Errorf("embedding model health check failed: %w", err)
	}

	response, err := s.generateCompletion(checkCtx, []interfaces.Message{{Role: "user", Content: "ping"}}, nil)
	if err != nil {
		return fmt.Errorf("chat model health check failed: %w", err)
	}
	if strings.TrimSpace(response) == "" {
		return fmt.Errorf("chat health check returned empty response")
	}

	return nil
}

// GetProvider returns "gemini"
func (s *GeminiService) GetProvider() string {
	return string(common.LLMProviderGemini)
}

// Close releases the client reference. genai.Client needs no explicit close.
func (s *GeminiService) Close() error {
	s.logger.Debug().Msg("Closing Gemini service")
	s.client = nil
	return nil
}

func (s *GeminiService) generateEmbedding(ctx context.Context, text string) ([]float32, error) {
	embeddingConfig := &genai.EmbedContentConfig{}
	if s.config.EmbedDimension > 0 {
		outputDim := int32(s.config.EmbedDimension)
		embeddingConfig.OutputDimensionality = &outputDim
	}

	result, err := s.client.Models.EmbedContent(ctx, s.config.EmbedModel,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, embeddingConfig)
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	var embedding []float32
	if result != nil && len(result.Embeddings) > 0 && result.Embeddings[0] != nil {
		embedding = result.Embeddings[0].Values
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("no embedding returned from API")
	}
	if s.config.EmbedDimension > 0 && len(embedding) != s.config.EmbedDimension {
		return nil, fmt.Errorf("embedding dimension mismatch: expected %d, got %d", s.config.EmbedDimension, len(embedding))
	}

	return embedding, nil
}

// generateCompletion runs one GenerateContent call. A non-nil schema switches
// the response to JSON constrained by it.
func (s *GeminiService) generateCompletion(ctx context.Context, messages []interfaces.Message, schema *genai.Schema) (string, error) {
	contents, systemText, err := convertMessagesToGemini(messages)
	if err != nil {
		return "", fmt.Errorf("failed to convert messages to Gemini format: %w", err)
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(s.config.Temperature),
	}
	if systemText != "" {
		config.SystemInstruction = genai.NewContentFromText(systemText, genai.RoleUser)
	}
	if schema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = schema
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.config.Model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("empty response from Gemini API")
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty text in Gemini response")
	}
	return text, nil
}
