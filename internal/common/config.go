package common

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/ternarybob/respondeo/internal/interfaces"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Index       IndexConfig     `toml:"index"`
	Chat        ChatConfig      `toml:"chat"`
	Wikipedia   WikipediaConfig `toml:"wikipedia"`
	Ingest      IngestConfig    `toml:"ingest"`
	LLM         LLMConfig       `toml:"llm"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Claude      ClaudeConfig    `toml:"claude"`
	Logging     LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"min=1,max=65535"`
	Host string `toml:"host" validate:"required"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
}

// IndexConfig controls the similarity index and its query defaults
type IndexConfig struct {
	Corpus        string  `toml:"corpus" validate:"required"`        // Name of the persisted index (one blob per corpus)
	TopK          int     `toml:"top_k" validate:"min=1"`            // Chunks returned per query (default: 3)
	DiversityPool int     `toml:"diversity_pool" validate:"min=0"`   // Candidates considered for MMR (0 = max(3k, 10))
	MMRLambda     float32 `toml:"mmr_lambda" validate:"min=0,max=1"` // Relevance vs diversity trade-off (default: 0.5)
}

// SufficiencyPolicy selects how a primary answer is judged sufficient
type SufficiencyPolicy string

const (
	// SufficiencyConfidence accepts the primary answer when the model reports it found one
	SufficiencyConfidence SufficiencyPolicy = "confidence"
	// SufficiencyLength additionally requires a minimum amount of primary evidence
	SufficiencyLength SufficiencyPolicy = "length"
)

// ChatConfig controls the hybrid answering pipeline
type ChatConfig struct {
	SufficiencyPolicy SufficiencyPolicy `toml:"sufficiency_policy" validate:"oneof=confidence length"`
	MinContextChars   int               `toml:"min_context_chars" validate:"min=0"` // Used by the length policy (default: 300)
	RequestTimeout    string            `toml:"request_timeout"`                    // Overall deadline per question (default: "2m")
	SecondaryEnabled  bool              `toml:"secondary_enabled"`                  // Consult the secondary source on low confidence
}

// WikipediaConfig configures the secondary knowledge source
type WikipediaConfig struct {
	BaseURL            string  `toml:"base_url"`                               // Overrides https://{language}.wikipedia.org/w/api.php
	Language           string  `toml:"language" validate:"required"`           // Wikipedia language edition (default: "en")
	TopKResults        int     `toml:"top_k_results" validate:"min=1"`         // Pages fetched per search (default: 2)
	DocContentCharsMax int     `toml:"doc_content_chars_max" validate:"min=1"` // Page text is truncated to this many characters (default: 3000)
	RateLimit          float64 `toml:"rate_limit" validate:"min=0"`            // Requests per second (0 = unlimited)
	Timeout            string  `toml:"timeout"`                                // HTTP timeout (default: "30s")
	UserAgent          string  `toml:"user_agent"`                             // Wikipedia requires an identifying user agent
}

// IngestConfig controls document and URL ingestion
type IngestConfig struct {
	UploadDir          string `toml:"upload_dir" validate:"required"`          // Where uploaded files are stored (default: "data/uploads")
	ChunkSize          int    `toml:"chunk_size" validate:"min=1"`             // Max characters per chunk (default: 500)
	ChunkOverlap       int    `toml:"chunk_overlap" validate:"min=0"`          // Characters shared by neighbouring chunks (default: 100)
	Renderer           string `toml:"renderer" validate:"oneof=http chromedp"` // "http" or "chromedp" for JavaScript-rendered pages
	JavaScriptWaitTime string `toml:"javascript_wait_time"`                    // Wait after navigation when rendering with chromedp (default: "2s")
	Timeout            string `toml:"timeout"`                                 // Fetch timeout (default: "30s")
	UserAgent          string `toml:"user_agent"`
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig selects the generation provider. Embeddings always use Gemini.
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider" validate:"oneof=gemini claude"`
}

// GeminiConfig contains Google Gemini API configuration for generation and embeddings
type GeminiConfig struct {
	APIKey         string  `toml:"api_key"`         // Google Gemini API key
	BaseURL        string  `toml:"base_url"`        // Overrides the Gemini API endpoint (proxies, tests)
	Model          string  `toml:"model"`           // Generation model (default: "gemini-2.5-flash")
	EmbedModel     string  `toml:"embed_model"`     // Embedding model (default: "gemini-embedding-001")
	EmbedDimension int     `toml:"embed_dimension"` // Output dimensionality of embeddings (default: 768)
	Timeout        string  `toml:"timeout"`         // Per call timeout as duration string (default: "2m")
	Temperature    float32 `toml:"temperature"`     // Generation temperature (default: 0.2)
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`       // default: "claude-haiku-4-5"
	MaxTokens   int     `toml:"max_tokens"`  // default: 2048
	Timeout     string  `toml:"timeout"`     // default: "2m"
	Temperature float32 `toml:"temperature"` // default: 0.2
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "console", "file"
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/db",
			},
		},
		Index: IndexConfig{
			Corpus:        "default",
			TopK:          3,
			DiversityPool: 0,
			MMRLambda:     0.5,
		},
		Chat: ChatConfig{
			SufficiencyPolicy: SufficiencyConfidence,
			MinContextChars:   300,
			RequestTimeout:    "2m",
			SecondaryEnabled:  true,
		},
		Wikipedia: WikipediaConfig{
			Language:           "en",
			TopKResults:        2,
			DocContentCharsMax: 3000,
			RateLimit:          5,
			Timeout:            "30s",
			UserAgent:          "Respondeo/1.0 (https://github.com/ternarybob/respondeo)",
		},
		Ingest: IngestConfig{
			UploadDir:          "data/uploads",
			ChunkSize:          500,
			ChunkOverlap:       100,
			Renderer:           "http",
			JavaScriptWaitTime: "2s",
			Timeout:            "30s",
			UserAgent:          "Respondeo/1.0 (Document Ingest)",
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
		},
		Gemini: GeminiConfig{
			Model:          "gemini-2.5-flash",
			EmbedModel:     "gemini-embedding-001",
			EmbedDimension: 768,
			Timeout:        "2m",
			Temperature:    0.2,
		},
		Claude: ClaudeConfig{
			Model:       "claude-haiku-4-5",
			MaxTokens:   2048,
			Timeout:     "2m",
			Temperature: 0.2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads and merges configuration files in order.
// Priority: defaults -> file1 -> file2 -> ... -> env. CLI overrides are applied by the caller.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal merges into the existing values, later files override earlier ones
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks field constraints and cross-field rules
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("invalid configuration: ingest.chunk_overlap (%d) must be smaller than ingest.chunk_size (%d)",
			c.Ingest.ChunkOverlap, c.Ingest.ChunkSize)
	}
	if c.Index.DiversityPool > 0 && c.Index.DiversityPool < c.Index.TopK {
		return fmt.Errorf("invalid configuration: index.diversity_pool (%d) must be >= index.top_k (%d)",
			c.Index.DiversityPool, c.Index.TopK)
	}

	for name, value := range map[string]string{
		"chat.request_timeout":        c.Chat.RequestTimeout,
		"wikipedia.timeout":           c.Wikipedia.Timeout,
		"ingest.timeout":              c.Ingest.Timeout,
		"ingest.javascript_wait_time": c.Ingest.JavaScriptWaitTime,
		"gemini.timeout":              c.Gemini.Timeout,
		"claude.timeout":              c.Claude.Timeout,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid configuration: %s: %w", name, err)
		}
	}

	return nil
}

// applyEnvOverrides applies RESPONDEO_* environment variables (override all file configs)
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("RESPONDEO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("RESPONDEO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("RESPONDEO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if path := os.Getenv("RESPONDEO_STORAGE_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}
	if reset := os.Getenv("RESPONDEO_STORAGE_BADGER_RESET_ON_STARTUP"); reset != "" {
		if r, err := strconv.ParseBool(reset); err == nil {
			config.Storage.Badger.ResetOnStartup = r
		}
	}

	// Index configuration
	if corpus := os.Getenv("RESPONDEO_INDEX_CORPUS"); corpus != "" {
		config.Index.Corpus = corpus
	}
	if topK := os.Getenv("RESPONDEO_INDEX_TOP_K"); topK != "" {
		if k, err := strconv.Atoi(topK); err == nil {
			config.Index.TopK = k
		}
	}
	if pool := os.Getenv("RESPONDEO_INDEX_DIVERSITY_POOL"); pool != "" {
		if p, err := strconv.Atoi(pool); err == nil {
			config.Index.DiversityPool = p
		}
	}
	if lambda := os.Getenv("RESPONDEO_INDEX_MMR_LAMBDA"); lambda != "" {
		if l, err := strconv.ParseFloat(lambda, 32); err == nil {
			config.Index.MMRLambda = float32(l)
		}
	}

	// Chat configuration
	if policy := os.Getenv("RESPONDEO_CHAT_SUFFICIENCY_POLICY"); policy != "" {
		config.Chat.SufficiencyPolicy = SufficiencyPolicy(strings.ToLower(policy))
	}
	if minChars := os.Getenv("RESPONDEO_CHAT_MIN_CONTEXT_CHARS"); minChars != "" {
		if m, err := strconv.Atoi(minChars); err == nil {
			config.Chat.MinContextChars = m
		}
	}
	if timeout := os.Getenv("RESPONDEO_CHAT_REQUEST_TIMEOUT"); timeout != "" {
		config.Chat.RequestTimeout = timeout
	}
	if enabled := os.Getenv("RESPONDEO_CHAT_SECONDARY_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Chat.SecondaryEnabled = e
		}
	}

	// Wikipedia configuration
	if baseURL := os.Getenv("RESPONDEO_WIKIPEDIA_BASE_URL"); baseURL != "" {
		config.Wikipedia.BaseURL = baseURL
	}
	if language := os.Getenv("RESPONDEO_WIKIPEDIA_LANGUAGE"); language != "" {
		config.Wikipedia.Language = language
	}
	if topK := os.Getenv("RESPONDEO_WIKIPEDIA_TOP_K_RESULTS"); topK != "" {
		if k, err := strconv.Atoi(topK); err == nil {
			config.Wikipedia.TopKResults = k
		}
	}
	if maxChars := os.Getenv("RESPONDEO_WIKIPEDIA_DOC_CONTENT_CHARS_MAX"); maxChars != "" {
		if m, err := strconv.Atoi(maxChars); err == nil {
			config.Wikipedia.DocContentCharsMax = m
		}
	}
	if rateLimit := os.Getenv("RESPONDEO_WIKIPEDIA_RATE_LIMIT"); rateLimit != "" {
		if r, err := strconv.ParseFloat(rateLimit, 64); err == nil {
			config.Wikipedia.RateLimit = r
		}
	}

	// Ingest configuration
	if uploadDir := os.Getenv("RESPONDEO_INGEST_UPLOAD_DIR"); uploadDir != "" {
		config.Ingest.UploadDir = uploadDir
	}
	if chunkSize := os.Getenv("RESPONDEO_INGEST_CHUNK_SIZE"); chunkSize != "" {
		if c, err := strconv.Atoi(chunkSize); err == nil {
			config.Ingest.ChunkSize = c
		}
	}
	if chunkOverlap := os.Getenv("RESPONDEO_INGEST_CHUNK_OVERLAP"); chunkOverlap != "" {
		if c, err := strconv.Atoi(chunkOverlap); err == nil {
			config.Ingest.ChunkOverlap = c
		}
	}
	if renderer := os.Getenv("RESPONDEO_INGEST_RENDERER"); renderer != "" {
		config.Ingest.Renderer = renderer
	}

	// LLM provider configuration
	if provider := os.Getenv("RESPONDEO_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(strings.ToLower(provider))
	}

	// Gemini configuration (GOOGLE_API_KEY is the name most Gemini tooling uses)
	if apiKey := os.Getenv("RESPONDEO_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	} else if apiKey := os.Getenv("GOOGLE_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if baseURL := os.Getenv("RESPONDEO_GEMINI_BASE_URL"); baseURL != "" {
		config.Gemini.BaseURL = baseURL
	}
	if model := os.Getenv("RESPONDEO_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if embedModel := os.Getenv("RESPONDEO_GEMINI_EMBED_MODEL"); embedModel != "" {
		config.Gemini.EmbedModel = embedModel
	}
	if dim := os.Getenv("RESPONDEO_GEMINI_EMBED_DIMENSION"); dim != "" {
		if d, err := strconv.Atoi(dim); err == nil {
			config.Gemini.EmbedDimension = d
		}
	}
	if timeout := os.Getenv("RESPONDEO_GEMINI_TIMEOUT"); timeout != "" {
		config.Gemini.Timeout = timeout
	}
	if temperature := os.Getenv("RESPONDEO_GEMINI_TEMPERATURE"); temperature != "" {
		if t, err := strconv.ParseFloat(temperature, 32); err == nil {
			config.Gemini.Temperature = float32(t)
		}
	}

	// Claude configuration
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("RESPONDEO_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey // RESPONDEO_ prefix takes priority
	}
	if model := os.Getenv("RESPONDEO_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}
	if maxTokens := os.Getenv("RESPONDEO_CLAUDE_MAX_TOKENS"); maxTokens != "" {
		if mt, err := strconv.Atoi(maxTokens); err == nil {
			config.Claude.MaxTokens = mt
		}
	}
	if timeout := os.Getenv("RESPONDEO_CLAUDE_TIMEOUT"); timeout != "" {
		config.Claude.Timeout = timeout
	}
	if temperature := os.Getenv("RESPONDEO_CLAUDE_TEMPERATURE"); temperature != "" {
		if t, err := strconv.ParseFloat(temperature, 32); err == nil {
			config.Claude.Temperature = float32(t)
		}
	}

	// Logging configuration
	if level := os.Getenv("RESPONDEO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("RESPONDEO_LOG_OUTPUT"); output != "" {
		var outputs []string
		for _, o := range strings.Split(output, ",") {
			if o = strings.TrimSpace(o); o != "" {
				outputs = append(outputs, o)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// apiKeySources lists, per key name, the environment variables and the KV keys
// that may hold it. KV keys are lowercase because .env loading lowercases names.
var apiKeySources = map[string]struct {
	env []string
	kv  []string
}{
	"gemini_api_key":    {env: []string{"RESPONDEO_GEMINI_API_KEY", "GOOGLE_API_KEY"}, kv: []string{"gemini_api_key", "google_api_key", "respondeo_gemini_api_key"}},
	"google_api_key":    {env: []string{"RESPONDEO_GEMINI_API_KEY", "GOOGLE_API_KEY"}, kv: []string{"google_api_key", "gemini_api_key", "respondeo_gemini_api_key"}},
	"anthropic_api_key": {env: []string{"RESPONDEO_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"}, kv: []string{"anthropic_api_key", "claude_api_key", "respondeo_claude_api_key"}},
	"claude_api_key":    {env: []string{"RESPONDEO_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"}, kv: []string{"claude_api_key", "anthropic_api_key", "respondeo_claude_api_key"}},
}

// ResolveAPIKey resolves an API key with priority: environment -> KV store -> config.
// Every alias of name is tried in each tier. kvStorage may be nil.
func ResolveAPIKey(ctx context.Context, kvStorage interfaces.KeyValueStorage, name string, configFallback string) (string, error) {
	sources, ok := apiKeySources[name]
	if !ok {
		sources.kv = []string{name}
	}

	for _, envVarName := range sources.env {
		if envValue := os.Getenv(envVarName); envValue != "" {
			return envValue, nil
		}
	}

	if kvStorage != nil {
		for _, key := range sources.kv {
			apiKey, err := kvStorage.Get(ctx, key)
			if err == nil && apiKey != "" {
				return apiKey, nil
			}
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment, KV store, or config", name)
}

// ParseDurationOr parses a duration string, returning fallback when empty or invalid
func ParseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Environment)
	return env == "production" || env == "prod"
}
