package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/handlers"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/services/chat"
	"github.com/ternarybob/respondeo/internal/services/index"
	"github.com/ternarybob/respondeo/internal/services/ingest"
	"github.com/ternarybob/respondeo/internal/services/llm"
	"github.com/ternarybob/respondeo/internal/services/memory"
	"github.com/ternarybob/respondeo/internal/services/transform"
	"github.com/ternarybob/respondeo/internal/services/wikipedia"
	"github.com/ternarybob/respondeo/internal/storage"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Model providers
	LLMServices *llm.Services

	// Retrieval
	Index     interfaces.SimilarityIndex
	Secondary interfaces.Retriever

	// Answering and ingestion
	Memory        interfaces.ConversationMemory
	ChatService   interfaces.ChatService
	IngestService interfaces.IngestService

	TransformService *transform.Service

	// HTTP handlers
	APIHandler      *handlers.APIHandler
	ChatHandler     *handlers.ChatHandler
	DocumentHandler *handlers.DocumentHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	stats := app.Index.Stats()
	logger.Info().
		Str("corpus", stats.Corpus).
		Int("entries", stats.Entries).
		Bool("secondary_enabled", app.Secondary != nil).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	storageManager, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return err
	}
	a.StorageManager = storageManager

	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	// API keys kept in .env are resolved from the KV store
	if err := a.StorageManager.LoadEnvFile(context.Background(), ".env"); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to load .env file")
	}

	return nil
}

// initServices wires the model providers, the index and the answering engine
func (a *App) initServices() error {
	ctx := context.Background()

	llmServices, err := llm.NewServices(a.Config, a.StorageManager.KeyValueStorage(), a.Logger)
	if err != nil {
		return err
	}
	a.LLMServices = llmServices

	indexService := index.NewService(
		llmServices.Embedding,
		a.StorageManager.IndexStorage(),
		a.Config.Index.Corpus,
		a.Config.Index.MMRLambda,
		a.Logger,
	)
	if err := indexService.Load(ctx); err != nil {
		return fmt.Errorf("failed to load index %q: %w", a.Config.Index.Corpus, err)
	}
	a.Index = indexService

	a.Memory = memory.NewService(a.StorageManager.ConversationStorage(), a.Logger)
	a.TransformService = transform.NewService(a.Logger)

	var secondary interfaces.Retriever
	if a.Config.Chat.SecondaryEnabled {
		a.Secondary = wikipedia.NewRetrieverFromConfig(&a.Config.Wikipedia, a.Logger)
		secondary = a.Secondary
	}

	a.ChatService = chat.NewService(
		a.Index,
		a.Memory,
		llmServices.LLM,
		secondary,
		chat.Options{
			TopK:                a.Config.Index.TopK,
			DiversityPool:       a.Config.Index.DiversityPool,
			SecondaryMaxResults: a.Config.Wikipedia.TopKResults,
			SecondaryEnabled:    a.Config.Chat.SecondaryEnabled,
			Policy:              chat.NewSufficiencyPolicy(&a.Config.Chat),
		},
		a.Logger,
	)

	a.IngestService = ingest.NewService(a.Index, &a.Config.Ingest, a.TransformService, a.Logger)

	return nil
}

// initHandlers creates the HTTP handlers
func (a *App) initHandlers() {
	requestTimeout := common.ParseDurationOr(a.Config.Chat.RequestTimeout, 2*time.Minute)

	a.APIHandler = handlers.NewAPIHandler(a.Index, a.Logger)
	a.ChatHandler = handlers.NewChatHandler(a.ChatService, requestTimeout, a.Logger)
	a.DocumentHandler = handlers.NewDocumentHandler(a.IngestService, a.Logger)
}

// HealthCheck verifies the generation provider is reachable
func (a *App) HealthCheck(ctx context.Context) error {
	return a.LLMServices.LLM.HealthCheck(ctx)
}

// Close releases model clients and the database
func (a *App) Close() error {
	if a.LLMServices != nil {
		if err := a.LLMServices.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM services")
		} else {
			a.Logger.Debug().Msg("LLM services closed")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
