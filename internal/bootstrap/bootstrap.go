package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roofwise/compliance-assistant/internal/config"
	"github.com/roofwise/compliance-assistant/internal/core/ports"
	"github.com/roofwise/compliance-assistant/internal/core/usecase"
	"github.com/roofwise/compliance-assistant/internal/infrastructure/chunking"
	"github.com/roofwise/compliance-assistant/internal/infrastructure/extractor"
	"github.com/roofwise/compliance-assistant/internal/infrastructure/extractor/catalog"
	"github.com/roofwise/compliance-assistant/internal/infrastructure/extractor/pdfdoc"
	"github.com/roofwise/compliance-assistant/internal/infrastructure/extractor/plaintext"
	"github.com/roofwise/compliance-assistant/internal/infrastructure/llm/ollama"
	natsqueue "github.com/roofwise/compliance-assistant/internal/infrastructure/queue/nats"
	"github.com/roofwise/compliance-assistant/internal/infrastructure/repository/memory"
	"github.com/roofwise/compliance-assistant/internal/infrastructure/repository/postgres"
	"github.com/roofwise/compliance-assistant/internal/infrastructure/resilience"
	"github.com/roofwise/compliance-assistant/internal/infrastructure/storage/localfs"
	"github.com/roofwise/compliance-assistant/internal/infrastructure/vector/qdrant"
	"github.com/roofwise/compliance-assistant/internal/rules"
)

// SessionPurger is implemented by session stores that support periodic
// cleanup of expired gate sessions.
type SessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

type App struct {
	Config config.Config
	Rules  *rules.Ruleset

	Queue     ports.MessageQueue
	Repo      ports.DocumentRepository
	Passages  ports.PassageStore
	Sessions  ports.SessionStore
	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor
	AskUC     ports.AskService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ruleset, err := rules.Load(cfg.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("load retrieval rules: %w", err)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	passages := postgres.NewPassageRepository(db)

	var sessions ports.SessionStore
	if strings.EqualFold(cfg.SessionBackend, "memory") {
		sessions = memory.NewSessionStore(cfg.SessionTTL)
	} else {
		sessions = postgres.NewSessionRepository(db, cfg.SessionTTL)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig(), logger)

	queue, err := natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natsqueue.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel)
	embedder := ollama.NewResilientEmbedder(ollama.NewEmbedder(ollamaClient), executor)
	generator := ollama.NewResilientGenerator(ollama.NewGenerator(ollamaClient), executor)

	vectors := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	extract := extractor.NewDispatcher(
		pdfdoc.NewExtractor(storage),
		catalog.NewExtractor(storage),
		plaintext.NewExtractor(storage),
	)

	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, queue)
	processUC := usecase.NewProcessDocumentUseCase(repo, extract, chunker, embedder, passages, vectors)
	askUC := usecase.NewAskUseCase(ruleset, passages, vectors, embedder, generator, sessions, usecase.AskConfig{
		TopK:              cfg.AskTopK,
		FastLimit:         cfg.AskFastLimit,
		CandidateLimit:    cfg.AskCandidates,
		MaxCitations:      cfg.AskMaxCitations,
		SearchTimeout:     cfg.AskSearchTimeout,
		GroundingPassages: cfg.GroundingPassages,
		GroundingChars:    cfg.GroundingChars,
	}, logger)

	return &App{
		Config: cfg,
		Rules:  ruleset,

		Queue:     queue,
		Repo:      repo,
		Passages:  passages,
		Sessions:  sessions,
		IngestUC:  ingestUC,
		ProcessUC: processUC,
		AskUC:     askUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
