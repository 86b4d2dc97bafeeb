package ports

import (
	"context"
	"io"

	"github.com/roofwise/compliance-assistant/internal/core/domain"
)

// PassageStore is the relational passage store. SearchText performs a
// ranked full-text search scoped to active passages and an optional
// source allow-list; results carry the raw rank in LexicalScore.
type PassageStore interface {
	SearchText(ctx context.Context, query string, sources []string, limit int) ([]domain.ScoredPassage, error)
	InsertPassages(ctx context.Context, documentID string, passages []domain.Passage) error
	SetSourceActive(ctx context.Context, source string, active bool) error
}

// VectorStore indexes passage embeddings and performs nearest-neighbor
// search, optionally scoped to a source allow-list. Results carry the
// similarity in SemanticScore.
type VectorStore interface {
	IndexPassages(ctx context.Context, passages []domain.Passage, vectors [][]float32) error
	Search(ctx context.Context, queryVector []float32, limit int, sources []string) ([]domain.ScoredPassage, error)
}

// Embedder builds vectors for passages and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// AnswerGenerator creates the final user-facing answer from truncated
// grounding passages. The only collaborator whose failure may surface to
// the caller.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, passages []domain.Passage, mode domain.AnswerMode) (string, error)
}

// SessionStore persists gate sessions. Implementations must serialize
// concurrent updates to the same session id and expire idle sessions.
type SessionStore interface {
	Get(ctx context.Context, id string) (*domain.GateSession, error)
	Put(ctx context.Context, session *domain.GateSession) error
	Delete(ctx context.Context, id string) error
}

// DocumentRepository persists uploaded source-document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SetPassageCount(ctx context.Context, id string, count int) error
}

// ObjectStorage stores the raw uploaded files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes document-ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// PageText is one page's worth of extracted source text.
type PageText struct {
	Page int
	Text string
}

// TextExtractor extracts page-scoped plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) ([]PageText, error)
}

// Chunker splits one page's text into passage-sized chunks.
type Chunker interface {
	Split(text string) []string
}
