package ports

import (
	"context"
	"io"

	"github.com/roofwise/compliance-assistant/internal/core/domain"
)

// AskService answers a single conversational turn: either an answer with
// citations or a clarifying gate prompt.
type AskService interface {
	Ask(ctx context.Context, question, sessionID string) (*domain.Answer, error)
}

// DocumentIngestor accepts uploaded source documents.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType, source string, priority int, body io.Reader) (*domain.Document, error)
}

// DocumentProcessor turns an uploaded document into indexed passages.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}
