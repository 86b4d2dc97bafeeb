package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/roofwise/compliance-assistant/internal/core/domain"
	"github.com/roofwise/compliance-assistant/internal/core/ports"
)

// ProcessDocumentUseCase turns an uploaded source document into indexed
// passages: extract page text, chunk, embed, then write the rows to the
// passage store and the vectors to the vector index.
type ProcessDocumentUseCase struct {
	repo      ports.DocumentRepository
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	passages  ports.PassageStore
	vectors   ports.VectorStore
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	passages ports.PassageStore,
	vectors ports.VectorStore,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		repo:      repo,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		passages:  passages,
		vectors:   vectors,
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	count, err := uc.processPipeline(ctx, documentID)
	if err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, documentID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SetPassageCount(ctx, documentID, count); err != nil {
		return fmt.Errorf("set passage count: %w", err)
	}
	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) processPipeline(ctx context.Context, documentID string) (int, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("load document: %w", err)
	}

	pages, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return 0, fmt.Errorf("extract text: %w", err)
	}

	passages := uc.buildPassages(doc, pages)
	if len(passages) == 0 {
		return 0, fmt.Errorf("no extractable text in %s", doc.Filename)
	}

	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Content
	}
	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed passages: %w", err)
	}
	if len(vectors) != len(passages) {
		return 0, fmt.Errorf("embedding count mismatch: %d passages, %d vectors", len(passages), len(vectors))
	}

	if err := uc.passages.InsertPassages(ctx, doc.ID, passages); err != nil {
		return 0, fmt.Errorf("store passages: %w", err)
	}
	if err := uc.vectors.IndexPassages(ctx, passages, vectors); err != nil {
		return 0, fmt.Errorf("index vectors: %w", err)
	}
	return len(passages), nil
}

func (uc *ProcessDocumentUseCase) buildPassages(doc *domain.Document, pages []ports.PageText) []domain.Passage {
	var out []domain.Passage
	for _, page := range pages {
		for _, chunk := range uc.chunker.Split(page.Text) {
			clause, clauseTitle := detectClause(chunk)
			out = append(out, domain.Passage{
				ID:          uuid.NewString(),
				Source:      doc.Source,
				Page:        page.Page,
				Clause:      clause,
				ClauseTitle: clauseTitle,
				Content:     chunk,
				Snippet:     buildSnippet(chunk),
				Priority:    doc.Priority,
				IsActive:    true,
			})
		}
	}
	return out
}

// clauseHeading matches numbered headings like "8.5.2 Fixing of roof
// underlay" at a line start.
var clauseHeading = regexp.MustCompile(`(?m)^\s*(\d+(?:\.\d+){1,3})\s+([A-Z][^\n]{2,79})`)

func detectClause(text string) (clause, title string) {
	match := clauseHeading.FindStringSubmatch(text)
	if match == nil {
		return "", ""
	}
	return match[1], strings.TrimSpace(match[2])
}

var whitespaceRun = regexp.MustCompile(`\s+`)

func buildSnippet(text string) string {
	collapsed := strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
	return truncateRunes(collapsed, maxSnippetChars)
}
