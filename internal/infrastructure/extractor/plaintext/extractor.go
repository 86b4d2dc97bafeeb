package plaintext

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/roofwise/compliance-assistant/internal/core/domain"
	"github.com/roofwise/compliance-assistant/internal/core/ports"
)

// Extractor reads UTF-8 text documents. Form feeds mark page breaks;
// a document without them becomes a single page.
type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) ([]ports.PageText, error) {
	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read source document: %w", err)
	}

	if !utf8.Valid(raw) {
		return nil, fmt.Errorf("not a text document: %s", doc.Filename)
	}

	pages := make([]ports.PageText, 0, 1)
	for i, segment := range strings.Split(string(raw), "\f") {
		text := strings.TrimSpace(segment)
		if text == "" {
			continue
		}
		pages = append(pages, ports.PageText{Page: i + 1, Text: text})
	}
	return pages, nil
}
