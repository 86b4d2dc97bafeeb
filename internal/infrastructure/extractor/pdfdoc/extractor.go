package pdfdoc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/roofwise/compliance-assistant/internal/core/domain"
	"github.com/roofwise/compliance-assistant/internal/core/ports"
)

// Extractor pulls per-page plain text out of PDF standards documents.
// Page numbers follow the PDF page order, which is what clause citations
// refer to.
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

	pdfReader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("parse pdf %s: %w", doc.Filename, err)
	}

	total := pdfReader.NumPage()
	pages := make([]ports.PageText, 0, total)
	for num := 1; num <= total; num++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := pdfReader.Page(num)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Scanned or damaged pages yield no text; the rest of the
			// document is still worth indexing.
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		pages = append(pages, ports.PageText{Page: num, Text: text})
	}
	return pages, nil
}
