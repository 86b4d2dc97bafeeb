package extractor

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/roofwise/compliance-assistant/internal/core/domain"
	"github.com/roofwise/compliance-assistant/internal/core/ports"
)

// Dispatcher routes a document to the extractor matching its file type.
// PDFs carry the standards themselves, workbooks carry product catalogs,
// everything else is treated as plain text.
type Dispatcher struct {
	pdf      ports.TextExtractor
	workbook ports.TextExtractor
	text     ports.TextExtractor
}

func NewDispatcher(pdf, workbook, text ports.TextExtractor) *Dispatcher {
	return &Dispatcher{pdf: pdf, workbook: workbook, text: text}
}

func (d *Dispatcher) Extract(ctx context.Context, doc *domain.Document) ([]ports.PageText, error) {
	switch strings.ToLower(filepath.Ext(doc.Filename)) {
	case ".pdf":
		return d.pdf.Extract(ctx, doc)
	case ".xlsx", ".xlsm":
		return d.workbook.Extract(ctx, doc)
	default:
		return d.text.Extract(ctx, doc)
	}
}
