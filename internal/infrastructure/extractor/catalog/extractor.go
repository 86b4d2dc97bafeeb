package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/roofwise/compliance-assistant/internal/core/domain"
	"github.com/roofwise/compliance-assistant/internal/core/ports"
)

// Extractor flattens spreadsheet product catalogs (span tables, fastener
// schedules) into text. Each sheet becomes one page; rows are rendered as
// pipe-separated lines so column relationships survive into the index.
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

	book, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("parse workbook %s: %w", doc.Filename, err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	pages := make([]ports.PageText, 0, len(sheets))
	for i, sheet := range sheets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := book.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		text := renderSheet(sheet, rows)
		if text == "" {
			continue
		}
		pages = append(pages, ports.PageText{Page: i + 1, Text: text})
	}
	return pages, nil
}

func renderSheet(name string, rows [][]string) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteString("\n")
	empty := true
	for _, row := range rows {
		line := strings.TrimSpace(strings.Join(row, " | "))
		if strings.Trim(line, "| ") == "" {
			continue
		}
		empty = false
		b.WriteString(line)
		b.WriteString("\n")
	}
	if empty {
		return ""
	}
	return strings.TrimSpace(b.String())
}
