package usecase

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/roofwise/compliance-assistant/internal/core/domain"
	"github.com/roofwise/compliance-assistant/internal/rules"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRules(t *testing.T) *rules.Ruleset {
	t.Helper()
	rs, err := rules.Compile(rules.Defaults())
	if err != nil {
		t.Fatalf("compile default rules: %v", err)
	}
	return rs
}

func makePassage(source string, page int, content string) domain.Passage {
	return domain.Passage{
		ID:       fmt.Sprintf("%s-p%d", source, page),
		Source:   source,
		Page:     page,
		Content:  content,
		Priority: domain.DefaultPriority,
		IsActive: true,
	}
}

func scoredPassage(source string, page int, lexical, semantic, boost float64) domain.ScoredPassage {
	return domain.ScoredPassage{
		Passage:       makePassage(source, page, fmt.Sprintf("content of %s page %d", source, page)),
		LexicalScore:  lexical,
		SemanticScore: semantic,
		SourceBoost:   boost,
	}
}

func approxEqual(a, b float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < 1e-9
}
