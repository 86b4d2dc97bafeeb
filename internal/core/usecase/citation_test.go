package usecase

import (
	"regexp"
	"strings"
	"testing"

	"github.com/roofwise/compliance-assistant/internal/core/domain"
)

var citationIDPattern = regexp.MustCompile(`^cit-\d+-[0-9a-f]{8}$`)

func TestBuildCitations(t *testing.T) {
	builder := NewCitationBuilder(testRules(t), 3)

	results := []domain.ScoredPassage{
		scoredPassage("NZS 3604", 45, 0, 0, 0),
		scoredPassage("MRM COP", 7, 0, 0, 0),
	}
	results[0].FinalScore = 0.84
	results[0].Passage.Clause = "8.5.2"
	results[0].Passage.ClauseTitle = "Fixing of roof underlay"
	results[0].Passage.Snippet = "Roof underlay shall be fixed at..."
	results[1].FinalScore = 0.71

	citations := builder.Build(results)
	if len(citations) != 2 {
		t.Fatalf("len = %d, want 2", len(citations))
	}

	first := citations[0]
	if first.PillText != "[NZS3604] p.45" {
		t.Fatalf("PillText = %q", first.PillText)
	}
	if first.ClauseID != "8.5.2" || first.ClauseTitle != "Fixing of roof underlay" {
		t.Fatalf("clause fields = %q / %q", first.ClauseID, first.ClauseTitle)
	}
	if first.Snippet != "Roof underlay shall be fixed at..." {
		t.Fatalf("Snippet = %q", first.Snippet)
	}
	if !approxEqual(first.Confidence, 0.84) {
		t.Fatalf("Confidence = %v", first.Confidence)
	}
	for i, c := range citations {
		if !citationIDPattern.MatchString(c.ID) {
			t.Fatalf("citation %d id %q does not match pattern", i, c.ID)
		}
	}
	if citations[1].PillText != "[COP] p.7" {
		t.Fatalf("PillText = %q", citations[1].PillText)
	}
}

func TestBuildCitationIDsAreDeterministic(t *testing.T) {
	builder := NewCitationBuilder(testRules(t), 3)
	results := []domain.ScoredPassage{scoredPassage("E2/AS1", 31, 0, 0, 0)}

	a := builder.Build(results)
	b := builder.Build(results)
	if a[0].ID != b[0].ID {
		t.Fatalf("ids differ across builds: %q vs %q", a[0].ID, b[0].ID)
	}
}

func TestBuildFallsBackToContentAndTruncates(t *testing.T) {
	builder := NewCitationBuilder(testRules(t), 3)

	long := strings.Repeat("pitch ≥ 8° ", 30) // multibyte runes, well past the limit
	results := []domain.ScoredPassage{scoredPassage("MRM COP", 12, 0, 0, 0)}
	results[0].Passage.Snippet = ""
	results[0].Passage.Content = long

	citations := builder.Build(results)
	got := []rune(citations[0].Snippet)
	if len(got) != maxSnippetChars {
		t.Fatalf("snippet runes = %d, want %d", len(got), maxSnippetChars)
	}
	if !strings.HasPrefix(long, citations[0].Snippet) {
		t.Fatal("snippet is not a prefix of the content")
	}
}

func TestBuildCapsAtMaxCitations(t *testing.T) {
	builder := NewCitationBuilder(testRules(t), 3)

	var results []domain.ScoredPassage
	for page := 1; page <= 5; page++ {
		results = append(results, scoredPassage("NZS 3604", page, 0, 0, 0))
	}
	if got := builder.Build(results); len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
}

func TestBuildUnknownSourceUsesNameAsLabel(t *testing.T) {
	builder := NewCitationBuilder(testRules(t), 1)
	results := []domain.ScoredPassage{scoredPassage("Vendor Datasheet", 2, 0, 0, 0)}

	citations := builder.Build(results)
	if citations[0].PillText != "[Vendor Datasheet] p.2" {
		t.Fatalf("PillText = %q", citations[0].PillText)
	}
}
