package usecase

import (
	"fmt"
	"hash/fnv"

	"github.com/roofwise/compliance-assistant/internal/core/domain"
	"github.com/roofwise/compliance-assistant/internal/rules"
)

const (
	maxSnippetChars     = 200
	defaultMaxCitations = 3
)

// CitationBuilder projects ranked passages into the bounded, display-safe
// citation structure. Pure projection; no network or storage access.
type CitationBuilder struct {
	rules        *rules.Ruleset
	maxCitations int
}

func NewCitationBuilder(rs *rules.Ruleset, maxCitations int) *CitationBuilder {
	if maxCitations <= 0 {
		maxCitations = defaultMaxCitations
	}
	return &CitationBuilder{rules: rs, maxCitations: maxCitations}
}

func (b *CitationBuilder) Build(results []domain.ScoredPassage) []domain.Citation {
	n := min(b.maxCitations, len(results))
	citations := make([]domain.Citation, 0, n)
	for i, res := range results[:n] {
		p := res.Passage
		snippet := p.Snippet
		if snippet == "" {
			snippet = p.Content
		}
		citations = append(citations, domain.Citation{
			ID:          citationID(p.Source, p.Page, i),
			Source:      p.Source,
			Page:        p.Page,
			ClauseID:    p.Clause,
			ClauseTitle: p.ClauseTitle,
			Snippet:     truncateRunes(snippet, maxSnippetChars),
			Confidence:  clamp01(res.FinalScore),
			PillText:    fmt.Sprintf("[%s] p.%d", b.rules.LabelFor(p.Source), p.Page),
		})
	}
	return citations
}

// citationID derives a stable synthetic id from source, page and list
// position, so repeated identical responses carry identical ids.
func citationID(source string, page, position int) string {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s|%d", source, page)
	return fmt.Sprintf("cit-%d-%08x", position+1, h.Sum32())
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
