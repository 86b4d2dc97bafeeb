package usecase

import (
	"strings"

	"github.com/roofwise/compliance-assistant/internal/rules"
)

// LexiconDetector flags queries that belong to one or more priority
// document collections via a fixed term table. Pure; no side effects.
type LexiconDetector struct {
	entries []lexiconEntry
}

type lexiconEntry struct {
	source string
	terms  []string
}

// LexiconResult seeds both the search-scoping decision and the
// priority-source rescue trigger.
type LexiconResult struct {
	HasHits       bool
	MatchedTerms  []string
	PrimarySource string
	SourceMatches map[string]int
}

func NewLexiconDetector(rs *rules.Ruleset) *LexiconDetector {
	detector := &LexiconDetector{}
	for _, src := range rs.Sources() {
		if !src.Priority || len(src.Terms) == 0 {
			continue
		}
		terms := make([]string, 0, len(src.Terms))
		for _, term := range src.Terms {
			term = strings.ToLower(strings.TrimSpace(term))
			if term != "" {
				terms = append(terms, term)
			}
		}
		detector.entries = append(detector.entries, lexiconEntry{source: src.Name, terms: terms})
	}
	return detector
}

// Detect lower-cases the query and tests substring membership for every
// term. PrimarySource is the source with the most hits; ties keep the
// earlier table entry.
func (d *LexiconDetector) Detect(query string) LexiconResult {
	q := strings.ToLower(query)
	result := LexiconResult{SourceMatches: make(map[string]int)}

	best := 0
	for _, entry := range d.entries {
		hits := 0
		for _, term := range entry.terms {
			if strings.Contains(q, term) {
				hits++
				result.MatchedTerms = append(result.MatchedTerms, term)
			}
		}
		if hits == 0 {
			continue
		}
		result.SourceMatches[entry.source] = hits
		if hits > best {
			best = hits
			result.PrimarySource = entry.source
		}
	}

	result.HasHits = best > 0
	return result
}

// MatchedSources returns the sources with at least one hit, in lexicon
// table order.
func (d *LexiconDetector) MatchedSources(result LexiconResult) []string {
	if !result.HasHits {
		return nil
	}
	out := make([]string, 0, len(result.SourceMatches))
	for _, entry := range d.entries {
		if result.SourceMatches[entry.source] > 0 {
			out = append(out, entry.source)
		}
	}
	return out
}
