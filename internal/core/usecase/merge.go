package usecase

import (
	"math"
	"sort"

	"github.com/roofwise/compliance-assistant/internal/core/domain"
)

// Fixed blend weights for lexical/semantic score fusion.
const (
	weightSemantic = 0.7
	weightLexical  = 0.2
	weightBoost    = 0.1

	// Neutral defaults substituted for NaN/Inf/out-of-range inputs so a
	// single bad score can never poison a ranking.
	neutralScore = 0.5
	neutralBoost = 0.1
)

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func sanitizeScore(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return neutralScore
	}
	return clamp01(v)
}

func sanitizeBoost(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return neutralBoost
	}
	return clamp01(v)
}

func blendScores(semantic, lexical, boost float64) float64 {
	blended := weightSemantic*sanitizeScore(semantic) +
		weightLexical*sanitizeScore(lexical) +
		weightBoost*sanitizeBoost(boost)
	return clamp01(blended)
}

// normalizeLexical linearly scales raw rank scores to [0,1] by the batch
// maximum. A zero maximum yields all-zero scores.
func normalizeLexical(results []domain.ScoredPassage) []domain.ScoredPassage {
	maxScore := 0.0
	for _, r := range results {
		score := r.LexicalScore
		if math.IsNaN(score) || math.IsInf(score, 0) || score < 0 {
			continue
		}
		if score > maxScore {
			maxScore = score
		}
	}
	for i := range results {
		if maxScore == 0 {
			results[i].LexicalScore = 0
			continue
		}
		results[i].LexicalScore = sanitizeScore(results[i].LexicalScore / maxScore)
	}
	return results
}

// mergeResults combines the lexical and semantic candidate sets into one
// ranked list. Candidates present in both sets are blended; when the two
// sets do not intersect at all, the richer surviving set is ranked on its
// own so a degraded searcher never empties the response. Deduplication is
// by (source, page), first occurrence wins; the sort is stable so ties
// retain input order.
func mergeResults(lexical, semantic []domain.ScoredPassage) []domain.ScoredPassage {
	if len(semantic) == 0 {
		return rankLexicalOnly(lexical)
	}

	semByKey := make(map[domain.PassageKey]domain.ScoredPassage, len(semantic))
	for _, s := range semantic {
		key := s.Passage.Key()
		if _, exists := semByKey[key]; !exists {
			semByKey[key] = s
		}
	}

	seen := make(map[domain.PassageKey]bool, len(lexical))
	merged := make([]domain.ScoredPassage, 0, len(lexical))
	for _, lex := range lexical {
		key := lex.Passage.Key()
		if seen[key] {
			continue
		}
		sem, ok := semByKey[key]
		if !ok {
			// Lexical-only hits are not blended; the rescue pass covers
			// priority content the intersection missed.
			continue
		}
		seen[key] = true
		merged = append(merged, domain.ScoredPassage{
			Passage:       preferRicherPassage(sem.Passage, lex.Passage),
			LexicalScore:  sanitizeScore(lex.LexicalScore),
			SemanticScore: sanitizeScore(sem.SemanticScore),
			SourceBoost:   sanitizeBoost(sem.SourceBoost),
			FinalScore:    blendScores(sem.SemanticScore, lex.LexicalScore, sem.SourceBoost),
		})
	}

	if len(merged) == 0 {
		// The lexical prefilter missed the semantic neighborhood
		// entirely; rank the semantic set with the neutral lexical
		// default instead of returning nothing.
		for _, sem := range semantic {
			key := sem.Passage.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, domain.ScoredPassage{
				Passage:       sem.Passage,
				LexicalScore:  neutralScore,
				SemanticScore: sanitizeScore(sem.SemanticScore),
				SourceBoost:   sanitizeBoost(sem.SourceBoost),
				FinalScore:    blendScores(sem.SemanticScore, neutralScore, sem.SourceBoost),
			})
		}
	}

	sortByFinalScore(merged)
	return merged
}

func rankLexicalOnly(lexical []domain.ScoredPassage) []domain.ScoredPassage {
	seen := make(map[domain.PassageKey]bool, len(lexical))
	out := make([]domain.ScoredPassage, 0, len(lexical))
	for _, lex := range lexical {
		key := lex.Passage.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		score := sanitizeScore(lex.LexicalScore)
		out = append(out, domain.ScoredPassage{
			Passage:      lex.Passage,
			LexicalScore: score,
			FinalScore:   score,
		})
	}
	sortByFinalScore(out)
	return out
}

func sortByFinalScore(results []domain.ScoredPassage) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].FinalScore > results[j].FinalScore
	})
}

// preferRicherPassage keeps the semantic payload but backfills locator
// fields from the relational row, which is authoritative for text.
func preferRicherPassage(sem, lex domain.Passage) domain.Passage {
	out := lex
	if out.Snippet == "" {
		out.Snippet = sem.Snippet
	}
	if out.Clause == "" {
		out.Clause = sem.Clause
	}
	if out.ClauseTitle == "" {
		out.ClauseTitle = sem.ClauseTitle
	}
	if out.Content == "" {
		out.Content = sem.Content
	}
	return out
}
