package usecase

import (
	"context"
	"log/slog"

	"github.com/roofwise/compliance-assistant/internal/core/domain"
	"github.com/roofwise/compliance-assistant/internal/core/ports"
	"github.com/roofwise/compliance-assistant/internal/rules"
)

const (
	rescueSearchLimit   = 10
	rescueAdmitRatio    = 0.9
	rescueMaxAdmissions = 2
	// Cutoff used when the merged top-K is empty and there is nothing to
	// be competitive against.
	rescueDefaultCutoff = 0.4
)

// PriorityRescuer is the correction pass that keeps priority-domain
// queries from being starved by aggressive lexical prefiltering. It may
// displace a marginally higher-scoring general result; that trade-off is
// deliberate.
type PriorityRescuer struct {
	vectors ports.VectorStore
	policy  *BoostPolicy
	rules   *rules.Ruleset
	logger  *slog.Logger
}

func NewPriorityRescuer(vectors ports.VectorStore, policy *BoostPolicy, rs *rules.Ruleset, logger *slog.Logger) *PriorityRescuer {
	return &PriorityRescuer{vectors: vectors, policy: policy, rules: rs, logger: logger}
}

// Rescue runs only when the lexicon detector fired and none of the top-K
// merged results belong to a priority source. It admits up to two rescue
// candidates scoring at least 90% of the current top-K minimum, then
// re-sorts and truncates to top-K. Returns the (possibly) corrected set
// and the number of admissions.
func (r *PriorityRescuer) Rescue(
	ctx context.Context,
	queryVector []float32,
	merged []domain.ScoredPassage,
	lex LexiconResult,
	boosts map[string]float64,
	topK int,
) ([]domain.ScoredPassage, int) {
	if !lex.HasHits || len(queryVector) == 0 || topK <= 0 {
		return merged, 0
	}
	if r.hasPriorityInTop(merged, topK) {
		return merged, 0
	}

	priority := r.rules.PrioritySources()
	if len(priority) == 0 {
		return merged, 0
	}

	candidates, err := r.vectors.Search(ctx, queryVector, rescueSearchLimit, priority)
	if err != nil {
		r.logger.Warn("priority_rescue_search_failed", "error", err)
		return merged, 0
	}

	cutoff := rescueDefaultCutoff
	if n := min(topK, len(merged)); n > 0 {
		cutoff = merged[0].FinalScore
		for _, res := range merged[:n] {
			if res.FinalScore < cutoff {
				cutoff = res.FinalScore
			}
		}
	}
	threshold := cutoff * rescueAdmitRatio

	present := make(map[domain.PassageKey]bool, len(merged))
	for _, res := range merged {
		present[res.Passage.Key()] = true
	}

	admitted := 0
	for _, cand := range candidates {
		if admitted >= rescueMaxAdmissions {
			break
		}
		key := cand.Passage.Key()
		if present[key] {
			continue
		}
		score := r.policy.Apply(cand.SemanticScore, cand.Passage.Source, boosts)
		if score < threshold {
			continue
		}
		present[key] = true
		merged = append(merged, domain.ScoredPassage{
			Passage:       cand.Passage,
			SemanticScore: sanitizeScore(cand.SemanticScore),
			SourceBoost:   sanitizeBoost(cand.SourceBoost),
			FinalScore:    score,
		})
		admitted++
	}

	if admitted == 0 {
		return merged, 0
	}

	sortByFinalScore(merged)
	if len(merged) > topK {
		merged = merged[:topK]
	}
	return merged, admitted
}

func (r *PriorityRescuer) hasPriorityInTop(merged []domain.ScoredPassage, topK int) bool {
	n := min(topK, len(merged))
	for _, res := range merged[:n] {
		if r.rules.IsPriority(res.Passage.Source) {
			return true
		}
	}
	return false
}
