package usecase

import (
	"github.com/roofwise/compliance-assistant/internal/core/domain"
	"github.com/roofwise/compliance-assistant/internal/rules"
)

// recencyFactor is the flat bonus applied to sources flagged as
// most-current.
const recencyFactor = 1.05

// BoostPolicy rewrites per-source weights from query features. Pure
// function of the query string and the immutable rule tables.
type BoostPolicy struct {
	rules *rules.Ruleset
}

func NewBoostPolicy(rs *rules.Ruleset) *BoostPolicy {
	return &BoostPolicy{rules: rs}
}

// Evaluate returns the source-prefix multipliers triggered by the query
// and the tags of the rules that fired (e.g. "amendment-query").
func (p *BoostPolicy) Evaluate(query string) (map[string]float64, []string) {
	return p.rules.MatchBoosts(query)
}

// Boost resolves the effective multiplier for one source, including the
// recency bonus. The longest matching source prefix wins.
func (p *BoostPolicy) Boost(source string, boosts map[string]float64) float64 {
	factor := rules.BoostFor(source, boosts)
	if p.rules.IsCurrent(source) {
		factor *= recencyFactor
	}
	return factor
}

// Apply rescales a raw score by the source's boost and clamps to [0,1].
func (p *BoostPolicy) Apply(raw float64, source string, boosts map[string]float64) float64 {
	return clamp01(sanitizeScore(raw) * p.Boost(source, boosts))
}

// ApplyAll boosts every merged result in place and restores descending
// score order.
func (p *BoostPolicy) ApplyAll(results []domain.ScoredPassage, boosts map[string]float64) {
	if len(boosts) == 0 && !p.anyCurrent(results) {
		return
	}
	for i := range results {
		results[i].FinalScore = p.Apply(results[i].FinalScore, results[i].Passage.Source, boosts)
	}
	sortByFinalScore(results)
}

func (p *BoostPolicy) anyCurrent(results []domain.ScoredPassage) bool {
	for _, r := range results {
		if p.rules.IsCurrent(r.Passage.Source) {
			return true
		}
	}
	return false
}
