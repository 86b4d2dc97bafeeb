package usecase

import (
	"regexp"

	"github.com/roofwise/compliance-assistant/internal/core/domain"
)

// Intent classification is deliberately a fixed pattern table rather than
// a model call: it has to be deterministic, free, and testable offline.
var intentPatterns = []struct {
	intent     domain.Intent
	confidence float64
	pattern    *regexp.Regexp
}{
	{
		intent:     domain.IntentCompliance,
		confidence: 0.9,
		pattern: regexp.MustCompile(`(?i)\b(comply|compliance|compliant|clause|acceptable solution|building code|nzbc|code of practice|consent|amendment|minimum|maximum|required|requirement|allowed|permitted)\b`),
	},
	{
		intent:     domain.IntentInstallation,
		confidence: 0.8,
		pattern:    regexp.MustCompile(`(?i)\b(install|installing|installation|fix|fixing|fasten|lap|laying|flashing detail|how (do|should) i)\b`),
	},
	{
		intent:     domain.IntentProduct,
		confidence: 0.8,
		pattern:    regexp.MustCompile(`(?i)\b(product|profile|gauge|coating|colour|color|warranty|supplier|brand)\b`),
	},
}

// ClassifyIntent returns the first matching intent category, or the
// general intent with middling confidence for everything else.
func ClassifyIntent(query string) (domain.Intent, float64) {
	for _, entry := range intentPatterns {
		if entry.pattern.MatchString(query) {
			return entry.intent, entry.confidence
		}
	}
	return domain.IntentGeneral, 0.5
}
