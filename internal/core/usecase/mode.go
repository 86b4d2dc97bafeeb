package usecase

import (
	"regexp"

	"github.com/roofwise/compliance-assistant/internal/core/domain"
)

// strictTriggers are phrasings that demand a citation-backed answer even
// when the intent classifier was not confident.
var strictTriggers = regexp.MustCompile(`(?i)\b(what clause|which clause|cite|citation|per the (code|standard)|according to|is (it|this) compliant|min(imum)? (pitch|spacing|cover|lap)|max(imum)? (span|spacing))\b`)

// SelectMode chooses between the fast, citation-free synthesis path and
// the citation-backed strict path. Ambiguous queries default to fast
// synthesis.
func SelectMode(query string, intent domain.Intent) domain.AnswerMode {
	if intent == domain.IntentCompliance {
		return domain.ModeStrict
	}
	if strictTriggers.MatchString(query) {
		return domain.ModeStrict
	}
	return domain.ModeFast
}
