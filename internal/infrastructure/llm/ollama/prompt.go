package ollama

import (
	"fmt"
	"strings"

	"github.com/roofwise/compliance-assistant/internal/core/domain"
)

func buildAnswerPrompt(question string, passages []domain.Passage, mode domain.AnswerMode) string {
	var contextBuilder strings.Builder
	for idx, p := range passages {
		locator := p.Source
		if p.Clause != "" {
			locator = fmt.Sprintf("%s clause %s", p.Source, p.Clause)
		}
		contextBuilder.WriteString(fmt.Sprintf(
			"[%d] %s p.%d\n%s\n\n",
			idx+1,
			locator,
			p.Page,
			p.Content,
		))
	}

	if mode == domain.ModeStrict {
		return fmt.Sprintf(`You are a building-compliance assistant for metal roofing in New Zealand.
Answer only from the numbered excerpts below. Name the source and clause you rely on.
If the excerpts do not cover the question, say so directly; never guess compliance requirements.

Question:
%s

Excerpts:
%s`, question, contextBuilder.String())
	}

	return fmt.Sprintf(`You are a practical assistant for roofing tradespeople.
Use the excerpts below as background and give a short, direct answer.
If you are unsure, recommend checking the relevant standard.

Question:
%s

Excerpts:
%s`, question, contextBuilder.String())
}
