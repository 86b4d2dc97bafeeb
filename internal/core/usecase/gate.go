package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roofwise/compliance-assistant/internal/core/domain"
	"github.com/roofwise/compliance-assistant/internal/core/ports"
	"github.com/roofwise/compliance-assistant/internal/rules"
)

// Gatekeeper is the conversation state machine that withholds retrieval
// until a gated question category has all required inputs. States per
// session: no session -> gate pending -> resolved (session cleared), with
// gate pending looping while fields remain missing.
type Gatekeeper struct {
	rules    *rules.Ruleset
	sessions ports.SessionStore
	logger   *slog.Logger
}

func NewGatekeeper(rs *rules.Ruleset, sessions ports.SessionStore, logger *slog.Logger) *Gatekeeper {
	return &Gatekeeper{rules: rs, sessions: sessions, logger: logger}
}

// GateOutcome is the result of one gate turn. Exactly one of Prompt and
// ResolvedQuery is set when the gate was involved; both empty means the
// query passes through untouched.
type GateOutcome struct {
	Prompt        string
	ResolvedQuery string
	Category      string
}

// Evaluate runs one turn of the state machine. Session-store failures
// degrade to pass-through: a broken gate must never block answering.
func (g *Gatekeeper) Evaluate(ctx context.Context, sessionID, question string) GateOutcome {
	session := g.loadSession(ctx, sessionID)

	if session != nil {
		return g.continueGate(ctx, session, question)
	}
	return g.maybeOpenGate(ctx, sessionID, question)
}

func (g *Gatekeeper) loadSession(ctx context.Context, sessionID string) *domain.GateSession {
	session, err := g.sessions.Get(ctx, sessionID)
	if err != nil {
		if !domain.IsKind(err, domain.ErrSessionNotFound) {
			g.logger.Warn("gate_session_load_failed", "session_id", sessionID, "error", err)
		}
		return nil
	}
	if !session.Valid() {
		// Malformed records are discarded and the gate restarted.
		g.logger.Warn("gate_session_malformed", "session_id", sessionID)
		g.deleteSession(ctx, sessionID)
		return nil
	}
	return session
}

// continueGate merges newly extracted field values into the pending gate
// and either re-prompts for what is still missing or resolves the query.
// Extraction is idempotent: replaying the same follow-up produces the
// same collected set.
func (g *Gatekeeper) continueGate(ctx context.Context, session *domain.GateSession, message string) GateOutcome {
	tmpl, ok := g.rules.TemplateByCategory(session.Category)
	if !ok {
		g.logger.Warn("gate_template_missing", "category", session.Category)
		g.deleteSession(ctx, session.ID)
		return g.maybeOpenGate(ctx, session.ID, message)
	}

	for field, value := range extractFields(tmpl, message) {
		session.CollectedFields[field] = value
	}

	missing := session.MissingFields()
	if len(missing) > 0 {
		session.UpdatedAt = time.Now().UTC()
		g.putSession(ctx, session)
		return GateOutcome{
			Prompt:   g.buildPrompt(tmpl, missing),
			Category: session.Category,
		}
	}

	resolved := synthesizeQuery(session)
	g.deleteSession(ctx, session.ID)
	return GateOutcome{ResolvedQuery: resolved, Category: session.Category}
}

// maybeOpenGate matches the question against the gate templates and opens
// a pending gate when a matching template's required fields are not fully
// derivable from the question itself.
func (g *Gatekeeper) maybeOpenGate(ctx context.Context, sessionID, question string) GateOutcome {
	for _, tmpl := range g.rules.Templates() {
		if !tmpl.Trigger.MatchString(question) {
			continue
		}

		collected := extractFields(tmpl, question)
		required := make([]string, 0, len(tmpl.Fields))
		for _, field := range tmpl.Fields {
			required = append(required, field.Name)
		}

		session := &domain.GateSession{
			ID:               sessionID,
			Category:         tmpl.Category,
			OriginalQuestion: question,
			CollectedFields:  collected,
			Pending: &domain.PendingGate{
				QuestionKey:     tmpl.Category,
				RequiredFields:  required,
				CollectedFields: snapshotFields(collected),
			},
			UpdatedAt: time.Now().UTC(),
		}

		missing := session.MissingFields()
		if len(missing) == 0 {
			// Everything was derivable from the question; no gate needed.
			return GateOutcome{}
		}

		g.putSession(ctx, session)
		return GateOutcome{
			Prompt:   g.buildPrompt(tmpl, missing),
			Category: tmpl.Category,
		}
	}
	return GateOutcome{}
}

func (g *Gatekeeper) putSession(ctx context.Context, session *domain.GateSession) {
	if err := g.sessions.Put(ctx, session); err != nil {
		g.logger.Warn("gate_session_save_failed", "session_id", session.ID, "error", err)
	}
}

func (g *Gatekeeper) deleteSession(ctx context.Context, sessionID string) {
	if err := g.sessions.Delete(ctx, sessionID); err != nil && !domain.IsKind(err, domain.ErrSessionNotFound) {
		g.logger.Warn("gate_session_delete_failed", "session_id", sessionID, "error", err)
	}
}

// buildPrompt asks for all remaining fields in one message.
func (g *Gatekeeper) buildPrompt(tmpl rules.CompiledTemplate, missing []string) string {
	prompts := make([]string, 0, len(missing))
	for _, name := range missing {
		for _, field := range tmpl.Fields {
			if field.Name == name {
				prompts = append(prompts, field.Prompt)
				break
			}
		}
	}
	switch len(prompts) {
	case 0:
		return "Could you give me a little more detail?"
	case 1:
		return fmt.Sprintf("To answer that I still need %s.", prompts[0])
	default:
		last := prompts[len(prompts)-1]
		return fmt.Sprintf("To answer that I still need %s and %s.",
			strings.Join(prompts[:len(prompts)-1], ", "), last)
	}
}

// extractFields pulls candidate values out of a message using the
// template's per-field patterns. The first non-empty capture group wins,
// falling back to the whole match.
func extractFields(tmpl rules.CompiledTemplate, message string) map[string]string {
	out := make(map[string]string)
	for _, field := range tmpl.Fields {
		match := field.Pattern.FindStringSubmatch(message)
		if match == nil {
			continue
		}
		value := match[0]
		for _, group := range match[1:] {
			if group != "" {
				value = group
				break
			}
		}
		value = strings.TrimSpace(value)
		if value != "" {
			out[field.Name] = value
		}
	}
	return out
}

// synthesizeQuery appends the collected details to the original question
// in required-field order so the resolved query is deterministic.
func synthesizeQuery(session *domain.GateSession) string {
	var sb strings.Builder
	sb.WriteString(session.OriginalQuestion)
	sb.WriteString(" Details: ")
	first := true
	for _, field := range session.Pending.RequiredFields {
		value, ok := session.CollectedFields[field]
		if !ok {
			continue
		}
		if !first {
			sb.WriteString(", ")
		}
		sb.WriteString(field)
		sb.WriteString("=")
		sb.WriteString(value)
		first = false
	}
	return sb.String()
}

func snapshotFields(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
