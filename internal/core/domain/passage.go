package domain

// Passage is the unit of retrieval: a page-scoped excerpt of a source
// document, stored with its embedding in the vector index and its text in
// the passage store.
type Passage struct {
	ID          string `json:"id"`
	Source      string `json:"source"`
	Page        int    `json:"page"`
	Clause      string `json:"clause,omitempty"`
	ClauseTitle string `json:"clause_title,omitempty"`
	Content     string `json:"content"`
	Snippet     string `json:"snippet,omitempty"`
	Priority    int    `json:"priority"`
	IsActive    bool   `json:"is_active"`
}

// PassageKey identifies a passage for deduplication purposes.
type PassageKey struct {
	Source string
	Page   int
}

func (p Passage) Key() PassageKey {
	return PassageKey{Source: p.Source, Page: p.Page}
}

// DefaultPriority is the mid-range weight assigned to passages whose
// source carries no explicit priority.
const DefaultPriority = 50

// ScoredPassage carries a passage through the scoring pipeline. All score
// fields are normalized to [0,1].
type ScoredPassage struct {
	Passage       Passage `json:"passage"`
	LexicalScore  float64 `json:"lexical_score"`
	SemanticScore float64 `json:"semantic_score"`
	SourceBoost   float64 `json:"source_boost"`
	FinalScore    float64 `json:"final_score"`
}

// Citation is the display-facing projection of a ranked passage. Built
// fresh per response, never persisted.
type Citation struct {
	ID          string  `json:"id"`
	Source      string  `json:"source"`
	Page        int     `json:"page"`
	ClauseID    string  `json:"clause_id,omitempty"`
	ClauseTitle string  `json:"clause_title,omitempty"`
	Snippet     string  `json:"snippet"`
	Confidence  float64 `json:"confidence"`
	PillText    string  `json:"pill_text"`
}

type Intent string

const (
	IntentCompliance   Intent = "compliance"
	IntentProduct      Intent = "product"
	IntentInstallation Intent = "installation"
	IntentGeneral      Intent = "general"
)

// AnswerMode selects the answer-generation strategy.
type AnswerMode string

const (
	// ModeStrict runs the full scored retrieval pipeline and requires the
	// answer to be citation-backed.
	ModeStrict AnswerMode = "strict"
	// ModeFast performs a wider, less precise retrieval pass purely as
	// grounding for a free-form answer; no citations are shown.
	ModeFast AnswerMode = "fast"
	// ModeGate tags clarifying-question replies produced without any
	// retrieval.
	ModeGate AnswerMode = "gate"
)

// QueryContext is built once per request and discarded with the response.
type QueryContext struct {
	Intent     Intent
	Confidence float64
	Trade      string
	Boosts     map[string]float64
	Flags      []string
}

// HasFlag reports whether a trigger tag was set during query analysis.
func (qc QueryContext) HasFlag(flag string) bool {
	for _, f := range qc.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// RetrievalStats describes what the pipeline did for one request; used
// for logging and metrics, never serialized to the caller.
type RetrievalStats struct {
	Mode               AnswerMode
	LexicalCandidates  int
	SemanticCandidates int
	Rescued            int
	Retrieved          int
}

// Answer is the response contract handed to the caller. Gate replies use
// the same shape with empty citations and Model set to "gate".
type Answer struct {
	Answer           string         `json:"answer"`
	Intent           Intent         `json:"intent"`
	Citations        []Citation     `json:"citations"`
	CanShowCitations bool           `json:"canShowCitations"`
	SessionID        string         `json:"sessionId"`
	Model            string         `json:"model"`
	Stats            RetrievalStats `json:"-"`
}
