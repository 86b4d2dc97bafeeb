package domain

import "time"

// GateSession accumulates slot values for a gated question across
// conversation turns. It exists only between the first gate trigger and
// resolution (or idle expiry).
type GateSession struct {
	ID               string            `json:"id"`
	Category         string            `json:"category"`
	OriginalQuestion string            `json:"original_question"`
	CollectedFields  map[string]string `json:"collected_fields"`
	Pending          *PendingGate      `json:"pending,omitempty"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// PendingGate snapshots the open clarifying question.
type PendingGate struct {
	QuestionKey     string            `json:"question_key"`
	RequiredFields  []string          `json:"required_fields"`
	CollectedFields map[string]string `json:"collected_fields"`
}

// MissingFields derives the required fields not yet collected, in the
// template's declared order.
func (s *GateSession) MissingFields() []string {
	if s == nil || s.Pending == nil {
		return nil
	}
	missing := make([]string, 0, len(s.Pending.RequiredFields))
	for _, field := range s.Pending.RequiredFields {
		if _, ok := s.CollectedFields[field]; !ok {
			missing = append(missing, field)
		}
	}
	return missing
}

// Valid reports whether the session record carries the fields a pending
// gate needs. Malformed records are discarded and the gate restarted.
func (s *GateSession) Valid() bool {
	if s == nil || s.ID == "" {
		return false
	}
	if s.Pending == nil {
		return false
	}
	return s.OriginalQuestion != "" && len(s.Pending.RequiredFields) > 0
}
