package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/roofwise/compliance-assistant/internal/core/domain"
)

type sessionStoreFake struct {
	sessions map[string]*domain.GateSession
	getErr   error
	putErr   error
	puts     int
	deletes  int
}

func newSessionStoreFake() *sessionStoreFake {
	return &sessionStoreFake{sessions: make(map[string]*domain.GateSession)}
}

func (f *sessionStoreFake) Get(_ context.Context, id string) (*domain.GateSession, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	session, ok := f.sessions[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrSessionNotFound, "get session", fmt.Errorf("id %s", id))
	}
	return session, nil
}

func (f *sessionStoreFake) Put(_ context.Context, session *domain.GateSession) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.puts++
	f.sessions[session.ID] = session
	return nil
}

func (f *sessionStoreFake) Delete(_ context.Context, id string) error {
	f.deletes++
	delete(f.sessions, id)
	return nil
}

func TestGateOpensOnUnderspecifiedQuestion(t *testing.T) {
	store := newSessionStoreFake()
	gate := NewGatekeeper(testRules(t), store, testLogger())

	outcome := gate.Evaluate(context.Background(), "sess-1", "What is the minimum pitch for my roof?")

	want := "To answer that I still need the roof profile (e.g. corrugate, trapezoidal, tray) and the roof pitch in degrees."
	if outcome.Prompt != want {
		t.Fatalf("Prompt = %q, want %q", outcome.Prompt, want)
	}
	if outcome.ResolvedQuery != "" {
		t.Fatalf("ResolvedQuery = %q, want empty", outcome.ResolvedQuery)
	}
	if outcome.Category != "roof_pitch_suitability" {
		t.Fatalf("Category = %q", outcome.Category)
	}
	session, ok := store.sessions["sess-1"]
	if !ok {
		t.Fatal("session not persisted")
	}
	if session.OriginalQuestion != "What is the minimum pitch for my roof?" {
		t.Fatalf("OriginalQuestion = %q", session.OriginalQuestion)
	}
}

func TestGatePassThroughWhenFullyDerivable(t *testing.T) {
	store := newSessionStoreFake()
	gate := NewGatekeeper(testRules(t), store, testLogger())

	outcome := gate.Evaluate(context.Background(), "sess-1", "What is the minimum pitch for corrugate at 8 degrees?")

	if outcome.Prompt != "" || outcome.ResolvedQuery != "" {
		t.Fatalf("outcome = %+v, want pass-through", outcome)
	}
	if store.puts != 0 {
		t.Fatalf("puts = %d, want 0", store.puts)
	}
}

func TestGatePassThroughOnNonGatedQuestion(t *testing.T) {
	store := newSessionStoreFake()
	gate := NewGatekeeper(testRules(t), store, testLogger())

	outcome := gate.Evaluate(context.Background(), "sess-1", "What underlay goes under corrugate?")
	if outcome.Prompt != "" || outcome.ResolvedQuery != "" {
		t.Fatalf("outcome = %+v, want pass-through", outcome)
	}
}

func TestGateTwoTurnResolution(t *testing.T) {
	store := newSessionStoreFake()
	gate := NewGatekeeper(testRules(t), store, testLogger())
	ctx := context.Background()

	first := gate.Evaluate(ctx, "sess-1", "What is the minimum pitch for corrugate roofing?")
	if first.Prompt != "To answer that I still need the roof pitch in degrees." {
		t.Fatalf("first Prompt = %q", first.Prompt)
	}

	second := gate.Evaluate(ctx, "sess-1", "it's 8 degrees")
	if second.Prompt != "" {
		t.Fatalf("second Prompt = %q, want resolution", second.Prompt)
	}
	want := "What is the minimum pitch for corrugate roofing? Details: roofProfile=corrugate, pitchDeg=8"
	if second.ResolvedQuery != want {
		t.Fatalf("ResolvedQuery = %q, want %q", second.ResolvedQuery, want)
	}
	if len(store.sessions) != 0 {
		t.Fatalf("session not cleared after resolution: %v", store.sessions)
	}
}

func TestGateRepromptKeepsCollectedFields(t *testing.T) {
	store := newSessionStoreFake()
	gate := NewGatekeeper(testRules(t), store, testLogger())
	ctx := context.Background()

	gate.Evaluate(ctx, "sess-1", "What is the minimum pitch I can use?")

	// A follow-up answering only one of the two fields re-prompts for the
	// remainder; replaying it changes nothing.
	for i := 0; i < 2; i++ {
		outcome := gate.Evaluate(ctx, "sess-1", "it's a trapezoidal roof")
		if outcome.Prompt != "To answer that I still need the roof pitch in degrees." {
			t.Fatalf("round %d: Prompt = %q", i, outcome.Prompt)
		}
	}
	session := store.sessions["sess-1"]
	if session == nil || session.CollectedFields["roofProfile"] != "trapezoidal" {
		t.Fatalf("session = %+v", session)
	}

	outcome := gate.Evaluate(ctx, "sess-1", "about 12 degrees")
	want := "What is the minimum pitch I can use? Details: roofProfile=trapezoidal, pitchDeg=12"
	if outcome.ResolvedQuery != want {
		t.Fatalf("ResolvedQuery = %q, want %q", outcome.ResolvedQuery, want)
	}
}

func TestGateStoreFailureDegradesToPassThrough(t *testing.T) {
	store := newSessionStoreFake()
	store.getErr = errors.New("redis gone")
	gate := NewGatekeeper(testRules(t), store, testLogger())

	outcome := gate.Evaluate(context.Background(), "sess-1", "What underlay goes under corrugate?")
	if outcome.Prompt != "" || outcome.ResolvedQuery != "" {
		t.Fatalf("outcome = %+v, want pass-through on store failure", outcome)
	}
}

func TestGateMalformedSessionDiscarded(t *testing.T) {
	store := newSessionStoreFake()
	store.sessions["sess-1"] = &domain.GateSession{ID: "sess-1", Category: "roof_pitch_suitability"} // no Pending
	gate := NewGatekeeper(testRules(t), store, testLogger())

	outcome := gate.Evaluate(context.Background(), "sess-1", "What underlay goes under corrugate?")
	if outcome.Prompt != "" || outcome.ResolvedQuery != "" {
		t.Fatalf("outcome = %+v, want pass-through", outcome)
	}
	if _, ok := store.sessions["sess-1"]; ok {
		t.Fatal("malformed session not deleted")
	}
}

func TestGateFastenerTemplate(t *testing.T) {
	store := newSessionStoreFake()
	gate := NewGatekeeper(testRules(t), store, testLogger())
	ctx := context.Background()

	first := gate.Evaluate(ctx, "sess-2", "Which fastener do I need for zincalume cladding?")
	if first.Prompt != "To answer that I still need the corrosion environment (zone or e.g. marine, geothermal)." {
		t.Fatalf("Prompt = %q", first.Prompt)
	}

	second := gate.Evaluate(ctx, "sess-2", "the site is marine")
	want := "Which fastener do I need for zincalume cladding? Details: claddingType=zincalume, environmentZone=marine"
	if second.ResolvedQuery != want {
		t.Fatalf("ResolvedQuery = %q, want %q", second.ResolvedQuery, want)
	}
}
