package usecase

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/roofwise/compliance-assistant/internal/core/domain"
)

type rescueVectorFake struct {
	results    []domain.ScoredPassage
	err        error
	calls      int
	gotSources []string
	gotLimit   int
}

func (f *rescueVectorFake) IndexPassages(context.Context, []domain.Passage, [][]float32) error {
	return errors.New("not implemented")
}

func (f *rescueVectorFake) Search(_ context.Context, _ []float32, limit int, sources []string) ([]domain.ScoredPassage, error) {
	f.calls++
	f.gotSources = sources
	f.gotLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func newRescuer(t *testing.T, vectors *rescueVectorFake) *PriorityRescuer {
	t.Helper()
	rs := testRules(t)
	return NewPriorityRescuer(vectors, NewBoostPolicy(rs), rs, testLogger())
}

func generalMerged(scores ...float64) []domain.ScoredPassage {
	out := make([]domain.ScoredPassage, 0, len(scores))
	for i, s := range scores {
		res := scoredPassage("B1/AS1", i+1, 0, 0, 0)
		res.FinalScore = s
		out = append(out, res)
	}
	return out
}

func TestRescueAdmitsCompetitivePriorityCandidates(t *testing.T) {
	vectors := &rescueVectorFake{
		results: []domain.ScoredPassage{
			scoredPassage("MRM COP", 7, 0, 0.62, 0),
			scoredPassage("MRM COP", 8, 0, 0.58, 0),
			scoredPassage("MRM COP", 9, 0, 0.55, 0),
		},
	}
	rescuer := newRescuer(t, vectors)

	merged := generalMerged(0.60, 0.55, 0.50)
	lex := LexiconResult{HasHits: true}

	got, admitted := rescuer.Rescue(context.Background(), []float32{0.1, 0.2}, merged, lex, nil, 3)

	if admitted != rescueMaxAdmissions {
		t.Fatalf("admitted = %d, want %d", admitted, rescueMaxAdmissions)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want topK 3", len(got))
	}
	priorityCount := 0
	for _, res := range got {
		if res.Passage.Source == "MRM COP" {
			priorityCount++
		}
	}
	if priorityCount != 2 {
		t.Fatalf("priority passages in result = %d, want 2", priorityCount)
	}
	if vectors.gotLimit != rescueSearchLimit {
		t.Fatalf("search limit = %d, want %d", vectors.gotLimit, rescueSearchLimit)
	}
	wantSources := []string{"NZS 3604", "E2/AS1", "B1/AS1 Amendment 13", "MRM COP"}
	if !reflect.DeepEqual(vectors.gotSources, wantSources) {
		t.Fatalf("search sources = %v, want %v", vectors.gotSources, wantSources)
	}
}

func TestRescueSkipsWhenPriorityAlreadyInTop(t *testing.T) {
	vectors := &rescueVectorFake{}
	rescuer := newRescuer(t, vectors)

	merged := generalMerged(0.60, 0.55)
	merged[0].Passage.Source = "NZS 3604"
	lex := LexiconResult{HasHits: true}

	got, admitted := rescuer.Rescue(context.Background(), []float32{0.1}, merged, lex, nil, 3)
	if admitted != 0 || vectors.calls != 0 {
		t.Fatalf("admitted = %d, calls = %d, want no rescue", admitted, vectors.calls)
	}
	if !reflect.DeepEqual(got, merged) {
		t.Fatal("result changed without admissions")
	}
}

func TestRescueSkipsWithoutLexiconHits(t *testing.T) {
	vectors := &rescueVectorFake{}
	rescuer := newRescuer(t, vectors)

	_, admitted := rescuer.Rescue(context.Background(), []float32{0.1}, generalMerged(0.6), LexiconResult{}, nil, 3)
	if admitted != 0 || vectors.calls != 0 {
		t.Fatalf("admitted = %d, calls = %d, want no rescue", admitted, vectors.calls)
	}
}

func TestRescueSkipsWithoutQueryVector(t *testing.T) {
	vectors := &rescueVectorFake{}
	rescuer := newRescuer(t, vectors)

	_, admitted := rescuer.Rescue(context.Background(), nil, generalMerged(0.6), LexiconResult{HasHits: true}, nil, 3)
	if admitted != 0 || vectors.calls != 0 {
		t.Fatalf("admitted = %d, calls = %d, want no rescue", admitted, vectors.calls)
	}
}

func TestRescueRejectsBelowCutoff(t *testing.T) {
	vectors := &rescueVectorFake{
		results: []domain.ScoredPassage{
			scoredPassage("NZS 3604", 99, 0, 0.40, 0), // 0.40 < 0.8*0.9
		},
	}
	rescuer := newRescuer(t, vectors)

	merged := generalMerged(0.85, 0.80)
	got, admitted := rescuer.Rescue(context.Background(), []float32{0.1}, merged, LexiconResult{HasHits: true}, nil, 3)
	if admitted != 0 {
		t.Fatalf("admitted = %d, want 0", admitted)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want unchanged merged set", len(got))
	}
}

func TestRescueUsesDefaultCutoffOnEmptyMerged(t *testing.T) {
	vectors := &rescueVectorFake{
		results: []domain.ScoredPassage{
			scoredPassage("NZS 3604", 99, 0, 0.38, 0), // >= 0.4*0.9
		},
	}
	rescuer := newRescuer(t, vectors)

	got, admitted := rescuer.Rescue(context.Background(), []float32{0.1}, nil, LexiconResult{HasHits: true}, nil, 3)
	if admitted != 1 || len(got) != 1 {
		t.Fatalf("admitted = %d, len = %d, want 1 admission", admitted, len(got))
	}
	if got[0].Passage.Source != "NZS 3604" {
		t.Fatalf("source = %s", got[0].Passage.Source)
	}
}

func TestRescueSearchFailureLeavesMergedUntouched(t *testing.T) {
	vectors := &rescueVectorFake{err: errors.New("qdrant down")}
	rescuer := newRescuer(t, vectors)

	merged := generalMerged(0.6, 0.5)
	got, admitted := rescuer.Rescue(context.Background(), []float32{0.1}, merged, LexiconResult{HasHits: true}, nil, 3)
	if admitted != 0 || len(got) != 2 {
		t.Fatalf("admitted = %d, len = %d, want untouched set", admitted, len(got))
	}
}

func TestRescueDeduplicatesAgainstMerged(t *testing.T) {
	vectors := &rescueVectorFake{
		results: []domain.ScoredPassage{
			scoredPassage("MRM COP", 7, 0, 0.62, 0),
		},
	}
	rescuer := newRescuer(t, vectors)

	merged := generalMerged(0.60, 0.55, 0.50)
	already := scoredPassage("MRM COP", 7, 0, 0, 0)
	already.FinalScore = 0.45
	merged = append(merged, already)

	_, admitted := rescuer.Rescue(context.Background(), []float32{0.1}, merged, LexiconResult{HasHits: true}, nil, 3)
	if admitted != 0 {
		t.Fatalf("admitted = %d, want 0 (candidate already present)", admitted)
	}
}
