package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/roofwise/compliance-assistant/internal/core/domain"
	"github.com/roofwise/compliance-assistant/internal/core/ports"
)

type statusCall struct {
	status domain.DocumentStatus
	errMsg string
}

type processRepoFake struct {
	doc          *domain.Document
	getErr       error
	statusErr    error
	statusCalls  []statusCall
	passageCount int
	countSet     bool
}

func (f *processRepoFake) Create(context.Context, *domain.Document) error { return nil }

func (f *processRepoFake) GetByID(context.Context, string) (*domain.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	copyDoc := *f.doc
	return &copyDoc, nil
}

func (f *processRepoFake) UpdateStatus(_ context.Context, _ string, status domain.DocumentStatus, errMessage string) error {
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	if f.statusErr != nil {
		return f.statusErr
	}
	return nil
}

func (f *processRepoFake) SetPassageCount(_ context.Context, _ string, count int) error {
	f.passageCount = count
	f.countSet = true
	return nil
}

type extractorFake struct {
	pages []ports.PageText
	err   error
}

func (f *extractorFake) Extract(context.Context, *domain.Document) ([]ports.PageText, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pages, nil
}

type chunkerFake struct {
	chunks []string
}

func (f *chunkerFake) Split(string) []string { return f.chunks }

type embedderFake struct {
	vectors [][]float32
	err     error
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.vectors != nil {
		return f.vectors, nil
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{float32(i)}
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(context.Context, string) ([]float32, error) { return nil, nil }

type passageStoreFake struct {
	inserted []domain.Passage
	docID    string
	err      error
}

func (f *passageStoreFake) SearchText(context.Context, string, []string, int) ([]domain.ScoredPassage, error) {
	return nil, errors.New("not implemented")
}

func (f *passageStoreFake) InsertPassages(_ context.Context, documentID string, passages []domain.Passage) error {
	if f.err != nil {
		return f.err
	}
	f.docID = documentID
	f.inserted = passages
	return nil
}

func (f *passageStoreFake) SetSourceActive(context.Context, string, bool) error {
	return errors.New("not implemented")
}

type vectorIndexFake struct {
	indexed []domain.Passage
	err     error
}

func (f *vectorIndexFake) IndexPassages(_ context.Context, passages []domain.Passage, _ [][]float32) error {
	if f.err != nil {
		return f.err
	}
	f.indexed = passages
	return nil
}

func (f *vectorIndexFake) Search(context.Context, []float32, int, []string) ([]domain.ScoredPassage, error) {
	return nil, errors.New("not implemented")
}

func processDoc() *domain.Document {
	return &domain.Document{ID: "doc-1", Source: "MRM COP", Priority: 80, Filename: "cop.pdf"}
}

func TestProcessByIDSuccess(t *testing.T) {
	repo := &processRepoFake{doc: processDoc()}
	passages := &passageStoreFake{}
	vectors := &vectorIndexFake{}
	uc := NewProcessDocumentUseCase(
		repo,
		&extractorFake{pages: []ports.PageText{{Page: 1, Text: "one"}, {Page: 2, Text: "two"}}},
		&chunkerFake{chunks: []string{"chunk a", "chunk b"}},
		&embedderFake{},
		passages,
		vectors,
	)

	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if len(repo.statusCalls) != 2 {
		t.Fatalf("expected 2 status calls, got %d", len(repo.statusCalls))
	}
	if repo.statusCalls[0].status != domain.StatusProcessing || repo.statusCalls[1].status != domain.StatusReady {
		t.Fatalf("unexpected status sequence: %+v", repo.statusCalls)
	}
	if !repo.countSet || repo.passageCount != 4 {
		t.Fatalf("expected passage count 4, got %d", repo.passageCount)
	}
	if passages.docID != "doc-1" || len(passages.inserted) != 4 {
		t.Fatalf("expected 4 inserted passages for doc-1, got %d for %s", len(passages.inserted), passages.docID)
	}
	if len(vectors.indexed) != 4 {
		t.Fatalf("expected 4 indexed passages, got %d", len(vectors.indexed))
	}
	first := passages.inserted[0]
	if first.Source != "MRM COP" || first.Page != 1 || first.Priority != 80 || !first.IsActive {
		t.Fatalf("unexpected passage: %+v", first)
	}
}

func TestProcessByIDMarksFailedOnExtractError(t *testing.T) {
	repo := &processRepoFake{doc: processDoc()}
	uc := NewProcessDocumentUseCase(
		repo,
		&extractorFake{err: errors.New("broken pdf")},
		&chunkerFake{chunks: []string{"a"}},
		&embedderFake{},
		&passageStoreFake{},
		&vectorIndexFake{},
	)

	err := uc.ProcessByID(context.Background(), "doc-1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(repo.statusCalls) != 2 || repo.statusCalls[1].status != domain.StatusFailed {
		t.Fatalf("expected processing + failed statuses, got %+v", repo.statusCalls)
	}
	if repo.statusCalls[1].errMsg == "" {
		t.Fatalf("expected failure message recorded")
	}
}

func TestProcessByIDMarksFailedOnVectorMismatch(t *testing.T) {
	repo := &processRepoFake{doc: processDoc()}
	uc := NewProcessDocumentUseCase(
		repo,
		&extractorFake{pages: []ports.PageText{{Page: 1, Text: "one"}}},
		&chunkerFake{chunks: []string{"a", "b"}},
		&embedderFake{vectors: [][]float32{{1}}},
		&passageStoreFake{},
		&vectorIndexFake{},
	)

	err := uc.ProcessByID(context.Background(), "doc-1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(repo.statusCalls) != 2 || repo.statusCalls[1].status != domain.StatusFailed {
		t.Fatalf("expected final failed status, got %+v", repo.statusCalls)
	}
}

func TestProcessByIDMarksFailedOnEmptyExtraction(t *testing.T) {
	repo := &processRepoFake{doc: processDoc()}
	uc := NewProcessDocumentUseCase(
		repo,
		&extractorFake{pages: []ports.PageText{{Page: 1, Text: ""}}},
		&chunkerFake{},
		&embedderFake{},
		&passageStoreFake{},
		&vectorIndexFake{},
	)

	err := uc.ProcessByID(context.Background(), "doc-1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if repo.statusCalls[len(repo.statusCalls)-1].status != domain.StatusFailed {
		t.Fatalf("expected failed status, got %+v", repo.statusCalls)
	}
}

func TestDetectClause(t *testing.T) {
	clause, title := detectClause("8.5.2 Fixing of roof underlay\nUnderlay shall be fixed...")
	if clause != "8.5.2" || title != "Fixing of roof underlay" {
		t.Fatalf("detectClause = %q / %q", clause, title)
	}

	clause, title = detectClause("no heading in this text")
	if clause != "" || title != "" {
		t.Fatalf("expected no clause, got %q / %q", clause, title)
	}
}

func TestBuildSnippetCollapsesWhitespace(t *testing.T) {
	got := buildSnippet("  pitch\tof   8\ndegrees  ")
	if got != "pitch of 8 degrees" {
		t.Fatalf("buildSnippet = %q", got)
	}
}
