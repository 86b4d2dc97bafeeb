package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/roofwise/compliance-assistant/internal/core/domain"
)

func newPassageRepoWithMock(t *testing.T) (*PassageRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &PassageRepository{db: db}, mock, func() { _ = db.Close() }
}

func searchRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "source", "page", "clause", "clause_title", "content", "snippet", "priority", "is_active", "rank",
	})
}

func TestSearchTextScansRankedPassages(t *testing.T) {
	repo, mock, done := newPassageRepoWithMock(t)
	defer done()

	rows := searchRows().
		AddRow("p-1", "NZS 3604", 45, "8.5.2", "Fixing of roof underlay", "content a", "snippet a", 80, true, 0.61).
		AddRow("p-2", "E2/AS1", 12, "", "", "content b", "snippet b", 50, true, 0.33)

	mock.ExpectQuery("FROM passages").
		WithArgs("stud spacing", 20).
		WillReturnRows(rows)

	got, err := repo.SearchText(context.Background(), "stud spacing", nil, 20)
	if err != nil {
		t.Fatalf("SearchText() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	first := got[0]
	if first.Passage.Source != "NZS 3604" || first.Passage.Page != 45 {
		t.Fatalf("unexpected passage: %+v", first.Passage)
	}
	if first.LexicalScore != 0.61 {
		t.Fatalf("LexicalScore = %v, want raw rank", first.LexicalScore)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSearchTextEmptyResult(t *testing.T) {
	repo, mock, done := newPassageRepoWithMock(t)
	defer done()

	mock.ExpectQuery("FROM passages").
		WithArgs("nothing here", 5).
		WillReturnRows(searchRows())

	got, err := repo.SearchText(context.Background(), "nothing here", nil, 5)
	if err != nil {
		t.Fatalf("SearchText() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %d", len(got))
	}
}

func TestInsertPassagesRunsInTransaction(t *testing.T) {
	repo, mock, done := newPassageRepoWithMock(t)
	defer done()

	passages := []domain.Passage{
		{ID: "p-1", Source: "MRM COP", Page: 1, Content: "a", Snippet: "a", Priority: 80, IsActive: true},
		{ID: "p-2", Source: "MRM COP", Page: 2, Content: "b", Snippet: "b", Priority: 80, IsActive: true},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO passages")
	for _, p := range passages {
		prep.ExpectExec().
			WithArgs(p.ID, "doc-1", p.Source, p.Page, p.Clause, p.ClauseTitle, p.Content, p.Snippet, p.Priority, p.IsActive).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	if err := repo.InsertPassages(context.Background(), "doc-1", passages); err != nil {
		t.Fatalf("InsertPassages() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInsertPassagesNoopOnEmpty(t *testing.T) {
	repo, mock, done := newPassageRepoWithMock(t)
	defer done()

	if err := repo.InsertPassages(context.Background(), "doc-1", nil); err != nil {
		t.Fatalf("InsertPassages() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSetSourceActive(t *testing.T) {
	repo, mock, done := newPassageRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE passages").
		WithArgs("B1/AS1", false).
		WillReturnResult(sqlmock.NewResult(0, 17))

	if err := repo.SetSourceActive(context.Background(), "B1/AS1", false); err != nil {
		t.Fatalf("SetSourceActive() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
