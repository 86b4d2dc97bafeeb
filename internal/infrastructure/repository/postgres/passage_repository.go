package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roofwise/compliance-assistant/internal/core/domain"
)

// PassageRepository backs the lexical half of hybrid retrieval with
// Postgres full-text search. Rank scores are raw ts_rank values; the
// pipeline normalizes them per batch.
type PassageRepository struct {
	db *sql.DB
}

func NewPassageRepository(db *sql.DB) *PassageRepository {
	return &PassageRepository{db: db}
}

const searchColumns = `id, source, page, clause, clause_title, content, snippet, priority, is_active,
	ts_rank(content_tsv, websearch_to_tsquery('english', $1)) AS rank`

func (r *PassageRepository) SearchText(ctx context.Context, query string, sources []string, limit int) ([]domain.ScoredPassage, error) {
	var rows *sql.Rows
	var err error
	if len(sources) == 0 {
		rows, err = r.db.QueryContext(ctx, `
SELECT `+searchColumns+`
FROM passages
WHERE is_active AND content_tsv @@ websearch_to_tsquery('english', $1)
ORDER BY rank DESC
LIMIT $2
`, query, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, `
SELECT `+searchColumns+`
FROM passages
WHERE is_active AND content_tsv @@ websearch_to_tsquery('english', $1) AND source = ANY($2)
ORDER BY rank DESC
LIMIT $3
`, query, sources, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("search passages: %w", err)
	}
	defer rows.Close()

	var out []domain.ScoredPassage
	for rows.Next() {
		var p domain.Passage
		var rank float64
		if err := rows.Scan(
			&p.ID, &p.Source, &p.Page, &p.Clause, &p.ClauseTitle,
			&p.Content, &p.Snippet, &p.Priority, &p.IsActive, &rank,
		); err != nil {
			return nil, fmt.Errorf("scan passage: %w", err)
		}
		out = append(out, domain.ScoredPassage{Passage: p, LexicalScore: rank})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passages: %w", err)
	}
	return out, nil
}

func (r *PassageRepository) InsertPassages(ctx context.Context, documentID string, passages []domain.Passage) error {
	if len(passages) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO passages (id, document_id, source, page, clause, clause_title, content, snippet, priority, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range passages {
		if _, err := stmt.ExecContext(ctx,
			p.ID, documentID, p.Source, p.Page, p.Clause, p.ClauseTitle,
			p.Content, p.Snippet, p.Priority, p.IsActive,
		); err != nil {
			return fmt.Errorf("insert passage %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert tx: %w", err)
	}
	return nil
}

// SetSourceActive flips visibility for a whole collection, used when a
// superseded edition is replaced.
func (r *PassageRepository) SetSourceActive(ctx context.Context, source string, active bool) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE passages
SET is_active = $2
WHERE source = $1
`, source, active)
	if err != nil {
		return fmt.Errorf("set source active: %w", err)
	}
	return nil
}
