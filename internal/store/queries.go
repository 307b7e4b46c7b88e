package store

import (
	"context"
	"fmt"
	"time"
)

const (
	QueryStatusApplied = "applied"
	QueryStatusUpdated = "updated"
)

// Query is a stored statement with its last output.
type Query struct {
	ID        string    `db:"id" json:"id"`
	ProjectID string    `db:"project_id" json:"projectId"`
	Text      string    `db:"text" json:"query"`
	Language  string    `db:"language" json:"language"`
	Result    string    `db:"result" json:"response"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

const queryColumns = `id::text AS id, project_id::text AS project_id, text, language, result, status, created_at, updated_at`

type NewQuery struct {
	ProjectID string
	Text      string
	Language  string
	Result    string
}

type QueryUpdate struct {
	QueryID  string
	Text     string
	Language string
	Result   string
}

func (s *Store) CreateQuery(ctx context.Context, nq NewQuery) (*Query, error) {
	return QueryOne[Query](ctx, s.Pool,
		`INSERT INTO queries (project_id, text, language, result, status)
		 VALUES ($1, $2, $3, $4, $5) RETURNING `+queryColumns,
		nq.ProjectID, nq.Text, nq.Language, nq.Result, QueryStatusApplied)
}

// UpdateQuery stores a new result for an existing query of projectID.
func (s *Store) UpdateQuery(ctx context.Context, projectID string, u QueryUpdate) (*Query, error) {
	if err := checkID("query", u.QueryID); err != nil {
		return nil, err
	}
	q, err := QueryOne[Query](ctx, s.Pool,
		`UPDATE queries SET text = $3, language = $4, result = $5, status = $6, updated_at = NOW()
		 WHERE id = $1 AND project_id = $2 RETURNING `+queryColumns,
		u.QueryID, projectID, u.Text, u.Language, u.Result, QueryStatusUpdated)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", u.QueryID, err)
	}
	return q, nil
}

// GetQuery returns a query whose project belongs to userID.
func (s *Store) GetQuery(ctx context.Context, userID, queryID string) (*Query, error) {
	if err := checkID("query", queryID); err != nil {
		return nil, err
	}
	q, err := QueryOne[Query](ctx, s.Pool,
		`SELECT q.id::text AS id, q.project_id::text AS project_id, q.text, q.language, q.result, q.status, q.created_at, q.updated_at
		 FROM queries q JOIN projects p ON p.id = q.project_id
		 WHERE q.id = $1 AND p.user_id = $2`, queryID, userID)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", queryID, err)
	}
	return q, nil
}

func (s *Store) ListQueries(ctx context.Context, projectID string) ([]Query, error) {
	return QueryAll[Query](ctx, s.Pool,
		`SELECT `+queryColumns+` FROM queries WHERE project_id = $1 ORDER BY created_at DESC`, projectID)
}

// DeleteQuery removes a query whose project belongs to userID.
func (s *Store) DeleteQuery(ctx context.Context, userID, queryID string) error {
	if err := checkID("query", queryID); err != nil {
		return err
	}
	n, err := Exec(ctx, s.Pool,
		`DELETE FROM queries q USING projects p
		 WHERE q.project_id = p.id AND q.id = $1 AND p.user_id = $2`, queryID, userID)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("query %s: %w", queryID, ErrNotFound)
	}
	return nil
}
