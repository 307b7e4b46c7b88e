package store

import (
	"context"
	"fmt"
	"time"
)

// Project is a registered target database. URL is a secret and never serialized.
type Project struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	Title     string    `db:"title" json:"title"`
	Type      string    `db:"type" json:"type"`
	URL       string    `db:"url" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

const projectColumns = `id::text AS id, user_id::text AS user_id, title, type, url, created_at, updated_at`

type NewProject struct {
	UserID string
	Title  string
	Type   string
	URL    string
}

// GetProject returns a project owned by userID. Projects of other users are not found.
func (s *Store) GetProject(ctx context.Context, userID, projectID string) (*Project, error) {
	if err := checkID("project", projectID); err != nil {
		return nil, err
	}
	p, err := QueryOne[Project](ctx, s.Pool,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1 AND user_id = $2`, projectID, userID)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", projectID, err)
	}
	return p, nil
}

func (s *Store) ListProjects(ctx context.Context, userID string) ([]Project, error) {
	return QueryAll[Project](ctx, s.Pool,
		`SELECT `+projectColumns+` FROM projects WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (s *Store) CreateProject(ctx context.Context, np NewProject) (*Project, error) {
	return QueryOne[Project](ctx, s.Pool,
		`INSERT INTO projects (user_id, title, type, url) VALUES ($1, $2, $3, $4) RETURNING `+projectColumns,
		np.UserID, np.Title, np.Type, np.URL)
}

// UpdateProjectTitle renames a project. The URL cannot be changed.
func (s *Store) UpdateProjectTitle(ctx context.Context, userID, projectID, title string) (*Project, error) {
	if err := checkID("project", projectID); err != nil {
		return nil, err
	}
	p, err := QueryOne[Project](ctx, s.Pool,
		`UPDATE projects SET title = $3, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2 RETURNING `+projectColumns,
		projectID, userID, title)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", projectID, err)
	}
	return p, nil
}

func (s *Store) DeleteProject(ctx context.Context, userID, projectID string) error {
	if err := checkID("project", projectID); err != nil {
		return err
	}
	n, err := Exec(ctx, s.Pool, `DELETE FROM projects WHERE id = $1 AND user_id = $2`, projectID, userID)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	return nil
}
