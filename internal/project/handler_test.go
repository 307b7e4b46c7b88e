package project

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"sqlscope-backend/internal/auth"
	"sqlscope-backend/internal/engine"
	"sqlscope-backend/internal/introspect"
	"sqlscope-backend/internal/store"
	"sqlscope-backend/internal/target"
)

const testSecret = "test-secret"

type allUsers struct{}

func (allUsers) UserExists(ctx context.Context, id string) (bool, error) { return true, nil }

type memProjects struct {
	byID map[string]*store.Project
	seq  int
}

func (m *memProjects) GetProject(ctx context.Context, userID, projectID string) (*store.Project, error) {
	p, ok := m.byID[projectID]
	if !ok || p.UserID != userID {
		return nil, fmt.Errorf("project %s: %w", projectID, store.ErrNotFound)
	}
	return p, nil
}

func (m *memProjects) ListProjects(ctx context.Context, userID string) ([]store.Project, error) {
	out := []store.Project{}
	for _, p := range m.byID {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memProjects) CreateProject(ctx context.Context, np store.NewProject) (*store.Project, error) {
	m.seq++
	p := &store.Project{ID: fmt.Sprintf("p-%d", m.seq), UserID: np.UserID, Title: np.Title, Type: np.Type, URL: np.URL}
	m.byID[p.ID] = p
	return p, nil
}

func (m *memProjects) UpdateProjectTitle(ctx context.Context, userID, projectID, title string) (*store.Project, error) {
	p, err := m.GetProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	p.Title = title
	return p, nil
}

func (m *memProjects) DeleteProject(ctx context.Context, userID, projectID string) error {
	if _, err := m.GetProject(ctx, userID, projectID); err != nil {
		return err
	}
	delete(m.byID, projectID)
	return nil
}

type fixture struct {
	app       *fiber.App
	projects  *memProjects
	connector *target.Connector
	endpoint  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shop.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	for _, stmt := range []string{
		`CREATE TABLE users (id integer PRIMARY KEY, email text)`,
		`CREATE TABLE _migrations (version integer)`,
		`CREATE TABLE orders (id integer PRIMARY KEY, total numeric, user_id integer REFERENCES users(id))`,
		`INSERT INTO users VALUES (1, 'a@x.io')`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	connector := target.NewConnector(target.WithFlavors(target.FlavorSQLite))
	projects := &memProjects{byID: map[string]*store.Project{}}
	h := NewHandler(projects, introspect.New(connector, 2, 10, nil), connector, zap.NewNop())

	app := fiber.New(fiber.Config{ErrorHandler: engine.ErrorHandler(zap.NewNop())})
	RegisterRoutes(app, h, auth.Middleware(auth.NewVerifier(testSecret, allUsers{})))
	return &fixture{app: app, projects: projects, connector: connector, endpoint: "sqlite://" + path}
}

func (f *fixture) do(t *testing.T, user, method, path, body string) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		token, err := auth.GenerateToken(user, testSecret, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	out := map[string]any{}
	b, _ := io.ReadAll(resp.Body)
	if len(b) > 0 {
		require.NoError(t, json.Unmarshal(b, &out), string(b))
	}
	return resp.StatusCode, out
}

func (f *fixture) createProject(t *testing.T, user string) string {
	t.Helper()
	status, body := f.do(t, user, "POST", "/api/project",
		fmt.Sprintf(`{"databaseUrl":%q,"type":"sqlite","projectTitle":"Shop"}`, f.endpoint))
	require.Equal(t, 201, status, body)
	return body["data"].(map[string]any)["projectId"].(string)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, "u-1", "POST", "/api/project", `{"databaseUrl":"mysql://db/app","type":"postgres","projectTitle":"x"}`)
	assert.Equal(t, 422, status)
	assert.Equal(t, "VALIDATION_FAILED", body["error"].(map[string]any)["code"])

	status, _ = f.do(t, "u-1", "POST", "/api/project", `{"databaseUrl":"postgres://db/app","type":"postgres","projectTitle":"x"}`)
	assert.Equal(t, 422, status, "postgres is not enabled on this connector")

	status, _ = f.do(t, "u-1", "POST", "/api/project", `{"databaseUrl":"","type":"sqlite","projectTitle":""}`)
	assert.Equal(t, 422, status)

	status, _ = f.do(t, "", "POST", "/api/project", `{}`)
	assert.Equal(t, 401, status)
	assert.Empty(t, f.projects.byID)
}

func TestDescribeProject(t *testing.T) {
	f := newFixture(t)
	id := f.createProject(t, "u-1")

	status, body := f.do(t, "u-1", "GET", "/api/project/"+id, "")
	require.Equal(t, 200, status, body)
	data := body["data"].(map[string]any)
	assert.Equal(t, "sqlite", data["type"])
	assert.Equal(t, "Shop", data["title"])

	tables := data["tables"].([]any)
	require.Len(t, tables, 2)
	assert.Equal(t, "users", tables[0].(map[string]any)["title"])
	assert.Equal(t, "orders", tables[1].(map[string]any)["title"])

	refs := data["references"].([]any)
	require.Len(t, refs, 1)
	assert.Equal(t, map[string]any{"referenced": "users", "table": "orders", "originalField": "id", "column": "user_id"}, refs[0])
	assert.NotContains(t, fmt.Sprint(body), f.endpoint)
}

func TestProjectRoutesAreOwnerScoped(t *testing.T) {
	f := newFixture(t)
	id := f.createProject(t, "u-1")
	opened := f.connector.Opened()

	status, _ := f.do(t, "u-2", "GET", "/api/project/"+id, "")
	assert.Equal(t, 404, status)
	status, _ = f.do(t, "u-2", "DELETE", "/api/project/"+id, "")
	assert.Equal(t, 404, status)
	status, _ = f.do(t, "", "GET", "/api/project/"+id+"/tables", "")
	assert.Equal(t, 401, status)
	assert.Equal(t, opened, f.connector.Opened())

	status, body := f.do(t, "u-2", "GET", "/api/project", "")
	assert.Equal(t, 200, status)
	assert.Empty(t, body["data"].(map[string]any)["projects"])

	status, body = f.do(t, "u-1", "GET", "/api/project", "")
	assert.Equal(t, 200, status)
	assert.Len(t, body["data"].(map[string]any)["projects"], 1)
}

func TestIntrospectionRoutes(t *testing.T) {
	f := newFixture(t)
	id := f.createProject(t, "u-1")

	status, body := f.do(t, "u-1", "GET", "/api/project/"+id+"/tables", "")
	require.Equal(t, 200, status)
	assert.Equal(t, []any{"users", "orders"}, body["data"])

	status, body = f.do(t, "u-1", "GET", "/api/project/"+id+"/tables/orders/fields", "")
	require.Equal(t, 200, status)
	fields := body["data"].([]any)
	require.Len(t, fields, 3)
	assert.Equal(t, "PRIMARY KEY", fields[0].(map[string]any)["fieldConstraint"])
	assert.Nil(t, fields[1].(map[string]any)["fieldConstraint"])

	status, body = f.do(t, "u-1", "GET", "/api/project/"+id+"/tables/ghosts/fields", "")
	assert.Equal(t, 404, status)
	assert.Equal(t, "NOT_FOUND", body["error"].(map[string]any)["code"])

	status, body = f.do(t, "u-1", "GET", "/api/project/"+id+"/references", "")
	require.Equal(t, 200, status)
	assert.Len(t, body["data"], 1)

	status, body = f.do(t, "u-1", "GET", "/api/table/"+id+"/users", "")
	require.Equal(t, 200, status)
	assert.Equal(t, []any{[]any{
		map[string]any{"key": "id", "value": float64(1)},
		map[string]any{"key": "email", "value": "a@x.io"},
	}}, body["data"])
}

func TestUpdateTitleAndDelete(t *testing.T) {
	f := newFixture(t)
	id := f.createProject(t, "u-1")

	status, _ := f.do(t, "u-1", "PATCH", "/api/project/"+id, `{"title":"  "}`)
	assert.Equal(t, 422, status)

	status, body := f.do(t, "u-1", "PATCH", "/api/project/"+id, `{"title":"Renamed"}`)
	require.Equal(t, 200, status)
	assert.Equal(t, "Renamed", body["data"].(map[string]any)["title"])
	_, hasURL := body["data"].(map[string]any)["url"]
	assert.False(t, hasURL)
	assert.Equal(t, f.endpoint, f.projects.byID[id].URL)

	status, _ = f.do(t, "u-1", "DELETE", "/api/project/"+id, "")
	assert.Equal(t, 200, status)
	status, _ = f.do(t, "u-1", "GET", "/api/project/"+id, "")
	assert.Equal(t, 404, status)
}

func TestUnreachableTargetIsConnectionError(t *testing.T) {
	f := newFixture(t)
	f.projects.byID["p-x"] = &store.Project{ID: "p-x", UserID: "u-1", Type: "sqlite",
		URL: "sqlite://" + filepath.Join(t.TempDir(), "missing", "x.db")}

	status, body := f.do(t, "u-1", "GET", "/api/project/p-x/tables", "")
	assert.Equal(t, 503, status)
	assert.Equal(t, "CONNECTION_ERROR", body["error"].(map[string]any)["code"])
}
