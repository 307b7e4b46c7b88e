package executor

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"sqlscope-backend/internal/target"
)

func newSQLiteFile(t *testing.T, ddl ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "target.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	for _, stmt := range ddl {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return "sqlite://" + path
}

func newExecutor(t *testing.T, policy string) (*Executor, *target.Connector) {
	t.Helper()
	p, err := CompilePolicy(policy)
	require.NoError(t, err)
	c := target.NewConnector(target.WithFlavors(target.FlavorSQLite))
	return New(c, p, nil), c
}

func TestApplySelectOne(t *testing.T) {
	endpoint := newSQLiteFile(t)
	ex, _ := newExecutor(t, "")

	payload, err := ex.Apply(context.Background(), endpoint, "SELECT 1")
	require.NoError(t, err)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(payload), &rows))
	require.Len(t, rows, 1)
	require.Len(t, rows[0], 1)
	for _, v := range rows[0] {
		assert.Equal(t, float64(1), v)
	}
}

func TestApplyKeepsColumnOrderAndIndents(t *testing.T) {
	endpoint := newSQLiteFile(t,
		`CREATE TABLE users (id integer PRIMARY KEY, name text, age integer)`,
		`INSERT INTO users VALUES (1, 'ann', NULL)`,
	)
	ex, _ := newExecutor(t, "")

	payload, err := ex.Apply(context.Background(), endpoint, "SELECT name, id, age FROM users")
	require.NoError(t, err)
	assert.Equal(t, "[\n  {\n    \"name\": \"ann\",\n    \"id\": 1,\n    \"age\": null\n  }\n]", payload)
}

func TestApplyIsStableForReads(t *testing.T) {
	endpoint := newSQLiteFile(t,
		`CREATE TABLE items (id integer PRIMARY KEY, label text)`,
		`INSERT INTO items VALUES (1, 'a'), (2, 'b'), (3, 'c')`,
	)
	ex, _ := newExecutor(t, "")

	first, err := ex.Apply(context.Background(), endpoint, "SELECT * FROM items ORDER BY id")
	require.NoError(t, err)
	second, err := ex.Apply(context.Background(), endpoint, "SELECT * FROM items ORDER BY id")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestApplyEmptyResult(t *testing.T) {
	endpoint := newSQLiteFile(t, `CREATE TABLE items (id integer)`)
	ex, _ := newExecutor(t, "")

	payload, err := ex.Apply(context.Background(), endpoint, "SELECT * FROM items")
	require.NoError(t, err)
	assert.Equal(t, "[]", payload)

	payload, err = ex.Apply(context.Background(), endpoint, "INSERT INTO items VALUES (7)")
	require.NoError(t, err)
	assert.Equal(t, "[]", payload)

	payload, err = ex.Apply(context.Background(), endpoint, "SELECT id FROM items")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id": 7}]`, payload)
}

func TestApplyDuplicateColumns(t *testing.T) {
	endpoint := newSQLiteFile(t)
	ex, _ := newExecutor(t, "")

	payload, err := ex.Apply(context.Background(), endpoint, "SELECT 1 AS a, 2 AS b, 3 AS a")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"a": 3, "b": 2}]`, payload)
}

func TestApplyNonFiniteFloats(t *testing.T) {
	endpoint := newSQLiteFile(t)
	ex, _ := newExecutor(t, "")

	payload, err := ex.Apply(context.Background(), endpoint, "SELECT 1e999 AS big, -1e999 AS small, 2.5 AS plain")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"big": "Infinity", "small": "-Infinity", "plain": 2.5}]`, payload)
}

func TestApplyStatementError(t *testing.T) {
	endpoint := newSQLiteFile(t)
	ex, _ := newExecutor(t, "")

	payload, err := ex.Apply(context.Background(), endpoint, "SELECT * FROM missing_table")
	assert.Empty(t, payload)
	assert.ErrorIs(t, err, target.ErrStatement)
	assert.NotErrorIs(t, err, target.ErrConnection)
}

func TestApplyPolicyRejectsBeforeConnecting(t *testing.T) {
	endpoint := newSQLiteFile(t, `CREATE TABLE items (id integer)`)
	ex, c := newExecutor(t, "read_only")

	payload, err := ex.Apply(context.Background(), endpoint, "DELETE FROM items")
	assert.Empty(t, payload)
	assert.ErrorIs(t, err, ErrRejected)
	assert.ErrorIs(t, err, target.ErrStatement)
	assert.Equal(t, int64(0), c.Opened())

	_, err = ex.Apply(context.Background(), endpoint, "SELECT * FROM items")
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.Opened())
}

func TestCompilePolicy(t *testing.T) {
	_, err := CompilePolicy("verb ==")
	assert.Error(t, err)

	p, err := CompilePolicy(`verb != "DROP"`)
	require.NoError(t, err)
	ok, err := p.Allow("drop table x")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = p.Allow("select 1")
	require.NoError(t, err)
	assert.True(t, ok)

	var nilPolicy *Policy
	ok, err = nilPolicy.Allow("DROP TABLE x")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerbAndReadOnly(t *testing.T) {
	tests := []struct {
		stmt     string
		verb     string
		readOnly bool
	}{
		{"SELECT 1", "SELECT", true},
		{"  select * from t;", "SELECT", true},
		{"-- list\n/* all */ (SELECT 1)", "SELECT", true},
		{"WITH x AS (SELECT 1) SELECT * FROM x", "WITH", true},
		{"WITH gone AS (DELETE FROM t RETURNING *) SELECT * FROM gone", "WITH", false},
		{"SELECT 1; DROP TABLE t", "SELECT", false},
		{"insert into t values (1)", "INSERT", false},
		{"PRAGMA foreign_keys = ON", "PRAGMA", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.stmt, func(t *testing.T) {
			assert.Equal(t, tt.verb, Verb(tt.stmt))
			assert.Equal(t, tt.readOnly, ReadOnly(tt.stmt))
		})
	}
}
