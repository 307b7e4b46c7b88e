//go:build integration

package introspect

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlscope-backend/internal/target"
)

// postgresEndpoint returns TARGET_POSTGRES_URL or skips.
func postgresEndpoint(t *testing.T) string {
	t.Helper()
	url := os.Getenv("TARGET_POSTGRES_URL")
	if url == "" {
		t.Skip("TARGET_POSTGRES_URL not set")
	}
	return url
}

func TestPostgresIntrospection(t *testing.T) {
	endpoint := postgresEndpoint(t)
	db, err := sql.Open("pgx", endpoint)
	require.NoError(t, err)
	defer db.Close()

	for _, stmt := range []string{
		`DROP TABLE IF EXISTS it_orders, it_users, _it_migrations, it_empty`,
		`CREATE TABLE it_users (id integer PRIMARY KEY)`,
		`CREATE TABLE _it_migrations (version integer)`,
		`CREATE TABLE it_orders (id integer PRIMARY KEY, total numeric, user_id integer REFERENCES it_users(id))`,
		`CREATE TABLE it_empty ()`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	t.Cleanup(func() {
		db.Exec(`DROP TABLE IF EXISTS it_orders, it_users, _it_migrations, it_empty`)
	})

	in := New(target.NewConnector(), 2, 10, nil)
	ctx := context.Background()

	tables, err := in.ListTables(ctx, endpoint)
	require.NoError(t, err)
	assert.Contains(t, tables, "it_users")
	assert.NotContains(t, tables, "_it_migrations")

	fields, err := in.ListFields(ctx, endpoint, "it_empty")
	require.NoError(t, err)
	assert.NotNil(t, fields)
	assert.Empty(t, fields)

	fields, err = in.ListFields(ctx, endpoint, "it_orders")
	require.NoError(t, err)
	require.Len(t, fields, 3)
	assert.Equal(t, "PRIMARY KEY", *fields[0].FieldConstraint)
	assert.Equal(t, "numeric", fields[1].Type)
	assert.Nil(t, fields[1].FieldConstraint)
	assert.Equal(t, "FOREIGN KEY", *fields[2].FieldConstraint)

	_, err = in.ListFields(ctx, endpoint, "it_missing")
	assert.ErrorIs(t, err, target.ErrNotFound)

	refs, err := in.ListReferences(ctx, endpoint)
	require.NoError(t, err)
	assert.Contains(t, refs, Reference{Referenced: "it_users", Table: "it_orders", OriginalField: "id", Column: "user_id"})
}
