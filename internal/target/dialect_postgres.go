package target

import (
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx as database/sql driver
)

// PostgresDialect implements Dialect for PostgreSQL via pgx/stdlib.
type PostgresDialect struct{}

func (d *PostgresDialect) Name() Flavor       { return FlavorPostgres }
func (d *PostgresDialect) DriverName() string { return "pgx" }

func (d *PostgresDialect) DSN(ep *Endpoint) (string, error) {
	return ep.raw, nil
}

func (d *PostgresDialect) TablesQuery() string {
	return `SELECT table_name::text AS table_name
FROM information_schema.tables
WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'`
}

func (d *PostgresDialect) TableExistsQuery() string {
	return `SELECT 1 FROM information_schema.tables
WHERE table_schema = current_schema() AND table_name = $1`
}

func (d *PostgresDialect) FieldsQuery() string {
	return `SELECT c.column_name::text AS column_name,
       c.data_type::text AS data_type,
       tc.constraint_type::text AS constraint_type
FROM information_schema.columns c
LEFT JOIN information_schema.key_column_usage kcu
       ON kcu.table_schema = c.table_schema
      AND kcu.table_name = c.table_name
      AND kcu.column_name = c.column_name
LEFT JOIN information_schema.table_constraints tc
       ON tc.constraint_schema = kcu.constraint_schema
      AND tc.constraint_name = kcu.constraint_name
      AND tc.table_name = kcu.table_name
WHERE c.table_schema = current_schema() AND c.table_name = $1
ORDER BY c.ordinal_position`
}

// ReferencesQuery pairs conkey/confkey positionally so composite keys
// yield one row per column pair instead of a cross product.
func (d *PostgresDialect) ReferencesQuery() string {
	return `SELECT rt.relname::text AS referenced_table,
       ft.relname::text AS foreign_table,
       ra.attname::text AS foreign_column,
       fa.attname::text AS column_name
FROM pg_constraint con
JOIN pg_class ft ON ft.oid = con.conrelid
JOIN pg_class rt ON rt.oid = con.confrelid
JOIN pg_namespace n ON n.oid = ft.relnamespace
CROSS JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS k(fk_attnum, ref_attnum, ord)
JOIN pg_attribute fa ON fa.attrelid = con.conrelid AND fa.attnum = k.fk_attnum
JOIN pg_attribute ra ON ra.attrelid = con.confrelid AND ra.attnum = k.ref_attnum
WHERE con.contype = 'f' AND n.nspname = current_schema()
ORDER BY ft.relname, con.conname, k.ord`
}

func (d *PostgresDialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d *PostgresDialect) PreviewQuery(table string, limit int) string {
	return fmt.Sprintf("SELECT * FROM %s LIMIT %d", d.QuoteIdent(table), limit)
}

// Compile-time check
var _ Dialect = (*PostgresDialect)(nil)
