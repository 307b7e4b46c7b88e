package target

import (
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // Register sqlite as database/sql driver
)

// SQLiteDialect implements Dialect for SQLite via modernc.org/sqlite.
type SQLiteDialect struct{}

func (d *SQLiteDialect) Name() Flavor       { return FlavorSQLite }
func (d *SQLiteDialect) DriverName() string { return "sqlite" }

// DSN accepts sqlite:///abs/path.db, sqlite://rel.db and file:path.db forms.
func (d *SQLiteDialect) DSN(ep *Endpoint) (string, error) {
	u := ep.URL
	path := u.Opaque
	if path == "" {
		path = u.Host + u.Path
	}
	if path == "" {
		return "", fmt.Errorf("%w: sqlite endpoint has no file path", ErrConnection)
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return path, nil
}

func (d *SQLiteDialect) TablesQuery() string {
	return `SELECT name AS table_name
FROM sqlite_master
WHERE type = 'table' AND name NOT LIKE 'sqlite\_%' ESCAPE '\'`
}

func (d *SQLiteDialect) TableExistsQuery() string {
	return `SELECT 1 FROM sqlite_master WHERE type IN ('table', 'view') AND name = ?1`
}

func (d *SQLiteDialect) FieldsQuery() string {
	return `SELECT column_name, data_type, constraint_type FROM (
    SELECT ti.cid AS ord, 0 AS src, ti.name AS column_name, ti.type AS data_type,
           CASE WHEN ti.pk > 0 THEN 'PRIMARY KEY' END AS constraint_type
    FROM pragma_table_info(?1) ti
    UNION ALL
    SELECT ti.cid, 1, ti.name, ti.type, 'FOREIGN KEY'
    FROM pragma_foreign_key_list(?1) fk
    JOIN pragma_table_info(?1) ti ON ti.name = fk."from"
)
ORDER BY ord, src`
}

// ReferencesQuery resolves implicit primary-key targets (REFERENCES t without
// a column list), which pragma_foreign_key_list reports as NULL.
func (d *SQLiteDialect) ReferencesQuery() string {
	return `SELECT fk."table" AS referenced_table,
       m.name AS foreign_table,
       COALESCE(fk."to", (SELECT p.name FROM pragma_table_info(fk."table") p WHERE p.pk = fk.seq + 1)) AS foreign_column,
       fk."from" AS column_name
FROM sqlite_master m
JOIN pragma_foreign_key_list(m.name) fk
WHERE m.type = 'table'
ORDER BY m.name, fk.id, fk.seq`
}

func (d *SQLiteDialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d *SQLiteDialect) PreviewQuery(table string, limit int) string {
	return fmt.Sprintf("SELECT * FROM %s LIMIT %d", d.QuoteIdent(table), limit)
}

var _ Dialect = (*SQLiteDialect)(nil)
