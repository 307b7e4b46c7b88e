package target

import (
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb" // Register sqlserver as database/sql driver
)

// MSSQLDialect implements Dialect for Microsoft SQL Server.
type MSSQLDialect struct{}

func (d *MSSQLDialect) Name() Flavor       { return FlavorMSSQL }
func (d *MSSQLDialect) DriverName() string { return "sqlserver" }

func (d *MSSQLDialect) DSN(ep *Endpoint) (string, error) {
	u := *ep.URL
	u.Scheme = "sqlserver"
	return u.String(), nil
}

func (d *MSSQLDialect) TablesQuery() string {
	return `SELECT TABLE_NAME AS table_name
FROM INFORMATION_SCHEMA.TABLES
WHERE TABLE_SCHEMA = SCHEMA_NAME() AND TABLE_TYPE = 'BASE TABLE'`
}

func (d *MSSQLDialect) TableExistsQuery() string {
	return `SELECT 1 FROM INFORMATION_SCHEMA.TABLES
WHERE TABLE_SCHEMA = SCHEMA_NAME() AND TABLE_NAME = @p1`
}

func (d *MSSQLDialect) FieldsQuery() string {
	return `SELECT c.COLUMN_NAME AS column_name,
       c.DATA_TYPE AS data_type,
       tc.CONSTRAINT_TYPE AS constraint_type
FROM INFORMATION_SCHEMA.COLUMNS c
LEFT JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE k
       ON k.TABLE_SCHEMA = c.TABLE_SCHEMA
      AND k.TABLE_NAME = c.TABLE_NAME
      AND k.COLUMN_NAME = c.COLUMN_NAME
LEFT JOIN INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
       ON tc.CONSTRAINT_SCHEMA = k.CONSTRAINT_SCHEMA
      AND tc.CONSTRAINT_NAME = k.CONSTRAINT_NAME
WHERE c.TABLE_SCHEMA = SCHEMA_NAME() AND c.TABLE_NAME = @p1
ORDER BY c.ORDINAL_POSITION`
}

func (d *MSSQLDialect) ReferencesQuery() string {
	return `SELECT rt.name AS referenced_table,
       ft.name AS foreign_table,
       rc.name AS foreign_column,
       fc.name AS column_name
FROM sys.foreign_key_columns fkc
JOIN sys.foreign_keys fk ON fk.object_id = fkc.constraint_object_id
JOIN sys.tables ft ON ft.object_id = fkc.parent_object_id
JOIN sys.tables rt ON rt.object_id = fkc.referenced_object_id
JOIN sys.columns fc ON fc.object_id = fkc.parent_object_id AND fc.column_id = fkc.parent_column_id
JOIN sys.columns rc ON rc.object_id = fkc.referenced_object_id AND rc.column_id = fkc.referenced_column_id
WHERE SCHEMA_NAME(ft.schema_id) = SCHEMA_NAME()
ORDER BY ft.name, fk.name, fkc.constraint_column_id`
}

func (d *MSSQLDialect) QuoteIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func (d *MSSQLDialect) PreviewQuery(table string, limit int) string {
	return fmt.Sprintf("SELECT TOP (%d) * FROM %s", limit, d.QuoteIdent(table))
}

var _ Dialect = (*MSSQLDialect)(nil)
