package target

// Dialect isolates engine-specific catalog SQL and connection details.
// Catalog queries must return the column aliases documented on each method;
// the introspector reads rows by column name.
type Dialect interface {
	// Name returns the flavor this dialect serves.
	Name() Flavor

	// DriverName returns the database/sql driver name.
	DriverName() string

	// DSN converts a parsed endpoint into the driver's data source name.
	DSN(ep *Endpoint) (string, error)

	// TablesQuery lists base tables of the default namespace.
	// Columns: table_name.
	TablesQuery() string

	// TableExistsQuery returns at least one row when the table given as the
	// single parameter exists in the default namespace.
	TableExistsQuery() string

	// FieldsQuery lists the columns of the table given as the single parameter,
	// one row per (column, key constraint) pair, in column order.
	// Columns: column_name, data_type, constraint_type (nullable).
	FieldsQuery() string

	// ReferencesQuery lists foreign-key column pairs of the default namespace.
	// Columns: referenced_table, foreign_table, foreign_column, column_name.
	ReferencesQuery() string

	// QuoteIdent quotes an identifier for use in generated SQL.
	QuoteIdent(name string) string

	// PreviewQuery selects up to limit rows of a table.
	PreviewQuery(table string, limit int) string
}

// NewDialect creates the Dialect for a flavor, or nil when unsupported.
func NewDialect(f Flavor) Dialect {
	switch f {
	case FlavorPostgres:
		return &PostgresDialect{}
	case FlavorMySQL:
		return &MySQLDialect{}
	case FlavorSQLite:
		return &SQLiteDialect{}
	case FlavorMSSQL:
		return &MSSQLDialect{}
	default:
		return nil
	}
}
