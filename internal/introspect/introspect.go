package introspect

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"sqlscope-backend/internal/target"
)

// Field describes one column of a table.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"`
	// FieldConstraint is the strongest key constraint on the column, nil when none.
	FieldConstraint *string `json:"fieldConstraint"`
	// Constraints lists every key constraint on the column in catalog order.
	Constraints []string `json:"constraints"`
}

// Reference is one foreign-key column pair: Table.Column references Referenced.OriginalField.
type Reference struct {
	Referenced    string `json:"referenced"`
	Table         string `json:"table"`
	OriginalField string `json:"originalField"`
	Column        string `json:"column"`
}

// Table is a table name with its fields.
type Table struct {
	Title  string  `json:"title"`
	Fields []Field `json:"fields"`
}

// Schema is the full description of a target database.
type Schema struct {
	Tables     []Table     `json:"tables"`
	References []Reference `json:"references"`
}

// Cell is one column value of a previewed row.
type Cell struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

var constraintRank = map[string]int{
	"PRIMARY KEY": 3,
	"FOREIGN KEY": 2,
	"UNIQUE":      1,
}

// Introspector reads catalog metadata of arbitrary endpoints through a Connector.
type Introspector struct {
	connector    *target.Connector
	concurrency  int
	previewLimit int
	log          *zap.Logger
}

// New creates an Introspector. concurrency bounds the connections Describe opens at once.
func New(connector *target.Connector, concurrency, previewLimit int, log *zap.Logger) *Introspector {
	if concurrency < 1 {
		concurrency = 1
	}
	if previewLimit < 1 {
		previewLimit = 50
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Introspector{connector: connector, concurrency: concurrency, previewLimit: previewLimit, log: log}
}

// ListTables returns the tables of the default namespace in catalog order,
// without names starting with an underscore.
func (in *Introspector) ListTables(ctx context.Context, endpoint string) ([]string, error) {
	return target.With(ctx, in.connector, endpoint, func(ctx context.Context, conn *target.Conn) ([]string, error) {
		res, err := conn.Query(ctx, conn.Dialect().TablesQuery())
		if err != nil {
			return nil, err
		}
		col, err := column(res, "table_name")
		if err != nil {
			return nil, err
		}

		tables := make([]string, 0, len(res.Rows))
		for i, row := range res.Rows {
			name, err := text(row[col], "table_name", i)
			if err != nil {
				return nil, err
			}
			if strings.HasPrefix(name, "_") {
				continue
			}
			tables = append(tables, name)
		}
		return tables, nil
	})
}

// ListFields returns the columns of table in declaration order. A table with no
// columns yields an empty slice; a missing table yields target.ErrNotFound.
func (in *Introspector) ListFields(ctx context.Context, endpoint, table string) ([]Field, error) {
	return target.With(ctx, in.connector, endpoint, func(ctx context.Context, conn *target.Conn) ([]Field, error) {
		if err := requireTable(ctx, conn, table); err != nil {
			return nil, err
		}
		return listFields(ctx, conn, table)
	})
}

func requireTable(ctx context.Context, conn *target.Conn, table string) error {
	ok, err := conn.Exists(ctx, conn.Dialect().TableExistsQuery(), table)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: table %q", target.ErrNotFound, table)
	}
	return nil
}

func listFields(ctx context.Context, conn *target.Conn, table string) ([]Field, error) {
	res, err := conn.Query(ctx, conn.Dialect().FieldsQuery(), table)
	if err != nil {
		return nil, err
	}
	nameCol, err := column(res, "column_name")
	if err != nil {
		return nil, err
	}
	typeCol, err := column(res, "data_type")
	if err != nil {
		return nil, err
	}
	consCol, err := column(res, "constraint_type")
	if err != nil {
		return nil, err
	}

	fields := make([]Field, 0, len(res.Rows))
	index := make(map[string]int, len(res.Rows))
	for i, row := range res.Rows {
		name, err := text(row[nameCol], "column_name", i)
		if err != nil {
			return nil, err
		}
		typ, err := text(row[typeCol], "data_type", i)
		if err != nil {
			return nil, err
		}
		var constraint string
		if row[consCol] != nil {
			if constraint, err = text(row[consCol], "constraint_type", i); err != nil {
				return nil, err
			}
			constraint = strings.ToUpper(strings.TrimSpace(constraint))
		}

		pos, seen := index[name]
		if !seen {
			pos = len(fields)
			index[name] = pos
			fields = append(fields, Field{Name: name, Type: typ, Constraints: []string{}})
		}
		if constraint != "" {
			fields[pos].addConstraint(constraint)
		}
	}
	return fields, nil
}

func (f *Field) addConstraint(c string) {
	for _, existing := range f.Constraints {
		if existing == c {
			return
		}
	}
	f.Constraints = append(f.Constraints, c)
	if f.FieldConstraint == nil || constraintRank[c] > constraintRank[*f.FieldConstraint] {
		f.FieldConstraint = &c
	}
}

// ListReferences returns every foreign-key column pair of the default namespace.
// The result is never nil.
func (in *Introspector) ListReferences(ctx context.Context, endpoint string) ([]Reference, error) {
	return target.With(ctx, in.connector, endpoint, listReferences)
}

func listReferences(ctx context.Context, conn *target.Conn) ([]Reference, error) {
	res, err := conn.Query(ctx, conn.Dialect().ReferencesQuery())
	if err != nil {
		return nil, err
	}
	names := []string{"referenced_table", "foreign_table", "foreign_column", "column_name"}
	cols := make([]int, len(names))
	for i, name := range names {
		if cols[i], err = column(res, name); err != nil {
			return nil, err
		}
	}

	refs := make([]Reference, 0, len(res.Rows))
	for i, row := range res.Rows {
		vals := make([]string, len(names))
		for j, name := range names {
			if vals[j], err = text(row[cols[j]], name, i); err != nil {
				return nil, err
			}
		}
		refs = append(refs, Reference{Referenced: vals[0], Table: vals[1], OriginalField: vals[2], Column: vals[3]})
	}
	return refs, nil
}

// PreviewTable returns up to the configured number of rows of table, each as
// key/value cells in column order.
func (in *Introspector) PreviewTable(ctx context.Context, endpoint, table string) ([][]Cell, error) {
	return target.With(ctx, in.connector, endpoint, func(ctx context.Context, conn *target.Conn) ([][]Cell, error) {
		if err := requireTable(ctx, conn, table); err != nil {
			return nil, err
		}
		res, err := conn.Query(ctx, conn.Dialect().PreviewQuery(table, in.previewLimit))
		if err != nil {
			return nil, err
		}
		rows := make([][]Cell, 0, len(res.Rows))
		for _, row := range res.Rows {
			cells := make([]Cell, len(res.Columns))
			for i, col := range res.Columns {
				cells[i] = Cell{Key: col, Value: row[i]}
			}
			rows = append(rows, cells)
		}
		return rows, nil
	})
}

// Describe lists tables, then fetches every table's fields and the references
// concurrently. Each call opens its own connection.
func (in *Introspector) Describe(ctx context.Context, endpoint string) (*Schema, error) {
	tables, err := in.ListTables(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	schema := &Schema{Tables: make([]Table, len(tables))}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.concurrency)
	g.Go(func() error {
		refs, err := in.ListReferences(gctx, endpoint)
		if err != nil {
			return err
		}
		schema.References = refs
		return nil
	})
	for i, name := range tables {
		g.Go(func() error {
			fields, err := in.ListFields(gctx, endpoint, name)
			if err != nil {
				return err
			}
			schema.Tables[i] = Table{Title: name, Fields: fields}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	in.log.Debug("schema described",
		zap.String("endpoint", target.Redact(endpoint)),
		zap.Int("tables", len(schema.Tables)),
		zap.Int("references", len(schema.References)))
	return schema, nil
}

func column(res *target.Result, name string) (int, error) {
	for i, col := range res.Columns {
		if strings.EqualFold(col, name) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: catalog result has no %q column", target.ErrSchemaRead, name)
}

func text(v any, name string, row int) (string, error) {
	s, ok := target.Text(v)
	if !ok {
		return "", fmt.Errorf("%w: row %d: %s is %T, want text", target.ErrSchemaRead, row, name, v)
	}
	return s, nil
}
