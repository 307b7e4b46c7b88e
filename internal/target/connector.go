package target

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"sqlscope-backend/internal/instrument"
)

// Connector opens one short-lived connection per call to a user-supplied endpoint.
// It holds no connection state between calls.
type Connector struct {
	dialects         map[Flavor]Dialect
	connectTimeout   time.Duration
	statementTimeout time.Duration
	log              *zap.Logger
	opened           atomic.Int64
}

// Option configures a Connector.
type Option func(*Connector)

// WithFlavors enables exactly the given flavors.
func WithFlavors(flavors ...Flavor) Option {
	return func(c *Connector) {
		c.dialects = make(map[Flavor]Dialect, len(flavors))
		for _, f := range flavors {
			if d := NewDialect(f); d != nil {
				c.dialects[f] = d
			}
		}
	}
}

// WithDialect enables or replaces the dialect serving d.Name().
func WithDialect(d Dialect) Option {
	return func(c *Connector) {
		c.dialects[d.Name()] = d
	}
}

// WithTimeouts sets the connect and per-statement timeouts. Zero disables a timeout.
func WithTimeouts(connect, statement time.Duration) Option {
	return func(c *Connector) {
		c.connectTimeout = connect
		c.statementTimeout = statement
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Connector) {
		c.log = log
	}
}

// NewConnector creates a Connector. SQLite is off by default because its
// endpoints address the server's local filesystem.
func NewConnector(opts ...Option) *Connector {
	c := &Connector{
		connectTimeout:   10 * time.Second,
		statementTimeout: 30 * time.Second,
		log:              zap.NewNop(),
	}
	WithFlavors(FlavorPostgres, FlavorMySQL, FlavorMSSQL)(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Opened returns the number of connection handles opened so far.
func (c *Connector) Opened() int64 {
	return c.opened.Load()
}

// Enabled reports whether endpoints of flavor f are accepted.
func (c *Connector) Enabled(f Flavor) bool {
	_, ok := c.dialects[f]
	return ok
}

// Do opens a connection to endpoint, runs fn with it and releases it on every
// exit path. Errors returned by fn are passed through unchanged.
func (c *Connector) Do(ctx context.Context, endpoint string, fn func(ctx context.Context, conn *Conn) error) error {
	ep, err := ParseEndpoint(endpoint)
	if err != nil {
		return err
	}
	d, ok := c.dialects[ep.Flavor]
	if !ok {
		return fmt.Errorf("%w: %w %q is not enabled", ErrConnection, ErrUnsupportedFlavor, ep.Flavor)
	}
	dsn, err := d.DSN(ep)
	if err != nil {
		return connectionError(err)
	}

	ctx, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "target", "connector", "session")
	span.SetMetadata("flavor", string(ep.Flavor))
	span.SetMetadata("endpoint", ep.String())
	defer span.End()

	log := c.log.With(zap.String("flavor", string(ep.Flavor)), zap.Stringer("endpoint", ep))

	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		span.SetStatus("error")
		return connectionError(err)
	}
	c.opened.Add(1)
	defer db.Close()
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	raw, err := c.connect(ctx, db)
	if err != nil {
		span.SetStatus("error")
		log.Warn("target connect failed", zap.Error(err))
		return connectionError(err)
	}
	defer raw.Close()
	log.Debug("target connection opened")

	err = fn(ctx, &Conn{raw: raw, dialect: d, statementTimeout: c.statementTimeout})
	if err != nil {
		span.SetStatus("error")
		return err
	}
	span.SetStatus("ok")
	return nil
}

func (c *Connector) connect(ctx context.Context, db *sql.DB) (*sql.Conn, error) {
	if c.connectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.connectTimeout)
		defer cancel()
	}
	raw, err := db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	if err := raw.PingContext(ctx); err != nil {
		raw.Close()
		return nil, err
	}
	return raw, nil
}

// With runs fn through c.Do and returns its value.
func With[T any](ctx context.Context, c *Connector, endpoint string, fn func(ctx context.Context, conn *Conn) (T, error)) (T, error) {
	var out T
	err := c.Do(ctx, endpoint, func(ctx context.Context, conn *Conn) error {
		v, err := fn(ctx, conn)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Conn is a single live connection, valid only inside Connector.Do.
type Conn struct {
	raw              *sql.Conn
	dialect          Dialect
	statementTimeout time.Duration
}

// Dialect returns the dialect of the connected engine.
func (c *Conn) Dialect() Dialect {
	return c.dialect
}

// Query runs a statement and reads the full result set. Errors are tagged as
// ErrConnection or ErrStatement.
func (c *Conn) Query(ctx context.Context, query string, args ...any) (*Result, error) {
	if c.statementTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.statementTimeout)
		defer cancel()
	}

	_, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "target", "connector", "query")
	defer span.End()

	rows, err := c.raw.QueryContext(ctx, query, args...)
	if err != nil {
		span.SetStatus("error")
		return nil, classify(err)
	}
	defer rows.Close()

	res, err := readAll(rows)
	if err != nil {
		span.SetStatus("error")
		return nil, classify(err)
	}
	span.SetMetadata("rows", len(res.Rows))
	span.SetStatus("ok")
	return res, nil
}

// Exists reports whether query yields at least one row.
func (c *Conn) Exists(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := c.Query(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return len(res.Rows) > 0, nil
}
