package target

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	mssql "github.com/microsoft/go-mssqldb"
	"modernc.org/sqlite"
)

var (
	// ErrConnection means the target could not be reached or the connection broke.
	// Callers may retry.
	ErrConnection = errors.New("connection error")

	// ErrStatement means the target rejected a statement. Never retry automatically.
	ErrStatement = errors.New("statement error")

	// ErrSchemaRead means catalog rows did not have the expected shape.
	ErrSchemaRead = errors.New("schema read error")

	// ErrNotFound means a named catalog object does not exist.
	ErrNotFound = errors.New("not found")

	ErrUnsupportedFlavor = errors.New("unsupported database flavor")
)

func connectionError(err error) error {
	if errors.Is(err, ErrConnection) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrConnection, err)
}

func schemaReadError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSchemaRead, fmt.Sprintf(format, args...))
}

// classify tags an error raised while running a statement as either a
// connection-level failure or a statement rejection.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConnection) || errors.Is(err, ErrStatement) ||
		errors.Is(err, ErrSchemaRead) || errors.Is(err, ErrNotFound) {
		return err
	}
	if isStatementError(err) {
		return fmt.Errorf("%w: %w", ErrStatement, err)
	}
	if isConnectionError(err) {
		return connectionError(err)
	}
	return fmt.Errorf("%w: %w", ErrStatement, err)
}

func isStatementError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return true
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return true
	}
	var msErr mssql.Error
	return errors.As(err, &msErr)
}

func isConnectionError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
