package target

import (
	"fmt"
	"net/url"
	"strings"
)

// Flavor names a supported database engine.
type Flavor string

const (
	FlavorPostgres Flavor = "postgres"
	FlavorMySQL    Flavor = "mysql"
	FlavorSQLite   Flavor = "sqlite"
	FlavorMSSQL    Flavor = "mssql"
)

var schemeFlavors = map[string]Flavor{
	"postgres":   FlavorPostgres,
	"postgresql": FlavorPostgres,
	"mysql":      FlavorMySQL,
	"mariadb":    FlavorMySQL,
	"sqlite":     FlavorSQLite,
	"sqlite3":    FlavorSQLite,
	"file":       FlavorSQLite,
	"sqlserver":  FlavorMSSQL,
	"mssql":      FlavorMSSQL,
}

// ParseFlavor maps a project type or URL scheme to a Flavor.
func ParseFlavor(s string) (Flavor, bool) {
	f, ok := schemeFlavors[strings.ToLower(strings.TrimSpace(s))]
	return f, ok
}

// Endpoint is a parsed connection URL. The raw string is a secret.
type Endpoint struct {
	Flavor Flavor
	URL    *url.URL
	raw    string
}

// ParseEndpoint validates a connection URL and detects its flavor from the scheme.
func ParseEndpoint(raw string) (*Endpoint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty endpoint", ErrConnection)
	}
	u, err := url.Parse(raw)
	if err != nil {
		// url.Parse errors echo the input, which may carry a password.
		return nil, fmt.Errorf("%w: malformed endpoint", ErrConnection)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("%w: endpoint has no scheme", ErrConnection)
	}
	flavor, ok := ParseFlavor(u.Scheme)
	if !ok {
		return nil, fmt.Errorf("%w: %w %q", ErrConnection, ErrUnsupportedFlavor, u.Scheme)
	}
	return &Endpoint{Flavor: flavor, URL: u, raw: raw}, nil
}

// String returns the redacted form so endpoints never reach logs verbatim.
func (e *Endpoint) String() string {
	return e.URL.Redacted()
}

// Redact masks the password of a connection URL. Input that does not parse as
// a supported endpoint is fully masked.
func Redact(raw string) string {
	ep, err := ParseEndpoint(raw)
	if err != nil {
		return "[redacted]"
	}
	return ep.String()
}
