package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

type Options struct {
	// Driver is "sqlite" (default) or "pgx".
	Driver string
	// DSN is a file path or file: URI for sqlite, a URL or key=value
	// string for pgx.
	DSN string
	// Password is injected into a pgx DSN that does not carry one.
	Password string
}

type DB struct {
	Pool    *sql.DB
	dialect Dialect
	// path of the sqlite file, empty for pgx
	path string
}

func Open(ctx context.Context, opts Options) (*DB, error) {
	var (
		d      = &DB{}
		driver string
		dsn    string
	)
	switch strings.ToLower(opts.Driver) {
	case "", "sqlite":
		driver, d.dialect = "sqlite", SQLite
		d.path, dsn = sqliteDSN(opts.DSN)
	case "pgx", "postgres":
		driver, d.dialect = "pgx", Postgres
		dsn = withPassword(opts.DSN, opts.Password)
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}

	if d.path != "" && d.path != ":memory:" {
		if dir := filepath.Dir(d.path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("store dir: %w", err)
			}
		}
	}

	pool, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if d.dialect == SQLite {
		pool.SetMaxOpenConns(1) // sqlite typically wants 1 writer
	} else {
		pool.SetMaxOpenConns(10)
		pool.SetMaxIdleConns(5)
	}
	pool.SetConnMaxLifetime(5 * time.Minute)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.PingContext(pctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	d.Pool = pool
	return d, nil
}

// modernc sqlite uses DSN like: file:foo.db?_pragma=busy_timeout(5000)
func sqliteDSN(raw string) (path, dsn string) {
	if strings.HasPrefix(raw, "file:") {
		p := strings.TrimPrefix(raw, "file:")
		if i := strings.IndexByte(p, '?'); i >= 0 {
			p = p[:i]
		}
		return p, raw
	}
	return raw, fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", raw)
}

func withPassword(dsn, password string) string {
	if password == "" {
		return dsn
	}
	if u, err := url.Parse(dsn); err == nil && (u.Scheme == "postgres" || u.Scheme == "postgresql") {
		if u.User == nil {
			return dsn
		}
		if _, set := u.User.Password(); !set {
			u.User = url.UserPassword(u.User.Username(), password)
		}
		return u.String()
	}
	if strings.Contains(dsn, "password=") {
		return dsn
	}
	return strings.TrimSpace(dsn) + " password='" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(password) + "'"
}

func (d *DB) Dialect() Dialect { return d.dialect }

// Rebind rewrites ? placeholders for the connected dialect.
func (d *DB) Rebind(q string) string {
	return rebind(d.dialect, q)
}

func rebind(dialect Dialect, q string) string {
	if dialect != Postgres || !strings.Contains(q, "?") {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d *DB) Ping(ctx context.Context) error {
	return d.Pool.PingContext(ctx)
}

func (d *DB) Close() error {
	if d == nil || d.Pool == nil {
		return nil
	}
	return d.Pool.Close()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
