package store

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

const schemaVersion = 1

// migrateLockKey is the pg advisory lock id held while migrating.
const migrateLockKey int64 = 0x74656e646572 // "tender"

// Migrate brings the schema up to date. For file-backed sqlite an
// exclusive file lock serialises migrations across local processes; on
// PostgreSQL a transaction-scoped advisory lock does the same across hosts.
func (d *DB) Migrate(ctx context.Context) error {
	if d.dialect == SQLite && d.path != "" && d.path != ":memory:" {
		lock := flock.New(d.path + ".lock")
		lctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		ok, err := lock.TryLockContext(lctx, 100*time.Millisecond)
		if err != nil {
			return fmt.Errorf("migrate lock: %w", err)
		}
		if !ok {
			return fmt.Errorf("migrate lock: %s is held", d.path+".lock")
		}
		defer func() { _ = lock.Unlock() }()
	}
	return d.migrate(ctx)
}

func (d *DB) migrate(ctx context.Context) error {
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if stmt := migrateLockStmt(d.dialect); stmt != "" {
		if _, err := tx.ExecContext(ctx, stmt, migrateLockKey); err != nil {
			return fmt.Errorf("migrate lock: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);`); err != nil {
		return err
	}

	var v int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version;`).Scan(&v); err != nil {
		return err
	}
	if v >= schemaVersion {
		return tx.Commit()
	}

	// ---- Schema v1 ----
	for _, stmt := range schemaV1 {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema v1: %w", err)
		}
	}

	// Mark schema v1
	if _, err := tx.ExecContext(ctx, d.Rebind(`INSERT INTO schema_version (version) VALUES (?);`), schemaVersion); err != nil {
		return err
	}
	return tx.Commit()
}

func migrateLockStmt(dialect Dialect) string {
	if dialect == Postgres {
		return `SELECT pg_advisory_xact_lock($1);`
	}
	return ""
}
