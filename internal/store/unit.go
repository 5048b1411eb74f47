package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tender-writer/internal/domain"
)

// Unit is one isolated write: everything saved through it commits or rolls
// back together.
type Unit interface {
	FindTags(ctx context.Context, names []string) ([]domain.Tag, error)
	SaveTender(ctx context.Context, t *domain.Tender, created []domain.Tag) error
	Commit() error
	Rollback() error
}

// Gateway opens units of work.
type Gateway interface {
	Begin(ctx context.Context) (Unit, error)
}

var _ Gateway = (*DB)(nil)

func (d *DB) Begin(ctx context.Context) (Unit, error) {
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	return &unit{tx: tx, dialect: d.dialect, now: time.Now}, nil
}

type unit struct {
	tx      *sql.Tx
	dialect Dialect
	now     func() time.Time
	done    bool
}

func (u *unit) q(s string) string { return rebind(u.dialect, s) }

// FindTags matches names case-insensitively in one query.
func (u *unit) FindTags(ctx context.Context, names []string) ([]domain.Tag, error) {
	if len(names) == 0 {
		return nil, nil
	}
	args := make([]any, len(names))
	for i, n := range names {
		args[i] = domain.TagKey(n)
	}
	rows, err := u.tx.QueryContext(ctx,
		u.q(`SELECT id, name FROM tags WHERE name_key IN (`+placeholders(len(args))+`);`), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SaveTender inserts the tender, its sub-record, documents, tag links and
// the tags minted for it. A tag that another writer inserted first is
// adopted: t.Tags is rebound to the stored id.
func (u *unit) SaveTender(ctx context.Context, t *domain.Tender, created []domain.Tag) error {
	if t.Detail == nil {
		return errors.New("tender has no detail record")
	}
	if t.Detail.Source() != t.Source {
		return fmt.Errorf("detail source %s does not match tender source %s", t.Detail.Source(), t.Source)
	}
	table, ok := detailTables[t.Source]
	if !ok || table != t.Detail.Table() {
		return fmt.Errorf("no detail table for source %s", t.Source)
	}

	for _, tag := range created {
		id, err := u.insertTag(ctx, tag)
		if err != nil {
			return fmt.Errorf("insert tag %q: %w", tag.Name, err)
		}
		if id != tag.ID {
			rebindTag(t.Tags, tag.Name, id)
		}
	}

	var closing any
	if t.HasClosingDate() {
		closing = formatTime(t.ClosingDate)
	}
	if _, err := u.tx.ExecContext(ctx, u.q(`
INSERT INTO tenders (id, title, description, summary, source, status, published_date, closing_date, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`),
		t.ID, t.Title, t.Description, t.Summary, string(t.Source), string(t.Status),
		formatTime(t.PublishedDate), closing, formatTime(u.now()),
	); err != nil {
		return fmt.Errorf("insert tender: %w", err)
	}

	cols := t.Detail.Columns()
	vals := t.Detail.Values()
	if len(cols) != len(vals) {
		return fmt.Errorf("detail %s: %d columns, %d values", table, len(cols), len(vals))
	}
	stmt := fmt.Sprintf(`INSERT INTO %s (tender_id, %s) VALUES (?, %s);`,
		table, strings.Join(cols, ", "), placeholders(len(vals)))
	if _, err := u.tx.ExecContext(ctx, u.q(stmt), append([]any{t.ID}, vals...)...); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}

	for i, tag := range t.Tags {
		if _, err := u.tx.ExecContext(ctx,
			u.q(`INSERT INTO tender_tags (tender_id, tag_id, position) VALUES (?, ?, ?);`),
			t.ID, tag.ID, i,
		); err != nil {
			return fmt.Errorf("link tag %q: %w", tag.Name, err)
		}
	}

	for i, doc := range t.SupportingDocs {
		if _, err := u.tx.ExecContext(ctx,
			u.q(`INSERT INTO supporting_docs (tender_id, position, name, url) VALUES (?, ?, ?, ?);`),
			t.ID, i, doc.Name, doc.URL,
		); err != nil {
			return fmt.Errorf("insert document %d: %w", i, err)
		}
	}
	return nil
}

func (u *unit) insertTag(ctx context.Context, tag domain.Tag) (string, error) {
	res, err := u.tx.ExecContext(ctx,
		u.q(`INSERT INTO tags (id, name, name_key) VALUES (?, ?, ?) ON CONFLICT DO NOTHING;`),
		tag.ID, tag.Name, domain.TagKey(tag.Name))
	if err != nil {
		return "", err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return tag.ID, nil
	}
	var id string
	err = u.tx.QueryRowContext(ctx,
		u.q(`SELECT id FROM tags WHERE name_key = ?;`), domain.TagKey(tag.Name)).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func rebindTag(tags []domain.Tag, name, id string) {
	k := domain.TagKey(name)
	for i := range tags {
		if domain.TagKey(tags[i].Name) == k {
			tags[i].ID = id
		}
	}
}

func (u *unit) Commit() error {
	u.done = true
	return u.tx.Commit()
}

// Rollback is a no-op after Commit.
func (u *unit) Rollback() error {
	if u.done {
		return nil
	}
	u.done = true
	return u.tx.Rollback()
}
