package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tender-writer/internal/domain"
)

var ErrNotFound = errors.New("not found")

// StoredDetail is a sub-record read back from its table.
type StoredDetail struct {
	Src  domain.SourceType
	Tbl  string
	Cols []string
	Vals []any
}

func (s StoredDetail) Source() domain.SourceType { return s.Src }
func (s StoredDetail) Table() string             { return s.Tbl }
func (s StoredDetail) Columns() []string         { return s.Cols }
func (s StoredDetail) Values() []any             { return s.Vals }

// Get returns a column value rendered as a string, "" when absent.
func (s StoredDetail) Get(col string) string {
	for i, c := range s.Cols {
		if c != col {
			continue
		}
		switch v := s.Vals[i].(type) {
		case nil:
			return ""
		case []byte:
			return string(v)
		default:
			return fmt.Sprint(v)
		}
	}
	return ""
}

// Tender loads a stored tender with its detail, tags and documents.
func (d *DB) Tender(ctx context.Context, id string) (*domain.Tender, error) {
	var (
		t         domain.Tender
		source    string
		status    string
		published string
		closing   sql.NullString
	)
	err := d.Pool.QueryRowContext(ctx, d.Rebind(`
SELECT id, title, description, summary, source, status, published_date, closing_date
FROM tenders WHERE id = ?;`), id).Scan(
		&t.ID, &t.Title, &t.Description, &t.Summary, &source, &status, &published, &closing)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.Source = domain.SourceType(source)
	t.Status = domain.Status(status)
	t.PublishedDate = parseTime(published)
	if closing.Valid {
		t.ClosingDate = parseTime(closing.String)
	}

	if t.Tags, err = d.tenderTags(ctx, id); err != nil {
		return nil, err
	}
	for _, tag := range t.Tags {
		t.TagNames = append(t.TagNames, tag.Name)
	}
	if t.SupportingDocs, err = d.tenderDocs(ctx, id); err != nil {
		return nil, err
	}
	if t.Detail, err = d.tenderDetail(ctx, t.Source, id); err != nil {
		return nil, err
	}
	return &t, nil
}

func (d *DB) tenderTags(ctx context.Context, id string) ([]domain.Tag, error) {
	rows, err := d.Pool.QueryContext(ctx, d.Rebind(`
SELECT g.id, g.name
FROM tender_tags tt JOIN tags g ON g.id = tt.tag_id
WHERE tt.tender_id = ?
ORDER BY tt.position;`), id)
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

func (d *DB) tenderDocs(ctx context.Context, id string) ([]domain.SupportingDoc, error) {
	rows, err := d.Pool.QueryContext(ctx, d.Rebind(`
SELECT name, url FROM supporting_docs WHERE tender_id = ? ORDER BY position;`), id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SupportingDoc
	for rows.Next() {
		var doc domain.SupportingDoc
		if err := rows.Scan(&doc.Name, &doc.URL); err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (d *DB) tenderDetail(ctx context.Context, src domain.SourceType, id string) (domain.Detail, error) {
	table, ok := detailTables[src]
	if !ok {
		return nil, fmt.Errorf("no detail table for source %s", src)
	}
	rows, err := d.Pool.QueryContext(ctx, d.Rebind(`SELECT * FROM `+table+` WHERE tender_id = ?;`), id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%s row for %s: %w", table, id, ErrNotFound)
	}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	return StoredDetail{Src: src, Tbl: table, Cols: cols, Vals: vals}, nil
}

// CountTenders reports how many tenders are stored.
func (d *DB) CountTenders(ctx context.Context) (int, error) {
	var n int
	err := d.Pool.QueryRowContext(ctx, `SELECT COUNT(*) FROM tenders;`).Scan(&n)
	return n, err
}
