package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tender-writer/internal/domain"
	"tender-writer/internal/source/sanral"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), Options{DSN: filepath.Join(t.TempDir(), "tenders.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func sampleTender(id string, tags ...domain.Tag) *domain.Tender {
	return &domain.Tender{
		ID:            id,
		Title:         "Road works",
		Source:        domain.SourceSanral,
		Status:        domain.StatusOpen,
		PublishedDate: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		ClosingDate:   time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		Tags:          tags,
		SupportingDocs: []domain.SupportingDoc{
			{Name: "Notice", URL: "https://example.org/notice.pdf"},
		},
		Detail: sanral.Detail{Notice: domain.Notice{TenderNumber: "12345"}, Region: "Western Cape"},
	}
}

func save(t *testing.T, db *DB, rec *domain.Tender, created []domain.Tag) {
	t.Helper()
	ctx := context.Background()
	u, err := db.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = u.Rollback() }()
	require.NoError(t, u.SaveTender(ctx, rec, created))
	require.NoError(t, u.Commit())
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Migrate(context.Background()))

	var v int
	require.NoError(t, db.Pool.QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&v))
	assert.Equal(t, schemaVersion, v)
}

func TestMigrateLockOnlyOnPostgres(t *testing.T) {
	assert.Contains(t, migrateLockStmt(Postgres), "pg_advisory_xact_lock")
	assert.Empty(t, migrateLockStmt(SQLite))
}

// Runs only against a real server: TEST_POSTGRES_DSN=postgres://...
func TestConcurrentMigrateOnPostgres(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	var g errgroup.Group
	for i := 0; i < 4; i++ {
		g.Go(func() error {
			db, err := Open(ctx, Options{Driver: "pgx", DSN: dsn})
			if err != nil {
				return err
			}
			defer db.Close()
			return db.Migrate(ctx)
		})
	}
	require.NoError(t, g.Wait())
}

func TestSaveAndLoadTender(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	roads := domain.Tag{ID: "tag-roads", Name: "Roads"}
	save(t, db, sampleTender("t-1", roads), []domain.Tag{roads})

	got, err := db.Tender(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, "Road works", got.Title)
	assert.Equal(t, domain.StatusOpen, got.Status)
	assert.Equal(t, 2030, got.ClosingDate.Year())
	assert.Equal(t, []domain.Tag{roads}, got.Tags)
	assert.Len(t, got.SupportingDocs, 1)

	d, ok := got.Detail.(StoredDetail)
	require.True(t, ok)
	assert.Equal(t, "12345", d.Get("tender_number"))
	assert.Equal(t, "Western Cape", d.Get("region"))
}

func TestClosingDateSentinelIsNull(t *testing.T) {
	db := openTestDB(t)
	rec := sampleTender("t-1")
	rec.ClosingDate = domain.NoClosingDate
	save(t, db, rec, nil)

	got, err := db.Tender(context.Background(), "t-1")
	require.NoError(t, err)
	assert.False(t, got.HasClosingDate())
}

func TestFindTagsIgnoresCase(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	roads := domain.Tag{ID: "tag-roads", Name: "Roads"}
	save(t, db, sampleTender("t-1", roads), []domain.Tag{roads})

	u, err := db.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = u.Rollback() }()

	found, err := u.FindTags(ctx, []string{"ROADS", "bridges"})
	require.NoError(t, err)
	assert.Equal(t, []domain.Tag{roads}, found)
}

func TestConflictingTagIsAdopted(t *testing.T) {
	db := openTestDB(t)
	first := domain.Tag{ID: "tag-1", Name: "Water"}
	save(t, db, sampleTender("t-1", first), []domain.Tag{first})

	// a writer that missed the first insert mints its own id
	late := domain.Tag{ID: "tag-2", Name: "WATER"}
	rec := sampleTender("t-2", late)
	save(t, db, rec, []domain.Tag{late})
	assert.Equal(t, "tag-1", rec.Tags[0].ID)

	var n int
	require.NoError(t, db.Pool.QueryRow(`SELECT COUNT(*) FROM tags`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestNonASCIITagVariantsShareOneRow(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	first := domain.Tag{ID: "tag-1", Name: "Énergie"}
	save(t, db, sampleTender("t-1", first), []domain.Tag{first})

	u, err := db.Begin(ctx)
	require.NoError(t, err)
	found, err := u.FindTags(ctx, []string{"ÉNERGIE"})
	require.NoError(t, err)
	require.NoError(t, u.Rollback())
	assert.Equal(t, []domain.Tag{first}, found)

	late := domain.Tag{ID: "tag-2", Name: "énergie"}
	rec := sampleTender("t-2", late)
	save(t, db, rec, []domain.Tag{late})
	assert.Equal(t, "tag-1", rec.Tags[0].ID)

	var n int
	require.NoError(t, db.Pool.QueryRow(`SELECT COUNT(*) FROM tags`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestRollbackDiscardsEverything(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	u, err := db.Begin(ctx)
	require.NoError(t, err)
	tag := domain.Tag{ID: "tag-1", Name: "Power"}
	require.NoError(t, u.SaveTender(ctx, sampleTender("t-1", tag), []domain.Tag{tag}))
	require.NoError(t, u.Rollback())

	n, err := db.CountTenders(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = db.Tender(ctx, "t-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveRejectsMismatchedDetail(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	rec := sampleTender("t-1")
	rec.Source = domain.SourceEskom

	u, err := db.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = u.Rollback() }()
	assert.Error(t, u.SaveTender(ctx, rec, nil))
}

func TestRebind(t *testing.T) {
	assert.Equal(t, "a = $1 AND b IN ($2, $3)", rebind(Postgres, "a = ? AND b IN (?, ?)"))
	assert.Equal(t, "a = ?", rebind(SQLite, "a = ?"))
}

func TestWithPassword(t *testing.T) {
	assert.Equal(t, "postgres://app:s3cret@db:5432/tenders",
		withPassword("postgres://app@db:5432/tenders", "s3cret"))
	assert.Equal(t, "postgres://app:keep@db/tenders",
		withPassword("postgres://app:keep@db/tenders", "other"))
	assert.Equal(t, "host=db user=app password='it\\'s'",
		withPassword("host=db user=app", "it's"))
	assert.Equal(t, "host=db", withPassword("host=db", ""))
}
