package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tender-writer/internal/config"
	"tender-writer/internal/consumer"
	"tender-writer/internal/httpapi"
	"tender-writer/internal/queue/sqlqueue"
)

func localConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Queue.Transport = "sql"
	cfg.Queue.SourceURL = "tenders"
	cfg.Queue.WaitSeconds = 0
	cfg.DeadLetter.Kind = "sql"
	cfg.DeadLetter.URL = "tenders-dlq"
	cfg.Store.DSN = filepath.Join(t.TempDir(), "writer.db")
	cfg.Consumer.PollsPerSecond = 0
	cfg.Consumer.Instances = 2

	out, res := config.NormalizeAndValidate(cfg)
	require.NoError(t, res.Err())
	return out
}

func TestDrainOverLocalQueues(t *testing.T) {
	ctx := context.Background()
	a, err := build(ctx, localConfig(t), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer a.Close()

	src := sqlqueue.New(a.db, "tenders")
	_, err = src.Enqueue(ctx, "eskom", `{"title":"Substation upgrade","tags":["Energy"]}`)
	require.NoError(t, err)
	_, err = src.Enqueue(ctx, "sars", `[]`)
	require.NoError(t, err)

	require.NoError(t, a.drain(ctx))

	n, err := a.db.CountTenders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	dlqDepth, err := sqlqueue.New(a.db, "tenders-dlq").Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, dlqDepth)

	st := a.status.Load().(httpapi.DrainStatus)
	assert.False(t, st.Running)
	assert.Empty(t, st.LastError)
	require.NotNil(t, st.Last)
	assert.Equal(t, 2, st.Last.Received)
	assert.Equal(t, 1, st.Last.Persisted)
	assert.Equal(t, 1, st.Last.DeadLettered)

	rec := httptest.NewRecorder()
	httpapi.NewHandler(a.deps()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "last_drain_success_timestamp_seconds")
}

func TestDrainRefusesToOverlap(t *testing.T) {
	a := &app{}
	a.running.Lock()
	defer a.running.Unlock()
	assert.ErrorIs(t, a.drain(context.Background()), errDrainBusy)
}

func TestMergeSummaries(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	got := mergeSummaries([]consumer.Summary{
		{Polls: 2, Received: 10, Persisted: 9, DeadLettered: 1, Stop: consumer.StopQueueEmpty, Started: t0.Add(time.Second), Finished: t0.Add(5 * time.Second)},
		{Polls: 1, Received: 3, Retained: 3, Stop: consumer.StopError, Started: t0, Finished: t0.Add(2 * time.Second)},
	})
	assert.Equal(t, 3, got.Polls)
	assert.Equal(t, 13, got.Received)
	assert.Equal(t, 9, got.Persisted)
	assert.Equal(t, 1, got.DeadLettered)
	assert.Equal(t, 3, got.Retained)
	assert.Equal(t, consumer.StopError, got.Stop)
	assert.Equal(t, t0, got.Started)
	assert.Equal(t, t0.Add(5*time.Second), got.Finished)
}
