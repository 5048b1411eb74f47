package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"tender-writer/internal/batch"
	"tender-writer/internal/config"
	"tender-writer/internal/consumer"
	"tender-writer/internal/events"
	"tender-writer/internal/httpapi"
	"tender-writer/internal/logging"
	"tender-writer/internal/metrics"
	"tender-writer/internal/queue"
	"tender-writer/internal/queue/kafkadlq"
	"tender-writer/internal/queue/sqlqueue"
	"tender-writer/internal/queue/sqsqueue"
	"tender-writer/internal/secrets"
	"tender-writer/internal/sources"
	"tender-writer/internal/store"
	"tender-writer/internal/tags"
	"tender-writer/internal/tender"
)

var errDrainBusy = errors.New("a drain is already running")

type sourceQueue interface {
	consumer.Receiver
	batch.Acknowledger
}

type app struct {
	cfg     config.Config
	log     *slog.Logger
	db      *store.DB
	metrics *metrics.Metrics
	hub     *events.Hub
	status  *atomic.Value // httpapi.DrainStatus

	consumers []*consumer.Consumer
	closers   []func() error

	running sync.Mutex
}

func build(ctx context.Context, cfg config.Config, log *slog.Logger) (*app, error) {
	a := &app{
		cfg:     cfg,
		log:     log,
		metrics: metrics.New(),
		hub:     events.NewHub(),
		status:  &atomic.Value{},
	}
	a.status.Store(httpapi.DrainStatus{})

	opts := store.Options{Driver: cfg.Store.Driver, DSN: cfg.Store.DSN}
	if cfg.Store.Driver == "pgx" && cfg.Store.KeyringAccount != "" {
		pw, err := secrets.GetStorePassword(cfg.Store.KeyringAccount)
		if err != nil {
			return nil, fmt.Errorf("store password: %w", err)
		}
		opts.Password = pw
	}
	db, err := store.Open(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, db.Close)
	if err := db.Migrate(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	src, dlq, err := a.transports(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	registry := sources.Registry()
	proc := &batch.Processor{
		Sources:     registry,
		Mapper:      tender.NewMapper(registry),
		Tags:        tags.NewResolver(),
		Store:       db,
		Queue:       src,
		DeadLetters: dlq,
		ProcessedBy: cfg.ProcessedBy,
		Log:         logging.For(log, "batch"),
		Metrics:     a.metrics,
	}

	var limiter *rate.Limiter
	if pps := cfg.Consumer.PollsPerSecond; pps > 0 {
		limiter = rate.NewLimiter(rate.Limit(pps), 1)
	}
	for i := 0; i < cfg.Consumer.Instances; i++ {
		a.consumers = append(a.consumers, &consumer.Consumer{
			Queue:        src,
			Handler:      proc,
			MaxBatch:     cfg.Queue.MaxBatch,
			Wait:         time.Duration(cfg.Queue.WaitSeconds) * time.Second,
			Visibility:   time.Duration(cfg.Queue.VisibilitySeconds) * time.Second,
			SafetyMargin: cfg.Consumer.SafetyMargin,
			Limiter:      limiter,
			Log:          logging.For(log, "consumer").With("instance", i),
			Metrics:      a.metrics,
		})
	}
	return a, nil
}

func (a *app) transports(ctx context.Context) (sourceQueue, queue.DeadLetterSink, error) {
	cfg := a.cfg
	var client *sqs.Client
	sqsClient := func() (*sqs.Client, error) {
		if client != nil {
			return client, nil
		}
		c, err := sqsqueue.NewClient(ctx, cfg.Queue.Region, cfg.Queue.Endpoint)
		if err != nil {
			return nil, err
		}
		client = c
		return c, nil
	}

	var src sourceQueue
	switch cfg.Queue.Transport {
	case "sqs":
		c, err := sqsClient()
		if err != nil {
			return nil, nil, fmt.Errorf("sqs client: %w", err)
		}
		src = sqsqueue.New(c, cfg.Queue.SourceURL, cfg.Queue.RoutingAttribute)
	case "sql":
		src = sqlqueue.New(a.db, cfg.Queue.SourceURL)
	default:
		return nil, nil, fmt.Errorf("unknown queue transport %q", cfg.Queue.Transport)
	}

	var dlq queue.DeadLetterSink
	switch cfg.DeadLetter.Kind {
	case "sqs":
		c, err := sqsClient()
		if err != nil {
			return nil, nil, fmt.Errorf("sqs client: %w", err)
		}
		dlq = sqsqueue.New(c, cfg.DeadLetter.URL, cfg.Queue.RoutingAttribute)
	case "kafka":
		sink := kafkadlq.New(cfg.DeadLetter.Brokers, cfg.DeadLetter.Topic)
		a.closers = append(a.closers, sink.Close)
		dlq = sink
	case "sql":
		dlq = sqlqueue.New(a.db, cfg.DeadLetter.URL)
	default:
		return nil, nil, fmt.Errorf("unknown dead letter kind %q", cfg.DeadLetter.Kind)
	}
	return src, dlq, nil
}

// drain runs every consumer instance once within the configured budget.
func (a *app) drain(ctx context.Context) error {
	if !a.running.TryLock() {
		return errDrainBusy
	}
	defer a.running.Unlock()

	started := time.Now()
	httpapi.MarkRunning(a.status, started)
	a.hub.Emit(events.TypeDrainStarted, map[string]any{"instances": len(a.consumers)})

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Consumer.Budget)
	defer cancel()

	sums := make([]consumer.Summary, len(a.consumers))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range a.consumers {
		g.Go(func() error {
			s, err := c.Drain(gctx)
			sums[i] = s
			return err
		})
	}
	err := g.Wait()
	total := mergeSummaries(sums)

	finished := time.Now()
	httpapi.MarkFinished(a.status, total, err, finished)
	if err != nil {
		a.hub.Emit(events.TypeDrainFailed, map[string]any{"error": err.Error(), "summary": total})
		return err
	}
	a.metrics.DrainSucceeded(finished)
	a.hub.Emit(events.TypeDrainFinished, total)
	return nil
}

// mergeSummaries folds per-instance summaries into one. The stop reason
// is the first instance's unless another stopped on an error.
func mergeSummaries(sums []consumer.Summary) consumer.Summary {
	var out consumer.Summary
	for i, s := range sums {
		out.Polls += s.Polls
		out.Received += s.Received
		out.Persisted += s.Persisted
		out.DeadLettered += s.DeadLettered
		out.Retained += s.Retained
		if i == 0 || s.Stop == consumer.StopError {
			out.Stop = s.Stop
		}
		if !s.Started.IsZero() && (out.Started.IsZero() || s.Started.Before(out.Started)) {
			out.Started = s.Started
		}
		if s.Finished.After(out.Finished) {
			out.Finished = s.Finished
		}
	}
	return out
}

func (a *app) deps() httpapi.Deps {
	return httpapi.Deps{
		Store:       a.db,
		Hub:         a.hub,
		Metrics:     a.metrics.Handler(),
		DrainStatus: a.status,
		RunDrain:    a.drain,
		Log:         logging.For(a.log, "http"),
	}
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close failed", "err", err)
		}
	}
	a.closers = nil
}
