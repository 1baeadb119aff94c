package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vanshika/sparqlconn/internal/metrics"
	"github.com/vanshika/sparqlconn/internal/repository"
)

// TaskError accumulates multiple errors produced during bulk ingestion.
type TaskError struct {
	Errors []error
}

func (e *TaskError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := "multiple errors:"
	for _, err := range e.Errors {
		msg += " " + err.Error() + ";"
	}
	return msg
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e *TaskError) Unwrap() []error {
	return e.Errors
}

func (e *TaskError) append(err error) {
	if err == nil {
		return
	}
	e.Errors = append(e.Errors, err)
}

func (e *TaskError) asError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// LoaderOption customises a BulkLoader.
type LoaderOption func(*BulkLoader)

// WithWorkers bounds the number of files loaded at once.
func WithWorkers(n int) LoaderOption {
	return func(bl *BulkLoader) {
		if n > 0 {
			bl.workers = n
		}
	}
}

// WithTransactions loads every file inside its own transaction so a failed
// file leaves nothing behind.
func WithTransactions(enabled bool) LoaderOption {
	return func(bl *BulkLoader) {
		bl.transactional = enabled
	}
}

// WithMetrics counts loaded and failed files.
func WithMetrics(c *metrics.Collector) LoaderOption {
	return func(bl *BulkLoader) {
		bl.metrics = c
	}
}

// WithLoaderLogger sets the logger for per-file events.
func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(bl *BulkLoader) {
		if logger != nil {
			bl.logger = logger
		}
	}
}

// BulkLoader loads RDF files into the store with a bounded worker pool. Each
// worker uses its own connection.
type BulkLoader struct {
	repo          *repository.Repository
	workers       int
	transactional bool
	metrics       *metrics.Collector
	logger        *slog.Logger
}

// NewBulkLoader creates a loader over an initialized repository.
func NewBulkLoader(repo *repository.Repository, opts ...LoaderOption) *BulkLoader {
	bl := &BulkLoader{
		repo:    repo,
		workers: 4,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(bl)
	}
	bl.logger = bl.logger.With("component", "bulk-loader")
	return bl
}

// Load runs every task. Failures of single files are collected into a
// *TaskError; cancellation stops the pool and returns the context error.
func (bl *BulkLoader) Load(ctx context.Context, tasks []LoadTask) (LoadReport, error) {
	report := LoadReport{Files: len(tasks)}
	if len(tasks) == 0 {
		return report, nil
	}
	start := time.Now()

	var (
		mu      sync.Mutex
		taskErr TaskError
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bl.workers)

	for _, task := range tasks {
		task := task
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			err := bl.loadOne(gctx, task)
			bl.metrics.ObserveIngest(err)
			if err == nil {
				return nil
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			bl.logger.Warn("file failed to load", "path", task.Path, "error", err)
			mu.Lock()
			taskErr.append(fmt.Errorf("%s: %w", task.Path, err))
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	report.Duration = time.Since(start)
	report.Failed = len(taskErr.Errors)
	if err != nil {
		return report, err
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	bl.logger.Info("bulk load finished", "files", report.Files, "failed", report.Failed, "duration_ms", report.Duration.Milliseconds())
	return report, taskErr.asError()
}

func (bl *BulkLoader) loadOne(ctx context.Context, task LoadTask) error {
	conn, err := bl.repo.Connection()
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	if bl.transactional {
		if err := conn.Begin(ctx); err != nil {
			return err
		}
	}
	if err := conn.AddFile(ctx, task.Path, task.BaseURI, task.Format, task.Contexts...); err != nil {
		if bl.transactional {
			_ = conn.Rollback(ctx)
		}
		return err
	}
	if bl.transactional {
		if err := conn.Commit(ctx); err != nil {
			return err
		}
	}
	bl.logger.Debug("file loaded", "path", task.Path)
	return nil
}
