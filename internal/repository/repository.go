// Package repository is the client side of a remote triple store: a
// Repository manages the transport lifecycle and hands out Connections that
// prepare queries, mutate statements and control transactions.
package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/cenkalti/backoff/v4"

	"github.com/vanshika/sparqlconn/internal/graph"
	"github.com/vanshika/sparqlconn/internal/rdf"
)

// ClientFactory builds the transport used once the repository is
// initialized.
type ClientFactory func(ctx context.Context, opts graph.Options) (graph.Client, error)

// Option customises a Repository.
type Option func(*Repository)

// WithClientFactory replaces the REST transport, typically with a
// graph.MemoryClient in tests.
func WithClientFactory(factory ClientFactory) Option {
	return func(r *Repository) {
		r.factory = factory
	}
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Repository holds the connection parameters of one store and its
// initialized transport.
type Repository struct {
	mu      sync.RWMutex
	opts    graph.Options
	factory ClientFactory
	client  graph.Client
	logger  *slog.Logger
	values  rdf.ValueFactory
}

// NewRepository configures a repository. Nothing is contacted until
// Initialize is called.
func NewRepository(opts graph.Options, options ...Option) *Repository {
	r := &Repository{
		opts:    opts,
		factory: graph.NewRESTClient,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		values:  rdf.NewValueFactory(),
	}
	for _, opt := range options {
		opt(r)
	}
	r.logger = r.logger.With("component", "repository")
	if r.opts.Logger == nil {
		r.opts.Logger = r.logger
	}
	return r
}

// Initialize builds the transport and verifies, once, that the store answers. Calling
// it on an initialized repository succeeds without doing anything.
func (r *Repository) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client != nil {
		return nil
	}

	client, err := r.factory(ctx, r.opts)
	if err != nil {
		return &RepositoryError{Op: "initialize repository", Err: err}
	}
	if err := r.verify(ctx, client); err != nil {
		_ = client.Close(ctx)
		return &RepositoryError{Op: "initialize repository", Err: err}
	}
	r.client = client
	r.logger.Info("repository initialized", "host", r.opts.Host, "port", r.opts.Port, "database", r.opts.Database)
	return nil
}

// verify pings the store, retrying with exponential backoff up to
// opts.MaxRetries times. Client errors are not retried.
func (r *Repository) verify(ctx context.Context, client graph.Client) error {
	var policy backoff.BackOff = backoff.NewExponentialBackOff()
	policy = backoff.WithMaxRetries(policy, uint64(max(r.opts.MaxRetries, 0)))
	err := backoff.Retry(func() error {
		err := client.VerifyConnectivity(ctx)
		var statusErr *graph.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode < http.StatusInternalServerError {
			return backoff.Permanent(err)
		}
		if err != nil {
			r.logger.Warn("store not reachable yet", "error", err)
		}
		return err
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		return fmt.Errorf("verify store connectivity: %w", err)
	}
	return nil
}

// IsInitialized reports whether Initialize succeeded and ShutDown has not
// been called since.
func (r *Repository) IsInitialized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.client != nil
}

// ShutDown releases the transport. Shutting down an uninitialized
// repository is a no-op.
func (r *Repository) ShutDown(ctx context.Context) error {
	r.mu.Lock()
	client := r.client
	r.client = nil
	r.mu.Unlock()

	if client == nil {
		return nil
	}
	r.logger.Info("repository shut down")
	if err := client.Close(ctx); err != nil {
		return &RepositoryError{Op: "shut down repository", Err: err}
	}
	return nil
}

// Connection opens a new session. The repository must be initialized.
func (r *Repository) Connection() (*Connection, error) {
	if !r.IsInitialized() {
		return nil, ErrRepositoryNotInitialized
	}
	return newConnection(r), nil
}

// ValueFactory returns the factory for RDF terms.
func (r *Repository) ValueFactory() rdf.ValueFactory {
	return r.values
}

// Ping checks that the store still answers.
func (r *Repository) Ping(ctx context.Context) error {
	client, err := r.transport()
	if err != nil {
		return err
	}
	if err := client.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("ping store: %w", err)
	}
	return nil
}

func (r *Repository) transport() (graph.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.client == nil {
		return nil, ErrRepositoryNotInitialized
	}
	return r.client, nil
}
