package graph

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cayleygraph/quad"

	"github.com/vanshika/sparqlconn/internal/metrics"
	"github.com/vanshika/sparqlconn/internal/query"
	"github.com/vanshika/sparqlconn/internal/rdf"
)

// Client defines the minimal contract the repository layer needs from the
// triple store. Every request made while a transaction is open carries its
// id; an empty TxID means auto-commit.
type Client interface {
	Select(ctx context.Context, req QueryRequest) (*query.TupleResult, error)
	Construct(ctx context.Context, req QueryRequest) (*query.GraphResult, error)
	Ask(ctx context.Context, req QueryRequest) (bool, error)
	Update(ctx context.Context, req UpdateRequest) error

	Load(ctx context.Context, req LoadRequest) error
	InsertStatements(ctx context.Context, statements []quad.Quad, txID string) error
	DeleteStatements(ctx context.Context, pattern Pattern, txID string) error
	ClearGraphs(ctx context.Context, graphs []quad.Value, txID string) error

	MatchStatements(ctx context.Context, pattern Pattern, includeInferred bool, txID string) (*query.GraphResult, error)
	CountStatements(ctx context.Context, pattern Pattern, txID string) (int64, error)
	Graphs(ctx context.Context, txID string) (*query.Cursor[quad.Value], error)

	BeginTransaction(ctx context.Context) (string, error)
	CommitTransaction(ctx context.Context, txID string) error
	RollbackTransaction(ctx context.Context, txID string) error

	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// QueryRequest is a SPARQL query with its evaluation options.
type QueryRequest struct {
	Query    string
	BaseURI  string
	Bindings query.BindingSet
	// IncludeInferred selects the store's default rulesets.
	IncludeInferred bool
	Rulesets        []query.Ruleset
	Dataset         query.Dataset
	// Start is the 1-based first row; zero means no window.
	Start      int64
	PageLength int64
	TxID       string
}

// UpdateRequest is a SPARQL update.
type UpdateRequest struct {
	Update   string
	BaseURI  string
	Bindings query.BindingSet
	Dataset  query.Dataset
	TxID     string
}

// LoadRequest sends a serialized RDF document to the store. With no
// contexts the document goes to the default graph, or to the graphs it
// names itself for quad formats.
type LoadRequest struct {
	Body     io.Reader
	Format   rdf.Format
	BaseURI  string
	Contexts []quad.Value
	TxID     string
}

// Pattern selects statements. Nil terms match anything. An empty Contexts
// list matches every graph; a nil entry in it means the default graph.
type Pattern struct {
	Subject   quad.Value
	Predicate quad.Value
	Object    quad.Value
	Contexts  []quad.Value
}

// Options configures a graph client implementation.
type Options struct {
	// URI overrides the endpoint built from Host and Port.
	URI        string
	Host       string
	Port       int
	UseTLS     bool
	Database   string
	Username   string
	Password   string
	AuthScheme AuthScheme

	MaxConnections int
	RequestTimeout time.Duration
	// RateLimit caps requests per second; zero disables it.
	RateLimit  float64
	MaxRetries int

	HTTPClient *http.Client
	Metrics    *metrics.Collector
	Logger     *slog.Logger
}

// AuthScheme selects how credentials are presented.
type AuthScheme string

const (
	AuthDigest AuthScheme = "digest"
	AuthBasic  AuthScheme = "basic"
	AuthNone   AuthScheme = "none"
)

var (
	// ErrMissingURI indicates neither a URI nor a host was configured.
	ErrMissingURI = errors.New("store URI or host is required")
	// ErrUnknownTransaction is returned for a transaction id the store does
	// not know.
	ErrUnknownTransaction = errors.New("unknown transaction")
	// ErrUnsupportedAuth is returned for an unknown authentication scheme.
	ErrUnsupportedAuth = errors.New("unsupported authentication scheme")
)
