package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/cayleygraph/quad"

	"github.com/vanshika/sparqlconn/internal/graph"
	"github.com/vanshika/sparqlconn/internal/query"
	"github.com/vanshika/sparqlconn/internal/rdf"
)

// Connection is one session with the store. It is safe to share between
// goroutines, but a transaction opened on it is shared by all of them.
type Connection struct {
	repo   *Repository
	logger *slog.Logger

	mu         sync.Mutex
	open       bool
	txID       string
	namespaces map[string]string
}

func newConnection(repo *Repository) *Connection {
	return &Connection{
		repo:       repo,
		logger:     repo.logger.With("component", "connection"),
		open:       true,
		namespaces: make(map[string]string),
	}
}

// Repository returns the repository the connection was opened from.
func (c *Connection) Repository() *Repository {
	return c.repo
}

// ValueFactory returns the repository's term factory.
func (c *Connection) ValueFactory() rdf.ValueFactory {
	return c.repo.ValueFactory()
}

// IsOpen reports whether Close has not been called yet.
func (c *Connection) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// IsActive reports whether a transaction is open.
func (c *Connection) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.txID != ""
}

// Close rolls back an open transaction and marks the connection closed.
// Closing twice is a no-op.
func (c *Connection) Close(ctx context.Context) error {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return nil
	}
	c.open = false
	txID := c.txID
	c.txID = ""
	c.mu.Unlock()

	if txID == "" {
		return nil
	}
	client, err := c.repo.transport()
	if err != nil {
		c.logger.Warn("transaction left open on store, repository is shut down", "txid", txID)
		return nil
	}
	c.logger.Debug("rolling back transaction on close", "txid", txID)
	if err := client.RollbackTransaction(ctx, txID); err != nil && !errors.Is(err, graph.ErrUnknownTransaction) {
		return repositoryError("close connection", err)
	}
	return nil
}

// session returns the transport and the current transaction id, or a usage
// error when the connection or repository cannot serve requests.
func (c *Connection) session() (graph.Client, string, error) {
	c.mu.Lock()
	open, txID := c.open, c.txID
	c.mu.Unlock()
	if !open {
		return nil, "", ErrConnectionClosed
	}
	client, err := c.repo.transport()
	if err != nil {
		return nil, "", err
	}
	return client, txID, nil
}

// Begin opens a transaction. Transactions do not nest.
func (c *Connection) Begin(ctx context.Context) error {
	client, txID, err := c.session()
	if err != nil {
		return err
	}
	if txID != "" {
		return ErrTransactionActive
	}
	id, err := client.BeginTransaction(ctx)
	if err != nil {
		return repositoryError("begin transaction", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.txID != "" {
		_ = client.RollbackTransaction(ctx, id)
		return ErrTransactionActive
	}
	c.txID = id
	c.logger.Debug("transaction started", "txid", id)
	return nil
}

// Commit makes every mutation since Begin visible.
func (c *Connection) Commit(ctx context.Context) error {
	return c.finish("commit", func(client graph.Client, id string) error {
		return client.CommitTransaction(ctx, id)
	})
}

// Rollback discards every mutation since Begin.
func (c *Connection) Rollback(ctx context.Context) error {
	return c.finish("rollback", func(client graph.Client, id string) error {
		return client.RollbackTransaction(ctx, id)
	})
}

func (c *Connection) finish(op string, do func(graph.Client, string) error) error {
	client, txID, err := c.session()
	if err != nil {
		return err
	}
	if txID == "" {
		return ErrNoActiveTransaction
	}
	err = do(client, txID)
	if err == nil || errors.Is(err, graph.ErrUnknownTransaction) {
		c.mu.Lock()
		if c.txID == txID {
			c.txID = ""
		}
		c.mu.Unlock()
	}
	if err != nil {
		return repositoryError(op+" transaction", err)
	}
	c.logger.Debug("transaction finished", "txid", txID, "result", op)
	return nil
}

// PrepareQuery inspects the query keyword and returns a *TupleQuery,
// *GraphQuery, *BooleanQuery or *Update.
func (c *Connection) PrepareQuery(text string, opts ...QueryOption) (Query, error) {
	base, err := c.prepare(text, opts)
	if err != nil {
		return nil, err
	}
	switch query.DetectForm(text) {
	case query.FormTuple:
		return &TupleQuery{baseQuery: base}, nil
	case query.FormGraph:
		return &GraphQuery{baseQuery: base}, nil
	case query.FormBoolean:
		return &BooleanQuery{baseQuery: base}, nil
	case query.FormUpdate:
		return &Update{baseQuery: base}, nil
	default:
		return nil, &MalformedQueryError{Query: text, Err: errors.New("cannot determine query form")}
	}
}

// PrepareTupleQuery prepares a SELECT query.
func (c *Connection) PrepareTupleQuery(text string, opts ...QueryOption) (*TupleQuery, error) {
	base, err := c.prepare(text, opts)
	if err != nil {
		return nil, err
	}
	return &TupleQuery{baseQuery: base}, nil
}

// PrepareGraphQuery prepares a CONSTRUCT or DESCRIBE query.
func (c *Connection) PrepareGraphQuery(text string, opts ...QueryOption) (*GraphQuery, error) {
	base, err := c.prepare(text, opts)
	if err != nil {
		return nil, err
	}
	return &GraphQuery{baseQuery: base}, nil
}

// PrepareBooleanQuery prepares an ASK query.
func (c *Connection) PrepareBooleanQuery(text string, opts ...QueryOption) (*BooleanQuery, error) {
	base, err := c.prepare(text, opts)
	if err != nil {
		return nil, err
	}
	return &BooleanQuery{baseQuery: base}, nil
}

// PrepareUpdate prepares a SPARQL update.
func (c *Connection) PrepareUpdate(text string, opts ...QueryOption) (*Update, error) {
	base, err := c.prepare(text, opts)
	if err != nil {
		return nil, err
	}
	return &Update{baseQuery: base}, nil
}

func (c *Connection) prepare(text string, opts []QueryOption) (baseQuery, error) {
	if _, _, err := c.session(); err != nil {
		return baseQuery{}, err
	}
	cfg := queryConfig{language: query.SPARQL}
	for _, opt := range opts {
		opt(&cfg)
	}
	if !strings.EqualFold(string(cfg.language), string(query.SPARQL)) {
		return baseQuery{}, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, cfg.language)
	}
	return newBaseQuery(c, text, cfg.baseURI), nil
}

// Add loads a serialized RDF document into the given contexts, or into the
// default graph when none are given. Quad formats keep the graphs they name.
func (c *Connection) Add(ctx context.Context, r io.Reader, baseURI string, format rdf.Format, contexts ...quad.Value) error {
	client, txID, err := c.session()
	if err != nil {
		return err
	}
	if format.IsZero() {
		return &RepositoryError{Op: "add", Err: errors.New("rdf format is required")}
	}
	err = client.Load(ctx, graph.LoadRequest{
		Body:     r,
		Format:   format,
		BaseURI:  baseURI,
		Contexts: contexts,
		TxID:     txID,
	})
	return repositoryError("add", err)
}

// AddFile loads a file. A zero format is detected from the file name, so
// data.nt.gz is N-Triples. Gzip-compressed files are inflated on the fly.
func (c *Connection) AddFile(ctx context.Context, filename, baseURI string, format rdf.Format, contexts ...quad.Value) error {
	if _, _, err := c.session(); err != nil {
		return err
	}
	if format.IsZero() {
		f, ok := rdf.FormatForFileName(filename)
		if !ok {
			return &RepositoryError{Op: "add file", Err: fmt.Errorf("cannot determine rdf format of %s", filename)}
		}
		format = f
	}
	file, err := os.Open(filename)
	if err != nil {
		return &RepositoryError{Op: "add file", Err: err}
	}
	defer file.Close()
	body, closeBody, err := decompressed(file)
	if err != nil {
		return &RepositoryError{Op: "add file", Err: fmt.Errorf("read %s: %w", filename, err)}
	}
	defer closeBody()
	return c.Add(ctx, body, baseURI, format, contexts...)
}

// AddURL fetches a remote document and loads it. A zero format is taken
// from the response content type, then from the URL path.
func (c *Connection) AddURL(ctx context.Context, rawURL, baseURI string, format rdf.Format, contexts ...quad.Value) error {
	if _, _, err := c.session(); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &RepositoryError{Op: "add url", Err: err}
	}
	if format.IsZero() {
		accept := make([]string, 0, len(rdf.Formats()))
		for _, f := range rdf.Formats() {
			accept = append(accept, f.MIMEType)
		}
		req.Header.Set("Accept", strings.Join(accept, ", "))
	} else {
		req.Header.Set("Accept", format.MIMEType)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return &RepositoryError{Op: "add url", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &RepositoryError{Op: "add url", Err: fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)}
	}

	if format.IsZero() {
		format, _ = rdf.FormatForMIMEType(resp.Header.Get("Content-Type"))
	}
	if format.IsZero() {
		format, _ = rdf.FormatForFileName(path.Base(req.URL.Path))
	}
	if format.IsZero() {
		return &RepositoryError{Op: "add url", Err: fmt.Errorf("cannot determine rdf format of %s", rawURL)}
	}
	if baseURI == "" {
		baseURI = rawURL
	}
	body, closeBody, err := decompressed(resp.Body)
	if err != nil {
		return &RepositoryError{Op: "add url", Err: fmt.Errorf("read %s: %w", rawURL, err)}
	}
	defer closeBody()
	return c.Add(ctx, body, baseURI, format, contexts...)
}

// AddStatement inserts one triple into each context, or into the default
// graph when none are given.
func (c *Connection) AddStatement(ctx context.Context, s, p, o quad.Value, contexts ...quad.Value) error {
	if len(contexts) == 0 {
		contexts = []quad.Value{nil}
	}
	statements := make([]quad.Quad, len(contexts))
	for i, ctxID := range contexts {
		statements[i] = quad.Quad{Subject: s, Predicate: p, Object: o, Label: ctxID}
	}
	return c.AddStatements(ctx, statements...)
}

// AddStatements inserts statements; each lands in the graph of its label.
func (c *Connection) AddStatements(ctx context.Context, statements ...quad.Quad) error {
	client, txID, err := c.session()
	if err != nil {
		return err
	}
	for _, st := range statements {
		if st.Subject == nil || st.Predicate == nil || st.Object == nil {
			return &RepositoryError{Op: "add statements", Err: fmt.Errorf("incomplete statement %v", st)}
		}
	}
	return repositoryError("add statements", client.InsertStatements(ctx, statements, txID))
}

// Remove deletes matching statements. Nil terms are wildcards; no contexts
// means every graph.
func (c *Connection) Remove(ctx context.Context, s, p, o quad.Value, contexts ...quad.Value) error {
	client, txID, err := c.session()
	if err != nil {
		return err
	}
	pattern := graph.Pattern{Subject: s, Predicate: p, Object: o, Contexts: contexts}
	return repositoryError("remove", client.DeleteStatements(ctx, pattern, txID))
}

// RemoveStatements deletes exactly the given statements. A nil label is the
// default graph.
func (c *Connection) RemoveStatements(ctx context.Context, statements ...quad.Quad) error {
	client, txID, err := c.session()
	if err != nil {
		return err
	}
	for _, st := range statements {
		pattern := graph.Pattern{
			Subject:   st.Subject,
			Predicate: st.Predicate,
			Object:    st.Object,
			Contexts:  []quad.Value{st.Label},
		}
		if err := client.DeleteStatements(ctx, pattern, txID); err != nil {
			return repositoryError("remove statements", err)
		}
	}
	return nil
}

// Clear deletes every statement of the given graphs, or of the default
// graph when none are given.
func (c *Connection) Clear(ctx context.Context, contexts ...quad.Value) error {
	client, txID, err := c.session()
	if err != nil {
		return err
	}
	return repositoryError("clear", client.ClearGraphs(ctx, contexts, txID))
}

// ContextIDs lists the named graphs that hold statements. The cursor must
// be closed.
func (c *Connection) ContextIDs(ctx context.Context) (*query.Cursor[quad.Value], error) {
	client, txID, err := c.session()
	if err != nil {
		return nil, err
	}
	cur, err := client.Graphs(ctx, txID)
	if err != nil {
		return nil, repositoryError("context ids", err)
	}
	return cur, nil
}

// Statements returns matching statements. Nil terms are wildcards; no
// contexts means every graph.
func (c *Connection) Statements(ctx context.Context, s, p, o quad.Value, includeInferred bool, contexts ...quad.Value) (*query.GraphResult, error) {
	client, txID, err := c.session()
	if err != nil {
		return nil, err
	}
	pattern := graph.Pattern{Subject: s, Predicate: p, Object: o, Contexts: contexts}
	res, err := client.MatchStatements(ctx, pattern, includeInferred, txID)
	if err != nil {
		return nil, repositoryError("statements", err)
	}
	return query.NewGraphResult(res.Cursor, c.Namespaces()), nil
}

// HasStatement reports whether at least one statement matches.
func (c *Connection) HasStatement(ctx context.Context, s, p, o quad.Value, includeInferred bool, contexts ...quad.Value) (bool, error) {
	res, err := c.Statements(ctx, s, p, o, includeInferred, contexts...)
	if err != nil {
		return false, err
	}
	defer res.Close()
	if res.HasNext() {
		return true, nil
	}
	return false, repositoryError("has statement", res.Err())
}

// Size counts the statements in the given graphs, or in the whole store
// when none are given.
func (c *Connection) Size(ctx context.Context, contexts ...quad.Value) (int64, error) {
	client, txID, err := c.session()
	if err != nil {
		return 0, err
	}
	n, err := client.CountStatements(ctx, graph.Pattern{Contexts: contexts}, txID)
	if err != nil {
		return 0, repositoryError("size", err)
	}
	return n, nil
}

// Export pushes every statement of the given graphs through h.
func (c *Connection) Export(ctx context.Context, h query.RDFHandler, contexts ...quad.Value) error {
	res, err := c.Statements(ctx, nil, nil, nil, false, contexts...)
	if err != nil {
		return err
	}
	return repositoryError("export", res.Drain(h))
}

// SetNamespace registers a prefix that is declared on every prepared query
// which does not declare it itself.
func (c *Connection) SetNamespace(prefix, iri string) error {
	if _, _, err := c.session(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.namespaces[prefix] = iri
	return nil
}

// Namespace returns the IRI registered for prefix.
func (c *Connection) Namespace(prefix string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	iri, ok := c.namespaces[prefix]
	return iri, ok
}

// RemoveNamespace forgets prefix.
func (c *Connection) RemoveNamespace(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.namespaces, prefix)
}

// Namespaces returns a copy of the registered prefixes.
func (c *Connection) Namespaces() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.namespaces))
	for k, v := range c.namespaces {
		out[k] = v
	}
	return out
}

// ClearNamespaces forgets every prefix.
func (c *Connection) ClearNamespaces() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.namespaces = make(map[string]string)
}

var prefixDecl = regexp.MustCompile(`(?i)\bPREFIX\s+([^\s:]*):`)

// declaredPrefixes returns the prefix names declared in a query.
func declaredPrefixes(text string) map[string]struct{} {
	found := make(map[string]struct{})
	for _, m := range prefixDecl.FindAllStringSubmatch(text, -1) {
		found[m[1]] = struct{}{}
	}
	return found
}

// withPrefixes prepends PREFIX declarations for registered namespaces the
// query text does not declare.
func (c *Connection) withPrefixes(text string) string {
	ns := c.Namespaces()
	if len(ns) == 0 {
		return text
	}
	prefixes := make([]string, 0, len(ns))
	for p := range ns {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)

	declared := declaredPrefixes(text)
	var sb strings.Builder
	for _, p := range prefixes {
		if _, ok := declared[p]; ok {
			continue
		}
		fmt.Fprintf(&sb, "PREFIX %s: <%s>\n", p, ns[p])
	}
	return sb.String() + text
}
