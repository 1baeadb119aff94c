package repository

import (
	"context"
	"sync"

	"github.com/cayleygraph/quad"

	"github.com/vanshika/sparqlconn/internal/graph"
	"github.com/vanshika/sparqlconn/internal/query"
)

// QueryOption configures a prepared query.
type QueryOption func(*queryConfig)

type queryConfig struct {
	language query.Language
	baseURI  string
}

// WithLanguage selects the query language. Only SPARQL is accepted.
func WithLanguage(l query.Language) QueryOption {
	return func(c *queryConfig) {
		c.language = l
	}
}

// WithBaseURI sets the base IRI relative IRIs in the query resolve against.
func WithBaseURI(uri string) QueryOption {
	return func(c *queryConfig) {
		c.baseURI = uri
	}
}

// Query is the part shared by every prepared query variant.
type Query interface {
	QueryString() string
	BaseURI() string
	SetBinding(name string, v quad.Value)
	RemoveBinding(name string)
	ClearBindings()
	Bindings() query.BindingSet
	SetIncludeInferred(include bool)
	IncludeInferred() bool
	SetDataset(d query.Dataset)
	Dataset() query.Dataset
}

// baseQuery holds the text and evaluation settings of a prepared query.
// Settings may change between evaluations; each evaluation sends the
// current ones.
type baseQuery struct {
	conn    *Connection
	text    string
	baseURI string

	mu              *sync.Mutex
	bindings        map[string]quad.Value
	includeInferred bool
	rulesets        []query.Ruleset
	dataset         query.Dataset
}

func newBaseQuery(conn *Connection, text, baseURI string) baseQuery {
	return baseQuery{
		conn:            conn,
		text:            text,
		baseURI:         baseURI,
		mu:              &sync.Mutex{},
		bindings:        make(map[string]quad.Value),
		includeInferred: true,
	}
}

func (q *baseQuery) QueryString() string { return q.text }

func (q *baseQuery) BaseURI() string { return q.baseURI }

// SetBinding binds name to v for later evaluations. A nil value removes
// the binding.
func (q *baseQuery) SetBinding(name string, v quad.Value) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if v == nil {
		delete(q.bindings, name)
		return
	}
	q.bindings[name] = v
}

func (q *baseQuery) RemoveBinding(name string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.bindings, name)
}

func (q *baseQuery) ClearBindings() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.bindings = make(map[string]quad.Value)
}

// Bindings returns the current bindings ordered by name.
func (q *baseQuery) Bindings() query.BindingSet {
	q.mu.Lock()
	defer q.mu.Unlock()
	return query.BindingsFromMap(q.bindings)
}

// SetIncludeInferred selects whether the store's default rulesets apply.
// It is on by default.
func (q *baseQuery) SetIncludeInferred(include bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.includeInferred = include
}

func (q *baseQuery) IncludeInferred() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.includeInferred
}

// SetRulesets replaces the rulesets applied to the query. Duplicates are
// dropped, the first occurrence keeps its position.
func (q *baseQuery) SetRulesets(rulesets ...query.Ruleset) {
	seen := make(map[query.Ruleset]bool, len(rulesets))
	out := make([]query.Ruleset, 0, len(rulesets))
	for _, rs := range rulesets {
		if rs == "" || seen[rs] {
			continue
		}
		seen[rs] = true
		out = append(out, rs)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rulesets = out
}

func (q *baseQuery) Rulesets() []query.Ruleset {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]query.Ruleset(nil), q.rulesets...)
}

func (q *baseQuery) SetDataset(d query.Dataset) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dataset = d
}

func (q *baseQuery) Dataset() query.Dataset {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dataset
}

func (q *baseQuery) request(txID string, start, pageLength int64) graph.QueryRequest {
	q.mu.Lock()
	defer q.mu.Unlock()
	return graph.QueryRequest{
		Query:           q.conn.withPrefixes(q.text),
		BaseURI:         q.baseURI,
		Bindings:        query.BindingsFromMap(q.bindings),
		IncludeInferred: q.includeInferred,
		Rulesets:        append([]query.Ruleset(nil), q.rulesets...),
		Dataset:         q.dataset,
		Start:           start,
		PageLength:      pageLength,
		TxID:            txID,
	}
}

// page converts a 1-based page number into the first row of the window.
func page(pageLength, pageNumber int64) (int64, error) {
	if pageLength <= 0 || pageNumber <= 0 {
		return 0, ErrInvalidPage
	}
	return (pageNumber-1)*pageLength + 1, nil
}

func checkWindow(start, pageLength int64) error {
	if start <= 0 || pageLength <= 0 {
		return ErrInvalidPage
	}
	return nil
}

// TupleQuery is a prepared SELECT query.
type TupleQuery struct {
	baseQuery
}

// Evaluate sends the query and returns a lazy result that must be closed.
func (q *TupleQuery) Evaluate(ctx context.Context) (*query.TupleResult, error) {
	return q.evaluate(ctx, 0, 0)
}

// EvaluateWindow returns at most pageLength rows starting at the 1-based
// row start, the store's start/pageLength window. EvaluateWindow(ctx, 3, 1)
// yields the third row only.
func (q *TupleQuery) EvaluateWindow(ctx context.Context, start, pageLength int64) (*query.TupleResult, error) {
	if err := checkWindow(start, pageLength); err != nil {
		return nil, err
	}
	return q.evaluate(ctx, start, pageLength)
}

// EvaluatePage returns rows (pageNumber-1)*pageLength+1 through
// pageNumber*pageLength of the result.
func (q *TupleQuery) EvaluatePage(ctx context.Context, pageLength, pageNumber int64) (*query.TupleResult, error) {
	start, err := page(pageLength, pageNumber)
	if err != nil {
		return nil, err
	}
	return q.EvaluateWindow(ctx, start, pageLength)
}

// EvaluateTo pushes the rows through h instead of returning them.
func (q *TupleQuery) EvaluateTo(ctx context.Context, h query.TupleHandler) error {
	res, err := q.Evaluate(ctx)
	if err != nil {
		return err
	}
	return evaluationError("tuple query", q.text, res.Drain(h))
}

// EvaluateWindowTo pushes the rows of a start/pageLength window through h.
func (q *TupleQuery) EvaluateWindowTo(ctx context.Context, h query.TupleHandler, start, pageLength int64) error {
	res, err := q.EvaluateWindow(ctx, start, pageLength)
	if err != nil {
		return err
	}
	return evaluationError("tuple query", q.text, res.Drain(h))
}

// EvaluatePageTo pushes one page of rows through h.
func (q *TupleQuery) EvaluatePageTo(ctx context.Context, h query.TupleHandler, pageLength, pageNumber int64) error {
	res, err := q.EvaluatePage(ctx, pageLength, pageNumber)
	if err != nil {
		return err
	}
	return evaluationError("tuple query", q.text, res.Drain(h))
}

func (q *TupleQuery) evaluate(ctx context.Context, start, pageLength int64) (*query.TupleResult, error) {
	client, txID, err := q.conn.session()
	if err != nil {
		return nil, err
	}
	res, err := client.Select(ctx, q.request(txID, start, pageLength))
	if err != nil {
		return nil, evaluationError("tuple query", q.text, err)
	}
	return res, nil
}

// GraphQuery is a prepared CONSTRUCT or DESCRIBE query.
type GraphQuery struct {
	baseQuery
}

// Evaluate sends the query and returns a lazy statement result that must
// be closed.
func (q *GraphQuery) Evaluate(ctx context.Context) (*query.GraphResult, error) {
	return q.evaluate(ctx, 0, 0)
}

// EvaluateWindow returns at most pageLength statements starting at the
// 1-based position start.
func (q *GraphQuery) EvaluateWindow(ctx context.Context, start, pageLength int64) (*query.GraphResult, error) {
	if err := checkWindow(start, pageLength); err != nil {
		return nil, err
	}
	return q.evaluate(ctx, start, pageLength)
}

// EvaluatePage returns one page of the statements.
func (q *GraphQuery) EvaluatePage(ctx context.Context, pageLength, pageNumber int64) (*query.GraphResult, error) {
	start, err := page(pageLength, pageNumber)
	if err != nil {
		return nil, err
	}
	return q.EvaluateWindow(ctx, start, pageLength)
}

// EvaluateTo pushes the statements through h, preceded by the connection's
// namespaces.
func (q *GraphQuery) EvaluateTo(ctx context.Context, h query.RDFHandler) error {
	res, err := q.Evaluate(ctx)
	if err != nil {
		return err
	}
	return evaluationError("graph query", q.text, res.Drain(h))
}

func (q *GraphQuery) evaluate(ctx context.Context, start, pageLength int64) (*query.GraphResult, error) {
	client, txID, err := q.conn.session()
	if err != nil {
		return nil, err
	}
	res, err := client.Construct(ctx, q.request(txID, start, pageLength))
	if err != nil {
		return nil, evaluationError("graph query", q.text, err)
	}
	ns := res.Namespaces()
	for prefix, iri := range q.conn.Namespaces() {
		if _, ok := ns[prefix]; !ok {
			ns[prefix] = iri
		}
	}
	return query.NewGraphResult(res.Cursor, ns), nil
}

// BooleanQuery is a prepared ASK query.
type BooleanQuery struct {
	baseQuery
}

// Evaluate returns the answer of the query.
func (q *BooleanQuery) Evaluate(ctx context.Context) (bool, error) {
	client, txID, err := q.conn.session()
	if err != nil {
		return false, err
	}
	ok, err := client.Ask(ctx, q.request(txID, 0, 0))
	if err != nil {
		return false, evaluationError("boolean query", q.text, err)
	}
	return ok, nil
}

// EvaluateTo hands the answer to h.
func (q *BooleanQuery) EvaluateTo(ctx context.Context, h query.BooleanHandler) error {
	ok, err := q.Evaluate(ctx)
	if err != nil {
		return err
	}
	return h.HandleBoolean(ok)
}

// Update is a prepared SPARQL update.
type Update struct {
	baseQuery
}

// Execute runs the update inside the connection's transaction, if any.
func (u *Update) Execute(ctx context.Context) error {
	client, txID, err := u.conn.session()
	if err != nil {
		return err
	}
	req := u.request(txID, 0, 0)
	err = client.Update(ctx, graph.UpdateRequest{
		Update:   req.Query,
		BaseURI:  req.BaseURI,
		Bindings: req.Bindings,
		Dataset:  req.Dataset,
		TxID:     txID,
	})
	return evaluationError("update", u.text, err)
}
