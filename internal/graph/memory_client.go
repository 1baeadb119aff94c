package graph

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/cayleygraph/quad"
	"github.com/google/uuid"

	"github.com/vanshika/sparqlconn/internal/query"
	"github.com/vanshika/sparqlconn/internal/rdf"
	"github.com/vanshika/sparqlconn/internal/resultio"
)

// MemoryClient is an in-memory implementation of the Client interface used
// for unit testing without a running store. Statement operations work on a
// real in-memory statement set with transactions; SPARQL queries and updates
// are recorded and answered from canned results.
type MemoryClient struct {
	mu sync.Mutex

	queryCalls  []QueryRequest
	updateCalls []UpdateRequest
	loadCalls   []LoadCall

	tupleResults []CannedTuples
	graphResults [][]quad.Quad
	boolResults  []bool

	statements map[string]quad.Quad
	txs        map[string]*memoryTx

	err          error
	connectivity error
	closed       bool
}

// CannedTuples is a SELECT answer queued on a MemoryClient.
type CannedTuples struct {
	Names []string
	Rows  []query.BindingSet
}

// LoadCall captures a Load request with its body read into memory.
type LoadCall struct {
	Format   rdf.Format
	BaseURI  string
	Contexts []quad.Value
	TxID     string
	Body     []byte
}

// NewMemoryClient instantiates an empty in-memory client.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		statements: make(map[string]quad.Quad),
		txs:        make(map[string]*memoryTx),
	}
}

// WithError configures the client to return the provided error for subsequent calls.
func (m *MemoryClient) WithError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithConnectivityError forces VerifyConnectivity to return the supplied error.
func (m *MemoryClient) WithConnectivityError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectivity = err
	return m
}

// PushTupleResult queues the answer of the next Select call.
func (m *MemoryClient) PushTupleResult(names []string, rows ...query.BindingSet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tupleResults = append(m.tupleResults, CannedTuples{Names: names, Rows: rows})
}

// PushGraphResult queues the answer of the next Construct call.
func (m *MemoryClient) PushGraphResult(statements ...quad.Quad) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.graphResults = append(m.graphResults, statements)
}

// PushBooleanResult queues the answer of the next Ask call.
func (m *MemoryClient) PushBooleanResult(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.boolResults = append(m.boolResults, v)
}

func (m *MemoryClient) Select(_ context.Context, req QueryRequest) (*query.TupleResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	m.queryCalls = append(m.queryCalls, req)
	if len(m.tupleResults) == 0 {
		return query.NewTupleResult(nil, query.SliceCursor[query.BindingSet](nil)), nil
	}
	res := m.tupleResults[0]
	m.tupleResults = m.tupleResults[1:]

	rows := res.Rows
	if req.PageLength > 0 {
		rows = window(rows, req.Start, req.PageLength)
	}
	return query.NewTupleResult(res.Names, query.SliceCursor(rows)), nil
}

func window[T any](rows []T, start, length int64) []T {
	if start < 1 {
		start = 1
	}
	from := start - 1
	if from >= int64(len(rows)) {
		return nil
	}
	to := from + length
	if to > int64(len(rows)) {
		to = int64(len(rows))
	}
	return rows[from:to]
}

func (m *MemoryClient) Construct(_ context.Context, req QueryRequest) (*query.GraphResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	m.queryCalls = append(m.queryCalls, req)
	var statements []quad.Quad
	if len(m.graphResults) > 0 {
		statements = m.graphResults[0]
		m.graphResults = m.graphResults[1:]
	}
	return query.NewGraphResult(query.SliceCursor(statements), nil), nil
}

func (m *MemoryClient) Ask(_ context.Context, req QueryRequest) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return false, err
	}
	m.queryCalls = append(m.queryCalls, req)
	if len(m.boolResults) == 0 {
		return false, nil
	}
	v := m.boolResults[0]
	m.boolResults = m.boolResults[1:]
	return v, nil
}

func (m *MemoryClient) Update(_ context.Context, req UpdateRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	if _, err := m.store(req.TxID); err != nil {
		return err
	}
	m.updateCalls = append(m.updateCalls, req)
	return nil
}

// Load records the request. N-Triples and N-Quads bodies are also decoded
// into the statement set; other formats are only recorded.
func (m *MemoryClient) Load(_ context.Context, req LoadRequest) error {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return fmt.Errorf("load: read source: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	store, err := m.store(req.TxID)
	if err != nil {
		return err
	}
	m.loadCalls = append(m.loadCalls, LoadCall{
		Format:   req.Format,
		BaseURI:  req.BaseURI,
		Contexts: append([]quad.Value(nil), req.Contexts...),
		TxID:     req.TxID,
		Body:     body,
	})

	if req.Format.MIMEType != rdf.NQuads.MIMEType && req.Format.MIMEType != rdf.NTriples.MIMEType {
		return nil
	}
	parsed, err := resultio.ReadStatements(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	for _, st := range parsed {
		if len(req.Contexts) == 0 {
			store[rdf.Key(st)] = st
			continue
		}
		for _, c := range req.Contexts {
			st.Label = c
			store[rdf.Key(st)] = st
		}
	}
	return nil
}

func (m *MemoryClient) InsertStatements(_ context.Context, statements []quad.Quad, txID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	store, err := m.store(txID)
	if err != nil {
		return err
	}
	for _, st := range statements {
		store[rdf.Key(st)] = st
	}
	return nil
}

func (m *MemoryClient) DeleteStatements(_ context.Context, pattern Pattern, txID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	store, err := m.store(txID)
	if err != nil {
		return err
	}
	for key, st := range store {
		if matches(pattern, st) {
			delete(store, key)
		}
	}
	return nil
}

// ClearGraphs removes every statement of the listed graphs; an empty list
// clears the default graph.
func (m *MemoryClient) ClearGraphs(_ context.Context, graphs []quad.Value, txID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	store, err := m.store(txID)
	if err != nil {
		return err
	}
	if len(graphs) == 0 {
		graphs = []quad.Value{nil}
	}
	for key, st := range store {
		if inContexts(graphs, st.Label) {
			delete(store, key)
		}
	}
	return nil
}

func (m *MemoryClient) MatchStatements(_ context.Context, pattern Pattern, _ bool, txID string) (*query.GraphResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	store, err := m.store(txID)
	if err != nil {
		return nil, err
	}
	var out []quad.Quad
	for _, st := range store {
		if matches(pattern, st) {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return rdf.Key(out[i]) < rdf.Key(out[j]) })
	return query.NewGraphResult(query.SliceCursor(out), nil), nil
}

func (m *MemoryClient) CountStatements(_ context.Context, pattern Pattern, txID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return 0, err
	}
	store, err := m.store(txID)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, st := range store {
		if matches(pattern, st) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryClient) Graphs(_ context.Context, txID string) (*query.Cursor[quad.Value], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	store, err := m.store(txID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]quad.Value)
	for _, st := range store {
		if st.Label != nil {
			seen[st.Label.String()] = st.Label
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]quad.Value, len(keys))
	for i, k := range keys {
		out[i] = seen[k]
	}
	return query.SliceCursor(out), nil
}

// memoryTx is a private copy of the statement set. base remembers the
// committed state at Begin so Commit applies only the transaction's changes.
type memoryTx struct {
	base map[string]quad.Quad
	work map[string]quad.Quad
}

// BeginTransaction snapshots the committed statements; the transaction
// works on the snapshot until it is committed or rolled back.
func (m *MemoryClient) BeginTransaction(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	m.txs[id] = &memoryTx{
		base: cloneStatements(m.statements),
		work: cloneStatements(m.statements),
	}
	return id, nil
}

func (m *MemoryClient) CommitTransaction(_ context.Context, txID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	tx, ok := m.txs[txID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTransaction, txID)
	}
	for key := range tx.base {
		if _, kept := tx.work[key]; !kept {
			delete(m.statements, key)
		}
	}
	for key, st := range tx.work {
		if _, existed := tx.base[key]; !existed {
			m.statements[key] = st
		}
	}
	delete(m.txs, txID)
	return nil
}

func (m *MemoryClient) RollbackTransaction(_ context.Context, txID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	if _, ok := m.txs[txID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTransaction, txID)
	}
	delete(m.txs, txID)
	return nil
}

func (m *MemoryClient) VerifyConnectivity(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectivity
}

func (m *MemoryClient) Close(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MemoryClient) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// QueryCalls returns a snapshot of executed queries.
func (m *MemoryClient) QueryCalls() []QueryRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]QueryRequest(nil), m.queryCalls...)
}

// UpdateCalls returns a snapshot of executed updates.
func (m *MemoryClient) UpdateCalls() []UpdateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]UpdateRequest(nil), m.updateCalls...)
}

// LoadCalls returns a snapshot of load requests.
func (m *MemoryClient) LoadCalls() []LoadCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LoadCall(nil), m.loadCalls...)
}

// Statements returns the committed statements in a stable order.
func (m *MemoryClient) Statements() []quad.Quad {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]quad.Quad, 0, len(m.statements))
	for _, st := range m.statements {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return rdf.Key(out[i]) < rdf.Key(out[j]) })
	return out
}

// OpenTransactions reports how many transactions are neither committed nor
// rolled back.
func (m *MemoryClient) OpenTransactions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.txs)
}

func (m *MemoryClient) check() error {
	if m.err != nil {
		return m.err
	}
	return nil
}

func (m *MemoryClient) store(txID string) (map[string]quad.Quad, error) {
	if txID == "" {
		return m.statements, nil
	}
	tx, ok := m.txs[txID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransaction, txID)
	}
	return tx.work, nil
}

func matches(p Pattern, st quad.Quad) bool {
	if p.Subject != nil && !rdf.Equal(p.Subject, st.Subject) {
		return false
	}
	if p.Predicate != nil && !rdf.Equal(p.Predicate, st.Predicate) {
		return false
	}
	if p.Object != nil && !rdf.Equal(p.Object, st.Object) {
		return false
	}
	return len(p.Contexts) == 0 || inContexts(p.Contexts, st.Label)
}

func inContexts(contexts []quad.Value, label quad.Value) bool {
	for _, c := range contexts {
		if rdf.Equal(c, label) {
			return true
		}
	}
	return false
}

func cloneStatements(in map[string]quad.Quad) map[string]quad.Quad {
	out := make(map[string]quad.Quad, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
