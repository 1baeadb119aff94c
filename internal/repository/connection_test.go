package repository

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/cayleygraph/quad"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/sparqlconn/internal/graph"
	"github.com/vanshika/sparqlconn/internal/query"
	"github.com/vanshika/sparqlconn/internal/rdf"
	"github.com/vanshika/sparqlconn/internal/resultio"
)

var (
	exAlice = quad.IRI("http://example.org/alice")
	exBob   = quad.IRI("http://example.org/bob")
	exKnows = quad.IRI("http://xmlns.com/foaf/0.1/knows")
	ctx1    = quad.IRI("http://marklogic.com/test/context1")
	ctx2    = quad.IRI("http://marklogic.com/test/context2")
)

func openConnection(t *testing.T, mem *graph.MemoryClient) *Connection {
	t.Helper()
	conn, err := newMemoryRepository(t, mem).Connection()
	require.NoError(t, err)
	return conn
}

func TestConnection_OpenAndActiveFlags(t *testing.T) {
	ctx := context.Background()
	conn := openConnection(t, graph.NewMemoryClient())

	assert.True(t, conn.IsOpen())
	assert.False(t, conn.IsActive())

	require.NoError(t, conn.Begin(ctx))
	assert.True(t, conn.IsActive())
	require.NoError(t, conn.Commit(ctx))
	assert.False(t, conn.IsActive())

	require.NoError(t, conn.Close(ctx))
	assert.False(t, conn.IsOpen())
	require.NoError(t, conn.Close(ctx))
}

func TestConnection_CloseAfterShutDownWarnsAboutOpenTransaction(t *testing.T) {
	ctx := context.Background()
	var logs bytes.Buffer
	mem := graph.NewMemoryClient()
	repo := NewRepository(graph.Options{}, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))), WithClientFactory(
		func(context.Context, graph.Options) (graph.Client, error) { return mem, nil },
	))
	require.NoError(t, repo.Initialize(ctx))
	conn, err := repo.Connection()
	require.NoError(t, err)
	require.NoError(t, conn.Begin(ctx))
	require.NoError(t, repo.ShutDown(ctx))

	require.NoError(t, conn.Close(ctx))
	assert.False(t, conn.IsOpen())
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "transaction left open on store")
}

func TestConnection_ClosedRejectsEverything(t *testing.T) {
	ctx := context.Background()
	mem := graph.NewMemoryClient()
	conn := openConnection(t, mem)
	require.NoError(t, conn.Close(ctx))

	_, err := conn.PrepareTupleQuery("SELECT * WHERE { ?s ?p ?o }")
	assert.ErrorIs(t, err, ErrConnectionClosed)
	assert.ErrorIs(t, conn.Begin(ctx), ErrConnectionClosed)
	assert.ErrorIs(t, conn.AddStatement(ctx, exAlice, exKnows, exBob), ErrConnectionClosed)
	assert.ErrorIs(t, conn.Remove(ctx, nil, nil, nil), ErrConnectionClosed)
	assert.ErrorIs(t, conn.Clear(ctx), ErrConnectionClosed)
	_, err = conn.Size(ctx)
	assert.ErrorIs(t, err, ErrConnectionClosed)
	_, err = conn.ContextIDs(ctx)
	assert.ErrorIs(t, err, ErrConnectionClosed)
	assert.True(t, IsUsageError(err))

	assert.Empty(t, mem.QueryCalls())
	assert.Empty(t, mem.Statements())
}

func TestConnection_QueryPreparedBeforeCloseFailsAfter(t *testing.T) {
	ctx := context.Background()
	conn := openConnection(t, graph.NewMemoryClient())
	q, err := conn.PrepareTupleQuery("SELECT * WHERE { ?s ?p ?o }")
	require.NoError(t, err)
	require.NoError(t, conn.Close(ctx))

	_, err = q.Evaluate(ctx)
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestConnection_BindingLifecycle(t *testing.T) {
	conn := openConnection(t, graph.NewMemoryClient())
	q, err := conn.PrepareTupleQuery("SELECT ?o WHERE { ?b ?p ?o }")
	require.NoError(t, err)

	q.SetBinding("b", exAlice)
	q.SetBinding("p", exKnows)
	require.NotNil(t, q.Bindings().Binding("b"))

	q.RemoveBinding("b")
	assert.Nil(t, q.Bindings().Binding("b"))
	assert.Equal(t, 1, q.Bindings().Len())

	q.ClearBindings()
	assert.Zero(t, q.Bindings().Len())
}

func TestConnection_EvaluateSendsSettings(t *testing.T) {
	ctx := context.Background()
	mem := graph.NewMemoryClient()
	conn := openConnection(t, mem)

	q, err := conn.PrepareTupleQuery("SELECT * WHERE { ?s ?p ?o }", WithBaseURI("http://example.org/"))
	require.NoError(t, err)
	assert.True(t, q.IncludeInferred())
	q.SetIncludeInferred(false)
	q.SetRulesets(query.RulesetRDFS, query.RulesetSameAs, query.RulesetRDFS)
	q.SetDataset(query.Dataset{DefaultGraphs: []quad.IRI{ctx1}})
	q.SetBinding("s", exAlice)

	res, err := q.Evaluate(ctx)
	require.NoError(t, err)
	require.NoError(t, res.Close())

	calls := mem.QueryCalls()
	require.Len(t, calls, 1)
	call := calls[0]
	assert.Equal(t, "http://example.org/", call.BaseURI)
	assert.False(t, call.IncludeInferred)
	assert.Equal(t, []query.Ruleset{query.RulesetRDFS, query.RulesetSameAs}, call.Rulesets)
	assert.Equal(t, []quad.IRI{ctx1}, call.Dataset.DefaultGraphs)
	assert.Equal(t, quad.Value(exAlice), call.Bindings.Value("s"))
	assert.Zero(t, call.PageLength)
	assert.Empty(t, call.TxID)
}

func TestConnection_PrepareQueryDetectsForm(t *testing.T) {
	conn := openConnection(t, graph.NewMemoryClient())

	cases := map[string]any{
		"# comment\nPREFIX ex: <http://example.org/>\nSELECT * WHERE { ?s ?p ?o }": &TupleQuery{},
		"CONSTRUCT { ?s ?p ?o } WHERE { ?s ?p ?o }":                                &GraphQuery{},
		"DESCRIBE <http://example.org/alice>":                                      &GraphQuery{},
		"ASK { ?s ?p ?o }":                                                         &BooleanQuery{},
		"INSERT DATA { <urn:a> <urn:b> <urn:c> }":                                  &Update{},
	}
	for text, want := range cases {
		q, err := conn.PrepareQuery(text)
		require.NoError(t, err, text)
		assert.IsType(t, want, q, text)
		assert.Equal(t, text, q.QueryString())
	}

	_, err := conn.PrepareQuery("   ")
	var malformed *MalformedQueryError
	assert.ErrorAs(t, err, &malformed)
}

func TestConnection_UnsupportedLanguage(t *testing.T) {
	conn := openConnection(t, graph.NewMemoryClient())

	_, err := conn.PrepareTupleQuery("select ?s where { ?s ?p ?o }", WithLanguage("SeRQL"))
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)

	_, err = conn.PrepareTupleQuery("select ?s where { ?s ?p ?o }", WithLanguage("sparql"))
	assert.NoError(t, err)
}

func TestConnection_EndToEndLimitTwo(t *testing.T) {
	ctx := context.Background()
	srv, _ := newFixtureServer(t)
	conn, err := newRESTRepository(t, srv).Connection()
	require.NoError(t, err)
	defer conn.Close(ctx)

	q, err := conn.PrepareTupleQuery("select ?s ?p ?o { ?s ?p ?o } limit 2")
	require.NoError(t, err)
	res, err := q.Evaluate(ctx)
	require.NoError(t, err)
	defer res.Close()

	assert.Equal(t, []string{"s", "p", "o"}, res.BindingNames())
	require.True(t, res.HasNext())
	first, err := res.Next()
	require.NoError(t, err)
	assert.Equal(t, ntNames+"AlexandriaGeodata", rdf.StringValue(first.Value("s")))
	assert.Equal(t, ntNames+"altitude", rdf.StringValue(first.Value("p")))
	assert.Equal(t, "0", rdf.StringValue(first.Value("o")))

	require.True(t, res.HasNext())
	_, err = res.Next()
	require.NoError(t, err)
	assert.False(t, res.HasNext())
	assert.NoError(t, res.Err())
}

func TestConnection_EvaluateToXMLWriter(t *testing.T) {
	ctx := context.Background()
	srv, _ := newFixtureServer(t)
	conn, err := newRESTRepository(t, srv).Connection()
	require.NoError(t, err)

	q, err := conn.PrepareTupleQuery("select ?s ?p ?o { ?s ?p ?o } limit 1")
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, q.EvaluateTo(ctx, resultio.NewXMLWriter(&out)))
	doc := out.String()
	assert.Contains(t, doc, "<variable name='s'/>")
	assert.Contains(t, doc, "<uri>"+ntNames+"AlexandriaGeodata</uri>")
	assert.Contains(t, doc, "<literal datatype='http://www.w3.org/2001/XMLSchema#int'>0</literal>")
	assert.Equal(t, 1, strings.Count(doc, "<result>"))
}

func TestConnection_PaginationWindow(t *testing.T) {
	ctx := context.Background()
	srv, selects := newFixtureServer(t)
	conn, err := newRESTRepository(t, srv).Connection()
	require.NoError(t, err)

	q, err := conn.PrepareTupleQuery("select ?s ?p ?o { ?s ?p ?o } limit 100")
	require.NoError(t, err)

	all, err := q.Evaluate(ctx)
	require.NoError(t, err)
	rows, err := query.Collect(all.Cursor)
	require.NoError(t, err)
	require.Len(t, rows, 100)

	for _, pageNumber := range []int64{1, 2} {
		res, err := q.EvaluatePage(ctx, 3, pageNumber)
		require.NoError(t, err)
		offset := (pageNumber - 1) * 3

		require.True(t, res.HasNext())
		first, err := res.Next()
		require.NoError(t, err)
		assert.Equal(t, rows[offset].String(), first.String())

		n := 1
		for res.HasNext() {
			_, err := res.Next()
			require.NoError(t, err)
			n++
		}
		assert.Equal(t, 3, n)
		assert.False(t, res.HasNext())
		require.NoError(t, res.Close())
	}
	assert.EqualValues(t, 3, selects.Load())

	_, err = q.EvaluatePage(ctx, 0, 1)
	assert.ErrorIs(t, err, ErrInvalidPage)
	_, err = q.EvaluatePage(ctx, 3, 0)
	assert.ErrorIs(t, err, ErrInvalidPage)
}

func TestConnection_WindowStartsAtRow(t *testing.T) {
	ctx := context.Background()
	mem := graph.NewMemoryClient()
	rows := make([]query.BindingSet, 100)
	for i := range rows {
		rows[i] = query.NewBindingSet(query.Binding{Name: "s", Value: quad.IRI("urn:row" + strconv.Itoa(i+1))})
	}
	mem.PushTupleResult([]string{"s"}, rows...)
	conn := openConnection(t, mem)

	q, err := conn.PrepareTupleQuery("select ?s { ?s ?p ?o }")
	require.NoError(t, err)
	res, err := q.EvaluateWindow(ctx, 3, 1)
	require.NoError(t, err)
	defer res.Close()

	require.True(t, res.HasNext())
	row, err := res.Next()
	require.NoError(t, err)
	assert.Equal(t, quad.Value(quad.IRI("urn:row3")), row.Value("s"))
	assert.False(t, res.HasNext())

	calls := mem.QueryCalls()
	require.Len(t, calls, 1)
	assert.EqualValues(t, 3, calls[0].Start)
	assert.EqualValues(t, 1, calls[0].PageLength)

	_, err = q.EvaluateWindow(ctx, 0, 1)
	assert.ErrorIs(t, err, ErrInvalidPage)
	_, err = q.EvaluateWindow(ctx, 1, 0)
	assert.ErrorIs(t, err, ErrInvalidPage)
}

func TestConnection_WindowAgainstStore(t *testing.T) {
	ctx := context.Background()
	srv, _ := newFixtureServer(t)
	conn, err := newRESTRepository(t, srv).Connection()
	require.NoError(t, err)

	q, err := conn.PrepareTupleQuery("select ?s ?p ?o { ?s ?p ?o } limit 100")
	require.NoError(t, err)
	all, err := q.Evaluate(ctx)
	require.NoError(t, err)
	rows, err := query.Collect(all.Cursor)
	require.NoError(t, err)

	res, err := q.EvaluateWindow(ctx, 3, 1)
	require.NoError(t, err)
	got, err := query.Collect(res.Cursor)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rows[2].String(), got[0].String())
}

func TestConnection_ReEvaluateIssuesNewRequest(t *testing.T) {
	ctx := context.Background()
	srv, selects := newFixtureServer(t)
	conn, err := newRESTRepository(t, srv).Connection()
	require.NoError(t, err)

	q, err := conn.PrepareTupleQuery("select ?s ?p ?o { ?s ?p ?o } limit 2")
	require.NoError(t, err)

	var rows int
	handler := query.TupleHandlerFuncs{Solution: func(query.BindingSet) error { rows++; return nil }}
	require.NoError(t, q.EvaluateTo(ctx, handler))
	res, err := q.Evaluate(ctx)
	require.NoError(t, err)
	pulled, err := query.Collect(res.Cursor)
	require.NoError(t, err)

	assert.Equal(t, 2, rows)
	assert.Len(t, pulled, 2)
	assert.EqualValues(t, 2, selects.Load())
}

func TestConnection_MalformedQuery(t *testing.T) {
	ctx := context.Background()
	srv, _ := newFixtureServer(t)
	conn, err := newRESTRepository(t, srv).Connection()
	require.NoError(t, err)

	q, err := conn.PrepareTupleQuery("SELEC")
	require.NoError(t, err, "queries are not validated when prepared")

	_, err = q.Evaluate(ctx)
	var malformed *MalformedQueryError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "SELEC", malformed.Query)
	var statusErr *graph.StatusError
	assert.ErrorAs(t, err, &statusErr)
}

func TestConnection_ErrorKinds(t *testing.T) {
	ctx := context.Background()
	boom := &graph.StatusError{Operation: "select", StatusCode: http.StatusInternalServerError}
	mem := graph.NewMemoryClient()
	conn := openConnection(t, mem)
	mem.WithError(boom)

	q, err := conn.PrepareTupleQuery("SELECT * WHERE { ?s ?p ?o }")
	require.NoError(t, err)
	_, err = q.Evaluate(ctx)
	var evalErr *QueryEvaluationError
	require.ErrorAs(t, err, &evalErr)
	assert.ErrorIs(t, err, boom)

	_, err = conn.Size(ctx)
	var repoErr *RepositoryError
	require.ErrorAs(t, err, &repoErr)
	assert.Equal(t, "size", repoErr.Op)
	assert.False(t, IsUsageError(err))

	wrapped := repositoryError("export", evaluationError("graph query", "", boom))
	require.ErrorAs(t, wrapped, &repoErr)
	assert.ErrorAs(t, wrapped, &evalErr)
}

func TestConnection_AddFileThenClearContexts(t *testing.T) {
	ctx := context.Background()
	mem := graph.NewMemoryClient()
	conn := openConnection(t, mem)

	file := filepath.Join(t.TempDir(), "names.nt")
	data := "<http://example.org/alice> <http://xmlns.com/foaf/0.1/knows> <http://example.org/bob> .\n" +
		"<http://example.org/bob> <http://xmlns.com/foaf/0.1/knows> <http://example.org/carol> .\n"
	require.NoError(t, os.WriteFile(file, []byte(data), 0o600))

	require.NoError(t, conn.AddFile(ctx, file, "", rdf.Format{}, ctx1, ctx2))
	n, err := conn.Size(ctx, ctx1, ctx2)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)

	ok, err := conn.HasStatement(ctx, exAlice, exKnows, exBob, false, ctx1)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, conn.Clear(ctx, ctx1, ctx2))

	ok, err = conn.HasStatement(ctx, nil, nil, nil, false, ctx1, ctx2)
	require.NoError(t, err)
	assert.False(t, ok)
	n, err = conn.Size(ctx, ctx1, ctx2)
	require.NoError(t, err)
	assert.Zero(t, n)

	err = conn.AddFile(ctx, filepath.Join(t.TempDir(), "data.unknown"), "", rdf.Format{})
	var repoErr *RepositoryError
	assert.ErrorAs(t, err, &repoErr)
}

func TestConnection_AddFileGzip(t *testing.T) {
	ctx := context.Background()
	mem := graph.NewMemoryClient()
	conn := openConnection(t, mem)

	data := "<http://example.org/alice> <http://xmlns.com/foaf/0.1/knows> <http://example.org/bob> .\n"
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	file := filepath.Join(t.TempDir(), "names.nt.gz")
	require.NoError(t, os.WriteFile(file, buf.Bytes(), 0o600))

	require.NoError(t, conn.AddFile(ctx, file, "", rdf.Format{}, ctx1))

	calls := mem.LoadCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, rdf.NTriples.MIMEType, calls[0].Format.MIMEType)
	assert.Equal(t, data, string(calls[0].Body))

	ok, err := conn.HasStatement(ctx, exAlice, exKnows, exBob, false, ctx1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConnection_ClearWithoutContextsClearsDefaultGraph(t *testing.T) {
	ctx := context.Background()
	mem := graph.NewMemoryClient()
	conn := openConnection(t, mem)

	require.NoError(t, conn.AddStatement(ctx, exAlice, exKnows, exBob))
	require.NoError(t, conn.AddStatement(ctx, exBob, exKnows, exAlice, ctx1))
	require.NoError(t, conn.Clear(ctx))

	statements := mem.Statements()
	require.Len(t, statements, 1)
	assert.Equal(t, quad.Value(ctx1), statements[0].Label)
}

func TestConnection_RemoveAndStatements(t *testing.T) {
	ctx := context.Background()
	mem := graph.NewMemoryClient()
	conn := openConnection(t, mem)
	vf := conn.ValueFactory()

	require.NoError(t, conn.AddStatements(ctx,
		vf.CreateStatement(exAlice, exKnows, exBob, ctx1),
		vf.CreateStatement(exBob, exKnows, exAlice, ctx1),
		vf.CreateStatement(exAlice, exKnows, exBob, ctx2),
	))

	res, err := conn.Statements(ctx, exAlice, nil, nil, true)
	require.NoError(t, err)
	got, err := query.Collect(res.Cursor)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	require.NoError(t, conn.Remove(ctx, exAlice, nil, nil, ctx1))
	n, err := conn.Size(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	require.NoError(t, conn.RemoveStatements(ctx, vf.CreateStatement(exAlice, exKnows, exBob, ctx2)))
	n, err = conn.Size(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	cur, err := conn.ContextIDs(ctx)
	require.NoError(t, err)
	defer cur.Close()
	ids, err := query.Collect(cur)
	require.NoError(t, err)
	assert.Equal(t, []quad.Value{ctx1}, ids)

	err = conn.AddStatements(ctx, quad.Quad{Subject: exAlice, Predicate: exKnows})
	var repoErr *RepositoryError
	assert.ErrorAs(t, err, &repoErr)
}

func TestConnection_Export(t *testing.T) {
	ctx := context.Background()
	conn := openConnection(t, graph.NewMemoryClient())
	require.NoError(t, conn.SetNamespace("foaf", "http://xmlns.com/foaf/0.1/"))
	require.NoError(t, conn.AddStatement(ctx, exAlice, exKnows, exBob, ctx1))

	var collector query.StatementCollector
	require.NoError(t, conn.Export(ctx, &collector, ctx1))
	assert.Len(t, collector.Statements, 1)
	assert.Equal(t, "http://xmlns.com/foaf/0.1/", collector.Namespaces["foaf"])
}

func TestConnection_TransactionIsolation(t *testing.T) {
	ctx := context.Background()
	mem := graph.NewMemoryClient()
	conn := openConnection(t, mem)

	require.NoError(t, conn.Begin(ctx))
	require.NoError(t, conn.AddStatement(ctx, exAlice, exKnows, exBob, ctx1))
	n, err := conn.Size(ctx, ctx1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "visible inside the transaction")
	assert.Empty(t, mem.Statements(), "not visible outside before commit")
	require.NoError(t, conn.Rollback(ctx))

	n, err = conn.Size(ctx, ctx1)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, conn.Begin(ctx))
	require.NoError(t, conn.AddStatement(ctx, exAlice, exKnows, exBob, ctx1))
	require.NoError(t, conn.Commit(ctx))

	n, err = conn.Size(ctx, ctx1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Zero(t, mem.OpenTransactions())
}

func TestConnection_TransactionMisuse(t *testing.T) {
	ctx := context.Background()
	mem := graph.NewMemoryClient()
	conn := openConnection(t, mem)

	assert.ErrorIs(t, conn.Commit(ctx), ErrNoActiveTransaction)
	assert.ErrorIs(t, conn.Rollback(ctx), ErrNoActiveTransaction)

	require.NoError(t, conn.Begin(ctx))
	assert.ErrorIs(t, conn.Begin(ctx), ErrTransactionActive)
	assert.Equal(t, 1, mem.OpenTransactions())

	require.NoError(t, conn.Close(ctx))
	assert.Zero(t, mem.OpenTransactions(), "close rolls back")
}

func TestConnection_UpdateCarriesTransaction(t *testing.T) {
	ctx := context.Background()
	mem := graph.NewMemoryClient()
	conn := openConnection(t, mem)

	u, err := conn.PrepareUpdate("INSERT DATA { GRAPH ?g { <urn:a> <urn:b> <urn:c> } }", WithBaseURI("http://example.org/"))
	require.NoError(t, err)
	u.SetBinding("g", ctx1)
	u.SetDataset(query.Dataset{DefaultGraphs: []quad.IRI{ctx2}})

	require.NoError(t, conn.Begin(ctx))
	require.NoError(t, u.Execute(ctx))
	require.NoError(t, conn.Commit(ctx))

	calls := mem.UpdateCalls()
	require.Len(t, calls, 1)
	assert.NotEmpty(t, calls[0].TxID)
	assert.Equal(t, "http://example.org/", calls[0].BaseURI)
	assert.Equal(t, quad.Value(ctx1), calls[0].Bindings.Value("g"))
	assert.Equal(t, []quad.IRI{ctx2}, calls[0].Dataset.DefaultGraphs)
}

func TestConnection_NamespacesArePrepended(t *testing.T) {
	ctx := context.Background()
	mem := graph.NewMemoryClient()
	conn := openConnection(t, mem)

	require.NoError(t, conn.SetNamespace("foaf", "http://xmlns.com/foaf/0.1/"))
	require.NoError(t, conn.SetNamespace("ex", "http://example.org/"))
	iri, ok := conn.Namespace("ex")
	assert.True(t, ok)
	assert.Equal(t, "http://example.org/", iri)

	q, err := conn.PrepareBooleanQuery("PREFIX ex: <urn:other/>\nASK { ex:a foaf:knows ?o }")
	require.NoError(t, err)
	_, err = q.Evaluate(ctx)
	require.NoError(t, err)

	sent := mem.QueryCalls()[0].Query
	assert.Equal(t, "PREFIX foaf: <http://xmlns.com/foaf/0.1/>\nPREFIX ex: <urn:other/>\nASK { ex:a foaf:knows ?o }", sent)

	conn.RemoveNamespace("foaf")
	assert.Len(t, conn.Namespaces(), 1)
	conn.ClearNamespaces()
	assert.Empty(t, conn.Namespaces())
}

func TestConnection_DeclaredPrefixesAreCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	mem := graph.NewMemoryClient()
	conn := openConnection(t, mem)

	require.NoError(t, conn.SetNamespace("foaf", "http://xmlns.com/foaf/0.1/"))
	require.NoError(t, conn.SetNamespace("ex", "http://example.org/"))

	text := "prefix foaf: <urn:mine/>\nASK { ex:a foaf:knows ?o }"
	for i := 0; i < 2; i++ {
		q, err := conn.PrepareBooleanQuery(text)
		require.NoError(t, err)
		_, err = q.Evaluate(ctx)
		require.NoError(t, err)
	}

	calls := mem.QueryCalls()
	require.Len(t, calls, 2)
	for _, call := range calls {
		assert.Equal(t, "PREFIX ex: <http://example.org/>\n"+text, call.Query)
	}

	assert.Equal(t, map[string]struct{}{"": {}, "ex": {}},
		declaredPrefixes("PREFIX : <urn:d/>\nPrefix  ex:<urn:e/> SELECT * { ?s exfoo:p ?o }"))
}

func TestConnection_BooleanAndGraphHandlers(t *testing.T) {
	ctx := context.Background()
	mem := graph.NewMemoryClient()
	conn := openConnection(t, mem)

	mem.PushBooleanResult(false)
	ask, err := conn.PrepareBooleanQuery("ASK { ?s ?p ?o }")
	require.NoError(t, err)
	var out bytes.Buffer
	require.NoError(t, ask.EvaluateTo(ctx, resultio.NewXMLWriter(&out)))
	assert.Contains(t, out.String(), "<boolean>false</boolean>")

	mem.PushGraphResult(quad.Quad{Subject: exAlice, Predicate: exKnows, Object: exBob})
	construct, err := conn.PrepareGraphQuery("CONSTRUCT { ?s ?p ?o } WHERE { ?s ?p ?o }")
	require.NoError(t, err)
	var nq bytes.Buffer
	require.NoError(t, construct.EvaluateTo(ctx, resultio.NewNQuadsWriter(&nq)))
	assert.Equal(t, "<http://example.org/alice> <http://xmlns.com/foaf/0.1/knows> <http://example.org/bob> .\n", nq.String())
}

func TestConnection_AddURL(t *testing.T) {
	ctx := context.Background()
	src := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.nt" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/n-triples; charset=utf-8")
		_, _ = io.WriteString(w, "<http://example.org/alice> <http://xmlns.com/foaf/0.1/knows> <http://example.org/bob> .\n")
	}))
	defer src.Close()

	mem := graph.NewMemoryClient()
	conn := openConnection(t, mem)

	require.NoError(t, conn.AddURL(ctx, src.URL+"/data", "", rdf.Format{}, ctx1))
	loads := mem.LoadCalls()
	require.Len(t, loads, 1)
	assert.Equal(t, rdf.NTriples.MIMEType, loads[0].Format.MIMEType)
	assert.Equal(t, src.URL+"/data", loads[0].BaseURI)
	assert.Len(t, mem.Statements(), 1)

	err := conn.AddURL(ctx, src.URL+"/missing.nt", "", rdf.Format{})
	var repoErr *RepositoryError
	require.ErrorAs(t, err, &repoErr)
	assert.False(t, errors.Is(err, ErrConnectionClosed))
}
