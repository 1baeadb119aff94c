package repository

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vanshika/sparqlconn/internal/graph"
)

const ntNames = "http://semanticbible.org/ns/2006/NTNames#"

type fixtureRow struct {
	S, P, O string
	// Datatype is set for literal objects.
	Datatype string
}

// fixtureRows mimics the geodata fixture: the first statement is
// AlexandriaGeodata's altitude.
func fixtureRows() []fixtureRow {
	rows := []fixtureRow{
		{S: ntNames + "AlexandriaGeodata", P: ntNames + "altitude", O: "0", Datatype: "http://www.w3.org/2001/XMLSchema#int"},
		{S: ntNames + "AlexandriaGeodata", P: ntNames + "latitude", O: "31.2", Datatype: "http://www.w3.org/2001/XMLSchema#decimal"},
	}
	for i := 0; len(rows) < 150; i++ {
		rows = append(rows, fixtureRow{
			S: ntNames + "Place" + strconv.Itoa(i),
			P: ntNames + "name",
			O: "Place " + strconv.Itoa(i),
		})
	}
	return rows
}

var limitPattern = regexp.MustCompile(`(?i)\blimit\s+(\d+)`)

// newFixtureServer answers SPARQL SELECT requests from fixtureRows, honours
// a trailing LIMIT and the start/pageLength window, and counts requests.
func newFixtureServer(t testing.TB) (*httptest.Server, *atomic.Int64) {
	rows := fixtureRows()
	selects := &atomic.Int64{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/ping":
			w.WriteHeader(http.StatusOK)
			return
		case "/v1/graphs/sparql":
		default:
			http.NotFound(w, r)
			return
		}
		selects.Add(1)
		body, _ := io.ReadAll(r.Body)
		if string(body) == "SELEC" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"errorResponse":{"statusCode":400,"messageCode":"XDMP-UNEXPECTED","message":"Unexpected token"}}`)
			return
		}

		selected := rows
		if m := limitPattern.FindStringSubmatch(string(body)); m != nil {
			n, _ := strconv.Atoi(m[1])
			if n < len(selected) {
				selected = selected[:n]
			}
		}
		if pl := r.URL.Query().Get("pageLength"); pl != "" {
			start, _ := strconv.Atoi(r.URL.Query().Get("start"))
			length, _ := strconv.Atoi(pl)
			from := min(start-1, len(selected))
			to := min(from+length, len(selected))
			selected = selected[from:to]
		}

		type term map[string]string
		bindings := make([]map[string]term, 0, len(selected))
		for _, row := range selected {
			o := term{"type": "literal", "value": row.O}
			if row.Datatype != "" {
				o["datatype"] = row.Datatype
			}
			bindings = append(bindings, map[string]term{
				"s": {"type": "uri", "value": row.S},
				"p": {"type": "uri", "value": row.P},
				"o": o,
			})
		}
		w.Header().Set("Content-Type", "application/sparql-results+json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"head":    map[string]any{"vars": []string{"s", "p", "o"}},
			"results": map[string]any{"bindings": bindings},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, selects
}

// newRESTRepository returns an initialized repository talking to srv.
func newRESTRepository(t testing.TB, srv *httptest.Server) *Repository {
	repo := NewRepository(graph.Options{URI: srv.URL, Username: "admin", Password: "admin", AuthScheme: graph.AuthBasic})
	require.NoError(t, repo.Initialize(context.Background()))
	t.Cleanup(func() { _ = repo.ShutDown(context.Background()) })
	return repo
}

// newMemoryRepository returns an initialized repository over mem.
func newMemoryRepository(t testing.TB, mem *graph.MemoryClient) *Repository {
	repo := NewRepository(graph.Options{Host: "localhost", Port: 8000}, WithClientFactory(
		func(context.Context, graph.Options) (graph.Client, error) { return mem, nil },
	))
	require.NoError(t, repo.Initialize(context.Background()))
	return repo
}
