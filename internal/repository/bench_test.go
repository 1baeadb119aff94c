package repository

import (
	"context"
	"testing"

	"github.com/vanshika/sparqlconn/internal/query"
)

func BenchmarkTupleQuery(b *testing.B) {
	ctx := context.Background()
	srv, _ := newFixtureServer(b)
	repo := newRESTRepository(b, srv)
	conn, err := repo.Connection()
	if err != nil {
		b.Fatal(err)
	}
	defer conn.Close(ctx)

	q, err := conn.PrepareTupleQuery("select ?s ?p ?o { ?s ?p ?o } limit 100")
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		res, err := q.Evaluate(ctx)
		if err != nil {
			b.Fatal(err)
		}
		if _, err := query.Collect(res.Cursor); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkReinitializeAndQuery follows a connection across a repository
// restart before every evaluation.
func BenchmarkReinitializeAndQuery(b *testing.B) {
	ctx := context.Background()
	srv, _ := newFixtureServer(b)
	repo := newRESTRepository(b, srv)
	conn, err := repo.Connection()
	if err != nil {
		b.Fatal(err)
	}
	q, err := conn.PrepareTupleQuery("select ?s ?p ?o { ?s ?p ?o } limit 2")
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := repo.ShutDown(ctx); err != nil {
			b.Fatal(err)
		}
		if err := repo.Initialize(ctx); err != nil {
			b.Fatal(err)
		}
		res, err := q.Evaluate(ctx)
		if err != nil {
			b.Fatal(err)
		}
		if _, err := query.Collect(res.Cursor); err != nil {
			b.Fatal(err)
		}
	}
}
