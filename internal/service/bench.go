package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanshika/sparqlconn/internal/query"
	"github.com/vanshika/sparqlconn/internal/repository"
)

// LoadBenchPlan reads a YAML benchmark plan.
func LoadBenchPlan(path string) (BenchPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BenchPlan{}, fmt.Errorf("read bench plan: %w", err)
	}
	return ParseBenchPlan(data)
}

// ParseBenchPlan decodes a YAML benchmark plan and applies defaults.
func ParseBenchPlan(data []byte) (BenchPlan, error) {
	var plan BenchPlan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return BenchPlan{}, fmt.Errorf("parse bench plan: %w", err)
	}
	if plan.Iterations <= 0 {
		plan.Iterations = 10
	}
	if len(plan.Queries) == 0 {
		return BenchPlan{}, errors.New("bench plan has no queries")
	}
	for i, q := range plan.Queries {
		if q.Query == "" {
			return BenchPlan{}, fmt.Errorf("bench query %d has no text", i)
		}
		if q.Name == "" {
			plan.Queries[i].Name = fmt.Sprintf("query-%d", i+1)
		}
	}
	return plan, nil
}

// Bench times every query of the plan against repo, one evaluation at a
// time.
func Bench(ctx context.Context, repo *repository.Repository, plan BenchPlan) ([]BenchResult, error) {
	conn, err := repo.Connection()
	if err != nil {
		return nil, err
	}
	defer conn.Close(ctx)

	results := make([]BenchResult, 0, len(plan.Queries))
	for _, bq := range plan.Queries {
		prepared, err := conn.PrepareQuery(bq.Query)
		if err != nil {
			return results, fmt.Errorf("%s: %w", bq.Name, err)
		}
		if bq.IncludeInferred != nil {
			prepared.SetIncludeInferred(*bq.IncludeInferred)
		}

		for i := 0; i < plan.Warmup; i++ {
			if _, err := runOnce(ctx, prepared, bq); err != nil {
				return results, fmt.Errorf("%s warmup: %w", bq.Name, err)
			}
		}

		res := BenchResult{Name: bq.Name, Iterations: plan.Iterations}
		var total time.Duration
		for i := 0; i < plan.Iterations; i++ {
			if plan.Reinitialize {
				if err := repo.ShutDown(ctx); err != nil {
					return results, err
				}
				if err := repo.Initialize(ctx); err != nil {
					return results, err
				}
			}
			start := time.Now()
			rows, err := runOnce(ctx, prepared, bq)
			elapsed := time.Since(start)
			if err != nil {
				return results, fmt.Errorf("%s: %w", bq.Name, err)
			}
			res.Rows = rows
			total += elapsed
			if res.Min == 0 || elapsed < res.Min {
				res.Min = elapsed
			}
			if elapsed > res.Max {
				res.Max = elapsed
			}
		}
		res.Mean = total / time.Duration(plan.Iterations)
		results = append(results, res)
	}
	return results, nil
}

// runOnce evaluates q and consumes the whole result, returning the number
// of rows or statements.
func runOnce(ctx context.Context, q repository.Query, bq BenchQuery) (int64, error) {
	switch prepared := q.(type) {
	case *repository.TupleQuery:
		var res *query.TupleResult
		var err error
		if bq.PageLength > 0 {
			pageNumber := bq.PageNumber
			if pageNumber <= 0 {
				pageNumber = 1
			}
			res, err = prepared.EvaluatePage(ctx, bq.PageLength, pageNumber)
		} else {
			res, err = prepared.Evaluate(ctx)
		}
		if err != nil {
			return 0, err
		}
		return count(res.Cursor)
	case *repository.GraphQuery:
		res, err := prepared.Evaluate(ctx)
		if err != nil {
			return 0, err
		}
		return count(res.Cursor)
	case *repository.BooleanQuery:
		_, err := prepared.Evaluate(ctx)
		return 1, err
	case *repository.Update:
		return 0, prepared.Execute(ctx)
	default:
		return 0, fmt.Errorf("unsupported query type %T", q)
	}
}

func count[T any](c *query.Cursor[T]) (int64, error) {
	var n int64
	err := query.ForEach(c, func(T) error {
		n++
		return nil
	})
	return n, err
}
