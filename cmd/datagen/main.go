package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vanshika/sparqlconn/internal/generator"
)

func main() {
	cfg := generator.DefaultConfig()
	var (
		places      = flag.Int("places", cfg.NumPlaces, "number of geodata places to generate")
		people      = flag.Int("people", cfg.NumPeople, "number of people to generate")
		graphs      = flag.Int("graphs", cfg.NumGraphs, "number of named graphs to spread statements over (0 = default graph)")
		relations   = flag.Float64("relation-chance", cfg.RelationChance, "probability of emitting bornIn/childOf links per person")
		namespace   = flag.String("namespace", cfg.Namespace, "namespace for generated IRIs")
		graphPrefix = flag.String("graph-prefix", cfg.GraphPrefix, "prefix for named graph IRIs")
		seed        = flag.Int64("seed", cfg.Seed, "random seed for deterministic generation")
		outputDir   = flag.String("output-dir", "data", "directory to write dataset.nq")
		writeStdout = flag.Bool("stdout", false, "write N-Quads to stdout instead of a file")
	)
	flag.Parse()

	genCfg := generator.Config{
		NumPlaces:      *places,
		NumPeople:      *people,
		NumGraphs:      *graphs,
		RelationChance: clampProbability(*relations),
		Namespace:      *namespace,
		GraphPrefix:    *graphPrefix,
		Seed:           *seed,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	gen := generator.New(genCfg)
	dataset, err := gen.Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		os.Exit(1)
	}

	if *writeStdout {
		if err := generator.WriteTo(os.Stdout, dataset); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write dataset to stdout: %v\n", err)
			os.Exit(1)
		}
		return
	}

	path, err := generator.WriteDataset(dataset, *outputDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to write dataset: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "Generated %d statements across %d named graphs into %s\n", len(dataset.Statements), len(dataset.Graphs), path)
}

func clampProbability(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
