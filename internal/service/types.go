package service

import (
	"time"

	"github.com/cayleygraph/quad"

	"github.com/vanshika/sparqlconn/internal/rdf"
)

// LoadTask is one RDF file handed to the bulk loader.
type LoadTask struct {
	Path string
	// Format is detected from Path when zero.
	Format  rdf.Format
	BaseURI string
	// Contexts receive the statements; none means the default graph, or the
	// graphs named by a quad format.
	Contexts []quad.Value
}

// LoadReport summarises a bulk load.
type LoadReport struct {
	Files    int
	Failed   int
	Duration time.Duration
}

// BenchQuery is one query of a benchmark plan.
type BenchQuery struct {
	Name  string `yaml:"name"`
	Query string `yaml:"query"`
	// PageLength and PageNumber select a window of a SELECT result.
	PageLength      int64 `yaml:"pageLength,omitempty"`
	PageNumber      int64 `yaml:"pageNumber,omitempty"`
	IncludeInferred *bool `yaml:"includeInferred,omitempty"`
}

// BenchPlan lists the queries to time and how often.
type BenchPlan struct {
	Iterations int `yaml:"iterations"`
	Warmup     int `yaml:"warmup"`
	// Reinitialize shuts the repository down and initializes it again
	// before every timed evaluation.
	Reinitialize bool         `yaml:"reinitialize"`
	Queries      []BenchQuery `yaml:"queries"`
}

// BenchResult holds the timings of one query.
type BenchResult struct {
	Name       string        `yaml:"name" json:"name"`
	Iterations int           `yaml:"iterations" json:"iterations"`
	Rows       int64         `yaml:"rows" json:"rows"`
	Min        time.Duration `yaml:"min" json:"min"`
	Max        time.Duration `yaml:"max" json:"max"`
	Mean       time.Duration `yaml:"mean" json:"mean"`
}
