package generator

// Config drives the synthetic data generator.
type Config struct {
	NumPlaces int
	NumPeople int
	// NumGraphs spreads statements over that many named graphs; zero keeps
	// everything in the default graph.
	NumGraphs      int
	RelationChance float64
	Namespace      string
	GraphPrefix    string
	Seed           int64
}

// DefaultConfig returns a dataset of a size comfortable for local stores.
func DefaultConfig() Config {
	return Config{
		NumPlaces:      500,
		NumPeople:      2000,
		NumGraphs:      4,
		RelationChance: 0.3,
		Namespace:      "http://semanticbible.org/ns/2006/NTNames#",
		GraphPrefix:    "http://marklogic.com/test/context",
		Seed:           42,
	}
}
