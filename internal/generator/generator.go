package generator

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/cayleygraph/quad"

	"github.com/vanshika/sparqlconn/internal/rdf"
)

// Dataset contains the generated statements and the graphs they use.
type Dataset struct {
	Statements []quad.Quad
	Graphs     []quad.IRI
}

// Generator produces a geodata and genealogy style RDF dataset.
type Generator struct {
	cfg    Config
	rand   *rand.Rand
	values rdf.ValueFactory
	names  []string
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	def := DefaultConfig()
	if cfg.NumPlaces <= 0 {
		cfg.NumPlaces = def.NumPlaces
	}
	if cfg.NumPeople < 0 {
		cfg.NumPeople = def.NumPeople
	}
	if cfg.NumGraphs < 0 {
		cfg.NumGraphs = 0
	}
	if cfg.RelationChance <= 0 {
		cfg.RelationChance = def.RelationChance
	}
	if cfg.Namespace == "" {
		cfg.Namespace = def.Namespace
	}
	if cfg.GraphPrefix == "" {
		cfg.GraphPrefix = def.GraphPrefix
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	return &Generator{
		cfg:    cfg,
		rand:   rand.New(rand.NewSource(cfg.Seed)),
		values: rdf.NewValueFactory(),
		names: []string{
			"Aaron", "Abigail", "Barnabas", "Cornelius", "Deborah", "Elias",
			"Hannah", "Jairus", "Lydia", "Miriam", "Priscilla", "Silas",
			"Tabitha", "Zacchaeus", "Alexandria", "Bethany", "Capernaum",
		},
	}
}

// Generate synthesises the dataset. It respects context cancellation.
func (g *Generator) Generate(ctx context.Context) (Dataset, error) {
	var ds Dataset
	for i := 1; i <= g.cfg.NumGraphs; i++ {
		ds.Graphs = append(ds.Graphs, quad.IRI(g.cfg.GraphPrefix+strconv.Itoa(i)))
	}

	vf := g.values
	typ := rdf.Type
	place := g.iri("GeographicLocation")
	person := g.iri("Man")

	places := make([]quad.IRI, g.cfg.NumPlaces)
	for i := range places {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}
		var subject quad.IRI
		if i == 0 {
			subject = g.iri("AlexandriaGeodata")
		} else {
			subject = g.iri(fmt.Sprintf("%sGeodata%d", g.pick(), i))
		}
		places[i] = subject
		label := g.graphFor(ds.Graphs, i)
		altitude := int64(g.rand.Intn(900))
		if i == 0 {
			altitude = 0
		}
		ds.Statements = append(ds.Statements,
			vf.CreateStatement(subject, g.iri("altitude"), vf.CreateTypedLiteral(strconv.FormatInt(altitude, 10), rdf.XSDInt), label),
			vf.CreateStatement(subject, g.iri("latitude"), vf.CreateTypedLiteral(g.coordinate(90), rdf.XSDDecimal), label),
			vf.CreateStatement(subject, g.iri("longitude"), vf.CreateTypedLiteral(g.coordinate(180), rdf.XSDDecimal), label),
			vf.CreateStatement(subject, typ, place, label),
		)
	}

	people := make([]quad.IRI, g.cfg.NumPeople)
	for i := range people {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}
		name := g.pick()
		subject := g.iri(fmt.Sprintf("%s%d", name, i+1))
		people[i] = subject
		label := g.graphFor(ds.Graphs, i)
		ds.Statements = append(ds.Statements,
			vf.CreateStatement(subject, typ, person, label),
			vf.CreateStatement(subject, g.iri("name"), vf.CreateLangLiteral(name, "en"), label),
		)
		if len(places) > 0 && g.rand.Float64() < g.cfg.RelationChance {
			ds.Statements = append(ds.Statements,
				vf.CreateStatement(subject, g.iri("bornIn"), places[g.rand.Intn(len(places))], label))
		}
		if i > 0 && g.rand.Float64() < g.cfg.RelationChance {
			ds.Statements = append(ds.Statements,
				vf.CreateStatement(subject, g.iri("childOf"), people[g.rand.Intn(i)], label))
		}
	}
	return ds, nil
}

func (g *Generator) iri(local string) quad.IRI {
	return g.values.CreateIRI(g.cfg.Namespace + local)
}

func (g *Generator) pick() string {
	return g.names[g.rand.Intn(len(g.names))]
}

func (g *Generator) coordinate(limit float64) string {
	return strconv.FormatFloat((g.rand.Float64()*2-1)*limit, 'f', 4, 64)
}

// graphFor spreads entities round-robin over the named graphs; nil is the
// default graph.
func (g *Generator) graphFor(graphs []quad.IRI, i int) quad.Value {
	if len(graphs) == 0 {
		return nil
	}
	return graphs[i%len(graphs)]
}
