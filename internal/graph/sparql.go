package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cayleygraph/quad"

	"github.com/vanshika/sparqlconn/internal/rdf"
)

const graphsQuery = "SELECT DISTINCT ?_ WHERE { GRAPH ?_ { ?s ?p ?o } }"

// term renders a value in SPARQL syntax, or the variable when v is nil.
func term(v quad.Value, variable string) string {
	if v == nil {
		return "?" + variable
	}
	return v.String()
}

// graphTerm maps the default graph (nil) to the store's default graph IRI.
func graphTerm(v quad.Value) string {
	if v == nil {
		return rdf.DefaultGraph.String()
	}
	return v.String()
}

func triplePattern(p Pattern) string {
	return term(p.Subject, "s") + " " + term(p.Predicate, "p") + " " + term(p.Object, "o")
}

func valuesClause(contexts []quad.Value) string {
	if len(contexts) == 0 {
		return ""
	}
	parts := make([]string, len(contexts))
	for i, c := range contexts {
		parts[i] = graphTerm(c)
	}
	return " VALUES ?ctx { " + strings.Join(parts, " ") + " }"
}

// insertDataUpdate groups statements by graph into one INSERT DATA.
func insertDataUpdate(statements []quad.Quad) string {
	byGraph := make(map[string][]string)
	var order []string
	for _, st := range statements {
		g := ""
		if st.Label != nil {
			g = st.Label.String()
		}
		if _, ok := byGraph[g]; !ok {
			order = append(order, g)
		}
		byGraph[g] = append(byGraph[g], st.Subject.String()+" "+st.Predicate.String()+" "+st.Object.String()+" .")
	}
	sort.Strings(order)

	var sb strings.Builder
	sb.WriteString("INSERT DATA {\n")
	for _, g := range order {
		if g == "" {
			for _, t := range byGraph[g] {
				sb.WriteString("  " + t + "\n")
			}
			continue
		}
		sb.WriteString("  GRAPH " + g + " {\n")
		for _, t := range byGraph[g] {
			sb.WriteString("    " + t + "\n")
		}
		sb.WriteString("  }\n")
	}
	sb.WriteString("}")
	return sb.String()
}

func deleteUpdate(p Pattern) string {
	tp := triplePattern(p)
	return fmt.Sprintf("DELETE { GRAPH ?ctx { %s } } WHERE { GRAPH ?ctx { %s }%s }", tp, tp, valuesClause(p.Contexts))
}

func clearUpdate(graphs []quad.Value) string {
	if len(graphs) == 0 {
		return "CLEAR DEFAULT"
	}
	parts := make([]string, len(graphs))
	for i, g := range graphs {
		if g == nil {
			parts[i] = "CLEAR DEFAULT"
			continue
		}
		parts[i] = "CLEAR SILENT GRAPH " + g.String()
	}
	return strings.Join(parts, " ;\n")
}

func matchQuery(p Pattern) string {
	return fmt.Sprintf("SELECT * WHERE { GRAPH ?ctx { %s }%s }", triplePattern(p), valuesClause(p.Contexts))
}

func countQuery(p Pattern) string {
	return fmt.Sprintf("SELECT (COUNT(*) AS ?count) WHERE { GRAPH ?ctx { %s }%s }", triplePattern(p), valuesClause(p.Contexts))
}

// withBase prefixes Turtle and TriG documents with a base directive so
// relative IRIs resolve against baseURI.
func withBase(body []byte, format rdf.Format, baseURI string) []byte {
	if baseURI == "" {
		return body
	}
	if format.MIMEType != rdf.Turtle.MIMEType && format.MIMEType != rdf.TriG.MIMEType {
		return body
	}
	prefix := "@base <" + baseURI + "> .\n"
	out := make([]byte, 0, len(prefix)+len(body))
	out = append(out, prefix...)
	return append(out, body...)
}
