package rdf

import (
	"strings"

	"github.com/cayleygraph/quad"
)

// DefaultGraph is the IRI the store uses for statements loaded without a
// named graph.
const DefaultGraph = quad.IRI("http://marklogic.com/semantics#default-graph")

// StringValue returns the lexical form of a term: the IRI without angle
// brackets, the literal text without quotes or datatype, the blank node label.
func StringValue(v quad.Value) string {
	switch t := v.(type) {
	case nil:
		return ""
	case quad.IRI:
		return string(t)
	case quad.BNode:
		return string(t)
	case quad.String:
		return string(t)
	case quad.TypedString:
		return string(t.Value)
	case quad.LangString:
		return string(t.Value)
	default:
		s := v.String()
		if len(s) >= 2 && strings.HasPrefix(s, `"`) {
			if end := strings.LastIndex(s, `"`); end > 0 {
				return s[1:end]
			}
		}
		return s
	}
}

// Equal reports whether two terms are the same RDF term. Two nil values are
// equal.
func Equal(a, b quad.Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.String() == b.String()
}

// IsResource reports whether v can be a subject or a context.
func IsResource(v quad.Value) bool {
	switch v.(type) {
	case quad.IRI, quad.BNode:
		return true
	default:
		return false
	}
}

// IsLiteral reports whether v is a literal term.
func IsLiteral(v quad.Value) bool {
	if v == nil {
		return false
	}
	return !IsResource(v)
}

// Datatype returns the datatype IRI of a literal. Plain literals report
// xsd:string, language-tagged ones rdf:langString.
func Datatype(v quad.Value) quad.IRI {
	switch t := v.(type) {
	case quad.TypedString:
		return t.Type
	case quad.LangString:
		return LangString
	case quad.String:
		return XSDString
	default:
		return ""
	}
}

// Key is a stable identity for a statement, suitable as a map key.
func Key(q quad.Quad) string {
	var sb strings.Builder
	for i, v := range []quad.Value{q.Subject, q.Predicate, q.Object, q.Label} {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if v != nil {
			sb.WriteString(v.String())
		}
	}
	return sb.String()
}
