package rdf

import (
	"strconv"
	"strings"

	"github.com/cayleygraph/quad"
	"github.com/google/uuid"
)

// ValueFactory creates RDF terms and statements.
type ValueFactory struct{}

// NewValueFactory returns a ValueFactory.
func NewValueFactory() ValueFactory {
	return ValueFactory{}
}

func (ValueFactory) CreateIRI(iri string) quad.IRI {
	return quad.IRI(iri)
}

// CreateBNode returns a blank node. Without an id a random one is generated.
func (ValueFactory) CreateBNode(id ...string) quad.BNode {
	if len(id) > 0 && id[0] != "" {
		return quad.BNode(id[0])
	}
	return quad.BNode("b" + strings.ReplaceAll(uuid.NewString(), "-", ""))
}

func (ValueFactory) CreateLiteral(value string) quad.String {
	return quad.String(value)
}

func (ValueFactory) CreateTypedLiteral(value string, datatype quad.IRI) quad.Value {
	if datatype == "" || datatype == XSDString {
		return quad.String(value)
	}
	return quad.TypedString{Value: quad.String(value), Type: datatype}
}

func (ValueFactory) CreateLangLiteral(value, lang string) quad.LangString {
	return quad.LangString{Value: quad.String(value), Lang: lang}
}

func (f ValueFactory) CreateIntLiteral(v int64) quad.Value {
	return f.CreateTypedLiteral(strconv.FormatInt(v, 10), XSDInteger)
}

func (f ValueFactory) CreateBoolLiteral(v bool) quad.Value {
	return f.CreateTypedLiteral(strconv.FormatBool(v), XSDBoolean)
}

// CreateStatement builds a statement. A nil context places it in the
// default graph.
func (ValueFactory) CreateStatement(s, p, o quad.Value, context quad.Value) quad.Quad {
	return quad.Quad{Subject: s, Predicate: p, Object: o, Label: context}
}
