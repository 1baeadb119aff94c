package rdf

import "github.com/cayleygraph/quad"

// Namespaces used by the adapter.
const (
	RDFNamespace  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFSNamespace = "http://www.w3.org/2000/01/rdf-schema#"
	XSDNamespace  = "http://www.w3.org/2001/XMLSchema#"
)

var (
	Type       = quad.IRI(RDFNamespace + "type")
	LangString = quad.IRI(RDFNamespace + "langString")

	XSDString  = quad.IRI(XSDNamespace + "string")
	XSDInt     = quad.IRI(XSDNamespace + "int")
	XSDInteger = quad.IRI(XSDNamespace + "integer")
	XSDBoolean = quad.IRI(XSDNamespace + "boolean")
	XSDDouble  = quad.IRI(XSDNamespace + "double")
	XSDDecimal = quad.IRI(XSDNamespace + "decimal")
	XSDDate    = quad.IRI(XSDNamespace + "dateTime")
)
