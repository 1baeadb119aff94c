package query

import "github.com/cayleygraph/quad"

// TupleHandler receives the rows of a SELECT query as they are read.
type TupleHandler interface {
	StartQueryResult(bindingNames []string) error
	HandleSolution(bs BindingSet) error
	EndQueryResult() error
}

// BooleanHandler receives the answer of an ASK query.
type BooleanHandler interface {
	HandleBoolean(value bool) error
}

// RDFHandler receives the statements of a CONSTRUCT or DESCRIBE query.
type RDFHandler interface {
	StartRDF() error
	HandleNamespace(prefix, iri string) error
	HandleStatement(q quad.Quad) error
	EndRDF() error
}

// TupleHandlerFuncs adapts plain functions to TupleHandler. Nil fields are
// skipped.
type TupleHandlerFuncs struct {
	Start    func(bindingNames []string) error
	Solution func(bs BindingSet) error
	End      func() error
}

func (h TupleHandlerFuncs) StartQueryResult(names []string) error {
	if h.Start == nil {
		return nil
	}
	return h.Start(names)
}

func (h TupleHandlerFuncs) HandleSolution(bs BindingSet) error {
	if h.Solution == nil {
		return nil
	}
	return h.Solution(bs)
}

func (h TupleHandlerFuncs) EndQueryResult() error {
	if h.End == nil {
		return nil
	}
	return h.End()
}

// StatementCollector is an RDFHandler that keeps everything in memory.
type StatementCollector struct {
	Namespaces map[string]string
	Statements []quad.Quad
}

func (c *StatementCollector) StartRDF() error { return nil }

func (c *StatementCollector) HandleNamespace(prefix, iri string) error {
	if c.Namespaces == nil {
		c.Namespaces = make(map[string]string)
	}
	c.Namespaces[prefix] = iri
	return nil
}

func (c *StatementCollector) HandleStatement(q quad.Quad) error {
	c.Statements = append(c.Statements, q)
	return nil
}

func (c *StatementCollector) EndRDF() error { return nil }
