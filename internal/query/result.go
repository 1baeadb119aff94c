package query

import "github.com/cayleygraph/quad"

// TupleResult is the pull side of a SELECT evaluation.
type TupleResult struct {
	*Cursor[BindingSet]
	bindingNames []string
}

// NewTupleResult pairs projected variable names with a row cursor.
func NewTupleResult(bindingNames []string, rows *Cursor[BindingSet]) *TupleResult {
	return &TupleResult{Cursor: rows, bindingNames: bindingNames}
}

// BindingNames lists the projected variables in query order.
func (r *TupleResult) BindingNames() []string {
	out := make([]string, len(r.bindingNames))
	copy(out, r.bindingNames)
	return out
}

// Drain pushes the remaining rows through h and closes the result.
func (r *TupleResult) Drain(h TupleHandler) error {
	defer r.Close()
	if err := h.StartQueryResult(r.BindingNames()); err != nil {
		return err
	}
	if err := ForEach(r.Cursor, h.HandleSolution); err != nil {
		return err
	}
	return h.EndQueryResult()
}

// GraphResult is the pull side of a CONSTRUCT or DESCRIBE evaluation.
type GraphResult struct {
	*Cursor[quad.Quad]
	namespaces map[string]string
}

// NewGraphResult wraps a statement cursor.
func NewGraphResult(statements *Cursor[quad.Quad], namespaces map[string]string) *GraphResult {
	if namespaces == nil {
		namespaces = map[string]string{}
	}
	return &GraphResult{Cursor: statements, namespaces: namespaces}
}

// Namespaces returns the prefixes declared by the response.
func (r *GraphResult) Namespaces() map[string]string {
	out := make(map[string]string, len(r.namespaces))
	for k, v := range r.namespaces {
		out[k] = v
	}
	return out
}

// Drain pushes the remaining statements through h and closes the result.
func (r *GraphResult) Drain(h RDFHandler) error {
	defer r.Close()
	if err := h.StartRDF(); err != nil {
		return err
	}
	for prefix, iri := range r.namespaces {
		if err := h.HandleNamespace(prefix, iri); err != nil {
			return err
		}
	}
	if err := ForEach(r.Cursor, h.HandleStatement); err != nil {
		return err
	}
	return h.EndRDF()
}
