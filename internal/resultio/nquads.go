package resultio

import (
	"errors"
	"fmt"
	"io"

	"github.com/cayleygraph/quad"
	"github.com/cayleygraph/quad/nquads"

	"github.com/vanshika/sparqlconn/internal/query"
)

// DecodeStatements reads an N-Triples or N-Quads response lazily. Literals
// keep their lexical form and datatype. The body is closed with the result.
func DecodeStatements(body io.ReadCloser) *query.GraphResult {
	r := nquads.NewReader(body, true)
	statements := query.NewCursor(func() (quad.Quad, error) {
		q, err := r.ReadQuad()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return quad.Quad{}, io.EOF
			}
			return quad.Quad{}, fmt.Errorf("read statement: %w", err)
		}
		return q, nil
	}, body.Close)
	return query.NewGraphResult(statements, nil)
}

// ReadStatements decodes every statement of an N-Triples or N-Quads
// document.
func ReadStatements(r io.Reader) ([]quad.Quad, error) {
	return query.Collect(DecodeStatements(io.NopCloser(r)).Cursor)
}

// WriteStatements encodes statements as N-Quads.
func WriteStatements(w io.Writer, statements []quad.Quad) error {
	qw := nquads.NewWriter(w)
	for _, q := range statements {
		if err := qw.WriteQuad(q); err != nil {
			return fmt.Errorf("write statement: %w", err)
		}
	}
	return qw.Close()
}

// NQuadsWriter is a query.RDFHandler that streams statements as N-Quads.
type NQuadsWriter struct {
	w *nquads.Writer
}

// NewNQuadsWriter writes to out.
func NewNQuadsWriter(out io.Writer) *NQuadsWriter {
	return &NQuadsWriter{w: nquads.NewWriter(out)}
}

func (n *NQuadsWriter) StartRDF() error { return nil }

// HandleNamespace is a no-op; N-Quads has no prefixes.
func (n *NQuadsWriter) HandleNamespace(string, string) error { return nil }

func (n *NQuadsWriter) HandleStatement(q quad.Quad) error {
	return n.w.WriteQuad(q)
}

func (n *NQuadsWriter) EndRDF() error {
	return n.w.Close()
}
