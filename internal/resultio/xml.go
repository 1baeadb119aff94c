package resultio

import (
	"bufio"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/cayleygraph/quad"

	"github.com/vanshika/sparqlconn/internal/query"
	"github.com/vanshika/sparqlconn/internal/rdf"
)

const sparqlResultsNS = "http://www.w3.org/2005/sparql-results#"

var errWriterState = errors.New("sparql xml writer: result not started")

// XMLWriter serializes tuple and boolean results as a SPARQL Results XML
// document. It implements query.TupleHandler and query.BooleanHandler.
type XMLWriter struct {
	w       *bufio.Writer
	names   []string
	started bool
}

// NewXMLWriter writes to out. Output is flushed when the result ends.
func NewXMLWriter(out io.Writer) *XMLWriter {
	return &XMLWriter{w: bufio.NewWriter(out)}
}

func (x *XMLWriter) StartQueryResult(bindingNames []string) error {
	x.names = append(x.names[:0], bindingNames...)
	x.started = true
	x.header()
	x.w.WriteString("\t<head>\n")
	for _, name := range bindingNames {
		x.w.WriteString("\t\t<variable name='")
		x.escape(name)
		x.w.WriteString("'/>\n")
	}
	x.w.WriteString("\t</head>\n")
	_, err := x.w.WriteString("\t<results>\n")
	return err
}

func (x *XMLWriter) HandleSolution(bs query.BindingSet) error {
	if !x.started {
		return errWriterState
	}
	x.w.WriteString("\t\t<result>\n")
	for _, name := range x.names {
		v := bs.Value(name)
		if v == nil {
			continue
		}
		x.w.WriteString("\t\t\t<binding name='")
		x.escape(name)
		x.w.WriteString("'>\n\t\t\t\t")
		x.term(v)
		x.w.WriteString("\n\t\t\t</binding>\n")
	}
	_, err := x.w.WriteString("\t\t</result>\n")
	return err
}

func (x *XMLWriter) EndQueryResult() error {
	if !x.started {
		return errWriterState
	}
	x.w.WriteString("\t</results>\n")
	x.w.WriteString("</sparql>\n")
	x.started = false
	return x.w.Flush()
}

// HandleBoolean writes a complete ASK result document.
func (x *XMLWriter) HandleBoolean(value bool) error {
	x.header()
	x.w.WriteString("\t<head>\n\t</head>\n")
	if value {
		x.w.WriteString("\t<boolean>true</boolean>\n")
	} else {
		x.w.WriteString("\t<boolean>false</boolean>\n")
	}
	x.w.WriteString("</sparql>\n")
	return x.w.Flush()
}

func (x *XMLWriter) header() {
	x.w.WriteString("<?xml version='1.0' encoding='UTF-8'?>\n")
	x.w.WriteString("<sparql xmlns='" + sparqlResultsNS + "'>\n")
}

func (x *XMLWriter) term(v quad.Value) {
	switch t := v.(type) {
	case quad.IRI:
		x.w.WriteString("<uri>")
		x.escape(string(t))
		x.w.WriteString("</uri>")
	case quad.BNode:
		x.w.WriteString("<bnode>")
		x.escape(string(t))
		x.w.WriteString("</bnode>")
	case quad.LangString:
		x.w.WriteString("<literal xml:lang='")
		x.escape(t.Lang)
		x.w.WriteString("'>")
		x.escape(string(t.Value))
		x.w.WriteString("</literal>")
	case quad.String:
		x.w.WriteString("<literal>")
		x.escape(string(t))
		x.w.WriteString("</literal>")
	default:
		dt := rdf.Datatype(v)
		if dt == "" {
			x.w.WriteString("<literal>")
		} else {
			x.w.WriteString("<literal datatype='")
			x.escape(string(dt))
			x.w.WriteString("'>")
		}
		x.escape(rdf.StringValue(v))
		x.w.WriteString("</literal>")
	}
}

func (x *XMLWriter) escape(s string) {
	if !strings.ContainsAny(s, "<>&'\"\r\n\t") {
		x.w.WriteString(s)
		return
	}
	_ = xml.EscapeText(x.w, []byte(s))
}
