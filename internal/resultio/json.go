// Package resultio reads and writes SPARQL result documents.
package resultio

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/cayleygraph/quad"

	"github.com/vanshika/sparqlconn/internal/query"
)

// MIME types of the result formats handled here.
const (
	SPARQLResultsJSON = "application/sparql-results+json"
	SPARQLResultsXML  = "application/sparql-results+xml"
)

// ErrMalformedResults is returned when a response is not a SPARQL JSON
// results document.
var ErrMalformedResults = errors.New("malformed sparql results")

type jsonTerm struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"xml:lang,omitempty"`
}

type jsonHead struct {
	Vars []string `json:"vars"`
}

// DecodeTuples reads a SELECT response lazily. The body is closed when the
// returned result is exhausted or closed.
func DecodeTuples(body io.ReadCloser) (*query.TupleResult, error) {
	dec := json.NewDecoder(body)
	var vars []string

	if err := expectDelim(dec, '{'); err != nil {
		body.Close()
		return nil, err
	}
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			body.Close()
			return nil, err
		}
		switch key {
		case "head":
			var head jsonHead
			if err := dec.Decode(&head); err != nil {
				body.Close()
				return nil, fmt.Errorf("%w: head: %v", ErrMalformedResults, err)
			}
			vars = head.Vars
		case "results":
			if err := seekBindings(dec); err != nil {
				body.Close()
				return nil, err
			}
			rows := query.NewCursor(func() (query.BindingSet, error) {
				if !dec.More() {
					return query.BindingSet{}, io.EOF
				}
				var row map[string]jsonTerm
				if err := dec.Decode(&row); err != nil {
					return query.BindingSet{}, fmt.Errorf("%w: row: %v", ErrMalformedResults, err)
				}
				return toBindingSet(vars, row)
			}, body.Close)
			return query.NewTupleResult(vars, rows), nil
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				body.Close()
				return nil, fmt.Errorf("%w: %v", ErrMalformedResults, err)
			}
		}
	}
	body.Close()
	return query.NewTupleResult(vars, query.SliceCursor[query.BindingSet](nil)), nil
}

// DecodeBoolean reads an ASK response.
func DecodeBoolean(r io.Reader) (bool, error) {
	var doc struct {
		Boolean *bool `json:"boolean"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedResults, err)
	}
	if doc.Boolean == nil {
		return false, fmt.Errorf("%w: missing boolean", ErrMalformedResults)
	}
	return *doc.Boolean, nil
}

// seekBindings positions dec inside the "bindings" array of the results
// object.
func seekBindings(dec *json.Decoder) error {
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return err
		}
		if key == "bindings" {
			return expectDelim(dec, '[')
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedResults, err)
		}
	}
	return fmt.Errorf("%w: results without bindings", ErrMalformedResults)
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResults, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("%w: expected %q, got %v", ErrMalformedResults, want, tok)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResults, err)
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("%w: expected object key, got %v", ErrMalformedResults, tok)
	}
	return key, nil
}

func toBindingSet(vars []string, row map[string]jsonTerm) (query.BindingSet, error) {
	var bs query.BindingSet
	for _, name := range vars {
		term, ok := row[name]
		if !ok {
			continue
		}
		v, err := toValue(term)
		if err != nil {
			return query.BindingSet{}, err
		}
		bs.Add(name, v)
	}
	// Variables the head did not announce still belong to the row, in name
	// order.
	extra := make([]string, 0, len(row))
	for name := range row {
		if !bs.Has(name) {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		v, err := toValue(row[name])
		if err != nil {
			return query.BindingSet{}, err
		}
		bs.Add(name, v)
	}
	return bs, nil
}

func toValue(t jsonTerm) (quad.Value, error) {
	switch t.Type {
	case "uri":
		return quad.IRI(t.Value), nil
	case "bnode":
		return quad.BNode(t.Value), nil
	case "literal", "typed-literal":
		switch {
		case t.Lang != "":
			return quad.LangString{Value: quad.String(t.Value), Lang: t.Lang}, nil
		case t.Datatype != "" && t.Datatype != "http://www.w3.org/2001/XMLSchema#string":
			return quad.TypedString{Value: quad.String(t.Value), Type: quad.IRI(t.Datatype)}, nil
		default:
			return quad.String(t.Value), nil
		}
	default:
		return nil, fmt.Errorf("%w: unknown term type %q", ErrMalformedResults, t.Type)
	}
}
