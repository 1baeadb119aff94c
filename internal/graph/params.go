package graph

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/cayleygraph/quad"

	"github.com/vanshika/sparqlconn/internal/query"
	"github.com/vanshika/sparqlconn/internal/rdf"
)

// ErrUnsupportedBinding is returned for binding values the REST API cannot
// carry, such as blank nodes.
var ErrUnsupportedBinding = errors.New("unsupported binding value")

func queryParams(req QueryRequest) (url.Values, error) {
	params := url.Values{}
	if req.BaseURI != "" {
		params.Set("base", req.BaseURI)
	}
	if req.TxID != "" {
		params.Set("txid", req.TxID)
	}
	if req.IncludeInferred {
		params.Set("default-rulesets", "include")
	} else {
		params.Set("default-rulesets", "exclude")
	}
	for _, rs := range req.Rulesets {
		params.Add("ruleset", string(rs))
	}
	for _, g := range req.Dataset.DefaultGraphs {
		params.Add("default-graph-uri", string(g))
	}
	for _, g := range req.Dataset.NamedGraphs {
		params.Add("named-graph-uri", string(g))
	}
	if req.PageLength > 0 {
		start := req.Start
		if start < 1 {
			start = 1
		}
		params.Set("start", strconv.FormatInt(start, 10))
		params.Set("pageLength", strconv.FormatInt(req.PageLength, 10))
	}
	if err := addBindings(params, req.Bindings); err != nil {
		return nil, err
	}
	return params, nil
}

func updateParams(req UpdateRequest) (url.Values, error) {
	params := url.Values{}
	if req.BaseURI != "" {
		params.Set("base", req.BaseURI)
	}
	if req.TxID != "" {
		params.Set("txid", req.TxID)
	}
	for _, g := range req.Dataset.DefaultGraphs {
		params.Add("using-graph-uri", string(g))
	}
	for _, g := range req.Dataset.NamedGraphs {
		params.Add("using-named-graph-uri", string(g))
	}
	if err := addBindings(params, req.Bindings); err != nil {
		return nil, err
	}
	return params, nil
}

// addBindings encodes bindings as bind:NAME (IRI), bind:NAME:TYPE (typed
// literal) and bind:NAME@LANG (language literal) parameters.
func addBindings(params url.Values, bindings query.BindingSet) error {
	for _, b := range bindings.Bindings() {
		switch v := b.Value.(type) {
		case nil:
			continue
		case quad.IRI:
			params.Set("bind:"+b.Name, string(v))
		case quad.LangString:
			params.Set("bind:"+b.Name+"@"+v.Lang, string(v.Value))
		case quad.BNode:
			return fmt.Errorf("%w: blank node for %q", ErrUnsupportedBinding, b.Name)
		default:
			dt := rdf.Datatype(v)
			if dt == "" {
				dt = rdf.XSDString
			}
			params.Set("bind:"+b.Name+":"+datatypeParam(dt), rdf.StringValue(v))
		}
	}
	return nil
}

func datatypeParam(dt quad.IRI) string {
	s := string(dt)
	if strings.HasPrefix(s, rdf.XSDNamespace) {
		return strings.TrimPrefix(s, rdf.XSDNamespace)
	}
	return s
}
