// Package query holds the store-independent pieces of query evaluation:
// languages, bindings, rulesets, result cursors and result handlers.
package query

import (
	"strings"
	"unicode"
)

// Language is a query dialect.
type Language string

// SPARQL is the only dialect the store accepts.
const SPARQL Language = "SPARQL"

// Form is the kind of result a query produces.
type Form int

const (
	FormUnknown Form = iota
	FormTuple
	FormGraph
	FormBoolean
	FormUpdate
)

func (f Form) String() string {
	switch f {
	case FormTuple:
		return "tuple"
	case FormGraph:
		return "graph"
	case FormBoolean:
		return "boolean"
	case FormUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// DetectForm looks at the first keyword after the prologue. It does not
// validate the query; anything unrecognized is treated as an update.
func DetectForm(q string) Form {
	rest := q
	for {
		rest = skipSpaceAndComments(rest)
		word := firstWord(rest)
		switch strings.ToUpper(word) {
		case "":
			return FormUnknown
		case "PREFIX":
			// PREFIX name: <iri>
			rest = skipPast(rest, '>')
		case "BASE":
			rest = skipPast(rest, '>')
		case "SELECT":
			return FormTuple
		case "CONSTRUCT", "DESCRIBE":
			return FormGraph
		case "ASK":
			return FormBoolean
		default:
			return FormUpdate
		}
	}
}

func skipSpaceAndComments(s string) string {
	for {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		if !strings.HasPrefix(s, "#") {
			return s
		}
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		} else {
			return ""
		}
	}
}

func firstWord(s string) string {
	end := strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if end < 0 {
		return s
	}
	return s[:end]
}

func skipPast(s string, c byte) string {
	i := strings.IndexByte(s, c)
	if i < 0 {
		return ""
	}
	return s[i+1:]
}
