package rdf

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// Format is an RDF serialization understood by the store.
type Format struct {
	Name       string
	MIMEType   string
	Extensions []string
	// Quads is set for formats that can carry named graphs.
	Quads bool
}

var (
	Turtle   = Format{Name: "Turtle", MIMEType: "text/turtle", Extensions: []string{".ttl"}}
	NTriples = Format{Name: "N-Triples", MIMEType: "application/n-triples", Extensions: []string{".nt"}}
	NQuads   = Format{Name: "N-Quads", MIMEType: "application/n-quads", Extensions: []string{".nq"}, Quads: true}
	TriG     = Format{Name: "TriG", MIMEType: "application/trig", Extensions: []string{".trig"}, Quads: true}
	RDFXML   = Format{Name: "RDF/XML", MIMEType: "application/rdf+xml", Extensions: []string{".rdf", ".owl", ".xml"}}
	JSONLD   = Format{Name: "JSON-LD", MIMEType: "application/ld+json", Extensions: []string{".jsonld"}}
	RDFJSON  = Format{Name: "RDF/JSON", MIMEType: "application/rdf+json", Extensions: []string{".rj"}}
)

var formats = []Format{Turtle, NTriples, NQuads, TriG, RDFXML, JSONLD, RDFJSON}

// IsZero reports whether f is the unset format.
func (f Format) IsZero() bool {
	return f.MIMEType == ""
}

func (f Format) String() string {
	return f.Name
}

// Formats lists the known formats.
func Formats() []Format {
	out := make([]Format, len(formats))
	copy(out, formats)
	return out
}

// FormatForFileName picks a format from a file extension.
func FormatForFileName(name string) (Format, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".gz" {
		ext = strings.ToLower(filepath.Ext(strings.TrimSuffix(name, filepath.Ext(name))))
	}
	for _, f := range formats {
		for _, e := range f.Extensions {
			if e == ext {
				return f, true
			}
		}
	}
	return Format{}, false
}

// FormatForMIMEType picks a format from a Content-Type header value.
func FormatForMIMEType(contentType string) (Format, bool) {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.TrimSpace(strings.ToLower(contentType))
	}
	for _, f := range formats {
		if f.MIMEType == mt {
			return f, true
		}
	}
	if mt == "application/x-turtle" {
		return Turtle, true
	}
	return Format{}, false
}

// FormatByName resolves a user supplied name such as "turtle" or "nq".
func FormatByName(name string) (Format, error) {
	n := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "."))
	for _, f := range formats {
		if strings.EqualFold(f.Name, n) || strings.EqualFold(strings.ReplaceAll(f.Name, "-", ""), n) {
			return f, nil
		}
		for _, e := range f.Extensions {
			if e[1:] == n {
				return f, nil
			}
		}
	}
	return Format{}, fmt.Errorf("unknown rdf format %q", name)
}
