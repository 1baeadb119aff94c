package service

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cayleygraph/quad"

	"github.com/vanshika/sparqlconn/internal/rdf"
)

// DefaultPatterns match every file extension with a known RDF format.
func DefaultPatterns() []string {
	var patterns []string
	for _, f := range rdf.Formats() {
		for _, ext := range f.Extensions {
			patterns = append(patterns, "**/*"+ext)
		}
	}
	return patterns
}

// ResolveFiles expands glob patterns such as "data/**/*.nq" relative to
// root. Only files with a recognised RDF format are returned, sorted and
// without duplicates.
func ResolveFiles(root string, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns()
	}
	fsys := os.DirFS(root)
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid pattern %q", pattern)
		}
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expand %q: %w", pattern, err)
		}
		for _, m := range matches {
			if _, ok := rdf.FormatForFileName(m); !ok {
				continue
			}
			full := filepath.Join(root, filepath.FromSlash(m))
			if !seen[full] {
				seen[full] = true
				files = append(files, full)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// MatchesAny reports whether the slash-separated relative path matches one
// of the patterns.
func MatchesAny(patterns []string, rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// Tasks turns file paths into load tasks sharing base URI and contexts.
func Tasks(files []string, baseURI string, contexts ...quad.Value) []LoadTask {
	tasks := make([]LoadTask, len(files))
	for i, f := range files {
		tasks[i] = LoadTask{Path: f, BaseURI: baseURI, Contexts: contexts}
	}
	return tasks
}
