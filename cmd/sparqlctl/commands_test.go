package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cayleygraph/quad"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/sparqlconn/internal/query"
)

type recordingQuery struct {
	bindings map[string]quad.Value
	infer    bool
	dataset  query.Dataset
	rulesets []query.Ruleset
}

func (q *recordingQuery) QueryString() string { return "" }
func (q *recordingQuery) BaseURI() string     { return "" }

func (q *recordingQuery) SetBinding(name string, v quad.Value) {
	if q.bindings == nil {
		q.bindings = make(map[string]quad.Value)
	}
	q.bindings[name] = v
}

func (q *recordingQuery) RemoveBinding(name string)       { delete(q.bindings, name) }
func (q *recordingQuery) ClearBindings()                  { q.bindings = nil }
func (q *recordingQuery) Bindings() query.BindingSet      { return query.BindingsFromMap(q.bindings) }
func (q *recordingQuery) SetIncludeInferred(include bool) { q.infer = include }
func (q *recordingQuery) IncludeInferred() bool           { return q.infer }
func (q *recordingQuery) SetDataset(d query.Dataset)      { q.dataset = d }
func (q *recordingQuery) Dataset() query.Dataset          { return q.dataset }
func (q *recordingQuery) SetRulesets(rs ...query.Ruleset) { q.rulesets = rs }

func TestQueryFlagsApply(t *testing.T) {
	qf := queryFlags{
		bindings:      []string{"?s=<urn:x>", "name=Alexandria"},
		rulesets:      []string{"rdfs.rules"},
		defaultGraphs: []string{"urn:g1"},
		noInfer:       true,
	}
	q := &recordingQuery{infer: true}
	require.NoError(t, qf.apply(q))

	assert.Equal(t, quad.Value(quad.IRI("urn:x")), q.bindings["s"])
	assert.Equal(t, quad.Value(quad.String("Alexandria")), q.bindings["name"])
	assert.False(t, q.infer)
	assert.Equal(t, []query.Ruleset{query.RulesetRDFS}, q.rulesets)
	assert.Equal(t, []quad.IRI{"urn:g1"}, q.dataset.DefaultGraphs)

	bad := queryFlags{bindings: []string{"novalue"}}
	assert.Error(t, bad.apply(&recordingQuery{}))
}

func TestQueryFlagsText(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetIn(strings.NewReader("ASK {}"))

	qf := queryFlags{file: "-"}
	text, err := qf.text(cmd, nil)
	require.NoError(t, err)
	assert.Equal(t, "ASK {}", text)

	var empty queryFlags
	text, err = empty.text(cmd, []string{"SELECT", "*", "WHERE", "{}"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * WHERE {}", text)

	_, err = empty.text(cmd, nil)
	assert.Error(t, err)
}

func TestTupleHandlerTable(t *testing.T) {
	var buf bytes.Buffer
	h := tupleHandler(&buf, "table")
	require.NoError(t, h.StartQueryResult([]string{"s", "o"}))
	require.NoError(t, h.HandleSolution(query.BindingsFromMap(map[string]quad.Value{
		"s": quad.IRI("urn:a"),
	})))
	require.NoError(t, h.EndQueryResult())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "s"))
	assert.True(t, strings.HasPrefix(lines[1], "<urn:a>"))
}

func TestRootRegistersCommands(t *testing.T) {
	root := rootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"query", "ask", "update", "load", "clear", "contexts", "size", "export", "bench"}, names)
}
