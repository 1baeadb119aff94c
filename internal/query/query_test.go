package query

import (
	"errors"
	"io"
	"testing"

	"github.com/cayleygraph/quad"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectForm(t *testing.T) {
	cases := map[string]Form{
		"select ?s ?p ?o { ?s ?p ?o } limit 2 ":                      FormTuple,
		"SELECT DISTINCT ?_ WHERE { GRAPH ?_ { ?s ?p ?o } }":          FormTuple,
		"PREFIX nn: <http://semanticbible.org/ns/2006/NTNames#>\nconstruct { ?s ?p ?o } where { ?s ?p ?o }": FormGraph,
		"DESCRIBE <http://semanticbible.org/ns/2006/NTNames#Shelah>": FormGraph,
		"# leading comment\nBASE <http://example.org/>\nASK { ?s ?p ?o }": FormBoolean,
		"INSERT DATA { GRAPH <http://marklogic.com/test/g27> { <http://marklogic.com/test> <pp1> <oo1> } }": FormUpdate,
		"   ": FormUnknown,
	}
	for q, want := range cases {
		assert.Equal(t, want, DetectForm(q), q)
	}
}

func TestBindingSet(t *testing.T) {
	bs := NewBindingSet(
		Binding{Name: "s", Value: quad.IRI("http://example.org/s")},
		Binding{Name: "o", Value: quad.String("0")},
	)
	bs.Add("s", quad.IRI("http://example.org/s2"))

	assert.Equal(t, []string{"s", "o"}, bs.Names())
	assert.Equal(t, quad.IRI("http://example.org/s2"), bs.Value("s"))
	assert.Nil(t, bs.Binding("missing"))
	assert.Nil(t, bs.Value("missing"))
	assert.Equal(t, "o", bs.Binding("o").Name)
	assert.Equal(t, 2, bs.Len())
}

func TestBindingsFromMapSortsByName(t *testing.T) {
	bs := BindingsFromMap(map[string]quad.Value{
		"c": quad.IRI("c"),
		"b": quad.IRI("b"),
	})
	assert.Equal(t, []string{"b", "c"}, bs.Names())
}

func TestCursorHasNextNext(t *testing.T) {
	c := SliceCursor([]int{1, 2})
	require.True(t, c.HasNext())
	require.True(t, c.HasNext())
	v, err := c.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	v, err = c.Next()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.False(t, c.HasNext())
	_, err = c.Next()
	assert.ErrorIs(t, err, ErrNoMoreResults)
	assert.NoError(t, c.Close())
}

func TestCursorSurfacesSourceError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	closed := 0
	c := NewCursor(func() (int, error) {
		calls++
		if calls == 1 {
			return 7, nil
		}
		return 0, boom
	}, func() error {
		closed++
		return nil
	})

	v, err := c.Next()
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.False(t, c.HasNext())
	assert.ErrorIs(t, c.Err(), boom)
	_, err = c.Next()
	assert.ErrorIs(t, err, boom)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, 1, closed)
}

func TestCursorCloseEarly(t *testing.T) {
	c := SliceCursor([]string{"a", "b"})
	require.NoError(t, c.Close())
	assert.False(t, c.HasNext())
	_, err := c.Next()
	assert.ErrorIs(t, err, ErrCursorClosed)
}

func TestMapAndCollect(t *testing.T) {
	c := Map(SliceCursor([]int{1, 2, 3}), func(i int) (int, error) { return i * 10, nil })
	out, err := Collect(c)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20, 30}, out)
}

func TestMapPropagatesConvertError(t *testing.T) {
	bad := errors.New("bad row")
	c := Map(SliceCursor([]int{1}), func(int) (string, error) { return "", bad })
	_, err := Collect(c)
	assert.ErrorIs(t, err, bad)
}

func TestTupleResultDrain(t *testing.T) {
	rows := []BindingSet{
		NewBindingSet(Binding{Name: "o", Value: quad.String("0")}),
		NewBindingSet(Binding{Name: "o", Value: quad.String("0")}),
	}
	res := NewTupleResult([]string{"s", "p", "o"}, SliceCursor(rows))

	var started []string
	solutions := 0
	ended := false
	err := res.Drain(TupleHandlerFuncs{
		Start:    func(names []string) error { started = names; return nil },
		Solution: func(bs BindingSet) error { solutions++; return nil },
		End:      func() error { ended = true; return nil },
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"s", "p", "o"}, started)
	assert.Equal(t, 2, solutions)
	assert.True(t, ended)
}

func TestGraphResultDrain(t *testing.T) {
	st := quad.Quad{Subject: quad.IRI("s"), Predicate: quad.IRI("p"), Object: quad.String("o")}
	res := NewGraphResult(SliceCursor([]quad.Quad{st}), map[string]string{"ex": "http://example.org/"})
	var c StatementCollector
	require.NoError(t, res.Drain(&c))
	assert.Equal(t, []quad.Quad{st}, c.Statements)
	assert.Equal(t, "http://example.org/", c.Namespaces["ex"])
}

func TestSliceCursorEOF(t *testing.T) {
	c := SliceCursor[int](nil)
	_, err := c.next()
	assert.ErrorIs(t, err, io.EOF)
}
