package query

import (
	"sort"
	"strings"

	"github.com/cayleygraph/quad"
)

// Binding is a named value in a solution or a query parameter.
type Binding struct {
	Name  string
	Value quad.Value
}

// BindingSet is one solution row. Bindings keep the order they were added.
type BindingSet struct {
	bindings []Binding
}

// NewBindingSet builds a BindingSet from the given bindings.
func NewBindingSet(bindings ...Binding) BindingSet {
	bs := BindingSet{bindings: make([]Binding, 0, len(bindings))}
	for _, b := range bindings {
		bs.Add(b.Name, b.Value)
	}
	return bs
}

// Add sets name to v, replacing an existing binding of the same name.
func (bs *BindingSet) Add(name string, v quad.Value) {
	for i := range bs.bindings {
		if bs.bindings[i].Name == name {
			bs.bindings[i].Value = v
			return
		}
	}
	bs.bindings = append(bs.bindings, Binding{Name: name, Value: v})
}

// Binding returns the named binding or nil when it is absent.
func (bs BindingSet) Binding(name string) *Binding {
	for i := range bs.bindings {
		if bs.bindings[i].Name == name {
			b := bs.bindings[i]
			return &b
		}
	}
	return nil
}

// Value returns the bound value or nil.
func (bs BindingSet) Value(name string) quad.Value {
	if b := bs.Binding(name); b != nil {
		return b.Value
	}
	return nil
}

func (bs BindingSet) Has(name string) bool {
	return bs.Binding(name) != nil
}

func (bs BindingSet) Len() int {
	return len(bs.bindings)
}

// Names lists binding names in insertion order.
func (bs BindingSet) Names() []string {
	names := make([]string, len(bs.bindings))
	for i, b := range bs.bindings {
		names[i] = b.Name
	}
	return names
}

// Bindings returns a copy of the bindings.
func (bs BindingSet) Bindings() []Binding {
	out := make([]Binding, len(bs.bindings))
	copy(out, bs.bindings)
	return out
}

func (bs BindingSet) String() string {
	parts := make([]string, 0, len(bs.bindings))
	for _, b := range bs.bindings {
		v := "<nil>"
		if b.Value != nil {
			v = b.Value.String()
		}
		parts = append(parts, b.Name+"="+v)
	}
	return "[" + strings.Join(parts, ";") + "]"
}

// BindingsFromMap orders a parameter map by name.
func BindingsFromMap(m map[string]quad.Value) BindingSet {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	bs := BindingSet{bindings: make([]Binding, 0, len(names))}
	for _, name := range names {
		bs.bindings = append(bs.bindings, Binding{Name: name, Value: m[name]})
	}
	return bs
}
