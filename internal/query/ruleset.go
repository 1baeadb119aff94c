package query

import "github.com/cayleygraph/quad"

// Ruleset names an inference rule set installed on the store.
type Ruleset string

// Rulesets shipped with the store.
const (
	RulesetRDFS              Ruleset = "rdfs.rules"
	RulesetRDFSFull          Ruleset = "rdfs-full.rules"
	RulesetRDFSPlus          Ruleset = "rdfs-plus.rules"
	RulesetRDFSPlusFull      Ruleset = "rdfs-plus-full.rules"
	RulesetOWLHorst          Ruleset = "owl-horst.rules"
	RulesetOWLHorstFull      Ruleset = "owl-horst-full.rules"
	RulesetDomain            Ruleset = "domain.rules"
	RulesetRange             Ruleset = "range.rules"
	RulesetSubClassOf        Ruleset = "subClassOf.rules"
	RulesetSubPropertyOf     Ruleset = "subPropertyOf.rules"
	RulesetInverseOf         Ruleset = "inverseOf.rules"
	RulesetEquivalentClass   Ruleset = "equivalentClass.rules"
	RulesetEquivalentProp    Ruleset = "equivalentProperty.rules"
	RulesetSameAs            Ruleset = "sameAs.rules"
	RulesetSameAsFull        Ruleset = "sameAs-full.rules"
	RulesetFunctionalProp    Ruleset = "functionalProperty.rules"
	RulesetSymmetricProp     Ruleset = "symmetricProperty.rules"
	RulesetTransitiveProp    Ruleset = "transitiveProperty.rules"
	RulesetInverseFunctional Ruleset = "inverseFunctionalProperty.rules"
)

// Dataset restricts the graphs a query or update sees.
type Dataset struct {
	DefaultGraphs []quad.IRI
	NamedGraphs   []quad.IRI
}

// IsEmpty reports whether no graph is listed.
func (d Dataset) IsEmpty() bool {
	return len(d.DefaultGraphs) == 0 && len(d.NamedGraphs) == 0
}
