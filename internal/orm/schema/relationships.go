package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/conduit-lang/metamodel/internal/orm/graph"
)

// RelationshipGraph builds the multigraph of a model with one edge per
// foreign key, pointing from principal to dependent. Self references and
// base-linking foreign keys are left out because they do not constrain
// insertion order.
func RelationshipGraph(m ReadOnlyModel) *graph.Multigraph[*EntityType, *ForeignKey] {
	g := graph.New[*EntityType, *ForeignKey]()
	entityTypes := m.EntityTypes()
	g.AddVertices(entityTypes...)

	for _, et := range entityTypes {
		for _, fk := range et.DeclaredForeignKeys() {
			if fk.IsSelfReferencing() || fk.IsBaseLinking() {
				continue
			}
			// both ends belong to the model, so AddEdge cannot fail
			_ = g.AddEdge(fk.principalEntityType, fk.declaringEntityType, fk)
		}
	}
	return g
}

// DependencyOrder returns the entity types ordered so that every principal
// precedes its dependents. Entity types without relationships keep name
// order. A cycle is reported as "A -> B -> A".
func DependencyOrder(m ReadOnlyModel) ([]*EntityType, error) {
	order, err := RelationshipGraph(m).TopologicalSort(nil)
	if err != nil {
		return nil, fmt.Errorf("circular dependency detected: %w", err)
	}
	return order, nil
}

// DependencyReport summarizes the relationship graph of a model
type DependencyReport struct {
	Order        []string            `json:"order"`
	Dependencies map[string][]string `json:"dependencies"`
	Roots        []string            `json:"roots"`
	Leaves       []string            `json:"leaves"`
}

// AnalyzeDependencies builds a DependencyReport
func AnalyzeDependencies(m ReadOnlyModel) (*DependencyReport, error) {
	g := RelationshipGraph(m)
	order, err := g.TopologicalSort(nil)
	if err != nil {
		return nil, fmt.Errorf("circular dependency detected: %w", err)
	}

	report := &DependencyReport{Dependencies: make(map[string][]string)}
	for _, et := range order {
		report.Order = append(report.Order, et.name)

		var deps []string
		for _, p := range g.Predecessors(et) {
			deps = append(deps, p.name)
		}
		sort.Strings(deps)
		report.Dependencies[et.name] = deps

		if len(deps) == 0 {
			report.Roots = append(report.Roots, et.name)
		}
		if len(g.Successors(et)) == 0 {
			report.Leaves = append(report.Leaves, et.name)
		}
	}
	sort.Strings(report.Roots)
	sort.Strings(report.Leaves)
	return report, nil
}

// String formats the dependency report
func (r *DependencyReport) String() string {
	var b strings.Builder

	b.WriteString("Dependency Analysis Report\n")
	b.WriteString("==========================\n\n")

	b.WriteString("Dependency Order:\n")
	for i, name := range r.Order {
		b.WriteString(fmt.Sprintf("  %d. %s", i+1, name))
		if deps := r.Dependencies[name]; len(deps) > 0 {
			b.WriteString(fmt.Sprintf(" (depends on: %s)", strings.Join(deps, ", ")))
		}
		b.WriteString("\n")
	}

	b.WriteString("\nRoot Entity Types (no dependencies):\n")
	for _, name := range r.Roots {
		b.WriteString(fmt.Sprintf("  - %s\n", name))
	}

	b.WriteString("\nLeaf Entity Types (no dependents):\n")
	for _, name := range r.Leaves {
		b.WriteString(fmt.Sprintf("  - %s\n", name))
	}

	return b.String()
}
