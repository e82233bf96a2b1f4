package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/metamodel/internal/orm/annotations"
	"github.com/conduit-lang/metamodel/internal/orm/graph"
)

func blogModel(t *testing.T) *Model {
	t.Helper()
	b := NewModelBuilder(nil)
	b.Entity(Tag{}).HasKey("ID")
	b.Entity(Blog{}).HasKey("ID")
	b.Entity(Post{}).HasKey("ID").HasOne(Blog{}, "Blog").WithMany("Posts")
	m, err := b.FinalizeModel()
	require.NoError(t, err)
	return m
}

// bagEntity adds a property bag entity type with an int primary key "ID"
func bagEntity(t *testing.T, m *Model, name string) *EntityType {
	t.Helper()
	et, err := m.AddSharedEntityType(name, nil, annotations.SourceExplicit)
	require.NoError(t, err)
	id, err := et.AddProperty("ID", typeOf[int](), annotations.SourceExplicit)
	require.NoError(t, err)
	_, err = et.SetPrimaryKey([]*Property{id}, annotations.SourceExplicit)
	require.NoError(t, err)
	return et
}

func bagReference(t *testing.T, dependent, principal *EntityType) {
	t.Helper()
	p, err := dependent.AddProperty(principal.Name()+"ID", typeOf[*int](), annotations.SourceExplicit)
	require.NoError(t, err)
	_, err = dependent.AddForeignKey([]*Property{p}, principal.FindPrimaryKey(), principal, annotations.SourceExplicit)
	require.NoError(t, err)
}

func TestDependencyOrder(t *testing.T) {
	order, err := DependencyOrder(blogModel(t))
	require.NoError(t, err)

	names := make([]string, len(order))
	for i, et := range order {
		names[i] = et.Name()
	}
	assert.Equal(t, []string{"Blog", "Post", "Tag"}, names)
}

func TestDependencyOrder_PrincipalSortedAfterDependent(t *testing.T) {
	m := NewModel()
	zone := bagEntity(t, m, "Zone")
	area := bagEntity(t, m, "Area")
	bagReference(t, area, zone)

	order, err := DependencyOrder(m)
	require.NoError(t, err)
	assert.Equal(t, []*EntityType{zone, area}, order)
}

func TestDependencyOrder_SelfReferenceIsNotACycle(t *testing.T) {
	m := NewModel()
	node := bagEntity(t, m, "Node")
	bagReference(t, node, node)

	order, err := DependencyOrder(m)
	require.NoError(t, err)
	assert.Equal(t, []*EntityType{node}, order)
	assert.Empty(t, RelationshipGraph(m).OutgoingEdges(node))
}

func TestDependencyOrder_Cycle(t *testing.T) {
	m := NewModel()
	a := bagEntity(t, m, "A")
	b := bagEntity(t, m, "B")
	c := bagEntity(t, m, "C")
	bagReference(t, b, a)
	bagReference(t, c, b)
	bagReference(t, a, c)

	_, err := DependencyOrder(m)
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrCycle)
	assert.Contains(t, err.Error(), "circular dependency detected")
	assert.Contains(t, err.Error(), " -> ")
}

func TestAnalyzeDependencies(t *testing.T) {
	report, err := AnalyzeDependencies(blogModel(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"Blog", "Post", "Tag"}, report.Order)
	assert.Equal(t, []string{"Blog"}, report.Dependencies["Post"])
	assert.Empty(t, report.Dependencies["Blog"])
	assert.Equal(t, []string{"Blog", "Tag"}, report.Roots)
	assert.Equal(t, []string{"Post", "Tag"}, report.Leaves)

	out := report.String()
	assert.Contains(t, out, "Dependency Analysis Report")
	assert.Contains(t, out, "  2. Post (depends on: Blog)\n")
	assert.Contains(t, out, "  - Tag\n")
}
