package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopologicalSort_DependenciesFirst(t *testing.T) {
	g := New[string, string]()
	g.AddVertices("Comment", "Post", "User", "Tag")
	require.NoError(t, g.AddEdge("User", "Post", "author"))
	require.NoError(t, g.AddEdge("Post", "Comment", "post"))
	require.NoError(t, g.AddEdge("User", "Comment", "author"))

	order, err := g.TopologicalSort(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"User", "Post", "Comment", "Tag"}, order)
}

func TestTopologicalSort_IndependentVerticesKeepInsertionOrder(t *testing.T) {
	g := New[string, int]()
	g.AddVertices("c", "a", "b")

	order, err := g.TopologicalSort(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, order)
}

func TestTopologicalSort_ReportsCyclePath(t *testing.T) {
	g := New[string, string]()
	g.AddVertices("A", "B", "C", "D")
	require.NoError(t, g.AddEdge("A", "B", "ab"))
	require.NoError(t, g.AddEdge("B", "C", "bc"))
	require.NoError(t, g.AddEdge("C", "A", "ca"))
	require.NoError(t, g.AddEdge("D", "A", "da"))

	_, err := g.TopologicalSort(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCycle)
	assert.Contains(t, err.Error(), "A -> B -> C -> A")

	var cycleErr *CycleError[string, string]
	require.ErrorAs(t, err, &cycleErr)
	require.Len(t, cycleErr.Edges, 3)
	for i, edge := range cycleErr.Edges {
		next := cycleErr.Edges[(i+1)%len(cycleErr.Edges)]
		assert.Equal(t, edge.To, next.From, "edges must chain")
	}
}

func TestTopologicalSort_CustomFormatter(t *testing.T) {
	g := New[string, string]()
	g.AddVertices("X", "Y")
	require.NoError(t, g.AddEdge("X", "Y", "fk1"))
	require.NoError(t, g.AddEdge("Y", "X", "fk2"))

	_, err := g.TopologicalSort(func(edges []Edge[string, string]) string {
		var payloads []string
		for _, e := range edges {
			payloads = append(payloads, e.Payload)
		}
		return "via " + payloads[0] + "," + payloads[1]
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "via ")
}

func TestFindCycle_SelfLoop(t *testing.T) {
	g := New[string, string]()
	g.AddVertex("Node")
	require.NoError(t, g.AddEdge("Node", "Node", "parent"))

	cycle := g.FindCycle()
	require.Len(t, cycle, 1)
	assert.Equal(t, "Node", cycle[0].From)
	assert.Equal(t, "Node -> Node", FormatCycle(cycle))
}

func TestMultigraph_ParallelEdges(t *testing.T) {
	g := New[string, string]()
	g.AddVertices("Order", "Address")
	require.NoError(t, g.AddEdge("Address", "Order", "billing"))
	require.NoError(t, g.AddEdge("Address", "Order", "shipping"))

	assert.Len(t, g.OutgoingEdges("Address"), 2)
	assert.Equal(t, []string{"Order"}, g.Successors("Address"))
	assert.Equal(t, []string{"Address"}, g.Predecessors("Order"))
	assert.Nil(t, g.FindCycle())
}

func TestMultigraph_AddEdgeUnknownVertex(t *testing.T) {
	g := New[string, string]()
	g.AddVertex("A")
	assert.Error(t, g.AddEdge("A", "B", ""))
	assert.Error(t, g.AddEdge("B", "A", ""))
}

func TestTopologicalSort_LongChainDoesNotRecurse(t *testing.T) {
	g := New[int, struct{}]()
	const n = 20000
	for i := 0; i < n; i++ {
		g.AddVertex(i)
	}
	for i := 1; i < n; i++ {
		require.NoError(t, g.AddEdge(i, i-1, struct{}{}))
	}

	order, err := g.TopologicalSort(nil)
	require.NoError(t, err)
	assert.Equal(t, n-1, order[0])
	assert.Equal(t, 0, order[n-1])
}
