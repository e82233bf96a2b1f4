// Package graph provides a directed multigraph with deterministic topological
// ordering and cycle path extraction for diagnostics.
package graph

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCycle is returned by TopologicalSort when the graph is not acyclic
var ErrCycle = errors.New("cycle detected")

// Edge is a directed edge carrying a payload (for example a foreign key)
type Edge[V comparable, E any] struct {
	From    V
	To      V
	Payload E
}

// Multigraph is a directed graph that allows several edges between the same
// pair of vertices. Vertices and edges are kept in insertion order so that
// every traversal is deterministic.
type Multigraph[V comparable, E any] struct {
	vertices     []V
	known        map[V]bool
	successors   map[V][]Edge[V, E]
	predecessors map[V][]Edge[V, E]
}

// New creates an empty multigraph
func New[V comparable, E any]() *Multigraph[V, E] {
	return &Multigraph[V, E]{
		known:        make(map[V]bool),
		successors:   make(map[V][]Edge[V, E]),
		predecessors: make(map[V][]Edge[V, E]),
	}
}

// AddVertex adds v if it is not already present
func (g *Multigraph[V, E]) AddVertex(v V) {
	if g.known[v] {
		return
	}
	g.known[v] = true
	g.vertices = append(g.vertices, v)
}

// AddVertices adds every vertex in order
func (g *Multigraph[V, E]) AddVertices(vs ...V) {
	for _, v := range vs {
		g.AddVertex(v)
	}
}

// AddEdge adds a directed edge; both endpoints must already be vertices
func (g *Multigraph[V, E]) AddEdge(from, to V, payload E) error {
	if !g.known[from] {
		return fmt.Errorf("vertex %v is not part of the graph", from)
	}
	if !g.known[to] {
		return fmt.Errorf("vertex %v is not part of the graph", to)
	}

	edge := Edge[V, E]{From: from, To: to, Payload: payload}
	g.successors[from] = append(g.successors[from], edge)
	g.predecessors[to] = append(g.predecessors[to], edge)
	return nil
}

// Vertices returns the vertices in insertion order
func (g *Multigraph[V, E]) Vertices() []V {
	result := make([]V, len(g.vertices))
	copy(result, g.vertices)
	return result
}

// OutgoingEdges returns the edges leaving v
func (g *Multigraph[V, E]) OutgoingEdges(v V) []Edge[V, E] {
	return g.successors[v]
}

// IncomingEdges returns the edges entering v
func (g *Multigraph[V, E]) IncomingEdges(v V) []Edge[V, E] {
	return g.predecessors[v]
}

// Successors returns the distinct vertices reachable through one edge from v
func (g *Multigraph[V, E]) Successors(v V) []V {
	return distinct(g.successors[v], func(e Edge[V, E]) V { return e.To })
}

// Predecessors returns the distinct vertices with an edge into v
func (g *Multigraph[V, E]) Predecessors(v V) []V {
	return distinct(g.predecessors[v], func(e Edge[V, E]) V { return e.From })
}

func distinct[V comparable, E any](edges []Edge[V, E], pick func(Edge[V, E]) V) []V {
	seen := make(map[V]bool, len(edges))
	result := make([]V, 0, len(edges))
	for _, e := range edges {
		v := pick(e)
		if !seen[v] {
			seen[v] = true
			result = append(result, v)
		}
	}
	return result
}

type visitState int

const (
	unvisited visitState = iota
	onStack
	done
)

type frame[V comparable, E any] struct {
	vertex V
	next   int
}

// walk runs an iterative depth-first search over predecessor edges, so a
// vertex is emitted only after everything it depends on. When a back edge is
// found it returns the cycle as edges in forward order.
func (g *Multigraph[V, E]) walk() ([]V, []Edge[V, E]) {
	state := make(map[V]visitState, len(g.vertices))
	// via[v] is the forward edge v -> w through which v was discovered from w
	via := make(map[V]Edge[V, E], len(g.vertices))
	order := make([]V, 0, len(g.vertices))

	for _, root := range g.vertices {
		if state[root] != unvisited {
			continue
		}

		stack := []frame[V, E]{{vertex: root}}
		state[root] = onStack

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			incoming := g.predecessors[top.vertex]

			if top.next == len(incoming) {
				state[top.vertex] = done
				order = append(order, top.vertex)
				stack = stack[:len(stack)-1]
				continue
			}

			edge := incoming[top.next]
			top.next++

			switch state[edge.From] {
			case unvisited:
				via[edge.From] = edge
				state[edge.From] = onStack
				stack = append(stack, frame[V, E]{vertex: edge.From})
			case onStack:
				return nil, reconstructCycle(edge, via)
			}
		}
	}

	return order, nil
}

// reconstructCycle follows parent pointers from the closing edge's target
// back to its source.
func reconstructCycle[V comparable, E any](closing Edge[V, E], via map[V]Edge[V, E]) []Edge[V, E] {
	cycle := []Edge[V, E]{closing}
	current := closing.To
	for current != closing.From {
		edge := via[current]
		cycle = append(cycle, edge)
		current = edge.To
	}
	return cycle
}

// FindCycle returns the first cycle found as a list of edges in forward
// order, or nil when the graph is acyclic.
func (g *Multigraph[V, E]) FindCycle() []Edge[V, E] {
	_, cycle := g.walk()
	return cycle
}

// TopologicalSort orders the vertices so that every edge points from an
// earlier vertex to a later one. Independent vertices keep insertion order.
// On a cycle it returns an error wrapping ErrCycle whose message is built by
// formatCycle, or by FormatCycle when formatCycle is nil.
func (g *Multigraph[V, E]) TopologicalSort(formatCycle func([]Edge[V, E]) string) ([]V, error) {
	order, cycle := g.walk()
	if cycle != nil {
		if formatCycle == nil {
			formatCycle = FormatCycle[V, E]
		}
		return nil, &CycleError[V, E]{Edges: cycle, Message: formatCycle(cycle)}
	}
	return order, nil
}

// FormatCycle renders a cycle as "A -> B -> C -> A"
func FormatCycle[V comparable, E any](cycle []Edge[V, E]) string {
	names := make([]string, 0, len(cycle)+1)
	for _, edge := range cycle {
		names = append(names, fmt.Sprint(edge.From))
	}
	if len(cycle) > 0 {
		names = append(names, fmt.Sprint(cycle[0].From))
	}
	return strings.Join(names, " -> ")
}

// CycleError carries the offending cycle
type CycleError[V comparable, E any] struct {
	Edges   []Edge[V, E]
	Message string
}

// Error implements the error interface
func (e *CycleError[V, E]) Error() string {
	return fmt.Sprintf("%s: %s", ErrCycle, e.Message)
}

// Unwrap returns ErrCycle
func (e *CycleError[V, E]) Unwrap() error {
	return ErrCycle
}
