package constraint

import (
	"maps"
	"slices"
)

// NodeKind orders nodes within an execution layer: the primary runtime
// resolves and installs before runtimes it merely requires, which in turn
// precede runtimes that are only recommended.
type NodeKind int

const (
	KindPrimary NodeKind = iota
	KindRequired
	KindRecommended
)

func (k NodeKind) priority() int {
	switch k {
	case KindPrimary:
		return 100
	case KindRequired:
		return 200
	case KindRecommended:
		return 300
	default:
		return 1000
	}
}

// NodeID identifies a runtime node in the dependency graph.
type NodeID string

// Node represents a single runtime participating in dependency resolution.
type Node struct {
	ID      NodeID
	Runtime string
	Kind    NodeKind
}

// Layer is a set of nodes with no dependency ordering between them; every
// node in a layer can be ensured concurrently once the previous layer is
// complete.
type Layer struct {
	Nodes []*Node
}

// Edge is a directed "From requires To" dependency relationship.
type Edge struct {
	From NodeID
	To   NodeID
}

// dag is a directed graph of runtime dependencies, built incrementally by
// Graph.AddDependency and resolved by Graph.Resolve.
type dag struct {
	nodes    map[NodeID]*Node
	edges    map[NodeID]map[NodeID]struct{}
	inDegree map[NodeID]int
}

func newDAG() *dag {
	return &dag{
		nodes:    make(map[NodeID]*Node),
		edges:    make(map[NodeID]map[NodeID]struct{}),
		inDegree: make(map[NodeID]int),
	}
}

// addNode registers runtime under kind, returning the existing node if one
// is already present. A node first added as KindRequired is never
// downgraded to KindRecommended by a later call, but is upgraded to
// KindPrimary if that's what a later call asks for — the primary runtime
// always wins the priority tie.
func (g *dag) addNode(runtime string, kind NodeKind) *Node {
	id := NodeID(runtime)
	if node, ok := g.nodes[id]; ok {
		if kind < node.Kind {
			node.Kind = kind
		}
		return node
	}
	node := &Node{ID: id, Runtime: runtime, Kind: kind}
	g.nodes[id] = node
	g.inDegree[id] = 0
	return node
}

// addEdge records that `from` requires `to`. Both nodes must already exist.
func (g *dag) addEdge(from, to *Node) {
	if g.edges[from.ID] == nil {
		g.edges[from.ID] = make(map[NodeID]struct{})
	}
	if _, exists := g.edges[from.ID][to.ID]; !exists {
		g.edges[from.ID][to.ID] = struct{}{}
		g.inDegree[from.ID]++
	}
}

type nodeColor int

const (
	white nodeColor = iota
	gray
	black
)

// detectCycle returns the exact cycle path if one exists, nil otherwise.
func (g *dag) detectCycle() []NodeID {
	color := make(map[NodeID]nodeColor, len(g.nodes))
	parent := make(map[NodeID]NodeID, len(g.nodes))

	var cycle []NodeID

	var dfs func(node NodeID) bool
	dfs = func(node NodeID) bool {
		color[node] = gray

		for dep := range g.edges[node] {
			if color[dep] == gray {
				cycle = []NodeID{dep}
				for curr := node; curr != dep; curr = parent[curr] {
					cycle = append(cycle, curr)
				}
				cycle = append(cycle, dep)
				slices.Reverse(cycle)
				return true
			}
			if color[dep] == white {
				parent[dep] = node
				if dfs(dep) {
					return true
				}
			}
		}

		color[node] = black
		return false
	}

	for id := range g.nodes {
		if color[id] == white {
			if dfs(id) {
				return cycle
			}
		}
	}

	return nil
}

func sortNodesByKind(nodes []*Node) {
	slices.SortFunc(nodes, func(a, b *Node) int {
		pa, pb := a.Kind.priority(), b.Kind.priority()
		if pa != pb {
			return pa - pb
		}
		if a.Runtime < b.Runtime {
			return -1
		}
		if a.Runtime > b.Runtime {
			return 1
		}
		return 0
	})
}

// topologicalSort orders nodes into dependency-respecting layers using
// Kahn's algorithm, breaking ties within a layer by NodeKind priority then
// runtime name.
func (g *dag) topologicalSort() ([]Layer, error) {
	if cycle := g.detectCycle(); cycle != nil {
		return nil, NewCycleError(cycle)
	}

	inDegree := make(map[NodeID]int, len(g.inDegree))
	maps.Copy(inDegree, g.inDegree)

	reverseEdges := make(map[NodeID][]NodeID, len(g.nodes))
	for from, deps := range g.edges {
		for dep := range deps {
			reverseEdges[dep] = append(reverseEdges[dep], from)
		}
	}

	layers := make([]Layer, 0, len(g.nodes))

	queue := make([]NodeID, 0, len(g.nodes))
	for id, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		layer := Layer{Nodes: make([]*Node, 0, len(queue))}
		nextQueue := make([]NodeID, 0, len(g.nodes))

		for _, id := range queue {
			layer.Nodes = append(layer.Nodes, g.nodes[id])

			for _, dependent := range reverseEdges[id] {
				inDegree[dependent]--
				if inDegree[dependent] == 0 {
					nextQueue = append(nextQueue, dependent)
				}
			}
		}

		sortNodesByKind(layer.Nodes)

		layers = append(layers, layer)
		queue = nextQueue
	}

	return layers, nil
}

func (g *dag) nodeCount() int { return len(g.nodes) }

func (g *dag) edgeCount() int {
	count := 0
	for _, deps := range g.edges {
		count += len(deps)
	}
	return count
}
