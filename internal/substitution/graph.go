// Package substitution implements the substitution engine: resolving
// metadata.substitutions[] entries across a revision's concrete
// documents, in topological order, with regex-pattern injection. Secret
// dereferencing happens before this package runs (internal/render).
package substitution

import (
	"fmt"
	"strings"

	"github.com/deckhand/deckhand/internal/document"
)

// Graph is the substitution dependency graph: an edge dest -> src means
// dest's data cannot be finalized until src's has been. It is keyed by
// document identity rather than pointer so replacement can re-route an
// edge by rewriting an ID lookup instead of the graph itself.
type Graph map[document.ID][]document.ID

// BuildGraph constructs the substitution dependency graph for a set of
// concrete documents: one edge per substitutions[] entry, from the
// document declaring the substitution to the source it names.
func BuildGraph(docs []*document.Document) Graph {
	g := make(Graph, len(docs))
	for _, d := range docs {
		id := d.ID()
		if _, ok := g[id]; !ok {
			g[id] = nil
		}
		for _, sub := range d.Metadata.Substitutions {
			src := document.ID{Schema: sub.Src.Schema, Name: sub.Src.Name}
			g[id] = append(g[id], src)
		}
	}
	return g
}

// CycleError reports a substitution cycle detected in the dependency
// graph; it is fatal-revision (§5 error classification).
type CycleError struct {
	Path []document.ID
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Path))
	for i, id := range e.Path {
		parts[i] = id.String()
	}
	return fmt.Sprintf("substitution cycle: %s", strings.Join(parts, " -> "))
}

// TopoOrder returns the document IDs of g in dependency order (sources
// before dependents), or a *CycleError if g contains a cycle. Unlike
// the layering forest, which is acyclic by construction, the
// substitution graph is data-driven and must be checked explicitly
// before any substitution is applied (§4.6).
func TopoOrder(g Graph) ([]document.ID, error) {
	sccs := tarjanSCC(g)

	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], g)) {
			return nil, &CycleError{Path: closeCycle(scc, g)}
		}
	}

	// tarjanSCC yields SCCs in reverse topological order of the edges (a
	// component is only closed once every node it points to has already
	// been closed). Edges run dest -> src, so every source is closed
	// before its dependents: the closing order is already
	// sources-before-dependents.
	order := make([]document.ID, 0, len(g))
	for _, scc := range sccs {
		order = append(order, scc...)
	}
	return order, nil
}

func hasSelfLoop(node document.ID, g Graph) bool {
	for _, n := range g[node] {
		if n == node {
			return true
		}
	}
	return false
}

// closeCycle renders a single representative cycle out of an SCC for
// error reporting, by walking edges that stay within the component
// until the start node is reached again.
func closeCycle(scc []document.ID, g Graph) []document.ID {
	if len(scc) == 1 {
		return []document.ID{scc[0], scc[0]}
	}

	inSCC := make(map[document.ID]bool, len(scc))
	for _, n := range scc {
		inSCC[n] = true
	}

	start := scc[0]
	current := start
	path := []document.ID{current}
	visited := map[document.ID]bool{current: true}

	for {
		var next document.ID
		found := false
		for _, n := range g[current] {
			if !inSCC[n] {
				continue
			}
			if n == start || !visited[n] {
				next = n
				found = true
				break
			}
		}
		if !found {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		visited[next] = true
		current = next
	}
	return path
}

// tarjanSCC finds strongly connected components of g using Tarjan's
// algorithm. Components are returned in the order their root node was
// closed, which is reverse topological order.
func tarjanSCC(g Graph) [][]document.ID {
	var (
		index   = 0
		stack   []document.ID
		indices = make(map[document.ID]int)
		lowlink = make(map[document.ID]int)
		onStack = make(map[document.ID]bool)
		sccs    [][]document.ID
	)

	var strongConnect func(document.ID)
	strongConnect = func(v document.ID) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []document.ID
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]document.ID, 0, len(g))
	for n := range g {
		nodes = append(nodes, n)
	}
	sortIDs(nodes)

	for _, n := range nodes {
		if _, visited := indices[n]; !visited {
			strongConnect(n)
		}
	}

	return sccs
}

func sortIDs(ids []document.ID) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j].Less(ids[j-1]); j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}
