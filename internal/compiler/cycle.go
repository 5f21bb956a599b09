package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/islet/internal/expr"
	"github.com/roach88/islet/internal/ir"
)

// CycleWarning represents state initializers that reference each other.
//
// Cycles are warnings, not errors: the runtime still initializes the
// fields, in declaration order, and the first one evaluated reads the
// others as undefined.
type CycleWarning struct {
	Scope   string   `json:"scope"`   // "state", "localState", "island counter", ...
	Path    []string `json:"path"`    // Cycle path: ["a", "b", "a"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning"
}

// AnalyzeInitCycles reports initializer cycles in every state declaration
// block of a program: global state, program local state, local nodes and
// islands.
//
// The algorithm:
//  1. Build a field → referenced sibling field graph per block
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or self-loops as a cycle warning
//
// Warnings come out in document order.
func AnalyzeInitCycles(p *ir.Program) []CycleWarning {
	if p == nil {
		return nil
	}
	var warnings []CycleWarning
	check := func(scope string, defs ir.StateDefs) {
		warnings = append(warnings, analyzeDefs(scope, defs)...)
	}

	check("state", p.State)
	check("localState", p.LocalState)
	locals := 0
	ir.Walk(p.View, func(n ir.Node) bool {
		switch n := n.(type) {
		case *ir.Local:
			locals++
			check(fmt.Sprintf("local #%d", locals), n.State)
		case *ir.Island:
			check("island "+n.ID, n.State)
		}
		return true
	})
	return warnings
}

// dependencyGraph maps a field to the sibling fields its initializer reads.
type dependencyGraph struct {
	order []string
	edges map[string][]string
}

func buildDependencyGraph(defs ir.StateDefs) dependencyGraph {
	g := dependencyGraph{edges: make(map[string][]string, len(defs))}
	declared := make(map[string]bool, len(defs))
	for _, f := range defs {
		declared[f.Name] = true
		g.order = append(g.order, f.Name)
	}
	for _, f := range defs {
		g.edges[f.Name] = []string{}
		for _, e := range []ir.Expr{f.Initial, f.Computed} {
			if e == nil {
				continue
			}
			for _, name := range expr.Analyze(e).Names() {
				if declared[name] && !slices.Contains(g.edges[f.Name], name) {
					g.edges[f.Name] = append(g.edges[f.Name], name)
				}
			}
		}
	}
	return g
}

func analyzeDefs(scope string, defs ir.StateDefs) []CycleWarning {
	if len(defs) == 0 {
		return nil
	}
	g := buildDependencyGraph(defs)
	position := make(map[string]int, len(g.order))
	for i, name := range g.order {
		position[name] = i
	}

	var warnings []CycleWarning
	for _, scc := range tarjanSCC(g) {
		if len(scc) > 1 || hasSelfLoop(scc[0], g) {
			slices.SortFunc(scc, func(a, b string) int { return position[a] - position[b] })
			warnings = append(warnings, cycleSCCToWarning(scope, scc, g))
		}
	}
	slices.SortFunc(warnings, func(a, b CycleWarning) int {
		return position[a.Path[0]] - position[b.Path[0]]
	})
	return warnings
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, g dependencyGraph) bool {
	return slices.Contains(g.edges[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Roots are visited in declaration order.
func tarjanSCC(g dependencyGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.edges[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root: pop its component
		if lowlink[v] == indices[v] {
			var scc []string
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

	for _, node := range g.order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// cycleSCCToWarning converts an SCC, sorted by declaration, to a warning.
func cycleSCCToWarning(scope string, scc []string, g dependencyGraph) CycleWarning {
	if len(scc) == 1 {
		name := scc[0]
		return CycleWarning{
			Scope:   scope,
			Path:    []string{name, name},
			Message: fmt.Sprintf("%s: initializer of %s reads itself", scope, name),
			Level:   "warning",
		}
	}

	path := reconstructCyclePath(scc, g)
	return CycleWarning{
		Scope:   scope,
		Path:    path,
		Message: fmt.Sprintf("%s: initializer cycle %s", scope, strings.Join(path, " → ")),
		Level:   "warning",
	}
}

// reconstructCyclePath walks edges inside the SCC from its first member
// until it returns there.
func reconstructCyclePath(scc []string, g dependencyGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	sccSet := make(map[string]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range g.edges[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}

	return path
}
