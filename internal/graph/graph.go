// Package graph builds and validates the per-seed processor DAG. Topologies
// are fixed per ecosystem; only node configuration varies between seeds.
package graph

import (
	"fmt"
	"sort"

	"git.home.luguber.info/inful/seedbloom/internal/processor"
)

// Graph is the DAG instance for one seed: processor specs plus the derived
// execution order. It is immutable after New.
type Graph struct {
	specs      map[processor.Name]processor.Spec
	order      []processor.Name
	dependents map[processor.Name][]processor.Name
	terminal   processor.Name
}

// New validates a spec set and derives a deterministic topological order
// (lexicographic tie-breaking). It enforces the structural invariants:
// acyclic, all dependencies declared, and a single terminal root node
// reachable from every other node.
func New(specs []processor.Spec) (*Graph, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("graph requires at least one processor")
	}

	g := &Graph{
		specs:      make(map[processor.Name]processor.Spec, len(specs)),
		dependents: make(map[processor.Name][]processor.Name),
	}
	for _, s := range specs {
		if _, dup := g.specs[s.Name]; dup {
			return nil, fmt.Errorf("duplicate processor %q", s.Name)
		}
		g.specs[s.Name] = s
	}

	inDegree := make(map[processor.Name]int, len(specs))
	for _, s := range specs {
		inDegree[s.Name] = len(s.Dependencies)
		for _, dep := range s.Dependencies {
			if _, ok := g.specs[dep]; !ok {
				return nil, fmt.Errorf("processor %q depends on unknown processor %q", s.Name, dep)
			}
			if dep == s.Name {
				return nil, fmt.Errorf("processor %q depends on itself", s.Name)
			}
			g.dependents[dep] = append(g.dependents[dep], s.Name)
		}
	}
	for _, deps := range g.dependents {
		sort.Slice(deps, func(i, j int) bool { return deps[i] < deps[j] })
	}

	// Kahn's algorithm with a sorted frontier for deterministic order.
	var queue []processor.Name
	for name, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, name)
		}
	}
	sort.Slice(queue, func(i, j int) bool { return queue[i] < queue[j] })

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		g.order = append(g.order, current)

		for _, dep := range g.dependents[current] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
		sort.Slice(queue, func(i, j int) bool { return queue[i] < queue[j] })
	}

	if len(g.order) != len(g.specs) {
		return nil, fmt.Errorf("circular dependency detected among processors")
	}

	if err := g.resolveTerminal(); err != nil {
		return nil, err
	}
	return g, nil
}

// resolveTerminal checks that exactly one node has no dependents, that it is
// flagged Root, and that every other node is one of its transitive
// dependencies.
func (g *Graph) resolveTerminal() error {
	var terminals []processor.Name
	for name := range g.specs {
		if len(g.dependents[name]) == 0 {
			terminals = append(terminals, name)
		}
	}
	if len(terminals) != 1 {
		sort.Slice(terminals, func(i, j int) bool { return terminals[i] < terminals[j] })
		return fmt.Errorf("graph must have exactly one terminal processor, found %d %v", len(terminals), terminals)
	}
	terminal := terminals[0]
	if !g.specs[terminal].Root {
		return fmt.Errorf("terminal processor %q is not flagged as root", terminal)
	}
	for name, s := range g.specs {
		if name != terminal && s.Root {
			return fmt.Errorf("non-terminal processor %q is flagged as root", name)
		}
	}

	reach := map[processor.Name]bool{}
	var visit func(processor.Name)
	visit = func(n processor.Name) {
		if reach[n] {
			return
		}
		reach[n] = true
		for _, dep := range g.specs[n].Dependencies {
			visit(dep)
		}
	}
	visit(terminal)
	if len(reach) != len(g.specs) {
		return fmt.Errorf("terminal processor %q does not depend on every other processor", terminal)
	}

	g.terminal = terminal
	return nil
}

// Spec returns the spec for a processor.
func (g *Graph) Spec(name processor.Name) (processor.Spec, bool) {
	s, ok := g.specs[name]
	return s, ok
}

// Order returns the topological execution order (copy).
func (g *Graph) Order() []processor.Name {
	out := make([]processor.Name, len(g.order))
	copy(out, g.order)
	return out
}

// Dependents returns the direct dependents of a processor (copy).
func (g *Graph) Dependents(name processor.Name) []processor.Name {
	deps := g.dependents[name]
	out := make([]processor.Name, len(deps))
	copy(out, deps)
	return out
}

// Terminal returns the single root (finalize) node.
func (g *Graph) Terminal() processor.Name { return g.terminal }

// Len returns the number of processors in the graph.
func (g *Graph) Len() int { return len(g.specs) }
