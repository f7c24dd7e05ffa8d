package merge

// quotientGraph is the dependency graph induced on constituents: an
// edge i -> j exists iff some member of constituent i depends, directly
// or through an exported dependency, on a member of constituent j, with
// i != j.
type quotientGraph struct {
	part  *partition
	edges [][]int
}

// buildQuotientGraph derives the constituent-level edges from the
// member-level dependencies across all platforms.
func buildQuotientGraph(part *partition, platforms []Platform) (*quotientGraph, error) {
	g := &quotientGraph{
		part:  part,
		edges: make([][]int, len(part.constituents)),
	}
	for i, c := range part.constituents {
		seen := make(map[int]bool)
		addEdges := func(member Linkable, deps []string) error {
			for _, dep := range deps {
				j, ok := part.membership[dep]
				if !ok {
					return internalErrorf("library %q depends on %q, which is not in the merge universe",
						member.Identity(), dep)
				}
				if j == i || seen[j] {
					continue
				}
				seen[j] = true
				g.edges[i] = append(g.edges[i], j)
			}
			return nil
		}
		for _, member := range c.members {
			for _, p := range platforms {
				if err := addEdges(member, member.Deps(p)); err != nil {
					return nil, err
				}
				if err := addEdges(member, member.ExportedDeps(p)); err != nil {
					return nil, err
				}
			}
		}
	}
	return g, nil
}

const (
	white = iota
	grey
	black
)

// topologicalOrder returns constituent indices with dependencies
// strictly before dependents. A cycle aborts the whole enhancement with
// a CycleError carrying the reconstructed cycle path.
func (g *quotientGraph) topologicalOrder() ([]int, error) {
	color := make([]int, len(g.edges))
	order := make([]int, 0, len(g.edges))
	var cyclePath []string

	var visit func(n int, stack []int) bool
	visit = func(n int, stack []int) bool {
		color[n] = grey
		stack = append(stack, n)
		for _, m := range g.edges[n] {
			switch color[m] {
			case grey:
				// Back edge. The cycle is the part of the stack from
				// the first visit of m onward.
				start := 0
				for i, s := range stack {
					if s == m {
						start = i
						break
					}
				}
				for _, s := range stack[start:] {
					cyclePath = append(cyclePath, g.part.constituents[s].displayName())
				}
				cyclePath = append(cyclePath, g.part.constituents[m].displayName())
				return true
			case white:
				if visit(m, stack) {
					return true
				}
			}
		}
		color[n] = black
		order = append(order, n)
		return false
	}

	for n := range g.edges {
		if color[n] == white && visit(n, nil) {
			return nil, &CycleError{Path: cyclePath}
		}
	}
	return order, nil
}
