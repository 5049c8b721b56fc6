package cfg

// ReversePostorder returns the blocks reachable from the entry in reverse
// postorder of a depth-first walk that visits successors in edge order.
// Blocks unreachable from the entry are omitted.
func (c *Cfg) ReversePostorder() []NodeID {
	succs := c.successorLists()
	visited := make([]bool, len(c.blocks))
	var postorder []NodeID

	var dfs func(n NodeID)
	dfs = func(n NodeID) {
		if visited[n] {
			return
		}
		visited[n] = true
		for _, s := range succs[n] {
			dfs(s)
		}
		postorder = append(postorder, n)
	}
	dfs(c.entry)

	order := make([]NodeID, len(postorder))
	for i, n := range postorder {
		order[len(postorder)-1-i] = n
	}
	return order
}

// Reachable reports, for every block, whether it can be reached from the entry
func (c *Cfg) Reachable() []bool {
	reached := make([]bool, len(c.blocks))
	for _, n := range c.ReversePostorder() {
		reached[n] = true
	}
	return reached
}

// successorLists builds adjacency lists in one pass over the edges
func (c *Cfg) successorLists() [][]NodeID {
	succs := make([][]NodeID, len(c.blocks))
	for _, e := range c.edges {
		succs[e.Src] = append(succs[e.Src], e.Dst)
	}
	return succs
}
