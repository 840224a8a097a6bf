package rag

// ExpandGraph 从种子节点出发做有界广度优先遍历。
// 边在遍历时视为无向；节点首次到达的深度即为最终深度，深度小于 maxDepth 的节点才会继续展开。
// 返回 graph.Nodes 中被访问到的节点，按发现顺序排列；图中不存在的种子被忽略。
func ExpandGraph(seedIDs []string, graph Graph, maxDepth int) []GraphNode {
	index := make(map[string]int, len(graph.Nodes))
	for i, n := range graph.Nodes {
		if _, dup := index[n.ID]; !dup {
			index[n.ID] = i
		}
	}

	// 邻接表按边的存储顺序构建，保证遍历顺序确定
	adjacency := make(map[string][]string)
	for _, e := range graph.Edges {
		adjacency[e.Source] = append(adjacency[e.Source], e.Target)
		adjacency[e.Target] = append(adjacency[e.Target], e.Source)
	}

	type queued struct {
		id    string
		depth int
	}

	visited := make(map[string]struct{})
	var order []string
	var queue []queued

	for _, id := range seedIDs {
		if _, ok := visited[id]; ok {
			continue
		}
		visited[id] = struct{}{}
		order = append(order, id)
		queue = append(queue, queued{id: id, depth: 0})
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		for _, next := range adjacency[cur.id] {
			if _, ok := visited[next]; ok {
				continue
			}
			visited[next] = struct{}{}
			order = append(order, next)
			queue = append(queue, queued{id: next, depth: cur.depth + 1})
		}
	}

	result := make([]GraphNode, 0, len(order))
	for _, id := range order {
		if i, ok := index[id]; ok {
			result = append(result, graph.Nodes[i])
		}
	}
	return result
}
