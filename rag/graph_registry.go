package rag

import (
	"sort"
	"sync"
)

// GraphRegistry 进程级的文档图注册表，按文档 ID 存放最近一次构建的图。
// 图在注册后只读，重建同一文档会整体替换。
type GraphRegistry struct {
	mu     sync.RWMutex
	graphs map[string]Graph
}

// NewGraphRegistry 创建空注册表
func NewGraphRegistry() *GraphRegistry {
	return &GraphRegistry{graphs: make(map[string]Graph)}
}

// Put 注册或替换文档图
func (r *GraphRegistry) Put(documentID string, g Graph) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.graphs[documentID] = g
}

// Get 获取文档图
func (r *GraphRegistry) Get(documentID string) (Graph, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.graphs[documentID]
	return g, ok
}

// Delete 移除文档图
func (r *GraphRegistry) Delete(documentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.graphs, documentID)
}

// DocumentIDs 返回已注册的文档 ID（排序）
func (r *GraphRegistry) DocumentIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.graphs))
	for id := range r.graphs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len 返回已注册的图数量
func (r *GraphRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.graphs)
}
