// Package types provides shared type definitions for docgraph.
package types

import (
	"strconv"
	"time"
)

// Well-known memory metadata keys.
const (
	MetaNodeType   = "nodeType"
	MetaNodeID     = "nodeId"
	MetaType       = "type"
	MetaDocumentID = "documentId"
	MetaPageNumber = "pageNumber"
	MetaChunkIndex = "chunkIndex"
	MetaImageID    = "imageId"
	MetaTimestamp  = "timestamp"
)

// Well-known metadata values.
const (
	// NodeTypeGraph marks a memory persisted from a knowledge-graph node.
	NodeTypeGraph = "graph"
	// TypeInteraction marks a stored query/answer exchange.
	TypeInteraction = "interaction"
)

// Memory is a stored, optionally embedded content unit scoped to a user.
// Memories are never mutated after creation.
type Memory struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Content   string         `json:"content"`
	Embedding []float64      `json:"embedding,omitempty"`
	Metadata  map[string]any `json:"metadata"`
	Timestamp time.Time      `json:"timestamp"`
}

// UserProfile is a read view over a user's memories, materialised on demand.
type UserProfile struct {
	UserID      string         `json:"user_id"`
	Memories    []Memory       `json:"memories"`
	Preferences map[string]any `json:"preferences"`
	LastUpdated time.Time      `json:"last_updated"`
}

// IsGraphDerived reports whether the memory was persisted from a graph node.
func (m Memory) IsGraphDerived() bool {
	return MetaString(m.Metadata, MetaNodeType) == NodeTypeGraph
}

// IsInteraction reports whether the memory records a query/answer exchange.
func (m Memory) IsInteraction() bool {
	return MetaString(m.Metadata, MetaType) == TypeInteraction
}

// UnitID returns the graph node id for graph-derived memories and the
// memory id otherwise.
func (m Memory) UnitID() string {
	if !m.IsGraphDerived() {
		return m.ID
	}
	if id := MetaString(m.Metadata, MetaNodeID); id != "" {
		return id
	}
	return m.ID
}

// MetaString returns meta[key] when it holds a string.
func MetaString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	s, _ := meta[key].(string)
	return s
}

// MetaInt reads an integer metadata value. Values that went through a JSON
// round trip arrive as float64 and are accepted.
func MetaInt(meta map[string]any, key string) (int, bool) {
	if meta == nil {
		return 0, false
	}
	switch v := meta[key].(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case float32:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	default:
		return 0, false
	}
}

// CloneMeta returns a shallow copy of meta, never nil.
func CloneMeta(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
