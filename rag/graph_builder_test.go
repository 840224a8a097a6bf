package rag

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func edgesOfType(g Graph, t EdgeType) []GraphEdge {
	var out []GraphEdge
	for _, e := range g.Edges {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func TestBuildGraph_StructuralNodes(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		pageCount := rapid.IntRange(0, 8).Draw(t, "pages")
		chunkCount := rapid.IntRange(0, 20).Draw(t, "chunks")

		pages := make([]PageInput, pageCount)
		for i := range pages {
			pages[i] = PageInput{PageNumber: i + 1, Text: fmt.Sprintf("page %d", i+1)}
		}
		chunks := make([]string, chunkCount)
		for i := range chunks {
			chunks[i] = fmt.Sprintf("chunk number %d", i)
		}

		g := BuildGraph("doc1", pages, chunks, nil)

		if got := g.CountByType(NodeDocument) + g.CountByType(NodePage); got != 1+pageCount {
			t.Fatalf("structural nodes = %d, want %d", got, 1+pageCount)
		}
		fromDoc := 0
		for _, e := range g.Edges {
			if e.Type == EdgeContains && e.Source == "doc-doc1" {
				fromDoc++
			}
		}
		if fromDoc != pageCount {
			t.Fatalf("document contains edges = %d, want %d", fromDoc, pageCount)
		}
		if pageCount > 0 && g.CountByType(NodeTextChunk) != chunkCount {
			t.Fatalf("chunk nodes = %d, want %d", g.CountByType(NodeTextChunk), chunkCount)
		}
	})
}

func TestBuildGraph_PositionalChunkAssignment(t *testing.T) {
	pages := []PageInput{{PageNumber: 1}, {PageNumber: 2}}
	chunks := []string{"c0", "c1", "c2", "c3", "c4"}

	g := BuildGraph("d", pages, chunks, nil)

	for _, tc := range []struct {
		id      string
		content string
		page    int
		index   int
	}{
		{"chunk-d-1-0", "c0", 1, 0},
		{"chunk-d-1-1", "c2", 1, 1},
		{"chunk-d-1-2", "c4", 1, 2},
		{"chunk-d-2-0", "c1", 2, 0},
		{"chunk-d-2-1", "c3", 2, 1},
	} {
		n, ok := g.Node(tc.id)
		require.True(t, ok, tc.id)
		assert.Equal(t, tc.content, n.Content)
		p, _ := n.Metadata.Page()
		assert.Equal(t, tc.page, p)
		require.NotNil(t, n.Metadata.ChunkIndex)
		assert.Equal(t, tc.index, *n.Metadata.ChunkIndex)
		assert.Equal(t, "d", n.Metadata.DocumentID)
	}

	doc, ok := g.Node("doc-d")
	require.True(t, ok)
	assert.Equal(t, "Document d", doc.Content)
	page, ok := g.Node("page-d-2")
	require.True(t, ok)
	assert.Equal(t, "Page 2", page.Content)

	assert.Contains(t, g.Edges, GraphEdge{ID: "edge-doc-d-page-1", Source: "doc-d", Target: "page-d-1", Type: EdgeContains})
	assert.Contains(t, g.Edges, GraphEdge{ID: "edge-page-d-2-chunk-1", Source: "page-d-2", Target: "chunk-d-2-1", Type: EdgeContains})
}

func TestBuildGraph_ReferenceEdgeBoundary(t *testing.T) {
	pages := []PageInput{{PageNumber: 1}, {PageNumber: 2}}

	t.Run("two shared tokens yield no edge", func(t *testing.T) {
		g := BuildGraph("d", pages, []string{"the quick brown fox jumps", "quick brown foxes jumping fast"}, nil)
		assert.Empty(t, edgesOfType(g, EdgeReferences))
	})

	t.Run("three shared tokens yield edges both ways", func(t *testing.T) {
		g := BuildGraph("d", pages, []string{"the quick brown fox jumps", "Quick brown foxes JUMPS fast"}, nil)
		refs := edgesOfType(g, EdgeReferences)
		require.Len(t, refs, 2)
		assert.Equal(t, GraphEdge{
			ID:     "edge-ref-chunk-d-1-0-chunk-d-2-0",
			Source: "chunk-d-1-0",
			Target: "chunk-d-2-0",
			Type:   EdgeReferences,
			Weight: 3,
		}, refs[0])
		assert.Equal(t, "chunk-d-2-0", refs[1].Source)
		assert.Equal(t, "chunk-d-1-0", refs[1].Target)
	})

	t.Run("repeated tokens count once", func(t *testing.T) {
		g := BuildGraph("d", pages, []string{"alpha alpha alpha bravo", "alpha alpha bravo bravo"}, nil)
		assert.Empty(t, edgesOfType(g, EdgeReferences))
	})
}

func TestBuildGraph_ImagesAndVisualOf(t *testing.T) {
	pages := []PageInput{{
		PageNumber: 1,
		Images: []ImageRef{
			{ImageID: "img1", OCRText: "Quarterly Revenue Chart 2024 by region"},
			{ImageID: "img2"},
		},
	}}
	chunks := []string{
		"The quarterly revenue chart 2024 shows growth",
		"Unrelated text about staffing",
	}

	g := BuildGraph("d", pages, chunks, nil)

	img, ok := g.Node("image-img1")
	require.True(t, ok)
	assert.Equal(t, NodeImage, img.Type)
	assert.Equal(t, "img1", img.Metadata.ImageID)

	empty, ok := g.Node("image-img2")
	require.True(t, ok)
	assert.Equal(t, "", empty.Content)

	visual := edgesOfType(g, EdgeVisualOf)
	require.Len(t, visual, 1)
	assert.Equal(t, GraphEdge{
		ID:     "edge-image-img1-chunk-0",
		Source: "image-img1",
		Target: "chunk-d-1-0",
		Type:   EdgeVisualOf,
	}, visual[0])

	assert.Contains(t, g.Edges, GraphEdge{ID: "edge-page-d-1-image-img2", Source: "page-d-1", Target: "image-img2", Type: EdgeContains})
}

func TestBuildGraph_FlatImagesAttachToMatchingPage(t *testing.T) {
	pages := []PageInput{
		{PageNumber: 1, Images: []ImageRef{{ImageID: "a", PageNumber: 1}}},
		{PageNumber: 2},
	}
	flat := []ImageRef{
		{ImageID: "a", PageNumber: 1},
		{ImageID: "b", PageNumber: 2, OCRText: "caption"},
		{ImageID: "c", PageNumber: 9},
		{PageNumber: 2, OCRText: "no id"},
	}

	g := BuildGraph("d", pages, nil, flat)

	assert.Equal(t, 2, g.CountByType(NodeImage))
	b, ok := g.Node("image-b")
	require.True(t, ok)
	p, _ := b.Metadata.Page()
	assert.Equal(t, 2, p)
	_, ok = g.Node("image-c")
	assert.False(t, ok)
}

func TestBuildGraph_MalformedImageDegrades(t *testing.T) {
	pages := []PageInput{{PageNumber: 1, Images: []ImageRef{{}, {}}}}

	g := BuildGraph("d", pages, nil, nil)

	assert.Equal(t, 2, g.CountByType(NodeImage))
	_, ok := g.Node("image-d-p1-0")
	assert.True(t, ok)
	_, ok = g.Node("image-d-p1-1")
	assert.True(t, ok)
}

func TestBuildGraph_NoPages(t *testing.T) {
	g := BuildGraph("d", nil, []string{"orphan chunk text"}, nil)
	require.Len(t, g.Nodes, 1)
	assert.Empty(t, g.Edges)
}

func TestBuildGraph_DeterministicAcrossWorkerCounts(t *testing.T) {
	pages := []PageInput{{PageNumber: 1}, {PageNumber: 2}, {PageNumber: 3}}
	var chunks []string
	for i := 0; i < 30; i++ {
		chunks = append(chunks, fmt.Sprintf("shared alpha bravo charlie token%d delta%d", i%4, i%3))
	}

	serial := NewGraphBuilder(GraphBuilderConfig{ReferenceWorkers: 1}, nil).Build("d", pages, chunks, nil)
	parallel := NewGraphBuilder(GraphBuilderConfig{ReferenceWorkers: 8}, nil).Build("d", pages, chunks, nil)
	again := NewGraphBuilder(GraphBuilderConfig{ReferenceWorkers: 8}, nil).Build("d", pages, chunks, nil)

	assert.Equal(t, serial, parallel)
	assert.Equal(t, parallel, again)
	assert.NotEmpty(t, edgesOfType(serial, EdgeReferences))
}

func TestMetadataRoundTrip(t *testing.T) {
	m := NodeMetadata{DocumentID: "d", PageNumber: intPtr(3), ChunkIndex: intPtr(0), Extra: map[string]any{"nodeType": "graph"}}

	flat := m.ToMap()
	assert.Equal(t, 3, flat["pageNumber"])
	assert.Equal(t, "graph", flat["nodeType"])

	// 经过 JSON 的数值以 float64 出现
	flat["pageNumber"] = float64(3)
	back := MetadataFromMap(flat)
	assert.Equal(t, m, back)
}
