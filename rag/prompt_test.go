package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/docgraph/types"
)

func TestBuildPrompt_Layout(t *testing.T) {
	units := []ContextUnit{
		{GraphNode: GraphNode{ID: "chunk-d-2-0", Type: NodeTextChunk, Content: "Revenue grew 12%.", Metadata: NodeMetadata{PageNumber: intPtr(2)}}},
		{GraphNode: GraphNode{ID: "mem-1", Type: NodeImage, Content: "chart"}},
	}
	profile := []types.Memory{{Content: "prefers concise answers"}}

	got := BuildPrompt("revenue?", profile, units, BuildProvenance(units), DefaultPromptLimits())

	want := "User Query: revenue?\n\n" +
		"User Profile Context:\n" +
		"1. prefers concise answers\n" +
		"\n" +
		"Relevant Document Context:\n" +
		"[TextChunk] Revenue grew 12%.\n" +
		"  (Page 2)\n" +
		"\n" +
		"[Image] chart\n" +
		"\n" +
		"Sources:\n" +
		"1. TextChunk (Page 2) - chunk-d-2-0\n" +
		"2. Image - mem-1\n" +
		"\nPlease answer the user's query based on the context provided above. If the information is not available in the context, say so clearly."
	assert.Equal(t, want, got)
}

func TestBuildPrompt_TruncatesLongUnits(t *testing.T) {
	long := strings.Repeat("x", 501)
	exact := strings.Repeat("y", 500)
	units := []ContextUnit{
		{GraphNode: GraphNode{Type: NodeTextChunk, Content: long}},
		{GraphNode: GraphNode{Type: NodeTextChunk, Content: exact}},
	}

	got := BuildPrompt("q", nil, units, nil, DefaultPromptLimits())

	assert.Contains(t, got, "[TextChunk] "+strings.Repeat("x", 500)+"...\n")
	assert.Contains(t, got, "[TextChunk] "+exact+"\n")
	assert.NotContains(t, got, exact+"...")
	assert.NotContains(t, got, "User Profile Context")
	assert.NotContains(t, got, "Sources:")
}

func TestBuildGenerationRequest_Caps(t *testing.T) {
	var units []ContextUnit
	for i := 0; i < 12; i++ {
		units = append(units, ContextUnit{GraphNode: GraphNode{ID: string(rune('a' + i)), Type: NodeTextChunk, Content: "c"}})
	}
	var profile []types.Memory
	for i := 0; i < 7; i++ {
		profile = append(profile, types.Memory{Content: "m"})
	}

	req := BuildGenerationRequest("q", profile, units, BuildProvenance(units), DefaultPromptLimits())

	assert.Len(t, req.Passages, 10)
	assert.Len(t, req.ProfileMemories, 5)
	assert.Equal(t, "q", req.Query)
	assert.NotEmpty(t, req.System)
	assert.Contains(t, req.Prompt, "10. TextChunk - j")
	assert.NotContains(t, req.Prompt, "11. ")
}

func TestProfileContext_SkipsGraphMemories(t *testing.T) {
	profile := types.UserProfile{Memories: []types.Memory{
		{ID: "g", Metadata: map[string]any{types.MetaNodeType: types.NodeTypeGraph}},
		{ID: "a"}, {ID: "b"}, {ID: "c"},
	}}

	got := ProfileContext(profile, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}
