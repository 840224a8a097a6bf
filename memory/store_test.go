package memory

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/BaSui01/docgraph/types"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"opposite", []float64{1, 1}, []float64{-1, -1}, -1},
		{"length mismatch", []float64{1, 2}, []float64{1, 2, 3}, 0},
		{"zero vector", []float64{0, 0}, []float64{1, 1}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestCosineSimilarity_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 32).Draw(t, "n")
		a := rapid.SliceOfN(rapid.Float64Range(-100, 100), n, n).Draw(t, "a")
		b := rapid.SliceOfN(rapid.Float64Range(-100, 100), n, n).Draw(t, "b")

		if CosineSimilarity(a, b) != CosineSimilarity(b, a) {
			t.Fatalf("not symmetric for %v, %v", a, b)
		}

		var norm float64
		for _, v := range a {
			norm += v * v
		}
		if norm > 1e-6 {
			if got := CosineSimilarity(a, a); math.Abs(got-1) > 1e-9 {
				t.Fatalf("self similarity %v != 1", got)
			}
		}

		if s := CosineSimilarity(a, b); s < -1-1e-9 || s > 1+1e-9 {
			t.Fatalf("similarity %v out of range", s)
		}
	})
}

func TestRankBySimilarity_StableTies(t *testing.T) {
	mems := []types.Memory{
		{ID: "first", Embedding: []float64{1, 0}},
		{ID: "no-embedding"},
		{ID: "second", Embedding: []float64{2, 0}},
		{ID: "worse", Embedding: []float64{0, 1}},
		{ID: "third", Embedding: []float64{3, 0}},
	}

	got := rankBySimilarity(mems, []float64{1, 0}, 10)
	ids := make([]string, len(got))
	for i, m := range got {
		ids[i] = m.ID
	}
	assert.Equal(t, []string{"first", "second", "third", "worse"}, ids)

	assert.Len(t, rankBySimilarity(mems, []float64{1, 0}, 2), 2)
	assert.Empty(t, rankBySimilarity(mems, []float64{1, 0}, 0))
}

func TestRankBySimilarity_LimitAndEmbeddingProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		count := rapid.IntRange(0, 30).Draw(t, "count")
		mems := make([]types.Memory, count)
		for i := range mems {
			mems[i].ID = rapid.StringMatching(`m-[a-z]{4}`).Draw(t, "id")
			if rapid.Bool().Draw(t, "embedded") {
				mems[i].Embedding = rapid.SliceOfN(rapid.Float64Range(-1, 1), 3, 3).Draw(t, "emb")
			}
		}
		limit := rapid.IntRange(0, 40).Draw(t, "limit")

		got := rankBySimilarity(mems, []float64{0.5, -0.5, 1}, limit)
		if len(got) > limit {
			t.Fatalf("returned %d results for limit %d", len(got), limit)
		}
		for _, m := range got {
			if len(m.Embedding) == 0 {
				t.Fatalf("returned memory %s without embedding", m.ID)
			}
		}
	})
}

func TestBuildProfile(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	empty := buildProfile("ghost", nil, now)
	assert.Equal(t, "ghost", empty.UserID)
	assert.NotNil(t, empty.Memories)
	assert.Empty(t, empty.Memories)
	assert.NotNil(t, empty.Preferences)
	assert.Equal(t, now, empty.LastUpdated)

	last := now.Add(-time.Hour)
	p := buildProfile("u", []types.Memory{{ID: "a", Timestamp: last.Add(-time.Minute)}, {ID: "b", Timestamp: last}}, now)
	assert.Equal(t, last, p.LastUpdated)
}
