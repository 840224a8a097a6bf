package embedding

import (
	"context"
	"time"
)

type instrumented struct {
	Embedder
	obs Observer
}

// Instrument 为每次 Embed 调用上报耗时与结果，obs 为 nil 时原样返回 e
func Instrument(e Embedder, obs Observer) Embedder {
	if obs == nil {
		return e
	}
	return &instrumented{Embedder: e, obs: obs}
}

func (i *instrumented) Embed(ctx context.Context, text string) ([]float64, error) {
	start := time.Now()
	vec, err := i.Embedder.Embed(ctx, text)
	status := "ok"
	if err != nil {
		status = "error"
	}
	i.obs.ObserveEmbedding(i.Name(), status, time.Since(start))
	return vec, err
}
