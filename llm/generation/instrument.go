package generation

import (
	"context"
	"time"
)

type instrumented struct {
	Generator
	obs Observer
}

// Instrument 为每次 Generate 调用上报耗时与结果，obs 为 nil 时原样返回 g
func Instrument(g Generator, obs Observer) Generator {
	if obs == nil {
		return g
	}
	return &instrumented{Generator: g, obs: obs}
}

func (i *instrumented) Generate(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	answer, err := i.Generator.Generate(ctx, req)
	status := "ok"
	if err != nil {
		status = "error"
	}
	i.obs.ObserveGeneration(i.Name(), status, time.Since(start))
	return answer, err
}
