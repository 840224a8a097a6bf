package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (o *recordingObserver) ObserveStoreOperation(backend, operation, status string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, backend+"/"+operation+"/"+status)
}

func TestInstrument(t *testing.T) {
	base := NewInMemoryStore(InMemoryStoreConfig{}, nil)
	assert.Same(t, Store(base), Instrument(base, "inmemory", nil))

	obs := &recordingObserver{}
	store := Instrument(base, "inmemory", obs)
	ctx := context.Background()

	_, err := store.Upsert(ctx, "u", "x", []float64{1}, nil)
	require.NoError(t, err)
	_, err = store.Upsert(ctx, "", "x", nil, nil)
	require.Error(t, err)
	_, err = store.GetProfile(ctx, "u")
	require.NoError(t, err)
	_, err = store.SearchBySimilarity(ctx, "u", []float64{1}, 1)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"inmemory/upsert/ok",
		"inmemory/upsert/error",
		"inmemory/get_profile/ok",
		"inmemory/search/ok",
	}, obs.calls)

	pinger, ok := store.(Pinger)
	require.True(t, ok)
	assert.NoError(t, pinger.Ping(ctx))
}
