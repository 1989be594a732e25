package service

import (
	"context"
	"errors"
	"sync"
)

// FetchGuard keeps at most one outstanding fetch per key. Starting a fetch
// for a key cancels the one before it, and the older fetch's result is
// reported as ErrSuperseded instead of being delivered.
type FetchGuard struct {
	mu       sync.Mutex
	seq      uint64
	inflight map[string]fetchToken
}

type fetchToken struct {
	id     uint64
	cancel context.CancelFunc
}

func NewFetchGuard() *FetchGuard {
	return &FetchGuard{inflight: make(map[string]fetchToken)}
}

func (g *FetchGuard) begin(parent context.Context, key string) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(parent)

	g.mu.Lock()
	defer g.mu.Unlock()
	if prev, ok := g.inflight[key]; ok {
		prev.cancel()
	}
	g.seq++
	g.inflight[key] = fetchToken{id: g.seq, cancel: cancel}
	return ctx, g.seq
}

// end releases the key and reports whether id was still the latest fetch.
func (g *FetchGuard) end(key string, id uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	cur, ok := g.inflight[key]
	if !ok || cur.id != id {
		return false
	}
	cur.cancel()
	delete(g.inflight, key)
	return true
}

// Outstanding reports how many fetches are still in flight.
func (g *FetchGuard) Outstanding() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inflight)
}

// guardedFetch runs fetch under g for key. A result that lost the race to a
// newer fetch is discarded and ErrSuperseded returned.
func guardedFetch[T any](ctx context.Context, g *FetchGuard, key string, fetch func(context.Context) (T, error)) (T, error) {
	fetchCtx, id := g.begin(ctx, key)
	result, err := fetch(fetchCtx)
	if !g.end(key, id) {
		var zero T
		return zero, ErrSuperseded
	}
	if err != nil && errors.Is(err, context.Canceled) && ctx.Err() == nil {
		var zero T
		return zero, ErrSuperseded
	}
	return result, err
}
