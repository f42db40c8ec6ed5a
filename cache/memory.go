package cache

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dgraph-io/ristretto/v2"
)

type Config struct {
	// MaxCost bounds the total estimated bytes held.
	MaxCost int64
	// NumCounters is the number of keys tracked for admission, about
	// ten times the expected number of entries.
	NumCounters int64
}

// Memory is an in-process Cache backed by ristretto.
type Memory struct {
	store   *ristretto.Cache[string, *Response]
	maxCost int64
}

var _ Cache = (*Memory)(nil)

func NewMemory(cfg Config) (*Memory, error) {
	if cfg.NumCounters <= 0 {
		cfg.NumCounters = 1e6
	}

	store, err := ristretto.NewCache(&ristretto.Config[string, *Response]{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: 64,
		Cost:        func(r *Response) int64 { return r.size() },
	})
	if err != nil {
		return nil, fmt.Errorf("create response cache: %w", err)
	}

	return &Memory{store: store, maxCost: cfg.MaxCost}, nil
}

func (m *Memory) Match(r *http.Request) (*Response, bool) {
	resp, ok := m.store.Get(Key(r))
	if !ok {
		return nil, false
	}
	return resp.Clone(), true
}

// Put stores a copy of resp. Admission is decided by ristretto, so a
// stored response is not guaranteed to be matched later.
func (m *Memory) Put(ctx context.Context, r *http.Request, resp *Response) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.store.Set(Key(r), resp.Clone(), 0)
	return nil
}

// MaxObjectSize is the configured MaxCost: ristretto never admits an item
// costing more than the whole cache.
func (m *Memory) MaxObjectSize() int64 {
	return m.maxCost
}

// Wait blocks until buffered writes are applied.
func (m *Memory) Wait() {
	m.store.Wait()
}

func (m *Memory) Close() {
	m.store.Close()
}
