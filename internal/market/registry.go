package market

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"marketpulse/internal/domain/models"
)

// Adapter is the per-market capability set. One implementation exists per
// market; shared logic never branches on a market-name string.
type Adapter interface {
	ID() string
	Calendar() *Calendar

	Quote(ctx context.Context, symbol string) (*models.Quote, error)
	Indicators(ctx context.Context, symbol, timeframe string) (*models.IndicatorSet, error)
	Fundamentals(ctx context.Context, symbol string) (*models.Fundamentals, error)
	Overview(ctx context.Context) (*models.MarketOverview, error)
	Sentiment(ctx context.Context, symbol string) ([]models.SentimentRecord, error)
}

// Registry holds the registered market adapters. Registration happens at
// startup; lookups afterwards are read-only.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds or replaces an adapter.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	r.adapters[a.ID()] = a
	r.mu.Unlock()
}

// Get returns the adapter for the market id, or models.ErrUnknownMarket.
func (r *Registry) Get(id string) (Adapter, error) {
	r.mu.RLock()
	a, ok := r.adapters[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownMarket, id)
	}
	return a, nil
}

// IDs returns all registered market ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.adapters))
	for id := range r.adapters {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// All returns the registered adapters in id order.
func (r *Registry) All() []Adapter {
	out := make([]Adapter, 0)
	for _, id := range r.IDs() {
		r.mu.RLock()
		a := r.adapters[id]
		r.mu.RUnlock()
		out = append(out, a)
	}
	return out
}
