package api

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/yourusername/backtest-vault/internal/events"
	"github.com/yourusername/backtest-vault/internal/models"
	"github.com/yourusername/backtest-vault/internal/repository"
)

// memStore is an in-memory record store. Setting failWith makes every call fail.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	backtest map[int64]models.BacktestRecord
	bundles  map[int64]models.StrategyFileBundle
	failWith error
}

func newMemStore() *memStore {
	return &memStore{
		backtest: make(map[int64]models.BacktestRecord),
		bundles:  make(map[int64]models.StrategyFileBundle),
	}
}

func (m *memStore) repos() *repository.Repositories {
	return &repository.Repositories{
		Backtest:       memBacktests{m},
		StrategyBundle: memBundles{m},
	}
}

type memBacktests struct{ m *memStore }

func (r memBacktests) Create(_ context.Context, rec *models.BacktestRecord) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failWith != nil {
		return 0, r.m.failWith
	}
	r.m.nextID++
	cp := *rec
	cp.ID = r.m.nextID
	r.m.backtest[cp.ID] = cp
	return cp.ID, nil
}

func (r memBacktests) List(context.Context) ([]*models.BacktestRecord, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failWith != nil {
		return nil, r.m.failWith
	}
	out := make([]*models.BacktestRecord, 0, len(r.m.backtest))
	for _, rec := range r.m.backtest {
		cp := rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r memBacktests) Update(_ context.Context, id int64, rec *models.BacktestRecord) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failWith != nil {
		return 0, r.m.failWith
	}
	if _, ok := r.m.backtest[id]; !ok {
		return 0, nil
	}
	cp := *rec
	cp.ID = id
	r.m.backtest[id] = cp
	return 1, nil
}

func (r memBacktests) Delete(_ context.Context, id int64) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failWith != nil {
		return 0, r.m.failWith
	}
	if _, ok := r.m.backtest[id]; !ok {
		return 0, nil
	}
	delete(r.m.backtest, id)
	return 1, nil
}

type memBundles struct{ m *memStore }

func (r memBundles) Create(_ context.Context, b *models.StrategyFileBundle) (int64, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failWith != nil {
		return 0, r.m.failWith
	}
	r.m.nextID++
	b.ID = r.m.nextID
	b.CreatedAt = time.Now().UTC()
	r.m.bundles[b.ID] = *b
	return b.ID, nil
}

func (r memBundles) List(context.Context) ([]*models.StrategyFileBundle, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failWith != nil {
		return nil, r.m.failWith
	}
	out := make([]*models.StrategyFileBundle, 0, len(r.m.bundles))
	for _, b := range r.m.bundles {
		cp := b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StrategyName != out[j].StrategyName {
			return out[i].StrategyName < out[j].StrategyName
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r memBundles) Delete(_ context.Context, id int64) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failWith != nil {
		return 0, r.m.failWith
	}
	if _, ok := r.m.bundles[id]; !ok {
		return 0, nil
	}
	delete(r.m.bundles, id)
	return 1, nil
}

// recordingHub captures published events.
type recordingHub struct {
	mu     sync.Mutex
	events []events.Event
}

func (h *recordingHub) Publish(ev events.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
}

func (h *recordingHub) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNotImplemented)
}

func (h *recordingHub) published() []events.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]events.Event(nil), h.events...)
}
