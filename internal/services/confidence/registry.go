package confidence

import (
	"sort"
	"sync"
	"time"

	"Jarvis/internal/domain/models"
)

// Listener is told about every evaluated state and whether the breaker
// changed position. Listeners run synchronously after the registry lock is
// released, in registration order.
type Listener func(st models.ConfidenceState, transition *models.GateTransition)

// Registry keeps one gate per mint.
type Registry struct {
	th Thresholds

	mu    sync.Mutex
	gates map[string]*Gate

	lmu       sync.RWMutex
	listeners []Listener
}

func NewRegistry(th Thresholds) (*Registry, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}
	return &Registry{th: th, gates: make(map[string]*Gate)}, nil
}

func (r *Registry) Thresholds() Thresholds { return r.th }

// Subscribe adds a listener.
func (r *Registry) Subscribe(l Listener) {
	r.lmu.Lock()
	r.listeners = append(r.listeners, l)
	r.lmu.Unlock()
}

// Observe evaluates s against its mint's gate.
func (r *Registry) Observe(s models.PriceSample) models.ConfidenceState {
	r.mu.Lock()
	g, ok := r.gates[s.Mint]
	if !ok {
		g = &Gate{th: r.th}
		r.gates[s.Mint] = g
	}
	before := g.Tripped()
	st := g.Evaluate(s)
	r.mu.Unlock()

	var tr *models.GateTransition
	if st.IsTripped != before {
		tr = &models.GateTransition{Mint: s.Mint, Tripped: st.IsTripped, State: st}
	}

	r.lmu.RLock()
	ls := r.listeners
	r.lmu.RUnlock()
	for _, l := range ls {
		l(st, tr)
	}
	return st
}

// State returns the last verdict for mint. Unknown mints report loading.
func (r *Registry) State(mint string) models.ConfidenceState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.gates[mint]; ok {
		if st, seen := g.State(); seen {
			return st
		}
	}
	return models.ConfidenceState{
		Mint:      mint,
		Tier:      models.TierLoading,
		Reason:    "no samples yet",
		UpdatedAt: time.Now(),
	}
}

// IsSafe reports whether trading mint is currently allowed.
func (r *Registry) IsSafe(mint string) (bool, models.ConfidenceState) {
	st := r.State(mint)
	return st.IsSafeToTrade, st
}

// Snapshot returns every known state sorted by mint.
func (r *Registry) Snapshot() []models.ConfidenceState {
	r.mu.Lock()
	out := make([]models.ConfidenceState, 0, len(r.gates))
	for _, g := range r.gates {
		if st, seen := g.State(); seen {
			out = append(out, st)
		}
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Mint < out[j].Mint })
	return out
}
