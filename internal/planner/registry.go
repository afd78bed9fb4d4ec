package planner

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

const sweepInterval = 5 * time.Minute

type entry struct {
	store    *Store
	lastSeen time.Time
}

// Registry owns one Store per planner. A planner lives as long as its
// browser session keeps touching it; idle planners are dropped by the sweep.
type Registry struct {
	mu       sync.Mutex
	planners map[uuid.UUID]*entry
	idleTTL  time.Duration
	now      func() time.Time
	stopChan chan struct{}
}

func NewRegistry(idleTTL time.Duration) *Registry {
	return &Registry{
		planners: make(map[uuid.UUID]*entry),
		idleTTL:  idleTTL,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// Planner returns the store for id, creating an empty one on first use.
func (r *Registry) Planner(id uuid.UUID) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.planners[id]
	if !ok {
		e = &entry{store: NewStore()}
		r.planners[id] = e
	}
	e.lastSeen = r.now()
	return e.store
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.planners)
}

// Sweep drops planners idle for longer than the TTL and returns how many went.
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	dropped := 0
	for id, e := range r.planners {
		if now.Sub(e.lastSeen) > r.idleTTL {
			delete(r.planners, id)
			dropped++
		}
	}
	return dropped
}

func (r *Registry) Start() {
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-r.stopChan:
				return
			case <-ticker.C:
				if n := r.Sweep(); n > 0 {
					log.Printf("Planner sweep: dropped %d idle planner(s)", n)
				}
			}
		}
	}()
}

func (r *Registry) Stop() {
	select {
	case <-r.stopChan:
		return
	default:
		close(r.stopChan)
	}
}
