package sessions

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/cartsync/internal/cart"
	"github.com/angelmondragon/cartsync/pkg/auth"
	"github.com/angelmondragon/cartsync/pkg/logger"
)

const defaultSweepInterval = time.Minute

// EngineFactory builds a fresh engine with an empty snapshot.
type EngineFactory func() (*cart.Engine, error)

type entry struct {
	engine   *cart.Engine
	role     string
	lastSeen time.Time
}

// Registry owns one cart engine per actor for the lifetime of its session.
// Nothing is persisted; closing a session drops the snapshot.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	build   EngineFactory
	logg    *logger.Logger
	idleTTL time.Duration
	now     func() time.Time
}

// Params configure the registry.
type Params struct {
	Factory EngineFactory
	Logger  *logger.Logger
	IdleTTL time.Duration
}

// NewRegistry validates the factory and returns an empty registry.
func NewRegistry(params Params) (*Registry, error) {
	if params.Factory == nil {
		return nil, fmt.Errorf("engine factory required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Registry{
		entries: map[string]*entry{},
		build:   params.Factory,
		logg:    logg,
		idleTTL: params.IdleTTL,
		now:     time.Now,
	}, nil
}

// Open returns the actor's engine, creating it on first use. A role change
// for the same actor id starts a new session.
func (r *Registry) Open(ctx context.Context, actor *auth.Actor) (*cart.Engine, error) {
	if actor == nil || strings.TrimSpace(actor.ID) == "" {
		return nil, fmt.Errorf("actor required")
	}
	role := strings.ToLower(actor.Role.String())

	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.entries[actor.ID]; ok && current.role == role {
		current.lastSeen = r.now()
		return current.engine, nil
	}
	engine, err := r.build()
	if err != nil {
		return nil, fmt.Errorf("build cart engine: %w", err)
	}
	r.entries[actor.ID] = &entry{engine: engine, role: role, lastSeen: r.now()}
	r.logg.Info(r.logg.WithUserID(ctx, actor.ID), "cart session opened")
	return engine, nil
}

// Close drops the actor's session and reports whether one existed.
func (r *Registry) Close(ctx context.Context, actorID string) bool {
	r.mu.Lock()
	_, ok := r.entries[actorID]
	delete(r.entries, actorID)
	r.mu.Unlock()
	if ok {
		r.logg.Info(r.logg.WithUserID(ctx, actorID), "cart session closed")
	}
	return ok
}

// Len reports the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep closes sessions idle for longer than the configured TTL and returns
// how many were dropped. A zero TTL disables expiry.
func (r *Registry) Sweep(ctx context.Context) int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	dropped := 0
	for id, current := range r.entries {
		if current.lastSeen.Before(cutoff) && !current.engine.Snapshot().IsLoading {
			delete(r.entries, id)
			dropped++
		}
	}
	r.mu.Unlock()

	if dropped > 0 {
		r.logg.Info(r.logg.WithField(ctx, "sessions_dropped", dropped), "idle cart sessions expired")
	}
	return dropped
}

// Run sweeps idle sessions until the context is canceled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logg.Info(ctx, "session sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}
