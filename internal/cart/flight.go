package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/cartsync/pkg/logger"
)

const (
	defaultCheckoutLockTTL = 2 * time.Minute
	releaseTimeout         = 5 * time.Second
)

// Flight guarantees at most one checkout per actor. ok is false when another
// attempt already holds the slot.
type Flight interface {
	Acquire(ctx context.Context, actorID string) (release func(), ok bool, err error)
}

// leased is implemented by flights whose hold expires on its own. Checkout
// work before submit must finish well inside the lease.
type leased interface {
	TTL() time.Duration
}

// LocalFlight keeps the held set in process memory.
type LocalFlight struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalFlight builds an empty in-process flight.
func NewLocalFlight() *LocalFlight {
	return &LocalFlight{held: map[string]struct{}{}}
}

func (f *LocalFlight) Acquire(_ context.Context, actorID string) (func(), bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, busy := f.held[actorID]; busy {
		return nil, false, nil
	}
	f.held[actorID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.held, actorID)
			f.mu.Unlock()
		})
	}, true, nil
}

// lockStore defines the redis operations used by RedisFlight.
type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	CheckoutLockKey(actorID string) string
}

// RedisFlight shares the held set between gateway replicas using SETNX with an
// owner token and TTL.
type RedisFlight struct {
	store lockStore
	ttl   time.Duration
	logg  *logger.Logger
}

// NewRedisFlight constructs a Redis-backed flight.
func NewRedisFlight(store lockStore, ttl time.Duration, logg *logger.Logger) (*RedisFlight, error) {
	if store == nil {
		return nil, errors.New("redis client required for checkout flight")
	}
	if ttl <= 0 {
		ttl = defaultCheckoutLockTTL
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &RedisFlight{store: store, ttl: ttl, logg: logg}, nil
}

// TTL is how long a held slot survives without being released.
func (f *RedisFlight) TTL() time.Duration {
	return f.ttl
}

func (f *RedisFlight) Acquire(ctx context.Context, actorID string) (func(), bool, error) {
	if strings.TrimSpace(actorID) == "" {
		return nil, false, errors.New("actor id is required")
	}
	key := f.store.CheckoutLockKey(actorID)
	owner := uuid.NewString()
	ok, err := f.store.SetNX(ctx, key, owner, f.ttl)
	if err != nil {
		return nil, false, fmt.Errorf("setnx: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
			defer cancel()
			if err := f.release(releaseCtx, key, owner); err != nil {
				f.logg.Error(f.logg.WithField(releaseCtx, "lock_key", key), "release checkout lock", err)
			}
		})
	}, true, nil
}

// release deletes the key only if the owner value still matches.
func (f *RedisFlight) release(ctx context.Context, key, owner string) error {
	value, err := f.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("read lock owner: %w", err)
	}
	if value != owner {
		return nil
	}
	if err := f.store.Del(ctx, key); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	return nil
}
