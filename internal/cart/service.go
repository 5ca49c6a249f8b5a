package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/cartsync/internal/remote"
	"github.com/angelmondragon/cartsync/pkg/auth"
	"github.com/angelmondragon/cartsync/pkg/enums"
	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
	"github.com/angelmondragon/cartsync/pkg/logger"
	"github.com/angelmondragon/cartsync/pkg/metrics"
)

// CartRemote is the slice of the cart service the engine consumes.
type CartRemote interface {
	GetCart(ctx context.Context, token string) (*remote.Cart, error)
	AddItem(ctx context.Context, token, productID string, quantity int) error
	UpdateItem(ctx context.Context, token, lineID string, quantity int) error
	RemoveItem(ctx context.Context, token, lineID string) error
	Checkout(ctx context.Context, token string) (*remote.Order, error)
}

// Engine keeps one actor's snapshot consistent with the authoritative cart.
// Every mutation settles with exactly one resynchronizing fetch.
type Engine struct {
	remote      CartRemote
	policy      Policy
	flight      Flight
	store       *store
	logg        *logger.Logger
	metrics     *metrics.CartMetrics
	maxQuantity int

	mu    sync.Mutex
	state enums.CheckoutState
}

// EngineOption configures optional engine collaborators.
type EngineOption func(*Engine)

// WithFlight shares a checkout single-flight between engines.
func WithFlight(flight Flight) EngineOption {
	return func(e *Engine) {
		if flight != nil {
			e.flight = flight
		}
	}
}

func WithLogger(logg *logger.Logger) EngineOption {
	return func(e *Engine) {
		if logg != nil {
			e.logg = logg
		}
	}
}

func WithMetrics(m *metrics.CartMetrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithMaxQuantity lowers the per-line cap. Values outside 1..99 are ignored.
func WithMaxQuantity(max int) EngineOption {
	return func(e *Engine) {
		if max >= MinQuantity && max <= MaxQuantity {
			e.maxQuantity = max
		}
	}
}

// NewEngine builds an engine with an empty snapshot.
func NewEngine(client CartRemote, policy Policy, opts ...EngineOption) (*Engine, error) {
	if client == nil {
		return nil, fmt.Errorf("cart remote required")
	}
	e := &Engine{
		remote:      client,
		policy:      policy,
		flight:      NewLocalFlight(),
		store:       newStore(),
		logg:        logger.Nop(),
		maxQuantity: MaxQuantity,
		state:       enums.CheckoutStateIdle,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e, nil
}

// Snapshot returns a copy of the current local state.
func (e *Engine) Snapshot() Snapshot {
	return e.store.snapshot()
}

// CheckoutState reports where the last checkout attempt stands.
func (e *Engine) CheckoutState() enums.CheckoutState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Fetch replaces the snapshot with the authoritative cart.
func (e *Engine) Fetch(ctx context.Context, sess auth.SessionContext) (Snapshot, error) {
	op := enums.CartOperationFetch
	ctx, start := e.begin(ctx, op, sess)
	err := e.authorize(sess)
	if err == nil {
		err = e.fetch(ctx, sess)
	}
	e.finish(ctx, op, start, err)
	return e.store.snapshot(), err
}

// AddItem adds quantity of productID, then resynchronizes.
func (e *Engine) AddItem(ctx context.Context, sess auth.SessionContext, productID string, quantity int) error {
	op := enums.CartOperationAdd
	ctx, start := e.begin(ctx, op, sess)
	err := e.addItem(ctx, sess, strings.TrimSpace(productID), quantity)
	e.finish(ctx, op, start, err)
	return err
}

func (e *Engine) addItem(ctx context.Context, sess auth.SessionContext, productID string, quantity int) error {
	if err := e.authorize(sess); err != nil {
		return err
	}
	if productID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	qty, err := clampQuantity(quantity, e.maxQuantity)
	if err != nil {
		return err
	}
	return e.mutate(ctx, enums.CartOperationAdd, sess, func(ctx context.Context) error {
		return e.remote.AddItem(ctx, sess.Token, productID, qty)
	})
}

// UpdateQuantity sets the quantity of a line, then resynchronizes. Removal is
// never implied by a quantity below 1.
func (e *Engine) UpdateQuantity(ctx context.Context, sess auth.SessionContext, lineID string, quantity int) error {
	op := enums.CartOperationUpdateQuantity
	ctx, start := e.begin(ctx, op, sess)
	err := e.updateQuantity(ctx, sess, strings.TrimSpace(lineID), quantity)
	e.finish(ctx, op, start, err)
	return err
}

func (e *Engine) updateQuantity(ctx context.Context, sess auth.SessionContext, lineID string, quantity int) error {
	if err := e.authorize(sess); err != nil {
		return err
	}
	if lineID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "line id is required")
	}
	qty, err := clampQuantity(quantity, e.maxQuantity)
	if err != nil {
		return err
	}
	e.noteUnknownLine(ctx, lineID)
	return e.mutate(ctx, enums.CartOperationUpdateQuantity, sess, func(ctx context.Context) error {
		return e.remote.UpdateItem(ctx, sess.Token, lineID, qty)
	})
}

// RemoveItem deletes a line, then resynchronizes. A line the service no
// longer knows counts as removed.
func (e *Engine) RemoveItem(ctx context.Context, sess auth.SessionContext, lineID string) error {
	op := enums.CartOperationRemove
	ctx, start := e.begin(ctx, op, sess)
	err := e.removeItem(ctx, sess, strings.TrimSpace(lineID))
	e.finish(ctx, op, start, err)
	return err
}

func (e *Engine) removeItem(ctx context.Context, sess auth.SessionContext, lineID string) error {
	if err := e.authorize(sess); err != nil {
		return err
	}
	if lineID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "line id is required")
	}
	e.noteUnknownLine(ctx, lineID)
	return e.mutate(ctx, enums.CartOperationRemove, sess, func(ctx context.Context) error {
		err := e.remote.RemoveItem(ctx, sess.Token, lineID)
		if pkgerrors.Is(err, pkgerrors.CodeStaleReference) {
			e.logg.Info(ctx, "line already gone from remote cart")
			return nil
		}
		return err
	})
}

func (e *Engine) authorize(sess auth.SessionContext) error {
	if !sess.Authenticated() {
		return pkgerrors.New(pkgerrors.CodeUnauthenticated, "authentication required")
	}
	return e.policy.check(sess.Actor)
}

func (e *Engine) fetch(ctx context.Context, sess auth.SessionContext) error {
	done := e.store.begin()
	defer done()

	cart, err := e.remote.GetCart(ctx, sess.Token)
	if err != nil {
		typed := classified(err)
		e.store.setError(typed)
		e.logg.Warn(e.logg.WithField(ctx, "error", err.Error()), "cart fetch failed")
		return typed
	}
	e.store.replace(itemsFromRemote(cart))
	return nil
}

// mutate runs call, then exactly one fetch regardless of outcome. The call's
// error wins over the fetch error.
func (e *Engine) mutate(ctx context.Context, op enums.CartOperation, sess auth.SessionContext, call func(context.Context) error) error {
	done := e.store.begin()
	defer done()

	callErr := call(ctx)
	e.metrics.IncResync(op.String())
	fetchErr := e.fetch(ctx, sess)

	if callErr != nil {
		typed := classified(callErr)
		e.store.setError(typed)
		return typed
	}
	return fetchErr
}

func (e *Engine) noteUnknownLine(ctx context.Context, lineID string) {
	if _, ok := e.store.snapshot().Find(lineID); !ok {
		e.logg.Debug(e.logg.WithField(ctx, "line_id", lineID), "line not in local snapshot")
	}
}

func (e *Engine) begin(ctx context.Context, op enums.CartOperation, sess auth.SessionContext) (context.Context, time.Time) {
	ctx = e.logg.WithOperation(ctx, op.String())
	if id := sess.ActorID(); id != "" {
		ctx = e.logg.WithUserID(ctx, id)
		ctx = e.logg.WithActorRole(ctx, sess.Role().String())
	}
	return ctx, time.Now()
}

func (e *Engine) finish(ctx context.Context, op enums.CartOperation, start time.Time, err error) {
	outcome := ""
	if err != nil {
		outcome = string(pkgerrors.CodeOf(err))
		e.logg.Warn(e.logg.WithFields(ctx, map[string]any{
			"code":  outcome,
			"error": err.Error(),
		}), "cart operation failed")
	}
	e.metrics.ObserveOperation(op.String(), outcome, time.Since(start))
}

// classified makes sure every error surfaced to callers carries a code.
// Untyped replies from the remote are passed through verbatim.
func classified(err error) *pkgerrors.Error {
	if err == nil {
		return nil
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return pkgerrors.Wrap(pkgerrors.CodeRemoteUnavailable, err, "cart service timed out")
	}
	return pkgerrors.Wrap(pkgerrors.CodeUnclassified, err, err.Error())
}
