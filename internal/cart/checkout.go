package cart

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/angelmondragon/cartsync/internal/remote"
	"github.com/angelmondragon/cartsync/pkg/auth"
	"github.com/angelmondragon/cartsync/pkg/enums"
	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
)

// Checkout converts the server-held cart into an order and clears the local
// snapshot. Failures leave the items in place and do not resynchronize.
func (e *Engine) Checkout(ctx context.Context, sess auth.SessionContext) (*remote.Order, error) {
	op := enums.CartOperationCheckout
	ctx, start := e.begin(ctx, op, sess)
	order, err := e.checkout(ctx, sess)
	e.finish(ctx, op, start, err)
	return order, err
}

func (e *Engine) checkout(ctx context.Context, sess auth.SessionContext) (*remote.Order, error) {
	if err := e.authorize(sess); err != nil {
		return nil, err
	}

	release, ok, err := e.flight.Acquire(ctx, sess.ActorID())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "acquire checkout lock")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeCheckoutInProgress, "checkout already in progress")
	}
	defer release()

	done := e.store.begin()
	defer done()

	if err := e.transition(ctx, enums.CheckoutStateValidating); err != nil {
		return nil, err
	}
	local := e.store.snapshot()
	if local.Empty() {
		return nil, e.fail(ctx, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty"))
	}

	if err := e.transition(ctx, enums.CheckoutStateSyncing); err != nil {
		return nil, err
	}
	repairCtx, cancelRepair := e.repairContext(ctx)
	e.repairDrift(repairCtx, sess, local.Items)
	cancelRepair()

	if err := e.transition(ctx, enums.CheckoutStateSubmitting); err != nil {
		return nil, err
	}
	order, err := e.remote.Checkout(ctx, sess.Token)
	if err != nil {
		return nil, e.fail(ctx, classified(err))
	}

	e.store.clear()
	if err := e.transition(ctx, enums.CheckoutStateCleared); err != nil {
		return nil, err
	}
	if order != nil {
		e.logg.Info(e.logg.WithField(ctx, "order_id", order.ID), "checkout completed")
	}
	return order, nil
}

// repairDrift pushes local lines back when the remote cart came back empty.
// It never writes the snapshot and never aborts the checkout.
func (e *Engine) repairDrift(ctx context.Context, sess auth.SessionContext, local []CartItem) {
	remoteCart, err := e.remote.GetCart(ctx, sess.Token)
	if err != nil {
		e.logg.Warn(e.logg.WithField(ctx, "error", err.Error()), "checkout pre-flight fetch failed, submitting anyway")
		return
	}
	if remoteCart == nil || len(remoteCart.Items) > 0 {
		return
	}

	var (
		errs     error
		restored int
	)
	for i, item := range local {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, fmt.Errorf("%d lines not restored: %w", len(local)-i, ctx.Err()))
			break
		}
		if err := e.remote.AddItem(ctx, sess.Token, item.ProductID, item.Quantity); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("restore product %s: %w", item.ProductID, err))
			continue
		}
		restored++
	}
	ctx = e.logg.WithField(ctx, "restored_lines", restored)
	if errs != nil {
		e.logg.Error(ctx, "checkout drift repair incomplete", errs)
		return
	}
	e.logg.Info(ctx, "remote cart was empty, local lines restored")
}

// repairContext bounds drift repair to half of the checkout lease so the
// submit still runs while the slot is held.
func (e *Engine) repairContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if lease, ok := e.flight.(leased); ok && lease.TTL() > 0 {
		return context.WithTimeout(ctx, lease.TTL()/2)
	}
	return context.WithCancel(ctx)
}

func (e *Engine) fail(ctx context.Context, err *pkgerrors.Error) error {
	e.store.setError(err)
	if terr := e.transition(ctx, enums.CheckoutStateFailed); terr != nil {
		return terr
	}
	return err
}

func (e *Engine) transition(ctx context.Context, next enums.CheckoutState) error {
	e.mu.Lock()
	current := e.state
	if !current.CanTransition(next) {
		e.mu.Unlock()
		err := pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("illegal checkout transition %s -> %s", current, next))
		e.logg.Error(ctx, "checkout state machine", err)
		return err
	}
	e.state = next
	e.mu.Unlock()

	e.metrics.IncCheckoutTransition(next.String())
	e.logg.Debug(e.logg.WithFields(ctx, map[string]any{
		"from": current.String(),
		"to":   next.String(),
	}), "checkout transition")
	return nil
}
