package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/cartsync/api/middleware"
	"github.com/angelmondragon/cartsync/api/responses"
	"github.com/angelmondragon/cartsync/api/validators"
	"github.com/angelmondragon/cartsync/internal/cart"
	"github.com/angelmondragon/cartsync/pkg/auth"
	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
	"github.com/angelmondragon/cartsync/pkg/logger"
)

// SessionStore resolves the engine that owns an actor's snapshot.
type SessionStore interface {
	Open(ctx context.Context, actor *auth.Actor) (*cart.Engine, error)
	Close(ctx context.Context, actorID string) bool
}

// CartView returns the current snapshot, loading it on first access.
func CartView(sessions SessionStore, logg *logger.Logger) http.HandlerFunc {
	return withEngine(sessions, logg, func(w http.ResponseWriter, r *http.Request, sess auth.SessionContext, engine *cart.Engine) error {
		snap := engine.Snapshot()
		if !snap.Loaded {
			var err error
			if snap, err = engine.Fetch(r.Context(), sess); err != nil {
				return err
			}
		}
		responses.WriteSuccess(w, newSnapshotResponse(snap))
		return nil
	})
}

// CartRefresh forces an authoritative fetch.
func CartRefresh(sessions SessionStore, logg *logger.Logger) http.HandlerFunc {
	return withEngine(sessions, logg, func(w http.ResponseWriter, r *http.Request, sess auth.SessionContext, engine *cart.Engine) error {
		snap, err := engine.Fetch(r.Context(), sess)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, newSnapshotResponse(snap))
		return nil
	})
}

func CartAddItem(sessions SessionStore, logg *logger.Logger) http.HandlerFunc {
	return withEngine(sessions, logg, func(w http.ResponseWriter, r *http.Request, sess auth.SessionContext, engine *cart.Engine) error {
		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return err
		}
		if err := engine.AddItem(r.Context(), sess, payload.ProductID, *payload.Quantity); err != nil {
			return err
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newSnapshotResponse(engine.Snapshot()))
		return nil
	})
}

func CartUpdateQuantity(sessions SessionStore, logg *logger.Logger) http.HandlerFunc {
	return withEngine(sessions, logg, func(w http.ResponseWriter, r *http.Request, sess auth.SessionContext, engine *cart.Engine) error {
		lineID, err := validators.PathParam(r, "lineId")
		if err != nil {
			return err
		}
		var payload updateQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return err
		}
		if err := engine.UpdateQuantity(r.Context(), sess, lineID, *payload.Quantity); err != nil {
			return err
		}
		responses.WriteSuccess(w, newSnapshotResponse(engine.Snapshot()))
		return nil
	})
}

func CartRemoveItem(sessions SessionStore, logg *logger.Logger) http.HandlerFunc {
	return withEngine(sessions, logg, func(w http.ResponseWriter, r *http.Request, sess auth.SessionContext, engine *cart.Engine) error {
		lineID, err := validators.PathParam(r, "lineId")
		if err != nil {
			return err
		}
		if err := engine.RemoveItem(r.Context(), sess, lineID); err != nil {
			return err
		}
		responses.WriteSuccess(w, newSnapshotResponse(engine.Snapshot()))
		return nil
	})
}

func CartCheckout(sessions SessionStore, logg *logger.Logger) http.HandlerFunc {
	return withEngine(sessions, logg, func(w http.ResponseWriter, r *http.Request, sess auth.SessionContext, engine *cart.Engine) error {
		order, err := engine.Checkout(r.Context(), sess)
		if err != nil {
			return err
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			Order: newOrderResponse(order),
			Cart:  newSnapshotResponse(engine.Snapshot()),
		})
		return nil
	})
}

type engineHandler func(w http.ResponseWriter, r *http.Request, sess auth.SessionContext, engine *cart.Engine) error

// withEngine resolves the caller's session and engine. A remote reply saying
// the session is no longer valid drops the engine along with its snapshot.
func withEngine(sessions SessionStore, logg *logger.Logger, handle engineHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessions == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart sessions unavailable"))
			return
		}
		sess := middleware.SessionFromContext(r.Context())
		if !sess.Authenticated() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthenticated, "authentication required"))
			return
		}
		engine, err := sessions.Open(r.Context(), sess.Actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "open cart session"))
			return
		}
		if err := handle(w, r, sess, engine); err != nil {
			if pkgerrors.Is(err, pkgerrors.CodeUnauthenticated) {
				sessions.Close(r.Context(), sess.ActorID())
			}
			responses.WriteError(r.Context(), logg, w, err)
		}
	}
}
