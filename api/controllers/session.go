package controllers

import (
	"net/http"

	"github.com/angelmondragon/cartsync/api/middleware"
	"github.com/angelmondragon/cartsync/api/responses"
	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
	"github.com/angelmondragon/cartsync/pkg/logger"
)

// SessionEnd drops the caller's cart snapshot. Ending an absent session is not an error.
func SessionEnd(sessions SessionStore, logg *logger.Logger) http.HandlerFunc {
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
		closed := sessions.Close(r.Context(), sess.ActorID())
		responses.WriteSuccess(w, map[string]bool{"closed": closed})
	}
}
