package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/cartsync/api/responses"
	"github.com/angelmondragon/cartsync/pkg/config"
	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
	"github.com/angelmondragon/cartsync/pkg/logger"
)

const readinessTimeout = 3 * time.Second

// Pinger is satisfied by the remote cart client and the redis client.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Cartsync-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every configured dependency; nil pingers are skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, cartService Pinger, redisClient Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Cartsync-Env", cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		ready := true
		for name, pinger := range map[string]Pinger{"cart_service": cartService, "redis": redisClient} {
			if pinger == nil {
				continue
			}
			if err := pinger.Ping(ctx); err != nil {
				ready = false
				checks[name] = "down"
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{"dependency": name, "error": err.Error()}), "readiness check failed")
				}
				continue
			}
			checks[name] = "up"
		}

		if !ready {
			responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRemoteUnavailable, "dependencies unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
