package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/cartsync/api/controllers"
	"github.com/angelmondragon/cartsync/api/middleware"
	"github.com/angelmondragon/cartsync/pkg/config"
	"github.com/angelmondragon/cartsync/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	sessions controllers.SessionStore,
	cartService controllers.Pinger,
	redisClient controllers.Pinger,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, cartService, redisClient))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartView(sessions, logg))
			r.Post("/refresh", controllers.CartRefresh(sessions, logg))
			r.Post("/items", controllers.CartAddItem(sessions, logg))
			r.Patch("/items/{lineId}", controllers.CartUpdateQuantity(sessions, logg))
			r.Delete("/items/{lineId}", controllers.CartRemoveItem(sessions, logg))
			r.Post("/checkout", controllers.CartCheckout(sessions, logg))
		})
		r.Delete("/session", controllers.SessionEnd(sessions, logg))
	})

	return r
}
