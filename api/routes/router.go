package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/namhbcf1/smartpos-sub019/api/controllers"
	"github.com/namhbcf1/smartpos-sub019/api/middleware"
	"github.com/namhbcf1/smartpos-sub019/pkg/config"
	"github.com/namhbcf1/smartpos-sub019/pkg/db"
	"github.com/namhbcf1/smartpos-sub019/pkg/logger"
	pkgredis "github.com/namhbcf1/smartpos-sub019/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP pkgredis.Pinger,
	idempotencyStore pkgredis.IdempotencyStore,
	unitService controllers.UnitService,
	reservationService controllers.ReservationService,
	reconcileService controllers.ReconcileService,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.TenantContext(logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/units", func(r chi.Router) {
			r.Post("/", controllers.CreateUnit(unitService, logg))
			r.Get("/", controllers.ListUnits(unitService, logg))
			r.Post("/bulk-import", controllers.BulkImportUnits(unitService, logg))
			r.Post("/reserve", controllers.ReserveUnits(reservationService, logg))
			r.Post("/release", controllers.ReleaseUnits(reservationService, logg))
			r.Post("/release-expired", controllers.ReleaseExpiredUnits(reservationService, logg))
			r.Post("/sync-stock", controllers.SyncStockCounters(reconcileService, logg))
			r.Post("/sync-sold-status", controllers.BackfillSoldStatus(reconcileService, logg))
			r.Post("/sync-warranty-dates", controllers.BackfillWarrantyDates(reconcileService, logg))
			r.Post("/auto-generate", controllers.AutoGenerateUnits(reconcileService, logg))
			r.Get("/by-product/{productId}", controllers.ListProductUnits(unitService, logg))
			r.Get("/serial/{serial}", controllers.GetUnitBySerial(unitService, logg))
			r.Route("/{unitId}", func(r chi.Router) {
				r.Get("/", controllers.GetUnit(unitService, logg))
				r.Put("/", controllers.UpdateUnit(unitService, logg))
				r.Delete("/", controllers.DeleteUnit(unitService, logg))
			})
		})
	})

	return r
}
