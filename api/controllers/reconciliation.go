package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/namhbcf1/smartpos-sub019/api/middleware"
	"github.com/namhbcf1/smartpos-sub019/api/responses"
	"github.com/namhbcf1/smartpos-sub019/api/validators"
	"github.com/namhbcf1/smartpos-sub019/internal/reconcile"
	"github.com/namhbcf1/smartpos-sub019/pkg/logger"
)

// ReconcileService is the surface the reconciliation controllers depend on.
// HTTP-triggered runs are always scoped to the caller's tenant; the
// all-tenant sweep belongs to the cron worker.
type ReconcileService interface {
	SyncStockCounters(ctx context.Context, tenantID uuid.UUID) (*reconcile.StockSyncReport, error)
	BackfillSoldStatus(ctx context.Context, tenantID uuid.UUID) (*reconcile.SoldBackfillReport, error)
	BackfillWarrantyDates(ctx context.Context, tenantID uuid.UUID) (*reconcile.WarrantyBackfillReport, error)
	AutoGenerateUnits(ctx context.Context, tenantID uuid.UUID, productID *uuid.UUID, force bool) (*reconcile.AutoGenerateReport, error)
}

// SyncStockCounters recomputes the tenant's product counters on demand.
func SyncStockCounters(svc ReconcileService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := middleware.TenantUUID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.SyncStockCounters(r.Context(), tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// BackfillSoldStatus links the tenant's orders to units on demand.
func BackfillSoldStatus(svc ReconcileService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := middleware.TenantUUID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.BackfillSoldStatus(r.Context(), tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// BackfillWarrantyDates fills missing warranty windows on demand.
func BackfillWarrantyDates(svc ReconcileService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := middleware.TenantUUID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.BackfillWarrantyDates(r.Context(), tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// AutoGenerateUnits materialises unit rows for counter-only products.
func AutoGenerateUnits(svc ReconcileService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := middleware.TenantUUID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := validators.ParseQueryUUID(r, "product_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		force, err := validators.ParseQueryBool(r, "force", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.AutoGenerateUnits(r.Context(), tenantID, productID, force)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}
