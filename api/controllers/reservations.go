package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/namhbcf1/smartpos-sub019/api/middleware"
	"github.com/namhbcf1/smartpos-sub019/api/responses"
	"github.com/namhbcf1/smartpos-sub019/api/validators"
	"github.com/namhbcf1/smartpos-sub019/internal/reservation"
	"github.com/namhbcf1/smartpos-sub019/pkg/logger"
)

// ReservationService is the surface the reservation controllers depend on.
type ReservationService interface {
	Reserve(ctx context.Context, tenantID uuid.UUID, input reservation.ReserveInput) (*reservation.ReserveResult, error)
	Release(ctx context.Context, tenantID uuid.UUID, unitIDs []uuid.UUID, requestedBy uuid.UUID) (int64, error)
	SweepExpired(ctx context.Context) (int64, error)
}

// ReserveUnits places time-bounded holds on units.
func ReserveUnits(svc ReservationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := middleware.TenantUUID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload reservation.ReserveInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Reserve(r.Context(), tenantID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type releaseRequest struct {
	UnitIDs     []uuid.UUID `json:"unit_ids" validate:"required,min=1"`
	RequestedBy uuid.UUID   `json:"requested_by" validate:"required"`
}

type releaseResponse struct {
	Released int64 `json:"released"`
}

// ReleaseUnits clears holds owned by the requester.
func ReleaseUnits(svc ReservationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := middleware.TenantUUID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload releaseRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		released, err := svc.Release(r.Context(), tenantID, payload.UnitIDs, payload.RequestedBy)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, releaseResponse{Released: released})
	}
}

// ReleaseExpiredUnits clears every lapsed hold. Operator trigger for the same
// sweep the cron worker runs on its own cadence; the sweep spans tenants.
func ReleaseExpiredUnits(svc ReservationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := middleware.TenantUUID(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		released, err := svc.SweepExpired(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, releaseResponse{Released: released})
	}
}
