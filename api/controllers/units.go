package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/namhbcf1/smartpos-sub019/api/middleware"
	"github.com/namhbcf1/smartpos-sub019/api/responses"
	"github.com/namhbcf1/smartpos-sub019/api/validators"
	unitsvc "github.com/namhbcf1/smartpos-sub019/internal/units"
	"github.com/namhbcf1/smartpos-sub019/pkg/enums"
	pkgerrors "github.com/namhbcf1/smartpos-sub019/pkg/errors"
	"github.com/namhbcf1/smartpos-sub019/pkg/logger"
	"github.com/namhbcf1/smartpos-sub019/pkg/pagination"
)

// UnitService is the surface the unit controllers depend on.
type UnitService interface {
	Create(ctx context.Context, tenantID uuid.UUID, input unitsvc.CreateUnitInput) (*unitsvc.UnitDTO, error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (*unitsvc.UnitDTO, error)
	GetBySerial(ctx context.Context, tenantID uuid.UUID, serial string) (*unitsvc.UnitDTO, error)
	List(ctx context.Context, tenantID uuid.UUID, input unitsvc.ListUnitsInput) (*unitsvc.UnitListResult, error)
	ListByProduct(ctx context.Context, tenantID, productID uuid.UUID, status *enums.UnitStatus) ([]unitsvc.UnitDTO, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, input unitsvc.UpdateUnitInput) (*unitsvc.UnitDTO, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	BulkImport(ctx context.Context, tenantID uuid.UUID, inputs []unitsvc.CreateUnitInput) (*unitsvc.BulkImportResult, error)
}

// CreateUnit registers one serialized unit.
func CreateUnit(svc UnitService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := middleware.TenantUUID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload unitsvc.CreateUnitInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		unit, err := svc.Create(r.Context(), tenantID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, unit)
	}
}

// GetUnit loads one unit by id.
func GetUnit(svc UnitService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := middleware.TenantUUID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		unitID, err := pathUUID(r, "unitId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		unit, err := svc.Get(r.Context(), tenantID, unitID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, unit)
	}
}

// GetUnitBySerial looks a unit up by its serial number.
func GetUnitBySerial(svc UnitService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := middleware.TenantUUID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		serial := strings.TrimSpace(chi.URLParam(r, "serial"))
		if serial == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "serial is required"))
			return
		}

		unit, err := svc.GetBySerial(r.Context(), tenantID, serial)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, unit)
	}
}

// ListUnits returns a filtered page of units.
func ListUnits(svc UnitService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := middleware.TenantUUID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := parseListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), tenantID, *input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ListProductUnits returns the units of one product.
func ListProductUnits(svc UnitService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := middleware.TenantUUID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := parseStatusQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		units, err := svc.ListByProduct(r.Context(), tenantID, productID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, units)
	}
}

// UpdateUnit applies a partial patch, including lifecycle transitions.
func UpdateUnit(svc UnitService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := middleware.TenantUUID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		unitID, err := pathUUID(r, "unitId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload unitsvc.UpdateUnitInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		unit, err := svc.Update(r.Context(), tenantID, unitID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, unit)
	}
}

// DeleteUnit removes one unit.
func DeleteUnit(svc UnitService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := middleware.TenantUUID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		unitID, err := pathUUID(r, "unitId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), tenantID, unitID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

type bulkImportRequest struct {
	Units []unitsvc.CreateUnitInput `json:"units" validate:"required,min=1,max=1000,dive"`
}

// BulkImportUnits registers many units; failures are reported per item.
func BulkImportUnits(svc UnitService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := middleware.TenantUUID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload bulkImportRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.BulkImport(r.Context(), tenantID, payload.Units)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func parseListQuery(r *http.Request) (*unitsvc.ListUnitsInput, error) {
	page, err := validators.ParseQueryInt(r, "page", 1, 1, 1<<30)
	if err != nil {
		return nil, err
	}
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return nil, err
	}
	productID, err := validators.ParseQueryUUID(r, "product_id")
	if err != nil {
		return nil, err
	}
	warehouseID, err := validators.ParseQueryUUID(r, "warehouse_id")
	if err != nil {
		return nil, err
	}
	status, err := parseStatusQuery(r)
	if err != nil {
		return nil, err
	}

	input := unitsvc.ListUnitsInput{
		Search:      strings.TrimSpace(r.URL.Query().Get("search")),
		Status:      status,
		ProductID:   productID,
		WarehouseID: warehouseID,
		Pagination:  pagination.Params{Page: page, Limit: limit},
	}
	ref := strings.TrimSpace(r.URL.Query().Get("customer_reference"))
	if ref == "" {
		// accepted alias
		ref = strings.TrimSpace(r.URL.Query().Get("customer_id"))
	}
	if ref != "" {
		input.CustomerReference = &ref
	}
	return &input, nil
}

func parseStatusQuery(r *http.Request) (*enums.UnitStatus, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("status"))
	if raw == "" {
		return nil, nil
	}
	status, err := enums.ParseUnitStatus(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
	}
	return &status, nil
}

func pathUUID(r *http.Request, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, key))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "path parameter must be a uuid").WithDetails(map[string]any{"field": key})
	}
	return id, nil
}
