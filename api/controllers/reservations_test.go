package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/namhbcf1/smartpos-sub019/internal/reservation"
	pkgerrors "github.com/namhbcf1/smartpos-sub019/pkg/errors"
)

type fakeReservationService struct {
	reserveFn func(ctx context.Context, tenantID uuid.UUID, input reservation.ReserveInput) (*reservation.ReserveResult, error)
	releaseFn func(ctx context.Context, tenantID uuid.UUID, unitIDs []uuid.UUID, requestedBy uuid.UUID) (int64, error)
	sweepFn   func(ctx context.Context) (int64, error)
}

func (f *fakeReservationService) Reserve(ctx context.Context, tenantID uuid.UUID, input reservation.ReserveInput) (*reservation.ReserveResult, error) {
	return f.reserveFn(ctx, tenantID, input)
}

func (f *fakeReservationService) Release(ctx context.Context, tenantID uuid.UUID, unitIDs []uuid.UUID, requestedBy uuid.UUID) (int64, error) {
	return f.releaseFn(ctx, tenantID, unitIDs, requestedBy)
}

func (f *fakeReservationService) SweepExpired(ctx context.Context) (int64, error) {
	return f.sweepFn(ctx)
}

func TestReserveUnitsPassesInputThrough(t *testing.T) {
	tenantID := uuid.New()
	requestedBy := uuid.New()
	until := time.Now().Add(15 * time.Minute).UTC().Truncate(time.Second)

	svc := &fakeReservationService{
		reserveFn: func(_ context.Context, gotTenant uuid.UUID, input reservation.ReserveInput) (*reservation.ReserveResult, error) {
			if gotTenant != tenantID {
				t.Fatalf("tenant = %s", gotTenant)
			}
			if len(input.Serials) != 2 || input.Serials[0] != "SN-1" {
				t.Fatalf("serials = %v", input.Serials)
			}
			if input.RequestedBy != requestedBy {
				t.Fatalf("requested_by = %s", input.RequestedBy)
			}
			return &reservation.ReserveResult{
				ReservedUntil: until,
				Units:         []reservation.ReservedUnit{{UnitID: uuid.New(), SerialNumber: "SN-1", ProductID: uuid.New()}},
			}, nil
		},
	}

	body := `{"serials":["SN-1","SN-2"],"requested_by":"` + requestedBy.String() + `"}`
	req := tenantRequest(t, tenantID, http.MethodPost, "/api/v1/units/reserve", body)
	rec := httptest.NewRecorder()
	ReserveUnits(svc, nil)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data reservation.ReserveResult `json:"data"`
	}
	decodeBody(t, rec, &envelope)
	if !envelope.Data.ReservedUntil.Equal(until) {
		t.Fatalf("reserved_until = %s", envelope.Data.ReservedUntil)
	}
	if len(envelope.Data.Units) != 1 {
		t.Fatalf("units = %d", len(envelope.Data.Units))
	}
}

func TestReserveUnitsMapsInsufficientStock(t *testing.T) {
	svc := &fakeReservationService{
		reserveFn: func(context.Context, uuid.UUID, reservation.ReserveInput) (*reservation.ReserveResult, error) {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "only 1 unit available").
				WithDetails(map[string]any{"requested": 3, "available": 1})
		},
	}

	body := `{"product_id":"` + uuid.New().String() + `","quantity":3,"requested_by":"` + uuid.New().String() + `"}`
	req := tenantRequest(t, uuid.New(), http.MethodPost, "/api/v1/units/reserve", body)
	rec := httptest.NewRecorder()
	ReserveUnits(svc, nil)(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if code := errorCode(t, rec); code != string(pkgerrors.CodeInsufficientStock) {
		t.Fatalf("code = %q", code)
	}
}

func TestReleaseUnitsReportsCount(t *testing.T) {
	tenantID := uuid.New()
	requestedBy := uuid.New()
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	svc := &fakeReservationService{
		releaseFn: func(_ context.Context, gotTenant uuid.UUID, unitIDs []uuid.UUID, gotBy uuid.UUID) (int64, error) {
			if gotTenant != tenantID || gotBy != requestedBy {
				t.Fatalf("tenant=%s by=%s", gotTenant, gotBy)
			}
			if len(unitIDs) != 2 {
				t.Fatalf("unit ids = %v", unitIDs)
			}
			return 2, nil
		},
	}

	body := `{"unit_ids":["` + ids[0].String() + `","` + ids[1].String() + `"],"requested_by":"` + requestedBy.String() + `"}`
	req := tenantRequest(t, tenantID, http.MethodPost, "/api/v1/units/release", body)
	rec := httptest.NewRecorder()
	ReleaseUnits(svc, nil)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data releaseResponse `json:"data"`
	}
	decodeBody(t, rec, &envelope)
	if envelope.Data.Released != 2 {
		t.Fatalf("released = %d", envelope.Data.Released)
	}
}

func TestReleaseExpiredUnitsReportsCount(t *testing.T) {
	svc := &fakeReservationService{
		sweepFn: func(context.Context) (int64, error) {
			return 4, nil
		},
	}

	req := tenantRequest(t, uuid.New(), http.MethodPost, "/api/v1/units/release-expired", "")
	rec := httptest.NewRecorder()
	ReleaseExpiredUnits(svc, nil)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data releaseResponse `json:"data"`
	}
	decodeBody(t, rec, &envelope)
	if envelope.Data.Released != 4 {
		t.Fatalf("released = %d", envelope.Data.Released)
	}
}

func TestReleaseUnitsRejectsEmptyIDs(t *testing.T) {
	svc := &fakeReservationService{
		releaseFn: func(context.Context, uuid.UUID, []uuid.UUID, uuid.UUID) (int64, error) {
			t.Fatal("service must not be called")
			return 0, nil
		},
	}

	body := `{"unit_ids":[],"requested_by":"` + uuid.New().String() + `"}`
	req := tenantRequest(t, uuid.New(), http.MethodPost, "/api/v1/units/release", body)
	rec := httptest.NewRecorder()
	ReleaseUnits(svc, nil)(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}
