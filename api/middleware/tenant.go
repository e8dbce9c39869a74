package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/namhbcf1/smartpos-sub019/api/responses"
	pkgerrors "github.com/namhbcf1/smartpos-sub019/pkg/errors"
	"github.com/namhbcf1/smartpos-sub019/pkg/logger"
)

const tenantIDHeader = "X-Tenant-Id"

// TenantContext requires a valid X-Tenant-Id header and threads the tenant
// through the request context and log entries. Every inventory route is
// tenant-scoped; a request without a tenant has nothing to operate on.
func TenantContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(tenantIDHeader)
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "X-Tenant-Id header required"))
				return
			}
			tenantID, err := uuid.Parse(raw)
			if err != nil || tenantID == uuid.Nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "X-Tenant-Id must be a uuid"))
				return
			}

			ctx := WithTenantID(r.Context(), tenantID.String())
			if logg != nil {
				ctx = logg.WithTenantID(ctx, tenantID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TenantUUID parses the tenant id stored in the context.
func TenantUUID(ctx context.Context) (uuid.UUID, error) {
	tenantID, err := uuid.Parse(TenantIDFromContext(ctx))
	if err != nil || tenantID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant context missing")
	}
	return tenantID, nil
}
