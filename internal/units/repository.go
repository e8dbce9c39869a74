package units

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/namhbcf1/smartpos-sub019/pkg/db"
	"github.com/namhbcf1/smartpos-sub019/pkg/db/models"
	"github.com/namhbcf1/smartpos-sub019/pkg/enums"
	pkgerrors "github.com/namhbcf1/smartpos-sub019/pkg/errors"
	"github.com/namhbcf1/smartpos-sub019/pkg/pagination"
)

const serialUniqueConstraint = "idx_units_tenant_serial"

// Repository is the sole writer of serialized_units rows. Every query is
// scoped by tenant_id; callers never see another tenant's units.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Insert creates a unit row. The composite (tenant_id, serial_number) unique
// index is the authority on duplicates: a violation maps to DUPLICATE_SERIAL
// so concurrent creates of the same serial resolve to exactly one winner.
func (r *Repository) Insert(ctx context.Context, unit *models.SerializedUnit) error {
	if unit.ID == uuid.Nil {
		unit.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(unit).Error; err != nil {
		if db.IsUniqueViolation(err, serialUniqueConstraint) {
			return pkgerrors.Wrap(pkgerrors.CodeDuplicateSerial, err,
				fmt.Sprintf("serial number %q already exists", unit.SerialNumber))
		}
		return err
	}
	return nil
}

// FindByID loads one unit within the tenant.
func (r *Repository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.SerializedUnit, error) {
	var unit models.SerializedUnit
	err := r.db.WithContext(ctx).
		First(&unit, "id = ? AND tenant_id = ?", id, tenantID).
		Error
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

// FindBySerial loads one unit by its tenant-unique serial number.
func (r *Repository) FindBySerial(ctx context.Context, tenantID uuid.UUID, serial string) (*models.SerializedUnit, error) {
	var unit models.SerializedUnit
	err := r.db.WithContext(ctx).
		First(&unit, "tenant_id = ? AND serial_number = ?", tenantID, serial).
		Error
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

// ListQuery holds the supported list filters.
type ListQuery struct {
	Search            string
	Status            *enums.UnitStatus
	ProductID         *uuid.UUID
	WarehouseID       *uuid.UUID
	CustomerReference *string
	Pagination        pagination.Params
}

// List returns a page of units, most recent first, plus the total match count.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, query ListQuery) ([]models.SerializedUnit, int64, error) {
	qb := r.db.WithContext(ctx).
		Model(&models.SerializedUnit{}).
		Where("tenant_id = ?", tenantID)

	if query.Status != nil {
		qb = qb.Where("status = ?", *query.Status)
	}
	if query.ProductID != nil {
		qb = qb.Where("product_id = ?", *query.ProductID)
	}
	if query.WarehouseID != nil {
		qb = qb.Where("warehouse_id = ?", *query.WarehouseID)
	}
	if query.CustomerReference != nil {
		qb = qb.Where("customer_reference = ?", *query.CustomerReference)
	}
	if search := strings.TrimSpace(query.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where(
			"(LOWER(serial_number) LIKE ? OR product_id IN (SELECT id FROM products WHERE tenant_id = ? AND (LOWER(name) LIKE ? OR LOWER(sku) LIKE ?)))",
			pattern, tenantID, pattern, pattern,
		)
	}

	var total int64
	if err := qb.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.SerializedUnit
	err := qb.
		Order("created_at DESC").
		Offset(query.Pagination.Offset()).
		Limit(query.Pagination.PageSize()).
		Find(&rows).
		Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListByProduct returns every unit for a product, optionally filtered by status.
func (r *Repository) ListByProduct(ctx context.Context, tenantID, productID uuid.UUID, status *enums.UnitStatus) ([]models.SerializedUnit, error) {
	qb := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_id = ?", tenantID, productID)
	if status != nil {
		qb = qb.Where("status = ?", *status)
	}

	var rows []models.SerializedUnit
	if err := qb.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateFields applies an already-assembled patch without status semantics.
func (r *Repository) UpdateFields(ctx context.Context, tenantID, id uuid.UUID, updates map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.SerializedUnit{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateStatusCAS performs the conditional status write mandated for every
// transition: the row is only touched while it still carries fromStatus, and
// the caller must treat a false return as a lost race, never retry blindly.
func (r *Repository) UpdateStatusCAS(ctx context.Context, tenantID, id uuid.UUID, fromStatus enums.UnitStatus, updates map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.SerializedUnit{}).
		Where("id = ? AND tenant_id = ? AND status = ?", id, tenantID, fromStatus).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DeleteIfInStock removes the row only while it is still in_stock, so the
// caller can pair the removal with a counter decrement.
func (r *Repository) DeleteIfInStock(ctx context.Context, tenantID, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ? AND status = ?", id, tenantID, enums.UnitStatusInStock).
		Delete(&models.SerializedUnit{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Delete removes the row regardless of status.
func (r *Repository) Delete(ctx context.Context, tenantID, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Delete(&models.SerializedUnit{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FindProduct loads the owning product within the tenant.
func (r *Repository) FindProduct(ctx context.Context, tenantID, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		First(&product, "id = ? AND tenant_id = ?", productID, tenantID).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// AdjustStock applies a relative stock delta to the owning product. The
// increment form composes under concurrency; an absolute write from a stale
// read would not.
func (r *Repository) AdjustStock(ctx context.Context, tenantID, productID uuid.UUID, delta int) error {
	if delta == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND tenant_id = ?", productID, tenantID).
		UpdateColumns(map[string]any{
			"stock":      gorm.Expr("stock + ?", delta),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountByProductAndStatus counts units for a product in the given status.
func (r *Repository) CountByProductAndStatus(ctx context.Context, tenantID, productID uuid.UUID, status enums.UnitStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SerializedUnit{}).
		Where("tenant_id = ? AND product_id = ? AND status = ?", tenantID, productID, status).
		Count(&count).
		Error
	return count, err
}

// IsNotFound reports whether err is the backing store's missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
