package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/namhbcf1/smartpos-sub019/pkg/enums"
)

// SerializedUnit is one physical, individually identified inventory item.
// Serial numbers are unique per tenant; every query against this table is
// tenant-scoped.
type SerializedUnit struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	TenantID     uuid.UUID        `gorm:"column:tenant_id;type:uuid;not null;index;uniqueIndex:idx_units_tenant_serial"`
	SerialNumber string           `gorm:"column:serial_number;not null;uniqueIndex:idx_units_tenant_serial"`
	ProductID    uuid.UUID        `gorm:"column:product_id;type:uuid;not null;index"`
	Status       enums.UnitStatus `gorm:"column:status;not null;default:in_stock;index"`

	WarehouseID *uuid.UUID `gorm:"column:warehouse_id;type:uuid"`
	Location    *string    `gorm:"column:location"`

	ImportDate  *time.Time       `gorm:"column:import_date"`
	ImportBatch *string          `gorm:"column:import_batch"`
	SupplierID  *uuid.UUID       `gorm:"column:supplier_id;type:uuid"`
	CostPrice   *decimal.Decimal `gorm:"column:cost_price;type:numeric(12,2)"`

	SoldDate          *time.Time       `gorm:"column:sold_date"`
	OrderID           *uuid.UUID       `gorm:"column:order_id;type:uuid"`
	CustomerReference *string          `gorm:"column:customer_reference"`
	SalePrice         *decimal.Decimal `gorm:"column:sale_price;type:numeric(12,2)"`

	WarrantyStartDate *time.Time `gorm:"column:warranty_start_date"`
	WarrantyEndDate   *time.Time `gorm:"column:warranty_end_date"`
	WarrantyMonths    int        `gorm:"column:warranty_months;not null;default:36"`

	ReservedBy    *uuid.UUID `gorm:"column:reserved_by;type:uuid"`
	ReservedUntil *time.Time `gorm:"column:reserved_until;index"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// HoldActive reports whether the unit carries an unexpired reservation.
func (u SerializedUnit) HoldActive(now time.Time) bool {
	return u.ReservedUntil != nil && u.ReservedUntil.After(now)
}
