package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the aggregate view over serialized units. The inventory core
// only ever touches its stock counter, always as a relative adjustment
// (stock = stock + delta), so concurrent writers compose.
type Product struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	TenantID       uuid.UUID `gorm:"column:tenant_id;type:uuid;not null;index;uniqueIndex:idx_products_tenant_sku"`
	SKU            string    `gorm:"column:sku;not null;uniqueIndex:idx_products_tenant_sku"`
	Name           string    `gorm:"column:name;not null"`
	Stock          int       `gorm:"column:stock;not null;default:0"`
	WarrantyMonths int       `gorm:"column:warranty_months;not null;default:36"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
