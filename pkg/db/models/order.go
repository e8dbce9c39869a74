package models

import (
	"time"

	"github.com/google/uuid"
)

// Order is the minimal order projection the reconciliation jobs read.
// Orders are owned by the order subsystem; this core never writes them.
type Order struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	TenantID          uuid.UUID `gorm:"column:tenant_id;type:uuid;not null;index"`
	ProductID         uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	Quantity          int       `gorm:"column:quantity;not null;default:1"`
	CustomerReference *string   `gorm:"column:customer_reference"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
}
