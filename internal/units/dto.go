package units

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/namhbcf1/smartpos-sub019/pkg/db/models"
	"github.com/namhbcf1/smartpos-sub019/pkg/enums"
	"github.com/namhbcf1/smartpos-sub019/pkg/pagination"
)

// CreateUnitInput carries everything needed to register one physical unit.
type CreateUnitInput struct {
	SerialNumber string            `json:"serial_number" validate:"required,max=120"`
	ProductID    uuid.UUID         `json:"product_id" validate:"required"`
	Status       *enums.UnitStatus `json:"status,omitempty"`

	WarehouseID *uuid.UUID       `json:"warehouse_id,omitempty"`
	Location    *string          `json:"location,omitempty" validate:"omitempty,max=200"`
	ImportDate  *time.Time       `json:"import_date,omitempty"`
	ImportBatch *string          `json:"import_batch,omitempty" validate:"omitempty,max=120"`
	SupplierID  *uuid.UUID       `json:"supplier_id,omitempty"`
	CostPrice   *decimal.Decimal `json:"cost_price,omitempty"`

	WarrantyMonths *int `json:"warranty_months,omitempty" validate:"omitempty,gte=0,lte=120"`
}

// UpdateUnitInput is a partial patch; nil fields are left untouched. Status is
// special-cased: changing it runs the lifecycle machine and may move the
// owning product's stock counter.
type UpdateUnitInput struct {
	Status *enums.UnitStatus `json:"status,omitempty"`

	WarehouseID *uuid.UUID       `json:"warehouse_id,omitempty"`
	Location    *string          `json:"location,omitempty" validate:"omitempty,max=200"`
	ImportDate  *time.Time       `json:"import_date,omitempty"`
	ImportBatch *string          `json:"import_batch,omitempty" validate:"omitempty,max=120"`
	SupplierID  *uuid.UUID       `json:"supplier_id,omitempty"`
	CostPrice   *decimal.Decimal `json:"cost_price,omitempty"`

	SoldDate          *time.Time       `json:"sold_date,omitempty"`
	OrderID           *uuid.UUID       `json:"order_id,omitempty"`
	CustomerReference *string          `json:"customer_reference,omitempty" validate:"omitempty,max=200"`
	SalePrice         *decimal.Decimal `json:"sale_price,omitempty"`

	WarrantyMonths *int `json:"warranty_months,omitempty" validate:"omitempty,gte=0,lte=120"`
}

// touchesSale reports whether the patch carries sale metadata. Only sold
// units may carry it.
func (in UpdateUnitInput) touchesSale() bool {
	return in.SoldDate != nil || in.OrderID != nil || in.CustomerReference != nil || in.SalePrice != nil
}

// ListUnitsInput carries list filters plus the page window.
type ListUnitsInput struct {
	Search            string
	Status            *enums.UnitStatus
	ProductID         *uuid.UUID
	WarehouseID       *uuid.UUID
	CustomerReference *string
	Pagination        pagination.Params
}

// UnitDTO is the wire shape of one serialized unit.
type UnitDTO struct {
	ID           uuid.UUID        `json:"id"`
	SerialNumber string           `json:"serial_number"`
	ProductID    uuid.UUID        `json:"product_id"`
	Status       enums.UnitStatus `json:"status"`

	WarehouseID *uuid.UUID       `json:"warehouse_id,omitempty"`
	Location    *string          `json:"location,omitempty"`
	ImportDate  *time.Time       `json:"import_date,omitempty"`
	ImportBatch *string          `json:"import_batch,omitempty"`
	SupplierID  *uuid.UUID       `json:"supplier_id,omitempty"`
	CostPrice   *decimal.Decimal `json:"cost_price,omitempty"`

	SoldDate          *time.Time       `json:"sold_date,omitempty"`
	OrderID           *uuid.UUID       `json:"order_id,omitempty"`
	CustomerReference *string          `json:"customer_reference,omitempty"`
	SalePrice         *decimal.Decimal `json:"sale_price,omitempty"`

	WarrantyStartDate *time.Time `json:"warranty_start_date,omitempty"`
	WarrantyEndDate   *time.Time `json:"warranty_end_date,omitempty"`
	WarrantyMonths    int        `json:"warranty_months"`

	ReservedBy    *uuid.UUID `json:"reserved_by,omitempty"`
	ReservedUntil *time.Time `json:"reserved_until,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UnitListResult is one page of units plus pagination metadata.
type UnitListResult struct {
	Units []UnitDTO       `json:"units"`
	Meta  pagination.Meta `json:"meta"`
}

// BulkImportItem reports the outcome for one serial in a bulk import.
type BulkImportItem struct {
	SerialNumber string     `json:"serial_number"`
	UnitID       *uuid.UUID `json:"unit_id,omitempty"`
	Error        *string    `json:"error,omitempty"`
	ErrorCode    *string    `json:"error_code,omitempty"`
}

// BulkImportResult summarises a bulk import; one failed serial never aborts
// the rest of the batch.
type BulkImportResult struct {
	Created int              `json:"created"`
	Failed  int              `json:"failed"`
	Items   []BulkImportItem `json:"items"`
}

func toDTO(unit models.SerializedUnit) UnitDTO {
	return UnitDTO{
		ID:                unit.ID,
		SerialNumber:      unit.SerialNumber,
		ProductID:         unit.ProductID,
		Status:            unit.Status,
		WarehouseID:       unit.WarehouseID,
		Location:          unit.Location,
		ImportDate:        unit.ImportDate,
		ImportBatch:       unit.ImportBatch,
		SupplierID:        unit.SupplierID,
		CostPrice:         unit.CostPrice,
		SoldDate:          unit.SoldDate,
		OrderID:           unit.OrderID,
		CustomerReference: unit.CustomerReference,
		SalePrice:         unit.SalePrice,
		WarrantyStartDate: unit.WarrantyStartDate,
		WarrantyEndDate:   unit.WarrantyEndDate,
		WarrantyMonths:    unit.WarrantyMonths,
		ReservedBy:        unit.ReservedBy,
		ReservedUntil:     unit.ReservedUntil,
		CreatedAt:         unit.CreatedAt,
		UpdatedAt:         unit.UpdatedAt,
	}
}

func toDTOs(rows []models.SerializedUnit) []UnitDTO {
	out := make([]UnitDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDTO(row))
	}
	return out
}
