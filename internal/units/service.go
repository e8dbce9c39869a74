package units

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/namhbcf1/smartpos-sub019/internal/lifecycle"
	"github.com/namhbcf1/smartpos-sub019/pkg/config"
	"github.com/namhbcf1/smartpos-sub019/pkg/db"
	"github.com/namhbcf1/smartpos-sub019/pkg/db/models"
	"github.com/namhbcf1/smartpos-sub019/pkg/enums"
	pkgerrors "github.com/namhbcf1/smartpos-sub019/pkg/errors"
	"github.com/namhbcf1/smartpos-sub019/pkg/pagination"
)

// Service owns the unit lifecycle. Every status change goes through the
// transition machine and pairs the row update with the product counter
// adjustment in one transaction, which is what keeps the counter invariant
// (products.stock == count of in_stock units) intact.
type Service struct {
	client   *db.Client
	repo     *Repository
	warranty config.WarrantyConfig
	now      func() time.Time
}

// NewService wires the unit service.
func NewService(client *db.Client, repo *Repository, warranty config.WarrantyConfig) *Service {
	return &Service{
		client:   client,
		repo:     repo,
		warranty: warranty,
		now:      time.Now,
	}
}

// Create registers one unit. Creating an in_stock unit increments the owning
// product's counter in the same transaction as the insert.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, input CreateUnitInput) (*UnitDTO, error) {
	serial := strings.TrimSpace(input.SerialNumber)
	if serial == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "serial_number is required")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}

	status := enums.UnitStatusInStock
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown status %q", *input.Status))
		}
		status = *input.Status
	}

	product, err := s.repo.FindProduct(ctx, tenantID, input.ProductID)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, err
	}

	unit := models.SerializedUnit{
		ID:             uuid.New(),
		TenantID:       tenantID,
		SerialNumber:   serial,
		ProductID:      product.ID,
		Status:         status,
		WarehouseID:    input.WarehouseID,
		Location:       input.Location,
		ImportDate:     input.ImportDate,
		ImportBatch:    input.ImportBatch,
		SupplierID:     input.SupplierID,
		CostPrice:      input.CostPrice,
		WarrantyMonths: s.resolveWarrantyMonths(input.WarrantyMonths, product.WarrantyMonths),
	}

	if status == enums.UnitStatusSold {
		soldDate := s.now().UTC()
		unit.SoldDate = &soldDate
		start, end := warrantyWindow(soldDate, unit.WarrantyMonths)
		unit.WarrantyStartDate = &start
		unit.WarrantyEndDate = &end
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Insert(ctx, &unit); err != nil {
			return err
		}
		if status == enums.UnitStatusInStock {
			return txRepo.AdjustStock(ctx, tenantID, product.ID, +1)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := toDTO(unit)
	return &dto, nil
}

// Get loads one unit by id.
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*UnitDTO, error) {
	unit, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unit not found")
		}
		return nil, err
	}
	dto := toDTO(*unit)
	return &dto, nil
}

// GetBySerial loads one unit by its tenant-unique serial number.
func (s *Service) GetBySerial(ctx context.Context, tenantID uuid.UUID, serial string) (*UnitDTO, error) {
	unit, err := s.repo.FindBySerial(ctx, tenantID, strings.TrimSpace(serial))
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unit not found")
		}
		return nil, err
	}
	dto := toDTO(*unit)
	return &dto, nil
}

// List returns a filtered page of units.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, input ListUnitsInput) (*UnitListResult, error) {
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown status %q", *input.Status))
	}

	params := pagination.Params{
		Page:  pagination.NormalizePage(input.Pagination.Page),
		Limit: pagination.NormalizeLimit(input.Pagination.Limit),
	}

	rows, total, err := s.repo.List(ctx, tenantID, ListQuery{
		Search:            input.Search,
		Status:            input.Status,
		ProductID:         input.ProductID,
		WarehouseID:       input.WarehouseID,
		CustomerReference: input.CustomerReference,
		Pagination:        params,
	})
	if err != nil {
		return nil, err
	}

	return &UnitListResult{
		Units: toDTOs(rows),
		Meta:  pagination.NewMeta(params, total),
	}, nil
}

// ListByProduct returns every unit of one product, optionally by status.
func (s *Service) ListByProduct(ctx context.Context, tenantID, productID uuid.UUID, status *enums.UnitStatus) ([]UnitDTO, error) {
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown status %q", *status))
	}
	if _, err := s.repo.FindProduct(ctx, tenantID, productID); err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, err
	}

	rows, err := s.repo.ListByProduct(ctx, tenantID, productID, status)
	if err != nil {
		return nil, err
	}
	return toDTOs(rows), nil
}

// Update applies a partial patch. A status change is validated against the
// transition machine and written conditionally on the status the caller
// observed; losing that race surfaces as CONFLICT rather than a silent
// double-apply.
func (s *Service) Update(ctx context.Context, tenantID, id uuid.UUID, input UpdateUnitInput) (*UnitDTO, error) {
	current, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unit not found")
		}
		return nil, err
	}

	effective := current.Status
	if input.Status != nil {
		effective = *input.Status
	}
	if effective != enums.UnitStatusSold && input.touchesSale() {
		return nil, pkgerrors.New(
			pkgerrors.CodeValidation,
			"sold_date, sale_price, order_id and customer_reference require a sold unit",
		)
	}

	updates := s.buildPatch(*current, input)

	if input.Status == nil || *input.Status == current.Status {
		if len(updates) == 0 {
			dto := toDTO(*current)
			return &dto, nil
		}
		if err := s.repo.UpdateFields(ctx, tenantID, id, updates); err != nil {
			if IsNotFound(err) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unit not found")
			}
			return nil, err
		}
		return s.Get(ctx, tenantID, id)
	}

	target := *input.Status
	delta, err := lifecycle.Transition(current.Status, target)
	if err != nil {
		return nil, err
	}

	updates["status"] = target
	if lifecycle.ClearsHold(current.Status, target) {
		updates["reserved_by"] = nil
		updates["reserved_until"] = nil
	}

	switch {
	case target == enums.UnitStatusSold:
		soldDate := s.now().UTC()
		if input.SoldDate != nil {
			soldDate = input.SoldDate.UTC()
		}
		months := current.WarrantyMonths
		if input.WarrantyMonths != nil {
			months = *input.WarrantyMonths
		}
		start, end := warrantyWindow(soldDate, months)
		updates["sold_date"] = soldDate
		updates["warranty_start_date"] = start
		updates["warranty_end_date"] = end

	case lifecycle.EntersStock(current.Status, target):
		// Back on the shelf: sale metadata only belongs to sold units.
		updates["sold_date"] = nil
		updates["order_id"] = nil
		updates["customer_reference"] = nil
		updates["sale_price"] = nil
		updates["warranty_start_date"] = nil
		updates["warranty_end_date"] = nil
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		won, err := txRepo.UpdateStatusCAS(ctx, tenantID, id, current.Status, updates)
		if err != nil {
			return err
		}
		if !won {
			return pkgerrors.New(pkgerrors.CodeConflict, "unit status changed concurrently")
		}
		return txRepo.AdjustStock(ctx, tenantID, current.ProductID, delta)
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, tenantID, id)
}

// Delete removes a unit. Only a row deleted while still in_stock decrements
// the product counter; the conditional delete keeps that pairing exact under
// concurrent transitions.
func (s *Service) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	unit, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		if IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "unit not found")
		}
		return err
	}

	return s.client.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		deletedInStock, err := txRepo.DeleteIfInStock(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if deletedInStock {
			return txRepo.AdjustStock(ctx, tenantID, unit.ProductID, -1)
		}
		deleted, err := txRepo.Delete(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeNotFound, "unit not found")
		}
		return nil
	})
}

// BulkImport creates many units, one transaction each. A duplicate or invalid
// serial fails only its own item; the rest of the batch proceeds.
func (s *Service) BulkImport(ctx context.Context, tenantID uuid.UUID, inputs []CreateUnitInput) (*BulkImportResult, error) {
	if len(inputs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one unit is required")
	}

	result := &BulkImportResult{Items: make([]BulkImportItem, 0, len(inputs))}
	for _, input := range inputs {
		item := BulkImportItem{SerialNumber: strings.TrimSpace(input.SerialNumber)}

		dto, err := s.Create(ctx, tenantID, input)
		if err != nil {
			msg := err.Error()
			code := string(pkgerrors.CodeInternal)
			if typed := pkgerrors.As(err); typed != nil {
				msg = typed.Message()
				code = string(typed.Code())
			}
			item.Error = &msg
			item.ErrorCode = &code
			result.Failed++
		} else {
			item.UnitID = &dto.ID
			result.Created++
		}
		result.Items = append(result.Items, item)
	}
	return result, nil
}

func (s *Service) buildPatch(current models.SerializedUnit, input UpdateUnitInput) map[string]any {
	updates := map[string]any{}

	if input.WarehouseID != nil {
		updates["warehouse_id"] = *input.WarehouseID
	}
	if input.Location != nil {
		updates["location"] = *input.Location
	}
	if input.ImportDate != nil {
		updates["import_date"] = *input.ImportDate
	}
	if input.ImportBatch != nil {
		updates["import_batch"] = *input.ImportBatch
	}
	if input.SupplierID != nil {
		updates["supplier_id"] = *input.SupplierID
	}
	if input.CostPrice != nil {
		updates["cost_price"] = *input.CostPrice
	}
	if input.OrderID != nil {
		updates["order_id"] = *input.OrderID
	}
	if input.CustomerReference != nil {
		updates["customer_reference"] = *input.CustomerReference
	}
	if input.SalePrice != nil {
		updates["sale_price"] = *input.SalePrice
	}
	if input.SoldDate != nil {
		updates["sold_date"] = input.SoldDate.UTC()
	}
	if input.WarrantyMonths != nil {
		updates["warranty_months"] = *input.WarrantyMonths
		if current.WarrantyStartDate != nil {
			_, end := warrantyWindow(*current.WarrantyStartDate, *input.WarrantyMonths)
			updates["warranty_end_date"] = end
		}
	}
	return updates
}

func (s *Service) resolveWarrantyMonths(override *int, productDefault int) int {
	if override != nil {
		return *override
	}
	if productDefault > 0 {
		return productDefault
	}
	if s.warranty.DefaultMonths > 0 {
		return s.warranty.DefaultMonths
	}
	return 36
}

// warrantyWindow derives the coverage window from a start date and a month
// count, calendar-month arithmetic.
func warrantyWindow(start time.Time, months int) (time.Time, time.Time) {
	start = start.UTC()
	return start, start.AddDate(0, months, 0)
}
