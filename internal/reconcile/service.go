package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/namhbcf1/smartpos-sub019/internal/lifecycle"
	"github.com/namhbcf1/smartpos-sub019/internal/units"
	"github.com/namhbcf1/smartpos-sub019/pkg/config"
	"github.com/namhbcf1/smartpos-sub019/pkg/db"
	"github.com/namhbcf1/smartpos-sub019/pkg/db/models"
	"github.com/namhbcf1/smartpos-sub019/pkg/enums"
	pkgerrors "github.com/namhbcf1/smartpos-sub019/pkg/errors"
	"github.com/namhbcf1/smartpos-sub019/pkg/logger"
)

// Service hosts the reconciliation jobs that converge drifted data back to
// the invariants: counters matching unit counts, sold units linked to their
// orders, warranty windows filled in, and legacy counter-only products
// materialised as unit rows.
//
// Every job is idempotent and every write is conditional on the stale state
// it observed, so jobs are safe to re-run and safe to run next to live
// traffic. A lost conditional write is skipped, not retried; the next run
// picks it up. An item that fails outright lands on the report's errors
// list and the run moves on to the next item.
type Service struct {
	client   *db.Client
	repo     *units.Repository
	warranty config.WarrantyConfig
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the reconciliation service.
func NewService(client *db.Client, repo *units.Repository, warranty config.WarrantyConfig, logg *logger.Logger) *Service {
	return &Service{
		client:   client,
		repo:     repo,
		warranty: warranty,
		logg:     logg,
		now:      time.Now,
	}
}

// SyncStockCounters recomputes every product's stock counter from the actual
// count of in_stock units. tenantID narrows the run to one tenant; uuid.Nil
// means all tenants. The corrective write is conditional on the stale value,
// so a counter moved by live traffic mid-run is left alone.
func (s *Service) SyncStockCounters(ctx context.Context, tenantID uuid.UUID) (*StockSyncReport, error) {
	conn := s.client.DB()

	qb := conn.WithContext(ctx).Model(&models.Product{})
	if tenantID != uuid.Nil {
		qb = qb.Where("tenant_id = ?", tenantID)
	}
	var products []models.Product
	if err := qb.Order("created_at ASC").Find(&products).Error; err != nil {
		return nil, err
	}

	report := &StockSyncReport{Products: len(products), Corrections: []StockCorrection{}, Errors: []ItemError{}}
	for _, product := range products {
		actual, err := s.repo.CountByProductAndStatus(ctx, product.TenantID, product.ID, enums.UnitStatusInStock)
		if err != nil {
			report.Errors = append(report.Errors, ItemError{Item: product.SKU, Error: err.Error()})
			continue
		}
		if int(actual) == product.Stock {
			continue
		}

		result := conn.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ? AND stock = ?", product.ID, product.Stock).
			UpdateColumns(map[string]any{"stock": int(actual), "updated_at": s.now().UTC()})
		if result.Error != nil {
			report.Errors = append(report.Errors, ItemError{Item: product.SKU, Error: result.Error.Error()})
			continue
		}
		if result.RowsAffected == 0 {
			report.Skipped++
			continue
		}

		report.Corrections = append(report.Corrections, StockCorrection{
			ProductID: product.ID,
			SKU:       product.SKU,
			OldStock:  product.Stock,
			NewStock:  int(actual),
		})
		if s.logg != nil {
			s.logg.Info(ctx, fmt.Sprintf("stock counter corrected for %s: %d -> %d", product.SKU, product.Stock, actual))
		}
	}
	return report, nil
}

// BackfillSoldStatus links orders to units. For every order with fewer sold
// units than its quantity, the oldest available in_stock units are sold and
// stamped with the order's date and reference. Orders that cannot be fully
// covered are skipped whole rather than partially linked.
func (s *Service) BackfillSoldStatus(ctx context.Context, tenantID uuid.UUID) (*SoldBackfillReport, error) {
	conn := s.client.DB()

	qb := conn.WithContext(ctx).Model(&models.Order{})
	if tenantID != uuid.Nil {
		qb = qb.Where("tenant_id = ?", tenantID)
	}
	var orders []models.Order
	if err := qb.Order("created_at ASC").Find(&orders).Error; err != nil {
		return nil, err
	}

	report := &SoldBackfillReport{Orders: len(orders), Skipped: []SoldBackfillItem{}, Errors: []ItemError{}}
	for _, order := range orders {
		var linked int64
		err := conn.WithContext(ctx).
			Model(&models.SerializedUnit{}).
			Where("tenant_id = ? AND order_id = ?", order.TenantID, order.ID).
			Count(&linked).
			Error
		if err != nil {
			report.Errors = append(report.Errors, ItemError{Item: order.ID.String(), Error: err.Error()})
			continue
		}

		needed := order.Quantity - int(linked)
		if needed <= 0 {
			continue
		}

		candidates, err := s.availableUnits(ctx, order.TenantID, order.ProductID, needed)
		if err != nil {
			report.Errors = append(report.Errors, ItemError{Item: order.ID.String(), Error: err.Error()})
			continue
		}
		if len(candidates) < needed {
			report.Skipped = append(report.Skipped, SoldBackfillItem{
				OrderID:   order.ID,
				ProductID: order.ProductID,
				Needed:    needed,
				Reason:    fmt.Sprintf("only %d in_stock units available", len(candidates)),
			})
			continue
		}

		for _, unit := range candidates {
			sold, err := s.sellForOrder(ctx, unit, order)
			if err != nil {
				report.Errors = append(report.Errors, ItemError{Item: unit.SerialNumber, Error: err.Error()})
				continue
			}
			if sold {
				report.Linked++
			}
		}
	}
	return report, nil
}

// BackfillWarrantyDates fills the warranty window on sold units that lack
// one. The start date falls back through sold_date, the linked order's date,
// and finally the unit's own creation date.
func (s *Service) BackfillWarrantyDates(ctx context.Context, tenantID uuid.UUID) (*WarrantyBackfillReport, error) {
	conn := s.client.DB()

	qb := conn.WithContext(ctx).
		Where("status = ? AND warranty_start_date IS NULL", enums.UnitStatusSold)
	if tenantID != uuid.Nil {
		qb = qb.Where("tenant_id = ?", tenantID)
	}
	var rows []models.SerializedUnit
	if err := qb.Find(&rows).Error; err != nil {
		return nil, err
	}

	report := &WarrantyBackfillReport{Scanned: len(rows), Errors: []ItemError{}}
	for _, unit := range rows {
		start, err := s.warrantyStart(ctx, unit)
		if err != nil {
			report.Errors = append(report.Errors, ItemError{Item: unit.SerialNumber, Error: err.Error()})
			continue
		}
		months := unit.WarrantyMonths
		if months <= 0 {
			months = s.warranty.DefaultMonths
		}
		end := start.AddDate(0, months, 0)

		result := conn.WithContext(ctx).
			Model(&models.SerializedUnit{}).
			Where("id = ? AND warranty_start_date IS NULL", unit.ID).
			Updates(map[string]any{
				"warranty_start_date": start,
				"warranty_end_date":   end,
				"warranty_months":     months,
			})
		if result.Error != nil {
			report.Errors = append(report.Errors, ItemError{Item: unit.SerialNumber, Error: result.Error.Error()})
			continue
		}
		if result.RowsAffected == 0 {
			report.Skipped++
			continue
		}
		report.Updated++
	}
	return report, nil
}

// AutoGenerateUnits materialises unit rows for products whose stock counter
// predates serialized tracking. Serials derive from the SKU plus a running
// sequence. By default only products with no unit rows at all are touched;
// force extends the run to products that already have some units, topping
// them up to the counter.
//
// Generated units are inserted without a counter adjustment: the counter
// already claims them, which is the drift being repaired.
func (s *Service) AutoGenerateUnits(ctx context.Context, tenantID uuid.UUID, productID *uuid.UUID, force bool) (*AutoGenerateReport, error) {
	conn := s.client.DB()

	qb := conn.WithContext(ctx).Model(&models.Product{})
	if tenantID != uuid.Nil {
		qb = qb.Where("tenant_id = ?", tenantID)
	}
	if productID != nil {
		qb = qb.Where("id = ?", *productID)
	}
	var products []models.Product
	if err := qb.Order("created_at ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	if productID != nil && len(products) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	report := &AutoGenerateReport{Products: len(products), Items: []AutoGenerateItem{}, Errors: []ItemError{}}
	for _, product := range products {
		var existing int64
		err := conn.WithContext(ctx).
			Model(&models.SerializedUnit{}).
			Where("tenant_id = ? AND product_id = ?", product.TenantID, product.ID).
			Count(&existing).
			Error
		if err != nil {
			report.Errors = append(report.Errors, ItemError{Item: product.SKU, Error: err.Error()})
			continue
		}
		if existing > 0 && !force {
			continue
		}

		inStock, err := s.repo.CountByProductAndStatus(ctx, product.TenantID, product.ID, enums.UnitStatusInStock)
		if err != nil {
			report.Errors = append(report.Errors, ItemError{Item: product.SKU, Error: err.Error()})
			continue
		}
		missing := product.Stock - int(inStock)
		if missing <= 0 {
			continue
		}

		created, err := s.generateUnits(ctx, product, int(existing), missing)
		if created > 0 {
			report.Created += created
			report.Items = append(report.Items, AutoGenerateItem{
				ProductID: product.ID,
				SKU:       product.SKU,
				Created:   created,
			})
		}
		if err != nil {
			report.Errors = append(report.Errors, ItemError{Item: product.SKU, Error: err.Error()})
		}
	}
	return report, nil
}

func (s *Service) availableUnits(ctx context.Context, tenantID, productID uuid.UUID, limit int) ([]models.SerializedUnit, error) {
	var rows []models.SerializedUnit
	err := s.client.DB().WithContext(ctx).
		Where(
			"tenant_id = ? AND product_id = ? AND status = ? AND (reserved_until IS NULL OR reserved_until <= ?)",
			tenantID, productID, enums.UnitStatusInStock, s.now().UTC(),
		).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// sellForOrder moves one unit to sold on behalf of an order, with the same
// conditional write and paired counter decrement a live sale uses. A lost
// race is fine: the unit was taken by someone else and the next run re-counts.
func (s *Service) sellForOrder(ctx context.Context, unit models.SerializedUnit, order models.Order) (bool, error) {
	delta, err := lifecycle.Transition(enums.UnitStatusInStock, enums.UnitStatusSold)
	if err != nil {
		return false, err
	}

	months := unit.WarrantyMonths
	if months <= 0 {
		months = s.warranty.DefaultMonths
	}
	soldDate := order.CreatedAt.UTC()
	updates := map[string]any{
		"status":              enums.UnitStatusSold,
		"sold_date":           soldDate,
		"order_id":            order.ID,
		"customer_reference":  order.CustomerReference,
		"warranty_start_date": soldDate,
		"warranty_end_date":   soldDate.AddDate(0, months, 0),
		"reserved_by":         nil,
		"reserved_until":      nil,
	}

	won := false
	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		ok, err := txRepo.UpdateStatusCAS(ctx, unit.TenantID, unit.ID, enums.UnitStatusInStock, updates)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		won = true
		return txRepo.AdjustStock(ctx, unit.TenantID, unit.ProductID, delta)
	})
	return won, err
}

func (s *Service) warrantyStart(ctx context.Context, unit models.SerializedUnit) (time.Time, error) {
	if unit.SoldDate != nil {
		return unit.SoldDate.UTC(), nil
	}
	if unit.OrderID != nil {
		var order models.Order
		err := s.client.DB().WithContext(ctx).
			First(&order, "id = ? AND tenant_id = ?", *unit.OrderID, unit.TenantID).
			Error
		if err == nil {
			return order.CreatedAt.UTC(), nil
		}
		if !db.IsNotFound(err) {
			return time.Time{}, err
		}
	}
	return unit.CreatedAt.UTC(), nil
}

func (s *Service) generateUnits(ctx context.Context, product models.Product, existing, missing int) (int, error) {
	created := 0
	seq := existing + 1

	// Bounded probe past collisions: sequence gaps can exist when units were
	// deleted or imported with hand-written serials.
	attempts := 0
	maxAttempts := missing + 1000

	for created < missing && attempts < maxAttempts {
		attempts++
		serial := fmt.Sprintf("%s-%04d", product.SKU, seq)
		seq++

		unit := models.SerializedUnit{
			ID:             uuid.New(),
			TenantID:       product.TenantID,
			SerialNumber:   serial,
			ProductID:      product.ID,
			Status:         enums.UnitStatusInStock,
			WarrantyMonths: product.WarrantyMonths,
		}
		err := s.client.DB().WithContext(ctx).Create(&unit).Error
		if err != nil {
			if db.IsUniqueViolation(err, "idx_units_tenant_serial") {
				continue
			}
			return created, err
		}
		created++
	}

	if created < missing {
		return created, pkgerrors.New(
			pkgerrors.CodeInternal,
			fmt.Sprintf("could not find free serials for %s after %d attempts", product.SKU, attempts),
		)
	}
	return created, nil
}
