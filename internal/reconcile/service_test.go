package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/namhbcf1/smartpos-sub019/internal/units"
	"github.com/namhbcf1/smartpos-sub019/pkg/config"
	"github.com/namhbcf1/smartpos-sub019/pkg/db"
	"github.com/namhbcf1/smartpos-sub019/pkg/db/models"
	"github.com/namhbcf1/smartpos-sub019/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:reconcile_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.Product{}, &models.Order{}, &models.SerializedUnit{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func newTestService(t *testing.T, conn *gorm.DB) *Service {
	t.Helper()
	client := db.NewWithConn(conn)
	return NewService(client, units.NewRepository(conn), config.WarrantyConfig{DefaultMonths: 36}, nil)
}

func seedProduct(t *testing.T, conn *gorm.DB, tenantID uuid.UUID, sku string, stock int) models.Product {
	t.Helper()
	product := models.Product{
		ID:             uuid.New(),
		TenantID:       tenantID,
		SKU:            sku,
		Name:           "Product " + sku,
		Stock:          stock,
		WarrantyMonths: 36,
	}
	if err := conn.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func seedUnit(t *testing.T, conn *gorm.DB, tenantID, productID uuid.UUID, serial string, status enums.UnitStatus) models.SerializedUnit {
	t.Helper()
	unit := models.SerializedUnit{
		ID:             uuid.New(),
		TenantID:       tenantID,
		SerialNumber:   serial,
		ProductID:      productID,
		Status:         status,
		WarrantyMonths: 36,
	}
	if err := conn.Create(&unit).Error; err != nil {
		t.Fatalf("seed unit: %v", err)
	}
	return unit
}

func seedOrder(t *testing.T, conn *gorm.DB, tenantID, productID uuid.UUID, quantity int, createdAt time.Time) models.Order {
	t.Helper()
	ref := "ORD-" + uuid.NewString()[:8]
	order := models.Order{
		ID:                uuid.New(),
		TenantID:          tenantID,
		ProductID:         productID,
		Quantity:          quantity,
		CustomerReference: &ref,
		CreatedAt:         createdAt,
	}
	if err := conn.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func reloadProduct(t *testing.T, conn *gorm.DB, id uuid.UUID) models.Product {
	t.Helper()
	var product models.Product
	if err := conn.First(&product, "id = ?", id).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return product
}

func reloadUnit(t *testing.T, conn *gorm.DB, id uuid.UUID) models.SerializedUnit {
	t.Helper()
	var unit models.SerializedUnit
	if err := conn.First(&unit, "id = ?", id).Error; err != nil {
		t.Fatalf("reload unit: %v", err)
	}
	return unit
}

func TestSyncStockCountersRepairsDrift(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()
	tenant := uuid.New()

	drifted := seedProduct(t, conn, tenant, "CPU-7800X", 10)
	seedUnit(t, conn, tenant, drifted.ID, "CP-001", enums.UnitStatusInStock)
	seedUnit(t, conn, tenant, drifted.ID, "CP-002", enums.UnitStatusInStock)
	seedUnit(t, conn, tenant, drifted.ID, "CP-003", enums.UnitStatusSold)

	clean := seedProduct(t, conn, tenant, "GPU-4090", 1)
	seedUnit(t, conn, tenant, clean.ID, "GP-001", enums.UnitStatusInStock)

	report, err := svc.SyncStockCounters(ctx, tenant)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if report.Products != 2 {
		t.Fatalf("scanned %d products", report.Products)
	}
	if len(report.Corrections) != 1 {
		t.Fatalf("expected 1 correction, got %d", len(report.Corrections))
	}
	if len(report.Errors) != 0 {
		t.Fatalf("clean run reported errors: %+v", report.Errors)
	}
	fix := report.Corrections[0]
	if fix.ProductID != drifted.ID || fix.OldStock != 10 || fix.NewStock != 2 {
		t.Fatalf("unexpected correction: %+v", fix)
	}
	if got := reloadProduct(t, conn, drifted.ID).Stock; got != 2 {
		t.Fatalf("stock = %d, expected 2", got)
	}

	// Second run finds nothing to fix.
	report, err = svc.SyncStockCounters(ctx, tenant)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if len(report.Corrections) != 0 {
		t.Fatalf("second run corrected %d", len(report.Corrections))
	}
}

func TestBackfillSoldStatusLinksOldestUnits(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()
	tenant := uuid.New()
	product := seedProduct(t, conn, tenant, "PHONE-15", 3)

	older := seedUnit(t, conn, tenant, product.ID, "PH-001", enums.UnitStatusInStock)
	if err := conn.Model(&models.SerializedUnit{}).Where("id = ?", older.ID).
		UpdateColumn("created_at", time.Now().Add(-2*time.Hour)).Error; err != nil {
		t.Fatalf("age unit: %v", err)
	}
	newer := seedUnit(t, conn, tenant, product.ID, "PH-002", enums.UnitStatusInStock)
	seedUnit(t, conn, tenant, product.ID, "PH-003", enums.UnitStatusInStock)

	orderDate := time.Now().Add(-24 * time.Hour)
	order := seedOrder(t, conn, tenant, product.ID, 2, orderDate)

	report, err := svc.BackfillSoldStatus(ctx, tenant)
	if err != nil {
		t.Fatalf("backfill: %v", err)
	}
	if report.Linked != 2 || len(report.Skipped) != 0 {
		t.Fatalf("linked=%d skipped=%d", report.Linked, len(report.Skipped))
	}

	sold := reloadUnit(t, conn, older.ID)
	if sold.Status != enums.UnitStatusSold {
		t.Fatalf("oldest unit should be sold, is %s", sold.Status)
	}
	if sold.OrderID == nil || *sold.OrderID != order.ID {
		t.Fatal("order linkage missing")
	}
	if sold.SoldDate == nil || !sold.SoldDate.Equal(orderDate.UTC()) {
		t.Fatal("sold_date should be the order date")
	}
	if sold.WarrantyStartDate == nil || sold.WarrantyEndDate == nil {
		t.Fatal("warranty window should be stamped")
	}
	if reloadUnit(t, conn, newer.ID).Status != enums.UnitStatusSold {
		t.Fatal("second-oldest unit should be sold")
	}

	// Counter followed the two sales.
	if got := reloadProduct(t, conn, product.ID).Stock; got != 1 {
		t.Fatalf("stock = %d, expected 1", got)
	}

	// Re-running links nothing new.
	report, err = svc.BackfillSoldStatus(ctx, tenant)
	if err != nil {
		t.Fatalf("second backfill: %v", err)
	}
	if report.Linked != 0 {
		t.Fatalf("second run linked %d", report.Linked)
	}
}

func TestBackfillSoldStatusSkipsShortOrders(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()
	tenant := uuid.New()
	product := seedProduct(t, conn, tenant, "TAB-11", 1)
	unit := seedUnit(t, conn, tenant, product.ID, "TB-001", enums.UnitStatusInStock)

	seedOrder(t, conn, tenant, product.ID, 3, time.Now().Add(-time.Hour))

	report, err := svc.BackfillSoldStatus(ctx, tenant)
	if err != nil {
		t.Fatalf("backfill: %v", err)
	}
	if report.Linked != 0 || len(report.Skipped) != 1 {
		t.Fatalf("linked=%d skipped=%d", report.Linked, len(report.Skipped))
	}
	if report.Skipped[0].Needed != 3 {
		t.Fatalf("skip item: %+v", report.Skipped[0])
	}

	// Short orders must not be partially linked.
	if got := reloadUnit(t, conn, unit.ID).Status; got != enums.UnitStatusInStock {
		t.Fatalf("unit should stay in_stock, is %s", got)
	}
}

func TestBackfillWarrantyDatesFallbackChain(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()
	tenant := uuid.New()
	product := seedProduct(t, conn, tenant, "SSD-2T", 0)

	// Unit with a sold date.
	soldDate := time.Now().Add(-48 * time.Hour).UTC().Truncate(time.Second)
	withSoldDate := seedUnit(t, conn, tenant, product.ID, "SD-001", enums.UnitStatusSold)
	if err := conn.Model(&models.SerializedUnit{}).Where("id = ?", withSoldDate.ID).
		UpdateColumn("sold_date", soldDate).Error; err != nil {
		t.Fatalf("set sold_date: %v", err)
	}

	// Unit with only an order linkage.
	orderDate := time.Now().Add(-72 * time.Hour).UTC().Truncate(time.Second)
	order := seedOrder(t, conn, tenant, product.ID, 1, orderDate)
	withOrder := seedUnit(t, conn, tenant, product.ID, "SD-002", enums.UnitStatusSold)
	if err := conn.Model(&models.SerializedUnit{}).Where("id = ?", withOrder.ID).
		UpdateColumn("order_id", order.ID).Error; err != nil {
		t.Fatalf("set order_id: %v", err)
	}

	// Unit with neither: falls back to its own created_at.
	bare := seedUnit(t, conn, tenant, product.ID, "SD-003", enums.UnitStatusSold)

	// Already-covered unit must not be touched.
	covered := seedUnit(t, conn, tenant, product.ID, "SD-004", enums.UnitStatusSold)
	existingStart := time.Now().Add(-100 * time.Hour).UTC().Truncate(time.Second)
	if err := conn.Model(&models.SerializedUnit{}).Where("id = ?", covered.ID).
		Updates(map[string]any{
			"warranty_start_date": existingStart,
			"warranty_end_date":   existingStart.AddDate(0, 12, 0),
		}).Error; err != nil {
		t.Fatalf("set warranty: %v", err)
	}

	report, err := svc.BackfillWarrantyDates(ctx, tenant)
	if err != nil {
		t.Fatalf("backfill: %v", err)
	}
	if report.Scanned != 3 || report.Updated != 3 {
		t.Fatalf("scanned=%d updated=%d", report.Scanned, report.Updated)
	}

	if row := reloadUnit(t, conn, withSoldDate.ID); row.WarrantyStartDate == nil || !row.WarrantyStartDate.Equal(soldDate) {
		t.Fatal("warranty should start at sold_date")
	}
	if row := reloadUnit(t, conn, withOrder.ID); row.WarrantyStartDate == nil || !row.WarrantyStartDate.Equal(orderDate) {
		t.Fatal("warranty should fall back to the order date")
	}
	row := reloadUnit(t, conn, bare.ID)
	if row.WarrantyStartDate == nil || !row.WarrantyStartDate.Equal(bare.CreatedAt.UTC()) {
		t.Fatal("warranty should fall back to created_at")
	}
	expectedEnd := row.WarrantyStartDate.AddDate(0, 36, 0)
	if row.WarrantyEndDate == nil || !row.WarrantyEndDate.Equal(expectedEnd) {
		t.Fatal("warranty end should be start + 36 months")
	}

	if row := reloadUnit(t, conn, covered.ID); !row.WarrantyStartDate.Equal(existingStart) {
		t.Fatal("existing warranty window must not be overwritten")
	}
}

func TestBackfillWarrantyDatesRecordsItemFailures(t *testing.T) {
	// No orders table: the order-date fallback fails for the linked unit
	// while the sold_date unit still gets its window.
	dsn := "file:reconcile_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.Product{}, &models.SerializedUnit{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc := newTestService(t, conn)
	ctx := context.Background()
	tenant := uuid.New()
	product := seedProduct(t, conn, tenant, "NVR-16CH", 0)

	soldDate := time.Now().Add(-24 * time.Hour).UTC().Truncate(time.Second)
	healthy := seedUnit(t, conn, tenant, product.ID, "NV-001", enums.UnitStatusSold)
	if err := conn.Model(&models.SerializedUnit{}).Where("id = ?", healthy.ID).
		UpdateColumn("sold_date", soldDate).Error; err != nil {
		t.Fatalf("set sold_date: %v", err)
	}
	broken := seedUnit(t, conn, tenant, product.ID, "NV-002", enums.UnitStatusSold)
	if err := conn.Model(&models.SerializedUnit{}).Where("id = ?", broken.ID).
		UpdateColumn("order_id", uuid.New()).Error; err != nil {
		t.Fatalf("set order_id: %v", err)
	}

	report, err := svc.BackfillWarrantyDates(ctx, tenant)
	if err != nil {
		t.Fatalf("a failing item must not abort the run: %v", err)
	}
	if report.Scanned != 2 || report.Updated != 1 {
		t.Fatalf("scanned=%d updated=%d", report.Scanned, report.Updated)
	}
	if len(report.Errors) != 1 || report.Errors[0].Item != "NV-002" {
		t.Fatalf("errors = %+v", report.Errors)
	}
	if report.Errors[0].Error == "" {
		t.Fatal("error item should carry the cause")
	}

	if row := reloadUnit(t, conn, healthy.ID); row.WarrantyStartDate == nil {
		t.Fatal("healthy unit should still be backfilled")
	}
	if row := reloadUnit(t, conn, broken.ID); row.WarrantyStartDate != nil {
		t.Fatal("failed unit must stay untouched")
	}
}

func TestAutoGenerateUnitsForLegacyProducts(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()
	tenant := uuid.New()

	legacy := seedProduct(t, conn, tenant, "PSU-850", 3)
	tracked := seedProduct(t, conn, tenant, "KB-87", 1)
	seedUnit(t, conn, tenant, tracked.ID, "KB-87-0001", enums.UnitStatusInStock)

	report, err := svc.AutoGenerateUnits(ctx, tenant, nil, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if report.Created != 3 || len(report.Items) != 1 {
		t.Fatalf("created=%d items=%d", report.Created, len(report.Items))
	}
	if report.Items[0].ProductID != legacy.ID {
		t.Fatal("only the legacy product should be touched")
	}

	var rows []models.SerializedUnit
	if err := conn.Where("product_id = ?", legacy.ID).Order("serial_number ASC").Find(&rows).Error; err != nil {
		t.Fatalf("load generated: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("generated %d rows", len(rows))
	}
	if rows[0].SerialNumber != "PSU-850-0001" || rows[2].SerialNumber != "PSU-850-0003" {
		t.Fatalf("serial sequence wrong: %s .. %s", rows[0].SerialNumber, rows[2].SerialNumber)
	}
	for _, row := range rows {
		if row.Status != enums.UnitStatusInStock {
			t.Fatalf("generated unit status = %s", row.Status)
		}
	}

	// Counter untouched: the units materialise what it already claimed.
	if got := reloadProduct(t, conn, legacy.ID).Stock; got != 3 {
		t.Fatalf("stock = %d, expected 3", got)
	}

	// Idempotent: rerun creates nothing.
	report, err = svc.AutoGenerateUnits(ctx, tenant, nil, false)
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if report.Created != 0 {
		t.Fatalf("second run created %d", report.Created)
	}
}

func TestAutoGenerateForceTopsUpPartiallyTrackedProducts(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()
	tenant := uuid.New()

	product := seedProduct(t, conn, tenant, "MON-27", 4)
	seedUnit(t, conn, tenant, product.ID, "MON-27-0001", enums.UnitStatusInStock)
	seedUnit(t, conn, tenant, product.ID, "MON-27-0002", enums.UnitStatusInStock)

	// Without force, a product that already has units is left alone.
	report, err := svc.AutoGenerateUnits(ctx, tenant, &product.ID, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if report.Created != 0 {
		t.Fatalf("non-forced run created %d", report.Created)
	}

	report, err = svc.AutoGenerateUnits(ctx, tenant, &product.ID, true)
	if err != nil {
		t.Fatalf("forced generate: %v", err)
	}
	if report.Created != 2 {
		t.Fatalf("forced run created %d, expected 2", report.Created)
	}

	// Sequence continues past the existing serials.
	var row models.SerializedUnit
	if err := conn.First(&row, "serial_number = ? AND tenant_id = ?", "MON-27-0004", tenant).Error; err != nil {
		t.Fatalf("expected MON-27-0004 to exist: %v", err)
	}
}
