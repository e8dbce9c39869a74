package units

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/namhbcf1/smartpos-sub019/pkg/config"
	"github.com/namhbcf1/smartpos-sub019/pkg/db"
	"github.com/namhbcf1/smartpos-sub019/pkg/db/models"
	"github.com/namhbcf1/smartpos-sub019/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:units_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.Product{}, &models.Order{}, &models.SerializedUnit{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func newTestService(t *testing.T, conn *gorm.DB) (*Service, *Repository) {
	t.Helper()
	repo := NewRepository(conn)
	svc := NewService(db.NewWithConn(conn), repo, config.WarrantyConfig{DefaultMonths: 36})
	return svc, repo
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

func seedUnit(t *testing.T, conn *gorm.DB, tenantID uuid.UUID, productID uuid.UUID, serial string, status enums.UnitStatus) models.SerializedUnit {
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

func holdUnit(t *testing.T, conn *gorm.DB, id uuid.UUID, by uuid.UUID, until time.Time) {
	t.Helper()
	err := conn.Model(&models.SerializedUnit{}).
		Where("id = ?", id).
		Updates(map[string]any{"reserved_by": by, "reserved_until": until}).
		Error
	if err != nil {
		t.Fatalf("hold unit: %v", err)
	}
}
