package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(gorm.ErrRecordNotFound))
	assert.True(t, IsNotFound(fmt.Errorf("loading unit: %w", gorm.ErrRecordNotFound)))
	assert.False(t, IsNotFound(errors.New("connection reset")))
	assert.False(t, IsNotFound(nil))
}

func TestIsUniqueViolation(t *testing.T) {
	pgErr := errors.New(`duplicate key value violates unique constraint "idx_units_tenant_serial"`)
	sqliteErr := errors.New("UNIQUE constraint failed: serialized_units.serial_number")

	assert.True(t, IsUniqueViolation(pgErr, "idx_units_tenant_serial"))
	assert.True(t, IsUniqueViolation(pgErr, ""))
	assert.True(t, IsUniqueViolation(sqliteErr, ""))
	assert.False(t, IsUniqueViolation(errors.New("deadlock detected"), ""))
	assert.False(t, IsUniqueViolation(errors.New("deadlock detected"), "idx_units_tenant_serial"))
	assert.False(t, IsUniqueViolation(nil, "idx_units_tenant_serial"))
}
