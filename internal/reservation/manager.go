package reservation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/namhbcf1/smartpos-sub019/pkg/config"
	"github.com/namhbcf1/smartpos-sub019/pkg/db"
	"github.com/namhbcf1/smartpos-sub019/pkg/db/models"
	"github.com/namhbcf1/smartpos-sub019/pkg/enums"
	pkgerrors "github.com/namhbcf1/smartpos-sub019/pkg/errors"
)

// Manager places and clears time-bounded holds on in_stock units. A hold is
// an annotation (reserved_by, reserved_until) on the row, never a status:
// reserved units stay in_stock and keep counting toward the product's stock.
//
// Grants are single conditional UPDATEs. Two carts racing for the same unit
// both issue the same statement; the row condition guarantees exactly one
// writes, and the loser finds out from RowsAffected, not from a lock.
type Manager struct {
	client *db.Client
	cfg    config.ReservationConfig
	now    func() time.Time
}

// NewManager wires the reservation manager.
func NewManager(client *db.Client, cfg config.ReservationConfig) *Manager {
	return &Manager{client: client, cfg: cfg, now: time.Now}
}

// ReserveInput is one reservation request. Either Serials names the exact
// units, or ProductID+Quantity asks for any N available units of a product.
type ReserveInput struct {
	Serials        []string   `json:"serials,omitempty"`
	ProductID      *uuid.UUID `json:"product_id,omitempty"`
	Quantity       int        `json:"quantity,omitempty"`
	TimeoutMinutes *int       `json:"timeout_minutes,omitempty"`
	RequestedBy    uuid.UUID  `json:"requested_by"`
}

// ReservedUnit is one granted hold.
type ReservedUnit struct {
	UnitID       uuid.UUID `json:"unit_id"`
	SerialNumber string    `json:"serial_number"`
	ProductID    uuid.UUID `json:"product_id"`
}

// ReserveResult reports the granted holds and their shared expiry.
type ReserveResult struct {
	ReservedUntil time.Time      `json:"reserved_until"`
	Units         []ReservedUnit `json:"units"`
}

// Reserve grants holds for the request. All-or-nothing: if any named serial
// cannot be held, or fewer than Quantity units are available, every hold
// granted so far is released before the error returns.
func (m *Manager) Reserve(ctx context.Context, tenantID uuid.UUID, input ReserveInput) (*ReserveResult, error) {
	if input.RequestedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requested_by is required")
	}

	until, err := m.resolveExpiry(input.TimeoutMinutes)
	if err != nil {
		return nil, err
	}

	switch {
	case len(input.Serials) > 0:
		return m.reserveSerials(ctx, tenantID, input, until)
	case input.ProductID != nil:
		return m.reserveQuantity(ctx, tenantID, input, until)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "either serials or product_id is required")
	}
}

func (m *Manager) reserveSerials(ctx context.Context, tenantID uuid.UUID, input ReserveInput, until time.Time) (*ReserveResult, error) {
	conn := m.client.DB()
	granted := make([]ReservedUnit, 0, len(input.Serials))

	for _, raw := range input.Serials {
		serial := strings.TrimSpace(raw)
		if serial == "" {
			m.releaseGranted(ctx, tenantID, granted, input.RequestedBy)
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "serial numbers must not be empty")
		}

		var unit models.SerializedUnit
		err := conn.WithContext(ctx).
			First(&unit, "tenant_id = ? AND serial_number = ?", tenantID, serial).
			Error
		if err != nil {
			m.releaseGranted(ctx, tenantID, granted, input.RequestedBy)
			if db.IsNotFound(err) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("unit %q not found", serial))
			}
			return nil, err
		}

		won, err := m.grant(ctx, tenantID, unit.ID, input.RequestedBy, until)
		if err != nil {
			m.releaseGranted(ctx, tenantID, granted, input.RequestedBy)
			return nil, err
		}
		if !won {
			m.releaseGranted(ctx, tenantID, granted, input.RequestedBy)
			return nil, m.explainLostGrant(ctx, tenantID, unit.ID, serial)
		}

		granted = append(granted, ReservedUnit{
			UnitID:       unit.ID,
			SerialNumber: unit.SerialNumber,
			ProductID:    unit.ProductID,
		})
	}

	return &ReserveResult{ReservedUntil: until, Units: granted}, nil
}

func (m *Manager) reserveQuantity(ctx context.Context, tenantID uuid.UUID, input ReserveInput, until time.Time) (*ReserveResult, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	conn := m.client.DB()
	var product models.Product
	err := conn.WithContext(ctx).
		First(&product, "id = ? AND tenant_id = ?", *input.ProductID, tenantID).
		Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, err
	}

	granted := make([]ReservedUnit, 0, input.Quantity)

	// Losing a candidate to a concurrent cart is tolerated: the next pass
	// simply tries fresh candidates. The pass cap only guards against
	// pathological churn.
	for pass := 0; pass < 10 && len(granted) < input.Quantity; pass++ {
		candidates, err := m.availableCandidates(ctx, tenantID, product.ID, granted, input.Quantity-len(granted))
		if err != nil {
			m.releaseGranted(ctx, tenantID, granted, input.RequestedBy)
			return nil, err
		}
		if len(candidates) == 0 {
			break
		}

		for _, candidate := range candidates {
			won, err := m.grant(ctx, tenantID, candidate.ID, input.RequestedBy, until)
			if err != nil {
				m.releaseGranted(ctx, tenantID, granted, input.RequestedBy)
				return nil, err
			}
			if !won {
				continue
			}
			granted = append(granted, ReservedUnit{
				UnitID:       candidate.ID,
				SerialNumber: candidate.SerialNumber,
				ProductID:    candidate.ProductID,
			})
			if len(granted) == input.Quantity {
				break
			}
		}
	}

	if len(granted) < input.Quantity {
		available := len(granted)
		m.releaseGranted(ctx, tenantID, granted, input.RequestedBy)
		return nil, pkgerrors.New(
			pkgerrors.CodeInsufficientStock,
			fmt.Sprintf("requested %d units, only %d available", input.Quantity, available),
		).WithDetails(map[string]int{"requested": input.Quantity, "available": available})
	}

	return &ReserveResult{ReservedUntil: until, Units: granted}, nil
}

// Release clears holds the requester owns. Clearing a unit that is not held,
// already expired, or held by someone else is not an error; the return value
// is the number of holds actually cleared.
func (m *Manager) Release(ctx context.Context, tenantID uuid.UUID, unitIDs []uuid.UUID, requestedBy uuid.UUID) (int64, error) {
	if len(unitIDs) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "unit_ids is required")
	}
	if requestedBy == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "requested_by is required")
	}

	result := m.client.DB().WithContext(ctx).
		Model(&models.SerializedUnit{}).
		Where("id IN ? AND tenant_id = ? AND reserved_by = ?", unitIDs, tenantID, requestedBy).
		Updates(map[string]any{"reserved_by": nil, "reserved_until": nil})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// SweepExpired clears every lapsed hold across all tenants in one conditional
// UPDATE. Safe to run concurrently with grants: a hold refreshed after the
// sweep's cutoff no longer matches the predicate.
func (m *Manager) SweepExpired(ctx context.Context) (int64, error) {
	result := m.client.DB().WithContext(ctx).
		Model(&models.SerializedUnit{}).
		Where("reserved_until IS NOT NULL AND reserved_until <= ?", m.now().UTC()).
		Updates(map[string]any{"reserved_by": nil, "reserved_until": nil})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// resolveExpiry turns an optional timeout override into an absolute expiry,
// bounded by the configured maximum.
func (m *Manager) resolveExpiry(override *int) (time.Time, error) {
	minutes := m.cfg.DefaultTimeoutMinutes
	if minutes <= 0 {
		minutes = 15
	}
	if override != nil {
		if *override <= 0 {
			return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "timeout_minutes must be positive")
		}
		if m.cfg.MaxTimeoutMinutes > 0 && *override > m.cfg.MaxTimeoutMinutes {
			return time.Time{}, pkgerrors.New(
				pkgerrors.CodeValidation,
				fmt.Sprintf("timeout_minutes may not exceed %d", m.cfg.MaxTimeoutMinutes),
			)
		}
		minutes = *override
	}
	return m.now().UTC().Add(time.Duration(minutes) * time.Minute), nil
}

// grant is the single conditional write every reservation goes through. The
// unit must still be in_stock and carry no live hold.
func (m *Manager) grant(ctx context.Context, tenantID, unitID, requestedBy uuid.UUID, until time.Time) (bool, error) {
	result := m.client.DB().WithContext(ctx).
		Model(&models.SerializedUnit{}).
		Where(
			"id = ? AND tenant_id = ? AND status = ? AND (reserved_until IS NULL OR reserved_until <= ?)",
			unitID, tenantID, enums.UnitStatusInStock, m.now().UTC(),
		).
		Updates(map[string]any{"reserved_by": requestedBy, "reserved_until": until})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// explainLostGrant re-reads the unit to tell the caller why the conditional
// write matched nothing.
func (m *Manager) explainLostGrant(ctx context.Context, tenantID, unitID uuid.UUID, serial string) error {
	var unit models.SerializedUnit
	err := m.client.DB().WithContext(ctx).
		First(&unit, "id = ? AND tenant_id = ?", unitID, tenantID).
		Error
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("unit %q not found", serial))
		}
		return err
	}

	if unit.Status != enums.UnitStatusInStock {
		return pkgerrors.New(
			pkgerrors.CodeConflict,
			fmt.Sprintf("unit %q is %s and not available for reservation", serial, unit.Status),
		)
	}
	return pkgerrors.New(
		pkgerrors.CodeAlreadyReserved,
		fmt.Sprintf("unit %q is already reserved", serial),
	)
}

func (m *Manager) availableCandidates(ctx context.Context, tenantID, productID uuid.UUID, granted []ReservedUnit, limit int) ([]models.SerializedUnit, error) {
	qb := m.client.DB().WithContext(ctx).
		Where(
			"tenant_id = ? AND product_id = ? AND status = ? AND (reserved_until IS NULL OR reserved_until <= ?)",
			tenantID, productID, enums.UnitStatusInStock, m.now().UTC(),
		)
	if len(granted) > 0 {
		ids := make([]uuid.UUID, 0, len(granted))
		for _, g := range granted {
			ids = append(ids, g.UnitID)
		}
		qb = qb.Where("id NOT IN ?", ids)
	}

	var rows []models.SerializedUnit
	err := qb.Order("created_at ASC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// releaseGranted is best-effort cleanup on a failed all-or-nothing request;
// the sweeper catches anything it misses.
func (m *Manager) releaseGranted(ctx context.Context, tenantID uuid.UUID, granted []ReservedUnit, requestedBy uuid.UUID) {
	if len(granted) == 0 {
		return
	}
	ids := make([]uuid.UUID, 0, len(granted))
	for _, g := range granted {
		ids = append(ids, g.UnitID)
	}
	_, _ = m.Release(ctx, tenantID, ids, requestedBy)
}
