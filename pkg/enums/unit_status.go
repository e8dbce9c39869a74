package enums

import "fmt"

// UnitStatus is the lifecycle status of a serialized inventory unit.
//
// A checkout hold is not a status: reservations are an annotation
// (reserved_by/reserved_until) on an in_stock unit, so the stock counter
// stays consistent while a unit is held.
type UnitStatus string

const (
	UnitStatusInStock   UnitStatus = "in_stock"
	UnitStatusSold      UnitStatus = "sold"
	UnitStatusReturned  UnitStatus = "returned"
	UnitStatusWarranty  UnitStatus = "warranty"
	UnitStatusDefective UnitStatus = "defective"
	UnitStatusScrapped  UnitStatus = "scrapped"
)

var validUnitStatuses = []UnitStatus{
	UnitStatusInStock,
	UnitStatusSold,
	UnitStatusReturned,
	UnitStatusWarranty,
	UnitStatusDefective,
	UnitStatusScrapped,
}

// String implements fmt.Stringer.
func (s UnitStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known UnitStatus.
func (s UnitStatus) IsValid() bool {
	for _, candidate := range validUnitStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseUnitStatus converts raw input into a UnitStatus.
func ParseUnitStatus(value string) (UnitStatus, error) {
	for _, candidate := range validUnitStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid unit status %q", value)
}

// UnitStatuses returns all known statuses in declaration order.
func UnitStatuses() []UnitStatus {
	out := make([]UnitStatus, len(validUnitStatuses))
	copy(out, validUnitStatuses)
	return out
}
