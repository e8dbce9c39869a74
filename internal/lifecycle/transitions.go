package lifecycle

import (
	"fmt"

	"github.com/namhbcf1/smartpos-sub019/pkg/enums"
	pkgerrors "github.com/namhbcf1/smartpos-sub019/pkg/errors"
)

// Transition validates a status change and returns the stock-counter delta it
// implies for the owning product. The machine is a pure function of
// (from, to): it holds no state and performs no I/O.
//
//	in_stock  -> sold|warranty|defective|scrapped  : -1
//	sold|warranty|defective|returned -> in_stock   : +1
//	returned  -> warranty|scrapped|sold            :  0
//	any       -> same                              :  0 (no-op)
func Transition(from, to enums.UnitStatus) (int, error) {
	if !from.IsValid() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown current status %q", from))
	}
	if !to.IsValid() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown target status %q", to))
	}

	if from == to {
		return 0, nil
	}

	switch from {
	case enums.UnitStatusInStock:
		switch to {
		case enums.UnitStatusSold, enums.UnitStatusWarranty, enums.UnitStatusDefective, enums.UnitStatusScrapped:
			return -1, nil
		}

	case enums.UnitStatusSold, enums.UnitStatusWarranty, enums.UnitStatusDefective:
		if to == enums.UnitStatusInStock {
			return +1, nil
		}

	case enums.UnitStatusReturned:
		switch to {
		case enums.UnitStatusInStock:
			return +1, nil
		case enums.UnitStatusWarranty, enums.UnitStatusScrapped, enums.UnitStatusSold:
			return 0, nil
		}
	}

	return 0, pkgerrors.New(
		pkgerrors.CodeIllegalTransition,
		fmt.Sprintf("cannot transition unit from %s to %s", from, to),
	)
}

// ClearsHold reports whether the transition must clear reservation fields.
// Any move out of in_stock ends an active hold: the unit is no longer
// available, so keeping reserved_until around would violate the rule that
// only in_stock units carry holds.
func ClearsHold(from, to enums.UnitStatus) bool {
	return from == enums.UnitStatusInStock && to != enums.UnitStatusInStock
}

// EntersStock reports whether the transition brings the unit back into stock.
func EntersStock(from, to enums.UnitStatus) bool {
	return from != enums.UnitStatusInStock && to == enums.UnitStatusInStock
}
