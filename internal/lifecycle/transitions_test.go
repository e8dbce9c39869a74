package lifecycle

import (
	"testing"

	"github.com/namhbcf1/smartpos-sub019/pkg/enums"
	pkgerrors "github.com/namhbcf1/smartpos-sub019/pkg/errors"
)

func TestTransitionTable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from, to enums.UnitStatus
		delta    int
		legal    bool
	}{
		// leaving stock
		{enums.UnitStatusInStock, enums.UnitStatusSold, -1, true},
		{enums.UnitStatusInStock, enums.UnitStatusWarranty, -1, true},
		{enums.UnitStatusInStock, enums.UnitStatusDefective, -1, true},
		{enums.UnitStatusInStock, enums.UnitStatusScrapped, -1, true},
		// re-entering stock
		{enums.UnitStatusSold, enums.UnitStatusInStock, +1, true},
		{enums.UnitStatusWarranty, enums.UnitStatusInStock, +1, true},
		{enums.UnitStatusDefective, enums.UnitStatusInStock, +1, true},
		{enums.UnitStatusReturned, enums.UnitStatusInStock, +1, true},
		// returned shelf moves, no counter effect
		{enums.UnitStatusReturned, enums.UnitStatusWarranty, 0, true},
		{enums.UnitStatusReturned, enums.UnitStatusScrapped, 0, true},
		{enums.UnitStatusReturned, enums.UnitStatusSold, 0, true},
		// self transitions are no-ops
		{enums.UnitStatusInStock, enums.UnitStatusInStock, 0, true},
		{enums.UnitStatusScrapped, enums.UnitStatusScrapped, 0, true},
		// illegal moves
		{enums.UnitStatusScrapped, enums.UnitStatusSold, 0, false},
		{enums.UnitStatusScrapped, enums.UnitStatusInStock, 0, false},
		{enums.UnitStatusSold, enums.UnitStatusWarranty, 0, false},
		{enums.UnitStatusSold, enums.UnitStatusScrapped, 0, false},
		{enums.UnitStatusInStock, enums.UnitStatusReturned, 0, false},
		{enums.UnitStatusWarranty, enums.UnitStatusSold, 0, false},
	}

	for _, tc := range cases {
		delta, err := Transition(tc.from, tc.to)
		if tc.legal {
			if err != nil {
				t.Fatalf("%s -> %s should be legal: %v", tc.from, tc.to, err)
			}
			if delta != tc.delta {
				t.Fatalf("%s -> %s delta = %d, expected %d", tc.from, tc.to, delta, tc.delta)
			}
			continue
		}
		if err == nil {
			t.Fatalf("%s -> %s should be illegal", tc.from, tc.to)
		}
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeIllegalTransition {
			t.Fatalf("%s -> %s: unexpected error %v", tc.from, tc.to, err)
		}
	}
}

func TestTransitionRejectsUnknownStatuses(t *testing.T) {
	t.Parallel()

	if _, err := Transition("reserved", enums.UnitStatusSold); err == nil {
		t.Fatal("reserved is not a status and must be rejected")
	}
	if _, err := Transition(enums.UnitStatusInStock, "shipped"); err == nil {
		t.Fatal("unknown target status must be rejected")
	}
}

func TestClearsHold(t *testing.T) {
	t.Parallel()

	if !ClearsHold(enums.UnitStatusInStock, enums.UnitStatusSold) {
		t.Fatal("leaving in_stock must clear holds")
	}
	if ClearsHold(enums.UnitStatusInStock, enums.UnitStatusInStock) {
		t.Fatal("no-op transition must not clear holds")
	}
	if ClearsHold(enums.UnitStatusReturned, enums.UnitStatusSold) {
		t.Fatal("non-stock transitions carry no holds")
	}
}
