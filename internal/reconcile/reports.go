package reconcile

import "github.com/google/uuid"

// ItemError records one item a run could not process. The run keeps going;
// the failure lands here instead of aborting the whole pass.
type ItemError struct {
	Item  string `json:"item"`
	Error string `json:"error"`
}

// StockCorrection is one counter repaired by SyncStockCounters.
type StockCorrection struct {
	ProductID uuid.UUID `json:"product_id"`
	SKU       string    `json:"sku"`
	OldStock  int       `json:"old_stock"`
	NewStock  int       `json:"new_stock"`
}

// StockSyncReport summarises one counter sync run.
type StockSyncReport struct {
	Products    int               `json:"products"`
	Corrections []StockCorrection `json:"corrections"`
	Skipped     int               `json:"skipped"`
	Errors      []ItemError       `json:"errors"`
}

// SoldBackfillItem is one order the sold-status backfill could not fully link.
type SoldBackfillItem struct {
	OrderID   uuid.UUID `json:"order_id"`
	ProductID uuid.UUID `json:"product_id"`
	Needed    int       `json:"needed"`
	Reason    string    `json:"reason"`
}

// SoldBackfillReport summarises one sold-status backfill run.
type SoldBackfillReport struct {
	Orders  int                `json:"orders"`
	Linked  int                `json:"linked"`
	Skipped []SoldBackfillItem `json:"skipped"`
	Errors  []ItemError        `json:"errors"`
}

// WarrantyBackfillReport summarises one warranty-date backfill run.
type WarrantyBackfillReport struct {
	Scanned int         `json:"scanned"`
	Updated int         `json:"updated"`
	Skipped int         `json:"skipped"`
	Errors  []ItemError `json:"errors"`
}

// AutoGenerateItem is one product the generator created units for.
type AutoGenerateItem struct {
	ProductID uuid.UUID `json:"product_id"`
	SKU       string    `json:"sku"`
	Created   int       `json:"created"`
}

// AutoGenerateReport summarises one unit-generation run.
type AutoGenerateReport struct {
	Products int                `json:"products"`
	Created  int                `json:"created"`
	Items    []AutoGenerateItem `json:"items"`
	Errors   []ItemError        `json:"errors"`
}
