package ledger

import (
	"errors"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ErrPersistence is reported when the commit phase of a workflow fails. The
// whole transaction is rolled back first; detail stays in operator logs.
var ErrPersistence = errors.New("could not complete operation")

// ErrInvalidQuantity indicates a zero or negative quantity.
var ErrInvalidQuantity = errors.New("ledger: quantity must be positive")

// Shortage describes one item whose accumulated requirement exceeds its
// available balance.
type Shortage struct {
	ItemKind  ItemKind `json:"item_kind"`
	ItemID    int64    `json:"item_id"`
	Label     string   `json:"label"`
	Required  float64  `json:"required"`
	Available float64  `json:"available"`
	Shortage  float64  `json:"shortage"`
}

var shortagePrinter = message.NewPrinter(language.English)

// InsufficientStockError rejects a whole workflow request and carries the
// complete shortage list, not just the first item found.
type InsufficientStockError struct {
	Shortages []Shortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, shortagePrinter.Sprintf("%s: need %v, available %v (short %v)",
			s.Label, s.Required, s.Available, s.Shortage))
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

// DuplicateLineError rejects requests where two lines share an identifying
// key: a batch code within a production batch, or a batch item within a
// shipment.
type DuplicateLineError struct {
	Field string
	Key   string
}

func (e *DuplicateLineError) Error() string {
	return "duplicate " + e.Field + ": " + e.Key
}

// BOMNotFoundError blocks production of a batch item whose product has no
// bill of materials.
type BOMNotFoundError struct {
	BatchCode string
	ProductID int64
}

func (e *BOMNotFoundError) Error() string {
	return shortagePrinter.Sprintf("no bill of materials for product %d (batch %s)", e.ProductID, e.BatchCode)
}
