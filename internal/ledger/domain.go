package ledger

import "time"

// ItemKind distinguishes the two stock-bearing item variants.
type ItemKind string

const (
	// KindPackaging marks movements of packaging materials.
	KindPackaging ItemKind = "packaging"
	// KindFinishedGoods marks movements of produced goods.
	KindFinishedGoods ItemKind = "finished_goods"
)

// Direction enumerates movement directions.
type Direction string

const (
	// DirectionIn represents an inbound movement.
	DirectionIn Direction = "in"
	// DirectionOut represents an outbound movement.
	DirectionOut Direction = "out"
)

// SourceType identifies the document that caused a movement.
type SourceType string

const (
	// SourceReceipt marks movements posted by a packaging receipt.
	SourceReceipt SourceType = "receipt"
	// SourceProduction marks movements posted by a production batch.
	SourceProduction SourceType = "production"
	// SourceShipment marks movements posted by a shipment.
	SourceShipment SourceType = "shipment"
)

// Movement is one immutable ledger fact. Rows are append-only; current and
// remaining stock are always derived from them, never stored.
type Movement struct {
	ID           int64      `json:"id"`
	MovementDate time.Time  `json:"movement_date"`
	ItemKind     ItemKind   `json:"item_kind"`
	ItemID       int64      `json:"item_id"`
	BatchItemID  int64      `json:"batch_item_id,omitempty"`
	Qty          float64    `json:"qty"`
	UOM          string     `json:"uom"`
	Direction    Direction  `json:"direction"`
	SourceType   SourceType `json:"source_type"`
	SourceID     int64      `json:"source_id"`
	Notes        string     `json:"notes,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// MovementFilter narrows movement log queries.
type MovementFilter struct {
	ItemKind    ItemKind
	ItemID      int64
	BatchItemID int64
	Direction   Direction
	SourceType  SourceType
	From        time.Time
	To          time.Time
	Limit       int
}

// ItemStock pairs a master-data item with its derived balance.
type ItemStock struct {
	ItemKind ItemKind `json:"item_kind"`
	ItemID   int64    `json:"item_id"`
	Code     string   `json:"code"`
	Name     string   `json:"name"`
	UOM      string   `json:"uom"`
	Balance  float64  `json:"balance"`
}

// BatchItemStock reports remaining stock for one production batch item.
type BatchItemStock struct {
	BatchItemID int64   `json:"batch_item_id"`
	BatchCode   string  `json:"batch_code"`
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	QtyProduced float64 `json:"qty_produced"`
	Remaining   float64 `json:"remaining"`
	UOM         string  `json:"uom"`
}

// Overview aggregates derived balances for the whole inventory.
type Overview struct {
	Packaging     []ItemStock `json:"packaging"`
	FinishedGoods []ItemStock `json:"finished_goods"`
	GeneratedAt   time.Time   `json:"generated_at"`
}
