package shipping

import "time"

// Shipment is an outbound finished-goods delivery against specific
// production batch items. Posting it appends one outbound movement per
// line; remaining batch stock is always derived, never stored.
type Shipment struct {
	ID                 int64          `json:"id"`
	ShipmentNumber     string         `json:"shipment_number"`
	ShipmentDate       time.Time      `json:"shipment_date"`
	DestinationID      int64          `json:"destination_id"`
	DestinationName    string         `json:"destination_name,omitempty"`
	DeliveryNoteNumber string         `json:"delivery_note_number,omitempty"`
	Notes              string         `json:"notes,omitempty"`
	Lines              []ShipmentLine `json:"lines,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
}

// ShipmentLine ships a quantity out of one production batch item.
type ShipmentLine struct {
	ID          int64   `json:"id"`
	ShipmentID  int64   `json:"shipment_id"`
	BatchItemID int64   `json:"batch_item_id"`
	BatchCode   string  `json:"batch_code,omitempty"`
	ProductID   int64   `json:"product_id,omitempty"`
	ProductName string  `json:"product_name,omitempty"`
	Qty         float64 `json:"qty"`
	UOM         string  `json:"uom"`
}

// ShipmentInput carries a shipment submission.
type ShipmentInput struct {
	ShipmentNumber     string              `json:"shipment_number" validate:"required,max=40"`
	ShipmentDate       string              `json:"shipment_date" validate:"required,datetime=2006-01-02"`
	DestinationID      int64               `json:"destination_id" validate:"required,gt=0"`
	DeliveryNoteNumber string              `json:"delivery_note_number" validate:"max=60"`
	Notes              string              `json:"notes" validate:"max=400"`
	Lines              []ShipmentLineInput `json:"lines" validate:"required,min=1,dive"`
}

// ShipmentLineInput is one submitted line.
type ShipmentLineInput struct {
	BatchItemID int64   `json:"batch_item_id" validate:"required,gt=0"`
	Qty         float64 `json:"qty" validate:"required,gt=0"`
}

// BatchItemInfo is the batch item detail the workflow reads inside its
// transaction.
type BatchItemInfo struct {
	ID          int64
	BatchCode   string
	ProductID   int64
	ProductName string
	QtyProduced float64
	UOM         string
}

// ListFilter narrows shipment listings.
type ListFilter struct {
	Search        string
	DestinationID int64
	From          time.Time
	To            time.Time
	Limit         int
}
