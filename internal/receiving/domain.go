package receiving

import "time"

// Receipt is an inbound packaging delivery. Posting it appends one inbound
// ledger movement per line; the document itself never changes stock again.
type Receipt struct {
	ID              int64         `json:"id"`
	ReceiptNumber   string        `json:"receipt_number"`
	ReceiptDate     time.Time     `json:"receipt_date"`
	SupplierName    string        `json:"supplier_name,omitempty"`
	DeliveryNoteURL string        `json:"delivery_note_url,omitempty"`
	Notes           string        `json:"notes,omitempty"`
	Lines           []ReceiptLine `json:"lines,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// ReceiptLine is one received packaging item with its quantity.
type ReceiptLine struct {
	ID                int64   `json:"id"`
	ReceiptID         int64   `json:"receipt_id"`
	PackagingItemID   int64   `json:"packaging_item_id"`
	PackagingItemName string  `json:"packaging_item_name,omitempty"`
	Qty               float64 `json:"qty"`
	UOM               string  `json:"uom"`
}

// ReceiptInput carries a receipt submission.
type ReceiptInput struct {
	ReceiptNumber   string             `json:"receipt_number" validate:"required,max=40"`
	ReceiptDate     string             `json:"receipt_date" validate:"required,datetime=2006-01-02"`
	SupplierName    string             `json:"supplier_name" validate:"max=160"`
	DeliveryNoteURL string             `json:"delivery_note_url" validate:"omitempty,url,max=400"`
	Notes           string             `json:"notes" validate:"max=400"`
	Lines           []ReceiptLineInput `json:"lines" validate:"required,min=1,dive"`
}

// ReceiptLineInput is one submitted line.
type ReceiptLineInput struct {
	PackagingItemID int64   `json:"packaging_item_id" validate:"required,gt=0"`
	Qty             float64 `json:"qty" validate:"required,gt=0"`
}

// ListFilter narrows receipt listings.
type ListFilter struct {
	Search string
	From   time.Time
	To     time.Time
	Limit  int
}
