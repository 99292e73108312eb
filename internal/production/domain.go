package production

import "time"

// Batch is one production run. Each line produces a uniquely coded batch
// item; posting the batch consumes packaging per the product BOMs and adds
// finished goods, all in one transaction.
type Batch struct {
	ID        int64       `json:"id"`
	BatchDate time.Time   `json:"batch_date"`
	PONumber  string      `json:"po_number,omitempty"`
	Notes     string      `json:"notes,omitempty"`
	Items     []BatchItem `json:"items,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// BatchItem is one produced product quantity with its traceability code.
type BatchItem struct {
	ID          int64   `json:"id"`
	BatchID     int64   `json:"batch_id"`
	BatchCode   string  `json:"batch_code"`
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name,omitempty"`
	QtyProduced float64 `json:"qty_produced"`
	UOM         string  `json:"uom"`
	Notes       string  `json:"notes,omitempty"`
}

// BatchInput carries a production batch submission.
type BatchInput struct {
	BatchDate string           `json:"batch_date" validate:"required,datetime=2006-01-02"`
	PONumber  string           `json:"po_number" validate:"max=40"`
	Notes     string           `json:"notes" validate:"max=400"`
	Items     []BatchItemInput `json:"items" validate:"required,min=1,dive"`
}

// BatchItemInput is one submitted production line.
type BatchItemInput struct {
	BatchCode string  `json:"batch_code" validate:"required,max=40"`
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Qty       float64 `json:"qty" validate:"required,gt=0"`
	Notes     string  `json:"notes" validate:"max=400"`
}

// ListFilter narrows batch listings.
type ListFilter struct {
	Search string
	From   time.Time
	To     time.Time
	Limit  int
}
