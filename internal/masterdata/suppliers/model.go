package suppliers

import (
	"time"
)

// Supplier represents a vendor the business buys from.
type Supplier struct {
	ID           int64     `json:"id"`
	SupplierName string    `json:"supplierName"`
	ContactInfo  string    `json:"contactInfo"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
