package suppliers

// CreateInput carries the fields accepted when registering a supplier.
type CreateInput struct {
	SupplierName string `json:"supplierName" validate:"required,max=200"`
	ContactInfo  string `json:"contactInfo" validate:"required,max=200"`
	ActorID      int64  `json:"-"`
}

// UpdateInput carries the editable fields of an existing supplier. ID must
// repeat the identifier of the record being edited.
type UpdateInput struct {
	ID           int64  `json:"id"`
	SupplierName string `json:"supplierName" validate:"required,max=200"`
	ContactInfo  string `json:"contactInfo" validate:"required,max=200"`
	ActorID      int64  `json:"-"`
}

// supplierForm is the view model used to re-render the create/edit form.
type supplierForm struct {
	ID           int64
	SupplierName string
	ContactInfo  string
}
