package shared

// Supplier area permissions.
const (
	PermSuppliersView = "suppliers.view"
	PermSuppliersEdit = "suppliers.edit"
)

// SupplierScopes lists all permissions related to suppliers.
func SupplierScopes() []string {
	return []string{
		PermSuppliersView,
		PermSuppliersEdit,
	}
}
