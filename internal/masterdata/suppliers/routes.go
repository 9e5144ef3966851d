package suppliers

import (
	"github.com/go-chi/chi/v5"

	internalShared "github.com/inventaris/inventaris/internal/shared"
)

// MountRoutes registers the HTML pages. Mount under /suppliers.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(internalShared.PermSuppliersView, internalShared.PermSuppliersEdit))
		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(internalShared.PermSuppliersEdit))
		r.Get("/new", h.Form)
		r.Post("/", h.Create)
		r.Get("/{id}/edit", h.EditForm)
		r.Post("/{id}/edit", h.Update)
		r.Get("/{id}/delete", h.DeleteConfirm)
		r.Post("/{id}/delete", h.Delete)
	})
}

// MountRoutes registers the JSON endpoints. Mount under /api/suppliers.
func (h *APIHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(internalShared.PermSuppliersView, internalShared.PermSuppliersEdit))
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(internalShared.PermSuppliersEdit))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}
