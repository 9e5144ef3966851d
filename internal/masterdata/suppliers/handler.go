package suppliers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/inventaris/inventaris/internal/masterdata/shared"
	"github.com/inventaris/inventaris/internal/rbac"
	internalShared "github.com/inventaris/inventaris/internal/shared"
	"github.com/inventaris/inventaris/internal/view"
)

const (
	listPath = "/suppliers"

	tplList   = "pages/suppliers/list.html"
	tplDetail = "pages/suppliers/detail.html"
	tplForm   = "pages/suppliers/form.html"
	tplDelete = "pages/suppliers/delete.html"

	msgConflict = "This supplier was changed by someone else. Reload it and try again."
)

// Handler serves the server-rendered supplier pages.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *internalShared.CSRFManager
	rbac      rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *internalShared.CSRFManager, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, rbac: rbac}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list suppliers failed", slog.Any("error", err))
		http.Error(w, "Failed to load suppliers", http.StatusInternalServerError)
		return
	}
	h.render(w, r, tplList, "Suppliers", map[string]any{
		"Suppliers": suppliers,
	}, http.StatusOK)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	supplier, ok := h.load(w, r)
	if !ok {
		return
	}
	h.render(w, r, tplDetail, supplier.SupplierName, map[string]any{
		"Supplier": supplier,
	}, http.StatusOK)
}

func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, supplierForm{}, nil, http.StatusOK)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	input := CreateInput{
		SupplierName: r.PostFormValue("supplierName"),
		ContactInfo:  r.PostFormValue("contactInfo"),
		ActorID:      internalShared.ActorIDFromContext(r.Context()),
	}
	created, err := h.service.Create(r.Context(), input)
	if err != nil {
		form := supplierForm{SupplierName: input.SupplierName, ContactInfo: input.ContactInfo}
		h.formError(w, r, form, err)
		return
	}

	h.logger.Info("supplier created", slog.Int64("supplier_id", created.ID))
	h.redirectWithFlash(w, r, listPath, "success", "Supplier created successfully")
}

func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	supplier, ok := h.load(w, r)
	if !ok {
		return
	}
	h.renderForm(w, r, supplierForm{
		ID:           supplier.ID,
		SupplierName: supplier.SupplierName,
		ContactInfo:  supplier.ContactInfo,
	}, nil, http.StatusOK)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	formID, _ := strconv.ParseInt(r.PostFormValue("id"), 10, 64)
	input := UpdateInput{
		ID:           formID,
		SupplierName: r.PostFormValue("supplierName"),
		ContactInfo:  r.PostFormValue("contactInfo"),
		ActorID:      internalShared.ActorIDFromContext(r.Context()),
	}
	if _, err := h.service.Update(r.Context(), id, input); err != nil {
		form := supplierForm{ID: id, SupplierName: input.SupplierName, ContactInfo: input.ContactInfo}
		h.formError(w, r, form, err)
		return
	}

	h.logger.Info("supplier updated", slog.Int64("supplier_id", id))
	h.redirectWithFlash(w, r, listPath, "success", "Supplier updated successfully")
}

func (h *Handler) DeleteConfirm(w http.ResponseWriter, r *http.Request) {
	supplier, ok := h.load(w, r)
	if !ok {
		return
	}
	h.render(w, r, tplDelete, "Delete supplier", map[string]any{
		"Supplier": supplier,
	}, http.StatusOK)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	// Unparseable ids delete nothing; the service treats them as a no-op.
	id, _ := pathID(r)
	if err := h.service.Delete(r.Context(), id, internalShared.ActorIDFromContext(r.Context())); err != nil {
		h.logger.Error("delete supplier failed", slog.Any("error", err), slog.Int64("supplier_id", id))
		h.redirectWithFlash(w, r, listPath, "error", "Failed to delete supplier")
		return
	}

	h.redirectWithFlash(w, r, listPath, "success", "Supplier deleted successfully")
}

// load resolves the {id} path parameter, answering 404 itself when the
// supplier cannot be shown.
func (h *Handler) load(w http.ResponseWriter, r *http.Request) (Supplier, bool) {
	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return Supplier{}, false
	}
	supplier, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return Supplier{}, false
		}
		h.logger.Error("get supplier failed", slog.Any("error", err), slog.Int64("supplier_id", id))
		http.Error(w, "Failed to load supplier", http.StatusInternalServerError)
		return Supplier{}, false
	}
	return supplier, true
}

func (h *Handler) formError(w http.ResponseWriter, r *http.Request, form supplierForm, err error) {
	switch {
	case errors.Is(err, shared.ErrValidation):
		h.renderForm(w, r, form, FieldErrors(err), http.StatusBadRequest)
	case errors.Is(err, shared.ErrNotFound):
		http.NotFound(w, r)
	case errors.Is(err, shared.ErrConflict):
		h.renderForm(w, r, form, map[string]string{"general": msgConflict}, http.StatusConflict)
	default:
		h.logger.Error("save supplier failed", slog.Any("error", err), slog.Int64("supplier_id", form.ID))
		h.renderForm(w, r, form, map[string]string{"general": "Failed to save supplier"}, http.StatusInternalServerError)
	}
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, form supplierForm, errs map[string]string, status int) {
	if errs == nil {
		errs = map[string]string{}
	}
	title, action := "New supplier", listPath
	if form.ID > 0 {
		title, action = "Edit supplier", listPath+"/"+strconv.FormatInt(form.ID, 10)+"/edit"
	}
	h.render(w, r, tplForm, title, map[string]any{
		"Form":   form,
		"Errors": errs,
		"IsEdit": form.ID > 0,
		"Action": action,
	}, status)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template, title string, data map[string]any, status int) {
	sess := internalShared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *internalShared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	_, signedIn := sess.UserID()
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		SignedIn:    signedIn,
		Data:        data,
	}
	if err := h.templates.Render(w, status, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err), slog.String("template", template))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := internalShared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(internalShared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
