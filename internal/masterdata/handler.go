// Package masterdata exposes CRUD endpoints for customers, suppliers,
// warehouses and products.
package masterdata

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/masterdata/customers"
	"github.com/meridian-erp/meridian-erp/internal/masterdata/products"
	"github.com/meridian-erp/meridian-erp/internal/masterdata/shared"
	"github.com/meridian-erp/meridian-erp/internal/masterdata/suppliers"
	"github.com/meridian-erp/meridian-erp/internal/masterdata/warehouses"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/rbac"
	internalShared "github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler manages master data endpoints.
type Handler struct {
	logger     *slog.Logger
	customers  *customers.Service
	suppliers  *suppliers.Service
	warehouses *warehouses.Service
	products   *products.Service
	rbac       rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, customerSvc *customers.Service, supplierSvc *suppliers.Service, warehouseSvc *warehouses.Service, productSvc *products.Service, rbacMw rbac.Middleware) *Handler {
	return &Handler{
		logger:     logger,
		customers:  customerSvc,
		suppliers:  supplierSvc,
		warehouses: warehouseSvc,
		products:   productSvc,
		rbac:       rbacMw,
	}
}

// MountRoutes registers master data routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require("customers:view"))
		r.Get("/customers", h.listCustomers)
		r.Get("/customers/{id}", h.showCustomer)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require("customers:manage"))
		r.Post("/customers", h.createCustomer)
		r.Put("/customers/{id}", h.updateCustomer)
		r.Delete("/customers/{id}", h.deleteCustomer)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require("suppliers:view"))
		r.Get("/suppliers", h.listSuppliers)
		r.Get("/suppliers/{id}", h.showSupplier)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require("suppliers:manage"))
		r.Post("/suppliers", h.createSupplier)
		r.Put("/suppliers/{id}", h.updateSupplier)
		r.Delete("/suppliers/{id}", h.deleteSupplier)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require("warehouses:view"))
		r.Get("/warehouses", h.listWarehouses)
		r.Get("/warehouses/{id}", h.showWarehouse)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require("warehouses:manage"))
		r.Post("/warehouses", h.createWarehouse)
		r.Put("/warehouses/{id}", h.updateWarehouse)
		r.Delete("/warehouses/{id}", h.deleteWarehouse)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require("products:view"))
		r.Get("/products", h.listProducts)
		r.Get("/products/{id}", h.showProduct)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require("products:manage"))
		r.Post("/products", h.createProduct)
	})
}

func parseFilters(r *http.Request) shared.ListFilters {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	filters := shared.ListFilters{
		Page:   page,
		Limit:  limit,
		Search: r.URL.Query().Get("search"),
	}
	if raw := r.URL.Query().Get("branch_id"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filters.BranchID = &parsed
		}
	}
	if raw := r.URL.Query().Get("category"); raw != "" {
		filters.Category = &raw
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		filters.Status = &raw
	}
	if raw := r.URL.Query().Get("active"); raw != "" {
		active := raw == "true" || raw == "1"
		filters.IsActive = &active
	}
	return filters
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) respondErr(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, shared.ErrDuplicate):
		httpx.RespondError(w, httpx.ErrDuplicate)
	case errors.Is(err, shared.ErrInvalidID), errors.Is(err, shared.ErrRequiredField):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

type listResponse[T any] struct {
	Items      []T                       `json:"items"`
	Pagination internalShared.Pagination `json:"pagination"`
}

// ---------------------------------------------------------------------------
// Customers

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	filters := parseFilters(r)
	items, total, err := h.customers.List(r.Context(), filters)
	if err != nil {
		h.respondErr(w, "list customers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse[customers.Customer]{
		Items:      items,
		Pagination: internalShared.NewPagination(filters.Page, filters.PageLimit(), total),
	})
}

func (h *Handler) showCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	customer, err := h.customers.Get(r.Context(), id)
	if err != nil {
		h.respondErr(w, "get customer", err)
		return
	}
	httpx.JSON(w, http.StatusOK, customer)
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var customer customers.Customer
	if err := httpx.DecodeJSON(r, &customer); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	created, err := h.customers.Create(r.Context(), customer)
	if err != nil {
		h.respondErr(w, "create customer", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) updateCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var customer customers.Customer
	if err := httpx.DecodeJSON(r, &customer); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.customers.Update(r.Context(), id, customer); err != nil {
		h.respondErr(w, "update customer", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.customers.Delete(r.Context(), id); err != nil {
		h.respondErr(w, "delete customer", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ---------------------------------------------------------------------------
// Suppliers

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	filters := parseFilters(r)
	items, total, err := h.suppliers.List(r.Context(), filters)
	if err != nil {
		h.respondErr(w, "list suppliers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse[suppliers.Supplier]{
		Items:      items,
		Pagination: internalShared.NewPagination(filters.Page, filters.PageLimit(), total),
	})
}

func (h *Handler) showSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	supplier, err := h.suppliers.Get(r.Context(), id)
	if err != nil {
		h.respondErr(w, "get supplier", err)
		return
	}
	httpx.JSON(w, http.StatusOK, supplier)
}

func (h *Handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	var supplier suppliers.Supplier
	if err := httpx.DecodeJSON(r, &supplier); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	created, err := h.suppliers.Create(r.Context(), supplier)
	if err != nil {
		h.respondErr(w, "create supplier", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) updateSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var supplier suppliers.Supplier
	if err := httpx.DecodeJSON(r, &supplier); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.suppliers.Update(r.Context(), id, supplier); err != nil {
		h.respondErr(w, "update supplier", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) deleteSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.suppliers.Delete(r.Context(), id); err != nil {
		h.respondErr(w, "delete supplier", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ---------------------------------------------------------------------------
// Warehouses

func (h *Handler) listWarehouses(w http.ResponseWriter, r *http.Request) {
	filters := parseFilters(r)
	items, total, err := h.warehouses.List(r.Context(), filters)
	if err != nil {
		h.respondErr(w, "list warehouses", err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse[warehouses.Warehouse]{
		Items:      items,
		Pagination: internalShared.NewPagination(filters.Page, filters.PageLimit(), total),
	})
}

func (h *Handler) showWarehouse(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	warehouse, err := h.warehouses.Get(r.Context(), id)
	if err != nil {
		h.respondErr(w, "get warehouse", err)
		return
	}
	httpx.JSON(w, http.StatusOK, warehouse)
}

func (h *Handler) createWarehouse(w http.ResponseWriter, r *http.Request) {
	var warehouse warehouses.Warehouse
	if err := httpx.DecodeJSON(r, &warehouse); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	created, err := h.warehouses.Create(r.Context(), warehouse)
	if err != nil {
		h.respondErr(w, "create warehouse", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) updateWarehouse(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var warehouse warehouses.Warehouse
	if err := httpx.DecodeJSON(r, &warehouse); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.warehouses.Update(r.Context(), id, warehouse); err != nil {
		h.respondErr(w, "update warehouse", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) deleteWarehouse(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.warehouses.Delete(r.Context(), id); err != nil {
		h.respondErr(w, "delete warehouse", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ---------------------------------------------------------------------------
// Products

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	filters := parseFilters(r)
	items, total, err := h.products.List(r.Context(), filters)
	if err != nil {
		h.respondErr(w, "list products", err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse[products.Product]{
		Items:      items,
		Pagination: internalShared.NewPagination(filters.Page, filters.PageLimit(), total),
	})
}

func (h *Handler) showProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	product, err := h.products.Get(r.Context(), id)
	if err != nil {
		h.respondErr(w, "get product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var product products.Product
	if err := httpx.DecodeJSON(r, &product); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	created, err := h.products.Create(r.Context(), product)
	if err != nil {
		h.respondErr(w, "create product", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}
