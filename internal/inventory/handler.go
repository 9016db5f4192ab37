// Package inventory tracks the warehouse stock ledger. Stock is held as
// insert-only ledger rows that are depleted oldest-first when goods leave a
// warehouse.
package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/rbac"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes stock endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	rbac     rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbacMw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New(), rbac: rbacMw}
}

// MountRoutes registers stock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require("stock:view"))
		r.Get("/stock", h.levels)
		r.Get("/stock/movements", h.movements)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require("stock:transfer"))
		r.Post("/stock/transfer", h.transfer)
	})
}

func (h *Handler) levels(w http.ResponseWriter, r *http.Request) {
	warehouseID, productID := queryIDs(r)
	levels, err := h.service.Levels(r.Context(), warehouseID, productID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]interface{}{"data": levels})
}

func (h *Handler) movements(w http.ResponseWriter, r *http.Request) {
	warehouseID, productID := queryIDs(r)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	movements, total, err := h.service.Movements(r.Context(), warehouseID, productID, limit, offset)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]interface{}{
		"data":  movements,
		"total": total,
	})
}

func (h *Handler) transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	var userID int64
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		userID = sess.UserID()
	}
	if err := h.service.Transfer(r.Context(), req, userID); err != nil {
		h.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInsufficientStock):
		httpx.Problem(w, http.StatusConflict, "Insufficient Stock", err.Error())
	case errors.Is(err, ErrSameWarehouse):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	default:
		h.logger.Error("inventory handler", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func queryIDs(r *http.Request) (warehouseID, productID *int64) {
	if raw := r.URL.Query().Get("warehouse_id"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			warehouseID = &v
		}
	}
	if raw := r.URL.Query().Get("product_id"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			productID = &v
		}
	}
	return warehouseID, productID
}
