package quotations

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/rbac"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes the quotation lifecycle over JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
	audit   *shared.AuditLogger
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, audit *shared.AuditLogger, rbacMw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, audit: audit, rbac: rbacMw}
}

// MountRoutes registers quotation routes. Internal rejection is a separate
// route from customer rejection and further restricted to reviewer roles.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require("quotations:view"))
		r.Get("/quotations", h.list)
		r.Get("/quotations/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require("quotations:create"))
		r.Post("/quotations", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require("quotations:edit"))
		r.Put("/quotations/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require("quotations:submit"))
		r.Post("/quotations/{id}/submit", h.submit)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require("quotations:approve"))
		r.Use(h.rbac.RequireRole(rbac.RoleManager, rbac.RoleDirector))
		r.Post("/quotations/{id}/approve", h.approve)
		r.Post("/quotations/{id}/internal-reject", h.internalReject)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require("quotations:send"))
		r.Post("/quotations/{id}/send", h.send)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require("quotations:respond"))
		r.Post("/quotations/{id}/accept", h.accept)
		r.Post("/quotations/{id}/reject", h.customerReject)
		r.Post("/quotations/{id}/revise", h.revise)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require("quotations:invoice"))
		r.Post("/quotations/{id}/mark-invoiced", h.markInvoiced)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	req := parseListRequest(r)
	items, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]interface{}{
		"data":  items,
		"total": total,
	})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	q, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateQuotationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	q, err := h.service.Create(r.Context(), req, h.userID(r))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.recordAudit(r, "quotation.create", q.ID)
	httpx.JSON(w, http.StatusCreated, q)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var req UpdateQuotationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	q, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.recordAudit(r, "quotation.update", q.ID)
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, "quotation.submit", h.service.Submit)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, "quotation.approve", h.service.Approve)
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, "quotation.send", h.service.Send)
}

func (h *Handler) lifecycle(w http.ResponseWriter, r *http.Request, action string, fn func(ctx context.Context, id, userID int64) (*Quotation, error)) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	q, err := fn(r.Context(), id, h.userID(r))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.recordAudit(r, action, q.ID)
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) accept(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var req AcceptRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	q, err := h.service.Accept(r.Context(), id, req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.recordAudit(r, "quotation.accept", q.ID)
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) customerReject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var req CustomerRejectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	q, err := h.service.CustomerReject(r.Context(), id, req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.recordAudit(r, "quotation.reject", q.ID)
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) internalReject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var req InternalRejectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	q, err := h.service.InternalReject(r.Context(), id, req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.recordAudit(r, "quotation.internal_reject", q.ID)
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) revise(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var req ReviseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	q, err := h.service.Revise(r.Context(), id, req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.recordAudit(r, "quotation.revise", q.ID)
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) markInvoiced(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var req MarkInvoicedRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, httpx.ErrValidation)
			return
		}
	}
	q, err := h.service.MarkInvoiced(r.Context(), id, req, h.userID(r))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.recordAudit(r, "quotation.mark_invoiced", q.ID)
	httpx.JSON(w, http.StatusCreated, q)
}

func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	var vErrs validator.ValidationErrors
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrAlreadyInvoiced):
		httpx.Problem(w, http.StatusBadRequest, "Already Invoiced", err.Error())
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrNotSent), errors.Is(err, ErrNotAccepted):
		httpx.Problem(w, http.StatusBadRequest, "Invalid State", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Duplicate Request", err.Error())
	case errors.As(err, &vErrs):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("quotations handler", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func (h *Handler) userID(r *http.Request) int64 {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		return sess.UserID()
	}
	return 0
}

func (h *Handler) recordAudit(r *http.Request, action string, quotationID int64) {
	if h.audit == nil {
		return
	}
	var branchID int64
	if sess := shared.SessionFromContext(r.Context()); sess != nil && sess.Identity() != nil {
		branchID = sess.Identity().BranchID
	}
	entry := shared.AuditLog{
		ActorID:  h.userID(r),
		BranchID: branchID,
		Action:   action,
		Entity:   "quotation",
		EntityID: strconv.FormatInt(quotationID, 10),
		At:       time.Now(),
	}
	if err := h.audit.Record(r.Context(), entry); err != nil {
		h.logger.Warn("audit record", slog.Any("error", err))
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func parseListRequest(r *http.Request) ListQuotationsRequest {
	q := r.URL.Query()
	req := ListQuotationsRequest{}
	if raw := q.Get("customer_id"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			req.CustomerID = &v
		}
	}
	if raw := q.Get("branch_id"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			req.BranchID = &v
		}
	}
	if raw := q.Get("status"); raw != "" {
		status := QuotationStatus(raw)
		if status.IsValid() {
			req.Status = &status
		}
	}
	if raw := q.Get("date_from"); raw != "" {
		if v, err := time.Parse("2006-01-02", raw); err == nil {
			req.DateFrom = &v
		}
	}
	if raw := q.Get("date_to"); raw != "" {
		if v, err := time.Parse("2006-01-02", raw); err == nil {
			req.DateTo = &v
		}
	}
	if raw := q.Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			req.Limit = v
		}
	}
	if raw := q.Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			req.Offset = v
		}
	}
	return req
}
