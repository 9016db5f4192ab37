package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/auth"
	"github.com/meridian-erp/meridian-erp/internal/delivery"
	"github.com/meridian-erp/meridian-erp/internal/imports"
	"github.com/meridian-erp/meridian-erp/internal/inventory"
	"github.com/meridian-erp/meridian-erp/internal/masterdata"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/rbac"
	"github.com/meridian-erp/meridian-erp/internal/roles"
	"github.com/meridian-erp/meridian-erp/internal/sales/invoices"
	"github.com/meridian-erp/meridian-erp/internal/sales/quotations"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/internal/users"
)

// RouterParams collects every handler the API mounts.
type RouterParams struct {
	Config         *Config
	SessionManager *shared.SessionManager
	RBAC           rbac.Middleware

	AuthHandler       *auth.Handler
	MasterdataHandler *masterdata.Handler
	QuotationHandler  *quotations.Handler
	InvoiceHandler    *invoices.Handler
	DeliveryHandler   *delivery.Handler
	InventoryHandler  *inventory.Handler
	ImportHandler     *imports.Handler
	UserHandler       *users.Handler
	RoleHandler       *roles.Handler

	Middlewares []func(http.Handler) http.Handler
}

// NewRouter assembles the HTTP API. Auth routes are open; everything else
// requires a session and per-route permissions.
func NewRouter(p RouterParams) chi.Router {
	r := chi.NewRouter()
	for _, mw := range p.Middlewares {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			p.AuthHandler.MountRoutes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(p.RBAC.RequireSession)
			p.MasterdataHandler.MountRoutes(r)
			p.QuotationHandler.MountRoutes(r)
			p.InvoiceHandler.MountRoutes(r)
			p.DeliveryHandler.MountRoutes(r)
			p.InventoryHandler.MountRoutes(r)
			p.ImportHandler.MountRoutes(r)
			p.UserHandler.MountRoutes(r)
			p.RoleHandler.MountRoutes(r)
		})
	})

	return r
}
