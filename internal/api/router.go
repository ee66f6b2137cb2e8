package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"medeasy/pos/internal/auth"
	"medeasy/pos/internal/catalog"
	"medeasy/pos/internal/checkout"
	"medeasy/pos/internal/inventory"
	"medeasy/pos/internal/store"
)

// Options bundles the dependencies of the HTTP handlers.
type Options struct {
	Store    *store.Store
	Catalog  *catalog.Reader
	Checkout *checkout.Service
	Tokens   *auth.Tokens
	Alerts   inventory.Options
	Logger   *slog.Logger
}

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	catalog  *catalog.Reader
	checkout *checkout.Service
	tokens   *auth.Tokens
	identity auth.Identity
	alerts   inventory.Options
	logger   *slog.Logger
	now      func() time.Time
}

// New constructs a Handler.
func New(opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Handler{
		store:    opts.Store,
		catalog:  opts.Catalog,
		checkout: opts.Checkout,
		tokens:   opts.Tokens,
		alerts:   opts.Alerts,
		logger:   opts.Logger,
		now:      time.Now,
	}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(h.authMiddleware)

		pr.Put("/users/{id}/roles", h.setRoles)

		pr.Route("/drugs", func(r chi.Router) {
			r.Get("/", h.listDrugs)
			r.Post("/", h.createDrug)
			r.Get("/alerts", h.drugAlerts)
			r.Get("/{id}", h.getDrug)
			r.Put("/{id}", h.updateDrug)
			r.Delete("/{id}", h.deleteDrug)
		})

		pr.Route("/suppliers", func(r chi.Router) {
			r.Get("/", h.listSuppliers)
			r.Post("/", h.createSupplier)
			r.Get("/{id}", h.getSupplier)
			r.Put("/{id}", h.updateSupplier)
			r.Delete("/{id}", h.deleteSupplier)
		})

		pr.Route("/assessments", func(r chi.Router) {
			r.Get("/", h.listAssessments)
			r.Post("/", h.createAssessment)
			r.Get("/{id}", h.getAssessment)
		})

		pr.Route("/pos", func(r chi.Router) {
			r.Get("/catalog", h.posCatalog)
			r.Post("/sessions", h.openSession)
			r.Route("/sessions/{id}", func(r chi.Router) {
				r.Get("/", h.getSession)
				r.Delete("/", h.discardSession)
				r.Post("/items", h.addItem)
				r.Delete("/items", h.clearCart)
				r.Put("/items/{productID}", h.setQuantity)
				r.Delete("/items/{productID}", h.removeItem)
				r.Get("/violations", h.violations)
				r.Post("/commit", h.commit)
			})
		})

		pr.Route("/sales", func(r chi.Router) {
			r.Get("/", h.listSales)
			r.Get("/mine", h.mySales)
			r.Get("/{id}", h.getSale)
		})

		pr.Get("/reports/sales", h.salesReport)

		pr.Route("/reconciliations", func(r chi.Router) {
			r.Get("/", h.listReconciliations)
			r.Post("/{id}/resolve", h.resolveReconciliation)
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
