package handler

import (
	"net/http"

	"github.com/brizuela-go/takeorderhd/internal/catalog"
	"github.com/brizuela-go/takeorderhd/internal/mirror"
	"github.com/brizuela-go/takeorderhd/internal/model"
	"github.com/go-chi/chi/v5"
)

// CatalogHandler serves read-only views over the mirrors.
type CatalogHandler struct {
	mirrors *mirror.Set
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(mirrors *mirror.Set) *CatalogHandler {
	return &CatalogHandler{mirrors: mirrors}
}

// RegisterRoutes registers the mirror read endpoints on the given Chi router.
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/tables", h.Tables)
	r.Get("/waiters", h.Waiters)
	r.Get("/categories", h.Categories)
	r.Get("/items", h.Items)
	r.Get("/catalog", h.Catalog)
	r.Get("/orders/active", h.ActiveOrders)
}

// --- Response types ---

type catalogResponse struct {
	Query  string          `json:"query"`
	Groups []catalog.Group `json:"groups"`
}

type activeOrderResponse struct {
	model.Order
	ItemsDisplay string `json:"items_display"`
}

// --- Handlers ---

// Tables handles GET /tables.
func (h *CatalogHandler) Tables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.mirrors.Tables.Snapshot())
}

// Waiters handles GET /waiters.
func (h *CatalogHandler) Waiters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.mirrors.Waiters.Snapshot())
}

// Categories handles GET /categories.
func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.mirrors.Categories.Snapshot())
}

// Items handles GET /items.
func (h *CatalogHandler) Items(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.mirrors.Items.Snapshot())
}

// Catalog handles GET /catalog?q=. The query only narrows what is shown.
func (h *CatalogHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	writeJSON(w, http.StatusOK, catalogResponse{
		Query:  q,
		Groups: catalog.FilterAndGroup(h.mirrors.Items.Snapshot(), q),
	})
}

// ActiveOrders handles GET /orders/active.
func (h *CatalogHandler) ActiveOrders(w http.ResponseWriter, r *http.Request) {
	orders := h.mirrors.ActiveOrders.Snapshot()
	resp := make([]activeOrderResponse, len(orders))
	for i, o := range orders {
		resp[i] = activeOrderResponse{Order: o, ItemsDisplay: o.Items.Display()}
	}
	writeJSON(w, http.StatusOK, resp)
}
