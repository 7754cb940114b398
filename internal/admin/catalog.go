package admin

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/atelierhq/atelier-admin/internal/gateway"
	"github.com/atelierhq/atelier-admin/internal/views"
)

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.directory.ListProducts(r.Context())
	if err != nil {
		// Same treatment as the order list: empty browse screen, no alert.
		products = nil
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"products": views.ProductList(products),
		"count":    len(products),
	})
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID := mux.Vars(r)["id"]

	product, err := h.directory.GetProduct(r.Context(), productID)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			h.respondWithError(w, http.StatusNotFound, "Product not found")
			return
		}
		h.respondWithError(w, http.StatusBadGateway, "Failed to load product")
		return
	}

	h.respondWithJSON(w, http.StatusOK, product)
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats := h.directory.GetDashboardStats(r.Context())
	h.respondWithJSON(w, http.StatusOK, views.DashboardView(stats))
}
