package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/atelierhq/atelier-admin/internal/auth"
	"github.com/atelierhq/atelier-admin/internal/events"
	"github.com/atelierhq/atelier-admin/internal/gateway"
	"github.com/atelierhq/atelier-admin/internal/orderform"
	"github.com/atelierhq/atelier-admin/internal/views"
	"github.com/atelierhq/atelier-admin/pkg/models"
)

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.directory.ListOrders(r.Context())
	if err != nil {
		// The list screen shows an empty table rather than an error page.
		h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"orders":  []views.OrderRow{},
			"count":   0,
		})
		return
	}

	rows := views.OrderList(orders)
	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"orders":  rows,
		"count":   len(rows),
	})
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]

	order, err := h.directory.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			h.respondWithError(w, http.StatusNotFound, "Order not found")
			return
		}
		h.respondWithError(w, http.StatusBadGateway, "Failed to load order")
		return
	}

	items, err := h.directory.ListOrderItems(r.Context(), orderID)
	if err != nil {
		h.respondWithError(w, http.StatusBadGateway, "Failed to load order items")
		return
	}

	h.respondWithJSON(w, http.StatusOK, views.OrderView(*order, items))
}

// GetOrderForm returns the seeded editor state for an existing order,
// numeric coercion applied.
func (h *Handler) GetOrderForm(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]

	form, err := h.controller.Load(r.Context(), h.directory, orderID)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			h.respondWithError(w, http.StatusNotFound, "Order not found")
			return
		}
		h.respondWithError(w, http.StatusBadGateway, "Failed to load order")
		return
	}

	h.respondWithJSON(w, http.StatusOK, form)
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var form orderform.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		h.logger.WithError(err).Error("Failed to decode order form")
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if form.Status == "" {
		form.Status = models.StatusPending
	}

	order, err := h.controller.Create(r.Context(), &form)
	if err != nil {
		h.respondOrderError(w, err, "Failed to create order")
		return
	}

	h.announce(r, order, true)
	h.respondWithJSON(w, http.StatusCreated, models.OrderResponse{
		Success: true,
		Message: "Order created",
		Order:   order,
	})
}

func (h *Handler) SaveOrder(w http.ResponseWriter, r *http.Request) {
	var form orderform.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		h.logger.WithError(err).Error("Failed to decode order form")
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	// The path, not the payload, names the order being edited.
	form.OrderID = mux.Vars(r)["id"]

	order, err := h.controller.Save(r.Context(), &form)
	if err != nil {
		h.respondOrderError(w, err, "Failed to save order")
		return
	}

	h.announce(r, order, false)
	h.respondWithJSON(w, http.StatusOK, models.OrderResponse{
		Success: true,
		Message: "Order saved",
		Order:   order,
	})
}

// respondOrderError maps controller failures onto the API's error shapes:
// field errors are itemized, everything else stays a generic message.
func (h *Handler) respondOrderError(w http.ResponseWriter, err error, generic string) {
	var fields orderform.FieldErrors
	switch {
	case errors.As(err, &fields):
		h.respondWithJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"success": false,
			"message": "Validation failed",
			"fields":  fields,
		})
	case errors.Is(err, orderform.ErrSubmitInFlight):
		h.respondWithError(w, http.StatusConflict, "This order is already being saved")
	case errors.Is(err, gateway.ErrNotFound):
		h.respondWithError(w, http.StatusNotFound, "Order not found")
	default:
		h.respondWithError(w, http.StatusBadGateway, generic)
	}
}

// announce publishes the save to Kafka and, failing that, falls back to a
// direct WebSocket broadcast. Event trouble never fails the request.
func (h *Handler) announce(r *http.Request, order *models.Order, created bool) {
	actor := ""
	if session, ok := auth.SessionFromContext(r.Context()); ok {
		actor = session.Email
	}

	event := events.OrderSavedEvent{
		OrderID:     order.ID,
		OrderNo:     order.OrderNo,
		Status:      order.Status,
		TotalPrice:  order.TotalPrice,
		TotalPieces: order.TotalPieces,
		Actor:       actor,
		Created:     created,
		SavedAt:     time.Now(),
	}

	if h.publisher != nil {
		err := h.publisher.PublishOrderSaved(event)
		if err == nil {
			return // the consumer feeds the hub
		}
		h.logger.WithError(err).WithField("order_id", order.ID).Warn("Event publish failed, falling back to direct broadcast")
	}

	if h.hub != nil {
		h.hub.Broadcast("order_saved", event)
	}
}
