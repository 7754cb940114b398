// Package admin wires the staff-facing JSON API: dashboard, order list and
// editor, product browser, and session endpoints.
package admin

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/atelierhq/atelier-admin/internal/auth"
	"github.com/atelierhq/atelier-admin/internal/events"
	"github.com/atelierhq/atelier-admin/internal/orderform"
	"github.com/atelierhq/atelier-admin/internal/records"
	"github.com/atelierhq/atelier-admin/pkg/models"
)

// Directory is the read side of the records store the screens fetch from.
type Directory interface {
	ListOrders(ctx context.Context) ([]models.Order, error)
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ListOrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	GetDashboardStats(ctx context.Context) *records.DashboardStats
}

type Publisher interface {
	PublishOrderSaved(event events.OrderSavedEvent) error
}

type Broadcaster interface {
	Broadcast(event string, payload interface{})
	HandleWebSocket(w http.ResponseWriter, r *http.Request)
}

type Handler struct {
	directory  Directory
	controller *orderform.Controller
	auth       *auth.Service
	publisher  Publisher
	hub        Broadcaster
	logger     *logrus.Logger
}

func NewHandler(directory Directory, controller *orderform.Controller, authService *auth.Service, logger *logrus.Logger) *Handler {
	return &Handler{
		directory:  directory,
		controller: controller,
		auth:       authService,
		logger:     logger,
	}
}

// SetPublisher attaches the Kafka producer; the handler works without one.
func (h *Handler) SetPublisher(publisher Publisher) {
	h.publisher = publisher
}

// SetBroadcaster attaches the WebSocket hub; the handler works without one.
func (h *Handler) SetBroadcaster(hub Broadcaster) {
	h.hub = hub
}

// Register mounts all routes. Everything except /healthz and the login
// endpoint sits behind the session middleware.
func (h *Handler) Register(router *mux.Router) {
	router.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	router.HandleFunc("/api/auth/login", h.Login).Methods("POST", "OPTIONS")

	// Scoped to /api so a typo'd path gets a 404 instead of a 401.
	protected := router.PathPrefix("/api").Subrouter()
	protected.Use(h.auth.Middleware())

	protected.HandleFunc("/auth/logout", h.Logout).Methods("POST", "OPTIONS")
	protected.HandleFunc("/dashboard", h.Dashboard).Methods("GET", "OPTIONS")
	protected.HandleFunc("/orders", h.ListOrders).Methods("GET", "OPTIONS")
	protected.HandleFunc("/orders", h.CreateOrder).Methods("POST", "OPTIONS")
	protected.HandleFunc("/orders/{id}", h.GetOrder).Methods("GET", "OPTIONS")
	protected.HandleFunc("/orders/{id}", h.SaveOrder).Methods("PUT", "OPTIONS")
	protected.HandleFunc("/orders/{id}/form", h.GetOrderForm).Methods("GET", "OPTIONS")
	protected.HandleFunc("/products", h.ListProducts).Methods("GET", "OPTIONS")
	protected.HandleFunc("/products/{id}", h.GetProduct).Methods("GET", "OPTIONS")

	if h.hub != nil {
		ws := router.PathPrefix("/ws").Subrouter()
		ws.Use(h.auth.Middleware())
		ws.HandleFunc("", h.hub.HandleWebSocket)
	}
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "atelier-admin",
	})
}

func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func (h *Handler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]interface{}{
		"success": false,
		"message": message,
	})
}
