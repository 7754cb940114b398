package records

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/atelierhq/atelier-admin/internal/gateway"
	"github.com/atelierhq/atelier-admin/pkg/models"
)

const (
	TableOrders     = "orders"
	TableOrderItems = "order_items"
	TableProducts   = "products"
	TableCustomers  = "customers"
	TableProfiles   = "profiles"
)

// Store is the typed face of the data gateway: one read routine per screen,
// plus the write operations the order editor needs. It owns no state beyond
// the gateway client.
type Store struct {
	gw     *gateway.Client
	logger *logrus.Logger
}

func NewStore(gw *gateway.Client, logger *logrus.Logger) *Store {
	return &Store{gw: gw, logger: logger}
}

func (s *Store) ListOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	q := gateway.NewQuery().OrderBy("created_at", true)
	if err := s.gw.Select(ctx, TableOrders, q, &orders); err != nil {
		s.logger.WithError(err).Error("Failed to fetch orders")
		return nil, err
	}
	return orders, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	q := gateway.NewQuery().Eq("id", id)
	if err := s.gw.SelectSingle(ctx, TableOrders, q, &order); err != nil {
		s.logger.WithError(err).WithField("order_id", id).Error("Failed to fetch order")
		return nil, err
	}
	return &order, nil
}

func (s *Store) ListOrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	var items []models.OrderItem
	q := gateway.NewQuery().Eq("order_id", orderID)
	if err := s.gw.Select(ctx, TableOrderItems, q, &items); err != nil {
		s.logger.WithError(err).WithField("order_id", orderID).Error("Failed to fetch order items")
		return nil, err
	}
	return items, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	q := gateway.NewQuery().OrderBy("created_at", true)
	if err := s.gw.Select(ctx, TableProducts, q, &products); err != nil {
		s.logger.WithError(err).Error("Failed to fetch products")
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	q := gateway.NewQuery().Eq("id", id)
	if err := s.gw.SelectSingle(ctx, TableProducts, q, &product); err != nil {
		s.logger.WithError(err).WithField("product_id", id).Error("Failed to fetch product")
		return nil, err
	}
	return &product, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	var customers []models.Customer
	q := gateway.NewQuery().OrderBy("created_at", true)
	if err := s.gw.Select(ctx, TableCustomers, q, &customers); err != nil {
		s.logger.WithError(err).Error("Failed to fetch customers")
		return nil, err
	}
	return customers, nil
}

func (s *Store) GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var profile models.Profile
	q := gateway.NewQuery().Eq("email", email)
	if err := s.gw.SelectSingle(ctx, TableProfiles, q, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// InsertOrder creates a new order header. The order number is left to the
// gateway's server-side generator when empty.
func (s *Store) InsertOrder(ctx context.Context, order models.Order) error {
	if err := s.gw.Insert(ctx, TableOrders, order); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

// UpdateOrder patches the order header row identified by id.
func (s *Store) UpdateOrder(ctx context.Context, id string, patch map[string]interface{}) error {
	q := gateway.NewQuery().Eq("id", id)
	if err := s.gw.Update(ctx, TableOrders, q, patch); err != nil {
		return fmt.Errorf("failed to update order %s: %w", id, err)
	}
	return nil
}

// DeleteOrderItems removes every item row referencing the order.
func (s *Store) DeleteOrderItems(ctx context.Context, orderID string) error {
	q := gateway.NewQuery().Eq("order_id", orderID)
	if err := s.gw.Delete(ctx, TableOrderItems, q); err != nil {
		return fmt.Errorf("failed to delete items of order %s: %w", orderID, err)
	}
	return nil
}

// InsertOrderItems writes the full replacement item set in one batch.
func (s *Store) InsertOrderItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	if err := s.gw.Insert(ctx, TableOrderItems, items); err != nil {
		return fmt.Errorf("failed to insert order items: %w", err)
	}
	return nil
}
