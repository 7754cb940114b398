package records

import (
	"context"

	"github.com/atelierhq/atelier-admin/pkg/models"
)

type DashboardStats struct {
	TotalOrders    int            `json:"total_orders"`
	OrdersByStatus map[string]int `json:"orders_by_status"`
	TotalProducts  int            `json:"total_products"`
	TotalCustomers int            `json:"total_customers"`
	Recent         []models.Order `json:"recent_orders"`
}

// GetDashboardStats aggregates the dashboard counters client-side from plain
// table reads, the way the admin screens do everywhere else. A failed read
// leaves its counter at zero rather than failing the whole dashboard.
func (s *Store) GetDashboardStats(ctx context.Context) *DashboardStats {
	stats := &DashboardStats{
		OrdersByStatus: make(map[string]int),
	}

	orders, err := s.ListOrders(ctx)
	if err == nil {
		stats.TotalOrders = len(orders)
		for _, order := range orders {
			stats.OrdersByStatus[order.Status]++
		}
		if len(orders) > 5 {
			stats.Recent = orders[:5]
		} else {
			stats.Recent = orders
		}
	}

	products, err := s.ListProducts(ctx)
	if err == nil {
		stats.TotalProducts = len(products)
	}

	customers, err := s.ListCustomers(ctx)
	if err == nil {
		stats.TotalCustomers = len(customers)
	}

	return stats
}
