// Package views maps stored rows to the response fragments the admin
// screens render. Everything here is a pure function of its input.
package views

import (
	"github.com/atelierhq/atelier-admin/internal/records"
	"github.com/atelierhq/atelier-admin/pkg/models"
)

// StatusInfo carries the display label and visual variant for an order
// status badge.
type StatusInfo struct {
	Value   string `json:"value"`
	Label   string `json:"label"`
	Variant string `json:"variant"`
}

var statusTable = map[string]StatusInfo{
	models.StatusPending:   {Value: models.StatusPending, Label: "In progress", Variant: "outline"},
	models.StatusCompleted: {Value: models.StatusCompleted, Label: "Complete", Variant: "solid"},
	models.StatusCancelled: {Value: models.StatusCancelled, Label: "Cancelled", Variant: "destructive"},
}

// StatusOf resolves the badge for a status value. Anything outside the known
// set renders with a neutral fallback instead of failing.
func StatusOf(status string) StatusInfo {
	if info, ok := statusTable[status]; ok {
		return info
	}
	return StatusInfo{Value: status, Label: status, Variant: "neutral"}
}

type OrderRow struct {
	models.Order
	StatusInfo StatusInfo `json:"status_info"`
}

type OrderDetail struct {
	models.Order
	StatusInfo StatusInfo         `json:"status_info"`
	Items      []models.OrderItem `json:"items"`
}

func OrderList(orders []models.Order) []OrderRow {
	rows := make([]OrderRow, 0, len(orders))
	for _, order := range orders {
		rows = append(rows, OrderRow{Order: order, StatusInfo: StatusOf(order.Status)})
	}
	return rows
}

func OrderView(order models.Order, items []models.OrderItem) OrderDetail {
	if items == nil {
		items = []models.OrderItem{}
	}
	return OrderDetail{
		Order:      order,
		StatusInfo: StatusOf(order.Status),
		Items:      items,
	}
}

// ProductList guarantees a non-null array for the product browser.
func ProductList(products []models.Product) []models.Product {
	if products == nil {
		return []models.Product{}
	}
	return products
}

type Dashboard struct {
	TotalOrders    int            `json:"total_orders"`
	OrdersByStatus map[string]int `json:"orders_by_status"`
	TotalProducts  int            `json:"total_products"`
	TotalCustomers int            `json:"total_customers"`
	Recent         []OrderRow     `json:"recent_orders"`
}

func DashboardView(stats *records.DashboardStats) Dashboard {
	return Dashboard{
		TotalOrders:    stats.TotalOrders,
		OrdersByStatus: stats.OrdersByStatus,
		TotalProducts:  stats.TotalProducts,
		TotalCustomers: stats.TotalCustomers,
		Recent:         OrderList(stats.Recent),
	}
}
