package models

import (
	"time"
)

// Order statuses accepted by the admin panel. The gateway stores the raw
// string, so unknown values can still come back from old rows.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

type Order struct {
	ID             string    `json:"id"`
	OrderNo        string    `json:"order_no"`
	CustomerName   string    `json:"customer_name"`
	CustomerPhone  string    `json:"customer_phone"`
	Status         string    `json:"status"`
	FabricPrice    float64   `json:"fabric_price"`
	TailoringPrice float64   `json:"tailoring_price"`
	ExtraCosts     float64   `json:"extra_costs"`
	TaxAmount      float64   `json:"tax_amount"`
	TotalPrice     float64   `json:"total_price"`
	TotalPieces    int       `json:"total_pieces"`
	Notes          string    `json:"notes"`
	Images         []string  `json:"images"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type OrderItem struct {
	ID          string  `json:"id"`
	OrderID     string  `json:"order_id"`
	ProductName string  `json:"product_name"`
	Model       string  `json:"model"`
	Size        string  `json:"size"`
	Quantity    int     `json:"quantity"`
	Meters      float64 `json:"meters"`
	UnitPrice   float64 `json:"unit_price"`
	LineTotal   float64 `json:"line_total"`
}

type OrderResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Order   *Order `json:"order,omitempty"`
}
