// Package orderform holds the editable state of a single order: header
// fields, priced surcharges and a variable-length item list. Totals are
// derived from the current state on demand, and saving replaces the order's
// item set wholesale.
package orderform

import (
	"math"

	"github.com/atelierhq/atelier-admin/pkg/models"
)

type Item struct {
	ProductName string  `json:"product_name" validate:"required"`
	Model       string  `json:"model"`
	Size        string  `json:"size"`
	Quantity    int     `json:"quantity" validate:"gte=1"`
	Meters      float64 `json:"meters" validate:"gte=0"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
}

type Form struct {
	OrderID        string   `json:"order_id"`
	OrderNo        string   `json:"order_no"`
	CustomerName   string   `json:"customer_name" validate:"required"`
	CustomerPhone  string   `json:"customer_phone" validate:"required"`
	Status         string   `json:"status" validate:"required,oneof=pending completed cancelled"`
	FabricPrice    float64  `json:"fabric_price" validate:"gte=0"`
	TailoringPrice float64  `json:"tailoring_price" validate:"gte=0"`
	ExtraCosts     float64  `json:"extra_costs" validate:"gte=0"`
	TaxAmount      float64  `json:"tax_amount" validate:"gte=0"`
	Notes          string   `json:"notes"`
	Images         []string `json:"images"`
	Items          []Item   `json:"items" validate:"min=1,dive"`
}

type Totals struct {
	ItemsTotal  float64 `json:"items_total"`
	TotalPieces int     `json:"total_pieces"`
	TotalPrice  float64 `json:"total_price"`
}

// Totals derives the running totals from the current form state:
// itemsTotal = Σ quantity×unitPrice, totalPieces = Σ quantity,
// totalPrice = itemsTotal plus the four surcharge fields.
func (f *Form) Totals() Totals {
	var t Totals
	for _, item := range f.Items {
		t.ItemsTotal += float64(item.Quantity) * item.UnitPrice
		t.TotalPieces += item.Quantity
	}
	t.TotalPrice = t.ItemsTotal + f.FabricPrice + f.TailoringPrice + f.ExtraCosts + f.TaxAmount
	return t
}

// AddItem appends a blank line item with quantity 1 and zero prices.
func (f *Form) AddItem() {
	f.Items = append(f.Items, Item{Quantity: 1})
}

// RemoveItem drops the item at position i. Removing the last remaining item
// is allowed here; validation rejects an empty item list at submit time.
func (f *Form) RemoveItem(i int) {
	if i < 0 || i >= len(f.Items) {
		return
	}
	f.Items = append(f.Items[:i], f.Items[i+1:]...)
}

// FromOrder seeds a form from a stored order and its item rows. Monetary
// fields that arrive missing or unusable default to zero.
func FromOrder(order *models.Order, items []models.OrderItem) *Form {
	form := &Form{
		OrderID:        order.ID,
		OrderNo:        order.OrderNo,
		CustomerName:   order.CustomerName,
		CustomerPhone:  order.CustomerPhone,
		Status:         order.Status,
		FabricPrice:    num(order.FabricPrice),
		TailoringPrice: num(order.TailoringPrice),
		ExtraCosts:     num(order.ExtraCosts),
		TaxAmount:      num(order.TaxAmount),
		Notes:          order.Notes,
		Images:         order.Images,
	}
	if form.Status == "" {
		form.Status = models.StatusPending
	}
	for _, item := range items {
		quantity := item.Quantity
		if quantity < 1 {
			quantity = 1
		}
		form.Items = append(form.Items, Item{
			ProductName: item.ProductName,
			Model:       item.Model,
			Size:        item.Size,
			Quantity:    quantity,
			Meters:      num(item.Meters),
			UnitPrice:   num(item.UnitPrice),
		})
	}
	return form
}

func num(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
