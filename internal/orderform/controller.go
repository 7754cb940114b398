package orderform

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/atelierhq/atelier-admin/pkg/models"
)

// ErrSubmitInFlight is returned when a save for the same order is already
// running; the caller should treat it like a disabled submit button.
var ErrSubmitInFlight = errors.New("a submission for this order is already in flight")

// Reader is the slice of the records store the controller needs to seed an
// edit form.
type Reader interface {
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ListOrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error)
}

// Writer is the slice of the records store the controller writes through.
type Writer interface {
	InsertOrder(ctx context.Context, order models.Order) error
	UpdateOrder(ctx context.Context, id string, patch map[string]interface{}) error
	DeleteOrderItems(ctx context.Context, orderID string) error
	InsertOrderItems(ctx context.Context, items []models.OrderItem) error
}

// Controller drives the order editor: it seeds forms from stored rows and
// persists the whole order aggregate. The save sequence is three separate
// gateway writes with no transaction around them; a failure aborts the
// remaining steps but does not undo completed ones.
type Controller struct {
	writer Writer
	logger *logrus.Logger

	mutex    sync.Mutex
	inFlight map[string]struct{}
}

func NewController(writer Writer, logger *logrus.Logger) *Controller {
	return &Controller{
		writer:   writer,
		logger:   logger,
		inFlight: make(map[string]struct{}),
	}
}

// Load seeds an edit form for an existing order.
func (c *Controller) Load(ctx context.Context, reader Reader, orderID string) (*Form, error) {
	order, err := reader.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	items, err := reader.ListOrderItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return FromOrder(order, items), nil
}

// Save persists an edited order: (1) update the header with recomputed
// totals, (2) delete every existing item row, (3) insert the replacement
// item set. Item identifiers are regenerated on every save.
func (c *Controller) Save(ctx context.Context, form *Form) (*models.Order, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}

	if !c.acquire(form.OrderID) {
		return nil, ErrSubmitInFlight
	}
	defer c.release(form.OrderID)

	totals := form.Totals()
	now := time.Now().UTC()

	patch := map[string]interface{}{
		"customer_name":   form.CustomerName,
		"customer_phone":  form.CustomerPhone,
		"status":          form.Status,
		"fabric_price":    form.FabricPrice,
		"tailoring_price": form.TailoringPrice,
		"extra_costs":     form.ExtraCosts,
		"tax_amount":      form.TaxAmount,
		"total_price":     totals.TotalPrice,
		"total_pieces":    totals.TotalPieces,
		"notes":           form.Notes,
		"images":          form.Images,
		"updated_at":      now,
	}

	if err := c.writer.UpdateOrder(ctx, form.OrderID, patch); err != nil {
		c.logger.WithError(err).WithField("order_id", form.OrderID).Error("Order header update failed")
		return nil, err
	}

	if err := c.writer.DeleteOrderItems(ctx, form.OrderID); err != nil {
		c.logger.WithError(err).WithField("order_id", form.OrderID).Error("Order item delete failed, header already updated")
		return nil, err
	}

	items := form.buildItems(form.OrderID)
	if err := c.writer.InsertOrderItems(ctx, items); err != nil {
		c.logger.WithError(err).WithField("order_id", form.OrderID).Error("Order item insert failed, item set already deleted")
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"order_id":     form.OrderID,
		"total_price":  totals.TotalPrice,
		"total_pieces": totals.TotalPieces,
		"items_count":  len(items),
	}).Info("Order saved")

	return c.assemble(form, totals, now), nil
}

// Create inserts a new order header and its item set. The order number is
// assigned server-side by the gateway when left empty.
func (c *Controller) Create(ctx context.Context, form *Form) (*models.Order, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}

	if form.OrderID == "" {
		form.OrderID = uuid.New().String()
	}

	if !c.acquire(form.OrderID) {
		return nil, ErrSubmitInFlight
	}
	defer c.release(form.OrderID)

	totals := form.Totals()
	now := time.Now().UTC()

	order := *c.assemble(form, totals, now)
	order.CreatedAt = now

	if err := c.writer.InsertOrder(ctx, order); err != nil {
		c.logger.WithError(err).WithField("order_id", order.ID).Error("Order insert failed")
		return nil, err
	}

	if err := c.writer.InsertOrderItems(ctx, form.buildItems(order.ID)); err != nil {
		c.logger.WithError(err).WithField("order_id", order.ID).Error("Order item insert failed, header already created")
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"total_price":  order.TotalPrice,
		"items_count":  len(form.Items),
	}).Info("Order created")

	return &order, nil
}

func (c *Controller) acquire(orderID string) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if _, busy := c.inFlight[orderID]; busy {
		return false
	}
	c.inFlight[orderID] = struct{}{}
	return true
}

func (c *Controller) release(orderID string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.inFlight, orderID)
}

// buildItems materializes the current item list as fresh rows. Line totals
// are recomputed as quantity×unitPrice at this point, whatever the form
// carried before.
func (f *Form) buildItems(orderID string) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(f.Items))
	for _, item := range f.Items {
		items = append(items, models.OrderItem{
			ID:          uuid.New().String(),
			OrderID:     orderID,
			ProductName: item.ProductName,
			Model:       item.Model,
			Size:        item.Size,
			Quantity:    item.Quantity,
			Meters:      item.Meters,
			UnitPrice:   item.UnitPrice,
			LineTotal:   float64(item.Quantity) * item.UnitPrice,
		})
	}
	return items
}

func (c *Controller) assemble(form *Form, totals Totals, updatedAt time.Time) *models.Order {
	return &models.Order{
		ID:             form.OrderID,
		OrderNo:        form.OrderNo,
		CustomerName:   form.CustomerName,
		CustomerPhone:  form.CustomerPhone,
		Status:         form.Status,
		FabricPrice:    form.FabricPrice,
		TailoringPrice: form.TailoringPrice,
		ExtraCosts:     form.ExtraCosts,
		TaxAmount:      form.TaxAmount,
		TotalPrice:     totals.TotalPrice,
		TotalPieces:    totals.TotalPieces,
		Notes:          form.Notes,
		Images:         form.Images,
		UpdatedAt:      updatedAt,
	}
}
