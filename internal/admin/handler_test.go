package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/atelierhq/atelier-admin/internal/auth"
	"github.com/atelierhq/atelier-admin/internal/gateway"
	"github.com/atelierhq/atelier-admin/internal/orderform"
	"github.com/atelierhq/atelier-admin/internal/records"
	"github.com/atelierhq/atelier-admin/pkg/models"
)

type fakeDirectory struct {
	mutex  sync.Mutex
	orders map[string]*models.Order
	items  map[string][]models.OrderItem

	listErr error

	calls []string
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		orders: make(map[string]*models.Order),
		items:  make(map[string][]models.OrderItem),
	}
}

func (d *fakeDirectory) record(call string) {
	d.mutex.Lock()
	d.calls = append(d.calls, call)
	d.mutex.Unlock()
}

func (d *fakeDirectory) ListOrders(ctx context.Context) ([]models.Order, error) {
	d.record("list_orders")
	if d.listErr != nil {
		return nil, d.listErr
	}
	orders := make([]models.Order, 0, len(d.orders))
	for _, o := range d.orders {
		orders = append(orders, *o)
	}
	return orders, nil
}

func (d *fakeDirectory) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	d.record("get_order")
	if order, ok := d.orders[id]; ok {
		return order, nil
	}
	return nil, gateway.ErrNotFound
}

func (d *fakeDirectory) ListOrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	d.record("list_items")
	return d.items[orderID], nil
}

func (d *fakeDirectory) ListProducts(ctx context.Context) ([]models.Product, error) {
	d.record("list_products")
	return []models.Product{{ID: "pr1", Name: "Wool fabric", Active: true}}, nil
}

func (d *fakeDirectory) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	d.record("get_product")
	if id == "pr1" {
		return &models.Product{ID: "pr1", Name: "Wool fabric"}, nil
	}
	return nil, gateway.ErrNotFound
}

func (d *fakeDirectory) GetDashboardStats(ctx context.Context) *records.DashboardStats {
	d.record("dashboard")
	return &records.DashboardStats{
		TotalOrders:    2,
		OrdersByStatus: map[string]int{models.StatusPending: 1, models.StatusCompleted: 1},
		TotalProducts:  1,
		TotalCustomers: 3,
	}
}

// fakeDirectory also stands in as the controller's write side.
func (d *fakeDirectory) InsertOrder(ctx context.Context, order models.Order) error {
	d.record("insert_order")
	d.orders[order.ID] = &order
	return nil
}

func (d *fakeDirectory) UpdateOrder(ctx context.Context, id string, patch map[string]interface{}) error {
	d.record("update_order")
	return nil
}

func (d *fakeDirectory) DeleteOrderItems(ctx context.Context, orderID string) error {
	d.record("delete_items")
	delete(d.items, orderID)
	return nil
}

func (d *fakeDirectory) InsertOrderItems(ctx context.Context, items []models.OrderItem) error {
	d.record("insert_items")
	if len(items) > 0 {
		d.items[items[0].OrderID] = items
	}
	return nil
}

type fakeProfiles struct{}

func (fakeProfiles) GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	if email != "staff@atelier.example" {
		return nil, gateway.ErrNotFound
	}
	hash, _ := bcrypt.GenerateFromPassword([]byte("atelier123"), bcrypt.MinCost)
	return &models.Profile{
		ID:           "p1",
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  "Staff",
		Role:         "admin",
	}, nil
}

type testAPI struct {
	router    *mux.Router
	directory *fakeDirectory
	token     string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	directory := newFakeDirectory()
	controller := orderform.NewController(directory, logger)
	authService := auth.NewService(fakeProfiles{}, auth.NewSessionStore(time.Hour), logger)

	handler := NewHandler(directory, controller, authService, logger)
	router := mux.NewRouter()
	handler.Register(router)

	session, err := authService.SignIn(context.Background(), "staff@atelier.example", "atelier123")
	if err != nil {
		t.Fatalf("test sign-in failed: %v", err)
	}

	return &testAPI{router: router, directory: directory, token: session.Token}
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var payload *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		payload = bytes.NewBuffer(data)
	} else {
		payload = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, payload)
	req.Header.Set("Authorization", "Bearer "+a.token)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func validFormBody() map[string]interface{} {
	return map[string]interface{}{
		"customer_name":   "Ali Kaya",
		"customer_phone":  "555",
		"status":          "pending",
		"fabric_price":    3,
		"tailoring_price": 2,
		"tax_amount":      1,
		"items": []map[string]interface{}{
			{"product_name": "Suit", "quantity": 2, "unit_price": 10},
			{"product_name": "Shirt", "quantity": 1, "unit_price": 5},
		},
	}
}

func TestRoutesRequireSession(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a token, got %d", rec.Code)
	}
}

func TestUnknownRouteReturnsNotFound(t *testing.T) {
	api := newTestAPI(t)

	for _, path := range []string{"/nope", "/api/nope"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		api.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", path, rec.Code)
		}
	}
}

func TestHealthCheckIsPublic(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 from /healthz, got %d", rec.Code)
	}
}

func TestLoginAndLogout(t *testing.T) {
	api := newTestAPI(t)

	rec := httptest.NewRecorder()
	body, _ := json.Marshal(map[string]string{"email": "Staff@Atelier.example", "password": "atelier123"})
	api.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBuffer(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed with %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Token == "" {
		t.Fatal("expected a token in the login response")
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	api.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("logout failed with %d", rec.Code)
	}

	// The dropped token no longer opens the door.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	api.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", rec.Code)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	api := newTestAPI(t)

	rec := httptest.NewRecorder()
	body, _ := json.Marshal(map[string]string{"email": "staff@atelier.example", "password": "nope"})
	api.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBuffer(body)))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestGetOrderWithItems(t *testing.T) {
	api := newTestAPI(t)
	api.directory.orders["o1"] = &models.Order{ID: "o1", Status: "archived", CustomerName: "Ali"}
	api.directory.items["o1"] = []models.OrderItem{{ID: "i1", OrderID: "o1", ProductName: "Suit"}}

	rec := api.do(t, http.MethodGet, "/api/orders/o1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var detail struct {
		ID         string `json:"id"`
		StatusInfo struct {
			Variant string `json:"variant"`
		} `json:"status_info"`
		Items []models.OrderItem `json:"items"`
	}
	json.Unmarshal(rec.Body.Bytes(), &detail)
	if detail.ID != "o1" || len(detail.Items) != 1 {
		t.Errorf("unexpected detail payload: %s", rec.Body.String())
	}
	if detail.StatusInfo.Variant != "neutral" {
		t.Errorf("unknown status should render the neutral fallback, got %q", detail.StatusInfo.Variant)
	}
}

func TestGetOrderNotFound(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/api/orders/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestSaveOrderRunsProtocol(t *testing.T) {
	api := newTestAPI(t)
	api.directory.orders["o1"] = &models.Order{ID: "o1"}

	rec := api.do(t, http.MethodPut, "/api/orders/o1", validFormBody())
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp models.OrderResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.Success || resp.Order == nil {
		t.Fatalf("unexpected envelope: %s", rec.Body.String())
	}
	if resp.Order.TotalPrice != 31 || resp.Order.TotalPieces != 3 {
		t.Errorf("totals not recomputed: %+v", resp.Order)
	}

	want := []string{"update_order", "delete_items", "insert_items"}
	got := api.directory.calls
	if len(got) != 3 || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Errorf("write calls = %v, want %v", got, want)
	}
}

func TestSaveOrderValidationStopsBeforeWrites(t *testing.T) {
	api := newTestAPI(t)

	body := validFormBody()
	body["customer_name"] = ""

	rec := api.do(t, http.MethodPut, "/api/orders/o1", body)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if _, ok := resp.Fields["customer_name"]; !ok {
		t.Errorf("expected a field error on customer_name, got %v", resp.Fields)
	}
	if len(api.directory.calls) != 0 {
		t.Errorf("no gateway calls expected, got %v", api.directory.calls)
	}
}

func TestCreateOrder(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/orders", validFormBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp models.OrderResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Order == nil || resp.Order.ID == "" {
		t.Fatalf("expected created order in response: %s", rec.Body.String())
	}
	if _, ok := api.directory.orders[resp.Order.ID]; !ok {
		t.Error("order header was not inserted")
	}
}

func TestListOrdersSwallowsFetchFailure(t *testing.T) {
	api := newTestAPI(t)
	api.directory.listErr = context.DeadlineExceeded

	rec := api.do(t, http.MethodGet, "/api/orders", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list screen should render empty on fetch failure, got %d", rec.Code)
	}

	var resp struct {
		Count  int               `json:"count"`
		Orders []json.RawMessage `json:"orders"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Count != 0 || len(resp.Orders) != 0 {
		t.Errorf("expected empty list, got %s", rec.Body.String())
	}
}

func TestDashboard(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/dashboard", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var dash struct {
		TotalOrders    int            `json:"total_orders"`
		OrdersByStatus map[string]int `json:"orders_by_status"`
		TotalCustomers int            `json:"total_customers"`
	}
	json.Unmarshal(rec.Body.Bytes(), &dash)
	if dash.TotalOrders != 2 || dash.TotalCustomers != 3 {
		t.Errorf("unexpected dashboard payload: %s", rec.Body.String())
	}
	if dash.OrdersByStatus[models.StatusPending] != 1 {
		t.Errorf("missing status breakdown: %s", rec.Body.String())
	}
}

func TestListProducts(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/products", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Products []models.Product `json:"products"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Products) != 1 || resp.Products[0].Name != "Wool fabric" {
		t.Errorf("unexpected products payload: %s", rec.Body.String())
	}
}
