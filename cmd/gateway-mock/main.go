// gateway-mock is a local stand-in for the hosted data gateway the admin
// panel talks to in production. It exposes the same table-scoped CRUD
// dialect (col=eq.value filters, order=col.desc, limit, single=true) over a
// plain Postgres database, and performs the gateway's server-side order
// number generation on insert.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type table struct {
	columns map[string]bool
	jsonb   map[string]bool
}

var tables = map[string]table{
	"orders": {
		columns: set("id", "order_no", "customer_name", "customer_phone", "status",
			"fabric_price", "tailoring_price", "extra_costs", "tax_amount",
			"total_price", "total_pieces", "notes", "images", "created_at", "updated_at"),
		jsonb: set("images"),
	},
	"order_items": {
		columns: set("id", "order_id", "product_name", "model", "size",
			"quantity", "meters", "unit_price", "line_total"),
	},
	"products": {
		columns: set("id", "name", "model", "description", "base_price",
			"fabric_price", "tailoring_price", "sizes", "images", "active", "created_at"),
		jsonb: set("sizes", "images"),
	},
	"customers": {
		columns: set("id", "name", "phone", "email", "address", "created_at"),
	},
	"profiles": {
		columns: set("id", "email", "password_hash", "display_name", "role", "created_at"),
	},
}

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, name := range names {
		m[name] = true
	}
	return m
}

type GatewayMock struct {
	db     *sql.DB
	logger *logrus.Logger
}

func main() {
	godotenv.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbUser := getEnv("DB_USER", "atelier")
	dbPassword := getEnv("DB_PASSWORD", "atelier")
	dbName := getEnv("DB_NAME", "atelier")
	port := getEnv("GATEWAY_PORT", "8090")

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		dbHost, dbPort, dbUser, dbPassword, dbName)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	for i := 0; i < 30; i++ {
		if err := db.Ping(); err == nil {
			logger.Info("Database connection established")
			break
		}
		logger.Info("Waiting for database...")
		time.Sleep(2 * time.Second)
	}

	if err := createTables(db); err != nil {
		logger.WithError(err).Fatal("Failed to create tables")
	}
	if err := seedAdminProfile(db, logger); err != nil {
		logger.WithError(err).Fatal("Failed to seed admin profile")
	}

	service := &GatewayMock{db: db, logger: logger}

	router := mux.NewRouter()
	router.HandleFunc("/health", service.HealthCheck).Methods("GET")
	router.HandleFunc("/rest/{table}", service.Select).Methods("GET")
	router.HandleFunc("/rest/{table}", service.Insert).Methods("POST")
	router.HandleFunc("/rest/{table}", service.Update).Methods("PATCH")
	router.HandleFunc("/rest/{table}", service.Delete).Methods("DELETE")

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithField("port", port).Info("Starting gateway mock")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down gateway mock...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Gateway mock stopped")
}

func (g *GatewayMock) respondJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func (g *GatewayMock) respondError(w http.ResponseWriter, code int, message string) {
	g.respondJSON(w, code, map[string]string{"message": message})
}

func (g *GatewayMock) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := g.db.Ping(); err != nil {
		g.respondError(w, http.StatusServiceUnavailable, "database connection failed")
		return
	}
	g.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "gateway-mock",
	})
}

func (g *GatewayMock) Select(w http.ResponseWriter, r *http.Request) {
	name, schema, ok := g.resolveTable(w, r)
	if !ok {
		return
	}

	where, args, err := buildFilters(schema, r, 1)
	if err != nil {
		g.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	query := fmt.Sprintf("SELECT row_to_json(t) FROM (SELECT * FROM %s%s%s%s) t",
		name, where, buildOrder(schema, r), buildLimit(r))

	rows, err := g.db.Query(query, args...)
	if err != nil {
		g.logger.WithError(err).WithField("table", name).Error("Select failed")
		g.respondError(w, http.StatusInternalServerError, "query failed")
		return
	}
	defer rows.Close()

	results := make([]json.RawMessage, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			g.respondError(w, http.StatusInternalServerError, "scan failed")
			return
		}
		results = append(results, json.RawMessage(raw))
	}

	if r.URL.Query().Get("single") == "true" {
		if len(results) == 0 {
			g.respondError(w, http.StatusNotFound, "row not found")
			return
		}
		g.respondJSON(w, http.StatusOK, results[0])
		return
	}

	g.respondJSON(w, http.StatusOK, results)
}

func (g *GatewayMock) Insert(w http.ResponseWriter, r *http.Request) {
	name, schema, ok := g.resolveTable(w, r)
	if !ok {
		return
	}

	rows, err := decodeRows(r)
	if err != nil {
		g.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := g.db.Begin()
	if err != nil {
		g.respondError(w, http.StatusInternalServerError, "begin failed")
		return
	}
	defer tx.Rollback()

	for _, row := range rows {
		if err := g.prepareRow(name, schema, row); err != nil {
			g.respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		columns := make([]string, 0, len(row))
		placeholders := make([]string, 0, len(row))
		args := make([]interface{}, 0, len(row))
		i := 1
		for column, value := range row {
			if !schema.columns[column] {
				g.respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown column %q", column))
				return
			}
			columns = append(columns, column)
			placeholders = append(placeholders, fmt.Sprintf("$%d", i))
			args = append(args, toArg(schema, column, value))
			i++
		}

		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			name, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
		if _, err := tx.Exec(query, args...); err != nil {
			g.logger.WithError(err).WithField("table", name).Error("Insert failed")
			g.respondError(w, http.StatusInternalServerError, "insert failed")
			return
		}
	}

	if err := tx.Commit(); err != nil {
		g.respondError(w, http.StatusInternalServerError, "commit failed")
		return
	}

	g.logger.WithFields(logrus.Fields{
		"table": name,
		"count": len(rows),
	}).Info("Rows inserted")

	g.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"count":   len(rows),
	})
}

func (g *GatewayMock) Update(w http.ResponseWriter, r *http.Request) {
	name, schema, ok := g.resolveTable(w, r)
	if !ok {
		return
	}

	var patch map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		g.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(patch) == 0 {
		g.respondError(w, http.StatusBadRequest, "empty patch")
		return
	}

	assignments := make([]string, 0, len(patch))
	args := make([]interface{}, 0, len(patch))
	i := 1
	for column, value := range patch {
		if !schema.columns[column] {
			g.respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown column %q", column))
			return
		}
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, i))
		args = append(args, toArg(schema, column, value))
		i++
	}

	where, filterArgs, err := buildFilters(schema, r, i)
	if err != nil {
		g.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if where == "" {
		g.respondError(w, http.StatusBadRequest, "update requires at least one filter")
		return
	}
	args = append(args, filterArgs...)

	query := fmt.Sprintf("UPDATE %s SET %s%s", name, strings.Join(assignments, ", "), where)
	result, err := g.db.Exec(query, args...)
	if err != nil {
		g.logger.WithError(err).WithField("table", name).Error("Update failed")
		g.respondError(w, http.StatusInternalServerError, "update failed")
		return
	}

	affected, _ := result.RowsAffected()
	g.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   affected,
	})
}

func (g *GatewayMock) Delete(w http.ResponseWriter, r *http.Request) {
	name, schema, ok := g.resolveTable(w, r)
	if !ok {
		return
	}

	where, args, err := buildFilters(schema, r, 1)
	if err != nil {
		g.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if where == "" {
		g.respondError(w, http.StatusBadRequest, "delete requires at least one filter")
		return
	}

	result, err := g.db.Exec(fmt.Sprintf("DELETE FROM %s%s", name, where), args...)
	if err != nil {
		g.logger.WithError(err).WithField("table", name).Error("Delete failed")
		g.respondError(w, http.StatusInternalServerError, "delete failed")
		return
	}

	affected, _ := result.RowsAffected()
	g.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   affected,
	})
}

func (g *GatewayMock) resolveTable(w http.ResponseWriter, r *http.Request) (string, table, bool) {
	name := mux.Vars(r)["table"]
	schema, ok := tables[name]
	if !ok {
		g.respondError(w, http.StatusNotFound, fmt.Sprintf("unknown table %q", name))
		return "", table{}, false
	}
	return name, schema, true
}

// prepareRow fills in the defaults the hosted gateway applies server-side:
// row ids, creation timestamps, and the generated order number.
func (g *GatewayMock) prepareRow(name string, schema table, row map[string]interface{}) error {
	if id, ok := row["id"].(string); !ok || id == "" {
		row["id"] = uuid.New().String()
	}
	if schema.columns["created_at"] {
		if _, ok := row["created_at"]; !ok {
			row["created_at"] = time.Now().UTC()
		}
	}
	if name == "orders" {
		if no, ok := row["order_no"].(string); !ok || no == "" {
			orderNo, err := g.nextOrderNo()
			if err != nil {
				return fmt.Errorf("failed to generate order number: %w", err)
			}
			row["order_no"] = orderNo
		}
	}
	return nil
}

func (g *GatewayMock) nextOrderNo() (string, error) {
	var seq int64
	if err := g.db.QueryRow("SELECT nextval('order_no_seq')").Scan(&seq); err != nil {
		return "", err
	}
	return fmt.Sprintf("ORD-%d-%04d", time.Now().Year(), seq), nil
}

func decodeRows(r *http.Request) ([]map[string]interface{}, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid request body")
	}

	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var rows []map[string]interface{}
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, fmt.Errorf("invalid row array")
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("empty row array")
		}
		return rows, nil
	}

	var row map[string]interface{}
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, fmt.Errorf("invalid row object")
	}
	return []map[string]interface{}{row}, nil
}

// buildFilters translates col=eq.value query parameters into a WHERE clause.
// Only whitelisted columns pass; anything else is rejected.
func buildFilters(schema table, r *http.Request, firstPlaceholder int) (string, []interface{}, error) {
	var clauses []string
	var args []interface{}
	i := firstPlaceholder

	for column, values := range r.URL.Query() {
		switch column {
		case "order", "limit", "single":
			continue
		}
		if !schema.columns[column] {
			return "", nil, fmt.Errorf("unknown filter column %q", column)
		}
		for _, value := range values {
			if !strings.HasPrefix(value, "eq.") {
				return "", nil, fmt.Errorf("unsupported operator in %q", value)
			}
			clauses = append(clauses, fmt.Sprintf("%s = $%d", column, i))
			args = append(args, strings.TrimPrefix(value, "eq."))
			i++
		}
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func buildOrder(schema table, r *http.Request) string {
	raw := r.URL.Query().Get("order")
	if raw == "" {
		return ""
	}
	column, direction := raw, "asc"
	if i := strings.LastIndex(raw, "."); i >= 0 {
		column, direction = raw[:i], raw[i+1:]
	}
	if !schema.columns[column] || (direction != "asc" && direction != "desc") {
		return ""
	}
	return fmt.Sprintf(" ORDER BY %s %s", column, strings.ToUpper(direction))
}

func buildLimit(r *http.Request) string {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return ""
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d", n)
}

// toArg converts a decoded JSON value into a driver argument. JSONB columns
// get re-marshalled; everything else passes through as-is.
func toArg(schema table, column string, value interface{}) interface{} {
	if schema.jsonb[column] {
		if value == nil {
			return []byte("[]")
		}
		data, err := json.Marshal(value)
		if err != nil {
			return []byte("[]")
		}
		return data
	}
	return value
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id VARCHAR(64) PRIMARY KEY,
			order_no VARCHAR(32) UNIQUE NOT NULL,
			customer_name VARCHAR(255) NOT NULL,
			customer_phone VARCHAR(64) NOT NULL,
			status VARCHAR(32) NOT NULL DEFAULT 'pending',
			fabric_price DECIMAL(10,2) NOT NULL DEFAULT 0,
			tailoring_price DECIMAL(10,2) NOT NULL DEFAULT 0,
			extra_costs DECIMAL(10,2) NOT NULL DEFAULT 0,
			tax_amount DECIMAL(10,2) NOT NULL DEFAULT 0,
			total_price DECIMAL(10,2) NOT NULL DEFAULT 0,
			total_pieces INTEGER NOT NULL DEFAULT 0,
			notes TEXT NOT NULL DEFAULT '',
			images JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id VARCHAR(64) PRIMARY KEY,
			order_id VARCHAR(64) NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			product_name VARCHAR(255) NOT NULL,
			model VARCHAR(255) NOT NULL DEFAULT '',
			size VARCHAR(64) NOT NULL DEFAULT '',
			quantity INTEGER NOT NULL,
			meters DECIMAL(10,2) NOT NULL DEFAULT 0,
			unit_price DECIMAL(10,2) NOT NULL DEFAULT 0,
			line_total DECIMAL(10,2) NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			model VARCHAR(255) NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			base_price DECIMAL(10,2) NOT NULL DEFAULT 0,
			fabric_price DECIMAL(10,2) NOT NULL DEFAULT 0,
			tailoring_price DECIMAL(10,2) NOT NULL DEFAULT 0,
			sizes JSONB NOT NULL DEFAULT '[]',
			images JSONB NOT NULL DEFAULT '[]',
			active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS customers (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			phone VARCHAR(64) NOT NULL DEFAULT '',
			email VARCHAR(255) NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS profiles (
			id VARCHAR(64) PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			display_name VARCHAR(255) NOT NULL DEFAULT '',
			role VARCHAR(32) NOT NULL DEFAULT 'staff',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE SEQUENCE IF NOT EXISTS order_no_seq`,
		`CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

// seedAdminProfile creates the initial staff account on an empty database so
// the admin panel is reachable out of the box.
func seedAdminProfile(db *sql.DB, logger *logrus.Logger) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM profiles").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	email := getEnv("ADMIN_EMAIL", "admin@atelier.local")
	password := getEnv("ADMIN_PASSWORD", "changeme")

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	_, err = db.Exec(
		"INSERT INTO profiles (id, email, password_hash, display_name, role) VALUES ($1, $2, $3, $4, $5)",
		uuid.New().String(), email, string(hash), "Administrator", "admin")
	if err != nil {
		return err
	}

	logger.WithField("email", email).Info("Seeded initial admin profile")
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
