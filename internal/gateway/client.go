package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/atelierhq/atelier-admin/internal/circuitbreaker"
)

var (
	ErrNotFound = errors.New("row not found")

	// ErrUnfilteredWrite guards against a filterless update or delete
	// wiping a whole table.
	ErrUnfilteredWrite = errors.New("update/delete requires at least one filter")
)

// Client talks to the hosted data gateway's table CRUD surface. All reads
// and writes in the admin panel go through here; the client never sees SQL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *circuitbreaker.Breaker
	logger     *logrus.Logger
}

func NewClient(baseURL string, logger *logrus.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		breaker: circuitbreaker.New(circuitbreaker.Config{
			Name:        "data-gateway",
			MaxFailures: 5,
			Cooldown:    20 * time.Second,
			MaxProbes:   2,
		}, logger),
		logger: logger,
	}
}

// Select fetches all rows matching q and decodes the JSON array into out.
func (c *Client) Select(ctx context.Context, table string, q *Query, out interface{}) error {
	return c.do(ctx, http.MethodGet, table, q, nil, out)
}

// SelectSingle fetches exactly one row. A gateway 404 maps to ErrNotFound.
func (c *Client) SelectSingle(ctx context.Context, table string, q *Query, out interface{}) error {
	single := *q
	single.single = true
	return c.do(ctx, http.MethodGet, table, &single, nil, out)
}

// Insert writes one row or a batch, depending on whether rows is a struct
// or a slice.
func (c *Client) Insert(ctx context.Context, table string, rows interface{}) error {
	return c.do(ctx, http.MethodPost, table, nil, rows, nil)
}

func (c *Client) Update(ctx context.Context, table string, q *Query, patch interface{}) error {
	if !q.HasFilters() {
		return ErrUnfilteredWrite
	}
	return c.do(ctx, http.MethodPatch, table, q, patch, nil)
}

func (c *Client) Delete(ctx context.Context, table string, q *Query) error {
	if !q.HasFilters() {
		return ErrUnfilteredWrite
	}
	return c.do(ctx, http.MethodDelete, table, q, nil, nil)
}

func (c *Client) Metrics() map[string]interface{} {
	return c.breaker.Metrics()
}

func (c *Client) do(ctx context.Context, method, table string, q *Query, body, out interface{}) error {
	endpoint := c.baseURL + "/rest/" + table
	if encoded := q.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", table, err)
		}
		payload = bytes.NewBuffer(data)
	}

	var notFound bool
	err := c.breaker.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, method, endpoint, payload)
		if err != nil {
			return fmt.Errorf("failed to create gateway request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to reach gateway: %w", err)
		}
		defer resp.Body.Close()

		// A missing row is an answer, not an outage; it must not count
		// toward tripping the breaker.
		if resp.StatusCode == http.StatusNotFound {
			notFound = true
			return nil
		}
		if resp.StatusCode >= http.StatusBadRequest {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
		}

		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("failed to decode gateway response: %w", err)
			}
		}

		c.logger.WithFields(logrus.Fields{
			"method": method,
			"table":  table,
			"status": resp.StatusCode,
		}).Debug("Gateway request completed")

		return nil
	})
	if err != nil {
		return err
	}
	if notFound {
		return ErrNotFound
	}
	return nil
}
