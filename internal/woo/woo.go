// Package woo implements the WooCommerce REST API v3 client used as the
// upstream order source.
package woo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/comptoir/woocompta/internal/dependency"
	"github.com/comptoir/woocompta/internal/entity"
)

const (
	ordersPath = "/wp-json/wc/v3/orders"

	// MaxPerPage is the upstream page-size cap.
	MaxPerPage = 100

	// TotalPagesHeader carries the page count on order listings.
	TotalPagesHeader = "X-WP-TotalPages"
)

// ErrNotConfigured is returned before any network call when the base URL or
// the consumer credentials are missing.
var ErrNotConfigured = errors.New("woo: base url and consumer credentials are required")

// Config is the configuration for the WooCommerce client. Credentials are
// sent with every call as HTTP Basic auth.
type Config struct {
	BaseURL        string        `mapstructure:"base_url"`
	ConsumerKey    string        `mapstructure:"consumer_key"`
	ConsumerSecret string        `mapstructure:"consumer_secret"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Retry          RetryPolicy   `mapstructure:"retry"`
}

// APIError carries the upstream status code and body of a failed call.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("woo: upstream status %d: %s", e.StatusCode, e.Body)
}

// Client talks to one WooCommerce store.
type Client struct {
	c      *Config
	client *http.Client
}

// New creates a new WooCommerce API client. Missing configuration is not an
// error here: every call checks it and fails with ErrNotConfigured before
// touching the network, so the whole request surfaces a configuration error
// instead of the process refusing to start.
func New(c *Config) dependency.OrderSource {
	timeout := c.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		c:      c,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *Client) configured() error {
	if c.c.BaseURL == "" || c.c.ConsumerKey == "" || c.c.ConsumerSecret == "" {
		return ErrNotConfigured
	}
	return nil
}

// ListOrders returns one page of orders with the given status created inside
// [after, before), plus the total page count parsed from the upstream
// page-count header.
func (c *Client) ListOrders(ctx context.Context, status entity.OrderStatus, after, before time.Time, page, perPage int) ([]entity.Order, int, error) {
	if err := c.configured(); err != nil {
		return nil, 0, err
	}
	if perPage <= 0 || perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	if page < 1 {
		page = 1
	}

	u, err := url.Parse(strings.TrimSuffix(c.c.BaseURL, "/") + ordersPath)
	if err != nil {
		return nil, 0, fmt.Errorf("parsing base url: %w", err)
	}
	q := u.Query()
	q.Set("status", string(status))
	q.Set("after", after.UTC().Format(time.RFC3339))
	q.Set("before", before.UTC().Format(time.RFC3339))
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("orderby", "date")
	q.Set("order", "desc")
	u.RawQuery = q.Encode()

	var orders []entity.Order
	header, err := c.do(ctx, u.String(), &orders)
	if err != nil {
		return nil, 0, err
	}

	totalPages, err := strconv.Atoi(header.Get(TotalPagesHeader))
	if err != nil || totalPages < 1 {
		// without the header, the empty-page check ends pagination
		totalPages = page
	}
	return orders, totalPages, nil
}

// ListAllOrders paginates with the maximum page size until the last page, an
// empty page, or limit accumulated orders (the result is then truncated to
// limit).
func (c *Client) ListAllOrders(ctx context.Context, status entity.OrderStatus, after, before time.Time, limit int) ([]entity.Order, error) {
	var all []entity.Order
	for page := 1; ; page++ {
		orders, totalPages, err := c.ListOrders(ctx, status, after, before, page, MaxPerPage)
		if err != nil {
			return nil, err
		}
		if len(orders) == 0 {
			break
		}
		all = append(all, orders...)
		if limit > 0 && len(all) >= limit {
			all = all[:limit]
			break
		}
		if page >= totalPages {
			break
		}
	}
	return all, nil
}

// ListRefunds returns all refunds of one order. Lookups are retried per the
// configured policy; transport errors and retryable upstream statuses are
// retried, everything else fails immediately.
func (c *Client) ListRefunds(ctx context.Context, orderID int) ([]entity.Refund, error) {
	if err := c.configured(); err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s%s/%d/refunds", strings.TrimSuffix(c.c.BaseURL, "/"), ordersPath, orderID)

	var refunds []entity.Refund
	err := c.c.Retry.Run(ctx, func() error {
		refunds = refunds[:0]
		_, err := c.do(ctx, u, &refunds)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing refunds for order %d: %w", orderID, err)
	}
	if refunds == nil {
		refunds = []entity.Refund{}
	}
	return refunds, nil
}

func (c *Client) do(ctx context.Context, u string, out any) (http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(c.c.ConsumerKey, c.c.ConsumerSecret)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}
	return resp.Header, nil
}
