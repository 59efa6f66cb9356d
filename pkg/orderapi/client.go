// Package orderapi is the HTTP client for the remote order service. All calls
// are JSON over HTTP; non-2xx responses decode the service's {"error": ...}
// body into an *APIError, transport failures come back as plain errors.
package orderapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"gamershub/pkg/payment"
	"gamershub/pkg/product"
)

// User is the account representation the service returns.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin,omitempty"`
}

// CartRow is one server-side cart entry.
type CartRow struct {
	ID       string          `json:"id"`
	Product  product.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

// APIError is a non-2xx response from the order service.
type APIError struct {
	Status  int
	Message string
}

// Error implements error.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("order service: status %d", e.Status)
	}
	return fmt.Sprintf("order service: %s", e.Message)
}

// Client talks to the remote order service.
type Client struct {
	base string
	hc   *http.Client
}

// New creates a client for the service at baseURL (e.g.
// "http://localhost:5000"). A nil http.Client uses http.DefaultClient.
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), hc: hc}
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, username, email, password string) (User, error) {
	var out struct {
		User User `json:"user"`
	}
	in := map[string]string{"username": username, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", in, &out); err != nil {
		return User{}, err
	}
	return out.User, nil
}

// Login authenticates and returns the account with its user id filled in.
func (c *Client) Login(ctx context.Context, username, password string) (User, error) {
	var out struct {
		User   User   `json:"user"`
		UserID string `json:"user_id"`
	}
	in := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", in, &out); err != nil {
		return User{}, err
	}
	u := out.User
	if out.UserID != "" {
		u.ID = out.UserID
	}
	return u, nil
}

// AddToCart records a cart row for the user on the server.
func (c *Client) AddToCart(ctx context.Context, userID, productID string, quantity int) error {
	in := map[string]any{"user_id": userID, "product_id": productID, "quantity": quantity}
	return c.do(ctx, http.MethodPost, "/api/cart/add", in, nil)
}

// GetCart fetches the user's server-side cart rows.
func (c *Client) GetCart(ctx context.Context, userID string) ([]CartRow, error) {
	var rows []CartRow
	if err := c.do(ctx, http.MethodGet, "/api/cart/"+userID, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ListProducts fetches the catalog.
func (c *Client) ListProducts(ctx context.Context) ([]product.Product, error) {
	var out struct {
		Products []product.Product `json:"products"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/products", nil, &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

// CommitOrder submits a confirmed checkout and returns the service-reported
// total. It satisfies the orchestrator's remote contract.
func (c *Client) CommitOrder(ctx context.Context, userID string, d payment.Descriptor) (float64, error) {
	var out struct {
		Total float64 `json:"total"`
	}
	in := map[string]string{
		"user_id":        userID,
		"payment_method": string(d.Method),
		"payment_info":   d.MaskedInfo,
	}
	if err := c.do(ctx, http.MethodPost, "/api/checkout", in, &out); err != nil {
		return 0, err
	}
	return out.Total, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("order service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &APIError{Status: resp.StatusCode, Message: apiErr.Error}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
