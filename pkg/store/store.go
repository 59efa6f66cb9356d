// Package store defines behavior for persisting the shop backend's users,
// catalog, server-side carts, and completed orders.
package store

import (
	"context"
	"errors"
	"time"

	"gamershub/pkg/product"
)

// User is a registered account. Password is stored as a bcrypt hash only.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// CartItem is one server-side cart row.
type CartItem struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

// Order is a completed purchase record.
type Order struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Total     float64   `json:"total_price"`
	Status    string    `json:"status"`
	Method    string    `json:"payment_method,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate indicates a unique constraint (username, email, product id)
	// would be violated.
	ErrDuplicate = errors.New("record already exists")
)

// Store defines behavior for persisting the backend state.
type Store interface {
	CreateUser(ctx context.Context, u User) error
	UserByID(ctx context.Context, id string) (User, error)
	UserByUsername(ctx context.Context, username string) (User, error)
	Users(ctx context.Context) ([]User, error)

	CreateProduct(ctx context.Context, p product.Product) error
	ProductByID(ctx context.Context, id string) (product.Product, error)
	Products(ctx context.Context) ([]product.Product, error)

	// AddCartItem merges quantity into an existing row for the same user and
	// product, or inserts a new row. It returns the resulting row.
	AddCartItem(ctx context.Context, userID, productID string, quantity int) (CartItem, error)
	CartItems(ctx context.Context, userID string) ([]CartItem, error)
	AllCartItems(ctx context.Context) ([]CartItem, error)
	DeleteCartItem(ctx context.Context, id string) error
	ClearCart(ctx context.Context, userID string) error

	CreateOrder(ctx context.Context, o Order) error
	Orders(ctx context.Context) ([]Order, error)
}
