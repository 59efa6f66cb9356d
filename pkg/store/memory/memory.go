// Package memory implements an in-memory backend store, used in tests and
// when the service runs without a database.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"gamershub/pkg/product"
	"gamershub/pkg/store"
)

// Store provides an in-memory implementation of store.Store.
type Store struct {
	mu       sync.RWMutex
	users    []store.User
	products []product.Product
	cart     []store.CartItem
	orders   []store.Order
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{}
}

// CreateUser stores the user, rejecting duplicate usernames or emails.
func (s *Store) CreateUser(ctx context.Context, u store.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return store.ErrDuplicate
		}
	}
	s.users = append(s.users, u)
	return nil
}

// UserByID retrieves a user by id.
func (s *Store) UserByID(ctx context.Context, id string) (store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return store.User{}, store.ErrNotFound
}

// UserByUsername retrieves a user by username.
func (s *Store) UserByUsername(ctx context.Context, username string) (store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return store.User{}, store.ErrNotFound
}

// Users returns all users in registration order.
func (s *Store) Users(ctx context.Context) ([]store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.User, len(s.users))
	copy(out, s.users)
	return out, nil
}

// CreateProduct stores the product, rejecting duplicate ids.
func (s *Store) CreateProduct(ctx context.Context, p product.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.products {
		if existing.ID == p.ID {
			return store.ErrDuplicate
		}
	}
	s.products = append(s.products, p)
	return nil
}

// ProductByID retrieves a product by its catalog id.
func (s *Store) ProductByID(ctx context.Context, id string) (product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.ID == id {
			return p, nil
		}
	}
	return product.Product{}, store.ErrNotFound
}

// Products returns the catalog in insertion order.
func (s *Store) Products(ctx context.Context) ([]product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]product.Product, len(s.products))
	copy(out, s.products)
	return out, nil
}

// AddCartItem merges quantity into an existing row or inserts a new one.
func (s *Store) AddCartItem(ctx context.Context, userID, productID string, quantity int) (store.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range s.cart {
		if item.UserID == userID && item.ProductID == productID {
			s.cart[i].Quantity += quantity
			return s.cart[i], nil
		}
	}
	item := store.CartItem{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		AddedAt:   time.Now().UTC(),
	}
	s.cart = append(s.cart, item)
	return item, nil
}

// CartItems returns the user's cart rows in insertion order.
func (s *Store) CartItems(ctx context.Context, userID string) ([]store.CartItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.CartItem
	for _, item := range s.cart {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	return out, nil
}

// AllCartItems returns every cart row across users.
func (s *Store) AllCartItems(ctx context.Context) ([]store.CartItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.CartItem, len(s.cart))
	copy(out, s.cart)
	return out, nil
}

// DeleteCartItem removes one cart row by id.
func (s *Store) DeleteCartItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range s.cart {
		if item.ID == id {
			s.cart = append(s.cart[:i], s.cart[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

// ClearCart removes all cart rows for the user.
func (s *Store) ClearCart(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.cart[:0]
	for _, item := range s.cart {
		if item.UserID != userID {
			kept = append(kept, item)
		}
	}
	s.cart = kept
	return nil
}

// CreateOrder records a completed order.
func (s *Store) CreateOrder(ctx context.Context, o store.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, o)
	return nil
}

// Orders returns all orders in creation order.
func (s *Store) Orders(ctx context.Context) ([]store.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Order, len(s.orders))
	copy(out, s.orders)
	return out, nil
}
