// Package postgres implements the backend store in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"time"

	"gamershub/pkg/product"
	"gamershub/pkg/store"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Store persists the shop backend state in PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			product_id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			description TEXT,
			image_url TEXT,
			category TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS cart_items (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			product_id TEXT NOT NULL REFERENCES products(product_id),
			quantity INT NOT NULL,
			added_at TIMESTAMPTZ NOT NULL,
			UNIQUE (user_id, product_id)
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id),
			total DOUBLE PRECISION NOT NULL,
			status TEXT NOT NULL,
			payment_method TEXT,
			created_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// CreateUser inserts a new user.
func (s *Store) CreateUser(ctx context.Context, u store.User) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id,username,email,password_hash,created_at) VALUES ($1,$2,$3,$4,$5)",
		u.ID, u.Username, u.Email, u.PasswordHash, u.CreatedAt)
	if isUniqueViolation(err) {
		return store.ErrDuplicate
	}
	return err
}

// UserByID retrieves a user by id.
func (s *Store) UserByID(ctx context.Context, id string) (store.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT id,username,email,password_hash,created_at FROM users WHERE id=$1", id))
}

// UserByUsername retrieves a user by username.
func (s *Store) UserByUsername(ctx context.Context, username string) (store.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT id,username,email,password_hash,created_at FROM users WHERE username=$1", username))
}

func (s *Store) scanUser(row *sql.Row) (store.User, error) {
	var u store.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return store.User{}, store.ErrNotFound
	}
	return u, err
}

// Users fetches all users.
func (s *Store) Users(ctx context.Context) ([]store.User, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id,username,email,password_hash,created_at FROM users ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []store.User
	for rows.Next() {
		var u store.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CreateProduct inserts a new catalog entry.
func (s *Store) CreateProduct(ctx context.Context, p product.Product) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO products (product_id,title,price,description,image_url,category) VALUES ($1,$2,$3,$4,$5,$6)",
		p.ID, p.Title, p.Price, p.Description, p.Image, p.Category)
	if isUniqueViolation(err) {
		return store.ErrDuplicate
	}
	return err
}

// ProductByID retrieves a product by its catalog id.
func (s *Store) ProductByID(ctx context.Context, id string) (product.Product, error) {
	var p product.Product
	err := s.db.QueryRowContext(ctx,
		"SELECT product_id,title,price,description,image_url,category FROM products WHERE product_id=$1", id).
		Scan(&p.ID, &p.Title, &p.Price, &p.Description, &p.Image, &p.Category)
	if err == sql.ErrNoRows {
		return product.Product{}, store.ErrNotFound
	}
	return p, err
}

// Products fetches the whole catalog.
func (s *Store) Products(ctx context.Context) ([]product.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT product_id,title,price,description,image_url,category FROM products ORDER BY title")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var products []product.Product
	for rows.Next() {
		var p product.Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Price, &p.Description, &p.Image, &p.Category); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// AddCartItem merges quantity into an existing row or inserts a new one.
func (s *Store) AddCartItem(ctx context.Context, userID, productID string, quantity int) (store.CartItem, error) {
	var item store.CartItem
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO cart_items (id,user_id,product_id,quantity,added_at) VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (user_id,product_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		 RETURNING id,user_id,product_id,quantity,added_at`,
		uuid.NewString(), userID, productID, quantity, time.Now().UTC()).
		Scan(&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.AddedAt)
	return item, err
}

// CartItems fetches the user's cart rows.
func (s *Store) CartItems(ctx context.Context, userID string) ([]store.CartItem, error) {
	return s.queryCartItems(ctx,
		"SELECT id,user_id,product_id,quantity,added_at FROM cart_items WHERE user_id=$1 ORDER BY added_at", userID)
}

// AllCartItems fetches every cart row across users.
func (s *Store) AllCartItems(ctx context.Context) ([]store.CartItem, error) {
	return s.queryCartItems(ctx,
		"SELECT id,user_id,product_id,quantity,added_at FROM cart_items ORDER BY added_at")
}

func (s *Store) queryCartItems(ctx context.Context, query string, args ...any) ([]store.CartItem, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []store.CartItem
	for rows.Next() {
		var it store.CartItem
		if err := rows.Scan(&it.ID, &it.UserID, &it.ProductID, &it.Quantity, &it.AddedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// DeleteCartItem removes one cart row by id.
func (s *Store) DeleteCartItem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM cart_items WHERE id=$1", id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ClearCart removes all cart rows for the user.
func (s *Store) ClearCart(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id=$1", userID)
	return err
}

// CreateOrder records a completed order.
func (s *Store) CreateOrder(ctx context.Context, o store.Order) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO orders (id,user_id,total,status,payment_method,created_at) VALUES ($1,$2,$3,$4,$5,$6)",
		o.ID, o.UserID, o.Total, o.Status, o.Method, o.CreatedAt)
	return err
}

// Orders fetches all orders.
func (s *Store) Orders(ctx context.Context) ([]store.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id,user_id,total,status,payment_method,created_at FROM orders ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []store.Order
	for rows.Next() {
		var o store.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Total, &o.Status, &o.Method, &o.CreatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}
