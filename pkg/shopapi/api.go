// Package shopapi implements the order service HTTP API: accounts, catalog,
// server-side carts, checkout, and the admin surface.
package shopapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"gamershub/pkg/cart"
	"gamershub/pkg/events"
	"gamershub/pkg/metrics"
	"gamershub/pkg/product"
	"gamershub/pkg/store"
)

const sessionCookie = "session_id"

// idempotencyHeader is accepted on checkout. The key is logged for the
// collaborating gateway; this service does not dedupe on it.
const idempotencyHeader = "Idempotency-Key"

// API serves the order service endpoints.
type API struct {
	store    store.Store
	sessions Sessions
	events   events.Publisher
	metrics  *metrics.Metrics
	log      *zap.Logger
	ttl      time.Duration
}

// New creates the API over the given backend store. sessions may be nil to
// disable the admin surface; events and log default to no-ops.
func New(st store.Store, sessions Sessions, pub events.Publisher, m *metrics.Metrics, log *zap.Logger) *API {
	if pub == nil {
		pub = events.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &API{store: st, sessions: sessions, events: pub, metrics: m, log: log, ttl: time.Hour}
}

// Router builds the service router.
func (a *API) Router() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/auth/register", a.register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", a.login).Methods(http.MethodPost)

	api.HandleFunc("/products", a.listProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/add", a.addProduct).Methods(http.MethodPost)
	api.HandleFunc("/products/{id}", a.getProduct).Methods(http.MethodGet)

	api.HandleFunc("/cart/add", a.addToCart).Methods(http.MethodPost)
	api.HandleFunc("/cart/remove/{itemID}", a.removeFromCart).Methods(http.MethodDelete)
	api.HandleFunc("/cart/clear/{userID}", a.clearCart).Methods(http.MethodDelete)
	api.HandleFunc("/cart/{userID}", a.getCart).Methods(http.MethodGet)

	api.HandleFunc("/checkout", a.checkout).Methods(http.MethodPost)
	api.HandleFunc("/health", a.health).Methods(http.MethodGet)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(a.authMiddleware)
	admin.HandleFunc("/users", a.adminUsers).Methods(http.MethodGet)
	admin.HandleFunc("/products", a.listProducts).Methods(http.MethodGet)
	admin.HandleFunc("/carts", a.adminCarts).Methods(http.MethodGet)
	admin.HandleFunc("/orders", a.adminOrders).Methods(http.MethodGet)

	r.Use(a.traceRequests)
	r.Use(a.countRequests)
	return r
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// register creates a new account.
// @Summary Register
// @Description Creates an account after checking the password policy
// @Accept json
// @Produce json
// @Param account body registerRequest true "Account"
// @Success 201
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/auth/register [post]
func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Email == "" || req.Password == "" {
		a.writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	if err := validatePassword(req.Password); err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		a.internalError(w, r, "hash password", err)
		return
	}
	u := store.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.store.CreateUser(r.Context(), u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			a.writeError(w, http.StatusConflict, "Username or email already exists")
			return
		}
		a.internalError(w, r, "create user", err)
		return
	}
	a.writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully",
		"user":    u,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// login authenticates an account and opens a session.
// @Summary Login
// @Description Verifies credentials and sets a session cookie
// @Accept json
// @Produce json
// @Param creds body loginRequest true "Credentials"
// @Success 200
// @Failure 401 {object} map[string]string
// @Router /api/auth/login [post]
func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		a.writeError(w, http.StatusBadRequest, "Missing credentials")
		return
	}
	u, err := a.store.UserByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			a.writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		a.internalError(w, r, "lookup user", err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		a.writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if a.sessions != nil {
		sid, err := a.sessions.Create(r.Context(), u.ID)
		if err != nil {
			a.internalError(w, r, "create session", err)
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    sid,
			Path:     "/",
			Expires:  time.Now().Add(a.ttl),
			HttpOnly: true,
		})
	}
	a.writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"user":    u,
		"user_id": u.ID,
	})
}

// listProducts lists the catalog.
// @Summary List products
// @Produce json
// @Success 200 {object} map[string][]product.Product
// @Router /api/products [get]
func (a *API) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := a.store.Products(r.Context())
	if err != nil {
		a.internalError(w, r, "list products", err)
		return
	}
	if products == nil {
		products = []product.Product{}
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

// getProduct retrieves one product.
// @Summary Get product
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} product.Product
// @Failure 404 {object} map[string]string
// @Router /api/products/{id} [get]
func (a *API) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := a.store.ProductByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			a.writeError(w, http.StatusNotFound, "Product not found")
			return
		}
		a.internalError(w, r, "get product", err)
		return
	}
	a.writeJSON(w, http.StatusOK, p)
}

// addProduct adds a catalog entry.
// @Summary Add product
// @Accept json
// @Produce json
// @Param product body product.Product true "Product"
// @Success 201
// @Failure 409 {object} map[string]string
// @Router /api/products/add [post]
func (a *API) addProduct(w http.ResponseWriter, r *http.Request) {
	var p product.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.ID == "" || p.Title == "" || p.Price < 0 {
		a.writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	if err := a.store.CreateProduct(r.Context(), p); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			a.writeError(w, http.StatusConflict, "Product ID already exists")
			return
		}
		a.internalError(w, r, "create product", err)
		return
	}
	a.writeJSON(w, http.StatusCreated, map[string]any{"message": "Product added successfully", "product": p})
}

type addToCartRequest struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// cartRow is a server cart entry with its product embedded.
type cartRow struct {
	ID       string          `json:"id"`
	Product  product.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

// addToCart records a cart row, merging quantity for repeated products.
// @Summary Add to cart
// @Accept json
// @Produce json
// @Param item body addToCartRequest true "Cart item"
// @Success 201
// @Failure 404 {object} map[string]string
// @Router /api/cart/add [post]
func (a *API) addToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.ProductID == "" {
		a.writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}
	if _, err := a.store.UserByID(r.Context(), req.UserID); err != nil {
		a.writeError(w, http.StatusNotFound, "User not found")
		return
	}
	p, err := a.store.ProductByID(r.Context(), req.ProductID)
	if err != nil {
		a.writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	item, err := a.store.AddCartItem(r.Context(), req.UserID, req.ProductID, req.Quantity)
	if err != nil {
		a.internalError(w, r, "add cart item", err)
		return
	}
	a.writeJSON(w, http.StatusCreated, map[string]any{
		"message":   "Item added to cart",
		"cart_item": cartRow{ID: item.ID, Product: p, Quantity: item.Quantity},
	})
}

// getCart lists the user's cart rows.
// @Summary Get cart
// @Produce json
// @Param userID path string true "User ID"
// @Success 200 {array} cartRow
// @Router /api/cart/{userID} [get]
func (a *API) getCart(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]
	if _, err := a.store.UserByID(r.Context(), userID); err != nil {
		a.writeError(w, http.StatusNotFound, "User not found")
		return
	}
	rows, err := a.cartRows(r, userID)
	if err != nil {
		a.internalError(w, r, "get cart", err)
		return
	}
	a.writeJSON(w, http.StatusOK, rows)
}

func (a *API) cartRows(r *http.Request, userID string) ([]cartRow, error) {
	items, err := a.store.CartItems(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	rows := make([]cartRow, 0, len(items))
	for _, it := range items {
		p, err := a.store.ProductByID(r.Context(), it.ProductID)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", it.ProductID, err)
		}
		rows = append(rows, cartRow{ID: it.ID, Product: p, Quantity: it.Quantity})
	}
	return rows, nil
}

// removeFromCart deletes one cart row.
// @Summary Remove from cart
// @Param itemID path string true "Cart item ID"
// @Success 200
// @Failure 404 {object} map[string]string
// @Router /api/cart/remove/{itemID} [delete]
func (a *API) removeFromCart(w http.ResponseWriter, r *http.Request) {
	if err := a.store.DeleteCartItem(r.Context(), mux.Vars(r)["itemID"]); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			a.writeError(w, http.StatusNotFound, "Cart item not found")
			return
		}
		a.internalError(w, r, "delete cart item", err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"message": "Item removed from cart"})
}

// clearCart deletes all of the user's cart rows.
// @Summary Clear cart
// @Param userID path string true "User ID"
// @Success 200
// @Router /api/cart/clear/{userID} [delete]
func (a *API) clearCart(w http.ResponseWriter, r *http.Request) {
	if err := a.store.ClearCart(r.Context(), mux.Vars(r)["userID"]); err != nil {
		a.internalError(w, r, "clear cart", err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"message": "Cart cleared"})
}

type checkoutRequest struct {
	UserID        string `json:"user_id"`
	PaymentMethod string `json:"payment_method"`
	PaymentInfo   string `json:"payment_info"`
}

// checkout converts the user's server cart into a completed order.
// @Summary Checkout
// @Accept json
// @Produce json
// @Param order body checkoutRequest true "Checkout"
// @Success 201
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/checkout [post]
func (a *API) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		a.writeError(w, http.StatusBadRequest, "User not found")
		return
	}
	if key := r.Header.Get(idempotencyHeader); key != "" {
		a.log.Info("checkout idempotency key received", zap.String("key", key))
	}
	if _, err := a.store.UserByID(r.Context(), req.UserID); err != nil {
		a.writeError(w, http.StatusNotFound, "User not found")
		return
	}
	rows, err := a.cartRows(r, req.UserID)
	if err != nil {
		a.internalError(w, r, "load cart", err)
		return
	}
	if len(rows) == 0 {
		a.writeError(w, http.StatusBadRequest, "Cart is empty")
		return
	}

	lines := make([]cart.Line, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, cart.Line{ID: row.Product.ID, Price: row.Product.Price, Quantity: row.Quantity})
	}
	totals := cart.Sum(lines)

	order := store.Order{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		Total:     totals.Total,
		Status:    "completed",
		Method:    req.PaymentMethod,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.CreateOrder(r.Context(), order); err != nil {
		a.internalError(w, r, "create order", err)
		return
	}
	if err := a.store.ClearCart(r.Context(), req.UserID); err != nil {
		a.internalError(w, r, "clear cart", err)
		return
	}

	if err := a.events.PublishOrderCompleted(r.Context(), events.OrderCompleted{
		OrderID: order.ID,
		UserID:  order.UserID,
		Total:   order.Total,
		Method:  order.Method,
		At:      order.CreatedAt,
	}); err != nil {
		// The order is committed; the event is best-effort.
		a.log.Warn("publish order event", zap.Error(err), zap.String("order_id", order.ID))
	}
	if a.metrics != nil {
		a.metrics.OrdersCompleted.Inc()
		a.metrics.OrderTotal.Observe(order.Total)
	}
	a.log.Info("order completed",
		zap.String("order_id", order.ID),
		zap.String("user_id", order.UserID),
		zap.Float64("total", order.Total),
		zap.String("method", order.Method),
	)
	a.writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Order completed successfully",
		"order":   order,
		"total":   order.Total,
	})
}

// health reports service liveness.
// @Summary Health check
// @Produce json
// @Success 200
// @Router /api/health [get]
func (a *API) health(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// adminUsers lists all accounts.
// @Summary List users
// @Produce json
// @Success 200 {array} store.User
// @Security ApiKeyAuth
// @Router /api/admin/users [get]
func (a *API) adminUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.store.Users(r.Context())
	if err != nil {
		a.internalError(w, r, "list users", err)
		return
	}
	a.writeJSON(w, http.StatusOK, users)
}

// adminCarts lists every cart row across users.
// @Summary List carts
// @Produce json
// @Success 200 {array} store.CartItem
// @Security ApiKeyAuth
// @Router /api/admin/carts [get]
func (a *API) adminCarts(w http.ResponseWriter, r *http.Request) {
	items, err := a.store.AllCartItems(r.Context())
	if err != nil {
		a.internalError(w, r, "list carts", err)
		return
	}
	a.writeJSON(w, http.StatusOK, items)
}

// adminOrders lists all orders.
// @Summary List orders
// @Produce json
// @Success 200 {array} store.Order
// @Security ApiKeyAuth
// @Router /api/admin/orders [get]
func (a *API) adminOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := a.store.Orders(r.Context())
	if err != nil {
		a.internalError(w, r, "list orders", err)
		return
	}
	a.writeJSON(w, http.StatusOK, orders)
}

// authMiddleware ensures a valid session exists.
func (a *API) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.sessions == nil {
			a.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		c, err := r.Cookie(sessionCookie)
		if err != nil {
			a.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if _, err := a.sessions.Lookup(r.Context(), c.Value); err != nil {
			a.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// traceRequests wraps every request in a span named after the matched route.
func (a *API) traceRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := otel.Tracer("gamershub/shopapi").Start(r.Context(), r.Method+" "+routeName(r))
		defer span.End()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// countRequests records per-route request counts.
func (a *API) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		a.metrics.Requests.WithLabelValues(routeName(r), strconv.Itoa(sw.status)).Inc()
	})
}

// routeName returns the matched mux route template, or the raw path when the
// request never matched a registered route.
func routeName(r *http.Request) string {
	if cur := mux.CurrentRoute(r); cur != nil {
		if tpl, err := cur.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Error("encode response", zap.Error(err))
	}
}

func (a *API) writeError(w http.ResponseWriter, status int, msg string) {
	a.writeJSON(w, status, map[string]string{"error": msg})
}

func (a *API) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	a.log.Error(op, zap.Error(err), zap.String("path", r.URL.Path))
	a.writeError(w, http.StatusInternalServerError, "internal error")
}
