package shopapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"gamershub/pkg/events"
	"gamershub/pkg/product"
	"gamershub/pkg/store/memory"
)

// memSessions is an in-memory Sessions for tests.
type memSessions struct {
	mu   sync.Mutex
	sids map[string]string
	n    int
}

func (m *memSessions) Create(ctx context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sids == nil {
		m.sids = make(map[string]string)
	}
	m.n++
	sid := fmt.Sprintf("sid-%d", m.n)
	m.sids[sid] = userID
	return sid, nil
}

func (m *memSessions) Lookup(ctx context.Context, sid string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	userID, ok := m.sids[sid]
	if !ok {
		return "", ErrNoSession
	}
	return userID, nil
}

// eventRecorder captures published order events.
type eventRecorder struct {
	mu     sync.Mutex
	events []events.OrderCompleted
}

func (r *eventRecorder) PublishOrderCompleted(ctx context.Context, e events.OrderCompleted) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func newTestAPI(t *testing.T) (*httptest.Server, *eventRecorder) {
	t.Helper()
	st := memory.New()
	for _, p := range product.Seed() {
		if err := st.CreateProduct(context.Background(), p); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	rec := &eventRecorder{}
	api := New(st, &memSessions{}, rec, nil, nil)
	srv := httptest.NewServer(api.Router())
	t.Cleanup(srv.Close)
	return srv, rec
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func register(t *testing.T, srv *httptest.Server, username string) string {
	t.Helper()
	resp := postJSON(t, srv.URL+"/api/auth/register", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "Str0ng!pw",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status: %d", resp.StatusCode)
	}
	var out struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	decode(t, resp, &out)
	return out.User.ID
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	srv, _ := newTestAPI(t)
	resp := postJSON(t, srv.URL+"/api/auth/register", map[string]string{
		"username": "alice", "email": "alice@example.com", "password": "weak",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status: %d", resp.StatusCode)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	srv, _ := newTestAPI(t)
	register(t, srv, "alice")
	resp := postJSON(t, srv.URL+"/api/auth/register", map[string]string{
		"username": "alice", "email": "alice@example.com", "password": "Str0ng!pw",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status: %d", resp.StatusCode)
	}
}

func TestLogin(t *testing.T) {
	srv, _ := newTestAPI(t)
	userID := register(t, srv, "alice")

	resp := postJSON(t, srv.URL+"/api/auth/login", map[string]string{
		"username": "alice", "password": "Str0ng!pw",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	var cookie string
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookie {
			cookie = c.Value
		}
	}
	if cookie == "" {
		t.Fatal("no session cookie set")
	}
	var out struct {
		UserID string `json:"user_id"`
	}
	decode(t, resp, &out)
	if out.UserID != userID {
		t.Fatalf("user_id: %q want %q", out.UserID, userID)
	}

	bad := postJSON(t, srv.URL+"/api/auth/login", map[string]string{
		"username": "alice", "password": "Wrong1!pw",
	})
	defer bad.Body.Close()
	if bad.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad login status: %d", bad.StatusCode)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	srv, _ := newTestAPI(t)
	userID := register(t, srv, "alice")

	resp := postJSON(t, srv.URL+"/api/checkout", map[string]string{"user_id": userID})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	var out struct {
		Error string `json:"error"`
	}
	decode(t, resp, &out)
	if out.Error != "Cart is empty" {
		t.Fatalf("error: %q", out.Error)
	}
}

func TestCheckoutFlow(t *testing.T) {
	srv, rec := newTestAPI(t)
	userID := register(t, srv, "alice")

	// Two adds of the same product merge into one row with quantity 2.
	for i := 0; i < 2; i++ {
		resp := postJSON(t, srv.URL+"/api/cart/add", map[string]any{
			"user_id": userID, "product_id": "cyberpunk", "quantity": 1,
		})
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("add status: %d", resp.StatusCode)
		}
	}
	cartResp, err := http.Get(srv.URL + "/api/cart/" + userID)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	var rows []struct {
		Product  product.Product `json:"product"`
		Quantity int             `json:"quantity"`
	}
	decode(t, cartResp, &rows)
	if len(rows) != 1 || rows[0].Quantity != 2 || rows[0].Product.ID != "cyberpunk" {
		t.Fatalf("cart rows: %+v", rows)
	}

	resp := postJSON(t, srv.URL+"/api/checkout", map[string]string{
		"user_id": userID, "payment_method": "card", "payment_info": "card_last4:9010",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("checkout status: %d", resp.StatusCode)
	}
	var out struct {
		Total float64 `json:"total"`
		Order struct {
			Method string `json:"payment_method"`
		} `json:"order"`
	}
	decode(t, resp, &out)
	// 39.99 x 2 plus 10% tax.
	if math.Abs(out.Total-87.978) > 1e-9 {
		t.Fatalf("total: %v", out.Total)
	}
	if out.Order.Method != "card" {
		t.Fatalf("method: %q", out.Order.Method)
	}

	// Cart cleared after checkout.
	cartResp, _ = http.Get(srv.URL + "/api/cart/" + userID)
	rows = nil
	decode(t, cartResp, &rows)
	if len(rows) != 0 {
		t.Fatalf("cart after checkout: %+v", rows)
	}

	// One completed-order event.
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.events) != 1 || rec.events[0].UserID != userID {
		t.Fatalf("events: %+v", rec.events)
	}
}

func TestAddToCartUnknownProduct(t *testing.T) {
	srv, _ := newTestAPI(t)
	userID := register(t, srv, "alice")

	resp := postJSON(t, srv.URL+"/api/cart/add", map[string]any{
		"user_id": userID, "product_id": "half-life-3",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status: %d", resp.StatusCode)
	}
}

func TestListProducts(t *testing.T) {
	srv, _ := newTestAPI(t)
	resp, err := http.Get(srv.URL + "/api/products")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var out struct {
		Products []product.Product `json:"products"`
	}
	decode(t, resp, &out)
	if len(out.Products) != len(product.Seed()) {
		t.Fatalf("products: %d", len(out.Products))
	}
}

func TestRequestsTraced(t *testing.T) {
	prev := otel.GetTracerProvider()
	rec := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	srv, _ := newTestAPI(t)
	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()

	// The span ends after the handler returns, which may trail the response.
	deadline := time.Now().Add(time.Second)
	for {
		for _, s := range rec.Ended() {
			if s.Name() == "GET /api/health" {
				return
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("no span recorded for /api/health, got %d spans", len(rec.Ended()))
		}
		time.Sleep(time.Millisecond)
	}
}

func TestAdminRequiresSession(t *testing.T) {
	srv, _ := newTestAPI(t)
	resp, err := http.Get(srv.URL + "/api/admin/orders")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status without cookie: %d", resp.StatusCode)
	}

	// With a session cookie from login, the admin surface opens.
	register(t, srv, "root")
	login := postJSON(t, srv.URL+"/api/auth/login", map[string]string{
		"username": "root", "password": "Str0ng!pw",
	})
	login.Body.Close()
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/admin/orders", nil)
	for _, c := range login.Cookies() {
		req.AddCookie(c)
	}
	authed, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("authed get: %v", err)
	}
	defer authed.Body.Close()
	if authed.StatusCode != http.StatusOK {
		t.Fatalf("status with cookie: %d", authed.StatusCode)
	}
}
