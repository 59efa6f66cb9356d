package main

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"gamershub/pkg/cart"
	"gamershub/pkg/checkout"
	"gamershub/pkg/notify"
	"gamershub/pkg/orderapi"
	"gamershub/pkg/payment"
	"gamershub/pkg/product"
	"gamershub/pkg/session"
)

// screen names one storefront view.
type screen int

const (
	screenLogin screen = iota
	screenCatalog
	screenCart
	screenPayment
)

type model struct {
	carts        *cart.Store
	sessions     *session.Manager
	collector    *payment.Collector
	orchestrator *checkout.Orchestrator
	client       *orderapi.Client // nil in degraded mode
	toasts       *notify.Recorder

	screen   screen
	products []product.Product
	cursor   int

	// login form
	registering bool
	loginFields []field

	// payment form
	method    payment.Method
	payFields []field
	payCursor int

	checkingOut bool
	status      string
}

// field is one hand-rolled text input.
type field struct {
	label  string
	value  string
	secret bool
}

type productsMsg struct {
	products []product.Product
	err      error
}

type authMsg struct {
	user orderapi.User
	err  error
}

type checkoutMsg struct {
	result checkout.Result
	err    error
}

type submittedMsg struct{ err error }

func newModel(c *cart.Store, s *session.Manager, col *payment.Collector, o *checkout.Orchestrator, client *orderapi.Client, toasts *notify.Recorder) model {
	m := model{
		carts:        c,
		sessions:     s,
		collector:    col,
		orchestrator: o,
		client:       client,
		toasts:       toasts,
		products:     product.Seed(),
		screen:       screenLogin,
	}
	m.resetLoginFields()
	if _, ok := s.Current(); ok {
		m.screen = screenCatalog
	}
	return m
}

func (m *model) resetLoginFields() {
	m.loginFields = []field{{label: "Username"}, {label: "Password", secret: true}}
	if m.registering {
		m.loginFields = []field{{label: "Username"}, {label: "Email"}, {label: "Password", secret: true}}
	}
	m.cursor = 0
}

func (m *model) resetPayFields() {
	switch m.method {
	case payment.MethodCard:
		m.payFields = []field{{label: "Card number"}, {label: "Expiry (MM/YY)"}, {label: "CVV", secret: true}, {label: "Cardholder"}}
	case payment.MethodPaypal:
		m.payFields = []field{{label: "PayPal email"}}
	default:
		m.payFields = nil
	}
	m.payCursor = 0
}

func (m model) Init() tea.Cmd {
	if m.client != nil {
		return m.fetchProducts
	}
	return nil
}

func (m model) fetchProducts() tea.Msg {
	ps, err := m.client.ListProducts(context.Background())
	return productsMsg{products: ps, err: err}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case productsMsg:
		if msg.err == nil && len(msg.products) > 0 {
			m.products = msg.products
		}
		return m, nil

	case authMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
			return m, nil
		}
		sess := session.Session{UserID: msg.user.ID, Username: msg.user.Username, Email: msg.user.Email, IsAdmin: msg.user.IsAdmin}
		if err := m.sessions.Save(context.Background(), sess); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.status = "signed in as " + sess.Username
		m.screen = screenCatalog
		m.cursor = 0
		return m, nil

	case checkoutMsg:
		m.checkingOut = false
		m.screen = screenCart
		switch {
		case msg.err != nil:
			m.status = msg.err.Error()
		case msg.result.OK:
			m.status = fmt.Sprintf("order completed, total $%.2f", msg.result.Total)
			m.screen = screenCatalog
		default:
			m.status = msg.result.Reason
		}
		m.cursor = 0
		return m, nil

	case submittedMsg:
		// Validation feedback arrives through the toast sink.
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	switch m.screen {
	case screenLogin:
		return m.updateLogin(msg)
	case screenCatalog:
		return m.updateCatalog(msg)
	case screenCart:
		return m.updateCart(msg)
	case screenPayment:
		return m.updatePayment(msg)
	}
	return m, nil
}

func (m model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		m.cursor = (m.cursor + 1) % len(m.loginFields)
	case "shift+tab", "up":
		m.cursor = (m.cursor + len(m.loginFields) - 1) % len(m.loginFields)
	case "ctrl+r":
		m.registering = !m.registering
		m.resetLoginFields()
	case "enter":
		return m.submitLogin()
	case "backspace":
		f := &m.loginFields[m.cursor]
		if len(f.value) > 0 {
			f.value = f.value[:len(f.value)-1]
		}
	default:
		if msg.Type == tea.KeyRunes {
			m.loginFields[m.cursor].value += string(msg.Runes)
		}
	}
	return m, nil
}

func (m model) submitLogin() (tea.Model, tea.Cmd) {
	username := m.loginFields[0].value
	if username == "" {
		m.status = "enter a username"
		return m, nil
	}
	if m.client == nil {
		// Degraded mode: a local guest session, no account on the wire.
		return m, func() tea.Msg {
			return authMsg{user: orderapi.User{ID: uuid.NewString(), Username: username}}
		}
	}
	if m.registering {
		email, password := m.loginFields[1].value, m.loginFields[2].value
		return m, func() tea.Msg {
			u, err := m.client.Register(context.Background(), username, email, password)
			return authMsg{user: u, err: err}
		}
	}
	password := m.loginFields[1].value
	return m, func() tea.Msg {
		u, err := m.client.Login(context.Background(), username, password)
		return authMsg{user: u, err: err}
	}
}

func (m model) updateCatalog(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.products)-1 {
			m.cursor++
		}
	case "enter", "a":
		p := m.products[m.cursor]
		line := cart.Line{ID: p.ID, Title: p.Title, Price: p.Price, Image: p.Image}
		if err := m.carts.Add(context.Background(), line); err != nil {
			m.status = err.Error()
			return m, nil
		}
		return m, m.syncRemoteCart(p.ID)
	case "c":
		m.screen = screenCart
		m.cursor = 0
	case "l":
		if err := m.sessions.Logout(context.Background()); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.carts.Load(context.Background())
		m.registering = false
		m.resetLoginFields()
		m.status = "signed out"
		m.screen = screenLogin
	}
	return m, nil
}

// syncRemoteCart mirrors an add to the server cart, best effort.
func (m model) syncRemoteCart(productID string) tea.Cmd {
	if m.client == nil {
		return nil
	}
	sess, ok := m.sessions.Current()
	if !ok {
		return nil
	}
	return func() tea.Msg {
		_ = m.client.AddToCart(context.Background(), sess.UserID, productID, 1)
		return nil
	}
}

func (m model) updateCart(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	lines := m.carts.Lines()
	switch msg.String() {
	case "esc", "b":
		m.screen = screenCatalog
		m.cursor = 0
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(lines)-1 {
			m.cursor++
		}
	case "+":
		if err := m.carts.UpdateQuantity(context.Background(), m.cursor, cart.Increase); err != nil {
			m.status = err.Error()
		}
	case "-":
		if err := m.carts.UpdateQuantity(context.Background(), m.cursor, cart.Decrease); err != nil {
			m.status = err.Error()
		}
	case "x", "delete":
		if err := m.carts.Remove(context.Background(), m.cursor); err != nil {
			m.status = err.Error()
		}
		if m.cursor > 0 {
			m.cursor--
		}
	case "C":
		if err := m.carts.Clear(context.Background()); err != nil {
			m.status = err.Error()
		}
		m.cursor = 0
	case "enter":
		if m.checkingOut {
			return m, nil
		}
		m.checkingOut = true
		m.method = payment.MethodCard
		m.resetPayFields()
		m.screen = screenPayment
		return m, func() tea.Msg {
			res, err := m.orchestrator.Checkout(context.Background())
			return checkoutMsg{result: res, err: err}
		}
	}
	return m, nil
}

func (m model) updatePayment(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m, func() tea.Msg {
			m.collector.Cancel()
			return nil
		}
	case "left":
		m.method = prevMethod(m.method)
		m.resetPayFields()
	case "right":
		m.method = nextMethod(m.method)
		m.resetPayFields()
	case "tab", "down":
		if len(m.payFields) > 0 {
			m.payCursor = (m.payCursor + 1) % len(m.payFields)
		}
	case "shift+tab", "up":
		if len(m.payFields) > 0 {
			m.payCursor = (m.payCursor + len(m.payFields) - 1) % len(m.payFields)
		}
	case "enter":
		form := m.buildForm()
		return m, func() tea.Msg {
			return submittedMsg{err: m.collector.Submit(form)}
		}
	case "backspace":
		if len(m.payFields) > 0 {
			f := &m.payFields[m.payCursor]
			if len(f.value) > 0 {
				f.value = f.value[:len(f.value)-1]
			}
		}
	default:
		if msg.Type == tea.KeyRunes && len(m.payFields) > 0 {
			m.payFields[m.payCursor].value += string(msg.Runes)
		}
	}
	return m, nil
}

func (m model) buildForm() payment.Form {
	f := payment.Form{Method: m.method}
	switch m.method {
	case payment.MethodCard:
		f.CardNumber = m.payFields[0].value
		f.Expiry = m.payFields[1].value
		f.CVV = m.payFields[2].value
		f.Cardholder = m.payFields[3].value
	case payment.MethodPaypal:
		f.Email = m.payFields[0].value
	}
	return f
}

var methodOrder = []payment.Method{payment.MethodCard, payment.MethodPaypal, payment.MethodCash}

func nextMethod(cur payment.Method) payment.Method {
	for i, pm := range methodOrder {
		if pm == cur {
			return methodOrder[(i+1)%len(methodOrder)]
		}
	}
	return methodOrder[0]
}

func prevMethod(cur payment.Method) payment.Method {
	for i, pm := range methodOrder {
		if pm == cur {
			return methodOrder[(i+len(methodOrder)-1)%len(methodOrder)]
		}
	}
	return methodOrder[0]
}

func (m model) View() string {
	b := &strings.Builder{}
	switch m.screen {
	case screenLogin:
		m.viewLogin(b)
	case screenCatalog:
		m.viewCatalog(b)
	case screenCart:
		m.viewCart(b)
	case screenPayment:
		m.viewPayment(b)
	}
	if m.status != "" {
		fmt.Fprintf(b, "\n%s\n", m.status)
	}
	if last, ok := m.toasts.Last(); ok {
		fmt.Fprintf(b, "[%s] %s\n", last.Level, last.Msg)
	}
	return b.String()
}

func (m model) viewLogin(b *strings.Builder) {
	title := "Sign in"
	if m.registering {
		title = "Create account"
	}
	fmt.Fprintf(b, "GamersHub - %s\n\n", title)
	m.viewFields(b, m.loginFields, m.cursor)
	fmt.Fprintln(b, "\nenter: submit   ctrl+r: toggle register   ctrl+c: quit")
}

func (m model) viewCatalog(b *strings.Builder) {
	fmt.Fprintf(b, "GamersHub - Catalog (%d in cart)\n\n", m.carts.Count())
	for i, p := range m.products {
		marker := " "
		if i == m.cursor {
			marker = ">"
		}
		fmt.Fprintf(b, "%s %-20s $%.2f  %s\n", marker, p.Title, p.Price, p.Category)
	}
	fmt.Fprintln(b, "\na/enter: add to cart   c: cart   l: sign out   q: quit")
}

func (m model) viewCart(b *strings.Builder) {
	fmt.Fprintln(b, "GamersHub - Cart")
	fmt.Fprintln(b)
	lines := m.carts.Lines()
	if len(lines) == 0 {
		fmt.Fprintln(b, "  your cart is empty")
	}
	for i, l := range lines {
		marker := " "
		if i == m.cursor {
			marker = ">"
		}
		fmt.Fprintf(b, "%s %-20s %d × $%.2f = $%.2f\n", marker, l.Title, l.Quantity, l.Price, l.LineTotal())
	}
	t := m.carts.Totals()
	fmt.Fprintf(b, "\n  Subtotal: $%.2f\n  Tax (10%%): $%.2f\n  Total: $%.2f\n", t.Subtotal, t.Tax, t.Total)
	fmt.Fprintln(b, "\n+/-: quantity   x: remove   C: clear   enter: checkout   esc: back")
}

func (m model) viewPayment(b *strings.Builder) {
	fmt.Fprintf(b, "GamersHub - Payment ($%.2f)\n\n", m.carts.Totals().Total)
	for _, pm := range methodOrder {
		marker := " "
		if pm == m.method {
			marker = "*"
		}
		fmt.Fprintf(b, " [%s] %s", marker, pm)
	}
	fmt.Fprintln(b)
	fmt.Fprintln(b)
	if m.method == payment.MethodCash {
		fmt.Fprintln(b, "  cash on delivery, no details needed")
	} else {
		m.viewFields(b, m.payFields, m.payCursor)
	}
	fmt.Fprintln(b, "\nleft/right: method   enter: confirm purchase   esc: cancel")
}

func (m model) viewFields(b *strings.Builder, fields []field, cursor int) {
	for i, f := range fields {
		marker := " "
		if i == cursor {
			marker = ">"
		}
		value := f.value
		if f.secret {
			value = strings.Repeat("*", len(value))
		}
		fmt.Fprintf(b, "%s %-16s %s\n", marker, f.label+":", value)
	}
}
