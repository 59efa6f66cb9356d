// Command shop is the terminal storefront. It drives the cart, session,
// payment, and checkout core against the order service named by
// ORDER_API_URL, or in degraded local-only mode when unset.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"gamershub/pkg/cart"
	"gamershub/pkg/checkout"
	"gamershub/pkg/kv/sqlite"
	"gamershub/pkg/notify"
	"gamershub/pkg/orderapi"
	"gamershub/pkg/payment"
	"gamershub/pkg/session"
)

func main() {
	statePath := os.Getenv("SHOP_STATE_PATH")
	if statePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "resolve home dir:", err)
			os.Exit(1)
		}
		dir := filepath.Join(home, ".gamershub")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintln(os.Stderr, "create state dir:", err)
			os.Exit(1)
		}
		statePath = filepath.Join(dir, "state.db")
	}

	state, err := sqlite.Open(statePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open state:", err)
		os.Exit(1)
	}
	defer state.Close()

	toasts := &notify.Recorder{}
	carts := cart.NewStore(state, toasts)
	sessions := session.NewManager(state)

	ctx := context.Background()
	carts.Load(ctx)
	sessions.Load(ctx)

	var client *orderapi.Client
	var remote checkout.Remote
	if url := os.Getenv("ORDER_API_URL"); url != "" {
		client = orderapi.New(url, nil)
		remote = client
	}

	collector := payment.NewCollector(toasts)
	orchestrator := checkout.New(carts, sessions, collector, remote, toasts)

	m := newModel(carts, sessions, collector, orchestrator, client, toasts)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintln(os.Stderr, "shop:", err)
		os.Exit(1)
	}
}
