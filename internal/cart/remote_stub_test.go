package cart

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cartsync/internal/remote"
	"github.com/angelmondragon/cartsync/pkg/auth"
	"github.com/angelmondragon/cartsync/pkg/enums"
)

type updateCall struct {
	lineID   string
	quantity int
}

type addCall struct {
	productID string
	quantity  int
}

// stubRemote records every call; unset hooks succeed with an empty cart.
type stubRemote struct {
	mu sync.Mutex

	getCartCalls  int
	addCalls      []addCall
	updateCalls   []updateCall
	removeCalls   []string
	checkoutCalls int

	getCartFn  func(n int) (*remote.Cart, error)
	addFn      func(productID string, quantity int) error
	updateFn   func(lineID string, quantity int) error
	removeFn   func(lineID string) error
	checkoutFn func() (*remote.Order, error)
}

func (s *stubRemote) GetCart(_ context.Context, _ string) (*remote.Cart, error) {
	s.mu.Lock()
	s.getCartCalls++
	n := s.getCartCalls
	fn := s.getCartFn
	s.mu.Unlock()
	if fn == nil {
		return &remote.Cart{Items: []remote.Line{}}, nil
	}
	return fn(n)
}

func (s *stubRemote) AddItem(_ context.Context, _ string, productID string, quantity int) error {
	s.mu.Lock()
	s.addCalls = append(s.addCalls, addCall{productID: productID, quantity: quantity})
	fn := s.addFn
	s.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(productID, quantity)
}

func (s *stubRemote) UpdateItem(_ context.Context, _ string, lineID string, quantity int) error {
	s.mu.Lock()
	s.updateCalls = append(s.updateCalls, updateCall{lineID: lineID, quantity: quantity})
	fn := s.updateFn
	s.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(lineID, quantity)
}

func (s *stubRemote) RemoveItem(_ context.Context, _ string, lineID string) error {
	s.mu.Lock()
	s.removeCalls = append(s.removeCalls, lineID)
	fn := s.removeFn
	s.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(lineID)
}

func (s *stubRemote) Checkout(_ context.Context, _ string) (*remote.Order, error) {
	s.mu.Lock()
	s.checkoutCalls++
	fn := s.checkoutFn
	s.mu.Unlock()
	if fn == nil {
		return &remote.Order{ID: "O1", Status: "pending"}, nil
	}
	return fn()
}

func (s *stubRemote) totalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getCartCalls + len(s.addCalls) + len(s.updateCalls) + len(s.removeCalls) + s.checkoutCalls
}

func (s *stubRemote) fetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getCartCalls
}

func line(id, productID string, price string, qty int) remote.Line {
	unit := decimal.RequireFromString(price)
	return remote.Line{
		ID:           id,
		ProductID:    productID,
		ProductName:  "Product " + productID,
		ProductPrice: unit,
		Quantity:     qty,
		Subtotal:     unit.Mul(decimal.NewFromInt(int64(qty))),
	}
}

func cartOf(lines ...remote.Line) *remote.Cart {
	if lines == nil {
		lines = []remote.Line{}
	}
	return &remote.Cart{Items: lines}
}

func customer() auth.SessionContext {
	return auth.NewSessionContext("tok", &auth.Actor{ID: "user-1", Role: enums.ActorRoleCustomer})
}

func administrator() auth.SessionContext {
	return auth.NewSessionContext("tok", &auth.Actor{ID: "admin-1", Role: enums.ActorRole("Admin")})
}

func vendor() auth.SessionContext {
	return auth.NewSessionContext("tok", &auth.Actor{ID: "vendor-1", Role: enums.ActorRoleVendor})
}

func newTestEngine(t testing.TB, stub *stubRemote, opts ...EngineOption) *Engine {
	t.Helper()
	engine, err := NewEngine(stub, Policy{AllowVendor: true}, opts...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

// seed loads the engine snapshot through a regular fetch and resets counters.
func seed(t testing.TB, engine *Engine, stub *stubRemote, lines ...remote.Line) {
	t.Helper()
	prev := stub.getCartFn
	stub.getCartFn = func(int) (*remote.Cart, error) { return cartOf(lines...), nil }
	if _, err := engine.Fetch(context.Background(), customer()); err != nil {
		t.Fatalf("seed fetch: %v", err)
	}
	stub.getCartFn = prev
	stub.mu.Lock()
	stub.getCartCalls = 0
	stub.mu.Unlock()
}
