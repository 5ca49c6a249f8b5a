package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(srv.URL+"/api", opts...)
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient("  ")
	require.Error(t, err)
}

func TestGetCartDecodesLines(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/cart", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"items":[{"id":"L1","product_id":"P1","product_name":"Widget","product_price":"10.50","quantity":2,"subtotal":"21.00","image_url":null}],"total":"21.00"}`)
	})

	cart, err := client.GetCart(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	line := cart.Items[0]
	assert.Equal(t, "L1", line.ID)
	assert.Equal(t, "P1", line.ProductID)
	assert.Equal(t, 2, line.Quantity)
	assert.True(t, line.ProductPrice.Equal(decimal.RequireFromString("10.50")))
}

func TestGetCartEmptyItemsIsNonNil(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"total":"0"}`)
	})

	cart, err := client.GetCart(context.Background(), "tok")
	require.NoError(t, err)
	assert.NotNil(t, cart.Items)
	assert.Empty(t, cart.Items)
}

func TestAddItemSendsBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/cart/add", r.URL.Path)
		var body addItemRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "P9", body.ProductID)
		assert.Equal(t, 3, body.Quantity)
		writeJSON(w, http.StatusOK, map[string]string{"message": "added"})
	})

	require.NoError(t, client.AddItem(context.Background(), "tok", "P9", 3))
}

func TestUpdateItemEscapesLineID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/cart/a%2Fb", r.URL.EscapedPath())
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})

	require.NoError(t, client.UpdateItem(context.Background(), "tok", "a/b", 4))
}

func TestLineKeyedNotFoundIsStale(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Cart item not found"})
	})

	err := client.RemoveItem(context.Background(), "tok", "L1")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStaleReference, pkgerrors.CodeOf(err))
	assert.Equal(t, MessageNotInCart, pkgerrors.UserMessage(err))
}

func TestNotFoundOnAddIsUnclassified(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Product not found"})
	})

	err := client.AddItem(context.Background(), "tok", "P1", 1)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnclassified, pkgerrors.CodeOf(err))
	assert.Equal(t, "Product not found", pkgerrors.UserMessage(err))
}

func TestStatusClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		code   pkgerrors.Code
	}{
		{"unauthorized", http.StatusUnauthorized, pkgerrors.CodeUnauthenticated},
		{"forbidden", http.StatusForbidden, pkgerrors.CodeForbidden},
		{"server error", http.StatusInternalServerError, pkgerrors.CodeRemoteUnavailable},
		{"bad gateway", http.StatusBadGateway, pkgerrors.CodeRemoteUnavailable},
		{"bad request", http.StatusBadRequest, pkgerrors.CodeUnclassified},
		{"conflict", http.StatusConflict, pkgerrors.CodeUnclassified},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tc.status, map[string]string{"message": "nope"})
			})
			_, err := client.GetCart(context.Background(), "tok")
			require.Error(t, err)
			assert.Equal(t, tc.code, pkgerrors.CodeOf(err))

			dump := pkgerrors.Dump(err)
			assert.Equal(t, tc.status, dump.RemoteStatus)
		})
	}
}

func TestCheckoutInsufficientStockCarriesDetails(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message": "Some products are unavailable",
			"unavailable_products": []map[string]any{{
				"product_id":         "P1",
				"product_name":       "Widget",
				"requested_quantity": 5,
				"available_stock":    2,
				"message":            "only 2 left",
			}},
		})
	})

	_, err := client.Checkout(context.Background(), "tok")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnclassified, typed.Code())
	assert.Equal(t, "Some products are unavailable", typed.Message())
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	products, ok := details["unavailable_products"].([]UnavailableProduct)
	require.True(t, ok)
	require.Len(t, products, 1)
	assert.Equal(t, 2, products[0].AvailableStock)
}

func TestCheckoutReturnsOrder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/cart/checkout", r.URL.Path)
		_, _ = io.WriteString(w, `{"message":"Order created","order":{"id":"O1","user_id":"U1","total":"21.00","status":"pending","items":[{"id":"OI1","product_id":"P1","quantity":2,"price":"10.50"}],"created_at":"2024-01-01T10:00:00","updated_at":"2024-01-01T10:00:00"}}`)
	})

	order, err := client.Checkout(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "O1", order.ID)
	assert.Equal(t, "pending", order.Status)
	require.Len(t, order.Items, 1)
	assert.True(t, order.Total.Equal(decimal.RequireFromString("21")))
}

func TestTimeoutIsRemoteUnavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}, WithTimeout(20*time.Millisecond))

	_, err := client.GetCart(context.Background(), "tok")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeRemoteUnavailable, pkgerrors.CodeOf(err))
}

func TestTransportFailureIsRemoteUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	client, err := NewClient(base)
	require.NoError(t, err)
	_, err = client.GetCart(context.Background(), "tok")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeRemoteUnavailable, pkgerrors.CodeOf(err))
}

func TestBreakerOpensOnUnavailability(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "down"})
	}, WithBreaker(2, time.Minute))

	for i := 0; i < 2; i++ {
		_, err := client.GetCart(context.Background(), "tok")
		require.Error(t, err)
	}
	_, err := client.GetCart(context.Background(), "tok")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeRemoteUnavailable, pkgerrors.CodeOf(err))
	assert.Equal(t, int32(2), hits.Load())
}

func TestBreakerIgnoresBusinessRejections(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "gone"})
	}, WithBreaker(1, time.Minute))

	for i := 0; i < 3; i++ {
		err := client.RemoveItem(context.Background(), "tok", "L1")
		assert.Equal(t, pkgerrors.CodeStaleReference, pkgerrors.CodeOf(err))
	}
	assert.Equal(t, int32(3), hits.Load())
}

func TestBreakerIgnoresCallerCancellation(t *testing.T) {
	var slow atomic.Bool
	slow.Store(true)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if slow.Load() {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(2 * time.Second):
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": []any{}, "total": "0"})
	}, WithBreaker(2, time.Minute))

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
		time.AfterFunc(20*time.Millisecond, cancel)
		_, err := client.GetCart(ctx, "tok")
		require.Error(t, err)
		assert.ErrorIs(t, err, errCallerCanceled)
		cancel()
	}

	slow.Store(false)
	cart, err := client.GetCart(context.Background(), "tok")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}
