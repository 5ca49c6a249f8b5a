package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/angelmondragon/cartsync/pkg/config"
	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
)

const (
	defaultTimeout          = 10 * time.Second
	responseBodyLimit int64 = 1 << 20
	breakerName             = "remote-cart"
)

var (
	errBaseURLRequired = errors.New("cart service base url is required")
	// errCallerCanceled marks calls the caller abandoned; the breaker ignores them.
	errCallerCanceled = errors.New("canceled by caller")
)

// Client talks to the authoritative cart service over JSON/HTTP with a bearer token.
type Client struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
	breaker    *gobreaker.CircuitBreaker[[]byte]
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout overrides the per-call deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithBreaker trips the circuit after the given number of consecutive
// unavailability failures and keeps it open for cooldown. failures == 0 disables it.
func WithBreaker(failures uint32, cooldown time.Duration) Option {
	return func(c *Client) {
		if failures == 0 {
			c.breaker = nil
			return
		}
		c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name:        breakerName,
			MaxRequests: 1,
			Timeout:     cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			IsSuccessful: func(err error) bool {
				if err == nil || errors.Is(err, errCallerCanceled) {
					return true
				}
				return !pkgerrors.Is(err, pkgerrors.CodeRemoteUnavailable)
			},
		})
	}
}

// NewClient builds a cart service client rooted at baseURL (for example
// "https://shop.example.com/api").
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	client := &Client{
		baseURL:    trimmed,
		timeout:    defaultTimeout,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// NewClientFromConfig wires the client from the remote section of the config.
func NewClientFromConfig(cfg config.RemoteConfig) (*Client, error) {
	return NewClient(cfg.BaseURL,
		WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		WithTimeout(cfg.Timeout),
		WithBreaker(cfg.BreakerFailures, cfg.BreakerCooldown),
	)
}

// GetCart returns the authoritative cart for the token's actor.
func (c *Client) GetCart(ctx context.Context, token string) (*Cart, error) {
	body, err := c.do(ctx, http.MethodGet, "/cart", token, nil, false)
	if err != nil {
		return nil, err
	}
	var cart Cart
	if err := decode(body, &cart); err != nil {
		return nil, err
	}
	if cart.Items == nil {
		cart.Items = []Line{}
	}
	return &cart, nil
}

// AddItem adds quantity of productID; the service assigns the line id.
func (c *Client) AddItem(ctx context.Context, token, productID string, quantity int) error {
	_, err := c.do(ctx, http.MethodPost, "/cart/add", token, addItemRequest{ProductID: productID, Quantity: quantity}, false)
	return err
}

// UpdateItem sets the quantity of an existing line.
func (c *Client) UpdateItem(ctx context.Context, token, lineID string, quantity int) error {
	_, err := c.do(ctx, http.MethodPut, "/cart/"+url.PathEscape(lineID), token, updateItemRequest{Quantity: quantity}, true)
	return err
}

// RemoveItem deletes a line.
func (c *Client) RemoveItem(ctx context.Context, token, lineID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/cart/"+url.PathEscape(lineID), token, nil, true)
	return err
}

// Checkout converts the server-held cart into an order.
func (c *Client) Checkout(ctx context.Context, token string) (*Order, error) {
	body, err := c.do(ctx, http.MethodPost, "/cart/checkout", token, nil, false)
	if err != nil {
		return nil, err
	}
	var resp checkoutResponse
	if err := decode(body, &resp); err != nil {
		return nil, err
	}
	if resp.Order == nil {
		return &Order{}, nil
	}
	return resp.Order, nil
}

// Ping reports whether the service answers HTTP at all; any status counts.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/cart", nil)
	if err != nil {
		return fmt.Errorf("build ping request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ping cart service: %w", err)
	}
	_ = resp.Body.Close()
	return nil
}

func (c *Client) do(ctx context.Context, method, path, token string, payload any, lineKeyed bool) ([]byte, error) {
	call := func() ([]byte, error) {
		return c.roundTrip(ctx, method, path, token, payload, lineKeyed)
	}
	if c.breaker == nil {
		return call()
	}
	body, err := c.breaker.Execute(call)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeRemoteUnavailable, err, "cart service temporarily unavailable")
	}
	return body, err
}

func (c *Client) roundTrip(parent context.Context, method, path, token string, payload any, lineKeyed bool) ([]byte, error) {
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal cart request")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build cart request")
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(parent.Err(), context.Canceled) {
			return nil, callerCanceled(err)
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeRemoteUnavailable, err, "cart service timed out")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeRemoteUnavailable, err, "cart service unreachable")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyLimit))
	if err != nil {
		if errors.Is(parent.Err(), context.Canceled) {
			return nil, callerCanceled(err)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeRemoteUnavailable, err, "read cart service response")
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}
	return nil, classify(resp.StatusCode, body, lineKeyed)
}

func callerCanceled(err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeRemoteUnavailable, fmt.Errorf("%w: %w", errCallerCanceled, err), "cart request canceled")
}

func decode(body []byte, dest any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnclassified, err, "unexpected cart service response")
	}
	return nil
}
