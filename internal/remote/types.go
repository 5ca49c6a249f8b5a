package remote

import "github.com/shopspring/decimal"

// Line is one cart row as returned by the cart service.
type Line struct {
	ID           string          `json:"id"`
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductPrice decimal.Decimal `json:"product_price"`
	Quantity     int             `json:"quantity"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	ImageURL     string          `json:"image_url,omitempty"`
}

// Cart is the authoritative server-held cart.
type Cart struct {
	Items []Line          `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// OrderItem is one line of a created order.
type OrderItem struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Order summarizes the order produced by checkout. Timestamps are kept as the
// service formats them (naive UTC, no zone suffix).
type Order struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Total     decimal.Decimal `json:"total"`
	Status    string          `json:"status"`
	Items     []OrderItem     `json:"items"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
}

// UnavailableProduct is reported when checkout finds insufficient stock.
type UnavailableProduct struct {
	ProductID         string `json:"product_id"`
	ProductName       string `json:"product_name,omitempty"`
	RequestedQuantity int    `json:"requested_quantity,omitempty"`
	AvailableStock    int    `json:"available_stock,omitempty"`
	Message           string `json:"message,omitempty"`
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

type checkoutResponse struct {
	Message string `json:"message"`
	Order   *Order `json:"order"`
}

type errorResponse struct {
	Message             string               `json:"message"`
	UnavailableProducts []UnavailableProduct `json:"unavailable_products,omitempty"`
}
