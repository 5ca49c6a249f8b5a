package controllers

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cartsync/api/responses"
	"github.com/angelmondragon/cartsync/internal/cart"
	"github.com/angelmondragon/cartsync/internal/remote"
)

type addItemRequest struct {
	ProductID string `json:"product_id" validate:"required,max=128"`
	Quantity  *int   `json:"quantity" validate:"required"`
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type cartItemResponse struct {
	LineID      string          `json:"line_id"`
	ProductID   string          `json:"product_id"`
	DisplayName string          `json:"display_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	ImageURL    string          `json:"image_url,omitempty"`
}

type snapshotResponse struct {
	Items          []cartItemResponse  `json:"items"`
	TotalItemCount int                 `json:"total_item_count"`
	TotalPrice     decimal.Decimal     `json:"total_price"`
	IsLoading      bool                `json:"is_loading"`
	Loaded         bool                `json:"loaded"`
	LastError      *responses.APIError `json:"last_error,omitempty"`
}

type orderItemResponse struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type orderResponse struct {
	ID        string              `json:"id"`
	Total     decimal.Decimal     `json:"total"`
	Status    string              `json:"status"`
	Items     []orderItemResponse `json:"items"`
	CreatedAt string              `json:"created_at,omitempty"`
}

type checkoutResponse struct {
	Order orderResponse    `json:"order"`
	Cart  snapshotResponse `json:"cart"`
}

func newSnapshotResponse(snap cart.Snapshot) snapshotResponse {
	items := make([]cartItemResponse, 0, len(snap.Items))
	for _, item := range snap.Items {
		items = append(items, cartItemResponse{
			LineID:      item.LineID,
			ProductID:   item.ProductID,
			DisplayName: item.DisplayName,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			Subtotal:    item.Subtotal(),
			ImageURL:    item.ImageURL,
		})
	}
	resp := snapshotResponse{
		Items:          items,
		TotalItemCount: snap.TotalItemCount,
		TotalPrice:     snap.TotalPrice,
		IsLoading:      snap.IsLoading,
		Loaded:         snap.Loaded,
	}
	if snap.LastError != nil {
		apiErr := responses.NewAPIError(snap.LastError)
		resp.LastError = &apiErr
	}
	return resp
}

func newOrderResponse(order *remote.Order) orderResponse {
	if order == nil {
		return orderResponse{Items: []orderItemResponse{}}
	}
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}
	return orderResponse{
		ID:        order.ID,
		Total:     order.Total,
		Status:    order.Status,
		Items:     items,
		CreatedAt: order.CreatedAt,
	}
}
