package cart

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cartsync/internal/remote"
	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
)

const (
	MinQuantity = 1
	MaxQuantity = 99
)

// CartItem is one line of the cart. LineID is assigned by the cart service and
// is never the product id.
type CartItem struct {
	LineID      string          `json:"line_id"`
	ProductID   string          `json:"product_id"`
	DisplayName string          `json:"display_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	ImageURL    string          `json:"image_url,omitempty"`
}

// Subtotal returns UnitPrice * Quantity.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Snapshot is the full local state of one actor's cart. It is always handed
// out as a copy.
type Snapshot struct {
	Items          []CartItem
	TotalItemCount int
	TotalPrice     decimal.Decimal
	IsLoading      bool
	LastError      *pkgerrors.Error
	Loaded         bool
}

// Empty reports whether the snapshot holds no lines.
func (s Snapshot) Empty() bool {
	return len(s.Items) == 0
}

// Find looks a line up by its line id.
func (s Snapshot) Find(lineID string) (CartItem, bool) {
	for _, item := range s.Items {
		if item.LineID == lineID {
			return item, true
		}
	}
	return CartItem{}, false
}

// ClampQuantity refuses q < 1 and caps anything above 99.
func ClampQuantity(q int) (int, error) {
	return clampQuantity(q, MaxQuantity)
}

func clampQuantity(q, max int) (int, error) {
	if q < MinQuantity {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if q > max {
		return max, nil
	}
	return q, nil
}

func totals(items []CartItem) (int, decimal.Decimal) {
	count := 0
	price := decimal.Zero
	for _, item := range items {
		count += item.Quantity
		price = price.Add(item.Subtotal())
	}
	return count, price
}

func itemsFromRemote(cart *remote.Cart) []CartItem {
	if cart == nil {
		return []CartItem{}
	}
	items := make([]CartItem, 0, len(cart.Items))
	for _, line := range cart.Items {
		items = append(items, CartItem{
			LineID:      line.ID,
			ProductID:   line.ProductID,
			DisplayName: line.ProductName,
			UnitPrice:   line.ProductPrice,
			Quantity:    line.Quantity,
			ImageURL:    line.ImageURL,
		})
	}
	return items
}
