package enums

// CartOperation names an entry point of the cart engine.
type CartOperation string

const (
	CartOperationFetch          CartOperation = "fetch"
	CartOperationAdd            CartOperation = "add"
	CartOperationUpdateQuantity CartOperation = "update_quantity"
	CartOperationRemove         CartOperation = "remove"
	CartOperationCheckout       CartOperation = "checkout"
)

// String implements fmt.Stringer.
func (o CartOperation) String() string {
	return string(o)
}
