package cartsync

// CalculateTotals derives the item count and subtotal from an item list.
// It is the single source of truth for CartState.TotalItems and
// CartState.Subtotal; no other code sets those fields independently.
func CalculateTotals(items []CartItem) (totalItems int, subtotal float64) {
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		totalItems += item.Quantity
		subtotal += parsePrice(item.Price) * float64(item.Quantity)
	}
	return totalItems, subtotal
}
