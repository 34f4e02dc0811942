package cartsync

import "testing"

func TestCalculateTotals(t *testing.T) {
	items := []CartItem{
		{ProductID: "p1", Price: "5.50", Quantity: 2},
		{ProductID: "p2", Price: "12.00", Quantity: 1},
	}

	totalItems, subtotal := CalculateTotals(items)
	if totalItems != 3 {
		t.Errorf("expected 3 total items, got %d", totalItems)
	}
	if subtotal != 23.0 {
		t.Errorf("expected subtotal 23.0, got %f", subtotal)
	}
}

func TestCalculateTotalsEmpty(t *testing.T) {
	totalItems, subtotal := CalculateTotals(nil)
	if totalItems != 0 || subtotal != 0 {
		t.Errorf("expected zero totals, got %d / %f", totalItems, subtotal)
	}
}

func TestCalculateTotalsSkipsRemovedAndBadPrices(t *testing.T) {
	items := []CartItem{
		{ProductID: "p1", Price: "5.00", Quantity: 0},        // marked for removal
		{ProductID: "p2", Price: "not-a-price", Quantity: 2}, // counts items, not money
		{ProductID: "p3", Price: "-4.00", Quantity: 1},
	}

	totalItems, subtotal := CalculateTotals(items)
	if totalItems != 3 {
		t.Errorf("expected 3 total items, got %d", totalItems)
	}
	if subtotal != 0 {
		t.Errorf("expected subtotal 0, got %f", subtotal)
	}
}
