package services

import "github.com/kriscao123/freshfood-backend/models"

// Amounts are integer VND. Totals are always produced by folding over the
// line items; nothing in the codebase maintains a running total with
// incremental deltas.

// LineTotal returns unitPrice * quantity for a single cart line.
func LineTotal(unitPrice int64, quantity int) (int64, error) {
	if quantity <= 0 {
		return 0, ErrInvalidQuantity
	}
	if unitPrice < 0 {
		return 0, ErrInvalidPrice
	}
	return unitPrice * int64(quantity), nil
}

// CartTotal recomputes the aggregate total from the authoritative line-item
// list.
func CartTotal(items []models.CartItem) (int64, error) {
	var total int64
	for _, item := range items {
		line, err := LineTotal(item.Price, item.Quantity)
		if err != nil {
			return 0, err
		}
		total += line
	}
	return total, nil
}
