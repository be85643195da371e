package domain

import "math"

// Round2 rounds a monetary amount to 2 decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// OrderTotals holds the three stored monetary figures of an order.
type OrderTotals struct {
	Subtotal    float64
	TaxAmount   float64
	TotalAmount float64
}

// TaxRate is the flat GST rate applied to all orders.
const TaxRate = 0.10

// ComputeTotals derives an order's stored totals from its line items.
// Line totals are accumulated at full precision; the subtotal, tax and
// total are each rounded independently so the stored figures never drift
// from re-computation.
func ComputeTotals(items []OrderItem) OrderTotals {
	var subtotal float64
	for _, item := range items {
		subtotal += item.UnitPrice * float64(item.Quantity)
	}
	tax := subtotal * TaxRate
	return OrderTotals{
		Subtotal:    Round2(subtotal),
		TaxAmount:   Round2(tax),
		TotalAmount: Round2(subtotal + tax),
	}
}
