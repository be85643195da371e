package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.23, Round2(1.234))
	assert.Equal(t, 1.24, Round2(1.236))
	assert.Equal(t, -1.24, Round2(-1.236))
	assert.Equal(t, 0.0, Round2(0))
	assert.Equal(t, 10.0, Round2(10.0))
}

func TestComputeTotals(t *testing.T) {
	// 12 cartons of milk at 8.50 plus 48 loaves at 3.75:
	// subtotal 282.00, GST 28.20, total 310.20
	items := []OrderItem{
		{Quantity: 12, UnitPrice: 8.50},
		{Quantity: 48, UnitPrice: 3.75},
	}

	totals := ComputeTotals(items)

	assert.Equal(t, 282.00, totals.Subtotal)
	assert.Equal(t, 28.20, totals.TaxAmount)
	assert.Equal(t, 310.20, totals.TotalAmount)
}

func TestComputeTotalsEmpty(t *testing.T) {
	totals := ComputeTotals(nil)

	assert.Equal(t, 0.0, totals.Subtotal)
	assert.Equal(t, 0.0, totals.TaxAmount)
	assert.Equal(t, 0.0, totals.TotalAmount)
}

func TestComputeTotalsRoundsIndependently(t *testing.T) {
	// Fractional line prices accumulate at full precision before rounding
	items := []OrderItem{
		{Quantity: 3, UnitPrice: 0.333},
	}

	totals := ComputeTotals(items)

	// subtotal 0.999 -> 1.00, tax 0.0999 -> 0.10, total 1.0989 -> 1.10
	assert.Equal(t, 1.00, totals.Subtotal)
	assert.Equal(t, 0.10, totals.TaxAmount)
	assert.Equal(t, 1.10, totals.TotalAmount)
}

func TestOrderApprovedEventUnmarshal(t *testing.T) {
	recordPayload := []byte(`{"record":{"order_number":"ORD-2026-00042"}}`)
	orderPayload := []byte(`{"order":{"order_number":"ORD-2026-00042"}}`)

	var fromRecord OrderApprovedEvent
	assert.NoError(t, fromRecord.UnmarshalJSON(recordPayload))
	assert.Equal(t, "ORD-2026-00042", fromRecord.OrderNumber)

	var fromOrder OrderApprovedEvent
	assert.NoError(t, fromOrder.UnmarshalJSON(orderPayload))
	assert.Equal(t, "ORD-2026-00042", fromOrder.OrderNumber)
}
