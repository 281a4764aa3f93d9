package order

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"pending to processing", StatusPending, StatusProcessing, true},
		{"paid to processing", StatusPaid, StatusProcessing, true},
		{"processing to shipped", StatusProcessing, StatusShipped, true},
		{"shipped to delivered", StatusShipped, StatusDelivered, true},
		{"pending to canceled", StatusPending, StatusCanceled, true},
		{"shipped to canceled", StatusShipped, StatusCanceled, true},

		{"pending to shipped skips processing", StatusPending, StatusShipped, false},
		{"pending to delivered skips everything", StatusPending, StatusDelivered, false},
		{"delivered to shipped rewinds", StatusDelivered, StatusShipped, false},
		{"delivered to canceled", StatusDelivered, StatusCanceled, false},
		{"canceled to processing", StatusCanceled, StatusProcessing, false},
		{"canceled order cannot ship", StatusCanceled, StatusShipped, false},
		{"no transition targets pending", StatusPaid, StatusPending, false},
		{"no transition targets paid", StatusPending, StatusPaid, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, canTransition(tt.from, tt.to))
		})
	}
}

func TestAllowedSources(t *testing.T) {
	assert.Nil(t, AllowedSources(StatusPending), "pending is never a seller target")
	assert.Nil(t, AllowedSources(StatusPaid), "paid only moves via the payment webhook")
	assert.ElementsMatch(t, []Status{StatusProcessing}, AllowedSources(StatusShipped))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(StatusDelivered))
	assert.True(t, IsTerminal(StatusCanceled))
	assert.False(t, IsTerminal(StatusPending))
	assert.False(t, IsTerminal(StatusShipped))
}

func TestShippingDisplay(t *testing.T) {
	mk := func(total string, subtotals ...string) *Order {
		o := &Order{TotalAmount: decimal.RequireFromString(total)}
		for _, s := range subtotals {
			o.Items = append(o.Items, Item{Subtotal: decimal.RequireFromString(s)})
		}
		return o
	}

	t.Run("gap between total and items is shipping", func(t *testing.T) {
		o := mk("1500.00", "1450.00")
		assert.True(t, o.ShippingDisplay().Equal(decimal.RequireFromString("50")))
	})

	t.Run("multiple items", func(t *testing.T) {
		o := mk("1500.00", "1000.00", "450.00")
		assert.True(t, o.ShippingDisplay().Equal(decimal.RequireFromString("50")))
	})

	t.Run("free shipping", func(t *testing.T) {
		o := mk("1450.00", "1450.00")
		assert.True(t, o.ShippingDisplay().IsZero())
	})

	t.Run("inconsistent data floors at zero", func(t *testing.T) {
		o := mk("1400.00", "1450.00")
		assert.True(t, o.ShippingDisplay().IsZero())
	})
}
