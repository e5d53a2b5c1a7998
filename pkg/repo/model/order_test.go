package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{OrderPending, OrderConfirmed, true},
		{OrderPending, OrderCancelled, true},
		{OrderPending, OrderShipped, false},
		{OrderPending, OrderDelivered, false},
		{OrderConfirmed, OrderShipped, true},
		{OrderConfirmed, OrderPending, false},
		{OrderShipped, OrderOutForDelivery, true},
		{OrderShipped, OrderCancelled, true},
		{OrderOutForDelivery, OrderDelivered, true},
		{OrderOutForDelivery, OrderCancelled, true},
		{OrderDelivered, OrderCancelled, false},
		{OrderDelivered, OrderPending, false},
		{OrderCancelled, OrderPending, false},
		{OrderCancelled, OrderConfirmed, false},
		{OrderPending, OrderPending, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.ok, c.from.CanTransitionTo(c.to), "%s -> %s", c.from, c.to)
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	assert.True(t, OrderDelivered.IsTerminal())
	assert.True(t, OrderCancelled.IsTerminal())
	assert.False(t, OrderPending.IsTerminal())
	assert.False(t, OrderStatus("bogus").IsTerminal())
	assert.Empty(t, OrderDelivered.Transitions())

	next := OrderPending.Transitions()
	next[0] = OrderDelivered
	assert.Equal(t, []OrderStatus{OrderConfirmed, OrderCancelled}, OrderPending.Transitions())
}

func TestParseOrderStatus(t *testing.T) {
	st, ok := ParseOrderStatus("out_for_delivery")
	assert.True(t, ok)
	assert.Equal(t, OrderOutForDelivery, st)
	assert.Equal(t, "Out for delivery", st.Label())

	_, ok = ParseOrderStatus("Pending")
	assert.False(t, ok)
}

func TestOrderStamp(t *testing.T) {
	first := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	o := &Order{}
	o.Stamp(OrderConfirmed, first)
	o.Stamp(OrderConfirmed, first.Add(time.Hour))
	o.Stamp(OrderPending, first)

	if assert.NotNil(t, o.ConfirmedAt) {
		assert.Equal(t, first, *o.ConfirmedAt)
	}
	assert.Nil(t, o.ShippedAt)
	assert.Nil(t, o.CancelledAt)
}

func TestTotalDosage(t *testing.T) {
	assert.True(t, TotalDosage(5, decimal.NewFromInt(8)).Equal(decimal.NewFromInt(40)))
	assert.True(t, TotalDosage(3, decimal.RequireFromString("0.125")).Equal(decimal.RequireFromString("0.375")))
}
