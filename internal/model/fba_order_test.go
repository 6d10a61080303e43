package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFBAOrderStatus(t *testing.T) {
	now := time.Now()
	weight := 2.5
	sent := 10

	cases := []struct {
		name  string
		order FBAOrder
		want  string
	}{
		{"fresh", FBAOrder{}, StatusNotProcessed},
		{"printed without weight", FBAOrder{Printed: true}, StatusPrinted},
		{"printed with details", FBAOrder{Printed: true, BoxWeight: &weight, QuantitySent: &sent}, StatusReady},
		{"on hold", FBAOrder{Printed: true, OnHold: true}, StatusOnHold},
		{"stopped beats hold", FBAOrder{OnHold: true, IsStopped: true}, StatusStopped},
		{"closed beats everything", FBAOrder{ClosedAt: &now, IsStopped: true, OnHold: true}, StatusFulfilled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.order.Status())
		})
	}
}

func TestFBAOrderStatusPrintedWithWeightOnly(t *testing.T) {
	weight := 1.0
	o := FBAOrder{Printed: true, BoxWeight: &weight}
	// weight recorded but quantity missing: not ready, no longer just printed
	assert.Equal(t, StatusNotProcessed, o.Status())
	assert.False(t, o.DetailsComplete())
}

func TestFBAOrderClose(t *testing.T) {
	o := FBAOrder{Priority: 1, OnHold: true, IsStopped: true}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	o.Close(at)

	assert.True(t, o.IsClosed())
	assert.Equal(t, at, *o.ClosedAt)
	assert.Equal(t, MaxPriority, o.Priority)
	assert.False(t, o.OnHold)
	assert.False(t, o.IsStopped)
	assert.False(t, o.IsPrioritised())
}

func TestFBAOrderIsPrioritised(t *testing.T) {
	assert.False(t, (&FBAOrder{Priority: MaxPriority}).IsPrioritised())
	assert.True(t, (&FBAOrder{Priority: 1}).IsPrioritised())
	assert.True(t, (&FBAOrder{Priority: 998}).IsPrioritised())
}
