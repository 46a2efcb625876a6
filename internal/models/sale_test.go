package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaleStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to SaleStatus
		ok       bool
	}{
		{SalePending, SalePaid, true},
		{SalePending, SaleFailed, true},
		{SalePaid, SaleDelivered, true},
		{SalePending, SaleDelivered, false},
		{SalePaid, SaleFailed, false},
		{SalePaid, SalePending, false},
		{SaleDelivered, SalePaid, false},
		{SaleDelivered, SaleFailed, false},
		{SaleFailed, SalePaid, false},
		{SalePending, SalePending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransition(tt.to))
		})
	}
}

func TestSaleTransition(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	sale := &Sale{ID: "s1", Status: SalePending, CreatedAt: created, UpdatedAt: created}

	t.Run("stamps updated time", func(t *testing.T) {
		at := created.Add(time.Minute)
		require.NoError(t, sale.Transition(SalePaid, at))
		assert.Equal(t, SalePaid, sale.Status)
		assert.Equal(t, at, sale.UpdatedAt)
	})

	t.Run("rejects skipping back", func(t *testing.T) {
		err := sale.Transition(SalePending, created)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, SalePaid, sale.Status)
	})

	t.Run("delivered is terminal", func(t *testing.T) {
		require.NoError(t, sale.Transition(SaleDelivered, created))
		assert.True(t, sale.Status.Terminal())
		assert.ErrorIs(t, sale.Transition(SaleFailed, created), ErrInvalidTransition)
	})
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "4.99", FormatAmount(499))
	assert.Equal(t, "0.05", FormatAmount(5))
	assert.Equal(t, "12.00", FormatAmount(1200))
	assert.Equal(t, "-1.50", FormatAmount(-150))
}

func TestParseArchetype(t *testing.T) {
	a, err := ParseArchetype("  Professor ")
	require.NoError(t, err)
	assert.Equal(t, Professor, a)

	_, err = ParseArchetype("pirate")
	assert.ErrorIs(t, err, ErrUnknownArchetype)
}

func TestEventCategory(t *testing.T) {
	assert.Equal(t, "content", AnalyticsEvent{EventType: EventContentGenerated}.Category())
	assert.Equal(t, "custom", AnalyticsEvent{EventType: "custom"}.Category())
}
