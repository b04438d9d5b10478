package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderType(t *testing.T) {
	tests := map[string]OrderType{
		"delivery": OrderTypeDelivery,
		" PICKUP ": OrderTypePickup,
		"dine_in":  OrderTypeDineIn,
		"dine-in":  OrderTypeDineIn,
	}
	for raw, want := range tests {
		got, err := ParseOrderType(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got)
	}

	_, err := ParseOrderType("drone")
	assert.Error(t, err)
}

func TestParseStatus(t *testing.T) {
	got, err := ParseStatus("out_for_delivery")
	require.NoError(t, err)
	assert.Equal(t, StatusOutForDelivery, got)

	_, err = ParseStatus("LOST")
	assert.Error(t, err)
}
