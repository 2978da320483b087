package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundHalfUp(t *testing.T) {
	cases := map[string]string{
		"10.005":  "10.01",
		"10.004":  "10",
		"42.4975": "42.5",
		"0.125":   "0.13",
	}
	for in, want := range cases {
		got := Round(decimal.RequireFromString(in))
		assert.True(t, got.Equal(decimal.RequireFromString(want)), "round(%s) = %s, want %s", in, got, want)
	}
}

func TestApplyDiscount(t *testing.T) {
	got := Round(ApplyDiscount(decimal.RequireFromString("50"), decimal.NewFromInt(15)))
	assert.Equal(t, "42.5", got.String())
}

func TestCentsRoundTrip(t *testing.T) {
	assert.Equal(t, int64(4999), ToCents(decimal.RequireFromString("49.99")))
	assert.Equal(t, int64(1001), ToCents(decimal.RequireFromString("10.005")))
	assert.True(t, FromCents(4999).Equal(decimal.RequireFromString("49.99")))
}

func TestWithinTolerance(t *testing.T) {
	tol := decimal.RequireFromString("0.001")
	assert.True(t, WithinTolerance(decimal.RequireFromString("49.99"), decimal.RequireFromString("49.9905"), tol))
	assert.False(t, WithinTolerance(decimal.RequireFromString("49.99"), decimal.RequireFromString("45.00"), tol))
}

func TestParse(t *testing.T) {
	d, err := Parse("12.50")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("12.5")))

	_, err = Parse("-1")
	require.Error(t, err)
	_, err = Parse("abc")
	require.Error(t, err)
}
