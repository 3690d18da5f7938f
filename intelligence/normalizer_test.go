package intelligence

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketpulse/models"
)

func TestParseDate(t *testing.T) {
	want := day(2024, 3, 2)

	for _, in := range []any{
		"2024-03-02",
		"2024-03-02T18:45:00Z",
		"2024-03-02T18:45:00.123456",
		"2024-03-02 18:45:00",
		" 2024-03-02 ",
		time.Date(2024, 3, 2, 23, 59, 0, 0, time.UTC),
	} {
		got, err := ParseDate(in)
		require.NoError(t, err, "%v", in)
		assert.Equal(t, want, got, "%v", in)
	}

	for _, in := range []any{"", "02/03/2024", 42, nil, time.Time{}, (*time.Time)(nil)} {
		_, err := ParseDate(in)
		assert.ErrorIs(t, err, ErrInvalidDate, "%v", in)
	}
}

func TestCoerceQuantity(t *testing.T) {
	d := decimal.RequireFromString("2.5")
	tests := []struct {
		in   any
		want float64
	}{
		{3, 3},
		{int64(7), 7},
		{2.5, 2.5},
		{float32(1.5), 1.5},
		{"12", 12},
		{" 4.25 ", 4.25},
		{json.Number("9"), 9},
		{d, 2.5},
		{&d, 2.5},
		{nil, 0},
		{"abc", 0},
		{math.NaN(), 0},
		{math.Inf(1), 0},
		{-4, 0},
		{true, 0},
		{[]int{1}, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CoerceQuantity(tt.in), "%#v", tt.in)
	}
}

func TestNormalize(t *testing.T) {
	rows := []models.RawSalesRow{
		{Date: "2024-03-03", Quantity: 3, ProductName: "Tea"},
		{Date: "garbage", Quantity: 100},
		{Date: "2024-03-01", Quantity: "1"},
		{Date: "2024-03-02", Quantity: nil},
		{Date: "2024-03-01", Quantity: 5},
	}

	series := Normalize(rows)
	require.Len(t, series, 4)

	assert.Equal(t, day(2024, 3, 1), series[0].Date)
	assert.Equal(t, 1.0, series[0].Quantity)
	assert.Equal(t, day(2024, 3, 1), series[1].Date, "same-day rows pass through")
	assert.Equal(t, 5.0, series[1].Quantity)
	assert.Equal(t, 0.0, series[2].Quantity)
	assert.Equal(t, "Tea", series[3].ProductName)
}

func TestNormalizePointsDoesNotMutateInput(t *testing.T) {
	in := []models.SalesPoint{
		{Date: time.Date(2024, 3, 2, 15, 0, 0, 0, time.UTC), Quantity: 2},
		{Date: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), Quantity: -1},
		{Quantity: 9},
	}

	out := NormalizePoints(in)
	require.Len(t, out, 2)
	assert.Equal(t, day(2024, 3, 1), out[0].Date)
	assert.Equal(t, 0.0, out[0].Quantity)
	assert.Equal(t, -1.0, in[1].Quantity)
}

func TestNormalizeEmpty(t *testing.T) {
	assert.Empty(t, Normalize(nil))
	assert.NotNil(t, Normalize(nil))
}
