package intelligence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCalendarFactors(t *testing.T) {
	p := DefaultParams()

	tests := []struct {
		name      string
		date      time.Time
		dayOfWeek string
		dow       float64
		payday    float64
		isPayday  bool
	}{
		{"saturday early month", day(2024, 3, 2), "saturday", 1.30, 1.30, true},
		{"sunday early month", day(2024, 3, 3), "sunday", 0.80, 1.30, true},
		{"tuesday mid month", day(2024, 3, 12), "tuesday", 0.95, 1.0, false},
		{"thursday saving mode", day(2024, 3, 21), "thursday", 1.05, 0.90, false},
		{"monday late month", day(2024, 3, 25), "monday", 0.90, 1.30, true},
		{"friday day 5", day(2024, 4, 5), "friday", 1.15, 1.30, true},
		{"saturday day 6", day(2024, 4, 6), "saturday", 1.30, 1.0, false},
		{"wednesday day 24", day(2024, 4, 24), "wednesday", 1.00, 0.90, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := p.CalendarFactors(tt.date)
			require.NoError(t, err)

			assert.Equal(t, tt.dayOfWeek, f.DayOfWeek)
			assert.Equal(t, tt.dow, f.DayOfWeekFactor)
			assert.Equal(t, tt.payday, f.PaydayFactor)
			assert.Equal(t, tt.isPayday, f.IsPayday)
			assert.Equal(t, 1.0, f.SpecialDayFactor)
			assert.Equal(t, f.DayOfWeekFactor*f.PaydayFactor*f.SpecialDayFactor, f.TotalFactor)
		})
	}
}

func TestCalendarFactorsDeterministic(t *testing.T) {
	p := DefaultParams()
	for d := day(2024, 1, 1); d.Before(day(2025, 1, 1)); d = d.AddDate(0, 0, 1) {
		a, err := p.CalendarFactors(d)
		require.NoError(t, err)
		b, err := p.CalendarFactors(d)
		require.NoError(t, err)
		require.Equal(t, a, b)
		require.Equal(t, a.DayOfWeekFactor*a.PaydayFactor*a.SpecialDayFactor, a.TotalFactor)
	}
}

func TestCalendarFactorsSpecialDay(t *testing.T) {
	p := DefaultParams()
	p.SpecialDays = map[string]float64{"2024-03-12": 1.5}

	f, err := p.CalendarFactors(day(2024, 3, 12))
	require.NoError(t, err)
	assert.Equal(t, 1.5, f.SpecialDayFactor)
	assert.InDelta(t, 0.95*1.5, f.TotalFactor, 1e-9)
}

func TestCalendarFactorsInvalidDate(t *testing.T) {
	p := DefaultParams()

	_, err := p.CalendarFactors(time.Time{})
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = p.CalendarFactorsFor("not-a-date")
	assert.ErrorIs(t, err, ErrInvalidDate)

	f, err := p.CalendarFactorsFor("2024-03-02")
	require.NoError(t, err)
	assert.Equal(t, "saturday", f.DayOfWeek)
}
