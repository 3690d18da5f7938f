package intelligence

import (
	"fmt"
	"strings"
	"time"

	"marketpulse/models"
)

// CalendarFactors are the multiplicative demand adjustments for one date.
type CalendarFactors struct {
	DayOfWeekFactor  float64 `json:"dayOfWeekFactor"`
	PaydayFactor     float64 `json:"paydayFactor"`
	SpecialDayFactor float64 `json:"specialDayFactor"`
	TotalFactor      float64 `json:"totalFactor"`
	DayOfWeek        string  `json:"dayOfWeek"`
	IsPayday         bool    `json:"isPayday"`
}

// CalendarFactors computes demand factors for d. Only the calendar day of d
// in its own location matters.
func (p Params) CalendarFactors(d time.Time) (CalendarFactors, error) {
	if d.IsZero() {
		return CalendarFactors{}, fmt.Errorf("calendar factors: %w", ErrInvalidDate)
	}

	weekday := d.Weekday()
	dow := p.DayOfWeekFactors[weekday]

	payday, isPayday := p.paydayFactor(d.Day())
	special := p.specialDayFactor(d)

	return CalendarFactors{
		DayOfWeekFactor:  dow,
		PaydayFactor:     payday,
		SpecialDayFactor: special,
		TotalFactor:      dow * payday * special,
		DayOfWeek:        strings.ToLower(weekday.String()),
		IsPayday:         isPayday,
	}, nil
}

// CalendarFactorsFor parses value with ParseDate before computing factors.
func (p Params) CalendarFactorsFor(value any) (CalendarFactors, error) {
	d, err := ParseDate(value)
	if err != nil {
		return CalendarFactors{}, err
	}
	return p.CalendarFactors(d)
}

func (p Params) paydayFactor(dayOfMonth int) (float64, bool) {
	switch {
	case dayOfMonth >= p.PaydayLateStartDay || dayOfMonth <= p.PaydayEarlyEndDay:
		return p.PaydayFactor, true
	case dayOfMonth >= p.SavingStartDay && dayOfMonth <= p.SavingEndDay:
		return p.SavingFactor, false
	default:
		return 1.0, false
	}
}

// specialDayFactor is the hook for holiday boosts; unlisted days are neutral.
func (p Params) specialDayFactor(d time.Time) float64 {
	if f, ok := p.SpecialDays[d.Format(models.DateLayout)]; ok && f > 0 {
		return f
	}
	return 1.0
}
