package intelligence

import (
	"math"
	"time"

	"marketpulse/models"
)

// RuleBasedForecast projects baseline, linear trend and calendar factors
// forward from the last day of the series (or from now when it is empty).
// It does no I/O and is safe for concurrent use.
func (p Params) RuleBasedForecast(series []models.SalesPoint, days int, now time.Time) ([]models.ForecastPoint, error) {
	if days <= 0 {
		return []models.ForecastPoint{}, nil
	}

	anchor := truncateDay(now)
	if len(series) > 0 {
		anchor = truncateDay(series[len(series)-1].Date)
	}

	qty := quantities(series)

	baseline := 1.0
	if len(qty) > 0 {
		baseline = mean(qty)
	}

	trend := dailySlope(qty, p.MomentumWindow)

	variance := baseline * 0.2
	if len(qty) >= 2 {
		variance = popStdDev(qty)
	}

	confidence := models.ConfidenceLow
	if len(series) >= p.MediumConfidenceDays {
		confidence = models.ConfidenceMedium
	}

	points := make([]models.ForecastPoint, 0, days)
	for i := 1; i <= days; i++ {
		target := anchor.AddDate(0, 0, i)
		factors, err := p.CalendarFactors(target)
		if err != nil {
			return nil, err
		}

		expected := math.Max(1, baseline+trend*float64(i)) * factors.TotalFactor
		expected *= 1 + math.Sin(float64(target.Day())*p.SinusoidFrequency)*p.SinusoidAmplitude

		boundRange := math.Max(math.Max(variance*p.VarianceBoundFraction, expected*p.ExpectedBoundFraction), 1)

		points = append(points, models.ForecastPoint{
			Date:              target.Format(models.DateLayout),
			PredictedQuantity: int(math.Round(math.Max(1, expected))),
			Confidence:        confidence,
			LowerBound:        int(math.Max(0, math.Round(expected-boundRange))),
			UpperBound:        int(math.Round(expected + boundRange)),
		})
	}
	return points, nil
}

// dailySlope compares the two halves of the trailing window and spreads the
// difference over the window length.
func dailySlope(qty []float64, window int) float64 {
	if len(qty) < 3 {
		return 0
	}
	recent := qty[max(0, len(qty)-window):]
	half := len(recent) / 2
	return (mean(recent[half:]) - mean(recent[:half])) / float64(len(recent))
}
