package intelligence

import (
	"math"

	"marketpulse/models"
)

func quantities(series []models.SalesPoint) []float64 {
	out := make([]float64, len(series))
	for i, p := range series {
		out[i] = p.Quantity
	}
	return out
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

// mean divides by at least one so an empty window averages to zero.
func mean(values []float64) float64 {
	return sum(values) / math.Max(1, float64(len(values)))
}

// popStdDev is the population standard deviation.
func popStdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	variance := 0.0
	for _, v := range values {
		variance += (v - m) * (v - m)
	}
	return math.Sqrt(variance / float64(len(values)))
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
