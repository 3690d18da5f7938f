package intelligence

import "marketpulse/models"

// Momentum compares the average of the latest window against the window
// before it. Wider bands are checked first.
func (p Params) Momentum(series []models.SalesPoint) models.MomentumResult {
	if len(series) == 0 {
		return models.MomentumResult{Combined: 0, Status: models.MomentumStable}
	}

	ratio := p.momentumRatio(quantities(series))

	return models.MomentumResult{
		Combined: roundTo(ratio, 3),
		Status:   p.momentumStatus(ratio),
	}
}

func (p Params) momentumRatio(qty []float64) float64 {
	n := len(qty)
	w := p.MomentumWindow

	recentStart := max(0, n-w)
	previousStart := max(0, n-2*w)

	avgRecent := mean(qty[recentStart:])
	avgPrevious := mean(qty[previousStart:recentStart])

	if avgPrevious == 0 {
		return 1
	}
	return avgRecent / avgPrevious
}

func (p Params) momentumStatus(ratio float64) models.MomentumStatus {
	switch {
	case ratio > p.TrendingUpRatio:
		return models.MomentumTrendingUp
	case ratio < p.DecliningRatio:
		return models.MomentumDeclining
	case ratio > p.GrowingRatio:
		return models.MomentumGrowing
	case ratio < p.FallingRatio:
		return models.MomentumFalling
	default:
		return models.MomentumStable
	}
}
