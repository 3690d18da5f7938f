package intelligence

import (
	"time"

	"marketpulse/models"
)

// Burst scores the latest day against the rest of the series.
func (p Params) Burst(series []models.SalesPoint) models.BurstResult {
	if len(series) < p.BurstMinPoints {
		return normalBurst()
	}

	qty := quantities(series)
	baseline := qty[:len(qty)-1]
	latest := qty[len(qty)-1]

	m := mean(baseline)
	sd := popStdDev(baseline)
	if sd == 0 {
		sd = 1
	}

	z := roundTo((latest-m)/sd, 2)
	severity := p.burstSeverity(z)

	classification := models.ClassificationNormal
	if severity != models.BurstNormal {
		classification = classifyBurst(series[len(series)-1].Date)
	}

	return models.BurstResult{
		Score:          z,
		Severity:       severity,
		Classification: classification,
	}
}

func normalBurst() models.BurstResult {
	return models.BurstResult{
		Score:          0,
		Severity:       models.BurstNormal,
		Classification: models.ClassificationNormal,
	}
}

func (p Params) burstSeverity(z float64) models.BurstSeverity {
	switch {
	case z > p.BurstCriticalZ:
		return models.BurstCritical
	case z > p.BurstHighZ:
		return models.BurstHigh
	case z > p.BurstMediumZ:
		return models.BurstMedium
	default:
		return models.BurstNormal
	}
}

// classifyBurst treats weekend spikes as seasonal.
func classifyBurst(d time.Time) models.BurstClassification {
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return models.ClassificationSeasonal
	default:
		return models.ClassificationSpike
	}
}
