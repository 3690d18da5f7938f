// Package intelligence turns a product's daily sales history into momentum
// and burst signals, short-horizon demand forecasts and stocking advice.
package intelligence

import (
	"strings"
	"time"

	"marketpulse/config"
)

// Params is the in-memory form of config.IntelligenceConfig.
type Params struct {
	DayOfWeekFactors   [7]float64 // indexed by time.Weekday
	PaydayFactor       float64
	SavingFactor       float64
	PaydayEarlyEndDay  int
	PaydayLateStartDay int
	SavingStartDay     int
	SavingEndDay       int
	SpecialDays        map[string]float64 // keyed by models.DateLayout

	MinTrainingDays int
	MomentumWindow  int
	TrendingUpRatio float64
	GrowingRatio    float64
	FallingRatio    float64
	DecliningRatio  float64

	BurstMinPoints int
	BurstMediumZ   float64
	BurstHighZ     float64
	BurstCriticalZ float64

	SinusoidAmplitude     float64
	SinusoidFrequency     float64
	VarianceBoundFraction float64
	ExpectedBoundFraction float64
	MediumConfidenceDays  int

	ModelAgreement  float64
	FullQualityDays int
	MinForecastDays int
	MaxForecastDays int
	HistoryDays     int

	ServiceLevels map[string]float64

	ReportTrendDays   int
	ReportBurstDays   int
	ReportConcurrency int
	ReportTopN        int
}

// DefaultParams returns the engine defaults.
func DefaultParams() Params {
	return ParamsFromConfig(config.DefaultIntelligence())
}

// ParamsFromConfig converts the configuration section. Weekdays missing from
// the factor table fall back to the default table.
func ParamsFromConfig(ic config.IntelligenceConfig) Params {
	defaults := config.DefaultIntelligence()

	var dow [7]float64
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		f, ok := ic.DayOfWeekFactors[name]
		if !ok || f <= 0 {
			f = defaults.DayOfWeekFactors[name]
		}
		dow[d] = f
	}

	special := make(map[string]float64, len(ic.SpecialDays))
	for day, f := range ic.SpecialDays {
		special[day] = f
	}

	levels := make(map[string]float64, len(defaults.ServiceLevels))
	for name, z := range defaults.ServiceLevels {
		levels[name] = z
	}
	for name, z := range ic.ServiceLevels {
		levels[strings.ToLower(name)] = z
	}

	return Params{
		DayOfWeekFactors:   dow,
		PaydayFactor:       ic.PaydayFactor,
		SavingFactor:       ic.SavingFactor,
		PaydayEarlyEndDay:  ic.PaydayEarlyEndDay,
		PaydayLateStartDay: ic.PaydayLateStartDay,
		SavingStartDay:     ic.SavingStartDay,
		SavingEndDay:       ic.SavingEndDay,
		SpecialDays:        special,

		MinTrainingDays: ic.MinTrainingDays,
		MomentumWindow:  ic.MomentumWindow,
		TrendingUpRatio: ic.TrendingUpRatio,
		GrowingRatio:    ic.GrowingRatio,
		FallingRatio:    ic.FallingRatio,
		DecliningRatio:  ic.DecliningRatio,

		BurstMinPoints: ic.BurstMinPoints,
		BurstMediumZ:   ic.BurstMediumZ,
		BurstHighZ:     ic.BurstHighZ,
		BurstCriticalZ: ic.BurstCriticalZ,

		SinusoidAmplitude:     ic.SinusoidAmplitude,
		SinusoidFrequency:     ic.SinusoidFrequency,
		VarianceBoundFraction: ic.VarianceBoundFraction,
		ExpectedBoundFraction: ic.ExpectedBoundFraction,
		MediumConfidenceDays:  ic.MediumConfidenceDays,

		ModelAgreement:  ic.ModelAgreement,
		FullQualityDays: ic.FullQualityDays,
		MinForecastDays: ic.MinForecastDays,
		MaxForecastDays: ic.MaxForecastDays,
		HistoryDays:     ic.HistoryDays,

		ServiceLevels: levels,

		ReportTrendDays:   ic.ReportTrendDays,
		ReportBurstDays:   ic.ReportBurstDays,
		ReportConcurrency: ic.ReportConcurrency,
		ReportTopN:        ic.ReportTopN,
	}
}

// ClampDays bounds a requested forecast horizon.
func (p Params) ClampDays(days int) int {
	if days < p.MinForecastDays {
		return p.MinForecastDays
	}
	if days > p.MaxForecastDays {
		return p.MaxForecastDays
	}
	return days
}
