package intelligence

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"marketpulse/metrics"
	"marketpulse/models"
)

// Forecast method tags reported in AnalysisResult.Forecast.Method.
const (
	MethodColdStart = "rule-based (cold start)"
	MethodMLOffline = "rule-based (ML offline)"
	MethodMLFailed  = "rule-based (ML failed)"
	MethodMLSuccess = "hybrid-ml (universal)"
)

const (
	coldStartDataQuality = 0.1
	fallbackDataQuality  = 0.5
	ruleModelAgreement   = 0.5
)

// ForecastGateway is the external forecasting service. Both calls report
// failure through their return value and never return an error.
type ForecastGateway interface {
	IsAvailable(ctx context.Context) bool
	Predict(ctx context.Context, series []models.SalesPoint, days int) *models.MLForecastResponse
}

// AnalyzeRequest is the input of one analysis.
type AnalyzeRequest struct {
	ProductID   string
	ProductName string
	Series      []models.SalesPoint
	Days        int
	Stock       *models.StockInput
	Profit      *models.ProfitInput
}

// Orchestrator sequences normalization, realtime metrics and the forecast
// fallback chain for a single product.
type Orchestrator struct {
	params  Params
	gateway ForecastGateway
	logger  *slog.Logger
	clock   func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock overrides the wall clock used for empty series and timestamps.
func WithClock(clock func() time.Time) Option {
	return func(o *Orchestrator) {
		o.clock = clock
	}
}

// NewOrchestrator creates an Orchestrator. A nil gateway behaves as a
// permanently offline service.
func NewOrchestrator(params Params, gateway ForecastGateway, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		params:  params,
		gateway: gateway,
		logger:  logger,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Params returns the engine parameters the orchestrator runs with.
func (o *Orchestrator) Params() Params {
	return o.params
}

// Analyze produces a fresh AnalysisResult. Forecasting degradation is
// reported only through the method tag and confidence; an error means the
// input itself was unusable.
func (o *Orchestrator) Analyze(ctx context.Context, req AnalyzeRequest) (*models.AnalysisResult, error) {
	if strings.TrimSpace(req.ProductID) == "" {
		return nil, fmt.Errorf("product id is required: %w", ErrInvalidSeries)
	}

	series := NormalizePoints(req.Series)
	days := o.params.ClampDays(req.Days)
	now := o.clock()

	momentum := o.params.Momentum(series)
	burst := o.params.Burst(series)

	forecast, conf, err := o.forecast(ctx, req.ProductID, series, days, now)
	if err != nil {
		return nil, err
	}
	metrics.RecordForecastPath(forecast.Method)

	name := req.ProductName
	if name == "" && len(series) > 0 {
		name = series[len(series)-1].ProductName
	}

	result := &models.AnalysisResult{
		ProductID:   req.ProductID,
		ProductName: name,
		Realtime: models.RealtimeMetrics{
			Momentum:       momentum,
			Burst:          burst,
			Classification: burst.Classification,
			LastUpdated:    now.UTC(),
		},
		Forecast:        forecast,
		Recommendations: o.recommend(name, momentum, burst, forecast),
		Confidence:      conf,
	}

	if req.Stock != nil {
		demand := make([]float64, len(forecast.Predictions))
		for i, p := range forecast.Predictions {
			demand[i] = float64(p.PredictedQuantity)
		}
		plan := o.params.PlanStock(demand, *req.Stock)
		result.StockPlan = &plan
	}
	if req.Profit != nil {
		plan := o.params.PlanProfit(forecast.Predictions, *req.Profit)
		result.ProfitPlan = &plan
	}

	return result, nil
}

func (o *Orchestrator) forecast(ctx context.Context, productID string, series []models.SalesPoint, days int, now time.Time) (models.ForecastSummary, models.ConfidenceReport, error) {
	if len(series) < o.params.MinTrainingDays {
		o.logger.Debug("cold start forecast", "product_id", productID, "points", len(series))
		return o.ruleBased(series, days, now, MethodColdStart, models.ConfidenceReport{
			Overall:        models.ConfidenceLow,
			DataQuality:    coldStartDataQuality,
			ModelAgreement: ruleModelAgreement,
		})
	}

	fallback := models.ConfidenceReport{
		Overall:        models.ConfidenceLow,
		DataQuality:    fallbackDataQuality,
		ModelAgreement: ruleModelAgreement,
	}
	if len(series) >= o.params.MediumConfidenceDays {
		fallback.Overall = models.ConfidenceMedium
	}

	if o.gateway == nil || !o.gateway.IsAvailable(ctx) {
		o.logger.Info("forecast service offline, using rule-based forecast", "product_id", productID, "method", MethodMLOffline)
		return o.ruleBased(series, days, now, MethodMLOffline, fallback)
	}

	resp := o.gateway.Predict(ctx, series, days)
	if resp == nil || !resp.Success {
		o.logger.Warn("forecast service failed, using rule-based forecast", "product_id", productID, "method", MethodMLFailed)
		return o.ruleBased(series, days, now, MethodMLFailed, fallback)
	}
	if len(resp.Predictions) < days {
		o.logger.Warn("forecast service returned a short horizon, using rule-based forecast",
			"product_id", productID, "method", MethodMLFailed, "predictions", len(resp.Predictions), "days", days)
		return o.ruleBased(series, days, now, MethodMLFailed, fallback)
	}

	o.logger.Info("forecast served by ML service", "product_id", productID, "method", MethodMLSuccess)
	anchor := truncateDay(series[len(series)-1].Date)
	predictions := fromMLPredictions(resp.Predictions[:days], anchor)

	return summarize(MethodMLSuccess, predictions, mlTrend(predictions)), models.ConfidenceReport{
		Overall:        models.ConfidenceHigh,
		DataQuality:    math.Min(1, float64(len(series))/float64(o.params.FullQualityDays)),
		ModelAgreement: o.params.ModelAgreement,
	}, nil
}

func (o *Orchestrator) ruleBased(series []models.SalesPoint, days int, now time.Time, method string, conf models.ConfidenceReport) (models.ForecastSummary, models.ConfidenceReport, error) {
	points, err := o.params.RuleBasedForecast(series, days, now)
	if err != nil {
		return models.ForecastSummary{}, models.ConfidenceReport{}, fmt.Errorf("rule-based forecast: %w", err)
	}
	return summarize(method, points, models.TrendStable), conf, nil
}

func summarize(method string, points []models.ForecastPoint, trend models.Trend) models.ForecastSummary {
	total := 0
	for _, p := range points {
		total += p.PredictedQuantity
	}
	return models.ForecastSummary{
		Method:        method,
		Predictions:   points,
		Trend:         trend,
		TotalForecast: total,
		Summary:       fmt.Sprintf("%s: %d units expected over %d days (%s)", method, total, len(points), trend),
	}
}

// fromMLPredictions rounds service predictions and repairs missing dates
// and inconsistent bounds.
func fromMLPredictions(in []models.MLPrediction, anchor time.Time) []models.ForecastPoint {
	out := make([]models.ForecastPoint, 0, len(in))
	for i, p := range in {
		predicted := int(math.Round(math.Max(0, p.PredictedQuantity)))

		lower, upper := predicted, predicted
		if p.LowerBound != nil {
			lower = int(math.Round(math.Max(0, *p.LowerBound)))
		}
		if p.UpperBound != nil {
			upper = int(math.Round(math.Max(0, *p.UpperBound)))
		}
		lower = min(lower, predicted)
		upper = max(upper, predicted)

		var date string
		if d, err := ParseDate(p.Date); err == nil {
			date = d.Format(models.DateLayout)
		} else {
			date = anchor.AddDate(0, 0, i+1).Format(models.DateLayout)
		}

		out = append(out, models.ForecastPoint{
			Date:              date,
			PredictedQuantity: predicted,
			Confidence:        parseConfidence(p.Confidence),
			LowerBound:        lower,
			UpperBound:        upper,
		})
	}
	return out
}

func parseConfidence(s string) models.Confidence {
	switch models.Confidence(strings.ToUpper(strings.TrimSpace(s))) {
	case models.ConfidenceLow:
		return models.ConfidenceLow
	case models.ConfidenceMedium:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceHigh
	}
}

// mlTrend compares the first and last predicted day, 5% either way.
func mlTrend(points []models.ForecastPoint) models.Trend {
	if len(points) < 2 {
		return models.TrendStable
	}
	first := float64(points[0].PredictedQuantity)
	last := float64(points[len(points)-1].PredictedQuantity)
	if first == 0 {
		if last > 0 {
			return models.TrendIncreasing
		}
		return models.TrendStable
	}
	change := (last - first) / first
	switch {
	case change > 0.05:
		return models.TrendIncreasing
	case change < -0.05:
		return models.TrendDecreasing
	default:
		return models.TrendStable
	}
}

func (o *Orchestrator) recommend(name string, momentum models.MomentumResult, burst models.BurstResult, forecast models.ForecastSummary) []models.Recommendation {
	if name == "" {
		name = "this product"
	}
	recs := make([]models.Recommendation, 0, 2)

	horizon := fmt.Sprintf("Forecast for the next %d days: %d units", len(forecast.Predictions), forecast.TotalForecast)

	switch {
	case momentum.Status.IsRising():
		recs = append(recs, models.Recommendation{
			Type:       models.RecommendStockIncrease,
			Priority:   models.PriorityHigh,
			Message:    fmt.Sprintf("Demand for %s is rising, increase stock", name),
			Actionable: true,
			Action:     "INCREASE_STOCK",
			Details: []string{
				fmt.Sprintf("Momentum %s (ratio %.3f)", momentum.Status, momentum.Combined),
				horizon,
			},
		})
	case momentum.Status.IsDropping():
		recs = append(recs, models.Recommendation{
			Type:       models.RecommendStockReduce,
			Priority:   models.PriorityMedium,
			Message:    fmt.Sprintf("Demand for %s is dropping, reduce the next order", name),
			Actionable: true,
			Action:     "REDUCE_STOCK",
			Details: []string{
				fmt.Sprintf("Momentum %s (ratio %.3f)", momentum.Status, momentum.Combined),
				horizon,
			},
		})
	}

	if burst.Severity.IsAlert() {
		recs = append(recs, models.Recommendation{
			Type:       models.RecommendBurstAlert,
			Priority:   models.PriorityUrgent,
			Message:    fmt.Sprintf("Unusual demand spike for %s", name),
			Actionable: true,
			Action:     "CHECK_STOCK_NOW",
			Details: []string{
				fmt.Sprintf("Burst %s (z-score %.2f)", burst.Severity, burst.Score),
				fmt.Sprintf("Classified as %s", burst.Classification),
			},
		})
	}

	return recs
}
