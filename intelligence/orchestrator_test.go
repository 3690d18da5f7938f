package intelligence

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketpulse/models"
)

type stubGateway struct {
	available bool
	response  *models.MLForecastResponse

	probes   int
	predicts int
	lastDays int
}

func (s *stubGateway) IsAvailable(context.Context) bool {
	s.probes++
	return s.available
}

func (s *stubGateway) Predict(_ context.Context, _ []models.SalesPoint, days int) *models.MLForecastResponse {
	s.predicts++
	s.lastDays = days
	return s.response
}

var testNow = time.Date(2024, 3, 31, 9, 0, 0, 0, time.UTC)

func newTestOrchestrator(gw ForecastGateway) *Orchestrator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewOrchestrator(DefaultParams(), gw, logger, WithClock(func() time.Time { return testNow }))
}

func ptr(f float64) *float64 { return &f }

func TestAnalyzeColdStart(t *testing.T) {
	gw := &stubGateway{available: true, response: &models.MLForecastResponse{Success: true}}
	o := newTestOrchestrator(gw)

	result, err := o.Analyze(context.Background(), AnalyzeRequest{ProductID: "p1", Series: seriesOf(1, 2, 3, 4), Days: 7})
	require.NoError(t, err)

	assert.Equal(t, MethodColdStart, result.Forecast.Method)
	assert.Equal(t, models.ConfidenceLow, result.Confidence.Overall)
	assert.Equal(t, 0.1, result.Confidence.DataQuality)
	assert.Equal(t, models.TrendStable, result.Forecast.Trend)
	assert.Len(t, result.Forecast.Predictions, 7)
	assert.Zero(t, gw.probes, "cold start never consults the gateway")
	assert.Zero(t, gw.predicts)
}

func TestAnalyzeOffline(t *testing.T) {
	gw := &stubGateway{available: false}
	o := newTestOrchestrator(gw)
	req := AnalyzeRequest{ProductID: "p1", Series: weeks(5, 8), Days: 10}

	first, err := o.Analyze(context.Background(), req)
	require.NoError(t, err)
	second, err := o.Analyze(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, MethodMLOffline, first.Forecast.Method)
	assert.Equal(t, first.Forecast, second.Forecast)
	assert.Equal(t, 0.5, first.Confidence.DataQuality)
	assert.Equal(t, models.ConfidenceMedium, first.Confidence.Overall)
	assert.Zero(t, gw.predicts)

	assert.Equal(t, models.MomentumTrendingUp, first.Realtime.Momentum.Status)
	assert.Equal(t, 1.6, first.Realtime.Momentum.Combined)
}

func TestAnalyzeNilGatewayIsOffline(t *testing.T) {
	result, err := newTestOrchestrator(nil).Analyze(context.Background(), AnalyzeRequest{ProductID: "p1", Series: seriesOf(repeat(4, 6)...)})
	require.NoError(t, err)
	assert.Equal(t, MethodMLOffline, result.Forecast.Method)
	assert.Equal(t, models.ConfidenceLow, result.Confidence.Overall)
}

func TestAnalyzeMLFailed(t *testing.T) {
	for name, resp := range map[string]*models.MLForecastResponse{
		"nil":           nil,
		"unsuccessful":  {Success: false, Error: "boom"},
		"no prediction": {Success: true},
	} {
		t.Run(name, func(t *testing.T) {
			gw := &stubGateway{available: true, response: resp}
			result, err := newTestOrchestrator(gw).Analyze(context.Background(), AnalyzeRequest{ProductID: "p1", Series: seriesOf(repeat(4, 8)...), Days: 7})
			require.NoError(t, err)
			assert.Equal(t, MethodMLFailed, result.Forecast.Method)
			assert.Equal(t, 0.5, result.Confidence.DataQuality)
			assert.Equal(t, 1, gw.predicts)
		})
	}
}

func flatPredictions(n int, q float64) []models.MLPrediction {
	out := make([]models.MLPrediction, n)
	for i := range out {
		out[i] = models.MLPrediction{PredictedQuantity: q}
	}
	return out
}

func TestAnalyzeMLSuccess(t *testing.T) {
	gw := &stubGateway{available: true, response: &models.MLForecastResponse{
		Success: true,
		Predictions: append([]models.MLPrediction{
			{Date: "2024-03-31", PredictedQuantity: 10.4, Confidence: "medium", LowerBound: ptr(8.6), UpperBound: ptr(12.2)},
			{Date: "", PredictedQuantity: 11.5},
			{Date: "2024-04-02", PredictedQuantity: 12.6, LowerBound: ptr(14), UpperBound: ptr(3)},
		}, flatPredictions(4, 13)...),
	}}
	o := newTestOrchestrator(gw)

	result, err := o.Analyze(context.Background(), AnalyzeRequest{ProductID: "p1", Series: seriesOf(repeat(10, 30)...), Days: 7})
	require.NoError(t, err)

	assert.Equal(t, 7, gw.lastDays)
	assert.Equal(t, MethodMLSuccess, result.Forecast.Method)
	assert.Equal(t, models.ConfidenceHigh, result.Confidence.Overall)
	assert.Equal(t, 0.5, result.Confidence.DataQuality)
	assert.Equal(t, 0.87, result.Confidence.ModelAgreement)
	assert.Equal(t, models.TrendIncreasing, result.Forecast.Trend)
	assert.Equal(t, 87, result.Forecast.TotalForecast)

	assert.Equal(t, []models.ForecastPoint{
		{Date: "2024-03-31", PredictedQuantity: 10, Confidence: models.ConfidenceMedium, LowerBound: 9, UpperBound: 12},
		{Date: "2024-04-01", PredictedQuantity: 12, Confidence: models.ConfidenceHigh, LowerBound: 12, UpperBound: 12},
		{Date: "2024-04-02", PredictedQuantity: 13, Confidence: models.ConfidenceHigh, LowerBound: 13, UpperBound: 13},
		{Date: "2024-04-03", PredictedQuantity: 13, Confidence: models.ConfidenceHigh, LowerBound: 13, UpperBound: 13},
		{Date: "2024-04-04", PredictedQuantity: 13, Confidence: models.ConfidenceHigh, LowerBound: 13, UpperBound: 13},
		{Date: "2024-04-05", PredictedQuantity: 13, Confidence: models.ConfidenceHigh, LowerBound: 13, UpperBound: 13},
		{Date: "2024-04-06", PredictedQuantity: 13, Confidence: models.ConfidenceHigh, LowerBound: 13, UpperBound: 13},
	}, result.Forecast.Predictions)
}

func TestAnalyzeMLHorizon(t *testing.T) {
	series := seriesOf(repeat(10, 30)...)

	t.Run("extra predictions are trimmed", func(t *testing.T) {
		gw := &stubGateway{available: true, response: &models.MLForecastResponse{Success: true, Predictions: flatPredictions(32, 10)}}
		result, err := newTestOrchestrator(gw).Analyze(context.Background(), AnalyzeRequest{ProductID: "p1", Series: series, Days: 45})
		require.NoError(t, err)

		assert.Equal(t, 30, gw.lastDays, "horizon is clamped before the call")
		assert.Equal(t, MethodMLSuccess, result.Forecast.Method)
		assert.Len(t, result.Forecast.Predictions, 30)
		assert.Equal(t, 300, result.Forecast.TotalForecast)
		assert.Equal(t, "2024-04-29", result.Forecast.Predictions[29].Date)
	})

	t.Run("short response falls back", func(t *testing.T) {
		gw := &stubGateway{available: true, response: &models.MLForecastResponse{Success: true, Predictions: flatPredictions(5, 10)}}
		result, err := newTestOrchestrator(gw).Analyze(context.Background(), AnalyzeRequest{ProductID: "p1", Series: series, Days: 7})
		require.NoError(t, err)

		assert.Equal(t, MethodMLFailed, result.Forecast.Method)
		assert.Equal(t, models.ConfidenceMedium, result.Confidence.Overall)
		assert.Len(t, result.Forecast.Predictions, 7)
	})
}

func TestAnalyzeDataQualityCaps(t *testing.T) {
	gw := &stubGateway{available: true, response: &models.MLForecastResponse{
		Success:     true,
		Predictions: flatPredictions(7, 5),
	}}
	result, err := newTestOrchestrator(gw).Analyze(context.Background(), AnalyzeRequest{ProductID: "p1", Series: seriesOf(repeat(5, 90)...)})
	require.NoError(t, err)
	assert.Equal(t, MethodMLSuccess, result.Forecast.Method)
	assert.Equal(t, 1.0, result.Confidence.DataQuality)
	assert.Equal(t, models.TrendStable, result.Forecast.Trend)
}

func TestMLTrend(t *testing.T) {
	pts := func(first, last int) []models.ForecastPoint {
		return []models.ForecastPoint{{PredictedQuantity: first}, {PredictedQuantity: last}}
	}
	assert.Equal(t, models.TrendIncreasing, mlTrend(pts(100, 106)))
	assert.Equal(t, models.TrendStable, mlTrend(pts(100, 105)))
	assert.Equal(t, models.TrendStable, mlTrend(pts(100, 95)))
	assert.Equal(t, models.TrendDecreasing, mlTrend(pts(100, 94)))
	assert.Equal(t, models.TrendIncreasing, mlTrend(pts(0, 3)))
	assert.Equal(t, models.TrendStable, mlTrend(pts(0, 0)))
	assert.Equal(t, models.TrendStable, mlTrend(nil))
}

func TestAnalyzeRecommendations(t *testing.T) {
	o := newTestOrchestrator(nil)

	t.Run("rising", func(t *testing.T) {
		result, err := o.Analyze(context.Background(), AnalyzeRequest{ProductID: "p1", ProductName: "Tea", Series: weeks(5, 8)})
		require.NoError(t, err)
		require.Len(t, result.Recommendations, 1)
		assert.Equal(t, models.RecommendStockIncrease, result.Recommendations[0].Type)
		assert.Equal(t, models.PriorityHigh, result.Recommendations[0].Priority)
	})

	t.Run("dropping with burst", func(t *testing.T) {
		qty := append(repeat(20, 7), append(repeat(5, 6), 60)...)
		result, err := o.Analyze(context.Background(), AnalyzeRequest{ProductID: "p1", Series: seriesOf(qty...)})
		require.NoError(t, err)
		assert.Equal(t, models.MomentumDeclining, result.Realtime.Momentum.Status)
		assert.True(t, result.Realtime.Burst.Severity.IsAlert())

		types := []models.RecommendationType{}
		for _, r := range result.Recommendations {
			types = append(types, r.Type)
		}
		assert.Equal(t, []models.RecommendationType{models.RecommendStockReduce, models.RecommendBurstAlert}, types)
		assert.Equal(t, models.PriorityUrgent, result.Recommendations[1].Priority)
	})

	t.Run("stable", func(t *testing.T) {
		result, err := o.Analyze(context.Background(), AnalyzeRequest{ProductID: "p1", Series: weeks(5, 5)})
		require.NoError(t, err)
		assert.Empty(t, result.Recommendations)
	})
}

func TestAnalyzeStockPlan(t *testing.T) {
	result, err := newTestOrchestrator(nil).Analyze(context.Background(), AnalyzeRequest{
		ProductID: "p1",
		Series:    weeks(5, 5),
		Days:      14,
		Stock:     &models.StockInput{CurrentStock: 0, LeadTimeDays: 3},
	})
	require.NoError(t, err)
	require.NotNil(t, result.StockPlan)
	assert.Equal(t, models.StockOrderNow, result.StockPlan.Action)
	assert.Nil(t, result.ProfitPlan)
}

func TestAnalyzeProfitPlan(t *testing.T) {
	result, err := newTestOrchestrator(nil).Analyze(context.Background(), AnalyzeRequest{
		ProductID: "p1",
		Series:    weeks(5, 5),
		Profit:    &models.ProfitInput{PricePerUnit: 4, CostPerUnit: 1},
	})
	require.NoError(t, err)
	require.NotNil(t, result.ProfitPlan)
	assert.Nil(t, result.StockPlan)

	plan := result.ProfitPlan
	assert.Len(t, plan.Daily, len(result.Forecast.Predictions))
	assert.Equal(t, float64(result.Forecast.TotalForecast), plan.TotalUnits)
	assert.Equal(t, roundTo(plan.TotalUnits*4, 0), plan.TotalRevenue)
	assert.Equal(t, 75.0, plan.ContributionMarginPct)
}

func TestAnalyzeInvalidRequest(t *testing.T) {
	_, err := newTestOrchestrator(nil).Analyze(context.Background(), AnalyzeRequest{Series: seriesOf(1, 2, 3)})
	assert.ErrorIs(t, err, ErrInvalidSeries)
}

func TestAnalyzeEmptySeries(t *testing.T) {
	result, err := newTestOrchestrator(nil).Analyze(context.Background(), AnalyzeRequest{ProductID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, MethodColdStart, result.Forecast.Method)
	assert.Equal(t, "2024-04-01", result.Forecast.Predictions[0].Date)
	assert.Equal(t, models.MomentumResult{Combined: 0, Status: models.MomentumStable}, result.Realtime.Momentum)
}
