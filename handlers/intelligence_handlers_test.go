package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketpulse/database"
	"marketpulse/intelligence"
	"marketpulse/models"
)

var fixedNow = time.Date(2024, 3, 31, 9, 0, 0, 0, time.UTC)

type fakeStore struct {
	products map[string]models.Product
	sales    map[string][]models.SalesPoint
}

func (f *fakeStore) Product(_ context.Context, id string) (models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return models.Product{}, database.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeStore) Catalog(_ context.Context, merchantID string) ([]models.Product, error) {
	var out []models.Product
	for _, p := range f.products {
		if p.MerchantID == merchantID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) DailySales(_ context.Context, id string, _ int) ([]models.SalesPoint, error) {
	return f.sales[id], nil
}

type fakeTrigger struct{ merchants []string }

func (f *fakeTrigger) RunNow(merchantID string) {
	f.merchants = append(f.merchants, merchantID)
}

func dailySeries(start time.Time, qty ...float64) []models.SalesPoint {
	out := make([]models.SalesPoint, len(qty))
	for i, q := range qty {
		out[i] = models.SalesPoint{Date: start.AddDate(0, 0, i), Quantity: q}
	}
	return out
}

func setupApp(t *testing.T, trigger RefreshTrigger) *fiber.App {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	params := intelligence.DefaultParams()

	store := &fakeStore{
		products: map[string]models.Product{
			"p1":    {ID: "p1", MerchantID: "m1", Name: "Green Tea"},
			"other": {ID: "other", MerchantID: "m2", Name: "Coffee"},
		},
		sales: map[string][]models.SalesPoint{
			"p1": dailySeries(fixedNow.AddDate(0, 0, -14), 5, 5, 5, 5, 5, 5, 5, 8, 8, 8, 8, 8, 8, 8),
		},
	}

	orch := intelligence.NewOrchestrator(params, nil, logger, intelligence.WithClock(func() time.Time { return fixedNow }))
	svc := intelligence.NewService(orch, store, nil, logger)
	reporter := intelligence.NewReporter(params, store, nil, logger, intelligence.WithReportClock(func() time.Time { return fixedNow }))

	h := NewIntelligenceHandler(store, svc, orch, reporter, trigger, logger)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", "m1")
		c.Locals("userRole", "merchant")
		return c.Next()
	})
	app.Get("/products/:productId/analysis", h.HandleGetProductAnalysis)
	app.Post("/analyze", h.HandleAnalyzeSeries)
	app.Get("/weekly-report", h.HandleGetWeeklyReport)
	app.Post("/refresh", h.HandleRefresh)
	return app
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, body io.Reader) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(body).Decode(&env))
	return env
}

func TestHandleGetProductAnalysis(t *testing.T) {
	app := setupApp(t, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/products/p1/analysis?days=10&currentStock=20&leadTime=3", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	env := decode(t, resp.Body)
	assert.True(t, env.Success)
	var result models.AnalysisResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "Green Tea", result.ProductName)
	assert.Equal(t, intelligence.MethodMLOffline, result.Forecast.Method)
	assert.Len(t, result.Forecast.Predictions, 10)
	assert.Equal(t, models.MomentumTrendingUp, result.Realtime.Momentum.Status)
	require.NotNil(t, result.StockPlan)
	assert.Equal(t, 3, result.StockPlan.LeadTimeDays)
}

func TestHandleGetProductAnalysis_NotFound(t *testing.T) {
	app := setupApp(t, nil)

	for _, id := range []string{"missing", "other"} {
		resp, err := app.Test(httptest.NewRequest("GET", "/products/"+id+"/analysis", nil))
		require.NoError(t, err)
		assert.Equal(t, 404, resp.StatusCode, id)
	}
}

func TestHandleGetProductAnalysis_BadStock(t *testing.T) {
	app := setupApp(t, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/products/p1/analysis?currentStock=lots", nil))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestHandleGetProductAnalysis_Profit(t *testing.T) {
	app := setupApp(t, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/products/p1/analysis?days=7&pricePerUnit=5&costPerUnit=3&fixedCostsWeekly=14", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var result models.AnalysisResult
	require.NoError(t, json.Unmarshal(decode(t, resp.Body).Data, &result))
	assert.Nil(t, result.StockPlan)
	require.NotNil(t, result.ProfitPlan)
	assert.Equal(t, 5.0, result.ProfitPlan.PricePerUnit)
	assert.Equal(t, 14.0, result.ProfitPlan.FixedCosts)
	assert.Len(t, result.ProfitPlan.Daily, 7)
}

func TestHandleGetProductAnalysis_BadProfit(t *testing.T) {
	app := setupApp(t, nil)

	for _, query := range []string{
		"pricePerUnit=0&costPerUnit=1",
		"pricePerUnit=-2&costPerUnit=1",
		"pricePerUnit=abc&costPerUnit=1",
		"pricePerUnit=5",
		"pricePerUnit=5&costPerUnit=-1",
		"pricePerUnit=5&costPerUnit=1&fixedCostsWeekly=-7",
	} {
		resp, err := app.Test(httptest.NewRequest("GET", "/products/p1/analysis?"+query, nil))
		require.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode, query)
	}
}

func TestHandleAnalyzeSeries(t *testing.T) {
	app := setupApp(t, nil)

	body := `{"productId":"inline","productName":"Rice","days":7,"salesData":[
		{"date":"2024-03-01","quantity":4},
		{"date":"2024-03-02","quantity":"6"},
		{"date":"2024-03-03T10:00:00Z","quantity":5}
	]}`
	req := httptest.NewRequest("POST", "/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var result models.AnalysisResult
	require.NoError(t, json.Unmarshal(decode(t, resp.Body).Data, &result))
	assert.Equal(t, intelligence.MethodColdStart, result.Forecast.Method)
	assert.Equal(t, models.ConfidenceLow, result.Confidence.Overall)
	assert.Len(t, result.Forecast.Predictions, 7)
}

func TestHandleAnalyzeSeries_Invalid(t *testing.T) {
	app := setupApp(t, nil)

	cases := map[string]string{
		"missing product": `{"salesData":[]}`,
		"missing series":  `{"productId":"p1"}`,
		"not an array":    `{"productId":"p1","salesData":"nope"}`,
		"malformed":       `{"productId":`,
		"free product":    `{"productId":"p1","salesData":[],"profit":{"pricePerUnit":0,"costPerUnit":1}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/analyze", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, 400, resp.StatusCode)
			assert.False(t, decode(t, resp.Body).Success)
		})
	}
}

func TestHandleGetWeeklyReport(t *testing.T) {
	app := setupApp(t, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/weekly-report?topN=5", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var report models.WeeklyReport
	require.NoError(t, json.Unmarshal(decode(t, resp.Body).Data, &report))
	assert.Equal(t, "m1", report.MerchantID)
	assert.Equal(t, intelligence.ReportSourceLocal, report.Source)
	require.Len(t, report.TopPerformers, 1)
	assert.Equal(t, "p1", report.TopPerformers[0].ProductID)
}

func TestHandleRefresh(t *testing.T) {
	trigger := &fakeTrigger{}
	app := setupApp(t, trigger)

	resp, err := app.Test(httptest.NewRequest("POST", "/refresh", nil))
	require.NoError(t, err)
	assert.Equal(t, 202, resp.StatusCode)
	assert.Equal(t, []string{"m1"}, trigger.merchants)
}

func TestHandleRefresh_NotConfigured(t *testing.T) {
	app := setupApp(t, nil)

	resp, err := app.Test(httptest.NewRequest("POST", "/refresh", nil))
	require.NoError(t, err)
	assert.Equal(t, 503, resp.StatusCode)
}

func TestAnalysisErrorMapping(t *testing.T) {
	h := &IntelligenceHandler{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	app := fiber.New()
	app.Get("/invalid", func(c *fiber.Ctx) error { return h.analysisError(c, "p", intelligence.ErrInvalidSeries) })
	app.Get("/boom", func(c *fiber.Ctx) error { return h.analysisError(c, "p", errors.New("boom")) })

	resp, err := app.Test(httptest.NewRequest("GET", "/invalid", nil))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
}
