package models

import "encoding/json"

// MLSalesPoint is a sales day as sent to the forecasting service.
type MLSalesPoint struct {
	Date     string  `json:"date"`
	Quantity float64 `json:"quantity"`
}

// MLForecastRequest is the body of a predict call.
type MLForecastRequest struct {
	ProductID    string         `json:"product_id,omitempty"`
	SalesData    []MLSalesPoint `json:"sales_data"`
	ForecastDays int            `json:"forecast_days"`
}

type MLPrediction struct {
	Date              string   `json:"date"`
	PredictedQuantity float64  `json:"predicted_quantity"`
	Confidence        string   `json:"confidence,omitempty"`
	LowerBound        *float64 `json:"lower_bound,omitempty"`
	UpperBound        *float64 `json:"upper_bound,omitempty"`
}

// MLForecastResponse is a validated predict response.
type MLForecastResponse struct {
	Success     bool           `json:"success"`
	Predictions []MLPrediction `json:"predictions"`
	Error       string         `json:"error,omitempty"`
}

// MLWeeklyReportRequest asks the forecasting service for a ranked report.
type MLWeeklyReportRequest struct {
	TopN       int    `json:"top_n"`
	MerchantID string `json:"merchant_id,omitempty"`
	Strategy   string `json:"strategy,omitempty"`
}

type MLReportEntry struct {
	ProductID      string  `json:"product_id"`
	ProductName    string  `json:"product_name"`
	TotalQuantity  float64 `json:"total_quantity"`
	Momentum       float64 `json:"momentum"`
	MomentumStatus string  `json:"momentum_status"`
	BurstScore     float64 `json:"burst_score"`
	BurstLevel     string  `json:"burst_level"`
}

type MLWeeklyReport struct {
	TopPerformers  []MLReportEntry `json:"top_performers"`
	NeedsAttention []MLReportEntry `json:"needs_attention"`
	Summary        string          `json:"summary"`
	Insights       json.RawMessage `json:"insights"`
}

type MLWeeklyReportResponse struct {
	Success bool            `json:"success"`
	Report  *MLWeeklyReport `json:"report"`
}
