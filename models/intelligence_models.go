package models

import "time"

// DateLayout is the calendar-day wire format used across the engine.
const DateLayout = "2006-01-02"

// RawSalesRow is a sales row as it arrives from uploads or the API.
// Date may be a string or a time.Time, Quantity anything numeric-coercible.
type RawSalesRow struct {
	Date        any    `json:"date"`
	Quantity    any    `json:"quantity"`
	ProductName string `json:"productName,omitempty"`
}

// SalesPoint is one normalized day of sales for a product.
type SalesPoint struct {
	Date        time.Time `json:"date"`
	Quantity    float64   `json:"quantity"`
	ProductName string    `json:"productName,omitempty"`
}

type MomentumStatus string

const (
	MomentumTrendingUp MomentumStatus = "TRENDING_UP"
	MomentumGrowing    MomentumStatus = "GROWING"
	MomentumStable     MomentumStatus = "STABLE"
	MomentumFalling    MomentumStatus = "FALLING"
	MomentumDeclining  MomentumStatus = "DECLINING"
)

// IsRising reports whether the status is TRENDING_UP or GROWING.
func (s MomentumStatus) IsRising() bool {
	return s == MomentumTrendingUp || s == MomentumGrowing
}

// IsDropping reports whether the status is DECLINING or FALLING.
func (s MomentumStatus) IsDropping() bool {
	return s == MomentumDeclining || s == MomentumFalling
}

type MomentumResult struct {
	Combined float64        `json:"combined"`
	Status   MomentumStatus `json:"status"`
}

type BurstSeverity string

const (
	BurstNormal   BurstSeverity = "NORMAL"
	BurstMedium   BurstSeverity = "MEDIUM"
	BurstHigh     BurstSeverity = "HIGH"
	BurstCritical BurstSeverity = "CRITICAL"
)

// IsAlert reports whether the severity warrants a burst alert.
func (s BurstSeverity) IsAlert() bool {
	return s == BurstHigh || s == BurstCritical
}

type BurstClassification string

const (
	ClassificationNormal   BurstClassification = "NORMAL"
	ClassificationSeasonal BurstClassification = "SEASONAL"
	ClassificationSpike    BurstClassification = "SPIKE"
)

type BurstResult struct {
	Score          float64             `json:"score"`
	Severity       BurstSeverity       `json:"severity"`
	Classification BurstClassification `json:"classification"`
}

type Confidence string

const (
	ConfidenceLow    Confidence = "LOW"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceHigh   Confidence = "HIGH"
)

type Trend string

const (
	TrendIncreasing Trend = "INCREASING"
	TrendDecreasing Trend = "DECREASING"
	TrendStable     Trend = "STABLE"
)

// ForecastPoint is the predicted demand for a single day.
type ForecastPoint struct {
	Date              string     `json:"date"`
	PredictedQuantity int        `json:"predictedQuantity"`
	Confidence        Confidence `json:"confidence"`
	LowerBound        int        `json:"lowerBound"`
	UpperBound        int        `json:"upperBound"`
}

type RealtimeMetrics struct {
	Momentum       MomentumResult      `json:"momentum"`
	Burst          BurstResult         `json:"burst"`
	Classification BurstClassification `json:"classification"`
	LastUpdated    time.Time           `json:"lastUpdated"`
}

type ForecastSummary struct {
	Method        string          `json:"method"`
	Predictions   []ForecastPoint `json:"predictions"`
	Trend         Trend           `json:"trend"`
	TotalForecast int             `json:"totalForecast"`
	Summary       string          `json:"summary"`
}

type RecommendationType string

const (
	RecommendStockIncrease RecommendationType = "STOCK_INCREASE"
	RecommendStockReduce   RecommendationType = "STOCK_REDUCE"
	RecommendBurstAlert    RecommendationType = "BURST_ALERT"
)

type Priority string

const (
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

type Recommendation struct {
	Type       RecommendationType `json:"type"`
	Priority   Priority           `json:"priority"`
	Message    string             `json:"message"`
	Actionable bool               `json:"actionable"`
	Action     string             `json:"action"`
	Details    []string           `json:"details"`
}

type ConfidenceReport struct {
	Overall        Confidence `json:"overall"`
	DataQuality    float64    `json:"dataQuality"`
	ModelAgreement float64    `json:"modelAgreement"`
}

// AnalysisResult is the full intelligence output for one product.
type AnalysisResult struct {
	ProductID       string           `json:"productId"`
	ProductName     string           `json:"productName"`
	Realtime        RealtimeMetrics  `json:"realtime"`
	Forecast        ForecastSummary  `json:"forecast"`
	Recommendations []Recommendation `json:"recommendations"`
	Confidence      ConfidenceReport `json:"confidence"`
	StockPlan       *StockPlan       `json:"stockPlan,omitempty"`
	ProfitPlan      *ProfitPlan      `json:"profitPlan,omitempty"`
}

// StockInput carries the optional inventory context for a stock plan.
type StockInput struct {
	CurrentStock float64 `json:"currentStock"`
	LeadTimeDays int     `json:"leadTimeDays"`
	ServiceLevel string  `json:"serviceLevel"`
}

type StockAction string

const (
	StockOrderNow         StockAction = "ORDER_NOW"
	StockReduce           StockAction = "REDUCE_STOCK"
	StockMaintain         StockAction = "MAINTAIN"
	StockInsufficientData StockAction = "INSUFFICIENT_DATA"
)

// StockPlan is a reorder recommendation derived from the forecast.
type StockPlan struct {
	CurrentStock   float64     `json:"currentStock"`
	DaysOfStock    float64     `json:"daysOfStock"`
	AvgDailyDemand float64     `json:"avgDailyDemand"`
	SafetyStock    float64     `json:"safetyStock"`
	ReorderPoint   float64     `json:"reorderPoint"`
	OrderQuantity  float64     `json:"orderQuantity"`
	MaxInventory   float64     `json:"maxInventory"`
	Action         StockAction `json:"action"`
	Urgency        string      `json:"urgency,omitempty"`
	OrderQty       float64     `json:"orderQty"`
	Message        string      `json:"message"`
	ServiceLevel   string      `json:"serviceLevel"`
	LeadTimeDays   int         `json:"leadTimeDays"`
}

// ProfitInput carries unit economics for a profit plan. FixedCostsWeekly is
// spread evenly over the forecast days.
type ProfitInput struct {
	PricePerUnit     float64 `json:"pricePerUnit"`
	CostPerUnit      float64 `json:"costPerUnit"`
	FixedCostsWeekly float64 `json:"fixedCostsWeekly"`
}

type DailyProfit struct {
	Date               string  `json:"date"`
	Quantity           float64 `json:"quantity"`
	Revenue            float64 `json:"revenue"`
	VariableCost       float64 `json:"variableCost"`
	ContributionMargin float64 `json:"contributionMargin"`
}

// ProfitPlan is the revenue and margin outlook over the forecast period.
type ProfitPlan struct {
	TotalUnits            float64       `json:"totalUnits"`
	TotalRevenue          float64       `json:"totalRevenue"`
	TotalVariableCost     float64       `json:"totalVariableCost"`
	TotalContribution     float64       `json:"totalContributionMargin"`
	FixedCosts            float64       `json:"fixedCosts"`
	TotalProfit           float64       `json:"totalProfit"`
	ProfitMarginPct       float64       `json:"profitMarginPct"`
	ContributionMarginPct float64       `json:"contributionMarginPct"`
	BreakevenUnits        float64       `json:"breakevenUnits"`
	AboveBreakeven        bool          `json:"aboveBreakeven"`
	MarginOfSafetyPct     float64       `json:"marginOfSafetyPct"`
	PricePerUnit          float64       `json:"pricePerUnit"`
	CostPerUnit           float64       `json:"costPerUnit"`
	ContributionPerUnit   float64       `json:"contributionPerUnit"`
	MarkupPct             float64       `json:"markupPct"`
	Daily                 []DailyProfit `json:"daily"`
	Message               string        `json:"message,omitempty"`
}
