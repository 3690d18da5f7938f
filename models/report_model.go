package models

import (
	"encoding/json"
	"time"
)

// ProductPerformance is one product's line in the weekly report.
type ProductPerformance struct {
	ProductID     string         `json:"productId"`
	ProductName   string         `json:"productName"`
	TotalQuantity float64        `json:"totalQuantity"`
	Momentum      MomentumResult `json:"momentum"`
	Burst         BurstResult    `json:"burst"`
}

type PortfolioHealth struct {
	Score   float64 `json:"score"`
	Status  string  `json:"status"`
	Message string  `json:"message"`
}

type MomentumDistribution struct {
	TrendingUp int `json:"trendingUp"`
	Growing    int `json:"growing"`
	Stable     int `json:"stable"`
	Falling    int `json:"falling"`
	Declining  int `json:"declining"`
}

type BurstActivity struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
}

type ReportInsights struct {
	PortfolioHealth          PortfolioHealth      `json:"portfolioHealth"`
	MomentumDistribution     MomentumDistribution `json:"momentumDistribution"`
	BurstActivity            BurstActivity        `json:"burstActivity"`
	StrategicRecommendations []string             `json:"strategicRecommendations"`
}

// WeeklyReport summarizes a merchant's catalog for the trailing weeks.
type WeeklyReport struct {
	MerchantID     string               `json:"merchantId"`
	GeneratedAt    time.Time            `json:"generatedAt"`
	Source         string               `json:"source"`
	TopPerformers  []ProductPerformance `json:"topPerformers"`
	NeedsAttention []ProductPerformance `json:"needsAttention"`
	Trending       []ProductPerformance `json:"trending"`
	Summary        string               `json:"summary"`
	Insights       *ReportInsights      `json:"insights,omitempty"`
	RawInsights    json.RawMessage      `json:"rawInsights,omitempty"`
}

// Narrative holds generated prose for a weekly report.
type Narrative struct {
	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations"`
}
