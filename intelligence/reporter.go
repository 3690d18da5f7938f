package intelligence

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"marketpulse/metrics"
	"marketpulse/models"
)

// Report sources.
const (
	ReportSourceML    = "ml"
	ReportSourceLocal = "local"
)

// HistorySource supplies a merchant's catalog and per-product daily sales.
type HistorySource interface {
	Catalog(ctx context.Context, merchantID string) ([]models.Product, error)
	DailySales(ctx context.Context, productID string, days int) ([]models.SalesPoint, error)
}

// ReportGateway is the forecasting service's weekly-report endpoint. It
// returns nil on any failure.
type ReportGateway interface {
	WeeklyReport(ctx context.Context, req models.MLWeeklyReportRequest) *models.MLWeeklyReportResponse
}

// Narrator writes prose for a finished report.
type Narrator interface {
	Narrate(ctx context.Context, report *models.WeeklyReport) (*models.Narrative, error)
}

// Reporter builds weekly catalog reports, preferring the forecasting
// service and falling back to local momentum and burst scans.
type Reporter struct {
	params   Params
	history  HistorySource
	gateway  ReportGateway
	narrator Narrator
	logger   *slog.Logger
	clock    func() time.Time
}

// ReporterOption configures a Reporter.
type ReporterOption func(*Reporter)

// WithReportClock overrides the wall clock.
func WithReportClock(clock func() time.Time) ReporterOption {
	return func(r *Reporter) {
		r.clock = clock
	}
}

// WithNarrator attaches a narrator for the summary text.
func WithNarrator(n Narrator) ReporterOption {
	return func(r *Reporter) {
		r.narrator = n
	}
}

// NewReporter creates a Reporter. gateway may be nil.
func NewReporter(params Params, history HistorySource, gateway ReportGateway, logger *slog.Logger, opts ...ReporterOption) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reporter{
		params:  params,
		history: history,
		gateway: gateway,
		logger:  logger,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WeeklyReport builds the report for merchantID. topN <= 0 uses the
// configured default.
func (r *Reporter) WeeklyReport(ctx context.Context, merchantID string, topN int) (*models.WeeklyReport, error) {
	if topN <= 0 {
		topN = r.params.ReportTopN
	}

	report := r.fromGateway(ctx, merchantID, topN)
	if report == nil {
		var err error
		report, err = r.localReport(ctx, merchantID, topN)
		if err != nil {
			return nil, err
		}
	}
	metrics.RecordReport(report.Source)

	if r.narrator != nil {
		narrative, err := r.narrator.Narrate(ctx, report)
		if err != nil {
			r.logger.Warn("report narration failed, keeping generated summary", "merchant_id", merchantID, "error", err)
		} else if narrative != nil {
			if narrative.Summary != "" {
				report.Summary = narrative.Summary
			}
			if report.Insights != nil && len(narrative.Recommendations) > 0 {
				report.Insights.StrategicRecommendations = append(report.Insights.StrategicRecommendations, narrative.Recommendations...)
			}
		}
	}

	return report, nil
}

func (r *Reporter) fromGateway(ctx context.Context, merchantID string, topN int) *models.WeeklyReport {
	if r.gateway == nil {
		return nil
	}
	resp := r.gateway.WeeklyReport(ctx, models.MLWeeklyReportRequest{TopN: topN, MerchantID: merchantID, Strategy: "balanced"})
	if resp == nil || !resp.Success || resp.Report == nil {
		r.logger.Info("weekly report service unavailable, building locally", "merchant_id", merchantID)
		return nil
	}
	if resp.Report.TopPerformers == nil && resp.Report.NeedsAttention == nil {
		r.logger.Warn("weekly report service returned an empty report, building locally", "merchant_id", merchantID)
		return nil
	}

	return &models.WeeklyReport{
		MerchantID:     merchantID,
		GeneratedAt:    r.clock().UTC(),
		Source:         ReportSourceML,
		TopPerformers:  fromMLEntries(resp.Report.TopPerformers),
		NeedsAttention: fromMLEntries(resp.Report.NeedsAttention),
		Trending:       []models.ProductPerformance{},
		Summary:        resp.Report.Summary,
		RawInsights:    resp.Report.Insights,
	}
}

func fromMLEntries(entries []models.MLReportEntry) []models.ProductPerformance {
	out := make([]models.ProductPerformance, 0, len(entries))
	for _, e := range entries {
		out = append(out, models.ProductPerformance{
			ProductID:     e.ProductID,
			ProductName:   e.ProductName,
			TotalQuantity: e.TotalQuantity,
			Momentum: models.MomentumResult{
				Combined: e.Momentum,
				Status:   models.MomentumStatus(e.MomentumStatus),
			},
			Burst: models.BurstResult{
				Score:    e.BurstScore,
				Severity: models.BurstSeverity(e.BurstLevel),
			},
		})
	}
	return out
}

type productScan struct {
	trend    *models.ProductPerformance
	bursting *models.ProductPerformance
}

func (r *Reporter) localReport(ctx context.Context, merchantID string, topN int) (*models.WeeklyReport, error) {
	products, err := r.history.Catalog(ctx, merchantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	today := truncateDay(r.clock())
	trendSince := today.AddDate(0, 0, -r.params.ReportTrendDays)

	var (
		mu    sync.Mutex
		scans = make([]productScan, 0, len(products))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.params.ReportConcurrency)
	for _, product := range products {
		g.Go(func() error {
			history, err := r.history.DailySales(gctx, product.ID, r.params.ReportBurstDays)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				r.logger.Warn("failed to load sales history, skipping product", "product_id", product.ID, "error", err)
				return nil
			}
			scan := r.scanProduct(product, NormalizePoints(history), trendSince)
			mu.Lock()
			scans = append(scans, scan)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to scan catalog: %w", err)
	}

	var analysed, top, attention, trending []models.ProductPerformance
	for _, s := range scans {
		if s.trend != nil {
			analysed = append(analysed, *s.trend)
			switch {
			case s.trend.Momentum.Status.IsRising():
				top = append(top, *s.trend)
			case s.trend.Momentum.Status.IsDropping():
				attention = append(attention, *s.trend)
			}
		}
		if s.bursting != nil {
			trending = append(trending, *s.bursting)
		}
	}

	sort.Slice(top, func(i, j int) bool {
		if top[i].TotalQuantity != top[j].TotalQuantity {
			return top[i].TotalQuantity > top[j].TotalQuantity
		}
		return top[i].ProductID < top[j].ProductID
	})
	sort.Slice(attention, func(i, j int) bool {
		if attention[i].Momentum.Combined != attention[j].Momentum.Combined {
			return attention[i].Momentum.Combined < attention[j].Momentum.Combined
		}
		return attention[i].ProductID < attention[j].ProductID
	})
	sort.Slice(trending, func(i, j int) bool {
		if trending[i].Burst.Score != trending[j].Burst.Score {
			return trending[i].Burst.Score > trending[j].Burst.Score
		}
		return trending[i].ProductID < trending[j].ProductID
	})

	insights := r.insights(analysed, trending)

	top, attention, trending = limit(top, topN), limit(attention, topN), limit(trending, topN)

	return &models.WeeklyReport{
		MerchantID:     merchantID,
		GeneratedAt:    r.clock().UTC(),
		Source:         ReportSourceLocal,
		TopPerformers:  top,
		NeedsAttention: attention,
		Trending:       trending,
		Summary: fmt.Sprintf("%d products analysed: %d top performers, %d need attention, %d bursting",
			len(analysed), len(top), len(attention), len(trending)),
		Insights: insights,
	}, nil
}

// scanProduct runs momentum over the trend window and burst over the full
// window. Windows with too few points are left out.
func (r *Reporter) scanProduct(product models.Product, history []models.SalesPoint, trendSince time.Time) productScan {
	var scan productScan

	trendSeries := make([]models.SalesPoint, 0, len(history))
	for _, p := range history {
		if !p.Date.Before(trendSince) {
			trendSeries = append(trendSeries, p)
		}
	}

	if len(trendSeries) >= r.params.BurstMinPoints {
		scan.trend = &models.ProductPerformance{
			ProductID:     product.ID,
			ProductName:   product.Name,
			TotalQuantity: sum(quantities(trendSeries)),
			Momentum:      r.params.Momentum(trendSeries),
			Burst:         r.params.Burst(trendSeries),
		}
	}

	if len(history) >= r.params.BurstMinPoints {
		burst := r.params.Burst(history)
		if burst.Severity.IsAlert() {
			scan.bursting = &models.ProductPerformance{
				ProductID:     product.ID,
				ProductName:   product.Name,
				TotalQuantity: sum(quantities(history)),
				Momentum:      r.params.Momentum(history),
				Burst:         burst,
			}
		}
	}

	return scan
}

func (r *Reporter) insights(analysed, trending []models.ProductPerformance) *models.ReportInsights {
	var dist models.MomentumDistribution
	for _, p := range analysed {
		switch p.Momentum.Status {
		case models.MomentumTrendingUp:
			dist.TrendingUp++
		case models.MomentumGrowing:
			dist.Growing++
		case models.MomentumStable:
			dist.Stable++
		case models.MomentumFalling:
			dist.Falling++
		case models.MomentumDeclining:
			dist.Declining++
		}
	}

	var bursts models.BurstActivity
	for _, p := range trending {
		switch p.Burst.Severity {
		case models.BurstCritical:
			bursts.Critical++
		case models.BurstHigh:
			bursts.High++
		}
	}

	total := len(analysed)
	score := 50.0
	if total > 0 {
		up := float64(dist.TrendingUp + dist.Growing)
		down := float64(dist.Falling + dist.Declining)
		score = (up*2+float64(dist.Stable)-down)/float64(total)*50 + 50
	}

	health := models.PortfolioHealth{Score: roundTo(score, 1)}
	switch {
	case score >= 80:
		health.Status, health.Message = "EXCELLENT", "Portfolio is very healthy, most products are growing."
	case score >= 60:
		health.Status, health.Message = "GOOD", "Portfolio is healthy, a few products need attention."
	case score >= 40:
		health.Status, health.Message = "FAIR", "Portfolio is mixed, declining products need a plan."
	default:
		health.Status, health.Message = "POOR", "Portfolio needs intervention, many products are declining."
	}

	recs := []string{}
	if bursts.Critical > 0 {
		recs = append(recs, fmt.Sprintf("%d products are bursting, scale up supply", bursts.Critical))
	}
	if total > 0 {
		if float64(dist.Declining) > float64(total)*0.3 {
			recs = append(recs, fmt.Sprintf("%d products (%.0f%%) are declining, review pricing and competitors",
				dist.Declining, float64(dist.Declining)/float64(total)*100))
		}
		if float64(dist.TrendingUp) > float64(total)*0.3 {
			recs = append(recs, fmt.Sprintf("%d products (%.0f%%) are trending up, push marketing while momentum lasts",
				dist.TrendingUp, float64(dist.TrendingUp)/float64(total)*100))
		}
	}

	return &models.ReportInsights{
		PortfolioHealth:          health,
		MomentumDistribution:     dist,
		BurstActivity:            bursts,
		StrategicRecommendations: recs,
	}
}

func limit(items []models.ProductPerformance, n int) []models.ProductPerformance {
	if items == nil {
		return []models.ProductPerformance{}
	}
	if len(items) > n {
		return items[:n]
	}
	return items
}
