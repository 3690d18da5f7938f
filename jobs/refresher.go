// Package jobs runs periodic analysis refreshes over merchant catalogs.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"marketpulse/intelligence"
	"marketpulse/metrics"
	"marketpulse/models"
)

// Store is what the refresher needs from the database.
type Store interface {
	Merchants(ctx context.Context) ([]string, error)
	Catalog(ctx context.Context, merchantID string) ([]models.Product, error)
	SaveSnapshot(ctx context.Context, merchantID string, result *models.AnalysisResult) (models.SnapshotRecord, error)
}

// Analyzer produces a fresh analysis for a stored product.
type Analyzer interface {
	AnalyzeProduct(ctx context.Context, req intelligence.ProductRequest) (*models.AnalysisResult, error)
}

// Stats summarizes one refresh run.
type Stats struct {
	Merchants int
	Processed int
	Failed    int
	Duration  time.Duration
}

// Refresher re-analyses every product and stores a snapshot of each result.
type Refresher struct {
	store    Store
	analyzer Analyzer
	limiter  *rate.Limiter
	days     int
	logger   *slog.Logger
}

// NewRefresher creates a Refresher issuing at most perSecond analyses per
// second. perSecond <= 0 means unlimited.
func NewRefresher(store Store, analyzer Analyzer, perSecond float64, days int, logger *slog.Logger) *Refresher {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Refresher{
		store:    store,
		analyzer: analyzer,
		limiter:  rate.NewLimiter(limit, 1),
		days:     days,
		logger:   logger,
	}
}

// RunOnce refreshes one merchant's catalog. Per-product failures are logged
// and counted; only a catalog failure or cancellation is returned.
func (r *Refresher) RunOnce(ctx context.Context, merchantID string) (Stats, error) {
	start := time.Now()
	stats := Stats{Merchants: 1}

	products, err := r.store.Catalog(ctx, merchantID)
	if err != nil {
		return stats, fmt.Errorf("failed to load catalog for %s: %w", merchantID, err)
	}

	for _, product := range products {
		if err := r.limiter.Wait(ctx); err != nil {
			stats.Duration = time.Since(start)
			return stats, fmt.Errorf("refresh interrupted: %w", err)
		}

		if err := r.refreshProduct(ctx, merchantID, product); err != nil {
			stats.Failed++
			metrics.RecordRefresh("failed")
			r.logger.Warn("product refresh failed", "merchant_id", merchantID, "product_id", product.ID, "error", err)
			continue
		}
		stats.Processed++
		metrics.RecordRefresh("ok")
	}

	stats.Duration = time.Since(start)
	return stats, nil
}

// RunAll refreshes every merchant in turn.
func (r *Refresher) RunAll(ctx context.Context) (Stats, error) {
	start := time.Now()
	var total Stats

	merchants, err := r.store.Merchants(ctx)
	if err != nil {
		return total, fmt.Errorf("failed to list merchants: %w", err)
	}

	for _, id := range merchants {
		stats, err := r.RunOnce(ctx, id)
		total.Processed += stats.Processed
		total.Failed += stats.Failed
		if err != nil {
			if ctx.Err() != nil {
				total.Duration = time.Since(start)
				return total, err
			}
			r.logger.Error("merchant refresh failed", "merchant_id", id, "error", err)
			continue
		}
		total.Merchants++
	}

	total.Duration = time.Since(start)
	return total, nil
}

func (r *Refresher) refreshProduct(ctx context.Context, merchantID string, product models.Product) error {
	result, err := r.analyzer.AnalyzeProduct(ctx, intelligence.ProductRequest{
		Product: product,
		Days:    r.days,
		Fresh:   true,
	})
	if err != nil {
		return err
	}
	if _, err := r.store.SaveSnapshot(ctx, merchantID, result); err != nil {
		return err
	}
	return nil
}
