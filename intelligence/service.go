package intelligence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"marketpulse/cache"
	"marketpulse/metrics"
	"marketpulse/models"
)

// ProductRequest asks for an analysis of a stored product's history.
type ProductRequest struct {
	Product models.Product
	Days    int
	Stock   *models.StockInput
	Profit  *models.ProfitInput
	// Fresh skips the cache read; the result is still written back.
	Fresh bool
}

// Service runs analyses over stored history with a result cache in front.
type Service struct {
	orch    *Orchestrator
	history HistorySource
	cache   cache.AnalysisCache
	logger  *slog.Logger
	clock   func() time.Time
}

// NewService wires an orchestrator to a history source. A nil cache
// disables caching.
func NewService(orch *Orchestrator, history HistorySource, c cache.AnalysisCache, logger *slog.Logger) *Service {
	if c == nil {
		c = cache.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		orch:    orch,
		history: history,
		cache:   c,
		logger:  logger,
		clock:   orch.clock,
	}
}

// Orchestrator returns the underlying orchestrator for inline-series
// analyses, which are never cached.
func (s *Service) Orchestrator() *Orchestrator {
	return s.orch
}

// AnalyzeProduct loads the product's trailing history and analyses it.
// Requests carrying stock or profit input bypass the cache entirely.
func (s *Service) AnalyzeProduct(ctx context.Context, req ProductRequest) (*models.AnalysisResult, error) {
	params := s.orch.Params()
	days := params.ClampDays(req.Days)
	key := cache.Key(req.Product.ID, days, truncateDay(s.clock()))
	cacheable := req.Stock == nil && req.Profit == nil

	if cacheable && !req.Fresh {
		cached, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("analysis cache read failed", "product_id", req.Product.ID, "error", err)
		}
		metrics.RecordCacheLookup(cached != nil)
		if cached != nil {
			return cached, nil
		}
	}

	history, err := s.history.DailySales(ctx, req.Product.ID, params.HistoryDays)
	if err != nil {
		return nil, fmt.Errorf("failed to load sales history: %w", err)
	}

	result, err := s.orch.Analyze(ctx, AnalyzeRequest{
		ProductID:   req.Product.ID,
		ProductName: req.Product.Name,
		Series:      history,
		Days:        days,
		Stock:       req.Stock,
		Profit:      req.Profit,
	})
	if err != nil {
		return nil, err
	}

	if cacheable {
		if err := s.cache.Set(ctx, key, result); err != nil {
			s.logger.Warn("analysis cache write failed", "product_id", req.Product.ID, "error", err)
		}
	}
	return result, nil
}
