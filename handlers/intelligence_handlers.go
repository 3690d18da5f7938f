package handlers

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"marketpulse/database"
	"marketpulse/intelligence"
	"marketpulse/middleware"
	"marketpulse/models"
)

// ProductStore looks up a single catalog product.
type ProductStore interface {
	Product(ctx context.Context, productID string) (models.Product, error)
}

// ProductAnalyzer analyses stored history for a product.
type ProductAnalyzer interface {
	AnalyzeProduct(ctx context.Context, req intelligence.ProductRequest) (*models.AnalysisResult, error)
}

// SeriesAnalyzer analyses an inline series.
type SeriesAnalyzer interface {
	Analyze(ctx context.Context, req intelligence.AnalyzeRequest) (*models.AnalysisResult, error)
}

// WeeklyReporter builds a merchant's weekly report.
type WeeklyReporter interface {
	WeeklyReport(ctx context.Context, merchantID string, topN int) (*models.WeeklyReport, error)
}

// RefreshTrigger starts a background refresh for a merchant.
type RefreshTrigger interface {
	RunNow(merchantID string)
}

// IntelligenceHandler serves the /api/v1/intelligence routes.
type IntelligenceHandler struct {
	products ProductStore
	stored   ProductAnalyzer
	inline   SeriesAnalyzer
	reporter WeeklyReporter
	refresh  RefreshTrigger
	validate *validator.Validate
	logger   *slog.Logger
}

// NewIntelligenceHandler creates the handler. refresh may be nil.
func NewIntelligenceHandler(products ProductStore, stored ProductAnalyzer, inline SeriesAnalyzer, reporter WeeklyReporter, refresh RefreshTrigger, logger *slog.Logger) *IntelligenceHandler {
	return &IntelligenceHandler{
		products: products,
		stored:   stored,
		inline:   inline,
		reporter: reporter,
		refresh:  refresh,
		validate: validator.New(),
		logger:   logger,
	}
}

// AnalyzeRequestBody is the body of POST /intelligence/analyze.
type AnalyzeRequestBody struct {
	ProductID   string               `json:"productId" validate:"required"`
	ProductName string               `json:"productName"`
	Days        int                  `json:"days" validate:"omitempty,min=0,max=365"`
	SalesData   []models.RawSalesRow `json:"salesData"`
	Profit      *models.ProfitInput  `json:"profit"`
}

// HandleGetProductAnalysis analyses a stored product's trailing history.
func (h *IntelligenceHandler) HandleGetProductAnalysis(c *fiber.Ctx) error {
	merchantID := middleware.MerchantID(c)
	productID := c.Params("productId")

	product, err := h.products.Product(c.UserContext(), productID)
	if errors.Is(err, database.ErrProductNotFound) || (err == nil && product.MerchantID != merchantID) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "Product not found"})
	}
	if err != nil {
		h.logger.Error("failed to load product", "product_id", productID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to load product"})
	}

	stock, err := parseStockInput(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": err.Error()})
	}
	profit, err := parseProfitInput(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": err.Error()})
	}

	result, err := h.stored.AnalyzeProduct(c.UserContext(), intelligence.ProductRequest{
		Product: product,
		Days:    c.QueryInt("days", 0),
		Stock:   stock,
		Profit:  profit,
	})
	if err != nil {
		return h.analysisError(c, productID, err)
	}

	return c.JSON(fiber.Map{"success": true, "data": result})
}

// HandleAnalyzeSeries analyses a series posted by the client.
func (h *IntelligenceHandler) HandleAnalyzeSeries(c *fiber.Ctx) error {
	var body AnalyzeRequestBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid request body"})
	}
	if err := h.validate.Struct(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": err.Error()})
	}
	if body.SalesData == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": intelligence.ErrInvalidSeries.Error()})
	}
	if body.Profit != nil {
		if err := validateProfit(*body.Profit); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": err.Error()})
		}
	}

	result, err := h.inline.Analyze(c.UserContext(), intelligence.AnalyzeRequest{
		ProductID:   body.ProductID,
		ProductName: body.ProductName,
		Series:      intelligence.Normalize(body.SalesData),
		Days:        body.Days,
		Profit:      body.Profit,
	})
	if err != nil {
		return h.analysisError(c, body.ProductID, err)
	}

	return c.JSON(fiber.Map{"success": true, "data": result})
}

// HandleGetWeeklyReport returns the weekly report for the authenticated merchant.
func (h *IntelligenceHandler) HandleGetWeeklyReport(c *fiber.Ctx) error {
	merchantID := middleware.MerchantID(c)
	topN := c.QueryInt("topN", 0)
	if topN < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "topN must not be negative"})
	}

	report, err := h.reporter.WeeklyReport(c.UserContext(), merchantID, topN)
	if err != nil {
		h.logger.Error("failed to build weekly report", "merchant_id", merchantID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to build weekly report"})
	}

	return c.JSON(fiber.Map{"success": true, "data": report})
}

// HandleRefresh starts a background refresh of the merchant's catalog.
func (h *IntelligenceHandler) HandleRefresh(c *fiber.Ctx) error {
	if h.refresh == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"success": false, "message": "Refresh is not configured"})
	}
	h.refresh.RunNow(middleware.MerchantID(c))
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"success": true, "message": "Refresh started"})
}

func (h *IntelligenceHandler) analysisError(c *fiber.Ctx, productID string, err error) error {
	if errors.Is(err, intelligence.ErrInvalidSeries) || errors.Is(err, intelligence.ErrInvalidDate) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": err.Error()})
	}
	h.logger.Error("analysis failed", "product_id", productID, "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to analyse product"})
}

func parseStockInput(c *fiber.Ctx) (*models.StockInput, error) {
	raw := c.Query("currentStock")
	if raw == "" {
		return nil, nil
	}
	stock, err := strconv.ParseFloat(raw, 64)
	if err != nil || stock < 0 {
		return nil, errors.New("currentStock must be a non-negative number")
	}
	lead := c.QueryInt("leadTime", 7)
	if lead < 1 {
		return nil, errors.New("leadTime must be at least 1")
	}
	return &models.StockInput{
		CurrentStock: stock,
		LeadTimeDays: lead,
		ServiceLevel: c.Query("serviceLevel", "medium"),
	}, nil
}

func parseProfitInput(c *fiber.Ctx) (*models.ProfitInput, error) {
	rawPrice := c.Query("pricePerUnit")
	rawCost := c.Query("costPerUnit")
	if rawPrice == "" && rawCost == "" {
		return nil, nil
	}
	price, err := strconv.ParseFloat(rawPrice, 64)
	if err != nil {
		return nil, errors.New("pricePerUnit must be a positive number")
	}
	cost, err := strconv.ParseFloat(rawCost, 64)
	if err != nil {
		return nil, errors.New("costPerUnit must be a non-negative number")
	}
	fixed := 0.0
	if raw := c.Query("fixedCostsWeekly"); raw != "" {
		if fixed, err = strconv.ParseFloat(raw, 64); err != nil {
			return nil, errors.New("fixedCostsWeekly must be a non-negative number")
		}
	}
	in := models.ProfitInput{PricePerUnit: price, CostPerUnit: cost, FixedCostsWeekly: fixed}
	if err := validateProfit(in); err != nil {
		return nil, err
	}
	return &in, nil
}

func validateProfit(in models.ProfitInput) error {
	switch {
	case in.PricePerUnit <= 0:
		return errors.New("pricePerUnit must be a positive number")
	case in.CostPerUnit < 0:
		return errors.New("costPerUnit must be a non-negative number")
	case in.FixedCostsWeekly < 0:
		return errors.New("fixedCostsWeekly must be a non-negative number")
	}
	return nil
}
