// Package mlclient talks to the external forecasting service. Every call
// reports failure through its return value; callers never see an error.
package mlclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"marketpulse/config"
	"marketpulse/metrics"
	"marketpulse/models"
)

const (
	opProbe        = "probe"
	opPredict      = "predict"
	opWeeklyReport = "weekly_report"

	maxErrorBody = 512
)

// Client is an HTTP gateway to the forecasting service.
type Client struct {
	cfg     config.MLServiceConfig
	baseURL string
	http    *http.Client
	breaker *Breaker
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithBreaker replaces the circuit breaker.
func WithBreaker(b *Breaker) Option {
	return func(c *Client) {
		c.breaker = b
	}
}

// New creates a Client. An empty base URL yields a client that always
// reports the service as unavailable.
func New(cfg config.MLServiceConfig, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{},
		breaker: NewBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown),
		logger:  logger.With("component", "mlclient"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether a service URL is configured.
func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

// IsAvailable probes the service root. Only a 200 within the probe timeout
// counts as available.
func (c *Client) IsAvailable(ctx context.Context) bool {
	if !c.Enabled() {
		return false
	}
	if !c.breaker.Allow() {
		c.logger.Debug("forecasting service check skipped, breaker open")
		return false
	}

	start := time.Now()
	if c.cfg.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.ProbeTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		metrics.RecordGatewayCall(opProbe, "error", time.Since(start).Seconds())
		return false
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("forecasting service probe failed", "error", err)
		metrics.RecordGatewayCall(opProbe, "unavailable", time.Since(start).Seconds())
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		metrics.RecordGatewayCall(opProbe, "unavailable", time.Since(start).Seconds())
		return false
	}
	metrics.RecordGatewayCall(opProbe, "ok", time.Since(start).Seconds())
	return true
}

// PredictTimeout is the deadline for a predict call over n points.
func (c *Client) PredictTimeout(n int) time.Duration {
	d := c.cfg.PredictTimeout + time.Duration(n)*c.cfg.PredictTimeoutPerPoint
	if c.cfg.PredictTimeoutMax > 0 && d > c.cfg.PredictTimeoutMax {
		return c.cfg.PredictTimeoutMax
	}
	return d
}

// Predict requests a days-long forecast for series. It returns nil when the
// service is unreachable, errors, or answers with an unusable body.
func (c *Client) Predict(ctx context.Context, series []models.SalesPoint, days int) *models.MLForecastResponse {
	if !c.Enabled() {
		return nil
	}

	body := models.MLForecastRequest{
		SalesData:    make([]models.MLSalesPoint, len(series)),
		ForecastDays: days,
	}
	for i, p := range series {
		body.SalesData[i] = models.MLSalesPoint{
			Date:     p.Date.Format(models.DateLayout),
			Quantity: p.Quantity,
		}
	}

	var out models.MLForecastResponse
	ok := c.post(ctx, opPredict, c.cfg.PredictPath, c.PredictTimeout(len(series)), body, &out)
	if !ok {
		return nil
	}
	if !out.Success || len(out.Predictions) == 0 {
		c.logger.Warn("forecasting service returned no predictions", "error", out.Error)
		return nil
	}
	return &out
}

// WeeklyReport requests a ranked catalog report. It returns nil on any
// failure.
func (c *Client) WeeklyReport(ctx context.Context, req models.MLWeeklyReportRequest) *models.MLWeeklyReportResponse {
	if !c.Enabled() {
		return nil
	}
	var out models.MLWeeklyReportResponse
	if !c.post(ctx, opWeeklyReport, c.cfg.WeeklyReportPath, c.cfg.ReportTimeout, req, &out) {
		return nil
	}
	return &out
}

func (c *Client) post(ctx context.Context, op, path string, timeout time.Duration, body, out any) bool {
	start := time.Now()
	outcome := "ok"
	defer func() {
		metrics.RecordGatewayCall(op, outcome, time.Since(start).Seconds())
	}()

	payload, err := json.Marshal(body)
	if err != nil {
		outcome = "error"
		c.logger.Error("failed to encode forecasting service request", "operation", op, "error", err)
		return false
	}

	err = c.breaker.Call(func() error {
		reqCtx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			reqCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("failed to call forecasting service: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			return fmt.Errorf("forecasting service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	})
	if err != nil {
		outcome = "error"
		if errors.Is(err, ErrBreakerOpen) {
			outcome = "rejected"
		}
		c.logger.Warn("forecasting service call failed",
			slog.String("operation", op),
			slog.String("error", err.Error()),
			slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))
		return false
	}
	return true
}
