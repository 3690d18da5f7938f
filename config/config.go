package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the service configuration. It is built once in main and
// handed to each component that needs a section of it.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Auth         AuthConfig         `mapstructure:"auth"`
	MLService    MLServiceConfig    `mapstructure:"ml_service"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Gemini       GeminiConfig       `mapstructure:"gemini"`
	Jobs         JobsConfig         `mapstructure:"jobs"`
	Intelligence IntelligenceConfig `mapstructure:"intelligence"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// MLServiceConfig describes the external forecasting service.
// An empty BaseURL disables the service entirely.
type MLServiceConfig struct {
	BaseURL                string        `mapstructure:"base_url"`
	PredictPath            string        `mapstructure:"predict_path"`
	WeeklyReportPath       string        `mapstructure:"weekly_report_path"`
	ProbeTimeout           time.Duration `mapstructure:"probe_timeout"`
	PredictTimeout         time.Duration `mapstructure:"predict_timeout"`
	PredictTimeoutPerPoint time.Duration `mapstructure:"predict_timeout_per_point"`
	PredictTimeoutMax      time.Duration `mapstructure:"predict_timeout_max"`
	ReportTimeout          time.Duration `mapstructure:"report_timeout"`
	BreakerThreshold       int           `mapstructure:"breaker_threshold"`
	BreakerCooldown        time.Duration `mapstructure:"breaker_cooldown"`
}

type CacheConfig struct {
	Driver        string        `mapstructure:"driver"` // none, memory, redis
	TTL           time.Duration `mapstructure:"ttl"`
	Size          int           `mapstructure:"size"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
}

type GeminiConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type JobsConfig struct {
	Schedule      string        `mapstructure:"schedule"` // empty disables the scheduler
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// IntelligenceConfig holds the tunable constants of the forecast engine.
type IntelligenceConfig struct {
	DayOfWeekFactors   map[string]float64 `mapstructure:"day_of_week_factors"`
	PaydayFactor       float64            `mapstructure:"payday_factor"`
	SavingFactor       float64            `mapstructure:"saving_factor"`
	PaydayEarlyEndDay  int                `mapstructure:"payday_early_end_day"`
	PaydayLateStartDay int                `mapstructure:"payday_late_start_day"`
	SavingStartDay     int                `mapstructure:"saving_start_day"`
	SavingEndDay       int                `mapstructure:"saving_end_day"`
	SpecialDays        map[string]float64 `mapstructure:"special_days"`

	MinTrainingDays int     `mapstructure:"min_training_days"`
	MomentumWindow  int     `mapstructure:"momentum_window"`
	TrendingUpRatio float64 `mapstructure:"trending_up_ratio"`
	GrowingRatio    float64 `mapstructure:"growing_ratio"`
	FallingRatio    float64 `mapstructure:"falling_ratio"`
	DecliningRatio  float64 `mapstructure:"declining_ratio"`

	BurstMinPoints int     `mapstructure:"burst_min_points"`
	BurstMediumZ   float64 `mapstructure:"burst_medium_z"`
	BurstHighZ     float64 `mapstructure:"burst_high_z"`
	BurstCriticalZ float64 `mapstructure:"burst_critical_z"`

	SinusoidAmplitude     float64 `mapstructure:"sinusoid_amplitude"`
	SinusoidFrequency     float64 `mapstructure:"sinusoid_frequency"`
	VarianceBoundFraction float64 `mapstructure:"variance_bound_fraction"`
	ExpectedBoundFraction float64 `mapstructure:"expected_bound_fraction"`
	MediumConfidenceDays  int     `mapstructure:"medium_confidence_days"`

	ModelAgreement  float64 `mapstructure:"model_agreement"`
	FullQualityDays int     `mapstructure:"full_quality_days"`
	MinForecastDays int     `mapstructure:"min_forecast_days"`
	MaxForecastDays int     `mapstructure:"max_forecast_days"`
	HistoryDays     int     `mapstructure:"history_days"`

	ServiceLevels map[string]float64 `mapstructure:"service_levels"`

	ReportTrendDays   int `mapstructure:"report_trend_days"`
	ReportBurstDays   int `mapstructure:"report_burst_days"`
	ReportConcurrency int `mapstructure:"report_concurrency"`
	ReportTopN        int `mapstructure:"report_top_n"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultIntelligence returns the engine constants used when nothing overrides them.
func DefaultIntelligence() IntelligenceConfig {
	return IntelligenceConfig{
		DayOfWeekFactors: map[string]float64{
			"sunday":    0.80,
			"monday":    0.90,
			"tuesday":   0.95,
			"wednesday": 1.00,
			"thursday":  1.05,
			"friday":    1.15,
			"saturday":  1.30,
		},
		PaydayFactor:       1.30,
		SavingFactor:       0.90,
		PaydayEarlyEndDay:  5,
		PaydayLateStartDay: 25,
		SavingStartDay:     20,
		SavingEndDay:       24,
		SpecialDays:        map[string]float64{},

		MinTrainingDays: 5,
		MomentumWindow:  7,
		TrendingUpRatio: 1.15,
		GrowingRatio:    1.05,
		FallingRatio:    0.95,
		DecliningRatio:  0.85,

		BurstMinPoints: 5,
		BurstMediumZ:   1.5,
		BurstHighZ:     2,
		BurstCriticalZ: 3,

		SinusoidAmplitude:     0.1,
		SinusoidFrequency:     0.5,
		VarianceBoundFraction: 0.5,
		ExpectedBoundFraction: 0.15,
		MediumConfidenceDays:  14,

		ModelAgreement:  0.87,
		FullQualityDays: 60,
		MinForecastDays: 7,
		MaxForecastDays: 30,
		HistoryDays:     60,

		ServiceLevels: map[string]float64{
			"low":      1.04,
			"medium":   1.65,
			"high":     2.05,
			"critical": 2.58,
		},

		ReportTrendDays:   14,
		ReportBurstDays:   30,
		ReportConcurrency: 4,
		ReportTopN:        10,
	}
}

// Load reads configuration from an optional file and the environment.
// Environment variables use the MARKETPULSE_ prefix with dots replaced by
// underscores (MARKETPULSE_ML_SERVICE_BASE_URL). The legacy DATABASE_URL,
// JWT_SECRET and GEMINI_API_KEY variables are honoured too.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("MARKETPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range map[string]string{
		"database.url":    "DATABASE_URL",
		"auth.jwt_secret": "JWT_SECRET",
		"gemini.api_key":  "GEMINI_API_KEY",
	} {
		envKey := "MARKETPULSE_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, legacy); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":3000")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.url", "")
	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("ml_service.base_url", "")
	v.SetDefault("ml_service.predict_path", "/api/ml/predict")
	v.SetDefault("ml_service.weekly_report_path", "/api/ml/weekly-report")
	v.SetDefault("ml_service.probe_timeout", "3s")
	v.SetDefault("ml_service.predict_timeout", "15s")
	v.SetDefault("ml_service.predict_timeout_per_point", "50ms")
	v.SetDefault("ml_service.predict_timeout_max", "60s")
	v.SetDefault("ml_service.report_timeout", "30s")
	v.SetDefault("ml_service.breaker_threshold", 3)
	v.SetDefault("ml_service.breaker_cooldown", "30s")

	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.ttl", "10m")
	v.SetDefault("cache.size", 1024)
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash-lite")
	v.SetDefault("gemini.timeout", "20s")

	v.SetDefault("jobs.schedule", "")
	v.SetDefault("jobs.rate_per_second", 2.0)
	v.SetDefault("jobs.timeout", "30m")

	d := DefaultIntelligence()
	v.SetDefault("intelligence.day_of_week_factors", d.DayOfWeekFactors)
	v.SetDefault("intelligence.payday_factor", d.PaydayFactor)
	v.SetDefault("intelligence.saving_factor", d.SavingFactor)
	v.SetDefault("intelligence.payday_early_end_day", d.PaydayEarlyEndDay)
	v.SetDefault("intelligence.payday_late_start_day", d.PaydayLateStartDay)
	v.SetDefault("intelligence.saving_start_day", d.SavingStartDay)
	v.SetDefault("intelligence.saving_end_day", d.SavingEndDay)
	v.SetDefault("intelligence.special_days", d.SpecialDays)
	v.SetDefault("intelligence.min_training_days", d.MinTrainingDays)
	v.SetDefault("intelligence.momentum_window", d.MomentumWindow)
	v.SetDefault("intelligence.trending_up_ratio", d.TrendingUpRatio)
	v.SetDefault("intelligence.growing_ratio", d.GrowingRatio)
	v.SetDefault("intelligence.falling_ratio", d.FallingRatio)
	v.SetDefault("intelligence.declining_ratio", d.DecliningRatio)
	v.SetDefault("intelligence.burst_min_points", d.BurstMinPoints)
	v.SetDefault("intelligence.burst_medium_z", d.BurstMediumZ)
	v.SetDefault("intelligence.burst_high_z", d.BurstHighZ)
	v.SetDefault("intelligence.burst_critical_z", d.BurstCriticalZ)
	v.SetDefault("intelligence.sinusoid_amplitude", d.SinusoidAmplitude)
	v.SetDefault("intelligence.sinusoid_frequency", d.SinusoidFrequency)
	v.SetDefault("intelligence.variance_bound_fraction", d.VarianceBoundFraction)
	v.SetDefault("intelligence.expected_bound_fraction", d.ExpectedBoundFraction)
	v.SetDefault("intelligence.medium_confidence_days", d.MediumConfidenceDays)
	v.SetDefault("intelligence.model_agreement", d.ModelAgreement)
	v.SetDefault("intelligence.full_quality_days", d.FullQualityDays)
	v.SetDefault("intelligence.min_forecast_days", d.MinForecastDays)
	v.SetDefault("intelligence.max_forecast_days", d.MaxForecastDays)
	v.SetDefault("intelligence.history_days", d.HistoryDays)
	v.SetDefault("intelligence.service_levels", d.ServiceLevels)
	v.SetDefault("intelligence.report_trend_days", d.ReportTrendDays)
	v.SetDefault("intelligence.report_burst_days", d.ReportBurstDays)
	v.SetDefault("intelligence.report_concurrency", d.ReportConcurrency)
	v.SetDefault("intelligence.report_top_n", d.ReportTopN)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are usable.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	if c.MLService.BaseURL != "" {
		if c.MLService.ProbeTimeout <= 0 || c.MLService.PredictTimeout <= 0 {
			return fmt.Errorf("ml_service timeouts must be positive")
		}
		if c.MLService.PredictTimeoutMax < c.MLService.PredictTimeout {
			return fmt.Errorf("ml_service.predict_timeout_max must not be below predict_timeout")
		}
	}

	validDrivers := map[string]bool{"none": true, "memory": true, "redis": true}
	if !validDrivers[c.Cache.Driver] {
		return fmt.Errorf("cache.driver must be one of: none, memory, redis")
	}
	if c.Cache.Driver == "memory" && c.Cache.Size < 1 {
		return fmt.Errorf("cache.size must be at least 1")
	}

	if c.Jobs.Schedule != "" && c.Jobs.RatePerSecond <= 0 {
		return fmt.Errorf("jobs.rate_per_second must be positive when jobs.schedule is set")
	}

	if err := c.Intelligence.Validate(); err != nil {
		return err
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// Validate checks the ordering constraints between engine thresholds.
func (ic IntelligenceConfig) Validate() error {
	if ic.MinTrainingDays < 1 {
		return fmt.Errorf("intelligence.min_training_days must be at least 1")
	}
	if ic.MomentumWindow < 1 {
		return fmt.Errorf("intelligence.momentum_window must be at least 1")
	}
	if !(ic.DecliningRatio < ic.FallingRatio && ic.FallingRatio <= 1 && 1 <= ic.GrowingRatio && ic.GrowingRatio < ic.TrendingUpRatio) {
		return fmt.Errorf("intelligence momentum ratios must satisfy declining < falling <= 1 <= growing < trending_up")
	}
	if ic.BurstMinPoints < 2 {
		return fmt.Errorf("intelligence.burst_min_points must be at least 2")
	}
	if !(ic.BurstMediumZ < ic.BurstHighZ && ic.BurstHighZ < ic.BurstCriticalZ) {
		return fmt.Errorf("intelligence burst cutoffs must satisfy medium < high < critical")
	}
	if ic.MinForecastDays < 1 || ic.MaxForecastDays < ic.MinForecastDays {
		return fmt.Errorf("intelligence forecast days must satisfy 1 <= min <= max")
	}
	if ic.ModelAgreement < 0 || ic.ModelAgreement > 1 {
		return fmt.Errorf("intelligence.model_agreement must be between 0 and 1")
	}
	if ic.FullQualityDays < 1 {
		return fmt.Errorf("intelligence.full_quality_days must be at least 1")
	}
	if ic.ReportConcurrency < 1 {
		return fmt.Errorf("intelligence.report_concurrency must be at least 1")
	}
	for name, f := range ic.DayOfWeekFactors {
		if f <= 0 {
			return fmt.Errorf("intelligence.day_of_week_factors.%s must be positive", name)
		}
	}
	return nil
}
