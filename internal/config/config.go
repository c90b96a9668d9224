// Package config loads runtime configuration from config.yaml with .env
// overrides for credentials. Pipeline tunables fold into
// domain.PipelineConfig; everything else stays here.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"smartcrowd/internal/domain"
)

// Config is the full runtime configuration.
type Config struct {
	Server     ServerConfig          `mapstructure:"server"`
	Postgres   PostgresConfig        `mapstructure:"postgres"`
	ClickHouse ClickHouseConfig      `mapstructure:"clickhouse"`
	Pipeline   domain.PipelineConfig `mapstructure:"pipeline"`
	Backfill   BackfillConfig        `mapstructure:"backfill"`
}

// ServerConfig holds metrics/health endpoint settings.
type ServerConfig struct {
	MetricsAddr string `mapstructure:"metrics_addr"` // empty disables the endpoint
}

// PostgresConfig holds the relational store settings.
type PostgresConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// ClickHouseConfig holds the snapshot history store settings.
type ClickHouseConfig struct {
	DSN string `mapstructure:"dsn"` // empty disables the history sink
}

// BackfillConfig holds stage 4 defaults.
type BackfillConfig struct {
	Checkpoints int `mapstructure:"checkpoints"`
}

// Load reads config.yaml from ./config (or the directory named in
// SMARTCROWD_CONFIG_DIR), then applies .env and environment overrides for
// credentials. A missing config file is not an error; defaults apply.
func Load() (*Config, error) {
	// .env values take precedence over config.yaml for the DSNs below.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir := os.Getenv("SMARTCROWD_CONFIG_DIR"); dir != "" {
		v.AddConfigPath(dir)
	} else {
		v.AddConfigPath("./config")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults mirrors domain.DefaultPipelineConfig so an absent file or a
// partial one still yields a fully valid configuration.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.metrics_addr", ":9090")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("backfill.checkpoints", 0)

	d := domain.DefaultPipelineConfig()
	v.SetDefault("pipeline.decay_half_life_hours", d.DecayHalfLifeHours)
	v.SetDefault("pipeline.persistence_boost", d.PersistenceBoost)
	v.SetDefault("pipeline.confidence_mass_k", d.ConfidenceMassK)
	v.SetDefault("pipeline.min_sample_size", d.MinSampleSize)
	v.SetDefault("pipeline.calibration_bins", d.CalibrationBins)
	v.SetDefault("pipeline.shrinkage_k", d.ShrinkageK)
	v.SetDefault("pipeline.churn_penalty_threshold", d.ChurnPenaltyThreshold)
	v.SetDefault("pipeline.churn_penalty_factor", d.ChurnPenaltyFactor)
	v.SetDefault("pipeline.calibration_penalty_threshold", d.CalibrationPenaltyThreshold)
	v.SetDefault("pipeline.calibration_penalty_factor", d.CalibrationPenaltyFactor)
	v.SetDefault("pipeline.specialization_coefficient", d.SpecializationCoefficient)
	v.SetDefault("pipeline.concentration_risk_weight", d.ConcentrationRiskWeight)
	v.SetDefault("pipeline.wash_trade_risk_weight", d.WashTradeRiskWeight)
	v.SetDefault("pipeline.low_sample_risk_weight", d.LowSampleRiskWeight)
	v.SetDefault("pipeline.wash_trade_window_ms", d.WashTradeWindowMs)
	v.SetDefault("pipeline.wash_trade_min_reversals", d.WashTradeMinReversals)
	v.SetDefault("pipeline.backtest_cutoff_hours", d.BacktestCutoffHours)
	v.SetDefault("pipeline.market_workers", d.MarketWorkers)
}

// overrideFromEnv applies credential overrides: env beats yaml.
func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		cfg.ClickHouse.DSN = v
	}
}
