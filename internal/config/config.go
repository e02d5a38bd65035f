package config

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full configuration snapshot for one evaluation run. It is
// loaded once at startup, validated, and passed explicitly into every
// component; nothing reads it from ambient globals.
type Config struct {
	Environment  string             `mapstructure:"environment"`
	LogLevel     string             `mapstructure:"log_level"`
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Engine       EngineConfig       `mapstructure:"engine"`
	Marketplaces MarketplacesConfig `mapstructure:"marketplaces"`
	FX           FXConfig           `mapstructure:"fx"`
	Fees         FeesConfig         `mapstructure:"fees"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	CacheTTL string `mapstructure:"cache_ttl"`
}

// CacheDuration parses the Redis cache TTL, defaulting to five minutes.
func (r RedisConfig) CacheDuration() time.Duration {
	d, err := time.ParseDuration(r.CacheTTL)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// EngineConfig carries the decision parameters: verdict thresholds, risk
// weights, normalization scales and the trend window. Formula shapes are
// fixed in code; everything tunable lives here.
type EngineConfig struct {
	SettlementCurrency string             `mapstructure:"settlement_currency"`
	TrendWindowDays    int                `mapstructure:"trend_window_days"`
	RiskThresholds     RiskThresholds     `mapstructure:"risk_thresholds"`
	ROIThresholds      ROIThresholds      `mapstructure:"roi_thresholds"`
	RiskWeights        map[string]float64 `mapstructure:"risk_weights"`
	RiskScales         RiskScales         `mapstructure:"risk_scales"`
	Velocity           VelocityConfig     `mapstructure:"velocity"`
	Workers            int                `mapstructure:"workers"`
}

// TrendWindow returns the trend window as a duration.
func (e EngineConfig) TrendWindow() time.Duration {
	return time.Duration(e.TrendWindowDays) * 24 * time.Hour
}

type RiskThresholds struct {
	Low  float64 `mapstructure:"low"`
	High float64 `mapstructure:"high"`
}

type ROIThresholds struct {
	Strong float64 `mapstructure:"strong"`
}

// RiskScales are the normalization denominators for the continuous risk
// formulas. A coefficient of variation equal to the scale maps to 1.0.
type RiskScales struct {
	PriceCV   float64 `mapstructure:"price_cv"`
	RankCV    float64 `mapstructure:"rank_cv"`
	RatingVol float64 `mapstructure:"rating_vol"`
}

type VelocityConfig struct {
	SprinterRankVelocity   float64 `mapstructure:"sprinter_rank_velocity"`
	SprinterReviewMomentum float64 `mapstructure:"sprinter_review_momentum"`
}

type MarketplacesConfig struct {
	Enabled    []string          `mapstructure:"enabled"`
	Currencies map[string]string `mapstructure:"currencies"`
}

// FXConfig is the rate table: one entry per (from, to, effective time).
type FXConfig struct {
	Rates []FXRateConfig `mapstructure:"rates"`
}

type FXRateConfig struct {
	From        string  `mapstructure:"from"`
	To          string  `mapstructure:"to"`
	Rate        float64 `mapstructure:"rate"`
	EffectiveAt string  `mapstructure:"effective_at"`
}

// FeesConfig holds per-marketplace fee schedules. A schedule is immutable
// for the lifetime of one configuration epoch.
type FeesConfig struct {
	Schedules map[string]FeeScheduleConfig `mapstructure:"schedules"`
}

type FeeScheduleConfig struct {
	// Currency of the fulfillment tier fees. Referral fees are percentages
	// of the native listing price and carry no currency of their own.
	Currency         string             `mapstructure:"currency"`
	ReferralPct      map[string]float64 `mapstructure:"referral_pct"`
	FulfillmentTiers []FeeTierConfig    `mapstructure:"fulfillment_tiers"`
}

type FeeTierConfig struct {
	Name           string  `mapstructure:"name"`
	MaxWeightGrams float64 `mapstructure:"max_weight_grams"`
	Fee            float64 `mapstructure:"fee"`
}

// GenericCategory is the fallback fee category callers retry with when a
// product's own category has no fee row.
const GenericCategory = "generic"

const weightSumTolerance = 1e-6

// Load reads configuration from ./configs/config.yaml (or the working
// directory) plus MERCHANTIQ_* environment overrides, applies defaults and
// validates the result. Validation failures are fatal by design: the engine
// must not run on a partially valid configuration.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	return load(v)
}

// LoadFile reads configuration from an explicit path.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("MERCHANTIQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Environment = strings.ToLower(cfg.Environment)
	normalize(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func normalize(cfg *Config) {
	for i, code := range cfg.Marketplaces.Enabled {
		cfg.Marketplaces.Enabled[i] = strings.ToLower(code)
	}
	sort.Strings(cfg.Marketplaces.Enabled)
	for _, s := range cfg.Fees.Schedules {
		sort.Slice(s.FulfillmentTiers, func(i, j int) bool {
			return s.FulfillmentTiers[i].MaxWeightGrams < s.FulfillmentTiers[j].MaxWeightGrams
		})
	}
}

// Validate checks the invariants the engine depends on. Any violation means
// verdicts would not be trustworthy, so callers treat an error here as fatal
// at startup.
func (c *Config) Validate() error {
	e := c.Engine

	if e.SettlementCurrency == "" {
		return fmt.Errorf("engine.settlement_currency must be set")
	}
	if e.TrendWindowDays <= 0 {
		return fmt.Errorf("engine.trend_window_days must be positive, got %d", e.TrendWindowDays)
	}
	if e.RiskThresholds.Low < 0 || e.RiskThresholds.Low > 1 ||
		e.RiskThresholds.High < 0 || e.RiskThresholds.High > 1 {
		return fmt.Errorf("engine.risk_thresholds must be within [0,1], got low=%v high=%v",
			e.RiskThresholds.Low, e.RiskThresholds.High)
	}
	if e.RiskThresholds.Low > e.RiskThresholds.High {
		return fmt.Errorf("engine.risk_thresholds.low %v exceeds high %v",
			e.RiskThresholds.Low, e.RiskThresholds.High)
	}
	if e.ROIThresholds.Strong <= 0 {
		return fmt.Errorf("engine.roi_thresholds.strong must be positive, got %v", e.ROIThresholds.Strong)
	}

	if len(e.RiskWeights) == 0 {
		return fmt.Errorf("engine.risk_weights must not be empty")
	}
	sum := 0.0
	for dim, w := range e.RiskWeights {
		if w < 0 {
			return fmt.Errorf("engine.risk_weights[%s] must not be negative, got %v", dim, w)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("engine.risk_weights must sum to 1, got %v", sum)
	}

	if len(c.Marketplaces.Enabled) == 0 {
		return fmt.Errorf("marketplaces.enabled must not be empty")
	}
	for _, mp := range c.Marketplaces.Enabled {
		cur, ok := c.Marketplaces.Currencies[mp]
		if !ok || cur == "" {
			return fmt.Errorf("marketplace %q has no currency mapping", mp)
		}
		sched, ok := c.Fees.Schedules[mp]
		if !ok {
			return fmt.Errorf("marketplace %q has no fee schedule", mp)
		}
		if len(sched.FulfillmentTiers) == 0 {
			return fmt.Errorf("fee schedule for %q has no fulfillment tiers", mp)
		}
		if _, ok := sched.ReferralPct[GenericCategory]; !ok {
			return fmt.Errorf("fee schedule for %q has no %q referral row", mp, GenericCategory)
		}
		for cat, pct := range sched.ReferralPct {
			if pct < 0 || pct > 1 {
				return fmt.Errorf("fee schedule for %q: referral_pct[%s] must be within [0,1], got %v", mp, cat, pct)
			}
		}
		if cur != e.SettlementCurrency && !c.hasRate(cur, e.SettlementCurrency) {
			return fmt.Errorf("no FX rate from %s to settlement currency %s for marketplace %q",
				cur, e.SettlementCurrency, mp)
		}
	}

	for _, r := range c.FX.Rates {
		if r.Rate <= 0 {
			return fmt.Errorf("fx rate %s->%s must be positive, got %v", r.From, r.To, r.Rate)
		}
		if _, err := time.Parse(time.RFC3339, r.EffectiveAt); err != nil {
			return fmt.Errorf("fx rate %s->%s has invalid effective_at: %w", r.From, r.To, err)
		}
	}

	return nil
}

func (c *Config) hasRate(from, to string) bool {
	for _, r := range c.FX.Rates {
		if (r.From == from && r.To == to) || (r.From == to && r.To == from) {
			return true
		}
	}
	return false
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "merchantiq")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cache_ttl", "5m")

	v.SetDefault("engine.settlement_currency", "USD")
	v.SetDefault("engine.trend_window_days", 30)
	v.SetDefault("engine.risk_thresholds.low", 0.35)
	v.SetDefault("engine.risk_thresholds.high", 0.75)
	v.SetDefault("engine.roi_thresholds.strong", 0.30)
	v.SetDefault("engine.risk_weights", map[string]float64{
		"price_war":   0.30,
		"seasonality": 0.20,
		"return_rate": 0.25,
		"ip":          0.25,
	})
	v.SetDefault("engine.risk_scales.price_cv", 0.25)
	v.SetDefault("engine.risk_scales.rank_cv", 0.50)
	v.SetDefault("engine.risk_scales.rating_vol", 1.0)
	v.SetDefault("engine.velocity.sprinter_rank_velocity", -50.0)
	v.SetDefault("engine.velocity.sprinter_review_momentum", 1.0)
	v.SetDefault("engine.workers", 4)
}
