package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"engagement-engine/engine"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Locks    LocksConfig    `mapstructure:"locks"`
	R2       R2Config       `mapstructure:"r2"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Rules    RulesConfig    `mapstructure:"rules"`
}

type HTTPConfig struct {
	Addr           string `mapstructure:"addr"`
	AllowedOrigins string `mapstructure:"allowed_origins"`
	GatewayToken   string `mapstructure:"gateway_token"`
}

// DatabaseConfig selects the gorm dialect. Driver is "postgres" or "sqlite";
// for sqlite, URL is a file path or ":memory:".
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	URL    string `mapstructure:"url"`
}

// RedisConfig enables cross-replica user locks. Empty URL keeps locks in process.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type LocksConfig struct {
	Wait time.Duration `mapstructure:"wait"`
	TTL  time.Duration `mapstructure:"ttl"`
}

type R2Config struct {
	AccountID       string `mapstructure:"account_id"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	Bucket          string `mapstructure:"bucket"`
}

// Enabled reports whether enough is set to talk to R2.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.AccessKeySecret != "" && c.Bucket != ""
}

type ArchiveConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	BatchSize int           `mapstructure:"batch_size"`
}

// RulesConfig holds the tunable engagement rules.
type RulesConfig struct {
	ResetHour         int           `mapstructure:"reset_hour"`
	Timezone          string        `mapstructure:"timezone"`
	MaxHP             int           `mapstructure:"max_hp"`
	MissPenalty       int           `mapstructure:"miss_penalty"`
	RecoverPerMission int           `mapstructure:"recover_per_mission"`
	MinHPThreshold    int           `mapstructure:"min_hp_threshold"`
	SurgeChance       float64       `mapstructure:"surge_chance"`
	FreezeCostGems    int64         `mapstructure:"freeze_cost_gems"`
	FreezeDuration    time.Duration `mapstructure:"freeze_duration"`
	CatalogPath       string        `mapstructure:"catalog_path"`
}

// Load reads .env, then config.yaml (or configPath), then ENGAGE_* environment
// variables, in increasing priority.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ENGAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindLegacyEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		log.Println("⚠️  [CONFIG] No config file found, using defaults and environment")
	} else {
		log.Printf("✅ [CONFIG] Loaded %s", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":5200")
	v.SetDefault("http.allowed_origins", "http://localhost:3000")
	v.SetDefault("http.gateway_token", "")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.url", "")

	v.SetDefault("redis.url", "")

	v.SetDefault("locks.wait", 5*time.Second)
	v.SetDefault("locks.ttl", 30*time.Second)

	v.SetDefault("r2.account_id", "")
	v.SetDefault("r2.access_key_id", "")
	v.SetDefault("r2.access_key_secret", "")
	v.SetDefault("r2.bucket", "")

	v.SetDefault("archive.interval", 10*time.Minute)
	v.SetDefault("archive.batch_size", 500)

	d := engine.DefaultRules()
	v.SetDefault("rules.reset_hour", d.ResetHour)
	v.SetDefault("rules.timezone", "UTC")
	v.SetDefault("rules.max_hp", d.MaxHP)
	v.SetDefault("rules.miss_penalty", d.MissPenalty)
	v.SetDefault("rules.recover_per_mission", d.RecoverPerMission)
	v.SetDefault("rules.min_hp_threshold", d.MinHPThreshold)
	v.SetDefault("rules.surge_chance", d.SurgeChance)
	v.SetDefault("rules.freeze_cost_gems", d.FreezeCostGems)
	v.SetDefault("rules.freeze_duration", d.FreezeDuration)
	v.SetDefault("rules.catalog_path", "")
}

// bindLegacyEnv keeps the variable names the gateway deployment already sets.
func bindLegacyEnv(v *viper.Viper) {
	legacy := map[string]string{
		"database.url":         "DATABASE_URL",
		"http.gateway_token":   "GATEWAY_SERVICE_TOKEN",
		"http.allowed_origins": "ALLOWED_ORIGINS",
		"r2.account_id":        "CLOUDFLARE_ACCOUNT_ID",
		"r2.access_key_id":     "R2_ACCESS_KEY_ID",
		"r2.access_key_secret": "R2_ACCESS_KEY_SECRET",
		"r2.bucket":            "R2_BUCKET_NAME",
		"redis.url":            "REDIS_URL",
	}
	for key, env := range legacy {
		prefixed := "ENGAGE_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, prefixed, env)
	}
}

// EngineRules converts the rule settings into validated engine rules.
func (c *Config) EngineRules() (engine.Rules, error) {
	loc, err := time.LoadLocation(c.Rules.Timezone)
	if err != nil {
		return engine.Rules{}, fmt.Errorf("%w: timezone %q: %v", engine.ErrInvalidInput, c.Rules.Timezone, err)
	}
	r := engine.Rules{
		ResetHour:         c.Rules.ResetHour,
		Location:          loc,
		MaxHP:             c.Rules.MaxHP,
		MissPenalty:       c.Rules.MissPenalty,
		RecoverPerMission: c.Rules.RecoverPerMission,
		MinHPThreshold:    c.Rules.MinHPThreshold,
		SurgeChance:       c.Rules.SurgeChance,
		FreezeCostGems:    c.Rules.FreezeCostGems,
		FreezeDuration:    c.Rules.FreezeDuration,
	}
	if err := r.Validate(); err != nil {
		return engine.Rules{}, err
	}
	return r, nil
}
