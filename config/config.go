package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Pricing    PricingConfig    `yaml:"pricing"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Reminders  RemindersConfig  `yaml:"reminders"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Events     EventsConfig     `yaml:"events"`
	Auth       AuthConfig       `yaml:"auth"`
	Log        LogConfig        `yaml:"log"`
	Timezone   string           `yaml:"timezone"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"`
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogSQL                 bool   `yaml:"log_sql"`
}

// PricingConfig holds the price of one 30-minute unit and the bookable durations.
type PricingConfig struct {
	UnitPrice        string          `yaml:"unit_price"`
	Unit             decimal.Decimal `yaml:"-"`
	DurationsMinutes []int           `yaml:"durations_minutes"`
}

// SchedulerConfig controls the expiry poller.
type SchedulerConfig struct {
	PollIntervalMs      int           `yaml:"poll_interval_ms"`
	PollInterval        time.Duration `yaml:"-"`
	ExpiryGraceMinutes  *int          `yaml:"expiry_grace_minutes"`
	ExpiryGrace         time.Duration `yaml:"-"`
	ReconcileEveryTicks int           `yaml:"reconcile_every_ticks"`
}

// RemindersConfig selects and tunes the reminder queue backend.
type RemindersConfig struct {
	Backend        string        `yaml:"backend"`
	PollIntervalMs int           `yaml:"poll_interval_ms"`
	PollInterval   time.Duration `yaml:"-"`
	BatchSize      int           `yaml:"batch_size"`
	Redis          RedisConfig   `yaml:"redis"`
}

// RedisConfig holds the connection settings for the redis reminder queue.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// EventsConfig selects where session lifecycle events are published.
type EventsConfig struct {
	Driver string      `yaml:"driver"`
	Kafka  KafkaConfig `yaml:"kafka"`
	AMQP   AMQPConfig  `yaml:"amqp"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type AMQPConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

// AuthConfig holds the secret used to verify identity tokens.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the configuration from the given path. A .env file in the working
// directory, when present, is loaded into the environment first.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	applyEnv(&cfg)
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration populated with defaults only.
func Default() *Config {
	var cfg Config
	if err := cfg.normalize(); err != nil {
		panic(err)
	}
	return &cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("VAPID_PUBLIC_KEY"); v != "" {
		cfg.Push.PublicKey = v
	}
	if v := os.Getenv("VAPID_PRIVATE_KEY"); v != "" {
		cfg.Push.PrivateKey = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Reminders.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Events.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("AMQP_URL"); v != "" {
		cfg.Events.AMQP.URL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func (cfg *Config) normalize() error {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 2
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Driver != "postgres" && cfg.Database.Driver != "sqlite" {
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", cfg.Database.Driver)
	}

	if cfg.Pricing.UnitPrice == "" {
		cfg.Pricing.UnitPrice = "1.00"
	}
	unit, err := decimal.NewFromString(cfg.Pricing.UnitPrice)
	if err != nil {
		return fmt.Errorf("pricing.unit_price %q: %w", cfg.Pricing.UnitPrice, err)
	}
	if !unit.IsPositive() {
		return fmt.Errorf("pricing.unit_price must be positive, got %s", unit)
	}
	cfg.Pricing.Unit = unit
	if len(cfg.Pricing.DurationsMinutes) == 0 {
		cfg.Pricing.DurationsMinutes = []int{30, 45, 60}
	}
	for _, m := range cfg.Pricing.DurationsMinutes {
		if m <= 0 {
			return fmt.Errorf("pricing.durations_minutes must be positive, got %d", m)
		}
	}

	if cfg.Scheduler.PollIntervalMs <= 0 {
		cfg.Scheduler.PollIntervalMs = 1000
	}
	cfg.Scheduler.PollInterval = time.Duration(cfg.Scheduler.PollIntervalMs) * time.Millisecond
	grace := 30
	if cfg.Scheduler.ExpiryGraceMinutes != nil && *cfg.Scheduler.ExpiryGraceMinutes >= 0 {
		grace = *cfg.Scheduler.ExpiryGraceMinutes
	}
	cfg.Scheduler.ExpiryGrace = time.Duration(grace) * time.Minute
	if cfg.Scheduler.ReconcileEveryTicks <= 0 {
		cfg.Scheduler.ReconcileEveryTicks = 60
	}

	if cfg.Reminders.Backend == "" {
		cfg.Reminders.Backend = "database"
	}
	if cfg.Reminders.PollIntervalMs <= 0 {
		cfg.Reminders.PollIntervalMs = 1000
	}
	cfg.Reminders.PollInterval = time.Duration(cfg.Reminders.PollIntervalMs) * time.Millisecond
	if cfg.Reminders.BatchSize <= 0 {
		cfg.Reminders.BatchSize = 100
	}
	if cfg.Reminders.Redis.KeyPrefix == "" {
		cfg.Reminders.Redis.KeyPrefix = "laundry:reminders"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}
	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}

	if cfg.Events.Driver == "" {
		cfg.Events.Driver = "log"
	}
	if cfg.Events.Kafka.Topic == "" {
		cfg.Events.Kafka.Topic = "laundry.sessions"
	}
	if cfg.Events.AMQP.Exchange == "" {
		cfg.Events.AMQP.Exchange = "laundry.sessions"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	return nil
}

// Durations returns the bookable durations in seconds.
func (p PricingConfig) Durations() []int {
	out := make([]int, len(p.DurationsMinutes))
	for i, m := range p.DurationsMinutes {
		out[i] = m * 60
	}
	return out
}
