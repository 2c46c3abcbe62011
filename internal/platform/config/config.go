package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Addr          string `mapstructure:"app_addr"`
	Environment   string `mapstructure:"app_env"`
	DatabaseURL   string `mapstructure:"database_url"`
	JWTSecret     string `mapstructure:"jwt_secret"`
	RunMigrations bool   `mapstructure:"run_migrations"`
	RunSeed       bool   `mapstructure:"run_seed"`
	MigrationsDir string `mapstructure:"migrations_dir"`
	SeedPassword  string `mapstructure:"seed_password"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	LogOutput string `mapstructure:"log_output"`

	RedisAddr      string        `mapstructure:"redis_addr"`
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`

	KafkaBrokers string `mapstructure:"kafka_brokers"`
	KafkaTopic   string `mapstructure:"kafka_topic"`

	EmailEnabled bool   `mapstructure:"email_enabled"`
	EmailFrom    string `mapstructure:"email_from"`
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUser     string `mapstructure:"smtp_user"`
	SMTPPassword string `mapstructure:"smtp_password"`
	SMTPUseTLS   bool   `mapstructure:"smtp_use_tls"`

	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute"`
	MetricsEnabled     bool          `mapstructure:"metrics_enabled"`
	TracingEnabled     bool          `mapstructure:"tracing_enabled"`
	CompanyName        string        `mapstructure:"company_name"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
}

// Load reads configuration from the environment, optionally layered over the
// yaml file named by CONFIG_FILE.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := strings.TrimSpace(v.GetString("config_file")); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("config_file", "")
	v.SetDefault("app_addr", ":8080")
	v.SetDefault("app_env", "development")
	v.SetDefault("database_url", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("run_migrations", true)
	v.SetDefault("run_seed", false)
	v.SetDefault("migrations_dir", "migrations")
	v.SetDefault("seed_password", "")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("log_output", "stdout")

	v.SetDefault("redis_addr", "")
	v.SetDefault("idempotency_ttl", 24*time.Hour)

	v.SetDefault("kafka_brokers", "")
	v.SetDefault("kafka_topic", "intranet.request.lifecycle.v1")

	v.SetDefault("email_enabled", false)
	v.SetDefault("email_from", "no-reply@example.com")
	v.SetDefault("smtp_host", "")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("smtp_user", "")
	v.SetDefault("smtp_password", "")
	v.SetDefault("smtp_use_tls", true)

	v.SetDefault("rate_limit_per_minute", 120)
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("tracing_enabled", false)
	v.SetDefault("company_name", "Intranet")
	v.SetDefault("shutdown_timeout", 15*time.Second)
}

// Brokers splits the comma separated KAFKA_BROKERS value.
func (c Config) Brokers() []string {
	var out []string
	for _, broker := range strings.Split(c.KafkaBrokers, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			out = append(out, broker)
		}
	}
	return out
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Environment == "production" {
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
		}
		if c.RunSeed {
			return fmt.Errorf("RUN_SEED must be disabled in production")
		}
	}
	if c.RunSeed && strings.TrimSpace(c.SeedPassword) == "" {
		return fmt.Errorf("SEED_PASSWORD must be set when RUN_SEED is true")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.IdempotencyTTL <= 0 {
		return fmt.Errorf("IDEMPOTENCY_TTL must be positive")
	}
	if c.EmailEnabled && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	if len(c.Brokers()) > 0 && strings.TrimSpace(c.KafkaTopic) == "" {
		return fmt.Errorf("KAFKA_TOPIC must be set when KAFKA_BROKERS is configured")
	}
	return nil
}
