package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Auth      AuthConfig      `yaml:"auth"`
	OIDC      OIDCConfig      `yaml:"oidc"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	Chat      ChatConfig      `yaml:"chat"`
	Payment   PaymentConfig   `yaml:"payment"`
	Reports   ReportsConfig   `yaml:"reports"`
	CORS      CORSConfig      `yaml:"cors"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// TrustProxy takes the client address from X-Forwarded-For/X-Real-IP.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxy bool `yaml:"trustProxy"`
}

type DatabaseConfig struct {
	URL           string        `yaml:"url"`
	Host          string        `yaml:"host"`
	Port          string        `yaml:"port"`
	Username      string        `yaml:"username"`
	Password      string        `yaml:"password"`
	Database      string        `yaml:"database"`
	SSLMode       string        `yaml:"sslMode"`
	MaxOpenConns  int           `yaml:"maxOpenConns"`
	MaxIdleConns  int           `yaml:"maxIdleConns"`
	MaxLifetime   time.Duration `yaml:"maxLifetime"`
	MigrationsDir string        `yaml:"migrationsDir"`
	AutoMigrate   bool          `yaml:"autoMigrate"`
}

// DSN prefers DATABASE_URL and otherwise assembles a postgres URL.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.Username, d.Password, d.Host, d.Port, d.Database, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Enabled bool        `yaml:"enabled"`
	Brokers []string    `yaml:"brokers"`
	GroupID string      `yaml:"groupId"`
	Topics  TopicConfig `yaml:"topics"`
}

type TopicConfig struct {
	Notifications string `yaml:"notifications"`
	BookingStatus string `yaml:"bookingStatus"`
}

type AuthConfig struct {
	JWTSecret       string        `yaml:"jwtSecret"`
	RefreshSecret   string        `yaml:"refreshSecret"`
	AccessTokenTTL  time.Duration `yaml:"accessTokenTTL"`
	RefreshTokenTTL time.Duration `yaml:"refreshTokenTTL"`
	BcryptCost      int           `yaml:"bcryptCost"`
}

type OIDCConfig struct {
	Issuer   string `yaml:"issuer"`
	ClientID string `yaml:"clientId"`
}

func (o OIDCConfig) Enabled() bool { return o.Issuer != "" }

type RateLimitConfig struct {
	Max           int           `yaml:"max"`
	Window        time.Duration `yaml:"window"`
	SweepInterval time.Duration `yaml:"sweepInterval"`
	// Backend is "memory" or "redis".
	Backend string `yaml:"backend"`
}

type DispatchConfig struct {
	Workers   int           `yaml:"workers"`
	QueueSize int           `yaml:"queueSize"`
	Timeout   time.Duration `yaml:"timeout"`
}

type ChatConfig struct {
	TypingTTL time.Duration `yaml:"typingTTL"`
}

type PaymentConfig struct {
	// Provider is "mock" or "stripe".
	Provider        string `yaml:"provider"`
	StripeSecretKey string `yaml:"stripeSecretKey"`
	// StripeAPIURL overrides the Stripe API base, e.g. for stripe-mock.
	StripeAPIURL    string  `yaml:"stripeApiUrl"`
	Currency        string  `yaml:"currency"`
	MockFailureRate float64 `yaml:"mockFailureRate"`
}

type ReportsConfig struct {
	Dir        string `yaml:"dir"`
	BaseURL    string `yaml:"baseUrl"`
	QRSecret   string `yaml:"qrSecret"`
	VerifyHost string `yaml:"verifyHost"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    0, // SSE streams stay open
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          "5432",
			Username:      "mekaniku",
			Password:      "mekaniku",
			Database:      "mekaniku",
			SSLMode:       "disable",
			MaxOpenConns:  25,
			MaxIdleConns:  25,
			MaxLifetime:   5 * time.Minute,
			MigrationsDir: "migrations",
			AutoMigrate:   true,
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Kafka: KafkaConfig{
			Enabled: false,
			Brokers: []string{"localhost:9092"},
			GroupID: "mekaniku-api",
			Topics: TopicConfig{
				Notifications: "mekaniku.notifications",
				BookingStatus: "mekaniku.bookings.status",
			},
		},
		Auth: AuthConfig{
			JWTSecret:       "change-me",
			RefreshSecret:   "change-me-too",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 7 * 24 * time.Hour,
			BcryptCost:      10,
		},
		RateLimit: RateLimitConfig{
			Max:           100,
			Window:        60 * time.Second,
			SweepInterval: 5 * time.Minute,
			Backend:       "memory",
		},
		Dispatch: DispatchConfig{
			Workers:   4,
			QueueSize: 256,
			Timeout:   5 * time.Second,
		},
		Chat:    ChatConfig{TypingTTL: 3 * time.Second},
		Payment: PaymentConfig{Provider: "mock", Currency: "idr", MockFailureRate: 0.1},
		Reports: ReportsConfig{
			Dir:      "storage/reports",
			BaseURL:  "/files/reports",
			QRSecret: "mekaniku-report-secret",
		},
		CORS: CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by CONFIG_FILE, and environment variables, in that order of precedence.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.TrustProxy = getEnvBool("TRUST_PROXY", c.Server.TrustProxy)

	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnv("DB_PORT", c.Database.Port)
	c.Database.Username = getEnv("DB_USERNAME", c.Database.Username)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Database = getEnv("DB_NAME", c.Database.Database)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)
	c.Database.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", c.Database.MaxIdleConns)
	c.Database.MaxLifetime = getEnvDuration("DB_MAX_LIFETIME", c.Database.MaxLifetime)
	c.Database.MigrationsDir = getEnv("MIGRATIONS_DIR", c.Database.MigrationsDir)
	c.Database.AutoMigrate = getEnvBool("AUTO_MIGRATE", c.Database.AutoMigrate)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("REDIS_DB", c.Redis.DB)

	c.Kafka.Enabled = getEnvBool("KAFKA_ENABLED", c.Kafka.Enabled)
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		c.Kafka.Brokers = splitList(brokers)
	}
	c.Kafka.GroupID = getEnv("KAFKA_GROUP_ID", c.Kafka.GroupID)
	c.Kafka.Topics.Notifications = getEnv("KAFKA_TOPIC_NOTIFICATIONS", c.Kafka.Topics.Notifications)
	c.Kafka.Topics.BookingStatus = getEnv("KAFKA_TOPIC_BOOKING_STATUS", c.Kafka.Topics.BookingStatus)

	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.RefreshSecret = getEnv("JWT_REFRESH_SECRET", c.Auth.RefreshSecret)
	c.Auth.AccessTokenTTL = getEnvDuration("JWT_EXPIRES_IN", c.Auth.AccessTokenTTL)
	c.Auth.RefreshTokenTTL = getEnvDuration("JWT_REFRESH_EXPIRES_IN", c.Auth.RefreshTokenTTL)
	c.Auth.BcryptCost = getEnvInt("BCRYPT_COST", c.Auth.BcryptCost)

	c.OIDC.Issuer = getEnv("OIDC_ISSUER", c.OIDC.Issuer)
	c.OIDC.ClientID = getEnv("OIDC_CLIENT_ID", c.OIDC.ClientID)

	c.RateLimit.Max = getEnvInt("RATE_LIMIT_MAX", c.RateLimit.Max)
	if ms := getEnvInt("RATE_LIMIT_WINDOW_MS", 0); ms > 0 {
		c.RateLimit.Window = time.Duration(ms) * time.Millisecond
	}
	c.RateLimit.SweepInterval = getEnvDuration("RATE_LIMIT_SWEEP_INTERVAL", c.RateLimit.SweepInterval)
	c.RateLimit.Backend = getEnv("RATE_LIMIT_BACKEND", c.RateLimit.Backend)

	c.Dispatch.Workers = getEnvInt("DISPATCH_WORKERS", c.Dispatch.Workers)
	c.Dispatch.QueueSize = getEnvInt("DISPATCH_QUEUE_SIZE", c.Dispatch.QueueSize)
	c.Dispatch.Timeout = getEnvDuration("DISPATCH_TIMEOUT", c.Dispatch.Timeout)

	c.Chat.TypingTTL = getEnvDuration("CHAT_TYPING_TTL", c.Chat.TypingTTL)

	c.Payment.Provider = getEnv("PAYMENT_PROVIDER", c.Payment.Provider)
	c.Payment.StripeSecretKey = getEnv("STRIPE_SECRET_KEY", c.Payment.StripeSecretKey)
	c.Payment.StripeAPIURL = getEnv("STRIPE_API_URL", c.Payment.StripeAPIURL)
	c.Payment.Currency = getEnv("PAYMENT_CURRENCY", c.Payment.Currency)
	c.Payment.MockFailureRate = getEnvFloat("PAYMENT_MOCK_FAILURE_RATE", c.Payment.MockFailureRate)

	c.Reports.Dir = getEnv("REPORTS_DIR", c.Reports.Dir)
	c.Reports.BaseURL = getEnv("REPORTS_BASE_URL", c.Reports.BaseURL)
	c.Reports.QRSecret = getEnv("QR_SECRET_KEY", c.Reports.QRSecret)
	c.Reports.VerifyHost = getEnv("REPORTS_VERIFY_HOST", c.Reports.VerifyHost)

	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		c.CORS.AllowedOrigins = splitList(origins)
	}
}

// Addr returns the listen address for http.Server.
func (s ServerConfig) Addr() string {
	if strings.HasPrefix(s.Port, ":") {
		return s.Port
	}
	return ":" + s.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("15m") and the "7d" shorthand.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if strings.HasSuffix(value, "d") {
		if days, err := strconv.Atoi(strings.TrimSuffix(value, "d")); err == nil {
			return time.Duration(days) * 24 * time.Hour
		}
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
