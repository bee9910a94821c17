// config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Auth      AuthConfig
	Paystack  PaystackConfig
	Lazerpay  LazerpayConfig
	Reconcile ReconcileConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	Debug          bool
	AllowedOrigins []string
}

func (s ServerConfig) IsProduction() bool {
	return s.Env == "production"
}

// StorageConfig selects the ledger backend: "postgres" or "memory".
type StorageConfig struct {
	Driver string
	// SeedUsers are "id:email" pairs created at startup by the memory
	// driver, for local runs.
	SeedUsers []string
}

type DatabaseConfig struct {
	Host          string
	Port          string
	User          string
	Password      string
	DBName        string
	SSLMode       string
	MaxConns      int32
	MinConns      int32
	RunMigrations bool
}

func (d DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled    bool
	Addrs      []string
	Password   string
	UseCluster bool
	BalanceTTL time.Duration
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

type AuthConfig struct {
	JWTPublicKeyPath string
	Issuer           string
	Audience         string
}

type PaystackConfig struct {
	BaseURL        string
	SecretKey      string
	CallbackURL    string
	WhitelistedIPs []string
	Timeout        time.Duration
}

type LazerpayConfig struct {
	BaseURL    string
	PublicKey  string
	SecretKey  string
	Coin       string
	Currency   string
	Blockchain string
	Network    string
	Timeout    time.Duration
}

type ReconcileConfig struct {
	Enabled   bool
	Interval  time.Duration
	MinAge    time.Duration
	BatchSize int
	Rails     []string
}

type RateLimitConfig struct {
	Limit         int
	Window        time.Duration
	BlockDuration time.Duration
}

var defaultPaystackIPs = []string{"52.31.139.75", "52.49.173.169", "52.214.14.220"}

func Load(logger *zap.Logger) (*Config, error) {
	env := getEnv("ENVIRONMENT", "development")
	debug := getEnvBool("DEBUG", env != "production")

	network := "testnet"
	if !debug {
		network = "mainnet"
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8040"),
			Env:            env,
			Debug:          debug,
			AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Storage: StorageConfig{
			Driver:    getEnv("STORAGE_DRIVER", "postgres"),
			SeedUsers: getEnvSlice("MEMORY_SEED_USERS", nil),
		},
		Database: DatabaseConfig{
			Host:          getEnv("DB_HOST", "localhost"),
			Port:          getEnv("DB_PORT", "5432"),
			User:          getEnv("DB_USER", "postgres"),
			Password:      getEnv("DB_PASSWORD", ""),
			DBName:        getEnv("DB_NAME", "wallet"),
			SSLMode:       getEnv("DB_SSL_MODE", "disable"),
			MaxConns:      int32(getEnvInt("DB_MAX_CONNS", 20)),
			MinConns:      int32(getEnvInt("DB_MIN_CONNS", 2)),
			RunMigrations: getEnvBool("DB_RUN_MIGRATIONS", true),
		},
		Redis: RedisConfig{
			Enabled:    getEnvBool("REDIS_ENABLED", true),
			Addrs:      getEnvSlice("REDIS_ADDRS", []string{"localhost:6379"}),
			Password:   getEnv("REDIS_PASSWORD", ""),
			UseCluster: getEnvBool("REDIS_CLUSTER", false),
			BalanceTTL: getEnvDuration("REDIS_BALANCE_TTL", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Brokers: getEnvSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnv("KAFKA_TOPIC", "wallet.transactions"),
		},
		Auth: AuthConfig{
			JWTPublicKeyPath: getEnv("JWT_PUBLIC_KEY_PATH", "./secrets/jwt_public.pem"),
			Issuer:           getEnv("JWT_ISSUER", "auth-service"),
			Audience:         getEnv("JWT_AUDIENCE", "wallet-service"),
		},
		Paystack: PaystackConfig{
			BaseURL:        getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
			SecretKey:      getEnv("PAYSTACK_SECRET_KEY", ""),
			CallbackURL:    getEnv("PAYSTACK_CALLBACK_URL", ""),
			WhitelistedIPs: getEnvSlice("PAYSTACK_WHITELISTED_IPS", defaultPaystackIPs),
			Timeout:        getEnvDuration("PAYSTACK_TIMEOUT", 15*time.Second),
		},
		Lazerpay: LazerpayConfig{
			BaseURL:    getEnv("LAZERPAY_BASE_URL", "https://api.lazerpay.engineering/api/v1"),
			PublicKey:  getEnv("LAZERPAY_PUBLIC_KEY", ""),
			SecretKey:  getEnv("LAZERPAY_SECRET_KEY", ""),
			Coin:       getEnv("LAZERPAY_COIN", "USDT"),
			Currency:   getEnv("LAZERPAY_CURRENCY", "USD"),
			Blockchain: getEnv("LAZERPAY_BLOCKCHAIN", "Binance Smart Chain"),
			Network:    getEnv("LAZERPAY_NETWORK", network),
			Timeout:    getEnvDuration("LAZERPAY_TIMEOUT", 15*time.Second),
		},
		Reconcile: ReconcileConfig{
			Enabled:   getEnvBool("RECONCILE_ENABLED", true),
			Interval:  getEnvDuration("RECONCILE_INTERVAL", time.Minute),
			MinAge:    getEnvDuration("RECONCILE_MIN_AGE", 2*time.Minute),
			BatchSize: getEnvInt("RECONCILE_BATCH_SIZE", 50),
			Rails:     getEnvSlice("RECONCILE_RAILS", []string{"crypto"}),
		},
		RateLimit: RateLimitConfig{
			Limit:         getEnvInt("RATE_LIMIT", 30),
			Window:        getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
			BlockDuration: getEnvDuration("RATE_LIMIT_BLOCK", 5*time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Paystack.SecretKey == "" {
		logger.Warn("PAYSTACK_SECRET_KEY is empty, fiat webhooks will be rejected")
	}
	if cfg.Lazerpay.SecretKey == "" {
		logger.Warn("LAZERPAY_SECRET_KEY is empty, crypto webhooks will be rejected")
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}

	switch c.Lazerpay.Network {
	case "testnet", "mainnet":
	default:
		return fmt.Errorf("unknown LAZERPAY_NETWORK %q", c.Lazerpay.Network)
	}

	if c.Server.IsProduction() {
		if c.Paystack.SecretKey == "" {
			return fmt.Errorf("PAYSTACK_SECRET_KEY is required in production")
		}
		if c.Lazerpay.SecretKey == "" || c.Lazerpay.PublicKey == "" {
			return fmt.Errorf("LAZERPAY_PUBLIC_KEY and LAZERPAY_SECRET_KEY are required in production")
		}
		if c.Storage.Driver == "memory" {
			return fmt.Errorf("memory storage is not allowed in production")
		}
	}

	if c.Reconcile.Enabled && c.Reconcile.Interval <= 0 {
		return fmt.Errorf("RECONCILE_INTERVAL must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		boolVal, err := strconv.ParseBool(value)
		if err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		intVal, err := strconv.Atoi(value)
		if err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvSlice splits a comma-separated variable, dropping empty entries.
func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
