package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the service
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Chain    ChainConfig    `yaml:"chain"`
	Wallet   WalletConfig   `yaml:"wallet"`
	Cache    CacheConfig    `yaml:"cache"`
	Worker   WorkerConfig   `yaml:"worker"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// ChainConfig holds the EVM chain and the two contracts the dashboard talks to
type ChainConfig struct {
	ChainID        string `yaml:"chain_id"`
	Name           string `yaml:"name"`
	RPCEndpoint    string `yaml:"rpc_endpoint"`
	TokenAddress   string `yaml:"token_address"`   // ERC20 staking token
	StakingAddress string `yaml:"staking_address"` // tiered staking contract
	TokenSymbol    string `yaml:"token_symbol"`
}

// WalletConfig selects the connected wallet. A private key gives a signing
// wallet; a watch address gives a read-only one; neither means disconnected.
type WalletConfig struct {
	PrivateKey   string `yaml:"private_key"`
	WatchAddress string `yaml:"watch_address"`
}

// CacheConfig holds the read cache configuration. Redis is used when an
// address is set, otherwise an in-process LRU.
type CacheConfig struct {
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	LRUSize       int           `yaml:"lru_size"`
	RateTTL       time.Duration `yaml:"rate_ttl"`
	SnapshotTTL   time.Duration `yaml:"snapshot_ttl"`
}

// WorkerConfig holds background worker configuration
type WorkerConfig struct {
	PollInterval   time.Duration `yaml:"poll_interval"`
	ConfirmTimeout time.Duration `yaml:"confirm_timeout"`
	QueueSize      int           `yaml:"queue_size"`
	SnapshotEvery  int           `yaml:"snapshot_every"` // store a pool snapshot every N polls
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:8080"},
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "postgres",
			DBName:   "staking_dashboard",
			SSLMode:  "disable",
		},
		Chain: ChainConfig{
			ChainID:     "1",
			Name:        "Ethereum",
			TokenSymbol: "HASH",
		},
		Cache: CacheConfig{
			RedisDB:     0,
			LRUSize:     1024,
			RateTTL:     time.Hour,
			SnapshotTTL: 5 * time.Minute,
		},
		Worker: WorkerConfig{
			PollInterval:   15 * time.Second,
			ConfirmTimeout: 3 * time.Minute,
			QueueSize:      32,
			SnapshotEvery:  4,
		},
	}
}

// LoadConfig loads configuration from the YAML file named by CONFIG_FILE,
// if any, then applies environment variable overrides
func LoadConfig() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFile overlays the YAML file at path onto cfg
func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides cfg with any environment variables that are set
func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnvInt("SERVER_PORT", cfg.Server.Port)
	if origins := splitAndTrim(getEnv("CORS_ALLOWED_ORIGINS", ""), ","); len(origins) > 0 {
		cfg.Server.AllowedOrigins = origins
	}

	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvInt("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.DBName = getEnv("DB_NAME", cfg.Database.DBName)
	cfg.Database.SSLMode = getEnv("DB_SSL_MODE", cfg.Database.SSLMode)

	cfg.Chain.ChainID = getEnv("CHAIN_ID", cfg.Chain.ChainID)
	cfg.Chain.Name = getEnv("CHAIN_NAME", cfg.Chain.Name)
	cfg.Chain.RPCEndpoint = getEnv("RPC_ENDPOINT", cfg.Chain.RPCEndpoint)
	cfg.Chain.TokenAddress = getEnv("TOKEN_ADDRESS", cfg.Chain.TokenAddress)
	cfg.Chain.StakingAddress = getEnv("STAKING_ADDRESS", cfg.Chain.StakingAddress)
	cfg.Chain.TokenSymbol = getEnv("TOKEN_SYMBOL", cfg.Chain.TokenSymbol)

	cfg.Wallet.PrivateKey = getEnv("WALLET_PRIVATE_KEY", cfg.Wallet.PrivateKey)
	cfg.Wallet.WatchAddress = getEnv("WALLET_WATCH_ADDRESS", cfg.Wallet.WatchAddress)

	cfg.Cache.RedisAddr = getEnv("REDIS_ADDR", cfg.Cache.RedisAddr)
	cfg.Cache.RedisPassword = getEnv("REDIS_PASSWORD", cfg.Cache.RedisPassword)
	cfg.Cache.RedisDB = getEnvInt("REDIS_DB", cfg.Cache.RedisDB)
	cfg.Cache.LRUSize = getEnvInt("CACHE_LRU_SIZE", cfg.Cache.LRUSize)
	cfg.Cache.RateTTL = getEnvDuration("CACHE_RATE_TTL", cfg.Cache.RateTTL)
	cfg.Cache.SnapshotTTL = getEnvDuration("CACHE_SNAPSHOT_TTL", cfg.Cache.SnapshotTTL)

	cfg.Worker.PollInterval = getEnvDuration("POLL_INTERVAL", cfg.Worker.PollInterval)
	cfg.Worker.ConfirmTimeout = getEnvDuration("CONFIRM_TIMEOUT", cfg.Worker.ConfirmTimeout)
	cfg.Worker.QueueSize = getEnvInt("WORKER_QUEUE_SIZE", cfg.Worker.QueueSize)
	cfg.Worker.SnapshotEvery = getEnvInt("SNAPSHOT_EVERY", cfg.Worker.SnapshotEvery)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Chain.RPCEndpoint == "" {
		return fmt.Errorf("RPC endpoint is required")
	}
	if !common.IsHexAddress(c.Chain.TokenAddress) {
		return fmt.Errorf("invalid token address: %q", c.Chain.TokenAddress)
	}
	if !common.IsHexAddress(c.Chain.StakingAddress) {
		return fmt.Errorf("invalid staking address: %q", c.Chain.StakingAddress)
	}

	if c.Wallet.PrivateKey != "" && c.Wallet.WatchAddress != "" {
		return fmt.Errorf("wallet private key and watch address are mutually exclusive")
	}
	if c.Wallet.WatchAddress != "" && !common.IsHexAddress(c.Wallet.WatchAddress) {
		return fmt.Errorf("invalid watch address: %q", c.Wallet.WatchAddress)
	}
	// A signing wallet is spent through the HTTP API, so any origin is refused.
	// An empty list is refused too since CORS treats it as any origin.
	if c.Wallet.PrivateKey != "" && !c.Server.restrictsOrigins() {
		return fmt.Errorf("allowed origins must list explicit origins when a wallet private key is set")
	}

	if c.Cache.RedisAddr == "" && c.Cache.LRUSize <= 0 {
		return fmt.Errorf("cache LRU size must be positive when Redis is not configured")
	}

	if c.Worker.PollInterval <= 0 {
		return fmt.Errorf("invalid poll interval: %s", c.Worker.PollInterval)
	}
	if c.Worker.ConfirmTimeout <= 0 {
		return fmt.Errorf("invalid confirmation timeout: %s", c.Worker.ConfirmTimeout)
	}
	if c.Worker.QueueSize <= 0 {
		return fmt.Errorf("invalid worker queue size: %d", c.Worker.QueueSize)
	}

	return nil
}

func (s ServerConfig) restrictsOrigins() bool {
	if len(s.AllowedOrigins) == 0 {
		return false
	}
	for _, o := range s.AllowedOrigins {
		if o == "*" {
			return false
		}
	}
	return true
}

// DSN returns the PostgreSQL connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// splitAndTrim splits a separated string and drops empty parts
func splitAndTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
