package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Storage
	Store    StoreConfig
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Simulation defaults
	Simulation SimulationConfig

	// Risk-free rate
	Rates RatesConfig

	// API
	API APIConfig

	// Scheduler
	Retention RetentionConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// StoreConfig selects where simulation runs are persisted
type StoreConfig struct {
	Driver     string // postgres, sqlite, none
	SQLitePath string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	URL      string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// SimulationConfig Monte Carlo 기본값
type SimulationConfig struct {
	NumSimulations int
	Seed           int64 // 0 = 시간 기반
	Workers        int   // 0 = GOMAXPROCS
	BatchSize      int   // 취소 확인 단위 (시나리오 수)
	Distribution   string
}

// RatesConfig 무위험 수익률 설정 (연 %)
type RatesConfig struct {
	Manual       float64
	ManualSet    bool // RISK_FREE_RATE 가 명시된 경우
	Fallback     float64
	CacheTTL     time.Duration
	CacheEnabled bool

	// 원격 시세 (JSON). 비어 있으면 사용 안 함
	SourceURL     string
	SourceField   string
	SourceTimeout time.Duration
}

// APIConfig HTTP API 설정
type APIConfig struct {
	RateLimitPerSecond float64
	RateLimitBurst     int
	MaxSimulations     int
	QuotaPerWindow     int // redis 공유 한도 (0 = 비활성)
	QuotaWindow        time.Duration
}

// RetentionConfig 스케줄러 작업 설정
type RetentionConfig struct {
	PruneSchedule    string
	MaxAge           time.Duration
	WarmRateSchedule string
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	manual, manualSet := getEnvAsOptionalFloat("RISK_FREE_RATE")

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Store: StoreConfig{
			Driver:     getEnv("STORE_DRIVER", "sqlite"),
			SQLitePath: getEnv("SQLITE_PATH", "investsim.db"),
		},

		// Database
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "investsim"),
			User:            getEnv("DB_USER", "investsim"),
			Password:        getEnv("DB_PASSWORD", ""),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Simulation: SimulationConfig{
			NumSimulations: getEnvAsInt("SIM_DEFAULT_SIMULATIONS", 5000),
			Seed:           int64(getEnvAsInt("SIM_SEED", 0)),
			Workers:        getEnvAsInt("SIM_WORKERS", 0),
			BatchSize:      getEnvAsInt("SIM_BATCH_SIZE", 500),
			Distribution:   getEnv("SIM_DISTRIBUTION", "normal"),
		},

		Rates: RatesConfig{
			Manual:       manual,
			ManualSet:    manualSet,
			Fallback:     getEnvAsFloat("RISK_FREE_FALLBACK", 10.5),
			CacheTTL:     getEnvAsDuration("RISK_FREE_CACHE_TTL", "24h"),
			CacheEnabled: getEnvAsBool("RISK_FREE_CACHE_ENABLED", true),

			SourceURL:     getEnv("RISK_FREE_SOURCE_URL", ""),
			SourceField:   getEnv("RISK_FREE_SOURCE_FIELD", "rate"),
			SourceTimeout: getEnvAsDuration("RISK_FREE_SOURCE_TIMEOUT", "10s"),
		},

		API: APIConfig{
			RateLimitPerSecond: getEnvAsFloat("API_RATE_LIMIT", 5),
			RateLimitBurst:     getEnvAsInt("API_RATE_BURST", 10),
			MaxSimulations:     getEnvAsInt("API_MAX_SIMULATIONS", 100000),
			QuotaPerWindow:     getEnvAsInt("API_QUOTA", 0),
			QuotaWindow:        getEnvAsDuration("API_QUOTA_WINDOW", "1m"),
		},

		Retention: RetentionConfig{
			PruneSchedule:    getEnv("PRUNE_SCHEDULE", "0 3 * * *"),
			MaxAge:           getEnvAsDuration("RUN_MAX_AGE", "720h"),
			WarmRateSchedule: getEnv("WARM_RATE_SCHEDULE", "0 */6 * * *"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	switch c.Store.Driver {
	case "postgres":
		// Database URL is required for postgres store
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORE_DRIVER=sqlite")
		}
	case "none":
	default:
		return fmt.Errorf("STORE_DRIVER must be one of: postgres, sqlite, none")
	}

	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Simulation.NumSimulations < 100 || c.Simulation.NumSimulations > 100000 {
		return fmt.Errorf("SIM_DEFAULT_SIMULATIONS must be within [100, 100000]")
	}
	if c.Simulation.BatchSize <= 0 {
		return fmt.Errorf("SIM_BATCH_SIZE must be > 0")
	}
	if c.API.RateLimitPerSecond <= 0 || c.API.RateLimitBurst <= 0 {
		return fmt.Errorf("API_RATE_LIMIT and API_RATE_BURST must be > 0")
	}

	return nil
}

// RiskFreeOverride returns the manual rate when one was configured.
func (c *Config) RiskFreeOverride() *float64 {
	if !c.Rates.ManualSet {
		return nil
	}
	v := c.Rates.Manual
	return &v
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if v, ok := getEnvAsOptionalFloat(key); ok {
		return v
	}
	return defaultValue
}

func getEnvAsOptionalFloat(key string) (float64, bool) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
