package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	App       AppConfig
	Retry     RetryConfig
	Providers ProvidersConfig
	Firebase  FirebaseConfig
}

type ServerConfig struct {
	Port        string
	CORSOrigins []string
}

type DatabaseConfig struct {
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	MaxConns int
	MinConns int
}

// RedisConfig points at the job store and event bus. An empty Addr selects the in-memory job store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
}

type RetryConfig struct {
	MaxAttempts      int
	InitialBackoff   time.Duration
	Base             float64
	PollInterval     time.Duration
	LeaseTimeout     time.Duration
	RecoverySchedule string
	StaleAfter       time.Duration
}

type ProviderConfig struct {
	APIKey  string
	BaseURL string
}

type ProvidersConfig struct {
	OpenAI    ProviderConfig
	Anthropic ProviderConfig
	Google    ProviderConfig
	XAI       ProviderConfig
	// GoogleUseADC authenticates Google calls with application default credentials instead of a key
	GoogleUseADC bool
	Timeout      time.Duration
	RateLimit    float64 // requests per second per provider, 0 = unlimited
}

type FirebaseConfig struct {
	CredentialsPath string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			CORSOrigins: getEnvAsList("CORS_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			DSN:      getEnv("DB_DSN", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "arena"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 2),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
		Retry: RetryConfig{
			MaxAttempts:      getEnvAsInt("RETRY_MAX_ATTEMPTS", 5),
			InitialBackoff:   getEnvAsDuration("RETRY_INITIAL_BACKOFF", time.Second),
			Base:             getEnvAsFloat("RETRY_BASE", 2),
			PollInterval:     getEnvAsDuration("RETRY_POLL_INTERVAL", 250*time.Millisecond),
			LeaseTimeout:     getEnvAsDuration("RETRY_LEASE_TIMEOUT", 5*time.Minute),
			RecoverySchedule: getEnv("RECOVERY_SCHEDULE", "0 * * * * *"),
			StaleAfter:       getEnvAsDuration("RECOVERY_STALE_AFTER", 10*time.Minute),
		},
		Providers: ProvidersConfig{
			OpenAI: ProviderConfig{
				APIKey:  getEnv("OPENAI_API_KEY", ""),
				BaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			},
			Anthropic: ProviderConfig{
				APIKey:  getEnv("ANTHROPIC_API_KEY", ""),
				BaseURL: getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
			},
			Google: ProviderConfig{
				APIKey:  getEnv("GOOGLE_API_KEY", ""),
				BaseURL: getEnv("GOOGLE_BASE_URL", "https://generativelanguage.googleapis.com"),
			},
			XAI: ProviderConfig{
				APIKey:  getEnv("XAI_API_KEY", ""),
				BaseURL: getEnv("XAI_BASE_URL", "https://api.x.ai/v1"),
			},
			GoogleUseADC: getEnvAsBool("GOOGLE_USE_ADC", false),
			Timeout:      getEnvAsDuration("PROVIDER_TIMEOUT", 3*time.Minute),
			RateLimit:    getEnvAsFloat("PROVIDER_RATE_LIMIT", 0),
		},
		Firebase: FirebaseConfig{
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Database.DSN == "" && c.Database.Host == "" {
		return fmt.Errorf("DB_DSN or DB_HOST is required")
	}

	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1")
	}

	if c.Retry.InitialBackoff <= 0 || c.Retry.Base < 1 {
		return fmt.Errorf("RETRY_INITIAL_BACKOFF must be positive and RETRY_BASE at least 1")
	}

	if c.Retry.LeaseTimeout <= 0 || c.Providers.Timeout >= c.Retry.LeaseTimeout {
		return fmt.Errorf("PROVIDER_TIMEOUT must be shorter than RETRY_LEASE_TIMEOUT")
	}

	if c.Providers.RateLimit < 0 {
		return fmt.Errorf("PROVIDER_RATE_LIMIT must not be negative")
	}

	return nil
}

// DatabaseURL returns DB_DSN, or a postgres URL assembled from the DB_* parts
func (c *DatabaseConfig) DatabaseURL() string {
	if c.DSN != "" {
		return c.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Name,
	}
	q := u.Query()
	q.Set("sslmode", "disable")
	u.RawQuery = q.Encode()
	return u.String()
}

// IsProduction reports whether APP_ENV selects production behaviour
func (c *AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
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
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid number for %s, using default: %g", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid boolean for %s, using default: %t", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
