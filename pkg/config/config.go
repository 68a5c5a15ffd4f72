package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Source kinds understood by SourceConfig.Kind
const (
	SourceFile     = "file"
	SourceS3       = "s3"
	SourcePostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Source        SourceConfig
	S3            S3Config
	Database      DatabaseConfig
	Redis         RedisConfig
	NATS          NATSConfig
	Detection     DetectionConfig
	Breaker       BreakerConfig
	Observability ObservabilityConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port           string
	Environment    string
	ServiceName    string
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int    // seconds, applied to detection routes
	CORSOrigins    string // Comma-separated list of allowed origins
}

// SourceConfig selects where call record batches are loaded from
type SourceConfig struct {
	Kind        string
	FilePath    string
	LoadTimeout int // seconds
}

// S3Config holds object storage configuration for the s3 source
type S3Config struct {
	Bucket    string
	Key       string
	Prefix    string // when set, the daily export <prefix>/YYYY/MM/DD.json is read instead of Key
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
	Table    string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled    bool
	Host       string
	Port       string
	Password   string
	DB         int
	TTLSeconds int
	KeyPrefix  string
}

// NATSConfig holds NATS configuration for critical caller alerts
type NATSConfig struct {
	Enabled bool
	URL     string
	Subject string
}

// DetectionConfig holds the tunable detection policy
type DetectionConfig struct {
	SuspicionThreshold int
	HighAbove          int
	CriticalAbove      int
	SelectionStrategy  string
	H3Resolution       int
}

// BreakerConfig tunes the circuit breaker placed in front of remote sources
type BreakerConfig struct {
	Enabled          bool
	IntervalSeconds  int
	TimeoutSeconds   int
	FailureThreshold int
	SuccessThreshold int
}

// ObservabilityConfig holds error reporting and tracing settings
type ObservabilityConfig struct {
	SentryDSN    string
	OTLPEndpoint string
	ServiceVer   string
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Environment:    getEnv("ENVIRONMENT", "development"),
			ServiceName:    serviceName,
			ReadTimeout:    getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout:   getEnvAsInt("WRITE_TIMEOUT", 10),
			RequestTimeout: getEnvAsInt("REQUEST_TIMEOUT", 30),
			CORSOrigins:    getEnv("CORS_ORIGINS", "http://localhost:3000"),
		},
		Source: SourceConfig{
			Kind:        strings.ToLower(getEnv("CDR_SOURCE", SourceFile)),
			FilePath:    getEnv("CDR_FILE_PATH", "data/cdr.json"),
			LoadTimeout: getEnvAsInt("CDR_LOAD_TIMEOUT_SECONDS", 15),
		},
		S3: S3Config{
			Bucket:    getEnv("CDR_S3_BUCKET", ""),
			Key:       getEnv("CDR_S3_KEY", "cdr.json"),
			Prefix:    getEnv("CDR_S3_PREFIX", ""),
			Region:    getEnv("AWS_REGION", "us-east-1"),
			Endpoint:  getEnv("CDR_S3_ENDPOINT", ""),
			AccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "telecom"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 1),
			Table:    getEnv("CDR_TABLE", "call_records"),
		},
		Redis: RedisConfig{
			Enabled:    getEnvAsBool("REDIS_ENABLED", false),
			Host:       getEnv("REDIS_HOST", "localhost"),
			Port:       getEnv("REDIS_PORT", "6379"),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getEnvAsInt("REDIS_DB", 0),
			TTLSeconds: getEnvAsInt("REDIS_REPORT_TTL_SECONDS", 300),
			KeyPrefix:  getEnv("REDIS_KEY_PREFIX", "cdr:report"),
		},
		NATS: NATSConfig{
			Enabled: getEnvAsBool("NATS_ENABLED", false),
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
			Subject: getEnv("NATS_ALERT_SUBJECT", "calls.alerts.critical"),
		},
		Detection: DetectionConfig{
			SuspicionThreshold: getEnvAsInt("CDR_SUSPICION_THRESHOLD", 10),
			HighAbove:          getEnvAsInt("CDR_RISK_HIGH_ABOVE", 25),
			CriticalAbove:      getEnvAsInt("CDR_RISK_CRITICAL_ABOVE", 50),
			SelectionStrategy:  getEnv("CDR_SELECTION_STRATEGY", "last_in_order"),
			H3Resolution:       getEnvAsInt("CDR_H3_RESOLUTION", 4),
		},
		Breaker: BreakerConfig{
			Enabled:          getEnvAsBool("CDR_BREAKER_ENABLED", true),
			IntervalSeconds:  getEnvAsInt("CDR_BREAKER_INTERVAL_SECONDS", 60),
			TimeoutSeconds:   getEnvAsInt("CDR_BREAKER_TIMEOUT_SECONDS", 30),
			FailureThreshold: getEnvAsInt("CDR_BREAKER_FAILURE_THRESHOLD", 5),
			SuccessThreshold: getEnvAsInt("CDR_BREAKER_SUCCESS_THRESHOLD", 1),
		},
		Observability: ObservabilityConfig{
			SentryDSN:    getEnv("SENTRY_DSN", ""),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ServiceVer:   getEnv("SERVICE_VERSION", "dev"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks settings that would otherwise fail late at request time
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case SourceFile:
		if c.Source.FilePath == "" {
			return fmt.Errorf("CDR_FILE_PATH is required for the file source")
		}
	case SourceS3:
		if c.S3.Bucket == "" || (c.S3.Key == "" && c.S3.Prefix == "") {
			return fmt.Errorf("CDR_S3_BUCKET and one of CDR_S3_KEY or CDR_S3_PREFIX are required for the s3 source")
		}
	case SourcePostgres:
		if c.Database.Table == "" {
			return fmt.Errorf("CDR_TABLE is required for the postgres source")
		}
	default:
		return fmt.Errorf("unknown CDR_SOURCE %q", c.Source.Kind)
	}
	if c.Source.LoadTimeout <= 0 {
		return fmt.Errorf("CDR_LOAD_TIMEOUT_SECONDS must be positive")
	}
	return nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
