package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	AWS          AWSConfig
	Admin        AdminConfig
	Registration RegistrationConfig
	Catalog      CatalogConfig
	Payment      PaymentConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	RequestTimeout     int    // per-request context deadline in seconds; 0 disables
	CORSAllowedOrigins string // comma-separated, or "*" for all
	RunWorker          bool   // run the certificate archive worker inside the server process
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/ultron?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// AWSConfig holds AWS credentials and S3 bucket names.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	Endpoint             string
	MediaBucket          string
	CertificatesBucket   string
	PresignExpireMinutes int
}

// AdminConfig holds the bootstrap administrator account. Bootstrap is skipped when Email is empty.
type AdminConfig struct {
	Email    string
	Password string
}

// RegistrationConfig toggles registration policies.
type RegistrationConfig struct {
	AllowDuplicates  bool
	EnforceCapacity  bool
	MaxLoginFailures int
	LoginLockout     time.Duration
}

// CatalogConfig controls the in-process published catalog cache.
type CatalogConfig struct {
	CacheTTL time.Duration
}

// PaymentConfig holds UPI payee settings.
type PaymentConfig struct {
	PayeeName string
	Currency  string
	QRSize    int
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// RequestTimeoutDuration returns the per-request deadline.
func (c ServerConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			RequestTimeout:     getEnvInt("REQUEST_TIMEOUT_SEC", 20),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"),
			RunWorker:          getEnvBool("RUN_WORKER", true),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "ultron"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", "ap-south-1"),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:             getEnv("AWS_S3_ENDPOINT", ""),
			MediaBucket:          getEnv("AWS_S3_MEDIA_BUCKET", "ultron-ftp-media"),
			CertificatesBucket:   getEnv("AWS_S3_CERTIFICATES_BUCKET", "ultron-ftp-certificates"),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Admin: AdminConfig{
			Email:    getEnv("ADMIN_EMAIL", ""),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
		Registration: RegistrationConfig{
			AllowDuplicates:  getEnvBool("REGISTRATION_ALLOW_DUPLICATES", true),
			EnforceCapacity:  getEnvBool("REGISTRATION_ENFORCE_CAPACITY", false),
			MaxLoginFailures: getEnvInt("LOGIN_MAX_FAILURES", 5),
			LoginLockout:     time.Duration(getEnvInt("LOGIN_LOCKOUT_MINUTES", 15)) * time.Minute,
		},
		Catalog: CatalogConfig{
			CacheTTL: time.Duration(getEnvInt("CATALOG_CACHE_SEC", 30)) * time.Second,
		},
		Payment: PaymentConfig{
			PayeeName: getEnv("UPI_PAYEE_NAME", "ULTRON FTP"),
			Currency:  getEnv("UPI_CURRENCY", "INR"),
			QRSize:    getEnvInt("UPI_QR_SIZE", 256),
		},
	}
	if cfg.Admin.Email != "" && len(cfg.Admin.Password) < 6 {
		return nil, fmt.Errorf("ADMIN_PASSWORD must be at least 6 characters when ADMIN_EMAIL is set")
	}
	return cfg, nil
}

// AllowedOrigins splits CORSAllowedOrigins into trimmed entries.
func (c ServerConfig) AllowedOrigins() []string {
	return splitTrim(c.CORSAllowedOrigins, ",")
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
