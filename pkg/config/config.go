package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Seed          SeedConfig
	Cache         CacheConfig
	Notifications NotificationConfig
	Registry      RegistryConfig
	Export        ExportConfig
}

type DatabaseConfig struct {
	Enabled      bool
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SeedConfig controls the accounts and registry rows created on first start.
type SeedConfig struct {
	AdminPassword   string
	AdminName       string
	StudentRegistry bool
}

// CacheConfig tunes cached read models.
type CacheConfig struct {
	StatsTTL time.Duration
}

// NotificationConfig configures staff e-mail alerts for urgent and resolved complaints.
type NotificationConfig struct {
	Enabled       bool
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPassword  string
	From          string
	Recipients    []string
	SkipTLSVerify bool
	Workers       int
	MaxRetries    int
	RetryDelay    time.Duration
}

// ExportConfig points the PDF exporter at a TrueType font with Hangul glyphs.
type ExportConfig struct {
	PDFFontPath string
}

// RegistryConfig holds defaults for the student registry.
type RegistryConfig struct {
	DefaultYear    int
	MaxImportBytes int64
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Enabled:      v.GetBool("DB_ENABLED"),
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Seed = SeedConfig{
		AdminPassword:   v.GetString("SEED_ADMIN_PASSWORD"),
		AdminName:       v.GetString("SEED_ADMIN_NAME"),
		StudentRegistry: v.GetBool("SEED_STUDENT_REGISTRY"),
	}

	cfg.Cache = CacheConfig{
		StatsTTL: parseDuration(v.GetString("STATS_CACHE_TTL"), time.Minute),
	}

	cfg.Notifications = NotificationConfig{
		Enabled:       v.GetBool("ENABLE_NOTIFICATIONS"),
		SMTPHost:      v.GetString("SMTP_HOST"),
		SMTPPort:      v.GetInt("SMTP_PORT"),
		SMTPUser:      v.GetString("SMTP_USER"),
		SMTPPassword:  v.GetString("SMTP_PASS"),
		From:          v.GetString("SMTP_FROM"),
		Recipients:    splitAndTrim(v.GetString("NOTIFY_RECIPIENTS")),
		SkipTLSVerify: v.GetBool("SMTP_SKIP_TLS_VERIFY"),
		Workers:       v.GetInt("NOTIFY_WORKERS"),
		MaxRetries:    v.GetInt("NOTIFY_MAX_RETRIES"),
		RetryDelay:    parseDuration(v.GetString("NOTIFY_RETRY_DELAY"), 5*time.Second),
	}

	maxImport := v.GetInt64("REGISTRY_MAX_IMPORT_BYTES")
	if maxImport <= 0 {
		maxImport = 2 * 1024 * 1024
	}
	cfg.Registry = RegistryConfig{
		DefaultYear:    v.GetInt("REGISTRY_DEFAULT_YEAR"),
		MaxImportBytes: maxImport,
	}

	cfg.Export = ExportConfig{PDFFontPath: v.GetString("EXPORT_PDF_FONT")}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_ENABLED", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "complaint_desk")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "12h")
	v.SetDefault("JWT_ISSUER", "complaint-desk-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SEED_ADMIN_PASSWORD", "admin123")
	v.SetDefault("SEED_ADMIN_NAME", "System Administrator")
	v.SetDefault("SEED_STUDENT_REGISTRY", true)

	v.SetDefault("STATS_CACHE_TTL", "1m")

	v.SetDefault("ENABLE_NOTIFICATIONS", false)
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASS", "")
	v.SetDefault("SMTP_FROM", "")
	v.SetDefault("NOTIFY_RECIPIENTS", "")
	v.SetDefault("SMTP_SKIP_TLS_VERIFY", false)
	v.SetDefault("NOTIFY_WORKERS", 1)
	v.SetDefault("NOTIFY_MAX_RETRIES", 3)
	v.SetDefault("NOTIFY_RETRY_DELAY", "5s")

	v.SetDefault("REGISTRY_DEFAULT_YEAR", 2025)
	v.SetDefault("REGISTRY_MAX_IMPORT_BYTES", 2*1024*1024)

	v.SetDefault("EXPORT_PDF_FONT", "")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
