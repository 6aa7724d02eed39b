package config

import (
	"errors"
	"fmt"
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

// Verification modes select who checks a presented diploma.
const (
	VerificationModeRemote   = "remote"
	VerificationModeRegistry = "registry"
)

// Bulk strategies select how a CSV batch reaches the authority.
const (
	BulkStrategyPerRow = "per_row"
	BulkStrategyRemote = "remote"
)

// Session store backends.
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Authority AuthorityConfig
	Session   SessionConfig
	Bulk      BulkConfig
	Share     ShareConfig
	Audit     AuditConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Log       LogConfig
	Metrics   MetricsConfig
}

// AuthorityConfig points the gateway at the external issuing/verification service.
type AuthorityConfig struct {
	BaseURL          string
	Timeout          time.Duration
	AuthScheme       string
	VerificationMode string
	Paths            AuthorityPaths
}

// AuthorityPaths lists the endpoint paths of the authority API.
type AuthorityPaths struct {
	Login     string
	List      string
	Diploma   string
	Issue     string
	IssueBulk string
	Verify    string
	Revoke    string
	PDF       string
}

// SessionConfig configures gateway sessions handed to the browser.
type SessionConfig struct {
	Secret     string
	TTL        time.Duration
	Store      string
	CookieName string
	Issuer     string
}

// BulkConfig tunes CSV batch issuance and its downloadable reports.
type BulkConfig struct {
	Strategy        string
	MaxFileSize     int64
	ReportsDir      string
	ReportsSecret   string
	ReportsTTL      time.Duration
	CleanupInterval time.Duration
}

// ShareConfig configures public share links for verification files.
type ShareConfig struct {
	Secret        string
	TTL           time.Duration
	PublicBaseURL string
}

// AuditConfig toggles the persistent audit trail.
type AuditConfig struct {
	Enabled bool
	Workers int
	Retries int
}

type DatabaseConfig struct {
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
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

type MetricsConfig struct {
	Enabled bool
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

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Authority = AuthorityConfig{
		BaseURL:          strings.TrimRight(v.GetString("AUTHORITY_BASE_URL"), "/"),
		Timeout:          parseDuration(v.GetString("AUTHORITY_TIMEOUT"), 5*time.Second),
		AuthScheme:       parseAuthScheme(v.GetString("AUTHORITY_AUTH_SCHEME")),
		VerificationMode: strings.ToLower(v.GetString("VERIFICATION_MODE")),
		Paths: AuthorityPaths{
			Login:     v.GetString("AUTHORITY_LOGIN_PATH"),
			List:      v.GetString("AUTHORITY_LIST_PATH"),
			Diploma:   v.GetString("AUTHORITY_DIPLOMA_PATH"),
			Issue:     v.GetString("AUTHORITY_ISSUE_PATH"),
			IssueBulk: v.GetString("AUTHORITY_ISSUE_BULK_PATH"),
			Verify:    v.GetString("AUTHORITY_VERIFY_PATH"),
			Revoke:    v.GetString("AUTHORITY_REVOKE_PATH"),
			PDF:       v.GetString("AUTHORITY_PDF_PATH"),
		},
	}

	cfg.Session = SessionConfig{
		Secret:     v.GetString("SESSION_SECRET"),
		TTL:        parseDuration(v.GetString("SESSION_TTL"), 8*time.Hour),
		Store:      strings.ToLower(v.GetString("SESSION_STORE")),
		CookieName: v.GetString("SESSION_COOKIE"),
		Issuer:     v.GetString("SESSION_ISSUER"),
	}

	maxBulkSize := v.GetInt64("BULK_MAX_FILE_SIZE")
	if maxBulkSize <= 0 {
		maxBulkSize = 2 * 1024 * 1024
	}
	cfg.Bulk = BulkConfig{
		Strategy:        strings.ToLower(v.GetString("BULK_STRATEGY")),
		MaxFileSize:     maxBulkSize,
		ReportsDir:      v.GetString("BULK_REPORTS_DIR"),
		ReportsSecret:   v.GetString("BULK_REPORTS_SECRET"),
		ReportsTTL:      parseDuration(v.GetString("BULK_REPORTS_TTL"), 24*time.Hour),
		CleanupInterval: parseDuration(v.GetString("BULK_REPORTS_CLEANUP_INTERVAL"), time.Hour),
	}

	cfg.Share = ShareConfig{
		Secret:        v.GetString("SHARE_SECRET"),
		TTL:           parseDuration(v.GetString("SHARE_TTL"), 7*24*time.Hour),
		PublicBaseURL: strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
	}

	cfg.Audit = AuditConfig{
		Enabled: v.GetBool("AUDIT_ENABLED"),
		Workers: v.GetInt("AUDIT_WORKERS"),
		Retries: v.GetInt("AUDIT_RETRIES"),
	}

	cfg.Database = DatabaseConfig{
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
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Authority.VerificationMode {
	case VerificationModeRemote, VerificationModeRegistry:
	default:
		return errors.New("VERIFICATION_MODE must be remote or registry")
	}
	switch c.Bulk.Strategy {
	case BulkStrategyPerRow, BulkStrategyRemote:
	default:
		return errors.New("BULK_STRATEGY must be per_row or remote")
	}
	switch c.Session.Store {
	case SessionStoreMemory, SessionStoreRedis:
	default:
		return errors.New("SESSION_STORE must be memory or redis")
	}
	if c.Env == EnvProduction {
		secrets := []struct{ key, value string }{
			{"SESSION_SECRET", c.Session.Secret},
			{"SHARE_SECRET", c.Share.Secret},
			{"BULK_REPORTS_SECRET", c.Bulk.ReportsSecret},
		}
		for _, s := range secrets {
			if s.value == "" || s.value == devSecrets[s.key] {
				return fmt.Errorf("%s must be set in production", s.key)
			}
		}
	}
	return nil
}

// devSecrets are the signing keys used when nothing is configured.
var devSecrets = map[string]string{
	"SESSION_SECRET":      "dev_session_secret",
	"SHARE_SECRET":        "dev_share_secret",
	"BULK_REPORTS_SECRET": "dev_bulk_reports_secret",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("AUTHORITY_BASE_URL", "http://localhost:5000")
	v.SetDefault("AUTHORITY_TIMEOUT", "5s")
	v.SetDefault("AUTHORITY_AUTH_SCHEME", "Bearer")
	v.SetDefault("VERIFICATION_MODE", VerificationModeRemote)
	v.SetDefault("AUTHORITY_LOGIN_PATH", "/login")
	v.SetDefault("AUTHORITY_LIST_PATH", "/list")
	v.SetDefault("AUTHORITY_DIPLOMA_PATH", "/diploma")
	v.SetDefault("AUTHORITY_ISSUE_PATH", "/issue")
	v.SetDefault("AUTHORITY_ISSUE_BULK_PATH", "/issue_bulk")
	v.SetDefault("AUTHORITY_VERIFY_PATH", "/verify")
	v.SetDefault("AUTHORITY_REVOKE_PATH", "/revoke")
	v.SetDefault("AUTHORITY_PDF_PATH", "/download_pdf")

	v.SetDefault("SESSION_SECRET", devSecrets["SESSION_SECRET"])
	v.SetDefault("SESSION_TTL", "8h")
	v.SetDefault("SESSION_STORE", SessionStoreMemory)
	v.SetDefault("SESSION_COOKIE", "portal_session")
	v.SetDefault("SESSION_ISSUER", "diploma-portal")

	v.SetDefault("BULK_STRATEGY", BulkStrategyPerRow)
	v.SetDefault("BULK_MAX_FILE_SIZE", 2*1024*1024)
	v.SetDefault("BULK_REPORTS_DIR", "./bulk-reports")
	v.SetDefault("BULK_REPORTS_SECRET", devSecrets["BULK_REPORTS_SECRET"])
	v.SetDefault("BULK_REPORTS_TTL", "24h")
	v.SetDefault("BULK_REPORTS_CLEANUP_INTERVAL", "1h")

	v.SetDefault("SHARE_SECRET", devSecrets["SHARE_SECRET"])
	v.SetDefault("SHARE_TTL", "168h")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")

	v.SetDefault("AUDIT_ENABLED", false)
	v.SetDefault("AUDIT_WORKERS", 1)
	v.SetDefault("AUDIT_RETRIES", 3)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "diploma_portal")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 5)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("ENABLE_METRICS", true)
}

// parseAuthScheme maps "none" to an empty scheme so the raw token is sent.
func parseAuthScheme(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "none") {
		return ""
	}
	return raw
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
