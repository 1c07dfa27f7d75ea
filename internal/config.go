package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security"`
	Classifier    ClassifierConfig    `mapstructure:"classifier"`
	Categories    CategoriesConfig    `mapstructure:"categories"`
	Session       SessionConfig       `mapstructure:"session"`
	Backend       BackendConfig       `mapstructure:"backend"`
	Feedback      FeedbackConfig      `mapstructure:"feedback"`
	Locale        LocaleConfig        `mapstructure:"locale"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	OpenAPIValidation bool          `mapstructure:"openapi_validation"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Source          string        `mapstructure:"source"`
}

type SecurityConfig struct {
	GatewaySecret      string        `mapstructure:"gateway_secret"`
	GatewayTokenTTL    time.Duration `mapstructure:"gateway_token_ttl"`
	BCryptCost         int           `mapstructure:"bcrypt_cost"`
	DisableGatewayAuth bool          `mapstructure:"disable_gateway_auth"`
}

type ClassifierConfig struct {
	Strategy  string        `mapstructure:"strategy"`
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Threshold float64       `mapstructure:"threshold"`
}

type CategoriesConfig struct {
	RulesFile string   `mapstructure:"rules_file"`
	Default   string   `mapstructure:"default"`
	Common    []string `mapstructure:"common"`
}

type SessionConfig struct {
	Store         string        `mapstructure:"store"`
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type BackendConfig struct {
	Mode      string        `mapstructure:"mode"`
	URL       string        `mapstructure:"url"`
	DeployKey string        `mapstructure:"deploy_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type FeedbackConfig struct {
	Async     bool `mapstructure:"async"`
	Workers   int  `mapstructure:"workers"`
	QueueSize int  `mapstructure:"queue_size"`
}

type LocaleConfig struct {
	Timezone string `mapstructure:"timezone"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const (
	StrategyRemote  = "remote"
	StrategyKeyword = "keyword"
	StrategyBayes   = "bayes"

	SessionStoreMemory   = "memory"
	SessionStoreDatabase = "database"

	BackendModeLocal  = "local"
	BackendModeRemote = "remote"
)

// ApplyDefaults fills every unset field with its documented default.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.ReadHeaderTimeout == 0 {
		c.Server.ReadHeaderTimeout = 5 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Security.BCryptCost == 0 {
		c.Security.BCryptCost = 12
	}
	if c.Security.GatewayTokenTTL == 0 {
		c.Security.GatewayTokenTTL = 24 * time.Hour
	}
	if c.Classifier.Strategy == "" {
		c.Classifier.Strategy = StrategyRemote
	}
	if c.Classifier.Timeout == 0 {
		c.Classifier.Timeout = 10 * time.Second
	}
	if c.Classifier.Threshold == 0 {
		c.Classifier.Threshold = 0.60
	}
	if c.Categories.Default == "" {
		c.Categories.Default = "Other"
	}
	if len(c.Categories.Common) == 0 {
		c.Categories.Common = []string{"Food & Drink", "Transport", "Shopping", "Utilities"}
	}
	if c.Session.Store == "" {
		c.Session.Store = SessionStoreMemory
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = 15 * time.Minute
	}
	if c.Session.SweepInterval == 0 {
		c.Session.SweepInterval = time.Minute
	}
	if c.Backend.Mode == "" {
		c.Backend.Mode = BackendModeLocal
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = 10 * time.Second
	}
	if c.Feedback.Workers == 0 {
		c.Feedback.Workers = 2
	}
	if c.Feedback.QueueSize == 0 {
		c.Feedback.QueueSize = 100
	}
	if c.Locale.Timezone == "" {
		c.Locale.Timezone = "UTC"
	}
	if c.Observability.Metrics.Path == "" {
		c.Observability.Metrics.Path = "/metrics"
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "text"
	}
}

// LoadConfigFromEnv builds the configuration for container deployments.
func LoadConfigFromEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("PORT", 8080),
			BaseURL:           getEnv("BASE_URL", ""),
			AllowedOrigins:    getEnv("ALLOWED_ORIGINS", ""),
			OpenAPIValidation: getEnvAsBool("OPENAPI_VALIDATION", true),
		},
		Database: DatabaseConfig{
			Source:          getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Security: SecurityConfig{
			GatewaySecret:      getEnv("GATEWAY_SECRET", ""),
			GatewayTokenTTL:    getEnvAsDuration("GATEWAY_TOKEN_TTL", 24*time.Hour),
			BCryptCost:         getEnvAsInt("BCRYPT_COST", 12),
			DisableGatewayAuth: getEnvAsBool("DISABLE_GATEWAY_AUTH", false),
		},
		Classifier: ClassifierConfig{
			Strategy:  getEnv("CLASSIFIER_STRATEGY", StrategyRemote),
			BaseURL:   getEnv("CLASSIFIER_API_URL", ""),
			Timeout:   getEnvAsDuration("CLASSIFIER_TIMEOUT", 10*time.Second),
			Threshold: getEnvAsFloat("CLASSIFIER_THRESHOLD", 0.60),
		},
		Categories: CategoriesConfig{
			RulesFile: getEnv("CATEGORY_RULES_FILE", ""),
			Default:   getEnv("DEFAULT_CATEGORY", "Other"),
		},
		Session: SessionConfig{
			Store:         getEnv("SESSION_STORE", SessionStoreMemory),
			TTL:           getEnvAsDuration("SESSION_TTL", 15*time.Minute),
			SweepInterval: getEnvAsDuration("SESSION_SWEEP_INTERVAL", time.Minute),
		},
		Backend: BackendConfig{
			Mode:      getEnv("BACKEND_MODE", BackendModeLocal),
			URL:       getEnv("CONVEX_URL", ""),
			DeployKey: getEnv("CONVEX_DEPLOY_KEY", ""),
			Timeout:   getEnvAsDuration("BACKEND_TIMEOUT", 10*time.Second),
		},
		Feedback: FeedbackConfig{
			Async:     getEnvAsBool("FEEDBACK_ASYNC", true),
			Workers:   getEnvAsInt("FEEDBACK_WORKERS", 2),
			QueueSize: getEnvAsInt("FEEDBACK_QUEUE_SIZE", 100),
		},
		Locale: LocaleConfig{
			Timezone: getEnv("TZ_NAME", "UTC"),
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: getEnvAsBool("METRICS_ENABLED", true),
				Path:    getEnv("METRICS_PATH", "/metrics"),
			},
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}
	if common := getEnv("COMMON_CATEGORIES", ""); common != "" {
		for _, c := range strings.Split(common, ",") {
			if c = strings.TrimSpace(c); c != "" {
				cfg.Categories.Common = append(cfg.Categories.Common, c)
			}
		}
	}
	cfg.ApplyDefaults()
	return cfg
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(c.NeedsDatabase()); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Classifier.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("classifier config: %v", err))
	}

	if err := c.Session.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("session config: %v", err))
	}

	if err := c.Backend.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("backend config: %v", err))
	}

	if _, err := c.Locale.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("locale config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

// NeedsDatabase reports whether any configured component is backed by SQL.
func (c *Config) NeedsDatabase() bool {
	return c.Backend.Mode == BackendModeLocal || c.Session.Store == SessionStoreDatabase
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate(required bool) error {
	if required && c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *SecurityConfig) Validate() error {
	if !c.DisableGatewayAuth && len(c.GatewaySecret) < 32 {
		return errors.New("gateway secret must be at least 32 characters")
	}
	if c.BCryptCost < 10 || c.BCryptCost > 15 {
		return errors.New("bcrypt_cost must be between 10 and 15")
	}
	return nil
}

func (c *ClassifierConfig) Validate() error {
	switch c.Strategy {
	case StrategyRemote:
		if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
			return fmt.Errorf("invalid base_url %q: %w", c.BaseURL, err)
		}
	case StrategyKeyword, StrategyBayes:
	default:
		return fmt.Errorf("unknown strategy %q", c.Strategy)
	}
	if c.Threshold <= 0 || c.Threshold > 1 {
		return errors.New("threshold must be in (0, 1]")
	}
	return nil
}

func (c *SessionConfig) Validate() error {
	if c.Store != SessionStoreMemory && c.Store != SessionStoreDatabase {
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.TTL <= 0 {
		return errors.New("ttl must be positive")
	}
	return nil
}

func (c *BackendConfig) Validate() error {
	switch c.Mode {
	case BackendModeLocal:
	case BackendModeRemote:
		if _, err := url.ParseRequestURI(c.URL); err != nil {
			return fmt.Errorf("invalid url %q: %w", c.URL, err)
		}
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	return nil
}

func (c *LocaleConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}
