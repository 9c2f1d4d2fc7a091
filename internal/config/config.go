package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	S3         S3Config
	Log        LogConfig
	CORS       CORSConfig
	Queue      QueueConfig
	DocAI      DocAIConfig
	Resolver   ResolverConfig
	Extraction ExtractionConfig
	Rules      RulesConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds object storage settings for PDF blobs and JSON artifacts.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// QueueConfig holds processing queue worker settings.
type QueueConfig struct {
	PollIntervalSecs int `mapstructure:"poll_interval_secs"`
	MaxRetries       int `mapstructure:"max_retries"`
	Concurrency      int `mapstructure:"concurrency"`
}

// DocAIConfig holds document analysis provider settings. Provider "layout"
// calls the remote layout-analysis service; "pdftext" extracts text locally
// from digital PDFs.
type DocAIConfig struct {
	Provider    string `mapstructure:"provider"`
	Endpoint    string `mapstructure:"endpoint"`
	APIKey      string `mapstructure:"api_key"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
}

// ResolverProviderConfig holds settings for a single LLM resolver provider.
type ResolverProviderConfig struct {
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	MaxRetries   int    `mapstructure:"max_retries"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`
}

// ResolverConfig holds LLM field resolver settings with fallback support.
type ResolverConfig struct {
	Primary   ResolverProviderConfig `mapstructure:"primary"`
	Secondary ResolverProviderConfig `mapstructure:"secondary"`
}

// SecondaryConfig returns the secondary resolver provider config, or nil if not configured.
func (r *ResolverConfig) SecondaryConfig() *ResolverProviderConfig {
	if r.Secondary.Provider != "" {
		return &r.Secondary
	}
	return nil
}

// ExtractionConfig holds confidence ceilings per extraction tier plus the
// acceptance, pass, and gating thresholds.
type ExtractionConfig struct {
	StructuredCeiling float64 `mapstructure:"structured_ceiling"`
	LabeledCeiling    float64 `mapstructure:"labeled_ceiling"`
	PatternCeiling    float64 `mapstructure:"pattern_ceiling"`
	HeuristicCeiling  float64 `mapstructure:"heuristic_ceiling"`
	LLMCeiling        float64 `mapstructure:"llm_ceiling"`
	MinAcceptance     float64 `mapstructure:"min_acceptance"`
	PassThreshold     float64 `mapstructure:"pass_threshold"`
	ContactFloor      float64 `mapstructure:"contact_floor"`
	GateMinTextUnits  int     `mapstructure:"gate_min_text_units"`
}

// RulesConfig holds rule catalog settings.
type RulesConfig struct {
	CatalogPath string `mapstructure:"catalog_path"`
}

// Load reads configuration from environment variables with the PLANPROOF_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PLANPROOF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "planproof")
	v.SetDefault("db.password", "planproof_secret")
	v.SetDefault("db.name", "planproof_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// S3 defaults
	v.SetDefault("s3.region", "eu-west-2")
	v.SetDefault("s3.bucket", "planproof-documents")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.max_file_size_mb", 50)
	v.SetDefault("s3.presign_expiry", 3600)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Queue defaults
	v.SetDefault("queue.poll_interval_secs", 10)
	v.SetDefault("queue.max_retries", 3)
	v.SetDefault("queue.concurrency", 4)

	// Document analysis defaults
	v.SetDefault("docai.provider", "pdftext")
	v.SetDefault("docai.endpoint", "")
	v.SetDefault("docai.api_key", "")
	v.SetDefault("docai.timeout_secs", 120)

	// Resolver defaults
	v.SetDefault("resolver.primary.provider", "claude")
	v.SetDefault("resolver.primary.api_key", "")
	v.SetDefault("resolver.primary.default_model", "claude-sonnet-4-20250514")
	v.SetDefault("resolver.primary.max_retries", 2)
	v.SetDefault("resolver.primary.timeout_secs", 60)
	v.SetDefault("resolver.secondary.provider", "")
	v.SetDefault("resolver.secondary.api_key", "")
	v.SetDefault("resolver.secondary.default_model", "")
	v.SetDefault("resolver.secondary.max_retries", 2)
	v.SetDefault("resolver.secondary.timeout_secs", 60)

	// Extraction defaults
	v.SetDefault("extraction.structured_ceiling", 0.95)
	v.SetDefault("extraction.labeled_ceiling", 0.85)
	v.SetDefault("extraction.pattern_ceiling", 0.90)
	v.SetDefault("extraction.heuristic_ceiling", 0.60)
	v.SetDefault("extraction.llm_ceiling", 0.75)
	v.SetDefault("extraction.min_acceptance", 0.30)
	v.SetDefault("extraction.pass_threshold", 0.70)
	v.SetDefault("extraction.contact_floor", 0.10)
	v.SetDefault("extraction.gate_min_text_units", 5)

	// Rules defaults
	v.SetDefault("rules.catalog_path", "rules/catalog.yaml")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                     "PLANPROOF_SERVER_PORT",
		"server.read_timeout":             "PLANPROOF_SERVER_READ_TIMEOUT",
		"server.write_timeout":            "PLANPROOF_SERVER_WRITE_TIMEOUT",
		"server.environment":              "PLANPROOF_SERVER_ENVIRONMENT",
		"db.host":                         "PLANPROOF_DB_HOST",
		"db.port":                         "PLANPROOF_DB_PORT",
		"db.user":                         "PLANPROOF_DB_USER",
		"db.password":                     "PLANPROOF_DB_PASSWORD",
		"db.name":                         "PLANPROOF_DB_NAME",
		"db.sslmode":                      "PLANPROOF_DB_SSLMODE",
		"db.max_open":                     "PLANPROOF_DB_MAX_OPEN",
		"db.max_idle":                     "PLANPROOF_DB_MAX_IDLE",
		"s3.region":                       "PLANPROOF_S3_REGION",
		"s3.bucket":                       "PLANPROOF_S3_BUCKET",
		"s3.endpoint":                     "PLANPROOF_S3_ENDPOINT",
		"s3.access_key":                   "PLANPROOF_S3_ACCESS_KEY",
		"s3.secret_key":                   "PLANPROOF_S3_SECRET_KEY",
		"s3.max_file_size_mb":             "PLANPROOF_S3_MAX_FILE_SIZE_MB",
		"s3.presign_expiry":               "PLANPROOF_S3_PRESIGN_EXPIRY",
		"log.level":                       "PLANPROOF_LOG_LEVEL",
		"log.format":                      "PLANPROOF_LOG_FORMAT",
		"cors.allowed_origins":            "PLANPROOF_CORS_ALLOWED_ORIGINS",
		"queue.poll_interval_secs":        "PLANPROOF_QUEUE_POLL_INTERVAL_SECS",
		"queue.max_retries":               "PLANPROOF_QUEUE_MAX_RETRIES",
		"queue.concurrency":               "PLANPROOF_QUEUE_CONCURRENCY",
		"docai.provider":                  "PLANPROOF_DOCAI_PROVIDER",
		"docai.endpoint":                  "PLANPROOF_DOCAI_ENDPOINT",
		"docai.api_key":                   "PLANPROOF_DOCAI_API_KEY",
		"docai.timeout_secs":              "PLANPROOF_DOCAI_TIMEOUT_SECS",
		"resolver.primary.provider":       "PLANPROOF_RESOLVER_PRIMARY_PROVIDER",
		"resolver.primary.api_key":        "PLANPROOF_RESOLVER_PRIMARY_API_KEY",
		"resolver.primary.default_model":  "PLANPROOF_RESOLVER_PRIMARY_DEFAULT_MODEL",
		"resolver.primary.max_retries":    "PLANPROOF_RESOLVER_PRIMARY_MAX_RETRIES",
		"resolver.primary.timeout_secs":   "PLANPROOF_RESOLVER_PRIMARY_TIMEOUT_SECS",
		"resolver.secondary.provider":     "PLANPROOF_RESOLVER_SECONDARY_PROVIDER",
		"resolver.secondary.api_key":      "PLANPROOF_RESOLVER_SECONDARY_API_KEY",
		"resolver.secondary.default_model": "PLANPROOF_RESOLVER_SECONDARY_DEFAULT_MODEL",
		"resolver.secondary.max_retries":  "PLANPROOF_RESOLVER_SECONDARY_MAX_RETRIES",
		"resolver.secondary.timeout_secs": "PLANPROOF_RESOLVER_SECONDARY_TIMEOUT_SECS",
		"extraction.structured_ceiling":   "PLANPROOF_EXTRACTION_STRUCTURED_CEILING",
		"extraction.labeled_ceiling":      "PLANPROOF_EXTRACTION_LABELED_CEILING",
		"extraction.pattern_ceiling":      "PLANPROOF_EXTRACTION_PATTERN_CEILING",
		"extraction.heuristic_ceiling":    "PLANPROOF_EXTRACTION_HEURISTIC_CEILING",
		"extraction.llm_ceiling":          "PLANPROOF_EXTRACTION_LLM_CEILING",
		"extraction.min_acceptance":       "PLANPROOF_EXTRACTION_MIN_ACCEPTANCE",
		"extraction.pass_threshold":       "PLANPROOF_EXTRACTION_PASS_THRESHOLD",
		"extraction.contact_floor":        "PLANPROOF_EXTRACTION_CONTACT_FLOOR",
		"extraction.gate_min_text_units":  "PLANPROOF_EXTRACTION_GATE_MIN_TEXT_UNITS",
		"rules.catalog_path":              "PLANPROOF_RULES_CATALOG_PATH",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if PLANPROOF_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("PLANPROOF_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		MaxFileSizeMB: v.GetInt64("s3.max_file_size_mb"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}

	cfg.Queue = QueueConfig{
		PollIntervalSecs: v.GetInt("queue.poll_interval_secs"),
		MaxRetries:       v.GetInt("queue.max_retries"),
		Concurrency:      v.GetInt("queue.concurrency"),
	}

	cfg.DocAI = DocAIConfig{
		Provider:    v.GetString("docai.provider"),
		Endpoint:    v.GetString("docai.endpoint"),
		APIKey:      v.GetString("docai.api_key"),
		TimeoutSecs: v.GetInt("docai.timeout_secs"),
	}

	cfg.Resolver = ResolverConfig{
		Primary: ResolverProviderConfig{
			Provider:     v.GetString("resolver.primary.provider"),
			APIKey:       v.GetString("resolver.primary.api_key"),
			DefaultModel: v.GetString("resolver.primary.default_model"),
			MaxRetries:   v.GetInt("resolver.primary.max_retries"),
			TimeoutSecs:  v.GetInt("resolver.primary.timeout_secs"),
		},
		Secondary: ResolverProviderConfig{
			Provider:     v.GetString("resolver.secondary.provider"),
			APIKey:       v.GetString("resolver.secondary.api_key"),
			DefaultModel: v.GetString("resolver.secondary.default_model"),
			MaxRetries:   v.GetInt("resolver.secondary.max_retries"),
			TimeoutSecs:  v.GetInt("resolver.secondary.timeout_secs"),
		},
	}

	cfg.Extraction = ExtractionConfig{
		StructuredCeiling: v.GetFloat64("extraction.structured_ceiling"),
		LabeledCeiling:    v.GetFloat64("extraction.labeled_ceiling"),
		PatternCeiling:    v.GetFloat64("extraction.pattern_ceiling"),
		HeuristicCeiling:  v.GetFloat64("extraction.heuristic_ceiling"),
		LLMCeiling:        v.GetFloat64("extraction.llm_ceiling"),
		MinAcceptance:     v.GetFloat64("extraction.min_acceptance"),
		PassThreshold:     v.GetFloat64("extraction.pass_threshold"),
		ContactFloor:      v.GetFloat64("extraction.contact_floor"),
		GateMinTextUnits:  v.GetInt("extraction.gate_min_text_units"),
	}

	cfg.Rules = RulesConfig{
		CatalogPath: v.GetString("rules.catalog_path"),
	}

	return cfg, nil
}

// TierCeiling returns the configured confidence ceiling for a tier name.
// Unknown tiers get the heuristic ceiling.
func (e *ExtractionConfig) TierCeiling(tier string) float64 {
	switch tier {
	case "structured":
		return e.StructuredCeiling
	case "labeled":
		return e.LabeledCeiling
	case "pattern":
		return e.PatternCeiling
	case "heuristic":
		return e.HeuristicCeiling
	case "llm":
		return e.LLMCeiling
	default:
		return e.HeuristicCeiling
	}
}
