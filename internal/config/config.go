// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// AuthConfig holds authentication and identity provider configuration.
type AuthConfig struct {
	// OIDC / JWKS configuration
	IssuerURL      string        // OIDC issuer URL
	JWKSURL        string        // Override JWKS URL (if no .well-known discovery)
	JWTSecret      string        // HS256 shared secret for local/dev JWT auth
	Audience       string        // Required JWT audience claim
	AllowedIssuers []string      // Accepted issuers (defaults to [IssuerURL])
	JWKSCacheTTL   time.Duration // JWKS cache duration (default: 1h)

	// API key settings
	APIKeyEnabled bool   // Enable API key auth (default: true)
	APIKeyHeader  string // Header name for API keys (default: X-API-Key)

	NameClaim string // JWT claim for principal name (default: "email")

	// AdminPrincipals are principal names granted admin regardless of token
	// claims. Matched case-insensitively.
	AdminPrincipals []string
}

// defaultJWTSecret is the insecure development fallback, refused in production.
const defaultJWTSecret = "dev-secret-change-in-production"

// OIDCEnabled returns true when an external identity provider is configured.
func (a *AuthConfig) OIDCEnabled() bool {
	return a.IssuerURL != "" || a.JWKSURL != ""
}

// Config holds the configuration for the ETL service: metastore, landing-zone
// credentials, warehouse, watermark backend, messaging, and the HTTP API.
type Config struct {
	// AWS credentials are shared by the S3 landing backend, the DynamoDB
	// watermark store, and the SNS/SQS publishers. Optional; nil when not
	// configured; ENDPOINT supports localstack/minio style overrides.
	AWSKeyID    *string
	AWSSecret   *string
	AWSEndpoint *string
	AWSRegion   *string

	// GCS landing backend (optional).
	GCSCredentialsFile *string

	// Azure Blob landing backend (optional).
	AzureAccountName *string
	AzureAccountKey  *string

	// Warehouse destination. A go-sql-driver/mysql DSN, e.g.
	// user:pass@tcp(host:3306)/dbname?parseTime=true
	WarehouseDSN string

	// Watermark backend: "sqlite" (default, stored in the metastore) or
	// "dynamodb" (requires AWS credentials and WatermarkTable).
	WatermarkBackend string
	WatermarkTable   string // DynamoDB table name (default "driftline_watermarks")

	// Messaging (optional).
	SNSTopicARN     string // success/failure + null-row notifications
	SQSQueueURL     string // FIFO handoff queue for downstream consumers
	NotifyRulesPath string // YAML routing rules for the notifier

	MetaDBPath        string // path to SQLite metastore file
	DatasetsDir       string // declarative dataset definitions applied at startup
	ListenAddr        string // HTTP listen address (default ":8080")
	TLSCertFile       string // TLS certificate file path (optional)
	TLSKeyFile        string // TLS private key file path (optional)
	AllowInsecureHTTP bool   // allow non-TLS listener in production (for trusted TLS termination)
	LogLevel          string // log level: debug, info, warn, error (default "info")
	Env               string // environment: "development" (default) or "production"

	// Scan behaviour.
	ScanSchedule    string // cron expression for the global landing scan (default "@every 5m")
	ScanConcurrency int    // datasets scanned in parallel (default 4)
	InferSampleRows int    // rows sampled for type inference (default 200)
	MaxFileSize     int64  // per-file size cap in bytes (default 512 MiB)

	// Transform hook limits.
	HookMaxSteps int64         // Starlark execution step cap (default 500000)
	HookTimeout  time.Duration // wall-clock cap per row batch (default 10s)

	// Rate limiting
	RateLimitRPS   float64 // sustained requests per second (default 100)
	RateLimitBurst int     // burst capacity (default 200)

	// CORS
	CORSAllowedOrigins []string // allowed origins for CORS (default: ["*"])

	// Auth holds identity provider and authentication configuration.
	Auth AuthConfig

	// Feature controls.
	FeatureUI       bool // serve the ops UI under /ui
	FeatureProfiler bool // enable the DuckDB file profiler

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// HasAWSConfig returns true if all required AWS credential fields are set.
func (c *Config) HasAWSConfig() bool {
	return c.AWSKeyID != nil && c.AWSSecret != nil && c.AWSRegion != nil
}

// HasWarehouse returns true when a MySQL destination is configured.
func (c *Config) HasWarehouse() bool { return c.WarehouseDSN != "" }

// LoadFromEnv loads configuration from environment variables.
// External systems (AWS, GCS, Azure, MySQL, SNS, SQS) are optional; the
// service starts degraded without them and records a warning per gap.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		WarehouseDSN:     os.Getenv("WAREHOUSE_DSN"),
		WatermarkBackend: os.Getenv("WATERMARK_BACKEND"),
		WatermarkTable:   os.Getenv("WATERMARK_TABLE"),
		SNSTopicARN:      os.Getenv("SNS_TOPIC_ARN"),
		SQSQueueURL:      os.Getenv("SQS_QUEUE_URL"),
		NotifyRulesPath:  os.Getenv("NOTIFY_RULES_PATH"),
		MetaDBPath:       os.Getenv("META_DB_PATH"),
		DatasetsDir:      os.Getenv("DATASETS_DIR"),
		ListenAddr:       os.Getenv("LISTEN_ADDR"),
		TLSCertFile:      os.Getenv("TLS_CERT_FILE"),
		TLSKeyFile:       os.Getenv("TLS_KEY_FILE"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		Env:              os.Getenv("ENV"),
		ScanSchedule:     os.Getenv("SCAN_SCHEDULE"),
		FeatureUI:        parseBoolEnvDefault("FEATURE_UI", true),
		FeatureProfiler:  parseBoolEnvDefault("FEATURE_PROFILER", true),
	}

	// AWS credential fields are optional; only set if present
	if v := os.Getenv("KEY_ID"); v != "" {
		cfg.AWSKeyID = &v
	}
	if v := os.Getenv("SECRET"); v != "" {
		cfg.AWSSecret = &v
	}
	if v := os.Getenv("ENDPOINT"); v != "" {
		cfg.AWSEndpoint = &v
	}
	if v := os.Getenv("REGION"); v != "" {
		cfg.AWSRegion = &v
	}
	if v := os.Getenv("GCS_CREDENTIALS_FILE"); v != "" {
		cfg.GCSCredentialsFile = &v
	}
	if v := os.Getenv("AZURE_ACCOUNT_NAME"); v != "" {
		cfg.AzureAccountName = &v
	}
	if v := os.Getenv("AZURE_ACCOUNT_KEY"); v != "" {
		cfg.AzureAccountKey = &v
	}

	// Numeric knobs
	if v := os.Getenv("SCAN_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ScanConcurrency = n
		}
	}
	if v := os.Getenv("INFER_SAMPLE_ROWS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.InferSampleRows = n
		}
	}
	if v := os.Getenv("MAX_FILE_SIZE_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxFileSize = n
		}
	}
	if v := os.Getenv("HOOK_MAX_STEPS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.HookMaxSteps = n
		}
	}
	if v := os.Getenv("HOOK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HookTimeout = d
		}
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}

	// CORS
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = origins
	}
	if strings.EqualFold(os.Getenv("ALLOW_INSECURE_HTTP"), "true") {
		cfg.AllowInsecureHTTP = true
	}

	// Auth config
	cfg.Auth = AuthConfig{
		IssuerURL:     os.Getenv("AUTH_ISSUER_URL"),
		JWKSURL:       os.Getenv("AUTH_JWKS_URL"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		Audience:      os.Getenv("AUTH_AUDIENCE"),
		APIKeyEnabled: true,
		APIKeyHeader:  os.Getenv("AUTH_API_KEY_HEADER"),
		NameClaim:     os.Getenv("AUTH_NAME_CLAIM"),
	}
	if v := os.Getenv("AUTH_ALLOWED_ISSUERS"); v != "" {
		cfg.Auth.AllowedIssuers = strings.Split(v, ",")
	}
	if v := os.Getenv("AUTH_ADMIN_PRINCIPALS"); v != "" {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.Auth.AdminPrincipals = append(cfg.Auth.AdminPrincipals, p)
			}
		}
	}
	if v := os.Getenv("AUTH_JWKS_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Auth.JWKSCacheTTL = d
		}
	}
	if os.Getenv("AUTH_API_KEY_ENABLED") == "false" {
		cfg.Auth.APIKeyEnabled = false
	}

	// Auth config defaults
	if cfg.Auth.JWKSCacheTTL == 0 {
		cfg.Auth.JWKSCacheTTL = time.Hour
	}
	if cfg.Auth.APIKeyHeader == "" {
		cfg.Auth.APIKeyHeader = "X-API-Key"
	}
	if cfg.Auth.NameClaim == "" {
		cfg.Auth.NameClaim = "email"
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = defaultJWTSecret
		cfg.Warnings = append(cfg.Warnings, "JWT_SECRET not set; using insecure default. Set JWT_SECRET in production!")
	}

	// Defaults
	if cfg.MetaDBPath == "" {
		cfg.MetaDBPath = "driftline_meta.sqlite"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.WatermarkBackend == "" {
		cfg.WatermarkBackend = "sqlite"
	}
	if cfg.WatermarkTable == "" {
		cfg.WatermarkTable = "driftline_watermarks"
	}
	if cfg.ScanSchedule == "" {
		cfg.ScanSchedule = "@every 5m"
	}
	if cfg.ScanConcurrency <= 0 {
		cfg.ScanConcurrency = 4
	}
	if cfg.InferSampleRows <= 0 {
		cfg.InferSampleRows = 200
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 512 << 20
	}
	if cfg.HookMaxSteps <= 0 {
		cfg.HookMaxSteps = 500000
	}
	if cfg.HookTimeout <= 0 {
		cfg.HookTimeout = 10 * time.Second
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 100
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 200
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	// Cross-field checks
	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		return nil, fmt.Errorf("both TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	switch cfg.WatermarkBackend {
	case "sqlite":
	case "dynamodb":
		if !cfg.HasAWSConfig() {
			return nil, fmt.Errorf("WATERMARK_BACKEND=dynamodb requires KEY_ID, SECRET and REGION")
		}
	default:
		return nil, fmt.Errorf("unsupported WATERMARK_BACKEND %q (use sqlite or dynamodb)", cfg.WatermarkBackend)
	}

	// Degraded-mode warnings
	if !cfg.HasWarehouse() {
		cfg.Warnings = append(cfg.Warnings, "WAREHOUSE_DSN not set; loads are disabled, scans report only")
	}
	if !cfg.HasAWSConfig() && cfg.GCSCredentialsFile == nil && cfg.AzureAccountName == nil {
		cfg.Warnings = append(cfg.Warnings, "no landing-zone credentials configured (KEY_ID/SECRET/REGION, GCS_CREDENTIALS_FILE or AZURE_ACCOUNT_NAME)")
	}
	if cfg.SNSTopicARN == "" {
		cfg.Warnings = append(cfg.Warnings, "SNS_TOPIC_ARN not set; notifications go to the log only")
	}

	// Production mode: insecure defaults are fatal errors.
	if cfg.IsProduction() {
		if !cfg.Auth.OIDCEnabled() && cfg.Auth.JWTSecret == defaultJWTSecret {
			return nil, fmt.Errorf("JWT_SECRET or OIDC must be configured in production (ENV=production)")
		}
		if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
			return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
		if cfg.TLSCertFile == "" && !cfg.AllowInsecureHTTP {
			return nil, fmt.Errorf("TLS_CERT_FILE/TLS_KEY_FILE must be set in production unless ALLOW_INSECURE_HTTP=true")
		}
	}

	return cfg, nil
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return defaultVal
	}
	if v == "0" || v == "false" || v == "no" || v == "off" {
		return false
	}
	if v == "1" || v == "true" || v == "yes" || v == "on" {
		return true
	}
	return defaultVal
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		value = stripQuotes(value)
		// Only set if not already in the environment (env vars take precedence)
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
