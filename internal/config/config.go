package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ballparklabs/diamondline/internal/platform/logging"
)

// Config stores runtime configuration for the pipeline service.
type Config struct {
	AppEnv                        string
	ServiceName                   string
	ServiceVersion                string
	HTTPAddr                      string
	DBURL                         string
	DBDisablePreparedBinary       bool
	ReadTimeout                   time.Duration
	WriteTimeout                  time.Duration
	PprofEnabled                  bool
	PprofAddr                     string
	UptraceEnabled                bool
	UptraceDSN                    string
	UptraceLogsEnabled            bool
	BetterStackEnabled            bool
	BetterStackEndpoint           string
	BetterStackToken              string
	BetterStackTimeout            time.Duration
	BetterStackMinLevel           logging.Level
	PyroscopeEnabled              bool
	PyroscopeServerAddress        string
	PyroscopeAppName              string
	PyroscopeAuthToken            string
	StatsAPIBaseURL               string
	StatsAPITimeout               time.Duration
	StatsAPIMaxRetries            int
	StatsAPIRetryBaseDelay        time.Duration
	StatsAPIRetryMaxDelay         time.Duration
	StatsAPICircuitEnabled        bool
	StatsAPICircuitFailureCount   int
	StatsAPICircuitOpenTimeout    time.Duration
	StatsAPICircuitHalfOpenMaxReq int
	ExtractionWorkers             int
	InternalJobToken              string
	AlertWebhookEnabled           bool
	AlertWebhookURL               string
	AlertWebhookToken             string
	AlertWebhookTimeout           time.Duration
	CleanupRetentionDays          int
	LogLevel                      logging.Level
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceDSN == "" {
		uptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}
	uptraceLogsEnabled, err := strconv.ParseBool(getEnv("UPTRACE_LOGS_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_LOGS_ENABLED: %w", err)
	}

	betterStackEnabled, err := strconv.ParseBool(getEnv("BETTERSTACK_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse BETTERSTACK_ENABLED: %w", err)
	}
	betterStackEndpoint := strings.TrimSpace(getEnv("BETTERSTACK_ENDPOINT", ""))
	if betterStackEnabled && betterStackEndpoint == "" {
		return Config{}, fmt.Errorf("BETTERSTACK_ENDPOINT is required when BETTERSTACK_ENABLED=true")
	}
	betterStackTimeout, err := time.ParseDuration(getEnv("BETTERSTACK_TIMEOUT", "3s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse BETTERSTACK_TIMEOUT: %w", err)
	}

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ""))
	if pprofEnabled && pprofAddr == "" {
		pprofAddr = ":6060"
	}

	serviceName := getEnv("APP_SERVICE_NAME", "diamondline-pipeline")

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeAppName := strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", ""))
	if pyroscopeAppName == "" {
		pyroscopeAppName = serviceName
	}

	statsTimeout, err := time.ParseDuration(getEnv("STATSAPI_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse STATSAPI_TIMEOUT: %w", err)
	}
	statsMaxRetries, err := getEnvAsInt("STATSAPI_MAX_RETRIES", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse STATSAPI_MAX_RETRIES: %w", err)
	}
	statsRetryBase, err := time.ParseDuration(getEnv("STATSAPI_RETRY_BASE_DELAY", "1s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse STATSAPI_RETRY_BASE_DELAY: %w", err)
	}
	statsRetryMax, err := time.ParseDuration(getEnv("STATSAPI_RETRY_MAX_DELAY", "60s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse STATSAPI_RETRY_MAX_DELAY: %w", err)
	}
	statsCircuitEnabled, err := strconv.ParseBool(getEnv("STATSAPI_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse STATSAPI_CIRCUIT_ENABLED: %w", err)
	}
	statsCircuitFailures, err := getEnvAsInt("STATSAPI_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse STATSAPI_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	statsCircuitOpenTimeout, err := time.ParseDuration(getEnv("STATSAPI_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse STATSAPI_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	statsCircuitHalfOpen, err := getEnvAsInt("STATSAPI_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse STATSAPI_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}

	extractionWorkers, err := getEnvAsInt("EXTRACTION_WORKERS", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse EXTRACTION_WORKERS: %w", err)
	}
	if extractionWorkers < 1 || extractionWorkers > 10 {
		return Config{}, fmt.Errorf("EXTRACTION_WORKERS must be between 1 and 10, got %d", extractionWorkers)
	}

	alertWebhookEnabled, err := strconv.ParseBool(getEnv("ALERT_WEBHOOK_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse ALERT_WEBHOOK_ENABLED: %w", err)
	}
	alertWebhookURL := strings.TrimSpace(getEnv("ALERT_WEBHOOK_URL", ""))
	if alertWebhookEnabled && alertWebhookURL == "" {
		return Config{}, fmt.Errorf("ALERT_WEBHOOK_URL is required when ALERT_WEBHOOK_ENABLED=true")
	}
	alertWebhookTimeout, err := time.ParseDuration(getEnv("ALERT_WEBHOOK_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse ALERT_WEBHOOK_TIMEOUT: %w", err)
	}

	cleanupRetentionDays, err := getEnvAsInt("CLEANUP_RETENTION_DAYS", 90)
	if err != nil {
		return Config{}, fmt.Errorf("parse CLEANUP_RETENTION_DAYS: %w", err)
	}
	if cleanupRetentionDays < 1 {
		return Config{}, fmt.Errorf("CLEANUP_RETENTION_DAYS must be at least 1, got %d", cleanupRetentionDays)
	}

	readTimeout, err := time.ParseDuration(getEnv("HTTP_READ_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse HTTP_READ_TIMEOUT: %w", err)
	}
	writeTimeout, err := time.ParseDuration(getEnv("HTTP_WRITE_TIMEOUT", "10m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse HTTP_WRITE_TIMEOUT: %w", err)
	}

	disablePreparedBinary, err := strconv.ParseBool(getEnv("DB_DISABLE_PREPARED_BINARY_RESULT", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_DISABLE_PREPARED_BINARY_RESULT: %w", err)
	}

	cfg := Config{
		AppEnv:                        appEnv,
		ServiceName:                   serviceName,
		ServiceVersion:                getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:                      getEnv("HTTP_ADDR", ":8080"),
		DBURL:                         getEnv("DB_URL", ""),
		DBDisablePreparedBinary:       disablePreparedBinary,
		ReadTimeout:                   readTimeout,
		WriteTimeout:                  writeTimeout,
		PprofEnabled:                  pprofEnabled,
		PprofAddr:                     pprofAddr,
		UptraceEnabled:                uptraceEnabled,
		UptraceDSN:                    uptraceDSN,
		UptraceLogsEnabled:            uptraceLogsEnabled,
		BetterStackEnabled:            betterStackEnabled,
		BetterStackEndpoint:           betterStackEndpoint,
		BetterStackToken:              getEnv("BETTERSTACK_TOKEN", ""),
		BetterStackTimeout:            betterStackTimeout,
		BetterStackMinLevel:           parseLogLevel(getEnv("BETTERSTACK_MIN_LEVEL", "info")),
		PyroscopeEnabled:              pyroscopeEnabled,
		PyroscopeServerAddress:        pyroscopeServerAddress,
		PyroscopeAppName:              pyroscopeAppName,
		PyroscopeAuthToken:            getEnv("PYROSCOPE_AUTH_TOKEN", ""),
		StatsAPIBaseURL:               getEnv("STATSAPI_BASE_URL", "https://statsapi.mlb.com/api/v1"),
		StatsAPITimeout:               statsTimeout,
		StatsAPIMaxRetries:            statsMaxRetries,
		StatsAPIRetryBaseDelay:        statsRetryBase,
		StatsAPIRetryMaxDelay:         statsRetryMax,
		StatsAPICircuitEnabled:        statsCircuitEnabled,
		StatsAPICircuitFailureCount:   statsCircuitFailures,
		StatsAPICircuitOpenTimeout:    statsCircuitOpenTimeout,
		StatsAPICircuitHalfOpenMaxReq: statsCircuitHalfOpen,
		ExtractionWorkers:             extractionWorkers,
		InternalJobToken:              strings.TrimSpace(getEnv("INTERNAL_JOB_TOKEN", "")),
		AlertWebhookEnabled:           alertWebhookEnabled,
		AlertWebhookURL:               alertWebhookURL,
		AlertWebhookToken:             getEnv("ALERT_WEBHOOK_TOKEN", ""),
		AlertWebhookTimeout:           alertWebhookTimeout,
		CleanupRetentionDays:          cleanupRetentionDays,
		LogLevel:                      parseLogLevel(getEnv("LOG_LEVEL", "info")),
	}

	return cfg, nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	return value, nil
}

// parseUptraceDSNFromOTLPHeaders extracts uptrace-dsn=... from the standard
// OTLP headers env var so deployments can configure either one.
func parseUptraceDSNFromOTLPHeaders(raw string) string {
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(key), "uptrace-dsn") {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func parseAppEnv(v string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case EnvDev:
		return EnvDev, nil
	case EnvStage:
		return EnvStage, nil
	case EnvProd:
		return EnvProd, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q; expected one of %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
