package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	OutputDir string

	SaberisBaseURL      string
	SaberisAuthToken    string
	SaberisTokenFile    string
	SaberisRateLimitRPS int
	SaberisTimeoutMs    int

	JobberClientID     string
	JobberClientSecret string
	JobberRedirectURI  string
	JobberScopes       string
	JobberTokenFile    string
	JobberAPIVersion   string

	SheetsCredentialsFile string
	PricingSpreadsheetID  string
	PricingSheetName      string
	PricingCacheMaxAgeSec int

	ListenerIntervalSec int
	ListenerIngestBatch int
	ListenerAutoPreview bool
	ExportKeepCount     int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		SaberisBaseURL:      getEnv("SABERIS_BASE_URL", "https://connect.saberis.com:9000"),
		SaberisAuthToken:    getEnv("SABERIS_AUTH_TOKEN", ""),
		SaberisTokenFile:    getEnv("SABERIS_TOKEN_FILE", filepath.Join(cwd, "data", "saberis_token.json")),
		SaberisRateLimitRPS: getEnvInt("SABERIS_RATE_LIMIT_RPS", 5),
		SaberisTimeoutMs:    getEnvInt("SABERIS_TIMEOUT_MS", 30000),

		JobberClientID:     getEnv("JOBBER_CLIENT_ID", ""),
		JobberClientSecret: getEnv("JOBBER_CLIENT_SECRET", ""),
		JobberRedirectURI:  getEnv("JOBBER_REDIRECT_URI", "http://localhost:5000/jobber/callback"),
		JobberScopes:       getEnv("JOBBER_SCOPES", "clients.read,quotes.write"),
		JobberTokenFile:    getEnv("JOBBER_TOKEN_FILE", filepath.Join(cwd, "data", "jobber_tokens.json")),
		JobberAPIVersion:   getEnv("JOBBER_API_VERSION", "2025-01-20"),

		SheetsCredentialsFile: getEnv("SHEETS_CREDENTIALS_FILE", filepath.Join(cwd, "credentials.json")),
		PricingSpreadsheetID:  getEnv("PRICING_SPREADSHEET_ID", ""),
		PricingSheetName:      getEnv("PRICING_SHEET_NAME", "CatalogData"),
		PricingCacheMaxAgeSec: getEnvInt("PRICING_CACHE_MAX_AGE_SEC", 90),

		ListenerIntervalSec: getEnvInt("LISTENER_INTERVAL_SEC", 60),
		ListenerIngestBatch: getEnvInt("LISTENER_INGEST_BATCH", 20),
		ListenerAutoPreview: getEnvBool("LISTENER_AUTO_PREVIEW", true),
		ExportKeepCount:     getEnvInt("EXPORT_KEEP_COUNT", 3),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
