package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"procure/internal"
)

type Config struct {
	DBPath     string
	RawMailDir string
	OutputDir  string
	LogPath    string

	DefaultSheet       string
	ColumnsFile        string
	Columns            internal.ColumnProfile
	RegistrationPrefix string

	USDINRRate    float64
	USDINRRateMin float64
	USDINRRateMax float64

	FXAPIURL       string
	FXAPIToken     string
	FXTimeoutMs    int
	FXRateLimitRPS int

	ServerAddr     string
	UploadMaxBytes int

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string
	GmailQuery        string

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMarkSeen bool

	MailListenerProvider    string
	MailListenerLabel       string
	MailListenerIntervalSec int
	MailListenerFetchMax    int
	MailListenerImportBatch int
	MailListenerAutoExport  bool
}

// columnsFile is the on-disk shape of TRACKER_COLUMNS_FILE.
type columnsFile struct {
	Columns map[string]string `yaml:"columns"`
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:     getEnv("DB_PATH", filepath.Join(cwd, "data", "procure.db")),
		RawMailDir: getEnv("MAIL_RAW_DIR", filepath.Join(cwd, "data", "raw")),
		OutputDir:  getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		LogPath:    getEnv("LOG_PATH", ""),

		DefaultSheet:       getEnv("TRACKER_DEFAULT_SHEET", "PURCHASE_ORDER"),
		ColumnsFile:        getEnv("TRACKER_COLUMNS_FILE", ""),
		RegistrationPrefix: getEnv("REGISTRATION_PREFIX", "VT-"),

		USDINRRate:    getEnvFloat("USD_INR_RATE", 84.0),
		USDINRRateMin: getEnvFloat("USD_INR_RATE_MIN", 50.0),
		USDINRRateMax: getEnvFloat("USD_INR_RATE_MAX", 200.0),

		FXAPIURL:       getEnv("FX_API_URL", "https://open.er-api.com/v6/latest/USD"),
		FXAPIToken:     getEnv("FX_API_TOKEN", ""),
		FXTimeoutMs:    getEnvInt("FX_TIMEOUT_MS", 15000),
		FXRateLimitRPS: getEnvInt("FX_RATE_LIMIT_RPS", 2),

		ServerAddr:     getEnv("SERVER_ADDR", ":8080"),
		UploadMaxBytes: getEnvInt("UPLOAD_MAX_BYTES", 32<<20),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),
		GmailQuery:        getEnv("GMAIL_QUERY", "has:attachment"),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMarkSeen: getEnvBool("IMAP_MARK_SEEN", false),

		MailListenerProvider:    getEnv("MAIL_LISTENER_PROVIDER", "gmail"),
		MailListenerLabel:       getEnv("MAIL_LISTENER_LABEL", "INBOX"),
		MailListenerIntervalSec: getEnvInt("MAIL_LISTENER_INTERVAL_SEC", 300),
		MailListenerFetchMax:    getEnvInt("MAIL_LISTENER_FETCH_MAX", 20),
		MailListenerImportBatch: getEnvInt("MAIL_LISTENER_IMPORT_BATCH", 20),
		MailListenerAutoExport:  getEnvBool("MAIL_LISTENER_AUTO_EXPORT", true),
	}

	cfg.Columns = internal.ColumnProfile{}
	if strings.TrimSpace(cfg.ColumnsFile) != "" {
		profile, err := LoadColumnProfile(cfg.ColumnsFile)
		if err != nil {
			return Config{}, err
		}
		cfg.Columns = profile
	}

	return cfg, nil
}

// LoadColumnProfile reads a YAML file of the form
//
//	columns:
//	  "Order No.": "PO Number"
//
// Keys are canonical column names, values the header used by the export.
func LoadColumnProfile(path string) (internal.ColumnProfile, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read columns file: %w", err)
	}
	var file columnsFile
	if err := yaml.Unmarshal(blob, &file); err != nil {
		return nil, fmt.Errorf("parse columns file %s: %w", path, err)
	}

	known := map[string]internal.Column{}
	for _, col := range internal.AllColumns {
		known[string(col)] = col
	}

	profile := internal.ColumnProfile{}
	for key, header := range file.Columns {
		col, ok := known[strings.TrimSpace(key)]
		if !ok {
			return nil, fmt.Errorf("columns file %s: unknown column %q", path, key)
		}
		profile[col] = strings.TrimSpace(header)
	}
	return profile, nil
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

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
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
