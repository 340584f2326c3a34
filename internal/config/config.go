// Package config provides centralized configuration for the mailbrief server.
// Values come from environment variables with sensible defaults; an optional
// YAML file and a .env.local file fill in variables the environment lacks.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Record backends.
const (
	BackendAirtable  = "airtable"
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
	BackendNone      = "none"
)

// Config holds all server configuration values.
type Config struct {
	// Port is the HTTP server listen port.
	Port string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// LogFormat selects the slog handler: "text" or "json".
	LogFormat string

	// CORSOrigin is the allowed CORS origin. Defaults to "*".
	CORSOrigin string

	// TriggerEnabled turns the source trigger on. TriggerURL must also be set.
	TriggerEnabled bool
	TriggerURL     string

	// TriggerForwardCredential attaches the caller's bearer credential to the
	// trigger request.
	TriggerForwardCredential bool

	// SummarizerURL is the base URL of the summarization service.
	SummarizerURL string

	// RecordBackend selects where summaries are read from: airtable, sqlite,
	// firestore or none.
	RecordBackend string

	AirtableAPIKey string
	AirtableBaseID string
	AirtableTable  string
	AirtableAPIURL string

	// DBPath is the path to the SQLite database file.
	DBPath string

	FirestoreProject    string
	FirestoreCollection string

	// SnippetPlainText rewrites HTML snippets into readable text when
	// listing summaries. Off by default.
	SnippetPlainText bool

	// SettleDelay is the wait between the trigger and summarization.
	SettleDelay time.Duration

	// ResetDelay is how long a success stays visible before the run state
	// returns to idle.
	ResetDelay time.Duration

	// HTTPTimeout is the timeout for outgoing HTTP requests.
	HTTPTimeout time.Duration

	// RunTimeout bounds a whole run. Zero means no deadline.
	RunTimeout time.Duration

	// RunRateLimit caps start-run requests per second. Zero means unlimited.
	RunRateLimit float64

	// RequireCredential rejects runs that carry no credential.
	RequireCredential bool

	// ScheduleInterval starts a run periodically. Zero disables it.
	ScheduleInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults.
func Load() Config {
	return Config{
		Port:                     envOr("PORT", "8080"),
		LogLevel:                 envOr("LOG_LEVEL", "info"),
		LogFormat:                envOr("LOG_FORMAT", "text"),
		CORSOrigin:               envOr("CORS_ORIGIN", "*"),
		TriggerEnabled:           envBool("TRIGGER_ENABLED", false),
		TriggerURL:               os.Getenv("TRIGGER_URL"),
		TriggerForwardCredential: envBool("TRIGGER_FORWARD_CREDENTIAL", false),
		SummarizerURL:            envOr("SUMMARIZER_URL", "http://localhost:5000"),
		RecordBackend:            strings.ToLower(envOr("RECORD_BACKEND", BackendAirtable)),
		AirtableAPIKey:           os.Getenv("AIRTABLE_API_KEY"),
		AirtableBaseID:           os.Getenv("AIRTABLE_BASE_ID"),
		AirtableTable:            envOr("AIRTABLE_TABLE_NAME", "AutomationData"),
		AirtableAPIURL:           envOr("AIRTABLE_API_URL", "https://api.airtable.com/v0"),
		DBPath:                   envOr("DB_PATH", "mailbrief.db"),
		FirestoreProject:         os.Getenv("FIRESTORE_PROJECT"),
		FirestoreCollection:      envOr("FIRESTORE_COLLECTION", "summaries"),
		SnippetPlainText:         envBool("SNIPPET_PLAIN_TEXT", false),
		SettleDelay:              envDuration("SETTLE_DELAY", 3*time.Second),
		ResetDelay:               envDuration("RESET_DELAY", 3*time.Second),
		HTTPTimeout:              envDuration("HTTP_TIMEOUT", 60*time.Second),
		RunTimeout:               envDuration("RUN_TIMEOUT", 0),
		RunRateLimit:             envFloat("RUN_RATE_LIMIT", 0),
		RequireCredential:        envBool("REQUIRE_CREDENTIAL", true),
		ScheduleInterval:         envDuration("SCHEDULE_INTERVAL", 0),
	}
}

// LoadFiles fills unset environment variables from an optional YAML file
// and then from .env.local in the working directory, and returns Load().
func LoadFiles(yamlPath string) (Config, error) {
	if yamlPath == "" {
		yamlPath = os.Getenv("CONFIG_FILE")
	}
	if yamlPath != "" {
		if err := loadYAMLFile(yamlPath); err != nil {
			return Config{}, err
		}
	}
	loadEnvFile(".env.local")
	return Load(), nil
}

// Validate checks enum values and backend requirements.
func (c Config) Validate() error {
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q (want text or json)", c.LogFormat)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.RecordBackend {
	case BackendAirtable, BackendSQLite, BackendNone:
	case BackendFirestore:
		if c.FirestoreProject == "" {
			return fmt.Errorf("RECORD_BACKEND=firestore requires FIRESTORE_PROJECT")
		}
	default:
		return fmt.Errorf("invalid RECORD_BACKEND %q", c.RecordBackend)
	}
	if c.SettleDelay < 0 || c.ResetDelay < 0 || c.RunTimeout < 0 || c.ScheduleInterval < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	if c.RunRateLimit < 0 {
		return fmt.Errorf("RUN_RATE_LIMIT must not be negative")
	}
	return nil
}

// TriggerConfigured reports whether the source trigger will call out.
func (c Config) TriggerConfigured() bool {
	return c.TriggerEnabled && strings.TrimSpace(c.TriggerURL) != ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
