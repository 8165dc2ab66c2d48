package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends understood by Load.
const (
	BackendFirestore = "firestore"
	BackendPostgres  = "postgres"
	BackendMemory    = "memory"
)

const (
	defaultPort         = "8080"
	defaultModelName    = "gemini-2.0-flash"
	defaultModelTimeout = 2 * time.Minute
	defaultMaxAttempts  = 3
	defaultStoreTimeout = 15 * time.Second
	defaultMaxUploadMB  = 32
)

// ModelConfig holds everything needed to talk to Gemini.
type ModelConfig struct {
	APIKey      string
	Name        string
	Timeout     time.Duration
	MaxAttempts int
}

// StoreConfig selects and configures the document store backend.
type StoreConfig struct {
	Backend         string
	CredentialsFile string
	ProjectID       string
	DatabaseURL     string
	Timeout         time.Duration
}

// ArchiveConfig configures optional R2 archival of uploaded PDFs.
// Enabled only when every field is set.
type ArchiveConfig struct {
	AccountID       string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
}

func (a ArchiveConfig) Enabled() bool {
	return a.AccountID != "" && a.Bucket != "" && a.AccessKeyID != "" && a.SecretAccessKey != ""
}

// Config is the process-wide configuration, read once at startup.
type Config struct {
	Env            string
	Port           string
	AllowedOrigins []string
	MaxUploadBytes int64

	Model   ModelConfig
	Store   StoreConfig
	Archive ArchiveConfig
}

// Production reports whether APP_ENV selects production mode.
func (c *Config) Production() bool {
	switch strings.ToLower(c.Env) {
	case "prod", "production":
		return true
	}
	return false
}

// Load reads the server configuration from the environment. Missing required
// values are returned as an error so that startup fails instead of requests.
func Load() (*Config, error) {
	model, err := LoadModel()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Env:            envOr("APP_ENV", "development"),
		Port:           envOr("PORT", defaultPort),
		AllowedOrigins: envList("CORS_ORIGINS", []string{"*"}),
		MaxUploadBytes: int64(envInt("MAX_UPLOAD_MB", defaultMaxUploadMB)) << 20,
		Model:          *model,
		Store: StoreConfig{
			Backend:         strings.ToLower(envOr("STORE_BACKEND", BackendFirestore)),
			CredentialsFile: firstEnv("FIREBASE_CREDENTIALS_FILE", "GOOGLE_APPLICATION_CREDENTIALS"),
			ProjectID:       strings.TrimSpace(os.Getenv("FIREBASE_PROJECT_ID")),
			DatabaseURL:     strings.TrimSpace(os.Getenv("DATABASE_URL")),
			Timeout:         envDuration("STORE_TIMEOUT", defaultStoreTimeout),
		},
		Archive: ArchiveConfig{
			AccountID:       strings.TrimSpace(os.Getenv("CLOUDFLARE_ACCOUNT_ID")),
			Bucket:          strings.TrimSpace(os.Getenv("R2_BUCKET_NAME")),
			AccessKeyID:     strings.TrimSpace(os.Getenv("R2_ACCESS_KEY_ID")),
			SecretAccessKey: strings.TrimSpace(os.Getenv("R2_SECRET_ACCESS_KEY")),
		},
	}

	if cfg.MaxUploadBytes <= 0 {
		return nil, errors.New("MAX_UPLOAD_MB must be positive")
	}

	switch cfg.Store.Backend {
	case BackendFirestore:
		if cfg.Store.CredentialsFile == "" {
			return nil, errors.New("FIREBASE_CREDENTIALS_FILE (or GOOGLE_APPLICATION_CREDENTIALS) must be set")
		}
		if _, err := os.Stat(cfg.Store.CredentialsFile); err != nil {
			return nil, fmt.Errorf("credentials file %q: %w", cfg.Store.CredentialsFile, err)
		}
	case BackendPostgres:
		if cfg.Store.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL must be set when STORE_BACKEND=postgres")
		}
	case BackendMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.Store.Backend)
	}

	return cfg, nil
}

// LoadModel reads only the Gemini settings. The CLI uses it directly.
func LoadModel() (*ModelConfig, error) {
	apiKey := firstEnv("GENAI_API_KEY", "GEMINI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("GENAI_API_KEY (or GEMINI_API_KEY) must be set")
	}
	m := &ModelConfig{
		APIKey:      apiKey,
		Name:        envOr("GENAI_MODEL", defaultModelName),
		Timeout:     envDuration("MODEL_TIMEOUT", defaultModelTimeout),
		MaxAttempts: envInt("MODEL_MAX_ATTEMPTS", defaultMaxAttempts),
	}
	if m.MaxAttempts < 1 {
		m.MaxAttempts = 1
	}
	return m, nil
}

func envOr(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return def
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(os.Getenv(n)); v != "" {
			return v
		}
	}
	return ""
}

func envInt(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func envDuration(name string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func envList(name string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.TrimSuffix(p, "/"))
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
