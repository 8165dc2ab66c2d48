package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"GENAI_API_KEY", "GEMINI_API_KEY", "GENAI_MODEL", "MODEL_TIMEOUT", "MODEL_MAX_ATTEMPTS",
		"STORE_BACKEND", "FIREBASE_CREDENTIALS_FILE", "GOOGLE_APPLICATION_CREDENTIALS",
		"FIREBASE_PROJECT_ID", "DATABASE_URL", "STORE_TIMEOUT", "PORT", "APP_ENV",
		"CORS_ORIGINS", "MAX_UPLOAD_MB", "CLOUDFLARE_ACCOUNT_ID", "R2_BUCKET_NAME",
		"R2_ACCESS_KEY_ID", "R2_SECRET_ACCESS_KEY",
	} {
		t.Setenv(name, "")
	}
}

func writeCreds(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "service-key.json")
	if err := os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600); err != nil {
		t.Fatalf("write creds: %v", err)
	}
	return path
}

func TestLoadRequiresAPIKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("FIREBASE_CREDENTIALS_FILE", writeCreds(t))

	if _, err := Load(); err == nil {
		t.Fatalf("expected error without api key")
	}
}

func TestLoadRequiresCredentialsFileForFirestore(t *testing.T) {
	clearEnv(t)
	t.Setenv("GENAI_API_KEY", "key")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error without credentials file")
	}

	t.Setenv("FIREBASE_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "missing.json"))
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing credentials file")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	creds := writeCreds(t)
	t.Setenv("GENAI_API_KEY", "key")
	t.Setenv("FIREBASE_CREDENTIALS_FILE", creds)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("port: got %q", cfg.Port)
	}
	if cfg.Store.Backend != BackendFirestore || cfg.Store.CredentialsFile != creds {
		t.Fatalf("unexpected store config: %+v", cfg.Store)
	}
	if cfg.Model.Name != "gemini-2.0-flash" || cfg.Model.Timeout != 2*time.Minute || cfg.Model.MaxAttempts != 3 {
		t.Fatalf("unexpected model config: %+v", cfg.Model)
	}
	if cfg.MaxUploadBytes != 32<<20 {
		t.Fatalf("max upload: got %d", cfg.MaxUploadBytes)
	}
	if cfg.Archive.Enabled() {
		t.Fatalf("archive should be disabled by default")
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Fatalf("origins: got %v", cfg.AllowedOrigins)
	}
}

func TestLoadFallsBackToGeminiKeyAndParsesOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "fallback")
	t.Setenv("STORE_BACKEND", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/ca")
	t.Setenv("MODEL_TIMEOUT", "45s")
	t.Setenv("MODEL_MAX_ATTEMPTS", "0")
	t.Setenv("CORS_ORIGINS", "https://frontend-ca-one.vercel.app/, http://localhost:5173")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Model.APIKey != "fallback" {
		t.Fatalf("api key: got %q", cfg.Model.APIKey)
	}
	if cfg.Store.Backend != BackendPostgres {
		t.Fatalf("backend: got %q", cfg.Store.Backend)
	}
	if cfg.Model.Timeout != 45*time.Second {
		t.Fatalf("timeout: got %v", cfg.Model.Timeout)
	}
	if cfg.Model.MaxAttempts != 1 {
		t.Fatalf("attempts should clamp to 1, got %d", cfg.Model.MaxAttempts)
	}
	want := []string{"https://frontend-ca-one.vercel.app", "http://localhost:5173"}
	if len(cfg.AllowedOrigins) != len(want) {
		t.Fatalf("origins: got %v", cfg.AllowedOrigins)
	}
	for i := range want {
		if cfg.AllowedOrigins[i] != want[i] {
			t.Fatalf("origins[%d]: got %q want %q", i, cfg.AllowedOrigins[i], want[i])
		}
	}
}

func TestLoadPostgresNeedsDatabaseURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("GENAI_API_KEY", "key")
	t.Setenv("STORE_BACKEND", "postgres")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error without DATABASE_URL")
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	clearEnv(t)
	t.Setenv("GENAI_API_KEY", "key")
	t.Setenv("STORE_BACKEND", "mongo")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
