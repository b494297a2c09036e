package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "development")
	t.Setenv("PORT", "8080")
	t.Setenv("TOKEN_STORE", "memory")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DATABASE_URL_FILE", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("REDIS_PASSWORD", "")
	t.Setenv("REDIS_PASSWORD_FILE", "")
	t.Setenv("BOOKSTORE_API_URL", "")
	t.Setenv("API_TIMEOUT", "")
	t.Setenv("PROFILE_TIMEOUT", "")
	t.Setenv("TOKEN_TTL", "")
	t.Setenv("SESSION_IDLE_TIMEOUT", "")
	t.Setenv("MAX_SESSIONS", "")
	t.Setenv("EDITOR_ROLE", "")
	t.Setenv("LANDING_PATH", "")
	t.Setenv("ALLOWED_ORIGINS", "")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.APIBaseURL != "http://localhost:5234/" {
		t.Fatalf("expected default API url, got %q", cfg.APIBaseURL)
	}
	if cfg.EditorRole != "Urednik" || cfg.LandingPath != "/books" {
		t.Fatalf("unexpected role/landing defaults: %q %q", cfg.EditorRole, cfg.LandingPath)
	}
	if cfg.TokenStore != TokenStoreMemory {
		t.Fatalf("expected memory token store, got %q", cfg.TokenStore)
	}
	if cfg.APITimeout != 15*time.Second || cfg.ProfileTimeout != 10*time.Second || cfg.TokenTTL != 0 {
		t.Fatalf("unexpected timeouts %v %v %v", cfg.APITimeout, cfg.ProfileTimeout, cfg.TokenTTL)
	}
	if cfg.SessionIdleTimeout != 30*time.Minute || cfg.MaxSessions != 10000 {
		t.Fatalf("unexpected session limits %v %d", cfg.SessionIdleTimeout, cfg.MaxSessions)
	}
	if cfg.HTTPAddress() != ":8080" || !cfg.IsDevelopment() {
		t.Fatalf("unexpected address %q", cfg.HTTPAddress())
	}
}

func TestLoadParsesDurations(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("API_TIMEOUT", "3s")
	t.Setenv("TOKEN_TTL", "12h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.APITimeout != 3*time.Second || cfg.TokenTTL != 12*time.Hour {
		t.Fatalf("unexpected durations %v %v", cfg.APITimeout, cfg.TokenTTL)
	}

	t.Setenv("PROFILE_TIMEOUT", "soon")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "PROFILE_TIMEOUT") {
		t.Fatalf("expected PROFILE_TIMEOUT error, got %v", err)
	}
}

func TestLoadRejectsBadMaxSessions(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("MAX_SESSIONS", "0")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "MAX_SESSIONS") {
		t.Fatalf("expected MAX_SESSIONS error, got %v", err)
	}
}

func TestLoadRequiresBackendURLs(t *testing.T) {
	setBaseEnv(t)

	t.Setenv("TOKEN_STORE", "postgres")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "DATABASE_URL is not set") {
		t.Fatalf("expected DATABASE_URL error, got %v", err)
	}

	t.Setenv("TOKEN_STORE", "redis")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "REDIS_URL is not set") {
		t.Fatalf("expected REDIS_URL error, got %v", err)
	}

	t.Setenv("TOKEN_STORE", "etcd")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "unsupported TOKEN_STORE") {
		t.Fatalf("expected unsupported store error, got %v", err)
	}
}

func TestLoadReadsDatabaseURLFromFile(t *testing.T) {
	setBaseEnv(t)
	path := filepath.Join(t.TempDir(), "database_url")
	if err := os.WriteFile(path, []byte("postgres://bookstore@localhost/bookstore\n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	t.Setenv("TOKEN_STORE", "postgres")
	t.Setenv("DATABASE_URL_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.DatabaseURL != "postgres://bookstore@localhost/bookstore" {
		t.Fatalf("expected database url from file, got %q", cfg.DatabaseURL)
	}
}

func TestLoadRejectsEmptySecretFile(t *testing.T) {
	setBaseEnv(t)
	path := filepath.Join(t.TempDir(), "redis_password")
	if err := os.WriteFile(path, []byte("  \n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	t.Setenv("REDIS_PASSWORD_FILE", path)

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "is empty") {
		t.Fatalf("expected empty secret error, got %v", err)
	}
}

func TestLoadRejectsWildcardOriginsOutsideDevelopment(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("ALLOWED_ORIGINS", "https://example.com,*")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when ALLOWED_ORIGINS contains wildcard")
	}
	if !strings.Contains(err.Error(), "cannot contain wildcard") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRequiresAllowedOriginsOutsideDevelopment(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("ALLOWED_ORIGINS", "   ")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when ALLOWED_ORIGINS is empty")
	}
	if !strings.Contains(err.Error(), "must define at least one origin") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsExternalLandingPath(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("LANDING_PATH", "//evil.example.com")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "LANDING_PATH") {
		t.Fatalf("expected landing path error, got %v", err)
	}
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PORT", "http")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "invalid port") {
		t.Fatalf("expected port error, got %v", err)
	}
}
