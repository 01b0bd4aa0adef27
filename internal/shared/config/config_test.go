package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"PORT", "ENV", "MAX_UPLOAD_BYTES", "MP_SIGN_PRIV", "MP_SIGN_PUB", "MP_CONFIG_FILE", "CORS_ALLOW_ORIGINS", "TRUSTED_PROXIES", "MP_SIGN_SECRET_ID"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Port != "8080" || cfg.Env != "dev" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.MaxUploadBytes != 10<<20 {
		t.Fatalf("expected 10MB limit, got %d", cfg.MaxUploadBytes)
	}
	if cfg.SigningConfigured() {
		t.Fatalf("expected signing unconfigured")
	}
	if len(cfg.TrustedProxies) != 0 {
		t.Fatalf("expected no trusted proxies by default, got %v", cfg.TrustedProxies)
	}
}

func TestLoadTrustedProxiesAndSecretID(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MP_CONFIG_FILE", "")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.1")
	t.Setenv("MP_SIGN_SECRET_ID", "madeproof/signing")

	cfg := Load()
	if len(cfg.TrustedProxies) != 2 || cfg.TrustedProxies[0] != "10.0.0.0/8" || cfg.TrustedProxies[1] != "192.0.2.1" {
		t.Fatalf("unexpected trusted proxies %v", cfg.TrustedProxies)
	}
	if cfg.SignSecretID != "madeproof/signing" {
		t.Fatalf("unexpected secret id %q", cfg.SignSecretID)
	}
}

func TestLoadFileThenEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "madeproof.yaml")
	yaml := "port: \"9090\"\nmax_upload_bytes: 2048\ncors_allow_origins:\n  - https://a.example\nspool_dir: /tmp/spool\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("MP_CONFIG_FILE", path)
	t.Setenv("PORT", "")
	t.Setenv("MAX_UPLOAD_BYTES", "4096")
	t.Setenv("CORS_ALLOW_ORIGINS", "")
	t.Setenv("SPOOL_DIR", "")
	t.Setenv("ENV", "prod")
	t.Setenv("MP_SIGN_PRIV", "priv")
	t.Setenv("MP_SIGN_PUB", "pub")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected port from file, got %s", cfg.Port)
	}
	if cfg.MaxUploadBytes != 4096 {
		t.Fatalf("expected env override, got %d", cfg.MaxUploadBytes)
	}
	if len(cfg.CORSAllowOrigin) != 1 || cfg.CORSAllowOrigin[0] != "https://a.example" {
		t.Fatalf("unexpected origins %v", cfg.CORSAllowOrigin)
	}
	if cfg.SpoolDir != "/tmp/spool" {
		t.Fatalf("unexpected spool dir %q", cfg.SpoolDir)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected production env, got %s", cfg.Env)
	}
	if !cfg.SigningConfigured() {
		t.Fatalf("expected signing configured")
	}
}

func TestLoadIgnoresInvalidNumbers(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MP_CONFIG_FILE", "")
	t.Setenv("MAX_UPLOAD_BYTES", "ten")
	t.Setenv("TEXT_EXCERPT_CHARS", "-5")

	cfg := Load()
	if cfg.MaxUploadBytes != 10<<20 {
		t.Fatalf("expected default limit, got %d", cfg.MaxUploadBytes)
	}
	if cfg.ExcerptChars != 10000 {
		t.Fatalf("expected default excerpt, got %d", cfg.ExcerptChars)
	}
}
