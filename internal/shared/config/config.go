package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultMaxUploadBytes = 10 << 20
	defaultExcerptChars   = 10000
)

// Config holds application configuration. Key material is never logged.
type Config struct {
	Port            string   `yaml:"port"`
	Env             string   `yaml:"env"`
	CORSAllowOrigin []string `yaml:"cors_allow_origins"`
	MaxUploadBytes  int64    `yaml:"max_upload_bytes"`
	ExcerptChars    int      `yaml:"text_excerpt_chars"`
	SpoolDir        string   `yaml:"spool_dir"`
	OCRLanguage     string   `yaml:"ocr_language"`
	RateLimitRPS    float64  `yaml:"rate_limit_rps"`
	RateLimitBurst  int      `yaml:"rate_limit_burst"`
	RequestTimeout  int      `yaml:"request_timeout_seconds"`
	TrustedProxies  []string `yaml:"trusted_proxies"`
	SignSecretID    string   `yaml:"sign_secret_id"`
	SignPrivateKey  string   `yaml:"-"`
	SignPublicKey   string   `yaml:"-"`
}

// Load reads configuration from an optional YAML file (MP_CONFIG_FILE) and environment
// variables, with environment taking precedence. Signing keys come from the environment or
// from the secret named by MP_SIGN_SECRET_ID (see ResolveSigningKeys), never from the file.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	cfg := Defaults()
	if path := os.Getenv("MP_CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			log.Printf("config: ignoring %s: %v", path, err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Env = normalizeEnv(getEnv("ENV", cfg.Env))
	if raw := os.Getenv("CORS_ALLOW_ORIGINS"); raw != "" {
		cfg.CORSAllowOrigin = splitAndTrim(raw)
	}
	cfg.MaxUploadBytes = getEnvInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.ExcerptChars = int(getEnvInt64("TEXT_EXCERPT_CHARS", int64(cfg.ExcerptChars)))
	cfg.SpoolDir = getEnv("SPOOL_DIR", cfg.SpoolDir)
	cfg.OCRLanguage = getEnv("OCR_LANGUAGE", cfg.OCRLanguage)
	cfg.RateLimitRPS = getEnvFloat("RATE_LIMIT_RPS", cfg.RateLimitRPS)
	cfg.RateLimitBurst = int(getEnvInt64("RATE_LIMIT_BURST", int64(cfg.RateLimitBurst)))
	cfg.RequestTimeout = int(getEnvInt64("REQUEST_TIMEOUT_SECONDS", int64(cfg.RequestTimeout)))
	if raw := os.Getenv("TRUSTED_PROXIES"); raw != "" {
		cfg.TrustedProxies = splitAndTrim(raw)
	}
	cfg.SignSecretID = getEnv("MP_SIGN_SECRET_ID", cfg.SignSecretID)
	cfg.SignPrivateKey = os.Getenv("MP_SIGN_PRIV")
	cfg.SignPublicKey = os.Getenv("MP_SIGN_PUB")

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.ExcerptChars <= 0 {
		cfg.ExcerptChars = defaultExcerptChars
	}
	if cfg.Env == "production" && !cfg.SigningConfigured() && cfg.SignSecretID == "" {
		log.Printf("MP_SIGN_PRIV and MP_SIGN_PUB (or MP_SIGN_SECRET_ID) are required in production")
	}
	return cfg
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:            "8080",
		Env:             "dev",
		CORSAllowOrigin: []string{"http://localhost:3000"},
		MaxUploadBytes:  defaultMaxUploadBytes,
		ExcerptChars:    defaultExcerptChars,
		OCRLanguage:     "eng",
		RateLimitRPS:    2,
		RateLimitBurst:  10,
		RequestTimeout:  60,
	}
}

// SigningConfigured reports whether both key halves are present.
func (c Config) SigningConfigured() bool {
	return strings.TrimSpace(c.SignPrivateKey) != "" && strings.TrimSpace(c.SignPublicKey) != ""
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Printf("config: invalid %s=%q, using %d", key, raw, def)
		return def
	}
	return v
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("config: invalid %s=%q, using %v", key, raw, def)
		return def
	}
	return v
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}
