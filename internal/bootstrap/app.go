package bootstrap

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"madeproof-backend/internal/attest"
	"madeproof-backend/internal/extract"
	"madeproof-backend/internal/extract/ocr"
	"madeproof-backend/internal/receipts"
	"madeproof-backend/internal/services/health"
	"madeproof-backend/internal/shared/config"
	"madeproof-backend/internal/shared/server"
	"madeproof-backend/internal/shared/server/middleware"
	"madeproof-backend/internal/signing"
)

const secretFetchTimeout = 10 * time.Second

var newSecretsClient = config.NewSecretsClient

// App holds shared dependencies.
type App struct {
	Config          config.Config
	Router          *gin.Engine
	Signer          *signing.Signer
	Extractors      *extract.Registry
	AttestService   *attest.Service
	ReceiptsHandler *receipts.Handler
	Health          *health.Service
}

// Build loads key material once and wires the pipeline and router. Missing keys are not
// fatal outside production: the API starts and uploads answer key_not_configured.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}

	if err := resolveSecretKeys(&cfg); err != nil {
		return nil, fmt.Errorf("load signing keys: %w", err)
	}
	km, err := signing.LoadKeyMaterial(cfg.SignPrivateKey, cfg.SignPublicKey)
	if err != nil {
		return nil, fmt.Errorf("load signing keys: %w", err)
	}
	if km == nil {
		if cfg.Env == "production" {
			return nil, fmt.Errorf("load signing keys: %w", signing.ErrKeyNotConfigured)
		}
		log.Printf("bootstrap: MP_SIGN_PRIV/MP_SIGN_PUB empty; uploads will fail with key_not_configured")
	}
	signer := signing.NewSigner(km)

	acquire, err := buildAcquire(cfg.SpoolDir)
	if err != nil {
		return nil, err
	}

	registry := extract.Default(extract.Options{OCRLanguage: cfg.OCRLanguage})
	svc := &attest.Service{
		Extractor:    registry,
		Signer:       signer,
		Acquire:      acquire,
		MaxBytes:     cfg.MaxUploadBytes,
		ExcerptChars: cfg.ExcerptChars,
	}

	app := &App{
		Config:          cfg,
		Signer:          signer,
		Extractors:      registry,
		AttestService:   svc,
		ReceiptsHandler: receipts.NewHandler(svc),
		Health:          health.NewService(signer, ocr.Enabled),
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		ReceiptsHandler: app.ReceiptsHandler,
		Health:          app.Health,
		Limiter:         middleware.NewRateLimiter(nil),
	})
	return app, nil
}

// resolveSecretKeys fetches the key pair from Secrets Manager when MP_SIGN_SECRET_ID is set
// and the environment does not already carry both keys.
func resolveSecretKeys(cfg *config.Config) error {
	if strings.TrimSpace(cfg.SignSecretID) == "" || cfg.SigningConfigured() {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), secretFetchTimeout)
	defer cancel()
	client, err := newSecretsClient(ctx)
	if err != nil {
		return err
	}
	return config.ResolveSigningKeys(ctx, cfg, client)
}

func buildAcquire(spoolDir string) (attest.AcquireFunc, error) {
	dir := strings.TrimSpace(spoolDir)
	if dir == "" {
		return attest.InMemory(), nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}
	return attest.SpoolTo(dir), nil
}
