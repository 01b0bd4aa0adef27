package main

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"madeproof-backend/internal/shared/config"
	"madeproof-backend/internal/signing"
)

func newPubkeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pubkey",
		Short: "Print the configured public key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			signer, err := loadSigner()
			if err != nil {
				return err
			}
			pem, err := signer.PublicKeyPEM()
			if err != nil {
				return err
			}
			cmd.Print(pem)
			return nil
		},
	}
}

func loadSigner() (*signing.Signer, error) {
	cfg := config.Load()
	if strings.TrimSpace(cfg.SignSecretID) != "" && !cfg.SigningConfigured() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		client, err := config.NewSecretsClient(ctx)
		if err != nil {
			return nil, err
		}
		if err := config.ResolveSigningKeys(ctx, &cfg, client); err != nil {
			return nil, err
		}
	}
	km, err := signing.LoadKeyMaterial(cfg.SignPrivateKey, cfg.SignPublicKey)
	if err != nil {
		return nil, err
	}
	return signing.NewSigner(km), nil
}
