package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"madeproof-backend/internal/signing"
)

const (
	privateKeyFile = "madeproof_ed25519.pem"
	publicKeyFile  = "madeproof_ed25519.pub.pem"
)

func newKeygenCmd() *cobra.Command {
	var (
		outDir    string
		envFormat bool
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an Ed25519 signing key pair",
		Long: `Generates a PKCS#8 private key and SPKI public key in PEM form. With --out-dir
the keys are written to files (private key mode 0600); with --env they are printed
as MP_SIGN_PRIV / MP_SIGN_PUB lines suitable for a .env file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			privPEM, pubPEM, err := signing.GenerateKeyPair()
			if err != nil {
				return err
			}
			if outDir != "" {
				return writeKeyFiles(cmd, outDir, privPEM, pubPEM)
			}
			if envFormat {
				cmd.Printf("MP_SIGN_PRIV=\"%s\"\n", escapeNewlines(privPEM))
				cmd.Printf("MP_SIGN_PUB=\"%s\"\n", escapeNewlines(pubPEM))
				return nil
			}
			cmd.Print(privPEM)
			cmd.Print(pubPEM)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out-dir", "o", "", "Write the key pair into this directory")
	cmd.Flags().BoolVar(&envFormat, "env", false, "Print the keys as .env assignments")
	return cmd
}

func writeKeyFiles(cmd *cobra.Command, dir, privPEM, pubPEM string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create key dir: %w", err)
	}
	privPath := filepath.Join(dir, privateKeyFile)
	f, err := os.OpenFile(privPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create private key: %w", err)
	}
	if _, err := f.WriteString(privPEM); err != nil {
		_ = f.Close()
		return fmt.Errorf("write private key: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close private key: %w", err)
	}
	pubPath := filepath.Join(dir, publicKeyFile)
	if err := os.WriteFile(pubPath, []byte(pubPEM), 0o644); err != nil {
		return fmt.Errorf("write public key: %w", err)
	}
	cmd.Printf("wrote %s\nwrote %s\n", privPath, pubPath)
	return nil
}

func escapeNewlines(pem string) string {
	return strings.ReplaceAll(strings.TrimSpace(pem), "\n", `\n`)
}
