package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"madeproof-backend/internal/attest"
	"madeproof-backend/internal/extract"
	"madeproof-backend/internal/shared/config"
	"madeproof-backend/internal/signing"
)

type attestOutput struct {
	Name            string          `json:"name"`
	MIME            string          `json:"mime"`
	SHA256          string          `json:"sha256"`
	Meta            extract.Meta    `json:"meta"`
	Text            string          `json:"text,omitempty"`
	DeletionReceipt json.RawMessage `json:"deletion_receipt"`
	SignatureBase64 string          `json:"signature_base64"`
}

func newAttestCmd() *cobra.Command {
	var (
		mimeType string
		withText bool
	)
	cmd := &cobra.Command{
		Use:   "attest [file]",
		Short: "Extract a local document and print a signed deletion receipt",
		Long: `Runs a local file through the same pipeline as the API. The in-memory copy is
wiped before the receipt is signed; the source file itself is left in place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			km, err := signing.LoadKeyMaterial(cfg.SignPrivateKey, cfg.SignPublicKey)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			svc := &attest.Service{
				Extractor:    extract.Default(extract.Options{OCRLanguage: cfg.OCRLanguage}),
				Signer:       signing.NewSigner(km),
				MaxBytes:     cfg.MaxUploadBytes,
				ExcerptChars: cfg.ExcerptChars,
			}
			att, err := svc.Process(cmd.Context(), attest.Document{
				Name: filepath.Base(args[0]),
				MIME: mimeType,
				Body: f,
			})
			if err != nil {
				return fmt.Errorf("attest %s: %w", args[0], err)
			}

			out := attestOutput{
				Name:            att.Name,
				MIME:            att.MIME,
				SHA256:          att.SHA256,
				Meta:            att.Meta,
				DeletionReceipt: json.RawMessage(att.Canonical),
				SignatureBase64: att.Signature,
			}
			if withText {
				out.Text = att.Text
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&mimeType, "mime", "", "Declared MIME type (default application/octet-stream)")
	cmd.Flags().BoolVar(&withText, "text", false, "Include the extracted text excerpt")
	return cmd
}
