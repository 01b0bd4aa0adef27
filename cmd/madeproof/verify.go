package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"madeproof-backend/internal/fingerprint"
	"madeproof-backend/internal/receipt"
	"madeproof-backend/internal/shared/config"
	"madeproof-backend/internal/signing"
)

var (
	errInvalidSignature = errors.New("signature does not match receipt")
	errFileMismatch     = errors.New("file does not match receipt fingerprint")
)

func newVerifyCmd() *cobra.Command {
	var (
		signature  string
		pubKeyPath string
		filePath   string
	)
	cmd := &cobra.Command{
		Use:   "verify [response.json|-]",
		Short: "Verify a deletion receipt signature",
		Long: `Reads an upload response (or attest output) containing deletion_receipt and
signature_base64, re-canonicalizes the receipt and checks the signature. A bare
receipt can be given together with --signature. The public key defaults to the
configured MP_SIGN_PUB. With --file, a local copy of the document is also checked
against the receipt's sha256.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			rcpt, sig, err := splitEnvelope(raw)
			if err != nil {
				return err
			}
			if signature != "" {
				sig = signature
			}
			if sig == "" {
				return errors.New("no signature: pass --signature or a response with signature_base64")
			}

			pubPEM, err := resolvePublicKey(pubKeyPath)
			if err != nil {
				return err
			}
			r, err := receipt.Parse(rcpt)
			if err != nil {
				return err
			}
			ok, err := signing.Verify(r, sig, pubPEM)
			if err != nil {
				return err
			}
			if !ok {
				return errInvalidSignature
			}
			if filePath != "" {
				if err := matchFile(filePath, r.File.SHA256); err != nil {
					return err
				}
				cmd.Printf("file matches: %s\n", filePath)
			}
			cmd.Printf("valid: %s (%s) deleted at %s\n", r.File.Name, r.File.SHA256, r.Process.DeletedAt)
			return nil
		},
	}
	cmd.Flags().StringVarP(&signature, "signature", "s", "", "Base64 signature (overrides signature_base64 in the input)")
	cmd.Flags().StringVarP(&pubKeyPath, "pubkey", "k", "", "Public key PEM file (default MP_SIGN_PUB)")
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Local document to compare with the receipt's sha256")
	return cmd
}

func matchFile(path, sha string) error {
	want, err := fingerprint.ParseHex(sha)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	if !fingerprint.Of(data).Equal(want) {
		return fmt.Errorf("%w: %s", errFileMismatch, path)
	}
	return nil
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

// splitEnvelope accepts either a response envelope or a bare receipt.
func splitEnvelope(raw []byte) ([]byte, string, error) {
	var envelope struct {
		DeletionReceipt json.RawMessage `json:"deletion_receipt"`
		SignatureBase64 string          `json:"signature_base64"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, "", fmt.Errorf("decode input: %w", err)
	}
	if len(envelope.DeletionReceipt) == 0 {
		return raw, "", nil
	}
	return envelope.DeletionReceipt, envelope.SignatureBase64, nil
}

func resolvePublicKey(path string) (string, error) {
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read public key: %w", err)
		}
		return string(data), nil
	}
	pub := config.Load().SignPublicKey
	if strings.TrimSpace(pub) == "" {
		return "", fmt.Errorf("%w: pass --pubkey or set MP_SIGN_PUB", signing.ErrKeyNotConfigured)
	}
	return pub, nil
}
