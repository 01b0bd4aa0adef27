// Package signing signs canonical deletion receipts with Ed25519 and verifies them.
//
// Ed25519 is applied directly to the canonical receipt bytes with no pre-hash, so any
// verifier needs only the canonical form, the base64 signature and the public key PEM.
package signing

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"

	"madeproof-backend/internal/receipt"
)

// Signer signs receipts with the configured key material.
type Signer struct {
	keys *KeyMaterial
}

// NewSigner returns a signer. A nil km produces a signer that always fails with
// ErrKeyNotConfigured.
func NewSigner(km *KeyMaterial) *Signer {
	return &Signer{keys: km}
}

// Ready reports whether signing can succeed.
func (s *Signer) Ready() error {
	if s == nil || s.keys == nil || len(s.keys.privateDER) == 0 || len(s.keys.public) == 0 {
		return ErrKeyNotConfigured
	}
	return nil
}

// Sign returns the base64 Ed25519 signature over the receipt's canonical bytes.
func (s *Signer) Sign(r receipt.DeletionReceipt) (string, error) {
	canonical, err := receipt.Canonical(r)
	if err != nil {
		return "", err
	}
	return s.SignCanonical(canonical)
}

// SignCanonical signs bytes already in canonical form.
func (s *Signer) SignCanonical(canonical []byte) (string, error) {
	if err := s.Ready(); err != nil {
		return "", err
	}
	priv, err := parsePrivateDER(s.keys.privateDER)
	if err != nil {
		return "", err
	}
	defer clear(priv)

	sig := ed25519.Sign(priv, canonical)
	return base64.StdEncoding.EncodeToString(sig), nil
}

// PublicKeyPEM returns the public key, the only key material ever exposed.
func (s *Signer) PublicKeyPEM() (string, error) {
	if err := s.Ready(); err != nil {
		return "", err
	}
	return s.keys.publicPEM + "\n", nil
}

// Verify canonicalizes r and checks the signature against the PEM public key.
// A well-formed but wrong signature returns false with a nil error.
func Verify(r receipt.DeletionReceipt, signatureB64 string, publicKeyPEM string) (bool, error) {
	canonical, err := receipt.Canonical(r)
	if err != nil {
		return false, err
	}
	return VerifyCanonical(canonical, signatureB64, publicKeyPEM)
}

// VerifyJSON parses a receipt document, re-canonicalizes it and verifies the signature.
func VerifyJSON(receiptJSON []byte, signatureB64 string, publicKeyPEM string) (bool, error) {
	r, err := receipt.Parse(receiptJSON)
	if err != nil {
		return false, err
	}
	return Verify(r, signatureB64, publicKeyPEM)
}

// VerifyCanonical checks a signature over bytes already in canonical form.
func VerifyCanonical(canonical []byte, signatureB64 string, publicKeyPEM string) (bool, error) {
	pub, err := ParsePublicKeyPEM(publicKeyPEM)
	if err != nil {
		return false, err
	}
	sig, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return false, fmt.Errorf("decode signature: %w", err)
	}
	if len(sig) != ed25519.SignatureSize {
		return false, nil
	}
	return ed25519.Verify(pub, canonical, sig), nil
}
