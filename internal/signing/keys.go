package signing

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrKeyNotConfigured is returned when signing or key exposure is attempted without keys.
	ErrKeyNotConfigured = errors.New("signing keys not configured")
	// ErrInvalidKey is returned for malformed or mismatched key material.
	ErrInvalidKey = errors.New("invalid key material")
)

// KeyMaterial is the process-wide signing configuration. It is immutable after load.
// Only the PKCS#8 encoding of the private key is held; the usable key is rebuilt per
// signature and zeroed afterwards.
type KeyMaterial struct {
	privateDER []byte
	public     ed25519.PublicKey
	publicPEM  string
}

// LoadKeyMaterial parses a PKCS#8 private key PEM and an SPKI public key PEM.
// Both empty yields nil material and no error, so signing fails with ErrKeyNotConfigured.
// Literal "\n" sequences are accepted in place of newlines, as env files often carry them.
func LoadKeyMaterial(privatePEM, publicPEM string) (*KeyMaterial, error) {
	privatePEM = normalizePEM(privatePEM)
	publicPEM = normalizePEM(publicPEM)
	if privatePEM == "" && publicPEM == "" {
		return nil, nil
	}
	if privatePEM == "" || publicPEM == "" {
		return nil, fmt.Errorf("%w: both private and public keys are required", ErrKeyNotConfigured)
	}

	block, _ := pem.Decode([]byte(privatePEM))
	if block == nil || block.Type != "PRIVATE KEY" {
		return nil, fmt.Errorf("%w: private key must be a PKCS#8 PEM block", ErrInvalidKey)
	}
	der := append([]byte(nil), block.Bytes...)
	clear(block.Bytes)
	priv, err := parsePrivateDER(der)
	if err != nil {
		clear(der)
		return nil, err
	}
	defer clear(priv)

	pub, err := ParsePublicKeyPEM(publicPEM)
	if err != nil {
		clear(der)
		return nil, err
	}
	if !pub.Equal(priv.Public()) {
		clear(der)
		return nil, fmt.Errorf("%w: public key does not match private key", ErrInvalidKey)
	}

	return &KeyMaterial{
		privateDER: der,
		public:     pub,
		publicPEM:  publicPEM,
	}, nil
}

// ParsePublicKeyPEM decodes an Ed25519 SPKI public key.
func ParsePublicKeyPEM(publicPEM string) (ed25519.PublicKey, error) {
	block, _ := pem.Decode([]byte(normalizePEM(publicPEM)))
	if block == nil || block.Type != "PUBLIC KEY" {
		return nil, fmt.Errorf("%w: public key must be a PUBLIC KEY PEM block", ErrInvalidKey)
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	pub, ok := key.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: public key is not ed25519", ErrInvalidKey)
	}
	return pub, nil
}

// GenerateKeyPair returns a fresh Ed25519 key pair as PKCS#8 and SPKI PEM.
func GenerateKeyPair() (privatePEM string, publicPEM string, err error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generate key: %w", err)
	}
	defer clear(priv)

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return "", "", fmt.Errorf("marshal private key: %w", err)
	}
	defer clear(privDER)
	pubDER, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", "", fmt.Errorf("marshal public key: %w", err)
	}

	privatePEM = string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER}))
	publicPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}))
	return privatePEM, publicPEM, nil
}

func parsePrivateDER(der []byte) (ed25519.PrivateKey, error) {
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	priv, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: private key is not ed25519", ErrInvalidKey)
	}
	return priv, nil
}

func normalizePEM(raw string) string {
	s := strings.TrimSpace(raw)
	if s != "" && !strings.Contains(s, "\n") && strings.Contains(s, `\n`) {
		s = strings.ReplaceAll(s, `\n`, "\n")
	}
	return s
}
