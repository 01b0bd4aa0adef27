package signing

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"madeproof-backend/internal/receipt"
)

const testSHA = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"

func newTestSigner(t *testing.T) (*Signer, string) {
	t.Helper()
	privPEM, pubPEM, err := GenerateKeyPair()
	require.NoError(t, err)
	km, err := LoadKeyMaterial(privPEM, pubPEM)
	require.NoError(t, err)
	return NewSigner(km), pubPEM
}

func sampleReceipt(t *testing.T) receipt.DeletionReceipt {
	t.Helper()
	pages := 2
	start := time.Date(2026, time.May, 1, 8, 0, 0, 0, time.UTC)
	r, err := receipt.Build(
		receipt.FileDescriptor{Name: "doc.pdf", MIME: "application/pdf", SHA256: testSHA, Size: 2048},
		receipt.ProcessWindow{StartedAt: start, DeletedAt: start.Add(time.Second)},
		receipt.ExtractionDescriptor{Pages: &pages},
	)
	require.NoError(t, err)
	return r
}

func TestSignVerifyRoundTrip(t *testing.T) {
	signer, pubPEM := newTestSigner(t)
	r := sampleReceipt(t)

	sig, err := signer.Sign(r)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(sig)
	require.NoError(t, err)
	assert.Len(t, raw, ed25519.SignatureSize)

	ok, err := Verify(r, sig, pubPEM)
	require.NoError(t, err)
	assert.True(t, ok)

	exposed, err := signer.PublicKeyPEM()
	require.NoError(t, err)
	ok, err = Verify(r, sig, exposed)
	require.NoError(t, err)
	assert.True(t, ok, "signature must verify against the exposed public key")
}

func TestVerifyDetectsTampering(t *testing.T) {
	signer, pubPEM := newTestSigner(t)
	r := sampleReceipt(t)
	sig, err := signer.Sign(r)
	require.NoError(t, err)

	otherPages := 3
	otherSize := int64(2049)
	mutations := map[string]func(*receipt.DeletionReceipt){
		"kind":       func(r *receipt.DeletionReceipt) { r.Kind = "Other" },
		"version":    func(r *receipt.DeletionReceipt) { r.Version = 2 },
		"name":       func(r *receipt.DeletionReceipt) { r.File.Name = "doc2.pdf" },
		"mime":       func(r *receipt.DeletionReceipt) { r.File.MIME = "text/plain" },
		"sha256":     func(r *receipt.DeletionReceipt) { r.File.SHA256 = strings.Repeat("0", 64) },
		"size":       func(r *receipt.DeletionReceipt) { r.File.Size = &otherSize },
		"size-nil":   func(r *receipt.DeletionReceipt) { r.File.Size = nil },
		"started_at": func(r *receipt.DeletionReceipt) { r.Process.StartedAt = "2026-05-01T08:00:00.001Z" },
		"deleted_at": func(r *receipt.DeletionReceipt) { r.Process.DeletedAt = "2026-05-01T08:00:02.000Z" },
		"pages":      func(r *receipt.DeletionReceipt) { r.Extraction.Pages = &otherPages },
		"pages-nil":  func(r *receipt.DeletionReceipt) { r.Extraction.Pages = nil },
		"ocr":        func(r *receipt.DeletionReceipt) { r.Extraction.OCR = true },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			tampered := sampleReceipt(t)
			mutate(&tampered)
			ok, err := Verify(tampered, sig, pubPEM)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestVerifyJSON(t *testing.T) {
	signer, pubPEM := newTestSigner(t)
	r := sampleReceipt(t)
	sig, err := signer.Sign(r)
	require.NoError(t, err)

	canonical, err := receipt.Canonical(r)
	require.NoError(t, err)
	ok, err := VerifyJSON(canonical, sig, pubPEM)
	require.NoError(t, err)
	assert.True(t, ok)

	tampered := strings.Replace(string(canonical), `"ocr":false`, `"ocr":true`, 1)
	ok, err = VerifyJSON([]byte(tampered), sig, pubPEM)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyWithOtherKeyFails(t *testing.T) {
	signer, _ := newTestSigner(t)
	_, otherPub := newTestSigner(t)
	r := sampleReceipt(t)
	sig, err := signer.Sign(r)
	require.NoError(t, err)

	ok, err := Verify(r, sig, otherPub)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyMalformedInputs(t *testing.T) {
	_, pubPEM := newTestSigner(t)
	r := sampleReceipt(t)

	_, err := Verify(r, "not base64!!", pubPEM)
	assert.Error(t, err)

	ok, err := Verify(r, base64.StdEncoding.EncodeToString([]byte("short")), pubPEM)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = Verify(r, "", "not a pem")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestUnconfiguredSigner(t *testing.T) {
	km, err := LoadKeyMaterial("", "")
	require.NoError(t, err)
	assert.Nil(t, km)

	signer := NewSigner(km)
	assert.ErrorIs(t, signer.Ready(), ErrKeyNotConfigured)

	_, err = signer.Sign(sampleReceipt(t))
	assert.ErrorIs(t, err, ErrKeyNotConfigured)

	_, err = signer.PublicKeyPEM()
	assert.ErrorIs(t, err, ErrKeyNotConfigured)

	var nilSigner *Signer
	assert.ErrorIs(t, nilSigner.Ready(), ErrKeyNotConfigured)
}

func TestLoadKeyMaterialRejectsPartialOrMismatched(t *testing.T) {
	privA, pubA, err := GenerateKeyPair()
	require.NoError(t, err)
	_, pubB, err := GenerateKeyPair()
	require.NoError(t, err)

	_, err = LoadKeyMaterial(privA, "")
	assert.ErrorIs(t, err, ErrKeyNotConfigured)
	_, err = LoadKeyMaterial("", pubA)
	assert.ErrorIs(t, err, ErrKeyNotConfigured)
	_, err = LoadKeyMaterial(privA, pubB)
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = LoadKeyMaterial(pubA, pubA)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestLoadKeyMaterialAcceptsEscapedNewlines(t *testing.T) {
	privPEM, pubPEM, err := GenerateKeyPair()
	require.NoError(t, err)
	escape := func(s string) string { return strings.ReplaceAll(strings.TrimSpace(s), "\n", `\n`) }

	km, err := LoadKeyMaterial(escape(privPEM), escape(pubPEM))
	require.NoError(t, err)
	require.NoError(t, NewSigner(km).Ready())
}

func TestLoadKeyMaterialRejectsNonEd25519(t *testing.T) {
	_, pubPEM, err := GenerateKeyPair()
	require.NoError(t, err)

	// An X25519 key is valid PKCS#8 but cannot sign.
	der := x25519PKCS8(t)
	privPEM := string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
	_, err = LoadKeyMaterial(privPEM, pubPEM)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func x25519PKCS8(t *testing.T) []byte {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err)
	// Swap the Ed25519 OID (1.3.101.112) for X25519 (1.3.101.110).
	idx := strings.Index(string(der), "\x06\x03\x2b\x65\x70")
	require.GreaterOrEqual(t, idx, 0)
	der[idx+4] = 0x6e
	return der
}
