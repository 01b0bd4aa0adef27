//go:build !ocr

// Package ocr wraps the Tesseract engine. This is the stub compiled without the "ocr"
// build tag; every call returns ErrOCRNotEnabled. Rebuild with -tags ocr to enable it.
package ocr

// Enabled reports whether Tesseract support is compiled in.
const Enabled = false

// Client is a stub OCR client.
type Client struct{}

// New returns ErrOCRNotEnabled.
func New(language string) (*Client, error) {
	return nil, ErrOCRNotEnabled
}

// Close is a no-op and is safe on a nil client.
func (c *Client) Close() error {
	return nil
}

// RecognizeImage returns ErrOCRNotEnabled.
func (c *Client) RecognizeImage(imageData []byte) (string, error) {
	return "", ErrOCRNotEnabled
}
