//go:build ocr

// Package ocr wraps the Tesseract engine via gosseract. Building with -tags ocr requires
// the Tesseract and Leptonica libraries:
//
//	apt-get install tesseract-ocr libtesseract-dev
package ocr

import (
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Enabled reports whether Tesseract support is compiled in.
const Enabled = true

// Client wraps one Tesseract handle. It is not safe for concurrent use.
type Client struct {
	client *gosseract.Client
}

// New creates a client for the given language, "eng" when empty.
func New(language string) (*Client, error) {
	client := gosseract.NewClient()
	if language == "" {
		language = DefaultLanguage
	}
	if err := client.SetLanguage(language); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("set ocr language %q: %w", language, err)
	}
	return &Client{client: client}, nil
}

// Close releases the Tesseract handle.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// RecognizeImage performs OCR on JPEG or PNG data.
func (c *Client) RecognizeImage(imageData []byte) (string, error) {
	if err := c.client.SetImageFromBytes(imageData); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}
